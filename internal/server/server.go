// Package server exposes the engine's status over HTTP: a health check, the
// last period report, Prometheus metrics and a websocket feed of period
// reports.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/metrics"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/internal/version"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status     types.EngineStatus  `json:"status"`
	Version    string              `json:"version"`
	UpdatedAt  time.Time           `json:"updated_at"`
	LastPeriod *types.PeriodReport `json:"last_period"`
}

// Server serves the status API.
type Server struct {
	router   *mux.Router
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu        sync.RWMutex
	status    types.EngineStatus
	updatedAt time.Time
	last      *types.PeriodReport

	wsMu    sync.Mutex
	clients map[*websocket.Conn]bool

	httpServer *http.Server
	listener   net.Listener
}

// New creates a Server. collectors may be nil, in which case /metrics is
// not routed.
func New(collectors *metrics.Collectors, log *logger.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:        log,
		status:     types.EngineStatusWaiting,
		updatedAt:  time.Now(),
		last:       nil,
		clients:    make(map[*websocket.Conn]bool),
		httpServer: nil,
		listener:   nil,
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebSocket)

	if collectors != nil {
		s.router.Handle("/metrics", collectors.Handler()).Methods(http.MethodGet)
	}

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on address and serves in the background. ":0" picks a
// free port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Status server stopped", zap.Error(err))
		}
	}()

	s.log.Info("Status server listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Address returns the address the server listens on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Stop closes every websocket and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.wsMu.Lock()
	for conn := range s.clients {
		conn.Close()
	}

	s.clients = make(map[*websocket.Conn]bool)
	s.wsMu.Unlock()

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// SetStatus records the engine state.
func (s *Server) SetStatus(status types.EngineStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	s.updatedAt = time.Now()
}

// Publish stores report as the last period and pushes it to every websocket
// client. Clients that fail the write are dropped.
func (s *Server) Publish(report types.PeriodReport) {
	s.mu.Lock()
	s.last = &report
	s.updatedAt = time.Now()
	s.mu.Unlock()

	payload, err := json.Marshal(report)
	if err != nil {
		s.log.Warn("Failed to encode period report", zap.Error(err))

		return
	}

	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	for conn := range s.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	return len(s.clients)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.GetVersion(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	resp := StatusResponse{
		Status:     s.status,
		Version:    version.GetVersion(),
		UpdatedAt:  s.updatedAt,
		LastPeriod: s.last,
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Websocket upgrade failed", zap.Error(err))

		return
	}

	s.wsMu.Lock()
	s.clients[conn] = true
	s.wsMu.Unlock()

	// drain until the peer goes away so close frames are handled
	go func() {
		defer func() {
			s.wsMu.Lock()
			delete(s.clients, conn)
			s.wsMu.Unlock()
			conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
