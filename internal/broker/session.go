package broker

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/logger"
	"go.uber.org/zap"
)

// Abandoner is released when the session tears down. The completion bridge
// implements it.
type Abandoner interface {
	Abandon()
}

// Session is the state of one gateway connection: the client, the error
// registry and the flags the monitor watches. A session is used for one
// decision period and is never reopened; the engine creates a new one.
type Session struct {
	mu sync.RWMutex

	client   Client
	errors   *ErrorRegistry
	abandons Abandoner
	log      *logger.Logger

	connected     bool
	strategyEnd   bool
	staleTicks    int
	nextOrderID   int64
	lastTick      time.Time
	lastMid       float64
	teardownCause string

	done     chan struct{}
	doneOnce sync.Once
}

// NewSession wraps a client. abandons may be nil.
func NewSession(client Client, abandons Abandoner, log *logger.Logger) *Session {
	return &Session{
		mu:            sync.RWMutex{},
		client:        client,
		errors:        NewErrorRegistry(),
		abandons:      abandons,
		log:           log,
		connected:     false,
		strategyEnd:   false,
		staleTicks:    0,
		nextOrderID:   0,
		lastTick:      time.Time{},
		lastMid:       0,
		teardownCause: "",
		done:          make(chan struct{}),
		doneOnce:      sync.Once{},
	}
}

// Client returns the session's gateway client.
func (s *Session) Client() Client {
	return s.client
}

// Errors returns the session's error registry.
func (s *Session) Errors() *ErrorRegistry {
	return s.errors
}

// Done is closed when the session tears down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// IsConnected reports whether the session is usable. It is false once the
// session has torn down, whatever the client reports.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return false
	}

	return s.client != nil && s.client.IsConnected()
}

// MarkConnected flags the session as live after a successful connect.
func (s *Session) MarkConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}

	s.connected = true
}

// SetNextOrderID stores the id from the gateway's next-valid-id callback.
// A lower id than the one already held is ignored.
func (s *Session) SetNextOrderID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id > s.nextOrderID {
		s.nextOrderID = id
	}
}

// NextOrderID allocates an order id.
func (s *Session) NextOrderID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextOrderID
	s.nextOrderID++

	return id
}

// PeekOrderID returns the next id without allocating it.
func (s *Session) PeekOrderID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nextOrderID
}

// RecordTick stores a midpoint and resets the stale counter.
func (s *Session) RecordTick(at time.Time, mid float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTick = at
	s.lastMid = mid
	s.staleTicks = 0
}

// LastMid returns the most recent midpoint and when it was observed.
func (s *Session) LastMid() (float64, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastMid, s.lastTick
}

// MissTick counts a poll that saw no new tick and returns the new count.
func (s *Session) MissTick() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staleTicks++

	return s.staleTicks
}

// StaleTicks returns the number of consecutive polls without a tick.
func (s *Session) StaleTicks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.staleTicks
}

// EndStrategy flags that the period's work is finished so the monitor can
// close the session.
func (s *Session) EndStrategy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strategyEnd = true
}

// StrategyEnded reports whether EndStrategy was called.
func (s *Session) StrategyEnded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.strategyEnd
}

// TeardownCause returns the reason passed to the first TearDown call.
func (s *Session) TeardownCause() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.teardownCause
}

// TearDown ends the session: closes Done, releases every bridge waiter and
// disconnects the client. Only the first call has an effect. It reports
// whether this call performed the teardown.
func (s *Session) TearDown(reason string) bool {
	performed := false

	s.doneOnce.Do(func() {
		performed = true

		s.mu.Lock()
		s.connected = false
		s.teardownCause = reason
		s.mu.Unlock()

		close(s.done)

		if s.abandons != nil {
			s.abandons.Abandon()
		}

		if s.client != nil {
			if err := s.client.Disconnect(); err != nil {
				s.log.Warn("Failed to disconnect from gateway", zap.Error(err))
			}
		}

		s.log.Info("Session torn down", zap.String("reason", reason))
	})

	return performed
}
