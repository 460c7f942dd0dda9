// Package bridge turns the gateway's asynchronous request/end-callback pairs
// into blocking calls. Every in-flight request owns its own completion
// handle, so the bid and ask downloads can be awaited at the same time
// without one's end-callback waking the other.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/logger"
	"go.uber.org/zap"
)

// Key identifies an outstanding request.
type Key string

const (
	KeyNextID     Key = "next_valid_id"
	KeyPositions  Key = "positions"
	KeyOpenOrders Key = "open_orders"
	KeyAccount    Key = "account_updates"
	KeyExecutions Key = "executions"
)

// HistoricalKey returns the key for a historical-data request id.
func HistoricalKey(reqID int64) Key {
	return Key(fmt.Sprintf("hist:%d", reqID))
}

// Outcome is how a wait ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeNotConnected
	OutcomeTimedOut
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeNotConnected:
		return "not_connected"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Connectivity reports whether the gateway session is usable.
type Connectivity interface {
	IsConnected() bool
}

type handle struct {
	done     chan struct{}
	once     sync.Once
	abandons chan struct{}
}

func (h *handle) complete() {
	h.once.Do(func() { close(h.done) })
}

// Bridge holds one completion handle per outstanding request key.
type Bridge struct {
	mu        sync.Mutex
	pending   map[Key]*handle
	abandoned chan struct{}
	conn      Connectivity
	log       *logger.Logger
}

// NewBridge creates a Bridge. conn may be nil until a session is attached.
func NewBridge(log *logger.Logger) *Bridge {
	return &Bridge{
		mu:        sync.Mutex{},
		pending:   make(map[Key]*handle),
		abandoned: make(chan struct{}),
		conn:      nil,
		log:       log,
	}
}

// Attach binds the bridge to a session's connectivity and re-arms it after
// a previous Abandon.
func (b *Bridge) Attach(conn Connectivity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.conn = conn
	b.pending = make(map[Key]*handle)
	b.abandoned = make(chan struct{})
}

// Await resets the handle for key, runs issue and blocks until the matching
// end-callback calls Complete, the session is abandoned, timeout elapses or
// ctx is done. A timeout of zero waits without a deadline.
func (b *Bridge) Await(ctx context.Context, key Key, timeout time.Duration, issue func() error) (Outcome, error) {
	b.mu.Lock()
	if b.conn == nil || !b.conn.IsConnected() {
		b.mu.Unlock()

		return OutcomeNotConnected, nil
	}

	h := &handle{done: make(chan struct{}), once: sync.Once{}, abandons: b.abandoned}
	b.pending[key] = h
	b.mu.Unlock()

	defer b.release(key, h)

	if err := issue(); err != nil {
		return OutcomeCompleted, fmt.Errorf("failed to issue %s request: %w", key, err)
	}

	var deadline <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		deadline = timer.C
	}

	select {
	case <-h.done:
		return OutcomeCompleted, nil
	case <-h.abandons:
		return OutcomeNotConnected, nil
	case <-deadline:
		b.log.Warn("Request timed out", zap.String("key", string(key)), zap.Duration("timeout", timeout))

		return OutcomeTimedOut, nil
	case <-ctx.Done():
		return OutcomeCanceled, ctx.Err()
	}
}

// Complete signals the handle for key. Completing a key nobody waits on is a no-op.
func (b *Bridge) Complete(key Key) {
	b.mu.Lock()
	h, ok := b.pending[key]
	b.mu.Unlock()

	if ok {
		h.complete()
	}
}

// Pending reports whether a wait for key is outstanding.
func (b *Bridge) Pending(key Key) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.pending[key]

	return ok
}

// Abandon releases every waiter with OutcomeNotConnected. Used on teardown.
func (b *Bridge) Abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.abandoned:
	default:
		close(b.abandoned)
	}
}

func (b *Bridge) release(key Key, h *handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending[key] == h {
		delete(b.pending, key)
	}
}
