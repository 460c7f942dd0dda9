package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/logger"
	"go.uber.org/zap"
)

// Teardown reasons reported by the monitor.
const (
	ReasonDisconnected = "disconnected"
	ReasonStaleTicks   = "stale_ticks"
	ReasonStrategyEnd  = "strategy_end"
	ReasonContextDone  = "context_done"
)

// ErrorCodeReason is the teardown reason for a gateway error code.
func ErrorCodeReason(code int) string {
	return fmt.Sprintf("error_%d", code)
}

// Monitor tears the session down when the connection is lost, a
// connectivity error code arrives, the tick stream goes stale or the
// period's work has finished.
type Monitor struct {
	session       *Session
	interval      time.Duration
	maxStaleTicks int
	onTeardown    func(reason string)
	log           *logger.Logger
}

// DefaultMonitorInterval is used when the configured interval is not positive.
const DefaultMonitorInterval = time.Second

// NewMonitor creates a Monitor polling every interval. onTeardown may be nil.
func NewMonitor(session *Session, interval time.Duration, maxStaleTicks int, onTeardown func(reason string), log *logger.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}

	return &Monitor{
		session:       session,
		interval:      interval,
		maxStaleTicks: maxStaleTicks,
		onTeardown:    onTeardown,
		log:           log,
	}
}

// Check returns the teardown reason the session currently meets, or "".
func (m *Monitor) Check() string {
	if !m.session.IsConnected() {
		return ReasonDisconnected
	}

	for _, code := range TeardownCodes {
		if m.session.Errors().Has(code) {
			return ErrorCodeReason(code)
		}
	}

	if m.maxStaleTicks > 0 && m.session.StaleTicks() >= m.maxStaleTicks {
		return ReasonStaleTicks
	}

	if m.session.StrategyEnded() {
		return ReasonStrategyEnd
	}

	return ""
}

// Watch polls until a teardown condition holds, ctx is done or the session
// is torn down elsewhere. It tears the session down before returning.
func (m *Monitor) Watch(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.session.Done():
			return
		case <-ctx.Done():
			m.tearDown(ReasonContextDone)

			return
		case <-ticker.C:
			if reason := m.Check(); reason != "" {
				m.tearDown(reason)

				return
			}
		}
	}
}

func (m *Monitor) tearDown(reason string) {
	if !m.session.TearDown(reason) {
		return
	}

	m.log.Debug("Monitor ended session", zap.String("reason", reason))

	if m.onTeardown != nil {
		m.onTeardown(reason)
	}
}
