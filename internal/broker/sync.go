package broker

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/bridge"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds a single request/end-callback round trip.
const DefaultRequestTimeout = 30 * time.Second

// Sync runs request/end-callback round trips through the bridge and merges
// what the callbacks buffered into the ledger. Rows that arrived before a
// timeout are merged too.
type Sync struct {
	session *Session
	bridge  *bridge.Bridge
	buffer  *ledger.Buffer
	ledger  *ledger.Ledger
	timeout time.Duration
	log     *logger.Logger
}

// NewSync creates a Sync. A non-positive timeout uses DefaultRequestTimeout.
func NewSync(session *Session, b *bridge.Bridge, buffer *ledger.Buffer, l *ledger.Ledger, timeout time.Duration, log *logger.Logger) *Sync {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &Sync{
		session: session,
		bridge:  b,
		buffer:  buffer,
		ledger:  l,
		timeout: timeout,
		log:     log,
	}
}

// Session returns the session the requests go through.
func (s *Sync) Session() *Session {
	return s.session
}

func (s *Sync) await(ctx context.Context, key bridge.Key, issue func() error) error {
	outcome, err := s.bridge.Await(ctx, key, s.timeout, issue)

	switch outcome {
	case bridge.OutcomeCompleted:
		if err != nil {
			return errors.Wrapf(errors.ErrCodeNotConnected, err, "request %s failed", key)
		}

		return nil
	case bridge.OutcomeNotConnected:
		return errors.Newf(errors.ErrCodeNotConnected, "not connected while waiting for %s", key)
	case bridge.OutcomeTimedOut:
		return errors.Newf(errors.ErrCodeRequestTimeout, "timed out after %s waiting for %s", s.timeout, key)
	case bridge.OutcomeCanceled:
		return errors.Wrapf(errors.ErrCodeRequestCancelled, err, "cancelled while waiting for %s", key)
	default:
		return errors.Newf(errors.ErrCodeUnknown, "unexpected outcome %s for %s", outcome, key)
	}
}

func (s *Sync) merge(what string) {
	stats := s.ledger.Apply(s.buffer.Drain())
	if stats.Total() > 0 {
		s.log.Debug("Merged gateway rows", zap.String("request", what), zap.Int("rows", stats.Total()))
	}
}

// NextValidID requests the next order id and stores it on the session.
func (s *Sync) NextValidID(ctx context.Context) (int64, error) {
	if err := s.await(ctx, bridge.KeyNextID, s.session.Client().ReqIDs); err != nil {
		return 0, err
	}

	return s.session.PeekOrderID(), nil
}

// Positions refreshes the position stream.
func (s *Sync) Positions(ctx context.Context) error {
	err := s.await(ctx, bridge.KeyPositions, s.session.Client().ReqPositions)
	s.merge("positions")

	return err
}

// OpenOrders refreshes the open-order and order-status streams.
func (s *Sync) OpenOrders(ctx context.Context) error {
	err := s.await(ctx, bridge.KeyOpenOrders, s.session.Client().ReqOpenOrders)
	s.merge("open_orders")

	return err
}

// Executions refreshes the execution and commission streams.
func (s *Sync) Executions(ctx context.Context, filter types.ExecutionFilter) error {
	err := s.await(ctx, bridge.KeyExecutions, func() error {
		return s.session.Client().ReqExecutions(0, filter)
	})
	s.merge("executions")

	return err
}

// Account subscribes to account updates until the download ends, then
// unsubscribes.
func (s *Sync) Account(ctx context.Context, account string) error {
	client := s.session.Client()

	err := s.await(ctx, bridge.KeyAccount, func() error {
		return client.ReqAccountUpdates(true, account)
	})
	s.merge("account_updates")

	if err != nil {
		return err
	}

	if uerr := client.ReqAccountUpdates(false, account); uerr != nil {
		s.log.Warn("Failed to unsubscribe from account updates", zap.Error(uerr))
	}

	return nil
}

// TradingInfo refreshes positions, open orders and executions in turn.
func (s *Sync) TradingInfo(ctx context.Context, filter types.ExecutionFilter) error {
	if err := s.Positions(ctx); err != nil {
		return err
	}

	if err := s.OpenOrders(ctx); err != nil {
		return err
	}

	return s.Executions(ctx, filter)
}

// Historical downloads one side of the book and returns the bars. The
// request id must equal the side so the router files bars correctly. A
// request the gateway answered with a historical data error fails with
// ErrCodeHistoricalDataFailed.
func (s *Sync) Historical(ctx context.Context, req HistoricalRequest) ([]types.Bar, error) {
	req.ReqID = int64(req.Side)

	err := s.await(ctx, bridge.HistoricalKey(req.ReqID), func() error {
		return s.session.Client().ReqHistoricalData(req)
	})

	bars := s.buffer.DrainBars(req.Side)

	if err == nil || errors.HasCode(err, errors.ErrCodeRequestTimeout) {
		if cause := s.session.Errors().ErrForRequest(req.ReqID, CodeHistoricalData); cause != nil {
			return bars, errors.Wrapf(errors.ErrCodeHistoricalDataFailed, cause, "%s history request failed", req.Side)
		}
	}

	return bars, err
}
