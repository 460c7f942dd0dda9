package risk

import (
	"context"

	"github.com/rxtech-lab/argo-fx/internal/broker"
	"github.com/rxtech-lab/argo-fx/internal/scheduler"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CancelStale cancels every working leg of state and waits for the cancels
// to settle. The gateway's cancel acknowledgements are cleared before and
// after so they are never read as placement failures.
func (lc *Lifecycle) CancelStale(ctx context.Context, session *broker.Session, state types.RiskState) error {
	registry := session.Errors()
	registry.Clear(broker.CancelAckCodes...)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(2)

	cancelled := 0

	for _, leg := range []types.Leg{types.LegStopLoss, types.LegTakeProfit} {
		if state.State(leg) != types.LegWorking {
			continue
		}

		id := state.ID(leg).Unwrap()
		cancelled++

		g.Go(func() error {
			if err := session.Client().CancelOrder(id); err != nil {
				return errors.Wrapf(errors.ErrCodeCancelFailed, err, "failed to cancel %s order %d", leg, id)
			}

			lc.log.Info("Cancelled stale leg", zap.String("leg", string(leg)), zap.Int64("order_id", id))

			if lc.hooks.OnCanceled != nil {
				lc.hooks.OnCanceled(leg, id)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if cancelled > 0 {
		if err := scheduler.Sleep(ctx, lc.config.CancelSettleInterval, session.Done()); err != nil {
			return err
		}
	}

	registry.Clear(broker.CancelAckCodes...)

	return nil
}
