package transition

import (
	"context"
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/broker"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/risk"
	"github.com/rxtech-lab/argo-fx/internal/scheduler"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pricing is the market input the bracket prices are built from.
type Pricing struct {
	// Last is the latest midpoint.
	Last float64
	// RiskTarget is the price distance the multipliers scale.
	RiskTarget float64
}

// Report is the outcome of executing a plan.
type Report struct {
	Plan        Plan
	MarketOrder optional.Option[types.Order]
	Targets     optional.Option[risk.Targets]
	StopLoss    optional.Option[risk.LegResult]
	TakeProfit  optional.Option[risk.LegResult]
	// Degraded is set when a leg could not be placed.
	Degraded bool
	Errors   []string
}

func (r *Report) degrade(err error) {
	r.Degraded = true
	r.Errors = append(r.Errors, err.Error())
}

// Executor carries out plans on one session.
type Executor struct {
	lifecycle *risk.Lifecycle
	sync      *broker.Sync
	log       *logger.Logger

	// OnMarketOrder is called after a market order is accepted. May be nil.
	OnMarketOrder func(order types.Order)
}

// NewExecutor creates an Executor.
func NewExecutor(lifecycle *risk.Lifecycle, sync *broker.Sync, log *logger.Logger) *Executor {
	return &Executor{
		lifecycle:     lifecycle,
		sync:          sync,
		log:           log,
		OnMarketOrder: nil,
	}
}

// Execute runs the plan as two tasks. The cancel task cancels the working
// legs of the stale bracket. The place task sends the market order at once,
// then waits for the cancel task, refreshes the open orders, composes the
// leg prices and places the stop-loss and then the take-profit. A leg that
// cannot be placed degrades the report; connectivity loss aborts with an
// error.
func (e *Executor) Execute(ctx context.Context, plan Plan, pricing Pricing) (Report, error) {
	report := Report{
		Plan:        plan,
		MarketOrder: optional.None[types.Order](),
		Targets:     optional.None[risk.Targets](),
		StopLoss:    optional.None[risk.LegResult](),
		TakeProfit:  optional.None[risk.LegResult](),
		Degraded:    false,
		Errors:      nil,
	}

	if plan.Empty() {
		return report, nil
	}

	session := e.sync.Session()
	stale := e.lifecycle.Derive()
	cancelled := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(cancelled)

		if !plan.CancelBrackets {
			return nil
		}

		return e.lifecycle.CancelStale(gctx, session, stale)
	})

	g.Go(func() error {
		if plan.HasMarket() {
			order, err := e.placeMarket(gctx, session, plan)
			if err != nil {
				return err
			}

			report.MarketOrder = optional.Some(order)
		}

		select {
		case <-cancelled:
		case <-gctx.Done():
			return gctx.Err()
		}

		if !plan.HasBrackets() {
			return nil
		}

		return e.placeBracket(gctx, session, plan, pricing, &report)
	})

	if err := g.Wait(); err != nil {
		return report, err
	}

	return report, nil
}

func (e *Executor) placeMarket(ctx context.Context, session *broker.Session, plan Plan) (types.Order, error) {
	order := types.Order{
		OrderID:       session.NextOrderID(),
		Action:        plan.MarketAction,
		OrderType:     types.OrderTypeMarket,
		TotalQuantity: plan.MarketQuantity,
		LmtPrice:      0,
		AuxPrice:      0,
		Transmit:      true,
		ParentID:      0,
		Leg:           types.LegMarket,
	}

	registry := session.Errors()
	registry.Clear(broker.RejectCodes...)

	if err := session.Client().PlaceOrder(e.lifecycle.Config().Contract, order); err != nil {
		return order, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to place market order %d", order.OrderID)
	}

	if err := scheduler.Sleep(ctx, e.lifecycle.Config().SettleInterval, session.Done()); err != nil {
		return order, err
	}

	switch class := registry.Classify(); class.Kind {
	case broker.ClassDisconnect:
		return order, errors.Wrapf(errors.ErrCodeNotConnected, registry.Err(class.Code),
			"connection lost after market order %d", order.OrderID)
	case broker.ClassReject:
		cause := registry.Err(class.Code)
		registry.Clear(broker.RejectCodes...)

		return order, errors.Wrapf(errors.ErrCodeOrderRejected, cause, "market order %d rejected", order.OrderID)
	case broker.ClassNone:
	}

	e.log.Info("Market order sent",
		zap.String("case", string(plan.Case)),
		zap.String("action", string(order.Action)),
		zap.Float64("quantity", order.TotalQuantity),
		zap.Int64("order_id", order.OrderID),
	)

	if e.OnMarketOrder != nil {
		e.OnMarketOrder(order)
	}

	return order, nil
}

func (e *Executor) placeBracket(ctx context.Context, session *broker.Session, plan Plan, pricing Pricing, report *Report) error {
	if err := e.sync.OpenOrders(ctx); err != nil {
		return err
	}

	state := e.lifecycle.Derive()
	targets := e.lifecycle.ComposeTargets(state, plan.Previous, plan.Signal, plan.BracketQuantity, pricing.Last, pricing.RiskTarget)
	report.Targets = optional.Some(targets)

	legs := []struct {
		leg    types.Leg
		target risk.LegTarget
		out    *optional.Option[risk.LegResult]
	}{
		{leg: types.LegStopLoss, target: targets.StopLoss, out: &report.StopLoss},
		{leg: types.LegTakeProfit, target: targets.TakeProfit, out: &report.TakeProfit},
	}

	for _, l := range legs {
		res, err := e.lifecycle.PlaceLeg(ctx, session, risk.LegRequest{
			Leg:      l.leg,
			Action:   plan.BracketAction,
			Quantity: l.target.Quantity,
			Price:    l.target.Price,
			ParentID: 0,
		})
		*l.out = optional.Some(res)

		switch {
		case err == nil:
		case errors.HasCode(err, errors.ErrCodeLegPlacementFailed), errors.HasCode(err, errors.ErrCodeInvalidOrder):
			report.degrade(fmt.Errorf("%s: %w", l.leg, err))
		default:
			return err
		}
	}

	return nil
}
