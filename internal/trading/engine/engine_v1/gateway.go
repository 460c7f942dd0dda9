package engine_v1

import (
	"context"

	"github.com/rxtech-lab/argo-fx/internal/bridge"
	"github.com/rxtech-lab/argo-fx/internal/broker"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/risk"
	"github.com/rxtech-lab/argo-fx/internal/transition"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"go.uber.org/zap"
)

// gateway is one connected session and everything bound to it. It lives
// for a single period.
type gateway struct {
	session   *broker.Session
	sync      *broker.Sync
	lifecycle *risk.Lifecycle
	executor  *transition.Executor

	monitorDone chan struct{}
	cancel      context.CancelFunc
	log         *logger.Logger
}

// openGateway creates a client, connects it, starts the connection monitor
// and fetches the next valid order id.
func (e *SessionEngineV1) openGateway(ctx context.Context) (*gateway, error) {
	client, err := e.brokerFactory()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotConnected, "failed to create broker client", err)
	}

	b := bridge.NewBridge(e.log)
	sess := broker.NewSession(client, b, e.log)
	b.Attach(sess)

	buffer := ledger.NewBuffer()
	router := broker.NewRouter(sess, buffer, b, e.log).WithClock(e.now)

	if err := client.Connect(ctx, router); err != nil {
		if derr := client.Disconnect(); derr != nil {
			e.log.Debug("Failed to release the client after a failed connect", zap.Error(derr))
		}

		return nil, errors.Wrap(errors.ErrCodeNotConnected, "failed to connect to the gateway", err)
	}

	sess.MarkConnected()

	lifecycle := risk.NewLifecycle(risk.Config{
		Contract:             e.contract,
		Account:              e.config.Account,
		SettleInterval:       e.config.SettleInterval,
		CancelSettleInterval: e.config.CancelSettleInterval,
		NudgeIncrement:       risk.DefaultNudgeIncrement,
		MaxNudges:            e.config.MaxNudges,
		StopLossMultiplier:   e.config.StopLossMultiplier,
		TakeProfitMultiplier: e.config.TakeProfitMultiplier,
	}, e.ledger, e.riskHooks(), e.log)

	sync := broker.NewSync(sess, b, buffer, e.ledger, e.config.RequestTimeout, e.log)

	executor := transition.NewExecutor(lifecycle, sync, e.log)
	executor.OnMarketOrder = func(order types.Order) {
		e.onOrderPlaced(types.LegMarket, order)
	}

	monitorCtx, cancel := context.WithCancel(ctx)

	gw := &gateway{
		session:     sess,
		sync:        sync,
		lifecycle:   lifecycle,
		executor:    executor,
		monitorDone: make(chan struct{}),
		cancel:      cancel,
		log:         e.log,
	}

	monitor := broker.NewMonitor(sess, e.config.MonitorInterval, e.config.MaxStaleTicks, e.onTeardown, e.log)

	go func() {
		defer close(gw.monitorDone)
		monitor.Watch(monitorCtx)
	}()

	id, err := sync.NextValidID(ctx)
	if err != nil {
		gw.close()

		return nil, err
	}

	e.log.Debug("Gateway session opened", zap.Int64("next_order_id", id))

	return gw, nil
}

// close flags the period's work as finished and waits for the monitor to
// tear the session down.
func (g *gateway) close() {
	g.session.EndStrategy()
	<-g.monitorDone
	g.cancel()

	cause := g.session.TeardownCause()
	if cause != broker.ReasonStrategyEnd {
		g.log.Warn("Gateway session ended before the period finished", zap.String("cause", cause))
	}
}

func (e *SessionEngineV1) riskHooks() risk.Hooks {
	return risk.Hooks{
		OnPlaced: e.onOrderPlaced,
		OnRejected: func(leg types.Leg, code int) {
			e.statsTracker.RecordRejected(leg)
			e.metrics.OrderRejected(string(leg), code)
		},
		OnGaveUp: func(leg types.Leg) {
			e.statsTracker.RecordGaveUp(leg)

			if e.callbacks.OnLegFailed != nil {
				(*e.callbacks.OnLegFailed)(leg, errors.Newf(errors.ErrCodeLegPlacementFailed,
					"%s leg gave up after %d nudges", leg, e.config.MaxNudges))
			}
		},
		OnCanceled: func(leg types.Leg, _ int64) {
			e.statsTracker.RecordCancelled(leg)
		},
	}
}

func (e *SessionEngineV1) onOrderPlaced(leg types.Leg, order types.Order) {
	e.statsTracker.RecordPlaced(leg)
	e.metrics.OrderPlaced(string(leg), string(order.Action))

	if e.callbacks.OnOrderPlaced != nil {
		if err := (*e.callbacks.OnOrderPlaced)(leg, order); err != nil {
			e.log.Warn("OnOrderPlaced callback failed", zap.Error(err))
		}
	}
}

func (e *SessionEngineV1) onTeardown(reason string) {
	e.statsTracker.RecordTeardown(reason)
	e.metrics.SessionTornDown(reason)
}
