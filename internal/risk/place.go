package risk

import (
	"context"

	"github.com/rxtech-lab/argo-fx/internal/broker"
	"github.com/rxtech-lab/argo-fx/internal/scheduler"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/internal/utils"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"go.uber.org/zap"
)

// LegRequest asks for one bracket leg.
type LegRequest struct {
	Leg      types.Leg
	Action   types.OrderAction
	Quantity float64
	Price    float64
	// ParentID links the leg to the period's market order, 0 for none.
	ParentID int64
}

// LegResult is an accepted leg, or the last attempt of a leg that gave up.
type LegResult struct {
	OrderID  int64
	Price    float64
	Attempts int
	Nudges   int
	Accepted bool
}

// NudgeDirection is the sign of the price step applied to a rejected leg.
// Both legs step away from the market: a SELL stop steps down and a SELL
// take-profit steps up, and BUY legs mirror them.
func NudgeDirection(leg types.Leg, action types.OrderAction) int {
	sell := action == types.ActionSell

	switch leg {
	case types.LegStopLoss:
		if sell {
			return -1
		}

		return 1
	case types.LegTakeProfit:
		if sell {
			return 1
		}

		return -1
	case types.LegMarket:
	}

	return 0
}

// PlaceLeg submits a leg and retries rejected submissions with a nudged
// price and a fresh order id. A connectivity code aborts at once with
// ErrCodeNotConnected. After MaxNudges nudges the leg is given up with
// ErrCodeLegPlacementFailed, which callers treat as a degraded period.
func (lc *Lifecycle) PlaceLeg(ctx context.Context, session *broker.Session, req LegRequest) (LegResult, error) {
	if req.Quantity <= 0 {
		return LegResult{}, errors.Newf(errors.ErrCodeInvalidOrder, "%s leg needs a positive quantity", req.Leg)
	}

	price := utils.RoundPrice(req.Price)
	dir := NudgeDirection(req.Leg, req.Action)
	registry := session.Errors()
	result := LegResult{}

	for attempt := 0; ; attempt++ {
		order := types.Order{
			OrderID:       session.NextOrderID(),
			Action:        req.Action,
			OrderType:     types.OrderTypeForLeg(req.Leg),
			TotalQuantity: req.Quantity,
			LmtPrice:      0,
			AuxPrice:      0,
			Transmit:      true,
			ParentID:      req.ParentID,
			Leg:           req.Leg,
		}

		if order.OrderType == types.OrderTypeStop {
			order.AuxPrice = price
		} else {
			order.LmtPrice = price
		}

		result = LegResult{OrderID: order.OrderID, Price: price, Attempts: attempt + 1, Nudges: attempt, Accepted: false}

		registry.Clear(broker.RejectCodes...)

		if err := session.Client().PlaceOrder(lc.config.Contract, order); err != nil {
			return result, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to place %s order %d", req.Leg, order.OrderID)
		}

		if err := scheduler.Sleep(ctx, lc.config.SettleInterval, session.Done()); err != nil {
			return result, err
		}

		class := registry.Classify()

		switch class.Kind {
		case broker.ClassNone:
			result.Accepted = true

			lc.log.Info("Leg placed",
				zap.String("leg", string(req.Leg)),
				zap.String("action", string(req.Action)),
				zap.Float64("quantity", req.Quantity),
				zap.Float64("price", price),
				zap.Int64("order_id", order.OrderID),
				zap.Int("nudges", attempt),
			)

			if lc.hooks.OnPlaced != nil {
				lc.hooks.OnPlaced(req.Leg, order)
			}

			return result, nil
		case broker.ClassDisconnect:
			return result, errors.Wrapf(errors.ErrCodeNotConnected, registry.Err(class.Code),
				"connection lost while placing %s order %d", req.Leg, order.OrderID)
		case broker.ClassReject:
			if lc.hooks.OnRejected != nil {
				lc.hooks.OnRejected(req.Leg, class.Code)
			}

			cause := registry.Err(class.Code)
			registry.Clear(broker.RejectCodes...)

			if attempt >= lc.config.MaxNudges {
				lc.log.Error("Giving up on leg after max nudges",
					zap.String("leg", string(req.Leg)),
					zap.Int("nudges", attempt),
					zap.Float64("last_price", price),
				)

				if lc.hooks.OnGaveUp != nil {
					lc.hooks.OnGaveUp(req.Leg)
				}

				return result, errors.Wrapf(errors.ErrCodeLegPlacementFailed, cause,
					"%s leg rejected after %d nudges", req.Leg, attempt)
			}

			price = utils.NudgePrice(price, lc.config.NudgeIncrement, dir)

			lc.log.Warn("Leg rejected, nudging price",
				zap.String("leg", string(req.Leg)),
				zap.Int("code", class.Code),
				zap.Float64("next_price", price),
			)
		}
	}
}
