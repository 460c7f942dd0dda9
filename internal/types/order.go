package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
)

// OrderAction is the gateway's side field.
type OrderAction string

// OrderType is the gateway's order type code.
type OrderType string

// Leg names the role an order plays in a position transition.
type Leg string

const (
	ActionBuy  OrderAction = "BUY"
	ActionSell OrderAction = "SELL"
)

const (
	OrderTypeMarket OrderType = "MKT"
	OrderTypeStop   OrderType = "STP"
	OrderTypeLimit  OrderType = "LMT"
)

const (
	LegMarket     Leg = "market"
	LegStopLoss   Leg = "stop_loss"
	LegTakeProfit Leg = "take_profit"
)

// Order statuses as reported by the gateway's order-status callback.
const (
	StatusPendingSubmit = "PendingSubmit"
	StatusPreSubmitted  = "PreSubmitted"
	StatusSubmitted     = "Submitted"
	StatusFilled        = "Filled"
	StatusCancelled     = "Cancelled"
	StatusApiCancelled  = "ApiCancelled"
	StatusInactive      = "Inactive"
)

// Opposite returns the other side.
func (a OrderAction) Opposite() OrderAction {
	if a == ActionBuy {
		return ActionSell
	}

	return ActionBuy
}

// OrderTypeForLeg maps a bracket leg to the order type used to carry it.
func OrderTypeForLeg(leg Leg) OrderType {
	switch leg {
	case LegStopLoss:
		return OrderTypeStop
	case LegTakeProfit:
		return OrderTypeLimit
	default:
		return OrderTypeMarket
	}
}

// Contract identifies the traded instrument on the gateway.
type Contract struct {
	Symbol   string `yaml:"symbol" json:"symbol" validate:"required,len=3"`
	SecType  string `yaml:"sec_type" json:"sec_type" validate:"required"`
	Currency string `yaml:"currency" json:"currency" validate:"required,len=3"`
	Exchange string `yaml:"exchange" json:"exchange" validate:"required"`
}

// ForexContract builds a CASH contract on IDEALPRO for a currency pair.
func ForexContract(symbol, currency string) Contract {
	return Contract{
		Symbol:   symbol,
		SecType:  "CASH",
		Currency: currency,
		Exchange: "IDEALPRO",
	}
}

// Pair returns the contract as "EURUSD".
func (c Contract) Pair() string {
	return c.Symbol + c.Currency
}

// Order is an order submitted to the gateway.
type Order struct {
	OrderID       int64       `yaml:"order_id" json:"order_id" validate:"required,gt=0"`
	Action        OrderAction `yaml:"action" json:"action" validate:"required,oneof=BUY SELL"`
	OrderType     OrderType   `yaml:"order_type" json:"order_type" validate:"required,oneof=MKT STP LMT"`
	TotalQuantity float64     `yaml:"total_quantity" json:"total_quantity" validate:"gt=0"`
	LmtPrice      float64     `yaml:"lmt_price" json:"lmt_price" validate:"gte=0"`
	AuxPrice      float64     `yaml:"aux_price" json:"aux_price" validate:"gte=0"`
	Transmit      bool        `yaml:"transmit" json:"transmit"`
	// ParentID links a bracket child to its market order. 0 for none.
	ParentID int64 `yaml:"parent_id" json:"parent_id"`
	Leg      Leg   `yaml:"leg" json:"leg"`
}

// Price returns the price field that matters for the order type.
func (o Order) Price() float64 {
	switch o.OrderType {
	case OrderTypeStop:
		return o.AuxPrice
	case OrderTypeLimit:
		return o.LmtPrice
	default:
		return 0
	}
}

// Validate checks the order is well formed for its type.
func (o Order) Validate() error {
	v := validator.New()
	if err := v.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	switch o.OrderType {
	case OrderTypeStop:
		if o.AuxPrice <= 0 {
			return errors.Newf(errors.ErrCodeInvalidOrder, "stop order %d requires an aux price", o.OrderID)
		}
	case OrderTypeLimit:
		if o.LmtPrice <= 0 {
			return errors.Newf(errors.ErrCodeInvalidOrder, "limit order %d requires a limit price", o.OrderID)
		}
	case OrderTypeMarket:
	}

	return nil
}

// ExecutionFilter narrows an executions request.
type ExecutionFilter struct {
	ClientID int64
	Account  string
	Symbol   string
	SecType  string
	// Since is the lower bound on execution time. Zero means everything.
	Since time.Time
}
