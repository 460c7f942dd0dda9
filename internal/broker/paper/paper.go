// Package paper is an in-process gateway that fills orders against a
// random-walk midpoint. It is used for dry runs and end-to-end tests.
package paper

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/broker"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/internal/utils"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"github.com/shopspring/decimal"
)

// Config configures the paper gateway.
type Config struct {
	Symbol     string  `yaml:"symbol" json:"symbol" validate:"required,len=3"`
	Currency   string  `yaml:"currency" json:"currency" validate:"required,len=3"`
	Account    string  `yaml:"account" json:"account"`
	StartPrice float64 `yaml:"start_price" json:"start_price" validate:"gt=0"`
	// Volatility is the standard deviation of one minute's relative move.
	Volatility float64 `yaml:"volatility" json:"volatility" validate:"gte=0"`
	Spread     float64 `yaml:"spread" json:"spread" validate:"gte=0"`
	Cash       float64 `yaml:"cash" json:"cash" validate:"gte=0"`
	// ExchangeRates are reported as ExchangeRate account values keyed by currency.
	ExchangeRates     map[string]float64 `yaml:"exchange_rates" json:"exchange_rates"`
	CommissionPerUnit float64            `yaml:"commission_per_unit" json:"commission_per_unit" validate:"gte=0"`
	Seed              uint64             `yaml:"seed" json:"seed"`
}

type restingOrder struct {
	contract types.Contract
	order    types.Order
}

type execution struct {
	row        types.ExecutionRow
	commission types.CommissionRow
}

// Broker implements broker.Client.
type Broker struct {
	mu sync.Mutex

	config    Config
	handler   broker.Handler
	connected bool
	rng       *rand.Rand
	now       func() time.Time

	mid        float64
	position   float64
	avgCost    float64
	nextID     int64
	resting    map[int64]restingOrder
	executions []execution
	injected   []int
}

var _ broker.Client = (*Broker)(nil)

// New creates a paper broker.
func New(config Config) *Broker {
	if config.Account == "" {
		config.Account = "DU0000000"
	}

	if config.Spread == 0 {
		config.Spread = 0.00002
	}

	return &Broker{
		mu:         sync.Mutex{},
		config:     config,
		handler:    nil,
		connected:  false,
		rng:        rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)), //nolint:gosec // simulated prices
		now:        time.Now,
		mid:        config.StartPrice,
		position:   0,
		avgCost:    0,
		nextID:     1,
		resting:    make(map[int64]restingOrder),
		executions: nil,
		injected:   nil,
	}
}

// WithClock replaces the clock used for fills and bars.
func (b *Broker) WithClock(now func() time.Time) *Broker {
	b.now = now

	return b
}

// Factory returns a broker.Factory that always hands out b. The paper
// book survives reconnects the way a real account does.
func (b *Broker) Factory() broker.Factory {
	return func() (broker.Client, error) { return b, nil }
}

func (b *Broker) Connect(_ context.Context, handler broker.Handler) error {
	if handler == nil {
		return errors.New(errors.ErrCodeNotConnected, "paper broker requires a handler")
	}

	b.mu.Lock()
	b.handler = handler
	b.connected = true
	b.mu.Unlock()

	return nil
}

func (b *Broker) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.connected = false

	return nil
}

func (b *Broker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.connected
}

func (b *Broker) session() (broker.Handler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected || b.handler == nil {
		return nil, errors.New(errors.ErrCodeNotConnected, "paper broker is not connected")
	}

	return b.handler, nil
}

func (b *Broker) ReqIDs() error {
	h, err := b.session()
	if err != nil {
		return err
	}

	b.mu.Lock()
	id := b.nextID
	b.mu.Unlock()

	h.NextValidID(id)

	return nil
}

func (b *Broker) ReqPositions() error {
	h, err := b.session()
	if err != nil {
		return err
	}

	b.mu.Lock()
	row := types.PositionRow{
		Time:     time.Time{},
		Account:  b.config.Account,
		Symbol:   b.config.Symbol,
		SecType:  "CASH",
		Currency: b.config.Currency,
		Position: b.position,
		AvgCost:  b.avgCost,
	}
	b.mu.Unlock()

	h.Position(row)
	h.PositionEnd()

	return nil
}

func (b *Broker) ReqOpenOrders() error {
	h, err := b.session()
	if err != nil {
		return err
	}

	b.mu.Lock()
	orders := make([]restingOrder, 0, len(b.resting))
	for _, o := range b.resting {
		orders = append(orders, o)
	}
	b.mu.Unlock()

	for _, o := range orders {
		h.OpenOrder(b.openOrderRow(o, types.StatusSubmitted))
		h.OrderStatus(b.statusRow(o.order, types.StatusSubmitted, 0, o.order.TotalQuantity, 0))
	}

	h.OpenOrderEnd()

	return nil
}

func (b *Broker) ReqAccountUpdates(subscribe bool, account string) error {
	h, err := b.session()
	if err != nil {
		return err
	}

	if !subscribe {
		return nil
	}

	b.mu.Lock()
	cash := b.config.Cash
	rates := make(map[string]float64, len(b.config.ExchangeRates))
	for k, v := range b.config.ExchangeRates {
		rates[k] = v
	}
	b.mu.Unlock()

	h.UpdateAccountValue(types.AccountValueRow{
		Time:     time.Time{},
		Key:      types.AccountKeyTotalCashBalance,
		Value:    strconv.FormatFloat(cash, 'f', 2, 64),
		Currency: types.AccountCurrencyBase,
		Account:  account,
	})

	for cur, rate := range rates {
		h.UpdateAccountValue(types.AccountValueRow{
			Time:     time.Time{},
			Key:      types.AccountKeyExchangeRate,
			Value:    strconv.FormatFloat(rate, 'f', -1, 64),
			Currency: cur,
			Account:  account,
		})
	}

	h.AccountDownloadEnd(account)

	return nil
}

func (b *Broker) ReqExecutions(reqID int64, filter types.ExecutionFilter) error {
	h, err := b.session()
	if err != nil {
		return err
	}

	b.mu.Lock()
	execs := make([]execution, 0, len(b.executions))
	for _, e := range b.executions {
		if !filter.Since.IsZero() && e.row.ExecutionTime.Before(filter.Since) {
			continue
		}

		if filter.Symbol != "" && e.row.Symbol != filter.Symbol {
			continue
		}

		execs = append(execs, e)
	}
	b.mu.Unlock()

	for _, e := range execs {
		h.ExecDetails(reqID, e.row)
		h.CommissionReport(e.commission)
	}

	h.ExecDetailsEnd(reqID)

	return nil
}

// ReqHistoricalData walks the midpoint backwards from the current price and
// returns one bar per bar-size step, shifted by half the spread for the
// requested side.
func (b *Broker) ReqHistoricalData(req broker.HistoricalRequest) error {
	h, err := b.session()
	if err != nil {
		return err
	}

	span, err := ParseDuration(req.Duration)
	if err != nil {
		return err
	}

	step, err := ParseBarSize(req.BarSize)
	if err != nil {
		return err
	}

	end := req.End
	if end.IsZero() {
		end = b.now()
	}

	end = end.Truncate(step)
	n := int(span / step)

	b.mu.Lock()
	half := b.config.Spread / 2
	if req.Side == types.SideBid {
		half = -half
	}

	// the walk is seeded by the request so bid and ask share a path
	walk := rand.New(rand.NewPCG(b.config.Seed, uint64(end.Unix()))) //nolint:gosec // simulated prices
	price := b.mid
	vol := b.config.Volatility
	b.mu.Unlock()

	bars := make([]types.Bar, n)
	for i := n - 1; i >= 0; i-- {
		closePx := price
		openPx := closePx * (1 - vol*walk.NormFloat64())
		hi := math.Max(openPx, closePx) * (1 + math.Abs(vol*walk.NormFloat64())/2)
		lo := math.Min(openPx, closePx) * (1 - math.Abs(vol*walk.NormFloat64())/2)

		bars[i] = types.Bar{
			Time:  end.Add(-time.Duration(n-i) * step),
			Open:  utils.RoundPrice(openPx + half),
			High:  utils.RoundPrice(hi + half),
			Low:   utils.RoundPrice(lo + half),
			Close: utils.RoundPrice(closePx + half),
		}
		price = openPx
	}

	for _, bar := range bars {
		h.HistoricalData(req.ReqID, bar)
	}

	h.HistoricalDataEnd(req.ReqID)

	return nil
}

// ReqTickByTickMidpoint advances the midpoint one step, triggers any resting
// order it crosses and reports the new midpoint.
func (b *Broker) ReqTickByTickMidpoint(reqID int64, _ types.Contract) error {
	h, err := b.session()
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.mid = utils.RoundPrice(b.mid * (1 + b.config.Volatility*b.rng.NormFloat64()))
	mid := b.mid
	b.mu.Unlock()

	b.trigger(h, mid)
	h.TickByTickMidpoint(reqID, b.now(), mid)

	return nil
}

func (b *Broker) CancelTickByTick(int64) error {
	return nil
}

// PlaceOrder fills market orders at the midpoint and rests stop and limit
// orders. Prices with more than five decimals are refused with code 110.
func (b *Broker) PlaceOrder(contract types.Contract, order types.Order) error {
	h, err := b.session()
	if err != nil {
		return err
	}

	b.mu.Lock()
	if order.OrderID >= b.nextID {
		b.nextID = order.OrderID + 1
	}

	var injected optional.Option[int]
	if len(b.injected) > 0 {
		injected = optional.Some(b.injected[0])
		b.injected = b.injected[1:]
	}
	b.mu.Unlock()

	if injected.IsSome() {
		h.Error(order.OrderID, injected.Unwrap(), "injected error")

		return nil
	}

	if err := order.Validate(); err != nil {
		h.Error(order.OrderID, broker.CodeInvalidField, err.Error())

		return nil
	}

	if order.OrderType != types.OrderTypeMarket && tooPrecise(order.Price()) {
		h.Error(order.OrderID, broker.CodeInvalidPrice,
			fmt.Sprintf("The price does not conform to the minimum price variation for this contract: %g", order.Price()))

		return nil
	}

	if order.OrderType == types.OrderTypeMarket {
		b.mu.Lock()
		px := b.mid
		b.mu.Unlock()

		o := restingOrder{contract: contract, order: order}
		h.OpenOrder(b.openOrderRow(o, types.StatusFilled))
		b.fill(h, o, px)

		return nil
	}

	o := restingOrder{contract: contract, order: order}

	b.mu.Lock()
	b.resting[order.OrderID] = o
	b.mu.Unlock()

	h.OpenOrder(b.openOrderRow(o, types.StatusSubmitted))
	h.OrderStatus(b.statusRow(order, types.StatusSubmitted, 0, order.TotalQuantity, 0))

	return nil
}

// CancelOrder cancels a resting order and acknowledges with code 202. An
// unknown or already-done order is answered with code 10147.
func (b *Broker) CancelOrder(orderID int64) error {
	h, err := b.session()
	if err != nil {
		return err
	}

	b.mu.Lock()
	o, ok := b.resting[orderID]
	delete(b.resting, orderID)
	b.mu.Unlock()

	if !ok {
		h.Error(orderID, broker.CodeCancelRejectedOrder, fmt.Sprintf("OrderId %d that needs to be cancelled is not found.", orderID))

		return nil
	}

	h.OrderStatus(b.statusRow(o.order, types.StatusCancelled, 0, o.order.TotalQuantity, 0))
	h.Error(orderID, broker.CodeOrderCancelled, "Order Canceled - reason:")

	return nil
}

// InjectErrors makes the next placements answer with the given codes instead
// of being processed, one code per placement.
func (b *Broker) InjectErrors(codes ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.injected = append(b.injected, codes...)
}

// SetMid moves the midpoint without emitting a tick.
func (b *Broker) SetMid(mid float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mid = mid
}

// Position returns the current signed position.
func (b *Broker) Position() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.position
}

// Resting returns the ids of orders waiting to trigger.
func (b *Broker) Resting() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]int64, 0, len(b.resting))
	for id := range b.resting {
		ids = append(ids, id)
	}

	return ids
}

func (b *Broker) trigger(h broker.Handler, mid float64) {
	b.mu.Lock()
	var hit []restingOrder
	for id, o := range b.resting {
		if crosses(o.order, mid) {
			hit = append(hit, o)
			delete(b.resting, id)
		}
	}
	b.mu.Unlock()

	for _, o := range hit {
		b.fill(h, o, o.order.Price())
	}
}

func crosses(o types.Order, mid float64) bool {
	switch o.OrderType {
	case types.OrderTypeStop:
		if o.Action == types.ActionSell {
			return mid <= o.AuxPrice
		}

		return mid >= o.AuxPrice
	case types.OrderTypeLimit:
		if o.Action == types.ActionSell {
			return mid >= o.LmtPrice
		}

		return mid <= o.LmtPrice
	case types.OrderTypeMarket:
		return true
	}

	return false
}

func (b *Broker) fill(h broker.Handler, o restingOrder, price float64) {
	now := b.now()
	qty := o.order.TotalQuantity
	signed := qty

	if o.order.Action == types.ActionSell {
		signed = -qty
	}

	b.mu.Lock()
	prev := b.position
	b.position += signed

	switch {
	case b.position == 0:
		b.avgCost = 0
	case utils.Sign(prev) == utils.Sign(b.position) && math.Abs(b.position) > math.Abs(prev):
		b.avgCost = (b.avgCost*math.Abs(prev) + price*qty) / math.Abs(b.position)
	case utils.Sign(prev) != utils.Sign(b.position):
		b.avgCost = price
	}

	row := types.ExecutionRow{
		Time:          time.Time{},
		OrderRef:      string(o.order.Leg),
		ExecID:        uuid.NewString(),
		OrderID:       o.order.OrderID,
		Symbol:        o.contract.Symbol,
		SecType:       o.contract.SecType,
		Currency:      o.contract.Currency,
		ExecutionTime: now,
		Account:       b.config.Account,
		Exchange:      o.contract.Exchange,
		Side:          o.order.Action,
		Shares:        qty,
		Price:         price,
		AvPrice:       price,
		CumQty:        qty,
	}
	exec := execution{
		row: row,
		commission: types.CommissionRow{
			Time:        time.Time{},
			ExecID:      row.ExecID,
			Commission:  qty * b.config.CommissionPerUnit,
			Currency:    o.contract.Currency,
			RealizedPnL: optional.Some(types.UnsetDouble),
		},
	}
	b.executions = append(b.executions, exec)
	b.mu.Unlock()

	h.OrderStatus(b.statusRow(o.order, types.StatusFilled, qty, 0, price))
	h.ExecDetails(-1, exec.row)
	h.CommissionReport(exec.commission)
}

func (b *Broker) openOrderRow(o restingOrder, status string) types.OpenOrderRow {
	return types.OpenOrderRow{
		Time:      time.Time{},
		PermID:    o.order.OrderID + 1_000_000,
		ClientID:  0,
		OrderID:   o.order.OrderID,
		Account:   b.config.Account,
		Symbol:    o.contract.Symbol,
		SecType:   o.contract.SecType,
		Exchange:  o.contract.Exchange,
		Action:    o.order.Action,
		OrderType: o.order.OrderType,
		TotalQty:  o.order.TotalQuantity,
		CashQty:   0,
		LmtPrice:  o.order.LmtPrice,
		AuxPrice:  o.order.AuxPrice,
		Status:    status,
	}
}

func (b *Broker) statusRow(o types.Order, status string, filled, remaining, price float64) types.OrderStatusRow {
	return types.OrderStatusRow{
		Time:          time.Time{},
		OrderID:       o.OrderID,
		Status:        status,
		Filled:        filled,
		Remaining:     remaining,
		AvgFillPrice:  price,
		PermID:        o.OrderID + 1_000_000,
		ParentID:      o.ParentID,
		LastFillPrice: price,
		ClientID:      0,
		WhyHeld:       "",
		MktCapPrice:   0,
	}
}

func tooPrecise(price float64) bool {
	return decimal.NewFromFloat(price).Exponent() < -utils.PriceDecimals
}

// ParseDuration parses a gateway duration string such as "1 D", "3600 S"
// or "2 W".
func ParseDuration(s string) (time.Duration, error) {
	n, unit, err := splitSpec(s)
	if err != nil {
		return 0, err
	}

	switch unit {
	case "S":
		return time.Duration(n) * time.Second, nil
	case "D":
		return time.Duration(n) * 24 * time.Hour, nil
	case "W":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported duration unit %q", unit)
	}
}

// ParseBarSize parses a gateway bar size such as "1 min", "5 mins" or "1 hour".
func ParseBarSize(s string) (time.Duration, error) {
	n, unit, err := splitSpec(s)
	if err != nil {
		return 0, err
	}

	switch strings.TrimSuffix(strings.ToLower(unit), "s") {
	case "sec":
		return time.Duration(n) * time.Second, nil
	case "min":
		return time.Duration(n) * time.Minute, nil
	case "hour":
		return time.Duration(n) * time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported bar size %q", s)
	}
}

func splitSpec(s string) (int, string, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, "", errors.Newf(errors.ErrCodeInvalidParameter, "malformed gateway size %q", s)
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, "", errors.Newf(errors.ErrCodeInvalidParameter, "malformed gateway size %q", s)
	}

	return n, fields[1], nil
}
