package ledger

import (
	"sync"

	"github.com/rxtech-lab/argo-fx/internal/types"
)

// Batch is the set of rows collected by callbacks since the last drain.
type Batch struct {
	OpenOrders    []types.OpenOrderRow
	OrderStatus   []types.OrderStatusRow
	Executions    []types.ExecutionRow
	Commissions   []types.CommissionRow
	Positions     []types.PositionRow
	AccountValues []types.AccountValueRow
}

// Empty reports whether the batch holds no rows.
func (b Batch) Empty() bool {
	return len(b.OpenOrders)+len(b.OrderStatus)+len(b.Executions)+
		len(b.Commissions)+len(b.Positions)+len(b.AccountValues) == 0
}

// Buffer is the temporary container gateway callbacks write into. It is
// drained into the Ledger after each request completes.
type Buffer struct {
	mu    sync.Mutex
	batch Batch
	bars  map[types.BarSide][]types.Bar
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		mu:    sync.Mutex{},
		batch: Batch{},
		bars:  make(map[types.BarSide][]types.Bar),
	}
}

func (b *Buffer) AddOpenOrder(row types.OpenOrderRow) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.batch.OpenOrders = append(b.batch.OpenOrders, row)
}

func (b *Buffer) AddOrderStatus(row types.OrderStatusRow) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.batch.OrderStatus = append(b.batch.OrderStatus, row)
}

func (b *Buffer) AddExecution(row types.ExecutionRow) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.batch.Executions = append(b.batch.Executions, row)
}

func (b *Buffer) AddCommission(row types.CommissionRow) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.batch.Commissions = append(b.batch.Commissions, row)
}

func (b *Buffer) AddPosition(row types.PositionRow) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.batch.Positions = append(b.batch.Positions, row)
}

func (b *Buffer) AddAccountValue(row types.AccountValueRow) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.batch.AccountValues = append(b.batch.AccountValues, row)
}

// AddBar appends a one-minute bar for a book side.
func (b *Buffer) AddBar(side types.BarSide, bar types.Bar) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bars[side] = append(b.bars[side], bar)
}

// Drain returns and clears the collected rows. Bars are left untouched.
func (b *Buffer) Drain() Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.batch
	b.batch = Batch{}

	return out
}

// DrainBars returns and clears the bars collected for a side.
func (b *Buffer) DrainBars(side types.BarSide) []types.Bar {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.bars[side]
	delete(b.bars, side)

	return out
}

// Reset drops everything collected.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.batch = Batch{}
	b.bars = make(map[types.BarSide][]types.Bar)
}
