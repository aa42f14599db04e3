// Package strategy defines the boundary between the execution core and
// external market-making decision logic. Per the system's scope, spread,
// size and inventory heuristics are not part of this core — a strategy is
// anything that reads the top-of-book mirror (internal/book) and the
// current position, and produces order-creation intents back to the
// execution thread over an SPSC ring (§5, Thread C).
//
// Grounded on the teacher's strategy package (maker.go/inventory.go
// drove order placement directly against the exchange client); here the
// same per-tick decide loop is kept but trimmed to the interface boundary
// the system names, with a small reference implementation standing in
// for the ported heuristics.
package strategy

import (
	"hftcore/internal/book"
	"hftcore/internal/instrument"
)

// Intent is an order-creation request a strategy hands to the execution
// thread. It carries everything internal/order.Manager.CreateOrder needs;
// the execution thread is the only one allowed to call CreateOrder.
type Intent struct {
	Instrument instrument.Tenor
	Side       instrument.Side
	Type       instrument.OrderType
	Price      instrument.Price32nd
	Quantity   uint64
	TIF        uint8 // mirrors order.TimeInForce; duplicated here to avoid an import cycle
	TsNs       int64
}

// PositionView is the read-only slice of position state a strategy is
// allowed to see. Strategies never touch the position or risk manager
// directly (§5's shared-resource policy) — the execution thread
// projects this view once per tick.
type PositionView struct {
	NetQty        int64
	WACP          float64
	UnrealizedPnL float64
}

// Decision is implemented by anything that turns top-of-book state and a
// position snapshot into zero or more order intents. Decide is called
// once per tick by the strategy thread's runner; it must not block.
type Decision interface {
	Decide(b *book.Book, pos PositionView) []Intent
}

// Runner drives a Decision against a single instrument's book on every
// tick, collecting intents for the caller to push onto the
// order-creation ring. It holds no venue, risk or order state itself —
// those stay on the execution thread.
type Runner struct {
	decision Decision
	b        *book.Book
}

// NewRunner binds a Decision to the book it reads from.
func NewRunner(d Decision, b *book.Book) *Runner {
	return &Runner{decision: d, b: b}
}

// Step evaluates the bound decision against the current book and
// position snapshot, returning any intents produced this tick.
func (r *Runner) Step(pos PositionView) []Intent {
	return r.decision.Decide(r.b, pos)
}
