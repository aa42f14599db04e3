// Package book maintains a single-threaded top-of-book mirror per
// instrument, fed by ticks popped off the feed handler's tick ring. It is
// the boundary §10.1 calls out between the core and the external strategy
// collaborator: a strategy reads MidPrice/BestBidAsk to decide whether to
// quote, and the risk controller's volatility model (§4.7) consumes the
// same mid-price stream via UpdateMarketPrice.
//
// Grounded on the teacher's market/book.go shape (REST snapshot + WS
// incremental update mirror), with the mutex dropped: per §5, a Book has
// exactly one owning thread and is never shared across goroutines.
package book

import (
	"hftcore/internal/feed"
	"hftcore/internal/instrument"
)

// Book is one instrument's top-of-book mirror.
type Book struct {
	inst        instrument.Tenor
	lastTick    feed.Tick
	haveTick    bool
	lastUpdated int64 // ns, from the tick's own timestamp
}

// New constructs an empty book for one instrument.
func New(inst instrument.Tenor) *Book {
	return &Book{inst: inst}
}

// Instrument returns the tenor this book mirrors.
func (b *Book) Instrument() instrument.Tenor { return b.inst }

// ApplyTick replaces the book's top-of-book state with a freshly parsed
// tick. Ticks for other instruments are ignored defensively; callers are
// expected to route by instrument before calling ApplyTick.
func (b *Book) ApplyTick(t feed.Tick) {
	if t.Instrument != b.inst {
		return
	}
	b.lastTick = t
	b.haveTick = true
	b.lastUpdated = t.TimestampNs
}

// MidPrice returns (bestBid+bestAsk)/2, the strategy boundary's reference
// price. ok is false until at least one valid tick has arrived.
func (b *Book) MidPrice() (float64, bool) {
	if !b.haveTick {
		return 0, false
	}
	return (b.lastTick.BidPrice.ToDecimal() + b.lastTick.AskPrice.ToDecimal()) / 2, true
}

// BestBidAsk returns the last-seen top-of-book bid/ask prices.
func (b *Book) BestBidAsk() (bid, ask instrument.Price32nd, ok bool) {
	if !b.haveTick {
		return instrument.Price32nd{}, instrument.Price32nd{}, false
	}
	return b.lastTick.BidPrice, b.lastTick.AskPrice, true
}

// BestSizes returns the last-seen top-of-book bid/ask sizes.
func (b *Book) BestSizes() (bidSize, askSize uint64, ok bool) {
	if !b.haveTick {
		return 0, 0, false
	}
	return b.lastTick.BidSize, b.lastTick.AskSize, true
}

// LastUpdatedNs returns the timestamp (in the tick's own clock) of the
// last applied tick.
func (b *Book) LastUpdatedNs() int64 { return b.lastUpdated }

// IsStale reports whether nowNs is more than maxAgeNs past the last
// applied tick, or no tick has arrived yet.
func (b *Book) IsStale(nowNs, maxAgeNs int64) bool {
	if !b.haveTick {
		return true
	}
	return nowNs-b.lastUpdated > maxAgeNs
}
