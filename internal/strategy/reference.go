package strategy

import (
	"hftcore/internal/book"
	"hftcore/internal/instrument"
)

// NoOp never quotes. It is useful as a Runner default when no strategy
// is configured, and in tests that only exercise the execution thread.
type NoOp struct{}

func (NoOp) Decide(*book.Book, PositionView) []Intent { return nil }

// SymmetricQuoter is a minimal reference Decision: it posts a fixed-size
// bid and ask straddling the book's mid price at a constant half-spread.
// Size is always Quantity; once the net position reaches +MaxAbsQty the bid
// is omitted, and once it reaches -MaxAbsQty the ask is omitted. It stands in for the teacher's Avellaneda-Stoikov maker —
// the spread/inventory heuristics themselves are out of scope here.
type SymmetricQuoter struct {
	Instrument instrument.Tenor
	HalfSpread float64 // price units either side of mid
	Quantity   uint64
	MaxAbsQty  int64
	tsNs       int64
}

func (q *SymmetricQuoter) Decide(b *book.Book, pos PositionView) []Intent {
	mid, ok := b.MidPrice()
	if !ok {
		return nil
	}
	q.tsNs++

	var intents []Intent
	if pos.NetQty < q.MaxAbsQty {
		intents = append(intents, Intent{
			Instrument: q.Instrument,
			Side:       instrument.Bid,
			Type:       instrument.OrderLimit,
			Price:      instrument.PriceFromDecimal(mid - q.HalfSpread),
			Quantity:   q.Quantity,
			TsNs:       q.tsNs,
		})
	}
	if pos.NetQty > -q.MaxAbsQty {
		intents = append(intents, Intent{
			Instrument: q.Instrument,
			Side:       instrument.Ask,
			Type:       instrument.OrderLimit,
			Price:      instrument.PriceFromDecimal(mid + q.HalfSpread),
			Quantity:   q.Quantity,
			TsNs:       q.tsNs,
		})
	}
	return intents
}
