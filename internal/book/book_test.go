package book

import (
	"testing"

	"hftcore/internal/feed"
	"hftcore/internal/instrument"
)

func TestMidPriceUnknownUntilFirstTick(t *testing.T) {
	t.Parallel()
	b := New(instrument.Note2Y)
	if _, ok := b.MidPrice(); ok {
		t.Fatal("expected no mid price before first tick")
	}
}

func TestApplyTickUpdatesTopOfBook(t *testing.T) {
	t.Parallel()
	b := New(instrument.Note2Y)
	b.ApplyTick(feed.Tick{
		Instrument:  instrument.Note2Y,
		TimestampNs: 100,
		BidPrice:    instrument.PriceFromDecimal(99.5),
		AskPrice:    instrument.PriceFromDecimal(99.515625),
		BidSize:     10,
		AskSize:     12,
	})

	mid, ok := b.MidPrice()
	if !ok {
		t.Fatal("expected mid price after tick")
	}
	want := (99.5 + 99.515625) / 2
	if mid != want {
		t.Fatalf("mid=%v, want %v", mid, want)
	}

	bidSize, askSize, ok := b.BestSizes()
	if !ok || bidSize != 10 || askSize != 12 {
		t.Fatalf("sizes=(%d,%d) ok=%v, want (10,12) true", bidSize, askSize, ok)
	}
}

func TestApplyTickIgnoresOtherInstruments(t *testing.T) {
	t.Parallel()
	b := New(instrument.Note2Y)
	b.ApplyTick(feed.Tick{Instrument: instrument.Bill3M, TimestampNs: 1,
		BidPrice: instrument.PriceFromDecimal(99), AskPrice: instrument.PriceFromDecimal(99.1),
		BidSize: 1, AskSize: 1})

	if _, ok := b.MidPrice(); ok {
		t.Fatal("expected tick for a different instrument to be ignored")
	}
}

func TestIsStale(t *testing.T) {
	t.Parallel()
	b := New(instrument.Note2Y)
	if !b.IsStale(1000, 500) {
		t.Fatal("expected stale before any tick")
	}
	b.ApplyTick(feed.Tick{Instrument: instrument.Note2Y, TimestampNs: 1000,
		BidPrice: instrument.PriceFromDecimal(99), AskPrice: instrument.PriceFromDecimal(99.1),
		BidSize: 1, AskSize: 1})

	if b.IsStale(1400, 500) {
		t.Fatal("expected fresh within maxAge")
	}
	if !b.IsStale(2000, 500) {
		t.Fatal("expected stale beyond maxAge")
	}
}
