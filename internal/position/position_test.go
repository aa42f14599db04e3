package position

import (
	"testing"

	"hftcore/internal/fixedstr"
	"hftcore/internal/instrument"
)

func TestOpeningPositionSetsWACP(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.UpdatePosition(instrument.Note10Y, "V1", instrument.Bid, 1_000_000, 99.5, 1, 100)

	pos := m.Position(instrument.Note10Y, "V1")
	if pos.NetQty != 1_000_000 {
		t.Fatalf("net=%d, want 1_000_000", pos.NetQty)
	}
	if pos.WACP != 99.5 {
		t.Fatalf("wacp=%v, want 99.5", pos.WACP)
	}
}

func TestAddingToPositionWeightsWACP(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.UpdatePosition(instrument.Note10Y, "V1", instrument.Bid, 1_000_000, 100.0, 1, 100)
	m.UpdatePosition(instrument.Note10Y, "V1", instrument.Bid, 1_000_000, 102.0, 2, 101)

	pos := m.Position(instrument.Note10Y, "V1")
	if pos.NetQty != 2_000_000 {
		t.Fatalf("net=%d, want 2_000_000", pos.NetQty)
	}
	if pos.WACP != 101.0 {
		t.Fatalf("wacp=%v, want 101.0 (equal-weighted average)", pos.WACP)
	}
}

func TestClosingTradeRealizesPnLAndPreservesWACP(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.UpdatePosition(instrument.Note10Y, "V1", instrument.Bid, 2_000_000, 100.0, 1, 100)
	m.UpdatePosition(instrument.Note10Y, "V1", instrument.Ask, 1_000_000, 102.0, 2, 101)

	pos := m.Position(instrument.Note10Y, "V1")
	if pos.NetQty != 1_000_000 {
		t.Fatalf("net=%d, want 1_000_000", pos.NetQty)
	}
	if pos.RealizedPnL != 2_000_000 { // 1_000_000 * (102-100)
		t.Fatalf("realized=%v, want 2_000_000", pos.RealizedPnL)
	}
	if pos.WACP != 100.0 {
		t.Fatalf("wacp=%v, want preserved at 100.0", pos.WACP)
	}
}

func TestMarkToMarketUpdatesUnrealized(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.UpdatePosition(instrument.Note10Y, "V1", instrument.Bid, 1_000_000, 100.0, 1, 100)
	m.UpdateMarketPrice(instrument.Note10Y, 101.0)

	pos := m.Position(instrument.Note10Y, "V1")
	if pos.UnrealizedPnL != 1_000_000 {
		t.Fatalf("unrealized=%v, want 1_000_000", pos.UnrealizedPnL)
	}
}

func TestReconcileWithinToleranceReportsNoBreak(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.UpdatePosition(instrument.Bill3M, "V1", instrument.Bid, 100_000, 99.9, 1, 100)

	if ok := m.ReconcileVenuePosition(instrument.Bill3M, "V1", 100_000, 200); !ok {
		t.Fatal("expected exact match to report no break")
	}
	if ok := m.ReconcileVenuePosition(instrument.Bill3M, "V1", 100_001, 200); !ok {
		t.Fatal("expected 1-unit variance to be within tolerance")
	}
}

func TestReconcileBeyondToleranceCreatesBreak(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.UpdatePosition(instrument.Bill3M, "V1", instrument.Bid, 100_000, 99.9, 1, 100)

	ok := m.ReconcileVenuePosition(instrument.Bill3M, "V1", 100_010, 200)
	if ok {
		t.Fatal("expected break for large variance")
	}
	if m.OpenBreakCount() != 1 {
		t.Fatalf("open breaks=%d, want 1", m.OpenBreakCount())
	}
	breaks := m.Breaks()
	if len(breaks) != 1 || breaks[0].Variance != 10 {
		t.Fatalf("breaks=%+v, want one break with variance 10", breaks)
	}
}

func TestResolvePositionBreak(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.UpdatePosition(instrument.Bill3M, "V1", instrument.Bid, 100_000, 99.9, 1, 100)
	m.ReconcileVenuePosition(instrument.Bill3M, "V1", 100_010, 200)

	if !m.ResolvePositionBreak(0, "manual adjustment booked", 300) {
		t.Fatal("expected resolve to succeed for break id 0")
	}
	if m.OpenBreakCount() != 0 {
		t.Fatal("expected no open breaks after resolution")
	}
	breaks := m.Breaks()
	// Description is a fixed 16-byte field: the notes keep their first 15 bytes.
	if !breaks[0].Resolved || fixedstr.String16(breaks[0].Description) != "manual adjustme" {
		t.Fatalf("break not resolved correctly: %+v", breaks[0])
	}
}

func TestGenerateSettlementsSkipsFlatPositions(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.UpdatePosition(instrument.Note5Y, "V1", instrument.Bid, 1_000_000, 100.0, 1, 100)
	m.UpdatePosition(instrument.Note5Y, "V2", instrument.Bid, 1_000_000, 100.0, 2, 100)
	m.UpdatePosition(instrument.Note5Y, "V2", instrument.Ask, 1_000_000, 100.0, 3, 101)
	m.UpdateMarketPrice(instrument.Note5Y, 100.5)

	instrs := m.GenerateSettlements(1_000_000_000)
	if len(instrs) != 1 {
		t.Fatalf("got %d settlement instructions, want 1 (flat V2 position excluded)", len(instrs))
	}
	if instrs[0].SettlementDate != instrs[0].TradeDateNs+settlementDeltaNs {
		t.Fatal("settlement date should be trade date + 24h")
	}
	if instrs[0].Value != 1_000_000*100.5 {
		t.Fatalf("value=%v, want %v", instrs[0].Value, 1_000_000*100.5)
	}
}

func TestResetDailyZeroesEverything(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.UpdatePosition(instrument.Bill3M, "V1", instrument.Bid, 100_000, 99.9, 1, 100)
	m.ReconcileVenuePosition(instrument.Bill3M, "V1", 100_010, 200)
	m.ResetDaily()

	pos := m.Position(instrument.Bill3M, "V1")
	if pos.NetQty != 0 || pos.RealizedPnL != 0 {
		t.Fatalf("expected zeroed position after reset, got %+v", pos)
	}
	if m.OpenBreakCount() != 0 {
		t.Fatal("expected break indices cleared after reset")
	}
}
