package order

import (
	"testing"

	"hftcore/internal/instrument"
	"hftcore/internal/risk"
)

func newTestManager() *Manager {
	rm := risk.NewManager(risk.DefaultConfig())
	cfg := DefaultConfig()
	cfg.MaxOrders = 16
	cfg.AuditTrailSize = 64
	return NewManager(cfg, rm)
}

func TestCreateOrderRejectsBadIncrement(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	id := m.CreateOrder(instrument.Bill3M, instrument.Bid, instrument.OrderLimit,
		instrument.PriceFromDecimal(99.5), 150_000, TIFDay, 1)
	if id != 0 {
		t.Fatalf("expected rejection for non-increment quantity, got id %d", id)
	}
}

func TestCreateOrderAcceptsValidBill(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	id := m.CreateOrder(instrument.Bill3M, instrument.Bid, instrument.OrderLimit,
		instrument.PriceFromDecimal(99.5), 200_000, TIFDay, 1)
	if id == 0 {
		t.Fatal("expected valid bill order to be accepted")
	}
	rec, ok := m.Order(id)
	if !ok {
		t.Fatal("expected order record to exist")
	}
	if rec.State != StateValidated {
		t.Fatalf("got state %v, want Validated", rec.State)
	}
}

func TestFillApplicationTransitionsToFilled(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	m.RegisterVenue("V1", 0)
	id := m.CreateOrder(instrument.Note10Y, instrument.Bid, instrument.OrderLimit,
		instrument.PriceFromDecimal(99.5), 1_000_000, TIFDay, 1)
	if id == 0 {
		t.Fatal("expected order acceptance")
	}
	m.RouteOrder(id)

	ok := m.ProcessFill(Execution{OrderID: id, ExecutedQuantity: 1_000_000, VenueName: "V1", TsNs: 2})
	if !ok {
		t.Fatal("expected fill to apply")
	}
	rec, _ := m.Order(id)
	if rec.State != StateFilled {
		t.Fatalf("got state %v, want Filled", rec.State)
	}
	if rec.FilledQuantity+rec.RemainingQuantity != rec.Quantity {
		t.Fatalf("filled+remaining=%d, quantity=%d", rec.FilledQuantity+rec.RemainingQuantity, rec.Quantity)
	}
}

func TestPartialFillStaysPartiallyFilled(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	id := m.CreateOrder(instrument.Note10Y, instrument.Bid, instrument.OrderLimit,
		instrument.PriceFromDecimal(99.5), 2_000_000, TIFDay, 1)

	m.ProcessFill(Execution{OrderID: id, ExecutedQuantity: 1_000_000, TsNs: 2})
	rec, _ := m.Order(id)
	if rec.State != StatePartiallyFilled {
		t.Fatalf("got state %v, want PartiallyFilled", rec.State)
	}
	if rec.RemainingQuantity != 1_000_000 {
		t.Fatalf("remaining=%d, want 1_000_000", rec.RemainingQuantity)
	}
}

func TestScenario6EmergencyStopCancelsOpenOrders(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	id1 := m.CreateOrder(instrument.Bill3M, instrument.Bid, instrument.OrderLimit,
		instrument.PriceFromDecimal(99.5), 100_000, TIFDay, 1)
	id2 := m.CreateOrder(instrument.Note2Y, instrument.Ask, instrument.OrderLimit,
		instrument.PriceFromDecimal(100), 1_000_000, TIFDay, 1)
	if id1 == 0 || id2 == 0 {
		t.Fatal("expected both orders to be accepted")
	}

	m.EmergencyHalt(10)

	for _, id := range []uint64{id1, id2} {
		rec, ok := m.Order(id)
		if ok {
			// slot freed on terminal transition; if still resolvable it must be Cancelled
			if rec.State != StateCancelled {
				t.Fatalf("order %d: got state %v, want Cancelled", id, rec.State)
			}
		}
	}

	if got := m.CreateOrder(instrument.Bill3M, instrument.Bid, instrument.OrderLimit,
		instrument.PriceFromDecimal(99.5), 100_000, TIFDay, 11); got != 0 {
		t.Fatal("expected create_order to return 0 after emergency halt")
	}
}

func TestVenueRoutingPicksHighestScore(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	m.RegisterVenue("slow", 0)
	m.RegisterVenue("fast", 0)
	m.venues["slow"].observe(true, 1000)
	m.venues["fast"].observe(true, 10)

	id := m.CreateOrder(instrument.Bill3M, instrument.Bid, instrument.OrderLimit,
		instrument.PriceFromDecimal(99.5), 100_000, TIFDay, 1)
	venue, ok := m.RouteOrder(id)
	if !ok {
		t.Fatal("expected routing to succeed")
	}
	if venue != "fast" {
		t.Fatalf("got venue %q, want fast (lower latency => higher score)", venue)
	}
}

func TestAuditTrailRecordsEveryTransition(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	before := m.AuditCount()
	id := m.CreateOrder(instrument.Bill3M, instrument.Bid, instrument.OrderLimit,
		instrument.PriceFromDecimal(99.5), 100_000, TIFDay, 1)
	if id == 0 {
		t.Fatal("expected order acceptance")
	}
	m.CancelOrder(id, 2)

	after := m.AuditCount()
	if after <= before {
		t.Fatal("expected audit entries appended across create+cancel")
	}
}

func TestModifyOrderRecomputesRemaining(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	id := m.CreateOrder(instrument.Note2Y, instrument.Bid, instrument.OrderLimit,
		instrument.PriceFromDecimal(100), 1_000_000, TIFDay, 1)
	m.ProcessFill(Execution{OrderID: id, ExecutedQuantity: 500_000, TsNs: 2})

	ok := m.ModifyOrder(id, instrument.PriceFromDecimal(101), 2_000_000, 3)
	if !ok {
		t.Fatal("expected modify to succeed")
	}
	rec, _ := m.Order(id)
	if rec.RemainingQuantity != 1_500_000 {
		t.Fatalf("remaining=%d, want 1_500_000", rec.RemainingQuantity)
	}
	if rec.State != StatePendingReplace {
		t.Fatalf("got state %v, want PendingReplace", rec.State)
	}
}
