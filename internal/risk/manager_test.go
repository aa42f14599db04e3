package risk

import (
	"testing"

	"hftcore/internal/instrument"
)

func TestLayer1AcceptsExactlyAtLimitRejectsOneOver(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Layer1.MaxPositionPerInstrument = 100_000_000
	m := NewManager(cfg)
	m.UpdateLayer1State(instrument.Note10Y, 95_000_000, 0)

	atLimit := Request{Instrument: instrument.Note10Y, Side: instrument.Bid, Quantity: 5_000_000, NowNs: 1}
	if got := m.CheckLayer1(atLimit); got != Approved {
		t.Fatalf("request landing exactly at limit: got %v, want Approved", got)
	}
	m.UpdateLayer1State(instrument.Note10Y, 5_000_000, 0)

	oneOver := Request{Instrument: instrument.Note10Y, Side: instrument.Bid, Quantity: 1, NowNs: 2}
	if got := m.CheckLayer1(oneOver); got != TradeRejected {
		t.Fatalf("request landing one over limit: got %v, want TradeRejected", got)
	}
}

func TestScenario5RiskHardLimit(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Layer1.MaxPositionPerInstrument = 100_000_000
	m := NewManager(cfg)
	m.UpdateLayer1State(instrument.Note10Y, 95_000_000, 0)

	req := Request{Instrument: instrument.Note10Y, Side: instrument.Bid, Quantity: 10_000_000, NowNs: 1}
	if got := m.CheckLayer1(req); got != TradeRejected {
		t.Fatalf("got %v, want TradeRejected", got)
	}
}

func TestEmergencyHaltOverridesAllSubsequentChecks(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.ActivateEmergencyStop()

	for i := 0; i < 3; i++ {
		req := Request{Instrument: instrument.Bill3M, Side: instrument.Bid, Quantity: 1, NowNs: int64(i)}
		if got := m.CheckLayer1(req); got != EmergencyHalt {
			t.Fatalf("iteration %d: got %v, want EmergencyHalt", i, got)
		}
	}
}

func TestDailyLossBreachTripsEmergencyHalt(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Layer1.MaxDailyLoss = 1000
	m := NewManager(cfg)
	m.UpdateLayer1State(instrument.Bill3M, 0, -1500)

	req := Request{Instrument: instrument.Bill3M, Side: instrument.Bid, Quantity: 1, NowNs: 1}
	if got := m.CheckLayer1(req); got != EmergencyHalt {
		t.Fatalf("got %v, want EmergencyHalt", got)
	}
	if !m.IsEmergencyStopped() {
		t.Fatal("emergency flag should be set after a P&L breaker trip")
	}
}

func TestOrderRateBreachRejects(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Layer1.MaxOrdersPerSecond = 2
	m := NewManager(cfg)

	var last Result
	for i := 0; i < 3; i++ {
		last = m.CheckLayer1(Request{Instrument: instrument.Bill3M, Side: instrument.Bid, Quantity: 1, NowNs: 1})
	}
	if last != TradeRejected {
		t.Fatalf("3rd order in the same second: got %v, want TradeRejected", last)
	}
}

func TestLayer2MostRestrictiveWins(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	m := NewManager(cfg)
	m.UpdateLayer2State(0, 0, 0, 0, cfg.Layer2.EnhancedStressLossLimit+1)

	got := m.CheckLayer2(Request{NowNs: 1})
	if got != EmergencyHalt {
		t.Fatalf("got %v, want EmergencyHalt", got)
	}
	if !m.IsEmergencyStopped() {
		t.Fatal("stress-loss breach should activate emergency stop")
	}
}

func TestComprehensiveCheckSkipsLayer2WhenNotEnhanced(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	m := NewManager(cfg)
	m.UpdateLayer2State(0, 0, 0, 0, cfg.Layer2.EnhancedStressLossLimit+1)

	req := Request{Instrument: instrument.Bill3M, Side: instrument.Bid, Quantity: 1, NowNs: 1, UseEnhanced: false}
	if got := m.ComprehensiveCheck(req); got != Approved {
		t.Fatalf("got %v, want Approved (layer 2 not opted in)", got)
	}
}

func TestBreakerResetClearsActiveFlag(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.tripBreaker(BreakerPositionLimit, 1, 1, TradeRejected)
	if !m.AnyBreakerActive() {
		t.Fatal("expected breaker active after trip")
	}
	m.ResetBreaker(BreakerPositionLimit, 2)
	if m.AnyBreakerActive() {
		t.Fatal("expected no breaker active after reset")
	}
}

func TestVolatilityBreachTripsBreaker(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Layer1.MaxPriceVolatility = 0.0001
	m := NewManager(cfg)

	prices := []float64{100, 110, 95, 120, 80}
	for i, p := range prices {
		m.UpdateMarketPrice(instrument.Note2Y, p, int64(i))
	}
	if !m.breakers[BreakerVolatility].Active {
		t.Fatal("expected volatility breaker tripped by wide swings")
	}
}

func TestResetDailyZeroesPositionAndPnL(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig())
	m.UpdateLayer1State(instrument.Bill6M, 500, 1234.5)
	m.ResetDaily()

	if m.NetPosition(instrument.Bill6M) != 0 {
		t.Fatal("expected position zeroed")
	}
	if m.DailyRealizedPnL() != 0 {
		t.Fatal("expected P&L zeroed")
	}
}
