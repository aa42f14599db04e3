package api

import (
	"testing"

	"hftcore/internal/engine"
	"hftcore/internal/order"
	"hftcore/internal/position"
	"hftcore/internal/risk"
)

type fakeProvider struct {
	stats    engine.Stats
	riskMgr  *risk.Manager
	orderMgr *order.Manager
	posMgr   *position.Manager
}

func (f fakeProvider) Stats() engine.Stats                { return f.stats }
func (f fakeProvider) RiskManager() *risk.Manager         { return f.riskMgr }
func (f fakeProvider) OrderManager() *order.Manager       { return f.orderMgr }
func (f fakeProvider) PositionManager() *position.Manager { return f.posMgr }

func newFakeProvider(t *testing.T) fakeProvider {
	t.Helper()
	riskMgr := risk.NewManager(risk.DefaultConfig())
	return fakeProvider{
		stats:    engine.Stats{FramesProcessed: 10, FillsApplied: 2},
		riskMgr:  riskMgr,
		orderMgr: order.NewManager(order.DefaultConfig(), riskMgr),
		posMgr:   position.NewManager(position.DefaultConfig()),
	}
}

func TestBuildSnapshotReflectsProviderState(t *testing.T) {
	t.Parallel()
	p := newFakeProvider(t)

	snap := BuildSnapshot(p)

	if snap.FramesProcessed != 10 || snap.FillsApplied != 2 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if len(snap.Breakers) == 0 {
		t.Fatal("expected breaker statuses to be populated")
	}
	if snap.EmergencyStop {
		t.Fatal("fresh risk manager should not be emergency-stopped")
	}
}
