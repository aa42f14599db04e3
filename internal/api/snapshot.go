package api

import (
	"time"

	"hftcore/internal/engine"
	"hftcore/internal/instrument"
	"hftcore/internal/order"
	"hftcore/internal/position"
	"hftcore/internal/risk"
)

// Provider is the read-only surface the API server polls. engine.Engine
// satisfies this directly; tests can substitute a fake.
type Provider interface {
	Stats() engine.Stats
	RiskManager() *risk.Manager
	OrderManager() *order.Manager
	PositionManager() *position.Manager
}

// BuildSnapshot aggregates every component's counters into one Snapshot,
// the payload served by /api/snapshot and the first WebSocket message.
func BuildSnapshot(p Provider) Snapshot {
	stats := p.Stats()
	riskMgr := p.RiskManager()
	posMgr := p.PositionManager()

	breakers := riskMgr.Breakers()
	views := make([]BreakerStatus, 0, len(breakers))
	for i, b := range breakers {
		views = append(views, newBreakerStatus(risk.BreakerClass(i), b))
	}

	var netPos [6]int64
	var total int64
	for t := instrument.Bill3M; t <= instrument.Bond30Y; t++ {
		np := riskMgr.NetPosition(t)
		netPos[t] = np
		total += np
	}

	return Snapshot{
		Timestamp:             time.Now(),
		FramesProcessed:       stats.FramesProcessed,
		FillsApplied:          stats.FillsApplied,
		FeedInvalidMessages:   stats.Feed.InvalidMessages,
		FeedDuplicateMessages: stats.Feed.DuplicateMessages,
		FeedSequenceGaps:      stats.Feed.SequenceGaps,
		FeedAvgParseLatencyNs: stats.Feed.AvgParseLatencyNs,
		OrdersCreated:         stats.Order.OrdersCreated,
		OrdersRejected:        stats.Order.OrdersRejected,
		AuditCount:            stats.Order.AuditCount,
		EmergencyStop:         riskMgr.IsEmergencyStopped(),
		Breakers:              views,
		NetPosition:           netPos,
		TotalPosition:         total,
		DailyPnL:              riskMgr.DailyRealizedPnL(),
		OpenBreaks:            posMgr.OpenBreakCount(),
	}
}
