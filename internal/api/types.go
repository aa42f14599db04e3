package api

import (
	"time"

	"hftcore/internal/fixedstr"
	"hftcore/internal/order"
	"hftcore/internal/risk"
)

// Snapshot is the complete read-only state a supervisor polls over
// /api/snapshot or receives as the first WebSocket message (§6.6).
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	FramesProcessed uint64 `json:"frames_processed"`
	FillsApplied    uint64 `json:"fills_applied"`

	FeedInvalidMessages   uint64  `json:"feed_invalid_messages"`
	FeedDuplicateMessages uint64  `json:"feed_duplicate_messages"`
	FeedSequenceGaps      uint64  `json:"feed_sequence_gaps"`
	FeedAvgParseLatencyNs float64 `json:"feed_avg_parse_latency_ns"`

	OrdersCreated  uint64 `json:"orders_created"`
	OrdersRejected uint64 `json:"orders_rejected"`
	AuditCount     uint64 `json:"audit_count"`

	EmergencyStop bool            `json:"emergency_stop"`
	Breakers      []BreakerStatus `json:"breakers"`
	NetPosition   [6]int64        `json:"net_position"`
	TotalPosition int64           `json:"total_position"`
	DailyPnL      float64         `json:"daily_realized_pnl"`
	OpenBreaks    int             `json:"open_position_breaks"`
}

// BreakerStatus is one circuit breaker's current state, per §4.7.
type BreakerStatus struct {
	Class        string  `json:"class"`
	Active       bool    `json:"active"`
	Current      float64 `json:"current"`
	Threshold    float64 `json:"threshold"`
	TriggerCount uint64  `json:"trigger_count"`
}

// AuditEntryView is the JSON-friendly projection of order.AuditEntry used
// by the bulk export endpoint.
type AuditEntryView struct {
	EntryID  uint64 `json:"entry_id"`
	OrderID  uint64 `json:"order_id"`
	TsNs     int64  `json:"ts_ns"`
	OldState string `json:"old_state"`
	NewState string `json:"new_state"`
	Quantity uint64 `json:"quantity"`
	Reason   string `json:"reason"`
}

func newAuditEntryView(e order.AuditEntry) AuditEntryView {
	return AuditEntryView{
		EntryID:  e.EntryID,
		OrderID:  e.OrderID,
		TsNs:     e.TsNs,
		OldState: e.OldState.String(),
		NewState: e.NewState.String(),
		Quantity: e.Quantity,
		Reason:   fixedstr.String16(e.Reason),
	}
}

func newBreakerStatus(class risk.BreakerClass, b risk.Breaker) BreakerStatus {
	return BreakerStatus{
		Class:        class.String(),
		Active:       b.Active,
		Current:      b.Current,
		Threshold:    b.Threshold,
		TriggerCount: b.TriggerCount,
	}
}
