package api

import "time"

// DashboardEvent is the envelope for every message pushed to a connected
// WebSocket client. The first message on a new connection is always a
// "snapshot" event; after that, the server broadcasts periodic "snapshot"
// events, and "order_created" and "fill" events stream live off the
// execution thread's EventSink. No "breaker" event is published.
type DashboardEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// BreakerEvent is the payload shape for a circuit breaker trip or reset.
// No code path in this module publishes one.
type BreakerEvent struct {
	Class     string  `json:"class"`
	Active    bool    `json:"active"`
	Current   float64 `json:"current"`
	Threshold float64 `json:"threshold"`
}

// newDashboardEvent wraps an EventSink payload for broadcast. kind passes
// through unchanged from engine.EventSink.Publish so the dashboard can
// dispatch on it without knowing the underlying Go type.
func newDashboardEvent(kind string, payload interface{}) DashboardEvent {
	return DashboardEvent{
		Type:      kind,
		Timestamp: time.Now(),
		Data:      payload,
	}
}
