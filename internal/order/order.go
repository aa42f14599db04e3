// Package order implements the order lifecycle manager (C8): the order
// state machine, its slot allocation table, the audit trail, venue
// scoring/routing, and fill application. Grounded on the source's
// order_lifecycle_manager.hpp.
package order

import (
	"fmt"
	"sync/atomic"

	"hftcore/internal/fixedstr"
	"hftcore/internal/instrument"
	"hftcore/internal/risk"
)

// State is a position in the order state machine described in §4.8.
type State uint8

const (
	StateCreated State = iota
	StateValidated
	StateRouted
	StatePendingNew
	StateAcknowledged
	StatePartiallyFilled
	StatePendingCancel
	StatePendingReplace
	StateSuspended
	StateFilled
	StateCancelled
	StateRejected
	StateExpired
	StateReplaced
	StateError
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateValidated:
		return "Validated"
	case StateRouted:
		return "Routed"
	case StatePendingNew:
		return "PendingNew"
	case StateAcknowledged:
		return "Acknowledged"
	case StatePartiallyFilled:
		return "PartiallyFilled"
	case StatePendingCancel:
		return "PendingCancel"
	case StatePendingReplace:
		return "PendingReplace"
	case StateSuspended:
		return "Suspended"
	case StateFilled:
		return "Filled"
	case StateCancelled:
		return "Cancelled"
	case StateRejected:
		return "Rejected"
	case StateExpired:
		return "Expired"
	case StateReplaced:
		return "Replaced"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is one of the six terminal states an order
// never transitions out of.
func (s State) IsTerminal() bool {
	switch s {
	case StateFilled, StateCancelled, StateRejected, StateExpired, StateReplaced, StateError:
		return true
	default:
		return false
	}
}

// TimeInForce enumerates supported order durations.
type TimeInForce uint8

const (
	TIFDay TimeInForce = iota
	TIFIOC
	TIFGTC
)

// Reject/audit reason catalog, grounded on the literal strings used in the
// source's order-lifecycle tests (§10.4).
const (
	ReasonInvalidQuantity = "invalid quantity"
	ReasonInvalidPrice    = "invalid price"
	ReasonNoCapacity      = "no order slot capacity"
	ReasonEmergencyStop   = "emergency stop"
	ReasonRiskRejectedPfx = "risk rejected"
	ReasonBreakerActive   = "circuit breaker active"
	ReasonCreated         = "order created"
	ReasonRouted          = "order routed"
	ReasonFillApplied     = "fill applied"
	ReasonModified        = "order modified"
)

// Record is the OLM's 128-byte-contract view of an order: everything in
// §3.2's Order record, plus state, time-in-force, and target venue. Field
// order matches the source's OrderRecord, padded out to two cache lines;
// see sizecontract_test.go.
type Record struct {
	OrderID            uint64
	ClientOrderID      uint64
	TimestampCreatedNs int64
	TimestampVenueNs   int64
	LimitPrice         instrument.Price32nd
	YieldLimit         float64
	Quantity           uint64
	FilledQuantity     uint64
	RemainingQuantity  uint64
	VenueOrderID       uint64
	Instrument         instrument.Tenor
	Type               instrument.OrderType
	Side               instrument.Side
	State              State
	TimeInForce        TimeInForce
	TargetVenue        instrument.VenueID
	_                  [42]byte
}

// AuditEntry is one append-only record of a state transition, 64-byte
// contracted like the source's AuditEntry.
type AuditEntry struct {
	EntryID  uint64
	OrderID  uint64
	TsNs     int64
	Price    instrument.Price32nd
	Quantity uint64
	OldState State
	NewState State
	_        [2]byte
	Reason   [16]byte
	_        [4]byte
}

// VenueStats tracks one venue's exponential moving average of fill rate
// and average latency, feeding route scoring (§4.8's "Venue routing").
type VenueStats struct {
	Name          string
	Priority      float64
	Enabled       bool
	fillRateEMA   float64
	avgLatencyEMA float64
	initialized   bool
}

const venueEMAAlpha = 0.1

func (v *VenueStats) observe(filled bool, latencyNs float64) {
	sample := 0.0
	if filled {
		sample = 1.0
	}
	if !v.initialized {
		v.fillRateEMA = sample
		v.avgLatencyEMA = latencyNs
		v.initialized = true
		return
	}
	v.fillRateEMA = venueEMAAlpha*sample + (1-venueEMAAlpha)*v.fillRateEMA
	v.avgLatencyEMA = venueEMAAlpha*latencyNs + (1-venueEMAAlpha)*v.avgLatencyEMA
}

// score computes fill_rate / avg_latency * (1 + priority*0.1) per §4.8.
func (v *VenueStats) score() float64 {
	if v.avgLatencyEMA <= 0 {
		return 0
	}
	return (v.fillRateEMA / v.avgLatencyEMA) * (1 + v.Priority*0.1)
}

// Config holds the OLM's enumerated tunables (§6.5).
type Config struct {
	MaxOrders      int
	AuditTrailSize int
	MaxVenues      int
}

// DefaultConfig returns the defaults named in §6.5.
func DefaultConfig() Config {
	return Config{
		MaxOrders:      65_536,
		AuditTrailSize: 1_048_576,
		MaxVenues:      8,
	}
}

// Execution is the fill-application input to ProcessFill: one venue
// execution report applied against a resident order.
type Execution struct {
	OrderID           uint64
	ExecutedQuantity  uint64
	ExecutionPrice    instrument.Price32nd
	VenueName         string
	ObservedLatencyNs float64
	TsNs              int64
}

// Manager is the order lifecycle manager (C8). It is single-threaded on
// its hot path (§5 Thread B "execution"); the only concurrent primitive is
// the slot "used" flag array, which lets create_order probe lock-free.
type Manager struct {
	cfg Config
	rm  *risk.Manager

	records []Record
	used    []atomic.Bool
	nextID  uint64

	audit      []AuditEntry
	auditNext  int
	auditCount uint64

	venues   map[string]*VenueStats
	venueOrd []string // registration order, for deterministic iteration

	emergencyStop atomic.Bool

	ordersCreated  uint64
	ordersRejected uint64
}

// NewManager constructs an OLM wired to a risk manager for the
// create_order layer-1 gate (§4.8 "Risk integration").
func NewManager(cfg Config, rm *risk.Manager) *Manager {
	return &Manager{
		cfg:     cfg,
		rm:      rm,
		records: make([]Record, cfg.MaxOrders),
		used:    make([]atomic.Bool, cfg.MaxOrders),
		audit:   make([]AuditEntry, cfg.AuditTrailSize),
		venues:  make(map[string]*VenueStats),
	}
}

// RegisterVenue adds a venue the router may score and route to. Venues
// beyond cfg.MaxVenues are silently dropped: TargetVenue's VenueID tag has
// only that many slots.
func (m *Manager) RegisterVenue(name string, priority float64) {
	if _, ok := m.venues[name]; ok {
		return
	}
	if len(m.venueOrd) >= m.cfg.MaxVenues {
		return
	}
	m.venues[name] = &VenueStats{Name: name, Priority: priority, Enabled: true}
	m.venueOrd = append(m.venueOrd, name)
}

// VenueName resolves a VenueID tag (as stored in Record.TargetVenue) back
// to its registered name.
func (m *Manager) VenueName(id instrument.VenueID) (string, bool) {
	idx := int(id)
	if idx < 0 || idx >= len(m.venueOrd) {
		return "", false
	}
	return m.venueOrd[idx], true
}

// instrumentIncrement returns the minimum quantity and increment required
// for the tenor's asset class (§4.8 "Validation rules per instrument").
func instrumentIncrement(inst instrument.Tenor) uint64 {
	switch inst {
	case instrument.Bill3M, instrument.Bill6M:
		return 100_000
	default: // notes and bonds
		return 1_000_000
	}
}

func validQuantity(inst instrument.Tenor, qty uint64) bool {
	inc := instrumentIncrement(inst)
	return qty >= inc && qty%inc == 0
}

// CreateOrder runs the full §4.8 admission pipeline: risk gate, quantity
// validation, slot allocation, and audit entry. It returns 0 on any
// rejection, matching §6.2's contract, and appends an audit entry for
// order id 0 whose reason names the rejection.
func (m *Manager) CreateOrder(inst instrument.Tenor, side instrument.Side, typ instrument.OrderType, price instrument.Price32nd, qty uint64, tif TimeInForce, nowNs int64) uint64 {
	if m.emergencyStop.Load() {
		m.ordersRejected++
		m.appendAudit(0, StateCreated, StateRejected, price, qty, ReasonEmergencyStop, nowNs)
		return 0
	}
	if m.rm != nil && m.rm.AnyBreakerActive() {
		m.ordersRejected++
		m.appendAudit(0, StateCreated, StateRejected, price, qty, ReasonBreakerActive, nowNs)
		return 0
	}

	if qty == 0 || !validQuantity(inst, qty) {
		m.ordersRejected++
		m.appendAudit(0, StateCreated, StateRejected, price, qty, ReasonInvalidQuantity, nowNs)
		return 0
	}
	if typ == instrument.OrderLimit && price.ToDecimal() <= 0 {
		m.ordersRejected++
		m.appendAudit(0, StateCreated, StateRejected, price, qty, ReasonInvalidPrice, nowNs)
		return 0
	}

	if m.rm != nil {
		req := risk.Request{Instrument: inst, Side: side, Quantity: qty, NowNs: nowNs}
		if result := m.rm.CheckLayer1(req); result != risk.Approved {
			m.ordersRejected++
			m.appendAudit(0, StateCreated, StateRejected, price, qty, ReasonRiskRejectedPfx, nowNs)
			return 0
		}
	}

	slot, ok := m.claimSlot()
	if !ok {
		m.ordersRejected++
		m.appendAudit(0, StateCreated, StateRejected, price, qty, ReasonNoCapacity, nowNs)
		return 0
	}

	id := m.nextID
	rec := Record{
		OrderID:            id,
		TimestampCreatedNs: nowNs,
		Instrument:         inst,
		Type:               typ,
		Side:               side,
		State:              StateCreated,
		LimitPrice:         price,
		Quantity:           qty,
		RemainingQuantity:  qty,
		TimeInForce:        tif,
	}
	m.records[slot] = rec
	m.appendAudit(id, StateCreated, StateCreated, price, qty, ReasonCreated, nowNs)
	m.transition(slot, StateValidated, price, qty, "validated", nowNs)
	m.ordersCreated++
	return id
}

// claimSlot atomically probes the used-flag array starting at
// nextID mod MaxOrders, CASing false->true, per §4.8 "Slot allocation".
// After MaxOrders failed probes it reports no capacity.
func (m *Manager) claimSlot() (int, bool) {
	for attempts := 0; attempts < m.cfg.MaxOrders; attempts++ {
		m.nextID++
		slot := int(m.nextID % uint64(m.cfg.MaxOrders))
		if m.used[slot].CompareAndSwap(false, true) {
			return slot, true
		}
	}
	return 0, false
}

func (m *Manager) slotFor(orderID uint64) (int, bool) {
	slot := int(orderID % uint64(m.cfg.MaxOrders))
	if !m.used[slot].Load() || m.records[slot].OrderID != orderID {
		return 0, false
	}
	return slot, true
}

// RouteOrder scores every enabled registered venue as
// fill_rate/avg_latency*(1+priority*0.1), routes to the argmax (ties break
// by registration order), and transitions the order to Routed.
func (m *Manager) RouteOrder(orderID uint64) (venue string, ok bool) {
	slot, found := m.slotFor(orderID)
	if !found {
		return "", false
	}

	var best *VenueStats
	var bestScore float64
	var bestIdx int
	for i, name := range m.venueOrd {
		v := m.venues[name]
		if !v.Enabled {
			continue
		}
		s := v.score()
		if best == nil || s > bestScore {
			best = v
			bestScore = s
			bestIdx = i
		}
	}
	if best == nil {
		return "", false
	}

	m.records[slot].TargetVenue = instrument.VenueID(bestIdx)
	m.transition(slot, StateRouted, m.records[slot].LimitPrice, m.records[slot].Quantity, ReasonRouted, m.records[slot].TimestampCreatedNs)
	return best.Name, true
}

// ProcessFill applies a venue execution report: adds executed quantity,
// recomputes remaining, transitions to Filled (remaining==0) or
// PartiallyFilled, and updates the reporting venue's EMA stats.
func (m *Manager) ProcessFill(ex Execution) bool {
	slot, found := m.slotFor(ex.OrderID)
	if !found {
		return false
	}
	rec := &m.records[slot]
	rec.FilledQuantity += ex.ExecutedQuantity
	if rec.FilledQuantity > rec.Quantity {
		rec.FilledQuantity = rec.Quantity
	}
	rec.RemainingQuantity = rec.Quantity - rec.FilledQuantity

	newState := StatePartiallyFilled
	if rec.RemainingQuantity == 0 {
		newState = StateFilled
	}
	m.transition(slot, newState, ex.ExecutionPrice, ex.ExecutedQuantity, ReasonFillApplied, ex.TsNs)

	if v, ok := m.venues[ex.VenueName]; ok {
		v.observe(true, ex.ObservedLatencyNs)
	}
	return true
}

// ModifyOrder rewrites limit price and quantity, recomputes remaining
// quantity, and transitions to PendingReplace.
func (m *Manager) ModifyOrder(orderID uint64, price instrument.Price32nd, qty uint64, nowNs int64) bool {
	slot, found := m.slotFor(orderID)
	if !found {
		return false
	}
	rec := &m.records[slot]
	if rec.State.IsTerminal() {
		return false
	}
	rec.LimitPrice = price
	rec.Quantity = qty
	if rec.FilledQuantity > qty {
		rec.FilledQuantity = qty
	}
	rec.RemainingQuantity = qty - rec.FilledQuantity
	m.transition(slot, StatePendingReplace, price, qty, ReasonModified, nowNs)
	return true
}

// CancelOrder transitions an order through PendingCancel to Cancelled, if
// it is active.
func (m *Manager) CancelOrder(orderID uint64, nowNs int64) bool {
	slot, found := m.slotFor(orderID)
	if !found {
		return false
	}
	rec := &m.records[slot]
	if rec.State.IsTerminal() {
		return false
	}
	m.transition(slot, StatePendingCancel, rec.LimitPrice, rec.RemainingQuantity, "cancel requested", nowNs)
	m.transition(slot, StateCancelled, rec.LimitPrice, rec.RemainingQuantity, "cancelled", nowNs)
	m.releaseSlot(slot)
	return true
}

// EmergencyHalt sets the global emergency-stop flag and forces every
// non-terminal order to Cancelled. Subsequent CreateOrder calls return 0
// until the flag is cleared.
func (m *Manager) EmergencyHalt(nowNs int64) int {
	m.emergencyStop.Store(true)
	cancelled := 0
	for slot := range m.records {
		if !m.used[slot].Load() {
			continue
		}
		rec := &m.records[slot]
		if rec.State.IsTerminal() {
			continue
		}
		m.transition(slot, StateCancelled, rec.LimitPrice, rec.RemainingQuantity, ReasonEmergencyStop, nowNs)
		m.releaseSlot(slot)
		cancelled++
	}
	return cancelled
}

// ClearEmergencyHalt lifts the emergency-stop flag so CreateOrder accepts
// new submissions again.
func (m *Manager) ClearEmergencyHalt() {
	m.emergencyStop.Store(false)
}

// releaseSlot frees a slot after an order reaches a terminal state,
// matching §3.4's "transition through states until terminal... then their
// slot is released".
func (m *Manager) releaseSlot(slot int) {
	m.used[slot].Store(false)
}

// transition appends an audit entry and updates the record's state.
func (m *Manager) transition(slot int, newState State, price instrument.Price32nd, qty uint64, reason string, nowNs int64) {
	old := m.records[slot].State
	m.records[slot].State = newState
	m.records[slot].TimestampVenueNs = nowNs
	m.appendAudit(m.records[slot].OrderID, old, newState, price, qty, reason, nowNs)
}

// appendAudit writes into the fixed-capacity audit ring, wrapping on
// overflow with no eviction notification (§4.8 "Audit trail").
func (m *Manager) appendAudit(orderID uint64, old, newState State, price instrument.Price32nd, qty uint64, reason string, nowNs int64) {
	entry := AuditEntry{
		EntryID:  m.auditCount,
		OrderID:  orderID,
		TsNs:     nowNs,
		OldState: old,
		NewState: newState,
		Price:    price,
		Quantity: qty,
		Reason:   fixedstr.Bytes16(reason),
	}
	m.audit[m.auditNext] = entry
	m.auditNext = (m.auditNext + 1) % len(m.audit)
	m.auditCount++
}

// Order returns a snapshot of one resident order record.
func (m *Manager) Order(orderID uint64) (Record, bool) {
	slot, found := m.slotFor(orderID)
	if !found {
		return Record{}, false
	}
	return m.records[slot], true
}

// AuditCount returns the total number of audit entries ever appended
// (including those already overwritten by ring wrap).
func (m *Manager) AuditCount() uint64 { return m.auditCount }

// AuditEntries returns up to n of the most recently appended audit
// entries in chronological order.
func (m *Manager) AuditEntries(n int) []AuditEntry {
	ringCap := len(m.audit)
	if n > ringCap {
		n = ringCap
	}
	total := int(m.auditCount)
	if n > total {
		n = total
	}
	out := make([]AuditEntry, n)
	for i := 0; i < n; i++ {
		idx := (m.auditNext - n + i + ringCap) % ringCap
		out[i] = m.audit[idx]
	}
	return out
}

// Stats is the OLM's read-only observability snapshot.
type Stats struct {
	OrdersCreated  uint64
	OrdersRejected uint64
	AuditCount     uint64
}

// Stats returns the OLM's counters.
func (m *Manager) Stats() Stats {
	return Stats{OrdersCreated: m.ordersCreated, OrdersRejected: m.ordersRejected, AuditCount: m.auditCount}
}

// RiskRejectReason formats the catalog string for a named risk rule
// rejection (§10.4's reason catalog).
func RiskRejectReason(rule string) string {
	return fmt.Sprintf("%s: %s", ReasonRiskRejectedPfx, rule)
}
