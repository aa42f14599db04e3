// Package position implements the position reconciliation manager (C9):
// per-(instrument,venue) net position and WACP, realized/unrealized P&L,
// venue-position reconciliation with break detection, settlement
// instruction generation, and the break ledger. Grounded on the source's
// position_reconciliation_manager.hpp.
package position

import (
	"github.com/shopspring/decimal"

	"hftcore/internal/fixedstr"
	"hftcore/internal/instrument"
)

const tenorCount = 6

// BreakType enumerates the kinds of reconciliation break this manager can
// detect. Only PositionMismatch is produced today (§4.9); the type is
// still modelled as an enum so a future break class has somewhere to land.
type BreakType uint8

const (
	BreakPositionMismatch BreakType = iota
)

func (b BreakType) String() string {
	switch b {
	case BreakPositionMismatch:
		return "PositionMismatch"
	default:
		return "Unknown"
	}
}

// SettlementStatus enumerates a settlement instruction's lifecycle.
type SettlementStatus uint8

const (
	SettlementPending SettlementStatus = iota
	SettlementConfirmed
	SettlementFailed
)

// VenuePosition is the 64-byte-contract per-(instrument,venue) position
// record (§3.2), field order matching the source's VenuePosition; see
// sizecontract_test.go. hasWACP from earlier revisions was dropped: it
// was always equal to NetQty != 0, so NetQty carries that information.
type VenuePosition struct {
	Instrument    instrument.Tenor
	Venue         instrument.VenueID
	_             [6]byte
	NetQty        int64
	PendingSettle int64
	WACP          float64
	RealizedPnL   float64
	UnrealizedPnL float64
	LastUpdateNs  int64
	LastTradeNs   int64
}

// SettlementInstruction is the 64-byte-contract settlement record (§3.2).
// SettlementDate is modelled as TradeDate + 24h, per §4.9.
type SettlementInstruction struct {
	SettlementID   uint64
	NetQty         int64
	Price          float64
	Value          float64
	TradeDateNs    int64
	SettlementDate int64
	Instrument     instrument.Tenor
	Venue          instrument.VenueID
	Status         SettlementStatus
	_              [13]byte
}

// PositionBreak is the 128-byte-contract break record (§3.2).
type PositionBreak struct {
	BreakID      uint64
	DetectionNs  int64
	ExpectedQty  int64
	ActualQty    int64
	Variance     int64
	ResolutionNs int64
	Instrument   instrument.Tenor
	Venue        instrument.VenueID
	Type         BreakType
	Resolved     bool
	_            [4]byte
	Description  [16]byte
	_            [56]byte
}

// HistoryEntry is one append-only position-update audit record, 64-byte
// contracted like the source's PositionHistoryEntry.
type HistoryEntry struct {
	EntryID    uint64
	TsNs       int64
	OrderID    uint64
	NetAfter   int64
	Qty        uint64
	Price      float64
	Instrument instrument.Tenor
	Venue      instrument.VenueID
	Side       instrument.Side
	_          [13]byte
}

// Config holds the reconciliation manager's enumerated tunables (§6.5).
type Config struct {
	MaxVenues            int
	MaxSettlementEntries int
	MaxPositionHistory   int
	MaxBreaks            int

	// ReconcileTolerance is the variance, in units, above which a
	// reconciliation mismatch is treated as a break (§4.9: "> 1 unit").
	ReconcileTolerance int64
}

// DefaultConfig returns the defaults named in §6.5.
func DefaultConfig() Config {
	return Config{
		MaxVenues:            8,
		MaxSettlementEntries: 10_000,
		MaxPositionHistory:   100_000,
		MaxBreaks:            1_000,
		ReconcileTolerance:   1,
	}
}

const settlementDeltaNs = 24 * 60 * 60 * 1_000_000_000

// Manager is the position reconciliation manager (C9). It is
// single-threaded (§5 Thread B "execution"); the position table, settlement
// ring, break ring, and history ring are all owned by the execution
// thread.
type Manager struct {
	cfg Config

	// positions[instrument][venue-slot] indexed via venueIndex, a 2-D
	// table per §3.3 ("not a hash map, for constant-time access").
	positions  [tenorCount][]VenuePosition
	venueIndex map[string]instrument.VenueID
	venueNames []string

	marketPrice [tenorCount]float64

	settlements    []SettlementInstruction
	settlementNext int
	settlementN    uint64

	breaks       []PositionBreak
	breaksNext   int
	breaksN      uint64
	breaksFilled int
	breaksOpen   int

	history     []HistoryEntry
	historyNext int
	historyN    uint64
}

// NewManager constructs a reconciliation manager with an empty position
// table; venues are registered lazily on first use via venueSlot.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		cfg:         cfg,
		venueIndex:  make(map[string]instrument.VenueID),
		settlements: make([]SettlementInstruction, cfg.MaxSettlementEntries),
		breaks:      make([]PositionBreak, cfg.MaxBreaks),
		history:     make([]HistoryEntry, cfg.MaxPositionHistory),
	}
	for i := range m.positions {
		m.positions[i] = make([]VenuePosition, 0, cfg.MaxVenues)
	}
	return m
}

// venueSlot returns the VenueID tag for venue, registering it (up to
// MaxVenues) if unseen, and ensures every instrument row has a slot for it.
func (m *Manager) venueSlot(venue string) instrument.VenueID {
	if idx, ok := m.venueIndex[venue]; ok {
		return idx
	}
	idx := instrument.VenueID(len(m.venueNames))
	m.venueIndex[venue] = idx
	m.venueNames = append(m.venueNames, venue)
	for inst := 0; inst < tenorCount; inst++ {
		m.positions[inst] = append(m.positions[inst], VenuePosition{
			Instrument: instrument.Tenor(inst),
			Venue:      idx,
		})
	}
	return idx
}

// VenueName resolves a VenueID tag (as stored in VenuePosition.Venue) back
// to its registered name.
func (m *Manager) VenueName(id instrument.VenueID) (string, bool) {
	idx := int(id)
	if idx < 0 || idx >= len(m.venueNames) {
		return "", false
	}
	return m.venueNames[idx], true
}

func (m *Manager) cell(inst instrument.Tenor, venue string) *VenuePosition {
	idx := m.venueSlot(venue)
	return &m.positions[inst][idx]
}

// UpdatePosition folds one fill into the (instrument,venue) position per
// §4.9's seven-step algorithm: signed delta, WACP update, realized P&L on
// closing trades, timestamps, unrealized P&L recompute, and history
// append.
func (m *Manager) UpdatePosition(inst instrument.Tenor, venue string, side instrument.Side, qty uint64, price float64, orderID uint64, nowNs int64) {
	venueID := m.venueSlot(venue)
	pos := &m.positions[inst][venueID]

	delta := int64(qty)
	if side == instrument.Ask {
		delta = -delta
	}
	oldNet := pos.NetQty
	pos.NetQty = oldNet + delta

	sameDirection := oldNet == 0 || sameSign(oldNet, delta)
	if sameDirection {
		m.updateWACP(pos, oldNet, delta, price)
	} else {
		m.applyClosingPnL(pos, oldNet, delta, price)
	}

	pos.LastUpdateNs = nowNs
	pos.LastTradeNs = nowNs
	m.recomputeUnrealized(pos, inst)

	m.appendHistory(HistoryEntry{
		TsNs: nowNs, Instrument: inst, Venue: venueID, Side: side,
		Qty: qty, Price: price, OrderID: orderID, NetAfter: pos.NetQty,
	})
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// updateWACP folds delta into the weighted-average cost price when the
// trade opens or extends an existing position in the same direction.
func (m *Manager) updateWACP(pos *VenuePosition, oldNet, delta int64, price float64) {
	oldAbs := absI64(oldNet)
	deltaAbs := absI64(delta)
	if oldAbs == 0 {
		pos.WACP = price
		return
	}
	totalAbs := oldAbs + deltaAbs
	pos.WACP = (pos.WACP*float64(oldAbs) + price*float64(deltaAbs)) / float64(totalAbs)
}

// applyClosingPnL handles a trade opposite in sign to the existing
// position: it realizes P&L on the closed portion and, if the trade
// reverses through flat, opens a fresh WACP for the residual.
func (m *Manager) applyClosingPnL(pos *VenuePosition, oldNet, delta int64, price float64) {
	oldAbs := absI64(oldNet)
	deltaAbs := absI64(delta)
	closedQty := deltaAbs
	if closedQty > oldAbs {
		closedQty = oldAbs
	}

	if oldNet > 0 {
		pos.RealizedPnL += float64(closedQty) * (price - pos.WACP)
	} else {
		pos.RealizedPnL += float64(closedQty) * (pos.WACP - price)
	}

	if deltaAbs > oldAbs {
		// Reversed through flat: residual opens a fresh position at the
		// trade price.
		pos.WACP = price
	}
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// UpdateMarketPrice writes the instrument's current mark and recomputes
// unrealized P&L for every venue carrying a position in it.
func (m *Manager) UpdateMarketPrice(inst instrument.Tenor, price float64) {
	m.marketPrice[inst] = price
	for i := range m.positions[inst] {
		m.recomputeUnrealized(&m.positions[inst][i], inst)
	}
}

func (m *Manager) recomputeUnrealized(pos *VenuePosition, inst instrument.Tenor) {
	if pos.NetQty == 0 {
		pos.UnrealizedPnL = 0
		return
	}
	mark := m.marketPrice[inst]
	pos.UnrealizedPnL = float64(pos.NetQty) * (mark - pos.WACP)
}

// Position returns a snapshot of one (instrument,venue) position.
func (m *Manager) Position(inst instrument.Tenor, venue string) VenuePosition {
	return *m.cell(inst, venue)
}

// ReconcileVenuePosition compares the internal net position against a
// venue-reported quantity. A variance beyond ReconcileTolerance creates a
// PositionMismatch break and returns false; otherwise it returns true.
func (m *Manager) ReconcileVenuePosition(inst instrument.Tenor, venue string, reportedQty int64, nowNs int64) bool {
	pos := m.cell(inst, venue)
	variance := reportedQty - pos.NetQty
	if absI64(variance) <= m.cfg.ReconcileTolerance {
		return true
	}

	m.appendBreak(PositionBreak{
		DetectionNs: nowNs,
		Instrument:  inst,
		Venue:       pos.Venue,
		Type:        BreakPositionMismatch,
		ExpectedQty: pos.NetQty,
		ActualQty:   reportedQty,
		Variance:    variance,
	})
	return false
}

func (m *Manager) appendBreak(b PositionBreak) {
	b.BreakID = m.breaksN
	m.breaks[m.breaksNext] = b
	m.breaksNext = (m.breaksNext + 1) % len(m.breaks)
	m.breaksN++
	if m.breaksFilled < len(m.breaks) {
		m.breaksFilled++
	}
	m.breaksOpen++
}

// ResolvePositionBreak locates a break by id among still-resident entries,
// marks it resolved, stamps the resolution time, and overwrites its
// description with the resolution notes (truncated to the 15 bytes the
// 16-byte field holds before its trailing NUL).
func (m *Manager) ResolvePositionBreak(breakID uint64, notes string, nowNs int64) bool {
	for i := 0; i < m.breaksFilled; i++ {
		b := &m.breaks[i]
		if b.BreakID != breakID || b.Resolved {
			continue
		}
		b.Resolved = true
		b.ResolutionNs = nowNs
		b.Description = fixedstr.Bytes16(notes)
		m.breaksOpen--
		return true
	}
	return false
}

// Breaks returns a snapshot of every break entry still resident in the
// ring (resolved or not).
func (m *Manager) Breaks() []PositionBreak {
	out := make([]PositionBreak, m.breaksFilled)
	copy(out, m.breaks[:m.breaksFilled])
	return out
}

// OpenBreakCount returns the number of unresolved breaks currently
// resident.
func (m *Manager) OpenBreakCount() int { return m.breaksOpen }

// GenerateSettlements scans every non-zero position and emits one Pending
// SettlementInstruction per (instrument,venue), settlement date = trade
// date + 24h (§4.9).
func (m *Manager) GenerateSettlements(tradeDateNs int64) []SettlementInstruction {
	var out []SettlementInstruction
	for inst := 0; inst < tenorCount; inst++ {
		for i := range m.positions[inst] {
			pos := &m.positions[inst][i]
			if pos.NetQty == 0 {
				continue
			}
			price := m.marketPrice[inst]
			instr := SettlementInstruction{
				SettlementID:   m.settlementN,
				Instrument:     instrument.Tenor(inst),
				Venue:          pos.Venue,
				Status:         SettlementPending,
				NetQty:         pos.NetQty,
				Price:          price,
				Value:          settlementValue(pos.NetQty, price),
				TradeDateNs:    tradeDateNs,
				SettlementDate: tradeDateNs + settlementDeltaNs,
			}
			m.settlements[m.settlementNext] = instr
			m.settlementNext = (m.settlementNext + 1) % len(m.settlements)
			m.settlementN++
			out = append(out, instr)
		}
	}
	return out
}

// settlementValue computes qty*price with decimal.Decimal rather than
// plain float64, so large notional settlement amounts don't accumulate
// binary floating-point error before being handed to downstream ledgers.
func settlementValue(qty int64, price float64) float64 {
	v := decimal.NewFromInt(qty).Mul(decimal.NewFromFloat(price))
	f, _ := v.Round(4).Float64()
	return f
}

func (m *Manager) appendHistory(e HistoryEntry) {
	e.EntryID = m.historyN
	m.history[m.historyNext] = e
	m.historyNext = (m.historyNext + 1) % len(m.history)
	m.historyN++
}

// HistoryCount returns the total number of position updates ever applied.
func (m *Manager) HistoryCount() uint64 { return m.historyN }

// ResetDaily zeros all positions, P&L fields, and settlement/break
// indices, per §4.9 "Daily reset".
func (m *Manager) ResetDaily() {
	for inst := range m.positions {
		for i := range m.positions[inst] {
			venue := m.positions[inst][i].Venue
			m.positions[inst][i] = VenuePosition{Instrument: instrument.Tenor(inst), Venue: venue}
		}
	}
	m.settlementNext = 0
	m.settlementN = 0
	m.breaksNext = 0
	m.breaksN = 0
	m.breaksFilled = 0
	m.breaksOpen = 0
}
