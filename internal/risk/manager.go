// Package risk implements the two-layer real-time risk control (C7): a
// fast hard-limit gate (layer 1), opt-in enhanced checks (layer 2), a
// circuit-breaker bank, and the global emergency-stop flag. Grounded on
// the source's risk_control_system.hpp.
//
// Layer 1 is budgeted at <=50ns and layer 2 at <=400ns per the source;
// this implementation keeps both allocation-free and lock-free (plain
// atomics) on the hot path to stay in that neighborhood, but does not
// itself measure or enforce wall-clock budgets — that is a benchmarking
// concern, out of scope per §1.
package risk

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"hftcore/internal/instrument"
)

// Result is the outcome of a risk check, ordered from least to most
// restrictive so ComprehensiveCheck can take a max.
type Result uint8

const (
	Approved Result = iota
	Warning
	PositionReduce
	TradeRejected
	EmergencyHalt
)

func (r Result) String() string {
	switch r {
	case Approved:
		return "Approved"
	case Warning:
		return "WarningIssued"
	case PositionReduce:
		return "PositionReduce"
	case TradeRejected:
		return "TradeRejected"
	case EmergencyHalt:
		return "EmergencyHalt"
	default:
		return "Unknown"
	}
}

// BreakerClass names one of the eight circuit-breaker rule classes.
type BreakerClass uint8

const (
	BreakerPositionLimit BreakerClass = iota
	BreakerPnlLoss
	BreakerOrderRate
	BreakerVolatility
	BreakerConcentration
	BreakerDrawdown
	BreakerVar
	BreakerLeverage
	breakerClassCount
)

func (b BreakerClass) String() string {
	switch b {
	case BreakerPositionLimit:
		return "PositionLimit"
	case BreakerPnlLoss:
		return "PnlLoss"
	case BreakerOrderRate:
		return "OrderRate"
	case BreakerVolatility:
		return "Volatility"
	case BreakerConcentration:
		return "Concentration"
	case BreakerDrawdown:
		return "Drawdown"
	case BreakerVar:
		return "Var"
	case BreakerLeverage:
		return "Leverage"
	default:
		return "Unknown"
	}
}

// Breaker tracks one circuit breaker's current value, threshold, and
// trigger history.
type Breaker struct {
	Class        BreakerClass
	Current      float64
	Threshold    float64
	Active       bool
	Severity     Result
	TriggeredAt  int64
	TriggerCount uint64
	ResetAt      int64
}

// trip latches the breaker active and records the trigger, unless it is
// already active (trigger count only increments on a fresh trip).
func (b *Breaker) trip(current float64, nowNs int64) {
	if !b.Active {
		b.TriggeredAt = nowNs
		b.TriggerCount++
	}
	b.Active = true
	b.Current = current
}

func (b *Breaker) reset(nowNs int64) {
	b.Active = false
	b.ResetAt = nowNs
}

// Layer1Config holds the hard-limit thresholds (§6.5).
type Layer1Config struct {
	MaxPositionPerInstrument uint64
	MaxTotalPosition         uint64
	MaxDailyLoss             float64
	MaxOrdersPerSecond       uint64
	MaxMessagesPerSecond     uint64
	MaxOrderSize             uint64
	MaxPriceVolatility       float64
}

// DefaultLayer1Config returns the defaults named in §6.5.
func DefaultLayer1Config() Layer1Config {
	return Layer1Config{
		MaxPositionPerInstrument: 100_000_000,
		MaxTotalPosition:         500_000_000,
		MaxDailyLoss:             1_000_000,
		MaxOrdersPerSecond:       1000,
		MaxMessagesPerSecond:     10_000,
		MaxOrderSize:             50_000_000,
		MaxPriceVolatility:       0.02,
	}
}

// Layer2Config holds the enhanced-check thresholds (§6.5).
type Layer2Config struct {
	EnhancedDV01Limit          float64
	EnhancedConcentrationLimit float64
	EnhancedCorrelationLimit   float64
	EnhancedVarLimit           float64
	EnhancedStressLossLimit    float64
}

// DefaultLayer2Config returns the defaults named in §6.5.
func DefaultLayer2Config() Layer2Config {
	return Layer2Config{
		EnhancedDV01Limit:          50_000,
		EnhancedConcentrationLimit: 0.6,
		EnhancedCorrelationLimit:   0.8,
		EnhancedVarLimit:           2_000_000,
		EnhancedStressLossLimit:    5_000_000,
	}
}

// Config bundles both layers' tunables.
type Config struct {
	Layer1 Layer1Config
	Layer2 Layer2Config
}

// DefaultConfig returns both layers' defaults.
func DefaultConfig() Config {
	return Config{Layer1: DefaultLayer1Config(), Layer2: DefaultLayer2Config()}
}

const tenorCount = 6
const rateSlotCount = 60
const volatilityWindow = 1000

// Request is the input to a risk check: a proposed trade against one
// instrument.
type Request struct {
	Instrument  instrument.Tenor
	Side        instrument.Side
	Quantity    uint64
	NowNs       int64
	UseEnhanced bool
}

// volatilityBuffer is a fixed-capacity circular buffer of the last 1000
// mid prices for one instrument, used to compute one-step-return stddev.
type volatilityBuffer struct {
	prices [volatilityWindow]float64
	next   int
	filled int
}

func (v *volatilityBuffer) push(mid float64) {
	v.prices[v.next] = mid
	v.next = (v.next + 1) % volatilityWindow
	if v.filled < volatilityWindow {
		v.filled++
	}
}

// stddev computes the sample standard deviation of one-step returns
// across the filled window.
func (v *volatilityBuffer) stddev() float64 {
	if v.filled < 2 {
		return 0
	}
	// Reconstruct chronological order starting at the oldest filled slot.
	start := 0
	if v.filled == volatilityWindow {
		start = v.next
	}
	returns := make([]float64, 0, v.filled-1)
	prev := v.prices[start]
	for i := 1; i < v.filled; i++ {
		idx := (start + i) % volatilityWindow
		cur := v.prices[idx]
		if prev != 0 {
			returns = append(returns, (cur-prev)/prev)
		}
		prev = cur
	}
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	return math.Sqrt(sq / float64(len(returns)-1))
}

// rateCounters is a 60-slot per-second circular counter bank for one
// activity class (orders or cancels). Slot = floor(now/1s) mod 60; on
// entry to a new slot it is zeroed.
type rateCounters struct {
	slots    [rateSlotCount]uint64
	slotSecs [rateSlotCount]int64
}

func (c *rateCounters) increment(nowNs int64) {
	sec := nowNs / int64(time.Second)
	idx := sec % rateSlotCount
	if c.slotSecs[idx] != sec {
		c.slotSecs[idx] = sec
		c.slots[idx] = 0
	}
	c.slots[idx]++
}

func (c *rateCounters) current(nowNs int64) uint64 {
	sec := nowNs / int64(time.Second)
	idx := sec % rateSlotCount
	if c.slotSecs[idx] != sec {
		return 0
	}
	return c.slots[idx]
}

// Manager is the risk control system (C7). Layer-1 state is touched on
// every hot-path order creation by the execution thread only (§5); it is
// not designed for concurrent writers, but exposes atomics so a read-only
// observer (dashboard, tests) may poll safely.
type Manager struct {
	cfg Config

	emergencyStop atomic.Bool

	netPosition      [tenorCount]atomic.Int64
	totalPosition    atomic.Int64
	dailyRealizedPnL atomic.Int64 // fixed-point, stored as pnl*1e4

	orderRate rateCounters
	msgRate   rateCounters
	mu        sync.Mutex // guards rate counters and volatility buffers (non-atomic composite state)

	volatility [tenorCount]*volatilityBuffer
	lastMid    [tenorCount]float64

	breakers [breakerClassCount]Breaker

	// Layer 2 state, set by UpdateLayer2State.
	portfolioDV01       atomic.Uint64 // math.Float64bits
	concentrationRatio  atomic.Uint64
	correlationExposure atomic.Uint64
	valueAtRisk         atomic.Uint64
	stressTestLoss      atomic.Uint64
}

// NewManager constructs a risk manager with the given config and every
// breaker reset/inactive.
func NewManager(cfg Config) *Manager {
	m := &Manager{cfg: cfg}
	for i := range m.volatility {
		m.volatility[i] = &volatilityBuffer{}
	}
	for i := range m.breakers {
		m.breakers[i] = Breaker{Class: BreakerClass(i), Threshold: breakerDefaultThreshold(BreakerClass(i), cfg)}
	}
	return m
}

func breakerDefaultThreshold(class BreakerClass, cfg Config) float64 {
	switch class {
	case BreakerPositionLimit:
		return float64(cfg.Layer1.MaxPositionPerInstrument)
	case BreakerPnlLoss:
		return cfg.Layer1.MaxDailyLoss
	case BreakerOrderRate:
		return float64(cfg.Layer1.MaxOrdersPerSecond)
	case BreakerVolatility:
		return cfg.Layer1.MaxPriceVolatility
	case BreakerConcentration:
		return cfg.Layer2.EnhancedConcentrationLimit
	case BreakerVar:
		return cfg.Layer2.EnhancedVarLimit
	default:
		return 0
	}
}

// CheckLayer1 runs the six hard-limit checks in §4.7's table order,
// returning the first breach's result (or Approved if none breach).
func (m *Manager) CheckLayer1(req Request) Result {
	if m.emergencyStop.Load() {
		return EmergencyHalt
	}

	proposed := int64(req.Quantity)
	if req.Side == instrument.Ask {
		proposed = -proposed
	}

	instCur := m.netPosition[req.Instrument].Load()
	instNew := instCur + proposed
	if abs64(instNew) > int64(m.cfg.Layer1.MaxPositionPerInstrument) {
		m.tripBreaker(BreakerPositionLimit, float64(abs64(instNew)), req.NowNs, TradeRejected)
		return TradeRejected
	}

	totalCur := m.totalPosition.Load()
	totalNew := totalCur + proposed
	if abs64(totalNew) > int64(m.cfg.Layer1.MaxTotalPosition) {
		m.tripBreaker(BreakerPositionLimit, float64(abs64(totalNew)), req.NowNs, TradeRejected)
		return TradeRejected
	}

	dailyPnL := float64(m.dailyRealizedPnL.Load()) / 1e4
	if dailyPnL < -m.cfg.Layer1.MaxDailyLoss {
		m.tripBreaker(BreakerPnlLoss, dailyPnL, req.NowNs, EmergencyHalt)
		m.ActivateEmergencyStop()
		return EmergencyHalt
	}

	m.mu.Lock()
	m.orderRate.increment(req.NowNs)
	ordersThisSecond := m.orderRate.current(req.NowNs)
	m.mu.Unlock()
	if ordersThisSecond > m.cfg.Layer1.MaxOrdersPerSecond {
		m.tripBreaker(BreakerOrderRate, float64(ordersThisSecond), req.NowNs, TradeRejected)
		return TradeRejected
	}

	m.mu.Lock()
	m.msgRate.increment(req.NowNs)
	msgsThisSecond := m.msgRate.current(req.NowNs)
	m.mu.Unlock()
	if msgsThisSecond > m.cfg.Layer1.MaxMessagesPerSecond {
		return TradeRejected
	}

	return Approved
}

// CheckLayer2 runs the enhanced checks and returns the most restrictive
// single result among them. Callers only invoke this when layer 1 passed
// and the request opts in (§4.7).
func (m *Manager) CheckLayer2(req Request) Result {
	result := Approved

	dv01 := math.Float64frombits(m.portfolioDV01.Load())
	if dv01 > m.cfg.Layer2.EnhancedDV01Limit {
		result = maxResult(result, PositionReduce)
	}

	concentration := math.Float64frombits(m.concentrationRatio.Load())
	if concentration > m.cfg.Layer2.EnhancedConcentrationLimit {
		m.tripBreaker(BreakerConcentration, concentration, req.NowNs, Warning)
		result = maxResult(result, Warning)
	}

	correlation := math.Float64frombits(m.correlationExposure.Load())
	if correlation > m.cfg.Layer2.EnhancedCorrelationLimit {
		result = maxResult(result, Warning)
	}

	varValue := math.Float64frombits(m.valueAtRisk.Load())
	if varValue > m.cfg.Layer2.EnhancedVarLimit {
		m.tripBreaker(BreakerVar, varValue, req.NowNs, PositionReduce)
		result = maxResult(result, PositionReduce)
	}

	stressLoss := math.Float64frombits(m.stressTestLoss.Load())
	if stressLoss > m.cfg.Layer2.EnhancedStressLossLimit {
		result = maxResult(result, EmergencyHalt)
	}

	if result == EmergencyHalt {
		m.ActivateEmergencyStop()
	}
	return result
}

// ComprehensiveCheck runs layer 1, and layer 2 if layer 1 passed and the
// request opted in, returning the most restrictive of the two outcomes.
func (m *Manager) ComprehensiveCheck(req Request) Result {
	l1 := m.CheckLayer1(req)
	if l1 != Approved || !req.UseEnhanced {
		return l1
	}
	l2 := m.CheckLayer2(req)
	return maxResult(l1, l2)
}

// UpdateLayer1State atomically folds a fill's position and realized P&L
// deltas into the running totals.
func (m *Manager) UpdateLayer1State(inst instrument.Tenor, qtyDelta int64, realizedPnLDelta float64) {
	m.netPosition[inst].Add(qtyDelta)
	m.totalPosition.Add(qtyDelta)
	m.dailyRealizedPnL.Add(int64(realizedPnLDelta * 1e4))
}

// UpdateLayer2State stores the latest enhanced-risk measures, computed
// externally by a strategy/portfolio analytics component.
func (m *Manager) UpdateLayer2State(dv01, concentration, correlation, varValue, stressLoss float64) {
	m.portfolioDV01.Store(math.Float64bits(dv01))
	m.concentrationRatio.Store(math.Float64bits(concentration))
	m.correlationExposure.Store(math.Float64bits(correlation))
	m.valueAtRisk.Store(math.Float64bits(varValue))
	m.stressTestLoss.Store(math.Float64bits(stressLoss))
}

// UpdateMarketPrice feeds one mid-price sample into the per-instrument
// volatility buffer and breaches the volatility breaker if the sample
// stddev of one-step returns exceeds MaxPriceVolatility.
func (m *Manager) UpdateMarketPrice(inst instrument.Tenor, mid float64, nowNs int64) {
	m.mu.Lock()
	m.volatility[inst].push(mid)
	sd := m.volatility[inst].stddev()
	m.lastMid[inst] = mid
	m.mu.Unlock()

	if sd > m.cfg.Layer1.MaxPriceVolatility {
		m.tripBreaker(BreakerVolatility, sd, nowNs, TradeRejected)
	}
}

// tripBreaker latches a breaker active. An Emergency-severity breaker
// (severity == EmergencyHalt) also sets the global emergency flag.
func (m *Manager) tripBreaker(class BreakerClass, current float64, nowNs int64, severity Result) {
	b := &m.breakers[class]
	b.Severity = severity
	b.trip(current, nowNs)
	if severity == EmergencyHalt {
		m.ActivateEmergencyStop()
	}
}

// ResetBreaker clears one breaker's active flag and records the reset
// time.
func (m *Manager) ResetBreaker(class BreakerClass, nowNs int64) {
	m.breakers[class].reset(nowNs)
}

// Breakers returns a snapshot of all eight circuit breakers.
func (m *Manager) Breakers() [breakerClassCount]Breaker {
	return m.breakers
}

// AnyBreakerActive reports whether any circuit breaker is currently
// tripped.
func (m *Manager) AnyBreakerActive() bool {
	for _, b := range m.breakers {
		if b.Active {
			return true
		}
	}
	return false
}

// ActivateEmergencyStop sets the global emergency-stop flag. Subsequent
// Layer-1 checks return EmergencyHalt regardless of input until
// DeactivateEmergencyStop is called.
func (m *Manager) ActivateEmergencyStop() {
	m.emergencyStop.Store(true)
}

// DeactivateEmergencyStop clears the global emergency-stop flag. It does
// not reset circuit breakers; callers reset the originating breaker(s)
// separately per §7's "Emergency stop persists until deactivate... and
// the originating breakers are reset".
func (m *Manager) DeactivateEmergencyStop() {
	m.emergencyStop.Store(false)
}

// IsEmergencyStopped reports the current emergency-stop flag.
func (m *Manager) IsEmergencyStopped() bool {
	return m.emergencyStop.Load()
}

// NetPosition returns the current tracked net position for an instrument.
func (m *Manager) NetPosition(inst instrument.Tenor) int64 {
	return m.netPosition[inst].Load()
}

// TotalPosition returns the current tracked total net position across
// all instruments.
func (m *Manager) TotalPosition() int64 {
	return m.totalPosition.Load()
}

// DailyRealizedPnL returns the running daily realized P&L.
func (m *Manager) DailyRealizedPnL() float64 {
	return float64(m.dailyRealizedPnL.Load()) / 1e4
}

// ResetDaily zeros position, P&L, and rate-counter state for a new
// trading session, leaving breaker trigger history intact.
func (m *Manager) ResetDaily() {
	for i := range m.netPosition {
		m.netPosition[i].Store(0)
	}
	m.totalPosition.Store(0)
	m.dailyRealizedPnL.Store(0)
	m.mu.Lock()
	m.orderRate = rateCounters{}
	m.msgRate = rateCounters{}
	m.mu.Unlock()
}

func maxResult(a, b Result) Result {
	if b > a {
		return b
	}
	return a
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
