// Package venue implements the venue simulator (C6): order admission, a
// stochastic latency model, a probabilistic fill model, and a response
// stream, grounded on the source's PrimaryDealerVenue / venue_router.hpp.
package venue

import (
	"math"
	"math/rand"

	"hftcore/internal/feed"
	"hftcore/internal/fixedstr"
	"hftcore/internal/instrument"
	"hftcore/internal/ring"
)

// Status mirrors an order's lifecycle as observed by the venue.
type Status uint8

const (
	StatusSubmitted Status = iota
	StatusAcknowledged
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "Submitted"
	case StatusAcknowledged:
		return "Acknowledged"
	case StatusPartiallyFilled:
		return "PartiallyFilled"
	case StatusFilled:
		return "Filled"
	case StatusCancelled:
		return "Cancelled"
	case StatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Order is the venue's view of a submitted order.
type Order struct {
	OrderID            uint64
	ClientOrderID      uint64
	TimestampCreatedNs int64
	TimestampVenueNs   int64
	Instrument         instrument.Tenor
	Type               instrument.OrderType
	Side               instrument.Side
	LimitPrice         instrument.Price32nd
	YieldLimit         float64
	Quantity           uint64
	FilledQuantity     uint64
	RemainingQuantity  uint64
	VenueOrderID       uint64
	Status             Status
}

// Response is the venue's 64-byte-contract execution report, pushed onto
// the response ring. Field order matches the source's OrderExecution plus
// a fixed reject-reason tail; see sizecontract_test.go.
type Response struct {
	OrderID          uint64
	TimestampVenueNs int64
	FillQuantity     uint64
	FillPrice        instrument.Price32nd
	VenueOrderID     uint64
	NewStatus        Status
	_                [7]byte
	RejectReason     [16]byte
}

// Reject reason catalog, grounded on the literal strings used in the
// source's order-lifecycle and venue-simulation tests (§10.4).
const (
	ReasonInvalidQuantity  = "invalid quantity"
	ReasonInvalidPrice     = "invalid price"
	ReasonCapacityExceeded = "venue capacity exceeded"
	ReasonEmergencyStop    = "emergency stop"
)

// LatencyConfig parameterizes the venue's stochastic latency model.
type LatencyConfig struct {
	BaseLatencyNs    int64
	JitterStdDevNs   float64
	QueueDelayNs     int64
	QueueProbability float64
}

// DefaultLatencyConfig returns the defaults named in §6.5.
func DefaultLatencyConfig() LatencyConfig {
	return LatencyConfig{
		BaseLatencyNs:    50_000,
		JitterStdDevNs:   10_000,
		QueueDelayNs:     100_000,
		QueueProbability: 0.1,
	}
}

// Config holds a single venue's enumerated tunables.
type Config struct {
	Latency              LatencyConfig
	MaxActiveOrders      int
	ResponseRingCapacity int
}

// DefaultConfig returns the defaults named in §6.5.
func DefaultConfig() Config {
	return Config{
		Latency:              DefaultLatencyConfig(),
		MaxActiveOrders:      4096,
		ResponseRingCapacity: 8192,
	}
}

// fillStats tracks the exponential moving average of this venue's fill
// rate and observed latency, exposed through Stats. Router.RouteOrder does
// not read it (it dispatches round-robin), and the OLM's venue scoring
// (§4.8) keeps its own order.VenueStats.
type fillStats struct {
	fillRateEMA   float64
	avgLatencyEMA float64
	initialized   bool
}

const emaAlpha = 0.1

func (f *fillStats) observe(filled bool, latencyNs float64) {
	fillSample := 0.0
	if filled {
		fillSample = 1.0
	}
	if !f.initialized {
		f.fillRateEMA = fillSample
		f.avgLatencyEMA = latencyNs
		f.initialized = true
		return
	}
	f.fillRateEMA = emaAlpha*fillSample + (1-emaAlpha)*f.fillRateEMA
	f.avgLatencyEMA = emaAlpha*latencyNs + (1-emaAlpha)*f.avgLatencyEMA
}

// Stats is the venue's read-only observability snapshot.
type Stats struct {
	OrdersSubmitted       uint64
	OrdersAcknowledged    uint64
	OrdersRejected        uint64
	OrdersCancelled       uint64
	OrdersFilled          uint64
	OrdersPartiallyFilled uint64
	FillRateEMA           float64
	AvgLatencyNsEMA       float64
}

// Simulator is a single simulated trading venue (e.g. a primary dealer).
// It is single-threaded: one execution thread owns submission, market
// updates, and cancellation.
type Simulator struct {
	Name string
	cfg  Config
	rng  *rand.Rand

	active           []Order
	nextVenueOrderID uint64

	responses *ring.Ring[Response]
	stats     Stats
	fs        fillStats
}

// NewSimulator constructs a venue with a deterministic RNG seed so
// end-to-end fill scenarios (§8.3 scenario 4) are reproducible.
func NewSimulator(name string, cfg Config, seed int64) *Simulator {
	return &Simulator{
		Name:      name,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(seed)),
		active:    make([]Order, 0, cfg.MaxActiveOrders),
		responses: ring.New[Response](cfg.ResponseRingCapacity),
	}
}

// SubmitOrder validates and admits an order. It always produces exactly
// one Response (synchronously for rejects, scheduled for acks) pushed onto
// the response ring.
func (s *Simulator) SubmitOrder(o Order, nowNs int64) bool {
	s.stats.OrdersSubmitted++

	if reason, ok := s.validate(o); !ok {
		s.stats.OrdersRejected++
		s.responses.TryPush(Response{
			OrderID:          o.OrderID,
			TimestampVenueNs: nowNs,
			NewStatus:        StatusRejected,
			RejectReason:     fixedstr.Bytes16(reason),
		})
		return false
	}

	if len(s.active) >= s.cfg.MaxActiveOrders {
		s.stats.OrdersRejected++
		s.responses.TryPush(Response{
			OrderID:          o.OrderID,
			TimestampVenueNs: nowNs,
			NewStatus:        StatusRejected,
			RejectReason:     fixedstr.Bytes16(ReasonCapacityExceeded),
		})
		return false
	}

	s.nextVenueOrderID++
	o.VenueOrderID = s.nextVenueOrderID
	o.RemainingQuantity = o.Quantity - o.FilledQuantity
	ackLatency := s.sampleLatency()
	o.TimestampVenueNs = nowNs + ackLatency
	o.Status = StatusAcknowledged
	s.active = append(s.active, o)

	s.stats.OrdersAcknowledged++
	s.fs.observe(true, float64(ackLatency))
	s.responses.TryPush(Response{
		OrderID:          o.OrderID,
		TimestampVenueNs: o.TimestampVenueNs,
		NewStatus:        StatusAcknowledged,
		VenueOrderID:     o.VenueOrderID,
	})
	return true
}

func (s *Simulator) validate(o Order) (string, bool) {
	if o.Quantity == 0 {
		return ReasonInvalidQuantity, false
	}
	switch o.Type {
	case instrument.OrderLimit:
		if o.LimitPrice.Whole < 1 {
			return ReasonInvalidPrice, false
		}
	case instrument.OrderYieldLimit:
		if o.YieldLimit <= 0 {
			return ReasonInvalidPrice, false
		}
	}
	return "", true
}

// sampleLatency draws base + Gaussian jitter + Bernoulli queue delay,
// floor-clamped at zero.
func (s *Simulator) sampleLatency() int64 {
	jitter := s.rng.NormFloat64() * s.cfg.Latency.JitterStdDevNs
	latency := float64(s.cfg.Latency.BaseLatencyNs) + jitter
	if s.rng.Float64() < s.cfg.Latency.QueueProbability {
		latency += float64(s.cfg.Latency.QueueDelayNs)
	}
	if latency < 0 {
		latency = 0
	}
	return int64(latency)
}

// ProcessMarketUpdate applies the fill model against every Acknowledged or
// PartiallyFilled active order, then compacts terminal entries.
func (s *Simulator) ProcessMarketUpdate(tick feed.Tick, nowNs int64) {
	bid := tick.BidPrice.ToDecimal()
	ask := tick.AskPrice.ToDecimal()

	for i := range s.active {
		o := &s.active[i]
		if o.Status != StatusAcknowledged && o.Status != StatusPartiallyFilled {
			continue
		}
		s.tryFill(o, bid, ask, nowNs)
	}
	s.cleanup()
}

func (s *Simulator) tryFill(o *Order, bid, ask float64, nowNs int64) {
	prob := s.fillProbability(*o, bid, ask)
	if prob <= 0 {
		return
	}
	coinFlip := s.rng.Float64()
	if coinFlip >= prob {
		return
	}

	u := s.rng.Float64()
	var fillQty uint64
	if u < prob {
		fillQty = o.RemainingQuantity
	} else {
		fillQty = uint64(math.Max(1, math.Floor(float64(o.RemainingQuantity)*prob*u)))
		if fillQty > o.RemainingQuantity {
			fillQty = o.RemainingQuantity
		}
	}
	if fillQty == 0 {
		return
	}

	fillPrice := s.fillPrice(*o, bid, ask)

	o.FilledQuantity += fillQty
	o.RemainingQuantity -= fillQty
	newStatus := StatusPartiallyFilled
	if o.RemainingQuantity == 0 {
		newStatus = StatusFilled
		s.stats.OrdersFilled++
	} else {
		s.stats.OrdersPartiallyFilled++
	}
	o.Status = newStatus
	s.fs.observe(true, float64(nowNs-o.TimestampCreatedNs))

	s.responses.TryPush(Response{
		OrderID:          o.OrderID,
		TimestampVenueNs: nowNs,
		NewStatus:        newStatus,
		FillQuantity:     fillQty,
		FillPrice:        instrument.PriceFromDecimal(fillPrice),
		VenueOrderID:     o.VenueOrderID,
	})
}

func (s *Simulator) fillProbability(o Order, bid, ask float64) float64 {
	if o.Type == instrument.OrderMarket {
		return 0.95
	}
	limit := o.LimitPrice.ToDecimal()
	switch o.Side {
	case instrument.Bid:
		if limit >= ask {
			return 0.9
		}
		return math.Max(0, 0.9-(ask-limit)*0.1)
	default: // Ask
		if limit <= bid {
			return 0.9
		}
		return math.Max(0, 0.9-(limit-bid)*0.1)
	}
}

func (s *Simulator) fillPrice(o Order, bid, ask float64) float64 {
	if o.Type == instrument.OrderMarket {
		if o.Side == instrument.Bid {
			return ask
		}
		return bid
	}
	limit := o.LimitPrice.ToDecimal()
	switch o.Side {
	case instrument.Bid:
		if limit >= ask {
			return ask - s.rng.Float64()*(1.0/32)
		}
		return limit
	default:
		if limit <= bid {
			return bid + s.rng.Float64()*(1.0/32)
		}
		return limit
	}
}

// CancelOrder locates an order by id (linear scan, per the source and §9's
// accepted open question) and, if it is in a cancellable state, schedules
// a Cancelled response.
func (s *Simulator) CancelOrder(id uint64, nowNs int64) bool {
	for i := range s.active {
		o := &s.active[i]
		if o.OrderID != id {
			continue
		}
		if o.Status != StatusAcknowledged && o.Status != StatusPartiallyFilled {
			return false
		}
		o.Status = StatusCancelled
		s.stats.OrdersCancelled++
		s.responses.TryPush(Response{
			OrderID:          o.OrderID,
			TimestampVenueNs: nowNs,
			NewStatus:        StatusCancelled,
			VenueOrderID:     o.VenueOrderID,
		})
		return true
	}
	return false
}

// cleanup compacts the active array by removing terminal entries.
func (s *Simulator) cleanup() {
	kept := s.active[:0]
	for _, o := range s.active {
		if o.Status == StatusFilled || o.Status == StatusCancelled || o.Status == StatusRejected {
			continue
		}
		kept = append(kept, o)
	}
	s.active = kept
}

// PopResponses drains up to len(out) responses, per §6.3's batch-of-256
// consumer contract.
func (s *Simulator) PopResponses(out []Response) int {
	return s.responses.TryPopBatch(out)
}

// Responses exposes the raw response ring for a router to drain directly.
func (s *Simulator) Responses() *ring.Ring[Response] { return s.responses }

// Stats returns the venue's observability snapshot.
func (s *Simulator) Stats() Stats {
	st := s.stats
	st.FillRateEMA = s.fs.fillRateEMA
	st.AvgLatencyNsEMA = s.fs.avgLatencyEMA
	return st
}
