// Package feed implements the ingress feed handler (C5): frame validation,
// sequence/duplicate tracking, and normalization of RawFrame wire records
// into Tick/Trade records published onto SPSC rings.
package feed

import (
	"log/slog"

	"hftcore/internal/clock"
	"hftcore/internal/instrument"
	"hftcore/internal/ring"
	"hftcore/pkg/wire"
)

// Tick is a top-of-book quote update.
type Tick struct {
	Instrument  instrument.Tenor
	TimestampNs int64
	BidPrice    instrument.Price32nd
	AskPrice    instrument.Price32nd
	BidSize     uint64
	AskSize     uint64
	BidYield    float64
	AskYield    float64
}

// IsValid reports whether the tick satisfies §3.2's Tick invariant: both
// prices positive and both sizes positive.
func (t Tick) IsValid() bool {
	return t.BidPrice.Whole > 0 && t.AskPrice.Whole > 0 && t.BidSize > 0 && t.AskSize > 0
}

// Trade is a single executed print, 64-byte contracted like the source's
// TreasuryTrade; see sizecontract_test.go.
type Trade struct {
	Instrument  instrument.Tenor
	TimestampNs int64
	Price       instrument.Price32nd
	Size        uint64
	Yield       float64
	TradeID     [16]byte
	_           [8]byte
}

// ParseResult enumerates a frame's outcome through the pipeline.
type ParseResult uint8

const (
	ResultValid ParseResult = iota
	ResultInvalidChecksum
	ResultInvalidFormat
	ResultDuplicate
)

// QualityStats is the feed handler's read-only observability snapshot.
type QualityStats struct {
	TotalProcessed    uint64
	InvalidMessages   uint64
	DuplicateMessages uint64
	SequenceGaps      uint64
	AvgParseLatencyNs float64
	MaxParseLatencyNs uint64
}

// Config holds the feed handler's enumerated tunables (§6.5).
type Config struct {
	RecentSequenceRingLen int
	TickRingCapacity      int
	TradeRingCapacity     int
}

// DefaultConfig returns the defaults named in §6.5.
func DefaultConfig() Config {
	return Config{
		RecentSequenceRingLen: 1024,
		TickRingCapacity:      8192,
		TradeRingCapacity:     8192,
	}
}

// Handler is the feed handler (C5). It owns its output rings; callers
// passed in at construction do not retain ownership of them — Thread A
// (§5) is the only writer of this handler, and downstream consumers only
// read from TickRing/TradeRing.
type Handler struct {
	cfg Config
	clk *clock.Clock
	log *slog.Logger

	expectedSequence uint64
	recentSeq        []uint64
	recentSeqNext    int

	tickRing  *ring.Ring[Tick]
	tradeRing *ring.Ring[Trade]

	parseLatency *clock.LatencyHistogram
	stats        QualityStats
}

// New constructs a feed handler with its own tick/trade rings sized per
// cfg.
func New(cfg Config, clk *clock.Clock, log *slog.Logger) *Handler {
	return &Handler{
		cfg:          cfg,
		clk:          clk,
		log:          log,
		recentSeq:    make([]uint64, cfg.RecentSequenceRingLen),
		tickRing:     ring.New[Tick](cfg.TickRingCapacity),
		tradeRing:    ring.New[Trade](cfg.TradeRingCapacity),
		parseLatency: clock.NewLatencyHistogram(),
	}
}

// TickRing exposes the tick output ring for a downstream consumer.
func (h *Handler) TickRing() *ring.Ring[Tick] { return h.tickRing }

// TradeRing exposes the trade output ring for a downstream consumer.
func (h *Handler) TradeRing() *ring.Ring[Trade] { return h.tradeRing }

// ProcessFrame runs the six-step per-frame pipeline described in §4.5
// against one wire frame and its raw bytes (needed for checksum
// verification, which operates over the pre-decode byte layout).
func (h *Handler) ProcessFrame(frame wire.RawFrame, raw []byte) ParseResult {
	stop := clock.Scope(h.clk, h.parseLatency)
	defer stop()

	h.stats.TotalProcessed++

	// Duplicate check (linear scan of a fixed-size ring; intentionally
	// misses duplicates older than RecentSequenceRingLen frames — see §9).
	// A duplicate is dropped before it can perturb the sequence-gap
	// tracker: a replayed sequence number is not a gap.
	if h.isDuplicate(frame.Sequence) {
		h.stats.DuplicateMessages++
		return ResultDuplicate
	}
	h.rememberSequence(frame.Sequence)

	// Sequence check.
	if h.expectedSequence != 0 && frame.Sequence != h.expectedSequence {
		h.stats.SequenceGaps++
	}
	h.expectedSequence = frame.Sequence + 1

	// 3. Checksum.
	if !frame.VerifyChecksum(raw) {
		h.stats.InvalidMessages++
		return ResultInvalidChecksum
	}

	// 4 & 5. Type dispatch + instrument normalization.
	switch frame.Type {
	case wire.MessageTick:
		return h.handleTick(frame)
	case wire.MessageTrade:
		return h.handleTrade(frame)
	case wire.MessageHeartbeat:
		return ResultValid
	default:
		h.stats.InvalidMessages++
		return ResultInvalidFormat
	}
}

func (h *Handler) handleTick(frame wire.RawFrame) ParseResult {
	tenor, idErr := instrument.NormalizeID(frame.InstrumentID)
	payload := wire.DecodeTick(frame.Payload)

	bid := instrument.PriceFromDecimal(payload.BidPrice)
	ask := instrument.PriceFromDecimal(payload.AskPrice)
	tick := Tick{
		Instrument:  tenor,
		TimestampNs: int64(frame.ExchangeTSNs),
		BidPrice:    bid,
		AskPrice:    ask,
		BidSize:     payload.BidSize,
		AskSize:     payload.AskSize,
		BidYield:    instrument.PriceToYield(bid, tenor.MaturityDays()),
		AskYield:    instrument.PriceToYield(ask, tenor.MaturityDays()),
	}

	if idErr != nil {
		h.stats.InvalidMessages++
	}
	if !tick.IsValid() {
		h.stats.InvalidMessages++
		return ResultInvalidFormat
	}
	if !h.tickRing.TryPush(tick) {
		h.stats.InvalidMessages++
		return ResultInvalidFormat
	}
	return ResultValid
}

func (h *Handler) handleTrade(frame wire.RawFrame) ParseResult {
	tenor, idErr := instrument.NormalizeID(frame.InstrumentID)
	payload := wire.DecodeTrade(frame.Payload)

	price := instrument.PriceFromDecimal(payload.Price)
	trade := Trade{
		Instrument:  tenor,
		TimestampNs: int64(frame.ExchangeTSNs),
		Price:       price,
		Size:        payload.Size,
		Yield:       instrument.PriceToYield(price, tenor.MaturityDays()),
		TradeID:     payload.TradeID,
	}

	if idErr != nil {
		h.stats.InvalidMessages++
	}
	if trade.Size == 0 {
		h.stats.InvalidMessages++
		return ResultInvalidFormat
	}
	if !h.tradeRing.TryPush(trade) {
		h.stats.InvalidMessages++
		return ResultInvalidFormat
	}
	return ResultValid
}

func (h *Handler) isDuplicate(seq uint64) bool {
	for _, s := range h.recentSeq {
		if s == seq {
			return true
		}
	}
	return false
}

func (h *Handler) rememberSequence(seq uint64) {
	h.recentSeq[h.recentSeqNext] = seq
	h.recentSeqNext = (h.recentSeqNext + 1) % len(h.recentSeq)
}

// ProcessBatch processes frames [0,len) along with their matching raw byte
// slices, prefetch semantics aside (the source prefetches the next frame's
// cache line; Go has no portable prefetch intrinsic, so this loop relies on
// ordinary sequential locality instead). It returns the number of valid
// records produced and the total invalid count observed during the batch.
func (h *Handler) ProcessBatch(frames []wire.RawFrame, raws [][]byte) (valid, invalid int) {
	for i, f := range frames {
		if h.ProcessFrame(f, raws[i]) == ResultValid {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid
}

// Stats returns the current quality-stats snapshot, including parse
// latency aggregates drawn from the histogram.
func (h *Handler) Stats() QualityStats {
	s := h.stats
	hstats := h.parseLatency.Stats()
	s.AvgParseLatencyNs = hstats.Mean
	s.MaxParseLatencyNs = hstats.Max
	return s
}

// ResetStats zeros the counters and the latency histogram.
func (h *Handler) ResetStats() {
	h.stats = QualityStats{}
	h.parseLatency.Reset()
}
