// Package engine is the central orchestrator of the execution core.
//
// It wires together the components of §5's canonical deployment:
//
//  1. Thread A ("ingress"): the feed handler normalizes incoming wire
//     frames into ticks/trades and fans them out onto per-consumer rings.
//  2. Thread B ("execution"): consumes ticks to drive the venue
//     simulator(s) and the risk controller's volatility model, consumes
//     order-creation intents from an optional strategy thread, routes them
//     through the OLM and venue router, and applies venue responses back
//     through the OLM into position reconciliation.
//  3. Optional Thread C ("strategy"): maintains its own top-of-book mirror
//     from a second tick fan-out, and writes order-creation intents back
//     to Thread B.
//
// Lifecycle: New() -> Start() -> [runs until Stop()].
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"hftcore/internal/book"
	"hftcore/internal/clock"
	"hftcore/internal/config"
	"hftcore/internal/feed"
	"hftcore/internal/instrument"
	"hftcore/internal/order"
	"hftcore/internal/position"
	"hftcore/internal/ring"
	"hftcore/internal/risk"
	"hftcore/internal/strategy"
	"hftcore/internal/venue"
	"hftcore/pkg/wire"
)

const tenorCount = 6

// FrameInput is one ingress wire record: the decoded header plus the raw
// bytes needed to re-verify its checksum.
type FrameInput struct {
	Frame wire.RawFrame
	Raw   []byte
}

// Engine orchestrates every component of the execution core and owns the
// goroutines and SPSC rings connecting them.
type Engine struct {
	cfg    config.Config
	logger *slog.Logger
	clk    *clock.Clock

	feedHandler *feed.Handler

	execTicks  *ring.Ring[feed.Tick]
	stratTicks *ring.Ring[feed.Tick] // nil unless a strategy is configured
	intents    *ring.Ring[strategy.Intent]

	ingress chan FrameInput

	router   *venue.Router
	riskMgr  *risk.Manager
	orderMgr *order.Manager
	posMgr   *position.Manager

	execBooks  [tenorCount]*book.Book
	stratBooks [tenorCount]*book.Book
	runners    map[instrument.Tenor]*strategy.Runner

	// posViews publishes each instrument's latest position snapshot for
	// the strategy thread to read without touching posMgr directly (§5:
	// "the position table [is] owned by the execution thread").
	posViews [tenorCount]atomic.Pointer[strategy.PositionView]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	framesProcessed atomic.Uint64
	fillsApplied    atomic.Uint64

	sink EventSink
}

// New wires a fresh engine from cfg. Venues and strategies are added
// afterward via AddVenue/SetStrategy before Start.
func New(cfg config.Config, logger *slog.Logger) *Engine {
	clk := clock.New()
	handler := feed.New(feed.Config{
		RecentSequenceRingLen: cfg.Feed.RecentSequenceRingLen,
		TickRingCapacity:      cfg.Feed.TickRingCapacity,
		TradeRingCapacity:     cfg.Feed.TradeRingCapacity,
	}, clk, logger)

	riskCfg := risk.Config{
		Layer1: risk.Layer1Config{
			MaxPositionPerInstrument: uint64(cfg.Risk.MaxPositionPerInstrument),
			MaxTotalPosition:         uint64(cfg.Risk.MaxTotalPosition),
			MaxDailyLoss:             cfg.Risk.MaxDailyLoss,
			MaxOrdersPerSecond:       cfg.Risk.MaxOrdersPerSecond,
			MaxMessagesPerSecond:     cfg.Risk.MaxMessagesPerSecond,
			MaxOrderSize:             uint64(cfg.Risk.MaxOrderSize),
			MaxPriceVolatility:       cfg.Risk.MaxPriceVolatility,
		},
		Layer2: risk.Layer2Config{
			EnhancedDV01Limit:          cfg.Risk.EnhancedDV01Limit,
			EnhancedConcentrationLimit: cfg.Risk.EnhancedConcentrationLimit,
			EnhancedCorrelationLimit:   cfg.Risk.EnhancedCorrelationLimit,
			EnhancedVarLimit:           cfg.Risk.EnhancedVarLimit,
			EnhancedStressLossLimit:    cfg.Risk.EnhancedStressLossLimit,
		},
	}
	riskMgr := risk.NewManager(riskCfg)

	orderMgr := order.NewManager(order.Config{
		MaxOrders:      cfg.Order.MaxOrders,
		AuditTrailSize: cfg.Order.AuditTrailSize,
		MaxVenues:      cfg.Order.MaxVenues,
	}, riskMgr)

	posMgr := position.NewManager(position.Config{
		MaxVenues:            cfg.Position.MaxVenues,
		MaxSettlementEntries: cfg.Position.MaxSettlementEntries,
		MaxPositionHistory:   cfg.Position.MaxPositionHistory,
		MaxBreaks:            cfg.Position.MaxBreaks,
		ReconcileTolerance:   cfg.Position.ReconcileTolerance,
	})

	router := venue.NewRouter(venue.RouterConfig{
		MaxVenues:                cfg.Venue.MaxVenues,
		ConsolidatedRingCapacity: cfg.Venue.ConsolidatedRingCap,
	})

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:         cfg,
		logger:      logger.With("component", "engine"),
		clk:         clk,
		feedHandler: handler,
		execTicks:   ring.New[feed.Tick](cfg.Feed.TickRingCapacity),
		intents:     ring.New[strategy.Intent](1024),
		ingress:     make(chan FrameInput, 4096),
		router:      router,
		riskMgr:     riskMgr,
		orderMgr:    orderMgr,
		posMgr:      posMgr,
		runners:     make(map[instrument.Tenor]*strategy.Runner),
		ctx:         ctx,
		cancel:      cancel,
	}
	for i := 0; i < tenorCount; i++ {
		e.execBooks[i] = book.New(instrument.Tenor(i))
	}
	return e
}

// AddVenue constructs a venue simulator and registers it with both the
// router (for dispatch) and the OLM (for scoring).
func (e *Engine) AddVenue(name string, cfg venue.Config, priority float64, seed int64) bool {
	sim := venue.NewSimulator(name, cfg, seed)
	if !e.router.AddVenue(sim) {
		return false
	}
	e.orderMgr.RegisterVenue(name, priority)
	return true
}

// SetStrategy installs a Decision for one instrument, enabling Thread C.
// The first call lazily allocates the strategy tick fan-out ring.
func (e *Engine) SetStrategy(inst instrument.Tenor, d strategy.Decision) {
	if e.stratTicks == nil {
		e.stratTicks = ring.New[feed.Tick](e.cfg.Feed.TickRingCapacity)
	}
	e.stratBooks[inst] = book.New(inst)
	e.runners[inst] = strategy.NewRunner(d, e.stratBooks[inst])
}

// IngestFrame hands one wire frame to Thread A. It returns false if the
// ingress channel is full; the caller (replay/run driver) decides whether
// to retry.
func (e *Engine) IngestFrame(fi FrameInput) bool {
	select {
	case e.ingress <- fi:
		return true
	default:
		return false
	}
}

// SubmitIntent pushes an order-creation intent directly onto the
// Thread C -> Thread B ring. It is exported so an external strategy
// process (or a test) can drive order creation without an in-process
// Decision.
func (e *Engine) SubmitIntent(in strategy.Intent) bool {
	return e.intents.TryPush(in)
}

// Start launches Thread A, Thread B, and (if any strategy is configured)
// Thread C.
func (e *Engine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runIngress()
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runExecution()
	}()

	if e.stratTicks != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.runStrategy()
		}()
	}

	e.logger.Info("engine started", "venues", len(e.router.Venues()), "strategies", len(e.runners))
}

// Stop cancels all threads and waits for them to drain.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")
	e.cancel()
	e.wg.Wait()
	e.logger.Info("shutdown complete")
}

// runIngress is Thread A: pop frames off the ingress channel, run them
// through the feed handler, and fan the resulting ticks out onto every
// downstream consumer's own ring.
func (e *Engine) runIngress() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case fi := <-e.ingress:
			result := e.feedHandler.ProcessFrame(fi.Frame, fi.Raw)
			e.framesProcessed.Add(1)
			if result != feed.ResultValid {
				continue
			}
			for {
				tick, ok := e.feedHandler.TickRing().TryPop()
				if !ok {
					break
				}
				e.execTicks.TryPush(tick)
				if e.stratTicks != nil {
					e.stratTicks.TryPush(tick)
				}
			}
			for {
				if _, ok := e.feedHandler.TradeRing().TryPop(); !ok {
					break
				}
			}
		}
	}
}

// runExecution is Thread B: apply ticks to the venue simulators and risk
// volatility model, create/route orders from strategy intents, and apply
// venue responses back into the OLM and position reconciliation.
func (e *Engine) runExecution() {
	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		for {
			tick, ok := e.execTicks.TryPop()
			if !ok {
				break
			}
			e.applyTick(tick)
		}

		for {
			in, ok := e.intents.TryPop()
			if !ok {
				break
			}
			e.submitIntent(in)
		}

		e.router.ProcessVenueResponses()
		for {
			resp, ok := e.router.Consolidated().TryPop()
			if !ok {
				break
			}
			e.applyResponse(resp)
		}
	}
}

func (e *Engine) applyTick(t feed.Tick) {
	e.execBooks[t.Instrument].ApplyTick(t)
	mid, ok := e.execBooks[t.Instrument].MidPrice()
	if !ok {
		return
	}
	now := e.clk.NowNs()
	e.riskMgr.UpdateMarketPrice(t.Instrument, mid, now)
	for _, v := range e.router.Venues() {
		v.ProcessMarketUpdate(t, now)
	}
}

func (e *Engine) submitIntent(in strategy.Intent) {
	id := e.orderMgr.CreateOrder(in.Instrument, in.Side, in.Type, in.Price, in.Quantity, order.TimeInForce(in.TIF), in.TsNs)
	if id == 0 {
		return
	}
	venueName, ok := e.orderMgr.RouteOrder(id)
	if !ok {
		return
	}
	rec, ok := e.orderMgr.Order(id)
	if !ok {
		return
	}
	sim := e.venueByName(venueName)
	if sim == nil {
		return
	}
	if e.sink != nil {
		e.sink.Publish("order_created", rec)
	}
	sim.SubmitOrder(venue.Order{
		OrderID:            rec.OrderID,
		TimestampCreatedNs: rec.TimestampCreatedNs,
		Instrument:         rec.Instrument,
		Type:               rec.Type,
		Side:               rec.Side,
		LimitPrice:         rec.LimitPrice,
		Quantity:           rec.Quantity,
		RemainingQuantity:  rec.RemainingQuantity,
	}, in.TsNs)
}

func (e *Engine) venueByName(name string) *venue.Simulator {
	for _, v := range e.router.Venues() {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (e *Engine) applyResponse(resp venue.Response) {
	rec, ok := e.orderMgr.Order(resp.OrderID)
	if !ok {
		return
	}
	if resp.FillQuantity == 0 {
		return
	}

	if e.sink != nil {
		e.sink.Publish("fill", resp)
	}
	if e.cfg.DryRun {
		// No venue fills are applied to live order/position state in
		// dry-run mode; the response is still observed and published above.
		return
	}

	venueName, _ := e.orderMgr.VenueName(rec.TargetVenue)

	before := e.posMgr.Position(rec.Instrument, venueName)
	e.orderMgr.ProcessFill(order.Execution{
		OrderID:          resp.OrderID,
		ExecutedQuantity: resp.FillQuantity,
		ExecutionPrice:   resp.FillPrice,
		VenueName:        venueName,
		TsNs:             resp.TimestampVenueNs,
	})
	e.posMgr.UpdatePosition(rec.Instrument, venueName, rec.Side, resp.FillQuantity,
		resp.FillPrice.ToDecimal(), resp.OrderID, resp.TimestampVenueNs)
	after := e.posMgr.Position(rec.Instrument, venueName)
	e.publishPositionView(rec.Instrument, after)

	signedQty := int64(resp.FillQuantity)
	if rec.Side == instrument.Ask {
		signedQty = -signedQty
	}
	e.riskMgr.UpdateLayer1State(rec.Instrument, signedQty, after.RealizedPnL-before.RealizedPnL)
	e.fillsApplied.Add(1)
}

// runStrategy is Thread C: maintain the strategy-side book mirror and
// invoke every configured Decision once per applied tick.
func (e *Engine) runStrategy() {
	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		for {
			tick, ok := e.stratTicks.TryPop()
			if !ok {
				break
			}
			inst := tick.Instrument
			b := e.stratBooks[inst]
			if b == nil {
				continue
			}
			b.ApplyTick(tick)

			runner, ok := e.runners[inst]
			if !ok {
				continue
			}
			view := strategy.PositionView{}
			if v := e.posViews[inst].Load(); v != nil {
				view = *v
			}
			for _, in := range runner.Step(view) {
				e.intents.TryPush(in)
			}
		}
	}
}

// publishPositionView refreshes the cross-thread snapshot Thread C reads;
// called from Thread B after every applied fill.
func (e *Engine) publishPositionView(inst instrument.Tenor, pos position.VenuePosition) {
	v := strategy.PositionView{NetQty: pos.NetQty, WACP: pos.WACP, UnrealizedPnL: pos.UnrealizedPnL}
	e.posViews[inst].Store(&v)
}

// Stats is the engine's aggregate read-only snapshot for the
// observability surface (§6.6).
type Stats struct {
	FramesProcessed  uint64
	FillsApplied     uint64
	Feed             feed.QualityStats
	Order            order.Stats
	AnyBreakerActive bool
}

func (e *Engine) Stats() Stats {
	return Stats{
		FramesProcessed:  e.framesProcessed.Load(),
		FillsApplied:     e.fillsApplied.Load(),
		Feed:             e.feedHandler.Stats(),
		Order:            e.orderMgr.Stats(),
		AnyBreakerActive: e.riskMgr.AnyBreakerActive(),
	}
}

// EventSink receives a live feed of execution-thread events for the
// observability surface (§6.6). It is defined here, not in internal/api,
// so the execution core never imports its own dashboard.
type EventSink interface {
	Publish(kind string, payload any)
}

// SetEventSink installs the observability event sink. Safe to call once
// before Start; Thread B publishes fills and order creations through it.
func (e *Engine) SetEventSink(s EventSink) { e.sink = s }

// RiskManager exposes the risk controller for the observability surface
// and for operator commands (emergency stop/clear).
func (e *Engine) RiskManager() *risk.Manager { return e.riskMgr }

// OrderManager exposes the OLM for the observability surface.
func (e *Engine) OrderManager() *order.Manager { return e.orderMgr }

// PositionManager exposes position reconciliation for the observability
// surface and day-close settlement generation.
func (e *Engine) PositionManager() *position.Manager { return e.posMgr }
