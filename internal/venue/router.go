package venue

import (
	"sync/atomic"

	"hftcore/internal/ring"
)

// RouterConfig holds the venue router's enumerated tunables (§6.5).
type RouterConfig struct {
	MaxVenues                int
	ConsolidatedRingCapacity int
}

// DefaultRouterConfig returns the defaults named in §6.5.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MaxVenues:                8,
		ConsolidatedRingCapacity: 16384,
	}
}

// Router is the routing aggregator (§4.6): it holds up to MaxVenues
// simulators, dispatches submissions round-robin, and drains every venue's
// response ring into one consolidated ring a strategy thread can read.
type Router struct {
	cfg     RouterConfig
	venues  []*Simulator
	next    atomic.Uint64
	consol  *ring.Ring[Response]
	drained []Response // scratch buffer reused across Drain calls
}

// NewRouter constructs an empty router ready to accept up to
// cfg.MaxVenues venues.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		cfg:     cfg,
		venues:  make([]*Simulator, 0, cfg.MaxVenues),
		consol:  ring.New[Response](cfg.ConsolidatedRingCapacity),
		drained: make([]Response, 256),
	}
}

// AddVenue registers a venue with the router. It returns false if the
// router is already at MaxVenues capacity.
func (r *Router) AddVenue(v *Simulator) bool {
	if len(r.venues) >= r.cfg.MaxVenues {
		return false
	}
	r.venues = append(r.venues, v)
	return true
}

// Venues returns the registered venues in registration order.
func (r *Router) Venues() []*Simulator { return r.venues }

// RouteOrder dispatches o to the next venue in round-robin order via an
// atomic counter, per §4.6's "Routing aggregator" line. It returns the
// chosen venue's name and whether submission was accepted.
func (r *Router) RouteOrder(o Order, nowNs int64) (venueName string, accepted bool) {
	if len(r.venues) == 0 {
		return "", false
	}
	idx := r.next.Add(1) % uint64(len(r.venues))
	v := r.venues[idx]
	return v.Name, v.SubmitOrder(o, nowNs)
}

// ProcessVenueResponses drains every venue's response ring into the
// consolidated ring, in registration order, up to 256 records per venue
// per call (matching §6.3's batch-of-256 consumer contract).
func (r *Router) ProcessVenueResponses() int {
	moved := 0
	for _, v := range r.venues {
		n := v.PopResponses(r.drained)
		for i := 0; i < n; i++ {
			if r.consol.TryPush(r.drained[i]) {
				moved++
			}
		}
	}
	return moved
}

// Consolidated exposes the consolidated response ring for a strategy
// thread to consume.
func (r *Router) Consolidated() *ring.Ring[Response] { return r.consol }
