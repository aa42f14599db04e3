package venue

import (
	"testing"

	"hftcore/internal/instrument"
)

func TestAddVenueRejectsBeyondCapacity(t *testing.T) {
	t.Parallel()
	cfg := DefaultRouterConfig()
	cfg.MaxVenues = 1
	r := NewRouter(cfg)

	if !r.AddVenue(NewSimulator("a", DefaultConfig(), 1)) {
		t.Fatal("expected first venue to be accepted")
	}
	if r.AddVenue(NewSimulator("b", DefaultConfig(), 2)) {
		t.Fatal("expected second venue to be rejected at capacity")
	}
}

func TestRouteOrderRoundRobinsAcrossVenues(t *testing.T) {
	t.Parallel()
	r := NewRouter(DefaultRouterConfig())
	r.AddVenue(NewSimulator("a", DefaultConfig(), 1))
	r.AddVenue(NewSimulator("b", DefaultConfig(), 2))
	r.AddVenue(NewSimulator("c", DefaultConfig(), 3))

	o := Order{Quantity: 1, Type: instrument.OrderLimit, LimitPrice: instrument.PriceFromDecimal(99.5)}

	seen := make(map[string]int)
	for i := 0; i < 9; i++ {
		name, accepted := r.RouteOrder(o, 0)
		if !accepted {
			t.Fatalf("iteration %d: expected acceptance", i)
		}
		seen[name]++
	}

	for _, name := range []string{"a", "b", "c"} {
		if seen[name] != 3 {
			t.Fatalf("venue %q received %d orders, want 3 out of 9 round-robinned", name, seen[name])
		}
	}
}

func TestRouteOrderNoVenuesFails(t *testing.T) {
	t.Parallel()
	r := NewRouter(DefaultRouterConfig())
	if _, accepted := r.RouteOrder(Order{}, 0); accepted {
		t.Fatal("expected routing with no registered venues to fail")
	}
}

func TestProcessVenueResponsesDrainsIntoConsolidatedRing(t *testing.T) {
	t.Parallel()
	r := NewRouter(DefaultRouterConfig())
	r.AddVenue(NewSimulator("a", DefaultConfig(), 1))
	r.AddVenue(NewSimulator("b", DefaultConfig(), 2))

	o := Order{OrderID: 1, Quantity: 1, Type: instrument.OrderLimit, LimitPrice: instrument.PriceFromDecimal(99.5)}
	if _, accepted := r.RouteOrder(o, 0); !accepted {
		t.Fatal("expected order to be routed and accepted")
	}

	moved := r.ProcessVenueResponses()
	if moved == 0 {
		t.Fatal("expected at least one response to be moved into the consolidated ring")
	}

	if _, ok := r.Consolidated().TryPop(); !ok {
		t.Fatal("expected a response to be readable from the consolidated ring")
	}
}
