package instrument

import (
	"math"
	"testing"
)

func TestNormalizeIDKnownTenors(t *testing.T) {
	t.Parallel()
	cases := map[uint32]Tenor{1: Bill3M, 2: Bill6M, 3: Note2Y, 4: Note5Y, 5: Note10Y, 6: Bond30Y}
	for id, want := range cases {
		got, err := NormalizeID(id)
		if err != nil {
			t.Fatalf("id %d: unexpected error %v", id, err)
		}
		if got != want {
			t.Fatalf("id %d: got %v want %v", id, got, want)
		}
	}
}

func TestNormalizeIDUnknownFallsThroughToBill3M(t *testing.T) {
	t.Parallel()
	got, err := NormalizeID(99)
	if err != ErrUnknownInstrument {
		t.Fatalf("expected ErrUnknownInstrument, got %v", err)
	}
	if got != Bill3M {
		t.Fatalf("unknown id should default to Bill3M, got %v", got)
	}
}

func TestPriceFromDecimalTickScenario(t *testing.T) {
	t.Parallel()
	ask := PriceFromDecimal(99.515625)
	if ask.Whole != 99 {
		t.Fatalf("ask.Whole = %d, want 99", ask.Whole)
	}
	if ask.ThirtySeconds != 16 {
		t.Fatalf("ask.ThirtySeconds = %d, want 16", ask.ThirtySeconds)
	}
	if ask.HalfThirtySec != 1 {
		t.Fatalf("ask.HalfThirtySec = %d, want 1", ask.HalfThirtySec)
	}

	bid := PriceFromDecimal(99.5)
	if bid.Whole != 99 {
		t.Fatalf("bid.Whole = %d, want 99", bid.Whole)
	}
}

func TestPriceRoundTripTolerance(t *testing.T) {
	t.Parallel()
	for p := 0.0; p <= 128; p += 0.37 {
		got := PriceFromDecimal(p).ToDecimal()
		if diff := math.Abs(got - p); diff > 1.0/64 {
			t.Fatalf("round trip for %v: got %v, diff %v exceeds 1/64", p, got, diff)
		}
	}
}

func TestYieldRoundTripTolerance(t *testing.T) {
	t.Parallel()
	for _, days := range []int{91, 182, 730, 1825, 3650, 10950} {
		for y := 0.01; y <= 0.05; y += 0.005 {
			price := YieldToPrice(y, days)
			got := PriceToYield(price, days)
			if diff := math.Abs(got - y); diff > 1e-4 {
				t.Fatalf("days=%d yield=%v: round trip diff %v exceeds 1e-4", days, y, diff)
			}
		}
	}
}
