package instrument

import (
	"math"

	"github.com/shopspring/decimal"
)

// Face is the notional face value used by the yield calculator, matching
// the source's FACE constant.
const Face = 1_000_000.0

const (
	yieldInitialGuess  = 0.02
	yieldMaxIterations = 8
	yieldEpsilon       = 1e-8
)

// PriceToYield solves P = Face / (1 + y*t) for y via Newton-Raphson,
// starting from a 2% guess, capped at 8 iterations, converging when the
// per-step delta drops below 1e-8. The result is rounded to 4 decimals.
func PriceToYield(price Price32nd, daysToMaturity int) float64 {
	p := price.ToDecimal() / 100 * Face
	t := float64(daysToMaturity) / 365
	y := yieldInitialGuess

	for i := 0; i < yieldMaxIterations; i++ {
		denom := 1 + y*t
		f := Face/denom - p
		df := -Face * t / (denom * denom)
		delta := f / df
		y -= delta
		if math.Abs(delta) < yieldEpsilon {
			break
		}
	}
	return roundTo4(y)
}

// YieldToPrice is the closed-form inverse of PriceToYield.
func YieldToPrice(yield float64, daysToMaturity int) Price32nd {
	t := float64(daysToMaturity) / 365
	denom := 1 + yield*t
	priceDecimal := (Face / denom) / Face * 100
	return PriceFromDecimal(priceDecimal)
}

// roundTo4 quantizes v to 4 decimal places via decimal.Decimal, avoiding
// the residual binary float64 error math.Round(v*10000)/10000 can leave
// in the last digit for yields with repeating binary fractions.
func roundTo4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}
