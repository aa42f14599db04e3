// Package instrument defines the Treasury tenor enumeration, the 32nd
// fractional price type, and yield<->price conversion, grounded on the
// source's treasury_instruments.hpp.
package instrument

import "fmt"

// Tenor is the dense 8-bit enumeration of the six supported Treasury
// instruments.
type Tenor uint8

const (
	Bill3M Tenor = iota
	Bill6M
	Note2Y
	Note5Y
	Note10Y
	Bond30Y

	tenorCount = 6
)

// ErrUnknownInstrument is returned by NormalizeID when the wire instrument
// id falls outside the recognized 1..6 range. The source falls through to
// Bill3M in this case (see §9 open questions); callers decide whether to
// surface or swallow this error, but the produced Tenor is always Bill3M
// when it is returned, matching the source's default behavior exactly.
var ErrUnknownInstrument = fmt.Errorf("instrument: unknown wire id")

// String renders the tenor's canonical name.
func (t Tenor) String() string {
	switch t {
	case Bill3M:
		return "Bill_3M"
	case Bill6M:
		return "Bill_6M"
	case Note2Y:
		return "Note_2Y"
	case Note5Y:
		return "Note_5Y"
	case Note10Y:
		return "Note_10Y"
	case Bond30Y:
		return "Bond_30Y"
	default:
		return "Unknown"
	}
}

// MaturityDays returns the nominal days-to-maturity used by the yield
// calculator for each tenor.
func (t Tenor) MaturityDays() int {
	switch t {
	case Bill3M:
		return 91
	case Bill6M:
		return 182
	case Note2Y:
		return 730
	case Note5Y:
		return 1825
	case Note10Y:
		return 3650
	case Bond30Y:
		return 10950
	default:
		return 91
	}
}

// NormalizeID maps the wire's 1..6 instrument id to a Tenor. Ids outside
// that range return Bill3M alongside ErrUnknownInstrument.
func NormalizeID(id uint32) (Tenor, error) {
	switch id {
	case 1:
		return Bill3M, nil
	case 2:
		return Bill6M, nil
	case 3:
		return Note2Y, nil
	case 4:
		return Note5Y, nil
	case 5:
		return Note10Y, nil
	case 6:
		return Bond30Y, nil
	default:
		return Bill3M, ErrUnknownInstrument
	}
}

// Side is a resting/incoming order's direction.
type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "Bid"
	}
	return "Ask"
}

// OrderType enumerates the supported order intents.
type OrderType uint8

const (
	OrderInvalid OrderType = iota
	OrderLimit
	OrderYieldLimit
	OrderMarket
	OrderCancel
)

// VenueID is a small fixed-width tag identifying one of up to MaxVenues
// registered execution venues. Cache-aligned records carry this instead of
// a venue name string, matching the source's VenueType byte field.
type VenueID uint8

// MaxVenues bounds the number of venues a single registry (OLM or
// position manager) can assign a VenueID to.
const MaxVenues = 8

// Price32nd is the fixed-point Treasury quote convention: whole points plus
// 32nds (0-31) plus half-32nds (0-1). It is exactly 8 bytes, matching the
// wire contract.
type Price32nd struct {
	Whole         uint16
	ThirtySeconds uint8
	HalfThirtySec uint8
	_             [4]byte
}

// ToDecimal converts to a plain decimal price.
func (p Price32nd) ToDecimal() float64 {
	return float64(p.Whole) + float64(p.ThirtySeconds)/32 + float64(p.HalfThirtySec)/64
}

// PriceFromDecimal truncates the whole part, converts the fractional part
// into 32nds, and rounds any remaining residual >= 0.5/32 into a
// half-32nd, matching the source's from_decimal.
func PriceFromDecimal(price float64) Price32nd {
	if price < 0 {
		price = 0
	}
	whole := uint16(price)
	frac := price - float64(whole)
	thirtySeconds32 := frac * 32
	ts := uint8(thirtySeconds32)
	residual := thirtySeconds32 - float64(ts)
	var half uint8
	if residual >= 0.5 {
		half = 1
	}
	// Carry: half-32nd rounding at the top of the 32nd range rolls into
	// the next whole 32nd, and 32 32nds roll into the next whole point.
	if half == 1 && ts == 31 && residual >= 1.0 {
		ts = 0
		half = 0
		whole++
	}
	if ts >= 32 {
		ts -= 32
		whole++
	}
	return Price32nd{Whole: whole, ThirtySeconds: ts, HalfThirtySec: half}
}
