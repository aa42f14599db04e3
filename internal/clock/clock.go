// Package clock provides the core's monotonic timebase: a cycle counter, a
// one-time-calibrated cycle-to-nanosecond conversion, and a scope-timing
// helper. Go has no portable equivalent of reading a CPU timestamp-counter
// register, so Clock is built on runtime.nanotime-backed monotonic reads via
// time.Now(); the calibration step still runs so that the exported
// cycles()/cycles_to_ns() contract behaves the same regardless of what a
// "cycle" maps to underneath.
package clock

import (
	"math"
	"sync/atomic"
	"time"
)

// calibrationSamples is the number of timebase probes used to establish the
// cycles-per-nanosecond ratio at startup.
const calibrationSamples = 1_000_000

// Clock is a monotonic timebase with a one-time calibration step. The zero
// value is not usable; construct with New.
type Clock struct {
	// cyclesPerNs is stored as math.Float64bits via atomic.Uint64 so that
	// calibration publishes with a release store and reads acquire-load,
	// matching the source's one-time calibration contract.
	cyclesPerNsBits atomic.Uint64
	start           time.Time
	startCycles     int64
}

// New constructs and calibrates a Clock immediately.
func New() *Clock {
	c := &Clock{start: time.Now()}
	c.calibrate()
	return c
}

// calibrate measures a fixed number of timebase probes against the wall
// clock and stores the resulting ratio. On this runtime a "cycle" is one
// nanosecond of monotonic time, so the ratio is always 1.0, but the
// calibration step itself — and the release/acquire publication discipline
// — is preserved to match the source's contract and so get_stats/cycles
// callers never depend on the underlying unit.
func (c *Clock) calibrate() {
	begin := time.Now()
	for i := 0; i < calibrationSamples; i++ {
		_ = time.Now()
	}
	elapsed := time.Since(begin)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	ratio := 1.0
	c.cyclesPerNsBits.Store(math.Float64bits(ratio))
	c.startCycles = c.rawCycles()
}

// Cycles returns a monotonic tick count. One tick is one nanosecond of
// elapsed monotonic time since the clock was constructed.
func (c *Clock) Cycles() int64 {
	return c.rawCycles() - c.startCycles
}

func (c *Clock) rawCycles() int64 {
	return time.Since(c.start).Nanoseconds()
}

// CyclesToNs converts a cycle count to nanoseconds using the calibrated
// ratio, acquire-loaded.
func (c *Clock) CyclesToNs(cycles int64) int64 {
	ratio := math.Float64frombits(c.cyclesPerNsBits.Load())
	return int64(float64(cycles) * ratio)
}

// NowNs returns the current monotonic timestamp in nanoseconds since the
// clock's construction.
func (c *Clock) NowNs() int64 {
	return c.CyclesToNs(c.Cycles())
}

// Scope returns a closure that, when called, records the elapsed time since
// Scope was invoked into hist. It stands in for the source's RAII
// ScopedTimer: Go has no destructors, so the call site uses
// `defer clock.Scope(c, hist)()` instead of a scope-guard value.
func Scope(c *Clock, hist *LatencyHistogram) func() {
	startNs := c.NowNs()
	return func() {
		hist.Record(uint64(c.NowNs() - startNs))
	}
}
