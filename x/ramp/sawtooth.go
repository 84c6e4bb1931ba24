package ramp

import (
	"bd18398-evk/x/mathx"
	"bd18398-evk/x/timex"
)

// Sawtooth is a caller-driven rising ramp over [0..Top) that wraps to 0.
// It advances by one step at most once per Interval; calling Step faster
// than that is harmless, calling it slower simply stretches the cycle.
type Sawtooth struct {
	Top      uint16
	Interval uint32 // microseconds

	level uint16
	last  timex.Ticks
}

// Start restarts the ramp at level 1 with now as the last step time.
func (s *Sawtooth) Start(now timex.Ticks) {
	s.level = 1 % mathx.Max(s.Top, 1)
	s.last = now
}

// Step advances the ramp if Interval has elapsed since the last step and
// reports whether it moved.
func (s *Sawtooth) Step(now timex.Ticks) bool {
	if now.Since(s.last) < s.Interval {
		return false
	}
	s.level = mathx.WrapInc(s.level, s.Top)
	s.last = now
	return true
}

// Level is the raw ramp position.
func (s *Sawtooth) Level() uint16 { return s.level }

// At returns the ramp position shifted by offset, wrapped into [0..Top).
func (s *Sawtooth) At(offset uint16) uint16 {
	if s.Top == 0 {
		return 0
	}
	return uint16((uint32(s.level) + uint32(offset)) % uint32(s.Top))
}
