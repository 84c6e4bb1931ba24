package timex

import "time"

// Ticks is a free-running microsecond counter. It wraps after ~71 minutes;
// differences taken with Since stay correct across one wrap.
type Ticks uint32

// Since returns the microseconds from then to now, wrap-safe.
func (now Ticks) Since(then Ticks) uint32 { return uint32(now - then) }

// Clock is the time source used by the demo loop and board indicators.
type Clock interface {
	Now() Ticks
	ElapsedUS(since Ticks) uint32
}

// System reads the runtime monotonic clock.
type System struct{ start time.Time }

func NewSystem() *System { return &System{start: time.Now()} }

func (s *System) Now() Ticks { return Ticks(time.Since(s.start).Microseconds()) }

func (s *System) ElapsedUS(since Ticks) uint32 { return s.Now().Since(since) }

// Manual is a Clock advanced explicitly; used by tests and the simulator.
type Manual struct{ t Ticks }

func (m *Manual) Now() Ticks { return m.t }

func (m *Manual) ElapsedUS(since Ticks) uint32 { return m.t.Since(since) }

// Advance moves the clock forward by d (microsecond resolution).
func (m *Manual) Advance(d time.Duration) { m.t += Ticks(d / time.Microsecond) }

// US converts a duration to whole microseconds for comparison with ElapsedUS.
func US(d time.Duration) uint32 { return uint32(d / time.Microsecond) }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}
