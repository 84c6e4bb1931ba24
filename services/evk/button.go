package evk

import (
	"sync/atomic"

	"bd18398-evk/x/timex"
)

// Button turns edge interrupts into a single pending flag. After a press
// is consumed the button ignores further edges until the re-arm delay
// has passed, which also debounces the contact.
type Button struct {
	pending atomic.Bool
	armed   atomic.Bool

	clock   timex.Clock
	rearmUS uint32
	acking  bool
	at      timex.Ticks
}

func newButton(clk timex.Clock, cfg *Config) *Button {
	b := &Button{clock: clk, rearmUS: timex.US(cfg.ButtonRearm)}
	b.armed.Store(true)
	return b
}

// Press records a press. It is safe to call from interrupt context.
func (b *Button) Press() {
	if b.armed.CompareAndSwap(true, false) {
		b.pending.Store(true)
	}
}

// Pending reports and clears a recorded press. Presses arriving within
// one loop iteration collapse into one.
func (b *Button) Pending() bool {
	now := b.clock.Now()
	if b.acking && now.Since(b.at) > b.rearmUS {
		b.acking = false
		b.armed.Store(true)
	}
	if !b.pending.Swap(false) {
		return false
	}
	b.acking = true
	b.at = now
	return true
}
