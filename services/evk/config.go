package evk

import (
	"time"

	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/x/logx"
)

// Config holds demo tuning. Zero values pick the EVK defaults.
type Config struct {
	MaxCurrentMA uint32        // per channel; default 500
	SmoothStep   time.Duration // smooth-cycle step; default 3ms
	SlowBlink    time.Duration // half-period; default 500ms
	FastBlink    time.Duration // half-period; default 100ms
	ButtonRearm  time.Duration // default 100ms

	AliveEvery      uint32 // loop iterations between "alive" prints; default 100000
	HandlerLogEvery uint32 // user handler print interval; default 10000

	// ReportErrorChanges prints the per-channel fault bits whenever they
	// differ from the previous poll.
	ReportErrorChanges bool

	// Idle is slept after each loop iteration; 0 spins.
	Idle time.Duration

	Logf logx.Logf
}

func (c *Config) applyDefaults() {
	if c.MaxCurrentMA == 0 {
		c.MaxCurrentMA = bd18398.DefaultMaxCurrentMA
	}
	if c.SmoothStep == 0 {
		c.SmoothStep = 3 * time.Millisecond
	}
	if c.SlowBlink == 0 {
		c.SlowBlink = 500 * time.Millisecond
	}
	if c.FastBlink == 0 {
		c.FastBlink = 100 * time.Millisecond
	}
	if c.ButtonRearm == 0 {
		c.ButtonRearm = 100 * time.Millisecond
	}
	if c.AliveEvery == 0 {
		c.AliveEvery = 100000
	}
	if c.HandlerLogEvery == 0 {
		c.HandlerLogEvery = 10000
	}
}
