package evk

import (
	"bd18398-evk/x/logx"
	"bd18398-evk/x/timex"
)

// LightState is the mode of a board indicator LED.
type LightState uint8

const (
	LightOff LightState = iota
	LightOn
	LightBlinkSlowStarting
	LightBlinkSlow
	LightBlinkFastStarting
	LightBlinkFast
)

func (s LightState) String() string {
	switch s {
	case LightOff:
		return "OFF"
	case LightOn:
		return "ON"
	case LightBlinkSlowStarting, LightBlinkSlow:
		return "SLOW"
	case LightBlinkFastStarting, LightBlinkFast:
		return "FAST"
	}
	return "?"
}

func (s LightState) blinking() bool { return s >= LightBlinkSlowStarting }

func (s LightState) fast() bool { return s == LightBlinkFastStarting || s == LightBlinkFast }

func (s LightState) slow() bool { return s == LightBlinkSlowStarting || s == LightBlinkSlow }

// Indicator is a board LED with solid and blinking modes. Blinking is
// advanced by Tick from the main loop and never blocks.
type Indicator struct {
	name      string
	board     Board
	pin       PinID
	activeLow bool
	clock     timex.Clock
	slowUS    uint32
	fastUS    uint32
	log       logx.Logf

	state  LightState
	lit    bool
	driven bool
	last   timex.Ticks
}

func newIndicator(name string, b Board, pin PinID, activeLow bool, clk timex.Clock, cfg *Config) Indicator {
	return Indicator{
		name:      name,
		board:     b,
		pin:       pin,
		activeLow: activeLow,
		clock:     clk,
		slowUS:    timex.US(cfg.SlowBlink),
		fastUS:    timex.US(cfg.FastBlink),
		log:       cfg.Logf,
	}
}

func (l *Indicator) State() LightState { return l.state }
func (l *Indicator) Lit() bool         { return l.lit }

func (l *Indicator) On() {
	l.state = LightOn
	l.drive(true)
}

func (l *Indicator) Off() {
	l.state = LightOff
	l.drive(false)
}

// Blink starts blinking. Re-requesting the current speed keeps the phase.
func (l *Indicator) Blink(fast bool) {
	switch {
	case fast && !l.state.fast():
		l.state = LightBlinkFastStarting
		l.log.Printf("%s LED blinking FAST\r\n", l.name)
	case !fast && !l.state.slow():
		l.state = LightBlinkSlowStarting
		l.log.Printf("%s LED blinking SLOW\r\n", l.name)
	}
}

// Free reports whether the LED is solid (on or off) and may be taken
// over by a blink request.
func (l *Indicator) Free() bool { return !l.state.blinking() }

// BlinkIfFree blinks only when the LED is not already blinking.
func (l *Indicator) BlinkIfFree(fast bool) {
	if l.Free() {
		l.Blink(fast)
	}
}

// Tick toggles a blinking LED once its half-period has elapsed. A
// freshly started blink toggles immediately.
func (l *Indicator) Tick() {
	var wait uint32
	switch l.state {
	case LightBlinkSlowStarting:
		l.state = LightBlinkSlow
	case LightBlinkFastStarting:
		l.state = LightBlinkFast
	case LightBlinkSlow:
		wait = l.slowUS
	case LightBlinkFast:
		wait = l.fastUS
	default:
		return
	}
	now := l.clock.Now()
	if wait == 0 || now.Since(l.last) > wait {
		l.last = now
		l.drive(!l.lit)
	}
}

func (l *Indicator) drive(lit bool) {
	if l.driven && l.lit == lit {
		return
	}
	l.lit, l.driven = lit, true
	l.board.SetPin(l.pin, lit != l.activeLow)
}
