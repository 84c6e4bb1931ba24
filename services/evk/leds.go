package evk

import (
	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/errcode"
	"bd18398-evk/x/logx"
	"bd18398-evk/x/ramp"
	"bd18398-evk/x/timex"
)

// Pattern is what a demo LED shows.
type Pattern uint8

const (
	PatternOff Pattern = iota
	PatternFullOn
	PatternSmooth
)

func (p Pattern) String() string {
	switch p {
	case PatternOff:
		return "off"
	case PatternFullOn:
		return "full"
	case PatternSmooth:
		return "smooth"
	}
	return "?"
}

// Phase shifts a smooth cycle by a quarter period per step.
type Phase uint8

const (
	PhaseStart Phase = iota
	PhaseQuarterPast
	PhaseHalf
	PhaseQuarterTo
)

func (p Phase) offset() uint16 { return uint16(p&3) * (rampTop / 4) }

const rampTop = bd18398.BrightnessMax + 1

type demoLED struct {
	ch      *bd18398.Channel
	pattern Pattern
	phase   Phase
	ramp    ramp.Sawtooth
}

// LEDs animates the three IC channels.
type LEDs struct {
	leds  [bd18398.NumChannels]demoLED
	clock timex.Clock
	log   logx.Logf
}

func newLEDs(clk timex.Clock, cfg *Config) LEDs {
	l := LEDs{clock: clk, log: cfg.Logf}
	for i := range l.leds {
		l.leds[i].ramp = ramp.Sawtooth{Top: rampTop, Interval: timex.US(cfg.SmoothStep)}
	}
	return l
}

func (l *LEDs) attach(i int, ch *bd18398.Channel) { l.leds[i].ch = ch }

// Channel returns the driver channel behind LED i, or nil.
func (l *LEDs) Channel(i int) *bd18398.Channel {
	if i < 0 || i >= len(l.leds) {
		return nil
	}
	return l.leds[i].ch
}

// Pattern returns the current pattern and phase of LED i.
func (l *LEDs) Pattern(i int) (Pattern, Phase) {
	if i < 0 || i >= len(l.leds) {
		return PatternOff, PhaseStart
	}
	return l.leds[i].pattern, l.leds[i].phase
}

// SetState selects pattern and phase for LED i. The phase always
// updates; hardware is only touched when the pattern changes. The
// pattern is recorded only once the hardware accepted it, so a failed
// change is retried on the next call.
func (l *LEDs) SetState(i int, p Pattern, ph Phase) error {
	if i < 0 || i >= len(l.leds) {
		return errcode.InvalidChannel
	}
	d := &l.leds[i]
	if d.ch == nil {
		return errcode.NotReady
	}
	d.phase = ph
	if p == d.pattern {
		return nil
	}

	var err error
	switch p {
	case PatternOff:
		err = firstErr(d.ch.Off(), d.ch.SetBrightness(0))
	case PatternFullOn:
		err = firstErr(d.ch.On(), d.ch.SetBrightness(bd18398.BrightnessMax))
	case PatternSmooth:
		d.ramp.Start(l.clock.Now())
		err = firstErr(d.ch.On(), d.ch.SetBrightness(d.ramp.At(ph.offset())))
	default:
		return errcode.InvalidArgument
	}
	if err != nil {
		return err
	}
	d.pattern = p
	return nil
}

// Tick advances smooth-cycling LEDs, at most one step per SmoothStep.
func (l *LEDs) Tick() {
	now := l.clock.Now()
	for i := range l.leds {
		d := &l.leds[i]
		if d.ch == nil || d.pattern != PatternSmooth {
			continue
		}
		if !d.ramp.Step(now) {
			continue
		}
		if err := d.ch.SetBrightness(d.ramp.At(d.phase.offset())); err != nil {
			l.log.Printf("LED %d: failed to set brightness: %s\r\n", i, err.Error())
		}
	}
}

// CancelAllFaults clears every channel's fault flag and returns the bits
// each one held.
func (l *LEDs) CancelAllFaults() (cleared [bd18398.NumChannels]bd18398.LEDStatus) {
	for i := range l.leds {
		if ch := l.leds[i].ch; ch != nil {
			cleared[i] = ch.ClearFault()
		}
	}
	return cleared
}

// Errors returns the fault bits currently recorded per channel.
func (l *LEDs) Errors() (active [bd18398.NumChannels]bd18398.LEDStatus) {
	for i := range l.leds {
		if ch := l.leds[i].ch; ch != nil {
			active[i] = ch.FaultStatus()
		}
	}
	return active
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
