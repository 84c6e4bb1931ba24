// Package evk runs the BD18398 evaluation-kit demo: a button-driven
// sequence of LED patterns on top of continuous IC status polling.
package evk

import (
	"context"
	"runtime"
	"time"

	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/x/logx"
	"bd18398-evk/x/timex"
)

var handlerInfo = [bd18398.NumChannels]string{
	"LED1 - this could be information for handler",
	"LED2 - this could be information for handler",
	"LED3 - this could be information for handler",
}

// Demo owns the main loop state. Everything except Button.Press and the
// console input channel is touched from the loop goroutine only.
type Demo struct {
	cfg   Config
	dev   *bd18398.Device
	board Board
	clock timex.Clock
	log   logx.Logf

	leds   LEDs
	errLED Indicator
	indLED Indicator
	button *Button

	state     State
	lastFault [bd18398.NumChannels]bd18398.LEDStatus
	alive     logx.Limiter

	shortH   bd18398.HandlerFunc
	openH    bd18398.HandlerFunc
	shortLim [bd18398.NumChannels]logx.Limiter
	openLim  [bd18398.NumChannels]logx.Limiter

	console *Console
	input   <-chan string
}

// New wires a demo around dev. The ERR LED becomes the device's fault
// indicator.
func New(dev *bd18398.Device, board Board, clk timex.Clock, cfg Config) *Demo {
	cfg.applyDefaults()
	d := &Demo{
		cfg:   cfg,
		dev:   dev,
		board: board,
		clock: clk,
		log:   cfg.Logf,
		state: StateUninit,
	}
	d.leds = newLEDs(clk, &d.cfg)
	d.errLED = newIndicator("ERR", board, PinErrLED, true, clk, &d.cfg)
	d.indLED = newIndicator("IND", board, PinIndLED, false, clk, &d.cfg)
	d.button = newButton(clk, &d.cfg)
	d.alive.Every = cfg.AliveEvery
	for i := range d.shortLim {
		d.shortLim[i].Every = cfg.HandlerLogEvery
		d.openLim[i].Every = cfg.HandlerLogEvery
	}
	d.shortH.Fn = d.onShort
	d.openH.Fn = d.onOpen
	d.console = newConsole(d)
	dev.SetIndicator(&d.errLED)
	return d
}

// Setup brings up the IC and all channels. Channel failures are logged
// and the channel is left out of the demo; a bring-up failure is
// returned but the demo remains usable (status polling will report it).
func (d *Demo) Setup() error {
	err := d.dev.Configure()
	if err != nil {
		d.log.Printf("IC bring-up failed: %s\r\n", err.Error())
	}
	d.indLED.On()
	d.errLED.Off()

	for i := 0; i < bd18398.NumChannels; i++ {
		ch, cerr := d.dev.InitChannelCurrent(i, d.cfg.MaxCurrentMA)
		if cerr != nil {
			d.log.Printf("LED %d init failed: %s\r\n", i, cerr.Error())
			continue
		}
		if e := ch.RegisterHandler(bd18398.ErrShort, &d.shortH, handlerInfo[i]); e != nil {
			d.log.Printf("could not register SHORT handler for LED %d: %s\r\n", i, e.Error())
		}
		if e := ch.RegisterHandler(bd18398.ErrOpen, &d.openH, nil); e != nil {
			d.log.Printf("could not register OPEN handler for LED %d: %s\r\n", i, e.Error())
		}
		if e := firstErr(ch.Off(), ch.SetBrightness(0)); e != nil {
			d.log.Printf("LED %d: failed to set brightness: %s\r\n", i, e.Error())
		}
		d.leds.attach(i, ch)
	}
	return err
}

// Input attaches a source of console lines, consumed one per iteration.
func (d *Demo) Input(lines <-chan string) { d.input = lines }

func (d *Demo) Button() *Button         { return d.button }
func (d *Demo) Console() *Console       { return d.console }
func (d *Demo) State() State            { return d.state }
func (d *Demo) LEDs() *LEDs             { return &d.leds }
func (d *Demo) ErrLED() *Indicator      { return &d.errLED }
func (d *Demo) IndLED() *Indicator      { return &d.indLED }
func (d *Demo) Device() *bd18398.Device { return d.dev }

// Run steps the loop until ctx is cancelled.
func (d *Demo) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.Step()
		if d.cfg.Idle > 0 {
			time.Sleep(d.cfg.Idle)
		} else {
			runtime.Gosched()
		}
	}
}

// Step runs one loop iteration to completion.
func (d *Demo) Step() {
	d.errLED.Tick()
	d.indLED.Tick()

	// In Limp the IC watchdog is left to expire.
	if d.state != StatePush5Limp {
		d.leds.Tick()
		if fault, st := d.dev.PollStatus(); fault {
			d.handleFault(st)
		} else {
			d.errLED.Off()
			d.indLED.On()
		}
	} else {
		d.indLED.Off()
	}

	if d.button.Pending() {
		d.enter(d.state.Next())
	} else if d.state == StateUninit {
		d.enter(StateStarted)
	}

	if d.input != nil {
		select {
		case line := <-d.input:
			if err := d.console.Exec(line); err != nil {
				d.log.Printf("console: %s\r\n", err.Error())
			}
		default:
		}
	}

	if d.alive.Allow() {
		d.log.Printf("DEMO Alive\r\n")
	}
}

// handleFault clears cached faults so only still-active ones get
// re-marked by the dispatcher, then updates the ERR LED from the
// difference.
func (d *Demo) handleFault(st bd18398.Status) {
	cleared := d.leds.CancelAllFaults()
	d.dev.Dispatch(st)
	active := d.leds.Errors()

	var clr, act bd18398.LEDStatus
	for i := range active {
		clr |= cleared[i]
		act |= active[i]
	}
	if d.cfg.ReportErrorChanges && active != d.lastFault {
		d.log.Printf("LED error status change - prev 0x%x 0x%x 0x%x now 0x%x 0x%x 0x%x\r\n",
			uint8(d.lastFault[0]), uint8(d.lastFault[1]), uint8(d.lastFault[2]),
			uint8(active[0]), uint8(active[1]), uint8(active[2]))
	}
	d.lastFault = active

	// SHORT keeps the LED solid. Otherwise a vanished SHORT or OPEN frees
	// the LED so lower-priority errors show on the next poll.
	if !act.Has(bd18398.LEDShort) {
		if clr.Has(bd18398.LEDShort) {
			d.errLED.Off()
		}
		if !act.Has(bd18398.LEDOpen) && clr.Has(bd18398.LEDOpen) {
			d.errLED.Off()
		}
	}
}

type ledStep struct {
	p  Pattern
	ph Phase
}

var stateTable = [numStates][bd18398.NumChannels]ledStep{
	StateStarted:   {{PatternFullOn, PhaseStart}, {PatternOff, PhaseStart}, {PatternOff, PhaseStart}},
	StatePush1:     {{PatternFullOn, PhaseStart}, {PatternFullOn, PhaseStart}, {PatternOff, PhaseStart}},
	StatePush2:     {{PatternFullOn, PhaseStart}, {PatternFullOn, PhaseStart}, {PatternFullOn, PhaseStart}},
	StatePush3:     {{PatternSmooth, PhaseStart}, {PatternSmooth, PhaseStart}, {PatternSmooth, PhaseStart}},
	StatePush4:     {{PatternSmooth, PhaseStart}, {PatternSmooth, PhaseQuarterPast}, {PatternSmooth, PhaseHalf}},
	StatePush5Limp: {{PatternOff, PhaseStart}, {PatternOff, PhaseStart}, {PatternOff, PhaseStart}},
}

var stateBanner = [numStates]string{
	"Set start state - ind-on, led1 FULL, led2 OFF, led3 OFF",
	"Set state 2 - led1 FULL, led2 FULL, led3 OFF",
	"Set state 3 - led1 FULL, led2 FULL, led3 FULL",
	"Set state 4 - CYCLE ALL same phase",
	"Set state 5 - CYCLE ALL different phase",
	"Set state 6 - LIMP HOME - all channels OFF, status polling stopped",
}

func (d *Demo) enter(s State) {
	if s < 0 || s >= numStates {
		return
	}
	d.state = s
	d.log.Printf("%s\r\n", stateBanner[s])
	if s == StateStarted {
		d.indLED.On()
	}
	for i, step := range stateTable[s] {
		if err := d.leds.SetState(i, step.p, step.ph); err != nil {
			d.log.Printf("LED %d: %s failed: %s\r\n", i, step.p.String(), err.Error())
		}
	}
	if s == StatePush5Limp {
		d.errLED.Off()
	}
}

// onShort is the SHORT handler registered on every channel. SHORT has
// precedence, so the ERR LED goes solid unconditionally.
func (d *Demo) onShort(ch *bd18398.Channel, opaque any) {
	i := ch.Index()
	if d.shortLim[i].Allow() {
		d.log.Printf("User SHORT handler for led %d\r\n", i)
	}
	d.errLED.On()
}

// onOpen blinks the ERR LED fast unless a SHORT already holds it solid.
func (d *Demo) onOpen(ch *bd18398.Channel, opaque any) {
	i := ch.Index()
	if d.openLim[i].Allow() {
		d.log.Printf("User OPEN handler for led %d\r\n", i)
	}
	if s := d.errLED.State(); s == LightOn || s.fast() {
		return
	}
	d.errLED.Blink(true)
}
