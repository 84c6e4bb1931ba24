package bd18398

import (
	"bd18398-evk/errcode"
	"bd18398-evk/x/logx"
)

var (
	ErrBrightnessRange = errcode.New(errcode.InvalidArgument, "bd18398: brightness", "above 1023")
	ErrNilHandler      = errcode.New(errcode.InvalidArgument, "bd18398: handler", "nil handler")
	ErrUnknownKind     = errcode.New(errcode.InvalidArgument, "bd18398: handler", "unknown error kind")
	ErrSlotBusy        = errcode.New(errcode.Busy, "bd18398: handler", "slot occupied")
	ErrNotRegistered   = errcode.New(errcode.InvalidArgument, "bd18398: handler", "handler not registered")
	ErrChannelNotReady = errcode.New(errcode.NotReady, "bd18398: channel", "not initialized")
)

// Channel is one LED output of the IC. The cached enable and brightness
// values always equal the last value successfully written to (or read
// from) the hardware; failed writes leave them untouched.
//
// A Channel is not safe for concurrent use. It is driven from the main loop.
type Channel struct {
	id   int
	regs channelRegs
	t    Transport
	log  logx.Logf

	initialized bool
	enabled     bool
	brightness  uint16

	faulty    bool
	faultBits LEDStatus

	handlers [numErrorKinds]handlerSlot
	defLim   [numErrorKinds]logx.Limiter
}

// ChannelConfig is applied by Init. Zero values pick the EVK defaults.
type ChannelConfig struct {
	MaxCurrentMA uint32    // default DefaultMaxCurrentMA
	LogEvery     uint32    // default-handler print interval; 0 = 1000
	Logf         logx.Logf // nil discards
}

// Init binds the channel to index, reads back its enable bit and
// brightness, then programs max current and enables dimming. Failures
// of the last two are logged only.
func (c *Channel) Init(t Transport, index int, cfg ChannelConfig) error {
	if index < 0 || index >= NumChannels {
		return errcode.New(errcode.InvalidChannel, "bd18398: init", "channel index out of range")
	}
	if cfg.MaxCurrentMA == 0 {
		cfg.MaxCurrentMA = DefaultMaxCurrentMA
	}
	if cfg.LogEvery == 0 {
		cfg.LogEvery = 1000
	}

	*c = Channel{id: index, regs: chanTable[index], t: t, log: cfg.Logf}
	for i := range c.defLim {
		c.defLim[i].Every = cfg.LogEvery
	}

	en, err := t.ReadRegister(RegLEDEnable)
	if err != nil {
		return errcode.Wrap(errcode.NotReady, "bd18398: init enable", err)
	}
	lo, err := t.ReadRegister(c.regs.brightL)
	if err != nil {
		return errcode.Wrap(errcode.NotReady, "bd18398: init brightness", err)
	}
	hi, err := t.ReadRegister(c.regs.brightH)
	if err != nil {
		return errcode.Wrap(errcode.NotReady, "bd18398: init brightness", err)
	}
	c.enabled = en&c.regs.onMask != 0
	c.brightness = joinValue(hi, lo)
	c.initialized = true
	c.log.Printf("LED %d initial status %s, brightness %d\r\n", c.id, onOff(c.enabled), c.brightness)

	if clamped, err := c.SetMaxCurrent(cfg.MaxCurrentMA); err != nil {
		c.log.Printf("LED %d: failed to set max current to %d mA: %s\r\n", c.id, cfg.MaxCurrentMA, err.Error())
	} else if clamped {
		c.log.Printf("LED %d: ISET overflow for %d mA, clamped\r\n", c.id, cfg.MaxCurrentMA)
	}
	if err := c.SetDimming(true); err != nil {
		c.log.Printf("LED %d: failed to enable dimming: %s\r\n", c.id, err.Error())
	}
	return nil
}

func (c *Channel) Index() int         { return c.id }
func (c *Channel) Initialized() bool  { return c.initialized }
func (c *Channel) Enabled() bool      { return c.enabled }
func (c *Channel) Brightness() uint16 { return c.brightness }

func (c *Channel) On() error  { return c.SetEnabled(true) }
func (c *Channel) Off() error { return c.SetEnabled(false) }

// SetEnabled switches the output. Matching the cache is a no-op.
func (c *Channel) SetEnabled(on bool) error {
	if !c.initialized {
		return ErrChannelNotReady
	}
	if c.enabled == on {
		return nil
	}
	var v uint8
	if on {
		v = c.regs.onMask
	}
	if err := c.t.UpdateBits(RegLEDEnable, c.regs.onMask, v); err != nil {
		return errcode.Wrap(errcode.Of(err), "bd18398: set enabled", err)
	}
	c.enabled = on
	return nil
}

// SetDimming toggles PWM dimming. It is not cached; every call hits the IC.
func (c *Channel) SetDimming(on bool) error {
	if !c.initialized {
		return ErrChannelNotReady
	}
	var v uint8
	if on {
		v = c.regs.dimMask
	}
	return c.t.UpdateBits(RegLEDEnable, c.regs.dimMask, v)
}

// SetBrightness writes a 10-bit brightness, high byte first. If the low
// byte fails the high byte is rolled back to the cached value.
func (c *Channel) SetBrightness(v uint16) error {
	if v > BrightnessMax {
		return ErrBrightnessRange
	}
	if !c.initialized {
		return ErrChannelNotReady
	}
	if v == c.brightness {
		return nil
	}
	prev, _ := splitValue(c.brightness)
	if err := c.writeValue(c.regs.brightH, c.regs.brightL, v, prev, true); err != nil {
		return err
	}
	c.brightness = v
	return nil
}

// SetMaxCurrent programs ISET for mA. It always writes; clamped reports
// that the request exceeded the 10-bit range.
func (c *Channel) SetMaxCurrent(mA uint32) (clamped bool, err error) {
	if !c.initialized {
		return false, ErrChannelNotReady
	}
	iset, clamped := ComputeISET(mA)
	return clamped, c.writeValue(c.regs.isetH, c.regs.isetL, iset, 0, false)
}

func (c *Channel) writeValue(regH, regL uint8, v uint16, prevHi uint8, rollback bool) error {
	hi, lo := splitValue(v)
	if err := c.t.WriteRegister(regH, hi, true); err != nil {
		return errcode.Wrap(errcode.Of(err), "bd18398: write high", err)
	}
	if err := c.t.WriteRegister(regL, lo, true); err != nil {
		if rollback {
			_ = c.t.WriteRegister(regH, prevHi, true)
		}
		return errcode.Wrap(errcode.Of(err), "bd18398: write low", err)
	}
	return nil
}

// MarkFaulty records observed error bits. The output is left as is.
func (c *Channel) MarkFaulty(bits LEDStatus) {
	c.faulty = true
	c.faultBits |= bits & LEDStatusMask
}

// ClearFault drops the fault flag and returns the bits it held.
func (c *Channel) ClearFault() LEDStatus {
	prev := c.faultBits
	c.faulty = false
	c.faultBits = 0
	return prev
}

func (c *Channel) Faulty() bool           { return c.faulty }
func (c *Channel) FaultStatus() LEDStatus { return c.faultBits }

// RegisterHandler installs h for kind. Each slot holds one handler.
func (c *Channel) RegisterHandler(kind ErrorKind, h Handler, opaque any) error {
	if h == nil {
		return ErrNilHandler
	}
	if kind >= numErrorKinds {
		return ErrUnknownKind
	}
	if !c.initialized {
		return ErrChannelNotReady
	}
	s := &c.handlers[kind]
	if s.h != nil {
		return ErrSlotBusy
	}
	s.h, s.opaque = h, opaque
	return nil
}

// UnregisterHandler empties the slot for kind if it holds h.
func (c *Channel) UnregisterHandler(kind ErrorKind, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	if kind >= numErrorKinds {
		return ErrUnknownKind
	}
	if !c.initialized {
		return ErrChannelNotReady
	}
	s := &c.handlers[kind]
	if s.h == nil || s.h != h {
		return ErrNotRegistered
	}
	*s = handlerSlot{}
	return nil
}

// handle runs exactly one handler per set error bit, ascending: the
// registered one, otherwise the rate-limited default print.
func (c *Channel) handle(st LEDStatus) {
	for k := ErrorKind(0); k < numErrorKinds; k++ {
		if !st.Has(k.Bit()) {
			continue
		}
		if s := c.handlers[k]; s.h != nil {
			s.h.HandleLEDError(c, s.opaque)
			continue
		}
		if c.defLim[k].Allow() {
			c.log.Printf("LED %d %s\r\n", c.id, k.String())
		}
	}
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
