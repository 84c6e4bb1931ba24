// Package bd18398 drives the ROHM BD18398 3-channel LED driver over its
// CRC-framed SPI register interface.
package bd18398

import (
	"time"

	"bd18398-evk/errcode"
	"bd18398-evk/x/logx"
)

var ErrWLock = errcode.New(errcode.NotReady, "bd18398: configure", "WLOCK did not stick")

// Config holds the device-wide settings. Zero values pick the EVK defaults.
type Config struct {
	MaxCurrentMA uint32 // per channel, default 500 mA
	LogEvery     uint32 // rate limit for default diagnostics, default 1000
	Logf         logx.Logf
	Indicator    FaultIndicator
	// Sleep is used for bring-up delays; nil uses time.Sleep.
	Sleep func(time.Duration)
}

// Device owns the three channels and the fault dispatcher.
type Device struct {
	t     Transport
	cfg   Config
	chans [NumChannels]Channel
	disp  Dispatcher
}

func New(t Transport, cfg Config) *Device {
	if cfg.MaxCurrentMA == 0 {
		cfg.MaxCurrentMA = DefaultMaxCurrentMA
	}
	if cfg.LogEvery == 0 {
		cfg.LogEvery = 1000
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	d := &Device{t: t, cfg: cfg}
	d.disp = Dispatcher{t: t, chans: &d.chans, ind: cfg.Indicator, log: cfg.Logf}
	d.disp.setLimit(cfg.LogEvery)
	return d
}

// resetSettle covers the 10 ms reset pulse plus the 200 ms the IC needs
// before it accepts the second wake.
const resetSettle = 210 * time.Millisecond

// waker is implemented by transports that can pulse chip-select alone.
type waker interface{ Wake(hold time.Duration) }

// Configure brings the IC up: CS wake pulse, soft reset, settle, second
// wake pulse, then WLOCK with read-back.
func (d *Device) Configure() error {
	d.wake()
	if err := d.t.WriteRegister(RegSystem, SysReset, false); err != nil {
		return errcode.Wrap(errcode.Of(err), "bd18398: reset", err)
	}
	d.cfg.Sleep(resetSettle)
	d.wake()

	if err := d.t.UpdateBits(RegSystem, SysWLock, SysWLock); err != nil {
		d.cfg.Logf.Printf("failed to set WLOCK: %s\r\n", err.Error())
	}
	v, err := d.t.ReadRegister(RegSystem)
	if err != nil {
		return errcode.Wrap(errcode.Of(err), "bd18398: wlock readback", err)
	}
	if v&SysWLock == 0 {
		return ErrWLock
	}
	return nil
}

func (d *Device) wake() {
	if w, ok := d.t.(waker); ok {
		w.Wake(time.Millisecond)
	}
}

// InitChannel initializes channel index with the configured max current.
func (d *Device) InitChannel(index int) (*Channel, error) {
	return d.InitChannelCurrent(index, d.cfg.MaxCurrentMA)
}

// InitChannelCurrent initializes channel index with an explicit max current.
func (d *Device) InitChannelCurrent(index int, maxCurrentMA uint32) (*Channel, error) {
	if index < 0 || index >= NumChannels {
		return nil, errcode.New(errcode.InvalidChannel, "bd18398: init", "channel index out of range")
	}
	ch := &d.chans[index]
	err := ch.Init(d.t, index, ChannelConfig{
		MaxCurrentMA: maxCurrentMA,
		LogEvery:     d.cfg.LogEvery,
		Logf:         d.cfg.Logf,
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Channel returns channel index, or nil when out of range. The channel
// may still be uninitialized.
func (d *Device) Channel(index int) *Channel {
	if index < 0 || index >= NumChannels {
		return nil
	}
	return &d.chans[index]
}

func (d *Device) Transport() Transport           { return d.t }
func (d *Device) Dispatcher() *Dispatcher        { return &d.disp }
func (d *Device) PollStatus() (bool, Status)     { return d.disp.PollStatus() }
func (d *Device) Dispatch(st Status)             { d.disp.Dispatch(st) }
func (d *Device) FaultAll()                      { d.disp.FaultAll() }
func (d *Device) SetIndicator(fi FaultIndicator) { d.disp.ind = fi }
