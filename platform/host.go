//go:build !rp2040

package platform

import (
	"context"
	"io"

	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/drivers/bd18398/sim"
	"bd18398-evk/errcode"
	"bd18398-evk/services/evk"
	"bd18398-evk/x/logx"
	"bd18398-evk/x/strconvx"
	"bd18398-evk/x/timex"
)

var pinNames = [...]string{evk.PinErrLED: "ERR", evk.PinIndLED: "IND", evk.PinButton: "BUTTON"}

// Host runs the demo against the simulated IC. Board pins only print
// their transitions.
type Host struct {
	clock timex.Clock
	ic    *sim.Sim
	spi   *bd18398.SPI
	log   logx.Logf

	levels [len(pinNames)]bool
}

func NewHost(clk timex.Clock, log logx.Logf) *Host {
	h := &Host{clock: clk, ic: sim.New(clk), log: log}
	h.spi = bd18398.NewSPI(h.ic, h.ic.CS, bd18398.SPIConfig{})
	return h
}

func (h *Host) Transport() *bd18398.SPI { return h.spi }
func (h *Host) IC() *sim.Sim            { return h.ic }

func (h *Host) SetPin(id evk.PinID, level bool) {
	if int(id) >= len(h.levels) || h.levels[id] == level {
		return
	}
	h.levels[id] = level
	h.log.Printf("%s pin %s\r\n", pinNames[id], highLow(level))
}

func (h *Host) ReadPin(id evk.PinID) bool {
	if int(id) < len(h.levels) {
		return h.levels[id]
	}
	return false
}

func (h *Host) ConfigurePWM(ch int, freqHz uint32, duty uint16, activeHigh bool) error {
	if ch < 0 || ch >= bd18398.NumChannels {
		return errcode.InvalidChannel
	}
	h.log.Printf("PWM%d %d Hz duty %d/1023 active-%s\r\n", ch+1, freqHz, duty, highLow(activeHigh))
	return nil
}

// Console reads command lines from r, typically stdin.
func (h *Host) Console(ctx context.Context, r io.Reader) <-chan string {
	l := NewLines(256, 8)
	go func() {
		_ = l.Pump(ctx, func(_ context.Context, buf []byte) (int, error) { return r.Read(buf) })
	}()
	return l.C()
}

// RegisterCommands adds fault-injection commands for the simulated IC.
func (h *Host) RegisterCommands(c *evk.Console) {
	c.Register(evk.Command{Name: "fault", Usage: "fault <ch> short|open|swocp|ledocp|none...", Run: h.fault})
	c.Register(evk.Command{Name: "supply", Usage: "supply uvlo|pinuvlo|none", Run: h.supply})
	c.Register(evk.Command{Name: "clear", Usage: "clear", Run: h.clear})
	c.Register(evk.Command{Name: "regs", Usage: "regs", Run: h.regs})
}

var faultNames = map[string]bd18398.LEDStatus{
	"short":  bd18398.LEDShort,
	"open":   bd18398.LEDOpen,
	"swocp":  bd18398.LEDSwOCP,
	"ledocp": bd18398.LEDLEDOCP,
	"none":   0,
}

func (h *Host) fault(args []string) error {
	const u = "usage: fault <ch> short|open|swocp|ledocp|none..."
	if len(args) < 2 {
		return errcode.New(errcode.InvalidArgument, "sim", u)
	}
	ch, err := strconvx.ParseUint(args[0], 10, 8)
	if err != nil || ch >= bd18398.NumChannels {
		return errcode.New(errcode.InvalidChannel, "sim", "channel must be 0..2")
	}
	var st bd18398.LEDStatus
	for _, a := range args[1:] {
		bit, ok := faultNames[a]
		if !ok {
			return errcode.New(errcode.InvalidArgument, "sim", u)
		}
		st |= bit
	}
	h.ic.InjectLEDFault(int(ch), st)
	return nil
}

func (h *Host) supply(args []string) error {
	if len(args) != 1 {
		return errcode.New(errcode.InvalidArgument, "sim", "usage: supply uvlo|pinuvlo|none")
	}
	switch args[0] {
	case "uvlo":
		h.ic.InjectSupply(bd18398.StatusUVLO)
	case "pinuvlo":
		h.ic.InjectSupply(bd18398.StatusPinUVLO)
	case "none":
		h.ic.InjectSupply(0)
	default:
		return errcode.New(errcode.InvalidArgument, "sim", "usage: supply uvlo|pinuvlo|none")
	}
	return nil
}

func (h *Host) clear([]string) error {
	h.ic.ClearFaults()
	return nil
}

func (h *Host) regs([]string) error {
	h.ic.Poll()
	h.log.Printf("sys 0x%02x enable 0x%02x limp %t\r\n",
		h.ic.Reg(bd18398.RegSystem), h.ic.Reg(bd18398.RegLEDEnable), h.ic.Limp())
	isetH := [...]uint8{bd18398.RegISET1H, bd18398.RegISET2H, bd18398.RegISET3H}
	dpwmH := [...]uint8{bd18398.RegDPWM1H, bd18398.RegDPWM2H, bd18398.RegDPWM3H}
	for i := range isetH {
		h.log.Printf("ch%d iset %d dpwm %d\r\n", i,
			h.ic.Value10(isetH[i], isetH[i]+1), h.ic.Value10(dpwmH[i], dpwmH[i]+1))
	}
	return nil
}

func highLow(b bool) string {
	if b {
		return "high"
	}
	return "low"
}
