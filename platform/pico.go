//go:build rp2040

package platform

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/errcode"
	"bd18398-evk/services/evk"
	"bd18398-evk/x/fmtx"
	"bd18398-evk/x/mathx"
	"bd18398-evk/x/timex"
)

// Setup is the pin and bus plan of the RP2040 carrier.
type Setup struct {
	SCK, SDO, SDI, CS machine.Pin
	SPIFrequency      uint32
	SPIMode           uint8

	ErrLED, IndLED, Button machine.Pin
	PWM                    [bd18398.NumChannels]machine.Pin // IC PWM inputs

	UARTTX, UARTRX machine.Pin
	Baud           uint32
}

var DefaultSetup = Setup{
	SCK: machine.GPIO18, SDO: machine.GPIO19, SDI: machine.GPIO16, CS: machine.GPIO17,
	SPIFrequency: 1_000_000,

	ErrLED: machine.GPIO21, IndLED: machine.GPIO20, Button: machine.GPIO15,
	PWM: [bd18398.NumChannels]machine.Pin{machine.GPIO2, machine.GPIO4, machine.GPIO6},

	UARTTX: machine.UART0_TX_PIN, UARTRX: machine.UART0_RX_PIN,
	Baud: 115200,
}

// Slice frequency range reachable with the 8.4 divider and 16-bit top.
const (
	pwmMinHz = 8
	pwmMaxHz = 1_000_000
)

// Local view of a PWM slice; machine does not export the concrete type.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
	SetInverting(channel uint8, inverting bool)
}

func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

// Pico is the RP2040 carrier board. It implements evk.Board.
type Pico struct {
	setup Setup
	pins  [3]machine.Pin // by evk.PinID
	uart  *uartx.UART
	spi   *bd18398.SPI
}

// NewPico configures the log UART first so later failures can be
// reported, then the SPI bus, the board LEDs and the button input.
func NewPico(s Setup) (*Pico, error) {
	p := &Pico{setup: s, uart: uartx.UART0}
	if err := p.uart.Configure(uartx.UARTConfig{BaudRate: s.Baud, TX: s.UARTTX, RX: s.UARTRX}); err != nil {
		return nil, errcode.Wrap(errcode.TransportFailure, "platform: uart", err)
	}
	fmtx.DefaultOutput = p.uart

	if err := machine.SPI0.Configure(machine.SPIConfig{
		Frequency: s.SPIFrequency,
		SCK:       s.SCK,
		SDO:       s.SDO,
		SDI:       s.SDI,
		Mode:      s.SPIMode,
	}); err != nil {
		return nil, errcode.Wrap(errcode.TransportFailure, "platform: spi", err)
	}
	s.CS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.spi = bd18398.NewSPI(machine.SPI0, s.CS.Set, bd18398.SPIConfig{})

	p.pins[evk.PinErrLED] = s.ErrLED
	p.pins[evk.PinIndLED] = s.IndLED
	p.pins[evk.PinButton] = s.Button
	s.ErrLED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.ErrLED.High() // active low: off
	s.IndLED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.IndLED.Low()
	s.Button.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return p, nil
}

// Transport returns the CRC-framed SPI register access to the IC.
func (p *Pico) Transport() *bd18398.SPI { return p.spi }

// AttachButton routes rising edges of the button pin to b.Press, which
// is safe in interrupt context.
func (p *Pico) AttachButton(b *evk.Button) error {
	err := p.setup.Button.SetInterrupt(machine.PinRising, func(machine.Pin) { b.Press() })
	if err != nil {
		return errcode.Wrap(errcode.Unsupported, "platform: button irq", err)
	}
	return nil
}

// Console starts reading command lines from the log UART.
func (p *Pico) Console(ctx context.Context) <-chan string {
	l := NewLines(96, 4)
	go func() {
		_ = l.Pump(ctx, func(ctx context.Context, buf []byte) (int, error) {
			// Bound each wait so cancellation is noticed.
			rctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
			defer cancel()
			n, err := p.uart.RecvSomeContext(rctx, buf)
			if err != nil && ctx.Err() == nil {
				return n, nil
			}
			return n, err
		})
	}()
	return l.C()
}

func (p *Pico) SetPin(id evk.PinID, level bool) {
	if int(id) < len(p.pins) {
		p.pins[id].Set(level)
	}
}

func (p *Pico) ReadPin(id evk.PinID) bool {
	if int(id) < len(p.pins) {
		return p.pins[id].Get()
	}
	return false
}

// ConfigurePWM drives the IC's PWM input for channel ch. duty is on the
// 10-bit brightness scale.
func (p *Pico) ConfigurePWM(ch int, freqHz uint32, duty uint16, activeHigh bool) error {
	if ch < 0 || ch >= len(p.setup.PWM) {
		return errcode.InvalidChannel
	}
	freqHz = mathx.Clamp(freqHz, pwmMinHz, pwmMaxHz)
	pin := p.setup.PWM[ch]
	slice, err := machine.PWMPeripheral(pin)
	if err != nil {
		return errcode.Unsupported
	}
	ctrl := pwmGroupBySlice(slice)
	if err := ctrl.Configure(machine.PWMConfig{Period: timex.PeriodFromHz(freqHz)}); err != nil {
		return errcode.Wrap(errcode.InvalidArgument, "platform: pwm", err)
	}
	idx, err := ctrl.Channel(pin)
	if err != nil {
		return errcode.Wrap(errcode.Unsupported, "platform: pwm", err)
	}
	ctrl.SetInverting(idx, !activeHigh)
	duty = mathx.Min(duty, bd18398.BrightnessMax)
	ctrl.Set(idx, uint32(duty)*ctrl.Top()/bd18398.BrightnessMax)
	return nil
}
