package evk

import (
	"github.com/google/shlex"

	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/errcode"
	"bd18398-evk/x/strconvx"
)

// Command is one console verb.
type Command struct {
	Name  string
	Usage string
	Run   func(args []string) error
}

// Console executes text commands against the running demo. It runs on
// the loop goroutine; lines are fed through Demo.Input.
type Console struct {
	d    *Demo
	cmds []Command
}

func newConsole(d *Demo) *Console {
	c := &Console{d: d}
	c.cmds = []Command{
		{"help", "help", c.help},
		{"press", "press", c.press},
		{"state", "state", c.state},
		{"status", "status", c.status},
		{"leds", "leds", c.leds},
		{"on", "on <ch>", c.on},
		{"off", "off <ch>", c.off},
		{"bright", "bright <ch> <0..1023>", c.bright},
		{"current", "current <ch> <mA>", c.current},
		{"dim", "dim <ch> on|off", c.dim},
		{"pwm", "pwm <ch> <hz> <duty 0..1023> [low]", c.pwm},
	}
	return c
}

// Register adds or replaces a command.
func (c *Console) Register(cmd Command) {
	for i := range c.cmds {
		if c.cmds[i].Name == cmd.Name {
			c.cmds[i] = cmd
			return
		}
	}
	c.cmds = append(c.cmds, cmd)
}

// Exec tokenizes line with shell quoting rules and runs the command.
// Blank lines are ignored.
func (c *Console) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return errcode.Wrap(errcode.InvalidArgument, "console", err)
	}
	if len(args) == 0 {
		return nil
	}
	for _, cmd := range c.cmds {
		if cmd.Name == args[0] {
			return cmd.Run(args[1:])
		}
	}
	return errcode.New(errcode.Unsupported, "console", "unknown command "+args[0])
}

func (c *Console) printf(format string, args ...any) { c.d.log.Printf(format, args...) }

func usage(u string) error { return errcode.New(errcode.InvalidArgument, "console", "usage: "+u) }

func (c *Console) help([]string) error {
	for _, cmd := range c.cmds {
		c.printf("  %s\r\n", cmd.Usage)
	}
	return nil
}

func (c *Console) press([]string) error {
	c.d.button.Press()
	return nil
}

func (c *Console) state([]string) error {
	c.printf("state %s\r\n", c.d.state.String())
	return nil
}

// status reads the IC status register. The read feeds the IC watchdog,
// so it is refused in Limp.
func (c *Console) status([]string) error {
	if c.d.state == StatePush5Limp {
		return errcode.New(errcode.NotReady, "console", "polling suspended in LIMP")
	}
	fault, st := c.d.dev.PollStatus()
	c.printf("status 0x%02x fault=%t\r\n", uint8(st), fault)
	return nil
}

func (c *Console) leds([]string) error {
	for i := 0; i < bd18398.NumChannels; i++ {
		ch := c.d.leds.Channel(i)
		if ch == nil {
			c.printf("LED %d: not initialized\r\n", i)
			continue
		}
		p, ph := c.d.leds.Pattern(i)
		c.printf("LED %d: %s brightness=%d pattern=%s phase=%d fault=0x%02x\r\n",
			i, onOff(ch.Enabled()), ch.Brightness(), p.String(), uint8(ph), uint8(ch.FaultStatus()))
	}
	return nil
}

func (c *Console) channel(arg string) (*bd18398.Channel, error) {
	n, err := strconvx.ParseUint(arg, 10, 8)
	if err != nil || n >= bd18398.NumChannels {
		return nil, errcode.New(errcode.InvalidChannel, "console", "channel must be 0..2")
	}
	ch := c.d.leds.Channel(int(n))
	if ch == nil {
		return nil, errcode.New(errcode.NotReady, "console", "channel not initialized")
	}
	return ch, nil
}

func (c *Console) on(args []string) error  { return c.setEnabled(args, true, "on <ch>") }
func (c *Console) off(args []string) error { return c.setEnabled(args, false, "off <ch>") }

func (c *Console) setEnabled(args []string, on bool, u string) error {
	if len(args) != 1 {
		return usage(u)
	}
	ch, err := c.channel(args[0])
	if err != nil {
		return err
	}
	return ch.SetEnabled(on)
}

func (c *Console) bright(args []string) error {
	if len(args) != 2 {
		return usage("bright <ch> <0..1023>")
	}
	ch, err := c.channel(args[0])
	if err != nil {
		return err
	}
	v, err := strconvx.ParseUint(args[1], 0, 16)
	if err != nil {
		return usage("bright <ch> <0..1023>")
	}
	return ch.SetBrightness(uint16(v))
}

func (c *Console) current(args []string) error {
	if len(args) != 2 {
		return usage("current <ch> <mA>")
	}
	ch, err := c.channel(args[0])
	if err != nil {
		return err
	}
	mA, err := strconvx.ParseUint(args[1], 10, 32)
	if err != nil {
		return usage("current <ch> <mA>")
	}
	clamped, err := ch.SetMaxCurrent(uint32(mA))
	if err != nil {
		return err
	}
	if clamped {
		c.printf("LED %d: %d mA exceeds ISET range, clamped\r\n", ch.Index(), uint32(mA))
	}
	return nil
}

func (c *Console) dim(args []string) error {
	if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
		return usage("dim <ch> on|off")
	}
	ch, err := c.channel(args[0])
	if err != nil {
		return err
	}
	return ch.SetDimming(args[1] == "on")
}

func (c *Console) pwm(args []string) error {
	const u = "pwm <ch> <hz> <duty 0..1023> [low]"
	if len(args) != 3 && len(args) != 4 {
		return usage(u)
	}
	ch, err := strconvx.ParseUint(args[0], 10, 8)
	if err != nil || ch >= bd18398.NumChannels {
		return errcode.New(errcode.InvalidChannel, "console", "channel must be 0..2")
	}
	hz, err := strconvx.ParseUint(args[1], 10, 32)
	if err != nil || hz == 0 {
		return usage(u)
	}
	duty, err := strconvx.ParseUint(args[2], 10, 16)
	if err != nil || duty > bd18398.BrightnessMax {
		return usage(u)
	}
	activeHigh := true
	if len(args) == 4 {
		if args[3] != "low" {
			return usage(u)
		}
		activeHigh = false
	}
	return c.d.board.ConfigurePWM(int(ch), uint32(hz), uint16(duty), activeHigh)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
