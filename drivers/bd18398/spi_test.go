package bd18398_test

import (
	"errors"
	"testing"
	"time"

	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/drivers/bd18398/sim"
	"bd18398-evk/errcode"
	"bd18398-evk/x/timex"
)

func noSleep(time.Duration) {}

func newSimBus(t *testing.T) (*sim.Sim, *bd18398.SPI, *timex.Manual) {
	t.Helper()
	clk := &timex.Manual{}
	ic := sim.New(clk)
	spi := bd18398.NewSPI(ic, ic.CS, bd18398.SPIConfig{Sleep: noSleep})
	return ic, spi, clk
}

func TestCRC8(t *testing.T) {
	cases := []struct {
		in   []byte
		want uint8
	}{
		{[]byte("123456789"), 0xA2},
		{[]byte{0x18, 0xFF}, 0xF5},
		{[]byte{0x94, 0x01}, 0xFF},
		{[]byte{0x00, 0x00}, 0x00},
	}
	for _, c := range cases {
		if got := bd18398.CRC8(c.in); got != c.want {
			t.Fatalf("CRC8(% x) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

// recBus records raw frames and CS transitions.
type recBus struct {
	events []string
	frames [][]byte
}

func (r *recBus) Tx(w, rd []byte) error {
	if w != nil {
		r.frames = append(r.frames, append([]byte(nil), w...))
		r.events = append(r.events, "w")
	}
	if rd != nil {
		r.events = append(r.events, "r")
	}
	return nil
}

func (r *recBus) Transfer(b byte) (byte, error) { return 0, nil }

func (r *recBus) cs(level bool) {
	if level {
		r.events = append(r.events, "H")
	} else {
		r.events = append(r.events, "L")
	}
}

func TestSPIFraming(t *testing.T) {
	rb := &recBus{}
	var slept []time.Duration
	spi := bd18398.NewSPI(rb, rb.cs, bd18398.SPIConfig{Sleep: func(d time.Duration) { slept = append(slept, d) }})
	rb.events = nil

	if err := spi.WriteRegister(0x14, 0x01, false); err != nil {
		t.Fatal(err)
	}
	if _, err := spi.ReadRegister(0x18); err != nil {
		t.Fatal(err)
	}

	want := []string{"L", "w", "H", "L", "w", "H", "L", "r", "H"}
	if len(rb.events) != len(want) {
		t.Fatalf("events = %v, want %v", rb.events, want)
	}
	for i := range want {
		if rb.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", rb.events, want)
		}
	}
	wf, rf := rb.frames[0], rb.frames[1]
	if wf[0] != 0x94 || wf[1] != 0x01 || wf[2] != 0xFF {
		t.Fatalf("write frame = % x", wf)
	}
	if rf[0] != 0x18 || rf[1] != 0xFF || rf[2] != 0xF5 {
		t.Fatalf("address frame = % x", rf)
	}
	if len(slept) != 1 || slept[0] != 100*time.Microsecond {
		t.Fatalf("turnaround sleeps = %v", slept)
	}
}

func TestSPIReadWriteAgainstSim(t *testing.T) {
	ic, spi, _ := newSimBus(t)
	if err := spi.WriteRegister(bd18398.RegDPWM1H, 0x5A, true); err != nil {
		t.Fatalf("verified write: %v", err)
	}
	v, err := spi.ReadRegister(bd18398.RegDPWM1H)
	if err != nil || v != 0x5A {
		t.Fatalf("read back = %#x, %v", v, err)
	}
	if ic.CRCErrors() != 0 {
		t.Fatalf("sim saw %d CRC errors", ic.CRCErrors())
	}
}

func TestSPIVerifyMismatch(t *testing.T) {
	ic, spi, _ := newSimBus(t)
	ic.Stick(bd18398.RegDPWM2L, true)
	err := spi.WriteRegister(bd18398.RegDPWM2L, 0x03, true)
	if !errors.Is(err, errcode.TransportFailure) || !errors.Is(err, errcode.VerifyMismatch) {
		t.Fatalf("err = %v, want transport_failure wrapping verify_mismatch", err)
	}
	if err := spi.WriteRegister(bd18398.RegDPWM2L, 0x03, false); err != nil {
		t.Fatalf("unverified write reported %v", err)
	}
}

func TestSPIBusError(t *testing.T) {
	ic, spi, _ := newSimBus(t)
	ic.FailTx(1)
	if _, err := spi.ReadRegister(bd18398.RegStatus); !errors.Is(err, errcode.TransportFailure) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateBitsSkipsUnchanged(t *testing.T) {
	ic, spi, _ := newSimBus(t)
	ic.SetReg(bd18398.RegLEDEnable, 0x11)
	if err := spi.UpdateBits(bd18398.RegLEDEnable, 0x01, 0x01); err != nil {
		t.Fatal(err)
	}
	if ic.Writes() != 0 {
		t.Fatalf("unchanged update wrote %d times", ic.Writes())
	}
	if err := spi.UpdateBits(bd18398.RegLEDEnable, 0x02, 0xFF); err != nil {
		t.Fatal(err)
	}
	if got := ic.Reg(bd18398.RegLEDEnable); got != 0x13 {
		t.Fatalf("reg = %#x, want 0x13", got)
	}
}

func TestDeviceConfigure(t *testing.T) {
	ic, spi, _ := newSimBus(t)
	ic.SetReg(bd18398.RegDPWM1H, 0x77)
	var slept []time.Duration
	d := bd18398.New(spi, bd18398.Config{Sleep: func(d time.Duration) { slept = append(slept, d) }})
	if err := d.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if len(slept) != 1 || slept[0] != 210*time.Millisecond {
		t.Fatalf("settle sleeps = %v, want [210ms]", slept)
	}
	if ic.Reg(bd18398.RegDPWM1H) != 0 {
		t.Fatalf("soft reset did not clear registers")
	}
	if ic.Reg(bd18398.RegSystem)&bd18398.SysWLock == 0 {
		t.Fatalf("WLOCK not set")
	}
}

func TestDeviceConfigureWLockStuck(t *testing.T) {
	ic, spi, _ := newSimBus(t)
	ic.Stick(bd18398.RegSystem, true)
	d := bd18398.New(spi, bd18398.Config{Sleep: noSleep})
	if err := d.Configure(); !errors.Is(err, errcode.NotReady) {
		t.Fatalf("err = %v, want not_ready", err)
	}
}

func TestDeviceEndToEndOverSim(t *testing.T) {
	ic, spi, _ := newSimBus(t)
	d := bd18398.New(spi, bd18398.Config{Sleep: noSleep})
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < bd18398.NumChannels; i++ {
		if _, err := d.InitChannel(i); err != nil {
			t.Fatalf("InitChannel(%d): %v", i, err)
		}
	}
	ch := d.Channel(1)
	if err := ch.On(); err != nil {
		t.Fatal(err)
	}
	if err := ch.SetBrightness(777); err != nil {
		t.Fatal(err)
	}
	if got := ic.Value10(bd18398.RegDPWM2H, bd18398.RegDPWM2L); got != 777 {
		t.Fatalf("sim brightness = %d", got)
	}
	if got := ic.Value10(bd18398.RegISET3H, bd18398.RegISET3L); got != 246 {
		t.Fatalf("sim ISET ch2 = %d", got)
	}
	if ic.Reg(bd18398.RegLEDEnable) != 0x72 {
		t.Fatalf("enable reg = %#x, want dimming on all + ch1 on", ic.Reg(bd18398.RegLEDEnable))
	}

	ic.InjectLEDFault(1, bd18398.LEDOpen)
	fault, st := d.PollStatus()
	if !fault || st != bd18398.StatusErrDet2 {
		t.Fatalf("poll = %v %#x", fault, st)
	}
	d.Dispatch(st)
	if ch.FaultStatus() != bd18398.LEDOpen {
		t.Fatalf("fault bits = %#x", ch.FaultStatus())
	}
	if d.Channel(3) != nil || d.Channel(-1) != nil {
		t.Fatalf("out-of-range Channel not nil")
	}
	if _, err := d.InitChannel(3); !errors.Is(err, errcode.InvalidChannel) {
		t.Fatalf("InitChannel(3) err = %v", err)
	}
}
