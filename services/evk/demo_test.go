package evk

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/drivers/bd18398/sim"
	"bd18398-evk/errcode"
	"bd18398-evk/x/timex"
)

type pwmCall struct {
	ch         int
	hz         uint32
	duty       uint16
	activeHigh bool
}

type fakeBoard struct {
	pins map[PinID]bool
	sets map[PinID]int
	pwm  []pwmCall
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{pins: map[PinID]bool{}, sets: map[PinID]int{}}
}

func (b *fakeBoard) SetPin(id PinID, level bool) {
	b.pins[id] = level
	b.sets[id]++
}

func (b *fakeBoard) ReadPin(id PinID) bool { return b.pins[id] }

func (b *fakeBoard) ConfigurePWM(ch int, hz uint32, duty uint16, activeHigh bool) error {
	b.pwm = append(b.pwm, pwmCall{ch, hz, duty, activeHigh})
	return nil
}

type logRec struct{ lines []string }

func (l *logRec) Logf(format string, args ...any) {
	l.lines = append(l.lines, strings.TrimRight(fmt.Sprintf(format, args...), "\r\n"))
}

func (l *logRec) has(sub string) bool {
	for _, s := range l.lines {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type harness struct {
	t     *testing.T
	clk   *timex.Manual
	ic    *sim.Sim
	board *fakeBoard
	log   *logRec
	d     *Demo
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{t: t, clk: &timex.Manual{}, board: newFakeBoard(), log: &logRec{}}
	h.ic = sim.New(h.clk)
	spi := bd18398.NewSPI(h.ic, h.ic.CS, bd18398.SPIConfig{Sleep: func(time.Duration) {}})
	dev := bd18398.New(spi, bd18398.Config{Logf: h.log.Logf, Sleep: func(time.Duration) {}})
	cfg.Logf = h.log.Logf
	h.d = New(dev, h.board, h.clk, cfg)
	if err := h.d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return h
}

// press waits out the button re-arm window, then presses and steps.
func (h *harness) press() {
	h.clk.Advance(150 * time.Millisecond)
	h.d.Step()
	h.d.Button().Press()
	h.d.Step()
}

func (h *harness) brightness(ch int) uint16 {
	regs := [][2]uint8{
		{bd18398.RegDPWM1H, bd18398.RegDPWM1L},
		{bd18398.RegDPWM2H, bd18398.RegDPWM2L},
		{bd18398.RegDPWM3H, bd18398.RegDPWM3L},
	}
	return h.ic.Value10(regs[ch][0], regs[ch][1])
}

func (h *harness) enabled(ch int) bool {
	return h.ic.Reg(bd18398.RegLEDEnable)&(1<<ch) != 0
}

func TestFirstStepEntersStarted(t *testing.T) {
	h := newHarness(t, Config{})
	if h.d.State() != StateUninit {
		t.Fatalf("state before first step = %s", h.d.State())
	}
	h.d.Step()
	if h.d.State() != StateStarted {
		t.Fatalf("state = %s, want STARTED", h.d.State())
	}
	if !h.enabled(0) || h.brightness(0) != 1023 {
		t.Fatalf("ch0 not full: on=%v b=%d", h.enabled(0), h.brightness(0))
	}
	if h.enabled(1) || h.enabled(2) {
		t.Fatalf("ch1/ch2 should be off")
	}
	if !h.d.IndLED().Lit() || !h.board.pins[PinIndLED] {
		t.Fatalf("IND LED not lit")
	}
	// ERR is active low: off means the pin is high.
	if h.d.ErrLED().Lit() || !h.board.pins[PinErrLED] {
		t.Fatalf("ERR LED lit at start")
	}
}

func TestStateSequenceWraps(t *testing.T) {
	h := newHarness(t, Config{})
	h.d.Step()

	want := []State{StatePush1, StatePush2, StatePush3, StatePush4, StatePush5Limp, StateStarted, StatePush1}
	for i, w := range want {
		h.press()
		if h.d.State() != w {
			t.Fatalf("press %d: state = %s, want %s", i+1, h.d.State(), w)
		}
	}
}

func TestStatePatterns(t *testing.T) {
	h := newHarness(t, Config{})
	h.d.Step()

	h.press() // Push1
	if !h.enabled(1) || h.brightness(1) != 1023 || h.enabled(2) {
		t.Fatalf("Push1: ch1 on=%v b=%d ch2 on=%v", h.enabled(1), h.brightness(1), h.enabled(2))
	}
	h.press() // Push2
	if !h.enabled(2) || h.brightness(2) != 1023 {
		t.Fatalf("Push2: ch2 not full")
	}
	h.press() // Push3
	for i := 0; i < 3; i++ {
		if p, ph := h.d.LEDs().Pattern(i); p != PatternSmooth || ph != PhaseStart {
			t.Fatalf("Push3 LED %d = %s/%d", i, p, ph)
		}
	}
	h.press() // Push4
	phases := []Phase{PhaseStart, PhaseQuarterPast, PhaseHalf}
	for i, w := range phases {
		if _, ph := h.d.LEDs().Pattern(i); ph != w {
			t.Fatalf("Push4 LED %d phase = %d, want %d", i, ph, w)
		}
	}
	h.press() // Limp
	for i := 0; i < 3; i++ {
		if h.enabled(i) || h.brightness(i) != 0 {
			t.Fatalf("Limp: ch%d on=%v b=%d", i, h.enabled(i), h.brightness(i))
		}
	}
}

func TestSmoothCycleIsRateLimited(t *testing.T) {
	h := newHarness(t, Config{})
	h.d.Step()
	h.press()
	h.press()
	h.press() // Push3
	if h.brightness(0) != 1 {
		t.Fatalf("smooth start brightness = %d, want 1", h.brightness(0))
	}
	for i := 0; i < 10; i++ {
		h.d.Step()
	}
	if h.brightness(0) != 1 {
		t.Fatalf("stepped without time passing: %d", h.brightness(0))
	}
	h.clk.Advance(3 * time.Millisecond)
	h.d.Step()
	h.d.Step()
	if h.brightness(0) != 2 {
		t.Fatalf("brightness after 3ms = %d, want 2", h.brightness(0))
	}

	h.press() // Push4: phases diverge on the next step
	h.clk.Advance(3 * time.Millisecond)
	h.d.Step()
	b0, b1, b2 := h.brightness(0), h.brightness(1), h.brightness(2)
	if (b1+1024-b0)%1024 != 256 || (b2+1024-b0)%1024 != 512 {
		t.Fatalf("phase offsets wrong: %d %d %d", b0, b1, b2)
	}
}

func TestLimpStopsPolling(t *testing.T) {
	h := newHarness(t, Config{})
	h.d.Step()
	for i := 0; i < 5; i++ {
		h.press()
	}
	if h.d.State() != StatePush5Limp {
		t.Fatalf("state = %s", h.d.State())
	}
	reads := h.ic.StatusReads()
	for i := 0; i < 100; i++ {
		h.clk.Advance(20 * time.Millisecond)
		h.d.Step()
	}
	if got := h.ic.StatusReads(); got != reads {
		t.Fatalf("status read %d times in Limp", got-reads)
	}
	h.ic.Poll()
	if !h.ic.Limp() {
		t.Fatalf("IC did not enter limp-home after 2s without polling")
	}
	if h.d.IndLED().Lit() {
		t.Fatalf("IND LED lit in Limp")
	}

	h.press() // back to Started, polling resumes and reports the watchdog
	if h.d.State() != StateStarted {
		t.Fatalf("state = %s", h.d.State())
	}
	h.d.Step()
	if !h.log.has("WDT expired") {
		t.Fatalf("watchdog expiry not reported: %q", h.log.lines)
	}
	if h.ic.Limp() {
		t.Fatalf("IC still in limp after polling resumed")
	}
}

func TestConsoleStatusRefusedInLimp(t *testing.T) {
	h := newHarness(t, Config{})
	lines := make(chan string, 1)
	h.d.Input(lines)
	h.d.Step()
	for i := 0; i < 5; i++ {
		h.press()
	}
	if h.d.State() != StatePush5Limp {
		t.Fatalf("state = %s", h.d.State())
	}
	if err := h.d.Console().Exec("status"); errcode.Of(err) != errcode.NotReady {
		t.Fatalf("status in Limp: %v, want not_ready", err)
	}

	reads := h.ic.StatusReads()
	for i := 0; i < 100; i++ {
		if i%10 == 0 {
			lines <- "status"
		}
		h.clk.Advance(20 * time.Millisecond)
		h.d.Step()
	}
	if got := h.ic.StatusReads(); got != reads {
		t.Fatalf("console status read the IC %d times in Limp", got-reads)
	}
	if !h.log.has("polling suspended in LIMP") {
		t.Fatalf("refusal not reported: %q", h.log.lines)
	}
	h.ic.Poll()
	if !h.ic.Limp() {
		t.Fatalf("IC watchdog was fed from the console")
	}
}

func TestShortFaultHoldsErrLED(t *testing.T) {
	h := newHarness(t, Config{})
	h.d.Step()

	h.ic.InjectLEDFault(0, bd18398.LEDShort)
	h.d.Step()
	if h.d.ErrLED().State() != LightOn || h.board.pins[PinErrLED] {
		t.Fatalf("ERR LED not solid on SHORT: state=%s pin=%v", h.d.ErrLED().State(), h.board.pins[PinErrLED])
	}
	if !h.log.has("User SHORT handler for led 0") {
		t.Fatalf("user SHORT handler did not log: %q", h.log.lines)
	}
	if !h.d.LEDs().Channel(0).Faulty() {
		t.Fatalf("channel 0 not faulty")
	}
	// SHORT wins over OPEN on another channel.
	h.ic.InjectLEDFault(1, bd18398.LEDOpen)
	h.d.Step()
	if h.d.ErrLED().State() != LightOn {
		t.Fatalf("OPEN overrode SHORT: %s", h.d.ErrLED().State())
	}

	h.ic.ClearFaults()
	h.d.Step()
	if h.d.ErrLED().Lit() {
		t.Fatalf("ERR LED still lit after faults cleared")
	}
}

func TestOpenFaultBlinksFast(t *testing.T) {
	h := newHarness(t, Config{})
	h.d.Step()
	h.ic.InjectLEDFault(2, bd18398.LEDOpen)
	h.d.Step()
	if s := h.d.ErrLED().State(); !s.fast() {
		t.Fatalf("ERR LED state = %s, want FAST", s)
	}
	h.d.Step() // first tick toggles immediately
	first := h.d.ErrLED().Lit()
	h.clk.Advance(50 * time.Millisecond)
	h.d.Step()
	if h.d.ErrLED().Lit() != first {
		t.Fatalf("toggled before half-period")
	}
	h.clk.Advance(60 * time.Millisecond)
	h.d.Step()
	if h.d.ErrLED().Lit() == first {
		t.Fatalf("did not toggle after half-period")
	}

	h.ic.ClearFaults()
	h.d.Step()
	if s := h.d.ErrLED().State(); s != LightOff {
		t.Fatalf("ERR LED state after clear = %s", s)
	}
}

func TestSupplyFaultBlinks(t *testing.T) {
	h := newHarness(t, Config{})
	h.d.Step()
	h.ic.InjectSupply(bd18398.StatusPinUVLO)
	h.d.Step()
	if s := h.d.ErrLED().State(); s != LightBlinkSlowStarting {
		t.Fatalf("ERR LED state = %s, want SLOW", s)
	}
	for i := 0; i < bd18398.NumChannels; i++ {
		if !h.d.LEDs().Channel(i).Faulty() {
			t.Fatalf("channel %d not faulty on PINUVLO", i)
		}
	}
	if !h.log.has("PVIN_UVLO") {
		t.Fatalf("PVIN_UVLO not logged")
	}
}

func TestPollFailureIsTreatedAsFault(t *testing.T) {
	h := newHarness(t, Config{})
	h.d.Step()
	// status poll and all three channel status reads fail
	h.ic.FailTx(4)
	h.d.Step()
	for _, want := range []string{"LED 0 SW_OCP", "LED 1 SW_OCP", "LED 2 SW_OCP", "UVLO"} {
		if !h.log.has(want) {
			t.Fatalf("missing %q in %q", want, h.log.lines)
		}
	}
}

func TestErrorChangeReport(t *testing.T) {
	h := newHarness(t, Config{ReportErrorChanges: true})
	h.d.Step()
	h.ic.InjectLEDFault(1, bd18398.LEDOpen)
	h.d.Step()
	if !h.log.has("LED error status change - prev 0x0 0x0 0x0 now 0x0 0x2 0x0") {
		t.Fatalf("change not reported: %q", h.log.lines)
	}
	n := len(h.log.lines)
	h.d.Step()
	for _, l := range h.log.lines[n:] {
		if strings.Contains(l, "status change") {
			t.Fatalf("unchanged status reported again")
		}
	}
}

func TestAliveHeartbeat(t *testing.T) {
	h := newHarness(t, Config{AliveEvery: 10})
	for i := 0; i < 25; i++ {
		h.d.Step()
	}
	n := 0
	for _, l := range h.log.lines {
		if l == "DEMO Alive" {
			n++
		}
	}
	if n != 3 {
		t.Fatalf("alive printed %d times in 25 iterations, want 3", n)
	}
}

func TestConsoleInputIsConsumedFromLoop(t *testing.T) {
	h := newHarness(t, Config{})
	lines := make(chan string, 2)
	h.d.Input(lines)
	h.d.Step()

	lines <- "press"
	h.clk.Advance(150 * time.Millisecond)
	h.d.Step() // executes press
	h.d.Step() // consumes pending press
	if h.d.State() != StatePush1 {
		t.Fatalf("state = %s, want PUSH1", h.d.State())
	}
}

func TestFailedPatternChangeIsRetried(t *testing.T) {
	h := newHarness(t, Config{})
	h.d.Step()
	leds := h.d.LEDs()

	h.ic.FailTx(1)
	if err := leds.SetState(1, PatternFullOn, PhaseStart); err == nil {
		t.Fatalf("SetState succeeded over a failing bus")
	}
	if p, _ := leds.Pattern(1); p != PatternOff {
		t.Fatalf("pattern = %s after failed change, want OFF", p)
	}
	if h.enabled(1) {
		t.Fatalf("LED 1 enabled despite the failure")
	}

	if err := leds.SetState(1, PatternFullOn, PhaseStart); err != nil {
		t.Fatal(err)
	}
	if p, _ := leds.Pattern(1); p != PatternFullOn || !h.enabled(1) || h.brightness(1) != bd18398.BrightnessMax {
		t.Fatalf("retry: pattern=%s on=%v brightness=%d", p, h.enabled(1), h.brightness(1))
	}
}
