// Package sim emulates a BD18398 at the SPI frame level so the driver and
// the demo can run on a host. It implements drivers.SPI; wire CS to the
// chip-select setter of the transport.
package sim

import (
	"errors"

	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/x/timex"
)

var ErrBus = errors.New("sim: bus fault")

// WatchdogUS is how long the IC tolerates no status read before it
// enters limp-home.
const WatchdogUS = 1_000_000

const numRegs = 0x20

// Sim is a simulated IC. It is not safe for concurrent use.
type Sim struct {
	clock timex.Clock

	regs [numRegs]uint8

	// frame state, valid while selected
	selected bool
	frame    [8]byte
	n        int
	overrun  bool
	resp     [3]byte
	respOK   bool
	outIdx   int

	readAddr uint8
	haveAddr bool

	lastFeed timex.Ticks
	limp     bool

	ledFault [bd18398.NumChannels]bd18398.LEDStatus
	supply   bd18398.Status
	latched  bd18398.Status // CRC and WDT, cleared when status is read

	failTx int
	stuck  [numRegs]bool

	statusReads int
	writes      int
	crcErrors   int
}

// New returns an IC in its reset state with the watchdog armed.
func New(clock timex.Clock) *Sim {
	return &Sim{clock: clock, lastFeed: clock.Now()}
}

// CS drives the chip-select line (active low).
func (s *Sim) CS(level bool) {
	s.checkWatchdog()
	if !level {
		if !s.selected {
			s.selected = true
			s.n, s.overrun, s.respOK, s.outIdx = 0, false, false, 0
		}
		return
	}
	if !s.selected {
		return
	}
	s.selected = false
	s.endFrame()
}

// Tx clocks len(w) or len(r) bytes, whichever is longer. Bytes are
// ignored while CS is high.
func (s *Sim) Tx(w, r []byte) error {
	if s.failTx > 0 {
		s.failTx--
		return ErrBus
	}
	if !s.selected {
		return nil
	}
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		if i < len(w) {
			s.push(w[i])
		}
		if i < len(r) {
			r[i] = s.out()
		}
	}
	return nil
}

func (s *Sim) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := s.Tx([]byte{b}, r[:])
	return r[0], err
}

func (s *Sim) push(b byte) {
	if s.n >= len(s.frame) {
		s.overrun = true
		return
	}
	s.frame[s.n] = b
	s.n++
}

func (s *Sim) out() byte {
	if !s.respOK {
		s.prepareResponse()
	}
	i := s.outIdx
	s.outIdx++
	if i < len(s.resp) {
		return s.resp[i]
	}
	return 0xFF
}

// prepareResponse answers the address latched by the previous frame.
// Side effects of reading (watchdog feed, latch clear) happen here.
func (s *Sim) prepareResponse() {
	s.respOK = true
	if !s.haveAddr {
		s.resp = [3]byte{0xFF, 0xFF, 0xFF}
		return
	}
	a := s.readAddr
	s.haveAddr = false
	v := s.read(a)
	s.resp[0], s.resp[1] = a, v
	s.resp[2] = bd18398.CRC8(s.resp[:2])
}

func (s *Sim) endFrame() {
	if s.n == 0 {
		return
	}
	if s.overrun || s.n != 3 || bd18398.CRC8(s.frame[:2]) != s.frame[2] {
		s.crcErrors++
		s.latched |= bd18398.StatusCRC
		return
	}
	addr, data := s.frame[0], s.frame[1]
	if addr&0x80 != 0 {
		s.write(addr&^0x80, data)
		return
	}
	s.readAddr, s.haveAddr = addr, true
}

func (s *Sim) read(a uint8) uint8 {
	switch {
	case a == bd18398.RegStatus:
		s.statusReads++
		s.lastFeed = s.clock.Now()
		s.limp = false
		st := s.status()
		s.latched = 0
		return uint8(st)
	case a >= bd18398.RegLED1Status && a <= bd18398.RegLED3Status:
		return uint8(s.ledFault[a-bd18398.RegLED1Status])
	case int(a) < numRegs:
		return s.regs[a]
	}
	return 0
}

func (s *Sim) status() bd18398.Status {
	st := s.supply | s.latched
	for i, f := range s.ledFault {
		if f != 0 {
			st |= 1 << i
		}
	}
	return st & bd18398.StatusMask
}

func (s *Sim) write(a, v uint8) {
	if int(a) >= numRegs || s.stuck[a] {
		return
	}
	if a >= bd18398.RegStatus && a <= bd18398.RegLED3Status {
		return // read-only
	}
	s.writes++
	if a == bd18398.RegSystem && v&bd18398.SysReset != 0 {
		s.reset()
		return
	}
	s.regs[a] = v
}

func (s *Sim) reset() {
	s.regs = [numRegs]uint8{}
	s.latched = 0
	s.limp = false
	s.lastFeed = s.clock.Now()
}

func (s *Sim) checkWatchdog() {
	if s.limp {
		return
	}
	if s.clock.ElapsedUS(s.lastFeed) > WatchdogUS {
		s.limp = true
		s.latched |= bd18398.StatusWDT
	}
}

// Poll lets the simulator notice watchdog expiry without bus traffic.
func (s *Sim) Poll() { s.checkWatchdog() }

// Reg returns a register as the IC holds it, without bus side effects.
func (s *Sim) Reg(a uint8) uint8 {
	if int(a) >= numRegs {
		return 0
	}
	return s.regs[a]
}

// SetReg overwrites a register directly.
func (s *Sim) SetReg(a, v uint8) {
	if int(a) < numRegs {
		s.regs[a] = v
	}
}

// Value10 returns a 10-bit value split over regH/regL.
func (s *Sim) Value10(regH, regL uint8) uint16 {
	return uint16(s.Reg(regH))<<2 | uint16(s.Reg(regL)&0x03)
}

// InjectLEDFault sets the per-channel status bits reported for ch.
func (s *Sim) InjectLEDFault(ch int, st bd18398.LEDStatus) {
	if ch >= 0 && ch < bd18398.NumChannels {
		s.ledFault[ch] = st & bd18398.LEDStatusMask
	}
}

// InjectSupply sets the UVLO / PINUVLO bits.
func (s *Sim) InjectSupply(st bd18398.Status) {
	s.supply = st & (bd18398.StatusUVLO | bd18398.StatusPinUVLO)
}

// ClearFaults removes every injected fault.
func (s *Sim) ClearFaults() {
	s.ledFault = [bd18398.NumChannels]bd18398.LEDStatus{}
	s.supply = 0
}

// FailTx makes the next n Tx calls fail with ErrBus.
func (s *Sim) FailTx(n int) { s.failTx = n }

// Stick makes writes to a silently ignored, so verification fails.
func (s *Sim) Stick(a uint8, on bool) {
	if int(a) < numRegs {
		s.stuck[a] = on
	}
}

func (s *Sim) Limp() bool       { return s.limp }
func (s *Sim) StatusReads() int { return s.statusReads }
func (s *Sim) Writes() int      { return s.writes }
func (s *Sim) CRCErrors() int   { return s.crcErrors }
