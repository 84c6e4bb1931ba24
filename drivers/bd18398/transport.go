package bd18398

import (
	"time"

	"tinygo.org/x/drivers"

	"bd18398-evk/errcode"
)

// Transport is the register access used by channels and the dispatcher.
type Transport interface {
	ReadRegister(addr uint8) (uint8, error)
	// WriteRegister writes val; with verify it reads the register back
	// and fails on mismatch.
	WriteRegister(addr, val uint8, verify bool) error
	// UpdateBits is a verified read-modify-write of the bits in mask.
	// The write is skipped when the merged value equals the current one.
	UpdateBits(addr, mask, val uint8) error
}

const (
	writeFlag   = 0x80
	readFiller  = 0xFF
	frameLen    = 3
	defaultTurn = 100 * time.Microsecond
)

// SPIConfig tunes the framing. Zero values pick the EVK defaults.
type SPIConfig struct {
	// Turnaround is how long CS stays released between the address
	// frame and the read frame of a register read.
	Turnaround time.Duration
	// Sleep is used for Turnaround; nil uses time.Sleep.
	Sleep func(time.Duration)
}

// SPI frames register accesses as 3-byte CRC-protected transfers.
// CS is driven through a level setter; the line is active low.
type SPI struct {
	bus   drivers.SPI
	cs    func(level bool)
	turn  time.Duration
	sleep func(time.Duration)

	w [frameLen]byte
	r [frameLen]byte
}

// NewSPI wraps bus. cs must set the chip-select pin level.
func NewSPI(bus drivers.SPI, cs func(level bool), cfg SPIConfig) *SPI {
	s := &SPI{bus: bus, cs: cs, turn: cfg.Turnaround, sleep: cfg.Sleep}
	if s.turn == 0 {
		s.turn = defaultTurn
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	s.cs(true)
	return s
}

func (s *SPI) frame(a, b uint8) []byte {
	s.w[0], s.w[1] = a, b
	s.w[2] = CRC8(s.w[:2])
	return s.w[:]
}

func (s *SPI) tx(w, r []byte) error {
	s.cs(false)
	err := s.bus.Tx(w, r)
	s.cs(true)
	return err
}

func (s *SPI) ReadRegister(addr uint8) (uint8, error) {
	if err := s.tx(s.frame(addr, readFiller), nil); err != nil {
		return 0, errcode.Wrap(errcode.TransportFailure, "bd18398: read addr", err)
	}
	s.sleep(s.turn)
	s.r = [frameLen]byte{}
	if err := s.tx(nil, s.r[:]); err != nil {
		return 0, errcode.Wrap(errcode.TransportFailure, "bd18398: read data", err)
	}
	return s.r[1], nil
}

func (s *SPI) WriteRegister(addr, val uint8, verify bool) error {
	if err := s.tx(s.frame(addr|writeFlag, val), nil); err != nil {
		return errcode.Wrap(errcode.TransportFailure, "bd18398: write", err)
	}
	if !verify {
		return nil
	}
	got, err := s.ReadRegister(addr)
	if err != nil {
		return err
	}
	if got != val {
		return &errcode.E{C: errcode.TransportFailure, Op: "bd18398: verify", Err: errcode.VerifyMismatch}
	}
	return nil
}

func (s *SPI) UpdateBits(addr, mask, val uint8) error {
	return updateBits(s, addr, mask, val)
}

// updateBits implements UpdateBits on top of any read/write pair.
func updateBits(t Transport, addr, mask, val uint8) error {
	cur, err := t.ReadRegister(addr)
	if err != nil {
		return err
	}
	next := cur&^mask | val&mask
	if next == cur {
		return nil
	}
	return t.WriteRegister(addr, next, true)
}

// Wake pulses chip-select low for hold with no clocks. The IC needs
// this to leave its power-on state.
func (s *SPI) Wake(hold time.Duration) {
	s.cs(false)
	s.sleep(hold)
	s.cs(true)
}
