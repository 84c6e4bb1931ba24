package bd18398

import "bd18398-evk/x/logx"

// FaultIndicator is the board-level fault light driven on supply faults.
type FaultIndicator interface {
	// BlinkIfFree starts blinking unless the light is already in use.
	BlinkIfFree(fast bool)
}

// Dispatcher routes status bits to channel handlers and the fixed
// supply/CRC/watchdog handlers.
type Dispatcher struct {
	t     Transport
	chans *[NumChannels]Channel
	ind   FaultIndicator
	log   logx.Logf

	uninitLim  [NumChannels]logx.Limiter
	uvloLim    logx.Limiter
	pinUVLOLim logx.Limiter
	crcLim     logx.Limiter
	wdtLim     logx.Limiter
}

func (d *Dispatcher) setLimit(every uint32) {
	for i := range d.uninitLim {
		d.uninitLim[i].Every = every
	}
	d.uvloLim.Every = every
	d.pinUVLOLim.Every = every
	d.crcLim.Every = every
	d.wdtLim.Every = every
}

// PollStatus reads the status register and reports whether any
// meaningful bit is set. A failed read reports every bit, so callers
// never mistake a dead bus for a healthy IC.
//
// The IC watchdog expires after about one second without a status
// read; callers must poll faster than that.
func (d *Dispatcher) PollStatus() (bool, Status) {
	v, err := d.t.ReadRegister(RegStatus)
	if err != nil {
		return true, StatusMask
	}
	st := Status(v) & StatusMask
	return st != 0, st
}

// Dispatch runs handlers for st: errdet bits first (channel order),
// then UVLO, PINUVLO, CRC and WDT.
func (d *Dispatcher) Dispatch(st Status) {
	for i := 0; i < NumChannels; i++ {
		if !st.ErrDet(i) {
			continue
		}
		ch := &d.chans[i]
		if !ch.initialized {
			if d.uninitLim[i].Allow() {
				d.log.Printf("LED error on channel %d but channel not initialized\r\n", i)
			}
			continue
		}
		ls := LEDStatus(0xFF)
		if v, err := d.t.ReadRegister(ch.regs.status); err == nil {
			ls = LEDStatus(v)
		}
		ch.handle(ls)
		ch.MarkFaulty(ls)
	}

	if st.Has(StatusUVLO) {
		d.FaultAll()
		if d.uvloLim.Allow() {
			d.log.Printf("UVLO\r\n")
		}
		if d.ind != nil {
			d.ind.BlinkIfFree(true)
		}
	}
	if st.Has(StatusPinUVLO) {
		if d.pinUVLOLim.Allow() {
			d.log.Printf("PVIN_UVLO\r\n")
		}
		d.FaultAll()
		if d.ind != nil {
			d.ind.BlinkIfFree(false)
		}
	}
	if st.Has(StatusCRC) && d.crcLim.Allow() {
		d.log.Printf("CRC\r\n")
	}
	if st.Has(StatusWDT) && d.wdtLim.Allow() {
		d.log.Printf("WDT expired, IC in limp-home\r\n")
	}
}

// FaultAll marks every initialized channel faulty.
func (d *Dispatcher) FaultAll() {
	for i := range d.chans {
		if d.chans[i].initialized {
			d.chans[i].MarkFaulty(0)
		}
	}
}
