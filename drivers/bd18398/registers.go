package bd18398

// Register map (8-bit addresses, 8-bit data).
const (
	RegSystem = 0x00 // bit0 soft reset, bit7 WLOCK

	RegISET1H = 0x04
	RegISET1L = 0x05
	RegISET2H = 0x06
	RegISET2L = 0x07
	RegISET3H = 0x08
	RegISET3L = 0x09

	RegDPWM1H = 0x0A
	RegDPWM1L = 0x0B
	RegDPWM2H = 0x0C
	RegDPWM2L = 0x0D
	RegDPWM3H = 0x0E
	RegDPWM3L = 0x0F

	RegLEDEnable = 0x14 // bits0..2 output on, bits4..6 dimming on

	RegStatus     = 0x18
	RegLED1Status = 0x19
	RegLED2Status = 0x1A
	RegLED3Status = 0x1B
)

// System register bits.
const (
	SysReset = 1 << 0
	SysWLock = 1 << 7
)

const (
	NumChannels   = 3
	BrightnessMax = 1023 // 10-bit DPWM / ISET
	ValueMask     = 0x3FF

	// ISET scaling on the EVK: 100 mΩ sense resistor, 2.5 V ADC reference.
	RSenseMilliOhm = 100
	ADCVRefMicroV  = 2_500_000
	ISETGain       = 12

	DefaultMaxCurrentMA = 500
)

// Status is a snapshot of RegStatus.
type Status uint8

const (
	StatusErrDet1 Status = 1 << 0
	StatusErrDet2 Status = 1 << 1
	StatusErrDet3 Status = 1 << 2
	// bit3 reserved
	StatusUVLO    Status = 1 << 4
	StatusPinUVLO Status = 1 << 5
	StatusCRC     Status = 1 << 6
	StatusWDT     Status = 1 << 7

	StatusErrDetMask Status = 0x07
	StatusMask       Status = 0xF7
)

func (s Status) Has(f Status) bool { return s&f != 0 }

// ErrDet reports whether the errdet bit for channel ch is set.
func (s Status) ErrDet(ch int) bool { return ch >= 0 && ch < NumChannels && s&(1<<ch) != 0 }

// LEDStatus is a snapshot of a per-channel status register.
type LEDStatus uint8

const (
	LEDShort  LEDStatus = 1 << 0
	LEDOpen   LEDStatus = 1 << 1
	LEDSwOCP  LEDStatus = 1 << 2
	LEDLEDOCP LEDStatus = 1 << 3

	LEDStatusMask LEDStatus = 0x0F
)

func (s LEDStatus) Has(f LEDStatus) bool { return s&f != 0 }

// channelRegs is the fixed per-channel address table.
type channelRegs struct {
	brightH, brightL uint8
	isetH, isetL     uint8
	onMask, dimMask  uint8
	status           uint8
}

var chanTable = [NumChannels]channelRegs{
	{RegDPWM1H, RegDPWM1L, RegISET1H, RegISET1L, 1 << 0, 1 << 4, RegLED1Status},
	{RegDPWM2H, RegDPWM2L, RegISET2H, RegISET2L, 1 << 1, 1 << 5, RegLED2Status},
	{RegDPWM3H, RegDPWM3L, RegISET3H, RegISET3L, 1 << 2, 1 << 6, RegLED3Status},
}

// splitValue returns the high (bits 9:2) and low (bits 1:0) register bytes.
func splitValue(v uint16) (hi, lo uint8) {
	v &= ValueMask
	return uint8(v >> 2), uint8(v & 0x03)
}

func joinValue(hi, lo uint8) uint16 {
	return uint16(hi)<<2 | uint16(lo&0x03)
}
