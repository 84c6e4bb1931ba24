package evk

// PinID names the board GPIOs the demo drives.
type PinID uint8

const (
	PinErrLED PinID = iota // red/orange, active low
	PinIndLED              // green
	PinButton
)

// Board is the GPIO/PWM surface of the evaluation kit.
type Board interface {
	SetPin(id PinID, level bool)
	ReadPin(id PinID) bool
	// ConfigurePWM drives one of the IC's PWM dimming inputs. duty is in
	// [0..1023]; activeHigh selects the polarity.
	ConfigurePWM(ch int, freqHz uint32, duty uint16, activeHigh bool) error
}
