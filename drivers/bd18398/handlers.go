package bd18398

// ErrorKind selects one of the per-channel error handler slots.
type ErrorKind uint8

const (
	ErrShort  ErrorKind = iota // LED short
	ErrOpen                    // LED open
	ErrSwOCP                   // switch over-current
	ErrLEDOCP                  // LED driver over-current
	numErrorKinds
)

var errorKindNames = [numErrorKinds]string{"SHORT", "OPEN", "SW_OCP", "LED_OCP"}

func (k ErrorKind) String() string {
	if k < numErrorKinds {
		return errorKindNames[k]
	}
	return "UNKNOWN"
}

// Bit returns the LEDStatus bit reported for this kind.
func (k ErrorKind) Bit() LEDStatus { return 1 << k }

// Handler reacts to a channel error. Implementations must be comparable
// (pointer types are) because unregistering matches by identity.
type Handler interface {
	HandleLEDError(ch *Channel, opaque any)
}

// HandlerFunc adapts a function to Handler. Register a pointer to it so
// the registration has a stable identity:
//
//	h := &bd18398.HandlerFunc{Fn: onShort}
type HandlerFunc struct {
	Fn func(ch *Channel, opaque any)
}

func (h *HandlerFunc) HandleLEDError(ch *Channel, opaque any) { h.Fn(ch, opaque) }

type handlerSlot struct {
	h      Handler
	opaque any
}
