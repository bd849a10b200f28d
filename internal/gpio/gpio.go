// Package gpio provides button input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Level is a raw digital pin level.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == Low {
		return "LOW"
	}
	return "HIGH"
}

// Edge selects which level transitions fire an edge handler.
type Edge uint8

const (
	EdgeFalling Edge = iota + 1
	EdgeRising
	EdgeBoth
)

// Input is a single digital input line.
type Input interface {
	// Read returns the current raw level of the line.
	Read() (Level, error)

	// OnEdge installs handler to run on matching edges. The handler is
	// invoked from the interrupt context (a goroutine owned by the
	// implementation), never from the caller's goroutine.
	OnEdge(edge Edge, handler func()) error
}

// Pin definitions (line offsets on the board's GPIO chip).
// Buttons are wired active-low with pull-ups: pressed reads Low.
const (
	DefaultPinLeft   = 12
	DefaultPinCenter = 11
	DefaultPinRight  = 13
)

// DefaultChip is the GPIO character device the buttons hang off.
const DefaultChip = "gpiochip0"
