// Package button tracks the three board buttons with a shared debounce clock
// per button, delivering presses either by polling (Poll, Tick) or from the
// GPIO interrupt context (DispatchInterrupt).
// Time comes from an injected clock.Clock so the logic is testable without
// hardware or sleeps.
package button

import (
	"errors"

	"github.com/sweeney/pixiboo/internal/callback"
	"github.com/sweeney/pixiboo/internal/gpio"
)

// ID identifies a button.
type ID int

const (
	Left ID = iota
	Center
	Right
)

// Count is the number of buttons on the board.
const Count = 3

// IDs lists every button in board order.
var IDs = [Count]ID{Left, Center, Right}

func (id ID) String() string {
	switch id {
	case Left:
		return "left"
	case Center:
		return "center"
	case Right:
		return "right"
	}
	return "unknown"
}

// Valid reports whether id names a board button.
func (id ID) Valid() bool {
	return id >= Left && id <= Right
}

// ParseID maps "left", "center" or "right" to an ID.
func ParseID(s string) (ID, error) {
	for _, id := range IDs {
		if id.String() == s {
			return id, nil
		}
	}
	return 0, ErrUnknownButton
}

// DefaultDebounceMs is the debounce window used when none is configured.
const DefaultDebounceMs = 50

// MaxCallbacks caps registrations per button so the interrupt path never
// allocates.
const MaxCallbacks = 8

// Errors returned by the dispatcher.
var (
	ErrUnknownButton    = errors.New("button: unknown button")
	ErrTooManyCallbacks = errors.New("button: callback capacity reached")
)

// Callback is invoked once per debounced press.
type Callback = callback.Func

// state is the per-button record. The matching Dispatcher lock guards every
// field; the debounce timestamp and the callback list change together.
type state struct {
	input gpio.Input

	stable         gpio.Level
	lastTransition uint32

	callbacks [MaxCallbacks]Callback
	n         int
}

// Config controls dispatcher behaviour. Zero values select defaults.
type Config struct {
	// DebounceMs is the minimum spacing between accepted transitions.
	// Default 50.
	DebounceMs uint32

	// ManualUpdate disables arming edge interrupts on first registration;
	// the owner must call Tick periodically.
	ManualUpdate bool

	// Report receives callback failures. Default logs them.
	Report callback.Reporter
}
