// Package event holds the board events the daemon publishes and the
// counters it reports. It has no hardware or network dependencies; time is
// always passed in.
package event

import "time"

// Type names an event on the wire.
type Type string

const (
	TypeButtonPressed Type = "BUTTON_PRESSED"
	TypeShake         Type = "SHAKE"
)

// Event is one debounced board event.
type Event struct {
	Timestamp time.Time
	Type      Type
	Button    string // "left", "center", "right"; empty for shakes
}

// Counts tracks events since startup.
type Counts struct {
	Left   int
	Center int
	Right  int
	Shakes int
}

// Total returns the number of events counted.
func (c Counts) Total() int {
	return c.Left + c.Center + c.Right + c.Shakes
}

// HeartbeatData is the periodic summary published by the daemon.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
