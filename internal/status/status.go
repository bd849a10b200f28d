// Package status provides a thread-safe view of the daemon's state for the
// HTTP server and MQTT status events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/pixiboo/internal/event"
)

// Config is the daemon configuration shown on the status page.
type Config struct {
	DebounceMs       uint32
	ShakeThresholdMg uint32
	ShakeDebounceMs  uint32
	ShakePollMs      uint32
	HeartbeatMs      int64
	Broker           string
	TopicPrefix      string
	HTTPAddr         string
}

// IMUInfo describes the accelerometer, or why there is none.
type IMUInfo struct {
	Present bool
	Kind    string
	Addr    uint8
	Bus     string
	Error   string
}

// Buttons is the live button state.
type Buttons struct {
	Interrupts bool    // edge interrupts armed; false means polled
	Pressed    [3]bool // left, center, right; raw level
}

// Snapshot is a point-in-time copy of the daemon state, safe to use after
// the lock is released.
type Snapshot struct {
	Counts        event.Counts
	Last          *event.Event
	Buttons       Buttons
	IMU           IMUInfo
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the event counters and the latest event.
func (t *Tracker) Update(counts event.Counts, last *event.Event) {
	t.mu.Lock()
	t.snap.Counts = counts
	if last != nil {
		ev := *last
		t.snap.Last = &ev
	}
	t.mu.Unlock()
}

// SetButtons stores the live button state.
func (t *Tracker) SetButtons(b Buttons) {
	t.mu.Lock()
	t.snap.Buttons = b
	t.mu.Unlock()
}

// SetIMU stores the accelerometer description.
func (t *Tracker) SetIMU(info IMUInfo) {
	t.mu.Lock()
	t.snap.IMU = info
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a copy of the daemon state with Now set to the current
// time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Last != nil {
		ev := *s.Last
		s.Last = &ev
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
