package event

import (
	"sync"
	"time"
)

// Recorder counts events and decides when a heartbeat is due.
type Recorder struct {
	mu            sync.Mutex
	startTime     time.Time
	lastHeartbeat time.Time
	counts        Counts
	last          *Event
}

// NewRecorder creates a recorder. startTime anchors uptime and the first
// heartbeat interval.
func NewRecorder(startTime time.Time) *Recorder {
	return &Recorder{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Record counts e. Unknown buttons are counted as events but not per button.
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Type {
	case TypeShake:
		r.counts.Shakes++
	case TypeButtonPressed:
		switch e.Button {
		case "left":
			r.counts.Left++
		case "center":
			r.counts.Center++
		case "right":
			r.counts.Right++
		}
	}
	ev := e
	r.last = &ev
}

// Counts returns a copy of the current counters.
func (r *Recorder) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}

// Last returns the most recent event, or nil before the first one.
func (r *Recorder) Last() *Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	ev := *r.last
	return &ev
}

// CheckHeartbeat returns heartbeat data if interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed
// or if interval is <= 0 (disabled).
func (r *Recorder) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastHeartbeat) < interval {
		return nil
	}

	r.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(r.startTime),
		Counts:    r.counts,
	}
}
