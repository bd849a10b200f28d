// Package clock provides wrapping millisecond ticks for the board.
// Timestamps are uint32 and wrap at 2^32 ms (about 49.7 days); differences
// must always go through Elapsed or Diff, never plain comparison.
package clock

import "time"

// Clock supplies monotonic millisecond ticks and cooperative sleeps.
type Clock interface {
	// NowMs returns the current tick count in milliseconds.
	NowMs() uint32

	// SleepMs blocks the calling goroutine for ms milliseconds.
	SleepMs(ms uint32)
}

// Elapsed returns the number of milliseconds from since to now,
// correct across a single wraparound.
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// Diff returns the signed difference a-b, like MicroPython's ticks_diff.
func Diff(a, b uint32) int32 {
	return int32(a - b)
}

// System is a Clock backed by the Go monotonic clock.
type System struct {
	start  time.Time
	offset uint32
}

// NewSystem returns a System clock whose ticks start at zero.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// NewSystemAt returns a System clock whose ticks start at offset.
// Useful for exercising wraparound on real hardware.
func NewSystemAt(offset uint32) *System {
	return &System{start: time.Now(), offset: offset}
}

// NowMs returns milliseconds since the clock was created, truncated to 32 bits.
func (s *System) NowMs() uint32 {
	return s.offset + uint32(time.Since(s.start).Milliseconds())
}

// SleepMs sleeps using time.Sleep, which yields to other goroutines.
func (s *System) SleepMs(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
