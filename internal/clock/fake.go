package clock

import "sync"

// Fake is a manually driven Clock for tests.
// SleepMs advances the fake time instead of blocking.
type Fake struct {
	mu    sync.Mutex
	now   uint32
	slept uint64
}

// NewFake creates a Fake clock reading start.
func NewFake(start uint32) *Fake {
	return &Fake{now: start}
}

// NowMs returns the current fake time.
func (f *Fake) NowMs() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// SleepMs advances the fake time by ms.
func (f *Fake) SleepMs(ms uint32) {
	f.mu.Lock()
	f.now += ms
	f.slept += uint64(ms)
	f.mu.Unlock()
}

// Advance moves the fake time forward by ms.
func (f *Fake) Advance(ms uint32) {
	f.mu.Lock()
	f.now += ms
	f.mu.Unlock()
}

// Set jumps the fake time to now.
func (f *Fake) Set(now uint32) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// Slept returns the total milliseconds passed to SleepMs.
func (f *Fake) Slept() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}
