package gpio

import (
	"errors"
	"sync"
)

// FakeInput is a test double for a single input line.
// Levels are set by the test; SetLevel fires the installed edge handler
// synchronously when the transition matches, standing in for an interrupt.
type FakeInput struct {
	mu      sync.Mutex
	level   Level
	edge    Edge
	handler func()

	// Reads counts calls to Read.
	Reads int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// OnEdgeError, if set, will be returned by OnEdge.
	OnEdgeError error
}

// NewFakeInput creates a FakeInput at the given initial level.
func NewFakeInput(level Level) *FakeInput {
	return &FakeInput{level: level}
}

// Read returns the current scripted level.
func (f *FakeInput) Read() (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.ReadError != nil {
		return High, f.ReadError
	}
	return f.level, nil
}

// OnEdge records the handler.
func (f *FakeInput) OnEdge(edge Edge, handler func()) error {
	if f.OnEdgeError != nil {
		return f.OnEdgeError
	}
	if handler == nil {
		return errors.New("gpio: nil edge handler")
	}
	f.mu.Lock()
	f.edge = edge
	f.handler = handler
	f.mu.Unlock()
	return nil
}

// SetLevel changes the line level and fires the edge handler if armed for
// that transition. The handler runs outside the fake's lock.
func (f *FakeInput) SetLevel(level Level) {
	f.mu.Lock()
	prev := f.level
	f.level = level
	h := f.handler
	edge := f.edge
	f.mu.Unlock()

	if h == nil || prev == level {
		return
	}
	falling := prev == High && level == Low
	switch {
	case edge == EdgeBoth,
		edge == EdgeFalling && falling,
		edge == EdgeRising && !falling:
		h()
	}
}

// Press drives the line Low (active-low button pressed).
func (f *FakeInput) Press() { f.SetLevel(Low) }

// Release drives the line High.
func (f *FakeInput) Release() { f.SetLevel(High) }

// Armed reports whether an edge handler is installed.
func (f *FakeInput) Armed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

// Edge returns the edge the handler was installed for.
func (f *FakeInput) Edge() Edge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edge
}
