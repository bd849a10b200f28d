//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealButtons reads the three board buttons from actual hardware using the
// Linux GPIO character device.
type RealButtons struct {
	chip   *gpiocdev.Chip
	inputs [3]*realInput
}

type realInput struct {
	line *gpiocdev.Line
	pin  int

	mu      sync.RWMutex
	edge    Edge
	handler func()
}

// NewRealButtons requests the given pins (left, center, right) as inputs with
// pull-ups and falling/rising edge detection. Edge events are only delivered
// to a handler once OnEdge has been called on that input.
// debounce is passed to the kernel line debouncer when non-zero.
func NewRealButtons(chipName string, pins [3]int, debounce time.Duration) (*RealButtons, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealButtons{chip: chip}
	for i, pin := range pins {
		in := &realInput{pin: pin}
		opts := []gpiocdev.LineReqOption{
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(in.handleEvent),
		}
		if debounce > 0 {
			opts = append(opts, gpiocdev.WithDebounce(debounce))
		}
		line, err := chip.RequestLine(pin, opts...)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request button pin %d: %w", pin, err)
		}
		in.line = line
		b.inputs[i] = in
	}

	return b, nil
}

// Inputs returns the left, center and right inputs.
func (b *RealButtons) Inputs() [3]Input {
	var out [3]Input
	for i, in := range b.inputs {
		out[i] = in
	}
	return out
}

// Read returns the raw level of the line.
func (r *realInput) Read() (Level, error) {
	v, err := r.line.Value()
	if err != nil {
		return High, fmt.Errorf("read pin %d: %w", r.pin, err)
	}
	if v == 0 {
		return Low, nil
	}
	return High, nil
}

// OnEdge installs the handler called from the gpiocdev event goroutine.
func (r *realInput) OnEdge(edge Edge, handler func()) error {
	if handler == nil {
		return fmt.Errorf("pin %d: nil edge handler", r.pin)
	}
	r.mu.Lock()
	r.edge = edge
	r.handler = handler
	r.mu.Unlock()
	return nil
}

func (r *realInput) handleEvent(evt gpiocdev.LineEvent) {
	r.mu.RLock()
	h, edge := r.handler, r.edge
	r.mu.RUnlock()
	if h == nil {
		return
	}

	falling := evt.Type == gpiocdev.LineEventFallingEdge
	switch {
	case edge == EdgeBoth,
		edge == EdgeFalling && falling,
		edge == EdgeRising && !falling:
		h()
	}
}

// Close releases GPIO resources.
// Lines are left as inputs with pull-up so the buttons read released.
func (b *RealButtons) Close() error {
	var errs []error

	for _, in := range b.inputs {
		if in == nil || in.line == nil {
			continue
		}
		if err := in.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", in.pin, err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
