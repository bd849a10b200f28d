package button

import (
	"fmt"
	"log"
	"sync"

	"github.com/sweeney/pixiboo/internal/callback"
	"github.com/sweeney/pixiboo/internal/clock"
	"github.com/sweeney/pixiboo/internal/gpio"
)

// Dispatcher owns the debounced state of the three buttons.
type Dispatcher struct {
	clk      clock.Clock
	debounce uint32
	auto     bool
	report   callback.Reporter

	locks   [Count]sync.Mutex
	buttons [Count]state

	armMu sync.Mutex
	armed bool
}

// New creates a dispatcher over the left, center and right inputs.
// Initial stable levels are sampled now, and the debounce window starts now.
func New(inputs [Count]gpio.Input, clk clock.Clock, cfg Config) *Dispatcher {
	d := &Dispatcher{
		clk:      clk,
		debounce: cfg.DebounceMs,
		auto:     !cfg.ManualUpdate,
		report:   cfg.Report,
	}
	if d.debounce == 0 {
		d.debounce = DefaultDebounceMs
	}
	if d.report == nil {
		d.report = callback.LogReporter
	}

	now := clk.NowMs()
	for i, in := range inputs {
		b := &d.buttons[i]
		b.input = in
		b.stable = read(in, ID(i))
		b.lastTransition = now
	}
	return d
}

// read samples a line; a failed read counts as released.
func read(in gpio.Input, id ID) gpio.Level {
	if in == nil {
		return gpio.High
	}
	lvl, err := in.Read()
	if err != nil {
		log.Printf("button: read %s: %v", id, err)
		return gpio.High
	}
	return lvl
}

// IsPressed returns the immediate, non-debounced state of the button.
// It never touches debounce state.
func (d *Dispatcher) IsPressed(id ID) bool {
	if !id.Valid() {
		return false
	}
	return read(d.buttons[id].input, id) == gpio.Low
}

// Poll reports a debounced press: true exactly once per physical press.
func (d *Dispatcher) Poll(id ID) bool {
	if !id.Valid() {
		return false
	}
	d.locks[id].Lock()
	defer d.locks[id].Unlock()
	return d.advance(id)
}

// advance applies one debounced sample. Caller holds locks[id].
func (d *Dispatcher) advance(id ID) bool {
	b := &d.buttons[id]
	lvl := read(b.input, id)
	if lvl == b.stable {
		return false
	}
	now := d.clk.NowMs()
	if clock.Elapsed(now, b.lastTransition) < d.debounce {
		return false
	}
	b.stable = lvl
	b.lastTransition = now
	return lvl == gpio.Low
}

// Register appends cb to the button's callback list. The same callback may
// be registered more than once and then runs once per registration.
// The first registration on any button arms edge interrupts unless the
// dispatcher was configured for manual updates.
func (d *Dispatcher) Register(id ID, cb Callback) error {
	if !id.Valid() {
		return fmt.Errorf("register %d: %w", id, ErrUnknownButton)
	}
	if cb == nil {
		return fmt.Errorf("register %s: nil callback", id)
	}

	d.locks[id].Lock()
	b := &d.buttons[id]
	if b.n == MaxCallbacks {
		d.locks[id].Unlock()
		return fmt.Errorf("register %s: %w", id, ErrTooManyCallbacks)
	}
	b.callbacks[b.n] = cb
	b.n++
	d.locks[id].Unlock()

	if d.auto {
		d.armInterrupts()
	}
	return nil
}

// armInterrupts installs falling-edge handlers on every button once.
// If any input refuses, the dispatcher stays in polled mode.
func (d *Dispatcher) armInterrupts() {
	d.armMu.Lock()
	defer d.armMu.Unlock()
	if d.armed {
		return
	}

	for _, id := range IDs {
		in := d.buttons[id].input
		if in == nil {
			log.Printf("button: %s has no input, interrupts disabled; call Tick", id)
			return
		}
		id := id
		if err := in.OnEdge(gpio.EdgeFalling, func() { d.DispatchInterrupt(id) }); err != nil {
			log.Printf("button: arm %s interrupt: %v; call Tick", id, err)
			return
		}
	}
	d.armed = true
}

// InterruptsArmed reports whether presses are delivered from edge interrupts.
// When false, the owner must call Tick to run callbacks.
func (d *Dispatcher) InterruptsArmed() bool {
	d.armMu.Lock()
	defer d.armMu.Unlock()
	return d.armed
}

// DispatchInterrupt handles a falling edge on id. Edges on a button with no
// callbacks leave its state alone so Poll still sees the press. Edges inside
// the debounce window of the last recorded transition are discarded.
// Otherwise the press is recorded and the button's callbacks run in
// registration order on the calling goroutine.
func (d *Dispatcher) DispatchInterrupt(id ID) {
	if !id.Valid() {
		return
	}
	d.locks[id].Lock()
	b := &d.buttons[id]
	if b.n == 0 {
		d.locks[id].Unlock()
		return
	}
	now := d.clk.NowMs()
	if clock.Elapsed(now, b.lastTransition) < d.debounce {
		d.locks[id].Unlock()
		return
	}
	b.lastTransition = now
	b.stable = gpio.Low
	cbs, n := b.callbacks, b.n
	d.locks[id].Unlock()

	d.invoke(id, cbs[:n])
}

// Tick polls all three buttons and runs callbacks for new presses.
// Needed when interrupts are not armed.
func (d *Dispatcher) Tick() {
	for _, id := range IDs {
		d.locks[id].Lock()
		pressed := d.advance(id)
		cbs, n := d.buttons[id].callbacks, d.buttons[id].n
		d.locks[id].Unlock()

		if pressed {
			d.invoke(id, cbs[:n])
		}
	}
}

func (d *Dispatcher) invoke(id ID, cbs []Callback) {
	for i, cb := range cbs {
		if err := callback.Call(fmt.Sprintf("button %s #%d", id, i), cb); err != nil {
			d.report(err)
		}
	}
}

// Callbacks returns the number of callbacks registered on id.
func (d *Dispatcher) Callbacks(id ID) int {
	if !id.Valid() {
		return 0
	}
	d.locks[id].Lock()
	defer d.locks[id].Unlock()
	return d.buttons[id].n
}

// DebounceMs returns the configured debounce window.
func (d *Dispatcher) DebounceMs() uint32 {
	return d.debounce
}
