// Package shake turns accelerometer readings into debounced shake events.
// Time comes from an injected clock; the detector never reads the bus itself
// except through a Source passed to Poll or RunBlocking.
package shake

import (
	"context"
	"log"
	"sync"

	"github.com/sweeney/pixiboo/internal/callback"
	"github.com/sweeney/pixiboo/internal/clock"
	"github.com/sweeney/pixiboo/internal/imu"
)

// Defaults, in milli-g and milliseconds.
const (
	DefaultThresholdMg  = 1500
	DefaultDebounceMs   = 500
	DefaultPollInterval = 50
)

// Source provides calibrated readings. *imu.Handle satisfies it.
type Source interface {
	ReadAcceleration() (imu.Vector, error)
}

// Detector holds the shake state for one consumer. Several detectors with
// different thresholds may share a Source.
type Detector struct {
	clk clock.Clock

	// Report receives callback failures from RunBlocking. Defaults to
	// callback.LogReporter.
	Report callback.Reporter

	mu          sync.Mutex
	thresholdMg uint32
	debounceMs  uint32
	lastShake   uint32
	shaken      bool
	pending     bool
}

// New creates a detector. Zero threshold or debounce selects the default.
func New(clk clock.Clock, thresholdMg, debounceMs uint32) *Detector {
	if thresholdMg == 0 {
		thresholdMg = DefaultThresholdMg
	}
	if debounceMs == 0 {
		debounceMs = DefaultDebounceMs
	}
	return &Detector{
		clk:         clk,
		Report:      callback.LogReporter,
		thresholdMg: thresholdMg,
		debounceMs:  debounceMs,
	}
}

// SetThreshold changes the trigger magnitude. It applies from the next Check.
func (d *Detector) SetThreshold(mg uint32) {
	d.mu.Lock()
	d.thresholdMg = mg
	d.mu.Unlock()
}

// Threshold returns the trigger magnitude in milli-g.
func (d *Detector) Threshold() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.thresholdMg
}

// Check feeds one reading. A reading above the threshold arms a pending
// shake unless one fired within the debounce window. Check returns the
// pending flag as it was before this reading and clears it, so each shake
// is reported once, by the first call after it.
func (d *Detector) Check(v imu.Vector) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	was := d.pending
	d.pending = false

	limit := uint64(d.thresholdMg)
	if v.MagnitudeSquared() <= limit*limit {
		return was
	}

	now := d.clk.NowMs()
	if d.shaken && clock.Elapsed(now, d.lastShake) < d.debounceMs {
		return was
	}
	d.pending = true
	d.shaken = true
	d.lastShake = now
	return was
}

// Poll reads src once and runs Check on the result.
func (d *Detector) Poll(src Source) (bool, error) {
	v, err := src.ReadAcceleration()
	if err != nil {
		return false, err
	}
	return d.Check(v), nil
}

// RunBlocking polls src every intervalMs and invokes cb on each shake until
// ctx is cancelled. Read errors are logged and polling continues. A failing
// cb is reported and never stops the loop.
func (d *Detector) RunBlocking(ctx context.Context, src Source, cb callback.Func, intervalMs uint32) error {
	if intervalMs == 0 {
		intervalMs = DefaultPollInterval
	}
	report := d.Report
	if report == nil {
		report = callback.LogReporter
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		shaken, err := d.Poll(src)
		if err != nil {
			log.Printf("shake: read failed: %v", err)
		} else if shaken && cb != nil {
			if err := callback.Call("shake", cb); err != nil {
				report(err)
			}
		}

		d.clk.SleepMs(intervalMs)
	}
}
