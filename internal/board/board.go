// Package board wires the clock, the I2C bus and the peripherals into the
// single board context a program creates at startup.
package board

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sweeney/pixiboo/internal/button"
	"github.com/sweeney/pixiboo/internal/clock"
	"github.com/sweeney/pixiboo/internal/gpio"
	"github.com/sweeney/pixiboo/internal/i2c"
	"github.com/sweeney/pixiboo/internal/imu"
	"github.com/sweeney/pixiboo/internal/shake"
)

// ErrClosed is returned when using a board after Close.
var ErrClosed = errors.New("board closed")

// Config selects what the board brings up.
type Config struct {
	Buttons button.Config

	// IMUEnabled runs IMU bring-up. When IMURequired is false a failed
	// bring-up leaves the board without an IMU instead of failing New.
	IMUEnabled  bool
	IMURequired bool
	IMU         imu.Options

	ShakeThresholdMg uint32
	ShakeDebounceMs  uint32
}

// Deps are the hardware handles the board is built on.
type Deps struct {
	Clock  clock.Clock
	Inputs [button.Count]gpio.Input
	Opener i2c.Opener
}

// Board is the process-wide hardware context.
type Board struct {
	Clock   clock.Clock
	Buttons *button.Dispatcher

	// IMU and Shake are nil when no accelerometer was brought up.
	IMU    *imu.Handle
	Shake  *shake.Detector
	IMUErr error

	closed bool
}

// New brings the board up in order: clock, bus, peripherals.
func New(ctx context.Context, cfg Config, deps Deps) (*Board, error) {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	b := &Board{Clock: clk}

	if cfg.IMUEnabled {
		if deps.Opener == nil {
			return nil, errors.New("board: imu enabled without an i2c opener")
		}
		h, err := imu.BringUp(ctx, deps.Opener, clk, cfg.IMU)
		switch {
		case err == nil:
			b.IMU = h
			b.Shake = shake.New(clk, cfg.ShakeThresholdMg, cfg.ShakeDebounceMs)
		case cfg.IMURequired || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("board: %w", err)
		default:
			log.Printf("board: continuing without imu: %v", err)
			b.IMUErr = err
		}
	}

	b.Buttons = button.New(deps.Inputs, clk, cfg.Buttons)
	return b, nil
}

// HasIMU reports whether an accelerometer is available.
func (b *Board) HasIMU() bool {
	return b.IMU != nil
}

// Close releases the bus. Button inputs belong to the caller.
func (b *Board) Close() error {
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	if b.IMU != nil {
		return b.IMU.Close()
	}
	return nil
}
