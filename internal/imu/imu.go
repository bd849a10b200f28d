// Package imu brings up the board's I2C accelerometer and reads it in milli-g.
//
// Bring-up is a one-shot sequence:
//
//	wait for boot → probe bus candidates → detect by address → device init → ready
//
// Any failure ends the attempt with a *BringUpError; nothing is retried
// automatically and the caller may start over with another BringUp.
package imu

import (
	"errors"
	"fmt"

	"github.com/sweeney/pixiboo/internal/i2c"
)

// Kind is the detected device family.
type Kind uint8

const (
	KindUnknown Kind = iota
	BNO055
	MPU6050
	LSM6DS3
)

func (k Kind) String() string {
	switch k {
	case BNO055:
		return "BNO055"
	case MPU6050:
		return "MPU6050"
	case LSM6DS3:
		return "LSM6DS3"
	}
	return "unknown"
}

// Vector is an acceleration sample in milli-g.
type Vector struct {
	X, Y, Z int32
}

// MagnitudeSquared returns x²+y²+z². Each term is at most 2^62, so the sum
// of three always fits a uint64.
func (v Vector) MagnitudeSquared() uint64 {
	return sq(v.X) + sq(v.Y) + sq(v.Z)
}

func sq(a int32) uint64 {
	u := uint64(a)
	if a < 0 {
		u = uint64(-int64(a))
	}
	return u * u
}

func (v Vector) String() string {
	return fmt.Sprintf("(%d, %d, %d) mg", v.X, v.Y, v.Z)
}

// Bring-up failure kinds, matched with errors.Is.
var (
	ErrNoBusFound        = errors.New("no i2c bus could be opened")
	ErrNoDeviceFound     = errors.New("no device answered on any i2c bus")
	ErrUnsupportedDevice = errors.New("unsupported device")
	ErrChipIDMismatch    = errors.New("chip id mismatch")
	ErrProtocolTimeout   = errors.New("device protocol timeout")
)

// BringUpError reports why a bring-up attempt failed.
type BringUpError struct {
	Kind   error      // one of the Err* kinds above
	Stage  string     // "probe", "detect", "init"
	Bus    i2c.Config // bus in use, zero before a bus was found
	Device Kind
	Addr   uint8
	Addrs  []uint8 // scan result, for UnsupportedDevice
	ChipID uint8   // last chip id read, for ChipIDMismatch
	Err    error   // underlying cause, may be nil
}

func (e *BringUpError) Error() string {
	msg := "imu " + e.Stage + ": " + e.Kind.Error()
	switch {
	case errors.Is(e.Kind, ErrUnsupportedDevice):
		msg += " at " + i2c.FormatAddrs(e.Addrs)
	case errors.Is(e.Kind, ErrChipIDMismatch):
		msg += fmt.Sprintf(": %s at 0x%02x reported 0x%02x", e.Device, e.Addr, e.ChipID)
	case e.Device != KindUnknown:
		msg += fmt.Sprintf(": %s at 0x%02x", e.Device, e.Addr)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the failure kind.
func (e *BringUpError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *BringUpError) Unwrap() error {
	return e.Err
}

// candidate is one entry of the detection priority list.
type candidate struct {
	addr uint8
	kind Kind
	alt  bool
}

// detectOrder is the address priority used by Detect. First match wins.
var detectOrder = []candidate{
	{AddrBNO055, BNO055, false},
	{AddrBNO055Alt, BNO055, true},
	{AddrMPU6050, MPU6050, false},
	{AddrMPU6050Alt, MPU6050, true},
	{AddrLSM6DS3, LSM6DS3, false},
}

// Detect picks the device to use from a bus scan result.
func Detect(addrs []uint8) (Kind, uint8, error) {
	if len(addrs) == 0 {
		return KindUnknown, 0, &BringUpError{Kind: ErrNoDeviceFound, Stage: "detect"}
	}
	for _, c := range detectOrder {
		for _, a := range addrs {
			if a == c.addr {
				return c.kind, c.addr, nil
			}
		}
	}
	return KindUnknown, 0, &BringUpError{
		Kind:  ErrUnsupportedDevice,
		Stage: "detect",
		Addrs: append([]uint8(nil), addrs...),
	}
}
