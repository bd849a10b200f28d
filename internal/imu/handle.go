package imu

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/sweeney/pixiboo/internal/clock"
	"github.com/sweeney/pixiboo/internal/i2c"
)

// Handle is a brought-up accelerometer. Identity is fixed; calibration
// offsets change only through Calibrate or SetOffsets.
type Handle struct {
	bus    i2c.Bus
	busCfg i2c.Config
	addr   uint8
	kind   Kind
	clk    clock.Clock

	mu      sync.Mutex
	offsets Vector
	buf     [6]byte
}

// scale converts raw counts to milli-g: raw*num/den, truncated toward zero.
type scale struct {
	dataReg uint8
	idReg   uint8
	num     int32
	den     int32
}

// MPU6050/LSM6DS3 at ±2g: 2000mg/16384 ≈ 0.122 mg/LSB.
// BNO055: 1 LSB = 0.01 m/s² ≈ 1.02 mg.
var scales = map[Kind]scale{
	MPU6050: {dataReg: mpuRegAccelXOutH, idReg: mpuRegWhoAmI, num: 122, den: 1000},
	LSM6DS3: {dataReg: lsmRegOutXLXL, idReg: lsmRegWhoAmI, num: 122, den: 1000},
	BNO055:  {dataReg: bnoRegAccelXLSB, idReg: bnoRegChipID, num: 102, den: 100},
}

// Kind returns the detected device family.
func (h *Handle) Kind() Kind { return h.kind }

// Address returns the device's I2C address.
func (h *Handle) Address() uint8 { return h.addr }

// Bus returns the bus configuration the device was found on.
func (h *Handle) Bus() i2c.Config { return h.busCfg }

// Offsets returns the current calibration offsets.
func (h *Handle) Offsets() Vector {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offsets
}

// SetOffsets replaces the calibration offsets.
func (h *Handle) SetOffsets(v Vector) {
	h.mu.Lock()
	h.offsets = v
	h.mu.Unlock()
}

// ReadRaw returns the scaled acceleration before calibration offsets.
func (h *Handle) ReadRaw() (Vector, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.readRawLocked()
}

func (h *Handle) readRawLocked() (Vector, error) {
	sc, ok := scales[h.kind]
	if !ok {
		return Vector{}, fmt.Errorf("imu: read: %w", ErrUnsupportedDevice)
	}
	if err := h.bus.ReadRegister(h.addr, sc.dataReg, h.buf[:]); err != nil {
		return Vector{}, fmt.Errorf("imu: read %s: %w", h.kind, err)
	}
	return decode(h.buf, sc), nil
}

// decode converts a 6-byte little-endian block of int16 words.
func decode(b [6]byte, sc scale) Vector {
	conv := func(lo int) int32 {
		raw := int32(int16(binary.LittleEndian.Uint16(b[lo : lo+2])))
		return raw * sc.num / sc.den
	}
	return Vector{X: conv(0), Y: conv(2), Z: conv(4)}
}

// ReadAcceleration returns the calibrated acceleration in milli-g.
func (h *Handle) ReadAcceleration() (Vector, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, err := h.readRawLocked()
	if err != nil {
		return Vector{}, err
	}
	return Vector{
		X: v.X - h.offsets.X,
		Y: v.Y - h.offsets.Y,
		Z: v.Z - h.offsets.Z,
	}, nil
}

// Calibrate averages 10 raw reads taken 10ms apart with the board at rest
// and flat. X and Y offsets become the averages; Z keeps 1000mg of gravity.
// Prior offsets are overwritten; on a read error they are left unchanged.
func (h *Handle) Calibrate() error {
	var sx, sy, sz int64
	for i := 0; i < calibrationSamples; i++ {
		v, err := h.ReadRaw()
		if err != nil {
			return fmt.Errorf("imu: calibrate: %w", err)
		}
		sx += int64(v.X)
		sy += int64(v.Y)
		sz += int64(v.Z)
		h.clk.SleepMs(calibrationIntervalMs)
	}

	h.SetOffsets(Vector{
		X: int32(floorDiv(sx, calibrationSamples)),
		Y: int32(floorDiv(sy, calibrationSamples)),
		Z: int32(floorDiv(sz, calibrationSamples)) - restingGravityMg,
	})
	return nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// WhoAmI reads the device's identity register.
func (h *Handle) WhoAmI() (uint8, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.readByteLocked(scales[h.kind].idReg)
}

func (h *Handle) readByte(reg uint8) (uint8, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.readByteLocked(reg)
}

func (h *Handle) readByteLocked(reg uint8) (uint8, error) {
	if err := h.bus.ReadRegister(h.addr, reg, h.buf[:1]); err != nil {
		return 0, err
	}
	return h.buf[0], nil
}

// Close releases the bus.
func (h *Handle) Close() error {
	return h.bus.Close()
}
