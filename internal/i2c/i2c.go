// Package i2c provides register-level I2C bus access for the board's IMU.
// Any transport with a tinygo-style Tx(addr, w, r) method can back a Bus
// through TxBus; on Linux hosts the periph.io opener supplies one.
package i2c

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"periph.io/x/conn/v3/physic"
)

// ErrNoAck is returned when no device acknowledged its address.
// Any other failure is a bus error.
var ErrNoAck = errors.New("i2c: no acknowledge")

// Scan range: 7-bit addresses outside the reserved blocks.
const (
	FirstAddress = 0x08
	LastAddress  = 0x77
)

// Bus is an opened I2C bus.
type Bus interface {
	// Scan returns the addresses that acknowledged, in ascending order.
	Scan() ([]uint8, error)

	// ReadRegister fills buf starting at register reg of device addr.
	ReadRegister(addr, reg uint8, buf []byte) error

	// WriteRegister writes data starting at register reg of device addr.
	WriteRegister(addr, reg uint8, data []byte) error

	// Close releases the bus.
	Close() error
}

// Config identifies one bus configuration candidate.
type Config struct {
	ID        int
	Frequency physic.Frequency
}

func (c Config) String() string {
	return fmt.Sprintf("I2C%d@%s", c.ID, c.Frequency)
}

// DefaultConfigs is the ordered candidate list tried during IMU bring-up.
// The first entry is the board's documented wiring.
var DefaultConfigs = []Config{
	{ID: 0, Frequency: 100 * physic.KiloHertz},
	{ID: 0, Frequency: 400 * physic.KiloHertz},
	{ID: 1, Frequency: 100 * physic.KiloHertz},
}

// Opener opens a bus for a configuration.
type Opener interface {
	Open(cfg Config) (Bus, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(cfg Config) (Bus, error)

// Open calls f(cfg).
func (f OpenerFunc) Open(cfg Config) (Bus, error) { return f(cfg) }

// IsNoAck reports whether err means the address was not acknowledged.
// Linux i2c-dev reports a NACK as ENXIO or EREMOTEIO; transports that do not
// wrap the errno are matched on its message.
func IsNoAck(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoAck) || errors.Is(err, syscall.ENXIO) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "remote I/O error") ||
		strings.Contains(msg, "no such device or address") ||
		strings.Contains(msg, "NACK")
}

// FormatAddrs renders addresses as hex for log lines.
func FormatAddrs(addrs []uint8) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = fmt.Sprintf("0x%02x", a)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
