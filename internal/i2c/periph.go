package i2c

import (
	"fmt"
	"log"
	"strconv"
	"sync"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeriphOpener opens host I2C buses through periph.io.
// Bus IDs map to periph bus numbers (/dev/i2c-N on Linux).
type PeriphOpener struct {
	once    sync.Once
	initErr error
}

// NewPeriphOpener returns an opener; host drivers load on first Open.
func NewPeriphOpener() *PeriphOpener {
	return &PeriphOpener{}
}

// Open opens bus cfg.ID and applies cfg.Frequency.
// Many Linux bus drivers fix the clock in the device tree and refuse
// SetSpeed; that is logged and the bus is still returned.
func (p *PeriphOpener) Open(cfg Config) (Bus, error) {
	p.once.Do(func() {
		if _, err := host.Init(); err != nil {
			p.initErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	if p.initErr != nil {
		return nil, p.initErr
	}

	bc, err := i2creg.Open(strconv.Itoa(cfg.ID))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg, err)
	}
	if cfg.Frequency > 0 {
		if err := bc.SetSpeed(cfg.Frequency); err != nil {
			log.Printf("i2c: %s: set speed not applied: %v", cfg, err)
		}
	}
	return NewTxBus(bc, bc), nil
}
