package i2c

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// FakeDevice is a scripted register file behind one address.
type FakeDevice struct {
	// Registers holds the bytes returned by a read starting at a register.
	// Reads shorter than the stored slice return its prefix; longer reads
	// are zero-padded.
	Registers map[uint8][]byte

	// queued reads per register, consumed before Registers.
	queued map[uint8][][]byte

	// FailReads makes the next FailReads reads return ReadError.
	FailReads int

	// ReadError is returned by failing reads (defaults to a bus error).
	ReadError error

	// WriteError, if set, is returned by every write.
	WriteError error

	// Writes records register writes in order.
	Writes []Write

	// ReadCount counts reads per register.
	ReadCount map[uint8]int
}

// Write is one recorded register write.
type Write struct {
	Reg  uint8
	Data []byte
}

// NewFakeDevice creates an empty device.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{
		Registers: map[uint8][]byte{},
		queued:    map[uint8][][]byte{},
		ReadCount: map[uint8]int{},
	}
}

// Queue scripts successive reads of reg.
func (d *FakeDevice) Queue(reg uint8, reads ...[]byte) {
	d.queued[reg] = append(d.queued[reg], reads...)
}

// FakeBus is a test double for Bus.
type FakeBus struct {
	mu      sync.Mutex
	devices map[uint8]*FakeDevice

	// ScanError, if set, will be returned by Scan.
	ScanError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeBus creates a bus with no devices.
func NewFakeBus() *FakeBus {
	return &FakeBus{devices: map[uint8]*FakeDevice{}}
}

// Attach places dev at addr and returns it.
func (b *FakeBus) Attach(addr uint8, dev *FakeDevice) *FakeDevice {
	b.mu.Lock()
	b.devices[addr] = dev
	b.mu.Unlock()
	return dev
}

// Scan returns attached addresses in ascending order.
func (b *FakeBus) Scan() ([]uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ScanError != nil {
		return nil, b.ScanError
	}
	var out []uint8
	for a := range b.devices {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ReadRegister serves scripted register contents.
func (b *FakeBus) ReadRegister(addr, reg uint8, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[addr]
	if !ok {
		return fmt.Errorf("read 0x%02x reg 0x%02x: %w", addr, reg, ErrNoAck)
	}
	d.ReadCount[reg]++
	if d.FailReads > 0 {
		d.FailReads--
		if d.ReadError != nil {
			return d.ReadError
		}
		return errors.New("fake i2c: bus error")
	}

	var src []byte
	if q := d.queued[reg]; len(q) > 0 {
		src = q[0]
		d.queued[reg] = q[1:]
	} else {
		src = d.Registers[reg]
	}
	for i := range buf {
		buf[i] = 0
	}
	copy(buf, src)
	return nil
}

// WriteRegister records the write and stores it as the register content.
func (b *FakeBus) WriteRegister(addr, reg uint8, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[addr]
	if !ok {
		return fmt.Errorf("write 0x%02x reg 0x%02x: %w", addr, reg, ErrNoAck)
	}
	if d.WriteError != nil {
		return d.WriteError
	}
	cp := append([]byte(nil), data...)
	d.Writes = append(d.Writes, Write{Reg: reg, Data: cp})
	d.Registers[reg] = cp
	return nil
}

// Close marks the bus as closed.
func (b *FakeBus) Close() error {
	b.mu.Lock()
	b.Closed = true
	b.mu.Unlock()
	return nil
}

// FakeOpener hands out FakeBus instances per configuration.
type FakeOpener struct {
	// Buses maps a configuration to the bus it opens.
	Buses map[Config]*FakeBus

	// Errors maps a configuration to an open failure.
	Errors map[Config]error

	// Opened records every Open call in order.
	Opened []Config
}

// NewFakeOpener creates an opener with no buses.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{
		Buses:  map[Config]*FakeBus{},
		Errors: map[Config]error{},
	}
}

// Open returns the configured bus or error. Unknown configurations open an
// empty bus.
func (o *FakeOpener) Open(cfg Config) (Bus, error) {
	o.Opened = append(o.Opened, cfg)
	if err := o.Errors[cfg]; err != nil {
		return nil, err
	}
	if b, ok := o.Buses[cfg]; ok {
		return b, nil
	}
	return NewFakeBus(), nil
}
