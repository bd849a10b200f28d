package i2c

import (
	"fmt"
	"io"

	"tinygo.org/x/drivers"
)

// TxBus implements Bus on top of a tinygo drivers.I2C transport.
//
// NOTE: Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
type TxBus struct {
	tx     drivers.I2C
	closer io.Closer
	probe  [1]byte
	wbuf   [17]byte
}

// NewTxBus wraps tx. closer may be nil.
func NewTxBus(tx drivers.I2C, closer io.Closer) *TxBus {
	return &TxBus{tx: tx, closer: closer}
}

// Scan probes every address with a one byte read.
// Addresses that NACK are skipped; any other error aborts the scan.
func (b *TxBus) Scan() ([]uint8, error) {
	var found []uint8
	for a := FirstAddress; a <= LastAddress; a++ {
		err := b.tx.Tx(uint16(a), nil, b.probe[:])
		if err == nil {
			found = append(found, uint8(a))
			continue
		}
		if IsNoAck(err) {
			continue
		}
		return nil, fmt.Errorf("scan 0x%02x: %w", a, err)
	}
	return found, nil
}

// ReadRegister writes reg and reads len(buf) bytes back.
func (b *TxBus) ReadRegister(addr, reg uint8, buf []byte) error {
	b.wbuf[0] = reg
	if err := b.tx.Tx(uint16(addr), b.wbuf[:1], buf); err != nil {
		return b.wrap("read", addr, reg, err)
	}
	return nil
}

// WriteRegister writes reg followed by data in one transaction.
func (b *TxBus) WriteRegister(addr, reg uint8, data []byte) error {
	var w []byte
	if len(data) < len(b.wbuf) {
		b.wbuf[0] = reg
		n := copy(b.wbuf[1:], data)
		w = b.wbuf[:1+n]
	} else {
		w = append([]byte{reg}, data...)
	}
	if err := b.tx.Tx(uint16(addr), w, nil); err != nil {
		return b.wrap("write", addr, reg, err)
	}
	return nil
}

func (b *TxBus) wrap(op string, addr, reg uint8, err error) error {
	if IsNoAck(err) {
		return fmt.Errorf("%s 0x%02x reg 0x%02x: %w: %v", op, addr, reg, ErrNoAck, err)
	}
	return fmt.Errorf("%s 0x%02x reg 0x%02x: %w", op, addr, reg, err)
}

// Close closes the underlying transport if it has a closer.
func (b *TxBus) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}
