package imu

import (
	"context"
	"fmt"
	"log"

	"github.com/sweeney/pixiboo/internal/clock"
	"github.com/sweeney/pixiboo/internal/i2c"
)

// Options controls bring-up. Zero values select the defaults.
type Options struct {
	// Configs is the ordered bus candidate list. Default i2c.DefaultConfigs.
	Configs []i2c.Config

	// BootDelayMs is the wait before touching the bus. Default 1000.
	BootDelayMs uint32

	// SettleMs is the wait between opening a bus and scanning it. Default 20.
	SettleMs uint32
}

func (o Options) withDefaults() Options {
	if len(o.Configs) == 0 {
		o.Configs = i2c.DefaultConfigs
	}
	if o.BootDelayMs == 0 {
		o.BootDelayMs = DefaultBootDelayMs
	}
	if o.SettleMs == 0 {
		o.SettleMs = DefaultSettleMs
	}
	return o
}

// BringUp waits for the sensor to boot, finds it on the first bus candidate
// that answers a scan, and runs its init protocol. The returned handle owns
// the bus. On failure every bus it opened has been closed again.
func BringUp(ctx context.Context, opener i2c.Opener, clk clock.Clock, opts Options) (*Handle, error) {
	opts = opts.withDefaults()

	log.Printf("imu: waiting %dms for sensor boot", opts.BootDelayMs)
	clk.SleepMs(opts.BootDelayMs)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("imu bring-up: %w", err)
	}

	bus, cfg, addrs, err := probe(ctx, opener, clk, opts)
	if err != nil {
		return nil, err
	}

	kind, addr, err := Detect(addrs)
	if err != nil {
		bus.Close()
		if be, ok := err.(*BringUpError); ok {
			be.Bus = cfg
		}
		log.Printf("imu: %v", err)
		return nil, err
	}
	log.Printf("imu: detected %s at 0x%02x on %s%s", kind, addr, cfg, altSuffix(addr))

	h := &Handle{
		bus:    bus,
		busCfg: cfg,
		addr:   addr,
		kind:   kind,
		clk:    clk,
	}
	if err := h.initDevice(ctx); err != nil {
		bus.Close()
		log.Printf("imu: %v", err)
		return nil, err
	}
	log.Printf("imu: %s ready", kind)
	return h, nil
}

func altSuffix(addr uint8) string {
	for _, c := range detectOrder {
		if c.addr == addr && c.alt {
			return " (alternate address)"
		}
	}
	return ""
}

// probe tries each bus candidate in order. The first that scans at least
// one address wins and later candidates are never opened.
func probe(ctx context.Context, opener i2c.Opener, clk clock.Clock, opts Options) (i2c.Bus, i2c.Config, []uint8, error) {
	opened := 0
	var lastErr error

	for _, cfg := range opts.Configs {
		if err := ctx.Err(); err != nil {
			return nil, i2c.Config{}, nil, fmt.Errorf("imu bring-up: %w", err)
		}

		bus, err := opener.Open(cfg)
		if err != nil {
			log.Printf("imu: %s: open failed: %v", cfg, err)
			lastErr = err
			continue
		}
		opened++
		clk.SleepMs(opts.SettleMs)

		addrs, err := bus.Scan()
		if err != nil {
			log.Printf("imu: %s: scan failed: %v", cfg, err)
			lastErr = err
			bus.Close()
			continue
		}
		if len(addrs) == 0 {
			log.Printf("imu: %s: scan found no devices", cfg)
			bus.Close()
			continue
		}
		log.Printf("imu: %s: scan found %s", cfg, i2c.FormatAddrs(addrs))
		return bus, cfg, addrs, nil
	}

	if opened == 0 {
		return nil, i2c.Config{}, nil, &BringUpError{Kind: ErrNoBusFound, Stage: "probe", Err: lastErr}
	}
	return nil, i2c.Config{}, nil, &BringUpError{Kind: ErrNoDeviceFound, Stage: "probe", Err: lastErr}
}

// initDevice runs the device-specific protocol.
func (h *Handle) initDevice(ctx context.Context) error {
	switch h.kind {
	case MPU6050:
		// Clear the sleep bit.
		if err := h.writeStep(mpuRegPwrMgmt1, 0x00, mpuWakeSettleMs); err != nil {
			return err
		}
	case LSM6DS3:
		if err := h.writeStep(lsmRegCtrl1XL, lsmCtrl1XL104Hz2g, lsmSettleMs); err != nil {
			return err
		}
	case BNO055:
		return h.initBNO055(ctx)
	default:
		return &BringUpError{Kind: ErrUnsupportedDevice, Stage: "init", Bus: h.busCfg, Addr: h.addr}
	}
	return nil
}

// initBNO055 waits for the chip id, then moves the chip into NDOF fusion
// mode. Mode changes are only accepted in config mode, and every page or
// mode write needs its settle time.
func (h *Handle) initBNO055(ctx context.Context) error {
	if err := h.waitChipID(ctx); err != nil {
		return err
	}

	steps := []struct {
		reg    uint8
		val    uint8
		settle uint32
	}{
		{bnoRegOprMode, bnoOprModeConfig, bnoConfigModeMs},
		{bnoRegPwrMode, bnoPowerModeNormal, bnoStepMs},
		{bnoRegPageID, 0x00, bnoStepMs},
		{bnoRegSysTrigger, 0x00, bnoStepMs},
		{bnoRegOprMode, bnoOprModeNDOF, bnoNDOFModeMs},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("imu bring-up: %w", err)
		}
		if err := h.writeStep(s.reg, s.val, s.settle); err != nil {
			return err
		}
	}
	return nil
}

// waitChipID polls the chip id every 10ms for up to 850ms, then makes one
// last attempt after a further 100ms.
func (h *Handle) waitChipID(ctx context.Context) error {
	start := h.clk.NowMs()
	for clock.Elapsed(h.clk.NowMs(), start) < bnoChipIDTimeoutMs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("imu bring-up: %w", err)
		}
		id, err := h.readByte(bnoRegChipID)
		if err == nil && id == bnoChipID {
			log.Printf("imu: BNO055 chip id verified")
			return nil
		}
		h.clk.SleepMs(bnoChipIDRetryMs)
	}

	h.clk.SleepMs(bnoChipIDLastTryMs)
	id, err := h.readByte(bnoRegChipID)
	if err != nil {
		return h.initError(ErrProtocolTimeout, err)
	}
	if id != bnoChipID {
		be := h.initError(ErrChipIDMismatch, nil)
		be.ChipID = id
		return be
	}
	log.Printf("imu: BNO055 chip id verified on final attempt")
	return nil
}

func (h *Handle) writeStep(reg, val uint8, settleMs uint32) error {
	if err := h.bus.WriteRegister(h.addr, reg, []byte{val}); err != nil {
		return h.initError(ErrProtocolTimeout, err)
	}
	h.clk.SleepMs(settleMs)
	return nil
}

func (h *Handle) initError(kind, cause error) *BringUpError {
	return &BringUpError{
		Kind:   kind,
		Stage:  "init",
		Bus:    h.busCfg,
		Device: h.kind,
		Addr:   h.addr,
		Err:    cause,
	}
}
