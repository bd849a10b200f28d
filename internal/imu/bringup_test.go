package imu

import (
	"context"
	"errors"
	"testing"

	"github.com/sweeney/pixiboo/internal/clock"
	"github.com/sweeney/pixiboo/internal/i2c"
)

var (
	bus0Std  = i2c.DefaultConfigs[0]
	bus0Fast = i2c.DefaultConfigs[1]
	bus1Std  = i2c.DefaultConfigs[2]
)

// openerWith places a single device on cfg; every other candidate opens
// an empty bus.
func openerWith(cfg i2c.Config, addr uint8) (*i2c.FakeOpener, *i2c.FakeBus, *i2c.FakeDevice) {
	op := i2c.NewFakeOpener()
	bus := i2c.NewFakeBus()
	dev := bus.Attach(addr, i2c.NewFakeDevice())
	op.Buses[cfg] = bus
	return op, bus, dev
}

func TestBringUpMPU6050(t *testing.T) {
	op, bus, dev := openerWith(bus0Std, AddrMPU6050)
	clk := clock.NewFake(0)

	h, err := BringUp(context.Background(), op, clk, Options{})
	if err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if h.Kind() != MPU6050 || h.Address() != AddrMPU6050 || h.Bus() != bus0Std {
		t.Errorf("unexpected handle: %s 0x%02x %s", h.Kind(), h.Address(), h.Bus())
	}
	if len(dev.Writes) != 1 || dev.Writes[0].Reg != mpuRegPwrMgmt1 || dev.Writes[0].Data[0] != 0x00 {
		t.Errorf("expected single wake write, got %+v", dev.Writes)
	}
	// boot + settle + wake
	if clk.Slept() != 1000+20+10 {
		t.Errorf("slept %dms, want 1030", clk.Slept())
	}
	if len(op.Opened) != 1 {
		t.Errorf("expected only the first candidate opened, got %v", op.Opened)
	}
	if bus.Closed {
		t.Error("handle bus must stay open")
	}
}

func TestBringUpLSM6DS3(t *testing.T) {
	op, _, dev := openerWith(bus0Std, AddrLSM6DS3)

	h, err := BringUp(context.Background(), op, clock.NewFake(0), Options{})
	if err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if h.Kind() != LSM6DS3 {
		t.Errorf("got %s, want LSM6DS3", h.Kind())
	}
	if len(dev.Writes) != 1 || dev.Writes[0].Reg != lsmRegCtrl1XL || dev.Writes[0].Data[0] != 0x40 {
		t.Errorf("expected CTRL1_XL=0x40, got %+v", dev.Writes)
	}
}

func TestBringUpBNO055AlternateAddress(t *testing.T) {
	op, _, dev := openerWith(bus0Std, AddrBNO055Alt)
	dev.Registers[bnoRegChipID] = []byte{bnoChipID}

	h, err := BringUp(context.Background(), op, clock.NewFake(0), Options{})
	if err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if h.Kind() != BNO055 || h.Address() != AddrBNO055Alt {
		t.Fatalf("got %s at 0x%02x, want BNO055 at 0x29", h.Kind(), h.Address())
	}

	want := []i2c.Write{
		{Reg: bnoRegOprMode, Data: []byte{bnoOprModeConfig}},
		{Reg: bnoRegPwrMode, Data: []byte{bnoPowerModeNormal}},
		{Reg: bnoRegPageID, Data: []byte{0x00}},
		{Reg: bnoRegSysTrigger, Data: []byte{0x00}},
		{Reg: bnoRegOprMode, Data: []byte{bnoOprModeNDOF}},
	}
	if len(dev.Writes) != len(want) {
		t.Fatalf("expected %d init writes, got %+v", len(want), dev.Writes)
	}
	for i, w := range want {
		got := dev.Writes[i]
		if got.Reg != w.Reg || len(got.Data) != 1 || got.Data[0] != w.Data[0] {
			t.Errorf("write %d: got reg 0x%02x %v, want reg 0x%02x %v", i, got.Reg, got.Data, w.Reg, w.Data)
		}
	}
}

func TestBringUpBNO055DelayedChipID(t *testing.T) {
	op, _, dev := openerWith(bus0Std, AddrBNO055)
	dev.Queue(bnoRegChipID, []byte{0x00}, []byte{0x00}, []byte{bnoChipID})
	clk := clock.NewFake(0)

	if _, err := BringUp(context.Background(), op, clk, Options{}); err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if dev.ReadCount[bnoRegChipID] != 3 {
		t.Errorf("expected 3 chip id reads, got %d", dev.ReadCount[bnoRegChipID])
	}
	// boot + settle + two retries + config/power/page/trigger/ndof
	want := uint64(1000 + 20 + 2*10 + 25 + 10 + 10 + 10 + 20)
	if clk.Slept() != want {
		t.Errorf("slept %dms, want %d", clk.Slept(), want)
	}
}

func TestBringUpBNO055ChipIDMismatch(t *testing.T) {
	op, bus, dev := openerWith(bus0Std, AddrBNO055)
	dev.Registers[bnoRegChipID] = []byte{0x55}

	_, err := BringUp(context.Background(), op, clock.NewFake(0), Options{})
	if !errors.Is(err, ErrChipIDMismatch) {
		t.Fatalf("expected ErrChipIDMismatch, got %v", err)
	}
	var be *BringUpError
	if !errors.As(err, &be) || be.ChipID != 0x55 || be.Device != BNO055 {
		t.Errorf("unexpected error detail: %+v", be)
	}
	if len(dev.Writes) != 0 {
		t.Errorf("no mode writes expected before the chip id matches, got %+v", dev.Writes)
	}
	if !bus.Closed {
		t.Error("expected bus closed after failure")
	}
}

func TestBringUpBNO055ProtocolTimeout(t *testing.T) {
	op, _, dev := openerWith(bus0Std, AddrBNO055)
	dev.FailReads = 1000

	_, err := BringUp(context.Background(), op, clock.NewFake(0), Options{})
	if !errors.Is(err, ErrProtocolTimeout) {
		t.Fatalf("expected ErrProtocolTimeout, got %v", err)
	}
	// 85 polls inside the window plus the final attempt
	if n := dev.ReadCount[bnoRegChipID]; n != 86 {
		t.Errorf("expected 86 chip id reads, got %d", n)
	}
}

func TestBringUpInitWriteFailure(t *testing.T) {
	op, _, dev := openerWith(bus0Std, AddrMPU6050)
	cause := errors.New("arbitration lost")
	dev.WriteError = cause

	_, err := BringUp(context.Background(), op, clock.NewFake(0), Options{})
	if !errors.Is(err, ErrProtocolTimeout) {
		t.Fatalf("expected ErrProtocolTimeout, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("expected the write error as cause")
	}
}

func TestBringUpNoBusFound(t *testing.T) {
	op := i2c.NewFakeOpener()
	for _, cfg := range i2c.DefaultConfigs {
		op.Errors[cfg] = errors.New("no such file or directory")
	}

	_, err := BringUp(context.Background(), op, clock.NewFake(0), Options{})
	if !errors.Is(err, ErrNoBusFound) {
		t.Fatalf("expected ErrNoBusFound, got %v", err)
	}
	if len(op.Opened) != len(i2c.DefaultConfigs) {
		t.Errorf("expected every candidate tried, got %v", op.Opened)
	}
}

func TestBringUpNoDeviceFound(t *testing.T) {
	op := i2c.NewFakeOpener()
	buses := make([]*i2c.FakeBus, len(i2c.DefaultConfigs))
	for i, cfg := range i2c.DefaultConfigs {
		buses[i] = i2c.NewFakeBus()
		op.Buses[cfg] = buses[i]
	}

	_, err := BringUp(context.Background(), op, clock.NewFake(0), Options{})
	if !errors.Is(err, ErrNoDeviceFound) {
		t.Fatalf("expected ErrNoDeviceFound, got %v", err)
	}
	if errors.Is(err, ErrNoBusFound) {
		t.Error("opened buses must not report ErrNoBusFound")
	}
	for i, b := range buses {
		if !b.Closed {
			t.Errorf("bus %d left open", i)
		}
	}
}

func TestBringUpUnsupportedDevice(t *testing.T) {
	op, bus, _ := openerWith(bus0Std, 0x3c)

	_, err := BringUp(context.Background(), op, clock.NewFake(0), Options{})
	if !errors.Is(err, ErrUnsupportedDevice) {
		t.Fatalf("expected ErrUnsupportedDevice, got %v", err)
	}
	if errors.Is(err, ErrNoDeviceFound) {
		t.Error("an unknown address is not ErrNoDeviceFound")
	}
	var be *BringUpError
	if errors.As(err, &be) && be.Bus != bus0Std {
		t.Errorf("expected bus on error, got %s", be.Bus)
	}
	if !bus.Closed {
		t.Error("expected bus closed")
	}
}

func TestBringUpFallsThroughCandidates(t *testing.T) {
	op, _, _ := openerWith(bus1Std, AddrMPU6050)
	op.Errors[bus0Std] = errors.New("busy")
	scanFail := i2c.NewFakeBus()
	scanFail.ScanError = errors.New("bus stuck low")
	op.Buses[bus0Fast] = scanFail

	h, err := BringUp(context.Background(), op, clock.NewFake(0), Options{})
	if err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if h.Bus() != bus1Std {
		t.Errorf("got bus %s, want %s", h.Bus(), bus1Std)
	}
	if !scanFail.Closed {
		t.Error("expected failed-scan bus closed")
	}
	if len(op.Opened) != 3 {
		t.Errorf("expected 3 open attempts, got %v", op.Opened)
	}
}

func TestBringUpFirstCandidateWins(t *testing.T) {
	op, _, _ := openerWith(bus0Std, AddrLSM6DS3)
	other := i2c.NewFakeBus()
	other.Attach(AddrBNO055, i2c.NewFakeDevice())
	op.Buses[bus0Fast] = other

	h, err := BringUp(context.Background(), op, clock.NewFake(0), Options{})
	if err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if h.Kind() != LSM6DS3 {
		t.Errorf("got %s, want LSM6DS3 from the first candidate", h.Kind())
	}
	if len(op.Opened) != 1 {
		t.Errorf("later candidates must not be opened, got %v", op.Opened)
	}
}

func TestBringUpCustomOptions(t *testing.T) {
	op, _, _ := openerWith(bus1Std, AddrMPU6050Alt)
	clk := clock.NewFake(0)

	h, err := BringUp(context.Background(), op, clk, Options{
		Configs:     []i2c.Config{bus1Std},
		BootDelayMs: 5,
		SettleMs:    1,
	})
	if err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if h.Address() != AddrMPU6050Alt {
		t.Errorf("got 0x%02x, want 0x69", h.Address())
	}
	if clk.Slept() != 5+1+10 {
		t.Errorf("slept %dms, want 16", clk.Slept())
	}
}

func TestBringUpCancelled(t *testing.T) {
	op, _, _ := openerWith(bus0Std, AddrMPU6050)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BringUp(ctx, op, clock.NewFake(0), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(op.Opened) != 0 {
		t.Errorf("no bus should be opened after cancel, got %v", op.Opened)
	}
}
