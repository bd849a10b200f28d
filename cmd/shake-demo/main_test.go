package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sweeney/pixiboo/internal/button"
	"github.com/sweeney/pixiboo/internal/clock"
	"github.com/sweeney/pixiboo/internal/gpio"
	"github.com/sweeney/pixiboo/internal/imu"
	"github.com/sweeney/pixiboo/internal/shake"
)

// burst returns a spike then rest readings, and cancels when exhausted.
type burst struct {
	readings []imu.Vector
	cancel   context.CancelFunc
	buttons  func(i int)
	i        int
}

func (b *burst) ReadAcceleration() (imu.Vector, error) {
	i := b.i
	b.i++
	if b.buttons != nil {
		b.buttons(i)
	}
	if i >= len(b.readings) {
		b.cancel()
		return imu.Vector{}, nil
	}
	return b.readings[i], nil
}

func TestDemoButtonsAndShakes(t *testing.T) {
	clk := clock.NewFake(0)
	var inputs [button.Count]*gpio.FakeInput
	var in [button.Count]gpio.Input
	for i := range in {
		inputs[i] = gpio.NewFakeInput(gpio.High)
		in[i] = inputs[i]
	}
	dispatcher := button.New(in, clk, button.Config{})

	var out bytes.Buffer
	d := newDemo(&out)
	if err := d.register(dispatcher); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !dispatcher.InterruptsArmed() {
		t.Fatal("expected interrupts armed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	spike := imu.Vector{X: 3000}
	src := &burst{
		readings: []imu.Vector{spike, {}, {}, {}, {}, {}, {}, {}, {}, {}, {}, {}, spike, {}},
		cancel:   cancel,
		// Presses arrive from "interrupts" while the shake loop runs.
		buttons: func(i int) {
			if i == 5 {
				inputs[button.Right].Press()
			}
		},
	}

	det := shake.New(clk, 1500, 500)
	err := det.RunBlocking(ctx, src, d.onShake, 50)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	want := "shake detected! count: 1, flashing red\n" +
		"color changed to blue\n" +
		"shake detected! count: 2, flashing blue\n"
	if out.String() != want {
		t.Errorf("unexpected output:\ngot:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestDemoColors(t *testing.T) {
	clk := clock.NewFake(0)
	var inputs [button.Count]*gpio.FakeInput
	var in [button.Count]gpio.Input
	for i := range in {
		inputs[i] = gpio.NewFakeInput(gpio.High)
		in[i] = inputs[i]
	}
	dispatcher := button.New(in, clk, button.Config{})

	var out bytes.Buffer
	d := newDemo(&out)
	d.register(dispatcher)
	clk.Advance(100)

	inputs[button.Center].Press()
	if !strings.Contains(out.String(), "color changed to green") {
		t.Errorf("unexpected output: %q", out.String())
	}
	d.onShake()
	if !strings.HasSuffix(out.String(), "count: 1, flashing green\n") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
