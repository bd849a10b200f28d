// Command shake-demo prints button presses and shakes. Buttons are delivered
// from edge interrupts while the shake loop blocks the main goroutine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sweeney/pixiboo/internal/board"
	"github.com/sweeney/pixiboo/internal/button"
	"github.com/sweeney/pixiboo/internal/clock"
	"github.com/sweeney/pixiboo/internal/config"
	"github.com/sweeney/pixiboo/internal/gpio"
	"github.com/sweeney/pixiboo/internal/i2c"
	"github.com/sweeney/pixiboo/internal/imu"
)

// Colors selected by the buttons.
var colors = [button.Count]string{"red", "green", "blue"}

// demo holds the state shared by the button and shake callbacks.
type demo struct {
	w io.Writer

	mu     sync.Mutex
	color  string
	shakes int
}

func newDemo(w io.Writer) *demo {
	return &demo{w: w, color: colors[button.Left]}
}

func (d *demo) register(b *button.Dispatcher) error {
	for _, id := range button.IDs {
		color := colors[id]
		err := b.Register(id, func() error {
			d.mu.Lock()
			d.color = color
			d.mu.Unlock()
			fmt.Fprintf(d.w, "color changed to %s\n", color)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *demo) onShake() error {
	d.mu.Lock()
	d.shakes++
	n, color := d.shakes, d.color
	d.mu.Unlock()
	fmt.Fprintf(d.w, "shake detected! count: %d, flashing %s\n", n, color)
	return nil
}

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults if empty)")
	threshold := flag.Uint("threshold", 0, "Shake threshold in milli-g (overrides config)")
	calibrate := flag.Bool("calibrate", true, "Calibrate the accelerometer at startup (keep the board flat)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}
	if *threshold != 0 {
		cfg.Shake.ThresholdMg = uint32(*threshold)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *calibrate); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, calibrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lines, err := gpio.NewRealButtons(cfg.GPIO.Chip, cfg.GPIO.Pins.PinArray(), 0)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer lines.Close()

	b, err := board.New(ctx, board.Config{
		Buttons:          button.Config{DebounceMs: cfg.Buttons.DebounceMs, ManualUpdate: !cfg.Buttons.Interrupts},
		IMUEnabled:       true,
		IMURequired:      true,
		IMU:              imu.Options{Configs: cfg.IMU.BusConfigs(), BootDelayMs: cfg.IMU.BootDelayMs},
		ShakeThresholdMg: cfg.Shake.ThresholdMg,
		ShakeDebounceMs:  cfg.Shake.DebounceMs,
	}, board.Deps{
		Clock:  clock.NewSystem(),
		Inputs: lines.Inputs(),
		Opener: i2c.NewPeriphOpener(),
	})
	if err != nil {
		return fmt.Errorf("init board: %w", err)
	}
	defer b.Close()

	if calibrate {
		if err := b.IMU.Calibrate(); err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
		log.Printf("calibrated: offsets %s", b.IMU.Offsets())
	}

	d := newDemo(os.Stdout)
	if err := d.register(b.Buttons); err != nil {
		return fmt.Errorf("register buttons: %w", err)
	}
	if !b.Buttons.InterruptsArmed() {
		log.Printf("buttons: interrupts not armed, presses are only seen between shake polls")
		go pollButtons(ctx, b)
	}

	fmt.Println("shake demo ready: left=red center=green right=blue, shake to flash")
	return b.Shake.RunBlocking(ctx, b.IMU, d.onShake, cfg.Shake.PollMs)
}

// pollButtons ticks the dispatcher until ctx is done. Used when edge
// interrupts are unavailable.
func pollButtons(ctx context.Context, b *board.Board) {
	for ctx.Err() == nil {
		b.Buttons.Tick()
		b.Clock.SleepMs(10)
	}
}
