// Command pixiboo runs the Pixiboo board: it dispatches button presses,
// watches the accelerometer for shakes, and publishes both to MQTT with an
// HTTP status page.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/pixiboo/internal/board"
	"github.com/sweeney/pixiboo/internal/button"
	"github.com/sweeney/pixiboo/internal/clock"
	"github.com/sweeney/pixiboo/internal/config"
	"github.com/sweeney/pixiboo/internal/event"
	"github.com/sweeney/pixiboo/internal/gpio"
	"github.com/sweeney/pixiboo/internal/i2c"
	"github.com/sweeney/pixiboo/internal/imu"
	"github.com/sweeney/pixiboo/internal/mqtt"
	"github.com/sweeney/pixiboo/internal/shake"
	"github.com/sweeney/pixiboo/internal/status"
	"github.com/sweeney/pixiboo/internal/web"
)

// eventQueue is how many button presses may wait for the main loop.
const eventQueue = 32

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults if empty)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", `HTTP status address (overrides config, "off" disables)`)
	heartbeat := flag.Duration("heartbeat", 0, "Heartbeat interval (overrides config)")
	noIMU := flag.Bool("no-imu", false, "Skip IMU bring-up")
	printState := flag.Bool("print-state", false, "Print button and IMU state and exit")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP.Addr = *httpAddr
			if *httpAddr == "off" {
				cfg.HTTP.Addr = ""
			}
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "no-imu":
			cfg.IMU.Enabled = !*noIMU
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func boardConfig(cfg config.Config) board.Config {
	return board.Config{
		Buttons: button.Config{
			DebounceMs:   cfg.Buttons.DebounceMs,
			ManualUpdate: !cfg.Buttons.Interrupts,
		},
		IMUEnabled:  cfg.IMU.Enabled,
		IMURequired: cfg.IMU.Required,
		IMU: imu.Options{
			Configs:     cfg.IMU.BusConfigs(),
			BootDelayMs: cfg.IMU.BootDelayMs,
		},
		ShakeThresholdMg: cfg.Shake.ThresholdMg,
		ShakeDebounceMs:  cfg.Shake.DebounceMs,
	}
}

func run(cfg config.Config, printState bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize GPIO. Debounce is done in software by the dispatcher.
	lines, err := gpio.NewRealButtons(cfg.GPIO.Chip, cfg.GPIO.Pins.PinArray(), 0)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer lines.Close()

	b, err := board.New(ctx, boardConfig(cfg), board.Deps{
		Clock:  clock.NewSystem(),
		Inputs: lines.Inputs(),
		Opener: i2c.NewPeriphOpener(),
	})
	if err != nil {
		return fmt.Errorf("init board: %w", err)
	}
	defer b.Close()

	if printState {
		return printBoard(os.Stdout, b)
	}
	stop() // signals are handled by runLoop from here on

	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Topics:   mqtt.NewTopics(cfg.MQTT.TopicPrefix),
	})
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		DebounceMs:       b.Buttons.DebounceMs(),
		ShakeThresholdMg: cfg.Shake.ThresholdMg,
		ShakeDebounceMs:  cfg.Shake.DebounceMs,
		ShakePollMs:      cfg.Shake.PollMs,
		HeartbeatMs:      cfg.Heartbeat.Milliseconds(),
		Broker:           cfg.MQTT.Broker,
		TopicPrefix:      cfg.MQTT.TopicPrefix,
		HTTPAddr:         cfg.HTTP.Addr,
	})
	tracker.SetIMU(imuInfo(b))

	events := make(chan event.Event, eventQueue)
	if err := registerButtons(b.Buttons, events, time.Now); err != nil {
		return fmt.Errorf("register buttons: %w", err)
	}
	if !b.Buttons.InterruptsArmed() {
		log.Printf("buttons: interrupts not armed, polling")
	}

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		ln, err := srv.Listen()
		if err != nil {
			return fmt.Errorf("http listen: %w", err)
		}
		go func() {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: debounce=%dms imu=%v broker=%s heartbeat=%v",
		b.Buttons.DebounceMs(), b.HasIMU(), cfg.MQTT.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(time.Duration(cfg.Shake.PollMs) * time.Millisecond)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := loop{
		buttons:    b.Buttons,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
		events:     events,
		tick:       ticker.C,
		sig:        sigCh,
	}
	if b.HasIMU() {
		l.shake = b.Shake
		l.imu = b.IMU
	}
	return runLoop(l)
}

// registerButtons queues a BUTTON_PRESSED event for every debounced press.
// Presses are dropped, and logged, if the main loop falls behind.
func registerButtons(d *button.Dispatcher, events chan<- event.Event, now func() time.Time) error {
	for _, id := range button.IDs {
		name := id.String()
		err := d.Register(id, func() error {
			e := event.Event{Timestamp: now(), Type: event.TypeButtonPressed, Button: name}
			select {
			case events <- e:
			default:
				log.Printf("buttons: event queue full, dropping %s press", name)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// loop carries everything runLoop needs. shake and imu are nil without an
// accelerometer; tracker and mqttStatus may be nil in tests.
type loop struct {
	buttons    *button.Dispatcher
	shake      *shake.Detector
	imu        shake.Source
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time
	events     <-chan event.Event
	tick       <-chan time.Time
	sig        <-chan os.Signal
}

func runLoop(l loop) error {
	recorder := event.NewRecorder(l.now())

	emit := func(e event.Event) {
		recorder.Record(e)
		if e.Button != "" {
			log.Printf("event: %s %s", e.Type, e.Button)
		} else {
			log.Printf("event: %s", e.Type)
		}
		if err := l.publisher.Publish(e); err != nil {
			log.Printf("publish error: %v", err)
		}
		if l.tracker != nil {
			l.tracker.Update(recorder.Counts(), &e)
		}
	}

	for {
		select {
		case s := <-l.sig:
			log.Printf("received %v, shutting down", s)
			// Presses already queued still count.
			for drained := false; !drained; {
				select {
				case e := <-l.events:
					emit(e)
				default:
					drained = true
				}
			}
			name := signalName(s)
			ev := mqtt.SystemEvent{
				Timestamp: l.now(),
				Event:     "SHUTDOWN",
				Reason:    name,
				Retained:  true,
			}
			if l.tracker != nil {
				l.refreshTracker()
				ev.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", name)
			}
			switch err := l.publisher.PublishSystem(ev); {
			case err != nil:
				log.Printf("failed to publish shutdown event: %v", err)
			case l.mqttStatus != nil && !l.mqttStatus.IsConnected():
				log.Printf("broker not connected, shutdown event left in the outbox")
			default:
				log.Printf("published shutdown event")
			}
			return nil

		case e := <-l.events:
			emit(e)

		case <-l.tick:
			t := l.now()

			if l.buttons != nil && !l.buttons.InterruptsArmed() {
				l.buttons.Tick()
			}

			if l.shake != nil && l.imu != nil {
				shaken, err := l.shake.Poll(l.imu)
				if err != nil {
					log.Printf("imu read error: %v", err)
				} else if shaken {
					emit(event.Event{Timestamp: t, Type: event.TypeShake})
				}
			}

			if hb := recorder.CheckHeartbeat(t, l.heartbeat); hb != nil {
				log.Printf("heartbeat: uptime=%v left=%d center=%d right=%d shakes=%d",
					hb.Uptime, hb.Counts.Left, hb.Counts.Center, hb.Counts.Right, hb.Counts.Shakes)
				hbEvent := mqtt.SystemEvent{Timestamp: hb.Timestamp, Event: "HEARTBEAT"}
				if l.tracker != nil {
					l.refreshTracker()
					hbEvent.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := l.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			if l.tracker != nil {
				l.refreshTracker()
			}
		}
	}
}

// refreshTracker copies live button and connection state into the tracker.
func (l loop) refreshTracker() {
	if l.buttons != nil {
		var pressed [3]bool
		for _, id := range button.IDs {
			pressed[id] = l.buttons.IsPressed(id)
		}
		l.tracker.SetButtons(status.Buttons{Interrupts: l.buttons.InterruptsArmed(), Pressed: pressed})
	}
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func imuInfo(b *board.Board) status.IMUInfo {
	if !b.HasIMU() {
		info := status.IMUInfo{}
		if b.IMUErr != nil {
			info.Error = b.IMUErr.Error()
		}
		return info
	}
	return status.IMUInfo{
		Present: true,
		Kind:    b.IMU.Kind().String(),
		Addr:    b.IMU.Address(),
		Bus:     b.IMU.Bus().String(),
	}
}

// printBoard writes the raw button levels and one accelerometer reading.
func printBoard(w io.Writer, b *board.Board) error {
	for _, id := range button.IDs {
		state := "released"
		if b.Buttons.IsPressed(id) {
			state = "pressed"
		}
		fmt.Fprintf(w, "%s: %s\n", id, state)
	}

	if !b.HasIMU() {
		if b.IMUErr != nil {
			fmt.Fprintf(w, "imu: none (%v)\n", b.IMUErr)
		} else {
			fmt.Fprintln(w, "imu: disabled")
		}
		return nil
	}
	v, err := b.IMU.ReadAcceleration()
	if err != nil {
		return fmt.Errorf("read imu: %w", err)
	}
	fmt.Fprintf(w, "imu: %s at 0x%02x on %s: %s\n", b.IMU.Kind(), b.IMU.Address(), b.IMU.Bus(), v)
	return nil
}
