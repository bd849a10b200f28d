// Package config loads the daemon's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/pixiboo/internal/button"
	"github.com/sweeney/pixiboo/internal/gpio"
	"github.com/sweeney/pixiboo/internal/i2c"
	"github.com/sweeney/pixiboo/internal/imu"
	"github.com/sweeney/pixiboo/internal/shake"
)

// Config is the full daemon configuration.
type Config struct {
	GPIO      GPIO          `yaml:"gpio"`
	Buttons   Buttons       `yaml:"buttons"`
	IMU       IMU           `yaml:"imu"`
	Shake     Shake         `yaml:"shake"`
	MQTT      MQTT          `yaml:"mqtt"`
	HTTP      HTTP          `yaml:"http"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// GPIO selects the chip and the button lines.
type GPIO struct {
	Chip string `yaml:"chip"`
	Pins Pins   `yaml:"pins"`
}

// Pins are line offsets on the GPIO chip.
type Pins struct {
	Left   int `yaml:"left"`
	Center int `yaml:"center"`
	Right  int `yaml:"right"`
}

// Buttons configures the dispatcher.
type Buttons struct {
	DebounceMs uint32 `yaml:"debounce_ms"`
	Interrupts bool   `yaml:"interrupts"`
}

// IMU configures accelerometer bring-up.
type IMU struct {
	Enabled     bool   `yaml:"enabled"`
	Required    bool   `yaml:"required"`
	BootDelayMs uint32 `yaml:"boot_delay_ms"`
	Buses       []Bus  `yaml:"buses"`
}

// Bus is one bring-up candidate.
type Bus struct {
	ID          int   `yaml:"id"`
	FrequencyHz int64 `yaml:"frequency_hz"`
}

// Shake configures the shake detector.
type Shake struct {
	ThresholdMg uint32 `yaml:"threshold_mg"`
	DebounceMs  uint32 `yaml:"debounce_ms"`
	PollMs      uint32 `yaml:"poll_ms"`
}

// MQTT configures the publisher.
type MQTT struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// HTTP configures the status server. An empty address disables it.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	buses := make([]Bus, len(i2c.DefaultConfigs))
	for i, c := range i2c.DefaultConfigs {
		buses[i] = Bus{ID: c.ID, FrequencyHz: int64(c.Frequency / physic.Hertz)}
	}
	return Config{
		GPIO: GPIO{
			Chip: gpio.DefaultChip,
			Pins: Pins{Left: gpio.DefaultPinLeft, Center: gpio.DefaultPinCenter, Right: gpio.DefaultPinRight},
		},
		Buttons: Buttons{DebounceMs: button.DefaultDebounceMs, Interrupts: true},
		IMU: IMU{
			Enabled:     true,
			BootDelayMs: imu.DefaultBootDelayMs,
			Buses:       buses,
		},
		Shake: Shake{
			ThresholdMg: shake.DefaultThresholdMg,
			DebounceMs:  shake.DefaultDebounceMs,
			PollMs:      shake.DefaultPollInterval,
		},
		MQTT: MQTT{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "pixiboo",
			TopicPrefix: "pixiboo",
		},
		HTTP:      HTTP{Addr: ":80"},
		Heartbeat: 15 * time.Minute,
	}
}

// Load reads and parses a YAML file on top of the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
// Keys missing from data keep their default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks for values the daemon cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.GPIO.Chip == "" {
		errs = append(errs, errors.New("gpio.chip is empty"))
	}
	p := c.GPIO.Pins
	for i, pin := range p.PinArray() {
		if pin < 0 {
			errs = append(errs, fmt.Errorf("gpio.pins.%s: negative line %d", button.ID(i), pin))
		}
	}
	if p.Left == p.Center || p.Left == p.Right || p.Center == p.Right {
		errs = append(errs, fmt.Errorf("gpio.pins: lines must be distinct (%d, %d, %d)", p.Left, p.Center, p.Right))
	}
	if c.IMU.Required && !c.IMU.Enabled {
		errs = append(errs, errors.New("imu.required set but imu.enabled is false"))
	}
	for i, b := range c.IMU.Buses {
		if b.ID < 0 {
			errs = append(errs, fmt.Errorf("imu.buses[%d]: negative bus id %d", i, b.ID))
		}
		if b.FrequencyHz <= 0 {
			errs = append(errs, fmt.Errorf("imu.buses[%d]: frequency_hz must be positive", i))
		}
	}
	if c.Shake.ThresholdMg == 0 {
		errs = append(errs, errors.New("shake.threshold_mg must be positive"))
	}
	if c.Shake.PollMs == 0 {
		errs = append(errs, errors.New("shake.poll_ms must be positive"))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, errors.New("heartbeat must not be negative"))
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, errors.New("mqtt.topic_prefix is empty"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// BusConfigs converts the configured bring-up candidates.
func (c IMU) BusConfigs() []i2c.Config {
	out := make([]i2c.Config, len(c.Buses))
	for i, b := range c.Buses {
		out[i] = i2c.Config{ID: b.ID, Frequency: physic.Frequency(b.FrequencyHz) * physic.Hertz}
	}
	return out
}

// PinArray returns the pins in button order.
func (p Pins) PinArray() [3]int {
	return [3]int{p.Left, p.Center, p.Right}
}
