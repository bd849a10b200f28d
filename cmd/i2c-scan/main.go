// Command i2c-scan lists the devices that answer on every IMU bus candidate.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sweeney/pixiboo/internal/config"
	"github.com/sweeney/pixiboo/internal/i2c"
	"github.com/sweeney/pixiboo/internal/imu"
)

// knownDevices names addresses seen on Pixiboo boards and common breakouts.
var knownDevices = map[uint8]string{
	0x28: "BNO055 (9-axis IMU)",
	0x29: "BNO055 (alt address)",
	0x68: "MPU6050/MPU9250",
	0x69: "MPU6050 (alt address)",
	0x6a: "LSM6DS3",
	0x76: "BME280/BMP280",
	0x77: "BME280/BMP280 (alt)",
}

func deviceName(addr uint8) string {
	if name, ok := knownDevices[addr]; ok {
		return name
	}
	return "unknown device"
}

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults if empty)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	if found := scan(os.Stdout, i2c.NewPeriphOpener(), cfg.IMU.BusConfigs()); found == 0 {
		os.Exit(1)
	}
}

// scan prints what each configuration finds and returns how many
// configurations had at least one device.
func scan(w io.Writer, op i2c.Opener, configs []i2c.Config) int {
	found := 0
	for _, cfg := range configs {
		fmt.Fprintf(w, "%s:\n", cfg)

		bus, err := op.Open(cfg)
		if err != nil {
			fmt.Fprintf(w, "  error: %v\n", err)
			continue
		}
		addrs, err := bus.Scan()
		bus.Close()
		if err != nil {
			fmt.Fprintf(w, "  error: %v\n", err)
			continue
		}
		if len(addrs) == 0 {
			fmt.Fprintln(w, "  no devices")
			continue
		}

		found++
		for _, a := range addrs {
			fmt.Fprintf(w, "  0x%02x (%d) %s\n", a, a, deviceName(a))
		}
		if kind, addr, err := imu.Detect(addrs); err == nil {
			fmt.Fprintf(w, "  imu: %s at 0x%02x\n", kind, addr)
		} else {
			fmt.Fprintf(w, "  imu: %v\n", err)
		}
	}
	return found
}
