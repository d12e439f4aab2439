// Package hardware drives the coprocessor's status LED and reports board
// health metrics.
package hardware

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/photonvision/photonvision-go/internal/models"
)

const defaultCPUTempPath = "/sys/class/thermal/thermal_zone0/temp"

// Manager owns the status LED pin described by the hardware config.
// On hosts without GPIO (dev machines) every operation is a logged no-op.
type Manager struct {
	cfg models.HardwareConfig
	led gpio.PinIO
}

// New initializes the GPIO host and claims the status LED pin, if any.
func New(cfg models.HardwareConfig) *Manager {
	m := &Manager{cfg: cfg}

	if _, err := host.Init(); err != nil {
		slog.Warn("hardware: GPIO host init failed, LED control disabled", "err", err)
		return m
	}

	if len(cfg.LEDPins) > 0 {
		name := "GPIO" + strconv.Itoa(cfg.LEDPins[0])
		if pin := gpioreg.ByName(name); pin != nil {
			m.led = pin
		} else {
			slog.Warn("hardware: status LED pin not found", "pin", name)
		}
	}
	return m
}

// SetStatusLED switches the status LED on or off.
func (m *Manager) SetStatusLED(on bool) {
	if m.led == nil {
		return
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := m.led.Out(level); err != nil {
		slog.Warn("hardware: failed to drive status LED", "err", err)
	}
}

// Metrics is a point-in-time board health snapshot.
type Metrics struct {
	CPUTempCelsius float64 `json:"cpuTempCelsius"`
	DeviceName     string  `json:"deviceName,omitempty"`
}

// Metrics reads the current board health. Missing sensors zero their
// fields rather than failing.
func (m *Manager) Metrics() Metrics {
	metrics := Metrics{DeviceName: m.cfg.DeviceName}
	if temp, err := readCPUTemp(m.cfg.CPUTempPath); err == nil {
		metrics.CPUTempCelsius = temp
	}
	return metrics
}

// readCPUTemp reads a millidegree thermal zone file.
func readCPUTemp(path string) (float64, error) {
	if path == "" {
		path = defaultCPUTempPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	millideg, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cpu temp: %w", err)
	}
	return float64(millideg) / 1000.0, nil
}
