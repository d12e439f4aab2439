package network

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/photonvision/photonvision-go/internal/models"
)

// SetHostname applies a static hostname through org.freedesktop.hostname1
// on the system bus.
func SetHostname(name string) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object("org.freedesktop.hostname1", dbus.ObjectPath("/org/freedesktop/hostname1"))
	call := obj.Call("org.freedesktop.hostname1.SetStaticHostname", 0, name, false)
	if call.Err != nil {
		return fmt.Errorf("set static hostname: %w", call.Err)
	}
	return nil
}

// ApplySettings pushes the parts of the network settings this process
// manages out to the OS. Best effort; failures are logged, not fatal,
// because a misconfigured network should never take the daemon down.
func ApplySettings(nc models.NetworkConfig) {
	if !nc.ShouldManage {
		slog.Debug("network: management disabled, not applying settings")
		return
	}

	if current, err := os.Hostname(); err == nil && nc.Hostname != "" && nc.Hostname != current {
		slog.Info("network: applying hostname", "old", current, "new", nc.Hostname)
		if err := SetHostname(nc.Hostname); err != nil {
			slog.Error("network: failed to set hostname", "err", err)
		}
	}
}
