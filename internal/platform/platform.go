// Package platform answers "what are we running on" questions for the
// rest of the daemon.
package platform

import (
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
)

// Platform describes the host the daemon is running on.
type Platform struct {
	OSName        string `json:"osName"`
	KernelVersion string `json:"kernelVersion,omitempty"`
	HardwareModel string `json:"hardwareModel,omitempty"`
	IsRaspberryPi bool   `json:"isRaspberryPi"`
}

// Detect inspects the running host. Missing information is left blank
// rather than failing; non-Pi and non-Linux hosts are fully supported for
// development.
func Detect() Platform {
	p := Platform{OSName: runtime.GOOS}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		p.KernelVersion = unix.ByteSliceToString(uts.Release[:])
	}

	if data, err := os.ReadFile("/proc/device-tree/model"); err == nil {
		p.HardwareModel = strings.TrimRight(string(data), "\x00\n")
		p.IsRaspberryPi = strings.Contains(p.HardwareModel, "Raspberry Pi")
	}
	return p
}

// IsLinux reports whether the daemon runs on Linux. Service restarts and
// journal exports only work there.
func IsLinux() bool { return runtime.GOOS == "linux" }

// RestartProgram restarts the daemon. On Linux this leans on systemd; the
// fallback is to exit and let the supervisor bring us back.
func RestartProgram() {
	if IsLinux() {
		if err := exec.Command("systemctl", "restart", "photonvision.service").Run(); err != nil {
			slog.Error("platform: could not restart service, exiting instead", "err", err)
			os.Exit(0)
		}
		return
	}
	os.Exit(0)
}

// RestartDevice reboots the host.
func RestartDevice() error {
	return exec.Command("reboot").Run()
}
