// Package models defines the persisted configuration structures for the
// vision coprocessor. JSON field names match the settings files written by
// earlier releases for on-disk compatibility.
package models

import "encoding/json"

// CameraConfiguration holds everything persisted for one physical or
// logical camera, keyed by UniqueName. Pipeline and driver-mode settings
// are carried as opaque JSON; this subsystem never interprets them.
type CameraConfiguration struct {
	BaseName             string            `json:"baseName"`
	UniqueName           string            `json:"uniqueName"`
	Nickname             string            `json:"nickname"`
	FOV                  float64           `json:"fov"`
	Path                 string            `json:"path"`
	CameraType           string            `json:"cameraType,omitempty"`
	CurrentPipelineIndex int               `json:"currentPipelineIndex"`
	DriverMode           json.RawMessage   `json:"driverMode,omitempty"`
	Pipelines            []json.RawMessage `json:"pipelines,omitempty"`
	Calibrations         []json.RawMessage `json:"calibrations,omitempty"`
}

// NetworkConfig is the device network settings record.
type NetworkConfig struct {
	NTServerAddress     string `json:"ntServerAddress"`
	ConnectionType      string `json:"connectionType"` // "DHCP" | "STATIC"
	StaticIP            string `json:"staticIp"`
	Hostname            string `json:"hostname"`
	RunNTServer         bool   `json:"runNTServer"`
	ShouldManage        bool   `json:"shouldManage"`
	NetworkManagerIface string `json:"networkManagerIface,omitempty"`
}

// HardwareConfig describes the board the coprocessor runs on. It is
// shipped by the vendor image and rarely changes after provisioning.
type HardwareConfig struct {
	DeviceName         string `json:"deviceName"`
	DeviceLogoPath     string `json:"deviceLogoPath,omitempty"`
	SupportURL         string `json:"supportURL,omitempty"`
	LEDPins            []int  `json:"ledPins,omitempty"`
	LEDBrightnessRange []int  `json:"ledBrightnessRange,omitempty"`
	StatusRGBPins      []int  `json:"statusRGBPins,omitempty"`
	CPUTempPath        string `json:"cpuTempPath,omitempty"`
}

// HardwareSettings are the operator-adjustable hardware knobs.
type HardwareSettings struct {
	LEDBrightnessPercentage int `json:"ledBrightnessPercentage"`
}

// Config is the root persisted aggregate: every camera's configuration,
// the network settings, and the hardware config/settings. The AprilTag
// field layout is stored verbatim as uploaded.
type Config struct {
	HardwareConfig       HardwareConfig                 `json:"hardwareConfig"`
	HardwareSettings     HardwareSettings               `json:"hardwareSettings"`
	NetworkConfig        NetworkConfig                  `json:"networkConfig"`
	AprilTagFieldLayout  json.RawMessage                `json:"atfl,omitempty"`
	CameraConfigurations map[string]CameraConfiguration `json:"cameraConfigurations"`
}

// AddCameraConfig inserts or replaces the camera stored under uniqueName.
func (c *Config) AddCameraConfig(uniqueName string, cfg CameraConfiguration) {
	if c.CameraConfigurations == nil {
		c.CameraConfigurations = make(map[string]CameraConfiguration)
	}
	c.CameraConfigurations[uniqueName] = cfg
}

// AddCameraConfigs inserts or replaces each camera, keyed by its UniqueName.
func (c *Config) AddCameraConfigs(cfgs []CameraConfiguration) {
	for _, cfg := range cfgs {
		c.AddCameraConfig(cfg.UniqueName, cfg)
	}
}

// DeepCopy returns a copy sharing no mutable memory with the receiver.
func (c Config) DeepCopy() Config {
	next := c

	if c.AprilTagFieldLayout != nil {
		next.AprilTagFieldLayout = append(json.RawMessage(nil), c.AprilTagFieldLayout...)
	}

	next.HardwareConfig.LEDPins = append([]int(nil), c.HardwareConfig.LEDPins...)
	next.HardwareConfig.LEDBrightnessRange = append([]int(nil), c.HardwareConfig.LEDBrightnessRange...)
	next.HardwareConfig.StatusRGBPins = append([]int(nil), c.HardwareConfig.StatusRGBPins...)

	if c.CameraConfigurations != nil {
		next.CameraConfigurations = make(map[string]CameraConfiguration, len(c.CameraConfigurations))
		for name, cam := range c.CameraConfigurations {
			next.CameraConfigurations[name] = cam.DeepCopy()
		}
	}
	return next
}

// DeepCopy returns a copy sharing no mutable memory with the receiver.
func (cc CameraConfiguration) DeepCopy() CameraConfiguration {
	next := cc
	if cc.DriverMode != nil {
		next.DriverMode = append(json.RawMessage(nil), cc.DriverMode...)
	}
	if cc.Pipelines != nil {
		next.Pipelines = make([]json.RawMessage, len(cc.Pipelines))
		for i, p := range cc.Pipelines {
			next.Pipelines[i] = append(json.RawMessage(nil), p...)
		}
	}
	if cc.Calibrations != nil {
		next.Calibrations = make([]json.RawMessage, len(cc.Calibrations))
		for i, c := range cc.Calibrations {
			next.Calibrations[i] = append(json.RawMessage(nil), c...)
		}
	}
	return next
}
