package models

// DefaultNetworkConfig returns the network settings a freshly imaged
// device boots with: DHCP, unmanaged, default hostname.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		NTServerAddress: "",
		ConnectionType:  "DHCP",
		StaticIP:        "",
		Hostname:        "photonvision",
		RunNTServer:     false,
		ShouldManage:    false,
	}
}

// DefaultHardwareSettings returns the hardware settings baseline.
func DefaultHardwareSettings() HardwareSettings {
	return HardwareSettings{LEDBrightnessPercentage: 100}
}

// DefaultConfig returns the empty baseline aggregate: no cameras, default
// network and hardware settings. Used when nothing is on disk yet and by
// ClearConfig.
func DefaultConfig() Config {
	return Config{
		HardwareConfig:       HardwareConfig{},
		HardwareSettings:     DefaultHardwareSettings(),
		NetworkConfig:        DefaultNetworkConfig(),
		CameraConfigurations: make(map[string]CameraConfiguration),
	}
}
