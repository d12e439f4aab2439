package config

import (
	"sync"
	"sync/atomic"

	"github.com/photonvision/photonvision-go/internal/models"
)

// MemProvider is an in-memory Provider for tests that never touches disk.
// It counts SaveToDisk calls so scheduler tests can observe flushes.
type MemProvider struct {
	mu        sync.Mutex
	cfg       *models.Config
	saved     *models.Config
	saveCalls atomic.Int64
}

// NewMemProvider returns an in-memory provider holding the default aggregate.
func NewMemProvider() *MemProvider {
	def := models.DefaultConfig()
	return &MemProvider{cfg: &def}
}

// Load restores the last saved snapshot, or the default aggregate.
func (m *MemProvider) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		def := models.DefaultConfig()
		m.cfg = &def
		return nil
	}
	cp := m.saved.DeepCopy()
	m.cfg = &cp
	return nil
}

// GetConfig returns the current aggregate reference.
func (m *MemProvider) GetConfig() *models.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// SetConfig replaces the in-memory aggregate wholesale.
func (m *MemProvider) SetConfig(cfg *models.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// SaveToDisk snapshots the aggregate and bumps the save counter.
func (m *MemProvider) SaveToDisk() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.cfg.DeepCopy()
	m.saved = &cp
	m.saveCalls.Add(1)
	return nil
}

// ClearConfig resets the aggregate to the empty baseline.
func (m *MemProvider) ClearConfig() {
	m.mu.Lock()
	defer m.mu.Unlock()
	def := models.DefaultConfig()
	m.cfg = &def
}

// SaveCalls reports how many times SaveToDisk has run.
func (m *MemProvider) SaveCalls() int64 { return m.saveCalls.Load() }

// SaveUploadedHardwareConfig merges an uploaded hardware config file.
func (m *MemProvider) SaveUploadedHardwareConfig(path string) error {
	hw, err := readJSONFile[models.HardwareConfig](path)
	if err != nil {
		return err
	}
	m.GetConfig().HardwareConfig = *hw
	return m.SaveToDisk()
}

// SaveUploadedHardwareSettings merges an uploaded hardware settings file.
func (m *MemProvider) SaveUploadedHardwareSettings(path string) error {
	hs, err := readJSONFile[models.HardwareSettings](path)
	if err != nil {
		return err
	}
	m.GetConfig().HardwareSettings = *hs
	return m.SaveToDisk()
}

// SaveUploadedNetworkConfig merges an uploaded network config file.
func (m *MemProvider) SaveUploadedNetworkConfig(path string) error {
	nc, err := readJSONFile[models.NetworkConfig](path)
	if err != nil {
		return err
	}
	m.GetConfig().NetworkConfig = *nc
	return m.SaveToDisk()
}

var _ Provider = (*MemProvider)(nil)
