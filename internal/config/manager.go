package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/photonvision/photonvision-go/internal/logging"
	"github.com/photonvision/photonvision-go/internal/models"
)

const (
	// schedulerTick is how often the save worker wakes up.
	schedulerTick = time.Second
	// debounceThreshold is how long a save request must sit before the
	// worker flushes it. Rapid successive requests collapse into one write.
	debounceThreshold = time.Second
)

// Manager orchestrates configuration persistence for the whole process:
// it owns the active storage Provider, the root directory, and the
// debounced save worker. Construct exactly one per process and hand it to
// every collaborator that needs configuration access.
type Manager struct {
	rootDir  string
	provider Provider

	// saveRequest holds the unix-millisecond timestamp of the most recent
	// RequestSave, or -1 when no save is pending. It is the only state
	// shared between caller threads and the save worker.
	saveRequest atomic.Int64

	tick     time.Duration
	debounce time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Manager over rootDir using the given provider and starts
// the save worker. This is the only place a background worker is spawned;
// call Stop on shutdown.
func New(rootDir string, provider Provider) *Manager {
	return newManager(rootDir, provider, schedulerTick, debounceThreshold)
}

func newManager(rootDir string, provider Provider, tick, debounce time.Duration) *Manager {
	m := &Manager{
		rootDir:  rootDir,
		provider: provider,
		tick:     tick,
		debounce: debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	m.saveRequest.Store(-1)
	go m.saveWorker()
	return m
}

// Stop halts the save worker and waits for it to exit. A pending save
// that has not reached its debounce threshold is not flushed.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

// saveWorker flushes pending saves once they are older than the debounce
// threshold. A burst of RequestSave calls collapses into one SaveToDisk,
// occurring within [debounce, debounce+tick] of the last request.
func (m *Manager) saveWorker() {
	defer close(m.done)

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			ts := m.saveRequest.Load()
			if ts < 0 || time.Since(time.UnixMilli(ts)) < m.debounce {
				continue
			}
			m.saveRequest.Store(-1)
			slog.Debug("config: flushing pending save")
			if err := m.provider.SaveToDisk(); err != nil {
				slog.Error("config: scheduled save failed", "err", err)
			}
		}
	}
}

// RequestSave marks the configuration dirty. The save worker persists it
// once the debounce threshold passes with no further requests. Never
// blocks and never touches storage itself.
func (m *Manager) RequestSave() {
	m.saveRequest.Store(time.Now().UnixMilli())
}

// GetConfig returns the current aggregate from the active provider.
func (m *Manager) GetConfig() *models.Config { return m.provider.GetConfig() }

// SaveToDisk persists the full aggregate synchronously, bypassing the
// debounce. Used by import, export, migration, clear, and the worker.
func (m *Manager) SaveToDisk() error { return m.provider.SaveToDisk() }

// Load upgrades any legacy on-disk layout in place, then loads the
// aggregate through the active provider.
func (m *Manager) Load() error {
	m.translateLegacyIfPresent()
	return m.provider.Load()
}

// AddCameraConfigurations merges the given camera configurations into the
// aggregate, keyed by unique name, and schedules a save.
func (m *Manager) AddCameraConfigurations(cams []models.CameraConfiguration) {
	m.GetConfig().AddCameraConfigs(cams)
	m.RequestSave()
}

// SaveModule stores one camera's configuration under uniqueName and
// schedules a save.
func (m *Manager) SaveModule(cfg models.CameraConfiguration, uniqueName string) {
	m.GetConfig().AddCameraConfig(uniqueName, cfg)
	m.RequestSave()
}

// SetNetworkSettings replaces the network settings record and schedules a
// save.
func (m *Manager) SetNetworkSettings(nc models.NetworkConfig) {
	m.GetConfig().NetworkConfig = nc
	m.RequestSave()
}

// ClearConfig resets the aggregate to the empty baseline and commits it
// immediately. Destructive actions don't wait out the debounce.
func (m *Manager) ClearConfig() error {
	slog.Info("config: clearing configuration")
	m.provider.ClearConfig()
	return m.SaveToDisk()
}

// SaveUploadedHardwareConfig validates, merges, and persists an uploaded
// hardware config file.
func (m *Manager) SaveUploadedHardwareConfig(path string) error {
	return m.provider.SaveUploadedHardwareConfig(path)
}

// SaveUploadedHardwareSettings validates, merges, and persists an
// uploaded hardware settings file.
func (m *Manager) SaveUploadedHardwareSettings(path string) error {
	return m.provider.SaveUploadedHardwareSettings(path)
}

// SaveUploadedNetworkConfig validates, merges, and persists an uploaded
// network config file.
func (m *Manager) SaveUploadedNetworkConfig(path string) error {
	return m.provider.SaveUploadedNetworkConfig(path)
}

// RootDir returns the directory anchoring all persisted artifacts.
func (m *Manager) RootDir() string { return m.rootDir }

// LogsDir returns the log file directory inside the root.
func (m *Manager) LogsDir() string { return filepath.Join(m.rootDir, "logs") }

// CalibDir returns the calibration image directory inside the root.
func (m *Manager) CalibDir() string { return filepath.Join(m.rootDir, "calibImgs") }

// ImageSavePath returns the saved-frame directory, creating it on demand.
func (m *Manager) ImageSavePath() string {
	dir := filepath.Join(m.rootDir, "imgSaves")
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("config: cannot create image save dir", "path", dir, "err", err)
	}
	return dir
}

// LogPath returns the path for this boot's log file, creating the logs
// directory on demand.
func (m *Manager) LogPath() string {
	dir := m.LogsDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("config: cannot create logs dir", "path", dir, "err", err)
	}
	return filepath.Join(dir, logging.LogFilename(time.Now()))
}
