package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/photonvision/photonvision-go/internal/models"
)

// Legacy on-disk names. The layout is one directory per camera under
// cameras/, with the shared settings as loose JSON files in the root.
const (
	legacyCamerasDirName   = "cameras"
	legacyCameraConfigFile = "config.json"
	legacyDriverModeFile   = "drivermode.json"
	legacyPipelinesDirName = "pipelines"
	legacyHardwareConfig   = "hardwareConfig.json"
	legacyHardwareSettings = "hardwareSettings.json"
	legacyNetworkSettings  = "networkSettings.json"
	legacyATFL             = "apriltagFieldLayout.json"
)

// LegacyProvider reads and writes the directory-per-camera layout used
// by older releases. It exists mostly as a migration source; new installs
// use SQLProvider.
type LegacyProvider struct {
	rootDir string
	cfg     atomic.Pointer[models.Config]
}

// NewLegacyProvider creates a legacy provider over the given root directory.
func NewLegacyProvider(rootDir string) *LegacyProvider {
	p := &LegacyProvider{rootDir: rootDir}
	def := models.DefaultConfig()
	p.cfg.Store(&def)
	return p
}

// GetConfig returns the current aggregate reference.
func (p *LegacyProvider) GetConfig() *models.Config { return p.cfg.Load() }

// SetConfig replaces the in-memory aggregate wholesale.
func (p *LegacyProvider) SetConfig(cfg *models.Config) { p.cfg.Store(cfg) }

// ClearConfig resets the in-memory aggregate to the empty baseline.
func (p *LegacyProvider) ClearConfig() {
	def := models.DefaultConfig()
	p.cfg.Store(&def)
}

func (p *LegacyProvider) camerasDir() string {
	return filepath.Join(p.rootDir, legacyCamerasDirName)
}

// Load reads the legacy layout. Missing files degrade to defaults; Load
// logs and never fails.
func (p *LegacyProvider) Load() error {
	cfg := models.DefaultConfig()

	loadOptionalJSON(filepath.Join(p.rootDir, legacyHardwareConfig), &cfg.HardwareConfig)
	loadOptionalJSON(filepath.Join(p.rootDir, legacyHardwareSettings), &cfg.HardwareSettings)
	loadOptionalJSON(filepath.Join(p.rootDir, legacyNetworkSettings), &cfg.NetworkConfig)

	if data, err := os.ReadFile(filepath.Join(p.rootDir, legacyATFL)); err == nil {
		cfg.AprilTagFieldLayout = json.RawMessage(data)
	}

	entries, err := os.ReadDir(p.camerasDir())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("config: cannot read legacy cameras directory", "path", p.camerasDir(), "err", err)
		}
		p.cfg.Store(&cfg)
		return nil
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cam, err := p.loadCamera(e.Name())
		if err != nil {
			slog.Warn("config: skipping unreadable legacy camera", "camera", e.Name(), "err", err)
			continue
		}
		cfg.AddCameraConfig(e.Name(), *cam)
	}

	p.cfg.Store(&cfg)
	return nil
}

func (p *LegacyProvider) loadCamera(uniqueName string) (*models.CameraConfiguration, error) {
	camDir := filepath.Join(p.camerasDir(), uniqueName)

	data, err := os.ReadFile(filepath.Join(camDir, legacyCameraConfigFile))
	if err != nil {
		return nil, err
	}
	var cam models.CameraConfiguration
	if err := json.Unmarshal(data, &cam); err != nil {
		return nil, fmt.Errorf("parse %s: %w", legacyCameraConfigFile, err)
	}
	cam.UniqueName = uniqueName

	if data, err := os.ReadFile(filepath.Join(camDir, legacyDriverModeFile)); err == nil {
		cam.DriverMode = json.RawMessage(data)
	}

	cam.Pipelines = loadPipelines(filepath.Join(camDir, legacyPipelinesDirName))
	return &cam, nil
}

// loadPipelines reads pipelines/<index>.json in index order.
func loadPipelines(dir string) []json.RawMessage {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type indexed struct {
		index int
		data  json.RawMessage
	}
	var found []indexed
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		idx, err := strconv.Atoi(e.Name()[:len(e.Name())-len(".json")])
		if err != nil {
			slog.Warn("config: ignoring oddly named pipeline file", "file", e.Name())
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			slog.Warn("config: cannot read pipeline file", "file", e.Name(), "err", err)
			continue
		}
		found = append(found, indexed{idx, json.RawMessage(data)})
	}
	if len(found) == 0 {
		return nil
	}
	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })

	pipelines := make([]json.RawMessage, 0, len(found))
	for _, f := range found {
		pipelines = append(pipelines, f.data)
	}
	return pipelines
}

// SaveToDisk writes the full aggregate back out in the legacy layout,
// pruning camera directories that no longer exist in the aggregate.
func (p *LegacyProvider) SaveToDisk() error {
	if err := os.MkdirAll(p.rootDir, 0755); err != nil {
		return fmt.Errorf("create config root: %w", err)
	}

	cfg := p.cfg.Load()

	if err := writeJSONFile(filepath.Join(p.rootDir, legacyHardwareConfig), cfg.HardwareConfig); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(p.rootDir, legacyHardwareSettings), cfg.HardwareSettings); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(p.rootDir, legacyNetworkSettings), cfg.NetworkConfig); err != nil {
		return err
	}
	if cfg.AprilTagFieldLayout != nil {
		if err := os.WriteFile(filepath.Join(p.rootDir, legacyATFL), cfg.AprilTagFieldLayout, 0644); err != nil {
			return fmt.Errorf("write %s: %w", legacyATFL, err)
		}
	}

	for uniqueName, cam := range cfg.CameraConfigurations {
		if err := p.saveCamera(uniqueName, cam); err != nil {
			return err
		}
	}
	p.pruneStaleCameraDirs(cfg)
	return nil
}

func (p *LegacyProvider) saveCamera(uniqueName string, cam models.CameraConfiguration) error {
	camDir := filepath.Join(p.camerasDir(), uniqueName)
	if err := os.MkdirAll(camDir, 0755); err != nil {
		return fmt.Errorf("create camera dir %s: %w", uniqueName, err)
	}

	// Driver mode and pipelines get their own files; blank them out of
	// the config blob so nothing is stored twice.
	shallow := cam
	shallow.DriverMode = nil
	shallow.Pipelines = nil
	if err := writeJSONFile(filepath.Join(camDir, legacyCameraConfigFile), shallow); err != nil {
		return err
	}

	if cam.DriverMode != nil {
		if err := os.WriteFile(filepath.Join(camDir, legacyDriverModeFile), cam.DriverMode, 0644); err != nil {
			return fmt.Errorf("write drivermode for %s: %w", uniqueName, err)
		}
	}

	// Rewrite the pipelines dir from scratch so removed pipelines don't
	// linger under stale indices.
	pipelinesDir := filepath.Join(camDir, legacyPipelinesDirName)
	if err := os.RemoveAll(pipelinesDir); err != nil {
		return fmt.Errorf("clear pipelines for %s: %w", uniqueName, err)
	}
	if err := os.MkdirAll(pipelinesDir, 0755); err != nil {
		return fmt.Errorf("create pipelines dir for %s: %w", uniqueName, err)
	}
	for i, pipeline := range cam.Pipelines {
		name := filepath.Join(pipelinesDir, strconv.Itoa(i)+".json")
		if err := os.WriteFile(name, pipeline, 0644); err != nil {
			return fmt.Errorf("write pipeline %d for %s: %w", i, uniqueName, err)
		}
	}
	return nil
}

func (p *LegacyProvider) pruneStaleCameraDirs(cfg *models.Config) {
	entries, err := os.ReadDir(p.camerasDir())
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, ok := cfg.CameraConfigurations[e.Name()]; !ok {
			stale := filepath.Join(p.camerasDir(), e.Name())
			if err := os.RemoveAll(stale); err != nil {
				slog.Warn("config: failed to prune stale camera dir", "path", stale, "err", err)
			}
		}
	}
}

// SaveUploadedHardwareConfig validates and merges an uploaded hardware
// config file, then persists immediately.
func (p *LegacyProvider) SaveUploadedHardwareConfig(path string) error {
	hw, err := readJSONFile[models.HardwareConfig](path)
	if err != nil {
		return err
	}
	p.cfg.Load().HardwareConfig = *hw
	return p.SaveToDisk()
}

// SaveUploadedHardwareSettings validates and merges an uploaded hardware
// settings file, then persists immediately.
func (p *LegacyProvider) SaveUploadedHardwareSettings(path string) error {
	hs, err := readJSONFile[models.HardwareSettings](path)
	if err != nil {
		return err
	}
	p.cfg.Load().HardwareSettings = *hs
	return p.SaveToDisk()
}

// SaveUploadedNetworkConfig validates and merges an uploaded network
// config file, then persists immediately.
func (p *LegacyProvider) SaveUploadedNetworkConfig(path string) error {
	nc, err := readJSONFile[models.NetworkConfig](path)
	if err != nil {
		return err
	}
	p.cfg.Load().NetworkConfig = *nc
	return p.SaveToDisk()
}

// loadOptionalJSON fills v from path if the file exists and parses.
func loadOptionalJSON(path string, v any) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("config: cannot read settings file, using defaults", "path", path, "err", err)
		}
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("config: corrupt settings file, using defaults", "path", path, "err", err)
	}
}

// writeJSONFile writes v as indented JSON via a temp-file rename.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

var _ Provider = (*LegacyProvider)(nil)
