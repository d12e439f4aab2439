package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/photonvision/photonvision-go/internal/models"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqlDBName = "photon.sqlite"

// Keys in the global table. Named after the legacy settings files so a
// database row maps 1:1 onto the file it replaced.
const (
	globalNetworkSettings  = "networkSettings.json"
	globalHardwareConfig   = "hardwareConfig.json"
	globalHardwareSettings = "hardwareSettings.json"
	globalATFL             = "apriltagFieldLayout.json"
)

// SQLProvider persists the aggregate in a single SQLite database inside
// the root directory. The connection is opened per operation so that
// import can delete and recreate the root out from under us.
type SQLProvider struct {
	rootDir string
	dbPath  string
	cfg     atomic.Pointer[models.Config]
}

// NewSQLProvider creates a SQL provider over the given root directory.
func NewSQLProvider(rootDir string) *SQLProvider {
	p := &SQLProvider{
		rootDir: rootDir,
		dbPath:  filepath.Join(rootDir, sqlDBName),
	}
	def := models.DefaultConfig()
	p.cfg.Store(&def)
	return p
}

// GetConfig returns the current aggregate reference.
func (p *SQLProvider) GetConfig() *models.Config { return p.cfg.Load() }

// SetConfig replaces the in-memory aggregate wholesale.
func (p *SQLProvider) SetConfig(cfg *models.Config) { p.cfg.Store(cfg) }

// ClearConfig resets the in-memory aggregate to the empty baseline.
func (p *SQLProvider) ClearConfig() {
	def := models.DefaultConfig()
	p.cfg.Store(&def)
}

func (p *SQLProvider) open() (*sql.DB, error) {
	if err := os.MkdirAll(p.rootDir, 0755); err != nil {
		return nil, fmt.Errorf("create config root: %w", err)
	}
	db, err := sql.Open("sqlite", p.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p.dbPath, err)
	}
	if err := initTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func initTables(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS cameras (
  unique_name     TEXT PRIMARY KEY,
  config_json     TEXT NOT NULL,
  drivermode_json TEXT NOT NULL,
  pipeline_jsons  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS global (
  filename TEXT PRIMARY KEY,
  contents TEXT NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Load reads the aggregate from the database. A missing or unreadable
// database degrades to the default aggregate; Load logs and moves on.
func (p *SQLProvider) Load() error {
	db, err := p.open()
	if err != nil {
		slog.Warn("config: cannot open settings database, using defaults", "path", p.dbPath, "err", err)
		p.ClearConfig()
		return nil
	}
	defer db.Close()

	cfg := models.DefaultConfig()

	if err := loadGlobal(db, &cfg); err != nil {
		slog.Warn("config: failed reading global settings, using defaults", "err", err)
	}
	if err := loadCameras(db, &cfg); err != nil {
		slog.Warn("config: failed reading camera settings", "err", err)
	}

	p.cfg.Store(&cfg)
	return nil
}

func loadGlobal(db *sql.DB, cfg *models.Config) error {
	rows, err := db.Query(`SELECT filename, contents FROM global`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var filename, contents string
		if err := rows.Scan(&filename, &contents); err != nil {
			return err
		}
		switch filename {
		case globalNetworkSettings:
			if err := json.Unmarshal([]byte(contents), &cfg.NetworkConfig); err != nil {
				slog.Warn("config: corrupt network settings row, keeping defaults", "err", err)
			}
		case globalHardwareConfig:
			if err := json.Unmarshal([]byte(contents), &cfg.HardwareConfig); err != nil {
				slog.Warn("config: corrupt hardware config row, keeping defaults", "err", err)
			}
		case globalHardwareSettings:
			if err := json.Unmarshal([]byte(contents), &cfg.HardwareSettings); err != nil {
				slog.Warn("config: corrupt hardware settings row, keeping defaults", "err", err)
			}
		case globalATFL:
			cfg.AprilTagFieldLayout = json.RawMessage(contents)
		default:
			slog.Warn("config: unknown global settings row", "filename", filename)
		}
	}
	return rows.Err()
}

func loadCameras(db *sql.DB, cfg *models.Config) error {
	rows, err := db.Query(`SELECT unique_name, config_json, drivermode_json, pipeline_jsons FROM cameras`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var uniqueName, configJSON, driverModeJSON, pipelineJSONs string
		if err := rows.Scan(&uniqueName, &configJSON, &driverModeJSON, &pipelineJSONs); err != nil {
			return err
		}

		var cam models.CameraConfiguration
		if err := json.Unmarshal([]byte(configJSON), &cam); err != nil {
			slog.Warn("config: corrupt camera row, skipping", "camera", uniqueName, "err", err)
			continue
		}
		cam.UniqueName = uniqueName
		if driverModeJSON != "" {
			cam.DriverMode = json.RawMessage(driverModeJSON)
		}
		if pipelineJSONs != "" {
			if err := json.Unmarshal([]byte(pipelineJSONs), &cam.Pipelines); err != nil {
				slog.Warn("config: corrupt pipeline list, skipping", "camera", uniqueName, "err", err)
			}
		}
		cfg.AddCameraConfig(uniqueName, cam)
	}
	return rows.Err()
}

// SaveToDisk writes the full current aggregate in one transaction.
func (p *SQLProvider) SaveToDisk() error {
	db, err := p.open()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := p.cfg.Load()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveGlobal(tx, cfg); err != nil {
		return err
	}
	if err := saveCameras(tx, cfg); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}
	return nil
}

func saveGlobal(tx *sql.Tx, cfg *models.Config) error {
	const upsert = `INSERT INTO global (filename, contents) VALUES (?, ?)
ON CONFLICT(filename) DO UPDATE SET contents = excluded.contents`

	entries := []struct {
		filename string
		value    any
	}{
		{globalNetworkSettings, cfg.NetworkConfig},
		{globalHardwareConfig, cfg.HardwareConfig},
		{globalHardwareSettings, cfg.HardwareSettings},
	}
	for _, e := range entries {
		data, err := json.Marshal(e.value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", e.filename, err)
		}
		if _, err := tx.Exec(upsert, e.filename, string(data)); err != nil {
			return fmt.Errorf("save %s: %w", e.filename, err)
		}
	}

	if cfg.AprilTagFieldLayout != nil {
		if _, err := tx.Exec(upsert, globalATFL, string(cfg.AprilTagFieldLayout)); err != nil {
			return fmt.Errorf("save field layout: %w", err)
		}
	} else if _, err := tx.Exec(`DELETE FROM global WHERE filename = ?`, globalATFL); err != nil {
		return fmt.Errorf("delete field layout: %w", err)
	}
	return nil
}

func saveCameras(tx *sql.Tx, cfg *models.Config) error {
	// Full snapshot: drop everything and rewrite, so deleted cameras
	// don't linger.
	if _, err := tx.Exec(`DELETE FROM cameras`); err != nil {
		return fmt.Errorf("clear cameras: %w", err)
	}

	const insert = `INSERT INTO cameras (unique_name, config_json, drivermode_json, pipeline_jsons)
VALUES (?, ?, ?, ?)`

	for uniqueName, cam := range cfg.CameraConfigurations {
		// DriverMode and Pipelines live in their own columns; blank them
		// out of the config blob so nothing is stored twice.
		shallow := cam
		shallow.DriverMode = nil
		shallow.Pipelines = nil

		configJSON, err := json.Marshal(shallow)
		if err != nil {
			return fmt.Errorf("marshal camera %s: %w", uniqueName, err)
		}
		pipelineJSONs, err := json.Marshal(cam.Pipelines)
		if err != nil {
			return fmt.Errorf("marshal pipelines for %s: %w", uniqueName, err)
		}

		driverMode := ""
		if cam.DriverMode != nil {
			driverMode = string(cam.DriverMode)
		}

		if _, err := tx.Exec(insert, uniqueName, string(configJSON), driverMode, string(pipelineJSONs)); err != nil {
			return fmt.Errorf("save camera %s: %w", uniqueName, err)
		}
	}
	return nil
}

// SaveUploadedHardwareConfig validates and merges an uploaded hardware
// config file, then persists immediately.
func (p *SQLProvider) SaveUploadedHardwareConfig(path string) error {
	hw, err := readJSONFile[models.HardwareConfig](path)
	if err != nil {
		return err
	}
	p.cfg.Load().HardwareConfig = *hw
	return p.SaveToDisk()
}

// SaveUploadedHardwareSettings validates and merges an uploaded hardware
// settings file, then persists immediately.
func (p *SQLProvider) SaveUploadedHardwareSettings(path string) error {
	hs, err := readJSONFile[models.HardwareSettings](path)
	if err != nil {
		return err
	}
	p.cfg.Load().HardwareSettings = *hs
	return p.SaveToDisk()
}

// SaveUploadedNetworkConfig validates and merges an uploaded network
// config file, then persists immediately.
func (p *SQLProvider) SaveUploadedNetworkConfig(path string) error {
	nc, err := readJSONFile[models.NetworkConfig](path)
	if err != nil {
		return err
	}
	p.cfg.Load().NetworkConfig = *nc
	return p.SaveToDisk()
}

// readJSONFile reads and strictly decodes one uploaded settings artifact.
func readJSONFile[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &v, nil
}

var _ Provider = (*SQLProvider)(nil)
