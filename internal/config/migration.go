package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

const legacyBackupDirName = "cameras_backup"

// translateLegacyIfPresent upgrades an on-disk legacy layout to the SQL
// backend, exactly once. On the next Load the cameras directory is gone
// and this is a no-op.
func (m *Manager) translateLegacyIfPresent() {
	if _, ok := m.provider.(*SQLProvider); !ok {
		// Only the SQL backend is a migration target.
		return
	}

	camsDir := filepath.Join(m.rootDir, legacyCamerasDirName)
	camsBak := filepath.Join(m.rootDir, legacyBackupDirName)

	info, err := os.Stat(camsDir)
	if err != nil || !info.IsDir() {
		return
	}

	slog.Info("config: legacy settings layout found, translating", "path", camsDir)

	legacy := NewLegacyProvider(m.rootDir)
	if err := legacy.Load(); err != nil {
		slog.Error("config: failed to load legacy settings", "err", err)
	}
	loaded := legacy.GetConfig()

	// Drop any stale backup from an earlier interrupted run.
	if err := os.RemoveAll(camsBak); err != nil {
		slog.Warn("config: failed to remove stale backup", "path", camsBak, "err", err)
	}

	if err := os.Rename(camsDir, camsBak); err != nil {
		slog.Error("config: failed to move cameras to backup", "err", err)

		// Rename can fail across devices; fall back to a copy.
		if err := copyDir(camsDir, camsBak); err != nil {
			// Can't move and can't copy. Give up on preserving the old
			// folder.
			slog.Error("config: failed to backup-copy cameras", "err", err)
		}

		// We loaded the config fine but couldn't preserve the folder;
		// delete it anyway rather than leave the system straddling two
		// formats.
		if err := os.RemoveAll(camsDir); err != nil {
			slog.Error("config: failed to remove legacy cameras dir", "err", err)
		}
	}

	sqlProvider := NewSQLProvider(m.rootDir)
	sqlProvider.SetConfig(loaded)
	if err := sqlProvider.SaveToDisk(); err != nil {
		slog.Error("config: failed to save translated settings", "err", err)
	}
}
