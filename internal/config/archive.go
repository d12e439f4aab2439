package config

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	exportZipName = "photonvision-settings.zip"
	// ExportDownloadName is the filename the exported archive is served
	// under.
	ExportDownloadName = "photonvision-settings-export.zip"
	importStagingName  = "photonvision"
)

// ExportSettingsZip packs the entire root directory into a zip at a fixed
// temp path and returns that path.
func (m *Manager) ExportSettingsZip() (string, error) {
	out := filepath.Join(os.TempDir(), exportZipName)
	if err := zipDir(m.rootDir, out); err != nil {
		slog.Error("config: failed to pack settings zip", "err", err)
		return "", err
	}
	return out, nil
}

// ImportSettingsZip unpacks an uploaded settings archive and installs it
// as the new configuration root. The existing root is deleted first and
// is NOT restored if the install fails; the caller is expected to restart
// the program afterwards either way.
func (m *Manager) ImportSettingsZip(uploadPath string) error {
	staging := filepath.Join(os.TempDir(), importStagingName)
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clear staging dir: %w", err)
	}
	if err := unzip(uploadPath, staging); err != nil {
		return fmt.Errorf("unpack settings zip: %w", err)
	}

	// Nuke the current settings directory.
	if err := os.RemoveAll(m.rootDir); err != nil {
		return fmt.Errorf("remove settings root: %w", err)
	}

	// A cameras folder in the upload means the old directory-per-camera
	// layout; run it through the legacy loader and save as SQL.
	stagingCams := filepath.Join(staging, legacyCamerasDirName)
	if info, err := os.Stat(stagingCams); err == nil && info.IsDir() {
		slog.Info("config: imported settings use the legacy layout, translating")
		legacy := NewLegacyProvider(staging)
		if err := legacy.Load(); err != nil {
			slog.Error("config: failed to load staged legacy settings", "err", err)
		}

		sqlProvider := NewSQLProvider(m.rootDir)
		sqlProvider.SetConfig(legacy.GetConfig())
		return sqlProvider.SaveToDisk()
	}

	// Current layout: copy the staged tree over the freshly emptied root.
	if err := copyDir(staging, m.rootDir); err != nil {
		slog.Error("config: failed to copy imported settings", "err", err)
		return err
	}
	slog.Info("config: imported settings installed", "root", m.rootDir)
	return nil
}

// zipDir packs the directory tree rooted at srcDir into a zip file at
// outPath. Entry names are relative to srcDir.
func zipDir(srcDir, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	err = filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return fmt.Errorf("pack %s: %w", srcDir, err)
	}
	return zw.Close()
}

// unzip extracts the archive at zipPath into destDir. Entries that would
// escape destDir are skipped.
func unzip(zipPath, destDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}

	for _, entry := range zr.File {
		name := filepath.FromSlash(entry.Name)
		dest := filepath.Join(destDir, name)
		if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
			slog.Warn("config: skipping archive entry outside destination", "entry", entry.Name)
			continue
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		if err := extractFile(entry, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(entry *zip.File, dest string) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// copyDir recursively copies the tree at srcDir into destDir. destDir is
// created if needed and must not already contain the copied files.
func copyDir(srcDir, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	return os.CopyFS(destDir, os.DirFS(srcDir))
}
