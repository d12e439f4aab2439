package config_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/photonvision/photonvision-go/internal/config"
)

func TestExportImportRoundTrip(t *testing.T) {
	srcRoot := t.TempDir()

	src := config.NewSQLProvider(srcRoot)
	want := sampleConfig()
	src.SetConfig(want)
	if err := src.SaveToDisk(); err != nil {
		t.Fatalf("SaveToDisk: %v", err)
	}

	m1 := config.New(srcRoot, src)
	defer m1.Stop()
	zipPath, err := m1.ExportSettingsZip()
	if err != nil {
		t.Fatalf("ExportSettingsZip: %v", err)
	}
	if filepath.Base(zipPath) != "photonvision-settings.zip" {
		t.Errorf("export path = %q, want the fixed archive name", zipPath)
	}

	destRoot := filepath.Join(t.TempDir(), "photonvision_config")
	m2 := config.New(destRoot, config.NewSQLProvider(destRoot))
	defer m2.Stop()
	if err := m2.ImportSettingsZip(zipPath); err != nil {
		t.Fatalf("ImportSettingsZip: %v", err)
	}
	if err := m2.Load(); err != nil {
		t.Fatalf("Load after import: %v", err)
	}

	if got := m2.GetConfig(); !reflect.DeepEqual(got, want) {
		t.Errorf("imported settings differ:\n got %+v\nwant %+v", got, want)
	}
}

func TestImportLegacyArchiveTranslatesToSQL(t *testing.T) {
	legacyRoot := t.TempDir()
	writeLegacyTree(t, legacyRoot)

	// Pack the legacy tree the same way export does.
	packer := config.New(legacyRoot, config.NewLegacyProvider(legacyRoot))
	defer packer.Stop()
	zipPath, err := packer.ExportSettingsZip()
	if err != nil {
		t.Fatalf("ExportSettingsZip: %v", err)
	}

	destRoot := filepath.Join(t.TempDir(), "photonvision_config")
	m := config.New(destRoot, config.NewSQLProvider(destRoot))
	defer m.Stop()
	if err := m.ImportSettingsZip(zipPath); err != nil {
		t.Fatalf("ImportSettingsZip: %v", err)
	}

	// A legacy archive lands as a database, not as a cameras tree.
	if _, err := os.Stat(filepath.Join(destRoot, "photon.sqlite")); err != nil {
		t.Errorf("settings database missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destRoot, "cameras")); !os.IsNotExist(err) {
		t.Error("legacy cameras tree copied into the new root")
	}

	if err := m.Load(); err != nil {
		t.Fatalf("Load after import: %v", err)
	}
	cfg := m.GetConfig()
	if cfg.NetworkConfig.Hostname != "legacy-box" {
		t.Errorf("Hostname = %q, want legacy-box", cfg.NetworkConfig.Hostname)
	}
	if _, ok := cfg.CameraConfigurations["Lifecam_HD-3000"]; !ok {
		t.Error("camera missing after legacy import")
	}

	// Importing the archive must land on the same aggregate as migrating
	// the same tree in place.
	migratedRoot := t.TempDir()
	writeLegacyTree(t, migratedRoot)
	migrated := config.New(migratedRoot, config.NewSQLProvider(migratedRoot))
	defer migrated.Stop()
	if err := migrated.Load(); err != nil {
		t.Fatalf("Load of in-place migration: %v", err)
	}
	if !reflect.DeepEqual(cfg.CameraConfigurations, migrated.GetConfig().CameraConfigurations) {
		t.Error("imported aggregate differs from an in-place migration of the same tree")
	}
}

func TestImportReplacesExistingRoot(t *testing.T) {
	srcRoot := t.TempDir()
	src := config.NewSQLProvider(srcRoot)
	src.SetConfig(sampleConfig())
	if err := src.SaveToDisk(); err != nil {
		t.Fatalf("SaveToDisk: %v", err)
	}
	m1 := config.New(srcRoot, src)
	defer m1.Stop()
	zipPath, err := m1.ExportSettingsZip()
	if err != nil {
		t.Fatalf("ExportSettingsZip: %v", err)
	}

	destRoot := filepath.Join(t.TempDir(), "photonvision_config")
	leftover := filepath.Join(destRoot, "logs", "photonvision-2026-1-1_01-02-03.log")
	if err := os.MkdirAll(filepath.Dir(leftover), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(leftover, []byte("old boot"), 0644); err != nil {
		t.Fatal(err)
	}

	m2 := config.New(destRoot, config.NewSQLProvider(destRoot))
	defer m2.Stop()
	if err := m2.ImportSettingsZip(zipPath); err != nil {
		t.Fatalf("ImportSettingsZip: %v", err)
	}

	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Error("pre-import contents survived; the root must be replaced wholesale")
	}
}

func TestImportBadArchivePreservesRoot(t *testing.T) {
	destRoot := t.TempDir()
	keep := filepath.Join(destRoot, "photon.sqlite")
	if err := os.WriteFile(keep, []byte("not really a database"), 0644); err != nil {
		t.Fatal(err)
	}

	junk := filepath.Join(t.TempDir(), "upload.zip")
	if err := os.WriteFile(junk, []byte("definitely not a zip"), 0644); err != nil {
		t.Fatal(err)
	}

	m := config.New(destRoot, config.NewSQLProvider(destRoot))
	defer m.Stop()
	if err := m.ImportSettingsZip(junk); err == nil {
		t.Fatal("expected error importing a non-archive")
	}

	// Unpack failed before the root was touched.
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("existing root damaged by failed import: %v", err)
	}
}

func TestImportSkipsEntriesEscapingTheRoot(t *testing.T) {
	evilZip := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(evilZip)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("../escaped.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("outside")); err != nil {
		t.Fatal(err)
	}
	w, err = zw.Create("inside.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("inside")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	destRoot := filepath.Join(t.TempDir(), "photonvision_config")
	m := config.New(destRoot, config.NewSQLProvider(destRoot))
	defer m.Stop()
	if err := m.ImportSettingsZip(evilZip); err != nil {
		t.Fatalf("ImportSettingsZip: %v", err)
	}

	if _, err := os.Stat(filepath.Join(destRoot, "inside.txt")); err != nil {
		t.Errorf("legitimate entry missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(os.TempDir(), "escaped.txt")); !os.IsNotExist(err) {
		t.Error("archive entry escaped the extraction dir")
	}
}
