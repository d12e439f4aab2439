// Package config persists the coprocessor's operating configuration:
// per-camera settings, network settings, and hardware settings, across
// restarts and software upgrades.
package config

import "github.com/photonvision/photonvision-go/internal/models"

// Backend selects which Provider implementation the process runs with.
// It is chosen once at startup and passed into the Manager constructor.
type Backend int

const (
	// BackendSQL is the current on-disk form: a single SQLite database.
	BackendSQL Backend = iota
	// BackendLegacy is the directory-per-camera layout used by older
	// releases. Read-mostly; kept as a migration source.
	BackendLegacy
	// BackendAtomicZip is reserved for a future archive-native provider.
	BackendAtomicZip
)

// Provider is the storage backend capability. Exactly one Provider is
// active per process for the process's lifetime.
type Provider interface {
	// Load populates the in-memory aggregate from the root directory.
	// Missing or unreadable storage degrades to the default aggregate
	// (logged); Load never surfaces that as an error to the caller.
	Load() error

	// GetConfig returns the current aggregate. Callers share the
	// reference; concurrent mutation during a read is an accepted risk.
	GetConfig() *models.Config

	// SetConfig replaces the in-memory aggregate wholesale.
	SetConfig(cfg *models.Config)

	// SaveToDisk persists the full current aggregate. Calling it twice
	// with no intervening mutation produces identical on-disk state.
	SaveToDisk() error

	// ClearConfig resets the in-memory aggregate to the empty baseline.
	ClearConfig()

	// The targeted uploaders each validate one uploaded artifact, merge
	// it into the aggregate, and persist immediately.
	SaveUploadedHardwareConfig(path string) error
	SaveUploadedHardwareSettings(path string) error
	SaveUploadedNetworkConfig(path string) error
}

// NewProvider constructs the Provider for the given backend over rootDir.
func NewProvider(backend Backend, rootDir string) Provider {
	switch backend {
	case BackendLegacy:
		return NewLegacyProvider(rootDir)
	case BackendAtomicZip:
		// Not implemented; fall through to the current backend.
		return NewSQLProvider(rootDir)
	default:
		return NewSQLProvider(rootDir)
	}
}
