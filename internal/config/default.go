package config

import (
	"os"
	"path/filepath"

	"github.com/yndnr/metasnap/internal/storage"
)

// Default configuration values.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultShutdownTimeout = "10s"
)

// DefaultCacheDir returns the base directory for snapshots and the registry:
// the user cache directory, or ".metasnap" when none is available.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "metasnap")
	}
	return ".metasnap"
}

// Default returns the default configuration.
func Default() *Config {
	base := DefaultCacheDir()
	return &Config{
		Snapshot: SnapshotSection{
			Dir: filepath.Join(base, "snapshots"),
		},
		Storage: storage.DefaultKVConfig(filepath.Join(base, "registry")),
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Watch: WatchSection{
			Timeout: DefaultShutdownTimeout,
		},
	}
}
