package config

import (
	"github.com/yndnr/metasnap/internal/storage"
	"github.com/yndnr/metasnap/internal/telemetry/logger"
)

// Config is the root configuration for metasnap.
type Config struct {
	Snapshot SnapshotSection  `koanf:"snapshot" json:"snapshot" yaml:"snapshot"`
	Storage  storage.KVConfig `koanf:"storage" json:"storage" yaml:"storage"`
	Log      LogSection       `koanf:"log" json:"log" yaml:"log"`
	Metrics  MetricsSection   `koanf:"metrics" json:"metrics" yaml:"metrics"`
	Watch    WatchSection     `koanf:"watch" json:"watch" yaml:"watch"`
}

// SnapshotSection configures where snapshot files live.
type SnapshotSection struct {
	Dir string `koanf:"dir" json:"dir" yaml:"dir"`
}

// LogSection configures logging.
type LogSection struct {
	Level      string `koanf:"level" json:"level" yaml:"level"`
	Format     string `koanf:"format" json:"format" yaml:"format"`
	File       string `koanf:"file" json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `koanf:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `koanf:"compress" json:"compress" yaml:"compress"`
}

// MetricsSection configures metric export.
type MetricsSection struct {
	// Textfile, if set, receives the metrics in Prometheus text format when
	// a command finishes.
	Textfile string `koanf:"textfile" json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// WatchSection configures the watch command.
type WatchSection struct {
	Archives []string `koanf:"archives" json:"archives,omitempty" yaml:"archives,omitempty"`
	Timeout  string   `koanf:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Debounce coalesces bursts of changes to one archive, e.g. "500ms".
	Debounce string `koanf:"debounce" json:"debounce,omitempty" yaml:"debounce,omitempty"`
}

// LoggerConfig converts the log section to a logger configuration.
func (s LogSection) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = s.Level
	cfg.Format = s.Format
	cfg.File = s.File
	if s.MaxSizeMB > 0 {
		cfg.Rotation.MaxSizeMB = s.MaxSizeMB
	}
	if s.MaxBackups > 0 {
		cfg.Rotation.MaxBackups = s.MaxBackups
	}
	if s.MaxAgeDays > 0 {
		cfg.Rotation.MaxAgeDays = s.MaxAgeDays
	}
	cfg.Rotation.Compress = s.Compress
	return cfg
}
