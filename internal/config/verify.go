package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/metasnap/internal/storage"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	var errs []error
	if cfg.Snapshot.Dir == "" {
		errs = append(errs, errors.New("snapshot.dir is required"))
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}
	if err := verifyLog(&cfg.Log); err != nil {
		errs = append(errs, err)
	}
	if cfg.Watch.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Watch.Timeout); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("watch.shutdown_timeout: invalid duration %q", cfg.Watch.Timeout))
		}
	}
	if cfg.Watch.Debounce != "" {
		if d, err := time.ParseDuration(cfg.Watch.Debounce); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("watch.debounce: invalid duration %q", cfg.Watch.Debounce))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func verifyStorage(cfg *storage.KVConfig) error {
	switch cfg.Engine {
	case "", storage.EngineBadger, storage.EngineSQLite:
		if cfg.Dir == "" {
			return errors.New("storage.dir is required")
		}
	case storage.EngineMemory:
	default:
		return fmt.Errorf("storage.engine: unknown engine %q", cfg.Engine)
	}
	if cfg.Badger.GCInterval != "" {
		if _, err := time.ParseDuration(cfg.Badger.GCInterval); err != nil {
			return fmt.Errorf("storage.badger.gc_interval: %w", err)
		}
	}
	if t := cfg.Badger.GCThreshold; t < 0 || t >= 1 {
		return fmt.Errorf("storage.badger.gc_threshold must be in [0,1), got %v", t)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
	return nil
}
