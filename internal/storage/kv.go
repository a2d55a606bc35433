package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/yndnr/metasnap/internal/telemetry/logger"
)

// Common errors
var (
	ErrKeyNotFound   = errors.New("storage: key not found")
	ErrClosed        = errors.New("storage: kv engine closed")
	ErrUnknownEngine = errors.New("storage: unknown kv engine")
)

// Engine names accepted by KVConfig.Engine.
const (
	EngineBadger = "badger"
	EngineSQLite = "sqlite"
	EngineMemory = "memory"
)

// KVEngine is an embedded key-value store holding registry entries.
//
// Implementations must be safe for concurrent use.
type KVEngine interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair, replacing any previous value.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key []byte) error

	// Scan iterates over keys with a given prefix in key order.
	// Callback returns false to stop iteration.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*KVStats, error)

	// Close releases the engine.
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	Engine string `json:"engine" yaml:"engine"`

	// TotalKeys is the approximate number of keys. Zero when the engine
	// cannot count cheaply.
	TotalKeys uint64 `json:"total_keys" yaml:"total_keys"`

	// TotalSize is the total disk usage in bytes.
	TotalSize uint64 `json:"total_size" yaml:"total_size"`

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64 `json:"last_gc_time,omitempty" yaml:"last_gc_time,omitempty"`
}

// KVConfig configures an embedded KV engine.
type KVConfig struct {
	// Engine is one of "badger", "sqlite" or "memory".
	// Default: "badger"
	Engine string `koanf:"engine" json:"engine" yaml:"engine"`

	// Dir is the storage directory.
	Dir string `koanf:"dir" json:"dir" yaml:"dir"`

	Badger BadgerConfig `koanf:"badger" json:"badger" yaml:"badger"`
	SQLite SQLiteConfig `koanf:"sqlite" json:"sqlite" yaml:"sqlite"`
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic GC runs.
	// Default: 10m
	GCInterval string `koanf:"gc_interval" json:"gc_interval" yaml:"gc_interval"`

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64 `koanf:"gc_threshold" json:"gc_threshold" yaml:"gc_threshold"`

	// CacheSize is the block cache size in bytes.
	// Default: 16MB
	CacheSize int64 `koanf:"cache_size" json:"cache_size" yaml:"cache_size"`

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 64MB
	ValueLogFileSize int64 `koanf:"value_log_file_size" json:"value_log_file_size" yaml:"value_log_file_size"`

	// SyncWrites enables fsync after each write.
	SyncWrites bool `koanf:"sync_writes" json:"sync_writes" yaml:"sync_writes"`
}

// SQLiteConfig contains SQLite-specific parameters.
type SQLiteConfig struct {
	// File is the database file name inside Dir.
	// Default: registry.db
	File string `koanf:"file" json:"file" yaml:"file"`

	// BusyTimeout is the busy_timeout pragma in milliseconds.
	// Default: 5000
	BusyTimeout int `koanf:"busy_timeout" json:"busy_timeout" yaml:"busy_timeout"`
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Engine: EngineBadger,
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
		SQLite: DefaultSQLiteConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        16 << 20, // 16MB
		ValueLogFileSize: 64 << 20, // 64MB
	}
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		File:        "registry.db",
		BusyTimeout: 5000,
	}
}

// OpenEngine opens the engine selected by cfg.Engine.
func OpenEngine(cfg KVConfig, log logger.Logger) (KVEngine, error) {
	if log == nil {
		log = logger.Default()
	}
	switch cfg.Engine {
	case "", EngineBadger:
		return NewBadgerEngine(cfg, log)
	case EngineSQLite:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("sqlite: dir is required")
		}
		file := cfg.SQLite.File
		if file == "" {
			file = DefaultSQLiteConfig().File
		}
		return NewSQLiteEngine(filepath.Join(cfg.Dir, file), cfg.SQLite)
	case EngineMemory:
		return NewMemoryEngine(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
}

// prefixEnd returns the smallest key greater than every key with prefix,
// or nil if no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
