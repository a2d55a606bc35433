package storage

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/metasnap/internal/fingerprint"
	"github.com/yndnr/metasnap/internal/telemetry/metric"
)

const archiveKeyPrefix = "archive:"

// ArchiveEntry records which snapshot was built from an archive, and the
// archive fingerprint at that time.
type ArchiveEntry struct {
	Path         string                  `json:"path" yaml:"path"`
	Fingerprint  fingerprint.Fingerprint `json:"fingerprint" yaml:"fingerprint"`
	SnapshotPath string                  `json:"snapshot_path" yaml:"snapshot_path"`
	RecordCount  int                     `json:"record_count" yaml:"record_count"`
	BuildID      ulid.ULID               `json:"build_id" yaml:"build_id"`
	RecordedAt   time.Time               `json:"recorded_at" yaml:"recorded_at"`
}

// Registry maps archive paths to ArchiveEntry values stored in a KVEngine.
type Registry struct {
	kv      KVEngine
	metrics *metric.Registry
	now     func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryMetrics records lookup results on m.
func WithRegistryMetrics(m *metric.Registry) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a registry over kv.
func NewRegistry(kv KVEngine, opts ...RegistryOption) *Registry {
	r := &Registry{
		kv:      kv,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func archiveKey(path string) []byte {
	return []byte(archiveKeyPrefix + filepath.Clean(path))
}

// Record stores entry, replacing any previous entry for the same archive.
// BuildID and RecordedAt are assigned by the registry.
func (r *Registry) Record(ctx context.Context, entry ArchiveEntry) (*ArchiveEntry, error) {
	if entry.Path == "" {
		return nil, fmt.Errorf("registry: archive path is required")
	}
	entry.Path = filepath.Clean(entry.Path)
	entry.RecordedAt = r.now().UTC()

	r.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(entry.RecordedAt), r.entropy)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("registry: build id: %w", err)
	}
	entry.BuildID = id

	data, err := json.Marshal(&entry)
	if err != nil {
		return nil, fmt.Errorf("registry: marshal: %w", err)
	}
	if err := r.kv.Set(ctx, archiveKey(entry.Path), data); err != nil {
		return nil, fmt.Errorf("registry: store %s: %w", entry.Path, err)
	}
	return &entry, nil
}

// Lookup returns the entry for archive, or ErrKeyNotFound.
func (r *Registry) Lookup(ctx context.Context, archive string) (*ArchiveEntry, error) {
	data, err := r.kv.Get(ctx, archiveKey(archive))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("registry: lookup %s: %w", archive, err)
	}

	var entry ArchiveEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", archive, err)
	}
	return &entry, nil
}

// Check looks up archive and compares its stored fingerprint with fp.
// It returns the entry (nil when missing) and one of metric.LookupFresh,
// metric.LookupStale or metric.LookupMissing.
func (r *Registry) Check(ctx context.Context, archive string, fp fingerprint.Fingerprint) (*ArchiveEntry, string, error) {
	entry, err := r.Lookup(ctx, archive)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		r.metrics.ObserveLookup(metric.LookupMissing)
		return nil, metric.LookupMissing, nil
	case err != nil:
		return nil, "", err
	}

	result := metric.LookupStale
	if entry.Fingerprint.Equal(fp) {
		result = metric.LookupFresh
	}
	r.metrics.ObserveLookup(result)
	return entry, result, nil
}

// Invalidate removes the entry for archive. It reports whether an entry
// existed.
func (r *Registry) Invalidate(ctx context.Context, archive string) (bool, error) {
	key := archiveKey(archive)
	if _, err := r.kv.Get(ctx, key); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("registry: invalidate %s: %w", archive, err)
	}
	if err := r.kv.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("registry: invalidate %s: %w", archive, err)
	}
	return true, nil
}

// List returns every entry in archive path order.
func (r *Registry) List(ctx context.Context) ([]*ArchiveEntry, error) {
	var (
		entries []*ArchiveEntry
		decErr  error
	)
	err := r.kv.Scan(ctx, []byte(archiveKeyPrefix), func(key, value []byte) bool {
		var entry ArchiveEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			decErr = fmt.Errorf("registry: decode %s: %w", key, err)
			return false
		}
		entries = append(entries, &entry)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	if decErr != nil {
		return nil, decErr
	}
	return entries, nil
}

// Stats returns statistics of the underlying engine.
func (r *Registry) Stats(ctx context.Context) (*KVStats, error) {
	return r.kv.Stats(ctx)
}

// Close closes the underlying engine.
func (r *Registry) Close() error {
	return r.kv.Close()
}
