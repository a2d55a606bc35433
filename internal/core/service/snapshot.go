package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/metasnap/internal/core/domain"
	"github.com/yndnr/metasnap/internal/fingerprint"
	"github.com/yndnr/metasnap/internal/storage"
	"github.com/yndnr/metasnap/internal/storage/snapshot"
	"github.com/yndnr/metasnap/internal/telemetry/logger"
	"github.com/yndnr/metasnap/internal/telemetry/metric"
)

// SnapshotStore saves and loads snapshot files.
type SnapshotStore interface {
	Save(path string, snap *domain.Snapshot) (*snapshot.Info, error)
	Load(path string) (*domain.Snapshot, bool, error)
}

// ArchiveRegistry tracks which snapshot belongs to which archive.
type ArchiveRegistry interface {
	Check(ctx context.Context, archive string, fp fingerprint.Fingerprint) (*storage.ArchiveEntry, string, error)
	Lookup(ctx context.Context, archive string) (*storage.ArchiveEntry, error)
	Record(ctx context.Context, entry storage.ArchiveEntry) (*storage.ArchiveEntry, error)
	Invalidate(ctx context.Context, archive string) (bool, error)
}

// Restore outcomes.
const (
	ReasonFresh   = "fresh"
	ReasonMissing = "missing"
	ReasonStale   = "stale"
	ReasonAbsent  = "absent"
	ReasonCorrupt = "corrupt"
)

// RestoreResult is the outcome of SnapshotService.Restore.
type RestoreResult struct {
	// Snapshot is set only when Fresh is true.
	Snapshot *domain.Snapshot

	// Fresh reports whether the stored snapshot matches the archive.
	// When false the caller rescans the archive.
	Fresh bool

	Reason      string
	Entry       *storage.ArchiveEntry
	Fingerprint fingerprint.Fingerprint
}

// ArchiveStatus describes an archive without loading its snapshot.
type ArchiveStatus struct {
	Archive     string                   `json:"archive" yaml:"archive"`
	State       string                   `json:"state" yaml:"state"`
	Fingerprint *fingerprint.Fingerprint `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Entry       *storage.ArchiveEntry    `json:"entry,omitempty" yaml:"entry,omitempty"`
}

// Archive states reported by Status, in addition to the restore reasons.
const StateArchiveMissing = "archive-missing"

// SnapshotService restores and stores the snapshot of a dependency archive.
type SnapshotService struct {
	store       SnapshotStore
	registry    ArchiveRegistry
	snapshotDir string
	logger      logger.Logger
}

// ServiceOption configures a SnapshotService.
type ServiceOption func(*SnapshotService)

// WithServiceLogger sets the service logger.
func WithServiceLogger(l logger.Logger) ServiceOption {
	return func(s *SnapshotService) {
		s.logger = l
	}
}

// NewSnapshotService creates a service writing snapshots below snapshotDir.
func NewSnapshotService(store SnapshotStore, registry ArchiveRegistry, snapshotDir string, opts ...ServiceOption) *SnapshotService {
	s := &SnapshotService{
		store:       store,
		registry:    registry,
		snapshotDir: snapshotDir,
		logger:      logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SnapshotPath returns where the snapshot of archive is written.
//
// The name combines the archive base name with a hash of its absolute path,
// so archives with equal names in different directories do not collide.
func (s *SnapshotService) SnapshotPath(archive string) (string, error) {
	abs, err := filepath.Abs(archive)
	if err != nil {
		return "", fmt.Errorf("service: resolve %s: %w", archive, err)
	}
	id, err := fingerprint.Reader(strings.NewReader(abs))
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	return filepath.Join(s.snapshotDir, base+"-"+id.Hash[:16]+snapshot.DefaultFileExtension), nil
}

// Restore returns the stored snapshot of archive if it is still valid.
//
// A missing registry entry, a changed fingerprint, a missing snapshot file
// and a corrupt snapshot all yield Fresh == false. Stale and corrupt state
// is invalidated so the next Store starts clean. Only I/O failures are
// returned as errors.
func (s *SnapshotService) Restore(ctx context.Context, archive string) (*RestoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(archive)
	if err != nil {
		return nil, fmt.Errorf("service: resolve %s: %w", archive, err)
	}

	fp, err := fingerprint.File(abs)
	if err != nil {
		return nil, err
	}
	log := s.log(ctx)
	res := &RestoreResult{Fingerprint: fp}

	entry, result, err := s.registry.Check(ctx, abs, fp)
	if err != nil {
		return nil, err
	}
	res.Entry = entry

	switch result {
	case metric.LookupMissing:
		res.Reason = ReasonMissing
		return res, nil
	case metric.LookupStale:
		log.Info("archive changed since snapshot",
			"archive", abs,
			"was", entry.Fingerprint.String(),
			"now", fp.String())
		res.Reason = ReasonStale
		return res, s.drop(ctx, abs, entry)
	}

	snap, ok, err := s.store.Load(entry.SnapshotPath)
	switch {
	case err != nil && domain.IsFormatError(err):
		log.Warn("discarding corrupt snapshot",
			"archive", abs,
			"snapshot", entry.SnapshotPath,
			"error", err)
		res.Reason = ReasonCorrupt
		return res, s.drop(ctx, abs, entry)
	case err != nil:
		return nil, err
	case !ok:
		res.Reason = ReasonAbsent
		if _, err := s.registry.Invalidate(ctx, abs); err != nil {
			return nil, err
		}
		return res, nil
	}

	res.Snapshot = snap
	res.Fresh = true
	res.Reason = ReasonFresh
	return res, nil
}

// Store saves snap as the snapshot of archive and records the archive's
// current fingerprint.
func (s *SnapshotService) Store(ctx context.Context, archive string, snap *domain.Snapshot) (*storage.ArchiveEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(archive)
	if err != nil {
		return nil, fmt.Errorf("service: resolve %s: %w", archive, err)
	}

	fp, err := fingerprint.File(abs)
	if err != nil {
		return nil, err
	}
	path, err := s.SnapshotPath(abs)
	if err != nil {
		return nil, err
	}

	info, err := s.store.Save(path, snap)
	if err != nil {
		return nil, err
	}

	entry, err := s.registry.Record(ctx, storage.ArchiveEntry{
		Path:         abs,
		Fingerprint:  fp,
		SnapshotPath: info.Path,
		RecordCount:  info.RecordCount,
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx).Info("snapshot stored",
		"archive", abs,
		"snapshot", info.Path,
		"records", info.RecordCount,
		"build_id", entry.BuildID.String())
	return entry, nil
}

// Invalidate forgets the snapshot of archive and removes its file. It
// reports whether anything was registered.
func (s *SnapshotService) Invalidate(ctx context.Context, archive string) (bool, error) {
	abs, err := filepath.Abs(archive)
	if err != nil {
		return false, fmt.Errorf("service: resolve %s: %w", archive, err)
	}

	entry, err := s.registry.Lookup(ctx, abs)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.drop(ctx, abs, entry); err != nil {
		return false, err
	}
	s.log(ctx).Info("snapshot invalidated", "archive", abs)
	return true, nil
}

// Status reports whether the stored snapshot of archive is current.
func (s *SnapshotService) Status(ctx context.Context, archive string) (*ArchiveStatus, error) {
	abs, err := filepath.Abs(archive)
	if err != nil {
		return nil, fmt.Errorf("service: resolve %s: %w", archive, err)
	}
	st := &ArchiveStatus{Archive: abs}

	fp, err := fingerprint.File(abs)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		entry, lerr := s.registry.Lookup(ctx, abs)
		if lerr != nil && !errors.Is(lerr, storage.ErrKeyNotFound) {
			return nil, lerr
		}
		st.State = StateArchiveMissing
		st.Entry = entry
		return st, nil
	}
	st.Fingerprint = &fp

	entry, result, err := s.registry.Check(ctx, abs, fp)
	if err != nil {
		return nil, err
	}
	st.Entry = entry

	switch result {
	case metric.LookupMissing:
		st.State = ReasonMissing
	case metric.LookupStale:
		st.State = ReasonStale
	default:
		st.State = ReasonFresh
		if _, err := os.Stat(entry.SnapshotPath); errors.Is(err, fs.ErrNotExist) {
			st.State = ReasonAbsent
		}
	}
	return st, nil
}

// log returns the logger carried by ctx, or the service logger.
func (s *SnapshotService) log(ctx context.Context) logger.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// drop removes the registry entry and the snapshot file of archive.
func (s *SnapshotService) drop(ctx context.Context, archive string, entry *storage.ArchiveEntry) error {
	if _, err := s.registry.Invalidate(ctx, archive); err != nil {
		return err
	}
	if entry == nil || entry.SnapshotPath == "" {
		return nil
	}
	if err := os.Remove(entry.SnapshotPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("service: remove snapshot: %w", err)
	}
	return nil
}
