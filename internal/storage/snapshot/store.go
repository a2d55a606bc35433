package snapshot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/metasnap/internal/core/domain"
	"github.com/yndnr/metasnap/internal/telemetry/logger"
	"github.com/yndnr/metasnap/internal/telemetry/metric"
)

// DefaultFileExtension is the snapshot file extension.
const DefaultFileExtension = ".snap"

// minRecordSize is the smallest possible framed record: empty name (2),
// tag (1), empty payload array (4), empty string array (4).
const minRecordSize = utfLenSize + boolSize + int32Size + int32Size

// Reporter receives human-readable build reports, such as a requested
// snapshot being absent.
type Reporter interface {
	Report(msg string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(msg string)

// Report implements Reporter.
func (f ReporterFunc) Report(msg string) {
	f(msg)
}

// Info describes a snapshot file that was written or read.
type Info struct {
	Path        string `json:"path" yaml:"path"`
	RecordCount int    `json:"record_count" yaml:"record_count"`
	Size        int64  `json:"size" yaml:"size"`
}

// Store saves and loads whole snapshots.
//
// Store holds no state between calls; every Save and Load is a function of
// its arguments. Concurrent loads of a stable file are safe. Writers to one
// path must be serialized by the caller.
type Store struct {
	codec    *Codec
	reporter Reporter
	logger   logger.Logger
	metrics  *metric.Registry
}

// Option configures a Store.
type Option func(*Store)

// WithReporter sets the reporter notified when a snapshot is absent.
func WithReporter(r Reporter) Option {
	return func(s *Store) {
		s.reporter = r
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithMetrics sets the metrics registry. A nil registry disables metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates a store that serializes records with codec.
func NewStore(codec *Codec, opts ...Option) *Store {
	s := &Store{
		codec:  codec,
		logger: logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		l := s.logger
		s.reporter = ReporterFunc(func(msg string) { l.Info(msg) })
	}
	return s
}

// Encode writes the record count followed by every record of snap.
//
// Records are written in name order so equal snapshots encode to identical
// bytes. Returns the number of bytes written.
func (s *Store) Encode(w io.Writer, snap *domain.Snapshot) (int64, error) {
	if snap.Len() > math.MaxInt32 {
		return 0, fmt.Errorf("snapshot: too many records: %d", snap.Len())
	}

	bw := NewWriter(w)
	if err := bw.WriteInt32(int32(snap.Len())); err != nil {
		return bw.Written(), fmt.Errorf("snapshot: write record count: %w", err)
	}

	var werr error
	snap.Range(func(name domain.FqName, rec *domain.Record) bool {
		werr = s.codec.WriteRecord(bw, name, rec)
		return werr == nil
	})
	if werr != nil {
		return bw.Written(), werr
	}

	if err := bw.Flush(); err != nil {
		return bw.Written(), fmt.Errorf("snapshot: flush: %w", err)
	}
	return bw.Written(), nil
}

// Decode reads a full snapshot from r. size is the stream length if known,
// or -1.
//
// The whole stream must be well formed: any error discards every record
// already read. Later records with a duplicate name replace earlier ones.
func (s *Store) Decode(r io.Reader, size int64) (*domain.Snapshot, error) {
	br := NewReader(r, size)

	count, err := br.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("snapshot: read record count: %w", err)
	}
	if count < 0 {
		return nil, br.corrupt("negative record count %d", count)
	}
	if err := br.need(int64(count) * minRecordSize); err != nil {
		return nil, fmt.Errorf("snapshot: record count %d: %w", count, err)
	}

	capacity := int(count)
	if capacity > maxPrealloc && br.Remaining() < 0 {
		capacity = maxPrealloc
	}
	snap := domain.NewSnapshotSize(capacity)
	for i := int32(0); i < count; i++ {
		name, rec, err := s.codec.ReadRecord(br)
		if err != nil {
			return nil, fmt.Errorf("snapshot: record %d of %d: %w", i+1, count, err)
		}
		snap.Put(name, rec)
	}

	if br.Remaining() > 0 {
		return nil, br.corrupt("%d trailing bytes after %d records", br.Remaining(), count)
	}
	return snap, nil
}

// Save writes snap to path, replacing any existing file.
//
// Data goes to a temporary file in the same directory that is renamed over
// path once complete, so readers never observe a partial snapshot.
func (s *Store) Save(path string, snap *domain.Snapshot) (*Info, error) {
	start := time.Now()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tempPath := tmp.Name()
	defer os.Remove(tempPath)

	size, err := s.Encode(tmp, snap)
	if err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveSave(snap.Len(), size, elapsed)
	s.logger.Debug("snapshot saved",
		"path", path,
		"records", snap.Len(),
		"size", size,
		"elapsed", elapsed)

	return &Info{Path: path, RecordCount: snap.Len(), Size: size}, nil
}

// Load reads the snapshot at path.
//
// A missing file is not an error: the reporter is notified once and Load
// returns ok == false. A malformed file returns an error matching
// domain.ErrCorruptSnapshot and no records.
func (s *Store) Load(path string) (snap *domain.Snapshot, ok bool, err error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.metrics.ObserveLoad(metric.LoadAbsent, 0, 0, time.Since(start))
			s.reporter.Report(fmt.Sprintf("snapshot %s not found, archive will be rescanned", path))
			return nil, false, nil
		}
		s.metrics.ObserveLoad(metric.LoadError, 0, 0, time.Since(start))
		return nil, false, fmt.Errorf("snapshot: open: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		s.metrics.ObserveLoad(metric.LoadError, 0, 0, time.Since(start))
		return nil, false, fmt.Errorf("snapshot: stat: %w", err)
	}

	snap, err = s.Decode(f, stat.Size())
	if err != nil {
		result := metric.LoadError
		if domain.IsFormatError(err) {
			result = metric.LoadCorrupt
		}
		s.metrics.ObserveLoad(result, 0, 0, time.Since(start))
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveLoad(metric.LoadHit, snap.Len(), stat.Size(), elapsed)
	s.logger.Debug("snapshot loaded",
		"path", path,
		"records", snap.Len(),
		"size", stat.Size(),
		"elapsed", elapsed)

	return snap, true, nil
}
