package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/metasnap/internal/fingerprint"
	"github.com/yndnr/metasnap/internal/telemetry/metric"
)

func newTestRegistry(t *testing.T, opts ...RegistryOption) *Registry {
	t.Helper()
	r := NewRegistry(NewMemoryEngine(), opts...)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegistry_RecordLookup(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRegistry(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	fp := fingerprint.Fingerprint{Hash: "abc", Size: 10}
	stored, err := r.Record(ctx, ArchiveEntry{
		Path:         "/deps/./lib.jar",
		Fingerprint:  fp,
		SnapshotPath: "/cache/lib.snap",
		RecordCount:  4,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if stored.Path != "/deps/lib.jar" {
		t.Errorf("Path = %q, want cleaned path", stored.Path)
	}
	if stored.BuildID.Time() != uint64(now.UnixMilli()) {
		t.Errorf("BuildID time = %d, want %d", stored.BuildID.Time(), now.UnixMilli())
	}

	got, err := r.Lookup(ctx, "/deps/lib.jar")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.BuildID != stored.BuildID || !got.Fingerprint.Equal(fp) || got.RecordCount != 4 {
		t.Errorf("Lookup = %+v, want %+v", got, stored)
	}
	if !got.RecordedAt.Equal(now) {
		t.Errorf("RecordedAt = %v, want %v", got.RecordedAt, now)
	}

	if _, err := r.Lookup(ctx, "/deps/none.jar"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestRegistry_BuildIDsIncrease(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	first, err := r.Record(ctx, ArchiveEntry{Path: "/a.jar"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Record(ctx, ArchiveEntry{Path: "/a.jar"})
	if err != nil {
		t.Fatal(err)
	}
	if first.BuildID.Compare(second.BuildID) >= 0 {
		t.Errorf("expected increasing build ids, got %s then %s", first.BuildID, second.BuildID)
	}
}

func TestRegistry_Check(t *testing.T) {
	reg := metric.NewRegistry()
	r := newTestRegistry(t, WithRegistryMetrics(reg))
	ctx := context.Background()
	fp := fingerprint.Fingerprint{Hash: "abc", Size: 10}

	if _, result, err := r.Check(ctx, "/a.jar", fp); err != nil || result != metric.LookupMissing {
		t.Fatalf("Check = %q, %v; want missing", result, err)
	}

	if _, err := r.Record(ctx, ArchiveEntry{Path: "/a.jar", Fingerprint: fp}); err != nil {
		t.Fatal(err)
	}
	if _, result, _ := r.Check(ctx, "/a.jar", fp); result != metric.LookupFresh {
		t.Errorf("Check = %q, want fresh", result)
	}
	changed := fingerprint.Fingerprint{Hash: "def", Size: 10}
	if _, result, _ := r.Check(ctx, "/a.jar", changed); result != metric.LookupStale {
		t.Errorf("Check = %q, want stale", result)
	}

	for result, want := range map[string]float64{
		metric.LookupMissing: 1,
		metric.LookupFresh:   1,
		metric.LookupStale:   1,
	} {
		if got := testutil.ToFloat64(reg.RegistryLookups.WithLabelValues(result)); got != want {
			t.Errorf("%s lookups = %v, want %v", result, got, want)
		}
	}
}

func TestRegistry_InvalidateAndList(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	for _, p := range []string{"/z.jar", "/a.jar", "/m.jar"} {
		if _, err := r.Record(ctx, ArchiveEntry{Path: p}); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := r.Invalidate(ctx, "/m.jar")
	if err != nil || !removed {
		t.Fatalf("Invalidate = %v, %v", removed, err)
	}
	removed, err = r.Invalidate(ctx, "/m.jar")
	if err != nil || removed {
		t.Fatalf("second Invalidate = %v, %v; want false, nil", removed, err)
	}

	entries, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Path != "/a.jar" || entries[1].Path != "/z.jar" {
		t.Fatalf("List = %+v", entries)
	}
}

func TestRegistry_RejectsEmptyPath(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Record(context.Background(), ArchiveEntry{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
