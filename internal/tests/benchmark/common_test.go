package benchmark

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/yndnr/metasnap/internal/core/domain"
	"github.com/yndnr/metasnap/internal/metadata"
	"github.com/yndnr/metasnap/internal/storage/snapshot"
	"github.com/yndnr/metasnap/internal/telemetry/logger"
)

// RecordCounts defines the snapshot sizes for benchmarking.
var RecordCounts = []int{100, 1000, 10000, 50000}

// SmallRecordCounts for quick benchmarks.
var SmallRecordCounts = []int{100, 1000, 10000}

// newStore returns a snapshot store over the metadata codec that logs
// nothing.
func newStore() *snapshot.Store {
	mc := metadata.NewCodec()
	return snapshot.NewStore(snapshot.NewCodec(mc, mc), snapshot.WithLogger(logger.NewNop()))
}

// createClass creates a class record with a handful of members.
func createClass(i int) *domain.Record {
	strs := []string{
		fmt.Sprintf("bench/pkg%d/Type%d", i%50, i),
		"kotlin/Any",
		"toString",
		"hashCode",
		fmt.Sprintf("field%d", i),
	}
	desc := &metadata.ClassDescriptor{
		FqName:     0,
		Supertypes: []int32{1},
		Members: []metadata.Member{
			{Kind: metadata.MemberFunction, Name: 2},
			{Kind: metadata.MemberFunction, Name: 3},
			{Kind: metadata.MemberProperty, Name: 4},
		},
	}
	qnames := []domain.QualifiedName{{Index: 0}, {Index: 1}}
	return domain.NewClassRecord(desc, domain.NewCompactTable(strs, qnames))
}

// createPackagePart creates a package-part record with a flat table.
func createPackagePart(i int) *domain.Record {
	desc := &metadata.PackageDescriptor{Members: []metadata.Member{
		{Kind: metadata.MemberFunction, Name: 0},
		{Kind: metadata.MemberProperty, Name: 1},
	}}
	table := domain.NewFlatTable([]string{fmt.Sprintf("top%d", i), "VERSION"})
	return domain.NewPackagePartRecord(desc, table, domain.FqName(fmt.Sprintf("bench.pkg%d", i%50)))
}

// createSnapshot builds a snapshot of count records, one in four being a
// package part.
func createSnapshot(count int) *domain.Snapshot {
	snap := domain.NewSnapshotSize(count)
	for i := 0; i < count; i++ {
		if i%4 == 3 {
			snap.Put(domain.FqName(fmt.Sprintf("bench.pkg%d.File%dKt", i%50, i)), createPackagePart(i))
			continue
		}
		snap.Put(domain.FqName(fmt.Sprintf("bench.pkg%d.Type%d", i%50, i)), createClass(i))
	}
	return snap
}

// reportMemory reports memory statistics as benchmark metrics.
func reportMemory(b *testing.B, prefix string) {
	b.Helper()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithRecordCounts runs a benchmark function with various snapshot sizes.
func runWithRecordCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("records_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
