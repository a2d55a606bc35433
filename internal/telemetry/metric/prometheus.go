package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "metasnap"

// Load results.
const (
	LoadHit     = "hit"
	LoadAbsent  = "absent"
	LoadCorrupt = "corrupt"
	LoadError   = "error"
)

// Registry lookup results.
const (
	LookupFresh   = "fresh"
	LookupStale   = "stale"
	LookupMissing = "missing"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	SnapshotsSaved  prometheus.Counter
	SnapshotLoads   *prometheus.CounterVec
	RecordsWritten  prometheus.Counter
	RecordsRead     prometheus.Counter
	SnapshotBytes   prometheus.Gauge
	SaveDuration    prometheus.Histogram
	LoadDuration    prometheus.Histogram
	RegistryLookups *prometheus.CounterVec
}

// NewRegistry creates a registry with all metasnap metrics plus the Go and
// process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		SnapshotsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "saved_total",
			Help:      "Number of snapshot files written",
		}),
		SnapshotLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "loads_total",
			Help:      "Snapshot load attempts by result",
		}, []string{"result"}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "records_written_total",
			Help:      "Metadata records written to snapshots",
		}),
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "records_read_total",
			Help:      "Metadata records read from snapshots",
		}),
		SnapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "last_size_bytes",
			Help:      "Size of the most recently written or read snapshot",
		}),
		SaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "save_duration_seconds",
			Help:      "Time spent writing a snapshot",
			Buckets:   prometheus.DefBuckets,
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "load_duration_seconds",
			Help:      "Time spent reading a snapshot",
			Buckets:   prometheus.DefBuckets,
		}),
		RegistryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "lookups_total",
			Help:      "Archive registry lookups by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.SnapshotsSaved,
		r.SnapshotLoads,
		r.RecordsWritten,
		r.RecordsRead,
		r.SnapshotBytes,
		r.SaveDuration,
		r.LoadDuration,
		r.RegistryLookups,
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Gatherer exposes the underlying Prometheus registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Registerer exposes the underlying registry for collectors owned by other
// packages, such as storage engine gauges.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// WriteTextfile writes the current metric values in the text exposition
// format, for the node-exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// ObserveSave records a completed snapshot write.
func (r *Registry) ObserveSave(records int, size int64, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.SnapshotsSaved.Inc()
	r.RecordsWritten.Add(float64(records))
	r.SnapshotBytes.Set(float64(size))
	r.SaveDuration.Observe(elapsed.Seconds())
}

// ObserveLoad records a snapshot load attempt.
func (r *Registry) ObserveLoad(result string, records int, size int64, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.SnapshotLoads.WithLabelValues(result).Inc()
	if result == LoadHit {
		r.RecordsRead.Add(float64(records))
		r.SnapshotBytes.Set(float64(size))
	}
	r.LoadDuration.Observe(elapsed.Seconds())
}

// ObserveLookup records an archive registry lookup.
func (r *Registry) ObserveLookup(result string) {
	if r == nil {
		return
	}
	r.RegistryLookups.WithLabelValues(result).Inc()
}
