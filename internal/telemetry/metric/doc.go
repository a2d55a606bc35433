// Package metric provides Prometheus metrics for metasnap.
//
// Metrics include:
//
//   - Snapshot save/load counters and latency histograms
//   - Records written and read
//   - Archive registry lookups by result
//
// Metrics are exposed through Handler in Prometheus format, or written to a
// node-exporter textfile with WriteTextfile for one-shot CLI runs.
package metric
