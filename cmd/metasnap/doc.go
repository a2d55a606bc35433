// Package main provides the entry point for metasnap.
//
// metasnap manages persistent metadata snapshots and the registry that ties
// each snapshot to the archive it was built from:
//
//   - Inspect, verify and rewrite snapshot files
//   - Check, restore, record and invalidate archive snapshots
//   - Watch archives and invalidate their snapshots on change
//
// Usage:
//
//	metasnap [global flags] command [flags] [args]
//	metasnap inspect build/cache/lib.snap
//	metasnap -o json status libs/*.jar
//	metasnap watch libs/core.jar libs/ui.jar
package main
