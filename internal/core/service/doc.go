// Package service provides the incremental-build facade over snapshots.
//
// Domain services orchestrate the snapshot store and the archive registry.
// They define interfaces for their storage dependencies, allowing for
// dependency injection and testability.
//
// This package contains:
//
//   - SnapshotService: restore, store, invalidate and inspect the snapshot
//     of a dependency archive
package service
