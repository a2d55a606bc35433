// Package storage provides the archive registry and its embedded KV engines.
//
// The registry maps each dependency archive to the snapshot built from it,
// together with the archive fingerprint at build time, so an unchanged
// archive can be restored from its snapshot.
//
// Engines:
//
//   - badger: on-disk LSM store (default)
//   - sqlite: single-file SQLite database (pure Go driver)
//   - memory: in-process ordered B-tree, lost on Close
//
// The snapshot file format itself lives in the snapshot subpackage.
package storage
