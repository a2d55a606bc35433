// Package domain defines the core domain models for metasnap.
//
// This package contains:
//
//   - FqName: fully-qualified symbol names used as snapshot keys
//   - Record: class or package-part metadata with its string table
//   - StringTable: compact or flat interned string tables
//   - Snapshot: the keyed record collection persisted to one file
//   - DomainError: structured error codes
//
// Domain models are pure data structures with validation logic,
// independent of the snapshot file format and storage.
package domain
