// Package metadata encodes and decodes the type descriptors stored in
// snapshots.
//
// A descriptor payload is protobuf wire data:
//
//	field 1: string table types   (qualified-name records)
//	field 2: descriptor message   (class or package)
//
// The payload bytes travel through the snapshot as base64 text chunks of at
// most 65535 bytes, so each chunk fits a single string field.
//
// Every name in a descriptor is an index into the record's interned strings.
package metadata
