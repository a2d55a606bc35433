// Package fingerprint identifies archive contents.
//
// A Fingerprint combines a streaming murmur3 128-bit hash of the file bytes
// with its size and modification time. Two fingerprints are equal only when
// hash and size match; mtime is informational.
package fingerprint
