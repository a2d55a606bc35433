// Package snapshot reads and writes metadata snapshot files.
//
// A snapshot is one file holding every metadata record found in a
// dependency archive, so an unchanged archive can be restored without
// re-extracting its descriptors.
//
// File format (all integers big-endian, no header, no padding):
//
//	[recordCount:int32]
//	[record]*recordCount
//
// Record format:
//
//	[name:utf][isClass:bool]
//	[packageName:utf]            (only when isClass == false)
//	[payload:stringArray]        (descriptor encoder output)
//	[strings:stringArray]        (record's interned strings)
//
// Where:
//   - utf is [length:uint16][UTF-8 bytes]
//   - bool is a single byte, 0 or 1
//   - stringArray is [count:int32][utf]*count
//
// Every record carries its own string table, so any record can be decoded
// without reading the rest of the file. Malformed or truncated input is
// reported as domain.ErrCorruptSnapshot and no partial snapshot is returned.
package snapshot
