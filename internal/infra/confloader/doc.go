// Package confloader loads layered configuration with koanf.
//
// Priority (highest to lowest):
//
//  1. Explicit overrides (command-line flags, via LoadMap)
//  2. Environment variables (METASNAP_ prefix)
//  3. Configuration file (YAML)
//  4. Defaults (via WithDefaults)
//
// Environment variables map to keys by lowercasing and turning a double
// underscore into a level separator, so METASNAP_STORAGE__GC_INTERVAL sets
// storage.gc_interval.
package confloader
