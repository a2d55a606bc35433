// Package logger provides structured logging for metasnap.
//
//   - logger.go: slog-based logger configuration and initialization
//   - context.go: context-aware logger propagation
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering with runtime adjustment
//   - Optional log file with size-based rotation
package logger
