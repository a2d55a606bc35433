// Package command provides the metasnap command-line interface.
//
// Commands fall into two groups. Snapshot commands (inspect, verify,
// rewrite) work on snapshot files directly. Archive commands (status,
// restore, record, invalidate, registry, watch) go through the archive
// registry and open its storage engine for the duration of the command.
package command
