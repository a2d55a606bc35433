// Package watch reports changes to dependency archives.
//
// Directories are watched rather than files, so editors and build tools that
// replace an archive by rename are still observed.
package watch
