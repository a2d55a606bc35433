// Package output renders command results as table, JSON or YAML.
//
// Table output uses struct tags: the json tag names a column, and a table
// tag of "-" hides the field while "wide" shows it only in wide mode.
package output
