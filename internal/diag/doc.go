// Package diag defines the diagnostic records shared by every validator and
// the collector that merges them into one ordered, deduplicated result.
// Severity is explicit on each record; strict-mode promotion of warnings to
// errors happens only when a collector is frozen into a Result.
package diag
