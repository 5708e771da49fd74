// Package cli defines the Cobra command tree for the jsonagents CLI. Each file
// in this package registers one top-level command (validate, check-uri,
// check-policy, etc.) with the root command. Commands delegate to the
// manifest, uri and policy packages and only handle flags and output.
package cli
