// Package manifest validates JSON Agents manifests. A manifest is checked
// against the field tables of the profiles it declares (rules/profiles.yaml),
// an embedded Draft 2020-12 JSON schema, the ajson:// URI grammar for agent,
// tool and graph node identifiers, and the policy expression grammar for
// where clauses and edge conditions. Findings are returned as a single
// diag.Result; only undecodable input is reported as a Go error.
package manifest
