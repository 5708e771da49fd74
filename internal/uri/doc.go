// Package uri parses ajson:// agent identifiers and maps them onto the HTTPS
// location of the manifest they name. Parsing is a hand-written scan over the
// scheme, authority (userinfo, host, port), path, query and fragment; faults
// are reported as diagnostics rather than returned as errors.
package uri
