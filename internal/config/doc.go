// Package config manages user-level settings stored at ~/.jsonagents/config.yaml.
// Values can also come from JSONAGENTS_* environment variables and from
// command-line flags bound by the cli package.
package config
