package manifest

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/jsonagents/jsonagents/internal/diag"
)

// DefaultSupportedVersions is the manifest_version range this validator
// understands.
const DefaultSupportedVersions = "^1.0"

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(version, "v")
	return semver.NewVersion(version)
}

func parseConstraint(expr string) (*semver.Constraints, error) {
	if strings.TrimSpace(expr) == "" {
		expr = DefaultSupportedVersions
	}
	cons, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing supported version range %q: %w", expr, err)
	}
	return cons, nil
}

// checkVersions validates manifest_version against the supported range and
// agent.version as semver. Shape faults are left to the profile checks.
func (v *Validator) checkVersions(root map[string]any, c *diag.Collector) {
	if mv, ok := root["manifest_version"].(string); ok && mv != "" {
		ver, err := parseSemver(mv)
		switch {
		case err != nil:
			c.Errorf(diag.SchemaError, "/manifest_version", "manifest_version '%s' is not a valid version: %v", mv, err)
		case !v.supported.Check(ver):
			c.Warnf(diag.SchemaError, "/manifest_version", "manifest_version '%s' is outside the supported range %s", mv, v.supported)
		}
	}

	agent, ok := root["agent"].(map[string]any)
	if !ok {
		return
	}
	if av, ok := agent["version"].(string); ok && av != "" {
		if _, err := parseSemver(av); err != nil {
			c.Warnf(diag.SchemaError, "/agent/version", "agent.version '%s' is not a semantic version", av)
		}
	}
}
