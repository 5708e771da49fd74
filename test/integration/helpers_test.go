//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"testing"
)

// testEnv holds an isolated manifest tree.
type testEnv struct {
	HomeDir string // HOME, so no user config leaks into the run
	TreeDir string // root of the manifest tree
}

// setupTestEnv creates temp directories and points HOME at one of them.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir: t.TempDir(),
		TreeDir: t.TempDir(),
	}
	t.Setenv("HOME", env.HomeDir)
	return env
}

// setupTree writes a mixed tree of manifests under root and returns the
// relative paths of the ones expected to be invalid.
func setupTree(t *testing.T, root string) []string {
	t.Helper()

	// --- Core ---
	writeManifest(t, root, "core/echo.json", `{
  "manifest_version": "1.0",
  "profiles": ["core"],
  "agent": {"id": "ajson://example.com/agents/echo", "name": "Echo"},
  "capabilities": [{"id": "echo"}]
}`)
	writeManifest(t, root, "core/summarizer.yaml", `manifest_version: "1.0"
agent:
  id: ajson://example.com/agents/summarizer
  name: Summarizer
capabilities:
  - id: summarize
    description: Summarize text
tools:
  - id: ajson://tools.example.com/http/fetch
    name: fetch
`)

	// --- Exec + Gov ---
	writeManifest(t, root, "ops/runner.json", `{
  "manifest_version": "1.0",
  "profiles": ["core", "exec", "gov"],
  "agent": {"id": "ajson://example.com/agents/runner", "name": "Runner", "version": "2.1.0"},
  "capabilities": [{"id": "run"}],
  "runtime": {"type": "container", "entrypoint": "/bin/run"},
  "security": {"sandbox": "gvisor"},
  "policies": [
    {"id": "no-external", "effect": "deny", "action": "tool.call", "where": "tool.type == 'http' && not (tool.host ends_with '.internal')"},
    {"id": "small-only", "effect": "allow", "action": "message.send", "where": "message.size < 1024"}
  ]
}`)

	// --- Graph ---
	writeManifest(t, root, "teams/router.json", `{
  "manifest_version": "1.0",
  "profiles": ["core", "graph"],
  "agent": {"id": "ajson://example.com/teams/router", "name": "Router"},
  "capabilities": [{"id": "route"}],
  "graph": {
    "nodes": [
      {"id": "triage", "ref": "ajson://example.com/agents/triage"},
      {"id": "answer", "ref": "ajson://example.com/agents/answer"}
    ],
    "edges": [{"from": "triage", "to": "answer", "condition": "message.intent in ['faq', 'help']"}]
  }
}`)

	// --- Invalid ---
	writeManifest(t, root, "broken/bad-policy.json", `{
  "profiles": ["core", "gov"],
  "agent": {"id": "ajson://example.com/agents/bad"},
  "capabilities": [{"id": "x"}],
  "policies": [{"id": "p", "effect": "deny", "where": "tool.type === 'http'"}]
}`)
	writeManifest(t, root, "broken/bad-graph.json", `{
  "profiles": ["core", "graph"],
  "agent": {"id": "ajson://example.com/agents/graph"},
  "capabilities": [{"id": "x"}],
  "graph": {"nodes": [{"id": "a"}], "edges": [{"from": "a", "to": "missing"}]}
}`)
	writeManifest(t, root, "broken/truncated.yaml", "agent:\n  id: [unclosed\n")

	// Ignored by directory expansion.
	writeManifest(t, root, "core/README.md", "# not a manifest")
	writeManifest(t, root, ".cache/stale.json", "{")

	return []string{
		"broken/bad-graph.json",
		"broken/bad-policy.json",
		"broken/truncated.yaml",
	}
}

// writeManifest writes content to root/rel, creating parent directories.
func writeManifest(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
