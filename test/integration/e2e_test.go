//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/jsonagents/jsonagents/internal/batch"
	"github.com/jsonagents/jsonagents/internal/diag"
	"github.com/jsonagents/jsonagents/internal/manifest"
	"github.com/jsonagents/jsonagents/internal/report"
	"github.com/jsonagents/jsonagents/internal/uri"
	"go.uber.org/zap/zaptest"
)

// TestFullFlowValidateTree tests the complete flow:
// expand a directory tree -> validate concurrently -> render JSON report -> verify outcomes.
func TestFullFlowValidateTree(t *testing.T) {
	env := setupTestEnv(t)
	wantInvalid := setupTree(t, env.TreeDir)

	// Step 1: Expand the tree.
	paths, err := batch.Expand([]string{env.TreeDir}, true)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(paths) != 7 {
		t.Fatalf("expected 7 manifests, got %d: %v", len(paths), paths)
	}

	// Step 2: Validate with a small worker pool.
	v, err := manifest.New()
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}
	results, err := batch.NewRunner(v, 3, zaptest.NewLogger(t)).Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Step 3: Results follow input order and match expectations.
	var gotInvalid []string
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d is for %s, want %s", i, r.Path, paths[i])
		}
		if !r.OK() {
			rel, _ := filepath.Rel(env.TreeDir, r.Path)
			gotInvalid = append(gotInvalid, filepath.ToSlash(rel))
		}
	}
	slices.Sort(gotInvalid)
	if !slices.Equal(gotInvalid, wantInvalid) {
		t.Errorf("invalid manifests = %v, want %v", gotInvalid, wantInvalid)
	}

	// Step 4: The JSON report carries one record per file.
	var buf bytes.Buffer
	if err := report.NewFormatter(report.FormatJSON, false).FormatTo(&buf, results); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	var records []report.FileReport
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if len(records) != len(paths) {
		t.Fatalf("report has %d records, want %d", len(records), len(paths))
	}
	for _, rec := range records {
		switch filepath.Base(rec.File) {
		case "bad-policy.json":
			assertHasCode(t, rec, diag.LexError)
		case "bad-graph.json":
			assertHasCode(t, rec, diag.ReferenceError)
		case "truncated.yaml":
			assertHasCode(t, rec, diag.MalformedInputError)
		}
	}
}

// TestFullFlowStrictPromotesWarnings checks that the same tree fails more
// files under strict mode: every core manifest missing a recommended field
// becomes invalid.
func TestFullFlowStrictPromotesWarnings(t *testing.T) {
	env := setupTestEnv(t)
	setupTree(t, env.TreeDir)
	writeManifest(t, env.TreeDir, "core/minimal.json", `{"agent": {"id": "ajson://example.com/agents/min"}, "capabilities": [{"id": "x"}]}`)
	path := filepath.Join(env.TreeDir, "core", "minimal.json")

	lenient, err := manifest.New()
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}
	strict, err := manifest.New(manifest.WithStrict(true))
	if err != nil {
		t.Fatalf("manifest.New(strict): %v", err)
	}

	res, err := lenient.ValidateFile(path)
	if err != nil || !res.Valid {
		t.Fatalf("lenient: valid=%v err=%v errors=%v", res.Valid, err, res.Errors)
	}
	res, err = strict.ValidateFile(path)
	if err != nil {
		t.Fatalf("strict: %v", err)
	}
	if res.Valid || len(res.Warnings) != 0 {
		t.Errorf("strict: expected invalid with no warnings, got valid=%v warnings=%v", res.Valid, res.Warnings)
	}
	for _, d := range res.Errors {
		if !d.Promoted {
			t.Errorf("strict: unexpected non-promoted error %s", d)
		}
	}
}

// TestFullFlowAgentIDsResolve checks that every valid manifest's agent.id maps
// to a well-known HTTPS location on its own host.
func TestFullFlowAgentIDsResolve(t *testing.T) {
	env := setupTestEnv(t)
	setupTree(t, env.TreeDir)

	paths, err := batch.Expand([]string{filepath.Join(env.TreeDir, "core"), filepath.Join(env.TreeDir, "teams")}, false)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for _, p := range paths {
		data, err := readDoc(p)
		if err != nil {
			t.Fatalf("decoding %s: %v", p, err)
		}
		id := data["agent"].(map[string]any)["id"].(string)
		https, err := uri.ResolveHTTPS(id)
		if err != nil {
			t.Errorf("ResolveHTTPS(%s): %v", id, err)
			continue
		}
		if !strings.HasPrefix(https, "https://example.com/.well-known/agents/") || !strings.HasSuffix(https, ".agents.json") {
			t.Errorf("ResolveHTTPS(%s) = %s", id, https)
		}
	}
}

func readDoc(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := manifest.Decode(data, manifest.FormatForPath(path))
	if err != nil {
		return nil, err
	}
	return doc.(map[string]any), nil
}

func assertHasCode(t *testing.T, rec report.FileReport, code diag.Code) {
	t.Helper()
	for _, d := range rec.Errors {
		if d.Code == code {
			return
		}
	}
	t.Errorf("%s: expected a %s error, got %v", rec.File, code, rec.Errors)
}
