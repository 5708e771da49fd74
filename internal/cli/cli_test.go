package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testdata = "../manifest/testdata"

func TestMain(m *testing.M) {
	home, err := os.MkdirTemp("", "jsonagents-cli-home")
	if err != nil {
		panic(err)
	}
	os.Setenv("HOME", home)
	code := m.Run()
	os.RemoveAll(home)
	os.Exit(code)
}

// execute runs the root command with fresh config state and every flag back
// at its default.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeManifest(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// warningsOnly passes by default and fails under --strict: the recommended
// fields are missing.
const warningsOnly = `{"agent": {"id": "ajson://example.com/agents/a"}, "capabilities": [{"id": "x"}]}`

func TestValidate_ValidManifest(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join(testdata, "valid-core.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "valid-core.json - VALID")
	assert.Contains(t, out, "All manifests are valid.")
}

func TestValidate_InvalidManifestExitsOne(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join(testdata, "invalid-policy.json"))
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, out, "INVALID")
	assert.Contains(t, out, "1 manifest(s) failed validation.")
}

func TestValidate_JSONOutput(t *testing.T) {
	out, err := execute(t, "validate", "--json",
		filepath.Join(testdata, "valid-core.json"),
		filepath.Join(testdata, "invalid-not-json.json"),
	)
	require.Error(t, err)

	var got []struct {
		File   string `json:"file"`
		Valid  bool   `json:"valid"`
		Errors []struct {
			Code string `json:"code"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.True(t, got[0].Valid)
	assert.False(t, got[1].Valid)
	require.NotEmpty(t, got[1].Errors)
	assert.Equal(t, "MalformedInputError", got[1].Errors[0].Code)
}

func TestValidate_MissingFileIsReadError(t *testing.T) {
	out, err := execute(t, "validate", "--json", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, 1, ExitCode(err))

	var got []struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	require.Len(t, got[0].Errors, 1)
	assert.Equal(t, "ReadError", got[0].Errors[0].Code)
	assert.NotContains(t, got[0].Errors[0].Message, "malformed")
}

func TestValidate_Strict(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "agent.json", warningsOnly)

	_, err := execute(t, "validate", path)
	require.NoError(t, err)

	out, err := execute(t, "validate", "--strict", path)
	require.Error(t, err)
	assert.Contains(t, out, "INVALID")
}

func TestValidate_StrictFromEnvironment(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "agent.json", warningsOnly)
	t.Setenv("JSONAGENTS_STRICT", "true")

	_, err := execute(t, "validate", path)
	assert.Equal(t, 1, ExitCode(err))
}

func TestValidate_Directory(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "a.json", warningsOnly)
	writeManifest(t, dir, "b.yaml", "agent:\n  id: ajson://example.com/agents/b\ncapabilities:\n  - id: y\n")
	writeManifest(t, dir, "readme.txt", "not a manifest")

	out, err := execute(t, "validate", "--workers", "2", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 file(s): 2 passed, 0 failed")
}

func TestValidate_NoManifestsFound(t *testing.T) {
	_, err := execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no manifest files found")
	assert.Equal(t, 1, ExitCode(err))
}

func TestValidate_BadRulesFile(t *testing.T) {
	_, err := execute(t, "validate", "--rules", filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(testdata, "valid-core.json"))
	require.Error(t, err)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "load failures are reported as plain errors")
}

func TestCheckURI(t *testing.T) {
	out, err := execute(t, "check-uri", "ajson://example.com:8443/agents/hello#v2")
	require.NoError(t, err)
	assert.Contains(t, out, "[ OK ] Valid URI")
	assert.Contains(t, out, "host:")
	assert.Contains(t, out, "8443")
	assert.Contains(t, out, "HTTPS URL: https://example.com:8443/.well-known/agents/hello.agents.json#v2")
}

func TestCheckURI_Invalid(t *testing.T) {
	out, err := execute(t, "check-uri", "http://example.com/agents/hello")
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, out, "[FAIL] Invalid URI")
	assert.Contains(t, out, "[SchemeError]")
}

func TestCheckURI_JSON(t *testing.T) {
	out, err := execute(t, "check-uri", "--json", "ajson://example.com/teams/search")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["valid"])
	assert.Equal(t, "https://example.com/.well-known/agents/teams/search.agents.json", got["https"])
	parsed := got["parsed"].(map[string]any)
	assert.Equal(t, "example.com", parsed["host"])
}

func TestCheckPolicy(t *testing.T) {
	out, err := execute(t, "check-policy", "tool.type == 'http' && tool.auth.method != 'none'")
	require.NoError(t, err)
	assert.Contains(t, out, "[ OK ] Valid expression")
	assert.Contains(t, out, "Tokens:")
	assert.Contains(t, out, "Variable(tool.type)@0")
	assert.Contains(t, out, "Comparison(==)@10")

	out, err = execute(t, "check-policy", "--no-tokens", "tool.type == 'http'")
	require.NoError(t, err)
	assert.NotContains(t, out, "Tokens:")
}

func TestCheckPolicy_Invalid(t *testing.T) {
	out, err := execute(t, "check-policy", "tool.type === 'http'")
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, out, "[FAIL] Invalid expression")
	assert.Contains(t, out, "===")
}

func TestCheckPolicy_Contexts(t *testing.T) {
	out, err := execute(t, "check-policy", "team.name == 'core'")
	require.NoError(t, err)
	assert.Contains(t, out, "[UnknownContext]")

	out, err = execute(t, "check-policy", "--contexts", "team", "team.name == 'core'")
	require.NoError(t, err)
	assert.NotContains(t, out, "[UnknownContext]")
}

func TestProfiles(t *testing.T) {
	out, err := execute(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "PROFILE")
	assert.Regexp(t, `core\s+required\s+agent\.id\s+string`, out)
	assert.Regexp(t, `graph\s+required\s+graph\.nodes\s+array`, out)

	out, err = execute(t, "profiles", "--json")
	require.NoError(t, err)
	var got struct {
		Profiles map[string]any `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Profiles, 4)
}

func TestVersion(t *testing.T) {
	buildVersion, buildCommit, buildDate = "1.2.3", "abc123", "2026-01-01"

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "jsonagents version 1.2.3 (commit: abc123, built: 2026-01-01)\n", out)

	out, err = execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)
}

func TestConfigSetGet(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := execute(t, "config", "set", "workers", "3")
	require.NoError(t, err)
	assert.Equal(t, "Set workers = 3\n", out)

	out, err = execute(t, "config", "get", "workers")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	_, err = execute(t, "config", "set", "worker", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean 'workers'?")
}

func TestConfigHelpListsEnvironment(t *testing.T) {
	out, err := execute(t, "config", "--help")
	require.NoError(t, err)
	assert.Regexp(t, `log\.level\s+JSONAGENTS_LOG_LEVEL`, out)
	assert.Regexp(t, `workers\s+JSONAGENTS_WORKERS`, out)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 2, ExitCode(&ExitError{Code: 2}))
}
