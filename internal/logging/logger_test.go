package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestL_BeforeInitializeIsNop(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := L()
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestInitialize_LevelFiltering(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(Options{Level: "info", Name: "jsonagents"}, zapcore.AddSync(&buf))

	L().Debug("hidden")
	L().Info("shown", zap.String("path", "a.json"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "jsonagents.")
	assert.Contains(t, out, "a.json")
}

func TestInitialize_DefaultLevelIsWarn(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(Options{Level: "bogus"}, zapcore.AddSync(&buf))

	L().Info("quiet")
	L().Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestInitialize_OnlyOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var first, second bytes.Buffer
	Initialize(Options{Level: "info"}, zapcore.AddSync(&first))
	Initialize(Options{Level: "info"}, zapcore.AddSync(&second))

	L().Info("hello")
	assert.Contains(t, first.String(), "hello")
	assert.Empty(t, second.String())
}

func TestInitialize_FileSinkWritesJSON(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logFile := filepath.Join(t.TempDir(), "jsonagents.log")
	var console bytes.Buffer
	Initialize(Options{Level: "debug", File: logFile}, zapcore.AddSync(&console))

	L().Debug("validated manifest", zap.String("path", "x.json"), zap.Bool("valid", true))
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "validated manifest", entry["msg"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "x.json", entry["path"])
	assert.Equal(t, true, entry["valid"])
}
