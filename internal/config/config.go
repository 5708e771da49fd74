package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/jsonagents/jsonagents/internal/branding"
	"github.com/jsonagents/jsonagents/internal/diag"
	"github.com/jsonagents/jsonagents/internal/logging"
	"github.com/jsonagents/jsonagents/internal/manifest"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Recognized keys. Nested keys use dots in the file and underscores in the
// environment (log.level → JSONAGENTS_LOG_LEVEL).
const (
	KeyStrict            = "strict"
	KeyWorkers           = "workers"
	KeyMaxDepth          = "max_depth"
	KeySchema            = "schema"
	KeyRules             = "rules"
	KeyContexts          = "contexts"
	KeySupportedVersions = "supported_versions"
	KeyLogLevel          = "log.level"
	KeyLogFile           = "log.file"
)

// Keys lists every recognized key in sorted order.
func Keys() []string {
	keys := []string{
		KeyStrict, KeyWorkers, KeyMaxDepth, KeySchema, KeyRules,
		KeyContexts, KeySupportedVersions, KeyLogLevel, KeyLogFile,
	}
	slices.Sort(keys)
	return keys
}

// EnvName returns the environment variable that overrides key, e.g.
// EnvName("log.level") → "JSONAGENTS_LOG_LEVEL".
func EnvName(key string) string {
	return branding.EnvVar(envKeyReplacer.Replace(key))
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// Settings is the effective configuration after file, environment and
// bound flags have been merged.
type Settings struct {
	Strict            bool
	Workers           int
	MaxDepth          int
	Schema            string
	Rules             string
	Contexts          []string
	SupportedVersions string
	LogLevel          string
	LogFile           string
}

// Dir returns the path to the config directory (~/.jsonagents/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.jsonagents/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
// A missing config file is not an error; an unreadable or malformed one is.
func Load() error {
	viper.SetDefault(KeyStrict, false)
	viper.SetDefault(KeyWorkers, 0)
	viper.SetDefault(KeyMaxDepth, manifest.DefaultMaxDepth)
	viper.SetDefault(KeySupportedVersions, manifest.DefaultSupportedVersions)
	viper.SetDefault(KeyLogLevel, logging.DefaultLevel)

	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading config file %s: %w", FilePath(), err)
	}
	return nil
}

// Current returns the merged settings.
func Current() Settings {
	return Settings{
		Strict:            viper.GetBool(KeyStrict),
		Workers:           viper.GetInt(KeyWorkers),
		MaxDepth:          viper.GetInt(KeyMaxDepth),
		Schema:            viper.GetString(KeySchema),
		Rules:             viper.GetString(KeyRules),
		Contexts:          SplitList(viper.GetString(KeyContexts)),
		SupportedVersions: viper.GetString(KeySupportedVersions),
		LogLevel:          viper.GetString(KeyLogLevel),
		LogFile:           viper.GetString(KeyLogFile),
	}
}

// SplitList splits a comma- or space-separated list, dropping empties.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set validates and writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := checkValue(key, value); err != nil {
		return err
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func checkValue(key, value string) error {
	if !slices.Contains(Keys(), key) {
		msg := fmt.Sprintf("unknown config key %q", key)
		if hint := diag.DidYouMean(key, Keys(), 3); hint != "" {
			msg += " (" + hint + ")"
		}
		return errors.New(msg)
	}
	switch key {
	case KeyStrict:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s must be true or false, got %q", key, value)
		}
	case KeyWorkers, KeyMaxDepth:
		if n, err := strconv.Atoi(value); err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
		}
	case KeyLogLevel:
		if !slices.Contains([]string{"debug", "info", "warn", "error"}, value) {
			return fmt.Errorf("%s must be one of debug, info, warn, error; got %q", key, value)
		}
	}
	return nil
}
