package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/jsonagents/jsonagents/internal/branding"
	"github.com/jsonagents/jsonagents/internal/config"
	"github.com/jsonagents/jsonagents/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

// ExitError reports a failure the command has already printed. Execute does
// not print it again; main uses Code as the process exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// errInvalid is returned when a checked input does not conform.
var errInvalid = &ExitError{Code: 1}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` checks agent manifests against the core, exec, gov and graph
profiles, parses ajson:// identifiers and validates policy where-clauses.

Settings are read from ` + "~/" + branding.HomeDir() + `/config.yaml and ` + branding.EnvVar("*") + ` environment
variables; command-line flags take precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		for _, b := range flagBindings {
			if err := viper.BindPFlag(b.key, b.flag); err != nil {
				return fmt.Errorf("binding flag --%s: %w", b.flag.Name, err)
			}
		}
		if err := config.Load(); err != nil {
			return err
		}
		s := config.Current()
		logging.InitializeLogger(logging.Options{
			Level: s.LogLevel,
			File:  s.LogFile,
			Name:  branding.CLIName(),
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// flagBindings ties flags to config keys. They are bound on every run so
// flags take precedence over the config file and environment.
var flagBindings []flagBinding

type flagBinding struct {
	key  string
	flag *pflag.Flag
}

func bindFlags(f *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		flagBindings = append(flagBindings, flagBinding{key: key, flag: f.Lookup(name)})
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.String("log-file", "", "Also write JSON logs to this file")
	bindFlags(f, map[string]string{
		config.KeyLogLevel: "log-level",
		config.KeyLogFile:  "log-file",
	})
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// ExitCode maps an Execute error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
