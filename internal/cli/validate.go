package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jsonagents/jsonagents/internal/batch"
	"github.com/jsonagents/jsonagents/internal/config"
	"github.com/jsonagents/jsonagents/internal/logging"
	"github.com/jsonagents/jsonagents/internal/manifest"
	"github.com/jsonagents/jsonagents/internal/report"
	"github.com/jsonagents/jsonagents/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	validateVerbose   bool
	validateJSON      bool
	validateRecursive bool
	validateWatch     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|dir>...",
	Short: "Validate agent manifests",
	Long: `Validate JSON or YAML agent manifests against their declared profiles.

Directories expand to the *.json, *.yaml and *.yml files they contain
(with --recursive, their subdirectories too). Exits non-zero when any
manifest is invalid.

Examples:
  jsonagents validate manifest.json
  jsonagents validate agents/ --recursive --strict
  jsonagents validate manifest.yaml --json
  jsonagents validate agents/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.Bool("strict", false, "Treat warnings as errors")
	f.BoolVarP(&validateVerbose, "verbose", "v", false, "Show warnings for valid manifests too")
	f.BoolVar(&validateJSON, "json", false, "Output results as JSON")
	f.String("schema", "", "Path to a custom JSON Schema")
	f.String("rules", "", "Path to a custom profile rule table (YAML)")
	f.BoolVarP(&validateRecursive, "recursive", "r", false, "Descend into subdirectories")
	f.Int("workers", 0, "Manifests validated in parallel (0 = number of CPUs)")
	f.Int("max-depth", 0, "Maximum manifest nesting depth")
	f.String("contexts", "", "Extra policy variable namespaces, comma-separated")
	f.BoolVarP(&validateWatch, "watch", "w", false, "Re-validate whenever a manifest changes")

	bindFlags(f, map[string]string{
		config.KeyStrict:   "strict",
		config.KeySchema:   "schema",
		config.KeyRules:    "rules",
		config.KeyWorkers:  "workers",
		config.KeyMaxDepth: "max-depth",
		config.KeyContexts: "contexts",
	})
	rootCmd.AddCommand(validateCmd)
}

// newValidator builds a manifest validator from the effective settings.
func newValidator(s config.Settings) (*manifest.Validator, error) {
	opts := []manifest.Option{
		manifest.WithStrict(s.Strict),
		manifest.WithMaxDepth(s.MaxDepth),
		manifest.WithSupportedVersions(s.SupportedVersions),
	}
	if s.Schema != "" {
		opts = append(opts, manifest.WithSchemaFile(s.Schema))
	}
	if s.Rules != "" {
		opts = append(opts, manifest.WithRulesFile(s.Rules))
	}
	if len(s.Contexts) > 0 {
		opts = append(opts, manifest.WithContexts(s.Contexts...))
	}
	return manifest.New(opts...)
}

func runValidate(cmd *cobra.Command, args []string) error {
	s := config.Current()
	v, err := newValidator(s)
	if err != nil {
		return err
	}

	format := report.FormatText
	if validateJSON {
		format = report.FormatJSON
	}
	formatter := report.NewFormatter(format, validateVerbose)
	runner := batch.NewRunner(v, s.Workers, logging.L())
	out := cmd.OutOrStdout()

	ok, err := validateArgs(cmd.Context(), out, runner, formatter, args)
	if err != nil {
		return err
	}
	if validateWatch {
		return watchArgs(cmd.Context(), out, runner, formatter, args)
	}
	if !ok {
		return errInvalid
	}
	return nil
}

// validateArgs expands args, validates every manifest and writes the report.
// It reports whether all manifests are valid.
func validateArgs(ctx context.Context, w io.Writer, runner *batch.Runner, formatter report.Formatter, args []string) (bool, error) {
	paths, err := batch.Expand(args, validateRecursive)
	if err != nil {
		return false, err
	}
	if len(paths) == 0 {
		return false, fmt.Errorf("no manifest files found in %s", strings.Join(args, ", "))
	}

	results, err := runner.Run(ctx, paths)
	if err != nil {
		return false, err
	}
	if err := formatter.FormatTo(w, results); err != nil {
		return false, fmt.Errorf("writing report: %w", err)
	}
	return batch.AllOK(results), nil
}

// watchArgs re-validates on every debounced change until interrupted.
func watchArgs(ctx context.Context, w io.Writer, runner *batch.Runner, formatter report.Formatter, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := watch.New(watch.Config{Paths: args, Recursive: validateRecursive}, logging.L())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nWatching %s for changes (Ctrl+C to stop)...\n", strings.Join(args, ", "))

	return watcher.Run(ctx, func(changed []string) {
		fmt.Fprintf(w, "\nChanged: %s\n\n", strings.Join(changed, ", "))
		if _, err := validateArgs(ctx, w, runner, formatter, args); err != nil && ctx.Err() == nil {
			logging.L().Error("re-validation failed", zap.Error(err))
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	})
}
