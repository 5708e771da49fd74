package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/jsonagents/jsonagents/internal/config"
	"github.com/jsonagents/jsonagents/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	profilesJSON  bool
	profilesRules string
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List conformance profiles and their fields",
	Long: `Print the effective profile rule table: for each profile, the fields it
requires, recommends and allows, with their expected types.`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

func init() {
	profilesCmd.Flags().BoolVar(&profilesJSON, "json", false, "Output the rule table as JSON")
	profilesCmd.Flags().StringVar(&profilesRules, "rules", "", "Path to a custom profile rule table (YAML)")
	rootCmd.AddCommand(profilesCmd)
}

func loadRules() (*manifest.Rules, error) {
	path := profilesRules
	if path == "" {
		path = config.Current().Rules
	}
	if path == "" {
		return manifest.DefaultRules()
	}
	return manifest.LoadRules(path)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	rules, err := loadRules()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if profilesJSON {
		data, err := json.MarshalIndent(rules, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling rules: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PROFILE\tLEVEL\tFIELD\tTYPE")
	for _, name := range rules.Names() {
		p := rules.Profiles[name]
		for _, level := range []struct {
			name   string
			fields map[string]manifest.Shape
		}{
			{"required", p.Required},
			{"recommended", p.Recommended},
			{"optional", p.Optional},
		} {
			for _, field := range slices.Sorted(maps.Keys(level.fields)) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, level.name, field, level.fields[field])
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	for _, name := range rules.Names() {
		if d := rules.Profiles[name].Description; d != "" {
			fmt.Fprintf(out, "%-6s %s\n", name, d)
		}
	}
	return nil
}
