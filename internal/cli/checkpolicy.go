package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jsonagents/jsonagents/internal/config"
	"github.com/jsonagents/jsonagents/internal/policy"
	"github.com/jsonagents/jsonagents/internal/report"
	"github.com/spf13/cobra"
)

var (
	checkPolicyJSON     bool
	checkPolicyNoTokens bool
	checkPolicyContexts string
)

var checkPolicyCmd = &cobra.Command{
	Use:   "check-policy <expression>",
	Short: "Validate a policy where-clause expression",
	Long: `Tokenize a policy where-clause, print the tokens and check its grammar:
balanced parentheses and brackets, operator placement and variable namespaces.

Example:
  jsonagents check-policy "tool.type == 'http' && tool.auth.method != 'none'"`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckPolicy,
}

func init() {
	checkPolicyCmd.Flags().BoolVar(&checkPolicyJSON, "json", false, "Output the result as JSON")
	checkPolicyCmd.Flags().BoolVar(&checkPolicyNoTokens, "no-tokens", false, "Do not print the token stream")
	checkPolicyCmd.Flags().StringVar(&checkPolicyContexts, "contexts", "", "Extra variable namespaces, comma-separated")
	rootCmd.AddCommand(checkPolicyCmd)
}

func runCheckPolicy(cmd *cobra.Command, args []string) error {
	contexts := append(config.Current().Contexts, config.SplitList(checkPolicyContexts)...)
	res := policy.NewValidator(contexts...).Validate(args[0])

	out := cmd.OutOrStdout()
	if checkPolicyJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling policy result: %w", err)
		}
		if _, err := fmt.Fprintln(out, string(data)); err != nil {
			return err
		}
	} else {
		if res.Valid {
			fmt.Fprintln(out, "[ OK ] Valid expression")
		} else {
			fmt.Fprintln(out, "[FAIL] Invalid expression")
		}
		fmt.Fprintf(out, "\n  %s\n", res.Expression)
		if !checkPolicyNoTokens && len(res.Tokens) > 0 {
			parts := make([]string, len(res.Tokens))
			for i, t := range res.Tokens {
				parts[i] = t.String()
			}
			fmt.Fprintf(out, "\nTokens:\n  %s\n", strings.Join(parts, " "))
		}
		if err := report.WriteDiagnostics(out, res.Result); err != nil {
			return err
		}
	}

	if !res.Valid {
		return errInvalid
	}
	return nil
}
