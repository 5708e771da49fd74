package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/jsonagents/jsonagents/internal/report"
	"github.com/jsonagents/jsonagents/internal/uri"
	"github.com/spf13/cobra"
)

var checkURIJSON bool

var checkURICmd = &cobra.Command{
	Use:   "check-uri <uri>",
	Short: "Validate an ajson:// URI",
	Long: `Parse an ajson:// URI, print its components and the HTTPS location of the
manifest it names.

Example:
  jsonagents check-uri ajson://example.com/agents/hello`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckURI,
}

func init() {
	checkURICmd.Flags().BoolVar(&checkURIJSON, "json", false, "Output the parse result as JSON")
	rootCmd.AddCommand(checkURICmd)
}

// uriReport is the JSON form of check-uri output.
type uriReport struct {
	uri.Result
	HTTPS string `json:"https,omitempty"`
}

func runCheckURI(cmd *cobra.Command, args []string) error {
	res := uri.Parse(args[0])
	rep := uriReport{Result: res}
	var httpsErr error
	if res.Valid {
		rep.HTTPS, httpsErr = uri.ToHTTPS(res.URI)
	}

	out := cmd.OutOrStdout()
	if checkURIJSON {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling URI result: %w", err)
		}
		if _, err := fmt.Fprintln(out, string(data)); err != nil {
			return err
		}
	} else if err := printURI(out, rep, httpsErr); err != nil {
		return err
	}

	if !res.Valid {
		return errInvalid
	}
	return nil
}

func printURI(out io.Writer, rep uriReport, httpsErr error) error {
	if !rep.Valid {
		fmt.Fprintf(out, "[FAIL] Invalid URI: %s\n", rep.Input)
		return report.WriteDiagnostics(out, rep.Result.Result)
	}

	fmt.Fprintf(out, "[ OK ] Valid URI: %s\n\nParsed Components:\n", rep.Input)
	u := rep.URI
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, row := range [][2]string{
		{"scheme", u.Scheme},
		{"userinfo", u.Userinfo},
		{"host", u.Host},
		{"port", portString(u.Port)},
		{"path", u.Path},
		{"query", u.Query},
		{"fragment", u.Fragment},
	} {
		if row[1] != "" {
			fmt.Fprintf(w, "  %s:\t%s\n", row[0], row[1])
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if httpsErr != nil {
		fmt.Fprintf(out, "\nCould not transform to HTTPS: %v\n", httpsErr)
	} else {
		fmt.Fprintf(out, "\nHTTPS URL: %s\n", rep.HTTPS)
	}
	return report.WriteDiagnostics(out, rep.Result.Result)
}

func portString(port int) string {
	if port == 0 {
		return ""
	}
	return strconv.Itoa(port)
}
