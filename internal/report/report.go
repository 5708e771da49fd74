// Package report renders batch validation outcomes as text or JSON.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jsonagents/jsonagents/internal/batch"
	"github.com/jsonagents/jsonagents/internal/diag"
	"github.com/jsonagents/jsonagents/internal/manifest"
)

// Format is the output format for validation reports.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Formatter writes a set of file results.
type Formatter interface {
	FormatTo(w io.Writer, results []batch.FileResult) error
}

// NewFormatter returns the formatter for format. Unknown formats fall back
// to text.
func NewFormatter(format Format, verbose bool) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{Indent: true}
	}
	return &TextFormatter{Verbose: verbose}
}

// FileReport is the machine-readable record for one file.
type FileReport struct {
	File     string            `json:"file"`
	Valid    bool              `json:"valid"`
	Errors   []diag.Diagnostic `json:"errors"`
	Warnings []diag.Diagnostic `json:"warnings"`
}

// ToFileReport converts a batch result. A decode failure becomes a single
// MalformedInputError diagnostic; any other failure, such as an unreadable
// file, a single ReadError.
func ToFileReport(r batch.FileResult) FileReport {
	fr := FileReport{
		File:     r.Path,
		Valid:    r.OK(),
		Errors:   r.Result.Errors,
		Warnings: r.Result.Warnings,
	}
	if r.Err != nil {
		fr.Errors = []diag.Diagnostic{failureDiagnostic(r.Err)}
		fr.Warnings = nil
	}
	if fr.Errors == nil {
		fr.Errors = []diag.Diagnostic{}
	}
	if fr.Warnings == nil {
		fr.Warnings = []diag.Diagnostic{}
	}
	return fr
}

func failureDiagnostic(err error) diag.Diagnostic {
	var malformed *manifest.MalformedInputError
	if errors.As(err, &malformed) {
		return diag.Diagnostic{Code: diag.MalformedInputError, Severity: diag.SeverityError, Message: err.Error()}
	}
	return diag.Diagnostic{Code: diag.ReadError, Severity: diag.SeverityError, Message: "could not read manifest: " + err.Error()}
}

// JSONFormatter emits [{file, valid, errors, warnings}].
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes results to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, results []batch.FileResult) error {
	out := make([]FileReport, len(results))
	for i, r := range results {
		out[i] = ToFileReport(r)
	}
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(out)
}

// TextFormatter prints one block per file and a summary. Warnings of valid
// files are only shown in verbose mode.
type TextFormatter struct {
	Verbose bool
}

// Summary counts outcomes across a batch.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Errors   int
	Warnings int
}

// Summarize counts results.
func Summarize(results []batch.FileResult) Summary {
	var s Summary
	for _, r := range results {
		fr := ToFileReport(r)
		s.Total++
		if fr.Valid {
			s.Passed++
		} else {
			s.Failed++
		}
		s.Errors += len(fr.Errors)
		s.Warnings += len(fr.Warnings)
	}
	return s
}

// FormatTo writes results to w in text format.
func (f *TextFormatter) FormatTo(w io.Writer, results []batch.FileResult) error {
	ew := &errWriter{w: w}
	for _, r := range results {
		fr := ToFileReport(r)
		status := "VALID"
		if !fr.Valid {
			status = "INVALID"
		}
		ew.printf("%s - %s\n", fr.File, status)

		if len(fr.Errors) > 0 {
			ew.printf("  Errors:\n")
			for _, d := range fr.Errors {
				ew.printf("    • %s\n", d)
			}
		}
		if len(fr.Warnings) > 0 && (f.Verbose || !fr.Valid) {
			ew.printf("  Warnings:\n")
			for _, d := range fr.Warnings {
				ew.printf("    • %s\n", d)
			}
		}
	}

	s := Summarize(results)
	ew.printf("\n%d file(s): %d passed, %d failed (%d errors, %d warnings)\n", s.Total, s.Passed, s.Failed, s.Errors, s.Warnings)
	if s.Failed == 0 {
		ew.printf("All manifests are valid.\n")
	} else {
		ew.printf("%d manifest(s) failed validation.\n", s.Failed)
	}
	return ew.err
}

// WriteDiagnostics prints errors then warnings under headings, for the
// single-value commands.
func WriteDiagnostics(w io.Writer, r diag.Result) error {
	ew := &errWriter{w: w}
	if len(r.Errors) > 0 {
		ew.printf("\nErrors:\n")
		for _, d := range r.Errors {
			ew.printf("  • %s\n", d)
		}
	}
	if len(r.Warnings) > 0 {
		ew.printf("\nWarnings:\n")
		for _, d := range r.Warnings {
			ew.printf("  • %s\n", d)
		}
	}
	return ew.err
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
