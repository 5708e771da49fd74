package diag

import (
	"fmt"
	"strings"
)

// Code identifies the kind of fault a diagnostic reports.
type Code string

// Diagnostic codes. Severity is carried separately, so the same code can be
// reported as an error in one place and as a warning in another.
const (
	LexError            Code = "LexError"
	GrammarError        Code = "GrammarError"
	UnknownContext      Code = "UnknownContext"
	SchemeError         Code = "SchemeError"
	AuthorityError      Code = "AuthorityError"
	EmptyURIError       Code = "EmptyURIError"
	PathError           Code = "PathError"
	FragmentError       Code = "FragmentError"
	SchemaError         Code = "SchemaError"
	ReferenceError      Code = "ReferenceError"
	MalformedInputError Code = "MalformedInputError"

	// ReadError marks a manifest file that could not be read. Validators
	// never produce it; batch reports use it for I/O failures.
	ReadError Code = "ReadError"
)

// Severity separates fatal findings from advisory ones.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns "error" or "warning".
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes "error" or "warning".
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "error":
		*s = SeverityError
	case "warning", "warn":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Diagnostic is a single structured finding.
type Diagnostic struct {
	Code       Code     `json:"code"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Path       string   `json:"path,omitempty"`       // JSON pointer into the document, e.g. "/tools/0/id"
	Suggestion string   `json:"suggestion,omitempty"` // Suggested fix (optional)
	Promoted   bool     `json:"promoted,omitempty"`   // Warning promoted to error by strict mode
}

// String formats the diagnostic as "path: [Code] message".
func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.Path != "" {
		sb.WriteString(d.Path)
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "[%s] %s", d.Code, d.Message)
	if d.Suggestion != "" {
		fmt.Fprintf(&sb, " (%s)", d.Suggestion)
	}
	return sb.String()
}

// Result is the outcome of one validation call. Valid is true iff Errors is
// empty. Results are values; callers treat them as read-only.
type Result struct {
	Valid    bool         `json:"valid"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
}

// HasCode reports whether any error or warning carries the given code.
func (r Result) HasCode(code Code) bool {
	for _, d := range r.Errors {
		if d.Code == code {
			return true
		}
	}
	for _, d := range r.Warnings {
		if d.Code == code {
			return true
		}
	}
	return false
}

// JoinPath appends a JSON pointer suffix to a base pointer. Either side may
// be empty.
func JoinPath(base, suffix string) string {
	switch {
	case suffix == "":
		return base
	case base == "":
		return suffix
	case strings.HasPrefix(suffix, "/"):
		return base + suffix
	default:
		return base + "/" + suffix
	}
}

// Pointer builds a JSON pointer from raw reference tokens, escaping "~" and
// "/" per RFC 6901.
func Pointer(tokens ...any) string {
	if len(tokens) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteByte('/')
		s := fmt.Sprint(tok)
		s = strings.ReplaceAll(s, "~", "~0")
		s = strings.ReplaceAll(s, "/", "~1")
		sb.WriteString(s)
	}
	return sb.String()
}
