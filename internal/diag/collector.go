package diag

import "fmt"

type dedupKey struct {
	severity Severity
	code     Code
	path     string
	message  string
}

// Collector accumulates diagnostics from any number of checks and freezes
// them into a Result. Insertion order is preserved and exact duplicates are
// dropped. A Collector is not safe for concurrent use.
type Collector struct {
	items []Diagnostic
	seen  map[dedupKey]struct{}
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[dedupKey]struct{})}
}

// Add records a diagnostic unless an identical one was already recorded.
func (c *Collector) Add(d Diagnostic) {
	if c.seen == nil {
		c.seen = make(map[dedupKey]struct{})
	}
	key := dedupKey{severity: d.Severity, code: d.Code, path: d.Path, message: d.Message}
	if _, dup := c.seen[key]; dup {
		return
	}
	c.seen[key] = struct{}{}
	c.items = append(c.items, d)
}

// Errorf records an error.
func (c *Collector) Errorf(code Code, path, format string, args ...any) {
	c.Add(Diagnostic{Code: code, Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a warning.
func (c *Collector) Warnf(code Code, path, format string, args ...any) {
	c.Add(Diagnostic{Code: code, Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Merge folds a sub-validator's result in, re-rooting every diagnostic
// under path.
func (c *Collector) Merge(path string, r Result) {
	for _, d := range r.Errors {
		d.Path = JoinPath(path, d.Path)
		c.Add(d)
	}
	for _, d := range r.Warnings {
		d.Path = JoinPath(path, d.Path)
		c.Add(d)
	}
}

// HasErrors reports whether an error-severity diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	for _, d := range c.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasErrorAt reports whether an error was recorded at path or below it.
func (c *Collector) HasErrorAt(path string) bool {
	for _, d := range c.items {
		if d.Severity != SeverityError {
			continue
		}
		if d.Path == path || (len(path) > 0 && len(d.Path) > len(path) && d.Path[:len(path)] == path && d.Path[len(path)] == '/') {
			return true
		}
	}
	return false
}

// Result freezes the collected diagnostics. In strict mode warnings are
// promoted to errors and appended after the original errors.
func (c *Collector) Result(strict bool) Result {
	res := Result{Errors: []Diagnostic{}, Warnings: []Diagnostic{}}
	for _, d := range c.items {
		if d.Severity == SeverityError {
			res.Errors = append(res.Errors, d)
		} else {
			res.Warnings = append(res.Warnings, d)
		}
	}
	if strict && len(res.Warnings) > 0 {
		res = Promote(res)
	}
	res.Valid = len(res.Errors) == 0
	return res
}

// Promote returns a copy of r with every warning turned into an error.
func Promote(r Result) Result {
	out := Result{
		Errors:   make([]Diagnostic, 0, len(r.Errors)+len(r.Warnings)),
		Warnings: []Diagnostic{},
	}
	out.Errors = append(out.Errors, r.Errors...)
	for _, w := range r.Warnings {
		w.Severity = SeverityError
		w.Promoted = true
		out.Errors = append(out.Errors, w)
	}
	out.Valid = len(out.Errors) == 0
	return out
}
