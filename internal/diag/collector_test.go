package diag

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCollector_OrderAndDedup(t *testing.T) {
	c := NewCollector()
	c.Errorf(SchemaError, "/agent", "agent must be an object")
	c.Warnf(SchemaError, "", "no capabilities declared")
	c.Errorf(SchemaError, "/agent", "agent must be an object")
	c.Errorf(ReferenceError, "/tools/1/id", "duplicate tool id %q", "echo")

	res := c.Result(false)
	if res.Valid {
		t.Fatal("expected invalid result")
	}
	want := []Diagnostic{
		{Code: SchemaError, Severity: SeverityError, Path: "/agent", Message: "agent must be an object"},
		{Code: ReferenceError, Severity: SeverityError, Path: "/tools/1/id", Message: `duplicate tool id "echo"`},
	}
	if diff := cmp.Diff(want, res.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %d, want 1", len(res.Warnings))
	}
}

func TestCollector_StrictPromotesWarnings(t *testing.T) {
	c := NewCollector()
	c.Warnf(SchemaError, "", "no capabilities declared")

	if res := c.Result(false); !res.Valid {
		t.Fatalf("non-strict result should be valid, errors: %v", res.Errors)
	}

	res := c.Result(true)
	if res.Valid {
		t.Fatal("strict result should be invalid")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %d, want 0 after promotion", len(res.Warnings))
	}
	if len(res.Errors) != 1 || !res.Errors[0].Promoted || res.Errors[0].Severity != SeverityError {
		t.Errorf("expected one promoted error, got %+v", res.Errors)
	}
}

func TestCollector_MergeReroots(t *testing.T) {
	sub := NewCollector()
	sub.Errorf(AuthorityError, "", "URI must include an authority")
	sub.Warnf(PathError, "", "URI has no path component")

	c := NewCollector()
	c.Merge("/agent/id", sub.Result(false))
	res := c.Result(false)

	if got := res.Errors[0].Path; got != "/agent/id" {
		t.Errorf("error path = %q, want /agent/id", got)
	}
	if got := res.Warnings[0].Path; got != "/agent/id" {
		t.Errorf("warning path = %q, want /agent/id", got)
	}
	if !c.HasErrorAt("/agent") {
		t.Error("HasErrorAt(/agent) = false, want true")
	}
	if c.HasErrorAt("/age") {
		t.Error("HasErrorAt(/age) = true, want false")
	}
}

func TestPointerEscapes(t *testing.T) {
	tests := []struct {
		tokens []any
		want   string
	}{
		{nil, ""},
		{[]any{"tools", 0, "id"}, "/tools/0/id"},
		{[]any{"a/b", "c~d"}, "/a~1b/c~0d"},
	}
	for _, tt := range tests {
		if got := Pointer(tt.tokens...); got != tt.want {
			t.Errorf("Pointer(%v) = %q, want %q", tt.tokens, got, tt.want)
		}
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct{ base, suffix, want string }{
		{"", "", ""},
		{"/a", "", "/a"},
		{"", "/b", "/b"},
		{"/a", "/b", "/a/b"},
		{"/a", "b", "/a/b"},
	}
	for _, tt := range tests {
		if got := JoinPath(tt.base, tt.suffix); got != tt.want {
			t.Errorf("JoinPath(%q, %q) = %q, want %q", tt.base, tt.suffix, got, tt.want)
		}
	}
}

func TestDiagnostic_JSONShape(t *testing.T) {
	d := Diagnostic{Code: LexError, Severity: SeverityWarning, Message: "m"}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"code":"LexError","severity":"warning","message":"m"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
