package uri

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveHTTPS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ajson://example.com/agents/router", "https://example.com/.well-known/agents/router.agents.json"},
		{"ajson://example.com/agents/router#metadata", "https://example.com/.well-known/agents/router.agents.json#metadata"},
		{"ajson://example.com/agents/router.agents.json", "https://example.com/.well-known/agents/router.agents.json"},
		{"ajson://example.com/.well-known/agents/router", "https://example.com/.well-known/agents/router.agents.json"},
		{"ajson://example.com:8443/agents/router/", "https://example.com:8443/.well-known/agents/router.agents.json"},
		{"ajson://example.com/teams/search", "https://example.com/.well-known/agents/teams/search.agents.json"},
		{"ajson://user@example.com/agents/x?v=1", "https://example.com/.well-known/agents/x.agents.json"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ResolveHTTPS(tt.in)
			if err != nil {
				t.Fatalf("ResolveHTTPS(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ResolveHTTPS(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if n := strings.Count(got, "/agents/"); n != 1 {
				t.Errorf("%q contains /agents/ %d times, want 1", got, n)
			}
		})
	}
}

func TestResolveHTTPS_Errors(t *testing.T) {
	if _, err := ResolveHTTPS("invalid-uri"); err == nil {
		t.Error("expected error for invalid URI")
	}
	if _, err := ResolveHTTPS("ajson://example.com"); !errors.Is(err, ErrNoPath) {
		t.Errorf("error = %v, want ErrNoPath", err)
	}
	if _, err := ToHTTPS(nil); err == nil {
		t.Error("expected error for nil URI")
	}
}

func TestToHTTPS_Deterministic(t *testing.T) {
	res := Parse("ajson://example.com/agents/router")
	a, _ := ToHTTPS(res.URI)
	b, _ := ToHTTPS(res.URI)
	if a != b {
		t.Errorf("ToHTTPS not deterministic: %q vs %q", a, b)
	}
}
