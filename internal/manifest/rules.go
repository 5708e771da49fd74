package manifest

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/jsonagents/jsonagents/internal/diag"
	"go.yaml.in/yaml/v3"
)

//go:embed rules/profiles.yaml
var rulesBytes []byte

// DefaultProfile is the profile assumed when a manifest declares none.
const DefaultProfile = "core"

// Shape is the JSON type a field must have.
type Shape string

const (
	ShapeObject  Shape = "object"
	ShapeArray   Shape = "array"
	ShapeString  Shape = "string"
	ShapeNumber  Shape = "number"
	ShapeBoolean Shape = "boolean"
)

func (s Shape) valid() bool {
	switch s {
	case ShapeObject, ShapeArray, ShapeString, ShapeNumber, ShapeBoolean:
		return true
	}
	return false
}

// Matches reports whether v, a normalized JSON value, has shape s.
func (s Shape) Matches(v any) bool {
	switch s {
	case ShapeObject:
		_, ok := v.(map[string]any)
		return ok
	case ShapeArray:
		_, ok := v.([]any)
		return ok
	case ShapeString:
		_, ok := v.(string)
		return ok
	case ShapeBoolean:
		_, ok := v.(bool)
		return ok
	case ShapeNumber:
		return isNumber(v)
	}
	return false
}

// Profile is the field table of one named profile.
type Profile struct {
	Description string           `yaml:"description" json:"description,omitempty"`
	Required    map[string]Shape `yaml:"required" json:"required,omitempty"`
	Recommended map[string]Shape `yaml:"recommended" json:"recommended,omitempty"`
	Optional    map[string]Shape `yaml:"optional" json:"optional,omitempty"`
}

// Rules maps profile names to their field tables. Rules are read-only after
// loading and may be shared between validators.
type Rules struct {
	Profiles map[string]Profile `yaml:"profiles" json:"profiles"`

	topLevel []string
}

// Names returns the profile names in sorted order.
func (r *Rules) Names() []string {
	return slices.Sorted(maps.Keys(r.Profiles))
}

// TopLevelFields returns every root field any profile knows about.
func (r *Rules) TopLevelFields() []string {
	return slices.Clone(r.topLevel)
}

func (r *Rules) knowsTopLevel(field string) bool {
	_, ok := slices.BinarySearch(r.topLevel, field)
	return ok
}

var (
	defaultRules     *Rules
	defaultRulesOnce sync.Once
	defaultRulesErr  error
)

// DefaultRules decodes the embedded profile table once and returns it.
func DefaultRules() (*Rules, error) {
	defaultRulesOnce.Do(func() {
		defaultRules, defaultRulesErr = ParseRules(rulesBytes)
		if defaultRulesErr != nil {
			defaultRulesErr = fmt.Errorf("loading embedded profile rules: %w", defaultRulesErr)
		}
	})
	return defaultRules, defaultRulesErr
}

// LoadRules reads a profile table from a YAML or JSON file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file %s: %w", path, err)
	}
	r, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	return r, nil
}

// ParseRules decodes and checks a profile table.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling rules: %w", err)
	}
	if len(r.Profiles) == 0 {
		return nil, fmt.Errorf("rules define no profiles")
	}
	if _, ok := r.Profiles[DefaultProfile]; !ok {
		return nil, fmt.Errorf("rules must define the %q profile", DefaultProfile)
	}

	top := make(map[string]struct{})
	for name, p := range r.Profiles {
		for _, table := range []map[string]Shape{p.Required, p.Recommended, p.Optional} {
			for field, shape := range table {
				if !shape.valid() {
					return nil, fmt.Errorf("profile %s: field %s: unknown shape %q", name, field, shape)
				}
				if field == "" || strings.HasPrefix(field, ".") || strings.HasSuffix(field, ".") {
					return nil, fmt.Errorf("profile %s: invalid field name %q", name, field)
				}
				root, _, _ := strings.Cut(field, ".")
				top[root] = struct{}{}
			}
		}
	}
	r.topLevel = slices.Sorted(maps.Keys(top))
	return &r, nil
}

// sortedFields returns the fields of a table in lexical order, which puts
// every parent ahead of its children.
func sortedFields(table map[string]Shape) []string {
	return slices.Sorted(maps.Keys(table))
}

// lookup resolves a dotted field path in a normalized document. parentOK is
// false when some ancestor is absent or not an object.
func lookup(doc map[string]any, field string) (value any, present, parentOK bool) {
	cur := doc
	parts := strings.Split(field, ".")
	for i, part := range parts {
		v, ok := cur[part]
		if i == len(parts)-1 {
			return v, ok, true
		}
		next, isObj := v.(map[string]any)
		if !ok || !isObj {
			return nil, false, false
		}
		cur = next
	}
	return nil, false, false
}

// fieldPointer turns a dotted field path into a JSON pointer.
func fieldPointer(field string) string {
	parts := strings.Split(field, ".")
	tokens := make([]any, len(parts))
	for i, p := range parts {
		tokens[i] = p
	}
	return diag.Pointer(tokens...)
}
