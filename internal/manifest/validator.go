package manifest

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/jsonagents/jsonagents/internal/diag"
	"github.com/jsonagents/jsonagents/internal/policy"
	"github.com/jsonagents/jsonagents/internal/uri"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator checks manifests against the profile rule table, the JSON
// schema, the ajson:// URI grammar and the policy expression grammar.
// A Validator is immutable after New and safe for concurrent use.
type Validator struct {
	strict    bool
	maxDepth  int
	rules     *Rules
	schema    *jsonschema.Schema
	policies  *policy.Validator
	supported *semver.Constraints
}

type options struct {
	strict     bool
	maxDepth   int
	contexts   []string
	schemaFile string
	rulesFile  string
	rules      *Rules
	supported  string
}

// Option configures a Validator.
type Option func(*options)

// WithStrict promotes every warning to an error.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithMaxDepth caps document nesting. Values below 1 select DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.maxDepth = depth }
}

// WithContexts adds policy variable namespaces to the default set.
func WithContexts(contexts ...string) Option {
	return func(o *options) { o.contexts = append(o.contexts, contexts...) }
}

// WithSchemaFile replaces the embedded JSON schema.
func WithSchemaFile(path string) Option {
	return func(o *options) { o.schemaFile = path }
}

// WithRulesFile replaces the embedded profile rule table.
func WithRulesFile(path string) Option {
	return func(o *options) { o.rulesFile = path }
}

// WithRules uses an already loaded rule table. It takes precedence over
// WithRulesFile.
func WithRules(r *Rules) Option {
	return func(o *options) { o.rules = r }
}

// WithSupportedVersions sets the semver range manifest_version must satisfy.
func WithSupportedVersions(constraint string) Option {
	return func(o *options) { o.supported = constraint }
}

// New builds a Validator. Errors come from loading an override schema or
// rule table, or from an unparsable version range.
func New(opts ...Option) (*Validator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	v := &Validator{
		strict:   o.strict,
		maxDepth: o.maxDepth,
		policies: policy.NewValidator(o.contexts...),
	}
	if v.maxDepth < 1 {
		v.maxDepth = DefaultMaxDepth
	}

	var err error
	switch {
	case o.rules != nil:
		v.rules = o.rules
	case o.rulesFile != "":
		v.rules, err = LoadRules(o.rulesFile)
	default:
		v.rules, err = DefaultRules()
	}
	if err != nil {
		return nil, err
	}

	if o.schemaFile != "" {
		v.schema, err = LoadSchema(o.schemaFile)
	} else {
		v.schema, err = getSchema()
	}
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	v.supported, err = parseConstraint(o.supported)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Rules returns the profile rule table in use.
func (v *Validator) Rules() *Rules {
	return v.rules
}

// Strict reports whether warnings are promoted.
func (v *Validator) Strict() bool {
	return v.strict
}

// Validate checks an already decoded document. Any Go value that encodes
// to JSON is accepted; values that do not encode yield a single
// MalformedInputError diagnostic.
func (v *Validator) Validate(doc any) diag.Result {
	norm, err := normalize(doc)
	if err != nil {
		c := diag.NewCollector()
		c.Errorf(diag.MalformedInputError, "", "%v", err)
		return c.Result(false)
	}
	return v.validate(norm)
}

// ValidateBytes decodes and checks raw manifest bytes. Undecodable input
// returns a *MalformedInputError and no result.
func (v *Validator) ValidateBytes(data []byte, format Format) (diag.Result, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return diag.Result{}, err
	}
	return v.validate(doc), nil
}

// ValidateFile reads a manifest file and checks it. The format follows the
// file extension.
func (v *Validator) ValidateFile(path string) (diag.Result, error) {
	data, err := readFile(path)
	if err != nil {
		return diag.Result{}, err
	}
	res, err := v.ValidateBytes(data, FormatForPath(path))
	if err != nil {
		return diag.Result{}, fmt.Errorf("validating %s: %w", path, err)
	}
	return res, nil
}

func (v *Validator) validate(doc any) diag.Result {
	c := diag.NewCollector()

	if at, deep := exceedsDepth(doc, v.maxDepth); deep {
		c.Errorf(diag.SchemaError, at, "document nesting exceeds the maximum depth of %d", v.maxDepth)
		return c.Result(v.strict)
	}

	root, ok := doc.(map[string]any)
	if !ok {
		c.Errorf(diag.SchemaError, "", "manifest must be a JSON object, got %s", jsonType(doc))
		return c.Result(v.strict)
	}

	profiles := v.resolveProfiles(root, c)
	v.checkProfileFields(root, profiles, c)
	if err := v.checkSchema(root, c); err != nil {
		c.Errorf(diag.SchemaError, "", "schema validation failed: %v", err)
	}
	v.checkIdentifiers(root, c)
	v.checkPolicies(root, c)
	checkReferences(root, c)
	v.checkVersions(root, c)
	checkCapabilities(root, c)
	v.checkUnknownFields(root, c)

	return c.Result(v.strict)
}

// resolveProfiles returns the declared profiles in order, or the default
// profile when none are declared.
func (v *Validator) resolveProfiles(root map[string]any, c *diag.Collector) []string {
	raw, ok := root["profiles"]
	if !ok {
		return []string{DefaultProfile}
	}
	list, ok := raw.([]any)
	if !ok {
		c.Errorf(diag.SchemaError, "/profiles", "profiles must be an array of profile names, got %s", jsonType(raw))
		return []string{DefaultProfile}
	}
	if len(list) == 0 {
		c.Warnf(diag.SchemaError, "/profiles", "profiles is empty; assuming '%s'", DefaultProfile)
		return []string{DefaultProfile}
	}

	names := v.rules.Names()
	var out []string
	for i, item := range list {
		ptr := diag.Pointer("profiles", i)
		name, ok := item.(string)
		if !ok {
			c.Errorf(diag.SchemaError, ptr, "profile names must be strings, got %s", jsonType(item))
			continue
		}
		if _, known := v.rules.Profiles[name]; !known {
			c.Add(diag.Diagnostic{
				Code:       diag.SchemaError,
				Severity:   diag.SeverityError,
				Path:       ptr,
				Message:    fmt.Sprintf("unknown profile '%s'. Known profiles: %s", name, strings.Join(names, ", ")),
				Suggestion: diag.DidYouMean(name, names, 2),
			})
			continue
		}
		if slices.Contains(out, name) {
			c.Warnf(diag.SchemaError, ptr, "profile '%s' is declared more than once", name)
			continue
		}
		out = append(out, name)
	}
	return out
}

type fieldLevel int

const (
	levelRequired fieldLevel = iota
	levelRecommended
	levelOptional
)

func (v *Validator) checkProfileFields(root map[string]any, profiles []string, c *diag.Collector) {
	for _, name := range profiles {
		p := v.rules.Profiles[name]
		for _, field := range sortedFields(p.Required) {
			checkField(root, name, field, p.Required[field], levelRequired, c)
		}
		for _, field := range sortedFields(p.Recommended) {
			checkField(root, name, field, p.Recommended[field], levelRecommended, c)
		}
		for _, field := range sortedFields(p.Optional) {
			checkField(root, name, field, p.Optional[field], levelOptional, c)
		}
	}
}

func checkField(root map[string]any, profile, field string, shape Shape, level fieldLevel, c *diag.Collector) {
	val, present, parentOK := lookup(root, field)
	if !parentOK {
		// The parent is absent or malformed and reported on its own.
		return
	}
	ptr := fieldPointer(field)
	if !present {
		switch level {
		case levelRequired:
			c.Errorf(diag.SchemaError, ptr, "missing required field '%s' (profile '%s')", field, profile)
		case levelRecommended:
			c.Warnf(diag.SchemaError, ptr, "missing recommended field '%s' (profile '%s')", field, profile)
		}
		return
	}
	if c.HasErrorAt(ptr) {
		return
	}
	if !shape.Matches(val) {
		c.Errorf(diag.SchemaError, ptr, "field '%s' must be %s %s, got %s", field, article(string(shape)), shape, jsonType(val))
	}
}

func article(word string) string {
	if word != "" && strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}

// checkSchema applies the JSON schema, skipping locations the profile checks
// already reported.
func (v *Validator) checkSchema(root map[string]any, c *diag.Collector) error {
	issues, err := schemaIssues(v.schema, root)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		if isOpaquePath(issue.Path) || c.HasErrorAt(issue.Path) {
			continue
		}
		c.Errorf(diag.SchemaError, issue.Path, "%s", issue.Message)
	}
	return nil
}

// isOpaquePath reports whether a pointer leads into an extension payload.
func isOpaquePath(ptr string) bool {
	parts := strings.Split(ptr, "/")
	// The last token is the location itself; only its ancestors matter.
	for _, p := range parts[:max(len(parts)-1, 0)] {
		if IsExtensionKey(p) {
			return true
		}
	}
	return false
}

// isURIForm reports whether an identifier is written as a URI rather than a
// bare local name.
func isURIForm(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, uri.Scheme+":")
}

// checkIdentifiers parses agent.id always, and tool ids and graph node refs
// when they are written as URIs.
func (v *Validator) checkIdentifiers(root map[string]any, c *diag.Collector) {
	if agent, ok := root["agent"].(map[string]any); ok {
		if id, ok := agent["id"].(string); ok {
			c.Merge("/agent/id", uri.Parse(id).Result)
		}
	}

	if tools, ok := arrayAt(root, "tools"); ok {
		for i, t := range tools {
			obj, ok := t.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := obj["id"].(string); ok && isURIForm(id) {
				c.Merge(diag.Pointer("tools", i, "id"), uri.Parse(id).Result)
			}
		}
	}

	if nodes, ok := arrayAt(root, "graph", "nodes"); ok {
		for i, n := range nodes {
			obj, ok := n.(map[string]any)
			if !ok {
				continue
			}
			if ref, ok := obj["ref"].(string); ok && isURIForm(ref) {
				c.Merge(diag.Pointer("graph", "nodes", i, "ref"), uri.Parse(ref).Result)
			}
		}
	}
}

// checkPolicies validates every policy where clause and graph edge
// condition.
func (v *Validator) checkPolicies(root map[string]any, c *diag.Collector) {
	if policies, ok := arrayAt(root, "policies"); ok {
		for i, p := range policies {
			obj, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if where, ok := obj["where"].(string); ok {
				c.Merge(diag.Pointer("policies", i, "where"), v.policies.Validate(where).Result)
			}
		}
	}

	if edges, ok := arrayAt(root, "graph", "edges"); ok {
		for i, e := range edges {
			obj, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if cond, ok := obj["condition"].(string); ok {
				c.Merge(diag.Pointer("graph", "edges", i, "condition"), v.policies.Validate(cond).Result)
			}
		}
	}
}

func checkCapabilities(root map[string]any, c *diag.Collector) {
	raw, present := root["capabilities"]
	if !present {
		c.Warnf(diag.SchemaError, "", "no capabilities declared")
		return
	}
	if caps, ok := raw.([]any); ok && len(caps) == 0 {
		c.Warnf(diag.SchemaError, "/capabilities", "no capabilities declared")
	}
}

// checkUnknownFields warns about root fields no profile knows. Extension
// keys are always accepted.
func (v *Validator) checkUnknownFields(root map[string]any, c *diag.Collector) {
	known := v.rules.TopLevelFields()
	for _, key := range slices.Sorted(maps.Keys(root)) {
		if IsExtensionKey(key) || v.rules.knowsTopLevel(key) {
			continue
		}
		c.Add(diag.Diagnostic{
			Code:       diag.SchemaError,
			Severity:   diag.SeverityWarning,
			Path:       diag.Pointer(key),
			Message:    fmt.Sprintf("unknown top-level field '%s'", key),
			Suggestion: diag.DidYouMean(key, known, 2),
		})
	}
}
