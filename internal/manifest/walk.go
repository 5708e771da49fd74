package manifest

import (
	"maps"
	"slices"
	"strings"

	"github.com/jsonagents/jsonagents/internal/diag"
)

// DefaultMaxDepth caps container nesting. The root object is depth 1.
const DefaultMaxDepth = 64

// ExtensionsKey names the map whose contents are never inspected.
const ExtensionsKey = "extensions"

// IsExtensionKey reports whether key marks an opaque extension payload.
func IsExtensionKey(key string) bool {
	return key == ExtensionsKey || strings.HasPrefix(key, "x-")
}

type frame struct {
	value any
	path  string
	depth int
}

// exceedsDepth walks doc iteratively and returns the pointer of the first
// container nested deeper than maxDepth. Extension payloads are skipped.
func exceedsDepth(doc any, maxDepth int) (string, bool) {
	stack := []frame{{value: doc, path: "", depth: 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := f.value.(type) {
		case map[string]any:
			if f.depth > maxDepth {
				return f.path, true
			}
			// Reverse order so the lexically first key is visited first.
			keys := slices.Sorted(maps.Keys(v))
			for i := len(keys) - 1; i >= 0; i-- {
				k := keys[i]
				if IsExtensionKey(k) {
					continue
				}
				stack = append(stack, frame{value: v[k], path: diag.JoinPath(f.path, diag.Pointer(k)), depth: f.depth + 1})
			}
		case []any:
			if f.depth > maxDepth {
				return f.path, true
			}
			for i := len(v) - 1; i >= 0; i-- {
				stack = append(stack, frame{value: v[i], path: diag.JoinPath(f.path, diag.Pointer(i)), depth: f.depth + 1})
			}
		}
	}
	return "", false
}
