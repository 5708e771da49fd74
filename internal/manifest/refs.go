package manifest

import (
	"github.com/jsonagents/jsonagents/internal/diag"
)

// idCollections are the arrays whose entries must carry unique ids.
var idCollections = []struct {
	path []string
	noun string
}{
	{[]string{"capabilities"}, "capability"},
	{[]string{"tools"}, "tool"},
	{[]string{"policies"}, "policy"},
	{[]string{"graph", "nodes"}, "graph node"},
}

// checkReferences reports duplicated ids and graph edges that name no node.
func checkReferences(root map[string]any, c *diag.Collector) {
	for _, coll := range idCollections {
		items, ok := arrayAt(root, coll.path...)
		if !ok {
			continue
		}
		base := diag.Pointer(toTokens(coll.path)...)
		checkUniqueIDs(items, base, coll.noun, c)
	}
	checkEdges(root, c)
}

func checkUniqueIDs(items []any, base, noun string, c *diag.Collector) {
	first := make(map[string]string, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := obj["id"].(string)
		if !ok || id == "" {
			continue
		}
		ptr := diag.JoinPath(base, diag.Pointer(i, "id"))
		if prev, dup := first[id]; dup {
			c.Errorf(diag.ReferenceError, ptr, "duplicate %s id '%s' (first declared at %s)", noun, id, prev)
			continue
		}
		first[id] = ptr
	}
}

func checkEdges(root map[string]any, c *diag.Collector) {
	nodes, ok := arrayAt(root, "graph", "nodes")
	if !ok {
		return
	}
	edges, ok := arrayAt(root, "graph", "edges")
	if !ok {
		return
	}

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if obj, ok := n.(map[string]any); ok {
			if id, ok := obj["id"].(string); ok {
				known[id] = true
			}
		}
	}

	for i, e := range edges {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		for _, end := range []string{"from", "to"} {
			name, ok := obj[end].(string)
			if !ok || known[name] {
				continue
			}
			c.Errorf(diag.ReferenceError, diag.Pointer("graph", "edges", i, end),
				"edge %s '%s' does not name a graph node", end, name)
		}
	}
}

// arrayAt follows object keys from root and returns the array found there.
func arrayAt(root map[string]any, keys ...string) ([]any, bool) {
	var cur any = root
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = obj[k]
	}
	arr, ok := cur.([]any)
	return arr, ok
}

func toTokens(keys []string) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}
