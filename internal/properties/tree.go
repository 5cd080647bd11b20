package properties

import "strings"

// DeepMerge merges src into dst key by key. Nested maps are merged
// recursively; any other value in src replaces the one in dst. dst is
// returned for convenience.
func DeepMerge(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = map[string]interface{}{}
	}
	for key, value := range src {
		srcMap, srcIsMap := asMap(value)
		dstMap, dstIsMap := asMap(dst[key])
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = deepCopy(value)
	}
	return dst
}

// DeepGet resolves a dotted path.
func DeepGet(tree map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = tree
	for _, part := range splitPath(path) {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// DeepSet assigns value at a dotted path, creating intermediate levels and
// replacing non-map values found on the way.
func DeepSet(tree map[string]interface{}, path string, value interface{}) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return
	}
	current := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			next = map[string]interface{}{}
		}
		current[part] = next
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// DeepDelete removes the value at a dotted path and returns it.
func DeepDelete(tree map[string]interface{}, path string) (interface{}, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}
	current := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			return nil, false
		}
		current[part] = next
		current = next
	}
	last := parts[len(parts)-1]
	value, ok := current[last]
	if ok {
		delete(current, last)
	}
	return value, ok
}

// LeafPaths lists the dotted paths of every non-map value of tree.
func LeafPaths(tree map[string]interface{}) []string {
	var paths []string
	var walk func(prefix string, node map[string]interface{})
	walk = func(prefix string, node map[string]interface{}) {
		for key, value := range node {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			if child, ok := asMap(value); ok && len(child) > 0 {
				walk(path, child)
				continue
			}
			paths = append(paths, path)
		}
	}
	walk("", tree)
	return paths
}

// Leaves returns every non-map value found below v, or v itself.
func Leaves(v interface{}) []interface{} {
	m, ok := asMap(v)
	if !ok {
		if v == nil {
			return nil
		}
		return []interface{}{v}
	}
	var out []interface{}
	for _, child := range m {
		out = append(out, Leaves(child)...)
	}
	return out
}

func splitPath(path string) []string {
	path = strings.Trim(path, ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			if s, ok := k.(string); ok {
				out[s] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// deepCopy copies maps and slices. Other values, including live objects, are
// shared.
func deepCopy(v interface{}) interface{} {
	switch value := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, child := range value {
			out[k] = deepCopy(child)
		}
		return out
	case map[interface{}]interface{}:
		m, _ := asMap(value)
		return deepCopy(m)
	case []interface{}:
		out := make([]interface{}, len(value))
		for i, child := range value {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}
