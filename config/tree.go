package config

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// Tree is a nested configuration value tree addressed by dotted key paths
// (e.g. "core.logger.level"). Leaves are strings, numbers (float64 after
// JSON decoding), booleans, or arrays; interior nodes are nested maps.
type Tree map[string]any

// Get returns the value at a dotted path. The second return is false when
// any segment of the path is absent or a non-map is traversed.
func (t Tree) Get(path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	current := map[string]any(t)

	for i, segment := range segments {
		val, ok := current[segment]
		if !ok {
			return nil, false
		}

		if i == len(segments)-1 {
			return val, true
		}

		nested, ok := toMap(val)
		if !ok {
			return nil, false
		}
		current = nested
	}

	return nil, false
}

// Set writes a value at a dotted path, creating intermediate maps as needed.
// A non-map value encountered mid-path is replaced by a fresh map so the
// write always succeeds. The value is deep-copied and normalized to the
// tree's canonical leaf shapes (string slices become []any), so a read
// returns the same shape whether or not the tree was cloned in between.
func (t Tree) Set(path string, value any) {
	if path == "" {
		return
	}

	segments := strings.Split(path, ".")
	current := map[string]any(t)

	for i, segment := range segments {
		if i == len(segments)-1 {
			current[segment] = copyValue(value)
			return
		}

		nested, ok := toMap(current[segment])
		if !ok {
			nested = make(map[string]any)
			current[segment] = nested
		}
		current = nested
	}
}

// Has reports whether a dotted path exists in the tree.
func (t Tree) Has(path string) bool {
	_, ok := t.Get(path)
	return ok
}

// Section returns the named top-level section as a Tree.
func (t Tree) Section(name string) (Tree, bool) {
	val, ok := t[name]
	if !ok {
		return nil, false
	}
	nested, ok := toMap(val)
	if !ok {
		return nil, false
	}
	return Tree(nested), true
}

// Clone creates a deep copy of the tree via a JSON round trip. All numbers
// in the copy are float64, which keeps leaf types uniform across sources.
func (t Tree) Clone() Tree {
	if t == nil {
		return Tree{}
	}

	data, err := json.Marshal(t)
	if err != nil {
		// Fallback to shallow copy if marshaling fails
		copied := make(Tree, len(t))
		for k, v := range t {
			copied[k] = v
		}
		return copied
	}

	var clone Tree
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := make(Tree, len(t))
		for k, v := range t {
			copied[k] = v
		}
		return copied
	}

	return clone
}

// Merge deep-merges override into base and returns the result. Nested maps
// merge key-wise recursively; every other value, arrays included, is
// replaced wholesale by the override. Neither input is mutated.
func Merge(base, override Tree) Tree {
	return Tree(deepMergeMaps(base.Clone(), map[string]any(override)))
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))

	// Copy base values
	for k, v := range base {
		result[k] = v
	}

	// Override with values from override map
	for k, v := range override {
		if v == nil {
			continue
		}

		// If both base and override have maps at this key, merge them
		if baseMap, baseOk := toMap(base[k]); baseOk {
			if overrideMap, overrideOk := toMap(v); overrideOk {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		// Otherwise, override takes precedence
		result[k] = copyValue(v)
	}

	return result
}

// DiffPaths returns the dotted paths at which two trees differ, sorted.
// Nested maps are descended; any other mismatch reports the path itself,
// so a replaced array or scalar appears once rather than per element.
func DiffPaths(a, b Tree) []string {
	found := make(map[string]struct{})
	diffMaps(map[string]any(a), map[string]any(b), "", found)

	paths := make([]string, 0, len(found))
	for p := range found {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// diffMaps collects differing paths into found
func diffMaps(a, b map[string]any, prefix string, found map[string]struct{}) {
	for key, aVal := range a {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		bVal, ok := b[key]
		if !ok {
			found[path] = struct{}{}
			continue
		}

		aMap, aIsMap := toMap(aVal)
		bMap, bIsMap := toMap(bVal)
		if aIsMap && bIsMap {
			diffMaps(aMap, bMap, path, found)
			continue
		}
		if !reflect.DeepEqual(aVal, bVal) {
			found[path] = struct{}{}
		}
	}

	for key := range b {
		if _, ok := a[key]; ok {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		found[path] = struct{}{}
	}
}

// copyValue deep-copies a leaf or subtree so callers cannot mutate
// manager-owned state through a returned value.
func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			out[k] = copyValue(nested)
		}
		return out
	case Tree:
		return map[string]any(Tree(val).Clone())
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	default:
		return v
	}
}

// toMap normalizes the map shapes a value may carry after merging
func toMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case Tree:
		return map[string]any(val), true
	default:
		return nil, false
	}
}

// Safe type assertion helpers prevent panics when reading dynamic configuration

// GetString safely extracts a string value at a dotted path
func (t Tree) GetString(path, defaultVal string) string {
	if val, ok := t.Get(path); ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

// GetNumber safely extracts a numeric value at a dotted path
func (t Tree) GetNumber(path string, defaultVal float64) float64 {
	if val, ok := t.Get(path); ok {
		if n, ok := toNumber(val); ok {
			return n
		}
	}
	return defaultVal
}

// GetInt safely extracts an integer value at a dotted path
func (t Tree) GetInt(path string, defaultVal int) int {
	if val, ok := t.Get(path); ok {
		if n, ok := toNumber(val); ok {
			return int(n)
		}
	}
	return defaultVal
}

// GetBool safely extracts a boolean value at a dotted path
func (t Tree) GetBool(path string, defaultVal bool) bool {
	if val, ok := t.Get(path); ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetStringSlice safely extracts a string slice at a dotted path
func (t Tree) GetStringSlice(path string, defaultVal []string) []string {
	val, ok := t.Get(path)
	if !ok {
		return defaultVal
	}

	if slice, ok := val.([]string); ok {
		return slice
	}

	// Convert []any to []string when every element is a string
	if interfaceSlice, ok := val.([]any); ok {
		result := make([]string, 0, len(interfaceSlice))
		for _, item := range interfaceSlice {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		if len(result) == len(interfaceSlice) {
			return result
		}
	}

	return defaultVal
}

// toNumber widens the numeric types a merged tree may carry
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
