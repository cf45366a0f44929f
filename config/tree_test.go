package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_GetSet(t *testing.T) {
	tree := Tree{}

	tree.Set("core.logger.level", "debug")
	val, ok := tree.Get("core.logger.level")
	require.True(t, ok)
	assert.Equal(t, "debug", val)

	// Intermediate maps were created
	_, ok = tree.Get("core.logger")
	assert.True(t, ok)

	// Missing paths report absence, not a zero value
	_, ok = tree.Get("core.logger.format")
	assert.False(t, ok)
	_, ok = tree.Get("no.such.path")
	assert.False(t, ok)
}

func TestTree_SetOverwritesScalar(t *testing.T) {
	tree := Tree{}
	tree.Set("core.logger", "oops")

	// Setting a deeper path through a scalar replaces the scalar
	tree.Set("core.logger.level", "info")
	val, ok := tree.Get("core.logger.level")
	require.True(t, ok)
	assert.Equal(t, "info", val)
}

func TestMerge_DeepMapsWholesaleArrays(t *testing.T) {
	base := Tree{
		"core": map[string]any{
			"logger": map[string]any{"level": "info", "format": "json"},
			"security": map[string]any{
				"trustedHosts": []any{"a.example.com", "b.example.com"},
			},
		},
	}
	override := Tree{
		"core": map[string]any{
			"logger": map[string]any{"level": "debug"},
			"security": map[string]any{
				"trustedHosts": []any{"c.example.com"},
			},
		},
	}

	merged := Merge(base, override)

	// Sibling keys under a merged map survive
	format, _ := merged.Get("core.logger.format")
	assert.Equal(t, "json", format)

	level, _ := merged.Get("core.logger.level")
	assert.Equal(t, "debug", level)

	// Arrays replace wholesale, no element union
	hosts, _ := merged.Get("core.security.trustedHosts")
	assert.Equal(t, []any{"c.example.com"}, hosts)
}

func TestMerge_Idempotent(t *testing.T) {
	tree, err := DefaultTree()
	require.NoError(t, err)

	merged := Merge(tree, tree)
	assert.Equal(t, map[string]any(tree), map[string]any(merged))
}

func TestMerge_NilOverrideSkipped(t *testing.T) {
	base := Tree{"core": map[string]any{"logger": map[string]any{"level": "info"}}}
	override := Tree{"core": map[string]any{"logger": map[string]any{"level": nil}}}

	merged := Merge(base, override)
	level, _ := merged.Get("core.logger.level")
	assert.Equal(t, "info", level)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := Tree{"core": map[string]any{"logger": map[string]any{"level": "info"}}}
	override := Tree{"core": map[string]any{"logger": map[string]any{"level": "debug"}}}

	_ = Merge(base, override)

	level, _ := base.Get("core.logger.level")
	assert.Equal(t, "info", level, "merge must not write through to the base tree")
}

func TestTree_CloneIsolation(t *testing.T) {
	tree, err := DefaultTree()
	require.NoError(t, err)

	clone := tree.Clone()
	clone.Set("core.logger.level", "error")

	original, _ := tree.Get("core.logger.level")
	assert.Equal(t, "info", original, "mutating a clone must not touch the source")
}

func TestTree_SetNormalizesStringSlices(t *testing.T) {
	tree := Tree{}
	hosts := []string{"a.example.com", "b.example.com"}
	tree.Set("core.security.trustedHosts", hosts)

	val, ok := tree.Get("core.security.trustedHosts")
	require.True(t, ok)
	assert.Equal(t, []any{"a.example.com", "b.example.com"}, val)
	assert.Equal(t, hosts, tree.GetStringSlice("core.security.trustedHosts", nil))

	// The write is a copy; mutating the caller's slice leaves the tree alone
	hosts[0] = "evil.example.com"
	val, _ = tree.Get("core.security.trustedHosts")
	assert.Equal(t, []any{"a.example.com", "b.example.com"}, val)
}

func TestDiffPaths(t *testing.T) {
	base := Tree{
		"core": map[string]any{
			"logger":   map[string]any{"level": "info", "format": "json"},
			"security": map[string]any{"sandboxed": true},
		},
		"neural": map[string]any{"enabled": false},
	}

	assert.Empty(t, DiffPaths(base, base.Clone()))

	other := base.Clone()
	other.Set("core.logger.level", "warn")
	other.Set("storage", map[string]any{"memory": map[string]any{"backend": "sqlite"}})
	delete(map[string]any(other), "neural")

	assert.Equal(t, []string{"core.logger.level", "neural", "storage"},
		DiffPaths(base, other))

	// Arrays are compared wholesale: a reordered array is one diff at its path
	withHosts := base.Clone()
	withHosts.Set("core.security.trustedHosts", []string{"a", "b"})
	reordered := base.Clone()
	reordered.Set("core.security.trustedHosts", []string{"b", "a"})
	assert.Equal(t, []string{"core.security.trustedHosts"}, DiffPaths(withHosts, reordered))
}

func TestTree_TypedGetters(t *testing.T) {
	tree, err := DefaultTree()
	require.NoError(t, err)

	assert.Equal(t, "info", tree.GetString("core.logger.level", "fallback"))
	assert.Equal(t, 3456, tree.GetInt("interfaces.web.port", 0))
	assert.True(t, tree.GetBool("core.security.sandboxed", false))
	assert.Empty(t, tree.GetStringSlice("core.security.trustedHosts", nil))

	// Wrong-type access falls back to the default
	assert.Equal(t, "fallback", tree.GetString("interfaces.web.port", "fallback"))
	assert.Equal(t, float64(8), tree.GetNumber("core.performance.maxConcurrency", 0))
}

func TestDefaultTree_Valid(t *testing.T) {
	tree, err := DefaultTree()
	require.NoError(t, err)

	result := NewValidatorForRuntime(EnvDevelopment).Validate(tree)
	assert.True(t, result.Valid, "default table must validate clean: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestDefaultTree_UniformNumberType(t *testing.T) {
	tree, err := DefaultTree()
	require.NoError(t, err)

	val, ok := tree.Get("coordination.maxAgents")
	require.True(t, ok)
	assert.IsType(t, float64(0), val, "all default numbers decode as float64")
}
