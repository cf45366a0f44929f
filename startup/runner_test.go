package startup

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/confkit/config"
)

func runtimeSnapshot(runtime string) config.Snapshot {
	return config.NewSnapshot(map[string]string{"CONFKIT_ENV": runtime}, nil)
}

func defaultTree(t *testing.T) config.Tree {
	t.Helper()
	tree, err := config.DefaultTree()
	require.NoError(t, err)
	return tree
}

func TestRun_CleanTreePasses(t *testing.T) {
	tree := defaultTree(t)
	tree.Set("core.security.trustedHosts", []any{"internal.example.com"})

	runner := NewRunner(runtimeSnapshot(config.EnvDevelopment), nil)
	result := runner.Run(tree, Options{Output: OutputSilent})

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Empty(t, result.Blockers)
	assert.Empty(t, result.Errors)

	for _, category := range result.Categories {
		assert.True(t, category.Passed, "category %s failed: %v", category.Name, category.Errors)
	}
}

func TestRun_ProductionShellAccessBlocks(t *testing.T) {
	tree := defaultTree(t)
	tree.Set("core.security.allowShellAccess", true)

	// Production: blocking error, exit 1
	prod := NewRunner(runtimeSnapshot(config.EnvProduction), nil).Run(tree, Options{Output: OutputSilent})
	assert.False(t, prod.Success)
	assert.Equal(t, 1, prod.ExitCode)
	assert.NotEmpty(t, prod.Blockers)
	assert.Contains(t, prod.Blockers, "core.security.allowShellAccess must be false in production")

	// Development: same finding surfaces as a warning only, exit 0
	dev := NewRunner(runtimeSnapshot(config.EnvDevelopment), nil).Run(tree, Options{Output: OutputSilent})
	assert.True(t, dev.Success)
	assert.Equal(t, 0, dev.ExitCode)
	assert.Empty(t, dev.Blockers)
	assert.Contains(t, dev.Warnings, "core.security.allowShellAccess must be false in production")
}

func TestRun_StrictPromotesToBlockers(t *testing.T) {
	tree := defaultTree(t)
	tree.Set("interfaces.web.port", float64(3000))
	tree.Set("interfaces.mcp.http.port", float64(3000))

	relaxed := NewRunner(runtimeSnapshot(config.EnvDevelopment), nil).Run(tree, Options{Output: OutputSilent})
	assert.True(t, relaxed.Success, "development without strict never blocks")
	assert.NotEmpty(t, relaxed.Errors)

	strict := NewRunner(runtimeSnapshot(config.EnvDevelopment), nil).Run(tree, Options{
		Strict: true,
		Output: OutputSilent,
	})
	assert.False(t, strict.Success)
	assert.Equal(t, 1, strict.ExitCode)
	assert.Contains(t, strict.Blockers, "port conflict: web and mcp share port 3000")
	assert.Equal(t, strict.PortConflicts, relaxed.PortConflicts)
}

func TestRun_SkipCategories(t *testing.T) {
	tree := defaultTree(t)
	tree.Set("interfaces.web.port", float64(3000))
	tree.Set("interfaces.mcp.http.port", float64(3000))

	runner := NewRunner(runtimeSnapshot(config.EnvDevelopment), nil)
	result := runner.Run(tree, Options{
		Strict: true,
		Skip:   []string{CategoryPorts, CategoryProduction},
		Output: OutputSilent,
	})

	for _, category := range result.Categories {
		if category.Name == CategoryPorts || category.Name == CategoryProduction {
			assert.True(t, category.Skipped)
			assert.True(t, category.Passed)
		}
	}

	// The skipped port conflict no longer contributes findings
	assert.NotContains(t, result.Blockers, "port conflict: web and mcp share port 3000")
}

func TestRun_OutputModeNeverAffectsVerdict(t *testing.T) {
	tree := defaultTree(t)
	tree.Set("core.security.allowShellAccess", true)

	var verdicts []Result
	for _, mode := range []OutputMode{OutputText, OutputJSON, OutputSilent} {
		var buf bytes.Buffer
		runner := NewRunner(runtimeSnapshot(config.EnvProduction), nil)
		verdicts = append(verdicts, runner.Run(tree, Options{Output: mode, Writer: &buf}))
	}

	for _, verdict := range verdicts[1:] {
		assert.Equal(t, verdicts[0].Success, verdict.Success)
		assert.Equal(t, verdicts[0].ExitCode, verdict.ExitCode)
		assert.Equal(t, verdicts[0].Blockers, verdict.Blockers)
	}
}

func TestRun_TextRendering(t *testing.T) {
	tree := defaultTree(t)
	tree.Set("core.security.allowShellAccess", true)

	var buf bytes.Buffer
	NewRunner(runtimeSnapshot(config.EnvProduction), nil).Run(tree, Options{
		Output: OutputText,
		Writer: &buf,
	})

	out := buf.String()
	assert.Contains(t, out, "[FAIL] environment")
	assert.Contains(t, out, "Blockers:")
	assert.Contains(t, out, "Result: FAIL")
	assert.Contains(t, out, "Health:")
}

func TestRun_JSONRendering(t *testing.T) {
	tree := defaultTree(t)

	var buf bytes.Buffer
	result := NewRunner(runtimeSnapshot(config.EnvDevelopment), nil).Run(tree, Options{
		Output: OutputJSON,
		Writer: &buf,
	})

	var decoded Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, result.Success, decoded.Success)
	assert.Equal(t, result.ExitCode, decoded.ExitCode)
	assert.Len(t, decoded.Categories, len(strings.Fields("structure security ports environment performance production")))
}
