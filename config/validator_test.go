package config

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTree(t *testing.T) Tree {
	t.Helper()
	tree, err := DefaultTree()
	require.NoError(t, err)
	return tree
}

func TestValidate_CleanTree(t *testing.T) {
	v := NewValidatorForRuntime(EnvDevelopment)
	res := v.Validate(validTree(t))

	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidate_AccumulatesAllFindings(t *testing.T) {
	tree := validTree(t)
	tree.Set("core.logger.level", "verbose")             // enum violation
	tree.Set("interfaces.web.port", float64(70000))      // range violation
	tree.Set("core.security.sandboxed", "yes")           // type violation
	tree.Set("coordination.topology", "spiral")          // enum violation
	delete(map[string]any(tree), "optimization")         // structure violation

	res := NewValidatorForRuntime(EnvDevelopment).Validate(tree)

	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 5, "every pass reports, none short-circuits: %v", res.Errors)
}

func TestValidate_StructuralErrorCount(t *testing.T) {
	tree := validTree(t)
	tree.Set("core.logger.level", "verbose")     // rule error, not structural
	delete(map[string]any(tree), "neural")       // structural
	delete(map[string]any(tree), "optimization") // structural

	res := NewValidatorForRuntime(EnvDevelopment).Validate(tree)

	assert.Equal(t, 2, res.StructuralErrors,
		"only the structural pass counts toward StructuralErrors: %v", res.Errors)
	assert.Len(t, res.Errors, 3)
}

func TestValidate_MissingSectionAndSubsection(t *testing.T) {
	tree := validTree(t)
	delete(map[string]any(tree), "neural")
	core, _ := tree.Section("core")
	delete(map[string]any(core), "security")

	res := NewValidatorForRuntime(EnvDevelopment).ValidateStructure(tree)

	assert.Contains(t, res.Errors, "missing required section: neural")
	assert.Contains(t, res.Errors, "missing required subsection: core.security")
}

func TestValidate_AbsentRuleKeyIsWarning(t *testing.T) {
	tree := validTree(t)
	opt, _ := tree.Section("optimization")
	delete(map[string]any(opt), "batchSize")

	res := NewValidatorForRuntime(EnvDevelopment).Validate(tree)

	assert.True(t, res.Valid)
	assert.Contains(t, res.Warnings, "optional key not set: optimization.batchSize")
}

func TestValidate_ProductionBounds(t *testing.T) {
	tree := validTree(t)
	tree.Set("interfaces.web.port", float64(80))
	tree.Set("coordination.maxAgents", float64(60))

	dev := NewValidatorForRuntime(EnvDevelopment).Validate(tree)
	assert.True(t, dev.Valid, "both values are inside the base bounds: %v", dev.Errors)

	prod := NewValidatorForRuntime(EnvProduction).Validate(tree)
	assert.False(t, prod.Valid)
	assert.Contains(t, prod.Errors, "interfaces.web.port: 80 below minimum 1024")
	assert.Contains(t, prod.Errors, "coordination.maxAgents: 60 above maximum 50")
}

func TestValidate_Dependencies(t *testing.T) {
	tree := validTree(t)
	tree.Set("interfaces.web.https", true)
	tree.Set("neural.enableCUDA", true)
	tree.Set("neural.enableWASM", false)

	res := NewValidatorForRuntime(EnvDevelopment).Validate(tree)

	assert.True(t, res.Valid)
	assert.Contains(t, res.Warnings, "interfaces.web.https enabled without interfaces.web.corsOrigins")
	assert.Contains(t, res.Warnings, "neural.enableCUDA enabled without neural.enableWASM")
}

func TestValidate_MemoryBackendNeedsDatabase(t *testing.T) {
	tree := validTree(t)
	storage, _ := tree.Section("storage")
	delete(map[string]any(storage), "database")

	res := NewValidatorForRuntime(EnvDevelopment).Validate(tree)

	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "storage.memory.backend=sqlite requires a storage.database block")
}

func TestValidate_ShellWithoutSandboxEscalates(t *testing.T) {
	tree := validTree(t)
	tree.Set("core.security.allowShellAccess", true)
	tree.Set("core.security.sandboxed", false)

	msg := "core.security.allowShellAccess enabled without core.security.sandboxed"

	dev := NewValidatorForRuntime(EnvDevelopment).Validate(tree)
	assert.True(t, dev.Valid)
	assert.Contains(t, dev.Warnings, msg)

	prod := NewValidatorForRuntime(EnvProduction).Validate(tree)
	assert.False(t, prod.Valid)
	assert.Contains(t, prod.Errors, msg)
}

func TestValidate_PortConflict(t *testing.T) {
	tree := validTree(t)
	tree.Set("interfaces.web.port", float64(3000))
	tree.Set("interfaces.mcp.http.port", float64(3000))

	res := NewValidatorForRuntime(EnvDevelopment).Validate(tree)

	require.False(t, res.Valid)
	conflicts := 0
	for _, e := range res.Errors {
		if e == "port conflict: web and mcp share port 3000" {
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts, "exactly one error per duplicated port: %v", res.Errors)
}

func TestValidate_CacheExceedsMemoryCeiling(t *testing.T) {
	tree := validTree(t)
	tree.Set("storage.memory.maxSizeMB", float64(128))
	tree.Set("storage.memory.cacheSizeMB", float64(256))

	res := NewValidatorForRuntime(EnvDevelopment).Validate(tree)

	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "storage.memory.cacheSizeMB (256) exceeds storage.memory.maxSizeMB (128)")
}

func TestValidate_TimeoutAndPathWarnings(t *testing.T) {
	tree := validTree(t)
	tree.Set("core.performance.timeoutMs", float64(500))
	tree.Set("storage.database.path", "../outside/confkit.db")

	res := NewValidatorForRuntime(EnvDevelopment).Validate(tree)

	assert.True(t, res.Valid, "timeout and path findings are advisory: %v", res.Errors)
	assert.Contains(t, res.Warnings,
		fmt.Sprintf("core.performance.timeoutMs=500 outside sane range [%d, %d] ms", timeoutFloorMs, timeoutCeilingMs))
	assert.Contains(t, res.Warnings,
		"storage.database.path contains a parent-directory traversal segment: ../outside/confkit.db")
}

func TestValidateSection(t *testing.T) {
	tree := validTree(t)
	tree.Set("core.logger.level", "verbose")
	tree.Set("coordination.topology", "spiral")

	res := NewValidatorForRuntime(EnvDevelopment).ValidateSection(tree, "core")

	assert.False(t, res.Valid)
	// Only core findings are in scope; the coordination violation is not
	for _, e := range res.Errors {
		assert.NotContains(t, e, "coordination")
	}

	unknown := NewValidatorForRuntime(EnvDevelopment).ValidateSection(tree, "nonsense")
	assert.Contains(t, unknown.Errors, "unknown section: nonsense")
}

func TestValidateEnhanced_SecurityExtraction(t *testing.T) {
	tree := validTree(t)
	tree.Set("core.security.sandboxed", false)
	tree.Set("core.security.allowShellAccess", true)

	res := NewValidatorForRuntime(EnvDevelopment).ValidateEnhanced(tree)

	assert.Contains(t, res.SecurityIssues, "sandboxing disabled while shell access is allowed")
	assert.Contains(t, res.SecurityIssues, "trusted host list is empty")
	assert.False(t, res.ProductionReady)
}

func TestValidateEnhanced_PerformanceExtraction(t *testing.T) {
	tree := validTree(t)
	tree.Set("coordination.maxAgents", float64(80))
	tree.Set("core.logger.level", "debug")

	res := NewValidatorForRuntime(EnvDevelopment).ValidateEnhanced(tree)

	assert.Contains(t, res.PerformanceWarnings, "coordination.maxAgents=80 may exhaust scheduler capacity")
	assert.Contains(t, res.PerformanceWarnings, "debug-level logging degrades throughput")
}

func TestValidateEnhanced_ProductionReady(t *testing.T) {
	tree := validTree(t)
	tree.Set("core.security.trustedHosts", []any{"internal.example.com"})

	res := NewValidatorForRuntime(EnvProduction).ValidateEnhanced(tree)

	assert.True(t, res.Valid, "errors: %v", res.Errors)
	assert.Empty(t, res.SecurityIssues)
	assert.True(t, res.ProductionReady)
}

func TestProductionFindings(t *testing.T) {
	tree := validTree(t)
	tree.Set("core.security.sandboxed", false)
	tree.Set("core.logger.level", "debug")
	tree.Set("core.performance.enableProfiling", true)

	blocking, advisory := NewValidatorForRuntime(EnvProduction).ProductionFindings(tree)

	assert.Equal(t, []string{"core.security.sandboxed must be true in production"}, blocking)
	assert.Len(t, advisory, 2)
	assert.Contains(t, advisory, "debug-level logging is discouraged in production")
	assert.Contains(t, advisory, "profiling should be disabled in production")
}
