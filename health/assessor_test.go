package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/confkit/config"
)

func assess(t *testing.T, mutate func(config.Tree), details bool) Report {
	t.Helper()
	tree, err := config.DefaultTree()
	require.NoError(t, err)
	if mutate != nil {
		mutate(tree)
	}
	return NewAssessor(config.NewValidatorForRuntime(config.EnvDevelopment)).Assess(tree, details)
}

func TestAssess_DefaultsAreNotPerfect(t *testing.T) {
	report := assess(t, nil, false)

	// The default table ships an empty trusted host list, which costs one
	// security finding and the production verdict
	assert.Equal(t, 80, report.Components[ComponentSecurity])
	assert.Equal(t, 50, report.Components[ComponentProduction])
	assert.Equal(t, 100, report.Components[ComponentStructure])
	assert.Equal(t, 100, report.Components[ComponentPerformance])
	assert.InDelta(t, 82.5, report.Score, 0.01)
	assert.Equal(t, StatusWarning, report.Status)
	assert.Nil(t, report.Findings)
}

func TestAssess_HealthyWhenHardened(t *testing.T) {
	report := assess(t, func(tree config.Tree) {
		tree.Set("core.security.trustedHosts", []any{"internal.example.com"})
	}, false)

	assert.Equal(t, StatusHealthy, report.Status)
	assert.InDelta(t, 100, report.Score, 0.01)
	assert.True(t, report.IsHealthy())
	assert.Empty(t, report.Recommendations)
}

func TestAssess_CriticalOnErrors(t *testing.T) {
	report := assess(t, func(tree config.Tree) {
		delete(tree, "neural")
		delete(tree, "optimization")
		delete(tree, "storage")
		delete(tree, "coordination")
		tree.Set("interfaces.web.port", float64(3000))
		tree.Set("interfaces.mcp.http.port", float64(3000))
		tree.Set("core.security.sandboxed", false)
		tree.Set("core.security.allowShellAccess", true)
		tree.Set("core.logger.level", "debug")
	}, true)

	assert.Equal(t, StatusCritical, report.Status)
	assert.True(t, report.IsCritical())
	assert.Equal(t, 60, report.Components[ComponentStructure])
	require.NotNil(t, report.Findings)
	assert.NotEmpty(t, report.Findings.Errors)
	assert.NotEmpty(t, report.Findings.SecurityIssues)
	assert.NotEmpty(t, report.Findings.PortConflicts)
}

func TestAssess_StructureScoreCountsStructuralErrorsOnly(t *testing.T) {
	// A rule violation is an error, but not a structural one
	report := assess(t, func(tree config.Tree) {
		tree.Set("core.logger.level", "verbose")
	}, false)
	assert.Equal(t, 100, report.Components[ComponentStructure])

	report = assess(t, func(tree config.Tree) {
		delete(tree, "neural")
	}, false)
	assert.Equal(t, 90, report.Components[ComponentStructure])
}

func TestFromResult_ScoreFloorsAtZero(t *testing.T) {
	result := &config.EnhancedResult{
		Result: config.Result{
			Valid:            false,
			Errors:           make([]string, 15),
			StructuralErrors: 15, // 15 at 10 apiece floors the score
		},
	}

	report := NewAssessor(config.NewValidatorForRuntime(config.EnvDevelopment)).FromResult(result, false)

	assert.Equal(t, 0, report.Components[ComponentStructure])
	assert.GreaterOrEqual(t, report.Score, 0.0)
	assert.Equal(t, StatusCritical, report.Status)
}

func TestHealth_MonotonicUnderFixes(t *testing.T) {
	broken := assess(t, func(tree config.Tree) {
		delete(tree, "neural")
		tree.Set("core.security.sandboxed", false)
		tree.Set("core.security.allowShellAccess", true)
	}, false)

	partiallyFixed := assess(t, func(tree config.Tree) {
		tree.Set("core.security.sandboxed", false)
		tree.Set("core.security.allowShellAccess", true)
	}, false)

	fixed := assess(t, nil, false)

	assert.Less(t, broken.Score, partiallyFixed.Score)
	assert.Less(t, partiallyFixed.Score, fixed.Score)
}

func TestRecommendations_Deterministic(t *testing.T) {
	mutate := func(tree config.Tree) {
		tree.Set("interfaces.web.port", float64(3000))
		tree.Set("interfaces.mcp.http.port", float64(3000))
		tree.Set("core.logger.level", "debug")
	}

	first := assess(t, mutate, false)
	second := assess(t, mutate, false)

	require.NotEmpty(t, first.Recommendations)
	assert.Equal(t, first.Recommendations, second.Recommendations)
	assert.Contains(t, first.Recommendations, "resolve port conflict: web and mcp share port 3000")
}

func TestReadiness(t *testing.T) {
	validator := config.NewValidatorForRuntime(config.EnvDevelopment)
	assessor := NewAssessor(validator)

	tree, err := config.DefaultTree()
	require.NoError(t, err)
	assert.True(t, assessor.Readiness(validator.ValidateEnhanced(tree)))

	tree.Set("core.logger.level", "verbose")
	assert.False(t, assessor.Readiness(validator.ValidateEnhanced(tree)))
}
