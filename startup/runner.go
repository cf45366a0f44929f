// Package startup implements the one-shot boot-time validation sequence
package startup

import (
	"io"
	"log/slog"
	"os"

	"github.com/c360/confkit/config"
	"github.com/c360/confkit/health"
)

// Validation category names, executed in this order
const (
	CategoryStructure   = "structure"
	CategorySecurity    = "security"
	CategoryPorts       = "ports"
	CategoryEnvironment = "environment"
	CategoryPerformance = "performance"
	CategoryProduction  = "production"
)

var categoryOrder = []string{
	CategoryStructure,
	CategorySecurity,
	CategoryPorts,
	CategoryEnvironment,
	CategoryPerformance,
	CategoryProduction,
}

// OutputMode selects how a run is rendered
type OutputMode string

// Recognized output modes. Rendering never alters the verdict or exit code.
const (
	OutputText   OutputMode = "text"
	OutputJSON   OutputMode = "json"
	OutputSilent OutputMode = "silent"
)

// Options tunes a validation run
type Options struct {
	// Strict promotes findings to blockers even outside production
	Strict bool
	// Skip lists category names excluded from the run
	Skip []string
	// Output selects the rendering mode; empty means text
	Output OutputMode
	// Writer receives rendered output; nil means stdout
	Writer io.Writer
}

// CategoryResult is the outcome of one validation category
type CategoryResult struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Skipped  bool     `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Result is the aggregate verdict of a validation run
type Result struct {
	Success       bool             `json:"success"`
	ExitCode      int              `json:"exit_code"`
	Categories    []CategoryResult `json:"categories"`
	Errors        []string         `json:"errors"`
	Warnings      []string         `json:"warnings"`
	Blockers      []string         `json:"blockers"`
	PortConflicts []string         `json:"port_conflicts"`
	HealthScore   float64          `json:"health_score"`
	HealthStatus  string           `json:"health_status"`
}

// Runner executes the boot-time validation sequence. Findings always land
// in errors/warnings; they additionally become blockers when the run is
// strict or the runtime environment is production, so development runs
// surface every issue without halting the process.
type Runner struct {
	validator  *config.Validator
	assessor   *health.Assessor
	logger     *slog.Logger
	production bool
}

// NewRunner creates a runner bound to the runtime environment snapshot
func NewRunner(env config.Snapshot, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	validator := config.NewValidator(env)
	return &Runner{
		validator:  validator,
		assessor:   health.NewAssessor(validator),
		logger:     logger,
		production: env.IsProduction(),
	}
}

// Run validates the tree across the selected categories and renders the
// outcome per the output mode. The returned exit code is 0 on success and
// 1 when any blocker was found.
func (r *Runner) Run(t config.Tree, opts Options) Result {
	skipped := make(map[string]bool, len(opts.Skip))
	for _, name := range opts.Skip {
		skipped[name] = true
	}

	enhanced := r.validator.ValidateEnhanced(t)
	blocking, advisory := r.validator.ProductionFindings(t)
	report := r.assessor.FromResult(enhanced, false)

	result := Result{
		Errors:        []string{},
		Warnings:      []string{},
		Blockers:      []string{},
		PortConflicts: enhanced.PortConflicts,
		HealthScore:   report.Score,
		HealthStatus:  report.Status,
	}
	enforce := opts.Strict || r.production

	for _, name := range categoryOrder {
		if skipped[name] {
			result.Categories = append(result.Categories, CategoryResult{Name: name, Skipped: true, Passed: true})
			continue
		}

		category := r.evaluate(name, t, enhanced, blocking, advisory)
		category.Passed = len(category.Errors) == 0

		result.Errors = append(result.Errors, category.Errors...)
		result.Warnings = append(result.Warnings, category.Warnings...)
		if enforce {
			result.Blockers = append(result.Blockers, category.Errors...)
		}
		result.Categories = append(result.Categories, category)
	}

	result.Success = len(result.Blockers) == 0
	if !result.Success {
		result.ExitCode = 1
	}

	r.render(result, opts)

	r.logger.Info("Startup validation finished",
		"success", result.Success,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
		"blockers", len(result.Blockers),
		"health_score", result.HealthScore)

	return result
}

// evaluate produces one category's findings. Severity is intrinsic to the
// finding; promotion to blocker happens in Run.
func (r *Runner) evaluate(name string, t config.Tree, enhanced *config.EnhancedResult,
	blocking, advisory []string) CategoryResult {

	category := CategoryResult{Name: name}

	switch name {
	case CategoryStructure:
		structural := r.validator.ValidateStructure(t)
		category.Errors = structural.Errors
		category.Warnings = structural.Warnings

	case CategorySecurity:
		category.Errors = enhanced.SecurityIssues

	case CategoryPorts:
		category.Errors = enhanced.PortConflicts

	case CategoryEnvironment:
		// Blocking policy violations are errors in production and advisory
		// warnings in development; advisory policies always warn
		if r.production {
			category.Errors = blocking
		} else {
			category.Warnings = append(category.Warnings, blocking...)
		}
		category.Warnings = append(category.Warnings, advisory...)

	case CategoryPerformance:
		category.Warnings = enhanced.PerformanceWarnings

	case CategoryProduction:
		if !enhanced.ProductionReady {
			msg := "configuration is not production ready"
			if r.production {
				category.Errors = []string{msg}
			} else {
				category.Warnings = []string{msg}
			}
		}
	}

	return category
}

// render writes the run outcome per the output mode
func (r *Runner) render(result Result, opts Options) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	switch opts.Output {
	case OutputSilent:
	case OutputJSON:
		renderJSON(w, result)
	default:
		renderText(w, result)
	}
}
