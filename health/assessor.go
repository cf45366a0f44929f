// Package health derives configuration health scores from validation results
package health

import (
	"fmt"
	"time"

	"github.com/c360/confkit/config"
)

// Health status names. Thresholds: overall >= 90 is healthy, >= 70 is
// warning, everything below is critical.
const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"

	healthyThreshold = 90
	warningThreshold = 70
)

// Per-finding score deductions. Security findings cost the most because a
// single one can invalidate a deployment; performance findings cost the
// least because they degrade rather than break.
const (
	structurePenalty   = 10
	securityPenalty    = 20
	performancePenalty = 5
	productionPenalty  = 50
)

// Component names reported in the health breakdown
const (
	ComponentStructure   = "structure"
	ComponentSecurity    = "security"
	ComponentPerformance = "performance"
	ComponentProduction  = "production"
)

// Report is a point-in-time health assessment of a configuration tree
type Report struct {
	Status          string         `json:"status"`
	Score           float64        `json:"score"`
	Components      map[string]int `json:"components"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Findings        *Findings      `json:"findings,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Findings carries the raw finding lists behind the scores, included only
// when the caller asks for details.
type Findings struct {
	Errors              []string `json:"errors"`
	Warnings            []string `json:"warnings"`
	SecurityIssues      []string `json:"security_issues"`
	PortConflicts       []string `json:"port_conflicts"`
	PerformanceWarnings []string `json:"performance_warnings"`
}

// IsHealthy returns true if the report status is healthy
func (r Report) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// IsCritical returns true if the report status is critical
func (r Report) IsCritical() bool {
	return r.Status == StatusCritical
}

// Assessor converts validation results into health reports. It holds no
// state beyond the validator, so a single instance serves all goroutines.
type Assessor struct {
	validator *config.Validator
}

// NewAssessor creates an assessor over a validator
func NewAssessor(validator *config.Validator) *Assessor {
	return &Assessor{validator: validator}
}

// Assess validates the tree and scores the outcome
func (a *Assessor) Assess(t config.Tree, details bool) Report {
	return a.FromResult(a.validator.ValidateEnhanced(t), details)
}

// FromResult scores an existing validation result without revalidating.
// Component scores floor at zero; the overall score is their mean.
func (a *Assessor) FromResult(result *config.EnhancedResult, details bool) Report {
	components := map[string]int{
		ComponentStructure:   deduct(100, structurePenalty, result.StructuralErrors),
		ComponentSecurity:    deduct(100, securityPenalty, len(result.SecurityIssues)),
		ComponentPerformance: deduct(100, performancePenalty, len(result.PerformanceWarnings)),
		ComponentProduction:  100,
	}
	if !result.ProductionReady {
		components[ComponentProduction] = 100 - productionPenalty
	}

	total := 0
	for _, score := range components {
		total += score
	}
	score := float64(total) / float64(len(components))

	status := StatusCritical
	switch {
	case score >= healthyThreshold:
		status = StatusHealthy
	case score >= warningThreshold:
		status = StatusWarning
	}

	report := Report{
		Status:          status,
		Score:           score,
		Components:      components,
		Recommendations: recommend(result),
		Timestamp:       time.Now(),
	}

	if details {
		report.Findings = &Findings{
			Errors:              result.Errors,
			Warnings:            result.Warnings,
			SecurityIssues:      result.SecurityIssues,
			PortConflicts:       result.PortConflicts,
			PerformanceWarnings: result.PerformanceWarnings,
		}
	}

	return report
}

// Readiness reports whether the configuration is fit to serve: valid and
// not critical. Used by the gateway's readiness endpoint.
func (a *Assessor) Readiness(result *config.EnhancedResult) bool {
	return result.Valid && !a.FromResult(result, false).IsCritical()
}

// deduct subtracts penalty per finding, flooring at zero
func deduct(base, penalty, count int) int {
	score := base - penalty*count
	if score < 0 {
		return 0
	}
	return score
}

// recommend produces deterministic, ordered remediation hints. The same
// result always yields the same list, so reports diff cleanly over time.
func recommend(result *config.EnhancedResult) []string {
	var recs []string

	if len(result.Errors) > 0 {
		recs = append(recs, fmt.Sprintf("fix %d validation error(s) before deploying", len(result.Errors)))
	}
	for _, conflict := range result.PortConflicts {
		recs = append(recs, "resolve "+conflict)
	}
	for _, issue := range result.SecurityIssues {
		recs = append(recs, "address security finding: "+issue)
	}
	for _, warning := range result.PerformanceWarnings {
		recs = append(recs, "review performance setting: "+warning)
	}
	if !result.ProductionReady && len(result.SecurityIssues) == 0 && len(result.Errors) == 0 {
		recs = append(recs, "configuration is not production ready; run the startup validator for details")
	}

	return recs
}
