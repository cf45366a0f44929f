package config

import (
	"fmt"
	"sort"
	"strings"
)

// Result is the outcome of validating a configuration tree. Errors block;
// warnings inform. Valid holds exactly when Errors is empty.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	// StructuralErrors counts the leading entries of Errors contributed by
	// the structural pass. The health structure score deducts from this
	// count only; rule, dependency, and constraint errors score elsewhere.
	StructuralErrors int `json:"structural_errors"`
}

// EnhancedResult extends Result with the extractions the health assessor
// and deployment tooling consume.
type EnhancedResult struct {
	Result
	ProductionReady     bool     `json:"production_ready"`
	SecurityIssues      []string `json:"security_issues"`
	PortConflicts       []string `json:"port_conflicts"`
	PerformanceWarnings []string `json:"performance_warnings"`
	FailsafeApplied     []string `json:"failsafe_applied"`
}

// Validator checks a merged configuration tree against the static rule
// tables. It is a pure function over tree snapshots: it never mutates or
// retains the tree it is given.
type Validator struct {
	production bool
}

// NewValidator creates a validator whose production escalations follow the
// runtime environment captured in the snapshot.
func NewValidator(env Snapshot) *Validator {
	return &Validator{production: env.IsProduction()}
}

// NewValidatorForRuntime creates a validator for an explicit runtime name
func NewValidatorForRuntime(runtime string) *Validator {
	return &Validator{production: runtime == EnvProduction}
}

// Production reports whether production escalations are active
func (v *Validator) Production() bool {
	return v.production
}

// Validate runs all four passes over the tree and accumulates every error
// and warning found. No pass short-circuits: a single report carries every
// problem so operators fix them in one round.
func (v *Validator) Validate(t Tree) *Result {
	res := &Result{Errors: []string{}, Warnings: []string{}}

	v.checkStructure(t, res)
	res.StructuralErrors = len(res.Errors)
	v.checkRules(t, res, "")
	v.checkDependencies(t, res)
	v.checkConstraints(t, res)

	res.Valid = len(res.Errors) == 0
	return res
}

// ValidateSection validates only the named top-level section: its required
// subsections plus every rule-table entry under it.
func (v *Validator) ValidateSection(t Tree, section string) *Result {
	res := &Result{Errors: []string{}, Warnings: []string{}}

	found := false
	for _, req := range requiredStructure {
		if req.Name != section {
			continue
		}
		found = true
		if _, ok := t.Section(section); !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("missing required section: %s", section))
			break
		}
		for _, sub := range req.Subsections {
			if !t.Has(section + "." + sub) {
				res.Errors = append(res.Errors, fmt.Sprintf("missing required subsection: %s.%s", section, sub))
			}
		}
	}
	if !found {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown section: %s", section))
	}
	res.StructuralErrors = len(res.Errors)

	v.checkRules(t, res, section+".")

	res.Valid = len(res.Errors) == 0
	return res
}

// ValidateStructure runs only the structural pass
func (v *Validator) ValidateStructure(t Tree) *Result {
	res := &Result{Errors: []string{}, Warnings: []string{}}
	v.checkStructure(t, res)
	res.StructuralErrors = len(res.Errors)
	res.Valid = len(res.Errors) == 0
	return res
}

// ValidateEnhanced runs the full validation and additionally extracts
// security issues, port conflicts, and performance warnings as first-class
// lists, plus the production-readiness verdict.
func (v *Validator) ValidateEnhanced(t Tree) *EnhancedResult {
	res := &EnhancedResult{
		Result:              *v.Validate(t),
		SecurityIssues:      []string{},
		PortConflicts:       []string{},
		PerformanceWarnings: []string{},
		FailsafeApplied:     []string{},
	}

	// Security issue extraction
	sandboxed := t.GetBool("core.security.sandboxed", false)
	allowShell := t.GetBool("core.security.allowShellAccess", false)
	if !sandboxed && allowShell {
		res.SecurityIssues = append(res.SecurityIssues,
			"sandboxing disabled while shell access is allowed")
	}
	if hosts := t.GetStringSlice("core.security.trustedHosts", nil); len(hosts) == 0 {
		res.SecurityIssues = append(res.SecurityIssues, "trusted host list is empty")
	}

	// Port conflict extraction
	res.PortConflicts = append(res.PortConflicts, findPortConflicts(t)...)

	// Performance warning extraction
	if agents := t.GetNumber("coordination.maxAgents", 0); agents > maxSaneAgents {
		res.PerformanceWarnings = append(res.PerformanceWarnings,
			fmt.Sprintf("coordination.maxAgents=%d may exhaust scheduler capacity", int(agents)))
	}
	if t.GetString("core.logger.level", "") == "debug" {
		res.PerformanceWarnings = append(res.PerformanceWarnings,
			"debug-level logging degrades throughput")
	}

	res.ProductionReady = res.Valid &&
		len(res.SecurityIssues) == 0 &&
		len(res.PortConflicts) == 0 &&
		sandboxed

	return res
}

// ProductionFindings evaluates the unified production policy table.
// Blocking findings halt a production deployment; advisory findings inform.
func (v *Validator) ProductionFindings(t Tree) (blocking, advisory []string) {
	for _, policy := range productionPolicies {
		if policySatisfied(t, policy) {
			continue
		}
		if policy.Blocking {
			blocking = append(blocking, policy.Message)
		} else {
			advisory = append(advisory, policy.Message)
		}
	}
	return blocking, advisory
}

// checkStructure verifies the fixed list of required sections and
// subsections. Absence is an error, not a warning.
func (v *Validator) checkStructure(t Tree, res *Result) {
	for _, req := range requiredStructure {
		if _, ok := t.Section(req.Name); !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("missing required section: %s", req.Name))
			continue
		}
		for _, sub := range req.Subsections {
			if !t.Has(req.Name + "." + sub) {
				res.Errors = append(res.Errors,
					fmt.Sprintf("missing required subsection: %s.%s", req.Name, sub))
			}
		}
	}
}

// checkRules applies the static per-key rule table. A rule whose path is
// absent from the tree draws a warning only (the key is optional); type,
// enum, and range violations are errors.
func (v *Validator) checkRules(t Tree, res *Result, pathPrefix string) {
	for _, r := range ruleTable {
		if pathPrefix != "" && !strings.HasPrefix(r.Path, pathPrefix) {
			continue
		}

		val, ok := t.Get(r.Path)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("optional key not set: %s", r.Path))
			continue
		}

		switch r.Type {
		case kindString:
			str, isStr := val.(string)
			if !isStr {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s: expected string, got %T", r.Path, val))
				continue
			}
			if len(r.Enum) > 0 && !containsString(r.Enum, str) {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s: %q not in allowed values [%s]", r.Path, str, strings.Join(r.Enum, ", ")))
			}

		case kindNumber:
			n, isNum := toNumber(val)
			if !isNum {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s: expected number, got %T", r.Path, val))
				continue
			}
			min, max := r.Min, r.Max
			if v.production {
				if r.ProdMin != nil {
					min = r.ProdMin
				}
				if r.ProdMax != nil {
					max = r.ProdMax
				}
			}
			if min != nil && n < *min {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s: %v below minimum %v", r.Path, n, *min))
			}
			if max != nil && n > *max {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s: %v above maximum %v", r.Path, n, *max))
			}

		case kindBool:
			if _, isBool := val.(bool); !isBool {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s: expected boolean, got %T", r.Path, val))
			}

		case kindArray:
			switch val.(type) {
			case []any, []string:
			default:
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s: expected array, got %T", r.Path, val))
			}
		}
	}
}

// checkDependencies applies cross-key implication rules
func (v *Validator) checkDependencies(t Tree, res *Result) {
	// HTTPS without CORS origins leaves browsers unable to reach the API
	if t.GetBool("interfaces.web.https", false) {
		if origins := t.GetStringSlice("interfaces.web.corsOrigins", nil); len(origins) == 0 {
			res.Warnings = append(res.Warnings,
				"interfaces.web.https enabled without interfaces.web.corsOrigins")
		}
	}

	// CUDA acceleration still needs the WASM runtime for fallback kernels
	if t.GetBool("neural.enableCUDA", false) && !t.GetBool("neural.enableWASM", false) {
		res.Warnings = append(res.Warnings,
			"neural.enableCUDA enabled without neural.enableWASM")
	}

	// A persistent memory backend requires its sibling database block
	backend := t.GetString("storage.memory.backend", "")
	if (backend == "sqlite" || backend == "json") && !t.Has("storage.database") {
		res.Errors = append(res.Errors,
			fmt.Sprintf("storage.memory.backend=%s requires a storage.database block", backend))
	}

	// Shell access without sandboxing: advisory in development, a blocking
	// error under production enforcement
	if t.GetBool("core.security.allowShellAccess", false) &&
		!t.GetBool("core.security.sandboxed", false) {
		msg := "core.security.allowShellAccess enabled without core.security.sandboxed"
		if v.production {
			res.Errors = append(res.Errors, msg)
		} else {
			res.Warnings = append(res.Warnings, msg)
		}
	}
}

// checkConstraints applies global consistency rules
func (v *Validator) checkConstraints(t Tree, res *Result) {
	// Duplicate listen ports across distinct services
	res.Errors = append(res.Errors, findPortConflicts(t)...)

	// Cache must fit inside the memory ceiling
	maxSize := t.GetNumber("storage.memory.maxSizeMB", 0)
	cacheSize := t.GetNumber("storage.memory.cacheSizeMB", 0)
	if maxSize > 0 && cacheSize > maxSize {
		res.Errors = append(res.Errors,
			fmt.Sprintf("storage.memory.cacheSizeMB (%v) exceeds storage.memory.maxSizeMB (%v)", cacheSize, maxSize))
	}

	// Agent counts beyond the advisory ceiling
	if agents := t.GetNumber("coordination.maxAgents", 0); agents > maxSaneAgents {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("coordination.maxAgents=%d exceeds the advisory ceiling of %d", int(agents), maxSaneAgents))
	}

	// Timeout sanity: below 1s is usually a unit mistake, above 5m hides hangs
	for _, path := range timeoutPaths {
		if val, ok := t.Get(path); ok {
			if n, isNum := toNumber(val); isNum && (n < timeoutFloorMs || n > timeoutCeilingMs) {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("%s=%v outside sane range [%d, %d] ms", path, n, timeoutFloorMs, timeoutCeilingMs))
			}
		}
	}

	// Filesystem paths must not climb out of their configured roots
	for _, path := range filesystemPaths {
		if val, ok := t.Get(path); ok {
			if str, isStr := val.(string); isStr && containsTraversal(str) {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("%s contains a parent-directory traversal segment: %s", path, str))
			}
		}
	}
}

// findPortConflicts returns one message per duplicated port value,
// naming the port and every service configured on it.
func findPortConflicts(t Tree) []string {
	byPort := make(map[int][]string)
	for _, sp := range servicePorts {
		if val, ok := t.Get(sp.Path); ok {
			if n, isNum := toNumber(val); isNum {
				port := int(n)
				byPort[port] = append(byPort[port], sp.Service)
			}
		}
	}

	ports := make([]int, 0, len(byPort))
	for port, services := range byPort {
		if len(services) > 1 {
			ports = append(ports, port)
		}
	}
	sort.Ints(ports)

	conflicts := make([]string, 0, len(ports))
	for _, port := range ports {
		conflicts = append(conflicts,
			fmt.Sprintf("port conflict: %s share port %d", strings.Join(byPort[port], " and "), port))
	}
	return conflicts
}

// containsTraversal checks a path string for a ".." segment
func containsTraversal(path string) bool {
	for _, segment := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
