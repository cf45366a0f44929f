package config

// valueKind declares the authoritative runtime type of a configured leaf
type valueKind string

const (
	kindString valueKind = "string"
	kindNumber valueKind = "number"
	kindBool   valueKind = "boolean"
	kindArray  valueKind = "array"
)

// requiredSection names a mandatory top-level section and its mandatory
// nested subsections. Absence of either is a structural error.
type requiredSection struct {
	Name        string
	Subsections []string
}

// requiredStructure is the fixed list of sections every valid tree carries
var requiredStructure = []requiredSection{
	{Name: "core", Subsections: []string{"logger", "performance", "security"}},
	{Name: "interfaces", Subsections: []string{"shared", "terminal", "web", "mcp"}},
	{Name: "storage", Subsections: []string{"memory", "database"}},
	{Name: "coordination"},
	{Name: "neural"},
	{Name: "optimization"},
}

// rule is one entry of the static per-key validation table. Min/Max bound
// numeric values; ProdMin/ProdMax tighten the bound under production policy.
type rule struct {
	Path    string
	Type    valueKind
	Enum    []string
	Min     *float64
	Max     *float64
	ProdMin *float64
	ProdMax *float64
}

func f(v float64) *float64 { return &v }

// ruleTable is the static per-key validation table, keyed by dotted path
var ruleTable = []rule{
	{Path: "core.logger.level", Type: kindString, Enum: []string{"debug", "info", "warn", "error"}},
	{Path: "core.logger.format", Type: kindString, Enum: []string{"json", "text"}},
	{Path: "core.performance.maxConcurrency", Type: kindNumber, Min: f(1), Max: f(64)},
	{Path: "core.security.sandboxed", Type: kindBool},
	{Path: "core.security.allowShellAccess", Type: kindBool},
	{Path: "core.security.trustedHosts", Type: kindArray},
	{Path: "interfaces.web.port", Type: kindNumber, Min: f(1), Max: f(65535), ProdMin: f(1024)},
	{Path: "interfaces.mcp.http.port", Type: kindNumber, Min: f(1), Max: f(65535)},
	{Path: "interfaces.mcp.transport", Type: kindString, Enum: []string{"stdio", "http"}},
	{Path: "storage.memory.backend", Type: kindString, Enum: []string{"sqlite", "json", "memory"}},
	{Path: "storage.memory.maxSizeMB", Type: kindNumber, Min: f(64), ProdMin: f(128)},
	{Path: "storage.database.maxConnections", Type: kindNumber, Min: f(1), Max: f(100)},
	{Path: "coordination.topology", Type: kindString, Enum: []string{"hierarchical", "mesh", "ring", "star"}},
	{Path: "coordination.maxAgents", Type: kindNumber, Min: f(1), Max: f(100), ProdMax: f(50)},
	{Path: "neural.backend", Type: kindString, Enum: []string{"wasm", "cuda", "cpu"}},
	{Path: "optimization.batchSize", Type: kindNumber, Min: f(1), Max: f(4096)},
}

// servicePort names one port-bearing service for collision detection
type servicePort struct {
	Service string
	Path    string
}

// servicePorts lists every configured listen port; duplicates across
// distinct services are a constraint error.
var servicePorts = []servicePort{
	{Service: "web", Path: "interfaces.web.port"},
	{Service: "mcp", Path: "interfaces.mcp.http.port"},
}

// timeoutPaths are the timeout-class values checked for sanity
// (below 1 second or above 5 minutes draws a warning)
var timeoutPaths = []string{
	"core.performance.timeoutMs",
	"core.security.maxExecutionTimeMs",
	"interfaces.shared.defaultTimeoutMs",
	"storage.database.timeoutMs",
}

// filesystemPaths are the path-valued keys checked for traversal segments
var filesystemPaths = []string{
	"storage.memory.persistPath",
	"storage.database.path",
	"neural.modelPath",
}

const (
	timeoutFloorMs   = 1000
	timeoutCeilingMs = 300000

	// maxSaneAgents is the advisory ceiling before the scheduler saturates
	maxSaneAgents = 50
)

// productionPolicy is one entry of the unified production policy table.
// It drives both the validator's production escalations and the startup
// runner's environment category, so a setting is never listed twice with
// diverging severity.
type productionPolicy struct {
	Path     string
	Required any  // value the path must hold in production
	Blocking bool // true: deployment blocker; false: advisory
	Message  string
}

var productionPolicies = []productionPolicy{
	{
		Path:     "core.security.sandboxed",
		Required: true,
		Blocking: true,
		Message:  "core.security.sandboxed must be true in production",
	},
	{
		Path:     "core.security.allowShellAccess",
		Required: false,
		Blocking: true,
		Message:  "core.security.allowShellAccess must be false in production",
	},
	{
		Path:     "core.logger.level",
		Required: "info|warn|error",
		Blocking: false,
		Message:  "debug-level logging is discouraged in production",
	},
	{
		Path:     "core.performance.enableProfiling",
		Required: false,
		Blocking: false,
		Message:  "profiling should be disabled in production",
	},
}

// policySatisfied checks one production policy entry against a tree value.
// A string Required of the form "a|b|c" is an allowed-value set.
func policySatisfied(t Tree, p productionPolicy) bool {
	val, ok := t.Get(p.Path)
	if !ok {
		// Absent values fall back to defaults, which satisfy policy
		return true
	}

	switch want := p.Required.(type) {
	case bool:
		got, ok := val.(bool)
		return ok && got == want
	case string:
		got, ok := val.(string)
		if !ok {
			return false
		}
		for _, allowed := range splitPipe(want) {
			if got == allowed {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func splitPipe(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '|' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
