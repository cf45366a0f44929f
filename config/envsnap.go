package config

import (
	"os"
	"strings"
)

// Environment runtime names recognized in the snapshot
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// envRuntimeVar selects the runtime environment for policy decisions
	envRuntimeVar = "CONFKIT_ENV"
)

// Snapshot is an immutable capture of the process environment taken once at
// startup and injected into the Loader. No other part of the subsystem reads
// process environment or arguments directly.
type Snapshot struct {
	vars map[string]string
	args []string
}

// CaptureEnvironment snapshots the current process environment and arguments
func CaptureEnvironment() Snapshot {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx > 0 {
			vars[kv[:idx]] = kv[idx+1:]
		}
	}

	args := make([]string, len(os.Args)-1)
	copy(args, os.Args[1:])

	return Snapshot{vars: vars, args: args}
}

// NewSnapshot builds a snapshot from explicit values, used by tests and by
// callers that manage their own argument parsing.
func NewSnapshot(vars map[string]string, args []string) Snapshot {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	copiedArgs := make([]string, len(args))
	copy(copiedArgs, args)
	return Snapshot{vars: copied, args: copiedArgs}
}

// Lookup returns the value of a captured environment variable
func (s Snapshot) Lookup(key string) (string, bool) {
	v, ok := s.vars[key]
	return v, ok
}

// Args returns a copy of the captured process arguments
func (s Snapshot) Args() []string {
	out := make([]string, len(s.args))
	copy(out, s.args)
	return out
}

// Runtime returns the runtime environment name, defaulting to development
// when the selector variable is unset or unrecognized.
func (s Snapshot) Runtime() string {
	if v, ok := s.vars[envRuntimeVar]; ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case EnvProduction, "prod":
			return EnvProduction
		}
	}
	return EnvDevelopment
}

// IsProduction reports whether the snapshot was taken in production
func (s Snapshot) IsProduction() bool {
	return s.Runtime() == EnvProduction
}
