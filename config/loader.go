package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/c360/confkit/errors"
)

// cliArgPrefix marks process arguments that carry configuration overrides
const cliArgPrefix = "--config."

// Loader assembles the merged configuration tree from every recognized
// source. Sources are rebuilt fresh on each Load call; recoverable
// per-source failures are logged and skipped, never thrown.
type Loader struct {
	env    Snapshot
	logger *slog.Logger
}

// NewLoader creates a loader over an injected environment snapshot
func NewLoader(env Snapshot, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{env: env, logger: logger}
}

// SearchPaths returns the fixed fallback list of config file locations,
// tried in order when no explicit paths are given.
func SearchPaths() []string {
	paths := []string{
		filepath.Join("config", "confkit.json"),
		"confkit.config.json",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".confkit", "config.json"))
	}
	paths = append(paths, filepath.Join("/etc", "confkit", "config.json"))
	return paths
}

// ResolvePaths returns the subset of candidate file paths that exist.
// With no explicit paths the fixed search list is used. The manager watches
// exactly this set for hot reload.
func (l *Loader) ResolvePaths(explicit ...string) []string {
	candidates := explicit
	if len(candidates) == 0 {
		candidates = SearchPaths()
	}

	var resolved []string
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			resolved = append(resolved, path)
		}
	}
	return resolved
}

// Load builds and merges all sources in ascending priority order, then runs
// the validator over the final tree. Only default-table corruption
// propagates as an error; every per-source failure is downgraded to a
// warning plus a failsafe note in the result.
func (l *Loader) Load(explicit ...string) (Tree, *EnhancedResult, error) {
	var sources []Source
	var failsafes []string

	// Priority 0: the compiled-in default table
	defaults, err := DefaultTree()
	if err != nil {
		return nil, nil, err
	}
	sources = append(sources, NewSource(SourceDefaults, "defaults", defaults))

	// Priority 10: configuration files
	fileSources, fileFailsafes := l.loadFiles(explicit)
	sources = append(sources, fileSources...)
	failsafes = append(failsafes, fileFailsafes...)

	// Priority 20: recognized environment variables
	envSource, envFailsafes := l.loadEnvironment()
	if len(envSource.Payload) > 0 {
		sources = append(sources, envSource)
	}
	failsafes = append(failsafes, envFailsafes...)

	// Priority 30: --config.<dotted.path> arguments
	cliSource := l.loadCLI()
	if len(cliSource.Payload) > 0 {
		sources = append(sources, cliSource)
	}

	// Ascending priority; stable so same-priority files keep list order
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority < sources[j].Priority
	})

	merged := Tree{}
	for _, src := range sources {
		merged = Merge(merged, src.Payload)
	}

	validator := NewValidator(l.env)
	result := validator.ValidateEnhanced(merged)
	result.FailsafeApplied = append(result.FailsafeApplied, failsafes...)
	result.Warnings = append(result.Warnings, failsafes...)

	return merged, result, nil
}

// loadFiles parses each candidate config file. A missing or broken file is
// not fatal: it is skipped with a logged warning and a failsafe note.
func (l *Loader) loadFiles(explicit []string) ([]Source, []string) {
	candidates := explicit
	usingSearchList := len(candidates) == 0
	if usingSearchList {
		candidates = SearchPaths()
	}

	var sources []Source
	var failsafes []string

	for _, path := range candidates {
		payload, err := l.loadFile(path)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) && usingSearchList {
				// Absent search-list locations are expected, skip silently
				continue
			}
			l.logger.Warn("Skipping unreadable config file", "path", path, "error", err)
			failsafes = append(failsafes, fmt.Sprintf("config file skipped: %s", path))
			continue
		}
		sources = append(sources, NewSource(SourceFile, path, payload))
	}

	return sources, failsafes
}

// loadFile reads and parses one JSON config file with security validation
func (l *Loader) loadFile(path string) (Tree, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, errors.WrapTransient(err, "Loader", "loadFile", "read config file")
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "loadFile", "validate JSON structure")
	}

	var payload Tree
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "loadFile", "parse JSON")
	}

	return payload, nil
}

// loadEnvironment scans the static registry of recognized variables and
// coerces each present value per its declared type. Invalid coercion drops
// the variable with a warning, never a crash.
func (l *Loader) loadEnvironment() (Source, []string) {
	payload := Tree{}
	var failsafes []string

	for _, binding := range envRegistry {
		raw, ok := l.env.Lookup(binding.Name)
		if !ok || raw == "" {
			continue
		}

		if err := validateEnvValue(binding.Name, raw); err != nil {
			l.logger.Warn("Dropping invalid environment variable", "name", binding.Name, "error", err)
			failsafes = append(failsafes, fmt.Sprintf("environment variable dropped: %s", binding.Name))
			continue
		}

		coerced, err := coerceEnvValue(binding, raw)
		if err != nil {
			l.logger.Warn("Dropping uncoercible environment variable",
				"name", binding.Name, "declared_type", string(binding.Type), "error", err)
			failsafes = append(failsafes, fmt.Sprintf("environment variable dropped: %s", binding.Name))
			continue
		}

		payload.Set(binding.Path, coerced)
	}

	return NewSource(SourceEnvironment, "environment", payload), failsafes
}

// loadCLI scans the snapshot's arguments for --config.<dotted.path> pairs.
// Values may follow as the next token or be =-joined.
func (l *Loader) loadCLI() Source {
	payload := Tree{}
	args := l.env.Args()

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, cliArgPrefix) {
			continue
		}

		key := strings.TrimPrefix(arg, cliArgPrefix)
		var raw string

		if idx := strings.IndexByte(key, '='); idx >= 0 {
			raw = key[idx+1:]
			key = key[:idx]
		} else {
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				l.logger.Warn("Ignoring config argument without value", "arg", arg)
				continue
			}
			raw = args[i+1]
			i++
		}

		if key == "" {
			continue
		}

		payload.Set(key, coerceCLIValue(raw))
	}

	return NewSource(SourceCLI, "cli", payload)
}

// coerceCLIValue guesses the type of a CLI override: JSON-looking values
// are JSON-parsed, true/false become booleans, numeric-looking strings
// become numbers, everything else stays a string.
func coerceCLIValue(raw string) any {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
		return raw
	}

	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	}

	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n
	}

	return raw
}
