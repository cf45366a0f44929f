package config

import (
	"fmt"
	"strconv"
	"strings"
)

// envValueType declares how an environment variable string is coerced
type envValueType string

const (
	envString envValueType = "string"
	envNumber envValueType = "number"
	envBool   envValueType = "boolean"
	envArray  envValueType = "array"
)

// envBinding maps one recognized environment variable onto a dotted path.
// Parse, when set, replaces the default coercion for the declared type.
type envBinding struct {
	Name  string
	Path  string
	Type  envValueType
	Parse func(raw string) (any, error)
}

// envRegistry is the static registry of recognized environment variables.
// Scanned in order on every load; order is stable for deterministic warnings.
var envRegistry = []envBinding{
	{Name: "CONFKIT_LOG_LEVEL", Path: "core.logger.level", Type: envString},
	{Name: "CONFKIT_LOG_FORMAT", Path: "core.logger.format", Type: envString},
	{Name: "CONFKIT_MAX_CONCURRENCY", Path: "core.performance.maxConcurrency", Type: envNumber},
	{Name: "CONFKIT_SANDBOXED", Path: "core.security.sandboxed", Type: envBool},
	{Name: "CONFKIT_ALLOW_SHELL", Path: "core.security.allowShellAccess", Type: envBool},
	{Name: "CONFKIT_TRUSTED_HOSTS", Path: "core.security.trustedHosts", Type: envArray},
	{Name: "CONFKIT_WEB_PORT", Path: "interfaces.web.port", Type: envNumber},
	{Name: "CONFKIT_CORS_ORIGINS", Path: "interfaces.web.corsOrigins", Type: envArray},
	{Name: "CONFKIT_MCP_PORT", Path: "interfaces.mcp.http.port", Type: envNumber},
	{Name: "CONFKIT_MEMORY_BACKEND", Path: "storage.memory.backend", Type: envString},
	{Name: "CONFKIT_MEMORY_MAX_MB", Path: "storage.memory.maxSizeMB", Type: envNumber},
	{Name: "CONFKIT_DB_MAX_CONNECTIONS", Path: "storage.database.maxConnections", Type: envNumber},
	{Name: "CONFKIT_MAX_AGENTS", Path: "coordination.maxAgents", Type: envNumber},
	{Name: "CONFKIT_TOPOLOGY", Path: "coordination.topology", Type: envString},
	{Name: "CONFKIT_NEURAL_BACKEND", Path: "neural.backend", Type: envString},
}

// coerceEnvValue converts a raw environment string per the binding's
// declared type. The default array parser splits on comma and trims.
func coerceEnvValue(binding envBinding, raw string) (any, error) {
	if binding.Parse != nil {
		return binding.Parse(raw)
	}

	switch binding.Type {
	case envString:
		return raw, nil
	case envNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: not a number: %q", binding.Name, raw)
		}
		return n, nil
	case envBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: not a boolean: %q", binding.Name, raw)
		}
		return b, nil
	case envArray:
		parts := strings.Split(raw, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: unknown declared type %q", binding.Name, binding.Type)
	}
}
