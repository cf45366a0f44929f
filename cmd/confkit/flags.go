package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPaths     []string
	Env             string
	LogLevel        string
	LogFormat       string
	Output          string
	SkipCategories  []string
	HTTPPort        int
	Watch           bool
	Strict          bool
	Validate        bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
}

// stringList is a repeatable flag value
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	var paths stringList
	flag.Var(&paths, "config",
		"Path to a configuration file, repeatable (env: CONFKIT_CONFIG)")
	flag.Var(&paths, "c",
		"Path to a configuration file, repeatable (env: CONFKIT_CONFIG)")

	flag.StringVar(&cfg.Env, "env",
		getEnv("CONFKIT_ENV", ""),
		"Runtime environment: development, production (env: CONFKIT_ENV)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("CONFKIT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: CONFKIT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("CONFKIT_LOG_FORMAT", "json"),
		"Log format: json, text (env: CONFKIT_LOG_FORMAT)")

	flag.StringVar(&cfg.Output, "output",
		getEnv("CONFKIT_OUTPUT", "text"),
		"Validation output: text, json, silent (env: CONFKIT_OUTPUT)")

	var skip string
	flag.StringVar(&skip, "skip",
		getEnv("CONFKIT_SKIP", ""),
		"Comma-separated validation categories to skip (env: CONFKIT_SKIP)")

	flag.IntVar(&cfg.HTTPPort, "http-port",
		getEnvInt("CONFKIT_HTTP_PORT", 8080),
		"Gateway HTTP port, 0 to disable (env: CONFKIT_HTTP_PORT)")

	flag.BoolVar(&cfg.Watch, "watch",
		getEnvBool("CONFKIT_WATCH", true),
		"Reload configuration on file changes (env: CONFKIT_WATCH)")

	flag.BoolVar(&cfg.Strict, "strict", false,
		"Treat validation errors as blockers outside production")

	flag.BoolVar(&cfg.Validate, "validate", false,
		"Validate configuration and exit")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("CONFKIT_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: CONFKIT_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	flag.Usage = printDetailedHelp

	flag.Parse()

	cfg.ConfigPaths = paths
	if len(cfg.ConfigPaths) == 0 {
		if envPath := os.Getenv("CONFKIT_CONFIG"); envPath != "" {
			cfg.ConfigPaths = []string{envPath}
		}
	}

	if skip != "" {
		for _, name := range strings.Split(skip, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				cfg.SkipCategories = append(cfg.SkipCategories, trimmed)
			}
		}
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Explicit config paths must exist; the built-in search list is only
	// consulted when no paths are given
	for _, path := range cfg.ConfigPaths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config file not found: %s", path)
		}
	}

	if cfg.Env != "" && !contains([]string{"development", "production", "prod"}, cfg.Env) {
		return fmt.Errorf("invalid environment: %s", cfg.Env)
	}

	if !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if !contains([]string{"text", "json", "silent"}, cfg.Output) {
		return fmt.Errorf("invalid output mode: %s", cfg.Output)
	}

	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", cfg.HTTPPort)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Configuration Management Service

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with an explicit config file
  %s --config=/etc/confkit/config.json

  # Validate configuration and exit (0 = pass, 1 = blockers found)
  %s --validate --strict --output=json

  # Production validation with machine-readable output
  CONFKIT_ENV=production %s --validate --output=json

  # Run the gateway without file watching
  %s --watch=false --http-port=9090

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
