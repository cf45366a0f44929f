// Package main implements the entry point for the ConfKit configuration
// service: it loads and validates the merged configuration, optionally
// serves the HTTP gateway, and keeps the configuration hot-reloadable.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/confkit/config"
	"github.com/c360/confkit/gateway"
	"github.com/c360/confkit/health"
	"github.com/c360/confkit/metric"
	"github.com/c360/confkit/startup"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "confkit"
)

// exitError carries a blocking validation verdict; main maps it to the
// requested exit code without the generic failure log
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		if exit, ok := err.(exitError); ok {
			os.Exit(exit.code)
		}
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// The snapshot is the single environment read for the whole process
	env := config.CaptureEnvironment()

	registry := metric.NewRegistry()
	manager := config.NewManager(env, slog.Default(), config.ManagerOptions{
		Watch:   cliCfg.Watch,
		Metrics: registry.CoreMetrics(),
	})

	result, err := manager.Initialize(cliCfg.ConfigPaths...)
	if err != nil {
		return fmt.Errorf("initialize configuration: %w", err)
	}
	defer func() { _ = manager.Stop(cliCfg.ShutdownTimeout) }()

	// Boot-time validation runs against the tree the manager committed
	tree, err := manager.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot configuration: %w", err)
	}

	runner := startup.NewRunner(env, slog.Default())
	verdict := runner.Run(tree, startup.Options{
		Strict: cliCfg.Strict,
		Skip:   cliCfg.SkipCategories,
		Output: startup.OutputMode(cliCfg.Output),
	})

	assessor := health.NewAssessor(config.NewValidator(env))
	registry.CoreMetrics().RecordHealthScore(assessor.FromResult(result, false).Score)

	if cliCfg.Validate {
		if verdict.ExitCode != 0 {
			return exitError{code: verdict.ExitCode}
		}
		return nil
	}
	if verdict.ExitCode != 0 {
		return exitError{code: verdict.ExitCode}
	}

	return serve(cliCfg, manager, assessor, registry)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	// The --env flag overrides the runtime environment selector before the
	// snapshot is captured
	if cliCfg.Env != "" {
		if err := os.Setenv("CONFKIT_ENV", cliCfg.Env); err != nil {
			return nil, false, fmt.Errorf("set runtime environment: %w", err)
		}
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting ConfKit",
		"version", Version,
		"build_time", BuildTime,
		"config_paths", cliCfg.ConfigPaths)

	return cliCfg, false, nil
}

// serve runs the gateway (when enabled) until a shutdown signal arrives
func serve(cliCfg *CLIConfig, manager *config.Manager, assessor *health.Assessor,
	registry *metric.Registry) error {

	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	var server *gateway.Server
	serverErr := make(chan error, 1)

	if cliCfg.HTTPPort > 0 {
		server = gateway.NewServer(cliCfg.HTTPPort, manager, assessor, registry, slog.Default())
		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				serverErr <- err
			}
		}()
	}

	slog.Info("ConfKit started", "http_port", cliCfg.HTTPPort, "watch", cliCfg.Watch)

	select {
	case err := <-serverErr:
		return fmt.Errorf("gateway failed: %w", err)
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	}

	if server != nil {
		if err := server.Stop(cliCfg.ShutdownTimeout); err != nil {
			slog.Error("Gateway shutdown failed", "error", err)
		}
	}
	if err := manager.Stop(cliCfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("stop configuration manager: %w", err)
	}

	slog.Info("ConfKit shutdown complete")
	return nil
}
