// Package config implements ConfKit's configuration subsystem: source
// loading and priority merging, rule-based validation, and a hot-reload
// manager with history, rollback and change events.
//
// # Sources and Merging
//
// Four source kinds feed the merged tree, in ascending priority:
//
//  1. Defaults (priority 0): the compiled-in default table
//  2. Files (priority 10): JSON config files, explicit or from the search list
//  3. Environment (priority 20): recognized CONFKIT_* variables
//  4. CLI (priority 30): --config.<dotted.path> process arguments
//
// Merging is deep for maps and wholesale for everything else: nested maps
// merge key by key, while arrays and scalars from a higher-priority source
// replace the lower value entirely. Merging a tree with itself is a no-op.
//
// # Validation
//
// The Validator runs four accumulating passes (structure, per-key rules,
// cross-key dependencies, constraints) and never stops at the first
// finding. ValidateEnhanced additionally derives security issues, port
// conflicts, performance warnings and a production-readiness verdict.
//
// # Manager
//
// The Manager owns the active tree. Loads are serialized through an atomic
// state guard; concurrent loaders observe ErrAlreadyLoading instead of
// queueing. Runtime updates validate on a scratch copy and commit
// all-or-nothing. Accepted mutations append to a bounded history ring and
// fan out as Events, delivered strictly after the new state is readable.
//
// Basic usage:
//
//	env := config.CaptureEnvironment()
//	mgr := config.NewManager(env, logger, config.ManagerOptions{Watch: true})
//	result, err := mgr.Initialize("confkit.config.json")
package config
