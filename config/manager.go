package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/c360/confkit/errors"
	"github.com/c360/confkit/metric"
)

// State is the manager lifecycle state
type State int32

// Manager states. Transitions: uninitialized -> loading -> ready, and
// ready -> loading -> ready on reload. The loading state is a mutual
// exclusion guard; a second loader observes ErrAlreadyLoading.
const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

// String returns the lifecycle state name
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// defaultHistoryLimit bounds the retained snapshot ring
const defaultHistoryLimit = 10

// subscriberBuffer is the per-subscriber event channel depth
const subscriberBuffer = 16

// HistoryEntry is one retained configuration snapshot
type HistoryEntry struct {
	Tree      Tree      `json:"tree"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// ManagerOptions tunes manager behavior. The zero value is usable.
type ManagerOptions struct {
	// HistoryLimit bounds the snapshot ring; <=0 means the default of 10
	HistoryLimit int
	// DebounceInterval is the watch quiet period; <=0 means one second
	DebounceInterval time.Duration
	// Watch enables file watching after a successful Initialize
	Watch bool
	// Metrics receives lifecycle counters when non-nil
	Metrics *metric.Metrics
}

// Manager owns the active configuration tree and serializes every mutation.
// Reads never block behind loads; they take the read lock only.
type Manager struct {
	loader  *Loader
	env     Snapshot
	logger  *slog.Logger
	opts    ManagerOptions
	state   atomic.Int32
	stopped atomic.Bool

	mu      sync.RWMutex
	tree    Tree
	result  *EnhancedResult
	history []HistoryEntry
	paths   []string

	watchMu sync.Mutex
	watcher *fileWatcher

	subMu       sync.Mutex
	subscribers map[string]chan Event
}

// NewManager creates an uninitialized manager. Initialize must be called
// before Get, Update, Reload, Rollback or Export.
func NewManager(env Snapshot, logger *slog.Logger, opts ManagerOptions) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.DebounceInterval <= 0 {
		opts.DebounceInterval = defaultDebounce
	}
	return &Manager{
		loader: NewLoader(env, logger),
		env:    env,
		logger: logger,
		opts:   opts,
	}
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Initialize performs the first full load. If the merged tree fails
// validation the manager falls back to the default table wholesale and
// remains operational; only default-table corruption is fatal.
func (m *Manager) Initialize(paths ...string) (*EnhancedResult, error) {
	if m.stopped.Load() {
		return nil, errors.ErrStopped
	}
	if !m.state.CompareAndSwap(int32(StateUninitialized), int32(StateLoading)) {
		if m.State() == StateLoading {
			return nil, errors.WrapTransient(errors.ErrAlreadyLoading, "Manager", "Initialize", "acquire load guard")
		}
		return nil, errors.WrapInvalid(fmt.Errorf("manager already initialized"), "Manager", "Initialize", "check state")
	}

	result, err := m.load(paths, string(OriginRuntime), EventLoaded)
	if err != nil {
		m.state.Store(int32(StateUninitialized))
		return nil, err
	}

	m.state.Store(int32(StateReady))

	if m.opts.Watch {
		m.rebuildWatcher()
	}

	return result, nil
}

// Reload re-reads every source against the recorded paths. The active tree
// is replaced only when the fresh tree validates; a rejected reload leaves
// the active tree untouched and emits an error event.
func (m *Manager) Reload() (*EnhancedResult, error) {
	if m.stopped.Load() {
		return nil, errors.ErrStopped
	}
	if !m.state.CompareAndSwap(int32(StateReady), int32(StateLoading)) {
		switch m.State() {
		case StateLoading:
			return nil, errors.WrapTransient(errors.ErrAlreadyLoading, "Manager", "Reload", "acquire load guard")
		default:
			return nil, errors.WrapInvalid(errors.ErrNotInitialized, "Manager", "Reload", "check state")
		}
	}
	defer m.state.Store(int32(StateReady))

	m.mu.RLock()
	paths := append([]string(nil), m.paths...)
	m.mu.RUnlock()

	return m.load(paths, string(OriginReload), EventChanged)
}

// load runs one full load cycle and commits the outcome. Callers hold the
// loading state; load itself takes the write lock only to commit.
func (m *Manager) load(paths []string, origin string, eventType EventType) (*EnhancedResult, error) {
	start := time.Now()

	tree, result, err := m.loader.Load(paths...)
	if err != nil {
		// Default table corruption, nothing to fall back to
		return nil, err
	}

	if m.opts.Metrics != nil {
		m.opts.Metrics.RecordLoadDuration(time.Since(start).Seconds())
	}

	if !result.Valid {
		if origin == string(OriginReload) {
			// Keep the last known-good tree; report and move on
			m.logger.Error("Reload rejected by validation", "errors", len(result.Errors))
			if m.opts.Metrics != nil {
				m.opts.Metrics.RecordReloadFailure()
			}
			event := newEvent(EventError, ChangeOrigin(origin))
			event.Result = result
			m.emit(event)
			return result, errors.WrapInvalid(errors.ErrInvalidConfig, "Manager", "load", "validate reloaded tree")
		}

		// Initial load: fall back to defaults wholesale so the process
		// can still come up
		m.logger.Error("Configuration invalid, falling back to defaults", "errors", len(result.Errors))
		defaults, derr := DefaultTree()
		if derr != nil {
			return nil, derr
		}
		tree = defaults
		result.FailsafeApplied = append(result.FailsafeApplied, "invalid configuration replaced with defaults")
	}

	m.mu.Lock()
	previous := m.tree

	// A reload that reproduces the active tree is not a change: commit the
	// fresh result but emit nothing
	var changed []string
	if eventType == EventChanged && previous != nil {
		changed = DiffPaths(previous, tree)
	}

	m.tree = tree
	m.result = result
	m.paths = paths
	m.appendHistoryLocked(HistoryEntry{Tree: tree.Clone(), Origin: origin, Timestamp: time.Now()})
	m.mu.Unlock()

	if m.opts.Metrics != nil {
		m.opts.Metrics.RecordReload(origin)
		m.opts.Metrics.RecordValidation(len(result.Errors), len(result.Warnings))
	}

	switch eventType {
	case EventChanged:
		// One event per differing path, each carrying the old and new value
		for _, path := range changed {
			oldVal, _ := previous.Get(path)
			newVal, _ := tree.Get(path)

			event := newEvent(EventChanged, ChangeOrigin(origin))
			event.Path = path
			event.OldValue = copyValue(oldVal)
			event.NewValue = copyValue(newVal)
			event.Result = result
			m.emit(event)
		}
	default:
		event := newEvent(eventType, ChangeOrigin(origin))
		event.Result = result
		m.emit(event)
	}

	m.logger.Info("Configuration loaded",
		"origin", origin,
		"files", len(paths),
		"changes", len(changed),
		"errors", len(result.Errors),
		"warnings", len(result.Warnings))

	return result, nil
}

// Get returns a deep copy of the value at a dotted path
func (m *Manager) Get(path string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.tree == nil {
		return nil, false, errors.ErrNotInitialized
	}

	val, ok := m.tree.Get(path)
	if !ok {
		return nil, false, nil
	}
	return copyValue(val), true, nil
}

// GetSection returns a deep copy of a top-level section
func (m *Manager) GetSection(name string) (Tree, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.tree == nil {
		return nil, errors.ErrNotInitialized
	}

	section, ok := m.tree.Section(name)
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown section %q", name), "Manager", "GetSection", "resolve section")
	}
	return section.Clone(), nil
}

// Snapshot returns a deep copy of the whole active tree
func (m *Manager) Snapshot() (Tree, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.tree == nil {
		return nil, errors.ErrNotInitialized
	}
	return m.tree.Clone(), nil
}

// LastResult returns the validation result of the active tree
func (m *Manager) LastResult() *EnhancedResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.result
}

// Update sets one dotted path on a scratch copy, revalidates the whole
// tree, and commits only when it passes. All-or-nothing: a rejected update
// leaves the active tree byte-for-byte unchanged.
func (m *Manager) Update(path string, value any) (*EnhancedResult, error) {
	if m.stopped.Load() {
		return nil, errors.ErrStopped
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tree == nil {
		return nil, errors.ErrNotInitialized
	}

	oldValue, _ := m.tree.Get(path)

	scratch := m.tree.Clone()
	scratch.Set(path, value)

	result := NewValidator(m.env).ValidateEnhanced(scratch)
	if !result.Valid {
		if m.opts.Metrics != nil {
			m.opts.Metrics.RecordUpdateRejection()
		}
		return result, errors.WrapInvalid(errors.ErrInvalidConfig, "Manager", "Update",
			fmt.Sprintf("validate update of %s", path))
	}

	m.tree = scratch
	m.result = result
	m.appendHistoryLocked(HistoryEntry{Tree: scratch.Clone(), Origin: string(OriginRuntime), Timestamp: time.Now()})

	if m.opts.Metrics != nil {
		m.opts.Metrics.RecordUpdate()
		m.opts.Metrics.RecordValidation(len(result.Errors), len(result.Warnings))
	}

	event := newEvent(EventChanged, OriginRuntime)
	event.Path = path
	event.OldValue = copyValue(oldValue)
	event.NewValue = copyValue(value)
	event.Result = result
	m.emit(event)

	return result, nil
}

// Rollback restores the configuration from n steps back in history.
// The restored snapshot is revalidated before commit; a snapshot that no
// longer validates (the environment may have changed) is refused.
// Rollback does not append to history, so repeated rollbacks walk further
// back rather than oscillating.
func (m *Manager) Rollback(steps int) (*EnhancedResult, error) {
	if m.stopped.Load() {
		return nil, errors.ErrStopped
	}
	if steps < 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("rollback steps must be positive, got %d", steps),
			"Manager", "Rollback", "validate steps")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tree == nil {
		return nil, errors.ErrNotInitialized
	}

	// history[len-1] is the active snapshot; steps=1 targets the one before
	idx := len(m.history) - 1 - steps
	if idx < 0 {
		return nil, errors.WrapInvalid(errors.ErrHistoryUnavailable, "Manager", "Rollback",
			fmt.Sprintf("reach %d steps back with %d entries", steps, len(m.history)))
	}

	candidate := m.history[idx].Tree.Clone()
	result := NewValidator(m.env).ValidateEnhanced(candidate)
	if !result.Valid {
		return result, errors.WrapInvalid(errors.ErrRollbackRefused, "Manager", "Rollback",
			"validate historical snapshot")
	}

	m.tree = candidate
	m.result = result
	m.history = m.history[:idx+1]

	if m.opts.Metrics != nil {
		m.opts.Metrics.RecordRollback()
		m.opts.Metrics.RecordValidation(len(result.Errors), len(result.Warnings))
	}

	event := newEvent(EventRollback, OriginRuntime)
	event.Result = result
	m.emit(event)

	m.logger.Info("Configuration rolled back", "steps", steps)

	return result, nil
}

// History returns the retained snapshots, oldest first
func (m *Manager) History() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]HistoryEntry, len(m.history))
	for i, entry := range m.history {
		out[i] = HistoryEntry{Tree: entry.Tree.Clone(), Origin: entry.Origin, Timestamp: entry.Timestamp}
	}
	return out
}

// appendHistoryLocked pushes a snapshot, evicting the oldest past the limit
func (m *Manager) appendHistoryLocked(entry HistoryEntry) {
	m.history = append(m.history, entry)
	if len(m.history) > m.opts.HistoryLimit {
		m.history = m.history[len(m.history)-m.opts.HistoryLimit:]
	}
}

// Export renders the active tree in the requested format ("json" or "yaml")
func (m *Manager) Export(format string) ([]byte, error) {
	tree, err := m.Snapshot()
	if err != nil {
		return nil, err
	}

	switch format {
	case "json", "":
		data, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return nil, errors.WrapFatal(err, "Manager", "Export", "marshal JSON")
		}
		return data, nil
	case "yaml":
		data, err := yaml.Marshal(map[string]any(tree))
		if err != nil {
			return nil, errors.WrapFatal(err, "Manager", "Export", "marshal YAML")
		}
		return data, nil
	default:
		return nil, errors.WrapInvalid(errors.ErrUnknownFormat, "Manager", "Export",
			fmt.Sprintf("render format %q", format))
	}
}

// Subscribe registers an event channel and returns it with a cancel
// function that deregisters and closes it. Events are delivered
// best-effort: a subscriber that stops draining loses events rather than
// blocking the manager. Cancel is idempotent; Stop closes any channels
// still registered.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	if m.subscribers == nil {
		m.subscribers = make(map[string]chan Event)
	}

	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	m.subscribers[id] = ch

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if registered, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(registered)
		}
	}
	return ch, cancel
}

// emit fans an event out to every subscriber without blocking
func (m *Manager) emit(event Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			m.logger.Warn("Dropping config event for slow subscriber", "event_id", event.ID, "type", string(event.Type))
		}
	}
}

// rebuildWatcher replaces the file watcher with one over the currently
// resolved paths. Called after each successful initialize so renamed or
// newly created files are picked up.
func (m *Manager) rebuildWatcher() {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()

	if m.watcher != nil {
		m.watcher.stop()
		m.watcher = nil
	}

	m.mu.RLock()
	paths := append([]string(nil), m.paths...)
	m.mu.RUnlock()

	resolved := m.loader.ResolvePaths(paths...)
	if len(resolved) == 0 {
		m.logger.Info("No config files present, file watching disabled")
		return
	}

	watcher, err := newFileWatcher(resolved, m.opts.DebounceInterval, m.onFileChange, m.logger)
	if err != nil {
		m.logger.Warn("Failed to create file watcher", "error", err)
		return
	}
	watcher.start()
	m.watcher = watcher
}

// onFileChange is the debounced watch callback
func (m *Manager) onFileChange() {
	if m.stopped.Load() {
		return
	}
	if m.opts.Metrics != nil {
		m.opts.Metrics.RecordWatchEvent()
	}
	if _, err := m.Reload(); err != nil {
		m.logger.Warn("Watched reload failed", "error", err)
	}
}

// Stop shuts the manager down: the watcher is torn down, subscriber
// channels are closed, and every subsequent mutating call returns
// ErrStopped. Stop waits up to timeout for a concurrent load to finish.
func (m *Manager) Stop(timeout time.Duration) error {
	if !m.stopped.CompareAndSwap(false, true) {
		return nil
	}

	m.watchMu.Lock()
	if m.watcher != nil {
		m.watcher.stop()
		m.watcher = nil
	}
	m.watchMu.Unlock()

	deadline := time.Now().Add(timeout)
	for m.State() == StateLoading {
		if time.Now().After(deadline) {
			return errors.WrapTransient(
				fmt.Errorf("load still in progress after %s", timeout),
				"Manager", "Stop", "wait for load guard")
		}
		time.Sleep(10 * time.Millisecond)
	}

	m.subMu.Lock()
	for _, ch := range m.subscribers {
		close(ch)
	}
	m.subscribers = nil
	m.subMu.Unlock()

	m.logger.Info("Configuration manager stopped")
	return nil
}
