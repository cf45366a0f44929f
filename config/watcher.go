package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period after the last file event before a
// reload fires, so rapid successive writes coalesce into one reload.
const defaultDebounce = time.Second

// fileWatcher watches a fixed set of config files and schedules a single
// debounced reload callback. The callback never mutates manager state
// directly; it invokes Reload, which respects the loading guard.
type fileWatcher struct {
	watcher  *fsnotify.Watcher
	paths    map[string]struct{}
	debounce time.Duration
	reload   func()
	logger   *slog.Logger

	mu      sync.Mutex
	pending *time.Timer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// newFileWatcher creates a watcher over the given file paths. Per-file add
// failures (e.g. permission denied) are logged and skipped, never fatal.
func newFileWatcher(paths []string, debounce time.Duration, reload func(), logger *slog.Logger) (*fileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &fileWatcher{
		watcher:  fsw,
		paths:    make(map[string]struct{}, len(paths)),
		debounce: debounce,
		reload:   reload,
		logger:   logger,
		done:     make(chan struct{}),
	}

	for _, path := range paths {
		if err := fsw.Add(path); err != nil {
			logger.Warn("Failed to watch config file", "path", path, "error", err)
			continue
		}
		w.paths[path] = struct{}{}
	}

	return w, nil
}

// start begins delivering debounced reloads
func (w *fileWatcher) start() {
	w.wg.Add(1)
	go w.run()
}

// run processes fsnotify events until stopped
func (w *fileWatcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if _, watched := w.paths[event.Name]; !watched {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config file watch error", "error", err)
		}
	}
}

// schedule resets the single pending-timer slot. Each new event pushes the
// firing point out; exactly one reload runs after the quiet period.
func (w *fileWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.reload)
}

// stop tears the watcher down and cancels any pending reload
func (w *fileWatcher) stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()

		w.mu.Lock()
		if w.pending != nil {
			w.pending.Stop()
			w.pending = nil
		}
		w.mu.Unlock()

		w.wg.Wait()
	})
}
