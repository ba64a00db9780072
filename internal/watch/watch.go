// Package watch runs organize passes whenever new files appear in a folder.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a single folder (non-recursively) and runs an organize
// pass after activity settles
type Watcher struct {
	folder   string
	run      func()
	filter   func(path string) bool
	logger   *slog.Logger
	debounce *debouncer

	runMu      sync.Mutex // guards runRunning, runPending and stopped
	runRunning bool       // whether a pass is currently in progress
	runPending bool       // whether another pass is needed after the current one
	stopped    bool       // set on shutdown; no new passes start afterwards
	inflight   sync.WaitGroup
}

// debouncer delays a callback until triggers stop arriving for delay
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	delay    time.Duration
	callback func()
}

// New creates a watcher for folder. run performs one organize pass; filter,
// if non-nil, returns false for paths that must not trigger a pass.
func New(folder string, delay time.Duration, run func(), filter func(path string) bool, logger *slog.Logger) *Watcher {
	return &Watcher{
		folder:   filepath.Clean(folder),
		run:      run,
		filter:   filter,
		logger:   logger,
		debounce: &debouncer{delay: delay},
	}
}

// Start performs an initial pass and then watches the folder until ctx is
// cancelled. It returns only after any pass in progress has finished.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := fsw.Add(w.folder); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.folder, err)
	}

	w.logger.Info("performing initial organize before watching")
	w.performRun()

	w.logger.Info("watching folder", "folder", w.folder, "debounce", w.debounce.delay)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping watcher")
			w.shutdown()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.isRelevant(event) {
				continue
			}
			w.logger.Debug("new file detected", "path", event.Name, "op", event.Op.String())
			w.debounce.trigger(w.performRun)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// isRelevant reports whether event is a regular file created or written
// directly inside the watched folder
func (w *Watcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	if filepath.Dir(filepath.Clean(event.Name)) != w.folder {
		return false
	}
	info, err := os.Lstat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if w.filter != nil && !w.filter(event.Name) {
		return false
	}
	return true
}

// performRun executes a pass with single-flight semantics. If a pass is
// already in progress, at most one additional pass is queued.
func (w *Watcher) performRun() {
	w.runMu.Lock()
	if w.stopped {
		w.runMu.Unlock()
		return
	}
	if w.runRunning {
		w.runPending = true
		w.runMu.Unlock()
		w.logger.Debug("organize already in progress, queuing pending re-run")
		return
	}
	w.runRunning = true
	w.inflight.Add(1)
	w.runMu.Unlock()
	defer w.inflight.Done()

	for {
		w.run()

		w.runMu.Lock()
		if !w.runPending || w.stopped {
			w.runPending = false
			w.runRunning = false
			w.runMu.Unlock()
			break
		}
		w.runPending = false
		w.runMu.Unlock()

		w.logger.Debug("re-running organize due to pending request")
	}
}

// shutdown cancels any scheduled pass, drops a queued re-run and waits for
// the pass in progress to complete
func (w *Watcher) shutdown() {
	w.debounce.stop()

	w.runMu.Lock()
	w.stopped = true
	w.runPending = false
	running := w.runRunning
	w.runMu.Unlock()

	if running {
		w.logger.Info("waiting for organize in progress to finish")
	}
	w.inflight.Wait()
}

// trigger schedules the callback to run after the debounce delay
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cb := d.callback
		d.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}

// stop cancels a scheduled callback
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
}
