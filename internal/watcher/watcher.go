// Package watcher re-runs a handler when watched files change on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 300 * time.Millisecond

// Handler is called with the absolute path of a changed file.
type Handler func(ctx context.Context, path string) error

// Watcher watches individual files. Editors often save by replacing the
// file, so the parent directory is watched and events are filtered by name.
// Bursts of events for one file collapse into a single handler call.
type Watcher struct {
	fs       *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	files  map[string]bool
	dirs   map[string]bool
	timers map[string]*time.Timer
}

// New creates a Watcher that calls handler once per burst of writes to a
// tracked file. A non-positive debounce selects DefaultDebounce.
func New(debounce time.Duration, handler Handler, log *zap.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watcher: nil handler")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	return &Watcher{
		fs:       fw,
		handler:  handler,
		debounce: debounce,
		log:      log,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.files[abs] = true
	return nil
}

// Files returns the watched files.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	return out
}

// Run delivers changes to the handler until ctx is done or the watcher is
// closed. Handler errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	changed := make(chan string, 16)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule(filepath.Clean(event.Name), changed)

		case path := <-changed:
			if err := w.handler(ctx, path); err != nil {
				w.log.Error("Reload failed", zap.String("path", path), zap.Error(err))
				continue
			}
			w.log.Info("Reloaded", zap.String("path", path))

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(path string, changed chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[path] {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		select {
		case changed <- path:
		default:
			w.log.Warn("Reload queue full, change dropped", zap.String("path", path))
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

// Close releases the underlying fsnotify watcher, which also ends Run.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
