// Package watcher keeps panel listings in sync with the filesystem.
// It watches every directory the grid currently shows and refreshes
// the affected panels when something outside the app changes one.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileEvent is one debounced filesystem change.
type FileEvent struct {
	Path      string
	Op        string // "create", "write", "remove", "rename"
	Timestamp time.Time
}

// EventHandler receives each flushed batch of events.
type EventHandler func(events []FileEvent)

// Config holds watcher tuning.
type Config struct {
	// DebounceDelay is how long to wait after the last event before
	// flushing the batch.
	DebounceDelay time.Duration

	// MaxBatchSize forces a flush once this many distinct paths are
	// pending, even if events keep arriving.
	MaxBatchSize int
}

// DefaultConfig returns the tuning used when the config file leaves
// the watcher section out.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 500 * time.Millisecond,
		MaxBatchSize:  100,
	}
}

// Watcher wraps fsnotify with per-path deduplication and debouncing.
// Watches are flat: panels show a single directory each, so nothing
// below it matters.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    Config
	logger    zerolog.Logger
	handler   EventHandler

	watchedPaths map[string]bool
	pathsMu      sync.RWMutex

	pendingEvents map[string]FileEvent
	eventsMu      sync.Mutex
	debounceTimer *time.Timer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a watcher. Call SetHandler before Start.
func New(config Config, logger zerolog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:     fsWatcher,
		config:        config,
		logger:        logger.With().Str("component", "watcher").Logger(),
		watchedPaths:  make(map[string]bool),
		pendingEvents: make(map[string]FileEvent),
		done:          make(chan struct{}),
	}, nil
}

// SetHandler sets the batch callback.
func (w *Watcher) SetHandler(handler EventHandler) {
	w.handler = handler
}

// Start begins delivering events.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.eventLoop()
}

// Stop flushes any pending batch and releases the inotify handles.
// Stopping twice is safe.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
	return w.fsWatcher.Close()
}

// AddPath starts watching a directory. Adding a path twice is a no-op.
func (w *Watcher) AddPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.pathsMu.Lock()
	defer w.pathsMu.Unlock()

	if w.watchedPaths[absPath] {
		return nil
	}
	if err := w.fsWatcher.Add(absPath); err != nil {
		return err
	}
	w.watchedPaths[absPath] = true

	w.logger.Debug().Str("path", absPath).Msg("watching directory")
	return nil
}

// RemovePath stops watching a directory. Unknown paths are ignored.
func (w *Watcher) RemovePath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.pathsMu.Lock()
	defer w.pathsMu.Unlock()

	if !w.watchedPaths[absPath] {
		return nil
	}
	// The kernel drops the watch on its own when the directory is
	// deleted, so a failed remove only means we were late.
	if err := w.fsWatcher.Remove(absPath); err != nil {
		w.logger.Debug().Err(err).Str("path", absPath).Msg("watch already gone")
	}
	delete(w.watchedPaths, absPath)

	w.logger.Debug().Str("path", absPath).Msg("stopped watching directory")
	return nil
}

// Watching reports whether a directory is currently watched.
func (w *Watcher) Watching(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.pathsMu.RLock()
	defer w.pathsMu.RUnlock()
	return w.watchedPaths[absPath]
}

// WatchedPaths returns the currently watched directories.
func (w *Watcher) WatchedPaths() []string {
	w.pathsMu.RLock()
	defer w.pathsMu.RUnlock()

	paths := make([]string, 0, len(w.watchedPaths))
	for path := range w.watchedPaths {
		paths = append(paths, path)
	}
	return paths
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			w.flushPendingEvents()
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	var op string
	switch {
	case event.Has(fsnotify.Create):
		op = "create"
	case event.Has(fsnotify.Write):
		op = "write"
	case event.Has(fsnotify.Remove):
		op = "remove"
	case event.Has(fsnotify.Rename):
		op = "rename"
	default:
		// Chmod churn does not change a listing.
		return
	}

	w.addPendingEvent(FileEvent{
		Path:      event.Name,
		Op:        op,
		Timestamp: time.Now(),
	})
}

// addPendingEvent batches an event and resets the debounce timer.
// Rapid events on the same path collapse to the latest one.
func (w *Watcher) addPendingEvent(event FileEvent) {
	w.eventsMu.Lock()
	defer w.eventsMu.Unlock()

	w.pendingEvents[event.Path] = event

	if len(w.pendingEvents) >= w.config.MaxBatchSize {
		w.flushPendingEventsLocked()
		return
	}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.config.DebounceDelay, func() {
		w.eventsMu.Lock()
		defer w.eventsMu.Unlock()
		w.flushPendingEventsLocked()
	})
}

func (w *Watcher) flushPendingEvents() {
	w.eventsMu.Lock()
	defer w.eventsMu.Unlock()
	w.flushPendingEventsLocked()
}

// flushPendingEventsLocked hands the batch to the handler. Caller
// holds eventsMu.
func (w *Watcher) flushPendingEventsLocked() {
	if len(w.pendingEvents) == 0 {
		return
	}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}

	events := make([]FileEvent, 0, len(w.pendingEvents))
	for _, event := range w.pendingEvents {
		events = append(events, event)
	}
	w.pendingEvents = make(map[string]FileEvent)

	// The handler refreshes panels, which can take a while; never
	// block the event loop on it.
	if w.handler != nil {
		go w.handler(events)
	}

	w.logger.Debug().Int("count", len(events)).Msg("flushed file events")
}
