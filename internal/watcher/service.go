package watcher

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/config"
	"github.com/paneldeck/paneldeck/internal/panel"
)

// Service points the watcher at whatever directories the grid shows.
// Panel navigation retargets the watch set through RequestReconcile;
// flushed events refresh the panels whose directory changed on disk.
type Service struct {
	watcher *Watcher
	panels  *panel.Service
	hub     panel.Broadcaster
	logger  zerolog.Logger

	// mu serializes reconciles so add/remove pairs never interleave.
	mu          sync.Mutex
	reconcileCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates the watcher service. Zero config values fall back
// to the defaults.
func NewService(cfg config.WatcherConfig, panels *panel.Service, hub panel.Broadcaster, logger zerolog.Logger) (*Service, error) {
	wcfg := DefaultConfig()
	if cfg.DebounceMS > 0 {
		wcfg.DebounceDelay = time.Duration(cfg.DebounceMS) * time.Millisecond
	}
	if cfg.MaxBatch > 0 {
		wcfg.MaxBatchSize = cfg.MaxBatch
	}

	w, err := New(wcfg, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		watcher:     w,
		panels:      panels,
		hub:         hub,
		logger:      logger.With().Str("component", "watcher-service").Logger(),
		reconcileCh: make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
	w.SetHandler(s.handleEvents)

	return s, nil
}

// Start takes the initial watch set from the current panels and begins
// delivering events.
func (s *Service) Start() {
	s.Reconcile()
	s.watcher.Start()

	s.wg.Add(1)
	go s.reconcileLoop()

	s.logger.Info().
		Int("paths", len(s.watcher.WatchedPaths())).
		Msg("watcher service started")
}

// Stop shuts the watcher down.
func (s *Service) Stop() error {
	s.cancel()
	s.wg.Wait()
	return s.watcher.Stop()
}

// RequestReconcile queues a watch-set sync. Safe to call from hot
// paths; pending requests coalesce.
func (s *Service) RequestReconcile() {
	select {
	case s.reconcileCh <- struct{}{}:
	default:
	}
}

// Reconcile syncs the watch set with the directories the panels show:
// stale watches go, missing ones are added. The periodic job calls
// this directly as a safety net.
func (s *Service) Reconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.panels.Store()
	desired := make(map[string]bool)
	for _, id := range store.Order() {
		view, ok := store.Panel(id)
		if !ok || view.CurrentPath == "" {
			continue
		}
		abs, err := filepath.Abs(view.CurrentPath)
		if err != nil {
			continue
		}
		desired[abs] = true
	}

	for _, path := range s.watcher.WatchedPaths() {
		if !desired[path] {
			if err := s.watcher.RemovePath(path); err != nil {
				s.logger.Warn().Err(err).Str("path", path).Msg("cannot drop watch")
			}
		}
	}
	for path := range desired {
		if err := s.watcher.AddPath(path); err != nil {
			// Mock-backed panels point at paths that do not exist on
			// disk; those simply go unwatched.
			s.logger.Debug().Err(err).Str("path", path).Msg("cannot watch directory")
		}
	}
}

// WatchedPaths returns the directories currently under watch.
func (s *Service) WatchedPaths() []string {
	return s.watcher.WatchedPaths()
}

func (s *Service) reconcileLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.reconcileCh:
			s.Reconcile()
		}
	}
}

// handleEvents maps a flushed batch to the affected directories,
// refreshes the panels showing them, and tells clients the disk
// changed underneath the app.
func (s *Service) handleEvents(events []FileEvent) {
	dirSet := make(map[string]bool)
	for _, event := range events {
		// An event on the watched directory itself means it was
		// removed or recreated; refresh it rather than its parent.
		if s.watcher.Watching(event.Path) {
			dirSet[event.Path] = true
			continue
		}
		dirSet[filepath.Dir(event.Path)] = true
	}

	dirs := make([]string, 0, len(dirSet))
	for dir := range dirSet {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		s.panels.RefreshPath(s.ctx, dir)
	}

	if s.hub != nil {
		if err := s.hub.Broadcast("fs:changed", map[string]interface{}{"paths": dirs}); err != nil {
			s.logger.Debug().Err(err).Msg("fs change broadcast failed")
		}
	}

	s.logger.Debug().
		Int("events", len(events)).
		Strs("dirs", dirs).
		Msg("external change refreshed panels")
}
