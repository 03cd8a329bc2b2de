package panel

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/storage"
)

// PathListener is notified after an operation changes which
// directories the grid shows. It must not block.
type PathListener func()

// Service drives panel state against the storage backend: it owns the
// listing round-trips so the store can stay synchronous.
type Service struct {
	store       *Store
	backend     storage.Backend
	logger      zerolog.Logger
	pathChanged PathListener
}

// NewService creates a panel service.
func NewService(store *Store, backend storage.Backend, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		backend: backend,
		logger:  logger.With().Str("component", "panel").Logger(),
	}
}

// Store returns the underlying state store.
func (s *Service) Store() *Store {
	return s.store
}

// SetPathListener registers the callback fired after navigation or a
// layout change. The filesystem watcher uses it to retarget its
// watches.
func (s *Service) SetPathListener(fn PathListener) {
	s.pathChanged = fn
}

func (s *Service) notifyPathChanged() {
	if s.pathChanged != nil {
		s.pathChanged()
	}
}

// Navigate points a panel at path and loads its listing. On failure the
// panel keeps its previous path and files and carries the error.
func (s *Service) Navigate(ctx context.Context, panelID, path string) error {
	if err := s.store.BeginNavigation(panelID); err != nil {
		return err
	}

	files, err := s.backend.List(ctx, path)
	if err != nil {
		s.store.SetLoadError(panelID, err)
		s.logger.Warn().Err(err).
			Str("panel", panelID).
			Str("path", path).
			Msg("navigation failed")
		return err
	}

	if err := s.store.FinishNavigation(panelID, path, files); err != nil {
		return err
	}
	s.notifyPathChanged()
	return nil
}

// NavigateUp moves a panel to its parent directory. At the filesystem
// root it is a no-op.
func (s *Service) NavigateUp(ctx context.Context, panelID string) error {
	view, ok := s.store.Panel(panelID)
	if !ok {
		return ErrPanelNotFound
	}
	parent := filepath.Dir(view.CurrentPath)
	if parent == view.CurrentPath {
		return nil
	}
	return s.Navigate(ctx, panelID, parent)
}

// Refresh re-lists a panel's current directory. Unlike Navigate the
// selection survives, minus names no longer present.
func (s *Service) Refresh(ctx context.Context, panelID string) error {
	view, ok := s.store.Panel(panelID)
	if !ok {
		return ErrPanelNotFound
	}

	files, err := s.backend.List(ctx, view.CurrentPath)
	if err != nil {
		s.store.SetLoadError(panelID, err)
		return err
	}
	return s.store.SetFiles(panelID, files)
}

// RefreshPath refreshes every panel currently showing the given
// directory. Transfers call this for source and destination after the
// batch lands.
func (s *Service) RefreshPath(ctx context.Context, path string) {
	for _, id := range s.store.Order() {
		view, ok := s.store.Panel(id)
		if !ok || view.CurrentPath != path {
			continue
		}
		if err := s.Refresh(ctx, id); err != nil {
			s.logger.Warn().Err(err).
				Str("panel", id).
				Str("path", path).
				Msg("refresh after transfer failed")
		}
	}
}

// ApplyLayout resizes the grid and loads listings for the panels the
// resize created.
func (s *Service) ApplyLayout(ctx context.Context, rows, cols int, name string) error {
	created, err := s.store.SetGridLayout(rows, cols, name)
	if err != nil {
		return err
	}

	for _, id := range created {
		view, ok := s.store.Panel(id)
		if !ok {
			continue
		}
		if err := s.Navigate(ctx, id, view.CurrentPath); err != nil {
			// The panel shows its own error; the layout change stands.
			continue
		}
	}
	// A shrink drops panels without navigating, so fire here as well.
	s.notifyPathChanged()
	return nil
}
