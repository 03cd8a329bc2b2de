package panel

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/storage"
)

// Grid dimensions accepted by SetGridLayout.
const (
	minGridDim = 1
	maxGridDim = 4
)

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Store owns all panel state: the grid, each panel's listing and
// selection, and the process-wide clipboard and drag slots. Every
// mutation runs to completion under the store mutex, so observers only
// ever see complete states.
type Store struct {
	mu        sync.RWMutex
	panels    map[string]*panel
	order     []string
	layout    GridLayout
	active    string
	counter   int // monotonic; panel ids are never reused
	clipboard ClipboardState
	clipGen   uint64 // bumped on every stage/clear
	drag      DragState
	defaults  Defaults
	hub       Broadcaster
	logger    zerolog.Logger
}

// NewStore creates an empty store. The grid comes up with the first
// SetGridLayout call.
func NewStore(defaults Defaults, hub Broadcaster, logger zerolog.Logger) *Store {
	if defaults.ViewMode == "" {
		defaults.ViewMode = ViewList
	}
	if defaults.SortBy == "" {
		defaults.SortBy = SortByName
	}
	if defaults.SortOrder == "" {
		defaults.SortOrder = SortAsc
	}
	return &Store{
		panels:   make(map[string]*panel),
		defaults: defaults,
		hub:      hub,
		logger:   logger.With().Str("component", "panel").Logger(),
	}
}

// SetGridLayout resizes the grid to rows x cols and returns the ids of
// panels created by the resize. Growth appends fresh panels with ids
// from the monotonic counter; shrinking removes panels from the end of
// the order. When the active panel is removed, focus falls back to the
// first remaining panel.
func (s *Store) SetGridLayout(rows, cols int, name string) ([]string, error) {
	if rows < minGridDim || rows > maxGridDim || cols < minGridDim || cols > maxGridDim {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidLayout, rows, cols)
	}

	s.mu.Lock()
	required := rows * cols
	var created []string

	for len(s.order) < required {
		s.counter++
		id := fmt.Sprintf("panel-%d", s.counter)
		s.panels[id] = &panel{
			id:          id,
			currentPath: s.defaults.HomePath,
			selected:    make(map[string]struct{}),
			viewMode:    s.defaults.ViewMode,
			sortBy:      s.defaults.SortBy,
			sortOrder:   s.defaults.SortOrder,
		}
		s.order = append(s.order, id)
		created = append(created, id)
	}

	for len(s.order) > required {
		id := s.order[len(s.order)-1]
		s.order = s.order[:len(s.order)-1]
		delete(s.panels, id)
		if s.active == id {
			s.active = ""
		}
	}

	if s.active == "" && len(s.order) > 0 {
		s.active = s.order[0]
	}

	s.layout = GridLayout{Rows: rows, Cols: cols, Name: name}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast("panel:layout", snapshot)
	s.logger.Info().
		Int("rows", rows).
		Int("cols", cols).
		Int("panels", required).
		Msg("grid layout changed")

	return created, nil
}

// SetActivePanel moves focus to the given panel.
func (s *Store) SetActivePanel(id string) error {
	s.mu.Lock()
	if _, ok := s.panels[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	s.active = id
	s.mu.Unlock()

	s.broadcast("panel:active", map[string]string{"id": id})
	return nil
}

// BeginNavigation marks a panel as loading a new path. The selection is
// cleared: it referred to the listing being left behind.
func (s *Store) BeginNavigation(id string) error {
	s.mu.Lock()
	p, ok := s.panels[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	p.loading = true
	p.err = ""
	p.selected = make(map[string]struct{})
	view := s.viewLocked(p)
	s.mu.Unlock()

	s.broadcast("panel:updated", view)
	return nil
}

// FinishNavigation lands a navigation: the panel shows the new path and
// listing.
func (s *Store) FinishNavigation(id, path string, files []storage.FileInfo) error {
	s.mu.Lock()
	p, ok := s.panels[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	p.currentPath = path
	p.files = sortFiles(files, p.sortBy, p.sortOrder)
	p.loading = false
	p.err = ""
	view := s.viewLocked(p)
	s.mu.Unlock()

	s.broadcast("panel:updated", view)
	return nil
}

// SetFiles replaces a panel's listing in place (refresh). Selected
// names missing from the new listing are dropped; the rest survive.
func (s *Store) SetFiles(id string, files []storage.FileInfo) error {
	s.mu.Lock()
	p, ok := s.panels[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	p.files = sortFiles(files, p.sortBy, p.sortOrder)
	p.loading = false
	p.err = ""

	present := make(map[string]struct{}, len(files))
	for _, f := range p.files {
		present[f.Name] = struct{}{}
	}
	for name := range p.selected {
		if _, ok := present[name]; !ok {
			delete(p.selected, name)
		}
	}
	view := s.viewLocked(p)
	s.mu.Unlock()

	s.broadcast("panel:updated", view)
	return nil
}

// SetLoadError records a failed listing. The panel keeps its previous
// path and files; only this panel is touched.
func (s *Store) SetLoadError(id string, err error) {
	s.mu.Lock()
	p, ok := s.panels[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	p.loading = false
	p.err = err.Error()
	view := s.viewLocked(p)
	s.mu.Unlock()

	s.broadcast("panel:updated", view)
}

// SelectFiles updates a panel's selection. In toggle mode each name's
// membership is flipped, so toggling twice restores the original set.
// Otherwise the selection is replaced outright.
func (s *Store) SelectFiles(id string, names []string, toggle bool) error {
	s.mu.Lock()
	p, ok := s.panels[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}

	if toggle {
		for _, name := range names {
			if _, on := p.selected[name]; on {
				delete(p.selected, name)
			} else {
				p.selected[name] = struct{}{}
			}
		}
	} else {
		p.selected = make(map[string]struct{}, len(names))
		for _, name := range names {
			p.selected[name] = struct{}{}
		}
	}
	view := s.viewLocked(p)
	s.mu.Unlock()

	s.broadcast("panel:updated", view)
	return nil
}

// SetSorting changes a panel's sort preferences and re-sorts its
// listing.
func (s *Store) SetSorting(id string, key SortKey, order SortOrder) error {
	if !validSortKey(key) || !validSortOrder(order) {
		return fmt.Errorf("%w: %s %s", ErrInvalidSorting, key, order)
	}

	s.mu.Lock()
	p, ok := s.panels[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	p.sortBy = key
	p.sortOrder = order
	p.files = sortFiles(p.files, key, order)
	view := s.viewLocked(p)
	s.mu.Unlock()

	s.broadcast("panel:updated", view)
	return nil
}

// SetViewMode changes how a panel renders.
func (s *Store) SetViewMode(id string, mode ViewMode) error {
	if !validViewMode(mode) {
		return fmt.Errorf("%w: %s", ErrInvalidViewMode, mode)
	}

	s.mu.Lock()
	p, ok := s.panels[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	p.viewMode = mode
	view := s.viewLocked(p)
	s.mu.Unlock()

	s.broadcast("panel:updated", view)
	return nil
}

// StageClipboard stages files for a later paste, overwriting whatever
// was staged before. Nothing is touched on disk: a cut deletes only
// when its paste lands.
func (s *Store) StageClipboard(op Operation, files []storage.FileInfo, sourcePanelID string) error {
	if op != OpCopy && op != OpCut {
		return fmt.Errorf("%w: operation %q", ErrNothingStaged, op)
	}
	if len(files) == 0 {
		return ErrNothingStaged
	}

	s.mu.Lock()
	s.clipboard = ClipboardState{
		HasFiles:      true,
		Files:         append([]storage.FileInfo(nil), files...),
		Operation:     op,
		SourcePanelID: sourcePanelID,
	}
	s.clipGen++
	state := s.clipboard
	s.mu.Unlock()

	s.broadcast("clipboard:changed", state)
	s.logger.Debug().
		Str("operation", string(op)).
		Int("files", len(files)).
		Str("source", sourcePanelID).
		Msg("clipboard staged")
	return nil
}

// ClearClipboard empties the staging slot.
func (s *Store) ClearClipboard() {
	s.mu.Lock()
	s.clipboard = ClipboardState{}
	s.clipGen++
	s.mu.Unlock()

	s.broadcast("clipboard:changed", ClipboardState{})
}

// ClearClipboardIfUnchanged empties the slot only when no stage or
// clear happened since the given generation. A transfer finishing
// late must not wipe a stage the user made while it was in flight.
func (s *Store) ClearClipboardIfUnchanged(gen uint64) bool {
	s.mu.Lock()
	if s.clipGen != gen {
		s.mu.Unlock()
		return false
	}
	s.clipboard = ClipboardState{}
	s.clipGen++
	s.mu.Unlock()

	s.broadcast("clipboard:changed", ClipboardState{})
	return true
}

// Clipboard returns the current clipboard state.
func (s *Store) Clipboard() ClipboardState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.clipboard
	state.Files = append([]storage.FileInfo(nil), s.clipboard.Files...)
	return state
}

// ClipboardWithGeneration returns the clipboard state together with
// its change generation, for callers that clear conditionally later.
func (s *Store) ClipboardWithGeneration() (ClipboardState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.clipboard
	state.Files = append([]storage.FileInfo(nil), s.clipboard.Files...)
	return state, s.clipGen
}

// BeginDrag records the start of a drag from a panel.
func (s *Store) BeginDrag(files []storage.FileInfo, sourcePanelID string, op Operation) error {
	if len(files) == 0 {
		return ErrNothingStaged
	}
	if op != OpCopy && op != OpCut {
		op = OpCopy
	}

	s.mu.Lock()
	s.drag = DragState{
		IsDragging:    true,
		DraggedFiles:  append([]storage.FileInfo(nil), files...),
		SourcePanelID: sourcePanelID,
		Operation:     op,
	}
	s.mu.Unlock()
	return nil
}

// UpdateDragOperation re-derives the pending drop operation while the
// drag hovers (modifier keys flip copy/move).
func (s *Store) UpdateDragOperation(op Operation) {
	if op != OpCopy && op != OpCut {
		return
	}
	s.mu.Lock()
	if s.drag.IsDragging {
		s.drag.Operation = op
	}
	s.mu.Unlock()
}

// EndDrag returns the final drag state and discards the slot. It is
// called on every drag end, dropped or abandoned.
func (s *Store) EndDrag() DragState {
	s.mu.Lock()
	state := s.drag
	s.drag = DragState{}
	s.mu.Unlock()
	return state
}

// Drag returns the current drag state.
func (s *Store) Drag() DragState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.drag
	state.DraggedFiles = append([]storage.FileInfo(nil), s.drag.DraggedFiles...)
	return state
}

// Panel returns a snapshot of one panel.
func (s *Store) Panel(id string) (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.panels[id]
	if !ok {
		return View{}, false
	}
	return s.viewLocked(p), true
}

// ActivePanelID returns the focused panel's id, or "" for an empty
// grid.
func (s *Store) ActivePanelID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Order returns panel ids in grid order.
func (s *Store) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Layout returns the current grid layout.
func (s *Store) Layout() GridLayout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout
}

// Snapshot returns the full store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Layout:      s.layout,
		ActivePanel: s.active,
		Panels:      make([]View, 0, len(s.order)),
		Clipboard:   s.clipboard,
	}
	for _, id := range s.order {
		snap.Panels = append(snap.Panels, s.viewLocked(s.panels[id]))
	}
	return snap
}

// viewLocked builds a panel snapshot. Callers hold mu.
func (s *Store) viewLocked(p *panel) View {
	selected := make([]string, 0, len(p.selected))
	for name := range p.selected {
		selected = append(selected, name)
	}
	sort.Strings(selected)

	return View{
		ID:            p.id,
		CurrentPath:   p.currentPath,
		Files:         append([]storage.FileInfo(nil), p.files...),
		SelectedFiles: selected,
		ViewMode:      p.viewMode,
		SortBy:        p.sortBy,
		SortOrder:     p.sortOrder,
		Loading:       p.loading,
		Error:         p.err,
	}
}

func (s *Store) broadcast(msgType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(msgType, payload)
}

// sortFiles orders a listing copy by key and direction. Directories
// always sort before files; name breaks ties for a stable result.
func sortFiles(files []storage.FileInfo, key SortKey, order SortOrder) []storage.FileInfo {
	out := append([]storage.FileInfo(nil), files...)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}

		var less, equal bool
		switch key {
		case SortBySize:
			less, equal = a.Size < b.Size, a.Size == b.Size
		case SortByModified:
			less, equal = a.Modified.Before(b.Modified), a.Modified.Equal(b.Modified)
		default:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			less, equal = an < bn, an == bn
		}

		if equal {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		if order == SortDesc {
			return !less
		}
		return less
	})

	return out
}
