package panel

import (
	"errors"

	"github.com/paneldeck/paneldeck/internal/storage"
)

// Errors returned by the panel store.
var (
	ErrPanelNotFound   = errors.New("panel not found")
	ErrInvalidLayout   = errors.New("invalid grid layout")
	ErrInvalidViewMode = errors.New("invalid view mode")
	ErrInvalidSorting  = errors.New("invalid sorting")
	ErrNothingStaged   = errors.New("nothing to stage")
)

// ViewMode selects how a panel renders its listing.
type ViewMode string

const (
	ViewList ViewMode = "list"
	ViewGrid ViewMode = "grid"
)

// SortKey selects the listing sort field.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortBySize     SortKey = "size"
	SortByModified SortKey = "modified"
)

// SortOrder selects the listing sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Operation tags a staged file set.
type Operation string

const (
	OpCopy Operation = "copy"
	OpCut  Operation = "cut"
	OpNone Operation = ""
)

// GridLayout describes the visible panel grid. The store keeps
// len(order) == Rows*Cols after every layout change.
type GridLayout struct {
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
	Name string `json:"name,omitempty"`
}

// View is the immutable snapshot of one panel handed to handlers and
// command contexts. SelectedFiles is name-sorted for stable output.
type View struct {
	ID            string             `json:"id"`
	CurrentPath   string             `json:"currentPath"`
	Files         []storage.FileInfo `json:"files"`
	SelectedFiles []string           `json:"selectedFiles"`
	ViewMode      ViewMode           `json:"viewMode"`
	SortBy        SortKey            `json:"sortBy"`
	SortOrder     SortOrder          `json:"sortOrder"`
	Loading       bool               `json:"loading"`
	Error         string             `json:"error,omitempty"`
}

// ClipboardState is the process-wide staging slot for copy/cut. There
// is exactly one; staging overwrites it and nothing else touches files
// at staging time. HasFiles is true exactly when Operation is set.
type ClipboardState struct {
	HasFiles      bool               `json:"hasFiles"`
	Files         []storage.FileInfo `json:"files"`
	Operation     Operation          `json:"operation"`
	SourcePanelID string             `json:"sourcePanelId,omitempty"`
}

// DragState is the transient drag slot. It is discarded unconditionally
// when the drag ends, whether or not a drop happened.
type DragState struct {
	IsDragging    bool               `json:"isDragging"`
	DraggedFiles  []storage.FileInfo `json:"draggedFiles"`
	SourcePanelID string             `json:"sourcePanelId,omitempty"`
	Operation     Operation          `json:"operation"`
}

// Snapshot is the full store state returned by the panels API.
type Snapshot struct {
	Layout      GridLayout     `json:"layout"`
	ActivePanel string         `json:"activePanel"`
	Panels      []View         `json:"panels"`
	Clipboard   ClipboardState `json:"clipboard"`
}

// Defaults are applied to panels created on grid growth.
type Defaults struct {
	HomePath  string
	ViewMode  ViewMode
	SortBy    SortKey
	SortOrder SortOrder
}

// panel is the mutable store-internal representation.
type panel struct {
	id          string
	currentPath string
	files       []storage.FileInfo
	selected    map[string]struct{}
	viewMode    ViewMode
	sortBy      SortKey
	sortOrder   SortOrder
	loading     bool
	err         string
}

func validViewMode(m ViewMode) bool {
	return m == ViewList || m == ViewGrid
}

func validSortKey(k SortKey) bool {
	return k == SortByName || k == SortBySize || k == SortByModified
}

func validSortOrder(o SortOrder) bool {
	return o == SortAsc || o == SortDesc
}
