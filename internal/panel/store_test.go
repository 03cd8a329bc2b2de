package panel

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/storage"
)

func newTestStore() *Store {
	return NewStore(Defaults{HomePath: "/home/test"}, nil, zerolog.Nop())
}

func mustLayout(t *testing.T, s *Store, rows, cols int) []string {
	t.Helper()
	created, err := s.SetGridLayout(rows, cols, "")
	if err != nil {
		t.Fatalf("SetGridLayout(%d, %d): %v", rows, cols, err)
	}
	return created
}

func file(name string, size int64) storage.FileInfo {
	return storage.FileInfo{
		Name:     name,
		Path:     "/home/test/" + name,
		Size:     size,
		Modified: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Type:     storage.TypeFile,
	}
}

func dir(name string) storage.FileInfo {
	return storage.FileInfo{
		Name:     name,
		Path:     "/home/test/" + name,
		Modified: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Type:     storage.TypeDirectory,
	}
}

func TestGridGrowAndShrink(t *testing.T) {
	s := newTestStore()

	created := mustLayout(t, s, 1, 2)
	if !reflect.DeepEqual(created, []string{"panel-1", "panel-2"}) {
		t.Fatalf("initial layout created %v", created)
	}
	if got := s.ActivePanelID(); got != "panel-1" {
		t.Errorf("active after init = %s, want panel-1", got)
	}

	// Grow 1x2 -> 2x2: two new panels appended, existing ones intact.
	created = mustLayout(t, s, 2, 2)
	if !reflect.DeepEqual(created, []string{"panel-3", "panel-4"}) {
		t.Errorf("grow created %v, want [panel-3 panel-4]", created)
	}
	if got := s.Order(); !reflect.DeepEqual(got, []string{"panel-1", "panel-2", "panel-3", "panel-4"}) {
		t.Errorf("order after grow = %v", got)
	}

	// Shrink 2x2 -> 1x2: removal comes from the end of the order.
	mustLayout(t, s, 1, 2)
	if got := s.Order(); !reflect.DeepEqual(got, []string{"panel-1", "panel-2"}) {
		t.Errorf("order after shrink = %v", got)
	}
	if _, ok := s.Panel("panel-3"); ok {
		t.Error("panel-3 should be destroyed after shrink")
	}

	// Every layout keeps the invariant len(order) == rows*cols.
	for _, dims := range [][2]int{{1, 1}, {2, 3}, {4, 4}, {1, 2}} {
		mustLayout(t, s, dims[0], dims[1])
		if got := len(s.Order()); got != dims[0]*dims[1] {
			t.Errorf("%dx%d: len(order) = %d, want %d", dims[0], dims[1], got, dims[0]*dims[1])
		}
	}
}

func TestGridIDsNeverReused(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 2, 2) // panel-1..4
	mustLayout(t, s, 1, 1) // removes 2..4
	created := mustLayout(t, s, 1, 2)

	// The freed numbers stay dead; the counter keeps climbing.
	if !reflect.DeepEqual(created, []string{"panel-5"}) {
		t.Errorf("regrow created %v, want [panel-5]", created)
	}
}

func TestGridActiveReassignment(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 2, 2)
	if err := s.SetActivePanel("panel-4"); err != nil {
		t.Fatal(err)
	}

	// Shrinking away the active panel moves focus to the first panel.
	mustLayout(t, s, 1, 2)
	if got := s.ActivePanelID(); got != "panel-1" {
		t.Errorf("active after shrink = %s, want panel-1", got)
	}

	// Shrinking while the active panel survives keeps it.
	if err := s.SetActivePanel("panel-2"); err != nil {
		t.Fatal(err)
	}
	mustLayout(t, s, 1, 2)
	if got := s.ActivePanelID(); got != "panel-2" {
		t.Errorf("active unchanged = %s, want panel-2", got)
	}
}

func TestGridRejectsInvalidDimensions(t *testing.T) {
	s := newTestStore()
	for _, dims := range [][2]int{{0, 1}, {1, 0}, {5, 1}, {1, 5}, {-1, 2}} {
		if _, err := s.SetGridLayout(dims[0], dims[1], ""); !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("%dx%d: expected ErrInvalidLayout, got %v", dims[0], dims[1], err)
		}
	}
}

func TestSetActivePanelUnknown(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 1, 1)
	if err := s.SetActivePanel("panel-99"); !errors.Is(err, ErrPanelNotFound) {
		t.Errorf("expected ErrPanelNotFound, got %v", err)
	}
}

func TestSelectionToggleInvolution(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 1, 1)
	if err := s.FinishNavigation("panel-1", "/home/test", []storage.FileInfo{
		file("a.txt", 1), file("b.txt", 2), file("c.txt", 3),
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.SelectFiles("panel-1", []string{"a.txt", "b.txt"}, false); err != nil {
		t.Fatal(err)
	}
	before, _ := s.Panel("panel-1")

	// Toggling the same names twice restores the original set.
	s.SelectFiles("panel-1", []string{"b.txt", "c.txt"}, true)
	s.SelectFiles("panel-1", []string{"b.txt", "c.txt"}, true)
	after, _ := s.Panel("panel-1")

	if !reflect.DeepEqual(before.SelectedFiles, after.SelectedFiles) {
		t.Errorf("double toggle changed selection: %v -> %v", before.SelectedFiles, after.SelectedFiles)
	}

	// Replace mode overwrites outright.
	s.SelectFiles("panel-1", []string{"c.txt"}, false)
	view, _ := s.Panel("panel-1")
	if !reflect.DeepEqual(view.SelectedFiles, []string{"c.txt"}) {
		t.Errorf("replace selection = %v, want [c.txt]", view.SelectedFiles)
	}
}

func TestNavigationClearsSelectionAndError(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 1, 1)
	s.FinishNavigation("panel-1", "/home/test", []storage.FileInfo{file("a.txt", 1)})
	s.SelectFiles("panel-1", []string{"a.txt"}, false)

	if err := s.BeginNavigation("panel-1"); err != nil {
		t.Fatal(err)
	}
	view, _ := s.Panel("panel-1")
	if !view.Loading {
		t.Error("panel not loading after BeginNavigation")
	}
	if len(view.SelectedFiles) != 0 {
		t.Errorf("selection survived navigation: %v", view.SelectedFiles)
	}
}

func TestLoadErrorKeepsPreviousListing(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 1, 2)
	s.FinishNavigation("panel-1", "/home/test", []storage.FileInfo{file("a.txt", 1)})

	s.BeginNavigation("panel-1")
	s.SetLoadError("panel-1", errors.New("permission denied"))

	view, _ := s.Panel("panel-1")
	if view.Loading {
		t.Error("loading flag not cleared after failure")
	}
	if view.Error != "permission denied" {
		t.Errorf("Error = %q", view.Error)
	}
	if view.CurrentPath != "/home/test" || len(view.Files) != 1 {
		t.Errorf("failed navigation disturbed previous listing: %+v", view)
	}

	// The other panel is untouched.
	other, _ := s.Panel("panel-2")
	if other.Error != "" || other.Loading {
		t.Errorf("unrelated panel affected: %+v", other)
	}
}

func TestSetFilesPrunesGoneSelection(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 1, 1)
	s.FinishNavigation("panel-1", "/home/test", []storage.FileInfo{
		file("a.txt", 1), file("b.txt", 2),
	})
	s.SelectFiles("panel-1", []string{"a.txt", "b.txt"}, false)

	// b.txt disappeared between refreshes.
	s.SetFiles("panel-1", []storage.FileInfo{file("a.txt", 1), file("c.txt", 3)})

	view, _ := s.Panel("panel-1")
	if !reflect.DeepEqual(view.SelectedFiles, []string{"a.txt"}) {
		t.Errorf("selection after refresh = %v, want [a.txt]", view.SelectedFiles)
	}
}

func TestSorting(t *testing.T) {
	listing := []storage.FileInfo{
		file("zebra.txt", 10),
		dir("Music"),
		file("apple.txt", 30),
		dir("docs"),
		file("Mango.txt", 20),
	}

	s := newTestStore()
	mustLayout(t, s, 1, 1)
	s.FinishNavigation("panel-1", "/home/test", listing)

	names := func() []string {
		view, _ := s.Panel("panel-1")
		out := make([]string, len(view.Files))
		for i, f := range view.Files {
			out[i] = f.Name
		}
		return out
	}

	// Default name ascending, directories first, case-insensitive.
	want := []string{"docs", "Music", "apple.txt", "Mango.txt", "zebra.txt"}
	if got := names(); !reflect.DeepEqual(got, want) {
		t.Errorf("name asc = %v, want %v", got, want)
	}

	if err := s.SetSorting("panel-1", SortBySize, SortDesc); err != nil {
		t.Fatal(err)
	}
	want = []string{"docs", "Music", "apple.txt", "Mango.txt", "zebra.txt"}
	if got := names(); !reflect.DeepEqual(got, want) {
		t.Errorf("size desc = %v, want %v", got, want)
	}

	if err := s.SetSorting("panel-1", SortBySize, SortAsc); err != nil {
		t.Fatal(err)
	}
	want = []string{"docs", "Music", "zebra.txt", "Mango.txt", "apple.txt"}
	if got := names(); !reflect.DeepEqual(got, want) {
		t.Errorf("size asc = %v, want %v", got, want)
	}

	if err := s.SetSorting("panel-1", "flavor", SortAsc); !errors.Is(err, ErrInvalidSorting) {
		t.Errorf("bad key: expected ErrInvalidSorting, got %v", err)
	}
}

func TestClipboardSingleSlot(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 1, 2)

	if err := s.StageClipboard(OpCopy, []storage.FileInfo{file("a.txt", 1)}, "panel-1"); err != nil {
		t.Fatal(err)
	}
	clip := s.Clipboard()
	if !clip.HasFiles || clip.Operation != OpCopy || len(clip.Files) != 1 {
		t.Fatalf("unexpected clipboard %+v", clip)
	}

	// A second stage overwrites the slot entirely, including operation.
	if err := s.StageClipboard(OpCut, []storage.FileInfo{file("b.txt", 2), file("c.txt", 3)}, "panel-2"); err != nil {
		t.Fatal(err)
	}
	clip = s.Clipboard()
	if clip.Operation != OpCut || len(clip.Files) != 2 || clip.SourcePanelID != "panel-2" {
		t.Errorf("second stage did not overwrite: %+v", clip)
	}
	if clip.Files[0].Name != "b.txt" {
		t.Errorf("stale files in clipboard: %+v", clip.Files)
	}

	// hasFiles is true exactly when an operation is staged.
	s.ClearClipboard()
	clip = s.Clipboard()
	if clip.HasFiles || clip.Operation != OpNone || len(clip.Files) != 0 {
		t.Errorf("clipboard not empty after clear: %+v", clip)
	}
}

func TestClipboardStageValidation(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 1, 1)

	if err := s.StageClipboard(OpCopy, nil, "panel-1"); !errors.Is(err, ErrNothingStaged) {
		t.Errorf("empty stage: expected ErrNothingStaged, got %v", err)
	}
	if err := s.StageClipboard(OpNone, []storage.FileInfo{file("a.txt", 1)}, "panel-1"); !errors.Is(err, ErrNothingStaged) {
		t.Errorf("no operation: expected ErrNothingStaged, got %v", err)
	}
}

func TestDragDiscardedUnconditionally(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 1, 2)

	if err := s.BeginDrag([]storage.FileInfo{file("a.txt", 1)}, "panel-1", OpCopy); err != nil {
		t.Fatal(err)
	}
	s.UpdateDragOperation(OpCut)

	final := s.EndDrag()
	if !final.IsDragging || final.Operation != OpCut || len(final.DraggedFiles) != 1 {
		t.Errorf("unexpected final drag state %+v", final)
	}

	// The slot is empty afterwards, dropped or not.
	if after := s.Drag(); after.IsDragging || len(after.DraggedFiles) != 0 {
		t.Errorf("drag slot not discarded: %+v", after)
	}

	// Update on an idle slot is ignored.
	s.UpdateDragOperation(OpCopy)
	if after := s.Drag(); after.Operation != OpNone {
		t.Errorf("idle drag slot mutated: %+v", after)
	}
}

func TestSnapshotOrder(t *testing.T) {
	s := newTestStore()
	mustLayout(t, s, 2, 2)

	snap := s.Snapshot()
	if len(snap.Panels) != 4 {
		t.Fatalf("snapshot has %d panels, want 4", len(snap.Panels))
	}
	for i, view := range snap.Panels {
		if want := fmt.Sprintf("panel-%d", i+1); view.ID != want {
			t.Errorf("snapshot position %d = %s, want %s", i, view.ID, want)
		}
	}
}
