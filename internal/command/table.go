package command

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/paneldeck/paneldeck/internal/panel"
	"github.com/paneldeck/paneldeck/internal/storage"
)

// Table builds the full command set. Ordering here is cosmetic; the
// registry sorts results itself.
func Table() []*Command {
	return []*Command{
		{
			Descriptor: Descriptor{
				ID:          "copy-files",
				Label:       "Copy Files",
				Category:    CategoryFile,
				Description: "Stage the selected files for copying",
				Icon:        "copy",
				Shortcut:    "mod+c",
			},
			CanExecute: needSelection,
			Execute:    execCopyFiles,
		},
		{
			Descriptor: Descriptor{
				ID:          "cut-files",
				Label:       "Cut Files",
				Category:    CategoryFile,
				Description: "Stage the selected files for moving",
				Icon:        "scissors",
				Shortcut:    "mod+x",
			},
			CanExecute: needSelection,
			Execute:    execCutFiles,
		},
		{
			Descriptor: Descriptor{
				ID:          "paste-files",
				Label:       "Paste Files",
				Category:    CategoryFile,
				Description: "Paste clipboard contents into this panel",
				Icon:        "clipboard",
				Shortcut:    "mod+v",
			},
			CanExecute: needClipboard,
			Execute:    execPasteFiles,
		},
		{
			Descriptor: Descriptor{
				ID:          "delete-files",
				Label:       "Delete Files",
				Category:    CategoryFile,
				Description: "Delete the selected files after confirmation",
				Icon:        "trash",
				Shortcut:    "delete",
			},
			CanExecute: needSelection,
			Execute:    execDeleteFiles,
		},
		{
			Descriptor: Descriptor{
				ID:          "rename-file",
				Label:       "Rename File",
				Category:    CategoryFile,
				Description: "Rename the selected entry",
				Icon:        "edit",
				Shortcut:    "f2",
			},
			CanExecute: needSingleSelection,
			Execute:    execRenameFile,
		},
		{
			Descriptor: Descriptor{
				ID:          "create-directory",
				Label:       "New Folder",
				Category:    CategoryFile,
				Description: "Create a directory in the current location",
				Icon:        "folder-plus",
				Shortcut:    "mod+shift+n",
			},
			Execute: execCreateDirectory,
		},
		{
			Descriptor: Descriptor{
				ID:          "create-file",
				Label:       "New File",
				Category:    CategoryFile,
				Description: "Create an empty file in the current location",
				Icon:        "file-plus",
				Shortcut:    "mod+n",
			},
			Execute: execCreateFile,
		},
		{
			Descriptor: Descriptor{
				ID:          "copy-path",
				Label:       "Copy Path",
				Category:    CategoryFile,
				Description: "Copy the full path to the system clipboard",
				Icon:        "link",
				Shortcut:    "mod+shift+c",
			},
			CanExecute: canCopyPath,
			Execute:    execCopyPath,
		},
		{
			Descriptor: Descriptor{
				ID:          "open-selected",
				Label:       "Open Selected",
				Category:    CategoryNavigation,
				Description: "Open the selected directory in this panel",
				Icon:        "corner-down-right",
				Shortcut:    "enter",
			},
			CanExecute: canOpenSelected,
			Execute:    execOpenSelected,
		},
		{
			Descriptor: Descriptor{
				ID:          "navigate-up",
				Label:       "Go Up",
				Category:    CategoryNavigation,
				Description: "Navigate to the parent directory",
				Icon:        "arrow-up",
				Shortcut:    "backspace",
			},
			CanExecute: canNavigateUp,
			Execute:    execNavigateUp,
		},
		{
			Descriptor: Descriptor{
				ID:          "navigate-home",
				Label:       "Go Home",
				Category:    CategoryNavigation,
				Description: "Navigate to the home directory",
				Icon:        "home",
				Shortcut:    "mod+h",
			},
			Execute: execNavigateHome,
		},
		{
			Descriptor: Descriptor{
				ID:          "navigate-to",
				Label:       "Go to Path",
				Category:    CategoryNavigation,
				Description: "Navigate to a path entered in a prompt",
				Icon:        "compass",
				Shortcut:    "mod+l",
			},
			Execute: execNavigateTo,
		},
		{
			Descriptor: Descriptor{
				ID:          "refresh-panel",
				Label:       "Refresh Panel",
				Category:    CategoryNavigation,
				Description: "Reload the current directory listing",
				Icon:        "refresh-cw",
				Shortcut:    "f5",
			},
			Execute: execRefreshPanel,
		},
		{
			Descriptor: Descriptor{
				ID:          "select-all",
				Label:       "Select All",
				Category:    CategorySelection,
				Description: "Select every entry in the panel",
				Icon:        "check-square",
				Shortcut:    "mod+a",
			},
			CanExecute: needFiles,
			Execute:    execSelectAll,
		},
		{
			Descriptor: Descriptor{
				ID:          "clear-selection",
				Label:       "Clear Selection",
				Category:    CategorySelection,
				Description: "Deselect all entries in the panel",
				Icon:        "square",
				Shortcut:    "escape",
			},
			CanExecute: needSelection,
			Execute:    execClearSelection,
		},
		{
			Descriptor: Descriptor{
				ID:          "invert-selection",
				Label:       "Invert Selection",
				Category:    CategorySelection,
				Description: "Swap selected and unselected entries",
				Icon:        "shuffle",
				Shortcut:    "mod+i",
			},
			CanExecute: needFiles,
			Execute:    execInvertSelection,
		},
		{
			Descriptor: Descriptor{
				ID:          "select-by-pattern",
				Label:       "Select by Pattern",
				Category:    CategorySelection,
				Description: "Select files whose names match a glob pattern",
				Icon:        "filter",
				Shortcut:    "mod+p",
			},
			CanExecute: needFiles,
			Execute:    execSelectByPattern,
		},
		{
			Descriptor: Descriptor{
				ID:          "set-grid-layout",
				Label:       "Set Grid Layout",
				Category:    CategoryLayout,
				Description: "Resize the panel grid to the given rows and columns",
				Icon:        "grid",
			},
			Execute: execSetGridLayout,
		},
		{
			Descriptor: Descriptor{
				ID:          "cycle-layout",
				Label:       "Cycle Layout",
				Category:    CategoryLayout,
				Description: "Switch to the next layout preset",
				Icon:        "rotate-cw",
				Shortcut:    "mod+g",
			},
			Execute: execCycleLayout,
		},
		{
			Descriptor: Descriptor{
				ID:          "focus-next-panel",
				Label:       "Focus Next Panel",
				Category:    CategoryLayout,
				Description: "Activate the next panel in the grid",
				Icon:        "chevrons-right",
				Shortcut:    "tab",
			},
			CanExecute: canFocusNext,
			Execute:    execFocusNextPanel,
		},
		{
			Descriptor: Descriptor{
				ID:          "focus-panel",
				Label:       "Focus Panel",
				Category:    CategoryLayout,
				Description: "Activate a panel by id",
				Icon:        "target",
			},
			Execute: execFocusPanel,
		},
		{
			Descriptor: Descriptor{
				ID:          "set-view-mode",
				Label:       "Set View Mode",
				Category:    CategoryView,
				Description: "Switch the panel between list and grid view",
				Icon:        "layout",
				Shortcut:    "mod+shift+v",
			},
			Execute: execSetViewMode,
		},
		{
			Descriptor: Descriptor{
				ID:          "set-sorting",
				Label:       "Set Sorting",
				Category:    CategoryView,
				Description: "Change the sort key and direction for this panel",
				Icon:        "sliders",
			},
			Execute: execSetSorting,
		},
		{
			Descriptor: Descriptor{
				ID:          "cancel-transfer",
				Label:       "Cancel Transfer",
				Category:    CategoryTransfer,
				Description: "Cancel a running file transfer",
				Icon:        "x-circle",
			},
			Execute: execCancelTransfer,
		},
		{
			Descriptor: Descriptor{
				ID:          "clear-notifications",
				Label:       "Clear Notifications",
				Category:    CategoryNotifications,
				Description: "Dismiss all notifications",
				Icon:        "bell-off",
			},
			Execute: execClearNotifications,
		},
	}
}

func needSelection(c *Context) error {
	if len(c.Selected) == 0 {
		return Validationf("no files selected")
	}
	return nil
}

func needSingleSelection(c *Context) error {
	if len(c.Selected) != 1 {
		return Validationf("select exactly one entry")
	}
	return nil
}

func needFiles(c *Context) error {
	if len(c.Panel.Files) == 0 {
		return Validationf("panel is empty")
	}
	return nil
}

func needClipboard(c *Context) error {
	if !c.Clipboard.HasFiles {
		return Validationf("clipboard is empty")
	}
	return nil
}

func canCopyPath(c *Context) error {
	if len(c.Selected) > 1 {
		return Validationf("select a single entry")
	}
	return nil
}

func canOpenSelected(c *Context) error {
	if len(c.Selected) != 1 {
		return Validationf("select exactly one entry")
	}
	if !c.Selected[0].IsDir() {
		return Validationf("%q is not a directory", c.Selected[0].Name)
	}
	return nil
}

func canNavigateUp(c *Context) error {
	if filepath.Dir(c.Panel.CurrentPath) == c.Panel.CurrentPath {
		return Validationf("already at the top")
	}
	return nil
}

func canFocusNext(c *Context) error {
	if len(c.Snapshot.Panels) < 2 {
		return Validationf("only one panel is open")
	}
	return nil
}

func execCopyFiles(c *Context) error {
	if err := c.deps.Panels.Store().StageClipboard(panel.OpCopy, c.Selected, c.PanelID); err != nil {
		return err
	}
	c.deps.Notifier.Info(fmt.Sprintf("Copied %s to clipboard", countFiles(len(c.Selected))), c.PanelID)
	return nil
}

func execCutFiles(c *Context) error {
	if err := c.deps.Panels.Store().StageClipboard(panel.OpCut, c.Selected, c.PanelID); err != nil {
		return err
	}
	c.deps.Notifier.Info(fmt.Sprintf("Cut %s to clipboard", countFiles(len(c.Selected))), c.PanelID)
	return nil
}

func execPasteFiles(c *Context) error {
	_, err := c.deps.Transfers.PasteClipboard(c.Ctx, c.PanelID)
	return err
}

func execDeleteFiles(c *Context) error {
	ok, err := c.deps.Dialogs.Confirm(c.Ctx, fmt.Sprintf("Delete %s?", describeSelection(c.Selected)))
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	_, err = c.deps.Transfers.DeleteFiles(c.Ctx, c.PanelID, c.Selected)
	return err
}

func execRenameFile(c *Context) error {
	target := c.Selected[0]
	newName := c.Options.String("name")
	if newName == "" {
		var ok bool
		var err error
		newName, ok, err = c.deps.Dialogs.Prompt(c.Ctx, fmt.Sprintf("Rename %q to", target.Name), target.Name)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return Validationf("name cannot be empty")
	}
	if newName == target.Name {
		return nil
	}

	newPath, err := c.deps.Backend.Rename(c.Ctx, target.Path, newName)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrExists):
			return Validationf("%q already exists", newName)
		case errors.Is(err, storage.ErrInvalidName):
			return Validationf("invalid name %q", newName)
		}
		return fmt.Errorf("rename %s: %w", target.Name, err)
	}
	if err := c.deps.Panels.Refresh(c.Ctx, c.PanelID); err != nil {
		return err
	}
	if err := c.deps.Panels.Store().SelectFiles(c.PanelID, []string{filepath.Base(newPath)}, false); err != nil {
		return err
	}
	c.deps.Notifier.Success(fmt.Sprintf("Renamed to %q", newName), c.PanelID)
	return nil
}

func execCreateDirectory(c *Context) error {
	return createEntry(c, storage.KindDirectory, "New folder name", "folder")
}

func execCreateFile(c *Context) error {
	return createEntry(c, storage.KindFile, "New file name", "file")
}

func createEntry(c *Context, kind storage.EntryKind, promptMsg, noun string) error {
	name := c.Options.String("name")
	if name == "" {
		var ok bool
		var err error
		name, ok, err = c.deps.Dialogs.Prompt(c.Ctx, promptMsg, "")
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Validationf("name cannot be empty")
	}

	created, err := c.deps.Backend.Create(c.Ctx, c.Panel.CurrentPath, name, kind)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrExists):
			return Validationf("%q already exists", name)
		case errors.Is(err, storage.ErrInvalidName):
			return Validationf("invalid name %q", name)
		}
		return fmt.Errorf("create %s %s: %w", noun, name, err)
	}
	if err := c.deps.Panels.Refresh(c.Ctx, c.PanelID); err != nil {
		return err
	}
	if err := c.deps.Panels.Store().SelectFiles(c.PanelID, []string{created.Name}, false); err != nil {
		return err
	}
	c.deps.Notifier.Success(fmt.Sprintf("Created %s %q", noun, created.Name), c.PanelID)
	return nil
}

func execCopyPath(c *Context) error {
	path := c.Panel.CurrentPath
	if len(c.Selected) == 1 {
		path = c.Selected[0].Path
	}
	if err := c.deps.Clipboard.WriteText(path); err != nil {
		return fmt.Errorf("copy path: %w", err)
	}
	c.deps.Notifier.Info("Path copied to clipboard", c.PanelID)
	return nil
}

func execOpenSelected(c *Context) error {
	return c.deps.Panels.Navigate(c.Ctx, c.PanelID, c.Selected[0].Path)
}

func execNavigateUp(c *Context) error {
	return c.deps.Panels.NavigateUp(c.Ctx, c.PanelID)
}

func execNavigateHome(c *Context) error {
	return c.deps.Panels.Navigate(c.Ctx, c.PanelID, c.deps.HomePath)
}

func execNavigateTo(c *Context) error {
	path := c.Options.String("path")
	if path == "" {
		var ok bool
		var err error
		path, ok, err = c.deps.Dialogs.Prompt(c.Ctx, "Go to path", c.Panel.CurrentPath)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}

	resolved, err := c.deps.Backend.ResolvePath(c.Ctx, path)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return Validationf("no such directory: %s", path)
		case errors.Is(err, storage.ErrNotDirectory):
			return Validationf("not a directory: %s", path)
		case errors.Is(err, storage.ErrInvalidPath):
			return Validationf("invalid path: %s", path)
		}
		return err
	}
	return c.deps.Panels.Navigate(c.Ctx, c.PanelID, resolved)
}

func execRefreshPanel(c *Context) error {
	return c.deps.Panels.Refresh(c.Ctx, c.PanelID)
}

func execSelectAll(c *Context) error {
	names := make([]string, len(c.Panel.Files))
	for i, f := range c.Panel.Files {
		names[i] = f.Name
	}
	return c.deps.Panels.Store().SelectFiles(c.PanelID, names, false)
}

func execClearSelection(c *Context) error {
	return c.deps.Panels.Store().SelectFiles(c.PanelID, nil, false)
}

func execInvertSelection(c *Context) error {
	selected := make(map[string]struct{}, len(c.Panel.SelectedFiles))
	for _, name := range c.Panel.SelectedFiles {
		selected[name] = struct{}{}
	}
	var names []string
	for _, f := range c.Panel.Files {
		if _, ok := selected[f.Name]; !ok {
			names = append(names, f.Name)
		}
	}
	return c.deps.Panels.Store().SelectFiles(c.PanelID, names, false)
}

func execSelectByPattern(c *Context) error {
	pattern := c.Options.String("pattern")
	if pattern == "" {
		var ok bool
		var err error
		pattern, ok, err = c.deps.Dialogs.Prompt(c.Ctx, "Select files matching", "*")
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return Validationf("invalid pattern %q", pattern)
	}
	var names []string
	for _, f := range c.Panel.Files {
		if g.Match(f.Name) {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 {
		c.deps.Notifier.Info(fmt.Sprintf("No files match %q", pattern), c.PanelID)
		return nil
	}
	return c.deps.Panels.Store().SelectFiles(c.PanelID, names, false)
}

func execSetGridLayout(c *Context) error {
	rows, okR := c.Options.Int("rows")
	cols, okC := c.Options.Int("cols")
	if !okR || !okC {
		return Validationf("rows and cols are required")
	}
	err := c.deps.Panels.ApplyLayout(c.Ctx, rows, cols, c.Options.String("name"))
	if errors.Is(err, panel.ErrInvalidLayout) {
		return Validationf("grid must be between 1x1 and 4x4")
	}
	return err
}

func execCycleLayout(c *Context) error {
	rows, cols, name, err := c.deps.Layouts.Next(c.Snapshot.Layout.Name)
	if err != nil {
		return err
	}
	return c.deps.Panels.ApplyLayout(c.Ctx, rows, cols, name)
}

func execFocusNextPanel(c *Context) error {
	store := c.deps.Panels.Store()
	order := store.Order()
	if len(order) == 0 {
		return nil
	}
	next := order[0]
	for i, id := range order {
		if id == c.Snapshot.ActivePanel {
			next = order[(i+1)%len(order)]
			break
		}
	}
	return store.SetActivePanel(next)
}

func execFocusPanel(c *Context) error {
	id := c.Options.String("panel")
	if id == "" {
		return Validationf("panel is required")
	}
	if err := c.deps.Panels.Store().SetActivePanel(id); err != nil {
		if errors.Is(err, panel.ErrPanelNotFound) {
			return Validationf("unknown panel: %s", id)
		}
		return err
	}
	return nil
}

func execSetViewMode(c *Context) error {
	var mode panel.ViewMode
	if raw := c.Options.String("viewMode"); raw != "" {
		mode = panel.ViewMode(raw)
	} else if c.Panel.ViewMode == panel.ViewList {
		mode = panel.ViewGrid
	} else {
		mode = panel.ViewList
	}

	if err := c.deps.Panels.Store().SetViewMode(c.PanelID, mode); err != nil {
		if errors.Is(err, panel.ErrInvalidViewMode) {
			return Validationf("view mode must be \"list\" or \"grid\"")
		}
		return err
	}
	return nil
}

func execSetSorting(c *Context) error {
	key := panel.SortKey(c.Options.String("sortBy"))
	var order panel.SortOrder
	if raw := c.Options.String("sortOrder"); raw != "" {
		order = panel.SortOrder(raw)
	} else if c.Panel.SortBy == key && c.Panel.SortOrder == panel.SortAsc {
		// Re-sorting by the current key flips the direction.
		order = panel.SortDesc
	} else {
		order = panel.SortAsc
	}

	if err := c.deps.Panels.Store().SetSorting(c.PanelID, key, order); err != nil {
		if errors.Is(err, panel.ErrInvalidSorting) {
			return Validationf("invalid sorting: %s %s", key, order)
		}
		return err
	}
	return nil
}

func execCancelTransfer(c *Context) error {
	id := c.Options.String("transferId")
	if id == "" {
		return Validationf("transferId is required")
	}
	if !c.deps.Transfers.Cancel(id) {
		return Validationf("no active transfer %s", id)
	}
	return nil
}

func execClearNotifications(c *Context) error {
	c.deps.Notifier.Clear()
	return nil
}

func countFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}

func describeSelection(files []storage.FileInfo) string {
	if len(files) == 1 {
		return fmt.Sprintf("%q", files[0].Name)
	}
	return countFiles(len(files))
}
