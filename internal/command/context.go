package command

import (
	"context"

	"github.com/paneldeck/paneldeck/internal/notify"
	"github.com/paneldeck/paneldeck/internal/panel"
	"github.com/paneldeck/paneldeck/internal/storage"
)

// Transfers is the slice of the transfer coordinator commands need.
type Transfers interface {
	PasteClipboard(ctx context.Context, destPanelID string) (string, error)
	DeleteFiles(ctx context.Context, panelID string, files []storage.FileInfo) (string, error)
	Cancel(id string) bool
}

// Dialogs asks the connected UI for input and blocks until it answers.
type Dialogs interface {
	Prompt(ctx context.Context, message, defaultValue string) (string, bool, error)
	Confirm(ctx context.Context, message string) (bool, error)
}

// Notifier is the slice of the notification center commands need.
type Notifier interface {
	Info(message, panelID string) *notify.Notification
	Success(message, panelID string) *notify.Notification
	Warning(message, panelID string) *notify.Notification
	Error(message, panelID string) *notify.Notification
	Clear() int
}

// TextClipboard writes plain text to the system clipboard.
type TextClipboard interface {
	WriteText(text string) error
}

// LayoutCycler steps through the configured grid presets.
type LayoutCycler interface {
	Next(current string) (rows, cols int, name string, err error)
}

// Deps bundles everything command executors may touch.
type Deps struct {
	Panels    *panel.Service
	Backend   storage.Backend
	Transfers Transfers
	Dialogs   Dialogs
	Notifier  Notifier
	Clipboard TextClipboard
	Layouts   LayoutCycler
	HomePath  string
}

// Context is the per-dispatch snapshot handed to CanExecute and
// Execute. Selected holds the selected entries of the target panel in
// listing order; names no longer present in the listing are dropped.
type Context struct {
	Ctx       context.Context
	PanelID   string
	Panel     panel.View
	Selected  []storage.FileInfo
	Clipboard panel.ClipboardState
	Snapshot  panel.Snapshot

	Options  Options
	deps     *Deps
	dispatch func(ctx context.Context, id, panelID string, options Options) error
}

func newContext(ctx context.Context, panelID string, options Options, deps *Deps, dispatch func(context.Context, string, string, Options) error) (*Context, error) {
	store := deps.Panels.Store()
	if panelID == "" {
		panelID = store.ActivePanelID()
	}
	view, ok := store.Panel(panelID)
	if !ok {
		return nil, panel.ErrPanelNotFound
	}
	c := &Context{
		Ctx:      ctx,
		PanelID:  panelID,
		Options:  options,
		deps:     deps,
		dispatch: dispatch,
	}
	c.apply(view, store)
	return c, nil
}

// Refresh re-reads panel state after an operation mutated it, so a
// command chaining further work sees its own effects.
func (c *Context) Refresh() error {
	store := c.deps.Panels.Store()
	view, ok := store.Panel(c.PanelID)
	if !ok {
		return panel.ErrPanelNotFound
	}
	c.apply(view, store)
	return nil
}

func (c *Context) apply(view panel.View, store *panel.Store) {
	c.Panel = view
	c.Clipboard = store.Clipboard()
	c.Snapshot = store.Snapshot()

	c.Selected = c.Selected[:0]
	selected := make(map[string]struct{}, len(view.SelectedFiles))
	for _, name := range view.SelectedFiles {
		selected[name] = struct{}{}
	}
	for _, f := range view.Files {
		if _, ok := selected[f.Name]; ok {
			c.Selected = append(c.Selected, f)
		}
	}
}

// Dispatch re-enters the dispatcher, letting one command invoke
// another against the same panel.
func (c *Context) Dispatch(id string, options Options) error {
	return c.dispatch(c.Ctx, id, c.PanelID, options)
}
