package command

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/notify"
	"github.com/paneldeck/paneldeck/internal/panel"
	"github.com/paneldeck/paneldeck/internal/storage"
	"github.com/paneldeck/paneldeck/internal/storage/mock"
)

type nopHub struct{}

func (nopHub) Broadcast(string, interface{}) error { return nil }

type pasteCall struct {
	panelID string
}

type deleteCall struct {
	panelID string
	files   []storage.FileInfo
}

type fakeTransfers struct {
	pastes   []pasteCall
	deletes  []deleteCall
	cancels  []string
	cancelOK bool
	pasteErr error
}

func (f *fakeTransfers) PasteClipboard(_ context.Context, destPanelID string) (string, error) {
	f.pastes = append(f.pastes, pasteCall{panelID: destPanelID})
	return "transfer-1", f.pasteErr
}

func (f *fakeTransfers) DeleteFiles(_ context.Context, panelID string, files []storage.FileInfo) (string, error) {
	f.deletes = append(f.deletes, deleteCall{panelID: panelID, files: files})
	return "transfer-2", nil
}

func (f *fakeTransfers) Cancel(id string) bool {
	f.cancels = append(f.cancels, id)
	return f.cancelOK
}

type fakeDialogs struct {
	promptValue string
	promptOK    bool
	confirmAns  bool
	prompts     []string
	confirms    []string
}

func (f *fakeDialogs) Prompt(_ context.Context, message, _ string) (string, bool, error) {
	f.prompts = append(f.prompts, message)
	return f.promptValue, f.promptOK, nil
}

func (f *fakeDialogs) Confirm(_ context.Context, message string) (bool, error) {
	f.confirms = append(f.confirms, message)
	return f.confirmAns, nil
}

type fakeClipboard struct {
	texts []string
	err   error
}

func (f *fakeClipboard) WriteText(text string) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

type fakeLayouts struct {
	rows, cols int
	name       string
	err        error
	asked      []string
}

func (f *fakeLayouts) Next(current string) (int, int, string, error) {
	f.asked = append(f.asked, current)
	return f.rows, f.cols, f.name, f.err
}

type fixture struct {
	dispatcher *Dispatcher
	store      *panel.Store
	service    *panel.Service
	backend    *mock.Backend
	transfers  *fakeTransfers
	dialogs    *fakeDialogs
	clipboard  *fakeClipboard
	layouts    *fakeLayouts
	center     *notify.Center
}

// newFixture builds a dispatcher over two panels showing /home/test,
// which holds docs/, alpha.txt and beta.txt.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := mock.NewBackend()
	backend.AddSubdir("/home/test", "docs")
	backend.AddFile("/home/test", "alpha.txt", 100)
	backend.AddFile("/home/test", "beta.txt", 200)
	backend.AddFile("/home/test/docs", "guide.md", 50)

	store := panel.NewStore(panel.Defaults{
		HomePath:  "/home/test",
		ViewMode:  panel.ViewList,
		SortBy:    panel.SortByName,
		SortOrder: panel.SortAsc,
	}, nopHub{}, zerolog.Nop())
	service := panel.NewService(store, backend, zerolog.Nop())
	if err := service.ApplyLayout(context.Background(), 1, 2, "dual"); err != nil {
		t.Fatalf("apply layout: %v", err)
	}

	f := &fixture{
		store:     store,
		service:   service,
		backend:   backend,
		transfers: &fakeTransfers{cancelOK: true},
		dialogs:   &fakeDialogs{},
		clipboard: &fakeClipboard{},
		layouts:   &fakeLayouts{rows: 2, cols: 2, name: "quad"},
		center:    notify.NewCenter(nopHub{}, zerolog.Nop()),
	}
	deps := &Deps{
		Panels:    service,
		Backend:   backend,
		Transfers: f.transfers,
		Dialogs:   f.dialogs,
		Notifier:  f.center,
		Clipboard: f.clipboard,
		Layouts:   f.layouts,
		HomePath:  "/home/test",
	}
	f.dispatcher = NewDispatcher(NewRegistry(Table()), deps, zerolog.Nop())
	return f
}

func (f *fixture) dispatch(t *testing.T, id string, options Options) error {
	t.Helper()
	return f.dispatcher.Dispatch(context.Background(), id, "", options)
}

func (f *fixture) dispatchOn(t *testing.T, panelID, id string, options Options) error {
	t.Helper()
	return f.dispatcher.Dispatch(context.Background(), id, panelID, options)
}

func (f *fixture) selectNames(t *testing.T, panelID string, names ...string) {
	t.Helper()
	if err := f.store.SelectFiles(panelID, names, false); err != nil {
		t.Fatalf("select %v in %s: %v", names, panelID, err)
	}
}

func (f *fixture) view(t *testing.T, panelID string) panel.View {
	t.Helper()
	v, ok := f.store.Panel(panelID)
	if !ok {
		t.Fatalf("panel %s not found", panelID)
	}
	return v
}

func (f *fixture) entry(t *testing.T, panelID, name string) storage.FileInfo {
	t.Helper()
	for _, fi := range f.view(t, panelID).Files {
		if fi.Name == name {
			return fi
		}
	}
	t.Fatalf("entry %s not in panel %s", name, panelID)
	return storage.FileInfo{}
}

func (f *fixture) lastNotification(t *testing.T) *notify.Notification {
	t.Helper()
	items := f.center.List()
	if len(items) == 0 {
		t.Fatal("no notifications")
	}
	return items[len(items)-1]
}

// fullContext returns a context in which every command in the table
// passes its precondition: one selected directory, a staged clipboard,
// a populated listing and a second panel.
func (f *fixture) fullContext(t *testing.T) *Context {
	t.Helper()
	f.selectNames(t, "panel-1", "docs")
	docs := f.entry(t, "panel-1", "docs")
	if err := f.store.StageClipboard(panel.OpCopy, []storage.FileInfo{docs}, "panel-1"); err != nil {
		t.Fatalf("stage clipboard: %v", err)
	}
	ectx, err := f.dispatcher.Context(context.Background(), "panel-1")
	if err != nil {
		t.Fatalf("build context: %v", err)
	}
	return ectx
}
