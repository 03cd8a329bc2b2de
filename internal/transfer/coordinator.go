package transfer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/notify"
	"github.com/paneldeck/paneldeck/internal/panel"
	"github.com/paneldeck/paneldeck/internal/pathutil"
	"github.com/paneldeck/paneldeck/internal/progress"
	"github.com/paneldeck/paneldeck/internal/storage"
)

const (
	// maxRenameAttempts bounds the " (N)" suffix scan under the rename
	// collision policy.
	maxRenameAttempts = 100

	// maxErrorsInSummary caps how many per-item errors a notification
	// spells out.
	maxErrorsInSummary = 2

	// maxResults bounds the retained terminal results.
	maxResults = 100
)

// Config wires a Coordinator.
type Config struct {
	Panels    *panel.Service
	Backend   storage.Backend
	Progress  *progress.Tracker
	Notifier  *notify.Center
	Recorder  Recorder // optional
	Collision CollisionPolicy
}

// Coordinator turns a staged file set (clipboard or drag) into a
// sequential per-item transfer with progress, aggregation and
// cooperative cancellation. Paste and drop converge on the same
// execution path; independent transfers run concurrently and share
// nothing but the clipboard slot.
type Coordinator struct {
	panels    *panel.Service
	backend   storage.Backend
	progress  *progress.Tracker
	notifier  *notify.Center
	recorder  Recorder
	collision CollisionPolicy
	logger    zerolog.Logger

	mu      sync.Mutex
	active  map[string]*running
	results map[string]Result
	order   []string
}

type running struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// request is the converged input of one transfer run.
type request struct {
	op          string
	files       []storage.FileInfo
	sourcePanel string
	destPanel   string
	destPath    string
	trigger     string
	clipGen     uint64
}

func NewCoordinator(cfg Config, logger zerolog.Logger) *Coordinator {
	collision := cfg.Collision
	switch collision {
	case CollisionRename, CollisionSkip, CollisionOverwrite:
	default:
		collision = CollisionRename
	}
	return &Coordinator{
		panels:    cfg.Panels,
		backend:   cfg.Backend,
		progress:  cfg.Progress,
		notifier:  cfg.Notifier,
		recorder:  cfg.Recorder,
		collision: collision,
		logger:    logger.With().Str("component", "transfer").Logger(),
		active:    make(map[string]*running),
		results:   make(map[string]Result),
	}
}

// PasteClipboard starts a transfer of the staged clipboard set into
// the given panel's current directory and returns the transfer id.
// The run itself is asynchronous; progress events report on it.
func (c *Coordinator) PasteClipboard(ctx context.Context, destPanelID string) (string, error) {
	store := c.panels.Store()
	cb, gen := store.ClipboardWithGeneration()
	if !cb.HasFiles {
		return "", ErrEmptyClipboard
	}
	dest, ok := store.Panel(destPanelID)
	if !ok {
		return "", panel.ErrPanelNotFound
	}

	op := OpCopy
	if cb.Operation == panel.OpCut {
		op = OpMove
	}
	return c.start(request{
		op:          op,
		files:       cb.Files,
		sourcePanel: cb.SourcePanelID,
		destPanel:   destPanelID,
		destPath:    dest.CurrentPath,
		trigger:     TriggerClipboard,
		clipGen:     gen,
	}), nil
}

// BeginDrag stages a drag of the named entries from a panel. Names
// not present in the panel's listing are dropped.
func (c *Coordinator) BeginDrag(panelID string, names []string, op panel.Operation) error {
	store := c.panels.Store()
	view, ok := store.Panel(panelID)
	if !ok {
		return panel.ErrPanelNotFound
	}
	files := resolveNames(view, names)
	if len(files) == 0 {
		return ErrNoFiles
	}
	return store.BeginDrag(files, panelID, op)
}

// UpdateDragOperation re-derives the pending drop operation while the
// drag hovers. Ignored when no drag is in progress.
func (c *Coordinator) UpdateDragOperation(op panel.Operation) {
	c.panels.Store().UpdateDragOperation(op)
}

// CancelDrag discards the drag slot without a drop.
func (c *Coordinator) CancelDrag() {
	c.panels.Store().EndDrag()
}

// Drop ends the drag on the given panel and starts the transfer. The
// drag slot is discarded whether or not the drop is viable.
func (c *Coordinator) Drop(ctx context.Context, destPanelID string) (string, error) {
	store := c.panels.Store()
	ds := store.EndDrag()
	if !ds.IsDragging {
		return "", ErrNoActiveDrag
	}
	dest, ok := store.Panel(destPanelID)
	if !ok {
		return "", panel.ErrPanelNotFound
	}

	op := OpCopy
	if ds.Operation == panel.OpCut {
		op = OpMove
	}
	return c.start(request{
		op:          op,
		files:       ds.DraggedFiles,
		sourcePanel: ds.SourcePanelID,
		destPanel:   destPanelID,
		destPath:    dest.CurrentPath,
		trigger:     TriggerDrag,
	}), nil
}

// DeleteFiles starts a sequential delete of the given files on behalf
// of a panel.
func (c *Coordinator) DeleteFiles(ctx context.Context, panelID string, files []storage.FileInfo) (string, error) {
	if len(files) == 0 {
		return "", ErrNoFiles
	}
	if _, ok := c.panels.Store().Panel(panelID); !ok {
		return "", panel.ErrPanelNotFound
	}
	return c.start(request{
		op:          OpDelete,
		files:       files,
		sourcePanel: panelID,
		trigger:     TriggerCommand,
	}), nil
}

// Cancel requests cooperative cancellation of an in-flight transfer.
// It reports false once the transfer already reached a terminal state.
func (c *Coordinator) Cancel(id string) bool {
	c.mu.Lock()
	r, ok := c.active[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	r.cancel()
	c.logger.Info().Str("transfer", id).Msg("cancellation requested")
	return true
}

// Wait blocks until the transfer reaches a terminal state and returns
// its result. Unknown or long-evicted ids report false.
func (c *Coordinator) Wait(id string) (Result, bool) {
	c.mu.Lock()
	if res, ok := c.results[id]; ok {
		c.mu.Unlock()
		return res, true
	}
	r, ok := c.active[id]
	c.mu.Unlock()
	if !ok {
		return Result{}, false
	}
	<-r.done

	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.results[id]
	return res, ok
}

// Result returns the retained result of a finished transfer.
func (c *Coordinator) Result(id string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.results[id]
	return res, ok
}

func (c *Coordinator) start(req request) string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	r := &running{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.active[id] = r
	c.mu.Unlock()

	c.logger.Info().
		Str("transfer", id).
		Str("operation", req.op).
		Str("trigger", req.trigger).
		Int("files", len(req.files)).
		Str("dest", req.destPath).
		Msg("transfer started")

	go c.run(ctx, id, req, r)
	return id
}

func (c *Coordinator) run(ctx context.Context, id string, req request, r *running) {
	defer r.cancel()

	res := c.execute(ctx, id, req)
	c.finalize(id, req, &res)

	c.mu.Lock()
	delete(c.active, id)
	c.results[id] = res
	c.order = append(c.order, id)
	if len(c.order) > maxResults {
		delete(c.results, c.order[0])
		c.order = c.order[1:]
	}
	c.mu.Unlock()
	close(r.done)
}

// execute runs the sequential item loop. Cancellation is checked only
// between items; the in-flight item always finishes, and items after
// the cancellation point are marked cancelled without any backend call.
func (c *Coordinator) execute(ctx context.Context, id string, req request) Result {
	res := Result{
		ID:          id,
		Operation:   req.op,
		Trigger:     req.trigger,
		SourcePanel: req.sourcePanel,
		DestPanel:   req.destPanel,
		DestPath:    req.destPath,
		Items:       make([]ItemResult, 0, len(req.files)),
		StartedAt:   time.Now().UTC(),
	}
	c.progress.Start(id, req.op, len(req.files))

	for i, f := range req.files {
		if ctx.Err() != nil {
			for _, rest := range req.files[i:] {
				res.Items = append(res.Items, ItemResult{Source: rest.Path, Status: ItemCancelled})
			}
			break
		}

		var item ItemResult
		if req.op == OpDelete {
			item = c.deleteItem(ctx, f)
		} else {
			item = c.transferItem(ctx, req, f)
		}
		res.Items = append(res.Items, item)
		c.progress.Update(id, f.Name, i+1)
	}

	res.tally()
	res.FinishedAt = time.Now().UTC()
	return res
}

// transferItem copies or moves one file to destDir + basename. The
// self-drop guard and the collision policy run before the backend is
// asked to mutate anything.
func (c *Coordinator) transferItem(ctx context.Context, req request, f storage.FileInfo) ItemResult {
	dst := filepath.Join(req.destPath, f.Name)
	item := ItemResult{Source: f.Path, Destination: dst}

	// Same path means nothing to relocate. In particular a move must
	// never delete an unmoved source.
	if f.Path == dst {
		item.Status = ItemSkipped
		return item
	}

	if _, err := c.backend.Stat(ctx, dst); err == nil {
		switch c.collision {
		case CollisionSkip:
			item.Status = ItemSkipped
			return item
		case CollisionOverwrite:
			item.Overwrote = true
			c.logger.Warn().Str("path", dst).Msg("overwriting existing destination")
		default:
			free, ferr := c.freeDestination(ctx, req.destPath, f.Name)
			if ferr != nil {
				item.Status = ItemFailed
				item.Error = ferr.Error()
				return item
			}
			dst = free
			item.Destination = dst
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		item.Status = ItemFailed
		item.Error = err.Error()
		return item
	}

	var err error
	if req.op == OpMove {
		err = c.backend.Move(ctx, f.Path, dst)
	} else {
		err = c.backend.Copy(ctx, f.Path, dst)
	}
	if err != nil {
		item.Status = ItemFailed
		item.Error = err.Error()
		return item
	}
	item.Status = ItemOK
	return item
}

func (c *Coordinator) deleteItem(ctx context.Context, f storage.FileInfo) ItemResult {
	item := ItemResult{Source: f.Path}
	if err := c.backend.Delete(ctx, f.Path); err != nil {
		item.Status = ItemFailed
		item.Error = err.Error()
		return item
	}
	item.Status = ItemOK
	return item
}

// freeDestination finds the first untaken " (N)" variant of name in
// destDir.
func (c *Coordinator) freeDestination(ctx context.Context, destDir, name string) (string, error) {
	for n := 1; n <= maxRenameAttempts; n++ {
		candidate := filepath.Join(destDir, pathutil.NumberedName(name, n))
		_, err := c.backend.Stat(ctx, candidate)
		if errors.Is(err, storage.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", name, maxRenameAttempts)
}

// finalize applies the completion policy: progress terminal state,
// panel refreshes, conditional clipboard clearing, a notification and
// the history record.
func (c *Coordinator) finalize(id string, req request, res *Result) {
	ctx := context.Background()

	switch res.Status {
	case StatusCompleted:
		c.progress.Complete(id)
	case StatusCancelled:
		c.progress.Cancel(id)
	default:
		c.progress.Fail(id, summarizeErrors(res))
	}

	if req.destPath != "" && (res.Successes > 0 || res.Status == StatusCompleted) {
		c.panels.RefreshPath(ctx, req.destPath)
	}
	if (req.op == OpMove || req.op == OpDelete) && res.Successes > 0 {
		for _, dir := range sourceDirs(res) {
			if dir != req.destPath {
				c.panels.RefreshPath(ctx, dir)
			}
		}
	}

	if req.trigger == TriggerClipboard {
		clear := false
		switch res.Status {
		case StatusCompleted:
			clear = req.op == OpMove
		case StatusPartiallyFailed:
			clear = res.Successes > 0
		}
		if clear {
			if !c.panels.Store().ClearClipboardIfUnchanged(req.clipGen) {
				c.logger.Debug().Str("transfer", id).Msg("clipboard restaged mid-transfer, keeping it")
			}
		}
	}

	c.notifyResult(req, res)

	if c.recorder != nil {
		if err := c.recorder.RecordResult(ctx, *res); err != nil {
			c.logger.Error().Err(err).Str("transfer", id).Msg("failed to record transfer history")
		}
	}

	c.logger.Info().
		Str("transfer", id).
		Str("status", string(res.Status)).
		Int("ok", res.Successes).
		Int("failed", res.Failures).
		Int("skipped", res.Skipped).
		Msg("transfer finished")
}

func (c *Coordinator) notifyResult(req request, res *Result) {
	panelID := req.destPanel
	if panelID == "" {
		panelID = req.sourcePanel
	}
	verb, title := opWords(req.op)

	switch res.Status {
	case StatusCompleted:
		msg := fmt.Sprintf("%s %s", verb, countFiles(res.Successes))
		if req.op != OpDelete && req.destPath != "" {
			msg = fmt.Sprintf("%s to %s", msg, req.destPath)
		}
		if res.Skipped > 0 {
			msg = fmt.Sprintf("%s (%d skipped)", msg, res.Skipped)
		}
		c.notifier.Success(msg, panelID)
	case StatusPartiallyFailed:
		msg := fmt.Sprintf("%s %d of %d files; %d failed: %s",
			verb, res.Successes, len(res.Items), res.Failures, summarizeErrors(res))
		c.notifier.Warning(msg, panelID)
	case StatusFailed:
		c.notifier.Error(fmt.Sprintf("%s failed: %s", title, summarizeErrors(res)), panelID)
	case StatusCancelled:
		done := len(res.Items) - res.Cancelled
		c.notifier.Info(fmt.Sprintf("%s cancelled after %d of %d files", title, done, len(res.Items)), panelID)
	}
}

// resolveNames maps names to the panel's current listing, dropping
// names no longer present.
func resolveNames(view panel.View, names []string) []storage.FileInfo {
	byName := make(map[string]storage.FileInfo, len(view.Files))
	for _, f := range view.Files {
		byName[f.Name] = f
	}
	var out []storage.FileInfo
	for _, name := range names {
		if f, ok := byName[name]; ok {
			out = append(out, f)
		}
	}
	return out
}

func sourceDirs(res *Result) []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, item := range res.Items {
		if item.Status != ItemOK {
			continue
		}
		dir := filepath.Dir(item.Source)
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func summarizeErrors(res *Result) string {
	var parts []string
	more := 0
	for _, item := range res.Items {
		if item.Status != ItemFailed {
			continue
		}
		if len(parts) < maxErrorsInSummary {
			parts = append(parts, fmt.Sprintf("%s: %s", filepath.Base(item.Source), item.Error))
		} else {
			more++
		}
	}
	s := strings.Join(parts, "; ")
	if more > 0 {
		s = fmt.Sprintf("%s (and %d more)", s, more)
	}
	return s
}

func opWords(op string) (verb, title string) {
	switch op {
	case OpMove:
		return "Moved", "Move"
	case OpDelete:
		return "Deleted", "Delete"
	default:
		return "Copied", "Copy"
	}
}

func countFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}
