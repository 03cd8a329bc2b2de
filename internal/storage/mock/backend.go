// Package mock provides a scripted in-memory storage backend for
// tests. It records every call in order and can be told to fail
// specific operations, which is how partial-failure and cancellation
// paths get exercised without touching a real filesystem.
package mock

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/paneldeck/paneldeck/internal/storage"
)

// Call is one recorded backend invocation. Path is the primary
// argument; Dest carries the secondary one (copy/move destination,
// create/rename name).
type Call struct {
	Method string
	Path   string
	Dest   string
}

// Backend implements storage.Backend over an in-memory directory table.
// All paths are slash-separated virtual paths such as "/a/x.txt".
type Backend struct {
	mu       sync.Mutex
	listings map[string][]storage.FileInfo
	resolves map[string]string
	errs     map[string]error
	calls    []Call
	hook     func(Call)
	now      time.Time
}

// NewBackend creates an empty scripted backend.
func NewBackend() *Backend {
	return &Backend{
		listings: make(map[string][]storage.FileInfo),
		resolves: make(map[string]string),
		errs:     make(map[string]error),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// AddDir registers a directory and its entries.
func (b *Backend) AddDir(dir string, entries ...storage.FileInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listings[dir] = append(b.listings[dir], entries...)
}

// AddFile seeds a file entry under dir and returns its snapshot.
func (b *Backend) AddFile(dir, name string, size int64) storage.FileInfo {
	fi := storage.FileInfo{
		Name:     name,
		Path:     path.Join(dir, name),
		Size:     size,
		Modified: b.now,
		Type:     storage.TypeFile,
	}
	b.AddDir(dir, fi)
	return fi
}

// AddSubdir seeds a directory entry under dir (and registers it as a
// listable directory of its own) and returns its snapshot.
func (b *Backend) AddSubdir(dir, name string) storage.FileInfo {
	fi := storage.FileInfo{
		Name:     name,
		Path:     path.Join(dir, name),
		Modified: b.now,
		Type:     storage.TypeDirectory,
	}
	b.AddDir(dir, fi)
	b.mu.Lock()
	if _, ok := b.listings[fi.Path]; !ok {
		b.listings[fi.Path] = nil
	}
	b.mu.Unlock()
	return fi
}

// FailOn makes the given method fail for the given primary path.
func (b *Backend) FailOn(method, p string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[method+" "+p] = err
}

// ResolveTo scripts a ResolvePath answer.
func (b *Backend) ResolveTo(input, result string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resolves[input] = result
}

// SetHook installs a function invoked after each call is recorded.
// Tests use it to cancel contexts mid-transfer.
func (b *Backend) SetHook(fn func(Call)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = fn
}

// Calls returns all recorded calls in order.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallsFor returns the recorded calls for one method, in order.
func (b *Backend) CallsFor(method string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Listing returns the current entries of a seeded directory.
func (b *Backend) Listing(dir string) []storage.FileInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]storage.FileInfo, len(b.listings[dir]))
	copy(out, b.listings[dir])
	return out
}

// List implements storage.Backend.
func (b *Backend) List(ctx context.Context, dir string) ([]storage.FileInfo, error) {
	if err := b.begin("list", dir, ""); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	entries, ok := b.listings[dir]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]storage.FileInfo, len(entries))
	copy(out, entries)
	return out, nil
}

// Stat implements storage.Backend.
func (b *Backend) Stat(ctx context.Context, p string) (storage.FileInfo, error) {
	if err := b.begin("stat", p, ""); err != nil {
		return storage.FileInfo{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if fi, ok := b.lookup(p); ok {
		return fi, nil
	}
	return storage.FileInfo{}, storage.ErrNotFound
}

// Create implements storage.Backend.
func (b *Backend) Create(ctx context.Context, dir, name string, kind storage.EntryKind) (storage.FileInfo, error) {
	if err := b.begin("create", dir, name); err != nil {
		return storage.FileInfo{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.listings[dir]; !ok {
		return storage.FileInfo{}, storage.ErrNotFound
	}
	target := path.Join(dir, name)
	if _, ok := b.lookup(target); ok {
		return storage.FileInfo{}, storage.ErrExists
	}

	t := storage.TypeFile
	if kind == storage.KindDirectory {
		t = storage.TypeDirectory
	}
	fi := storage.FileInfo{Name: name, Path: target, Modified: b.now, Type: t}
	b.listings[dir] = append(b.listings[dir], fi)
	if t == storage.TypeDirectory {
		b.listings[target] = nil
	}
	return fi, nil
}

// Copy implements storage.Backend.
func (b *Backend) Copy(ctx context.Context, src, dst string) error {
	if err := b.begin("copy", src, dst); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	fi, ok := b.lookup(src)
	if !ok {
		return storage.ErrNotFound
	}
	b.place(fi, dst)
	return nil
}

// Move implements storage.Backend.
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	if err := b.begin("move", src, dst); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	fi, ok := b.lookup(src)
	if !ok {
		return storage.ErrNotFound
	}
	b.remove(src)
	b.place(fi, dst)
	return nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, p string) error {
	if err := b.begin("delete", p, ""); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.lookup(p); !ok {
		return storage.ErrNotFound
	}
	b.remove(p)
	delete(b.listings, p)
	return nil
}

// Rename implements storage.Backend.
func (b *Backend) Rename(ctx context.Context, p, newName string) (string, error) {
	if err := b.begin("rename", p, newName); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	fi, ok := b.lookup(p)
	if !ok {
		return "", storage.ErrNotFound
	}
	newPath := path.Join(path.Dir(p), newName)
	if newPath == p {
		return p, nil
	}
	if _, ok := b.lookup(newPath); ok {
		return "", storage.ErrExists
	}

	b.remove(p)
	fi.Name = newName
	fi.Path = newPath
	b.place(fi, newPath)
	if fi.Type == storage.TypeDirectory {
		b.listings[newPath] = b.listings[p]
		delete(b.listings, p)
	}
	return newPath, nil
}

// ResolvePath implements storage.Backend.
func (b *Backend) ResolvePath(ctx context.Context, input string) (string, error) {
	if err := b.begin("resolve", input, ""); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if result, ok := b.resolves[input]; ok {
		return result, nil
	}
	cleaned := path.Clean(input)
	if _, ok := b.listings[cleaned]; ok {
		return cleaned, nil
	}
	return "", storage.ErrNotFound
}

// begin records the call, runs the hook and returns any scripted error.
func (b *Backend) begin(method, p, dest string) error {
	call := Call{Method: method, Path: p, Dest: dest}

	b.mu.Lock()
	b.calls = append(b.calls, call)
	hook := b.hook
	err := b.errs[method+" "+p]
	b.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return err
}

// lookup finds an entry by full path. Directories registered as
// listing keys resolve even without a parent entry. Callers hold mu.
func (b *Backend) lookup(p string) (storage.FileInfo, bool) {
	parent := path.Dir(p)
	for _, fi := range b.listings[parent] {
		if fi.Path == p {
			return fi, true
		}
	}
	if _, ok := b.listings[p]; ok {
		return storage.FileInfo{
			Name:     path.Base(p),
			Path:     p,
			Modified: b.now,
			Type:     storage.TypeDirectory,
		}, true
	}
	return storage.FileInfo{}, false
}

// place inserts fi at the full destination path dst, replacing any
// entry already there. Callers hold mu.
func (b *Backend) place(fi storage.FileInfo, dst string) {
	parent := path.Dir(dst)
	fi.Name = path.Base(dst)
	fi.Path = dst

	entries := b.listings[parent]
	for i := range entries {
		if entries[i].Path == dst {
			entries[i] = fi
			return
		}
	}
	b.listings[parent] = append(entries, fi)
	if fi.Type == storage.TypeDirectory {
		if _, ok := b.listings[dst]; !ok {
			b.listings[dst] = nil
		}
	}
}

// remove drops the entry at p from its parent listing. Callers hold mu.
func (b *Backend) remove(p string) {
	parent := path.Dir(p)
	entries := b.listings[parent]
	for i := range entries {
		if entries[i].Path == p {
			b.listings[parent] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}
