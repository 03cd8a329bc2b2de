package storage

import (
	"context"
	"errors"
	"time"
)

// Errors returned by storage backends.
var (
	ErrNotFound     = errors.New("path does not exist")
	ErrNotDirectory = errors.New("path is not a directory")
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidPath  = errors.New("invalid path")
	ErrInvalidName  = errors.New("invalid name")
	ErrExists       = errors.New("already exists")
)

// FileType classifies a directory entry.
type FileType string

const (
	TypeFile      FileType = "file"
	TypeDirectory FileType = "directory"
	TypeSymlink   FileType = "symlink"
)

// EntryKind selects what Create makes.
type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// FileInfo is an immutable snapshot of a directory entry. Consumers
// never mutate it; a fresh listing replaces it wholesale.
type FileInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Type     FileType  `json:"type"`
}

// IsDir reports whether the entry is a directory.
func (f FileInfo) IsDir() bool {
	return f.Type == TypeDirectory
}

// Backend is the storage boundary the orchestration core drives. All
// calls take a context; the core imposes no timeout of its own.
type Backend interface {
	// List returns the entries of a directory.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Stat returns the entry at path without following symlinks.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Create makes a new empty file or directory named name inside dir.
	// It fails with ErrExists when the name is taken.
	Create(ctx context.Context, dir, name string, kind EntryKind) (FileInfo, error)

	// Copy duplicates src at dst. Directories are copied recursively.
	// An existing dst is replaced; collision handling happens upstream.
	Copy(ctx context.Context, src, dst string) error

	// Move relocates src to dst, falling back to copy+delete across
	// devices. An existing dst is replaced.
	Move(ctx context.Context, src, dst string) error

	// Delete removes path, recursively for directories.
	Delete(ctx context.Context, path string) error

	// Rename changes the base name of path in place and returns the
	// resulting path. It fails with ErrExists when the name is taken.
	Rename(ctx context.Context, path, newName string) (string, error)

	// ResolvePath expands and validates user-entered directory input
	// (~, relative segments) into an absolute directory path.
	ResolvePath(ctx context.Context, input string) (string, error)
}
