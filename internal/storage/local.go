package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/pathutil"
)

// Local implements Backend on the operating system filesystem.
type Local struct {
	showHidden bool
	logger     zerolog.Logger
}

// NewLocal creates a local filesystem backend.
func NewLocal(showHidden bool, logger zerolog.Logger) *Local {
	return &Local{
		showHidden: showHidden,
		logger:     logger.With().Str("component", "storage").Logger(),
	}
}

// List returns the entries of a directory, hidden files filtered per
// configuration. Entries come back name-sorted with directories first;
// panels re-sort per their own preferences.
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	dir, err := l.validateDir(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, mapOSError(err)
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !l.showHidden && strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info.
			continue
		}
		infos = append(infos, fromOSInfo(filepath.Join(dir, entry.Name()), fi))
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].IsDir() != infos[j].IsDir() {
			return infos[i].IsDir()
		}
		return strings.ToLower(infos[i].Name) < strings.ToLower(infos[j].Name)
	})

	return infos, nil
}

// Stat returns the entry at path. Symlinks are reported as symlinks,
// not their targets.
func (l *Local) Stat(ctx context.Context, path string) (FileInfo, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return FileInfo{}, mapOSError(err)
	}
	return fromOSInfo(path, fi), nil
}

// Create makes a new empty file or directory inside dir.
func (l *Local) Create(ctx context.Context, dir, name string, kind EntryKind) (FileInfo, error) {
	if !pathutil.ValidName(name) {
		return FileInfo{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	parent, err := l.validateDir(dir)
	if err != nil {
		return FileInfo{}, err
	}

	target := filepath.Join(parent, name)
	switch kind {
	case KindDirectory:
		if err := os.Mkdir(target, 0755); err != nil {
			return FileInfo{}, mapOSError(err)
		}
	case KindFile:
		f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			return FileInfo{}, mapOSError(err)
		}
		f.Close()
	default:
		return FileInfo{}, fmt.Errorf("unknown entry kind %q", kind)
	}

	l.logger.Debug().Str("path", target).Str("kind", string(kind)).Msg("entry created")
	return l.Stat(ctx, target)
}

// Copy duplicates src at dst. Files stream through a temp file in the
// destination directory and land with a rename, so readers never see a
// half-written file. Directories are copied recursively.
func (l *Local) Copy(ctx context.Context, src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return mapOSError(err)
	}

	if info.IsDir() {
		return l.copyDir(ctx, src, dst)
	}
	return l.copyFile(src, dst, info.Mode())
}

// Move relocates src to dst. A plain rename is attempted first; when it
// fails (typically a cross-device move) the entry is copied and the
// source deleted.
func (l *Local) Move(ctx context.Context, src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		return mapOSError(err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := l.Copy(ctx, src, dst); err != nil {
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("source cleanup after copy: %w", err)
	}
	return nil
}

// Delete removes path, recursively for directories.
func (l *Local) Delete(ctx context.Context, path string) error {
	if _, err := os.Lstat(path); err != nil {
		return mapOSError(err)
	}
	if err := os.RemoveAll(path); err != nil {
		return mapOSError(err)
	}
	l.logger.Debug().Str("path", path).Msg("entry deleted")
	return nil
}

// Rename changes the base name of path in place.
func (l *Local) Rename(ctx context.Context, path, newName string) (string, error) {
	if !pathutil.ValidName(newName) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}
	if _, err := os.Lstat(path); err != nil {
		return "", mapOSError(err)
	}

	newPath := filepath.Join(filepath.Dir(path), newName)
	if newPath == path {
		return path, nil
	}
	if _, err := os.Lstat(newPath); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, newName)
	}
	if err := os.Rename(path, newPath); err != nil {
		return "", mapOSError(err)
	}
	return newPath, nil
}

// ResolvePath expands user-entered input into an absolute directory
// path: "~" expands to the user home, relative segments are resolved
// against the working directory.
func (l *Local) ResolvePath(ctx context.Context, input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrInvalidPath
	}

	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: cannot resolve home", ErrInvalidPath)
		}
		trimmed = filepath.Join(home, trimmed[1:])
	}

	return l.validateDir(trimmed)
}

// validateDir cleans a path, makes it absolute and verifies it is an
// existing directory.
func (l *Local) validateDir(path string) (string, error) {
	cleaned := filepath.Clean(path)

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", ErrInvalidPath
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", mapOSError(err)
	}
	if !info.IsDir() {
		return "", ErrNotDirectory
	}

	return absPath, nil
}

func (l *Local) copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return mapOSError(err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".paneldeck-*")
	if err != nil {
		return mapOSError(err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}

	if err := os.Chmod(tmpPath, mode.Perm()); err != nil {
		os.Remove(tmpPath)
		return mapOSError(err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return mapOSError(err)
	}
	return nil
}

func (l *Local) copyDir(ctx context.Context, src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return mapOSError(err)
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return mapOSError(err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return mapOSError(err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := l.copyDir(ctx, srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return mapOSError(err)
		}
		if err := l.copyFile(srcPath, dstPath, info.Mode()); err != nil {
			return err
		}
	}
	return nil
}

// fromOSInfo converts an os.FileInfo into a snapshot.
func fromOSInfo(path string, fi os.FileInfo) FileInfo {
	t := TypeFile
	switch {
	case fi.IsDir():
		t = TypeDirectory
	case fi.Mode()&os.ModeSymlink != 0:
		t = TypeSymlink
	}
	return FileInfo{
		Name:     fi.Name(),
		Path:     pathutil.NormalizePath(path),
		Size:     fi.Size(),
		Modified: fi.ModTime(),
		Type:     t,
	}
}

// mapOSError translates OS errors into backend sentinels.
func mapOSError(err error) error {
	switch {
	case os.IsNotExist(err):
		return ErrNotFound
	case os.IsPermission(err):
		return ErrAccessDenied
	case os.IsExist(err):
		return ErrExists
	default:
		return err
	}
}
