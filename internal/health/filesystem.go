package health

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DirAccessible verifies that path exists and is a directory.
func DirAccessible(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied: %s", path)
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	return nil
}

// DirWritable verifies that a directory accepts new files by creating
// and removing a uniquely named probe file. Stat-based permission bits
// lie on network mounts; actually writing does not.
func DirWritable(path string) error {
	probe := filepath.Join(path, fmt.Sprintf(".paneldeck_health_%s", uuid.New().String()[:8]))

	f, err := os.Create(probe)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("directory is read-only: %s", path)
		}
		return fmt.Errorf("cannot write to directory: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(probe)
		return fmt.Errorf("cannot close probe file: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("cannot remove probe file: %w", err)
	}
	return nil
}

// CheckDir probes a directory for use as a panel location. A missing
// or unreadable directory is an error; read-only is a warning, since
// panels can still browse it.
func CheckDir(path string) (Status, string) {
	if err := DirAccessible(path); err != nil {
		return StatusError, err.Error()
	}
	if err := DirWritable(path); err != nil {
		return StatusWarning, err.Error()
	}
	return StatusOK, ""
}
