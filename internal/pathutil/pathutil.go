package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NormalizePath converts all path separators to forward slashes.
// Go's os.Open/os.Stat accept forward slashes on all platforms.
func NormalizePath(p string) string {
	return filepath.ToSlash(p)
}

// Basename returns the final element of a path.
func Basename(p string) string {
	return filepath.Base(filepath.FromSlash(p))
}

// Join joins path elements and normalizes the result to forward slashes.
func Join(elem ...string) string {
	return NormalizePath(filepath.Join(elem...))
}

// ValidName reports whether name is usable as a single path element.
// Separators, traversal elements and NUL bytes are rejected.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return true
}

// NumberedName returns name with a " (n)" suffix inserted before the
// extension: NumberedName("report.pdf", 2) == "report (2).pdf".
// Names without an extension get the suffix appended.
func NumberedName(name string, n int) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		// Dotfiles such as ".profile" have no usable stem.
		return fmt.Sprintf("%s (%d)", name, n)
	}
	return fmt.Sprintf("%s (%d)%s", base, n, ext)
}

// WithinRoot reports whether path is root itself or a descendant of root.
// Both arguments must already be absolute and cleaned.
func WithinRoot(root, path string) bool {
	if root == path {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
