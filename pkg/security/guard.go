// Package security confines file access to the storage root. Media
// references come from CSV rows and platform names from user input, so
// every path derived from them is validated before it touches the
// filesystem.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Guard validates that file references stay inside a fixed root directory.
type Guard struct {
	root string
}

// NewGuard creates a guard rooted at dir. The directory path is converted
// to an absolute, cleaned path; symlinks inside it are resolved lazily per
// reference because the root is created on demand by its owner.
func NewGuard(dir string) (*Guard, error) {
	if dir == "" {
		return nil, fmt.Errorf("guard root cannot be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve guard root: %w", err)
	}

	return &Guard{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory.
func (g *Guard) Root() string {
	return g.root
}

// Resolve turns a reference into an absolute path under the root. Relative
// references are joined onto the root; absolute references must already lie
// inside it. Traversal outside the root is an error.
func (g *Guard) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	full := ref
	if !filepath.IsAbs(full) {
		full = filepath.Join(g.root, full)
	}
	full = filepath.Clean(full)

	if !g.contains(full) {
		return "", fmt.Errorf("path %q is outside %s", ref, g.root)
	}
	return full, nil
}

// contains reports whether the cleaned absolute path lies under the root.
func (g *Guard) contains(path string) bool {
	if path == g.root {
		return true
	}
	return strings.HasPrefix(path, g.root+string(filepath.Separator))
}
