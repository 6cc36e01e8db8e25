// Package workspace resolves files to their owning project root. All
// helpers are pure and synchronous; multi-root setups are handled by
// longest-prefix matching.
package workspace

import (
	"path/filepath"
	"strings"
)

// Normalize cleans a path and converts separators to the platform
// form. Relative paths are made absolute against the working
// directory; failures fall back to the cleaned input.
func Normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Contains reports whether path lives under root. A root contains
// itself.
func Contains(root, path string) bool {
	root = Normalize(root)
	path = Normalize(path)
	if root == path {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// RootForFile resolves a file to its owning root. With multiple
// candidate roots the deepest (longest-prefix) match wins, so nested
// project roots shadow their parents. Returns ok=false when no root
// contains the file.
func RootForFile(path string, roots []string) (root string, ok bool) {
	path = Normalize(path)
	best := ""
	for _, r := range roots {
		r = Normalize(r)
		if !Contains(r, path) {
			continue
		}
		if len(r) > len(best) {
			best = r
		}
	}
	return best, best != ""
}

// RelativeTo returns path relative to its owning root, or the
// normalized path unchanged when no root owns it.
func RelativeTo(path string, roots []string) string {
	root, ok := RootForFile(path, roots)
	if !ok {
		return Normalize(path)
	}
	rel, err := filepath.Rel(root, Normalize(path))
	if err != nil {
		return Normalize(path)
	}
	return rel
}
