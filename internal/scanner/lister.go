package scanner

import (
	"io/fs"
	"path/filepath"
)

// DefaultMaxFiles caps how many paths one List call returns.
const DefaultMaxFiles = 10000

// Lister enumerates candidate files under a root. hasMore reports that
// the enumeration was truncated by a limit.
type Lister interface {
	List(root string) (paths []string, hasMore bool, err error)
}

// WalkLister lists regular files by walking the directory tree.
// Ignored directories are pruned during the walk so large excluded
// trees are never descended into.
type WalkLister struct {
	MaxFiles int
	Ignore   *IgnoreRules // optional; prunes directories during the walk
}

// List walks root and returns up to MaxFiles regular file paths.
func (l *WalkLister) List(root string) ([]string, bool, error) {
	limit := l.MaxFiles
	if limit <= 0 {
		limit = DefaultMaxFiles
	}

	paths := make([]string, 0, 256)
	hasMore := false

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		if d.IsDir() {
			if path != root && l.Ignore != nil && l.Ignore.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(paths) >= limit {
			hasMore = true
			return filepath.SkipAll
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return paths, hasMore, nil
}
