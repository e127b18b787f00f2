package project

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
)

// DefaultScanDepth bounds how far below the root Scan looks.
const DefaultScanDepth = 6

// Scan returns every git repository under root, sorted by path. It does not
// descend into repositories or dot-directories. Unreadable directories are
// skipped. maxDepth <= 0 means DefaultScanDepth.
func Scan(root string, maxDepth int) ([]string, error) {
	root = fsutil.ExpandHome(root)
	if !fsutil.IsDir(root) {
		return nil, errors.New(errors.ErrInvalid,
			fmt.Sprintf("%s isn't a directory", root),
			"Pass the folder that contains your projects.")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Couldn't resolve %s", root))
	}
	if maxDepth <= 0 {
		maxDepth = DefaultScanDepth
	}

	var repos []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if fsutil.IsDir(filepath.Join(path, ".git")) {
			repos = append(repos, path)
			return fs.SkipDir
		}
		if depth(root, path) >= maxDepth {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Couldn't scan %s", root))
	}
	return repos, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
