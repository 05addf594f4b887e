package processor

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"fechador/pkg/imgutil"
)

// DefaultOutputName is the folder created next to the sources when no
// output directory is given.
const DefaultOutputName = "annotated"

// CollectItems expands command-line paths into the batch item list.
// Explicit files are kept as given. Directories contribute files with a
// supported image extension; subdirectories are entered only when recursive
// is set, and output folders (skipDir or DefaultOutputName) never are.
// A file reached more than once is kept at its first occurrence.
func CollectItems(paths []string, recursive bool, skipDir string) ([]string, error) {
	var items []string
	seen := make(map[string]bool)
	add := func(path string) {
		key := filepath.Clean(path)
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if !seen[key] {
			seen[key] = true
			items = append(items, path)
		}
	}
	var skipAbs string
	if skipDir != "" {
		if abs, err := filepath.Abs(skipDir); err == nil {
			skipAbs = filepath.Clean(abs)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path == root {
					return nil
				}
				if !recursive || d.Name() == DefaultOutputName {
					return fs.SkipDir
				}
				if skipAbs != "" && isWithin(path, skipAbs) {
					return fs.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && imgutil.IsSupported(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return items, nil
}

// ResolveOutputDir returns explicit when set, otherwise an "annotated"
// folder inside the single parent directory shared by every item.
func ResolveOutputDir(items []string, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if len(items) == 0 {
		return "", ErrNoItems
	}

	parent := filepath.Dir(items[0])
	for _, item := range items[1:] {
		if filepath.Dir(item) != parent {
			return "", ErrOutputRequired
		}
	}
	return filepath.Join(parent, DefaultOutputName), nil
}

func isWithin(path string, root string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
