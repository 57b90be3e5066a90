package folderindex

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// walkRoots collects every directory below roots up to maxDepth levels deep.
// Unreadable paths are skipped, a failing root does not abort the others.
func walkRoots(ctx context.Context, roots, excluded []string, maxDepth int) ([]Entry, error) {
	skip := excludeSet(excluded)

	now := time.Now()
	var entries []Entry

	for _, root := range roots {
		root = filepath.Clean(root)

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				slog.Debug("Skipping unreadable path", "path", path, "error", err)
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.IsDir() || path == root {
				return nil
			}

			name := d.Name()
			if isExcluded(name, skip) {
				return filepath.SkipDir
			}

			depth := depthOf(root, path)
			if depth > maxDepth {
				return filepath.SkipDir
			}

			entries = append(entries, Entry{
				Name:        strings.ToLower(name),
				FullPath:    path,
				ParentPath:  filepath.Dir(path),
				LastUpdated: now,
			})

			if depth == maxDepth {
				return filepath.SkipDir
			}

			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Folder walk failed", "root", root, "error", err)
		}
	}

	return entries, nil
}

// findFile returns the first regular file under roots whose name contains needle.
func findFile(ctx context.Context, roots, excluded []string, maxDepth int, needle string) (string, error) {
	skip := excludeSet(excluded)

	needle = strings.ToLower(needle)

	for _, root := range roots {
		root = filepath.Clean(root)

		var found string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				return nil
			}

			if path == root {
				return nil
			}

			if d.IsDir() {
				if isExcluded(d.Name(), skip) || depthOf(root, path) >= maxDepth {
					return filepath.SkipDir
				}
				return nil
			}

			if strings.Contains(strings.ToLower(d.Name()), needle) {
				found = path
				return fs.SkipAll
			}

			return nil
		})
		if err != nil && ctx.Err() != nil {
			return "", ctx.Err()
		}

		if found != "" {
			return found, nil
		}
	}

	return "", nil
}

func excludeSet(excluded []string) map[string]struct{} {
	skip := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		skip[strings.ToLower(name)] = struct{}{}
	}

	return skip
}

func isExcluded(name string, skip map[string]struct{}) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}

	_, ok := skip[strings.ToLower(name)]
	return ok
}

// depthOf counts path components below root, immediate children are at depth 1.
func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}

	return strings.Count(rel, string(filepath.Separator)) + 1
}
