package repo

import (
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	vcserrors "minigit/internal/errors"
)

// AddResult reports the outcome of one staging batch.
type AddResult struct {
	Staged  int      // total staged paths in the index after the batch
	Skipped []string // arguments that named neither a file nor a directory
}

// Add stages every argument: directories are expanded into their
// regular files, files are staged directly, and anything else is
// skipped with a warning rather than aborting the batch. The index is
// persisted exactly once, after all arguments are processed.
func (r *Repository) Add(paths []string) (*AddResult, error) {
	if len(paths) == 0 {
		return nil, vcserrors.Usage("usage: minigit add <files-or-dirs>")
	}

	idx, err := r.LoadIndex()
	if err != nil {
		return nil, err
	}

	result := &AddResult{}

	for _, p := range paths {
		abs := r.resolve(p)

		info, err := os.Stat(abs)
		if err != nil {
			result.Skipped = append(result.Skipped, p)
			r.Logger.Warn("skipping path", zap.String("path", p), zap.Error(err))
			continue
		}

		switch {
		case info.IsDir():
			files, err := walkFiles(abs)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				if err := r.Stage(f, idx); err != nil {
					return nil, err
				}
			}

		case info.Mode().IsRegular():
			if err := r.Stage(abs, idx); err != nil {
				return nil, err
			}

		default:
			// Sockets, devices, and the like are not stageable content.
			result.Skipped = append(result.Skipped, p)
			r.Logger.Warn("skipping non-regular file", zap.String("path", p))
		}
	}

	if err := r.SaveIndex(idx); err != nil {
		return nil, err
	}

	result.Staged = idx.Len()
	return result, nil
}

// walkFiles expands root into the regular files it transitively
// contains, depth-first in directory order. Symlinks are not followed
// (WalkDir reports them by their link type), the control area is never
// descended into, and an unreadable directory aborts the whole walk.
func walkFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return vcserrors.IO("walking directory", path, err)
		}

		if d.IsDir() {
			if d.Name() == ControlDirName {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
