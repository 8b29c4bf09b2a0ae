package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kilnvcs/kiln/pkg/object"
)

// Add stages the given paths. Each path may be a file or a directory;
// directories are walked recursively. Paths matching the ignore rules or
// falling outside the active scope are skipped. A path that exists in the
// index but no longer on disk is staged as a deletion.
func (r *Repo) Add(paths []string) error {
	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}

	ignores := NewIgnoreChecker(r.RootDir)
	scope, err := r.ActiveScope()
	if err != nil {
		return err
	}

	var staged, removed int
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(r.RootDir, p)
		}
		rel, err := filepath.Rel(r.RootDir, abs)
		if err != nil || rel == ".." || strings.HasPrefix(filepath.ToSlash(rel), "../") {
			return fmt.Errorf("add: path %q is outside the repository", p)
		}

		info, statErr := os.Stat(abs)
		switch {
		case statErr == nil && info.IsDir():
			n, err := r.stageDir(idx, abs, ignores, scope)
			if err != nil {
				return err
			}
			staged += n
		case statErr == nil:
			relSlash := filepath.ToSlash(rel)
			if ignores.IsIgnored(relSlash) || !scope.InScope(relSlash) {
				continue
			}
			if err := r.stageFile(idx, abs, relSlash, info); err != nil {
				return err
			}
			staged++
		case os.IsNotExist(statErr):
			relSlash := filepath.ToSlash(rel)
			if idx.Get(relSlash) == nil {
				return fmt.Errorf("add: pathspec %q did not match any files", p)
			}
			idx.RemovePath(relSlash)
			removed++
		default:
			return fmt.Errorf("add: stat %s: %w", p, statErr)
		}
	}

	if err := r.WriteIndex(idx); err != nil {
		return err
	}
	r.Log.WithFields(logrus.Fields{
		"staged":  staged,
		"removed": removed,
	}).Debug("updated index")
	return nil
}

func (r *Repo) stageDir(idx *Index, dir string, ignores *IgnoreChecker, scope *Scope) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(r.RootDir, path)
		if relErr != nil {
			return relErr
		}
		relSlash := filepath.ToSlash(rel)
		if d.IsDir() {
			if relSlash != "." && ignores.IsIgnored(relSlash) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignores.IsIgnored(relSlash) || !scope.InScope(relSlash) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := r.stageFile(idx, path, relSlash, info); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("add: walk %s: %w", dir, err)
	}
	return count, nil
}

func (r *Repo) stageFile(idx *Index, absPath, relPath string, info os.FileInfo) error {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("add: read %s: %w", relPath, err)
	}
	hash, err := r.Store.WriteBlob(&object.Blob{Data: data})
	if err != nil {
		return fmt.Errorf("add: store %s: %w", relPath, err)
	}
	idx.Set(&IndexEntry{
		Path:    relPath,
		Hash:    hash,
		Mode:    modeFromFileInfo(info),
		ModTime: info.ModTime().Unix(),
		Size:    info.Size(),
	})
	return nil
}

// Remove unstages paths and deletes them from the working tree. With keepFile
// the working copy is left in place and only the index entry is dropped.
func (r *Repo) Remove(paths []string, keepFile bool) error {
	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}

	var missing []string
	for _, p := range paths {
		rel := filepath.ToSlash(p)
		if idx.Get(rel) == nil {
			missing = append(missing, rel)
			continue
		}
		idx.RemovePath(rel)
		if !keepFile {
			if err := os.Remove(filepath.Join(r.RootDir, rel)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("rm: %s: %w", rel, err)
			}
			removeEmptyParents(r.RootDir, rel)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("rm: pathspec did not match staged files: %v", missing)
	}
	return r.WriteIndex(idx)
}
