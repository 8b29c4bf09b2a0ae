package repo

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilnvcs/kiln/pkg/object"
)

// Checkout switches the working tree and index to the given target, which may
// be a branch name or a commit hash (detaching HEAD). It refuses to switch
// while the working tree has uncommitted changes to tracked files, and while
// a merge is in progress.
func (r *Repo) Checkout(target string) error {
	if status, err := r.MergeStatus(); err != nil {
		return err
	} else if status.State == MergeStateMerging {
		return fmt.Errorf("checkout: %w", ErrMergeInProgress)
	}

	if err := r.ensureClean(); err != nil {
		return err
	}

	var commitHash object.Hash
	var symbolicRef string

	hash, err := r.ResolveRef(target)
	switch {
	case err == nil:
		commitHash = hash
		if !strings.HasPrefix(target, "refs/") && target != "HEAD" {
			symbolicRef = "refs/heads/" + target
		}
	case errors.Is(err, ErrBranchNotFound) && looksLikeHash(target):
		commitHash = object.Hash(target)
		if _, err := r.Store.ReadCommit(commitHash); err != nil {
			return fmt.Errorf("checkout %q: %w", target, err)
		}
	default:
		return fmt.Errorf("checkout %q: %w", target, err)
	}

	commit, err := r.Store.ReadCommit(commitHash)
	if err != nil {
		return fmt.Errorf("checkout %q: %w", target, err)
	}

	if err := r.materializeTree(commit.TreeHash); err != nil {
		return err
	}

	if symbolicRef != "" {
		if err := r.writeHeadSymbolic(symbolicRef); err != nil {
			return err
		}
	} else {
		if err := r.writeHeadDetached(commitHash); err != nil {
			return err
		}
	}

	r.Log.WithField("target", target).Info("checked out")
	return nil
}

// materializeTree rewrites the working tree and index to exactly match the
// given tree: tracked files not in the tree are removed, files in the tree
// are written out, and the index is rebuilt from the tree's contents.
func (r *Repo) materializeTree(treeHash object.Hash) error {
	files, err := r.FlattenTree(treeHash)
	if err != nil {
		return err
	}
	inTree := make(map[string]bool, len(files))
	for _, f := range files {
		inTree[f.Path] = true
	}

	tracked, err := r.trackedFiles()
	if err != nil {
		return err
	}
	for _, path := range tracked {
		if inTree[path] {
			continue
		}
		abs := filepath.Join(r.RootDir, filepath.FromSlash(path))
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("checkout: remove %s: %w", path, err)
		}
		removeEmptyParents(r.RootDir, path)
	}

	idx := NewIndex()
	for _, f := range files {
		blob, err := r.Store.ReadBlob(f.Hash)
		if err != nil {
			return fmt.Errorf("checkout: read blob for %s: %w", f.Path, err)
		}
		abs := filepath.Join(r.RootDir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("checkout: mkdir for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(abs, blob.Data, filePermFromMode(f.Mode)); err != nil {
			return fmt.Errorf("checkout: write %s: %w", f.Path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("checkout: stat %s: %w", f.Path, err)
		}
		idx.Set(&IndexEntry{
			Path:    f.Path,
			Hash:    f.Hash,
			Mode:    f.Mode,
			ModTime: info.ModTime().Unix(),
			Size:    info.Size(),
		})
	}
	return r.WriteIndex(idx)
}

// ensureClean fails when tracked files have been modified or deleted since
// the index was written, or when the index differs from HEAD's tree.
func (r *Repo) ensureClean() error {
	report, err := r.Status()
	if err != nil {
		return err
	}
	dirty := len(report.Staged) + len(report.Modified) + len(report.Deleted) + len(report.Conflicted)
	if dirty > 0 {
		return fmt.Errorf("checkout: working tree has uncommitted changes; commit or discard them first")
	}
	return nil
}

// trackedFiles returns the paths currently recorded in the index.
func (r *Repo) trackedFiles() ([]string, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	return idx.Paths(), nil
}

// removeEmptyParents prunes now-empty directories above relPath, stopping at
// the repository root.
func removeEmptyParents(root, relPath string) {
	dir := filepath.Dir(filepath.Join(root, filepath.FromSlash(relPath)))
	for strings.HasPrefix(dir, root) && dir != root {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func looksLikeHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// workingFileMatches reports whether the working copy of path still has the
// given blob content.
func (r *Repo) workingFileMatches(path string, hash object.Hash) (bool, error) {
	data, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	blob, err := r.Store.ReadBlob(hash)
	if err != nil {
		return false, err
	}
	return bytes.Equal(data, blob.Data), nil
}
