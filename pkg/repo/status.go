package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kilnvcs/kiln/pkg/object"
)

// StatusReport classifies every interesting path in the working tree.
type StatusReport struct {
	Branch     string   // current branch, "" when detached
	Staged     []string // index differs from HEAD's tree
	Modified   []string // working copy differs from the index
	Deleted    []string // in the index but missing on disk
	Untracked  []string // on disk but not in the index
	Conflicted []string // conflict-stage entries present
	Merging    bool
}

// Clean reports whether nothing is staged, modified, deleted, untracked, or
// conflicted.
func (s *StatusReport) Clean() bool {
	return len(s.Staged) == 0 && len(s.Modified) == 0 && len(s.Deleted) == 0 &&
		len(s.Untracked) == 0 && len(s.Conflicted) == 0
}

// Status compares HEAD's tree, the index, and the working tree. Ignored paths
// and paths outside the active scope are not reported.
func (r *Repo) Status() (*StatusReport, error) {
	report := &StatusReport{}

	branch, err := r.CurrentBranch()
	if err != nil {
		return nil, err
	}
	report.Branch = branch

	mergeStatus, err := r.MergeStatus()
	if err != nil {
		return nil, err
	}
	report.Merging = mergeStatus.State == MergeStateMerging

	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	report.Conflicted = idx.ConflictedPaths()
	conflicted := make(map[string]bool, len(report.Conflicted))
	for _, p := range report.Conflicted {
		conflicted[p] = true
	}

	headTree, err := r.headTreeMap()
	if err != nil {
		return nil, err
	}

	ignores := NewIgnoreChecker(r.RootDir)
	scope, err := r.ActiveScope()
	if err != nil {
		return nil, err
	}

	inIndex := make(map[string]bool)
	for _, e := range idx.Entries() {
		if e.Stage != StageNormal {
			continue
		}
		inIndex[e.Path] = true
		if !scope.InScope(e.Path) {
			continue
		}

		if head, ok := headTree[e.Path]; !ok || head.Hash != e.Hash {
			report.Staged = append(report.Staged, e.Path)
		}

		abs := filepath.Join(r.RootDir, filepath.FromSlash(e.Path))
		data, err := os.ReadFile(abs)
		if err != nil {
			if os.IsNotExist(err) {
				report.Deleted = append(report.Deleted, e.Path)
				continue
			}
			return nil, fmt.Errorf("status: read %s: %w", e.Path, err)
		}
		if object.HashObject(object.TypeBlob, data) != e.Hash && !conflicted[e.Path] {
			report.Modified = append(report.Modified, e.Path)
		}
	}

	// Paths in HEAD's tree but absent from the index are staged deletions.
	for path := range headTree {
		if !inIndex[path] && !conflicted[path] && scope.InScope(path) {
			report.Staged = append(report.Staged, path)
		}
	}

	err = filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
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
		if !inIndex[relSlash] && !conflicted[relSlash] {
			report.Untracked = append(report.Untracked, relSlash)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("status: walk: %w", err)
	}

	sort.Strings(report.Staged)
	sort.Strings(report.Modified)
	sort.Strings(report.Deleted)
	sort.Strings(report.Untracked)
	return report, nil
}

// headTreeMap returns HEAD's tree indexed by path, or an empty map before the
// first commit.
func (r *Repo) headTreeMap() (map[string]TreeFileEntry, error) {
	headHash, err := r.ResolveRef("HEAD")
	if err != nil {
		if errors.Is(err, ErrBranchNotFound) {
			return map[string]TreeFileEntry{}, nil
		}
		return nil, err
	}
	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("status: read HEAD commit: %w", err)
	}
	return r.treeFileMap(commit.TreeHash)
}
