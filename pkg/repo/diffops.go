package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kilnvcs/kiln/pkg/diff"
	"github.com/kilnvcs/kiln/pkg/object"
)

// DiffWorktree diffs the staging index against the working tree: what would
// change if the current edits were staged. Only paths in the active scope are
// included.
func (r *Repo) DiffWorktree(contextSize int) ([]diff.FileDiff, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	scope, err := r.ActiveScope()
	if err != nil {
		return nil, err
	}

	var diffs []diff.FileDiff
	for _, e := range idx.Entries() {
		if e.Stage != StageNormal || !scope.InScope(e.Path) {
			continue
		}
		blob, err := r.Store.ReadBlob(e.Hash)
		if err != nil {
			return nil, fmt.Errorf("diff: read %s: %w", e.Path, err)
		}
		workData, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(e.Path)))
		if err != nil {
			if os.IsNotExist(err) {
				workData = nil
			} else {
				return nil, fmt.Errorf("diff: read %s: %w", e.Path, err)
			}
		}
		fd := diff.FileDiffOf(e.Path, e.Path, string(blob.Data), string(workData), contextSize)
		if len(fd.Hunks) > 0 {
			diffs = append(diffs, fd)
		}
	}
	return diffs, nil
}

// DiffStaged diffs HEAD's tree against the staging index: what the next
// commit would record.
func (r *Repo) DiffStaged(contextSize int) ([]diff.FileDiff, error) {
	headTree, err := r.headTreeMap()
	if err != nil {
		return nil, err
	}
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	scope, err := r.ActiveScope()
	if err != nil {
		return nil, err
	}

	indexFiles := map[string]object.Hash{}
	for _, e := range idx.Entries() {
		if e.Stage == StageNormal {
			indexFiles[e.Path] = e.Hash
		}
	}
	return r.diffFileMaps(treeHashes(headTree), indexFiles, scope, contextSize)
}

// DiffCommits diffs the trees of two commits, given as ref names or hashes.
func (r *Repo) DiffCommits(from, to string, contextSize int) ([]diff.FileDiff, error) {
	fromMap, err := r.commitFileMap(from)
	if err != nil {
		return nil, err
	}
	toMap, err := r.commitFileMap(to)
	if err != nil {
		return nil, err
	}
	return r.diffFileMaps(treeHashes(fromMap), treeHashes(toMap), nil, contextSize)
}

func (r *Repo) commitFileMap(rev string) (map[string]TreeFileEntry, error) {
	hash, err := r.ResolveRef(rev)
	if err != nil {
		if errors.Is(err, ErrBranchNotFound) && looksLikeHash(rev) {
			hash = object.Hash(rev)
		} else {
			return nil, err
		}
	}
	commit, err := r.Store.ReadCommit(hash)
	if err != nil {
		return nil, fmt.Errorf("diff: read commit %s: %w", rev, err)
	}
	return r.treeFileMap(commit.TreeHash)
}

func treeHashes(m map[string]TreeFileEntry) map[string]object.Hash {
	out := make(map[string]object.Hash, len(m))
	for p, e := range m {
		out[p] = e.Hash
	}
	return out
}

func (r *Repo) diffFileMaps(before, after map[string]object.Hash, scope *Scope, contextSize int) ([]diff.FileDiff, error) {
	paths := map[string]bool{}
	for p := range before {
		paths[p] = true
	}
	for p := range after {
		paths[p] = true
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	readBlob := func(h object.Hash) (string, error) {
		if h == "" {
			return "", nil
		}
		blob, err := r.Store.ReadBlob(h)
		if err != nil {
			return "", err
		}
		return string(blob.Data), nil
	}

	var diffs []diff.FileDiff
	for _, p := range sorted {
		if !scope.InScope(p) {
			continue
		}
		oldHash, newHash := before[p], after[p]
		if oldHash == newHash {
			continue
		}
		oldText, err := readBlob(oldHash)
		if err != nil {
			return nil, fmt.Errorf("diff: read %s: %w", p, err)
		}
		newText, err := readBlob(newHash)
		if err != nil {
			return nil, fmt.Errorf("diff: read %s: %w", p, err)
		}
		fd := diff.FileDiffOf(p, p, oldText, newText, contextSize)
		if len(fd.Hunks) > 0 {
			diffs = append(diffs, fd)
		}
	}
	return diffs, nil
}
