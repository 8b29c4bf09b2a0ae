package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kilnvcs/kiln/pkg/merge"
	"github.com/kilnvcs/kiln/pkg/object"
)

// MergeOptions controls Merge behavior.
type MergeOptions struct {
	// NoCommit stops before creating the merge commit even when the merge is
	// clean, leaving the result staged.
	NoCommit bool
	// NoFastForward forces a merge commit even when the target is an ancestor
	// of the source.
	NoFastForward bool
	// Squash records the merged tree as a single-parent commit on the target
	// branch.
	Squash bool
	// Message overrides the default merge commit message.
	Message string
	Signer  CommitSigner
}

// MergeResult summarizes a Merge call.
type MergeResult struct {
	Success     bool        // merge finished (committed or fast-forwarded)
	FastForward bool        // target was simply advanced
	UpToDate    bool        // source already reachable from target
	CommitHash  object.Hash // merge commit, when one was created
	Conflicts   []string    // conflicted paths awaiting resolution
	AutoMerged  []string    // paths merged cleanly from both sides
	Added       []string    // paths introduced by the source
	Deleted     []string    // paths removed by the source
}

// Merge merges the named source branch into the current branch. A clean merge
// commits immediately (unless NoCommit); conflicts persist merge state and
// leave marker-annotated files in the working tree for resolution via
// ResolveFile and ContinueMerge.
func (r *Repo) Merge(sourceBranch string, opts MergeOptions) (*MergeResult, error) {
	if status, err := r.MergeStatus(); err != nil {
		return nil, err
	} else if status.State == MergeStateMerging {
		return nil, ErrMergeInProgress
	}

	targetBranch, err := r.CurrentBranch()
	if err != nil {
		return nil, err
	}
	if targetBranch == "" {
		return nil, fmt.Errorf("merge: %w", ErrDetachedHead)
	}
	if sourceBranch == targetBranch {
		return nil, fmt.Errorf("merge: cannot merge %q into itself", sourceBranch)
	}

	if err := r.ensureClean(); err != nil {
		return nil, fmt.Errorf("merge: working tree must be clean: %w", err)
	}

	targetHash, err := r.ResolveRef("HEAD")
	if err != nil {
		// An unborn branch means the repository has no commits to merge into.
		if errors.Is(err, ErrBranchNotFound) {
			err = ErrNoCommits
		}
		return nil, fmt.Errorf("merge: %w", err)
	}
	sourceHash, err := r.ResolveRef(sourceBranch)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	base, err := r.MergeBase(targetHash, sourceHash)
	if err != nil {
		return nil, err
	}

	// Source already merged.
	if base == sourceHash {
		return &MergeResult{Success: true, UpToDate: true, CommitHash: targetHash}, nil
	}

	// Target has not diverged: fast-forward unless a real merge was asked for.
	if base == targetHash && !opts.NoFastForward && !opts.Squash {
		return r.fastForward(targetBranch, sourceBranch, targetHash, sourceHash)
	}

	sourceCommit, err := r.Store.ReadCommit(sourceHash)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	targetCommit, err := r.Store.ReadCommit(targetHash)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	var baseTree object.Hash
	if base != "" {
		baseCommit, err := r.Store.ReadCommit(base)
		if err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		baseTree = baseCommit.TreeHash
	}

	plan, err := r.mergeTrees(baseTree, targetCommit.TreeHash, sourceCommit.TreeHash)
	if err != nil {
		return nil, err
	}

	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}

	result := &MergeResult{
		AutoMerged: plan.autoMerged,
		Added:      plan.added,
		Deleted:    plan.deleted,
	}

	// Apply clean outcomes to the working tree and index.
	for _, out := range plan.clean {
		abs := filepath.Join(r.RootDir, filepath.FromSlash(out.path))
		if out.deleted {
			if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("merge: remove %s: %w", out.path, err)
			}
			removeEmptyParents(r.RootDir, out.path)
			idx.RemovePath(out.path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("merge: mkdir for %s: %w", out.path, err)
		}
		if err := os.WriteFile(abs, out.content, filePermFromMode(out.mode)); err != nil {
			return nil, fmt.Errorf("merge: write %s: %w", out.path, err)
		}
		hash, err := r.Store.WriteBlob(&object.Blob{Data: out.content})
		if err != nil {
			return nil, fmt.Errorf("merge: store %s: %w", out.path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("merge: stat %s: %w", out.path, err)
		}
		idx.Set(&IndexEntry{
			Path:    out.path,
			Hash:    hash,
			Mode:    out.mode,
			ModTime: info.ModTime().Unix(),
			Size:    info.Size(),
		})
	}

	if len(plan.conflicts) == 0 {
		if err := r.WriteIndex(idx); err != nil {
			return nil, err
		}
		if opts.NoCommit {
			result.Success = true
			return result, nil
		}

		message := opts.Message
		if message == "" {
			message = fmt.Sprintf("Merge branch '%s' into %s", sourceBranch, targetBranch)
		}
		parents := []object.Hash{targetHash, sourceHash}
		if opts.Squash {
			parents = parents[:1]
		}
		hash, err := r.Commit(CommitOptions{
			Message:    message,
			Parents:    parents,
			AllowEmpty: true,
			Signer:     opts.Signer,
		})
		if err != nil {
			return nil, err
		}
		result.Success = true
		result.CommitHash = hash
		r.Log.WithFields(logrus.Fields{
			"source": sourceBranch,
			"target": targetBranch,
			"commit": hash.Short(),
		}).Info("merged")
		return result, nil
	}

	// Conflicted: persist merge state before touching conflict files, so a
	// crash mid-apply still leaves a resumable merge.
	st := &MergeState{
		InProgress:   true,
		SourceBranch: sourceBranch,
		SourceCommit: sourceHash,
		TargetBranch: targetBranch,
		TargetCommit: targetHash,
		BaseCommit:   base,
		Squash:       opts.Squash,
		Message:      opts.Message,
		StartedAt:    time.Now().UTC(),
	}
	for _, c := range plan.conflicts {
		st.Conflicts = append(st.Conflicts, c.file.Path)
	}
	sort.Strings(st.Conflicts)
	if err := r.beginMergeState(st); err != nil {
		return nil, err
	}

	for _, c := range plan.conflicts {
		path := c.file.Path
		abs := filepath.Join(r.RootDir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("merge: mkdir for %s: %w", path, err)
		}
		if err := os.WriteFile(abs, c.marked, filePermFromMode(c.mode)); err != nil {
			return nil, fmt.Errorf("merge: write %s: %w", path, err)
		}
		if err := r.writeConflictArtifacts(c.file); err != nil {
			return nil, err
		}

		idx.RemovePath(path)
		if c.baseHash != "" {
			idx.SetStage(&IndexEntry{Path: path, Hash: c.baseHash, Mode: c.mode, Stage: StageBase})
		}
		if c.oursHash != "" {
			idx.SetStage(&IndexEntry{Path: path, Hash: c.oursHash, Mode: c.mode, Stage: StageOurs})
		}
		if c.theirsHash != "" {
			idx.SetStage(&IndexEntry{Path: path, Hash: c.theirsHash, Mode: c.mode, Stage: StageTheirs})
		}
	}
	if err := r.WriteIndex(idx); err != nil {
		return nil, err
	}

	result.Conflicts = st.Conflicts
	r.Log.WithFields(logrus.Fields{
		"source":    sourceBranch,
		"target":    targetBranch,
		"conflicts": len(st.Conflicts),
	}).Warn("merge stopped on conflicts")
	return result, nil
}

func (r *Repo) fastForward(targetBranch, sourceBranch string, from, to object.Hash) (*MergeResult, error) {
	commit, err := r.Store.ReadCommit(to)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	if err := r.materializeTree(commit.TreeHash); err != nil {
		return nil, err
	}
	reason := fmt.Sprintf("merge %s: fast-forward", sourceBranch)
	if err := r.updateRef("refs/heads/"+targetBranch, to, reason, from); err != nil {
		return nil, err
	}
	r.Log.WithFields(logrus.Fields{
		"branch": targetBranch,
		"to":     to.Short(),
	}).Info("fast-forwarded")
	return &MergeResult{Success: true, FastForward: true, CommitHash: to}, nil
}

// cleanOutcome is one non-conflicting per-path merge decision.
type cleanOutcome struct {
	path    string
	content []byte
	mode    string
	deleted bool
}

// conflictOutcome is one conflicted path: the structured report, the
// marker-annotated working file content, and the three stage hashes.
type conflictOutcome struct {
	file       *merge.FileConflict
	marked     []byte
	mode       string
	baseHash   object.Hash
	oursHash   object.Hash
	theirsHash object.Hash
}

type mergePlan struct {
	clean      []cleanOutcome
	conflicts  []*conflictOutcome
	autoMerged []string
	added      []string
	deleted    []string
}

// mergeTrees computes per-path outcomes across the three trees. Paths are
// classified by which sides changed them relative to base; only paths changed
// on both sides reach the content merge.
func (r *Repo) mergeTrees(baseTree, oursTree, theirsTree object.Hash) (*mergePlan, error) {
	baseFiles, err := r.treeFileMap(baseTree)
	if err != nil {
		return nil, err
	}
	oursFiles, err := r.treeFileMap(oursTree)
	if err != nil {
		return nil, err
	}
	theirsFiles, err := r.treeFileMap(theirsTree)
	if err != nil {
		return nil, err
	}

	paths := map[string]bool{}
	for p := range baseFiles {
		paths[p] = true
	}
	for p := range oursFiles {
		paths[p] = true
	}
	for p := range theirsFiles {
		paths[p] = true
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	plan := &mergePlan{}
	for _, path := range sorted {
		base, inBase := baseFiles[path]
		ours, inOurs := oursFiles[path]
		theirs, inTheirs := theirsFiles[path]

		oursChanged := inOurs != inBase || (inOurs && ours.Hash != base.Hash)
		theirsChanged := inTheirs != inBase || (inTheirs && theirs.Hash != base.Hash)

		switch {
		case !oursChanged && !theirsChanged:
			// Untouched; the working tree already has it.

		case oursChanged && !theirsChanged:
			// Only our side moved; keep it as is.

		case !oursChanged && theirsChanged:
			if !inTheirs {
				plan.clean = append(plan.clean, cleanOutcome{path: path, deleted: true})
				plan.deleted = append(plan.deleted, path)
				continue
			}
			blob, err := r.Store.ReadBlob(theirs.Hash)
			if err != nil {
				return nil, fmt.Errorf("merge: read %s: %w", path, err)
			}
			plan.clean = append(plan.clean, cleanOutcome{path: path, content: blob.Data, mode: theirs.Mode})
			if !inBase {
				plan.added = append(plan.added, path)
			} else {
				plan.autoMerged = append(plan.autoMerged, path)
			}

		default:
			// Both sides changed. Identical results merge trivially.
			if inOurs && inTheirs && ours.Hash == theirs.Hash {
				continue
			}
			if !inOurs && !inTheirs {
				continue // both deleted
			}
			outcome, err := r.mergeFile(path, base, ours, theirs, inBase, inOurs, inTheirs)
			if err != nil {
				return nil, err
			}
			if outcome.conflict != nil {
				plan.conflicts = append(plan.conflicts, outcome.conflict)
			} else {
				plan.clean = append(plan.clean, *outcome.clean)
				plan.autoMerged = append(plan.autoMerged, path)
			}
		}
	}
	return plan, nil
}

type fileOutcome struct {
	clean    *cleanOutcome
	conflict *conflictOutcome
}

// mergeFile runs the line-level three-way merge for one path modified on both
// sides. A side that deleted the file contributes empty content, so a
// delete-versus-modify disagreement surfaces as a conflict region.
func (r *Repo) mergeFile(path string, base, ours, theirs TreeFileEntry, inBase, inOurs, inTheirs bool) (*fileOutcome, error) {
	read := func(e TreeFileEntry, present bool) ([]byte, object.Hash, error) {
		if !present {
			return nil, "", nil
		}
		blob, err := r.Store.ReadBlob(e.Hash)
		if err != nil {
			return nil, "", fmt.Errorf("merge: read %s: %w", path, err)
		}
		return blob.Data, e.Hash, nil
	}

	baseData, baseHash, err := read(base, inBase)
	if err != nil {
		return nil, err
	}
	oursData, oursHash, err := read(ours, inOurs)
	if err != nil {
		return nil, err
	}
	theirsData, theirsHash, err := read(theirs, inTheirs)
	if err != nil {
		return nil, err
	}

	mode := object.TreeModeFile
	switch {
	case inOurs:
		mode = normalizeFileMode(ours.Mode)
	case inTheirs:
		mode = normalizeFileMode(theirs.Mode)
	}

	res := merge.Merge(baseData, oursData, theirsData)
	if res.Clean {
		return &fileOutcome{clean: &cleanOutcome{path: path, content: res.Merged, mode: mode}}, nil
	}

	return &fileOutcome{conflict: &conflictOutcome{
		file: &merge.FileConflict{
			Path:          path,
			Regions:       res.Regions,
			OursContent:   oursData,
			TheirsContent: theirsData,
			BaseContent:   baseData,
		},
		marked:     res.Merged,
		mode:       mode,
		baseHash:   baseHash,
		oursHash:   oursHash,
		theirsHash: theirsHash,
	}}, nil
}
