package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kilnvcs/kiln/pkg/merge"
	"github.com/kilnvcs/kiln/pkg/object"
)

// MergeStateKind is the typed merge state machine value.
type MergeStateKind int

const (
	MergeStateIdle MergeStateKind = iota
	MergeStateMerging
)

func (k MergeStateKind) String() string {
	if k == MergeStateMerging {
		return "merging"
	}
	return "idle"
}

// MergeState is the persisted record of an in-progress merge, stored as
// .kiln/MERGE_STATE.json. It exists exactly while a merge awaits resolution.
type MergeState struct {
	InProgress   bool        `json:"in_progress"`
	SourceBranch string      `json:"source_branch"`
	SourceCommit object.Hash `json:"source_commit"`
	TargetBranch string      `json:"target_branch"`
	TargetCommit object.Hash `json:"target_commit"`
	BaseCommit   object.Hash `json:"base_commit"`
	Conflicts    []string    `json:"conflicts"`
	Resolved     []string    `json:"resolved"`
	Squash       bool        `json:"squash,omitempty"`
	Message      string      `json:"message,omitempty"`
	StartedAt    time.Time   `json:"started_at"`
}

// MergeStatusInfo reports the current merge state and, while merging, the
// persisted detail.
type MergeStatusInfo struct {
	State MergeStateKind
	Merge *MergeState // nil when idle
}

func (r *Repo) mergeStatePath() string {
	return filepath.Join(r.KilnDir, "MERGE_STATE.json")
}

func (r *Repo) conflictDir() string {
	return filepath.Join(r.KilnDir, "conflicts")
}

// MergeStatus reads the persisted merge state. A missing state file means
// idle.
func (r *Repo) MergeStatus() (*MergeStatusInfo, error) {
	data, err := os.ReadFile(r.mergeStatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &MergeStatusInfo{State: MergeStateIdle}, nil
		}
		return nil, fmt.Errorf("merge status: %w", err)
	}
	var st MergeState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("merge status: unmarshal: %w", err)
	}
	return &MergeStatusInfo{State: MergeStateMerging, Merge: &st}, nil
}

// beginMergeState persists a new merge state with exclusive-create semantics:
// if a state file already exists the call fails with ErrMergeInProgress and
// the existing file is left untouched.
func (r *Repo) beginMergeState(st *MergeState) error {
	f, err := os.OpenFile(r.mergeStatePath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrMergeInProgress
		}
		return fmt.Errorf("begin merge: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("begin merge: encode: %w", err)
	}
	return f.Sync()
}

// saveMergeState rewrites the state file in place. Only valid while merging.
func (r *Repo) saveMergeState(st *MergeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("save merge state: marshal: %w", err)
	}
	tmp := r.mergeStatePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("save merge state: %w", err)
	}
	if err := os.Rename(tmp, r.mergeStatePath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save merge state: rename: %w", err)
	}
	return nil
}

// clearMergeState removes the state file and all conflict artifacts.
func (r *Repo) clearMergeState() error {
	if err := os.Remove(r.mergeStatePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear merge state: %w", err)
	}
	if err := os.RemoveAll(r.conflictDir()); err != nil {
		return fmt.Errorf("clear merge state: conflicts dir: %w", err)
	}
	return nil
}

// writeConflictArtifacts stores the three input versions and the structured
// region report for one conflicted path under .kiln/conflicts/.
func (r *Repo) writeConflictArtifacts(fc *merge.FileConflict) error {
	dir := r.conflictDir()
	// Conflicted paths may live in subdirectories.
	name := filepath.FromSlash(fc.Path)
	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755); err != nil {
		return fmt.Errorf("conflict artifacts: mkdir: %w", err)
	}

	files := map[string][]byte{
		name + ".ours":   fc.OursContent,
		name + ".theirs": fc.TheirsContent,
	}
	if fc.BaseContent != nil {
		files[name+".base"] = fc.BaseContent
	}
	report, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("conflict artifacts: marshal: %w", err)
	}
	files[name+".conflict.json"] = report

	for rel, data := range files {
		if err := os.WriteFile(filepath.Join(dir, rel), data, 0o644); err != nil {
			return fmt.Errorf("conflict artifacts: write %s: %w", rel, err)
		}
	}
	return nil
}

// ConflictReport reloads the structured conflict description for a path.
func (r *Repo) ConflictReport(path string) (*merge.FileConflict, error) {
	data, err := os.ReadFile(filepath.Join(r.conflictDir(), filepath.FromSlash(path)+".conflict.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no conflict recorded for %q", path)
		}
		return nil, fmt.Errorf("conflict report: %w", err)
	}
	var fc merge.FileConflict
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("conflict report: unmarshal: %w", err)
	}
	return &fc, nil
}

// ResolveFile marks a conflicted path resolved: the current working copy is
// hashed, staged at stage 0, and the conflict stages are dropped. Resolving
// an already-resolved path is a no-op.
func (r *Repo) ResolveFile(path string) error {
	status, err := r.MergeStatus()
	if err != nil {
		return err
	}
	if status.State != MergeStateMerging {
		return ErrNoMergeInProgress
	}
	st := status.Merge

	path = filepath.ToSlash(path)
	if !containsString(st.Conflicts, path) {
		return fmt.Errorf("resolve: %q is not a conflicted path in this merge", path)
	}
	if containsString(st.Resolved, path) {
		return nil
	}

	abs := filepath.Join(r.RootDir, filepath.FromSlash(path))
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if markers := findConflictMarkers(data); len(markers) > 0 {
		return fmt.Errorf("resolve %s: conflict markers remain at line(s) %v", path, markers)
	}

	hash, err := r.Store.WriteBlob(&object.Blob{Data: data})
	if err != nil {
		return fmt.Errorf("resolve %s: store: %w", path, err)
	}

	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}
	mode := object.TreeModeFile
	if entries := idx.StageEntries(path); len(entries) > 0 {
		mode = normalizeFileMode(entries[len(entries)-1].Mode)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("resolve %s: stat: %w", path, err)
	}
	idx.Set(&IndexEntry{
		Path:    path,
		Hash:    hash,
		Mode:    mode,
		ModTime: info.ModTime().Unix(),
		Size:    info.Size(),
	})
	if err := r.WriteIndex(idx); err != nil {
		return err
	}

	st.Resolved = append(st.Resolved, path)
	sort.Strings(st.Resolved)
	if err := r.saveMergeState(st); err != nil {
		return err
	}

	r.Log.WithField("path", path).Info("conflict resolved")
	return nil
}

// UnresolvedConflicts returns the structured conflict reports for the paths
// not yet resolved, ordered by path.
func (r *Repo) UnresolvedConflicts() ([]merge.FileConflict, error) {
	paths, err := r.unresolvedPaths()
	if err != nil {
		return nil, err
	}
	var out []merge.FileConflict
	for _, p := range paths {
		fc, err := r.ConflictReport(p)
		if err != nil {
			return nil, err
		}
		out = append(out, *fc)
	}
	return out, nil
}

// unresolvedPaths returns the conflicted paths not yet resolved, sorted.
func (r *Repo) unresolvedPaths() ([]string, error) {
	status, err := r.MergeStatus()
	if err != nil {
		return nil, err
	}
	if status.State != MergeStateMerging {
		return nil, ErrNoMergeInProgress
	}
	st := status.Merge

	var out []string
	for _, p := range st.Conflicts {
		if !containsString(st.Resolved, p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ContinueMerge completes an in-progress merge. All conflicts must be
// resolved; otherwise it fails with UnresolvedConflictsError and the merge
// stays active. On success it writes the merge commit (two parents, or one
// when squashing), advances the target branch, and clears the merge state.
func (r *Repo) ContinueMerge(message string, signer CommitSigner) (object.Hash, error) {
	status, err := r.MergeStatus()
	if err != nil {
		return "", err
	}
	if status.State != MergeStateMerging {
		return "", ErrNoMergeInProgress
	}
	st := status.Merge

	unresolved, err := r.unresolvedPaths()
	if err != nil {
		return "", err
	}
	if len(unresolved) > 0 {
		return "", &UnresolvedConflictsError{Paths: unresolved}
	}

	if strings.TrimSpace(message) == "" {
		message = st.Message
	}
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("Merge branch '%s' into %s", st.SourceBranch, st.TargetBranch)
	}

	parents := []object.Hash{st.TargetCommit, st.SourceCommit}
	if st.Squash {
		parents = parents[:1]
	}

	hash, err := r.Commit(CommitOptions{
		Message:    message,
		Parents:    parents,
		AllowEmpty: true,
		Signer:     signer,
	})
	if err != nil {
		return "", err
	}

	if err := r.clearMergeState(); err != nil {
		return "", err
	}
	r.Log.WithField("commit", hash.Short()).Info("merge completed")
	return hash, nil
}

// AbortMerge discards an in-progress merge: the working tree and index are
// restored to the target commit and all merge state is removed.
func (r *Repo) AbortMerge() error {
	status, err := r.MergeStatus()
	if err != nil {
		return err
	}
	if status.State != MergeStateMerging {
		return ErrNoMergeInProgress
	}
	st := status.Merge

	commit, err := r.Store.ReadCommit(st.TargetCommit)
	if err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	if err := r.materializeTree(commit.TreeHash); err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	if err := r.clearMergeState(); err != nil {
		return err
	}
	r.Log.Info("merge aborted")
	return nil
}

// findConflictMarkers returns the 1-based line numbers of any remaining
// conflict marker lines.
func findConflictMarkers(data []byte) []int {
	var lines []int
	for i, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "<<<<<<<") ||
			strings.HasPrefix(line, "=======") ||
			strings.HasPrefix(line, ">>>>>>>") {
			lines = append(lines, i+1)
		}
	}
	return lines
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
