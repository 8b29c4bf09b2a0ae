package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupDivergedRepo builds main and feature branches that share an initial
// commit containing file.txt with three lines, then leaves HEAD on main.
func setupDivergedRepo(t *testing.T) (*Repo, string) {
	t.Helper()

	r, dir := initTestRepo(t)
	writeAndAdd(t, r, dir, "file.txt", "alpha\nbeta\ngamma\n")
	base := commitAll(t, r, "initial")

	if err := r.CreateBranch("feature", base); err != nil {
		t.Fatalf("CreateBranch(feature): %v", err)
	}
	return r, dir
}

// commitOnBranch checks out a branch, writes path, and commits.
func commitOnBranch(t *testing.T, r *Repo, dir, branch, path, content, message string) {
	t.Helper()

	if err := r.Checkout(branch); err != nil {
		t.Fatalf("Checkout(%s): %v", branch, err)
	}
	writeAndAdd(t, r, dir, path, content)
	commitAll(t, r, message)
}

func TestMergeFastForward(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	commitOnBranch(t, r, dir, "feature", "file.txt", "alpha\nbeta\ngamma\ndelta\n", "extend")
	if err := r.Checkout("main"); err != nil {
		t.Fatalf("Checkout(main): %v", err)
	}

	result, err := r.Merge("feature", MergeOptions{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !result.FastForward || !result.Success {
		t.Errorf("result = %+v, want fast-forward success", result)
	}

	featureHash, _ := r.ResolveRef("feature")
	mainHash, _ := r.ResolveRef("main")
	if mainHash != featureHash {
		t.Errorf("main = %s, want %s", mainHash, featureHash)
	}
	if got := readWorkFile(t, dir, "file.txt"); got != "alpha\nbeta\ngamma\ndelta\n" {
		t.Errorf("file.txt = %q", got)
	}
}

func TestMergeNoFastForwardCreatesCommit(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	commitOnBranch(t, r, dir, "feature", "file.txt", "alpha\nbeta\ngamma\ndelta\n", "extend")
	if err := r.Checkout("main"); err != nil {
		t.Fatalf("Checkout(main): %v", err)
	}

	result, err := r.Merge("feature", MergeOptions{NoFastForward: true})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.FastForward {
		t.Error("fast-forward despite NoFastForward")
	}
	commit, err := r.Store.ReadCommit(result.CommitHash)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 2 {
		t.Errorf("merge commit has %d parents, want 2", len(commit.Parents))
	}
}

func TestMergeUpToDate(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	// main advances; feature stays at the base commit.
	writeAndAdd(t, r, dir, "file.txt", "alpha\nbeta\ngamma\nmain\n")
	commitAll(t, r, "main work")

	result, err := r.Merge("feature", MergeOptions{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !result.UpToDate {
		t.Errorf("result = %+v, want up-to-date", result)
	}
}

func TestMergeCleanNonOverlapping(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	commitOnBranch(t, r, dir, "feature", "feature.txt", "from feature\n", "feature file")
	commitOnBranch(t, r, dir, "main", "main.txt", "from main\n", "main file")

	result, err := r.Merge("feature", MergeOptions{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !result.Success || len(result.Conflicts) != 0 {
		t.Fatalf("result = %+v, want clean success", result)
	}
	if len(result.Added) != 1 || result.Added[0] != "feature.txt" {
		t.Errorf("Added = %v", result.Added)
	}

	if got := readWorkFile(t, dir, "feature.txt"); got != "from feature\n" {
		t.Errorf("feature.txt = %q", got)
	}
	if got := readWorkFile(t, dir, "main.txt"); got != "from main\n" {
		t.Errorf("main.txt = %q", got)
	}

	commit, err := r.Store.ReadCommit(result.CommitHash)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 2 {
		t.Errorf("merge commit has %d parents, want 2", len(commit.Parents))
	}

	// Merge state must not linger after a clean merge.
	status, err := r.MergeStatus()
	if err != nil {
		t.Fatalf("MergeStatus: %v", err)
	}
	if status.State != MergeStateIdle {
		t.Errorf("state = %v, want idle", status.State)
	}
}

func TestMergeConflictResolveContinue(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	commitOnBranch(t, r, dir, "feature", "file.txt", "alpha\nfeature change\ngamma\n", "feature edit")
	commitOnBranch(t, r, dir, "main", "file.txt", "alpha\nmain change\ngamma\n", "main edit")

	result, err := r.Merge("feature", MergeOptions{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Success {
		t.Fatal("merge should have stopped on conflicts")
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0] != "file.txt" {
		t.Fatalf("Conflicts = %v", result.Conflicts)
	}

	// The working copy carries conflict markers.
	work := readWorkFile(t, dir, "file.txt")
	for _, marker := range []string{"<<<<<<< ours", "=======", ">>>>>>> theirs", "main change", "feature change"} {
		if !strings.Contains(work, marker) {
			t.Errorf("working copy missing %q:\n%s", marker, work)
		}
	}

	// The index holds the three conflict stages.
	idx, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if stages := idx.StageEntries("file.txt"); len(stages) != 3 {
		t.Errorf("stage entries = %d, want 3", len(stages))
	}

	// Conflict artifacts exist.
	for _, suffix := range []string{".ours", ".theirs", ".base", ".conflict.json"} {
		if _, err := os.Stat(filepath.Join(r.KilnDir, "conflicts", "file.txt"+suffix)); err != nil {
			t.Errorf("missing artifact %s: %v", suffix, err)
		}
	}

	// The pending conflicts are reported with their recorded regions.
	pending, err := r.UnresolvedConflicts()
	if err != nil {
		t.Fatalf("UnresolvedConflicts: %v", err)
	}
	if len(pending) != 1 || pending[0].Path != "file.txt" {
		t.Fatalf("pending = %+v, want one entry for file.txt", pending)
	}
	if len(pending[0].Regions) == 0 || len(pending[0].OursContent) == 0 || len(pending[0].TheirsContent) == 0 {
		t.Errorf("conflict report incomplete: %+v", pending[0])
	}

	// Completing before resolving fails and the merge stays active.
	_, err = r.ContinueMerge("", nil)
	var unresolved *UnresolvedConflictsError
	if !errors.As(err, &unresolved) {
		t.Fatalf("ContinueMerge err = %v, want UnresolvedConflictsError", err)
	}

	// Commit is also blocked while conflict stages remain.
	if _, err := r.Commit(CommitOptions{Message: "nope"}); !errors.As(err, &unresolved) {
		t.Errorf("Commit err = %v, want UnresolvedConflictsError", err)
	}

	// Resolve: write merged content and mark resolved.
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte("alpha\nmerged change\ngamma\n"), 0o644); err != nil {
		t.Fatalf("write resolution: %v", err)
	}
	if err := r.ResolveFile("file.txt"); err != nil {
		t.Fatalf("ResolveFile: %v", err)
	}
	// Resolving again is a no-op.
	if err := r.ResolveFile("file.txt"); err != nil {
		t.Fatalf("second ResolveFile: %v", err)
	}
	if pending, err := r.UnresolvedConflicts(); err != nil || len(pending) != 0 {
		t.Errorf("UnresolvedConflicts after resolve = %+v, %v", pending, err)
	}

	mainBefore, _ := r.ResolveRef("main")
	featureHash, _ := r.ResolveRef("feature")

	mergeHash, err := r.ContinueMerge("merge feature", nil)
	if err != nil {
		t.Fatalf("ContinueMerge: %v", err)
	}
	commit, err := r.Store.ReadCommit(mergeHash)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 2 || commit.Parents[0] != mainBefore || commit.Parents[1] != featureHash {
		t.Errorf("parents = %v, want [%s %s]", commit.Parents, mainBefore, featureHash)
	}

	// State and artifacts are gone.
	status, _ := r.MergeStatus()
	if status.State != MergeStateIdle {
		t.Errorf("state = %v after continue, want idle", status.State)
	}
	if _, err := os.Stat(filepath.Join(r.KilnDir, "conflicts")); !os.IsNotExist(err) {
		t.Error("conflicts dir should be removed")
	}
}

func TestMergeRejectsResolveWithMarkers(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	commitOnBranch(t, r, dir, "feature", "file.txt", "alpha\nX\ngamma\n", "feature edit")
	commitOnBranch(t, r, dir, "main", "file.txt", "alpha\nY\ngamma\n", "main edit")

	if _, err := r.Merge("feature", MergeOptions{}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	// Markers were written by the merge; resolving without editing fails.
	if err := r.ResolveFile("file.txt"); err == nil {
		t.Error("ResolveFile should reject content with conflict markers")
	}

	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte("alpha\nZ\ngamma\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.ResolveFile("file.txt"); err != nil {
		t.Errorf("ResolveFile after cleanup: %v", err)
	}
}

func TestMergeSecondAttemptBlocked(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	commitOnBranch(t, r, dir, "feature", "file.txt", "alpha\nX\ngamma\n", "feature edit")
	commitOnBranch(t, r, dir, "main", "file.txt", "alpha\nY\ngamma\n", "main edit")

	if _, err := r.Merge("feature", MergeOptions{}); err != nil {
		t.Fatalf("first Merge: %v", err)
	}

	stateBefore, err := os.ReadFile(r.mergeStatePath())
	if err != nil {
		t.Fatalf("read state: %v", err)
	}

	if _, err := r.Merge("feature", MergeOptions{}); !errors.Is(err, ErrMergeInProgress) {
		t.Fatalf("second Merge err = %v, want ErrMergeInProgress", err)
	}

	stateAfter, err := os.ReadFile(r.mergeStatePath())
	if err != nil {
		t.Fatalf("read state again: %v", err)
	}
	if string(stateBefore) != string(stateAfter) {
		t.Error("merge state changed by the rejected second attempt")
	}

	// Checkout is also blocked mid-merge.
	if err := r.Checkout("feature"); !errors.Is(err, ErrMergeInProgress) {
		t.Errorf("Checkout err = %v, want ErrMergeInProgress", err)
	}
}

func TestMergeAbortRestoresTree(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	commitOnBranch(t, r, dir, "feature", "file.txt", "alpha\nX\ngamma\n", "feature edit")
	commitOnBranch(t, r, dir, "main", "file.txt", "alpha\nY\ngamma\n", "main edit")

	mainBefore, _ := r.ResolveRef("main")

	if _, err := r.Merge("feature", MergeOptions{}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := r.AbortMerge(); err != nil {
		t.Fatalf("AbortMerge: %v", err)
	}

	if got := readWorkFile(t, dir, "file.txt"); got != "alpha\nY\ngamma\n" {
		t.Errorf("file.txt = %q after abort, want main content", got)
	}
	mainAfter, _ := r.ResolveRef("main")
	if mainAfter != mainBefore {
		t.Errorf("main moved during aborted merge: %s -> %s", mainBefore, mainAfter)
	}

	status, _ := r.MergeStatus()
	if status.State != MergeStateIdle {
		t.Errorf("state = %v after abort, want idle", status.State)
	}
	idx, _ := r.ReadIndex()
	if len(idx.ConflictedPaths()) != 0 {
		t.Error("conflict stages should be cleared by abort")
	}

	// Nothing pending: continue/abort now fail.
	if err := r.AbortMerge(); !errors.Is(err, ErrNoMergeInProgress) {
		t.Errorf("second AbortMerge err = %v, want ErrNoMergeInProgress", err)
	}
	if _, err := r.ContinueMerge("", nil); !errors.Is(err, ErrNoMergeInProgress) {
		t.Errorf("ContinueMerge err = %v, want ErrNoMergeInProgress", err)
	}
}

func TestMergeDeleteVersusModifyConflicts(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	// feature modifies; main deletes.
	commitOnBranch(t, r, dir, "feature", "file.txt", "alpha\nchanged\ngamma\n", "feature edit")
	if err := r.Checkout("main"); err != nil {
		t.Fatalf("Checkout(main): %v", err)
	}
	if err := r.Remove([]string{"file.txt"}, false); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	commitAll(t, r, "delete file")

	result, err := r.Merge("feature", MergeOptions{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0] != "file.txt" {
		t.Fatalf("Conflicts = %v, want [file.txt]", result.Conflicts)
	}

	fc, err := r.ConflictReport("file.txt")
	if err != nil {
		t.Fatalf("ConflictReport: %v", err)
	}
	if len(fc.OursContent) != 0 {
		t.Error("ours content should be empty for the deleting side")
	}
	if len(fc.TheirsContent) == 0 {
		t.Error("theirs content should carry the modified file")
	}
}

func TestMergeSquashSingleParent(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	commitOnBranch(t, r, dir, "feature", "feature.txt", "from feature\n", "feature file")
	commitOnBranch(t, r, dir, "main", "main.txt", "from main\n", "main file")

	mainBefore, _ := r.ResolveRef("main")

	result, err := r.Merge("feature", MergeOptions{Squash: true, Message: "squash feature"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	commit, err := r.Store.ReadCommit(result.CommitHash)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 1 || commit.Parents[0] != mainBefore {
		t.Errorf("parents = %v, want [%s]", commit.Parents, mainBefore)
	}
	if got := readWorkFile(t, dir, "feature.txt"); got != "from feature\n" {
		t.Errorf("feature.txt = %q", got)
	}
}

func TestMergeBeforeFirstCommit(t *testing.T) {
	r, _ := initTestRepo(t)

	_, err := r.Merge("feature", MergeOptions{})
	if !errors.Is(err, ErrNoCommits) {
		t.Fatalf("Merge err = %v, want ErrNoCommits", err)
	}
	if errors.Is(err, ErrBranchNotFound) {
		t.Error("unborn HEAD should not surface as a missing branch")
	}
}

func TestMergeIdenticalChangesClean(t *testing.T) {
	r, dir := setupDivergedRepo(t)

	same := "alpha\nsame edit\ngamma\n"
	commitOnBranch(t, r, dir, "feature", "file.txt", same, "feature edit")
	commitOnBranch(t, r, dir, "main", "file.txt", same, "main edit")

	result, err := r.Merge("feature", MergeOptions{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("Conflicts = %v for identical changes", result.Conflicts)
	}
	if got := readWorkFile(t, dir, "file.txt"); got != same {
		t.Errorf("file.txt = %q", got)
	}
}
