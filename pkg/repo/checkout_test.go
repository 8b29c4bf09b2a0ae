package repo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckoutSwitchesBranches(t *testing.T) {
	r, dir := initTestRepo(t)
	writeAndAdd(t, r, dir, "a.txt", "main content\n")
	base := commitAll(t, r, "initial")

	if err := r.CreateBranch("feature", base); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.Checkout("feature"); err != nil {
		t.Fatalf("Checkout feature: %v", err)
	}

	writeAndAdd(t, r, dir, "feature.txt", "feature only\n")
	commitAll(t, r, "feature work")

	if err := r.Checkout("main"); err != nil {
		t.Fatalf("Checkout main: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "feature.txt")); !os.IsNotExist(err) {
		t.Error("feature.txt should not exist on main")
	}
	if got := readWorkFile(t, dir, "a.txt"); got != "main content\n" {
		t.Errorf("a.txt = %q", got)
	}

	if err := r.Checkout("feature"); err != nil {
		t.Fatalf("Checkout feature again: %v", err)
	}
	if got := readWorkFile(t, dir, "feature.txt"); got != "feature only\n" {
		t.Errorf("feature.txt = %q", got)
	}
}

func TestCheckoutDetachesOnHash(t *testing.T) {
	r, dir := initTestRepo(t)
	writeAndAdd(t, r, dir, "a.txt", "one\n")
	first := commitAll(t, r, "first")
	writeAndAdd(t, r, dir, "a.txt", "two\n")
	commitAll(t, r, "second")

	if err := r.Checkout(string(first)); err != nil {
		t.Fatalf("Checkout by hash: %v", err)
	}
	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.IsSymbolic {
		t.Error("HEAD should be detached")
	}
	if got := readWorkFile(t, dir, "a.txt"); got != "one\n" {
		t.Errorf("a.txt = %q, want first version", got)
	}

	branch, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "" {
		t.Errorf("CurrentBranch = %q while detached", branch)
	}
}

func TestCheckoutRefusesDirtyTree(t *testing.T) {
	r, dir := initTestRepo(t)
	writeAndAdd(t, r, dir, "a.txt", "one\n")
	base := commitAll(t, r, "initial")
	if err := r.CreateBranch("feature", base); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	// Modify without staging.
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("dirty\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.Checkout("feature"); err == nil {
		t.Error("Checkout with a dirty tree should fail")
	}
	// The working copy must be untouched.
	if got := readWorkFile(t, dir, "a.txt"); got != "dirty\n" {
		t.Errorf("a.txt = %q after refused checkout", got)
	}
}

func TestCheckoutRemovesEmptyDirs(t *testing.T) {
	r, dir := initTestRepo(t)
	writeAndAdd(t, r, dir, "a.txt", "keep\n")
	base := commitAll(t, r, "initial")
	if err := r.CreateBranch("feature", base); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.Checkout("feature"); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	writeAndAdd(t, r, dir, "deep/nested/file.txt", "x\n")
	commitAll(t, r, "add nested")

	if err := r.Checkout("main"); err != nil {
		t.Fatalf("Checkout main: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "deep")); !os.IsNotExist(err) {
		t.Error("empty directory deep/ should have been pruned")
	}
}

func TestStatusClassification(t *testing.T) {
	r, dir := initTestRepo(t)
	writeAndAdd(t, r, dir, "committed.txt", "v1\n")
	commitAll(t, r, "initial")

	writeAndAdd(t, r, dir, "staged.txt", "new\n")

	// Modify a committed file without staging.
	if err := os.WriteFile(filepath.Join(dir, "committed.txt"), []byte("v2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// An untracked file.
	if err := os.WriteFile(filepath.Join(dir, "untracked.txt"), []byte("??\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	report, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.Branch != "main" {
		t.Errorf("branch = %q", report.Branch)
	}
	if len(report.Staged) != 1 || report.Staged[0] != "staged.txt" {
		t.Errorf("Staged = %v", report.Staged)
	}
	if len(report.Modified) != 1 || report.Modified[0] != "committed.txt" {
		t.Errorf("Modified = %v", report.Modified)
	}
	if len(report.Untracked) != 1 || report.Untracked[0] != "untracked.txt" {
		t.Errorf("Untracked = %v", report.Untracked)
	}
	if report.Clean() {
		t.Error("report should not be clean")
	}
}

func TestStatusDeletedAndIgnored(t *testing.T) {
	r, dir := initTestRepo(t)
	writeAndAdd(t, r, dir, "gone.txt", "x\n")
	commitAll(t, r, "initial")

	if err := os.Remove(filepath.Join(dir, "gone.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".kilnignore"), []byte("*.log\n"), 0o644); err != nil {
		t.Fatalf("write ignore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "noise.log"), []byte("zzz\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	report, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(report.Deleted) != 1 || report.Deleted[0] != "gone.txt" {
		t.Errorf("Deleted = %v", report.Deleted)
	}
	for _, u := range report.Untracked {
		if u == "noise.log" {
			t.Error("ignored file reported as untracked")
		}
	}
}
