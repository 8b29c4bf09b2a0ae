package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/kilnvcs/kiln/pkg/object"
)

func init() {
	logrus.SetLevel(logrus.PanicLevel)
}

// initTestRepo creates an empty repository in a temp directory.
func initTestRepo(t *testing.T) (*Repo, string) {
	t.Helper()

	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r, dir
}

// writeAndAdd writes a file relative to the repo root and stages it.
func writeAndAdd(t *testing.T, r *Repo, dir, path, content string) {
	t.Helper()

	abs := filepath.Join(dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := r.Add([]string{path}); err != nil {
		t.Fatalf("Add %s: %v", path, err)
	}
}

// commitAll stages nothing extra and commits with the given message.
func commitAll(t *testing.T, r *Repo, message string) object.Hash {
	t.Helper()

	hash, err := r.Commit(CommitOptions{Message: message})
	if err != nil {
		t.Fatalf("Commit %q: %v", message, err)
	}
	return hash
}

func readWorkFile(t *testing.T, dir, path string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestInitCreatesLayout(t *testing.T) {
	r, dir := initTestRepo(t)

	for _, sub := range []string{
		"objects",
		filepath.Join("refs", "heads"),
		filepath.Join("refs", "tags"),
	} {
		info, err := os.Stat(filepath.Join(r.KilnDir, sub))
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s: err=%v", sub, err)
		}
	}

	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if !head.IsSymbolic || head.Target != "refs/heads/main" {
		t.Errorf("HEAD = %+v, want symbolic ref to refs/heads/main", head)
	}

	if _, err := Init(dir); err == nil {
		t.Error("second Init should fail")
	}
}

func TestOpenSearchesUpward(t *testing.T) {
	_, dir := initTestRepo(t)

	nested := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	r, err := Open(nested)
	if err != nil {
		t.Fatalf("Open from nested dir: %v", err)
	}
	if r.RootDir != dir {
		t.Errorf("RootDir = %q, want %q", r.RootDir, dir)
	}

	if _, err := Open(t.TempDir()); err == nil {
		t.Error("Open outside any repository should fail")
	}
}
