package object

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_WriteReadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	content := []byte("hello kiln\n")
	h, err := s.Write(TypeBlob, content)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if h == "" || len(h) != 64 {
		t.Fatalf("expected 64-char hash, got %q", h)
	}

	objType, data, err := s.Read(h)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if objType != TypeBlob {
		t.Errorf("type = %q, want %q", objType, TypeBlob)
	}
	if string(data) != string(content) {
		t.Errorf("content = %q, want %q", data, content)
	}
}

func TestStore_WriteIsIdempotent(t *testing.T) {
	s := NewStore(t.TempDir())

	content := []byte("same bytes")
	h1, err := s.Write(TypeBlob, content)
	if err != nil {
		t.Fatalf("first Write: %v", err)
	}
	h2, err := s.Write(TypeBlob, content)
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hashes differ: %s vs %s", h1, h2)
	}
}

func TestStore_HashDependsOnType(t *testing.T) {
	content := []byte("payload")
	if HashObject(TypeBlob, content) == HashObject(TypeCommit, content) {
		t.Error("blob and commit hashes should differ for identical content")
	}
}

func TestStore_ReadMissingObject(t *testing.T) {
	s := NewStore(t.TempDir())

	_, _, err := s.Read(Hash("deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ReadCorruptObject(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	h, err := s.Write(TypeBlob, []byte("will be clobbered"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Overwrite the stored object with garbage that is not valid zstd.
	p := filepath.Join(dir, "objects", string(h[:2]), string(h[2:]))
	if err := os.WriteFile(p, []byte("not a compressed envelope"), 0o644); err != nil {
		t.Fatalf("clobber object: %v", err)
	}

	_, _, err = s.Read(h)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestStore_TypedReadRejectsWrongType(t *testing.T) {
	s := NewStore(t.TempDir())

	h, err := s.WriteBlob(&Blob{Data: []byte("blob data")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if _, err := s.ReadCommit(h); err == nil {
		t.Error("ReadCommit on a blob hash should fail")
	}
}

func TestStore_TreeRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	tr := &TreeObj{Entries: []TreeEntry{
		{Name: "b.txt", Mode: TreeModeFile, Hash: HashBytes([]byte("b"))},
		{Name: "a.txt", Mode: TreeModeExecutable, Hash: HashBytes([]byte("a"))},
		{Name: "sub", Mode: TreeModeDir, Hash: HashBytes([]byte("t"))},
	}}

	h, err := s.WriteTree(tr)
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	got, err := s.ReadTree(h)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(got.Entries))
	}
	// Marshal sorts by name.
	if got.Entries[0].Name != "a.txt" || got.Entries[1].Name != "b.txt" || got.Entries[2].Name != "sub" {
		t.Errorf("entries not sorted: %+v", got.Entries)
	}
	if got.Entries[0].Mode != TreeModeExecutable {
		t.Errorf("mode = %q, want %q", got.Entries[0].Mode, TreeModeExecutable)
	}
	if !got.Entries[2].IsDir() {
		t.Error("sub should be a directory entry")
	}
}
