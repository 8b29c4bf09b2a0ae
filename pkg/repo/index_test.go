package repo

import (
	"reflect"
	"testing"

	"github.com/kilnvcs/kiln/pkg/object"
)

func TestIndexOrderingAndStages(t *testing.T) {
	idx := NewIndex()
	idx.Set(&IndexEntry{Path: "b.txt", Hash: "bb", Mode: object.TreeModeFile})
	idx.Set(&IndexEntry{Path: "a.txt", Hash: "aa", Mode: object.TreeModeFile})
	idx.SetStage(&IndexEntry{Path: "c.txt", Hash: "c2", Mode: object.TreeModeFile, Stage: StageOurs})
	idx.SetStage(&IndexEntry{Path: "c.txt", Hash: "c1", Mode: object.TreeModeFile, Stage: StageBase})
	idx.SetStage(&IndexEntry{Path: "c.txt", Hash: "c3", Mode: object.TreeModeFile, Stage: StageTheirs})

	var got []string
	for _, e := range idx.Entries() {
		got = append(got, e.Path)
	}
	want := []string{"a.txt", "b.txt", "c.txt", "c.txt", "c.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("entry order = %v, want %v", got, want)
	}

	stages := idx.StageEntries("c.txt")
	if len(stages) != 3 || stages[0].Stage != StageBase || stages[2].Stage != StageTheirs {
		t.Errorf("stage entries out of order: %+v", stages)
	}

	if conflicted := idx.ConflictedPaths(); !reflect.DeepEqual(conflicted, []string{"c.txt"}) {
		t.Errorf("ConflictedPaths = %v, want [c.txt]", conflicted)
	}

	// Promoting to stage 0 clears the conflict stages.
	idx.Set(&IndexEntry{Path: "c.txt", Hash: "c9", Mode: object.TreeModeFile})
	if len(idx.StageEntries("c.txt")) != 1 {
		t.Error("Set should clear conflict stages")
	}
	if len(idx.ConflictedPaths()) != 0 {
		t.Error("no conflicted paths expected after Set")
	}
}

func TestIndexPersistenceRoundTrip(t *testing.T) {
	r, _ := initTestRepo(t)

	idx := NewIndex()
	idx.Set(&IndexEntry{Path: "x/y.txt", Hash: "aa", Mode: object.TreeModeExecutable, Size: 3})
	idx.SetStage(&IndexEntry{Path: "z.txt", Hash: "bb", Mode: object.TreeModeFile, Stage: StageTheirs})
	if err := r.WriteIndex(idx); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}

	loaded, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("loaded %d entries, want 2", loaded.Len())
	}
	e := loaded.Get("x/y.txt")
	if e == nil || e.Mode != object.TreeModeExecutable || e.Size != 3 {
		t.Errorf("loaded entry = %+v", e)
	}
	if got := loaded.ConflictedPaths(); len(got) != 1 || got[0] != "z.txt" {
		t.Errorf("ConflictedPaths = %v, want [z.txt]", got)
	}
}

func TestReadIndexMissingFile(t *testing.T) {
	r, _ := initTestRepo(t)

	idx, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex on fresh repo: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("fresh index has %d entries, want 0", idx.Len())
	}
}
