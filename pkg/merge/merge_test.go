package merge

import (
	"strings"
	"testing"
)

func TestMerge_TheirsWinsWhenOursUnchanged(t *testing.T) {
	res := Merge([]byte("a\nb\nc\n"), []byte("a\nb\nc\n"), []byte("a\nX\nc\n"))

	if !res.Clean {
		t.Fatalf("expected clean merge, got regions %+v", res.Regions)
	}
	if string(res.Merged) != "a\nX\nc\n" {
		t.Errorf("merged = %q, want a\\nX\\nc\\n", res.Merged)
	}
}

func TestMerge_OursWinsWhenTheirsUnchanged(t *testing.T) {
	res := Merge([]byte("a\nb\nc\n"), []byte("a\nY\nc\n"), []byte("a\nb\nc\n"))

	if !res.Clean {
		t.Fatalf("expected clean merge, got regions %+v", res.Regions)
	}
	if string(res.Merged) != "a\nY\nc\n" {
		t.Errorf("merged = %q, want a\\nY\\nc\\n", res.Merged)
	}
}

func TestMerge_IdenticalChangesAreClean(t *testing.T) {
	res := Merge([]byte("a\nb\n"), []byte("a\nZ\n"), []byte("a\nZ\n"))

	if !res.Clean {
		t.Fatalf("expected clean merge, got regions %+v", res.Regions)
	}
	if string(res.Merged) != "a\nZ\n" {
		t.Errorf("merged = %q", res.Merged)
	}
}

func TestMerge_BothChangedConflicts(t *testing.T) {
	res := Merge([]byte("a\nb\nc\n"), []byte("a\nY\nc\n"), []byte("a\nX\nc\n"))

	if res.Clean {
		t.Fatal("expected a conflict")
	}
	if len(res.Regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(res.Regions))
	}
	r := res.Regions[0]
	if r.StartLine != 2 || r.EndLine != 2 {
		t.Errorf("region span = %d..%d, want 2..2", r.StartLine, r.EndLine)
	}
	if len(r.Ours) != 1 || r.Ours[0] != "Y" {
		t.Errorf("ours = %v, want [Y]", r.Ours)
	}
	if len(r.Theirs) != 1 || r.Theirs[0] != "X" {
		t.Errorf("theirs = %v, want [X]", r.Theirs)
	}
	if len(r.Base) != 1 || r.Base[0] != "b" {
		t.Errorf("base = %v, want [b]", r.Base)
	}

	merged := string(res.Merged)
	for _, marker := range []string{"<<<<<<< ours", "=======", ">>>>>>> theirs"} {
		if !strings.Contains(merged, marker) {
			t.Errorf("merged output missing marker %q:\n%s", marker, merged)
		}
	}
}

func TestMerge_ContiguousConflictsCoalesce(t *testing.T) {
	base := []byte("a\nb1\nb2\nc\n")
	ours := []byte("a\nY1\nY2\nc\n")
	theirs := []byte("a\nX1\nX2\nc\n")

	res := Merge(base, ours, theirs)
	if len(res.Regions) != 1 {
		t.Fatalf("regions = %d, want 1 coalesced region", len(res.Regions))
	}
	r := res.Regions[0]
	if r.StartLine != 2 || r.EndLine != 3 {
		t.Errorf("region span = %d..%d, want 2..3", r.StartLine, r.EndLine)
	}
	if len(r.Ours) != 2 || len(r.Theirs) != 2 || len(r.Base) != 2 {
		t.Errorf("region sides = %v / %v / %v", r.Ours, r.Theirs, r.Base)
	}
}

func TestMerge_SeparatedConflictsStayApart(t *testing.T) {
	base := []byte("a\nb\nc\nd\ne\n")
	ours := []byte("a\nY\nc\nd\nY2\n")
	theirs := []byte("a\nX\nc\nd\nX2\n")

	res := Merge(base, ours, theirs)
	if len(res.Regions) != 2 {
		t.Fatalf("regions = %d, want 2", len(res.Regions))
	}
	if res.Regions[0].StartLine != 2 || res.Regions[1].StartLine != 5 {
		t.Errorf("region starts = %d, %d, want 2, 5",
			res.Regions[0].StartLine, res.Regions[1].StartLine)
	}
}

func TestMerge_TheirsAppendsLines(t *testing.T) {
	res := Merge([]byte("a\n"), []byte("a\n"), []byte("a\nb\nc\n"))

	if !res.Clean {
		t.Fatalf("expected clean merge, got %+v", res.Regions)
	}
	if string(res.Merged) != "a\nb\nc\n" {
		t.Errorf("merged = %q", res.Merged)
	}
}

func TestMerge_DeleteVsModifyConflicts(t *testing.T) {
	// Ours deleted line 2, theirs modified it.
	res := Merge([]byte("a\nb\n"), []byte("a\n"), []byte("a\nX\n"))

	if res.Clean {
		t.Fatal("expected conflict for delete-vs-modify")
	}
	r := res.Regions[0]
	if len(r.Ours) != 0 {
		t.Errorf("ours = %v, want empty (deleted)", r.Ours)
	}
	if len(r.Theirs) != 1 || r.Theirs[0] != "X" {
		t.Errorf("theirs = %v, want [X]", r.Theirs)
	}
}

func TestMerge_RegionContext(t *testing.T) {
	base := []byte("1\n2\n3\n4\nb\n5\n6\n7\n8\n")
	ours := []byte("1\n2\n3\n4\nY\n5\n6\n7\n8\n")
	theirs := []byte("1\n2\n3\n4\nX\n5\n6\n7\n8\n")

	res := Merge(base, ours, theirs)
	if len(res.Regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(res.Regions))
	}
	ctx := res.Regions[0].Context
	if len(ctx.Before) != 3 || ctx.Before[0] != "2" || ctx.Before[2] != "4" {
		t.Errorf("context before = %v, want [2 3 4]", ctx.Before)
	}
	if len(ctx.After) != 3 || ctx.After[0] != "5" || ctx.After[2] != "7" {
		t.Errorf("context after = %v, want [5 6 7]", ctx.After)
	}
}

func TestMerge_IndexAlignedShiftOverReports(t *testing.T) {
	// Ours inserts a line at the top, shifting everything down. The
	// index-aligned walk sees every subsequent line as changed on ours, so
	// theirs' edit at line 3 conflicts even though an aligned merge would
	// auto-resolve it. This pins the documented precision trade-off.
	base := []byte("a\nb\nc\n")
	ours := []byte("new\na\nb\nc\n")
	theirs := []byte("a\nb\nX\n")

	res := Merge(base, ours, theirs)
	if res.Clean {
		t.Fatal("index-aligned merge should conflict on shifted lines")
	}
}
