package diff

import (
	"fmt"
	"strings"
)

// FileDiff is the hunk-level diff of one file, ready for rendering.
type FileDiff struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
}

// FileDiffOf is a convenience constructor: it diffs two texts and groups the
// result into hunks with the given context size.
func FileDiffOf(oldPath, newPath, oldText, newText string, contextSize int) FileDiff {
	return FileDiff{
		OldPath: oldPath,
		NewPath: newPath,
		Hunks:   CreateHunks(Diff(oldText, newText), contextSize),
	}
}

// FormatUnifiedDiff renders a FileDiff in the conventional unified format:
//
//	--- a/old
//	+++ b/new
//	@@ -oldStart,oldCount +newStart,newCount @@
//	 context
//	-removed
//	+added
//
// An empty diff renders as an empty string.
func FormatUnifiedDiff(fd FileDiff) string {
	if len(fd.Hunks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", fd.OldPath)
	fmt.Fprintf(&b, "+++ b/%s\n", fd.NewPath)

	for _, h := range fd.Hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			switch l.Type {
			case Add:
				fmt.Fprintf(&b, "+%s\n", l.Content)
			case Remove:
				fmt.Fprintf(&b, "-%s\n", l.Content)
			default:
				fmt.Fprintf(&b, " %s\n", l.Content)
			}
		}
	}

	return b.String()
}
