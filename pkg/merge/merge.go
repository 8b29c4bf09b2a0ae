// Package merge implements the per-file three-way content merge used by the
// repository merge machinery.
//
// The walk compares base, ours, and theirs by absolute line index rather than
// by an aligned diff, up to the longest of the three. Insertions or deletions
// that shift line numbers between base and one side can therefore over-report
// conflicts, and coincidentally equal lines at the same index can mask them.
// Downstream resolution tooling depends on these exact semantics; do not
// replace the walk with a diff-aligned merge without revalidating callers.
package merge

import (
	"bytes"
	"strings"
)

// regionContextLines is how many lines of agreed output are captured around
// each conflict region for resolution tooling.
const regionContextLines = 3

// RegionContext carries the agreed lines immediately surrounding a conflict
// region.
type RegionContext struct {
	Before []string `json:"before,omitempty"`
	After  []string `json:"after,omitempty"`
}

// Region is a contiguous span of lines where ours and theirs disagree and
// base does not resolve the disagreement. Line numbers are 1-based.
type Region struct {
	StartLine int           `json:"start_line"`
	EndLine   int           `json:"end_line"`
	Ours      []string      `json:"ours"`
	Theirs    []string      `json:"theirs"`
	Base      []string      `json:"base,omitempty"`
	Context   RegionContext `json:"context"`
}

// FileConflict describes a single conflicted file: its regions plus full
// snapshots of each side for resolution tooling.
type FileConflict struct {
	Path          string   `json:"path"`
	Regions       []Region `json:"regions"`
	OursContent   []byte   `json:"ours_content"`
	TheirsContent []byte   `json:"theirs_content"`
	BaseContent   []byte   `json:"base_content,omitempty"`
}

// Result is the outcome of merging one file.
type Result struct {
	Merged  []byte   // full merged content, with conflict markers if any
	Regions []Region // conflict regions in document order
	Clean   bool     // true when Regions is empty
}

// segment is one unit of merge output: either a single agreed line, or a
// reference to a pending conflict region.
type segment struct {
	line      string
	regionIdx int // -1 for agreed lines
}

// Merge performs the line-indexed three-way merge of base, ours, and theirs.
//
// At each line index: if ours equals theirs, either is kept; if ours still
// matches base, theirs is taken (only their side changed); if theirs still
// matches base, ours is taken. Otherwise the line joins a conflict region.
// Contiguous conflicting indices coalesce into one Region.
func Merge(base, ours, theirs []byte) Result {
	baseLines := splitLines(string(base))
	oursLines := splitLines(string(ours))
	theirsLines := splitLines(string(theirs))

	n := len(baseLines)
	if len(oursLines) > n {
		n = len(oursLines)
	}
	if len(theirsLines) > n {
		n = len(theirsLines)
	}

	var segments []segment
	var regions []Region
	open := -1 // index into regions of the region being extended, -1 if none

	for i := 0; i < n; i++ {
		b, hasBase := lineAt(baseLines, i)
		o, hasOurs := lineAt(oursLines, i)
		t, hasTheirs := lineAt(theirsLines, i)

		switch {
		case hasOurs == hasTheirs && o == t:
			// Both sides agree (including both absent).
			if hasOurs {
				segments = append(segments, segment{line: o, regionIdx: -1})
			}
			open = -1

		case hasOurs == hasBase && o == b:
			// Ours untouched since base: their change wins.
			if hasTheirs {
				segments = append(segments, segment{line: t, regionIdx: -1})
			}
			open = -1

		case hasTheirs == hasBase && t == b:
			// Theirs untouched since base: our change wins.
			if hasOurs {
				segments = append(segments, segment{line: o, regionIdx: -1})
			}
			open = -1

		default:
			// Both sides changed the same line differently.
			if open < 0 {
				regions = append(regions, Region{StartLine: i + 1, EndLine: i + 1})
				open = len(regions) - 1
				segments = append(segments, segment{regionIdx: open})
			}
			r := &regions[open]
			r.EndLine = i + 1
			if hasOurs {
				r.Ours = append(r.Ours, o)
			}
			if hasTheirs {
				r.Theirs = append(r.Theirs, t)
			}
			if hasBase {
				r.Base = append(r.Base, b)
			}
		}
	}

	fillContext(segments, regions)

	return Result{
		Merged:  render(segments, regions),
		Regions: regions,
		Clean:   len(regions) == 0,
	}
}

// MarkedRegion formats a single region with conflict markers, as embedded in
// the merged output.
func MarkedRegion(r Region) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<<<<<< ours\n")
	for _, l := range r.Ours {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	buf.WriteString("=======\n")
	for _, l := range r.Theirs {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	buf.WriteString(">>>>>>> theirs\n")
	return buf.Bytes()
}

func render(segments []segment, regions []Region) []byte {
	var buf bytes.Buffer
	for _, s := range segments {
		if s.regionIdx >= 0 {
			buf.Write(MarkedRegion(regions[s.regionIdx]))
			continue
		}
		buf.WriteString(s.line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// fillContext records up to regionContextLines agreed lines on each side of
// every region.
func fillContext(segments []segment, regions []Region) {
	for si, s := range segments {
		if s.regionIdx < 0 {
			continue
		}
		r := &regions[s.regionIdx]

		for i := si - 1; i >= 0 && si-i <= regionContextLines; i-- {
			if segments[i].regionIdx >= 0 {
				break
			}
			r.Context.Before = append([]string{segments[i].line}, r.Context.Before...)
		}
		for i := si + 1; i < len(segments) && i-si <= regionContextLines; i++ {
			if segments[i].regionIdx >= 0 {
				break
			}
			r.Context.After = append(r.Context.After, segments[i].line)
		}
	}
}

func lineAt(lines []string, i int) (string, bool) {
	if i < len(lines) {
		return lines[i], true
	}
	return "", false
}

// splitLines splits s into lines. A trailing newline does not produce an
// extra empty element.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
