// Package diff computes line-level edit scripts between two texts and groups
// them into contextual hunks. It is pure: no I/O, and identical inputs always
// produce byte-identical output.
package diff

import "strings"

// LineType classifies a line in an edit script.
type LineType int

const (
	Context LineType = iota // Line is unchanged between old and new.
	Add                     // Line is present in new only.
	Remove                  // Line is present in old only.
)

// Line is a single line in an edit script.
type Line struct {
	Type    LineType
	Content string
}

// Diff computes a line-oriented edit script transforming oldText into
// newText using the Myers shortest-edit-script algorithm.
func Diff(oldText, newText string) []Line {
	return myers(splitLines(oldText), splitLines(newText))
}

// splitLines splits s into lines. A trailing newline does not produce an
// extra empty element (matching standard text file conventions).
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

// myers computes the shortest edit script to transform a into b, operating
// on whole lines. It runs in O((N+M)*D) time where D is the size of the
// minimum edit script.
func myers(a, b []string) []Line {
	n := len(a)
	m := len(b)

	// Trivial cases.
	if n == 0 && m == 0 {
		return nil
	}
	if n == 0 {
		out := make([]Line, m)
		for i, line := range b {
			out[i] = Line{Type: Add, Content: line}
		}
		return out
	}
	if m == 0 {
		out := make([]Line, n)
		for i, line := range a {
			out[i] = Line{Type: Remove, Content: line}
		}
		return out
	}

	max := n + m
	size := 2*max + 1
	v := make([]int, size)

	// trace[d] holds a snapshot of v after processing edit distance d.
	var trace [][]int

	for d := 0; d <= max; d++ {
		for k := -d; k <= d; k += 2 {
			idx := k + max
			var x int
			if k == -d || (k != d && v[idx-1] < v[idx+1]) {
				x = v[idx+1] // move down (add)
			} else {
				x = v[idx-1] + 1 // move right (remove)
			}
			y := x - k

			// Follow the diagonal while lines are equal.
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}

			v[idx] = x

			if x >= n && y >= m {
				snap := make([]int, size)
				copy(snap, v)
				trace = append(trace, snap)
				return backtrack(trace, a, b, d)
			}
		}

		snap := make([]int, size)
		copy(snap, v)
		trace = append(trace, snap)
	}

	// Unreachable for valid inputs.
	return nil
}

// backtrack reconstructs the edit script from the trace of v snapshots.
func backtrack(trace [][]int, a, b []string, dFinal int) []Line {
	n := len(a)
	m := len(b)
	max := n + m

	x := n
	y := m

	var out []Line

	for d := dFinal; d > 0; d-- {
		k := x - y
		idx := k + max

		vPrev := trace[d-1]

		var prevK int
		if k == -d || (k != d && vPrev[idx-1] < vPrev[idx+1]) {
			prevK = k + 1 // came from an add (down move)
		} else {
			prevK = k - 1 // came from a remove (right move)
		}

		prevX := vPrev[prevK+max]
		prevY := prevX - prevK

		// Trace back along the diagonal (equal lines).
		for x > prevX && y > prevY {
			x--
			y--
			out = append(out, Line{Type: Context, Content: a[x]})
		}

		if k == prevK+1 {
			x--
			out = append(out, Line{Type: Remove, Content: a[x]})
		} else {
			y--
			out = append(out, Line{Type: Add, Content: b[y]})
		}
	}

	// Remaining diagonal at d=0.
	for x > 0 && y > 0 {
		x--
		y--
		out = append(out, Line{Type: Context, Content: a[x]})
	}

	// Reverse to get forward order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out
}
