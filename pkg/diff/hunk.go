package diff

// Hunk is a contiguous group of edit-script lines with up to contextSize
// unchanged lines on each side. Coordinates are 1-based; a count of zero
// means the hunk inserts before (old) or deletes at (new) the start position,
// following unified-diff conventions.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// CreateHunks groups an edit script into hunks. Changed lines within
// 2×contextSize of each other share a hunk, so their context regions never
// overlap or abut in the output.
func CreateHunks(lines []Line, contextSize int) []Hunk {
	if contextSize < 0 {
		contextSize = 0
	}

	// Indices of non-context lines.
	var changed []int
	for i, l := range lines {
		if l.Type != Context {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	// Group changed indices: a gap of more than 2×contextSize context lines
	// starts a new hunk.
	type span struct{ first, last int }
	var spans []span
	cur := span{first: changed[0], last: changed[0]}
	for _, idx := range changed[1:] {
		if idx-cur.last-1 <= 2*contextSize {
			cur.last = idx
			continue
		}
		spans = append(spans, cur)
		cur = span{first: idx, last: idx}
	}
	spans = append(spans, cur)

	// oldBefore[i] / newBefore[i]: number of old/new lines preceding lines[i].
	oldBefore := make([]int, len(lines)+1)
	newBefore := make([]int, len(lines)+1)
	for i, l := range lines {
		oldBefore[i+1] = oldBefore[i]
		newBefore[i+1] = newBefore[i]
		if l.Type != Add {
			oldBefore[i+1]++
		}
		if l.Type != Remove {
			newBefore[i+1]++
		}
	}

	hunks := make([]Hunk, 0, len(spans))
	for _, sp := range spans {
		start := sp.first - contextSize
		if start < 0 {
			start = 0
		}
		end := sp.last + contextSize
		if end > len(lines)-1 {
			end = len(lines) - 1
		}

		h := Hunk{
			OldCount: oldBefore[end+1] - oldBefore[start],
			NewCount: newBefore[end+1] - newBefore[start],
			Lines:    lines[start : end+1],
		}
		h.OldStart = oldBefore[start] + 1
		if h.OldCount == 0 {
			h.OldStart = oldBefore[start]
		}
		h.NewStart = newBefore[start] + 1
		if h.NewCount == 0 {
			h.NewStart = newBefore[start]
		}
		hunks = append(hunks, h)
	}

	return hunks
}
