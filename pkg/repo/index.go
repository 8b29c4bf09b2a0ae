package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kilnvcs/kiln/pkg/object"
)

// Stage identifies the index slot an entry occupies. Stage 0 holds normal
// staged entries; stages 1/2/3 hold the base/ours/theirs variants of a
// conflicted path and may only exist while a merge is in progress.
type Stage int

const (
	StageNormal Stage = 0
	StageBase   Stage = 1
	StageOurs   Stage = 2
	StageTheirs Stage = 3
)

// IndexEntry records the staged state of a single path.
type IndexEntry struct {
	Path    string      `json:"path"`
	Hash    object.Hash `json:"hash"`
	Mode    string      `json:"mode"`
	Stage   Stage       `json:"stage"`
	ModTime int64       `json:"mod_time,omitempty"`
	Size    int64       `json:"size,omitempty"`
}

// Index is the staging area: an ordered, path-keyed snapshot of what will
// become the next commit's tree. Entries are kept sorted by (path, stage).
type Index struct {
	entries []*IndexEntry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Set records a stage-0 entry for path, dropping any conflict-stage entries
// the path had.
func (x *Index) Set(e *IndexEntry) {
	e.Stage = StageNormal
	x.RemovePath(e.Path)
	x.entries = append(x.entries, e)
	x.sortEntries()
}

// SetStage records a conflict-stage entry for path, replacing any existing
// entry at the same (path, stage).
func (x *Index) SetStage(e *IndexEntry) {
	kept := x.entries[:0]
	for _, cur := range x.entries {
		if cur.Path == e.Path && cur.Stage == e.Stage {
			continue
		}
		kept = append(kept, cur)
	}
	x.entries = append(kept, e)
	x.sortEntries()
}

// Get returns the stage-0 entry for path, or nil.
func (x *Index) Get(path string) *IndexEntry {
	for _, e := range x.entries {
		if e.Path == path && e.Stage == StageNormal {
			return e
		}
	}
	return nil
}

// StageEntries returns all entries for path across stages, in stage order.
func (x *Index) StageEntries(path string) []*IndexEntry {
	var out []*IndexEntry
	for _, e := range x.entries {
		if e.Path == path {
			out = append(out, e)
		}
	}
	return out
}

// RemovePath drops all entries for path, at every stage.
func (x *Index) RemovePath(path string) {
	kept := x.entries[:0]
	for _, e := range x.entries {
		if e.Path == path {
			continue
		}
		kept = append(kept, e)
	}
	x.entries = kept
}

// Entries returns all index entries in (path, stage) order.
func (x *Index) Entries() []*IndexEntry {
	out := make([]*IndexEntry, len(x.entries))
	copy(out, x.entries)
	return out
}

// Paths returns the distinct paths present in the index, sorted.
func (x *Index) Paths() []string {
	seen := make(map[string]bool, len(x.entries))
	var out []string
	for _, e := range x.entries {
		if !seen[e.Path] {
			seen[e.Path] = true
			out = append(out, e.Path)
		}
	}
	sort.Strings(out)
	return out
}

// ConflictedPaths returns the sorted paths holding any nonzero-stage entry.
func (x *Index) ConflictedPaths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range x.entries {
		if e.Stage != StageNormal && !seen[e.Path] {
			seen[e.Path] = true
			out = append(out, e.Path)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of entries, counting conflict stages individually.
func (x *Index) Len() int {
	return len(x.entries)
}

func (x *Index) sortEntries() {
	sort.Slice(x.entries, func(i, j int) bool {
		if x.entries[i].Path != x.entries[j].Path {
			return x.entries[i].Path < x.entries[j].Path
		}
		return x.entries[i].Stage < x.entries[j].Stage
	})
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func (r *Repo) indexPath() string {
	return filepath.Join(r.KilnDir, "index")
}

// ReadIndex loads the staging index from .kiln/index. A missing file yields
// an empty index (no error).
func (r *Repo) ReadIndex() (*Index, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewIndex(), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	var entries []*IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("read index: unmarshal: %w", err)
	}
	idx := &Index{entries: entries}
	idx.sortEntries()
	return idx, nil
}

// WriteIndex atomically writes the staging index to .kiln/index: serialized
// to a temp file, then renamed into place so readers never observe a torn
// index.
func (r *Repo) WriteIndex(x *Index) error {
	x.sortEntries()
	data, err := json.MarshalIndent(x.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("write index: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(r.KilnDir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write index: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: close: %w", err)
	}

	if err := os.Rename(tmpName, r.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: rename: %w", err)
	}
	return nil
}
