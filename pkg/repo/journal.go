package repo

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kilnvcs/kiln/pkg/object"
)

// JournalEntry records one repository-mutating operation in the append-only
// journal at .kiln/journal. Entries are JSON lines, oldest first on disk.
type JournalEntry struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Action      string      `json:"action"`
	Args        []string    `json:"args,omitempty"`
	Description string      `json:"description,omitempty"`
	BeforeHead  object.Hash `json:"before_head,omitempty"`
	AfterHead   object.Hash `json:"after_head,omitempty"`
}

func (r *Repo) journalPath() string {
	return filepath.Join(r.KilnDir, "journal")
}

// Journal appends an operation record. The entry's ID and timestamp are
// assigned here; head hashes are filled from the entry as given. Journal
// failures never abort the operation they describe, so callers typically log
// and ignore the returned error.
func (r *Repo) Journal(entry JournalEntry) error {
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now().UTC()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}

	f, err := os.OpenFile(r.journalPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// JournalHead captures the current HEAD hash for journaling, swallowing
// resolution errors (an unborn branch journals as "").
func (r *Repo) JournalHead() object.Hash {
	h, err := r.ResolveRef("HEAD")
	if err != nil {
		return ""
	}
	return h
}

// ReadJournal returns up to limit journal entries, newest first. A limit of 0
// means all entries. Malformed lines are skipped.
func (r *Repo) ReadJournal(limit int) ([]JournalEntry, error) {
	f, err := os.Open(r.journalPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	defer f.Close()

	var entries []JournalEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e JournalEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("journal: read: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
