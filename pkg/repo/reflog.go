package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilnvcs/kiln/pkg/object"
)

const zeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// RefMovement is one recorded ref update. Movements accumulate in an
// append-only per-ref log under .kiln/logs/, one line per update:
//
//	old new unix reason
//
// An unborn side is recorded as the all-zero hash. The reason may contain
// spaces; it is always the last field.
type RefMovement struct {
	Ref    string
	Old    object.Hash
	New    object.Hash
	At     time.Time
	Reason string
}

func (m RefMovement) line() string {
	return fmt.Sprintf("%s %s %d %s\n", orZeroHash(m.Old), orZeroHash(m.New), m.At.Unix(), m.Reason)
}

func orZeroHash(h object.Hash) string {
	if strings.TrimSpace(string(h)) == "" {
		return zeroHash
	}
	return string(h)
}

// parseRefMovement decodes one log line. Lines that do not parse are
// reported as not ok so readers can skip them.
func parseRefMovement(ref, line string) (RefMovement, bool) {
	fields := strings.SplitN(line, " ", 4)
	if len(fields) != 4 {
		return RefMovement{}, false
	}
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return RefMovement{}, false
	}
	return RefMovement{
		Ref:    ref,
		Old:    object.Hash(fields[0]),
		New:    object.Hash(fields[1]),
		At:     time.Unix(ts, 0),
		Reason: fields[3],
	}, true
}

func (r *Repo) refLogPath(ref string) string {
	return filepath.Join(r.KilnDir, "logs", filepath.FromSlash(ref))
}

// logRefMovement appends one movement to the ref's log. A blank ref is
// silently skipped; a blank reason is recorded as "update".
func (r *Repo) logRefMovement(ref string, from, to object.Hash, reason string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	m := RefMovement{
		Ref:    ref,
		Old:    from,
		New:    to,
		At:     time.Now(),
		Reason: strings.TrimSpace(reason),
	}
	if m.Reason == "" {
		m.Reason = "update"
	}

	path := r.refLogPath(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("reflog %s: mkdir: %w", ref, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog %s: open: %w", ref, err)
	}
	_, writeErr := f.WriteString(m.line())
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("reflog %s: write: %w", ref, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("reflog %s: close: %w", ref, closeErr)
	}
	return nil
}

// ReadReflog returns up to limit movements of a ref, newest first. Passing
// "" or "HEAD" selects the currently checked-out branch; a ref that was
// never moved yields no entries. A limit of 0 means unlimited.
func (r *Repo) ReadReflog(ref string, limit int) ([]RefMovement, error) {
	name := r.reflogTarget(ref)

	data, err := os.ReadFile(r.refLogPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reflog %s: %w", name, err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	var out []RefMovement
	for i := len(lines) - 1; i >= 0; i-- {
		m, ok := parseRefMovement(name, strings.TrimSpace(lines[i]))
		if !ok {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// reflogTarget maps a user-supplied ref to the log file's ref name.
func (r *Repo) reflogTarget(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "" || ref == "HEAD":
		if head, err := r.Head(); err == nil && head.IsSymbolic {
			return head.Target
		}
		return "HEAD"
	case strings.HasPrefix(ref, "refs/"):
		return ref
	default:
		return "refs/heads/" + ref
	}
}
