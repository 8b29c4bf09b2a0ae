package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a TreeObj. Entries are sorted by Name for
// deterministic output. Each entry is one line:
//
//	mode hash name
//
// where mode is a Git-compatible mode string (40000, 100644, 100755). The
// name comes last because it may itself contain spaces; mode and hash never
// do.
func MarshalTree(tr *TreeObj) []byte {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		mode := e.Mode
		if strings.TrimSpace(mode) == "" {
			mode = TreeModeFile
		}
		fmt.Fprintf(&buf, "%s %s %s\n", mode, string(e.Hash), e.Name)
	}
	return buf.Bytes()
}

// UnmarshalTree parses a TreeObj from its serialized form.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return tr, nil
	}
	for _, line := range strings.Split(text, "\n") {
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unmarshal tree: malformed entry %q: %w", line, ErrCorrupt)
		}
		if err := validateTreeMode(parts[0]); err != nil {
			return nil, fmt.Errorf("unmarshal tree: %w", err)
		}
		tr.Entries = append(tr.Entries, TreeEntry{
			Mode: parts[0],
			Hash: Hash(parts[1]),
			Name: parts[2],
		})
	}
	return tr, nil
}

func validateTreeMode(mode string) error {
	switch mode {
	case TreeModeDir, TreeModeFile, TreeModeExecutable:
		return nil
	default:
		return fmt.Errorf("unknown mode %q: %w", mode, ErrCorrupt)
	}
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H     (zero or more)
//	author Name <email> timestamp timezone
//	signature S  (optional)
//
//	message
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", string(c.TreeHash))
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", string(p))
	}
	fmt.Fprintf(&buf, "author %s <%s> %d %s\n", c.AuthorName, c.AuthorEmail, c.Timestamp, c.Timezone)
	if strings.TrimSpace(c.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", c.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// CommitSigningPayload returns the canonical bytes a signer signs: the full
// serialized commit with the signature header omitted.
func CommitSigningPayload(c *CommitObj) []byte {
	unsigned := *c
	unsigned.Signature = ""
	return MarshalCommit(&unsigned)
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal commit: missing header/message separator: %w", ErrCorrupt)
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &CommitObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header line %q: %w", line, ErrCorrupt)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			if err := parseAuthor(val, c); err != nil {
				return nil, fmt.Errorf("unmarshal commit: %w", err)
			}
		case "signature":
			c.Signature = val
		default:
			return nil, fmt.Errorf("unmarshal commit: unknown header key %q: %w", key, ErrCorrupt)
		}
	}
	if c.TreeHash == "" {
		return nil, fmt.Errorf("unmarshal commit: missing tree header: %w", ErrCorrupt)
	}
	return c, nil
}

// parseAuthor decodes "Name <email> timestamp timezone". The name may contain
// spaces, so the email brackets anchor the split.
func parseAuthor(val string, c *CommitObj) error {
	open := strings.LastIndex(val, "<")
	end := strings.LastIndex(val, ">")
	if open < 0 || end < open {
		return fmt.Errorf("bad author %q: %w", val, ErrCorrupt)
	}
	c.AuthorName = strings.TrimSpace(val[:open])
	c.AuthorEmail = val[open+1 : end]

	rest := strings.Fields(strings.TrimSpace(val[end+1:]))
	if len(rest) < 1 {
		return fmt.Errorf("bad author %q: missing timestamp: %w", val, ErrCorrupt)
	}
	ts, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad author timestamp %q: %w", rest[0], ErrCorrupt)
	}
	c.Timestamp = ts
	if len(rest) > 1 {
		c.Timezone = rest[1]
	}
	return nil
}
