package repo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kilnvcs/kiln/pkg/object"
)

// CommitSigner signs the canonical commit payload and returns an armored
// signature to embed in the commit object.
type CommitSigner func(payload []byte) (string, error)

// CommitOptions controls Commit behavior.
type CommitOptions struct {
	Message string
	// Parents overrides the default parent list (HEAD). Used by merge
	// completion to record two parents.
	Parents []object.Hash
	// AllowEmpty permits a commit whose tree matches its first parent's.
	AllowEmpty bool
	Signer     CommitSigner
}

// Commit writes the staged tree as a new commit and advances the current
// branch (or HEAD directly when detached). It refuses to run while the index
// holds unresolved conflict entries.
func (r *Repo) Commit(opts CommitOptions) (object.Hash, error) {
	if strings.TrimSpace(opts.Message) == "" {
		return "", fmt.Errorf("commit: empty message")
	}

	idx, err := r.ReadIndex()
	if err != nil {
		return "", err
	}
	if conflicted := idx.ConflictedPaths(); len(conflicted) > 0 {
		return "", &UnresolvedConflictsError{Paths: conflicted}
	}

	treeHash, err := r.BuildTree(idx)
	if err != nil {
		return "", err
	}

	parents := opts.Parents
	if parents == nil {
		headHash, err := r.ResolveRef("HEAD")
		if err == nil && headHash != "" {
			parents = []object.Hash{headHash}
		} else if err != nil && !errors.Is(err, ErrBranchNotFound) && !errors.Is(err, ErrNoCommits) {
			return "", err
		}
	}

	if !opts.AllowEmpty && len(parents) == 1 {
		parent, err := r.Store.ReadCommit(parents[0])
		if err != nil {
			return "", fmt.Errorf("commit: read parent: %w", err)
		}
		if parent.TreeHash == treeHash {
			return "", fmt.Errorf("commit: nothing to commit")
		}
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}

	now := time.Now()
	commit := &object.CommitObj{
		TreeHash:    treeHash,
		Parents:     parents,
		AuthorName:  cfg.User.Name,
		AuthorEmail: cfg.User.Email,
		Timestamp:   now.Unix(),
		Timezone:    now.Format("-0700"),
		Message:     strings.TrimRight(opts.Message, "\n") + "\n",
	}

	if opts.Signer != nil {
		payload := object.CommitSigningPayload(commit)
		sig, err := opts.Signer(payload)
		if err != nil {
			return "", fmt.Errorf("commit: sign: %w", err)
		}
		commit.Signature = sig
	}

	hash, err := r.Store.WriteCommit(commit)
	if err != nil {
		return "", fmt.Errorf("commit: write: %w", err)
	}

	if err := r.advanceHead(hash, "commit: "+firstLine(commit.Message)); err != nil {
		return "", err
	}

	r.Log.WithFields(logrus.Fields{
		"commit": hash.Short(),
		"tree":   treeHash.Short(),
	}).Info("created commit")
	return hash, nil
}

// advanceHead moves the current branch (or detached HEAD) to point at hash.
func (r *Repo) advanceHead(hash object.Hash, reason string) error {
	head, err := r.Head()
	if err != nil {
		return err
	}
	if head.IsSymbolic {
		return r.UpdateRef(head.Target, hash, reason)
	}
	return r.writeHeadDetached(hash)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// LogEntry pairs a commit hash with its decoded object.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// History walks first-parent ancestry from start (a ref name or hash) and
// returns up to limit entries, newest first. A limit of 0 means unlimited.
func (r *Repo) History(start string, limit int) ([]LogEntry, error) {
	hash, err := r.ResolveRef(start)
	if err != nil {
		return nil, err
	}

	var out []LogEntry
	for hash != "" {
		commit, err := r.Store.ReadCommit(hash)
		if err != nil {
			return nil, fmt.Errorf("history: read %s: %w", hash.Short(), err)
		}
		out = append(out, LogEntry{Hash: hash, Commit: commit})
		if limit > 0 && len(out) >= limit {
			break
		}
		if len(commit.Parents) == 0 {
			break
		}
		hash = commit.Parents[0]
	}
	return out, nil
}
