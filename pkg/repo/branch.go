package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kilnvcs/kiln/pkg/object"
)

// CreateBranch creates a new branch pointing at the given target hash.
// It writes the hash to .kiln/refs/heads/<name>. Returns ErrBranchExists if
// the branch is already present.
func (r *Repo) CreateBranch(name string, target object.Hash) error {
	refName := "refs/heads/" + name
	if err := r.UpdateRefCAS(refName, target, ""); err != nil {
		if errors.Is(err, ErrRefCASMismatch) {
			return fmt.Errorf("create branch %q: %w", name, ErrBranchExists)
		}
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	r.Log.WithFields(logrus.Fields{"branch": name, "hash": target}).Debug("branch created")
	return nil
}

// DeleteBranch removes the branch ref file .kiln/refs/heads/<name>. Returns
// ErrBranchCheckedOut when the branch is current and ErrBranchNotFound when
// it does not exist.
func (r *Repo) DeleteBranch(name string) error {
	current, err := r.CurrentBranch()
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if current == name {
		return fmt.Errorf("delete branch %q: %w", name, ErrBranchCheckedOut)
	}

	refPath := filepath.Join(r.KilnDir, "refs", "heads", name)
	if err := os.Remove(refPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete branch %q: %w", name, ErrBranchNotFound)
		}
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
	r.Log.WithField("branch", name).Debug("branch deleted")
	return nil
}

// ListBranches reads .kiln/refs/heads/ and returns the branch names sorted
// alphabetically.
func (r *Repo) ListBranches() ([]string, error) {
	headsDir := filepath.Join(r.KilnDir, "refs", "heads")

	entries, err := os.ReadDir(headsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list branches: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch returns the branch name HEAD tracks, or "" when HEAD is
// detached.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}

	const prefix = "refs/heads/"
	if head.IsSymbolic && strings.HasPrefix(head.Target, prefix) {
		return strings.TrimPrefix(head.Target, prefix), nil
	}
	return "", nil
}
