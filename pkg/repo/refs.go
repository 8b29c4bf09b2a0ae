package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilnvcs/kiln/pkg/object"
)

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// Head describes the current HEAD pointer: symbolic (tracking a branch ref)
// or detached (a raw commit hash).
type Head struct {
	IsSymbolic bool
	Target     string // ref path like "refs/heads/main", or a hash when detached
}

// Head reads .kiln/HEAD and reports whether it is symbolic and what it
// targets.
func (r *Repo) Head() (Head, error) {
	data, err := os.ReadFile(filepath.Join(r.KilnDir, "HEAD"))
	if err != nil {
		return Head{}, fmt.Errorf("head: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")

	if target, ok := strings.CutPrefix(content, "ref: "); ok {
		return Head{IsSymbolic: true, Target: target}, nil
	}
	return Head{IsSymbolic: false, Target: content}, nil
}

// ResolveRef resolves a ref name to an object hash, following at most one
// level of symbolic indirection (HEAD → branch ref).
//
// Resolution order:
//  1. "HEAD": read HEAD; if symbolic, resolve the target ref, otherwise the
//     value is a detached hash.
//  2. Names starting with "refs/": read .kiln/<name>.
//  3. Otherwise: try "refs/heads/<name>".
//
// A missing branch file yields ErrBranchNotFound.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		if head.IsSymbolic {
			return r.ResolveRef(head.Target)
		}
		return object.Hash(head.Target), nil
	}

	var refPath string
	if strings.HasPrefix(name, "refs/") {
		refPath = filepath.Join(r.KilnDir, filepath.FromSlash(name))
	} else {
		refPath = filepath.Join(r.KilnDir, "refs", "heads", name)
	}

	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("resolve ref %q: %w", name, ErrBranchNotFound)
		}
		return "", fmt.Errorf("resolve ref %q: %w", name, err)
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}

// UpdateRef writes a hash to the named ref file under .kiln/. Parent
// directories are created as needed. The reason is recorded in the reflog.
func (r *Repo) UpdateRef(name string, h object.Hash, reason string) error {
	return r.updateRef(name, h, reason)
}

// UpdateRefCAS writes a hash to the named ref file under .kiln/ using
// lockfile + rename atomic semantics, so concurrent readers observe either
// the old or the new pointer, never a torn value. If expectedOld is provided,
// the update only succeeds when the current ref hash matches it.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	return r.updateRef(name, h, "update", expectedOld...)
}

func (r *Repo) updateRef(name string, h object.Hash, reason string, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}
	hasExpectedOld := len(expectedOld) == 1
	wantOldHash := object.Hash("")
	if hasExpectedOld {
		wantOldHash = expectedOld[0]
	}

	refPath := filepath.Join(r.KilnDir, filepath.FromSlash(name))

	dir := filepath.Dir(refPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if hasExpectedOld && oldHash != wantOldHash {
		return fmt.Errorf("update ref %q: %w (expected %s, found %s)",
			name, ErrRefCASMismatch, wantOldHash, oldHash)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	if err := r.logRefMovement(name, oldHash, h, reason); err != nil {
		r.Log.WithField("ref", name).WithError(err).Warn("ref updated but reflog append failed")
	}

	return nil
}

// writeHeadSymbolic points HEAD at a branch ref.
func (r *Repo) writeHeadSymbolic(refName string) error {
	headPath := filepath.Join(r.KilnDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: "+refName+"\n"), 0o644); err != nil {
		return fmt.Errorf("write HEAD: %w", err)
	}
	return nil
}

// writeHeadDetached points HEAD directly at a commit.
func (r *Repo) writeHeadDetached(h object.Hash) error {
	headPath := filepath.Join(r.KilnDir, "HEAD")
	if err := os.WriteFile(headPath, []byte(string(h)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write HEAD: %w", err)
	}
	return nil
}

// ListRefs lists references under .kiln/refs. Names are returned relative to
// the refs root, e.g. "heads/main", "tags/v1".
func (r *Repo) ListRefs(prefix string) (map[string]object.Hash, error) {
	root := filepath.Join(r.KilnDir, "refs")
	dir := root
	if strings.TrimSpace(prefix) != "" {
		dir = filepath.Join(root, filepath.FromSlash(prefix))
	}

	refs := make(map[string]object.Hash)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(path, ".lock") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		refs[filepath.ToSlash(rel)] = object.Hash(strings.TrimSpace(string(data)))
		return nil
	})
	if os.IsNotExist(err) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}
