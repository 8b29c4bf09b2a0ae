package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilnvcs/kiln/pkg/object"
)

// CreateTag writes a lightweight tag: refs/tags/<name> containing the target
// commit hash.
func (r *Repo) CreateTag(name string, target object.Hash) error {
	if err := r.UpdateRefCAS("refs/tags/"+name, target, ""); err != nil {
		if errors.Is(err, ErrRefCASMismatch) {
			return fmt.Errorf("create tag: tag %q already exists", name)
		}
		return fmt.Errorf("create tag %q: %w", name, err)
	}
	return nil
}

// DeleteTag removes refs/tags/<name>.
func (r *Repo) DeleteTag(name string) error {
	if err := os.Remove(filepath.Join(r.KilnDir, "refs", "tags", name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete tag: tag %q does not exist", name)
		}
		return fmt.Errorf("delete tag %q: %w", name, err)
	}
	return nil
}

// ListTags returns tag names sorted alphabetically.
func (r *Repo) ListTags() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.KilnDir, "refs", "tags"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list tags: %w", err)
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
