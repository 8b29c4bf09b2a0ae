// Package repo implements the repository engine: reference management, the
// staging index, commits, checkout, status, and the three-way merge state
// machine, composed over the content-addressed object store.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/kilnvcs/kiln/pkg/object"
)

// Repo represents an opened kiln repository.
type Repo struct {
	RootDir string        // working directory root
	KilnDir string        // .kiln/ directory
	Store   *object.Store // content-addressed object store

	// Log receives structured engine events. The engine never writes to a
	// terminal; callers may swap in their own logger or silence this one.
	Log logrus.FieldLogger
}

// Init creates a new kiln repository at path. It creates the .kiln/ directory
// structure: HEAD, objects/, refs/heads/, refs/tags/, and logs/. Returns an
// error if a .kiln/ directory already exists.
func Init(path string) (*Repo, error) {
	kilnDir := filepath.Join(path, ".kiln")

	if _, err := os.Stat(kilnDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", kilnDir)
	}

	dirs := []string{
		filepath.Join(kilnDir, "objects"),
		filepath.Join(kilnDir, "refs", "heads"),
		filepath.Join(kilnDir, "refs", "tags"),
		filepath.Join(kilnDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	headPath := filepath.Join(kilnDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	return newRepo(path, kilnDir), nil
}

// Open searches upward from path for a .kiln/ directory and opens the
// repository. Returns an error if no .kiln/ directory is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		kilnDir := filepath.Join(cur, ".kiln")
		info, err := os.Stat(kilnDir)
		if err == nil && info.IsDir() {
			return newRepo(cur, kilnDir), nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: not a kiln repository (or any parent up to /)")
		}
		cur = parent
	}
}

func newRepo(root, kilnDir string) *Repo {
	return &Repo{
		RootDir: root,
		KilnDir: kilnDir,
		Store:   object.NewStore(kilnDir),
		Log:     logrus.StandardLogger().WithField("component", "repo"),
	}
}
