package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
)

// Scope restricts which paths repository-level operations consider, for
// monorepo workflows. Include patterns select paths (empty means all);
// exclude patterns then remove matches. Patterns are glob-like with '/' as
// the separator, e.g. "services/api/**".
type Scope struct {
	Name    string   `json:"name,omitempty"`
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`

	include []glob.Glob
	exclude []glob.Glob
}

// Compile validates and compiles all patterns, aggregating every bad pattern
// into a single error.
func (s *Scope) Compile() error {
	var errs *multierror.Error

	s.include = s.include[:0]
	for _, p := range s.Include {
		g, err := glob.Compile(p, '/')
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("include pattern %q: %w", p, err))
			continue
		}
		s.include = append(s.include, g)
	}

	s.exclude = s.exclude[:0]
	for _, p := range s.Exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("exclude pattern %q: %w", p, err))
			continue
		}
		s.exclude = append(s.exclude, g)
	}

	return errs.ErrorOrNil()
}

// InScope reports whether a relative slash-separated path passes the filter.
// A nil scope admits everything.
func (s *Scope) InScope(path string) bool {
	if s == nil {
		return true
	}
	path = filepath.ToSlash(path)

	if len(s.include) > 0 {
		matched := false
		for _, g := range s.include {
			if g.Match(path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, g := range s.exclude {
		if g.Match(path) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func (r *Repo) activeScopePath() string {
	return filepath.Join(r.KilnDir, "scope")
}

func (r *Repo) namedScopePath(name string) string {
	return filepath.Join(r.KilnDir, "scopes", name+".json")
}

// ActiveScope loads the active scope, or nil when none is set.
func (r *Repo) ActiveScope() (*Scope, error) {
	return r.readScopeFile(r.activeScopePath())
}

// NamedScope loads a stored scope configuration by name.
func (r *Repo) NamedScope(name string) (*Scope, error) {
	s, err := r.readScopeFile(r.namedScopePath(name))
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("scope %q is not defined", name)
	}
	return s, nil
}

// SaveScope stores a named scope configuration under .kiln/scopes/.
func (r *Repo) SaveScope(s *Scope) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("save scope: name is required")
	}
	if err := s.Compile(); err != nil {
		return fmt.Errorf("save scope %q: %w", s.Name, err)
	}
	return r.writeScopeFile(r.namedScopePath(s.Name), s)
}

// UseScope activates a named scope (or clears the active scope when name is
// empty).
func (r *Repo) UseScope(name string) error {
	if strings.TrimSpace(name) == "" {
		if err := os.Remove(r.activeScopePath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear scope: %w", err)
		}
		return nil
	}
	s, err := r.NamedScope(name)
	if err != nil {
		return err
	}
	return r.writeScopeFile(r.activeScopePath(), s)
}

func (r *Repo) readScopeFile(path string) (*Scope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scope: %w", err)
	}
	var s Scope
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("read scope: unmarshal: %w", err)
	}
	if err := s.Compile(); err != nil {
		return nil, fmt.Errorf("read scope: %w", err)
	}
	return &s, nil
}

func (r *Repo) writeScopeFile(path string, s *Scope) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write scope: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("write scope: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".scope-tmp-*")
	if err != nil {
		return fmt.Errorf("write scope: tmpfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write scope: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write scope: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write scope: rename: %w", err)
	}
	return nil
}
