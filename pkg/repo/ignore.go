package repo

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// IgnoreChecker decides whether a working-tree path is excluded from status
// and add walks. The metadata directories .kiln/ and .git/ are always
// ignored; additional glob patterns come from a .kilnignore file at the
// repository root, one pattern per line. Lines starting with "!" negate an
// earlier match; the last matching pattern wins.
type IgnoreChecker struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	matcher  glob.Glob
	negated  bool
	hasSlash bool // match against the full path instead of the basename
}

// NewIgnoreChecker builds the checker for a repository root.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	ic := &IgnoreChecker{}
	ic.addPattern(".kiln", false)
	ic.addPattern(".git", false)

	f, err := os.Open(filepath.Join(repoRoot, ".kilnignore"))
	if err != nil {
		return ic
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		negated := false
		if strings.HasPrefix(line, "!") {
			negated = true
			line = line[1:]
		}
		line = strings.TrimSuffix(line, "/")
		ic.addPattern(line, negated)
	}
	return ic
}

func (ic *IgnoreChecker) addPattern(pattern string, negated bool) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		// A malformed pattern is skipped rather than failing the whole walk.
		return
	}
	ic.patterns = append(ic.patterns, ignorePattern{
		matcher:  g,
		negated:  negated,
		hasSlash: strings.Contains(pattern, "/"),
	})
}

// IsIgnored reports whether the relative (slash-separated) path matches the
// ignore rules. Every path segment is tested so that ignoring a directory
// ignores its contents.
func (ic *IgnoreChecker) IsIgnored(path string) bool {
	path = filepath.ToSlash(path)
	segments := strings.Split(path, "/")

	ignored := false
	for _, p := range ic.patterns {
		matched := false
		if p.hasSlash {
			matched = p.matcher.Match(path)
		} else {
			for _, seg := range segments {
				if p.matcher.Match(seg) {
					matched = true
					break
				}
			}
		}
		if matched {
			ignored = !p.negated
		}
	}
	return ignored
}
