package repo

import (
	"errors"
	"fmt"

	"github.com/kilnvcs/kiln/pkg/object"
)

// ParentLookup returns the parent hashes of a commit. FindMergeBase uses it
// so ancestry can be computed over any commit graph, not just one backed by
// the object store.
type ParentLookup func(object.Hash) ([]object.Hash, error)

// FindMergeBase finds a common ancestor of a and b via breadth-first search
// over both ancestries, expanding the frontiers in alternating steps. The
// first hash seen from both sides is returned. A missing common ancestor
// (disjoint histories) yields "".
func FindMergeBase(a, b object.Hash, parents ParentLookup) (object.Hash, error) {
	if a == "" || b == "" {
		return "", nil
	}
	if a == b {
		return a, nil
	}

	visitedA := map[object.Hash]bool{a: true}
	visitedB := map[object.Hash]bool{b: true}
	queueA := []object.Hash{a}
	queueB := []object.Hash{b}

	step := func(queue []object.Hash, visited, other map[object.Hash]bool) ([]object.Hash, object.Hash, error) {
		if len(queue) == 0 {
			return nil, "", nil
		}
		cur := queue[0]
		queue = queue[1:]
		if other[cur] {
			return queue, cur, nil
		}
		ps, err := parents(cur)
		if err != nil {
			return nil, "", err
		}
		for _, p := range ps {
			if !visited[p] {
				visited[p] = true
				if other[p] {
					return queue, p, nil
				}
				queue = append(queue, p)
			}
		}
		return queue, "", nil
	}

	for len(queueA) > 0 || len(queueB) > 0 {
		var base object.Hash
		var err error

		queueA, base, err = step(queueA, visitedA, visitedB)
		if err != nil {
			return "", fmt.Errorf("merge base: %w", err)
		}
		if base != "" {
			return base, nil
		}

		queueB, base, err = step(queueB, visitedB, visitedA)
		if err != nil {
			return "", fmt.Errorf("merge base: %w", err)
		}
		if base != "" {
			return base, nil
		}
	}
	return "", nil
}

// storeParents adapts the object store as a ParentLookup.
func (r *Repo) storeParents() ParentLookup {
	return func(h object.Hash) ([]object.Hash, error) {
		commit, err := r.Store.ReadCommit(h)
		if err != nil {
			return nil, err
		}
		return commit.Parents, nil
	}
}

// MergeBase finds the common ancestor of two commits in this repository.
func (r *Repo) MergeBase(a, b object.Hash) (object.Hash, error) {
	return FindMergeBase(a, b, r.storeParents())
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (r *Repo) IsAncestor(ancestor, descendant object.Hash) (bool, error) {
	if ancestor == "" || descendant == "" {
		return false, nil
	}
	parents := r.storeParents()

	visited := map[object.Hash]bool{descendant: true}
	queue := []object.Hash{descendant}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == ancestor {
			return true, nil
		}
		ps, err := parents(cur)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				continue
			}
			return false, err
		}
		for _, p := range ps {
			if !visited[p] {
				visited[p] = true
				queue = append(queue, p)
			}
		}
	}
	return false, nil
}
