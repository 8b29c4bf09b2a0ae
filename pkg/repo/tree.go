package repo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilnvcs/kiln/pkg/object"
)

// TreeFileEntry is a flattened view of one file in a tree: full repo-relative
// path plus the blob hash and mode.
type TreeFileEntry struct {
	Path string
	Hash object.Hash
	Mode string
}

// BuildTree writes the tree hierarchy described by the index's stage-0
// entries to the object store and returns the root tree hash. An empty index
// produces an empty tree object.
func (r *Repo) BuildTree(idx *Index) (object.Hash, error) {
	type dirNode struct {
		files map[string]*IndexEntry
		dirs  map[string]*dirNode
	}
	newNode := func() *dirNode {
		return &dirNode{files: map[string]*IndexEntry{}, dirs: map[string]*dirNode{}}
	}

	root := newNode()
	for _, e := range idx.Entries() {
		if e.Stage != StageNormal {
			continue
		}
		parts := strings.Split(e.Path, "/")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node.dirs[part]
			if !ok {
				child = newNode()
				node.dirs[part] = child
			}
			node = child
		}
		node.files[parts[len(parts)-1]] = e
	}

	var writeNode func(*dirNode) (object.Hash, error)
	writeNode = func(n *dirNode) (object.Hash, error) {
		tree := &object.TreeObj{}

		names := make([]string, 0, len(n.dirs))
		for name := range n.dirs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			hash, err := writeNode(n.dirs[name])
			if err != nil {
				return "", err
			}
			tree.Entries = append(tree.Entries, object.TreeEntry{
				Name: name,
				Mode: object.TreeModeDir,
				Hash: hash,
			})
		}

		names = names[:0]
		for name := range n.files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			e := n.files[name]
			tree.Entries = append(tree.Entries, object.TreeEntry{
				Name: name,
				Mode: normalizeFileMode(e.Mode),
				Hash: e.Hash,
			})
		}

		return r.Store.WriteTree(tree)
	}

	hash, err := writeNode(root)
	if err != nil {
		return "", fmt.Errorf("build tree: %w", err)
	}
	return hash, nil
}

// FlattenTree walks a tree recursively and returns every file it reaches,
// sorted by path.
func (r *Repo) FlattenTree(treeHash object.Hash) ([]TreeFileEntry, error) {
	var out []TreeFileEntry

	var walk func(hash object.Hash, prefix string) error
	walk = func(hash object.Hash, prefix string) error {
		tree, err := r.Store.ReadTree(hash)
		if err != nil {
			return err
		}
		for _, e := range tree.Entries {
			path := e.Name
			if prefix != "" {
				path = prefix + "/" + e.Name
			}
			if e.IsDir() {
				if err := walk(e.Hash, path); err != nil {
					return err
				}
				continue
			}
			out = append(out, TreeFileEntry{Path: path, Hash: e.Hash, Mode: e.Mode})
		}
		return nil
	}

	if err := walk(treeHash, ""); err != nil {
		return nil, fmt.Errorf("flatten tree %s: %w", treeHash.Short(), err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// treeFileMap indexes FlattenTree output by path.
func (r *Repo) treeFileMap(treeHash object.Hash) (map[string]TreeFileEntry, error) {
	if treeHash == "" {
		return map[string]TreeFileEntry{}, nil
	}
	entries, err := r.FlattenTree(treeHash)
	if err != nil {
		return nil, err
	}
	m := make(map[string]TreeFileEntry, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m, nil
}
