package object

// Hash is a 64-character hex-encoded SHA-256 digest.
type Hash string

// Short returns an abbreviated form of the hash for display.
func (h Hash) Short() string {
	if len(h) < 8 {
		return string(h)
	}
	return string(h[:8])
}

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object. Mode distinguishes regular files,
// executables, and subtrees; Hash refers to a Blob or a nested Tree
// accordingly.
type TreeEntry struct {
	Name string
	Mode string
	Hash Hash
}

// IsDir reports whether the entry refers to a nested tree.
func (e TreeEntry) IsDir() bool {
	return e.Mode == TreeModeDir
}

// TreeObj holds a list of tree entries, sorted by Name.
type TreeObj struct {
	Entries []TreeEntry
}

// CommitObj represents a commit pointing to a tree with metadata. Parents has
// zero entries for a root commit, one for a normal commit, and two or more
// for a merge commit.
type CommitObj struct {
	TreeHash    Hash
	Parents     []Hash
	AuthorName  string
	AuthorEmail string
	Timestamp   int64
	Timezone    string
	Signature   string
	Message     string
}
