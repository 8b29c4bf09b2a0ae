package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kilnvcs/kiln/pkg/object"
)

var (
	// ErrRefCASMismatch reports a compare-and-swap ref update that found an
	// unexpected current value.
	ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")

	// ErrBranchExists reports an attempt to create a branch that is already
	// present.
	ErrBranchExists = errors.New("branch already exists")

	// ErrBranchNotFound reports a reference to a branch that does not exist.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrBranchCheckedOut reports an attempt to delete the branch HEAD
	// currently points at.
	ErrBranchCheckedOut = errors.New("cannot delete checked-out branch")

	// ErrMergeInProgress reports an attempt to start a merge while another
	// merge is unresolved.
	ErrMergeInProgress = errors.New("merge already in progress")

	// ErrNoMergeInProgress reports a continue/abort/resolve call with no
	// active merge.
	ErrNoMergeInProgress = errors.New("no merge in progress")

	// ErrDetachedHead reports an operation that requires HEAD to point at a
	// branch.
	ErrDetachedHead = errors.New("HEAD is detached")

	// ErrNoCommits reports an operation that requires at least one commit.
	ErrNoCommits = errors.New("no commits yet")

	// ErrNoSigningKey reports a signing request with no usable SSH key.
	ErrNoSigningKey = errors.New("no signing key found")
)

// UnresolvedConflictsError reports an attempt to complete a merge while
// conflicted paths remain, carrying the offending paths.
type UnresolvedConflictsError struct {
	Paths []string
}

func (e *UnresolvedConflictsError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("unresolved conflicts in %d file(s): %s",
		len(e.Paths), strings.Join(e.Paths, ", "))
}

// Remediation returns human-readable corrective actions for a known engine
// error kind, for display by CLI or API layers. Unknown errors yield nil.
func Remediation(err error) []string {
	var unresolved *UnresolvedConflictsError
	switch {
	case errors.As(err, &unresolved):
		return []string{
			"edit the conflicted files and remove the conflict markers",
			"mark each file resolved with: kiln resolve <path>",
			"then finish with: kiln merge --continue",
		}
	case errors.Is(err, ErrMergeInProgress):
		return []string{
			"finish the current merge with: kiln merge --continue",
			"or discard it with: kiln merge --abort",
		}
	case errors.Is(err, ErrNoMergeInProgress):
		return []string{"start a merge first with: kiln merge <branch>"}
	case errors.Is(err, ErrDetachedHead):
		return []string{"switch to a branch first with: kiln checkout <branch>"}
	case errors.Is(err, ErrNoCommits):
		return []string{"create an initial commit with: kiln add + kiln commit"}
	case errors.Is(err, ErrBranchExists):
		return []string{"pick a different branch name, or delete the existing branch"}
	case errors.Is(err, ErrBranchNotFound):
		return []string{"list available branches with: kiln branch"}
	case errors.Is(err, ErrBranchCheckedOut):
		return []string{"switch to another branch before deleting this one"}
	case errors.Is(err, ErrNoSigningKey):
		return []string{
			"set a key with: kiln config user.signing_key ~/.ssh/<key>",
			"or pass one explicitly with: kiln commit --sign --key <path>",
		}
	case errors.Is(err, object.ErrNotFound):
		return []string{"the object graph is missing data; verify the repository was copied completely"}
	case errors.Is(err, object.ErrCorrupt):
		return []string{"an object failed to decode; restore the repository from a backup"}
	default:
		return nil
	}
}
