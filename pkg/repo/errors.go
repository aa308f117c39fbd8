package repo

import "errors"

// Sentinel errors returned by repository operations. Each maps to a stable
// process exit code in cmd/fit; callers match them with errors.Is.
var (
	// ErrRepositoryNotInitialized is returned when no .fit directory is
	// found in the working directory or any parent.
	ErrRepositoryNotInitialized = errors.New("not a fit repository")

	// ErrPathNotFound is returned when an add argument names a path that
	// does not exist in the working tree.
	ErrPathNotFound = errors.New("path not found")

	// ErrPathNotStaged is returned when an rm or reset argument matches no
	// index entry.
	ErrPathNotStaged = errors.New("path not staged")

	// ErrNothingToCommit is returned when the staged tree is identical to
	// the HEAD commit's tree.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrBranchExists is returned by CreateBranch when the name is taken.
	ErrBranchExists = errors.New("branch already exists")

	// ErrBranchNotFound is returned when a named branch has no ref file.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrCannotDeleteCurrentBranch is returned when deleting the branch
	// an attached HEAD points at.
	ErrCannotDeleteCurrentBranch = errors.New("cannot delete current branch")

	// ErrUncommittedChanges is returned by checkout and reset when the
	// index or working tree differ from HEAD and force is not set.
	ErrUncommittedChanges = errors.New("uncommitted changes")

	// ErrStashEmpty is returned by stash pop when the stack is empty.
	ErrStashEmpty = errors.New("stash is empty")

	// ErrStashConflict is returned by stash pop when HEAD has moved since
	// the push and a stash-touched path changed underneath it. The stack
	// is left intact.
	ErrStashConflict = errors.New("stash conflicts with HEAD")

	// ErrNothingToStash is returned by stash push when index and working
	// tree both match HEAD.
	ErrNothingToStash = errors.New("nothing to stash")

	// ErrConcurrentUpdate is returned when a ref compare-and-swap loses to
	// a concurrent writer: the ref value changed between read and write.
	ErrConcurrentUpdate = errors.New("concurrent ref update")

	// ErrRefLockTimeout is returned when the ref lockfile cannot be
	// acquired within the wait limit. Unlike ErrConcurrentUpdate, nothing
	// is known about the ref value — a stale lockfile from a crashed
	// process produces this too.
	ErrRefLockTimeout = errors.New("ref lock timeout")
)
