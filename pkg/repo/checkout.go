package repo

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/trace"
)

// Checkout switches the working directory to the state of target. The
// target can be a branch name, a tag name, or a (possibly abbreviated)
// commit hash; non-branch targets leave HEAD detached.
//
// Algorithm:
//  1. Refuse with ErrUncommittedChanges if the index or worktree differ
//     from HEAD, unless force is set.
//  2. Resolve the target to a commit (peeling annotated tags).
//  3. Materialize the commit's tree (write-then-delete) and rebuild the
//     index from it.
//  4. Rewrite HEAD: symbolic ref for a branch, raw hash otherwise.
func (r *Repo) Checkout(target string, force bool) error {
	if !force {
		if err := r.ensureClean(); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
	}

	oldHead, _ := r.ResolveRef("HEAD")

	targetHash, commit, isBranch, err := r.resolveCommitRevision(target)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if err := r.Materialize(commit.TreeHash); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	headPath := filepath.Join(r.FitDir, "HEAD")
	var headContent string
	if isBranch {
		headContent = "ref: refs/heads/" + target + "\n"
	} else {
		headContent = string(targetHash) + "\n"
	}
	if err := writeFileAtomic(headPath, []byte(headContent), 0o644); err != nil {
		return fmt.Errorf("checkout: update HEAD: %w", err)
	}

	if err := r.appendReflog("HEAD", oldHead, targetHash, "checkout: moving to "+target); err != nil {
		return &RefUpdateReflogError{Ref: "HEAD", OldHash: oldHead, NewHash: targetHash, Err: err}
	}

	trace.Debug().
		Str("target", target).
		Str("commit", string(targetHash)).
		Bool("detached", !isBranch).
		Msg("checkout complete")
	return nil
}

// CheckoutNew creates a branch at the current HEAD commit and attaches
// HEAD to it. The worktree already matches HEAD, so nothing is
// materialized.
func (r *Repo) CheckoutNew(name string) error {
	target, err := r.ResolveRef("HEAD")
	if err != nil {
		return fmt.Errorf("checkout new branch: resolve HEAD: %w", err)
	}
	if err := r.CreateBranch(name, target); err != nil {
		return fmt.Errorf("checkout new branch: %w", err)
	}

	headPath := filepath.Join(r.FitDir, "HEAD")
	if err := writeFileAtomic(headPath, []byte("ref: refs/heads/"+name+"\n"), 0o644); err != nil {
		return fmt.Errorf("checkout new branch: update HEAD: %w", err)
	}
	return nil
}

// resolveRevision resolves a user-supplied revision to a commit hash and
// reports whether it named a branch. Branch names win over tags, tags over
// raw hashes; abbreviated hashes are expanded by the store. Annotated tags
// are peeled to their target. A name that is neither a branch nor a tag
// and cannot be a hash prefix fails with ErrBranchNotFound: the user typed
// a ref name, not a digest.
func (r *Repo) resolveRevision(rev string) (object.Hash, bool, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return "", false, fmt.Errorf("revision is required")
	}

	if h, err := r.ResolveRef("refs/heads/" + rev); err == nil {
		return h, true, nil
	}
	if h, err := r.ResolveRef("refs/tags/" + rev); err == nil {
		peeled, err := r.peelTag(h)
		if err != nil {
			return "", false, fmt.Errorf("resolve %q: %w", rev, err)
		}
		return peeled, false, nil
	}

	if !looksLikeHashPrefix(rev) {
		return "", false, fmt.Errorf("resolve %q: %w", rev, ErrBranchNotFound)
	}
	h, err := r.Store.ResolvePrefix(rev)
	if err != nil {
		return "", false, fmt.Errorf("resolve %q: %w", rev, err)
	}
	return h, false, nil
}

// resolveCommitRevision resolves rev and loads the commit it names. A
// revision that resolves to a blob or tree fails with ErrObjectNotFound:
// only commits can be checkout and reset targets.
func (r *Repo) resolveCommitRevision(rev string) (object.Hash, *object.CommitObj, bool, error) {
	h, isBranch, err := r.resolveRevision(rev)
	if err != nil {
		return "", nil, false, err
	}
	objType, _, err := r.Store.Read(h)
	if err != nil {
		return "", nil, false, err
	}
	if objType != object.TypeCommit {
		return "", nil, false, fmt.Errorf("%q names a %s, not a commit: %w", rev, objType, object.ErrObjectNotFound)
	}
	commit, err := r.Store.ReadCommit(h)
	if err != nil {
		return "", nil, false, err
	}
	return h, commit, isBranch, nil
}

// looksLikeHashPrefix reports whether rev could abbreviate an object hash:
// 4 to 40 hex characters.
func looksLikeHashPrefix(rev string) bool {
	if len(rev) < 4 || len(rev) > 40 {
		return false
	}
	for i := 0; i < len(rev); i++ {
		c := rev[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// peelTag follows tag objects until it reaches a non-tag object.
func (r *Repo) peelTag(h object.Hash) (object.Hash, error) {
	for {
		objType, _, err := r.Store.Read(h)
		if err != nil {
			return "", err
		}
		if objType != object.TypeTag {
			return h, nil
		}
		tag, err := r.Store.ReadTag(h)
		if err != nil {
			return "", err
		}
		h = tag.TargetHash
	}
}

// ensureClean checks that the working tree has no uncommitted changes.
// Untracked files do not block a checkout; they are never overwritten or
// deleted by materialize.
func (r *Repo) ensureClean() error {
	report, err := r.Status()
	if err != nil {
		return fmt.Errorf("check status: %w", err)
	}
	if !report.Clean() {
		return ErrUncommittedChanges
	}
	return nil
}
