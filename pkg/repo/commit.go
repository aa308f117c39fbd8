package repo

import (
	"fmt"
	"strings"
	"time"

	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/trace"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// Commit creates a new commit from the current staging area.
func (r *Repo) Commit(message, author string) (object.Hash, error) {
	return r.CommitWithSigner(message, author, nil)
}

// CommitWithSigner creates a new commit and signs it when signer is provided.
//
//  1. Read staging and build its tree.
//  2. Resolve HEAD for the parent commit (absent on the first commit).
//  3. Refuse with ErrNothingToCommit when the new tree equals the parent
//     commit's tree, or when there is no parent and nothing staged.
//  4. Write the commit object, signing the canonical payload first when
//     requested.
//  5. Advance the branch tip (or detached HEAD) with a compare-and-swap
//     against the parent hash.
func (r *Repo) CommitWithSigner(message, author string, signer CommitSigner) (object.Hash, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	// Resolve HEAD to get the parent. Resolution failing means this is
	// the first commit.
	var parents []object.Hash
	parentHash, err := r.ResolveRef("HEAD")
	if err == nil && parentHash != "" {
		parents = append(parents, parentHash)
	} else {
		parentHash = ""
	}

	if len(parents) == 0 && len(stg.Entries) == 0 {
		return "", fmt.Errorf("commit: %w", ErrNothingToCommit)
	}

	treeHash, err := r.BuildTree(stg)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	// Content no-op guard: a tree identical to the parent's would commit
	// nothing.
	if len(parents) > 0 {
		parent, err := r.Store.ReadCommit(parents[0])
		if err != nil {
			return "", fmt.Errorf("commit: read parent %s: %w", parents[0], err)
		}
		if parent.TreeHash == treeHash {
			return "", fmt.Errorf("commit: %w", ErrNothingToCommit)
		}
	}

	commitObj := &object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    author,
		Timestamp: time.Now().Unix(),
		Message:   message,
	}
	if signer != nil {
		payload := object.CommitSigningPayload(commitObj)
		signature, err := signer(payload)
		if err != nil {
			return "", fmt.Errorf("commit: sign commit: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	// Advance HEAD. A CAS against the parent hash (empty on the first
	// commit) catches a concurrent commit to the same branch.
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("commit: read HEAD: %w", err)
	}

	reason := "commit: " + firstLine(message)
	if strings.HasPrefix(head, "refs/") {
		if err := r.updateRefWithReason(head, commitHash, reason, parentHash); err != nil {
			return "", fmt.Errorf("commit: update ref %q: %w", head, err)
		}
	} else {
		if err := r.updateRefWithReason("HEAD", commitHash, reason, object.Hash(strings.TrimSpace(head))); err != nil {
			return "", fmt.Errorf("commit: update detached HEAD: %w", err)
		}
	}

	trace.Debug().
		Str("commit", string(commitHash)).
		Str("tree", string(treeHash)).
		Msg("commit created")
	return commitHash, nil
}

// CommitWalker lazily iterates a first-parent commit chain, newest first.
type CommitWalker struct {
	r    *Repo
	next object.Hash
}

// WalkCommits returns a walker positioned at start.
func (r *Repo) WalkCommits(start object.Hash) *CommitWalker {
	return &CommitWalker{r: r, next: start}
}

// Next returns the next commit and its hash. After the root commit it
// returns (nil, "", nil). A missing commit object mid-chain is reported as
// an error wrapping object.ErrObjectNotFound, never as a short history.
func (w *CommitWalker) Next() (*object.CommitObj, object.Hash, error) {
	if w.next == "" {
		return nil, "", nil
	}
	h := w.next
	c, err := w.r.Store.ReadCommit(h)
	if err != nil {
		return nil, "", fmt.Errorf("walk commit %s: %w", h, err)
	}
	if len(c.Parents) > 0 {
		w.next = c.Parents[0]
	} else {
		w.next = ""
	}
	return c, h, nil
}

// LogEntry pairs a commit with its own hash for display.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks the commit history starting from the given hash, following
// first-parent links, returning up to limit commits newest first. A limit
// of zero or less means unlimited.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	w := r.WalkCommits(start)

	for limit <= 0 || len(entries) < limit {
		c, h, err := w.Next()
		if err != nil {
			return nil, fmt.Errorf("log: %w", err)
		}
		if c == nil {
			break
		}
		entries = append(entries, LogEntry{Hash: h, Commit: c})
	}
	return entries, nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
