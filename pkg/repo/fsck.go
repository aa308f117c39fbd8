package repo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fitvcs/fit/pkg/object"
)

// Fsck re-reads every object reachable from the repository's live roots
// and reports missing and corrupt objects. Roots are all refs, a detached
// HEAD, stash snapshots, and blobs staged in the index. Nothing is
// modified or deleted.
func (r *Repo) Fsck() (*object.VerifyReport, error) {
	rootSet := make(map[object.Hash]struct{})

	refs, err := r.ListRefs("")
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	for _, h := range refs {
		rootSet[h] = struct{}{}
	}

	// A detached HEAD is not under refs/ but still pins its history.
	if head, err := r.Head(); err == nil && !strings.HasPrefix(head, "refs/") && head != "" {
		rootSet[object.Hash(head)] = struct{}{}
	}

	stash, err := r.readStash()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	for _, e := range stash {
		rootSet[e.WorkTree] = struct{}{}
		rootSet[e.IndexTree] = struct{}{}
		rootSet[e.Parent] = struct{}{}
	}

	// Staged blobs are live before their first commit.
	stg, err := r.ReadStaging()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	for _, entry := range stg.Entries {
		rootSet[entry.BlobHash] = struct{}{}
	}

	roots := make([]object.Hash, 0, len(rootSet))
	for h := range rootSet {
		roots = append(roots, h)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	return r.Store.VerifyReachable(roots), nil
}
