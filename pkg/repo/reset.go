package repo

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/trace"
)

// ResetMode selects how much state ResetTo rewrites besides the branch
// pointer.
type ResetMode int

const (
	// ResetSoft moves the branch pointer only.
	ResetSoft ResetMode = iota
	// ResetMixed also reloads the index from the target commit's tree.
	// This is the default.
	ResetMixed
	// ResetHard additionally rewrites the working tree.
	ResetHard
)

func (m ResetMode) String() string {
	switch m {
	case ResetSoft:
		return "soft"
	case ResetMixed:
		return "mixed"
	case ResetHard:
		return "hard"
	default:
		return fmt.Sprintf("ResetMode(%d)", int(m))
	}
}

// ResetTo moves the current branch tip (or detached HEAD) to the given
// revision. Soft stops there; mixed reloads the index from the target
// commit's tree with cleared stat signatures, so status re-hashes every
// path; hard also materializes the tree over the working directory.
func (r *Repo) ResetTo(rev string, mode ResetMode) error {
	targetHash, commit, _, err := r.resolveCommitRevision(rev)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return fmt.Errorf("reset: read HEAD: %w", err)
	}
	oldHash, _ := r.ResolveRef("HEAD")

	reason := "reset: moving to " + rev
	if strings.HasPrefix(head, "refs/") {
		if err := r.updateRefWithReason(head, targetHash, reason, oldHash); err != nil {
			return fmt.Errorf("reset: update ref %q: %w", head, err)
		}
	} else {
		if err := r.updateRefWithReason("HEAD", targetHash, reason, oldHash); err != nil {
			return fmt.Errorf("reset: update detached HEAD: %w", err)
		}
	}

	switch mode {
	case ResetSoft:
		// Pointer only.
	case ResetMixed:
		if err := r.loadIndexFromTree(commit.TreeHash); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	case ResetHard:
		if err := r.Materialize(commit.TreeHash); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	default:
		return fmt.Errorf("reset: unknown mode %v", mode)
	}

	trace.Debug().
		Str("commit", string(targetHash)).
		Str("mode", mode.String()).
		Msg("reset complete")
	return nil
}

// loadIndexFromTree replaces the staging area with the contents of a
// stored tree. Stat signatures are cleared so the next status hash-checks
// each path against the worktree instead of trusting stale metadata.
func (r *Repo) loadIndexFromTree(treeHash object.Hash) error {
	entries, err := r.FlattenTree(treeHash)
	if err != nil {
		return fmt.Errorf("load index from tree: %w", err)
	}

	stg := &Staging{Entries: make(map[string]*StagingEntry, len(entries))}
	for _, e := range entries {
		stg.Entries[e.Path] = &StagingEntry{
			Path:     e.Path,
			BlobHash: e.BlobHash,
			Mode:     normalizeFileMode(e.Mode),
			ModTime:  0,
			Size:     -1,
		}
	}
	return r.WriteStaging(stg)
}

// ResetPaths unstages paths by restoring index entries to their HEAD
// versions.
//
// Behavior:
// - If a path exists in HEAD, its staging entry is reset to HEAD's blob/mode.
// - If a path does not exist in HEAD, its staging entry is removed.
// - If no paths are provided, the entire index is reset to HEAD.
//
// ResetPaths does not modify the working tree.
func (r *Repo) ResetPaths(paths []string) error {
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	headEntries, err := r.headTreeFileEntryMap()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	targets, err := r.resolveResetTargets(paths, stg, headEntries)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	for _, p := range targets {
		if headEntry, ok := headEntries[p]; ok {
			// Force status to hash-check this path after reset to avoid
			// stale stat-only matches when worktree content differs from
			// HEAD.
			stg.Entries[p] = &StagingEntry{
				Path:     p,
				BlobHash: headEntry.BlobHash,
				Mode:     normalizeFileMode(headEntry.Mode),
				ModTime:  0,
				Size:     -1,
			}
			continue
		}
		delete(stg.Entries, p)
	}

	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

func (r *Repo) headTreeFileEntryMap() (map[string]TreeFileEntry, error) {
	result := make(map[string]TreeFileEntry)

	headHash, err := r.ResolveRef("HEAD")
	if err != nil {
		return result, nil
	}
	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	entries, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("flatten HEAD tree: %w", err)
	}
	for _, e := range entries {
		result[e.Path] = e
	}
	return result, nil
}

func (r *Repo) resolveResetTargets(paths []string, stg *Staging, head map[string]TreeFileEntry) ([]string, error) {
	all := make(map[string]struct{}, len(stg.Entries)+len(head))
	for p := range stg.Entries {
		all[p] = struct{}{}
	}
	for p := range head {
		all[p] = struct{}{}
	}

	if len(paths) == 0 {
		return sortedPathSet(all), nil
	}

	targets := make(map[string]struct{})
	for _, raw := range paths {
		rel, err := r.repoRelPath(raw)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(filepath.Clean(strings.TrimSpace(rel)))
		if rel == "" || rel == "." {
			for p := range all {
				targets[p] = struct{}{}
			}
			continue
		}

		matched := false
		if _, ok := all[rel]; ok {
			targets[rel] = struct{}{}
			matched = true
		}

		prefix := rel + "/"
		for p := range all {
			if strings.HasPrefix(p, prefix) {
				targets[p] = struct{}{}
				matched = true
			}
		}

		if !matched {
			return nil, fmt.Errorf("%q: %w", raw, ErrPathNotStaged)
		}
	}

	return sortedPathSet(targets), nil
}

func sortedPathSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
