package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fitvcs/fit/pkg/diff"
	"github.com/fitvcs/fit/pkg/object"
)

// StatusReport describes the repository state as three comparisons:
// HEAD tree vs index (Staged), index vs working tree (Unstaged), and the
// working-tree paths the index does not know about (Untracked).
type StatusReport struct {
	Branch     string      // current branch name, empty when detached
	Detached   bool        // HEAD holds a raw commit hash
	HeadCommit object.Hash // resolved HEAD commit, empty before the first commit

	Staged    []diff.PathChange
	Unstaged  []diff.PathChange
	Untracked []string
}

// Clean reports whether index and working tree both match HEAD. Untracked
// files do not count against cleanliness.
func (s *StatusReport) Clean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0
}

// Status computes the working tree status for the repository.
//
// Algorithm:
//  1. Flatten the HEAD commit's tree (empty before the first commit).
//  2. Read the staging index.
//  3. Walk the working directory (skipping ignored paths), hashing staged
//     files whose stat signature no longer matches the index.
//  4. Tree-diff HEAD vs index (staged changes) and index vs working tree
//     (unstaged changes); everything on disk but unknown to the index is
//     untracked.
func (r *Repo) Status() (*StatusReport, error) {
	report := &StatusReport{}

	branch, err := r.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	report.Branch = branch
	report.Detached = branch == ""
	if head, err := r.ResolveRef("HEAD"); err == nil {
		report.HeadCommit = head
	}

	stg, err := r.ReadStaging()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	indexMap := stg.HashMap()
	headMap, err := r.headTreeHashes()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	workMap := make(map[string]object.Hash, len(indexMap))
	var untracked []string

	ic := NewIgnoreChecker(r.RootDir)
	err = filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		// Skip the root directory itself.
		if rel == "." {
			return nil
		}

		// Skip ignored directories entirely.
		if ic.IsIgnored(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		se, staged := stg.Entries[rel]
		if !staged {
			untracked = append(untracked, rel)
			return nil
		}

		// Stat signature match proves the staged content is intact;
		// otherwise hash the file.
		info, err := d.Info()
		if err != nil {
			return err
		}
		if statMatchesEntry(se, info) {
			workMap[rel] = se.BlobHash
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %q: %w", rel, err)
		}
		workMap[rel] = object.HashObject(object.TypeBlob, content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("status: walk: %w", err)
	}

	// Staged files missing from the walk never enter workMap, so the
	// index-vs-worktree diff reports them as deleted.
	report.Staged = diff.TreeDiff(headMap, indexMap)
	report.Unstaged = diff.TreeDiff(indexMap, workMap)
	sort.Strings(untracked)
	report.Untracked = untracked

	return report, nil
}

// headTreeHashes flattens the HEAD commit's tree into path → blob hash.
// A repository without commits yields an empty map. Only an unresolvable
// HEAD counts as "no commits": a HEAD that resolves but whose commit or
// tree cannot be loaded is corruption and must surface as an error, never
// as an empty tree that would make every tracked file look newly added.
func (r *Repo) headTreeHashes() (map[string]object.Hash, error) {
	result := make(map[string]object.Hash)

	headHash, err := r.ResolveRef("HEAD")
	if err != nil || headHash == "" {
		return result, nil
	}
	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit %s: %w", headHash.Short(), err)
	}
	entries, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("flatten HEAD tree %s: %w", commit.TreeHash.Short(), err)
	}
	for _, e := range entries {
		result[e.Path] = e.BlobHash
	}
	return result, nil
}

const statusRacyWindow = 2 * time.Second

// statMatchesEntry reports whether a stat signature proves the worktree
// file still holds the staged content. Files modified within the racy
// window are rehashed: a same-size edit right after add could otherwise
// slip past stat-only detection on filesystems with coarse timestamps.
func statMatchesEntry(se *StagingEntry, info os.FileInfo) bool {
	if se == nil {
		return false
	}
	if se.Size != info.Size() {
		return false
	}
	if se.ModTime != info.ModTime().UnixNano() {
		return false
	}
	if time.Since(info.ModTime()) < statusRacyWindow {
		return false
	}
	return true
}
