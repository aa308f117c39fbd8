package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/trace"
)

// StashEntry is one saved snapshot of uncommitted state. WorkTree and
// IndexTree are tree hashes built from the working directory and the
// staging area at push time; Parent is the commit HEAD pointed at.
type StashEntry struct {
	Message   string      `json:"message"`
	WorkTree  object.Hash `json:"work_tree"`
	IndexTree object.Hash `json:"index_tree"`
	Parent    object.Hash `json:"parent_commit"`
	Branch    string      `json:"branch,omitempty"`
	CreatedAt int64       `json:"created_at"`
}

func (r *Repo) stashPath() string {
	return filepath.Join(r.FitDir, "stash")
}

// readStash loads the stash stack, newest first. A missing file is an
// empty stack.
func (r *Repo) readStash() ([]StashEntry, error) {
	data, err := os.ReadFile(r.stashPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stash: %w", err)
	}
	var entries []StashEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("read stash: unmarshal: %w", err)
	}
	return entries, nil
}

// writeStash atomically persists the stash stack.
func (r *Repo) writeStash(entries []StashEntry) error {
	if entries == nil {
		entries = []StashEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("write stash: marshal: %w", err)
	}

	if err := writeFileAtomic(r.stashPath(), data, 0o644); err != nil {
		return fmt.Errorf("write stash: %w", err)
	}
	return nil
}

// StashList returns the stash stack, newest first.
func (r *Repo) StashList() ([]StashEntry, error) {
	return r.readStash()
}

// StashPush snapshots the staging area and the working-tree state of every
// staged path as two trees, pushes them onto the stash stack, and restores
// the worktree and index to HEAD. Untracked files are left alone. Fails
// with ErrNothingToStash when both trees already equal HEAD's tree.
//
// The stack is persisted before the worktree is rewritten, so a failure
// during the restore never loses the snapshot.
func (r *Repo) StashPush(message string) (*StashEntry, error) {
	parentHash, err := r.ResolveRef("HEAD")
	if err != nil || parentHash == "" {
		return nil, fmt.Errorf("stash push: repository has no commits")
	}
	parent, err := r.Store.ReadCommit(parentHash)
	if err != nil {
		return nil, fmt.Errorf("stash push: read HEAD commit: %w", err)
	}

	stg, err := r.ReadStaging()
	if err != nil {
		return nil, fmt.Errorf("stash push: %w", err)
	}
	indexTree, err := r.BuildTree(stg)
	if err != nil {
		return nil, fmt.Errorf("stash push: build index tree: %w", err)
	}

	snap, err := r.worktreeSnapshot(stg)
	if err != nil {
		return nil, fmt.Errorf("stash push: %w", err)
	}
	workTree, err := r.BuildTree(snap)
	if err != nil {
		return nil, fmt.Errorf("stash push: build worktree tree: %w", err)
	}

	if indexTree == parent.TreeHash && workTree == parent.TreeHash {
		return nil, fmt.Errorf("stash push: %w", ErrNothingToStash)
	}

	branch, _ := r.CurrentBranch()
	entry := StashEntry{
		Message:   message,
		WorkTree:  workTree,
		IndexTree: indexTree,
		Parent:    parentHash,
		Branch:    branch,
		CreatedAt: time.Now().Unix(),
	}

	stack, err := r.readStash()
	if err != nil {
		return nil, fmt.Errorf("stash push: %w", err)
	}
	stack = append([]StashEntry{entry}, stack...)
	if err := r.writeStash(stack); err != nil {
		return nil, fmt.Errorf("stash push: %w", err)
	}

	if err := r.Materialize(parent.TreeHash); err != nil {
		return nil, fmt.Errorf("stash push: restore HEAD state: %w", err)
	}

	trace.Debug().
		Str("work_tree", string(workTree)).
		Str("index_tree", string(indexTree)).
		Msg("stash pushed")
	return &entry, nil
}

// worktreeSnapshot captures the on-disk state of every staged path as a
// staging table, writing blobs for current file contents. Paths deleted
// from the worktree are omitted.
func (r *Repo) worktreeSnapshot(stg *Staging) (*Staging, error) {
	snap := &Staging{Entries: make(map[string]*StagingEntry, len(stg.Entries))}
	for path := range stg.Entries {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
		info, err := os.Stat(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %q: %w", path, err)
		}
		content, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
		if err != nil {
			return nil, fmt.Errorf("write blob %q: %w", path, err)
		}
		snap.Entries[path] = &StagingEntry{
			Path:     path,
			BlobHash: blobHash,
			Mode:     modeFromFileInfo(info),
			ModTime:  info.ModTime().UnixNano(),
			Size:     info.Size(),
		}
	}
	return snap, nil
}

// StashPop applies the newest stash entry and removes it from the stack.
//
// The touched set is every path whose content differs between the stash's
// parent tree and its work or index tree. When HEAD no longer points at
// the stash parent and a touched path also changed between the parent
// tree and the current HEAD tree, the pop fails with ErrStashConflict and
// the stack is left intact: applying would silently overwrite committed
// history. Untouched paths always keep their current-HEAD content.
//
// The stack is rewritten only after the apply succeeds.
func (r *Repo) StashPop() (*StashEntry, error) {
	stack, err := r.readStash()
	if err != nil {
		return nil, fmt.Errorf("stash pop: %w", err)
	}
	if len(stack) == 0 {
		return nil, fmt.Errorf("stash pop: %w", ErrStashEmpty)
	}
	entry := stack[0]

	parent, err := r.Store.ReadCommit(entry.Parent)
	if err != nil {
		return nil, fmt.Errorf("stash pop: read parent commit: %w", err)
	}
	parentMap, err := r.treeFileMap(parent.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("stash pop: %w", err)
	}
	workMap, err := r.treeFileMap(entry.WorkTree)
	if err != nil {
		return nil, fmt.Errorf("stash pop: %w", err)
	}
	indexMap, err := r.treeFileMap(entry.IndexTree)
	if err != nil {
		return nil, fmt.Errorf("stash pop: %w", err)
	}

	touched := stashTouchedPaths(parentMap, workMap, indexMap)

	headHash, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, fmt.Errorf("stash pop: resolve HEAD: %w", err)
	}
	if headHash != entry.Parent {
		headCommit, err := r.Store.ReadCommit(headHash)
		if err != nil {
			return nil, fmt.Errorf("stash pop: read HEAD commit: %w", err)
		}
		headMap, err := r.treeFileMap(headCommit.TreeHash)
		if err != nil {
			return nil, fmt.Errorf("stash pop: %w", err)
		}
		for _, p := range touched {
			if !sameTreeFile(parentMap, headMap, p) {
				return nil, fmt.Errorf("stash pop: path %q changed in HEAD since stash: %w", p, ErrStashConflict)
			}
		}
	}

	stg, err := r.ReadStaging()
	if err != nil {
		return nil, fmt.Errorf("stash pop: %w", err)
	}

	for _, p := range touched {
		if we, ok := workMap[p]; ok {
			if err := r.writeWorktreeFile(we); err != nil {
				return nil, fmt.Errorf("stash pop: %w", err)
			}
		} else {
			absPath := filepath.Join(r.RootDir, filepath.FromSlash(p))
			if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("stash pop: remove %q: %w", p, err)
			}
			r.removeEmptyParents(filepath.Dir(absPath))
		}

		if ie, ok := indexMap[p]; ok {
			stg.Entries[p] = &StagingEntry{
				Path:     p,
				BlobHash: ie.BlobHash,
				Mode:     normalizeFileMode(ie.Mode),
				ModTime:  0,
				Size:     -1,
			}
		} else {
			delete(stg.Entries, p)
		}
	}

	if err := r.WriteStaging(stg); err != nil {
		return nil, fmt.Errorf("stash pop: %w", err)
	}

	if err := r.writeStash(stack[1:]); err != nil {
		return nil, fmt.Errorf("stash pop: %w", err)
	}

	trace.Debug().
		Int("touched", len(touched)).
		Msg("stash popped")
	return &entry, nil
}

// stashTouchedPaths returns, sorted, every path whose blob hash differs
// between the parent tree and either snapshot tree. Presence counts:
// added and deleted paths are touched.
func stashTouchedPaths(parentMap, workMap, indexMap map[string]TreeFileEntry) []string {
	set := make(map[string]struct{})
	for p := range parentMap {
		set[p] = struct{}{}
	}
	for p := range workMap {
		set[p] = struct{}{}
	}
	for p := range indexMap {
		set[p] = struct{}{}
	}

	var touched []string
	for p := range set {
		if !sameTreeFile(parentMap, workMap, p) || !sameTreeFile(parentMap, indexMap, p) {
			touched = append(touched, p)
		}
	}
	sort.Strings(touched)
	return touched
}

// sameTreeFile reports whether path p has identical presence and blob
// hash in both maps.
func sameTreeFile(a, b map[string]TreeFileEntry, p string) bool {
	ae, aok := a[p]
	be, bok := b[p]
	if aok != bok {
		return false
	}
	if !aok {
		return true
	}
	return ae.BlobHash == be.BlobHash
}
