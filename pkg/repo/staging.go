package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fitvcs/fit/pkg/diff"
	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/trace"
)

// StagingEntry records the staged state of a single file. ModTime and Size
// are the stat signature captured at add time; status uses them to skip
// re-hashing unchanged files.
type StagingEntry struct {
	Path     string      `json:"path"`
	BlobHash object.Hash `json:"blob_hash"`
	Mode     string      `json:"mode"`
	ModTime  int64       `json:"mtime_ns"`
	Size     int64       `json:"size"`
}

// Staging holds the full staging area (index) for a fit repository.
type Staging struct {
	Entries map[string]*StagingEntry
}

// indexPath returns the filesystem path to the staging index file.
func (r *Repo) indexPath() string {
	return filepath.Join(r.FitDir, "index")
}

// ReadStaging loads the staging area from .fit/index. If the file does not
// exist, an empty Staging is returned (no error).
func (r *Repo) ReadStaging() (*Staging, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Staging{Entries: make(map[string]*StagingEntry)}, nil
		}
		return nil, fmt.Errorf("read staging: %w", err)
	}

	var entries []*StagingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("read staging: unmarshal: %w", err)
	}

	stg := &Staging{Entries: make(map[string]*StagingEntry, len(entries))}
	for _, e := range entries {
		if e == nil || e.Path == "" {
			continue
		}
		stg.Entries[e.Path] = e
	}
	return stg, nil
}

// WriteStaging atomically writes the staging area to .fit/index as a JSON
// array sorted by path.
func (r *Repo) WriteStaging(s *Staging) error {
	entries := make([]*StagingEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("write staging: marshal: %w", err)
	}

	if err := writeFileAtomic(r.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("write staging: %w", err)
	}
	return nil
}

// HashMap returns the path → blob hash view of the staging table that tree
// diffs consume.
func (s *Staging) HashMap() map[string]object.Hash {
	m := make(map[string]object.Hash, len(s.Entries))
	for p, e := range s.Entries {
		m[p] = e.BlobHash
	}
	return m
}

// Add stages the given paths. Each path is resolved relative to the repo
// root. File arguments are staged directly, even when an ignore rule
// matches them; directory arguments (including ".") are walked recursively
// with ignored paths skipped; glob pathspecs like "*.go" stage every
// match. A path that exists neither on disk nor as a glob match fails with
// ErrPathNotFound. For each file:
//  1. The raw content is written as a blob to the object store.
//  2. A StagingEntry is created/updated with the blob hash, file mode, and
//     stat signature.
//
// The staging area is flushed to disk once per call.
func (r *Repo) Add(paths []string) error {
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	files, err := r.expandAddPaths(paths)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	for _, relPath := range files {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(relPath))
		content, err := os.ReadFile(absPath)
		if err != nil {
			return fmt.Errorf("add: read %q: %w", relPath, err)
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("add: stat %q: %w", relPath, err)
		}

		blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
		if err != nil {
			return fmt.Errorf("add: write blob %q: %w", relPath, err)
		}

		stg.Entries[relPath] = &StagingEntry{
			Path:     relPath,
			BlobHash: blobHash,
			Mode:     modeFromFileInfo(info),
			ModTime:  info.ModTime().UnixNano(),
			Size:     info.Size(),
		}
	}

	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("add: %w", err)
	}

	trace.Debug().Int("files", len(files)).Msg("paths staged")
	return nil
}

// expandAddPaths resolves add arguments to a sorted, deduplicated list of
// repo-relative file paths. Directory arguments are walked with ignore
// rules applied; explicitly named files and glob matches bypass them.
func (r *Repo) expandAddPaths(paths []string) ([]string, error) {
	ic := NewIgnoreChecker(r.RootDir)
	seen := make(map[string]struct{})

	walkDir := func(absPath string) error {
		return filepath.WalkDir(absPath, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			rel, err := filepath.Rel(r.RootDir, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if rel == "." {
				return nil
			}
			if ic.IsIgnored(rel) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.IsDir() && d.Type().IsRegular() {
				seen[rel] = struct{}{}
			}
			return nil
		})
	}

	for _, p := range paths {
		relPath, err := r.repoRelPath(p)
		if err != nil {
			return nil, fmt.Errorf("resolve path %q: %w", p, err)
		}

		if strings.ContainsAny(relPath, "*?[") {
			if err := r.expandGlob(p, relPath, seen, walkDir); err != nil {
				return nil, err
			}
			continue
		}

		absPath := filepath.Join(r.RootDir, filepath.FromSlash(relPath))
		info, err := os.Stat(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%q: %w", p, ErrPathNotFound)
			}
			return nil, fmt.Errorf("stat %q: %w", p, err)
		}

		if !info.IsDir() {
			seen[relPath] = struct{}{}
			continue
		}
		if err := walkDir(absPath); err != nil {
			return nil, fmt.Errorf("walk %q: %w", p, err)
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// expandGlob resolves a glob pathspec against the repo root. Matched files
// are staged like explicitly named paths; matched directories are walked
// with ignore rules. A pattern matching nothing fails with ErrPathNotFound.
func (r *Repo) expandGlob(arg, pattern string, seen map[string]struct{}, walkDir func(string) error) error {
	matches, err := filepath.Glob(filepath.Join(r.RootDir, filepath.FromSlash(pattern)))
	if err != nil {
		return fmt.Errorf("bad pattern %q: %w", arg, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("%q: %w", arg, ErrPathNotFound)
	}

	for _, m := range matches {
		rel, err := filepath.Rel(r.RootDir, m)
		if err != nil {
			return fmt.Errorf("resolve match %q: %w", m, err)
		}
		info, err := os.Stat(m)
		if err != nil {
			return fmt.Errorf("stat %q: %w", m, err)
		}
		if info.IsDir() {
			if err := walkDir(m); err != nil {
				return fmt.Errorf("walk %q: %w", m, err)
			}
			continue
		}
		if info.Mode().IsRegular() {
			seen[filepath.ToSlash(rel)] = struct{}{}
		}
	}
	return nil
}

// Remove drops staged paths from the index. Arguments match exact staged
// paths or staged directory prefixes; an argument matching neither fails
// with ErrPathNotStaged before anything is modified. Unless cached is set,
// the working-tree files are deleted after the index write and empty parent
// directories are pruned.
func (r *Repo) Remove(paths []string, cached bool) error {
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}

	victims := make(map[string]struct{})
	for _, p := range paths {
		rel, err := r.repoRelPath(p)
		if err != nil {
			return fmt.Errorf("rm: resolve path %q: %w", p, err)
		}
		rel = strings.TrimSuffix(rel, "/")

		matched := false
		if _, ok := stg.Entries[rel]; ok {
			victims[rel] = struct{}{}
			matched = true
		}
		prefix := rel + "/"
		for staged := range stg.Entries {
			if strings.HasPrefix(staged, prefix) {
				victims[staged] = struct{}{}
				matched = true
			}
		}

		if !matched {
			return fmt.Errorf("rm %q: %w", p, ErrPathNotStaged)
		}
	}

	for v := range victims {
		delete(stg.Entries, v)
	}
	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("rm: %w", err)
	}

	if !cached {
		for v := range victims {
			absPath := filepath.Join(r.RootDir, filepath.FromSlash(v))
			if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("rm: remove %q: %w", v, err)
			}
			r.removeEmptyParents(filepath.Dir(absPath))
		}
	}
	return nil
}

// DiffAgainst compares the staging area with a stored tree and returns the
// per-path changes from the tree's state to the staged state, sorted by
// path.
func (r *Repo) DiffAgainst(treeHash object.Hash) ([]diff.PathChange, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return nil, err
	}

	treeMap := make(map[string]object.Hash)
	if treeHash != "" {
		entries, err := r.FlattenTree(treeHash)
		if err != nil {
			return nil, fmt.Errorf("diff against %s: %w", treeHash, err)
		}
		for _, e := range entries {
			treeMap[e.Path] = e.BlobHash
		}
	}

	return diff.TreeDiff(treeMap, stg.HashMap()), nil
}

// repoRelPath converts a path (absolute, or relative to CWD) into a path
// relative to the repository root. If the path is already relative and does
// not start with the repo root, it is assumed to already be repo-relative.
func (r *Repo) repoRelPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
		}
		return filepath.ToSlash(rel), nil
	}

	// Try to resolve via CWD.
	cwd, err := os.Getwd()
	if err != nil {
		// Fall through to treating p as repo-relative.
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	abs := filepath.Join(cwd, p)
	// Check if the absolute path lives within the repo root.
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	// If the relative path starts with "..", p is outside the repo.
	// In that case, treat the original p as already repo-relative.
	if len(rel) >= 2 && rel[:2] == ".." {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	return filepath.ToSlash(rel), nil
}
