package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/trace"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path     string
	BlobHash object.Hash
	Mode     string
}

// BuildTree converts the flat staging entries into a hierarchical tree
// structure, writing TreeObj objects to the store and returning the root
// hash.
//
// Staging entries use forward-slash paths (e.g. "pkg/util/util.go").
// BuildTree groups them by directory and builds the directories
// deepest-first, so every parent tree references already-written children.
// An empty staging area yields the (stored) empty root tree.
func (r *Repo) BuildTree(s *Staging) (object.Hash, error) {
	files := make(map[string]map[string]*StagingEntry) // dir → name → entry
	subdirs := make(map[string]map[string]struct{})    // dir → child dir names

	ensureDir := func(dir string) {
		if _, ok := files[dir]; ok {
			return
		}
		files[dir] = make(map[string]*StagingEntry)
		subdirs[dir] = make(map[string]struct{})
	}
	ensureDir("")

	for p, entry := range s.Entries {
		dir, name := splitTreePath(p)
		// Register every ancestor so directories that hold no direct
		// files still get a tree.
		d := dir
		for {
			ensureDir(d)
			if d == "" {
				break
			}
			parent, child := splitTreePath(d)
			ensureDir(parent)
			subdirs[parent][child] = struct{}{}
			d = parent
		}
		files[dir][name] = entry
	}

	dirs := make([]string, 0, len(files))
	for d := range files {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := treeDepth(dirs[i]), treeDepth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})

	built := make(map[string]object.Hash, len(dirs))
	for _, dir := range dirs {
		names := make([]string, 0, len(files[dir])+len(subdirs[dir]))
		for name := range files[dir] {
			names = append(names, name)
		}
		for name := range subdirs[dir] {
			// A name cannot be both a file and a directory; the file wins.
			if _, isFile := files[dir][name]; !isFile {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		var entries []object.TreeEntry
		for _, name := range names {
			if entry, isFile := files[dir][name]; isFile {
				entries = append(entries, object.TreeEntry{
					Name:   name,
					IsDir:  false,
					Mode:   normalizeFileMode(entry.Mode),
					Target: entry.BlobHash,
				})
			} else {
				child := joinTreePath(dir, name)
				entries = append(entries, object.TreeEntry{
					Name:   name,
					IsDir:  true,
					Mode:   object.TreeModeDir,
					Target: built[child],
				})
			}
		}

		h, err := r.Store.WriteTree(&object.TreeObj{Entries: entries})
		if err != nil {
			return "", fmt.Errorf("write tree (dir=%q): %w", dir, err)
		}
		built[dir] = h
	}

	return built[""], nil
}

// FlattenTree expands a stored tree into its full file list with
// forward-slash paths, sorted by path. Directory entries never appear as
// leaves. The walk keeps an explicit work stack so arbitrarily deep trees
// cannot exhaust the goroutine stack.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	type frame struct {
		hash   object.Hash
		prefix string
	}

	var result []TreeFileEntry
	stack := []frame{{hash: h}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		treeObj, err := r.Store.ReadTree(f.hash)
		if err != nil {
			return nil, fmt.Errorf("flatten tree: read %s: %w", f.hash, err)
		}

		for _, entry := range treeObj.Entries {
			fullPath := entry.Name
			if f.prefix != "" {
				fullPath = f.prefix + "/" + entry.Name
			}

			if entry.IsDir {
				stack = append(stack, frame{hash: entry.Target, prefix: fullPath})
			} else {
				result = append(result, TreeFileEntry{
					Path:     fullPath,
					BlobHash: entry.Target,
					Mode:     normalizeFileMode(entry.Mode),
				})
			}
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// treeFileMap flattens a tree and indexes the result by path.
func (r *Repo) treeFileMap(h object.Hash) (map[string]TreeFileEntry, error) {
	entries, err := r.FlattenTree(h)
	if err != nil {
		return nil, err
	}
	m := make(map[string]TreeFileEntry, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m, nil
}

// Materialize rewrites the working directory to match the given tree and
// reloads the staging area from it.
//
// Phase 1 writes every file in the target tree; phase 2 deletes tracked
// files absent from it and prunes emptied parent directories. Writing
// before deleting means an interrupted run leaves extra files behind
// rather than missing ones. A path that changed kind between revisions
// (directory where the tree wants a file, or a file where it wants a
// parent directory) has the blocking entry removed before the write.
// Untracked and ignored files are otherwise never touched: the delete set
// is (HEAD tree ∪ index) minus the target tree.
func (r *Repo) Materialize(treeHash object.Hash) error {
	targetFiles, err := r.FlattenTree(treeHash)
	if err != nil {
		return fmt.Errorf("materialize: flatten target tree: %w", err)
	}

	targetMap := make(map[string]TreeFileEntry, len(targetFiles))
	for _, f := range targetFiles {
		targetMap[f.Path] = f
	}

	for _, f := range targetFiles {
		if err := r.writeWorktreeFile(f); err != nil {
			return fmt.Errorf("materialize: %w", err)
		}
	}

	tracked, err := r.trackedPaths()
	if err != nil {
		return fmt.Errorf("materialize: %w", err)
	}
	for path := range tracked {
		if _, keep := targetMap[path]; keep {
			continue
		}
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
		info, err := os.Lstat(absPath)
		if err != nil {
			// Already gone: deleted outright, or an ancestor became a
			// regular file while phase 1 resolved a kind change.
			continue
		}
		if info.IsDir() {
			// Phase 1 repurposed the path as a parent directory for
			// target files. Its old blob is gone; the directory stays.
			continue
		}
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("materialize: remove %q: %w", path, err)
		}
		r.removeEmptyParents(filepath.Dir(absPath))
	}

	// Rebuild the index from the target tree with fresh stat signatures.
	stg := &Staging{Entries: make(map[string]*StagingEntry, len(targetFiles))}
	for _, f := range targetFiles {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(f.Path))
		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("materialize: stat %q: %w", f.Path, err)
		}
		stg.Entries[f.Path] = &StagingEntry{
			Path:     f.Path,
			BlobHash: f.BlobHash,
			Mode:     normalizeFileMode(f.Mode),
			ModTime:  info.ModTime().UnixNano(),
			Size:     info.Size(),
		}
	}
	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("materialize: %w", err)
	}

	trace.Debug().
		Str("tree", string(treeHash)).
		Int("paths", len(targetFiles)).
		Msg("worktree materialized")
	return nil
}

func (r *Repo) writeWorktreeFile(f TreeFileEntry) error {
	absPath := filepath.Join(r.RootDir, filepath.FromSlash(f.Path))

	// Load the blob before touching the worktree so a missing object
	// cannot leave a half-cleared path behind.
	blob, err := r.Store.ReadBlob(f.BlobHash)
	if err != nil {
		return fmt.Errorf("read blob for %q: %w", f.Path, err)
	}

	if err := r.clearKindConflicts(f.Path); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for %q: %w", f.Path, err)
	}

	perm := filePermFromMode(f.Mode)
	if err := os.WriteFile(absPath, blob.Data, perm); err != nil {
		return fmt.Errorf("write %q: %w", f.Path, err)
	}
	// WriteFile only applies perm on create; existing files keep their
	// old bits without this.
	if err := os.Chmod(absPath, perm); err != nil {
		return fmt.Errorf("chmod %q: %w", f.Path, err)
	}
	return nil
}

// clearKindConflicts removes worktree entries whose kind blocks writing a
// file at the given tree path: a non-directory sitting where a parent
// directory is needed, or a directory sitting at the file path itself.
// Both arise when a path changes kind between revisions.
func (r *Repo) clearKindConflicts(path string) error {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		ancestor := filepath.Join(r.RootDir, filepath.FromSlash(strings.Join(parts[:i], "/")))
		info, err := os.Lstat(ancestor)
		if err != nil {
			if os.IsNotExist(err) {
				break
			}
			return fmt.Errorf("stat %q: %w", ancestor, err)
		}
		if !info.IsDir() {
			if err := os.Remove(ancestor); err != nil {
				return fmt.Errorf("clear %q for %q: %w", ancestor, path, err)
			}
			break
		}
	}

	absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
	info, err := os.Lstat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %q: %w", absPath, err)
	}
	if info.IsDir() {
		if err := os.RemoveAll(absPath); err != nil {
			return fmt.Errorf("clear directory %q: %w", path, err)
		}
	}
	return nil
}

// trackedPaths returns the set of paths under version control: the union
// of HEAD tree paths and staged paths.
func (r *Repo) trackedPaths() (map[string]bool, error) {
	files := make(map[string]bool)

	headMap, err := r.headTreeHashes()
	if err != nil {
		return nil, err
	}
	for path := range headMap {
		files[path] = true
	}

	stg, err := r.ReadStaging()
	if err != nil {
		return nil, err
	}
	for path := range stg.Entries {
		files[path] = true
	}

	return files, nil
}

// removeEmptyParents removes empty directories up to (but not including)
// the repository root.
func (r *Repo) removeEmptyParents(dir string) {
	for {
		// Never remove the repo root itself.
		if dir == r.RootDir || !strings.HasPrefix(dir, r.RootDir) {
			return
		}

		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}

		os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}

func splitTreePath(p string) (dir, name string) {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return "", p
	}
	return p[:idx], p[idx+1:]
}

func joinTreePath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func treeDepth(dir string) int {
	if dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}
