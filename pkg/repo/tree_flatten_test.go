package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fitvcs/fit/pkg/object"
)

// Test 1: staged files survive a BuildTree/FlattenTree round trip with
// paths, blob hashes, and modes intact.
func TestBuildTree_FlattenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("beta\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	scriptPath := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(scriptPath, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := r.Add([]string{"."}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	stg, err := r.ReadStaging()
	if err != nil {
		t.Fatalf("ReadStaging: %v", err)
	}

	rootHash, err := r.BuildTree(stg)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	entries, err := r.FlattenTree(rootHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}

	wantPaths := []string{"a.txt", "run.sh", "sub/b.txt"}
	if len(entries) != len(wantPaths) {
		t.Fatalf("FlattenTree returned %d entries, want %d", len(entries), len(wantPaths))
	}
	for i, want := range wantPaths {
		if entries[i].Path != want {
			t.Errorf("entry[%d].Path = %q, want %q", i, entries[i].Path, want)
		}
		if entries[i].BlobHash != stg.Entries[want].BlobHash {
			t.Errorf("entry[%d].BlobHash = %q, want staged %q", i, entries[i].BlobHash, stg.Entries[want].BlobHash)
		}
	}
	modes := map[string]string{}
	for _, e := range entries {
		modes[e.Path] = e.Mode
	}
	if modes["a.txt"] != object.TreeModeFile {
		t.Errorf("a.txt mode = %q, want %q", modes["a.txt"], object.TreeModeFile)
	}
	if modes["run.sh"] != object.TreeModeExecutable {
		t.Errorf("run.sh mode = %q, want %q", modes["run.sh"], object.TreeModeExecutable)
	}
}

// Test 2: an empty staging area builds a stored empty root tree.
func TestBuildTree_EmptyStaging(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	rootHash, err := r.BuildTree(&Staging{Entries: map[string]*StagingEntry{}})
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if rootHash == "" {
		t.Fatal("BuildTree returned empty hash")
	}

	entries, err := r.FlattenTree(rootHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("empty tree flattened to %d entries", len(entries))
	}
}

// Test 3: the same staging content always hashes to the same root tree.
func TestBuildTree_Deterministic(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	stg := &Staging{Entries: map[string]*StagingEntry{
		"z.txt":     {Path: "z.txt", BlobHash: testTreeHash(1), Mode: object.TreeModeFile},
		"a/m.txt":   {Path: "a/m.txt", BlobHash: testTreeHash(2), Mode: object.TreeModeFile},
		"a/b/n.txt": {Path: "a/b/n.txt", BlobHash: testTreeHash(3), Mode: object.TreeModeExecutable},
	}}

	h1, err := r.BuildTree(stg)
	if err != nil {
		t.Fatalf("BuildTree first: %v", err)
	}
	h2, err := r.BuildTree(stg)
	if err != nil {
		t.Fatalf("BuildTree second: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("BuildTree not deterministic: %q vs %q", h1, h2)
	}
}

// Test 4: a deep staged path produces intermediate directory trees, and the
// root tree holds only the first path component.
func TestBuildTree_IntermediateDirectories(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	stg := &Staging{Entries: map[string]*StagingEntry{
		"a/b/c/deep.txt": {Path: "a/b/c/deep.txt", BlobHash: testTreeHash(7), Mode: object.TreeModeFile},
	}}
	rootHash, err := r.BuildTree(stg)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	root, err := r.Store.ReadTree(rootHash)
	if err != nil {
		t.Fatalf("ReadTree root: %v", err)
	}
	if len(root.Entries) != 1 || root.Entries[0].Name != "a" || !root.Entries[0].IsDir {
		t.Fatalf("root entries = %+v, want single dir %q", root.Entries, "a")
	}

	entries, err := r.FlattenTree(rootHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "a/b/c/deep.txt" {
		t.Fatalf("flattened = %+v, want a/b/c/deep.txt", entries)
	}
	if entries[0].BlobHash != testTreeHash(7) {
		t.Fatalf("BlobHash = %q, want %q", entries[0].BlobHash, testTreeHash(7))
	}
}

// Test 5: FlattenTree output is sorted by full path regardless of the order
// entries appear inside individual tree objects.
func TestFlattenTree_SortedOutput(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	nestedTreeHash, err := r.Store.WriteTree(&object.TreeObj{
		Entries: []object.TreeEntry{
			{Name: "d.txt", Mode: object.TreeModeFile, Target: testTreeHash(3)},
		},
	})
	if err != nil {
		t.Fatalf("write nested tree: %v", err)
	}

	dirTreeHash, err := r.Store.WriteTree(&object.TreeObj{
		Entries: []object.TreeEntry{
			{Name: "b.txt", Mode: object.TreeModeFile, Target: testTreeHash(2)},
			{Name: "nested", IsDir: true, Mode: object.TreeModeDir, Target: nestedTreeHash},
			{Name: "a.txt", Mode: object.TreeModeFile, Target: testTreeHash(4)},
		},
	})
	if err != nil {
		t.Fatalf("write dir tree: %v", err)
	}

	rootHash, err := r.Store.WriteTree(&object.TreeObj{
		Entries: []object.TreeEntry{
			{Name: "z.txt", Mode: object.TreeModeFile, Target: testTreeHash(1)},
			{Name: "dir", IsDir: true, Mode: object.TreeModeDir, Target: dirTreeHash},
			{Name: "m.txt", Mode: object.TreeModeFile, Target: testTreeHash(5)},
		},
	})
	if err != nil {
		t.Fatalf("write root tree: %v", err)
	}

	entries, err := r.FlattenTree(rootHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}

	wantPaths := []string{
		"dir/a.txt",
		"dir/b.txt",
		"dir/nested/d.txt",
		"m.txt",
		"z.txt",
	}
	wantHashes := []object.Hash{
		testTreeHash(4),
		testTreeHash(2),
		testTreeHash(3),
		testTreeHash(5),
		testTreeHash(1),
	}

	if len(entries) != len(wantPaths) {
		t.Fatalf("FlattenTree returned %d entries, want %d", len(entries), len(wantPaths))
	}
	for i, wantPath := range wantPaths {
		if entries[i].Path != wantPath {
			t.Fatalf("entry[%d].Path = %q, want %q", i, entries[i].Path, wantPath)
		}
		if entries[i].BlobHash != wantHashes[i] {
			t.Fatalf("entry[%d].BlobHash = %q, want %q", i, entries[i].BlobHash, wantHashes[i])
		}
	}
}

// Test 6: flattening survives trees nested far beyond any comfortable
// recursion depth.
func TestFlattenTree_VeryDeepTree(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	const depth = 512

	current, err := r.Store.WriteTree(&object.TreeObj{
		Entries: []object.TreeEntry{
			{Name: "leaf.txt", Mode: object.TreeModeFile, Target: testTreeHash(9)},
		},
	})
	if err != nil {
		t.Fatalf("write leaf tree: %v", err)
	}
	for i := 0; i < depth; i++ {
		current, err = r.Store.WriteTree(&object.TreeObj{
			Entries: []object.TreeEntry{
				{Name: "d", IsDir: true, Mode: object.TreeModeDir, Target: current},
			},
		})
		if err != nil {
			t.Fatalf("write level %d: %v", i, err)
		}
	}

	entries, err := r.FlattenTree(current)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("FlattenTree returned %d entries, want 1", len(entries))
	}
	if got := strings.Count(entries[0].Path, "/"); got != depth {
		t.Fatalf("leaf depth = %d separators, want %d", got, depth)
	}
	if entries[0].BlobHash != testTreeHash(9) {
		t.Fatalf("leaf BlobHash = %q, want %q", entries[0].BlobHash, testTreeHash(9))
	}
}

// Test 7: file and directory names containing spaces survive tree storage.
func TestBuildTree_NamesWithSpaces(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "release notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "my file.txt"), []byte("spaced\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "release notes", "v2 final.txt"), []byte("notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := r.Add([]string{"."}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	stg, err := r.ReadStaging()
	if err != nil {
		t.Fatalf("ReadStaging: %v", err)
	}
	rootHash, err := r.BuildTree(stg)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	entries, err := r.FlattenTree(rootHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	wantPaths := []string{"my file.txt", "release notes/v2 final.txt"}
	if len(entries) != len(wantPaths) {
		t.Fatalf("FlattenTree returned %d entries, want %d", len(entries), len(wantPaths))
	}
	for i, want := range wantPaths {
		if entries[i].Path != want {
			t.Errorf("entries[%d].Path = %q, want %q", i, entries[i].Path, want)
		}
	}

	blob, err := r.Store.ReadBlob(entries[0].BlobHash)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(blob.Data) != "spaced\n" {
		t.Errorf("blob = %q, want content of my file.txt", blob.Data)
	}
}

func testTreeHash(seed int) object.Hash {
	return object.Hash(fmt.Sprintf("%040x", seed))
}
