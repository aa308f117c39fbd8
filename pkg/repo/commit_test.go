package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fitvcs/fit/pkg/object"
)

// helper: initRepoWithFile creates a temp repo, writes a file, and stages it.
func initRepoWithFile(t *testing.T, name string, content []byte) *Repo {
	t.Helper()
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Create parent directory if needed.
	parent := filepath.Dir(filepath.Join(dir, name))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := r.Add([]string{name}); err != nil {
		t.Fatalf("Add(%s): %v", name, err)
	}
	return r
}

// Test 1: Commit creates object in store.
func TestCommit_CreatesObject(t *testing.T) {
	r := initRepoWithFile(t, "main.go", []byte("package main\n\nfunc main() {}\n"))

	h, err := r.Commit("initial commit", "test-author")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if h == "" {
		t.Fatal("Commit returned empty hash")
	}

	// Read commit back from store.
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit(%s): %v", h, err)
	}
	if c.Message != "initial commit" {
		t.Errorf("Message = %q, want %q", c.Message, "initial commit")
	}
	if c.Author != "test-author" {
		t.Errorf("Author = %q, want %q", c.Author, "test-author")
	}
	if c.TreeHash == "" {
		t.Error("TreeHash is empty")
	}
	if c.Timestamp == 0 {
		t.Error("Timestamp is zero")
	}
	if len(c.Parents) != 0 {
		t.Errorf("first commit should have no parents, got %d", len(c.Parents))
	}
	if c.Signature != "" {
		t.Errorf("unsigned commit has Signature = %q", c.Signature)
	}
}

// Test 2: Commit updates HEAD.
func TestCommit_UpdatesHEAD(t *testing.T) {
	r := initRepoWithFile(t, "main.go", []byte("package main\n\nfunc main() {}\n"))

	h, err := r.Commit("initial commit", "test-author")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	headHash, err := r.ResolveRef("HEAD")
	if err != nil {
		t.Fatalf("ResolveRef(HEAD): %v", err)
	}
	if headHash != h {
		t.Errorf("HEAD = %q, want %q", headHash, h)
	}
}

// Test 3: Second commit has first as parent.
func TestCommit_SecondHasParent(t *testing.T) {
	r := initRepoWithFile(t, "main.go", []byte("package main\n\nfunc main() {}\n"))

	h1, err := r.Commit("first commit", "test-author")
	if err != nil {
		t.Fatalf("first Commit: %v", err)
	}

	// Modify file and re-add for second commit.
	if err := os.WriteFile(filepath.Join(r.RootDir, "main.go"),
		[]byte("package main\n\nfunc main() { println(\"v2\") }\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.Add([]string{"main.go"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	h2, err := r.Commit("second commit", "test-author")
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}

	c2, err := r.Store.ReadCommit(h2)
	if err != nil {
		t.Fatalf("ReadCommit(%s): %v", h2, err)
	}
	if len(c2.Parents) != 1 {
		t.Fatalf("second commit parents = %d, want 1", len(c2.Parents))
	}
	if c2.Parents[0] != h1 {
		t.Errorf("second commit parent = %q, want %q", c2.Parents[0], h1)
	}
}

// Test 4: Commit with nothing staged on a fresh repo fails.
func TestCommit_EmptyRepo_NothingToCommit(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	_, err = r.Commit("empty", "test-author")
	if !errors.Is(err, ErrNothingToCommit) {
		t.Fatalf("Commit on fresh repo: err = %v, want ErrNothingToCommit", err)
	}
}

// Test 5: Commit with a tree identical to the parent's fails.
func TestCommit_UnchangedTree_NothingToCommit(t *testing.T) {
	r := initRepoWithFile(t, "main.go", []byte("package main\n"))

	if _, err := r.Commit("first", "test-author"); err != nil {
		t.Fatalf("first Commit: %v", err)
	}

	// Re-add the identical content and try again.
	if err := r.Add([]string{"main.go"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := r.Commit("no-op", "test-author")
	if !errors.Is(err, ErrNothingToCommit) {
		t.Fatalf("no-op Commit: err = %v, want ErrNothingToCommit", err)
	}
}

// Test 6: Log returns reverse-chronological order and honors the limit.
func TestLog_ReverseChronological(t *testing.T) {
	r := initRepoWithFile(t, "main.go", []byte("package main\n\nfunc main() {}\n"))

	hashes := make([]object.Hash, 3)
	messages := []string{"first", "second", "third"}

	for i, msg := range messages {
		if i > 0 {
			content := []byte("package main\n\nvar v = \"" + msg + "\"\n")
			if err := os.WriteFile(filepath.Join(r.RootDir, "main.go"), content, 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := r.Add([]string{"main.go"}); err != nil {
				t.Fatalf("Add: %v", err)
			}
		}
		h, err := r.Commit(msg, "test-author")
		if err != nil {
			t.Fatalf("Commit(%q): %v", msg, err)
		}
		hashes[i] = h
	}

	// Log from the latest commit, limit 10 (more than we have).
	entries, err := r.Log(hashes[2], 10)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Log returned %d commits, want 3", len(entries))
	}

	// Verify order: newest first, and each entry carries its own hash.
	for i, want := range []string{"third", "second", "first"} {
		if entries[i].Commit.Message != want {
			t.Errorf("entries[%d].Commit.Message = %q, want %q", i, entries[i].Commit.Message, want)
		}
		if entries[i].Hash != hashes[2-i] {
			t.Errorf("entries[%d].Hash = %q, want %q", i, entries[i].Hash, hashes[2-i])
		}
	}

	// Log with limit = 2 should only return 2 commits.
	limited, err := r.Log(hashes[2], 2)
	if err != nil {
		t.Fatalf("Log(limit=2): %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("Log(limit=2) returned %d commits, want 2", len(limited))
	}

	// Limit zero means unlimited.
	all, err := r.Log(hashes[2], 0)
	if err != nil {
		t.Fatalf("Log(limit=0): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Log(limit=0) returned %d commits, want 3", len(all))
	}
}

// Test 7: A missing parent object mid-chain is an error, not a short
// history.
func TestLog_MissingParent_Error(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: []byte("x\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	treeHash, err := r.Store.WriteTree(&object.TreeObj{Entries: []object.TreeEntry{
		{Name: "x.txt", Mode: object.TreeModeFile, Target: blobHash},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	// The parent hash references an object that was never written.
	orphan, err := r.Store.WriteCommit(&object.CommitObj{
		TreeHash:  treeHash,
		Parents:   []object.Hash{"ffffffffffffffffffffffffffffffffffffffff"},
		Author:    "test-author",
		Timestamp: 1700000000,
		Message:   "dangling parent",
	})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}

	_, err = r.Log(orphan, 10)
	if !errors.Is(err, object.ErrObjectNotFound) {
		t.Fatalf("Log over missing parent: err = %v, want ErrObjectNotFound", err)
	}
}

// Test 8: CommitWithSigner persists the signature the signer returns.
func TestCommitWithSigner_PersistsSignature(t *testing.T) {
	r := initRepoWithFile(t, "main.go", []byte("package main\n"))

	var signedPayload []byte
	signer := func(payload []byte) (string, error) {
		signedPayload = append([]byte(nil), payload...)
		return "test-signature", nil
	}

	h, err := r.CommitWithSigner("signed", "test-author", signer)
	if err != nil {
		t.Fatalf("CommitWithSigner: %v", err)
	}

	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.Signature != "test-signature" {
		t.Errorf("Signature = %q, want %q", c.Signature, "test-signature")
	}
	if len(signedPayload) == 0 {
		t.Fatal("signer was never called")
	}

	// The signing payload is the commit with its signature blanked, so
	// recomputing it from the stored commit must reproduce the input.
	if string(object.CommitSigningPayload(c)) != string(signedPayload) {
		t.Error("stored commit does not reproduce the signed payload")
	}
}
