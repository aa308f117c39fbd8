package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fitvcs/fit/pkg/diff"
)

// Test 1: push snapshots the index and worktree separately, then restores
// the HEAD state.
func TestStashPush_SnapshotsAndRestoresHead(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	base := commitFile(t, r, "a.txt", "one\n", "base")

	// Stage "two" but leave "three" on disk so the two trees differ.
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("three\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	entry, err := r.StashPush("wip")
	if err != nil {
		t.Fatalf("StashPush: %v", err)
	}
	if entry.Message != "wip" {
		t.Errorf("Message = %q, want wip", entry.Message)
	}
	if entry.Branch != "main" {
		t.Errorf("Branch = %q, want main", entry.Branch)
	}
	if entry.Parent != base {
		t.Errorf("Parent = %q, want %q", entry.Parent, base)
	}
	if entry.WorkTree == entry.IndexTree {
		t.Error("WorkTree and IndexTree should differ when worktree and index diverge")
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one\n" {
		t.Errorf("a.txt after push = %q, want restored %q", data, "one\n")
	}
	report, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !report.Clean() {
		t.Errorf("tree not clean after push: %+v", report)
	}
}

// Test 2: pushing a clean tree fails with ErrNothingToStash.
func TestStashPush_CleanTreeFails(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	commitFile(t, r, "a.txt", "one\n", "base")

	if _, err := r.StashPush(""); !errors.Is(err, ErrNothingToStash) {
		t.Fatalf("StashPush on clean tree = %v, want ErrNothingToStash", err)
	}
}

// Test 3: untracked files survive a push untouched.
func TestStashPush_LeavesUntrackedAlone(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	commitFile(t, r, "a.txt", "one\n", "base")

	if err := os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := r.StashPush(""); err != nil {
		t.Fatalf("StashPush: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "scratch.txt"))
	if err != nil {
		t.Fatalf("untracked file gone after push: %v", err)
	}
	if string(data) != "notes\n" {
		t.Errorf("scratch.txt = %q, want %q", data, "notes\n")
	}
}

// Test 4: pop restores both the staged and the unstaged half of the
// snapshot and removes the entry from the stack.
func TestStashPop_RestoresDirtyState(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	commitFile(t, r, "a.txt", "one\n", "base")

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("three\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.StashPush("layered"); err != nil {
		t.Fatalf("StashPush: %v", err)
	}

	entry, err := r.StashPop()
	if err != nil {
		t.Fatalf("StashPop: %v", err)
	}
	if entry.Message != "layered" {
		t.Errorf("popped Message = %q, want layered", entry.Message)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "three\n" {
		t.Errorf("a.txt after pop = %q, want %q", data, "three\n")
	}

	report, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if c := findChange(report.Staged, "a.txt"); c == nil || c.Type != diff.Modified {
		t.Errorf("staged change = %+v, want modified a.txt", c)
	}
	if c := findChange(report.Unstaged, "a.txt"); c == nil || c.Type != diff.Modified {
		t.Errorf("unstaged change = %+v, want modified a.txt", c)
	}

	stack, err := r.StashList()
	if err != nil {
		t.Fatalf("StashList: %v", err)
	}
	if len(stack) != 0 {
		t.Fatalf("stack after pop has %d entries, want 0", len(stack))
	}
}

// Test 5: popping an empty stack fails with ErrStashEmpty.
func TestStashPop_EmptyStack(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	commitFile(t, r, "a.txt", "one\n", "base")

	if _, err := r.StashPop(); !errors.Is(err, ErrStashEmpty) {
		t.Fatalf("StashPop on empty stack = %v, want ErrStashEmpty", err)
	}
}

// Test 6: commits made after the push merge cleanly with the stash as long
// as they touch disjoint paths. The stash overlays only its own paths.
func TestStashPop_AfterUnrelatedCommit(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	commitFile(t, r, "a.txt", "one\n", "base a")
	commitFile(t, r, "b.txt", "left\n", "base b")

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("patched\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := r.StashPush(""); err != nil {
		t.Fatalf("StashPush: %v", err)
	}

	commitFile(t, r, "b.txt", "right\n", "update b")

	if _, err := r.StashPop(); err != nil {
		t.Fatalf("StashPop: %v", err)
	}

	a, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != "patched\n" {
		t.Errorf("a.txt = %q, want stashed %q", a, "patched\n")
	}
	b, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "right\n" {
		t.Errorf("b.txt = %q, want committed %q", b, "right\n")
	}
}

// Test 7: when HEAD rewrote a path the stash also touched, pop refuses and
// keeps the stack intact.
func TestStashPop_ConflictingHeadChange(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	commitFile(t, r, "a.txt", "one\n", "base")

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("stashed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := r.StashPush(""); err != nil {
		t.Fatalf("StashPush: %v", err)
	}

	commitFile(t, r, "a.txt", "upstream\n", "rewrite a")

	if _, err := r.StashPop(); !errors.Is(err, ErrStashConflict) {
		t.Fatalf("StashPop = %v, want ErrStashConflict", err)
	}

	// The entry survives the failed pop.
	stack, err := r.StashList()
	if err != nil {
		t.Fatalf("StashList: %v", err)
	}
	if len(stack) != 1 {
		t.Fatalf("stack after failed pop has %d entries, want 1", len(stack))
	}
	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "upstream\n" {
		t.Errorf("a.txt = %q, want untouched %q", data, "upstream\n")
	}
}

// Test 8: a staged deletion round-trips through push and pop.
func TestStashPop_ReappliesStagedDeletion(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	commitFile(t, r, "a.txt", "one\n", "base a")
	commitFile(t, r, "b.txt", "left\n", "base b")

	if err := r.Remove([]string{"b.txt"}, false); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := r.StashPush(""); err != nil {
		t.Fatalf("StashPush: %v", err)
	}

	// Push restored the HEAD state, so b.txt is back.
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); err != nil {
		t.Fatalf("b.txt should be restored after push: %v", err)
	}

	if _, err := r.StashPop(); err != nil {
		t.Fatalf("StashPop: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); !os.IsNotExist(err) {
		t.Fatalf("b.txt should be deleted again after pop, stat err = %v", err)
	}
	stg, err := r.ReadStaging()
	if err != nil {
		t.Fatalf("ReadStaging: %v", err)
	}
	if _, ok := stg.Entries["b.txt"]; ok {
		t.Error("b.txt still staged after pop")
	}
}

// Test 9: the stack lists newest first.
func TestStashList_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	commitFile(t, r, "a.txt", "one\n", "base")

	for i, msg := range []string{"first", "second"} {
		content := []byte{'v', byte('1' + i), '\n'}
		if err := os.WriteFile(filepath.Join(dir, "a.txt"), content, 0o644); err != nil {
			t.Fatal(err)
		}
		if err := r.Add([]string{"a.txt"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if _, err := r.StashPush(msg); err != nil {
			t.Fatalf("StashPush(%q): %v", msg, err)
		}
	}

	stack, err := r.StashList()
	if err != nil {
		t.Fatalf("StashList: %v", err)
	}
	if len(stack) != 2 {
		t.Fatalf("stack has %d entries, want 2", len(stack))
	}
	if stack[0].Message != "second" || stack[1].Message != "first" {
		t.Fatalf("stack order = [%q, %q], want [second, first]", stack[0].Message, stack[1].Message)
	}
}
