package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/fitvcs/fit/pkg/diff"
	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/repo"
	"github.com/spf13/cobra"
)

const lineDiffContextLines = 3

// noNewlineMarker matches Git's marker for a final line that is not
// newline-terminated.
const noNewlineMarker = `\ No newline at end of file`

func newDiffCmd() *cobra.Command {
	var staged bool

	cmd := &cobra.Command{
		Use:   "diff [--staged]",
		Short: "Show changes between working tree, staging, and HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if staged {
				return diffStaged(cmd, r)
			}
			return diffUnstaged(cmd, r)
		},
	}

	cmd.Flags().BoolVar(&staged, "staged", false, "show staged changes (staging vs HEAD)")
	cmd.AddCommand(newDiffCommitCmd())

	return cmd
}

func newDiffCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit <a> <b>",
		Short: "Show changes between two commits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			beforeMap, err := commitFileMap(r, args[0])
			if err != nil {
				return err
			}
			afterMap, err := commitFileMap(r, args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range diff.TreeDiff(hashesOf(beforeMap), hashesOf(afterMap)) {
				before, err := readBlobOrNil(r, c.Before)
				if err != nil {
					return fmt.Errorf("diff: read %s: %w", c.Path, err)
				}
				after, err := readBlobOrNil(r, c.After)
				if err != nil {
					return fmt.Errorf("diff: read %s: %w", c.Path, err)
				}
				printFileDiff(out, c.Path, before, after)
			}
			return nil
		},
	}
}

// diffUnstaged compares the staging area against the working tree. The
// after side is read from disk: unstaged content has no blob in the store.
func diffUnstaged(cmd *cobra.Command, r *repo.Repo) error {
	report, err := r.Status()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range report.Unstaged {
		before, err := readBlobOrNil(r, c.Before)
		if err != nil {
			return fmt.Errorf("diff: read staged blob %s: %w", c.Path, err)
		}

		var after []byte
		if c.Type != diff.Deleted {
			after, err = os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(c.Path)))
			if err != nil {
				return fmt.Errorf("diff: read %s: %w", c.Path, err)
			}
		}

		printFileDiff(out, c.Path, before, after)
	}
	return nil
}

// diffStaged compares the HEAD tree against the staging area.
func diffStaged(cmd *cobra.Command, r *repo.Repo) error {
	report, err := r.Status()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range report.Staged {
		before, err := readBlobOrNil(r, c.Before)
		if err != nil {
			return fmt.Errorf("diff: read HEAD blob %s: %w", c.Path, err)
		}
		after, err := readBlobOrNil(r, c.After)
		if err != nil {
			return fmt.Errorf("diff: read staged blob %s: %w", c.Path, err)
		}
		printFileDiff(out, c.Path, before, after)
	}
	return nil
}

func commitFileMap(r *repo.Repo, rev string) (map[string]repo.TreeFileEntry, error) {
	h, err := r.ResolveRef(rev)
	if err != nil {
		h, err = r.Store.ResolvePrefix(rev)
		if err != nil {
			return nil, fmt.Errorf("diff: unknown revision %q: %w", rev, err)
		}
	}
	commit, err := r.Store.ReadCommit(h)
	if err != nil {
		return nil, fmt.Errorf("diff: read commit %s: %w", h, err)
	}
	entries, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("diff: flatten tree: %w", err)
	}
	m := make(map[string]repo.TreeFileEntry, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m, nil
}

func hashesOf(m map[string]repo.TreeFileEntry) map[string]object.Hash {
	out := make(map[string]object.Hash, len(m))
	for p, e := range m {
		out[p] = e.BlobHash
	}
	return out
}

func readBlobOrNil(r *repo.Repo, h object.Hash) ([]byte, error) {
	if h == "" {
		return nil, nil
	}
	blob, err := r.Store.ReadBlob(h)
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}

// printFileDiff prints a unified-style line diff for a single file. before
// or after may be nil for additions and deletions respectively.
func printFileDiff(out io.Writer, path string, before, after []byte) {
	if bytes.Equal(before, after) {
		return
	}

	fmt.Fprintf(out, "diff --fit a/%s b/%s\n", path, path)

	if diff.IsBinary(before) || diff.IsBinary(after) {
		fmt.Fprintf(out, "Binary files a/%s and b/%s differ\n", path, path)
		return
	}

	fmt.Fprintf(out, "--- a/%s\n", path)
	fmt.Fprintf(out, "+++ b/%s\n", path)

	edits := diff.LineDiff(before, after)
	hunks := buildLineDiffHunks(edits, lineDiffContextLines)
	if len(hunks) == 0 {
		// Line content matches but the bytes differ: the only remaining
		// change is the newline on the final line.
		printFinalNewlineHunk(out, edits, len(before) > 0 && before[len(before)-1] == '\n')
		return
	}
	for _, h := range hunks {
		oldStart, oldCount, newStart, newCount := h.lineRange(edits)
		fmt.Fprintln(out, color.CyanString("@@ -%d,%d +%d,%d @@", oldStart, oldCount, newStart, newCount))

		for _, e := range edits[h.start:h.end] {
			switch e.Type {
			case diff.Keep:
				fmt.Fprintf(out, " %s\n", e.Line)
			case diff.Insert:
				fmt.Fprintln(out, color.GreenString("+%s", e.Line))
			case diff.Delete:
				fmt.Fprintln(out, color.RedString("-%s", e.Line))
			}
		}
	}
}

// printFinalNewlineHunk renders the hunk for a change that only adds or
// removes the trailing newline. The last line prints as a delete/insert
// pair, with the marker under whichever side lacks the newline.
func printFinalNewlineHunk(out io.Writer, edits []diff.LineEdit, beforeTerminated bool) {
	n := len(edits)
	if n == 0 {
		return
	}
	start := n - 1 - lineDiffContextLines
	if start < 0 {
		start = 0
	}
	count := n - start
	fmt.Fprintln(out, color.CyanString("@@ -%d,%d +%d,%d @@", start+1, count, start+1, count))
	for _, e := range edits[start : n-1] {
		fmt.Fprintf(out, " %s\n", e.Line)
	}

	last := edits[n-1].Line
	fmt.Fprintln(out, color.RedString("-%s", last))
	if !beforeTerminated {
		fmt.Fprintln(out, noNewlineMarker)
	}
	fmt.Fprintln(out, color.GreenString("+%s", last))
	if beforeTerminated {
		fmt.Fprintln(out, noNewlineMarker)
	}
}

type lineDiffHunk struct {
	start int
	end   int
}

// buildLineDiffHunks groups the non-Keep edits into context-padded hunks,
// merging hunks whose context windows overlap.
func buildLineDiffHunks(edits []diff.LineEdit, contextLines int) []lineDiffHunk {
	if contextLines < 0 {
		contextLines = 0
	}

	var hunks []lineDiffHunk
	for i, e := range edits {
		if e.Type == diff.Keep {
			continue
		}

		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i + contextLines + 1
		if end > len(edits) {
			end = len(edits)
		}

		if len(hunks) == 0 || start > hunks[len(hunks)-1].end {
			hunks = append(hunks, lineDiffHunk{start: start, end: end})
			continue
		}
		if end > hunks[len(hunks)-1].end {
			hunks[len(hunks)-1].end = end
		}
	}

	return hunks
}

// lineRange computes the @@ header numbers for a hunk by counting line
// positions up to and through it.
func (h lineDiffHunk) lineRange(edits []diff.LineEdit) (oldStart, oldCount, newStart, newCount int) {
	oldLine, newLine := 1, 1
	for i := 0; i < h.start; i++ {
		switch edits[i].Type {
		case diff.Keep:
			oldLine++
			newLine++
		case diff.Delete:
			oldLine++
		case diff.Insert:
			newLine++
		}
	}

	oldStart, newStart = oldLine, newLine

	for i := h.start; i < h.end; i++ {
		switch edits[i].Type {
		case diff.Keep:
			oldCount++
			newCount++
		case diff.Delete:
			oldCount++
		case diff.Insert:
			newCount++
		}
	}

	if oldCount == 0 {
		oldStart--
	}
	if newCount == 0 {
		newStart--
	}

	return oldStart, oldCount, newStart, newCount
}
