package diff

import (
	"bytes"
	"sort"
	"strings"

	"github.com/fitvcs/fit/pkg/object"
)

// ChangeType classifies what happened to a path between two snapshots.
type ChangeType int

const (
	Added    ChangeType = iota // Path exists only in the after snapshot.
	Modified                   // Path exists in both snapshots with different content.
	Deleted                    // Path exists only in the before snapshot.
)

// String returns the lowercase name of the change type.
func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// PathChange records a single path-level change between two flat snapshots.
type PathChange struct {
	Path   string
	Type   ChangeType
	Before object.Hash // empty for Added
	After  object.Hash // empty for Deleted
}

// TreeDiff computes the ordered change set between two flat
// path -> blob-hash maps. It works on any pair of snapshots: two committed
// trees, a tree and the index, or the index and a hashed working directory.
// Output is sorted by path. Swapping the arguments swaps Added and Deleted.
func TreeDiff(before, after map[string]object.Hash) []PathChange {
	var changes []PathChange

	for path, beforeHash := range before {
		afterHash, inAfter := after[path]
		if !inAfter {
			changes = append(changes, PathChange{
				Path:   path,
				Type:   Deleted,
				Before: beforeHash,
			})
		} else if beforeHash != afterHash {
			changes = append(changes, PathChange{
				Path:   path,
				Type:   Modified,
				Before: beforeHash,
				After:  afterHash,
			})
		}
	}

	for path, afterHash := range after {
		if _, inBefore := before[path]; !inBefore {
			changes = append(changes, PathChange{
				Path:  path,
				Type:  Added,
				After: afterHash,
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

// LineDiff computes a line-level edit script between byte slices a and b.
func LineDiff(a, b []byte) []LineEdit {
	return myersDiff(splitLines(string(a)), splitLines(string(b)))
}

// binarySniffLen bounds how far IsBinary looks for a NUL byte.
const binarySniffLen = 8000

// IsBinary reports whether data looks like binary rather than text, using
// the NUL-byte heuristic over the leading bytes.
func IsBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// splitLines splits s into lines. A trailing newline does not produce an
// extra empty element (matching standard text file conventions).
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
