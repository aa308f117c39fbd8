package object

// Hash is a 40-character hex-encoded SHA-1 digest.
type Hash string

// Short returns the first 8 characters of the hash, or the whole hash if it
// is shorter than that.
func (h Hash) Short() string {
	if len(h) < 8 {
		return string(h)
	}
	return string(h[:8])
}

// Valid reports whether h is a well-formed digest: exactly 40 lowercase hex
// characters. Ref files and caller input are not trusted to hold one.
func (h Hash) Valid() bool {
	if len(h) != 40 {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
)

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object. Directory entries carry the
// subtree hash in Target; file entries carry the blob hash.
type TreeEntry struct {
	Name   string
	IsDir  bool
	Mode   string
	Target Hash
}

// TreeObj holds a sorted list of tree entries.
type TreeObj struct {
	Entries []TreeEntry // sorted by Name
}

// CommitObj represents a commit pointing to a tree with metadata. Parents
// is empty for a root commit, one hash for a normal commit, and two for a
// merge. The graph is append-only: a commit is never rewritten once stored.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    string
	Timestamp int64
	Signature string
	Message   string
}

// TagObj is an annotated tag: a named, authored pointer at another object.
type TagObj struct {
	TargetHash Hash
	TargetType ObjectType
	Name       string
	Tagger     string
	Timestamp  int64
	Message    string
}
