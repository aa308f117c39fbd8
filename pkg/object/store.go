package object

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// storeCacheSize bounds the in-memory cache of decoded objects. Objects are
// immutable, so cached entries never go stale.
const storeCacheSize = 512

type storedObject struct {
	objType ObjectType
	data    []byte
}

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123... Each object file holds the
// zstd-compressed canonical envelope "type len\0content".
type Store struct {
	root  string
	cache *lru.Cache[Hash, storedObject]
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string) *Store {
	cache, _ := lru.New[Hash, storedObject](storeCacheSize)
	return &Store{root: root, cache: cache}
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
// It always stats the disk: the cache cannot answer existence, an object
// file may have been removed out from under a cached entry.
func (s *Store) Has(h Hash) bool {
	if !h.Valid() {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Write stores an object and returns its content hash. Writing content that
// is already present is a no-op, which is what makes snapshots cheap: only
// changed files produce new object files. Writes are atomic, data goes to a
// temp file first and is renamed into place, so a concurrent writer of the
// same object can never be observed half-written.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	envelope := fmt.Sprintf("%s %d\x00", objType, len(data))
	raw := append([]byte(envelope), data...)

	h := HashObject(objType, data)

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	compressed, err := Encode(raw)
	if err != nil {
		return "", fmt.Errorf("object write %s: %w", h, err)
	}

	dir := filepath.Join(s.root, "objects", string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write close: %w", err)
	}

	if err := os.Rename(tmpName, s.objectPath(h)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write rename: %w", err)
	}

	s.cache.Add(h, storedObject{objType: objType, data: data})
	return h, nil
}

// Read retrieves an object by hash, returning its type and raw content.
// Hashes that are not 40 lower-hex characters — a truncated or mangled ref
// file is the usual source — fail with ErrCorruptObject before touching the
// filesystem. Absent objects fail with ErrObjectNotFound. After
// decompression the envelope is re-hashed and compared against the lookup
// key, so silent on-disk corruption surfaces as ErrCorruptObject instead of
// bad data. Callers must not mutate the returned slice.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	if !h.Valid() {
		return "", nil, fmt.Errorf("object read %q: %w: malformed hash", string(h), ErrCorruptObject)
	}
	if obj, ok := s.cache.Get(h); ok {
		return obj.objType, obj.data, nil
	}

	compressed, err := os.ReadFile(s.objectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("object read %s: %w", h, ErrObjectNotFound)
		}
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}

	raw, err := Decode(compressed)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}

	if HashBytes(raw) != h {
		return "", nil, fmt.Errorf("object read %s: %w: digest mismatch after decode", h, ErrCorruptObject)
	}

	objType, content, err := parseEnvelope(h, raw)
	if err != nil {
		return "", nil, err
	}

	s.cache.Add(h, storedObject{objType: objType, data: content})
	return objType, content, nil
}

// parseEnvelope splits "type len\0content" and validates the header against
// the content it frames.
func parseEnvelope(h Hash, raw []byte) (ObjectType, []byte, error) {
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, fmt.Errorf("object read %s: %w: no NUL in envelope", h, ErrCorruptObject)
	}
	header := string(raw[:nulIdx])
	content := raw[nulIdx+1:]

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("object read %s: %w: invalid header %q", h, ErrCorruptObject, header)
	}
	objType := ObjectType(parts[0])
	switch objType {
	case TypeBlob, TypeTree, TypeCommit, TypeTag:
	default:
		return "", nil, fmt.Errorf("object read %s: %w: unknown type %q", h, ErrCorruptObject, parts[0])
	}
	length, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w: invalid length %q", h, ErrCorruptObject, parts[1])
	}
	if len(content) != length {
		return "", nil, fmt.Errorf("object read %s: %w: length mismatch (header=%d, actual=%d)", h, ErrCorruptObject, length, len(content))
	}

	return objType, content, nil
}

// ResolvePrefix expands an abbreviated hash to the unique stored hash it
// prefixes. At least 4 hex characters are required; ambiguous and unknown
// prefixes fail.
func (s *Store) ResolvePrefix(prefix string) (Hash, error) {
	prefix = strings.ToLower(prefix)
	if len(prefix) == 40 {
		return Hash(prefix), nil
	}
	if len(prefix) < 4 {
		return "", fmt.Errorf("resolve %q: prefix too short (need at least 4 characters)", prefix)
	}

	fanout := filepath.Join(s.root, "objects", prefix[:2])
	entries, err := os.ReadDir(fanout)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("resolve %q: %w", prefix, ErrObjectNotFound)
		}
		return "", fmt.Errorf("resolve %q: %w", prefix, err)
	}

	rest := prefix[2:]
	var matches []Hash
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".tmp-") {
			continue
		}
		if strings.HasPrefix(name, rest) {
			matches = append(matches, Hash(prefix[:2]+name))
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("resolve %q: %w", prefix, ErrObjectNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("resolve %q: ambiguous prefix (%d matches)", prefix, len(matches))
	}
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != TypeBlob {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, objType, TypeBlob)
	}
	return UnmarshalBlob(data)
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	return s.Write(TypeTree, MarshalTree(tr))
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != TypeTree {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, objType, TypeTree)
	}
	return UnmarshalTree(data)
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != TypeCommit {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, objType, TypeCommit)
	}
	return UnmarshalCommit(data)
}

// WriteTag serializes and stores a TagObj.
func (s *Store) WriteTag(t *TagObj) (Hash, error) {
	return s.Write(TypeTag, MarshalTag(t))
}

// ReadTag reads and deserializes a TagObj.
func (s *Store) ReadTag(h Hash) (*TagObj, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != TypeTag {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, objType, TypeTag)
	}
	return UnmarshalTag(data)
}
