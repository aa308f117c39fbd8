package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fitvcs/fit/pkg/object"
)

// Repo represents an opened fit repository.
type Repo struct {
	RootDir string        // working directory root
	FitDir  string        // .fit/ directory
	Store   *object.Store // content-addressed object store
}

// writeFileAtomic replaces the file at path via a temp file in the same
// directory and a rename, so readers see either the old content or the new,
// never a partial write. Every repository state file — index, HEAD, config,
// stash — goes through here.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-tmp-*")
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
