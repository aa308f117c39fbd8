package object

import "errors"

// Sentinel errors returned by the store. Callers match them with errors.Is
// after unwrapping whatever context was added along the way.
var (
	// ErrObjectNotFound means no object with the requested hash exists on disk.
	ErrObjectNotFound = errors.New("object not found")

	// ErrCorruptObject means an object file exists but its contents cannot be
	// trusted: the compressed stream is malformed, the envelope header does
	// not parse, or the decoded bytes no longer hash to the lookup key.
	ErrCorruptObject = errors.New("corrupt object")
)
