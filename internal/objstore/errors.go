package objstore

import "errors"

// Sentinel errors for the object-store façade. Kinds are collapsed per
// spec.md §4.1: NotFound | Conflict | Io | Corrupt. Callers match with
// errors.Is; richer context is wrapped around these with fmt.Errorf.
var (
	// ErrNotFound is returned when a blob, tree, commit, or ref does not exist.
	ErrNotFound = errors.New("objstore: not found")

	// ErrConflict is returned when a compare-and-swap ref update's expected
	// value did not match the ref's current value.
	ErrConflict = errors.New("objstore: ref compare-and-swap conflict")

	// ErrIO is returned for failures talking to the underlying store
	// (subprocess spawn failure, timeout, filesystem error).
	ErrIO = errors.New("objstore: io failure")

	// ErrCorrupt is returned when the store returned data that does not
	// parse as expected (malformed tree listing, non-hex object id, etc).
	ErrCorrupt = errors.New("objstore: corrupt data")
)
