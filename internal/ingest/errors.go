package ingest

import (
	"errors"
	"fmt"
)

// Pre-write failures. All of them abort the run before anything is written.
var (
	// ErrMissingSource means the snapshot source does not exist.
	ErrMissingSource = errors.New("snapshot source does not exist")

	// ErrStaleSource means the source is older than the freshness window,
	// usually because the upstream fetcher stopped refreshing it.
	ErrStaleSource = errors.New("snapshot source is stale")

	// ErrMalformedSource means the source could not be decoded.
	ErrMalformedSource = errors.New("snapshot source is malformed")
)

// PersistenceError is a fatal write-phase failure: the dimension upsert
// after retries were exhausted, or the fact insert on its first attempt.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
