package snapshotstore

import (
	"errors"
	"fmt"
)

// ErrCorrupt marks stored data that is not a well-formed sequence of snapshot records.
var ErrCorrupt = errors.New("corrupt snapshot history")

// PersistenceError reports a backing store that could not be read or written.
type PersistenceError struct {
	Op   string // "read", "decode", "encode" or "write"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("snapshot store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
