package storage

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when an operation is attempted before Open has
// completed. This is a caller error, never surfaced to the user.
var ErrNotReady = errors.New("store not ready")

// StorageError wraps a failure of the underlying database: unavailable file,
// rejected write, or aborted transaction.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Collection: collection, Err: err}
}
