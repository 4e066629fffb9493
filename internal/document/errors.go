package document

import "errors"

var (
	ErrNotFound   = errors.New("entity not found")
	ErrValidation = errors.New("validation failed")

	// ErrReadFailure means the collection could not be read; it is never
	// reported as an empty collection.
	ErrReadFailure = errors.New("collection read failed")
	// ErrWriteFailure means the put or its verification kept failing.
	ErrWriteFailure = errors.New("collection write failed")
	// ErrVersionConflict means another writer committed since our read.
	ErrVersionConflict = errors.New("collection version conflict")

	ErrCreateFailure  = errors.New("create failed after multiple attempts")
	ErrUpdateFailure  = errors.New("update failed after multiple attempts")
	ErrDeleteFailure  = errors.New("delete failed after multiple attempts")
	ErrPublishFailure = errors.New("publish failed after multiple attempts")
)

// Retryable reports whether a read-modify-write cycle may be attempted again.
func Retryable(err error) bool {
	return errors.Is(err, ErrWriteFailure) || errors.Is(err, ErrVersionConflict)
}
