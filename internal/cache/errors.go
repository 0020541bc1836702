package cache

import "errors"

var (
	// ErrBatchLengthMismatch is returned by SetBatch when the number of texts
	// does not match the number of vectors.
	ErrBatchLengthMismatch = errors.New("texts and vectors length mismatch")

	// ErrTruncatedVector indicates a serialized vector whose byte length is
	// not a multiple of four.
	ErrTruncatedVector = errors.New("truncated vector data")
)
