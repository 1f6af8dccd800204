package internalerr

import "errors"

// Sentinel errors for common cases
var (
	// ErrNotFound indicates an input file that does not exist. Fatal, no retry.
	ErrNotFound = errors.New("not found")

	// ErrMalformedInput indicates an unparsable source document. Callers wrap
	// it with the offending path.
	ErrMalformedInput = errors.New("malformed input")

	// ErrEmptyResult indicates that extraction produced zero nodule records
	// during single-document analysis. Batch callers catch and skip it.
	ErrEmptyResult = errors.New("empty result")

	// ErrInvalidConfig indicates an unparsable configuration or dictionary file.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStoreUnavailable indicates the scan database could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)
