package format

import "errors"

var (
	// ErrSignatureMismatch indicates the pool header carried an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadShift indicates a stored segment shift outside the supported range.
	ErrBadShift = errors.New("format: segment shift out of range")
)
