package filepool

import "errors"

var (
	// ErrBadFormat indicates the file is not a pool file (magic, segment
	// shift or size mismatch on open).
	ErrBadFormat = errors.New("filepool: bad pool file")

	// ErrUnsupported indicates an unsupported request, such as opening a
	// file that is too small to be a pool in read-only mode.
	ErrUnsupported = errors.New("filepool: unsupported")

	// ErrOutOfSpace indicates the file could not grow by another segment.
	ErrOutOfSpace = errors.New("filepool: out of space")

	// ErrInvalidHandle indicates a pointer or RVA the pool does not own.
	// Operations taking a slice panic with an error wrapping it.
	ErrInvalidHandle = errors.New("filepool: invalid handle")

	// ErrIO indicates a failed mapping or file operation.
	ErrIO = errors.New("filepool: i/o error")

	// ErrTooLarge indicates a request that does not fit in one segment.
	ErrTooLarge = errors.New("filepool: allocation larger than a segment")

	// ErrReadOnly indicates a write to a pool opened read-only.
	ErrReadOnly = errors.New("filepool: pool is read-only")

	// ErrClosed indicates use of a closed pool.
	ErrClosed = errors.New("filepool: pool is closed")
)
