package dataref

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfRange is the error returned
	// when an index or range falls outside a ref's bounds.
	ErrOutOfRange = errors.New("out of range")

	// ErrIO is matched (via errors.Is) by every error
	// that originates in a failed read, write, transfer, close or remove.
	ErrIO = errors.New("I/O failure")

	// ErrShortTransfer is the error returned
	// when a copy stops making progress
	// after the handle's retry limit is used up.
	// Errors wrapping it also match ErrIO.
	ErrShortTransfer = errors.New("short transfer")

	// ErrInvalidChunking is the error returned by Split
	// for a non-positive chunk size
	// or a chunk count that disagrees with the ref's size.
	ErrInvalidChunking = errors.New("invalid chunking")
)

// UseAfterReleaseError is the value passed to panic
// when the retain/release protocol of a FileHandle is violated:
// releasing more often than retaining,
// or touching a handle whose last owner has already released it.
type UseAfterReleaseError struct {
	Path string
	Op   string
}

func (e *UseAfterReleaseError) Error() string {
	return fmt.Sprintf("%s on released file handle %s", e.Op, e.Path)
}

type ioError struct {
	err error
}

func (e *ioError) Error() string { return e.err.Error() }
func (e *ioError) Unwrap() error { return e.err }
func (e *ioError) Cause() error  { return e.err }

func (e *ioError) Is(target error) bool {
	return target == ErrIO
}

func ioErr(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ioError{err: errors.Wrapf(err, format, args...)}
}

func checkIndex(i, size int64) error {
	if i < 0 || i >= size {
		return errors.Wrapf(ErrOutOfRange, "index %d, size %d", i, size)
	}
	return nil
}

func checkRange(start, end, size int64) error {
	if start < 0 || end > size || end < start {
		return errors.Wrapf(ErrOutOfRange, "range [%d, %d), size %d", start, end, size)
	}
	return nil
}

// checkSpan checks that n bytes starting at start fit in size.
func checkSpan(start, n, size int64) error {
	if n < 0 {
		return errors.Wrapf(ErrOutOfRange, "negative length %d", n)
	}
	if start < 0 || start > size || n > size-start {
		return errors.Wrapf(ErrOutOfRange, "%d bytes at %d, size %d", n, start, size)
	}
	return nil
}
