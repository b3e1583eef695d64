package core

import (
	"errors"
	"io/fs"
)

var (
	// ErrNotExist is returned when a file or directory does not exist.
	// Re-exported from io/fs for convenience.
	ErrNotExist = fs.ErrNotExist

	// ErrExist is returned when a file or directory already exists.
	// Re-exported from io/fs for convenience.
	ErrExist = fs.ErrExist

	// ErrPermission is returned when permission is denied.
	// Re-exported from io/fs for convenience.
	ErrPermission = fs.ErrPermission

	// ErrClosed is returned when an operation is performed on a closed
	// filesystem or file. Re-exported from io/fs for convenience.
	ErrClosed = fs.ErrClosed

	// ErrUnsupported is returned when an operation is not supported by the
	// provider. For example, write operations on archive providers or
	// metadata operations on cloud storage backends.
	ErrUnsupported = errors.New("operation not supported")

	// ErrTraversal is returned when a resolved path would escape the root
	// of the filesystem view it was resolved against. Paths are rejected
	// before reaching backend-native logic; no operation is attempted.
	ErrTraversal = errors.New("path escapes filesystem root")

	// ErrUnsupportedScheme is returned when a URL names a scheme with no
	// registered filesystem constructor.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrNotDir is returned when a directory operation targets a regular
	// file, or when a path component that must be a directory is not one.
	ErrNotDir = errors.New("not a directory")
)

// PathError wraps an error in a *fs.PathError for the given operation and
// path, preserving the backend cause for errors.Is/As inspection.
// If the error is nil, returns nil.
func PathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &fs.PathError{Op: op, Path: path, Err: err}
}
