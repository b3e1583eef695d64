package billy

import (
	"io"
	"io/fs"

	"github.com/go-git/go-billy/v5"
	"github.com/jmgilman/vfs/core"
	"go.uber.org/atomic"
)

// File wraps billy.File to implement both core.File and fs.File.
// It stores the filename since billy.File.Name() may return different
// formats depending on the backend implementation, and a reference to the
// owning FS so that closing the filesystem invalidates the handle
// (invalidate-on-use).
type File struct {
	file   billy.File
	owner  *FS
	name   string
	closed atomic.Bool
}

// guard rejects operations on handles whose own Close ran or whose owning
// filesystem was closed.
func (f *File) guard(op string) error {
	if f.closed.Load() || f.owner.closed.Load() {
		return core.PathError(op, f.name, fs.ErrClosed)
	}
	return nil
}

// Read implements io.Reader (required by fs.File).
func (f *File) Read(p []byte) (int, error) {
	if err := f.guard("read"); err != nil {
		return 0, err
	}
	return f.file.Read(p)
}

// Write implements io.Writer (required by core.File).
func (f *File) Write(p []byte) (int, error) {
	if err := f.guard("write"); err != nil {
		return 0, err
	}
	return f.file.Write(p)
}

// Close releases the underlying descriptor. Idempotent: the second and
// later calls return nil without touching the descriptor again.
func (f *File) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.file.Close()
}

// Stat implements fs.File.Stat.
// Since billy.File doesn't provide Stat(), we call the filesystem's Stat()
// method.
func (f *File) Stat() (fs.FileInfo, error) {
	if err := f.guard("stat"); err != nil {
		return nil, err
	}
	return f.owner.bfs.Stat(f.name)
}

// Name returns the name provided to Open/Create.
// This is required by core.File and provides consistent behavior
// across different billy backends.
func (f *File) Name() string {
	return f.name
}

// Seek implements io.Seeker.
// Billy.File provides Seek, so we delegate directly.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.guard("seek"); err != nil {
		return 0, err
	}
	return f.file.Seek(offset, whence)
}

// ReadAt implements io.ReaderAt. Billy files are pread-backed on osfs, so
// concurrent ReadAt calls do not disturb the sequential read position.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if err := f.guard("readat"); err != nil {
		return 0, err
	}
	return f.file.ReadAt(p, off)
}

// Truncate implements core.Truncater.
func (f *File) Truncate(size int64) error {
	if err := f.guard("truncate"); err != nil {
		return err
	}
	return f.file.Truncate(size)
}

// Sync implements core.Syncer.
// Billy.File may or may not provide Sync depending on the backend.
// For backends without Sync (e.g., memfs), this is a no-op.
func (f *File) Sync() error {
	if err := f.guard("sync"); err != nil {
		return err
	}
	if syncer, ok := f.file.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Compile-time interface checks.
var (
	_ core.File      = (*File)(nil)
	_ fs.File        = (*File)(nil)
	_ io.Seeker      = (*File)(nil)
	_ io.ReaderAt    = (*File)(nil)
	_ core.Truncater = (*File)(nil)
	_ core.Syncer    = (*File)(nil)
)
