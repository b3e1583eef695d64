package zipfs

import (
	"io"
	"io/fs"

	"github.com/jmgilman/vfs/core"
	"go.uber.org/atomic"
)

// File is an open archive member: an independent decompression stream
// plus the member's central-directory metadata.
//
// A File is owned by its opener. Closing the owning ZipFS invalidates the
// handle: the next operation fails with fs.ErrClosed.
type File struct {
	owner  *ZipFS
	name   string
	rc     io.ReadCloser
	info   fs.FileInfo
	closed atomic.Bool
}

// guard rejects operations on handles whose own Close ran or whose owning
// archive was closed.
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
	return f.rc.Read(p)
}

// Write is not supported on archive members.
func (f *File) Write(_ []byte) (int, error) {
	if err := f.guard("write"); err != nil {
		return 0, err
	}
	return 0, core.PathError("write", f.name, core.ErrUnsupported)
}

// Stat returns the member's central-directory metadata.
func (f *File) Stat() (fs.FileInfo, error) {
	if err := f.guard("stat"); err != nil {
		return nil, err
	}
	return f.info, nil
}

// Close releases the decompression stream. Idempotent.
func (f *File) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.rc.Close()
}

// Name returns the member path within the archive.
func (f *File) Name() string {
	return f.name
}

// Compile-time interface checks.
var (
	_ core.File = (*File)(nil)
	_ fs.File   = (*File)(nil)
)
