package hdfs

import (
	"io"
	"io/fs"

	gohdfs "github.com/colinmarc/hdfs/v2"
	"github.com/jmgilman/vfs/core"
	"go.uber.org/atomic"
)

// File wraps an HDFS block stream to implement both core.File and
// fs.File. A handle is opened for either reading or writing, never both;
// HDFS files are write-once streams.
//
// A File is owned by its opener. Closing the owning HdfsFS invalidates
// the handle: the next operation fails with fs.ErrClosed.
type File struct {
	owner  *HdfsFS
	name   string
	reader *gohdfs.FileReader
	writer *gohdfs.FileWriter
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
	if f.reader == nil {
		return 0, core.PathError("read", f.name, fs.ErrInvalid)
	}
	return f.reader.Read(p)
}

// Write implements io.Writer (required by core.File).
func (f *File) Write(p []byte) (int, error) {
	if err := f.guard("write"); err != nil {
		return 0, err
	}
	if f.writer == nil {
		return 0, core.PathError("write", f.name, fs.ErrInvalid)
	}
	return f.writer.Write(p)
}

// Seek implements io.Seeker for read handles.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.guard("seek"); err != nil {
		return 0, err
	}
	if f.reader == nil {
		return 0, core.PathError("seek", f.name, core.ErrUnsupported)
	}
	return f.reader.Seek(offset, whence)
}

// ReadAt implements io.ReaderAt for read handles. The client serves each
// positioned read independently, so ReadAt does not disturb the stream
// position.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if err := f.guard("readat"); err != nil {
		return 0, err
	}
	if f.reader == nil {
		return 0, core.PathError("readat", f.name, core.ErrUnsupported)
	}
	return f.reader.ReadAt(p, off)
}

// Stat implements fs.File.Stat.
func (f *File) Stat() (fs.FileInfo, error) {
	if err := f.guard("stat"); err != nil {
		return nil, err
	}
	if f.reader != nil {
		return f.reader.Stat(), nil
	}
	return f.owner.Stat(f.name)
}

// Sync implements core.Syncer for write handles. HDFS acknowledges writes
// asynchronously; Flush forces the buffered data out to the datanodes.
func (f *File) Sync() error {
	if err := f.guard("sync"); err != nil {
		return err
	}
	if f.writer == nil {
		return nil
	}
	return f.writer.Flush()
}

// Close releases the underlying stream. For write handles, Close is the
// point where the last block is acknowledged; its error must be checked.
// Idempotent.
func (f *File) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	if f.reader != nil {
		return f.reader.Close()
	}
	if f.writer != nil {
		return f.writer.Close()
	}
	return nil
}

// Name returns the name provided to Open/Create.
func (f *File) Name() string {
	return f.name
}

// Compile-time interface checks.
var (
	_ core.File   = (*File)(nil)
	_ fs.File     = (*File)(nil)
	_ io.Seeker   = (*File)(nil)
	_ io.ReaderAt = (*File)(nil)
	_ core.Syncer = (*File)(nil)
)
