// Package lazy provides a fork-tolerant wrapper around any core.FS.
//
// Backends with stateful native handles (HDFS clients, S3 sessions) are
// not safe to share across a forked child process. FS defers construction
// of the underlying filesystem to first use, records the process id at
// that moment, and transparently rebuilds the filesystem when a later
// operation observes a different pid. The cost is one reconstruction per
// first post-fork access; the wrapper never hides a constructor failure
// behind a stale or partially-initialized filesystem.
package lazy

import (
	"io/fs"
	"os"
	"sync"

	"github.com/jmgilman/vfs/core"
)

// FS wraps a filesystem constructor and rebuilds the filesystem whenever
// the process id changes. It implements core.FS by delegating every
// operation to the current underlying instance.
//
// FS is safe for concurrent use; delegated operations serialize only on
// the pid check and rebuild, not for the duration of backend I/O.
type FS struct {
	mu      sync.Mutex
	newFS   core.Constructor
	current core.FS
	pid     int // pid recorded when current was built; 0 while uninitialized
	closed  bool
	getpid  func() int
}

// Option configures the wrapper.
type Option func(*FS)

// WithPidFunc overrides how the wrapper observes the current process id.
// Intended for tests that simulate process duplication; production code
// should not need it.
func WithPidFunc(getpid func() int) Option {
	return func(l *FS) {
		l.getpid = getpid
	}
}

// New returns a fork-tolerant wrapper around newFS. The constructor is
// not invoked until the first delegated operation.
func New(newFS core.Constructor, opts ...Option) *FS {
	l := &FS{
		newFS:  newFS,
		getpid: os.Getpid,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// acquire returns the underlying filesystem, building or rebuilding it
// first when needed. Exactly one rebuild happens per observed pid change;
// concurrent callers racing on the same change see the rebuilt instance.
func (l *FS) acquire(op string) (core.FS, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, core.PathError(op, "", fs.ErrClosed)
	}

	pid := l.getpid()
	if l.current != nil && l.pid == pid {
		return l.current, nil
	}

	if l.current != nil {
		// Stale handle from the parent process. Closing it may touch
		// connection state the child does not own, so the result is
		// advisory only.
		_ = l.current.Close()
		l.current = nil
	}

	built, err := l.newFS()
	if err != nil {
		return nil, err
	}
	l.current = built
	l.pid = pid
	return built, nil
}

// Open opens the named file for reading.
func (l *FS) Open(name string) (fs.File, error) {
	target, err := l.acquire("open")
	if err != nil {
		return nil, err
	}
	return target.Open(name)
}

// Stat returns file metadata for the named file.
func (l *FS) Stat(name string) (fs.FileInfo, error) {
	target, err := l.acquire("stat")
	if err != nil {
		return nil, err
	}
	return target.Stat(name)
}

// ReadDir reads the named directory and returns its entries.
func (l *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	target, err := l.acquire("readdir")
	if err != nil {
		return nil, err
	}
	return target.ReadDir(name)
}

// ReadFile reads the named file and returns its contents.
func (l *FS) ReadFile(name string) ([]byte, error) {
	target, err := l.acquire("readfile")
	if err != nil {
		return nil, err
	}
	return target.ReadFile(name)
}

// Exists reports whether the named file or directory exists.
func (l *FS) Exists(name string) (bool, error) {
	target, err := l.acquire("exists")
	if err != nil {
		return false, err
	}
	return target.Exists(name)
}

// IsDir reports whether the named path exists and is a directory.
func (l *FS) IsDir(name string) (bool, error) {
	target, err := l.acquire("isdir")
	if err != nil {
		return false, err
	}
	return target.IsDir(name)
}

// Create creates or truncates the named file for writing.
func (l *FS) Create(name string) (core.File, error) {
	target, err := l.acquire("create")
	if err != nil {
		return nil, err
	}
	return target.Create(name)
}

// OpenFile opens a file with the specified flags and permissions.
func (l *FS) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	target, err := l.acquire("open")
	if err != nil {
		return nil, err
	}
	return target.OpenFile(name, flag, perm)
}

// WriteFile writes data to the named file, creating it if necessary.
func (l *FS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	target, err := l.acquire("writefile")
	if err != nil {
		return err
	}
	return target.WriteFile(name, data, perm)
}

// Mkdir creates a new directory with the specified name and permissions.
func (l *FS) Mkdir(name string, perm fs.FileMode) error {
	target, err := l.acquire("mkdir")
	if err != nil {
		return err
	}
	return target.Mkdir(name, perm)
}

// MkdirAll creates a directory path, including any necessary parents.
func (l *FS) MkdirAll(path string, perm fs.FileMode) error {
	target, err := l.acquire("mkdirall")
	if err != nil {
		return err
	}
	return target.MkdirAll(path, perm)
}

// Remove removes the named file or empty directory.
func (l *FS) Remove(name string) error {
	target, err := l.acquire("remove")
	if err != nil {
		return err
	}
	return target.Remove(name)
}

// RemoveAll removes path and any children it contains.
func (l *FS) RemoveAll(path string) error {
	target, err := l.acquire("removeall")
	if err != nil {
		return err
	}
	return target.RemoveAll(path)
}

// Rename renames (moves) oldpath to newpath.
func (l *FS) Rename(oldpath, newpath string) error {
	target, err := l.acquire("rename")
	if err != nil {
		return err
	}
	return target.Rename(oldpath, newpath)
}

// Walk walks the file tree rooted at root, calling walkFn for each entry.
func (l *FS) Walk(root string, walkFn fs.WalkDirFunc) error {
	target, err := l.acquire("walk")
	if err != nil {
		return err
	}
	return target.Walk(root, walkFn)
}

// Chroot returns a scoped view of the wrapped filesystem. The view itself
// is fork-tolerant: it narrows through the wrapper, so a post-fork rebuild
// also refreshes the filesystem the view delegates to.
func (l *FS) Chroot(dir string) (core.FS, error) {
	if _, err := l.acquire("chroot"); err != nil {
		return nil, err
	}
	sub, err := core.NewSubFS(l, dir)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Close closes the underlying filesystem, if one was ever built, and
// permanently invalidates the wrapper. Any further delegated operation
// fails with an error wrapping fs.ErrClosed. Idempotent.
func (l *FS) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.current == nil {
		return nil
	}
	target := l.current
	l.current = nil

	// A handle inherited from a parent process is not ours to tear down.
	if l.pid != l.getpid() {
		return nil
	}
	return target.Close()
}

// Type returns the type of the wrapped filesystem when it has been built,
// and FSTypeUnknown before first use. Type never triggers construction.
func (l *FS) Type() core.FSType {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return core.FSTypeUnknown
	}
	return l.current.Type()
}

// Compile-time interface check.
var _ core.FS = (*FS)(nil)
