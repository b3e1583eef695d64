package billy

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/jmgilman/vfs/core"
	"go.uber.org/atomic"
)

// FS adapts a billy.Filesystem to core.FS. The same adapter serves both
// the local (osfs) and in-memory (memfs) variants; only the reported
// FSType differs.
type FS struct {
	bfs    billy.Filesystem
	typ    core.FSType
	closed *atomic.Bool
}

// NewLocal creates a local filesystem rooted at the given directory.
// Operations cannot reach outside root: billy's osfs enforces the OS-level
// boundary and the adapter rejects traversal attempts up front with
// core.ErrTraversal.
func NewLocal(root string) *FS {
	return &FS{
		bfs:    osfs.New(root),
		typ:    core.FSTypeLocal,
		closed: atomic.NewBool(false),
	}
}

// NewMemory creates an in-memory filesystem. The filesystem is initially
// empty.
func NewMemory() *FS {
	return &FS{
		bfs:    memfs.New(),
		typ:    core.FSTypeMemory,
		closed: atomic.NewBool(false),
	}
}

// Unwrap returns the underlying billy.Filesystem for integration with
// libraries that require one.
func (b *FS) Unwrap() billy.Filesystem {
	return b.bfs
}

// resolve normalizes a caller path and enforces the closed state and the
// containment invariant before any billy call.
func (b *FS) resolve(op, name string) (string, error) {
	if b.closed.Load() {
		return "", core.PathError(op, name, fs.ErrClosed)
	}
	resolved, err := core.Resolve(name)
	if err != nil {
		return "", core.PathError(op, name, err)
	}
	return resolved, nil
}

// dirEntry wraps fs.FileInfo to implement fs.DirEntry.
type dirEntry struct {
	info fs.FileInfo
}

func (d *dirEntry) Name() string               { return d.info.Name() }
func (d *dirEntry) IsDir() bool                { return d.info.IsDir() }
func (d *dirEntry) Type() fs.FileMode          { return d.info.Mode().Type() }
func (d *dirEntry) Info() (fs.FileInfo, error) { return d.info, nil }

// ReadFS interface implementation

// Open opens the named file for reading.
// Returns a File that also implements fs.File.
func (b *FS) Open(name string) (fs.File, error) {
	resolved, err := b.resolve("open", name)
	if err != nil {
		return nil, err
	}
	f, err := b.bfs.Open(resolved)
	if err != nil {
		return nil, err
	}
	return &File{file: f, owner: b, name: resolved}, nil
}

// Stat returns file metadata for the named file.
func (b *FS) Stat(name string) (fs.FileInfo, error) {
	resolved, err := b.resolve("stat", name)
	if err != nil {
		return nil, err
	}
	return b.bfs.Stat(resolved)
}

// ReadDir reads the directory named by dirname and returns
// a list of directory entries sorted by filename.
func (b *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	resolved, err := b.resolve("readdir", name)
	if err != nil {
		return nil, err
	}
	// Billy's ReadDir returns []fs.FileInfo, we need to convert to []fs.DirEntry
	infos, err := b.bfs.ReadDir(resolved)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = &dirEntry{info: info}
	}
	return entries, nil
}

// ReadFile reads the named file and returns its contents.
func (b *FS) ReadFile(name string) ([]byte, error) {
	resolved, err := b.resolve("readfile", name)
	if err != nil {
		return nil, err
	}
	f, err := b.bfs.Open(resolved)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// Exists reports whether the named file or directory exists.
func (b *FS) Exists(name string) (bool, error) {
	resolved, err := b.resolve("exists", name)
	if err != nil {
		return false, err
	}
	_, err = b.bfs.Stat(resolved)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsDir reports whether the named path exists and is a directory.
func (b *FS) IsDir(name string) (bool, error) {
	resolved, err := b.resolve("isdir", name)
	if err != nil {
		return false, err
	}
	info, err := b.bfs.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// WriteFS interface implementation

// Create creates or truncates the named file for writing.
// Returns a File that also implements fs.File.
func (b *FS) Create(name string) (core.File, error) {
	resolved, err := b.resolve("create", name)
	if err != nil {
		return nil, err
	}
	f, err := b.bfs.Create(resolved)
	if err != nil {
		return nil, err
	}
	return &File{file: f, owner: b, name: resolved}, nil
}

// OpenFile opens a file with the specified flags and permissions.
func (b *FS) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	resolved, err := b.resolve("open", name)
	if err != nil {
		return nil, err
	}
	f, err := b.bfs.OpenFile(resolved, flag, perm)
	if err != nil {
		return nil, err
	}
	return &File{file: f, owner: b, name: resolved}, nil
}

// WriteFile writes data to the named file, creating it if necessary.
func (b *FS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	resolved, err := b.resolve("writefile", name)
	if err != nil {
		return err
	}
	f, err := b.bfs.OpenFile(resolved, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = f.Write(data)
	return err
}

// Mkdir creates a new directory with the specified name and permission bits.
// Unlike MkdirAll, this will fail if the parent directory does not exist.
func (b *FS) Mkdir(name string, perm fs.FileMode) error {
	resolved, err := b.resolve("mkdir", name)
	if err != nil {
		return err
	}
	// Billy only exposes MkdirAll, so enforce Mkdir semantics here.
	if _, err := b.bfs.Stat(resolved); err == nil {
		return os.ErrExist
	}
	parent := path.Dir(resolved)
	if parent != "." && parent != "/" {
		if _, err := b.bfs.Stat(parent); err != nil {
			return err // Parent doesn't exist
		}
	}
	// MkdirAll won't create parents since we verified the parent exists.
	return b.bfs.MkdirAll(resolved, perm)
}

// MkdirAll creates a directory named path, along with any necessary parents.
func (b *FS) MkdirAll(dir string, perm fs.FileMode) error {
	resolved, err := b.resolve("mkdirall", dir)
	if err != nil {
		return err
	}
	return b.bfs.MkdirAll(resolved, perm)
}

// ManageFS interface implementation

// Remove removes the named file or empty directory.
func (b *FS) Remove(name string) error {
	resolved, err := b.resolve("remove", name)
	if err != nil {
		return err
	}
	return b.bfs.Remove(resolved)
}

// RemoveAll removes path and any children it contains.
func (b *FS) RemoveAll(dir string) error {
	resolved, err := b.resolve("removeall", dir)
	if err != nil {
		return err
	}
	return b.removeAll(resolved)
}

// removeAll implements recursive removal; billy has no RemoveAll of its own.
func (b *FS) removeAll(dir string) error {
	info, err := b.bfs.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // RemoveAll returns nil if path doesn't exist
		}
		return err
	}

	if !info.IsDir() {
		return b.bfs.Remove(dir)
	}

	entries, err := b.bfs.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := b.removeAll(path.Join(dir, entry.Name())); err != nil {
			return err
		}
	}

	return b.bfs.Remove(dir)
}

// Rename renames (moves) oldpath to newpath.
func (b *FS) Rename(oldpath, newpath string) error {
	oldResolved, err := b.resolve("rename", oldpath)
	if err != nil {
		return err
	}
	newResolved, err := b.resolve("rename", newpath)
	if err != nil {
		return err
	}
	return b.bfs.Rename(oldResolved, newResolved)
}

// WalkFS interface implementation

// Walk walks the file tree rooted at root, calling walkFn for each file or
// directory in the tree, including root.
func (b *FS) Walk(root string, walkFn fs.WalkDirFunc) error {
	resolved, err := b.resolve("walk", root)
	if err != nil {
		return err
	}
	info, err := b.bfs.Stat(resolved)
	if err != nil {
		err = walkFn(resolved, nil, err)
	} else {
		err = b.walk(resolved, &dirEntry{info: info}, walkFn)
	}
	if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (b *FS) walk(dir string, d fs.DirEntry, walkFn fs.WalkDirFunc) error {
	if err := walkFn(dir, d, nil); err != nil || !d.IsDir() {
		if errors.Is(err, fs.SkipDir) && d.IsDir() {
			err = nil
		}
		return err
	}

	entries, err := b.bfs.ReadDir(dir)
	if err != nil {
		err = walkFn(dir, d, err)
		if err != nil {
			return err
		}
	}

	for _, entry := range entries {
		newPath := path.Join(dir, entry.Name())
		if err := b.walk(newPath, &dirEntry{info: entry}, walkFn); err != nil {
			if errors.Is(err, fs.SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

// ChrootFS interface implementation

// Chroot returns a filesystem scoped to the given directory. The view is
// a new instance with its own lifecycle; closing it leaves the parent
// open.
func (b *FS) Chroot(dir string) (core.FS, error) {
	resolved, err := b.resolve("chroot", dir)
	if err != nil {
		return nil, err
	}
	chrootFS, err := b.bfs.Chroot(resolved)
	if err != nil {
		return nil, err
	}
	return &FS{
		bfs:    chrootFS,
		typ:    b.typ,
		closed: atomic.NewBool(false),
	}, nil
}

// Close invalidates the filesystem and every outstanding File it has
// produced. Local filesystems hold no backend connection, so Close only
// flips the lifecycle state. Idempotent.
func (b *FS) Close() error {
	b.closed.Store(true)
	return nil
}

// Type returns the filesystem type (local or memory).
func (b *FS) Type() core.FSType {
	return b.typ
}

// Compile-time interface check.
var _ core.FS = (*FS)(nil)
