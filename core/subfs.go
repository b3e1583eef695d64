package core

import (
	"io/fs"
	"strings"

	"go.uber.org/atomic"
)

// SubFS is a scoped view of a parent FS under an accumulated relative
// base path. It is the generic Chroot implementation for backends without
// a native scoped view (HDFS, archives): every operation resolves the
// caller's path against the base, rejects anything that would climb above
// it with ErrTraversal, and delegates to the parent with the prefixed
// path.
//
// A SubFS never mutates the parent. Closing a SubFS invalidates only the
// view itself; the parent and its backend connection stay open.
type SubFS struct {
	parent FS
	base   string // canonical form, "" for the parent root
	closed atomic.Bool
}

// NewSubFS returns a view of parent scoped to dir. dir is resolved
// against the parent root; a dir that climbs above it fails with
// ErrTraversal. NewSubFS does not require dir to exist, matching
// providers with virtual directories.
func NewSubFS(parent FS, dir string) (*SubFS, error) {
	base, err := Resolve(dir)
	if err != nil {
		return nil, PathError("chroot", dir, err)
	}
	if base == "." {
		base = ""
	}
	return &SubFS{parent: parent, base: base}, nil
}

// resolve maps a caller path to the parent's namespace, enforcing both
// the closed state and containment under the base.
func (s *SubFS) resolve(op, name string) (string, error) {
	if s.closed.Load() {
		return "", PathError(op, name, fs.ErrClosed)
	}
	full, err := Join(s.base, name)
	if err != nil {
		return "", PathError(op, name, err)
	}
	return full, nil
}

// Open opens the named file for reading via the parent.
func (s *SubFS) Open(name string) (fs.File, error) {
	full, err := s.resolve("open", name)
	if err != nil {
		return nil, err
	}
	return s.parent.Open(full)
}

// Stat returns file metadata for the named file.
func (s *SubFS) Stat(name string) (fs.FileInfo, error) {
	full, err := s.resolve("stat", name)
	if err != nil {
		return nil, err
	}
	return s.parent.Stat(full)
}

// ReadDir reads the named directory and returns its entries sorted by
// filename.
func (s *SubFS) ReadDir(name string) ([]fs.DirEntry, error) {
	full, err := s.resolve("readdir", name)
	if err != nil {
		return nil, err
	}
	return s.parent.ReadDir(full)
}

// ReadFile reads the named file and returns its contents.
func (s *SubFS) ReadFile(name string) ([]byte, error) {
	full, err := s.resolve("readfile", name)
	if err != nil {
		return nil, err
	}
	return s.parent.ReadFile(full)
}

// Exists reports whether the named file or directory exists.
func (s *SubFS) Exists(name string) (bool, error) {
	full, err := s.resolve("exists", name)
	if err != nil {
		return false, err
	}
	return s.parent.Exists(full)
}

// IsDir reports whether the named path exists and is a directory.
func (s *SubFS) IsDir(name string) (bool, error) {
	full, err := s.resolve("isdir", name)
	if err != nil {
		return false, err
	}
	return s.parent.IsDir(full)
}

// Create creates or truncates the named file for writing.
func (s *SubFS) Create(name string) (File, error) {
	full, err := s.resolve("create", name)
	if err != nil {
		return nil, err
	}
	return s.parent.Create(full)
}

// OpenFile opens a file with the specified flags and permissions.
func (s *SubFS) OpenFile(name string, flag int, perm fs.FileMode) (File, error) {
	full, err := s.resolve("open", name)
	if err != nil {
		return nil, err
	}
	return s.parent.OpenFile(full, flag, perm)
}

// WriteFile writes data to the named file, creating it if necessary.
func (s *SubFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	full, err := s.resolve("writefile", name)
	if err != nil {
		return err
	}
	return s.parent.WriteFile(full, data, perm)
}

// Mkdir creates a new directory with the specified name and permissions.
func (s *SubFS) Mkdir(name string, perm fs.FileMode) error {
	full, err := s.resolve("mkdir", name)
	if err != nil {
		return err
	}
	return s.parent.Mkdir(full, perm)
}

// MkdirAll creates a directory path, including any necessary parents.
func (s *SubFS) MkdirAll(path string, perm fs.FileMode) error {
	full, err := s.resolve("mkdirall", path)
	if err != nil {
		return err
	}
	return s.parent.MkdirAll(full, perm)
}

// Remove removes the named file or empty directory.
func (s *SubFS) Remove(name string) error {
	full, err := s.resolve("remove", name)
	if err != nil {
		return err
	}
	return s.parent.Remove(full)
}

// RemoveAll removes path and any children it contains.
func (s *SubFS) RemoveAll(path string) error {
	full, err := s.resolve("removeall", path)
	if err != nil {
		return err
	}
	return s.parent.RemoveAll(full)
}

// Rename renames (moves) oldpath to newpath. Both paths are resolved
// against the base; either escaping fails the whole operation.
func (s *SubFS) Rename(oldpath, newpath string) error {
	oldFull, err := s.resolve("rename", oldpath)
	if err != nil {
		return err
	}
	newFull, err := s.resolve("rename", newpath)
	if err != nil {
		return err
	}
	return s.parent.Rename(oldFull, newFull)
}

// Walk walks the file tree rooted at root, calling walkFn for each file
// or directory. Paths reported to walkFn are the caller's, not the
// parent's: the base prefix is stripped before walkFn sees them.
func (s *SubFS) Walk(root string, walkFn fs.WalkDirFunc) error {
	full, err := s.resolve("walk", root)
	if err != nil {
		return err
	}
	return s.parent.Walk(full, func(p string, d fs.DirEntry, walkErr error) error {
		return walkFn(s.trimBase(p), d, walkErr)
	})
}

// trimBase converts a parent-namespace path back into this view's
// namespace.
func (s *SubFS) trimBase(p string) string {
	if s.base == "" {
		return p
	}
	if p == s.base {
		return "."
	}
	return strings.TrimPrefix(p, s.base+"/")
}

// Chroot narrows the view further. The accumulated base makes the
// composition associative: s.Chroot(a) then Chroot(b) yields the same
// effective root as s.Chroot(path.Join(a, b)).
func (s *SubFS) Chroot(dir string) (FS, error) {
	full, err := s.resolve("chroot", dir)
	if err != nil {
		return nil, err
	}
	return NewSubFS(s.parent, full)
}

// Close invalidates the view. The parent is left open regardless of how
// many views were taken from it. Idempotent.
func (s *SubFS) Close() error {
	s.closed.Store(true)
	return nil
}

// Type returns the parent's filesystem type.
func (s *SubFS) Type() FSType {
	return s.parent.Type()
}

// Compile-time interface check.
var _ FS = (*SubFS)(nil)
