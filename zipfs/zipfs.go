// Package zipfs provides a read-only core.FS view into a ZIP archive
// opened through any other core.FS.
//
// The archive's central directory is parsed once at construction; members
// are exposed as virtual files under their archived paths. Each opened
// member gets an independent decompression stream over a byte-range view
// of the archive, so concurrent reads of distinct members never disturb
// each other's position. When the parent file does not support ReadAt the
// archive is snapshotted into memory instead.
//
// All write operations fail with core.ErrUnsupported.
package zipfs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmgilman/vfs/core"
	kzip "github.com/klauspost/compress/zip"
	"go.uber.org/atomic"
)

// ZipFS implements core.FS over a single ZIP container.
//
//nolint:revive // ZipFS name is intentional to match naming pattern across fs implementations
type ZipFS struct {
	name    string // archive path within the parent, for error context
	archive *kzip.Reader
	members map[string]*kzip.File // member path -> central directory entry
	dirs    map[string]struct{}   // explicit and implied directories
	src     io.Closer             // archive handle kept open for range reads; nil when snapshotted
	parent  io.Closer             // optional owned parent filesystem
	closed  *atomic.Bool
}

// Option configures archive construction.
type Option func(*ZipFS)

// WithParentCloser ties the lifetime of the given closer (typically the
// filesystem the archive was opened from) to the archive view: Close
// closes both. Used by the URL resolver, which builds a throwaway parent
// per archive URL.
func WithParentCloser(c io.Closer) Option {
	return func(z *ZipFS) {
		z.parent = c
	}
}

// New opens the ZIP container at name within parent and parses its
// central directory. The parent file stays open for the lifetime of the
// view when it supports ReadAt; otherwise the whole container is read
// into memory up front and the file is closed immediately.
func New(parent core.ReadFS, name string, opts ...Option) (*ZipFS, error) {
	f, err := parent.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, core.PathError("open", name, err)
	}

	var (
		ra   io.ReaderAt
		size int64
		src  io.Closer
	)
	if readerAt, ok := f.(io.ReaderAt); ok {
		ra = readerAt
		size = info.Size()
		src = f
	} else {
		// No random access: snapshot the container.
		data, readErr := io.ReadAll(f)
		_ = f.Close()
		if readErr != nil {
			return nil, core.PathError("open", name, readErr)
		}
		ra = bytes.NewReader(data)
		size = int64(len(data))
	}

	archive, err := kzip.NewReader(ra, size)
	if err != nil {
		if src != nil {
			_ = src.Close()
		}
		return nil, core.PathError("open", name, fmt.Errorf("parsing zip: %w", err))
	}

	z := &ZipFS{
		name:    name,
		archive: archive,
		members: make(map[string]*kzip.File, len(archive.File)),
		dirs:    make(map[string]struct{}),
		src:     src,
		closed:  atomic.NewBool(false),
	}
	z.index()

	for _, opt := range opts {
		opt(z)
	}
	return z, nil
}

// index builds the member and directory lookup tables from the central
// directory. Directories exist both as explicit "x/" entries and as
// implied parents of member paths.
func (z *ZipFS) index() {
	for _, member := range z.archive.File {
		cleaned := core.Clean(member.Name)
		if cleaned == "." {
			continue
		}
		if strings.HasSuffix(member.Name, "/") {
			z.dirs[cleaned] = struct{}{}
		} else {
			z.members[cleaned] = member
		}
		for dir := path.Dir(cleaned); dir != "."; dir = path.Dir(dir) {
			z.dirs[dir] = struct{}{}
		}
	}
}

// resolve normalizes a caller path and enforces the closed state and the
// containment invariant.
func (z *ZipFS) resolve(op, name string) (string, error) {
	if z.closed.Load() {
		return "", core.PathError(op, name, fs.ErrClosed)
	}
	resolved, err := core.Resolve(name)
	if err != nil {
		return "", core.PathError(op, name, err)
	}
	return resolved, nil
}

// ReadFS interface implementation

// Open opens the named member for reading. Each call returns an
// independent decompression stream; handles from concurrent Opens do not
// share read position.
func (z *ZipFS) Open(name string) (fs.File, error) {
	resolved, err := z.resolve("open", name)
	if err != nil {
		return nil, err
	}
	member, ok := z.members[resolved]
	if !ok {
		if _, isDir := z.dirs[resolved]; isDir || resolved == "." {
			return nil, core.PathError("open", name, errors.New("is a directory"))
		}
		return nil, core.PathError("open", name, fs.ErrNotExist)
	}
	rc, err := member.Open()
	if err != nil {
		return nil, core.PathError("open", name, err)
	}
	return &File{owner: z, name: resolved, rc: rc, info: member.FileInfo()}, nil
}

// Stat returns metadata for the named member or directory.
func (z *ZipFS) Stat(name string) (fs.FileInfo, error) {
	resolved, err := z.resolve("stat", name)
	if err != nil {
		return nil, err
	}
	if member, ok := z.members[resolved]; ok {
		return member.FileInfo(), nil
	}
	if _, ok := z.dirs[resolved]; ok || resolved == "." {
		return &dirInfo{name: path.Base(resolved)}, nil
	}
	return nil, core.PathError("stat", name, fs.ErrNotExist)
}

// ReadDir lists the immediate children of the named directory, sorted by
// filename.
func (z *ZipFS) ReadDir(name string) ([]fs.DirEntry, error) {
	resolved, err := z.resolve("readdir", name)
	if err != nil {
		return nil, err
	}
	if _, ok := z.dirs[resolved]; !ok && resolved != "." {
		if _, isFile := z.members[resolved]; isFile {
			return nil, core.PathError("readdir", name, core.ErrNotDir)
		}
		return nil, core.PathError("readdir", name, fs.ErrNotExist)
	}

	prefix := ""
	if resolved != "." {
		prefix = resolved + "/"
	}

	var entries []fs.DirEntry
	seen := make(map[string]struct{})
	child := func(p string) (string, bool) {
		if !strings.HasPrefix(p, prefix) {
			return "", false
		}
		rest := p[len(prefix):]
		if rest == "" || strings.Contains(rest, "/") {
			return "", false
		}
		if _, dup := seen[rest]; dup {
			return "", false
		}
		seen[rest] = struct{}{}
		return rest, true
	}

	for p, member := range z.members {
		if _, ok := child(p); ok {
			entries = append(entries, fs.FileInfoToDirEntry(member.FileInfo()))
		}
	}
	for p := range z.dirs {
		if rel, ok := child(p); ok {
			entries = append(entries, fs.FileInfoToDirEntry(&dirInfo{name: rel}))
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

// ReadFile reads the named member and returns its contents.
func (z *ZipFS) ReadFile(name string) ([]byte, error) {
	f, err := z.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// Exists reports whether the named member or directory exists.
func (z *ZipFS) Exists(name string) (bool, error) {
	resolved, err := z.resolve("exists", name)
	if err != nil {
		return false, err
	}
	if resolved == "." {
		return true, nil
	}
	if _, ok := z.members[resolved]; ok {
		return true, nil
	}
	_, ok := z.dirs[resolved]
	return ok, nil
}

// IsDir reports whether the named path is a directory in the archive.
func (z *ZipFS) IsDir(name string) (bool, error) {
	resolved, err := z.resolve("isdir", name)
	if err != nil {
		return false, err
	}
	if resolved == "." {
		return true, nil
	}
	_, ok := z.dirs[resolved]
	return ok, nil
}

// WriteFS interface implementation. Archives are immutable views; every
// mutation fails with ErrUnsupported.

// Create is not supported on archive views.
func (z *ZipFS) Create(name string) (core.File, error) {
	return nil, core.PathError("create", name, core.ErrUnsupported)
}

// OpenFile supports only read access on archive views.
func (z *ZipFS) OpenFile(name string, flag int, _ fs.FileMode) (core.File, error) {
	if flag != 0 { // anything beyond O_RDONLY
		return nil, core.PathError("open", name, core.ErrUnsupported)
	}
	f, err := z.Open(name)
	if err != nil {
		return nil, err
	}
	return f.(core.File), nil
}

// WriteFile is not supported on archive views.
func (z *ZipFS) WriteFile(name string, _ []byte, _ fs.FileMode) error {
	return core.PathError("writefile", name, core.ErrUnsupported)
}

// Mkdir is not supported on archive views.
func (z *ZipFS) Mkdir(name string, _ fs.FileMode) error {
	return core.PathError("mkdir", name, core.ErrUnsupported)
}

// MkdirAll is not supported on archive views.
func (z *ZipFS) MkdirAll(dir string, _ fs.FileMode) error {
	return core.PathError("mkdirall", dir, core.ErrUnsupported)
}

// ManageFS interface implementation

// Remove is not supported on archive views.
func (z *ZipFS) Remove(name string) error {
	return core.PathError("remove", name, core.ErrUnsupported)
}

// RemoveAll is not supported on archive views.
func (z *ZipFS) RemoveAll(dir string) error {
	return core.PathError("removeall", dir, core.ErrUnsupported)
}

// Rename is not supported on archive views.
func (z *ZipFS) Rename(oldpath, _ string) error {
	return core.PathError("rename", oldpath, core.ErrUnsupported)
}

// WalkFS interface implementation

// Walk walks the member tree rooted at root, calling walkFn for each file
// or directory, including root.
func (z *ZipFS) Walk(root string, walkFn fs.WalkDirFunc) error {
	resolved, err := z.resolve("walk", root)
	if err != nil {
		return err
	}
	info, err := z.Stat(resolved)
	if err != nil {
		err = walkFn(resolved, nil, err)
	} else {
		err = z.walk(resolved, fs.FileInfoToDirEntry(info), walkFn)
	}
	if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (z *ZipFS) walk(dir string, d fs.DirEntry, walkFn fs.WalkDirFunc) error {
	if err := walkFn(dir, d, nil); err != nil || !d.IsDir() {
		if errors.Is(err, fs.SkipDir) && d.IsDir() {
			err = nil
		}
		return err
	}

	entries, err := z.ReadDir(dir)
	if err != nil {
		err = walkFn(dir, d, err)
		if err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err := z.walk(path.Join(dir, entry.Name()), entry, walkFn); err != nil {
			if errors.Is(err, fs.SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

// ChrootFS interface implementation

// Chroot returns a scoped view of the archive. The view shares the
// underlying container handle; closing the view leaves the archive open.
func (z *ZipFS) Chroot(dir string) (core.FS, error) {
	if z.closed.Load() {
		return nil, core.PathError("chroot", dir, fs.ErrClosed)
	}
	return core.NewSubFS(z, dir)
}

// Close releases the archive handle (and the owned parent filesystem, if
// any) and invalidates the view. Idempotent.
func (z *ZipFS) Close() error {
	if !z.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if z.src != nil {
		err = z.src.Close()
	}
	if z.parent != nil {
		if perr := z.parent.Close(); err == nil {
			err = perr
		}
	}
	return err
}

// Type returns FSTypeArchive for archive views.
func (z *ZipFS) Type() core.FSType {
	return core.FSTypeArchive
}

// dirInfo is the synthetic fs.FileInfo for directories, which have no
// central directory entry of their own (or only a marker entry).
type dirInfo struct {
	name string
}

func (d *dirInfo) Name() string       { return d.name }
func (d *dirInfo) Size() int64        { return 0 }
func (d *dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0755 }
func (d *dirInfo) ModTime() time.Time { return time.Time{} }
func (d *dirInfo) IsDir() bool        { return true }
func (d *dirInfo) Sys() interface{}   { return nil }

// Compile-time interface checks.
var (
	_ core.FS     = (*ZipFS)(nil)
	_ fs.FileInfo = (*dirInfo)(nil)
)
