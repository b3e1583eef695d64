package hdfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/cenkalti/backoff/v4"
	gohdfs "github.com/colinmarc/hdfs/v2"
	"github.com/jmgilman/vfs/core"
	"go.uber.org/atomic"
)

// HdfsFS implements core.FS against an HDFS namenode.
//
//nolint:revive // HdfsFS name is intentional to match naming pattern across fs implementations
type HdfsFS struct {
	client *gohdfs.Client
	root   string // absolute HDFS path all operations are rooted under
	owned  bool   // whether Close should tear down the client
	closed *atomic.Bool
}

// New creates an HDFS-backed filesystem. The initial namenode dial is
// retried with exponential backoff up to Config.DialAttempts; a
// pre-configured Client skips dialing entirely.
func New(cfg Config) (*HdfsFS, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := cfg.Client
	owned := false
	if client == nil {
		username, err := cfg.username()
		if err != nil {
			return nil, err
		}

		attempts := cfg.DialAttempts
		if attempts <= 0 {
			attempts = 3
		}

		dial := func() error {
			c, dialErr := gohdfs.NewClient(gohdfs.ClientOptions{
				Addresses: cfg.Addresses,
				User:      username,
			})
			if dialErr != nil {
				return dialErr
			}
			client = c
			return nil
		}
		policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(attempts-1))
		if err := backoff.Retry(dial, policy); err != nil {
			return nil, fmt.Errorf("connecting to namenode: %w", err)
		}
		owned = true
	}

	root := "/"
	if cfg.Root != "" {
		root = path.Join("/", core.Clean(cfg.Root))
	}

	return &HdfsFS{
		client: client,
		root:   root,
		owned:  owned,
		closed: atomic.NewBool(false),
	}, nil
}

// abs maps a caller path to an absolute HDFS path, enforcing the closed
// state and the containment invariant before any RPC.
func (h *HdfsFS) abs(op, name string) (string, error) {
	if h.closed.Load() {
		return "", core.PathError(op, name, fs.ErrClosed)
	}
	resolved, err := core.Resolve(name)
	if err != nil {
		return "", core.PathError(op, name, err)
	}
	if resolved == "." {
		return h.root, nil
	}
	return path.Join(h.root, resolved), nil
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
// The returned file supports Seek and ReadAt over the block stream.
func (h *HdfsFS) Open(name string) (fs.File, error) {
	full, err := h.abs("open", name)
	if err != nil {
		return nil, err
	}
	reader, err := h.client.Open(full)
	if err != nil {
		return nil, err
	}
	return &File{owner: h, name: name, reader: reader}, nil
}

// Stat returns file metadata for the named file.
func (h *HdfsFS) Stat(name string) (fs.FileInfo, error) {
	full, err := h.abs("stat", name)
	if err != nil {
		return nil, err
	}
	return h.client.Stat(full)
}

// ReadDir reads the named directory and returns its entries sorted by
// filename.
func (h *HdfsFS) ReadDir(name string) ([]fs.DirEntry, error) {
	full, err := h.abs("readdir", name)
	if err != nil {
		return nil, err
	}
	infos, err := h.client.ReadDir(full)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = &dirEntry{info: info}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

// ReadFile reads the named file and returns its contents.
func (h *HdfsFS) ReadFile(name string) ([]byte, error) {
	full, err := h.abs("readfile", name)
	if err != nil {
		return nil, err
	}
	return h.client.ReadFile(full)
}

// Exists reports whether the named file or directory exists.
func (h *HdfsFS) Exists(name string) (bool, error) {
	full, err := h.abs("exists", name)
	if err != nil {
		return false, err
	}
	_, err = h.client.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsDir reports whether the named path exists and is a directory.
func (h *HdfsFS) IsDir(name string) (bool, error) {
	full, err := h.abs("isdir", name)
	if err != nil {
		return false, err
	}
	info, err := h.client.Stat(full)
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
func (h *HdfsFS) Create(name string) (core.File, error) {
	return h.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
}

// OpenFile opens a file with the specified flags.
// Supported flags: O_RDONLY, O_WRONLY|O_CREATE (with optional O_TRUNC or
// O_APPEND). O_RDWR is not supported: HDFS files are write-once streams.
func (h *HdfsFS) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	if flag&os.O_RDWR != 0 {
		return nil, core.PathError("open", name, fmt.Errorf("%w: O_RDWR not supported in HDFS", core.ErrUnsupported))
	}

	full, err := h.abs("open", name)
	if err != nil {
		return nil, err
	}

	// Read mode
	if flag&(os.O_WRONLY|os.O_CREATE|os.O_APPEND) == 0 {
		reader, err := h.client.Open(full)
		if err != nil {
			return nil, err
		}
		return &File{owner: h, name: name, reader: reader}, nil
	}

	if flag&os.O_APPEND != 0 {
		writer, err := h.client.Append(full)
		if err != nil {
			return nil, err
		}
		return &File{owner: h, name: name, writer: writer}, nil
	}

	// HDFS creation fails on an existing file, which already gives O_EXCL
	// semantics; O_TRUNC removes the old file first.
	if flag&os.O_TRUNC != 0 {
		if err := h.client.Remove(full); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	writer, err := h.client.CreateFile(full, 3, 128*1024*1024, perm)
	if err != nil {
		return nil, err
	}
	return &File{owner: h, name: name, writer: writer}, nil
}

// WriteFile writes data to the named file, creating it if necessary.
func (h *HdfsFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	f, err := h.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Close()
}

// Mkdir creates a new directory with the specified name and permissions.
func (h *HdfsFS) Mkdir(name string, perm fs.FileMode) error {
	full, err := h.abs("mkdir", name)
	if err != nil {
		return err
	}
	return h.client.Mkdir(full, perm)
}

// MkdirAll creates a directory path, including any necessary parents.
func (h *HdfsFS) MkdirAll(dir string, perm fs.FileMode) error {
	full, err := h.abs("mkdirall", dir)
	if err != nil {
		return err
	}
	return h.client.MkdirAll(full, perm)
}

// ManageFS interface implementation

// Remove removes the named file or empty directory.
func (h *HdfsFS) Remove(name string) error {
	full, err := h.abs("remove", name)
	if err != nil {
		return err
	}
	info, err := h.client.Stat(full)
	if err != nil {
		return err
	}
	if info.IsDir() {
		entries, err := h.client.ReadDir(full)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return core.PathError("remove", name, fmt.Errorf("directory not empty"))
		}
	}
	return h.client.Remove(full)
}

// RemoveAll removes path and any children it contains.
func (h *HdfsFS) RemoveAll(dir string) error {
	full, err := h.abs("removeall", dir)
	if err != nil {
		return err
	}
	if err := h.client.RemoveAll(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Rename renames (moves) oldpath to newpath.
func (h *HdfsFS) Rename(oldpath, newpath string) error {
	oldFull, err := h.abs("rename", oldpath)
	if err != nil {
		return err
	}
	newFull, err := h.abs("rename", newpath)
	if err != nil {
		return err
	}
	return h.client.Rename(oldFull, newFull)
}

// WalkFS interface implementation

// Walk walks the file tree rooted at root, calling walkFn for each file or
// directory in the tree, including root.
func (h *HdfsFS) Walk(root string, walkFn fs.WalkDirFunc) error {
	resolved, err := core.Resolve(root)
	if err != nil {
		return core.PathError("walk", root, err)
	}
	info, err := h.Stat(resolved)
	if err != nil {
		err = walkFn(resolved, nil, err)
	} else {
		err = h.walk(resolved, &dirEntry{info: info}, walkFn)
	}
	if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (h *HdfsFS) walk(dir string, d fs.DirEntry, walkFn fs.WalkDirFunc) error {
	if err := walkFn(dir, d, nil); err != nil || !d.IsDir() {
		if errors.Is(err, fs.SkipDir) && d.IsDir() {
			err = nil
		}
		return err
	}

	entries, err := h.ReadDir(dir)
	if err != nil {
		err = walkFn(dir, d, err)
		if err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err := h.walk(path.Join(dir, entry.Name()), entry, walkFn); err != nil {
			if errors.Is(err, fs.SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

// ChrootFS interface implementation

// Chroot returns a scoped view of the filesystem. The view shares the
// client connection; closing the view leaves the connection open.
func (h *HdfsFS) Chroot(dir string) (core.FS, error) {
	if h.closed.Load() {
		return nil, core.PathError("chroot", dir, fs.ErrClosed)
	}
	return core.NewSubFS(h, dir)
}

// Close tears down the namenode connection when this instance owns it,
// and invalidates the filesystem either way. Idempotent.
func (h *HdfsFS) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !h.owned {
		return nil
	}
	return h.client.Close()
}

// Type returns FSTypeRemote for HDFS filesystem implementations.
func (h *HdfsFS) Type() core.FSType {
	return core.FSTypeRemote
}

// Compile-time interface check.
var _ core.FS = (*HdfsFS)(nil)
