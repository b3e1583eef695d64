// Package vfs unifies access to heterogeneous storage backends behind
// one minimal resource-access interface, for data-loading pipelines that
// must not care where bytes physically live.
//
// A URL selects the backend and root:
//
//	filesystem, err := vfs.FromURL("s3://bucket/datasets")
//	filesystem, err := vfs.FromURL("hdfs://namenode/user/alice")
//	filesystem, err := vfs.FromURL("file:///data")
//	filesystem, err := vfs.FromURL("file:///data/shards.zip")
//
// The returned core.FS exposes the uniform capability contract; scoped
// sub-views come from Chroot, and the lazy wrapper (Lazify) makes any
// constructor safe to use across process forks.
//
// For one-shot access there is OpenURL:
//
//	f, err := vfs.OpenURL("s3://bucket/datasets/train.bin", os.O_RDONLY)
//	if err != nil { ... }
//	defer f.Close() // also releases the filesystem built for the URL
package vfs

import (
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jmgilman/vfs/billy"
	"github.com/jmgilman/vfs/core"
	"github.com/jmgilman/vfs/hdfs"
	"github.com/jmgilman/vfs/lazy"
	"github.com/jmgilman/vfs/s3"
	"github.com/jmgilman/vfs/zipfs"
)

// Locator is a parsed, scheme-qualified resource address. Locators are
// produced by Parse and never mutated.
type Locator struct {
	// Scheme selects the backend ("file", "mem", "s3", "hdfs").
	Scheme string
	// Authority is the optional host or bucket component.
	Authority string
	// Path is the slash-separated path component, cleaned but not yet
	// resolved against any filesystem root.
	Path string
}

// String reassembles the locator into URL form.
func (l Locator) String() string {
	s := l.Scheme + "://" + l.Authority
	if l.Path != "" && l.Path != "." {
		s += "/" + l.Path
	}
	return s
}

// Split separates the locator into its directory part and final path
// segment, for opening a single resource through a filesystem rooted at
// the directory.
func (l Locator) Split() (dir Locator, base string) {
	dir = l
	base = path.Base(l.Path)
	dir.Path = path.Dir(l.Path)
	if dir.Path == "." || dir.Path == "/" {
		dir.Path = ""
	}
	return dir, base
}

// Parse parses a raw URL into a Locator. A URL without a scheme is
// treated as a local path, matching the common case of plain filenames in
// pipeline configuration.
func Parse(rawurl string) (Locator, error) {
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return Locator{}, err
	}

	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "file"
	}

	return Locator{
		Scheme:    scheme,
		Authority: parsed.Host,
		Path:      core.Clean(parsed.Path),
	}, nil
}

// FromURL constructs a filesystem for the given URL, rooted at the
// locator's path. The scheme dispatches through the default registry;
// unregistered schemes fail with core.ErrUnsupportedScheme.
//
// A path ending in ".zip" yields a read-only view of the archive's member
// tree instead of the directory containing it. Closing that view also
// closes the filesystem the archive was opened through.
func FromURL(rawurl string) (core.FS, error) {
	loc, err := Parse(rawurl)
	if err != nil {
		return nil, err
	}
	return fromLocator(loc)
}

func fromLocator(loc Locator) (core.FS, error) {
	if strings.HasSuffix(loc.Path, ".zip") {
		dir, base := loc.Split()
		parent, err := fromLocator(dir)
		if err != nil {
			return nil, err
		}
		archive, err := zipfs.New(parent, base, zipfs.WithParentCloser(parent))
		if err != nil {
			_ = parent.Close()
			return nil, err
		}
		return archive, nil
	}

	ctor, err := defaultRegistry.Lookup(loc.Scheme)
	if err != nil {
		return nil, err
	}
	return ctor(loc)
}

// OpenURL opens the single resource named by the URL: it builds a
// filesystem for the URL's directory part and opens the final segment
// with the given flags (os.O_RDONLY for plain reads). The returned
// handle owns that filesystem; Close releases both.
func OpenURL(rawurl string, flag int) (core.File, error) {
	loc, err := Parse(rawurl)
	if err != nil {
		return nil, err
	}
	dir, base := loc.Split()

	filesystem, err := fromLocator(dir)
	if err != nil {
		return nil, err
	}

	f, err := filesystem.OpenFile(base, flag, 0666)
	if err != nil {
		_ = filesystem.Close()
		return nil, err
	}
	return &ownedFile{File: f, owner: filesystem}, nil
}

// Lazify wraps a filesystem constructor in the fork-tolerant wrapper:
// construction is deferred to first use and the filesystem is rebuilt
// transparently when a process-identity change is observed. Use it for
// backends whose native handles do not survive a fork (HDFS, S3).
func Lazify(ctor core.Constructor) core.FS {
	return lazy.New(ctor)
}

// ownedFile ties a one-shot filesystem's lifetime to the file opened
// from it.
type ownedFile struct {
	core.File
	owner core.FS
}

// Close closes the file, then the filesystem it was opened through,
// reporting both failures.
func (f *ownedFile) Close() error {
	var errs *multierror.Error
	if err := f.File.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := f.owner.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// Built-in backends. Additional schemes plug in through Register.
func init() {
	Register("file", func(loc Locator) (core.FS, error) {
		root := "/"
		if loc.Path != "" && loc.Path != "." {
			root = "/" + loc.Path
		}
		return billy.NewLocal(root), nil
	})

	Register("mem", func(loc Locator) (core.FS, error) {
		filesystem := billy.NewMemory()
		if loc.Path == "" || loc.Path == "." {
			return filesystem, nil
		}
		if err := filesystem.MkdirAll(loc.Path, 0755); err != nil {
			return nil, err
		}
		return filesystem.Chroot(loc.Path)
	})

	Register("s3", func(loc Locator) (core.FS, error) {
		cfg := s3.Config{
			Bucket:    loc.Authority,
			Prefix:    loc.Path,
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			UseSSL:    true,
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = "s3.amazonaws.com"
		} else if strings.HasPrefix(cfg.Endpoint, "http://") {
			cfg.Endpoint = strings.TrimPrefix(cfg.Endpoint, "http://")
			cfg.UseSSL = false
		} else {
			cfg.Endpoint = strings.TrimPrefix(cfg.Endpoint, "https://")
		}
		return s3.New(cfg)
	})

	Register("hdfs", func(loc Locator) (core.FS, error) {
		cfg := hdfs.Config{Root: "/" + loc.Path}
		if loc.Authority != "" {
			cfg.Addresses = []string{loc.Authority}
		}
		return hdfs.New(cfg)
	})
}

// Compile-time interface check.
var _ fs.File = (*ownedFile)(nil)
