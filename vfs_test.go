package vfs

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmgilman/vfs/billy"
	"github.com/jmgilman/vfs/core"
	kzip "github.com/klauspost/compress/zip"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Locator
	}{
		{
			name: "s3 url",
			url:  "s3://bucket/datasets/train",
			want: Locator{Scheme: "s3", Authority: "bucket", Path: "datasets/train"},
		},
		{
			name: "s3 bucket only",
			url:  "s3://bucket",
			want: Locator{Scheme: "s3", Authority: "bucket", Path: "."},
		},
		{
			name: "hdfs url",
			url:  "hdfs://namenode:8020/user/alice",
			want: Locator{Scheme: "hdfs", Authority: "namenode:8020", Path: "user/alice"},
		},
		{
			name: "file url",
			url:  "file:///data/shards",
			want: Locator{Scheme: "file", Authority: "", Path: "data/shards"},
		},
		{
			name: "trailing slash stripped",
			url:  "file:///data/shards/",
			want: Locator{Scheme: "file", Authority: "", Path: "data/shards"},
		},
		{
			name: "bare path defaults to file",
			url:  "/data/train.bin",
			want: Locator{Scheme: "file", Authority: "", Path: "data/train.bin"},
		},
		{
			name: "relative path defaults to file",
			url:  "data/train.bin",
			want: Locator{Scheme: "file", Authority: "", Path: "data/train.bin"},
		},
		{
			name: "mem url",
			url:  "mem://",
			want: Locator{Scheme: "mem", Authority: "", Path: "."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.url)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestLocatorString(t *testing.T) {
	tests := []struct {
		loc  Locator
		want string
	}{
		{Locator{Scheme: "s3", Authority: "bucket", Path: "data"}, "s3://bucket/data"},
		{Locator{Scheme: "s3", Authority: "bucket", Path: "."}, "s3://bucket"},
		{Locator{Scheme: "file", Authority: "", Path: "data/x"}, "file:///data/x"},
	}

	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestLocatorSplit(t *testing.T) {
	tests := []struct {
		name     string
		loc      Locator
		wantDir  string
		wantBase string
	}{
		{
			name:     "nested path",
			loc:      Locator{Scheme: "s3", Authority: "bucket", Path: "data/train.bin"},
			wantDir:  "data",
			wantBase: "train.bin",
		},
		{
			name:     "top-level path",
			loc:      Locator{Scheme: "file", Path: "train.bin"},
			wantDir:  "",
			wantBase: "train.bin",
		},
		{
			name:     "deep path",
			loc:      Locator{Scheme: "hdfs", Authority: "nn", Path: "a/b/c.txt"},
			wantDir:  "a/b",
			wantBase: "c.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, base := tt.loc.Split()
			if dir.Path != tt.wantDir {
				t.Errorf("dir path = %q, want %q", dir.Path, tt.wantDir)
			}
			if base != tt.wantBase {
				t.Errorf("base = %q, want %q", base, tt.wantBase)
			}
			if dir.Scheme != tt.loc.Scheme || dir.Authority != tt.loc.Authority {
				t.Errorf("Split changed scheme or authority: %+v", dir)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Run("register and lookup", func(t *testing.T) {
		r := NewRegistry()
		r.Register("test", func(loc Locator) (core.FS, error) {
			return billy.NewMemory(), nil
		})

		ctor, err := r.Lookup("test")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		filesystem, err := ctor(Locator{Scheme: "test"})
		if err != nil {
			t.Fatalf("constructor failed: %v", err)
		}
		defer filesystem.Close()
		if filesystem.Type() != core.FSTypeMemory {
			t.Errorf("Type() = %v, want FSTypeMemory", filesystem.Type())
		}
	})

	t.Run("unknown scheme", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Lookup("bogus")
		if !errors.Is(err, core.ErrUnsupportedScheme) {
			t.Errorf("Lookup(bogus) = %v, want ErrUnsupportedScheme", err)
		}
	})

	t.Run("register replaces", func(t *testing.T) {
		r := NewRegistry()
		r.Register("x", func(loc Locator) (core.FS, error) { return nil, errors.New("first") })
		r.Register("x", func(loc Locator) (core.FS, error) { return nil, errors.New("second") })

		ctor, err := r.Lookup("x")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if _, err := ctor(Locator{}); err == nil || err.Error() != "second" {
			t.Errorf("got %v, want the replacing constructor", err)
		}
	})

	t.Run("schemes sorted", func(t *testing.T) {
		r := NewRegistry()
		nop := func(loc Locator) (core.FS, error) { return nil, nil }
		r.Register("zeta", nop)
		r.Register("alpha", nop)
		r.Register("mid", nop)

		schemes := r.Schemes()
		want := []string{"alpha", "mid", "zeta"}
		if len(schemes) != len(want) {
			t.Fatalf("Schemes() = %v, want %v", schemes, want)
		}
		for i := range want {
			if schemes[i] != want[i] {
				t.Fatalf("Schemes() = %v, want %v", schemes, want)
			}
		}
	})
}

func TestFromURL(t *testing.T) {
	t.Run("memory filesystem", func(t *testing.T) {
		filesystem, err := FromURL("mem://")
		if err != nil {
			t.Fatalf("FromURL failed: %v", err)
		}
		defer filesystem.Close()

		if filesystem.Type() != core.FSTypeMemory {
			t.Errorf("Type() = %v, want FSTypeMemory", filesystem.Type())
		}

		if err := filesystem.WriteFile("hello.txt", []byte("hi"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		data, err := filesystem.ReadFile("hello.txt")
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if string(data) != "hi" {
			t.Errorf("ReadFile = %q, want %q", data, "hi")
		}
	})

	t.Run("memory filesystem with path", func(t *testing.T) {
		filesystem, err := FromURL("mem:///staging/area")
		if err != nil {
			t.Fatalf("FromURL failed: %v", err)
		}
		defer filesystem.Close()

		if err := filesystem.WriteFile("scoped.txt", []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if _, err := filesystem.ReadFile("scoped.txt"); err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
	})

	t.Run("local filesystem", func(t *testing.T) {
		dir := t.TempDir()
		filesystem, err := FromURL("file://" + dir)
		if err != nil {
			t.Fatalf("FromURL failed: %v", err)
		}
		defer filesystem.Close()

		if filesystem.Type() != core.FSTypeLocal {
			t.Errorf("Type() = %v, want FSTypeLocal", filesystem.Type())
		}

		if err := filesystem.WriteFile("probe.txt", []byte("local"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		data, err := os.ReadFile(filepath.Join(dir, "probe.txt"))
		if err != nil {
			t.Fatalf("reading through the OS failed: %v", err)
		}
		if string(data) != "local" {
			t.Errorf("content = %q, want %q", data, "local")
		}
	})

	t.Run("unknown scheme", func(t *testing.T) {
		_, err := FromURL("gopher://hole")
		if !errors.Is(err, core.ErrUnsupportedScheme) {
			t.Errorf("FromURL = %v, want ErrUnsupportedScheme", err)
		}
	})
}

// writeArchive writes a zip archive with the given members to path.
func writeArchive(t *testing.T, path string, members map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := kzip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating member %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing archive file: %v", err)
	}
}

func TestFromURLArchive(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, filepath.Join(dir, "shards.zip"), map[string]string{
		"meta.json":       `{"n":2}`,
		"data/shard0.bin": "zero",
		"data/shard1.bin": "one",
	})

	t.Run("zip path yields archive view", func(t *testing.T) {
		filesystem, err := FromURL("file://" + dir + "/shards.zip")
		if err != nil {
			t.Fatalf("FromURL failed: %v", err)
		}
		defer filesystem.Close()

		if filesystem.Type() != core.FSTypeArchive {
			t.Errorf("Type() = %v, want FSTypeArchive", filesystem.Type())
		}

		data, err := filesystem.ReadFile("data/shard1.bin")
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if string(data) != "one" {
			t.Errorf("member content = %q, want %q", data, "one")
		}

		if err := filesystem.WriteFile("new.txt", []byte("x"), 0644); !errors.Is(err, core.ErrUnsupported) {
			t.Errorf("WriteFile = %v, want ErrUnsupported", err)
		}
	})

	t.Run("bare zip path works without scheme", func(t *testing.T) {
		filesystem, err := FromURL(filepath.Join(dir, "shards.zip"))
		if err != nil {
			t.Fatalf("FromURL failed: %v", err)
		}
		defer filesystem.Close()

		if ok, err := filesystem.Exists("meta.json"); err != nil || !ok {
			t.Errorf("Exists(meta.json) = %v, %v, want true", ok, err)
		}
	})

	t.Run("missing archive fails", func(t *testing.T) {
		_, err := FromURL("file://" + dir + "/absent.zip")
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("FromURL = %v, want ErrNotExist", err)
		}
	})
}

func TestOpenURL(t *testing.T) {
	t.Run("read existing file", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "in.txt"), []byte("payload"), 0644); err != nil {
			t.Fatalf("seeding file: %v", err)
		}

		f, err := OpenURL("file://"+dir+"/in.txt", os.O_RDONLY)
		if err != nil {
			t.Fatalf("OpenURL failed: %v", err)
		}

		data, err := io.ReadAll(f)
		if err != nil {
			t.Fatalf("reading failed: %v", err)
		}
		if string(data) != "payload" {
			t.Errorf("content = %q, want %q", data, "payload")
		}

		if err := f.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := f.Close(); err != nil {
			t.Errorf("second Close = %v, want nil", err)
		}
	})

	t.Run("create and write", func(t *testing.T) {
		dir := t.TempDir()

		f, err := OpenURL("file://"+dir+"/out.txt", os.O_WRONLY|os.O_CREATE)
		if err != nil {
			t.Fatalf("OpenURL failed: %v", err)
		}
		if _, err := f.Write([]byte("written")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
		if err != nil {
			t.Fatalf("reading through the OS failed: %v", err)
		}
		if string(data) != "written" {
			t.Errorf("content = %q, want %q", data, "written")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		dir := t.TempDir()
		_, err := OpenURL("file://"+dir+"/absent.txt", os.O_RDONLY)
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("OpenURL = %v, want ErrNotExist", err)
		}
	})

	t.Run("member inside archive", func(t *testing.T) {
		dir := t.TempDir()
		writeArchive(t, filepath.Join(dir, "bundle.zip"), map[string]string{
			"inner.txt": "from the archive",
		})

		f, err := OpenURL("file://"+dir+"/bundle.zip/inner.txt", os.O_RDONLY)
		if err != nil {
			t.Fatalf("OpenURL failed: %v", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			t.Fatalf("reading failed: %v", err)
		}
		if string(data) != "from the archive" {
			t.Errorf("content = %q, want %q", data, "from the archive")
		}
	})
}

func TestLazify(t *testing.T) {
	var builds int
	filesystem := Lazify(func() (core.FS, error) {
		builds++
		inner := billy.NewMemory()
		if err := inner.WriteFile("seed.txt", []byte("seeded"), 0644); err != nil {
			return nil, err
		}
		return inner, nil
	})
	defer filesystem.Close()

	if builds != 0 {
		t.Fatalf("constructor ran before first use")
	}

	data, err := filesystem.ReadFile("seed.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "seeded" {
		t.Errorf("content = %q, want %q", data, "seeded")
	}
	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}
}
