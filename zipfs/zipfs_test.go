package zipfs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"testing"

	"github.com/jmgilman/vfs/billy"
	"github.com/jmgilman/vfs/core"
	kzip "github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
)

// buildArchive writes a ZIP with the given members into a fresh memory
// filesystem and returns that filesystem.
func buildArchive(t *testing.T, name string, members map[string]string) core.FS {
	t.Helper()

	var buf bytes.Buffer
	w := kzip.NewWriter(&buf)

	// Deterministic member order keeps archives reproducible across runs.
	paths := make([]string, 0, len(members))
	for p := range members {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		f, err := w.Create(p)
		if err != nil {
			t.Fatalf("zip.Create(%q): setup failed: %v", p, err)
		}
		if _, err := f.Write([]byte(members[p])); err != nil {
			t.Fatalf("zip write %q: setup failed: %v", p, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip.Close(): setup failed: %v", err)
	}

	filesystem := billy.NewMemory()
	if err := filesystem.WriteFile(name, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile(%q): setup failed: %v", name, err)
	}
	return filesystem
}

func testMembers() map[string]string {
	return map[string]string{
		"top.txt":               "top content",
		"data/a.txt":            "alpha",
		"data/b.txt":            "beta",
		"data/nested/deep.txt":  "deep content",
		"other/standalone.json": `{"k":"v"}`,
		"other/sub/trailer.bin": "trailer",
		"empty.txt":             "",
	}
}

func openArchive(t *testing.T) *ZipFS {
	t.Helper()
	parent := buildArchive(t, "archive.zip", testMembers())
	z, err := New(parent, "archive.zip")
	if err != nil {
		t.Fatalf("New(archive.zip) error = %v", err)
	}
	t.Cleanup(func() { _ = z.Close() })
	return z
}

// TestReadMembers verifies member contents round-trip through the view.
func TestReadMembers(t *testing.T) {
	z := openArchive(t)

	for p, want := range testMembers() {
		data, err := z.ReadFile(p)
		if err != nil {
			t.Errorf("ReadFile(%q) error = %v", p, err)
			continue
		}
		if string(data) != want {
			t.Errorf("ReadFile(%q) = %q, want %q", p, data, want)
		}
	}

	if _, err := z.ReadFile("missing.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile(missing.txt) error = %v, want fs.ErrNotExist", err)
	}
}

// TestStat verifies Stat on members, implied directories, and the root.
func TestStat(t *testing.T) {
	z := openArchive(t)

	info, err := z.Stat("data/a.txt")
	if err != nil {
		t.Fatalf("Stat(data/a.txt) error = %v", err)
	}
	if info.IsDir() {
		t.Error("Stat(data/a.txt) IsDir() = true, want false")
	}
	if info.Size() != int64(len("alpha")) {
		t.Errorf("Stat(data/a.txt) Size() = %d, want %d", info.Size(), len("alpha"))
	}

	// data/nested never appears as an explicit entry; it is implied by
	// its member.
	info, err = z.Stat("data/nested")
	if err != nil {
		t.Fatalf("Stat(data/nested) error = %v", err)
	}
	if !info.IsDir() {
		t.Error("Stat(data/nested) IsDir() = false, want true")
	}

	if _, err := z.Stat("."); err != nil {
		t.Errorf("Stat(.) error = %v, want nil", err)
	}
	if _, err := z.Stat("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(missing) error = %v, want fs.ErrNotExist", err)
	}
}

// TestReadDir verifies immediate-children listing, sorted by name.
func TestReadDir(t *testing.T) {
	z := openArchive(t)

	entries, err := z.ReadDir("data")
	if err != nil {
		t.Fatalf("ReadDir(data) error = %v", err)
	}
	want := []string{"a.txt", "b.txt", "nested"}
	if len(entries) != len(want) {
		t.Fatalf("ReadDir(data) returned %d entries, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].Name() != name {
			t.Errorf("ReadDir(data)[%d].Name() = %q, want %q", i, entries[i].Name(), name)
		}
	}
	if entries[0].IsDir() {
		t.Error("ReadDir(data): a.txt reported as directory")
	}
	if !entries[2].IsDir() {
		t.Error("ReadDir(data): nested reported as file")
	}

	// Root listing covers top files and top directories.
	entries, err = z.ReadDir(".")
	if err != nil {
		t.Fatalf("ReadDir(.) error = %v", err)
	}
	wantRoot := []string{"data", "empty.txt", "other", "top.txt"}
	if len(entries) != len(wantRoot) {
		t.Fatalf("ReadDir(.) returned %d entries, want %d: %v", len(entries), len(wantRoot), entries)
	}
	for i, name := range wantRoot {
		if entries[i].Name() != name {
			t.Errorf("ReadDir(.)[%d].Name() = %q, want %q", i, entries[i].Name(), name)
		}
	}

	if _, err := z.ReadDir("top.txt"); !errors.Is(err, core.ErrNotDir) {
		t.Errorf("ReadDir(top.txt) error = %v, want core.ErrNotDir", err)
	}
	if _, err := z.ReadDir("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadDir(missing) error = %v, want fs.ErrNotExist", err)
	}
}

// TestExistsIsDir verifies existence and directory checks.
func TestExistsIsDir(t *testing.T) {
	z := openArchive(t)

	tests := []struct {
		path   string
		exists bool
		isDir  bool
	}{
		{"top.txt", true, false},
		{"data", true, true},
		{"data/nested", true, true},
		{"data/nested/deep.txt", true, false},
		{".", true, true},
		{"missing", false, false},
	}

	for _, tt := range tests {
		exists, err := z.Exists(tt.path)
		if err != nil {
			t.Errorf("Exists(%q) error = %v", tt.path, err)
		} else if exists != tt.exists {
			t.Errorf("Exists(%q) = %v, want %v", tt.path, exists, tt.exists)
		}

		isDir, err := z.IsDir(tt.path)
		if err != nil {
			t.Errorf("IsDir(%q) error = %v", tt.path, err)
		} else if isDir != tt.isDir {
			t.Errorf("IsDir(%q) = %v, want %v", tt.path, isDir, tt.isDir)
		}
	}
}

// TestWritesUnsupported verifies every mutation fails with ErrUnsupported.
func TestWritesUnsupported(t *testing.T) {
	z := openArchive(t)

	if _, err := z.Create("new.txt"); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("Create() error = %v, want core.ErrUnsupported", err)
	}
	if err := z.WriteFile("new.txt", []byte("x"), 0644); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("WriteFile() error = %v, want core.ErrUnsupported", err)
	}
	if err := z.Mkdir("newdir", 0755); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("Mkdir() error = %v, want core.ErrUnsupported", err)
	}
	if err := z.MkdirAll("a/b", 0755); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("MkdirAll() error = %v, want core.ErrUnsupported", err)
	}
	if err := z.Remove("top.txt"); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("Remove() error = %v, want core.ErrUnsupported", err)
	}
	if err := z.RemoveAll("data"); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("RemoveAll() error = %v, want core.ErrUnsupported", err)
	}
	if err := z.Rename("top.txt", "renamed.txt"); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("Rename() error = %v, want core.ErrUnsupported", err)
	}

	// OpenFile allows plain reads and nothing else.
	f, err := z.OpenFile("top.txt", 0, 0)
	if err != nil {
		t.Errorf("OpenFile(top.txt, O_RDONLY) error = %v", err)
	} else {
		_ = f.Close()
	}
	if _, err := z.OpenFile("top.txt", 1, 0); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("OpenFile(top.txt, O_WRONLY) error = %v, want core.ErrUnsupported", err)
	}
}

// TestTraversal verifies escape attempts fail with ErrTraversal.
func TestTraversal(t *testing.T) {
	z := openArchive(t)

	for _, name := range []string{"../outside.txt", "data/../../outside.txt"} {
		if _, err := z.ReadFile(name); !errors.Is(err, core.ErrTraversal) {
			t.Errorf("ReadFile(%q) error = %v, want core.ErrTraversal", name, err)
		}
	}
}

// TestConcurrentReads verifies concurrent opens of distinct members get
// independent streams.
func TestConcurrentReads(t *testing.T) {
	z := openArchive(t)
	members := testMembers()

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		for p, want := range members {
			p, want := p, want
			g.Go(func() error {
				data, err := z.ReadFile(p)
				if err != nil {
					return err
				}
				if string(data) != want {
					return fmt.Errorf("ReadFile(%q) = %q, want %q", p, data, want)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

// TestWalk verifies depth-first traversal over members and implied
// directories.
func TestWalk(t *testing.T) {
	z := openArchive(t)

	var visited []string
	err := z.Walk("data", func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		visited = append(visited, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk(data) error = %v", err)
	}

	want := []string{"data", "data/a.txt", "data/b.txt", "data/nested", "data/nested/deep.txt"}
	if len(visited) != len(want) {
		t.Fatalf("Walk(data) visited %v, want %v", visited, want)
	}
	for i, p := range want {
		if visited[i] != p {
			t.Errorf("Walk(data)[%d] = %q, want %q", i, visited[i], p)
		}
	}
}

// TestChroot verifies scoped archive views.
func TestChroot(t *testing.T) {
	z := openArchive(t)

	view, err := z.Chroot("data")
	if err != nil {
		t.Fatalf("Chroot(data) error = %v", err)
	}

	data, err := view.ReadFile("a.txt")
	if err != nil {
		t.Fatalf("view.ReadFile(a.txt) error = %v", err)
	}
	if string(data) != "alpha" {
		t.Errorf("view.ReadFile(a.txt) = %q, want %q", data, "alpha")
	}

	if _, err := view.ReadFile("../top.txt"); !errors.Is(err, core.ErrTraversal) {
		t.Errorf("view.ReadFile(../top.txt) error = %v, want core.ErrTraversal", err)
	}
	if view.Type() != core.FSTypeArchive {
		t.Errorf("view.Type() = %v, want %v", view.Type(), core.FSTypeArchive)
	}

	// Closing the view leaves the archive open.
	if err := view.Close(); err != nil {
		t.Fatalf("view.Close() error = %v", err)
	}
	if _, err := z.ReadFile("top.txt"); err != nil {
		t.Errorf("z.ReadFile(top.txt) after view close error = %v, want nil", err)
	}
}

// TestClose verifies close semantics and the owned-parent option.
func TestClose(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		parent := buildArchive(t, "archive.zip", testMembers())
		z, err := New(parent, "archive.zip")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := z.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := z.Close(); err != nil {
			t.Errorf("Close() second call error = %v, want nil", err)
		}
		if _, err := z.ReadFile("top.txt"); !errors.Is(err, fs.ErrClosed) {
			t.Errorf("ReadFile() after Close() error = %v, want fs.ErrClosed", err)
		}
	})

	t.Run("owned parent", func(t *testing.T) {
		parent := buildArchive(t, "archive.zip", testMembers())
		z, err := New(parent, "archive.zip", WithParentCloser(parent))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := z.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if _, err := parent.ReadFile("archive.zip"); !errors.Is(err, fs.ErrClosed) {
			t.Errorf("parent.ReadFile() after archive close error = %v, want fs.ErrClosed", err)
		}
	})

	t.Run("without parent option", func(t *testing.T) {
		parent := buildArchive(t, "archive.zip", testMembers())
		z, err := New(parent, "archive.zip")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := z.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if _, err := parent.ReadFile("archive.zip"); err != nil {
			t.Errorf("parent.ReadFile() after archive close error = %v, want nil", err)
		}
	})
}

// TestType verifies archives report FSTypeArchive.
func TestType(t *testing.T) {
	z := openArchive(t)
	if z.Type() != core.FSTypeArchive {
		t.Errorf("Type() = %v, want %v", z.Type(), core.FSTypeArchive)
	}
}
