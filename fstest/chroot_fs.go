package fstest

import (
	"bytes"
	"errors"
	"io/fs"
	"testing"

	"github.com/jmgilman/vfs/core"
)

// TestChrootFS tests scoped views and boundary enforcement: a chrooted
// view must contain every operation within its root, and paths that
// escape upward must fail with core.ErrTraversal.
func TestChrootFS(t *testing.T, filesystem core.FS, config Config) {
	t.Run("ChrootToSubdirectory", func(t *testing.T) {
		testChrootFSBasic(t, filesystem)
	})
	t.Run("PathTraversal", func(t *testing.T) {
		testChrootFSPathTraversal(t, filesystem)
	})
	t.Run("ChrootOnChroot", func(t *testing.T) {
		testChrootFSNested(t, filesystem)
	})
	t.Run("PathNormalization", func(t *testing.T) {
		testChrootFSNormalization(t, filesystem)
	})
}

func testChrootFSBasic(t *testing.T, filesystem core.FS) {
	if err := filesystem.MkdirAll("chroot-dir", 0755); err != nil {
		t.Fatalf("MkdirAll(chroot-dir): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("chroot-dir/inside.txt", []byte("inside content"), 0644); err != nil {
		t.Fatalf("WriteFile(chroot-dir/inside.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("outside.txt", []byte("outside content"), 0644); err != nil {
		t.Fatalf("WriteFile(outside.txt): setup failed: %v", err)
	}

	chrootFS, err := filesystem.Chroot("chroot-dir")
	if err != nil {
		t.Fatalf("Chroot(chroot-dir): got error %v, want nil", err)
	}

	data, err := chrootFS.ReadFile("inside.txt")
	if err != nil {
		t.Errorf("chrootFS.ReadFile(inside.txt): got error %v, want nil", err)
	} else if !bytes.Equal(data, []byte("inside content")) {
		t.Errorf("chrootFS.ReadFile(inside.txt): got %q, want %q", data, "inside content")
	}

	// Siblings of the chroot root are invisible.
	_, err = chrootFS.ReadFile("outside.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("chrootFS.ReadFile(outside.txt): got error %v, want fs.ErrNotExist", err)
	}

	// Writes resolve against the chroot root.
	if err := chrootFS.WriteFile("new-inside.txt", []byte("new content"), 0644); err != nil {
		t.Errorf("chrootFS.WriteFile(new-inside.txt): got error %v, want nil", err)
	}
	data, err = filesystem.ReadFile("chroot-dir/new-inside.txt")
	if err != nil {
		t.Errorf("filesystem.ReadFile(chroot-dir/new-inside.txt): got error %v, want nil", err)
	} else if !bytes.Equal(data, []byte("new content")) {
		t.Errorf("filesystem.ReadFile(chroot-dir/new-inside.txt): got %q, want %q", data, "new content")
	}

	// A leading slash names the view root, not the host root: the write
	// must land inside the chroot.
	if err := chrootFS.WriteFile("/anchored.txt", []byte("anchored"), 0644); err != nil {
		t.Errorf("chrootFS.WriteFile(/anchored.txt): got error %v, want nil", err)
	}
	if _, err := filesystem.Stat("chroot-dir/anchored.txt"); err != nil {
		t.Errorf("Stat(chroot-dir/anchored.txt): got error %v, want nil", err)
	}
	if _, err := filesystem.Stat("anchored.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(anchored.txt): got error %v, want fs.ErrNotExist (write escaped chroot)", err)
	}
}

func testChrootFSPathTraversal(t *testing.T, filesystem core.FS) {
	if err := filesystem.MkdirAll("sandbox", 0755); err != nil {
		t.Fatalf("MkdirAll(sandbox): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("sandbox/allowed.txt", []byte("allowed"), 0644); err != nil {
		t.Fatalf("WriteFile(sandbox/allowed.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("sensitive.txt", []byte("secret data"), 0644); err != nil {
		t.Fatalf("WriteFile(sensitive.txt): setup failed: %v", err)
	}

	chrootFS, err := filesystem.Chroot("sandbox")
	if err != nil {
		t.Fatalf("Chroot(sandbox): got error %v, want nil", err)
	}

	// Reads that resolve above the root are rejected, not clamped.
	for _, name := range []string{
		"../sensitive.txt",
		"../../../sensitive.txt",
		"allowed.txt/../../sensitive.txt",
	} {
		if _, err := chrootFS.ReadFile(name); !errors.Is(err, core.ErrTraversal) {
			t.Errorf("chrootFS.ReadFile(%q): got error %v, want core.ErrTraversal", name, err)
		}
	}

	// Writes and mkdirs that escape are rejected the same way.
	if err := chrootFS.WriteFile("../escape.txt", []byte("escaped"), 0644); !errors.Is(err, core.ErrTraversal) {
		t.Errorf("chrootFS.WriteFile(../escape.txt): got error %v, want core.ErrTraversal", err)
	}
	if err := chrootFS.Mkdir("../escape-dir", 0755); !errors.Is(err, core.ErrTraversal) {
		t.Errorf("chrootFS.Mkdir(../escape-dir): got error %v, want core.ErrTraversal", err)
	}
	if _, err := filesystem.Stat("escape.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(escape.txt): got error %v, want fs.ErrNotExist (write escaped chroot)", err)
	}

	// Access that stays inside the root still works.
	data, err := chrootFS.ReadFile("allowed.txt")
	if err != nil {
		t.Errorf("chrootFS.ReadFile(allowed.txt): got error %v, want nil", err)
	} else if !bytes.Equal(data, []byte("allowed")) {
		t.Errorf("chrootFS.ReadFile(allowed.txt): got %q, want %q", data, "allowed")
	}
}

func testChrootFSNested(t *testing.T, filesystem core.FS) {
	if err := filesystem.MkdirAll("level1/level2/level3", 0755); err != nil {
		t.Fatalf("MkdirAll(level1/level2/level3): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("level1/shallow.txt", []byte("shallow"), 0644); err != nil {
		t.Fatalf("WriteFile(level1/shallow.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("level1/level2/mid.txt", []byte("mid"), 0644); err != nil {
		t.Fatalf("WriteFile(level1/level2/mid.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("level1/level2/level3/deep.txt", []byte("deep"), 0644); err != nil {
		t.Fatalf("WriteFile(level1/level2/level3/deep.txt): setup failed: %v", err)
	}

	chroot1, err := filesystem.Chroot("level1")
	if err != nil {
		t.Fatalf("Chroot(level1): got error %v, want nil", err)
	}
	chroot2, err := chroot1.Chroot("level2")
	if err != nil {
		t.Fatalf("chroot1.Chroot(level2): got error %v, want nil", err)
	}
	chroot3, err := chroot2.Chroot("level3")
	if err != nil {
		t.Fatalf("chroot2.Chroot(level3): got error %v, want nil", err)
	}

	// Each level sees only its own subtree.
	data, err := chroot2.ReadFile("mid.txt")
	if err != nil {
		t.Errorf("chroot2.ReadFile(mid.txt): got error %v, want nil", err)
	} else if !bytes.Equal(data, []byte("mid")) {
		t.Errorf("chroot2.ReadFile(mid.txt): got %q, want %q", data, "mid")
	}
	if _, err := chroot2.ReadFile("shallow.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("chroot2.ReadFile(shallow.txt): got error %v, want fs.ErrNotExist", err)
	}
	if _, err := chroot2.ReadFile("../shallow.txt"); !errors.Is(err, core.ErrTraversal) {
		t.Errorf("chroot2.ReadFile(../shallow.txt): got error %v, want core.ErrTraversal", err)
	}

	data, err = chroot3.ReadFile("deep.txt")
	if err != nil {
		t.Errorf("chroot3.ReadFile(deep.txt): got error %v, want nil", err)
	} else if !bytes.Equal(data, []byte("deep")) {
		t.Errorf("chroot3.ReadFile(deep.txt): got %q, want %q", data, "deep")
	}
	if _, err := chroot3.ReadFile("mid.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("chroot3.ReadFile(mid.txt): got error %v, want fs.ErrNotExist", err)
	}

	// Writes through the deepest view land at the composed location.
	if err := chroot3.WriteFile("nested-file.txt", []byte("nested content"), 0644); err != nil {
		t.Errorf("chroot3.WriteFile(nested-file.txt): got error %v, want nil", err)
	}
	data, err = filesystem.ReadFile("level1/level2/level3/nested-file.txt")
	if err != nil {
		t.Errorf("filesystem.ReadFile(level1/level2/level3/nested-file.txt): got error %v, want nil", err)
	} else if !bytes.Equal(data, []byte("nested content")) {
		t.Errorf("filesystem.ReadFile(level1/level2/level3/nested-file.txt): got %q, want %q", data, "nested content")
	}
}

func testChrootFSNormalization(t *testing.T, filesystem core.FS) {
	if err := filesystem.MkdirAll("testdir/subdir", 0755); err != nil {
		t.Fatalf("MkdirAll(testdir/subdir): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("testdir/file.txt", []byte("content"), 0644); err != nil {
		t.Fatalf("WriteFile(testdir/file.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("testdir/subdir/nested.txt", []byte("nested"), 0644); err != nil {
		t.Fatalf("WriteFile(testdir/subdir/nested.txt): setup failed: %v", err)
	}

	chrootFS, err := filesystem.Chroot("testdir")
	if err != nil {
		t.Fatalf("Chroot(testdir): got error %v, want nil", err)
	}

	// Redundant slashes and "." components normalize away.
	for _, name := range []string{"subdir//nested.txt", "./subdir/./nested.txt"} {
		data, err := chrootFS.ReadFile(name)
		if err != nil {
			t.Errorf("chrootFS.ReadFile(%q): got error %v, want nil", name, err)
		} else if !bytes.Equal(data, []byte("nested")) {
			t.Errorf("chrootFS.ReadFile(%q): got %q, want %q", name, data, "nested")
		}
	}

	// ".." that still resolves inside the root is permitted.
	data, err := chrootFS.ReadFile("subdir/../file.txt")
	if err != nil {
		t.Errorf("chrootFS.ReadFile(subdir/../file.txt): got error %v, want nil", err)
	} else if !bytes.Equal(data, []byte("content")) {
		t.Errorf("chrootFS.ReadFile(subdir/../file.txt): got %q, want %q", data, "content")
	}

	// Trailing slashes on directory operations are tolerated.
	entries, err := chrootFS.ReadDir("subdir/")
	if err != nil {
		t.Errorf("chrootFS.ReadDir(subdir/): got error %v, want nil", err)
	} else if len(entries) != 1 {
		t.Errorf("chrootFS.ReadDir(subdir/): got %d entries, want 1", len(entries))
	}
}
