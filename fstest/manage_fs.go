package fstest

import (
	"bytes"
	"errors"
	"io/fs"
	"testing"

	"github.com/jmgilman/vfs/core"
)

// TestManageFS tests management operations: Remove, RemoveAll, Rename.
func TestManageFS(t *testing.T, filesystem core.FS, config Config) {
	t.Run("RemoveFile", func(t *testing.T) {
		testManageFSRemoveFile(t, filesystem)
	})
	t.Run("RemoveEmptyDirectory", func(t *testing.T) {
		testManageFSRemoveEmptyDir(t, filesystem, config)
	})
	t.Run("RemoveNonEmptyDirectory", func(t *testing.T) {
		testManageFSRemoveNonEmptyDir(t, filesystem, config)
	})
	t.Run("RemoveAll", func(t *testing.T) {
		testManageFSRemoveAll(t, filesystem, config)
	})
	t.Run("RenameFile", func(t *testing.T) {
		testManageFSRenameFile(t, filesystem)
	})
	t.Run("RenameDirectory", func(t *testing.T) {
		testManageFSRenameDir(t, filesystem, config)
	})
	t.Run("RemoveNotExist", func(t *testing.T) {
		testManageFSRemoveNotExist(t, filesystem, config)
	})
}

func testManageFSRemoveFile(t *testing.T, filesystem core.FS) {
	if err := filesystem.WriteFile("testfile.txt", []byte("test file content"), 0644); err != nil {
		t.Fatalf("WriteFile(testfile.txt): setup failed: %v", err)
	}

	if err := filesystem.Remove("testfile.txt"); err != nil {
		t.Fatalf("Remove(testfile.txt): got error %v, want nil", err)
	}

	_, err := filesystem.Stat("testfile.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(testfile.txt) after Remove: got error %v, want fs.ErrNotExist", err)
	}
}

func testManageFSRemoveEmptyDir(t *testing.T, filesystem core.FS, config Config) {
	if err := filesystem.Mkdir("emptydir", 0755); err != nil {
		t.Fatalf("Mkdir(emptydir): setup failed: %v", err)
	}

	if err := filesystem.Remove("emptydir"); err != nil {
		t.Fatalf("Remove(emptydir): got error %v, want nil", err)
	}

	if config.VirtualDirectories {
		return
	}
	_, err := filesystem.Stat("emptydir")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(emptydir) after Remove: got error %v, want fs.ErrNotExist", err)
	}
}

func testManageFSRemoveNonEmptyDir(t *testing.T, filesystem core.FS, config Config) {
	if config.VirtualDirectories {
		t.Skip("backend has virtual directories")
		return
	}

	if err := filesystem.MkdirAll("fulldir", 0755); err != nil {
		t.Fatalf("MkdirAll(fulldir): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("fulldir/keep.txt", []byte("keep"), 0644); err != nil {
		t.Fatalf("WriteFile(fulldir/keep.txt): setup failed: %v", err)
	}

	// Remove rejects non-empty directories; RemoveAll is the recursive
	// variant.
	if err := filesystem.Remove("fulldir"); err == nil {
		t.Errorf("Remove(fulldir): got nil error, want error for non-empty directory")
	}

	if _, err := filesystem.Stat("fulldir/keep.txt"); err != nil {
		t.Errorf("Stat(fulldir/keep.txt) after failed Remove: got error %v, want nil", err)
	}
}

func testManageFSRemoveAll(t *testing.T, filesystem core.FS, config Config) {
	if err := filesystem.MkdirAll("parent/child1", 0755); err != nil {
		t.Fatalf("MkdirAll(parent/child1): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("parent/file1.txt", []byte("content1"), 0644); err != nil {
		t.Fatalf("WriteFile(parent/file1.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("parent/child1/file2.txt", []byte("content2"), 0644); err != nil {
		t.Fatalf("WriteFile(parent/child1/file2.txt): setup failed: %v", err)
	}

	if err := filesystem.RemoveAll("parent"); err != nil {
		t.Fatalf("RemoveAll(parent): got error %v, want nil", err)
	}

	_, err := filesystem.Stat("parent/file1.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(parent/file1.txt) after RemoveAll: got error %v, want fs.ErrNotExist", err)
	}
	_, err = filesystem.Stat("parent/child1/file2.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(parent/child1/file2.txt) after RemoveAll: got error %v, want fs.ErrNotExist", err)
	}

	// RemoveAll on a path that no longer exists succeeds.
	if err := filesystem.RemoveAll("parent"); err != nil {
		t.Errorf("RemoveAll(parent) on non-existent path: got error %v, want nil", err)
	}
}

func testManageFSRenameFile(t *testing.T, filesystem core.FS) {
	testData := []byte("test file for rename")
	if err := filesystem.WriteFile("oldfile.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile(oldfile.txt): setup failed: %v", err)
	}

	if err := filesystem.Rename("oldfile.txt", "newfile.txt"); err != nil {
		t.Fatalf("Rename(oldfile.txt, newfile.txt): got error %v, want nil", err)
	}

	_, err := filesystem.Stat("oldfile.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(oldfile.txt) after Rename: got error %v, want fs.ErrNotExist", err)
	}

	data, err := filesystem.ReadFile("newfile.txt")
	if err != nil {
		t.Errorf("ReadFile(newfile.txt) after Rename: got error %v, want nil", err)
		return
	}
	if !bytes.Equal(data, testData) {
		t.Errorf("ReadFile(newfile.txt) after Rename: got %q, want %q", data, testData)
	}
}

func testManageFSRenameDir(t *testing.T, filesystem core.FS, config Config) {
	if err := filesystem.Mkdir("olddir", 0755); err != nil {
		t.Fatalf("Mkdir(olddir): setup failed: %v", err)
	}
	testData := []byte("test file in directory")
	if err := filesystem.WriteFile("olddir/testfile.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile(olddir/testfile.txt): setup failed: %v", err)
	}

	if err := filesystem.Rename("olddir", "newdir"); err != nil {
		t.Fatalf("Rename(olddir, newdir): got error %v, want nil", err)
	}

	_, err := filesystem.Stat("olddir/testfile.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(olddir/testfile.txt) after Rename: got error %v, want fs.ErrNotExist", err)
	}

	data, err := filesystem.ReadFile("newdir/testfile.txt")
	if err != nil {
		t.Errorf("ReadFile(newdir/testfile.txt) after Rename: got error %v, want nil", err)
		return
	}
	if !bytes.Equal(data, testData) {
		t.Errorf("ReadFile(newdir/testfile.txt) after Rename: got %q, want %q", data, testData)
	}
}

func testManageFSRemoveNotExist(t *testing.T, filesystem core.FS, config Config) {
	if config.IdempotentDelete {
		t.Skip("backend has idempotent delete")
		return
	}

	err := filesystem.Remove("nonexistent.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Remove(nonexistent.txt): got error %v, want fs.ErrNotExist", err)
	}
}
