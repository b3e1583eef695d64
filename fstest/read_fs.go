package fstest

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/jmgilman/vfs/core"
)

// TestReadFS tests read operations: Open, Stat, ReadDir, ReadFile,
// Exists, IsDir. The filesystem must be fresh; the test populates it.
func TestReadFS(t *testing.T, filesystem core.FS, config Config) {
	testContent := []byte("test file content")

	if err := filesystem.MkdirAll("testdir", 0755); err != nil {
		t.Fatalf("MkdirAll(testdir): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("testdir/testfile.txt", testContent, 0644); err != nil {
		t.Fatalf("WriteFile(testdir/testfile.txt): setup failed: %v", err)
	}

	t.Run("Open", func(t *testing.T) {
		testReadFSOpen(t, filesystem, testContent)
	})
	t.Run("StatFile", func(t *testing.T) {
		testReadFSStatFile(t, filesystem, testContent)
	})
	t.Run("StatDir", func(t *testing.T) {
		testReadFSStatDir(t, filesystem, config)
	})
	t.Run("ReadDir", func(t *testing.T) {
		testReadFSReadDir(t, filesystem)
	})
	t.Run("ReadFile", func(t *testing.T) {
		testReadFSReadFile(t, filesystem, testContent)
	})
	t.Run("OpenNotExist", func(t *testing.T) {
		testReadFSOpenNotExist(t, filesystem)
	})
	t.Run("Exists", func(t *testing.T) {
		testReadFSExists(t, filesystem, config)
	})
	t.Run("IsDir", func(t *testing.T) {
		testReadFSIsDir(t, filesystem)
	})
}

func testReadFSOpen(t *testing.T, filesystem core.FS, testContent []byte) {
	f, err := filesystem.Open("testdir/testfile.txt")
	if err != nil {
		t.Errorf("Open(%q): got error %v, want nil", "testdir/testfile.txt", err)
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			t.Errorf("Close(): got error %v", closeErr)
		}
	}()

	data := make([]byte, len(testContent))
	n, err := f.Read(data)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Errorf("Read(): got error %v, want nil or EOF", err)
		return
	}
	if n != len(testContent) {
		t.Errorf("Read(): read %d bytes, want %d", n, len(testContent))
	}
	if !bytes.Equal(data, testContent) {
		t.Errorf("Read(): got %q, want %q", data, testContent)
	}
}

func testReadFSStatFile(t *testing.T, filesystem core.FS, testContent []byte) {
	info, err := filesystem.Stat("testdir/testfile.txt")
	if err != nil {
		t.Errorf("Stat(%q): got error %v, want nil", "testdir/testfile.txt", err)
		return
	}
	if info.IsDir() {
		t.Errorf("Stat(%q): IsDir() = true, want false", "testdir/testfile.txt")
	}
	if info.Size() != int64(len(testContent)) {
		t.Errorf("Stat(%q): Size() = %d, want %d", "testdir/testfile.txt", info.Size(), len(testContent))
	}
}

func testReadFSStatDir(t *testing.T, filesystem core.FS, config Config) {
	if config.VirtualDirectories {
		t.Skip("backend has virtual directories")
		return
	}

	info, err := filesystem.Stat("testdir")
	if err != nil {
		t.Errorf("Stat(%q): got error %v, want nil", "testdir", err)
		return
	}
	if !info.IsDir() {
		t.Errorf("Stat(%q): IsDir() = false, want true", "testdir")
	}
}

func testReadFSReadDir(t *testing.T, filesystem core.FS) {
	entries, err := filesystem.ReadDir("testdir")
	if err != nil {
		t.Errorf("ReadDir(%q): got error %v, want nil", "testdir", err)
		return
	}
	if len(entries) != 1 {
		t.Errorf("ReadDir(%q): got %d entries, want 1", "testdir", len(entries))
		return
	}
	if entries[0].Name() != "testfile.txt" {
		t.Errorf("ReadDir(%q): got entry name %q, want %q", "testdir", entries[0].Name(), "testfile.txt")
	}
	if entries[0].IsDir() {
		t.Errorf("ReadDir(%q): entry IsDir() = true, want false", "testdir")
	}
}

func testReadFSReadFile(t *testing.T, filesystem core.FS, testContent []byte) {
	data, err := filesystem.ReadFile("testdir/testfile.txt")
	if err != nil {
		t.Errorf("ReadFile(%q): got error %v, want nil", "testdir/testfile.txt", err)
		return
	}
	if !bytes.Equal(data, testContent) {
		t.Errorf("ReadFile(%q): got %q, want %q", "testdir/testfile.txt", data, testContent)
	}
}

func testReadFSOpenNotExist(t *testing.T, filesystem core.FS) {
	_, err := filesystem.Open("nonexistent")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open(%q): got error %v, want fs.ErrNotExist", "nonexistent", err)
	}
}

func testReadFSExists(t *testing.T, filesystem core.FS, config Config) {
	exists, err := filesystem.Exists("testdir/testfile.txt")
	if err != nil {
		t.Errorf("Exists(%q): got error %v, want nil", "testdir/testfile.txt", err)
	} else if !exists {
		t.Errorf("Exists(%q): got false, want true", "testdir/testfile.txt")
	}

	// Directories count as existing even when they are virtual prefixes:
	// testdir holds a file, so the prefix is visible.
	exists, err = filesystem.Exists("testdir")
	if err != nil {
		t.Errorf("Exists(%q): got error %v, want nil", "testdir", err)
	} else if !exists {
		t.Errorf("Exists(%q): got false, want true", "testdir")
	}

	exists, err = filesystem.Exists("nonexistent")
	if err != nil {
		t.Errorf("Exists(%q): got error %v, want nil", "nonexistent", err)
	} else if exists {
		t.Errorf("Exists(%q): got true, want false", "nonexistent")
	}
}

func testReadFSIsDir(t *testing.T, filesystem core.FS) {
	// testdir contains a file, so it is a directory on every backend,
	// virtual prefixes included.
	isDir, err := filesystem.IsDir("testdir")
	if err != nil {
		t.Errorf("IsDir(%q): got error %v, want nil", "testdir", err)
	} else if !isDir {
		t.Errorf("IsDir(%q): got false, want true", "testdir")
	}

	isDir, err = filesystem.IsDir("testdir/testfile.txt")
	if err != nil {
		t.Errorf("IsDir(%q): got error %v, want nil", "testdir/testfile.txt", err)
	} else if isDir {
		t.Errorf("IsDir(%q): got true, want false", "testdir/testfile.txt")
	}
}
