package fstest

import (
	"bytes"
	"os"
	"testing"

	"github.com/jmgilman/vfs/core"
)

// TestWriteFS tests write operations: Create, OpenFile, WriteFile,
// Mkdir, MkdirAll.
func TestWriteFS(t *testing.T, filesystem core.FS, config Config) {
	t.Run("CreateAndWrite", func(t *testing.T) {
		if config.skip(t, "WriteFS/CreateAndWrite") {
			return
		}
		testWriteFSCreate(t, filesystem)
	})
	t.Run("WriteFile", func(t *testing.T) {
		if config.skip(t, "WriteFS/WriteFile") {
			return
		}
		testWriteFSWriteFile(t, filesystem)
	})
	t.Run("OpenFile", func(t *testing.T) {
		if config.skip(t, "WriteFS/OpenFile") {
			return
		}
		testWriteFSOpenFile(t, filesystem)
	})
	t.Run("Mkdir", func(t *testing.T) {
		if config.skip(t, "WriteFS/Mkdir") {
			return
		}
		testWriteFSMkdir(t, filesystem, config)
	})
	t.Run("MkdirAll", func(t *testing.T) {
		if config.skip(t, "WriteFS/MkdirAll") {
			return
		}
		testWriteFSMkdirAll(t, filesystem, config)
	})
	t.Run("CreateInNonExistentDir", func(t *testing.T) {
		if config.skip(t, "WriteFS/CreateInNonExistentDir") {
			return
		}
		testWriteFSCreateError(t, filesystem, config)
	})
}

func testWriteFSCreate(t *testing.T, filesystem core.FS) {
	testData := []byte("test data for Create")

	f, err := filesystem.Create("testfile.txt")
	if err != nil {
		t.Fatalf("Create(%q): got error %v, want nil", "testfile.txt", err)
	}

	n, err := f.Write(testData)
	if err != nil {
		_ = f.Close()
		t.Fatalf("Write(): got error %v, want nil", err)
	}
	if n != len(testData) {
		_ = f.Close()
		t.Fatalf("Write(): wrote %d bytes, want %d", n, len(testData))
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close(): got error %v, want nil", err)
	}

	data, err := filesystem.ReadFile("testfile.txt")
	if err != nil {
		t.Errorf("ReadFile(%q): got error %v, want nil", "testfile.txt", err)
		return
	}
	if !bytes.Equal(data, testData) {
		t.Errorf("ReadFile(%q): got %q, want %q", "testfile.txt", data, testData)
	}
}

func testWriteFSWriteFile(t *testing.T, filesystem core.FS) {
	testData := []byte("test data for WriteFile")

	if err := filesystem.WriteFile("writefile.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile(%q): got error %v, want nil", "writefile.txt", err)
	}

	data, err := filesystem.ReadFile("writefile.txt")
	if err != nil {
		t.Errorf("ReadFile(%q): got error %v, want nil", "writefile.txt", err)
		return
	}
	if !bytes.Equal(data, testData) {
		t.Errorf("ReadFile(%q): got %q, want %q", "writefile.txt", data, testData)
	}

	// WriteFile on an existing file truncates.
	shorter := []byte("short")
	if err := filesystem.WriteFile("writefile.txt", shorter, 0644); err != nil {
		t.Fatalf("WriteFile(%q) rewrite: got error %v, want nil", "writefile.txt", err)
	}
	data, err = filesystem.ReadFile("writefile.txt")
	if err != nil {
		t.Errorf("ReadFile(%q) after rewrite: got error %v, want nil", "writefile.txt", err)
		return
	}
	if !bytes.Equal(data, shorter) {
		t.Errorf("ReadFile(%q) after rewrite: got %q, want %q", "writefile.txt", data, shorter)
	}
}

func testWriteFSOpenFile(t *testing.T, filesystem core.FS) {
	testData := []byte("test data for OpenFile")

	f, err := filesystem.OpenFile("openfile.txt", os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("OpenFile(%q, O_CREATE|O_WRONLY): got error %v, want nil", "openfile.txt", err)
	}

	n, err := f.Write(testData)
	if err != nil {
		_ = f.Close()
		t.Fatalf("Write(): got error %v, want nil", err)
	}
	if n != len(testData) {
		_ = f.Close()
		t.Fatalf("Write(): wrote %d bytes, want %d", n, len(testData))
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close(): got error %v, want nil", err)
	}

	data, err := filesystem.ReadFile("openfile.txt")
	if err != nil {
		t.Errorf("ReadFile(%q): got error %v, want nil", "openfile.txt", err)
		return
	}
	if !bytes.Equal(data, testData) {
		t.Errorf("ReadFile(%q): got %q, want %q", "openfile.txt", data, testData)
	}

	// O_TRUNC replaces the existing contents.
	newData := []byte("truncated")
	f, err = filesystem.OpenFile("openfile.txt", os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatalf("OpenFile(%q, O_WRONLY|O_TRUNC): got error %v, want nil", "openfile.txt", err)
	}

	if _, err = f.Write(newData); err != nil {
		_ = f.Close()
		t.Fatalf("Write(): got error %v, want nil", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close(): got error %v, want nil", err)
	}

	data, err = filesystem.ReadFile("openfile.txt")
	if err != nil {
		t.Errorf("ReadFile(%q): got error %v, want nil", "openfile.txt", err)
		return
	}
	if !bytes.Equal(data, newData) {
		t.Errorf("ReadFile(%q) after truncate: got %q, want %q", "openfile.txt", data, newData)
	}
}

func testWriteFSMkdir(t *testing.T, filesystem core.FS, config Config) {
	if err := filesystem.Mkdir("testdir", 0755); err != nil {
		t.Fatalf("Mkdir(%q): got error %v, want nil", "testdir", err)
	}

	if config.VirtualDirectories {
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

	// Mkdir with a missing parent fails; only MkdirAll creates parents.
	if err := filesystem.Mkdir("missing/child", 0755); err == nil {
		t.Errorf("Mkdir(%q): got nil error, want error", "missing/child")
	}
}

func testWriteFSMkdirAll(t *testing.T, filesystem core.FS, config Config) {
	if err := filesystem.MkdirAll("parent/child/grandchild", 0755); err != nil {
		t.Fatalf("MkdirAll(%q): got error %v, want nil", "parent/child/grandchild", err)
	}

	if config.VirtualDirectories {
		return
	}

	for _, dir := range []string{"parent", "parent/child", "parent/child/grandchild"} {
		info, err := filesystem.Stat(dir)
		if err != nil {
			t.Errorf("Stat(%q): got error %v, want nil", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("Stat(%q): IsDir() = false, want true", dir)
		}
	}

	// MkdirAll on an existing path is a no-op.
	if err := filesystem.MkdirAll("parent/child", 0755); err != nil {
		t.Errorf("MkdirAll(%q) on existing path: got error %v, want nil", "parent/child", err)
	}
}

func testWriteFSCreateError(t *testing.T, filesystem core.FS, config Config) {
	if config.ImplicitParentDirs {
		t.Skip("backend allows implicit parent directories")
		return
	}

	// The exact error type varies by backend; an error of any kind is
	// the contract here.
	if _, err := filesystem.Create("nonexistent/testfile.txt"); err == nil {
		t.Errorf("Create(%q): got nil error, want error", "nonexistent/testfile.txt")
	}
}
