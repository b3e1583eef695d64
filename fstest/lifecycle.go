package fstest

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/jmgilman/vfs/core"
)

// TestLifecycle tests close semantics: Close is idempotent, operations
// on a closed filesystem fail with fs.ErrClosed, and files outliving
// their filesystem are invalidated rather than left dangling.
func TestLifecycle(t *testing.T, newFS func() core.FS, config Config) {
	t.Run("CloseIdempotent", func(t *testing.T) {
		testLifecycleCloseIdempotent(t, newFS())
	})
	t.Run("OperationsAfterClose", func(t *testing.T) {
		testLifecycleOperationsAfterClose(t, newFS())
	})
	t.Run("FileInvalidatedByClose", func(t *testing.T) {
		testLifecycleFileInvalidated(t, newFS())
	})
	t.Run("FileCloseIdempotent", func(t *testing.T) {
		testLifecycleFileCloseIdempotent(t, newFS())
	})
	t.Run("ChrootCloseIndependent", func(t *testing.T) {
		testLifecycleChrootClose(t, newFS())
	})
}

func testLifecycleCloseIdempotent(t *testing.T, filesystem core.FS) {
	if err := filesystem.Close(); err != nil {
		t.Fatalf("Close(): got error %v, want nil", err)
	}
	if err := filesystem.Close(); err != nil {
		t.Errorf("Close() second call: got error %v, want nil", err)
	}
}

func testLifecycleOperationsAfterClose(t *testing.T, filesystem core.FS) {
	if err := filesystem.WriteFile("before.txt", []byte("before"), 0644); err != nil {
		t.Fatalf("WriteFile(before.txt): setup failed: %v", err)
	}
	if err := filesystem.Close(); err != nil {
		t.Fatalf("Close(): got error %v, want nil", err)
	}

	if _, err := filesystem.Open("before.txt"); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Open(before.txt) after Close: got error %v, want fs.ErrClosed", err)
	}
	if _, err := filesystem.Stat("before.txt"); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Stat(before.txt) after Close: got error %v, want fs.ErrClosed", err)
	}
	if _, err := filesystem.ReadDir("."); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("ReadDir(.) after Close: got error %v, want fs.ErrClosed", err)
	}
	if err := filesystem.WriteFile("after.txt", []byte("after"), 0644); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("WriteFile(after.txt) after Close: got error %v, want fs.ErrClosed", err)
	}
	if err := filesystem.Remove("before.txt"); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Remove(before.txt) after Close: got error %v, want fs.ErrClosed", err)
	}
}

func testLifecycleFileInvalidated(t *testing.T, filesystem core.FS) {
	if err := filesystem.WriteFile("dangling.txt", []byte("dangling"), 0644); err != nil {
		t.Fatalf("WriteFile(dangling.txt): setup failed: %v", err)
	}

	f, err := filesystem.Open("dangling.txt")
	if err != nil {
		t.Fatalf("Open(dangling.txt): got error %v, want nil", err)
	}

	if err := filesystem.Close(); err != nil {
		t.Fatalf("Close(): got error %v, want nil", err)
	}

	buf := make([]byte, 4)
	if _, err := f.Read(buf); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Read() on file of closed filesystem: got error %v, want fs.ErrClosed", err)
	}

	// Closing the invalidated handle is still safe.
	_ = f.Close()
}

func testLifecycleFileCloseIdempotent(t *testing.T, filesystem core.FS) {
	defer func() { _ = filesystem.Close() }()

	f, err := filesystem.Create("closeme.txt")
	if err != nil {
		t.Fatalf("Create(closeme.txt): got error %v, want nil", err)
	}
	if _, err := f.Write([]byte("data")); err != nil {
		t.Fatalf("Write(): got error %v, want nil", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close(): got error %v, want nil", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() second call: got error %v, want nil", err)
	}

	buf := make([]byte, 4)
	if _, err := f.Read(buf); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Read() after Close: got error %v, want fs.ErrClosed", err)
	}
}

func testLifecycleChrootClose(t *testing.T, filesystem core.FS) {
	defer func() { _ = filesystem.Close() }()

	if err := filesystem.MkdirAll("scoped", 0755); err != nil {
		t.Fatalf("MkdirAll(scoped): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("scoped/data.txt", []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile(scoped/data.txt): setup failed: %v", err)
	}

	view, err := filesystem.Chroot("scoped")
	if err != nil {
		t.Fatalf("Chroot(scoped): got error %v, want nil", err)
	}

	// Closing a view releases the view only; the parent keeps working.
	if err := view.Close(); err != nil {
		t.Fatalf("view.Close(): got error %v, want nil", err)
	}
	if _, err := filesystem.ReadFile("scoped/data.txt"); err != nil {
		t.Errorf("filesystem.ReadFile(scoped/data.txt) after view close: got error %v, want nil", err)
	}
}
