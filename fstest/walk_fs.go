package fstest

import (
	"io/fs"
	"testing"

	"github.com/jmgilman/vfs/core"
)

// TestWalkFS tests depth-first tree traversal with Walk: visit order,
// path correctness, and SkipDir pruning.
func TestWalkFS(t *testing.T, filesystem core.FS, config Config) {
	t.Run("SimpleTree", func(t *testing.T) {
		testWalkFSSimpleTree(t, filesystem, config)
	})
	t.Run("WithSubdirectories", func(t *testing.T) {
		testWalkFSWithSubdirectories(t, filesystem, config)
	})
	t.Run("EmptyDirectory", func(t *testing.T) {
		testWalkFSEmptyDirectory(t, filesystem, config)
	})
	t.Run("SkipDir", func(t *testing.T) {
		testWalkFSSkipDir(t, filesystem, config)
	})
	t.Run("PathHandling", func(t *testing.T) {
		testWalkFSPathHandling(t, filesystem, config)
	})
}

func collectWalk(t *testing.T, filesystem core.FS, root string) []string {
	t.Helper()
	var visited []string
	err := filesystem.Walk(root, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		visited = append(visited, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk(%s): got error %v, want nil", root, err)
	}
	return visited
}

func assertVisited(t *testing.T, visited []string, want string) {
	t.Helper()
	for _, p := range visited {
		if p == want {
			return
		}
	}
	t.Errorf("Walk: missing %q in visited paths: %v", want, visited)
}

func testWalkFSSimpleTree(t *testing.T, filesystem core.FS, config Config) {
	if err := filesystem.Mkdir("walktest", 0755); err != nil {
		t.Fatalf("Mkdir(walktest): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("walktest/file1.txt", []byte("content1"), 0644); err != nil {
		t.Fatalf("WriteFile(walktest/file1.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("walktest/file2.txt", []byte("content2"), 0644); err != nil {
		t.Fatalf("WriteFile(walktest/file2.txt): setup failed: %v", err)
	}

	visited := collectWalk(t, filesystem, "walktest")

	if config.VirtualDirectories {
		// Directory prefixes may be absent from the listing; the files
		// must appear either way.
		assertVisited(t, visited, "walktest/file1.txt")
		assertVisited(t, visited, "walktest/file2.txt")
		return
	}

	expected := []string{"walktest", "walktest/file1.txt", "walktest/file2.txt"}
	if len(visited) != len(expected) {
		t.Fatalf("Walk(walktest): visited %d paths, want %d. Visited: %v", len(visited), len(expected), visited)
	}
	for i, want := range expected {
		if visited[i] != want {
			t.Errorf("Walk(walktest): path[%d] = %q, want %q", i, visited[i], want)
		}
	}
}

func testWalkFSWithSubdirectories(t *testing.T, filesystem core.FS, config Config) {
	if err := filesystem.MkdirAll("walkroot/subdir1", 0755); err != nil {
		t.Fatalf("MkdirAll(walkroot/subdir1): setup failed: %v", err)
	}
	if err := filesystem.MkdirAll("walkroot/subdir2", 0755); err != nil {
		t.Fatalf("MkdirAll(walkroot/subdir2): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("walkroot/root.txt", []byte("root"), 0644); err != nil {
		t.Fatalf("WriteFile(walkroot/root.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("walkroot/subdir1/file1.txt", []byte("file1"), 0644); err != nil {
		t.Fatalf("WriteFile(walkroot/subdir1/file1.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("walkroot/subdir2/file2.txt", []byte("file2"), 0644); err != nil {
		t.Fatalf("WriteFile(walkroot/subdir2/file2.txt): setup failed: %v", err)
	}

	visited := collectWalk(t, filesystem, "walkroot")

	if config.VirtualDirectories {
		assertVisited(t, visited, "walkroot/root.txt")
		assertVisited(t, visited, "walkroot/subdir1/file1.txt")
		assertVisited(t, visited, "walkroot/subdir2/file2.txt")
		return
	}

	expected := []string{
		"walkroot",
		"walkroot/root.txt",
		"walkroot/subdir1",
		"walkroot/subdir1/file1.txt",
		"walkroot/subdir2",
		"walkroot/subdir2/file2.txt",
	}
	if len(visited) != len(expected) {
		t.Fatalf("Walk(walkroot): visited %d paths, want %d. Visited: %v", len(visited), len(expected), visited)
	}
	for i, want := range expected {
		if visited[i] != want {
			t.Errorf("Walk(walkroot): path[%d] = %q, want %q", i, visited[i], want)
		}
	}
}

func testWalkFSEmptyDirectory(t *testing.T, filesystem core.FS, config Config) {
	if config.VirtualDirectories {
		t.Skip("empty directories do not exist as objects on this backend")
		return
	}

	if err := filesystem.Mkdir("emptydir", 0755); err != nil {
		t.Fatalf("Mkdir(emptydir): setup failed: %v", err)
	}

	visited := collectWalk(t, filesystem, "emptydir")
	if len(visited) != 1 || visited[0] != "emptydir" {
		t.Errorf("Walk(emptydir): visited %v, want [emptydir]", visited)
	}
}

func testWalkFSSkipDir(t *testing.T, filesystem core.FS, config Config) {
	if err := filesystem.MkdirAll("skiproot/skipme", 0755); err != nil {
		t.Fatalf("MkdirAll(skiproot/skipme): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("skiproot/keep.txt", []byte("keep"), 0644); err != nil {
		t.Fatalf("WriteFile(skiproot/keep.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("skiproot/skipme/hidden.txt", []byte("hidden"), 0644); err != nil {
		t.Fatalf("WriteFile(skiproot/skipme/hidden.txt): setup failed: %v", err)
	}

	var visited []string
	err := filesystem.Walk("skiproot", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "skipme" {
			return fs.SkipDir
		}
		visited = append(visited, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk(skiproot): got error %v, want nil", err)
	}

	assertVisited(t, visited, "skiproot/keep.txt")
	for _, p := range visited {
		if p == "skiproot/skipme/hidden.txt" {
			t.Errorf("Walk(skiproot): visited %q despite SkipDir on its parent", p)
		}
	}
}

func testWalkFSPathHandling(t *testing.T, filesystem core.FS, config Config) {
	if err := filesystem.MkdirAll("pathtest/nested", 0755); err != nil {
		t.Fatalf("MkdirAll(pathtest/nested): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("pathtest/top.txt", []byte("top"), 0644); err != nil {
		t.Fatalf("WriteFile(pathtest/top.txt): setup failed: %v", err)
	}
	if err := filesystem.WriteFile("pathtest/nested/deep.txt", []byte("deep"), 0644); err != nil {
		t.Fatalf("WriteFile(pathtest/nested/deep.txt): setup failed: %v", err)
	}

	// Every path Walk reports must round-trip through Stat, and the
	// DirEntry it reports must agree with the FileInfo.
	err := filesystem.Walk("pathtest", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if config.VirtualDirectories && d.IsDir() {
			return nil
		}

		info, statErr := filesystem.Stat(path)
		if statErr != nil {
			t.Errorf("Walk reported path %q that Stat cannot access: %v", path, statErr)
			return nil
		}
		if d.IsDir() != info.IsDir() {
			t.Errorf("Walk path %q: DirEntry.IsDir() = %v, FileInfo.IsDir() = %v", path, d.IsDir(), info.IsDir())
		}
		if d.Name() != info.Name() {
			t.Errorf("Walk path %q: DirEntry.Name() = %q, FileInfo.Name() = %q", path, d.Name(), info.Name())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk(pathtest): got error %v, want nil", err)
	}
}
