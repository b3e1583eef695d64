// Package fstest provides a conformance suite for validating backend
// implementations against the core.FS contract.
//
// Backend packages import the suite and run it against a fresh filesystem
// per test group:
//
//	func TestConformance(t *testing.T) {
//	    fstest.TestSuite(t, func() core.FS {
//	        return mybackend.New()
//	    })
//	}
//
// The suite validates the interface contract, not backend-specific
// behavior. Object stores differ from POSIX filesystems in documented
// ways (virtual directories, idempotent deletes, implicit parents), and
// the Config passed to TestSuiteWithConfig adapts the assertions to
// those differences.
package fstest

import (
	"testing"

	"github.com/jmgilman/vfs/core"
)

// Config describes behavior characteristics the suite must account for.
type Config struct {
	// VirtualDirectories indicates directories are prefixes rather than
	// objects: they need not be created and cannot be stat'd directly.
	VirtualDirectories bool

	// IdempotentDelete indicates Remove succeeds on paths that do not
	// exist instead of returning fs.ErrNotExist.
	IdempotentDelete bool

	// ImplicitParentDirs indicates files can be created without their
	// parent directories existing first.
	ImplicitParentDirs bool

	// SkipTests lists suite test names to skip, in "Group/SubTest" form
	// (for example "WriteFS/CreateInNonExistentDir").
	SkipTests []string
}

// POSIXConfig returns the configuration for POSIX-like backends (local
// disk, in-memory).
func POSIXConfig() Config {
	return Config{}
}

// ObjectStoreConfig returns the configuration for object-store backends
// (S3 and compatible).
func ObjectStoreConfig() Config {
	return Config{
		VirtualDirectories: true,
		IdempotentDelete:   true,
		ImplicitParentDirs: true,
	}
}

func (c Config) skip(t *testing.T, name string) bool {
	for _, s := range c.SkipTests {
		if s == name {
			t.Skip("skipped by backend configuration")
			return true
		}
	}
	return false
}

// TestSuite runs all conformance tests with POSIXConfig. The newFS
// function must return a fresh, empty filesystem for each test group;
// tests create and delete files, so each invocation must start clean.
func TestSuite(t *testing.T, newFS func() core.FS) {
	TestSuiteWithConfig(t, newFS, POSIXConfig())
}

// TestSuiteWithConfig runs all conformance tests with the given
// behavior configuration.
func TestSuiteWithConfig(t *testing.T, newFS func() core.FS, config Config) {
	t.Run("ReadFS", func(t *testing.T) {
		if config.skip(t, "ReadFS") {
			return
		}
		TestReadFS(t, newFS(), config)
	})

	t.Run("WriteFS", func(t *testing.T) {
		if config.skip(t, "WriteFS") {
			return
		}
		TestWriteFS(t, newFS(), config)
	})

	t.Run("ManageFS", func(t *testing.T) {
		if config.skip(t, "ManageFS") {
			return
		}
		TestManageFS(t, newFS(), config)
	})

	t.Run("WalkFS", func(t *testing.T) {
		if config.skip(t, "WalkFS") {
			return
		}
		TestWalkFS(t, newFS(), config)
	})

	t.Run("ChrootFS", func(t *testing.T) {
		if config.skip(t, "ChrootFS") {
			return
		}
		TestChrootFS(t, newFS(), config)
	})

	t.Run("Lifecycle", func(t *testing.T) {
		if config.skip(t, "Lifecycle") {
			return
		}
		TestLifecycle(t, newFS, config)
	})
}
