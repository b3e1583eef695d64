// Package core provides the foundational interfaces and types for a
// multi-provider filesystem abstraction.
//
// This package defines contracts that filesystem providers must implement,
// enabling data-loading pipelines to write backend-agnostic code that works
// with local disk, in-memory filesystems, HDFS, S3-compatible object
// storage, and ZIP archives through a unified interface.
//
// # Design Philosophy
//
// The core package follows these principles:
//
//   - Interface composition: Small focused interfaces compose into larger contracts
//   - Stdlib compatibility: Extends fs.FS and fs.File rather than replacing them
//   - Explicit lifecycle: Filesystems and files are released by Close, never
//     by garbage collection timing; Close is idempotent everywhere
//   - No ambient state: There is no process-wide current filesystem or root;
//     FS instances are threaded explicitly through call sites
//   - Containment: Every path is resolved against the instance's own root
//     and rejected with ErrTraversal if it would escape
//
// # Interface Hierarchy
//
// The main FS interface is composed of five sub-interfaces:
//
//   - ReadFS: Read-only operations (Open, Stat, ReadDir, ReadFile, Exists, IsDir)
//   - WriteFS: Write operations (Create, OpenFile, WriteFile, Mkdir, MkdirAll)
//   - ManageFS: File management (Remove, RemoveAll, Rename)
//   - WalkFS: Directory traversal (Walk)
//   - ChrootFS: Scoped filesystem views (Chroot)
//
// plus Close and Type.
//
// # Scoped Views
//
// Chroot returns an immutable view of the filesystem under a directory.
// SubFS is the generic implementation for backends without a native scoped
// view; it accumulates a relative base and re-validates every path against
// it. Views compose associatively and never mutate their parent.
//
// # Usage Example
//
//	import "github.com/jmgilman/vfs/core"
//
//	func ProcessFiles(filesystem core.FS) error {
//	    data, err := filesystem.ReadFile("config.json")
//	    if err != nil {
//	        return err
//	    }
//	    // Process data...
//	    return filesystem.WriteFile("output.json", result, 0644)
//	}
//
// # Stdlib Compatibility
//
// The FS interface embeds fs.FS, making it compatible with standard library
// functions like fs.WalkDir, fs.ReadFile, etc.
//
// # Provider Implementations
//
// This package contains only interface definitions and the generic SubFS.
// Concrete implementations are provided by separate provider packages:
//
//   - github.com/jmgilman/vfs/billy - go-billy-backed local and memory providers
//   - github.com/jmgilman/vfs/s3 - MinIO/S3 object-store provider
//   - github.com/jmgilman/vfs/hdfs - HDFS provider
//   - github.com/jmgilman/vfs/zipfs - read-only ZIP archive provider
//   - github.com/jmgilman/vfs/lazy - fork-tolerant wrapper around any provider
package core
