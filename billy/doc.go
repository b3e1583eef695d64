// Package billy provides go-billy-backed local and in-memory
// implementations of the core.FS interface.
//
// This package wraps go-billy's osfs (local) and memfs (in-memory)
// filesystems in a thin adapter that implements core.FS while keeping the
// underlying billy.Filesystem reachable via Unwrap for integration with
// libraries that speak billy.
//
// Usage:
//
//	// Local filesystem rooted at a directory
//	filesystem := billy.NewLocal("/data")
//
//	// Use with the core.FS interface
//	data, err := filesystem.ReadFile("config.json")
//
// # Memory Filesystem
//
// For testing or temporary storage, use the in-memory filesystem:
//
//	filesystem := billy.NewMemory()
//	err := filesystem.WriteFile("temp.txt", []byte("data"), 0644)
//
// # Lifecycle
//
// Close invalidates the filesystem and every outstanding File it
// produced; later operations on either fail with an error wrapping
// fs.ErrClosed. Local filesystems hold no connection state and are cheap
// to reconstruct, which also makes them fork-safe by nature.
//
// # Thread Safety
//
// FS instances are safe for concurrent use by multiple goroutines for
// metadata operations; Chroot returns a new instance rather than mutating
// shared state. Individual File handles are owned by their opener and are
// not internally synchronized.
package billy
