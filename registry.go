package vfs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jmgilman/vfs/core"
)

// SchemeConstructor builds a filesystem for one parsed locator. The
// locator's path has already been normalized; the constructor decides how
// authority and path map onto the backend (bucket and key prefix for
// object stores, namenode and root for HDFS, root directory for local
// disk).
type SchemeConstructor func(loc Locator) (core.FS, error)

// Registry maps URL schemes to filesystem constructors. A Registry is
// safe for concurrent use. New backends plug in through Register without
// touching the resolver.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]SchemeConstructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]SchemeConstructor)}
}

// Register binds a scheme to a constructor, replacing any previous
// binding for that scheme.
func (r *Registry) Register(scheme string, ctor SchemeConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[scheme] = ctor
}

// Lookup returns the constructor registered for scheme. Unknown schemes
// fail with core.ErrUnsupportedScheme.
func (r *Registry) Lookup(scheme string) (SchemeConstructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.backends[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedScheme, scheme)
	}
	return ctor, nil
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemes := make([]string, 0, len(r.backends))
	for scheme := range r.backends {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// defaultRegistry serves the package-level Parse/FromURL/OpenURL entry
// points. The built-in backends are bound in vfs.go.
var defaultRegistry = NewRegistry()

// Register binds a scheme to a constructor in the default registry.
func Register(scheme string, ctor SchemeConstructor) {
	defaultRegistry.Register(scheme, ctor)
}
