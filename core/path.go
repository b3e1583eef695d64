package core

import (
	"path"
	"strings"
)

// Clean normalizes a caller-supplied path into the canonical slash form
// used throughout the module: forward slashes, no leading or trailing
// slash, "." and ".." segments collapsed. A leading "/" addresses the view
// root and is stripped rather than interpreted against the host root.
// Returns "." for paths that normalize to the view root.
//
// Clean performs no containment check; use Resolve for that.
func Clean(name string) string {
	if name == "" {
		return "."
	}

	// Tolerate Windows-style separators in caller input.
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean(name)
	name = strings.Trim(name, "/")

	if name == "" {
		return "."
	}
	return name
}

// Resolve normalizes name and verifies it stays inside the view root.
// A normalized result that still begins with ".." would climb above the
// root; Resolve rejects it with ErrTraversal before any backend logic can
// see it. This is the single containment check shared by every scoped
// view.
func Resolve(name string) (string, error) {
	cleaned := Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrTraversal
	}
	return cleaned, nil
}

// Join resolves name against base and returns the combined path, relative
// to base's own root. base must already be in canonical form (a prior
// Clean or Resolve result). Fails with ErrTraversal when name would
// resolve above base.
func Join(base, name string) (string, error) {
	resolved, err := Resolve(name)
	if err != nil {
		return "", err
	}
	if resolved == "." {
		if base == "" {
			return ".", nil
		}
		return base, nil
	}
	if base == "" || base == "." {
		return resolved, nil
	}
	return path.Join(base, resolved), nil
}
