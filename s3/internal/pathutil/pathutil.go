// Package pathutil provides object-key manipulation utilities for the s3
// filesystem. Caller paths are normalized and containment-checked by the
// core package before they become keys; this package only handles the
// prefix bookkeeping that maps a scoped view onto a flat key namespace.
package pathutil

import (
	"path/filepath"
	"strings"
)

// NormalizePrefix normalizes the key prefix of a scoped view:
// - Converts backslashes to forward slashes
// - Removes leading and trailing slashes
// - Returns empty string if prefix is "." or empty.
func NormalizePrefix(prefix string) string {
	if prefix == "" || prefix == "." {
		return ""
	}

	prefix = strings.ReplaceAll(prefix, "\\", "/")
	prefix = filepath.ToSlash(filepath.Clean(prefix))
	prefix = strings.Trim(prefix, "/")

	return prefix
}

// JoinKey joins a normalized prefix with a resolved path to form a full
// object key. A resolved path of "." addresses the prefix itself.
func JoinKey(prefix, resolved string) string {
	if resolved == "." || resolved == "" {
		return prefix
	}
	if prefix == "" {
		return resolved
	}
	return prefix + "/" + resolved
}

// BuildEntryKey constructs the object key for an entry given its parent
// key and name.
func BuildEntryKey(parentKey, entryName string) string {
	if parentKey != "" {
		return parentKey + "/" + entryName
	}
	return entryName
}
