package core

import (
	"io/fs"
	"path"
	"strings"
)

// CopyFromFS copies all files from a read-only filesystem (typically
// embed.FS or another provider) into a writable FS, preserving the
// directory structure.
//
// The srcRoot parameter specifies the root directory in the source
// filesystem to copy from. Use "." to copy the entire source filesystem.
//
// This function:
//   - Creates all necessary parent directories using MkdirAll
//   - Preserves file permissions from the source filesystem
//   - Skips directory entries (only files are copied)
//
// Example:
//
//	//go:embed testdata/*
//	var seedFS embed.FS
//
//	memFS := billy.NewMemory()
//	err := core.CopyFromFS(seedFS, memFS, "testdata")
func CopyFromFS(src fs.FS, dst FS, srcRoot string) error {
	return fs.WalkDir(src, srcRoot, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Directories are created on demand by MkdirAll below.
		if d.IsDir() {
			return nil
		}

		data, err := fs.ReadFile(src, filePath)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		// Destination path is relative to srcRoot.
		dstPath := filePath
		if srcRoot != "." && srcRoot != "" {
			dstPath = strings.TrimPrefix(filePath, srcRoot)
			dstPath = strings.TrimPrefix(dstPath, "/")
		}

		if dir := path.Dir(dstPath); dir != "." && dir != "" {
			if err := dst.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}

		return dst.WriteFile(dstPath, data, info.Mode().Perm())
	})
}
