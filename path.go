// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"path"
	"path/filepath"
	"strings"
)

// NormalizePath converts an archive/internal path to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/", and cleans "." segments.
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// RootItems counts distinct first path segments across entry names.
func RootItems(entries []string) int {
	roots := make(map[string]struct{}, len(entries))
	for _, name := range entries {
		root, _, _ := strings.Cut(name, "/")
		roots[root] = struct{}{}
	}

	return len(roots)
}

// ResolveExtractDir picks the effective extraction directory. Archives with
// fewer than two root items extract directly into dstDir; others get a
// subdirectory named after the archive so their items are not scattered.
func ResolveExtractDir(entries []string, archivePath string, dstDir string) string {
	if RootItems(entries) < 2 {
		return dstDir
	}

	name := BaseName(archivePath)
	if name == "" {
		return dstDir
	}

	return filepath.Join(dstDir, name)
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(path string) string {
	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, `\`, `/`)
	path = strings.TrimPrefix(path, "./")
	return path
}

// entryName converts a native archive name to listing form. Separators
// become "/", and directories get exactly one trailing "/". The archive
// root itself ("." or "./") maps to "".
func entryName(raw string, isDir bool) string {
	name := strings.ReplaceAll(raw, `\`, `/`)
	name = strings.TrimPrefix(name, "./")
	if name == "." {
		return ""
	}

	if isDir {
		name = strings.TrimRight(name, "/")
		if name == "" {
			return ""
		}

		return name + "/"
	}

	return name
}

// isDirName reports whether listing name denotes a directory.
func isDirName(name string) bool {
	return strings.HasSuffix(name, "/")
}

// lookupKeys returns listing names a link target may refer to, so
// "two" also finds directory "two/".
func lookupKeys(name string) []string {
	if name == "" || isDirName(name) {
		return []string{name}
	}

	return []string{name, name + "/"}
}
