// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "slash", in: "/", want: ""},
		{name: "clean", in: "two/five/nine", want: "two/five/nine"},
		{name: "windows", in: `.\two\five\nine\`, want: "two/five/nine"},
		{name: "dot segments", in: "./a/../b//c.txt", want: "b/c.txt"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizePath(tc.in)
			if got != tc.want {
				t.Fatalf("NormalizePath(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestEntryName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		in    string
		isDir bool
		want  string
	}{
		{name: "file", in: "one.txt", want: "one.txt"},
		{name: "dir", in: "two", isDir: true, want: "two/"},
		{name: "dir with slash", in: "two/", isDir: true, want: "two/"},
		{name: "dir with many slashes", in: "two//", isDir: true, want: "two/"},
		{name: "backslashes", in: `two\four\six.txt`, want: "two/four/six.txt"},
		{name: "dot prefix", in: "./two/three.txt", want: "two/three.txt"},
		{name: "root dot", in: ".", isDir: true, want: ""},
		{name: "root dot slash", in: "./", isDir: true, want: ""},
		{name: "root slash", in: "/", isDir: true, want: ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := entryName(tc.in, tc.isDir)
			if got != tc.want {
				t.Fatalf("entryName(%q, %v)=%q, want %q", tc.in, tc.isDir, got, tc.want)
			}
		})
	}
}

func TestLookupKeys(t *testing.T) {
	t.Parallel()

	if diff := cmp.Diff([]string{"two", "two/"}, lookupKeys("two")); diff != "" {
		t.Fatalf("lookupKeys(two) mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"two/"}, lookupKeys("two/")); diff != "" {
		t.Fatalf("lookupKeys(two/) mismatch (-want +got):\n%s", diff)
	}
}

func TestRootItems(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		entries []string
		want    int
	}{
		{name: "empty", entries: nil, want: 0},
		{name: "single file", entries: []string{"file.txt"}, want: 1},
		{name: "single dir tree", entries: []string{"a/", "a/b.txt", "a/c/"}, want: 1},
		{name: "dirs fixture", entries: dirsListing, want: 2},
		{name: "flat files", entries: []string{"a.txt", "b.txt", "c.txt"}, want: 3},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := RootItems(tc.entries); got != tc.want {
				t.Fatalf("RootItems(%q)=%d, want %d", tc.entries, got, tc.want)
			}
		})
	}
}

func TestResolveExtractDir(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		entries     []string
		archivePath string
		want        string
	}{
		{name: "multi root", entries: dirsListing, archivePath: "/tmp/dirs.tar.gz", want: filepath.Join("out", "dirs")},
		{name: "multi root unknown ext", entries: dirsListing, archivePath: "dirs.bin", want: filepath.Join("out", "dirs")},
		{name: "single root", entries: []string{"a/", "a/b.txt"}, archivePath: "a.zip", want: "out"},
		{name: "single file", entries: []string{"report.txt"}, archivePath: "report.txt.gz", want: "out"},
		{name: "no path", entries: dirsListing, archivePath: "", want: "out"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ResolveExtractDir(tc.entries, tc.archivePath, "out")
			if got != tc.want {
				t.Fatalf("ResolveExtractDir(%q)=%q, want %q", tc.archivePath, got, tc.want)
			}
		})
	}
}
