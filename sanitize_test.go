// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSafeSegment(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("a", 400)
	gotLong := safeSegment(longName)
	if len(gotLong) != maxSegmentLen {
		t.Fatalf("len(long)=%d, want %d", len(gotLong), maxSegmentLen)
	}
	if gotLong == safeSegment(longName[:399]+"b") {
		t.Fatal("distinct long segments shortened to the same name")
	}

	testCases := []struct {
		in   string
		want string
	}{
		{in: "CON.txt", want: "_CON.txt"},
		{in: "  COM8.c  ", want: "_COM8.c"},
		{in: "a:b?.txt", want: "a_b_.txt"},
		{in: "name. ", want: "name"},
		{in: "..", want: "_"},
		{in: "AUX:", want: "_AUX_"},
		{in: "CLOCK$.cfg", want: "_CLOCK$.cfg"},
		{in: "conout$", want: "_conout$"},
		{in: "lpt¹.log", want: "_lpt¹.log"},
		{in: "COM10.txt", want: "COM10.txt"},
		{in: "console.txt", want: "console.txt"},
		{in: "a\x1b[31m.txt", want: "a_[31m.txt"},
		{in: "name\u009b0m.txt", want: "name_0m.txt"},
		{in: "a\x7fb.txt", want: "a_b.txt"},
		{in: "a\u200fb.txt", want: "a_b.txt"},
		{in: "bad\xffbyte", want: "bad_byte"},
	}

	for _, tc := range testCases {
		if got := safeSegment(tc.in); got != tc.want {
			t.Fatalf("safeSegment(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsReservedDeviceName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want bool
	}{
		{name: "con", want: true},
		{name: "con.txt", want: true},
		{name: "AUX:", want: true},
		{name: "CLOCK$", want: true},
		{name: "nul.tar.gz", want: true},
		{name: "com0", want: true},
		{name: "LPT9.", want: true},
		{name: "com", want: false},
		{name: "lpt10", want: false},
		{name: "normal.txt", want: false},
		{name: "_con.txt", want: false},
		{name: "", want: false},
	}

	for _, tc := range testCases {
		got := isReservedDeviceName(tc.name)
		if got != tc.want {
			t.Fatalf("isReservedDeviceName(%q)=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSanitizeEntryPathsCollision(t *testing.T) {
	t.Parallel()

	got, err := sanitizeEntryPaths([]string{"a:b.txt", "a?b.txt", "dir:x/"})
	if err != nil {
		t.Fatalf("sanitizeEntryPaths: %v", err)
	}

	want := []string{"a_b.txt", "a_b~2.txt", "dir_x/"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sanitizeEntryPaths mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeEntryPaths_MangledPaths(t *testing.T) {
	t.Parallel()

	got, err := sanitizeEntryPaths([]string{
		`\\\\\:\`,
		`..\evil.txt`,
		`scripts\4_world\aux.c\COM8.c`,
	})
	if err != nil {
		t.Fatalf("sanitizeEntryPaths: %v", err)
	}

	want := []string{
		"_",
		"_/evil.txt",
		"scripts/4_world/_aux.c/_COM8.c",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sanitizeEntryPaths mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeDisplayPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{in: "a\x1b[31m.txt", want: "a_[31m.txt"},
		{in: "scripts\\\u200fname.c", want: "scripts/_name.c"},
		{in: "two/four/", want: "two/four/"},
		{in: "CON.txt", want: "CON.txt"},
		{in: "../up.txt", want: "_/up.txt"},
	}

	for _, tc := range testCases {
		if got := SanitizeDisplayPath(tc.in); got != tc.want {
			t.Fatalf("SanitizeDisplayPath(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	got, err := SanitizePath(`./data\ a \COM2.c`)
	if err != nil {
		t.Fatalf("SanitizePath: %v", err)
	}
	if got != "data/a/_COM2.c" {
		t.Fatalf("SanitizePath=%q, want data/a/_COM2.c", got)
	}

	got, err = SanitizePath("/")
	if err != nil || got != "" {
		t.Fatalf("SanitizePath(/)=(%q, %v), want empty", got, err)
	}
}

func TestExtractSanitizeNames(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "names.pbo", buildManualPBO(t, []manualEntry{
		{name: "CON.txt", data: []byte("hello")},
		{name: "a:b.txt", data: []byte("world")},
		{name: "a?b.txt", data: []byte("x")},
	}))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = a.Close() }()

	outDir := t.TempDir()
	dir, err := a.ExtractTo(context.Background(), outDir, ExtractOptions{})
	if err != nil {
		t.Fatalf("ExtractTo sanitize: %v", err)
	}

	cases := []struct {
		path string
		want []byte
	}{
		{path: "_CON.txt", want: []byte("hello")},
		{path: "a_b.txt", want: []byte("world")},
		{path: "a_b~2.txt", want: []byte("x")},
	}

	for _, tc := range cases {
		got, err := os.ReadFile(filepath.Join(dir, tc.path))
		if err != nil {
			t.Fatalf("read %s: %v", tc.path, err)
		}
		if !bytes.Equal(got, tc.want) {
			t.Fatalf("%s=%q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestExtractRawNamesRejectsUnsafe(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "abs.zip", buildZip(t, []zipMember{
		{name: "/etc/passwd", body: "root"},
	}))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = a.Close() }()

	_, err = a.ExtractTo(context.Background(), t.TempDir(), ExtractOptions{RawNames: true})
	if !errors.Is(err, ErrInvalidExtractPath) {
		t.Fatalf("ExtractTo raw err=%v, want ErrInvalidExtractPath", err)
	}

	out := t.TempDir()
	if _, err := a.ExtractTo(context.Background(), out, ExtractOptions{}); err != nil {
		t.Fatalf("ExtractTo sanitized: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(out, "etc", "passwd"))
	if err != nil {
		t.Fatalf("read sanitized etc/passwd: %v", err)
	}
	if string(got) != "root" {
		t.Fatalf("etc/passwd=%q", got)
	}
}
