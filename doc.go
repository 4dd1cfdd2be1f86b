// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

/*
Package arcwrap opens archives and compressed files through one read-only
interface, whatever the underlying format. The format is detected from
content; the file name extension only decides which format is tried first.

Supported formats:
  - containers: tar, zip, 7z, rar and PBO;
  - tar wrapped in gzip, bzip2, xz, zstd or lz4;
  - a single tar stored inside a 7z container (reported as "tar.7z");
  - single-stream compressors: gzip, xz (and legacy .lzma), bzip2, zstd, lz4.

Single-stream files have no name table. They expose one virtual entry named
after the source file without its compression suffix, so "report.txt.gz"
lists as "report.txt".

# Reading

Open an archive and read entries:

	a, err := arcwrap.Open("bundle.tar.gz")
	if err != nil {
	    return err
	}
	defer a.Close()

	for _, name := range a.List() {
	    fmt.Println(name) // directories end with "/"
	}

	c, err := a.OpenByName("docs/readme.txt")
	if err != nil {
	    return err
	}
	if c == nil {
	    // entry is absent
	}
	defer c.Close()

OpenByName returns a nil Contents for unknown names and a nil reader for
directories; neither is an error.

# Detection

Detection tries formats in a fixed order: tar inside 7z first, then tar,
zip, 7z, gzip, xz, bzip2, rar, zstd, lz4 and PBO. A recognized extension
moves its format to the front. Malformed input makes a format decline and
the next one is tried; only unreadable sources and failing temporary files
abort detection.

	format, err := arcwrap.DetectFile("download.bin")
	if errors.Is(err, arcwrap.ErrFormatUnrecognized) {
	    // not an archive
	}

# Extracting

ExtractTo writes all entries and returns the directory used. Archives with
several top-level items go into a subdirectory named after the archive;
single-root archives and single files go straight into the destination:

	dir, err := a.ExtractTo(ctx, "out", arcwrap.ExtractOptions{
	    Filter: []pathrules.Rule{
	        {Action: pathrules.ActionExclude, Pattern: "*.tmp"},
	    },
	})

Entry names are sanitized for the local filesystem unless RawNames is set.
Paths escaping the destination are rejected.
*/
package arcwrap
