// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"fmt"
	"io"
	"os"
)

// Open detects the format of the file at path and returns its archive view.
// The returned archive owns the file; Close releases it.
func Open(path string) (Archive, error) {
	return OpenWithOptions(path, OpenOptions{})
}

// OpenWithOptions opens path like Open using explicit options.
func OpenWithOptions(path string, opts OpenOptions) (Archive, error) {
	opts.applyDefaults()

	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	h, err := sniff(f, size, path, hintFor(path, &opts), &opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	// The file goes first so it is released after any spool built from it.
	h.closers = append([]io.Closer{f}, h.closers...)

	a, err := newArchive(h)
	if err != nil {
		_ = h.release()
		return nil, err
	}

	return a, nil
}

// OpenReaderAt detects the format of size bytes readable from ra and returns
// its archive view. name drives the extension hint and stream entry naming.
// The caller keeps ownership of ra and must keep it open until Close.
func OpenReaderAt(ra io.ReaderAt, size int64, name string, opts OpenOptions) (Archive, error) {
	opts.applyDefaults()

	h, err := sniff(ra, size, name, hintFor(name, &opts), &opts)
	if err != nil {
		return nil, err
	}

	a, err := newArchive(h)
	if err != nil {
		_ = h.release()
		return nil, err
	}

	return a, nil
}

// DetectFile returns the format of the file at path without keeping it open.
func DetectFile(path string) (Format, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	opts := OpenOptions{}
	return detectWithOptions(f, size, path, hintFor(path, &opts), opts)
}

// hintFor returns the extension hint for path unless disabled.
func hintFor(path string, opts *OpenOptions) Format {
	if opts.IgnoreExtension {
		return ""
	}

	hint, _ := HintFormat(path)
	return hint
}

// newArchive builds the wrapper matching the accepted format.
func newArchive(h *handle) (Archive, error) {
	switch h.format {
	case FormatTarIn7z, FormatTar:
		return newTarArchive(h)
	case FormatZip:
		return newZipArchive(h)
	case Format7z:
		return newSevenZipArchive(h)
	case FormatRar:
		return newRarArchive(h)
	case FormatGzip, FormatXz, FormatBzip2, FormatZstd, FormatLz4:
		return newStreamArchive(h)
	case FormatPBO:
		return newPBOArchive(h)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, h.format)
	}
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open archive: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	if fi.IsDir() {
		_ = f.Close()
		return nil, 0, fmt.Errorf("open archive: %s is a directory", path)
	}

	return f, fi.Size(), nil
}
