// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// zipIndex is an opened zip central directory.
type zipIndex struct {
	reader *zip.Reader
	index  *entryIndex
}

// probeZip reads the zip central directory from sr.
func probeZip(sr *io.SectionReader) (*zipIndex, error) {
	zr, err := zip.NewReader(sr, sr.Size())
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("zip: %w", err)
	}

	idx := newEntryIndex(len(zr.File))
	for i, f := range zr.File {
		isDir := strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
		idx.add(entryName(f.Name, isDir), i)
	}

	return &zipIndex{reader: zr, index: idx}, nil
}

// ZipArchive is a zip archive.
type ZipArchive struct {
	archiveBase
	zip *zipIndex
}

// newZipArchive wraps an opened zip handle.
func newZipArchive(h *handle) (*ZipArchive, error) {
	zi, err := nativeAs[*zipIndex](h)
	if err != nil {
		return nil, err
	}

	return &ZipArchive{archiveBase: archiveBase{h: h}, zip: zi}, nil
}

// List returns entry names in central directory order.
func (a *ZipArchive) List() []string {
	return a.zip.index.list()
}

// OpenByName opens one entry by name.
func (a *ZipArchive) OpenByName(name string) (Contents, error) {
	if err := a.lock(); err != nil {
		return nil, err
	}
	defer a.unlock()

	pos, ok := a.zip.index.lookup(name)
	if !ok {
		return nil, nil
	}

	if isDirName(name) {
		return Contents{name: nil}, nil
	}

	rc, err := a.zip.reader.File[pos].Open()
	if err != nil {
		return nil, fmt.Errorf("zip: open %s: %w", name, err)
	}

	return Contents{name: rc}, nil
}

// OpenAll opens every file entry.
func (a *ZipArchive) OpenAll() (Contents, error) {
	return openAll(a)
}

// ExtractTo extracts all entries into dstDir and returns the effective directory.
func (a *ZipArchive) ExtractTo(ctx context.Context, dstDir string, opts ExtractOptions) (string, error) {
	return extractArchive(ctx, a, dstDir, opts)
}
