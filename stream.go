// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"context"
	"path/filepath"
)

// defaultStreamEntryName names the payload of a stream without a source path.
const defaultStreamEntryName = "data"

// StreamArchive is a single-stream compressed file (gzip, xz, lzma, bzip2,
// zstd or lz4) exposed as an archive with one virtual entry named after the
// source file without its compression suffix.
type StreamArchive struct {
	archiveBase
	codec *streamCodec
	name  string
}

// newStreamArchive wraps an opened stream handle.
func newStreamArchive(h *handle) (*StreamArchive, error) {
	codec, err := nativeAs[*streamCodec](h)
	if err != nil {
		return nil, err
	}

	return &StreamArchive{
		archiveBase: archiveBase{h: h},
		codec:       codec,
		name:        streamEntryName(h.path),
	}, nil
}

// streamEntryName derives the virtual entry name from a source path,
// e.g. "report.txt.gz" becomes "report.txt".
func streamEntryName(path string) string {
	if path == "" {
		return defaultStreamEntryName
	}

	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return defaultStreamEntryName
	}

	return trimExt(base)
}

// LegacyLZMA reports whether the payload is an LZMA-alone stream rather than xz.
func (a *StreamArchive) LegacyLZMA() bool {
	return a.codec.legacyLZMA
}

// List returns the single virtual entry name.
func (a *StreamArchive) List() []string {
	return []string{a.name}
}

// OpenByName opens the decompressed payload when name is the virtual entry.
func (a *StreamArchive) OpenByName(name string) (Contents, error) {
	if err := a.lock(); err != nil {
		return nil, err
	}
	defer a.unlock()

	if name != a.name {
		return nil, nil
	}

	rc, err := a.codec.open(a.h.section())
	if err != nil {
		return nil, err
	}

	return Contents{a.name: rc}, nil
}

// OpenAll opens the decompressed payload.
func (a *StreamArchive) OpenAll() (Contents, error) {
	return a.OpenByName(a.name)
}

// ExtractTo writes the decompressed payload to dstDir and returns dstDir.
func (a *StreamArchive) ExtractTo(ctx context.Context, dstDir string, opts ExtractOptions) (string, error) {
	return extractArchive(ctx, a, dstDir, opts)
}
