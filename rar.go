// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nwaples/rardecode"
)

// rarIndex maps RAR entry names to header ordinals.
type rarIndex struct {
	index *entryIndex
}

// probeRar walks every RAR header in sr.
func probeRar(sr *io.SectionReader) (*rarIndex, error) {
	rr, err := rardecode.NewReader(sr, "")
	if err != nil {
		return nil, fmt.Errorf("rar: %w", err)
	}

	idx := newEntryIndex(0)
	for ordinal := 0; ; ordinal++ {
		hdr, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("rar: %w", err)
		}

		idx.add(entryName(hdr.Name, hdr.IsDir), ordinal)
	}

	if idx.len() == 0 {
		return nil, errors.New("rar: no entries")
	}

	return &rarIndex{index: idx}, nil
}

// rarMemberReader exposes one member of a sequential RAR reader.
type rarMemberReader struct {
	*rardecode.Reader
}

// Close is a no-op; the reader holds no resources beyond the source.
func (r rarMemberReader) Close() error {
	return nil
}

// RarArchive is a RAR archive. Entries are read sequentially, so each
// OpenByName starts a new pass over the source.
type RarArchive struct {
	archiveBase
	rar *rarIndex
}

// newRarArchive wraps an opened RAR handle.
func newRarArchive(h *handle) (*RarArchive, error) {
	ri, err := nativeAs[*rarIndex](h)
	if err != nil {
		return nil, err
	}

	return &RarArchive{archiveBase: archiveBase{h: h}, rar: ri}, nil
}

// List returns entry names in header order.
func (a *RarArchive) List() []string {
	return a.rar.index.list()
}

// OpenByName opens one entry by name.
func (a *RarArchive) OpenByName(name string) (Contents, error) {
	if err := a.lock(); err != nil {
		return nil, err
	}
	defer a.unlock()

	ordinal, ok := a.rar.index.lookup(name)
	if !ok {
		return nil, nil
	}

	if isDirName(name) {
		return Contents{name: nil}, nil
	}

	rr, err := rardecode.NewReader(a.h.section(), "")
	if err != nil {
		return nil, fmt.Errorf("rar: %w", err)
	}

	for i := 0; i <= ordinal; i++ {
		if _, err := rr.Next(); err != nil {
			return nil, fmt.Errorf("rar: seek %s: %w", name, err)
		}
	}

	return Contents{name: rarMemberReader{Reader: rr}}, nil
}

// OpenAll opens every file entry.
func (a *RarArchive) OpenAll() (Contents, error) {
	return openAll(a)
}

// ExtractTo extracts all entries into dstDir and returns the effective directory.
func (a *RarArchive) ExtractTo(ctx context.Context, dstDir string, opts ExtractOptions) (string, error) {
	return extractArchive(ctx, a, dstDir, opts)
}

// walk streams all entries in one pass over the source.
func (a *RarArchive) walk(ctx context.Context, fn walkFunc) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.unlock()

	rr, err := rardecode.NewReader(a.h.section(), "")
	if err != nil {
		return fmt.Errorf("rar: %w", err)
	}

	for ordinal := 0; ; ordinal++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("rar: %w", err)
		}

		listed := entryName(hdr.Name, hdr.IsDir)
		last, ok := a.rar.index.lookup(listed)
		if !ok || last != ordinal {
			continue
		}

		var r io.Reader
		if !isDirName(listed) {
			r = rr
		}

		if err := fn(listed, r); err != nil {
			return err
		}
	}
}
