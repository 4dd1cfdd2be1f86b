// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// maxTarLinkDepth bounds link chains followed while opening tar entries.
const maxTarLinkDepth = 8

// tarEntry is one indexed tar member.
type tarEntry struct {
	// name is the listing name.
	name string
	// linkname is the raw link target for link members.
	linkname string
	// ordinal is the header position in the stream, counted from zero.
	ordinal int
	// offset is the absolute payload offset for plain tars, or -1 when the
	// payload can only be reached by rescanning the stream.
	offset int64
	// size is the payload size in bytes.
	size int64
	// typeflag is the tar header type.
	typeflag byte
}

// isDir reports whether entry is a directory.
func (e *tarEntry) isDir() bool {
	return isDirName(e.name)
}

// tarIndex is the parsed member table of one tar stream.
type tarIndex struct {
	// byName maps listing names to entries positions; duplicates resolve
	// to the last member, like tar extraction does.
	byName map[string]int
	// wrapper is the stream format around the tar, or "" for plain tar.
	wrapper Format
	// entries keep first-appearance order.
	entries []tarEntry
}

// countingReader counts bytes consumed from r.
type countingReader struct {
	r io.Reader
	n int64
}

// Read reads from the wrapped reader and advances the counter.
func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// probeTar indexes sr as a tar stream, detecting a compression wrapper by magic.
func probeTar(sr *io.SectionReader) (*tarIndex, error) {
	prefix, err := readPrefix(sr, sr.Size(), len(magicXz))
	if err != nil {
		return nil, err
	}

	idx := &tarIndex{
		wrapper: detectTarWrapper(prefix),
		byName:  make(map[string]int),
	}

	stream, err := idx.openStream(sr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()

	counter := &countingReader{r: stream}
	tr := tar.NewReader(counter)
	for ordinal := 0; ; ordinal++ {
		hdr, err := nextTarHeader(tr)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("tar: %w", err)
		}

		idx.add(hdr, ordinal, counter.n)
	}

	if len(idx.entries) == 0 {
		return nil, errors.New("tar: no members")
	}

	return idx, nil
}

// add records one header in the index.
func (idx *tarIndex) add(hdr *tar.Header, ordinal int, dataOffset int64) {
	name := entryName(hdr.Name, hdr.Typeflag == tar.TypeDir)
	if name == "" || name == "/" {
		return
	}

	offset := int64(-1)
	if idx.wrapper == "" && !isSparseTarHeader(hdr) {
		offset = dataOffset
	}

	entry := tarEntry{
		name:     name,
		linkname: hdr.Linkname,
		ordinal:  ordinal,
		offset:   offset,
		size:     hdr.Size,
		typeflag: hdr.Typeflag,
	}

	if pos, ok := idx.byName[name]; ok {
		idx.entries[pos] = entry
		return
	}

	idx.byName[name] = len(idx.entries)
	idx.entries = append(idx.entries, entry)
}

// openStream returns the decompressed tar byte stream over sr.
func (idx *tarIndex) openStream(sr *io.SectionReader) (io.ReadCloser, error) {
	if idx.wrapper == "" {
		return io.NopCloser(sr), nil
	}

	codec := &streamCodec{format: idx.wrapper}
	return codec.open(sr)
}

// lookup returns the member listed exactly as name.
func (idx *tarIndex) lookup(name string) (*tarEntry, bool) {
	pos, ok := idx.byName[name]
	if !ok {
		return nil, false
	}

	return &idx.entries[pos], true
}

// lookupTarget resolves a normalized link target, which may name a
// directory without its trailing "/".
func (idx *tarIndex) lookupTarget(target string) (*tarEntry, bool) {
	for _, key := range lookupKeys(target) {
		if pos, ok := idx.byName[key]; ok {
			return &idx.entries[pos], true
		}
	}

	return nil, false
}

// nextTarHeader advances tr and keeps headers the reader flags as non-local;
// such names are sanitized or rejected at extraction.
func nextTarHeader(tr *tar.Reader) (*tar.Header, error) {
	hdr, err := tr.Next()
	if hdr != nil && errors.Is(err, tar.ErrInsecurePath) {
		return hdr, nil
	}

	return hdr, err
}

// isSparseTarHeader reports whether payload bytes are not stored contiguously.
func isSparseTarHeader(hdr *tar.Header) bool {
	if hdr.Typeflag == tar.TypeGNUSparse {
		return true
	}

	for key := range hdr.PAXRecords {
		if strings.HasPrefix(key, "GNU.sparse.") {
			return true
		}
	}

	return false
}

// tarMemberReader reads one member from a rescanned stream and closes the stream.
type tarMemberReader struct {
	io.Reader
	stream io.Closer
}

// Close closes the underlying decompression stream.
func (r *tarMemberReader) Close() error {
	return r.stream.Close()
}

// TarArchive is a tar archive, plain or wrapped in a stream compressor.
// It also serves tar members nested in single-member 7z archives.
type TarArchive struct {
	archiveBase
	index *tarIndex
}

// newTarArchive wraps an opened tar handle.
func newTarArchive(h *handle) (*TarArchive, error) {
	idx, err := nativeAs[*tarIndex](h)
	if err != nil {
		return nil, err
	}

	return &TarArchive{archiveBase: archiveBase{h: h}, index: idx}, nil
}

// Compression returns the stream format wrapping the tar, or "" for plain tar.
func (a *TarArchive) Compression() Format {
	return a.index.wrapper
}

// List returns member names in archive order.
func (a *TarArchive) List() []string {
	names := make([]string, len(a.index.entries))
	for i := range a.index.entries {
		names[i] = a.index.entries[i].name
	}

	return names
}

// OpenByName opens one member by name.
func (a *TarArchive) OpenByName(name string) (Contents, error) {
	if err := a.lock(); err != nil {
		return nil, err
	}
	defer a.unlock()

	entry, ok := a.index.lookup(name)
	if !ok {
		return nil, nil
	}

	if entry.isDir() {
		return Contents{name: nil}, nil
	}

	rc, err := a.openEntry(entry, 0)
	if err != nil {
		return nil, err
	}

	return Contents{name: rc}, nil
}

// OpenAll opens every file member.
func (a *TarArchive) OpenAll() (Contents, error) {
	return openAll(a)
}

// ExtractTo extracts all members into dstDir and returns the effective directory.
func (a *TarArchive) ExtractTo(ctx context.Context, dstDir string, opts ExtractOptions) (string, error) {
	return extractArchive(ctx, a, dstDir, opts)
}

// openEntry opens payload of a resolved member, following links.
func (a *TarArchive) openEntry(entry *tarEntry, depth int) (io.ReadCloser, error) {
	switch entry.typeflag {
	case tar.TypeLink, tar.TypeSymlink:
		target, ok := a.resolveLink(entry)
		if !ok || depth >= maxTarLinkDepth || target.isDir() {
			return io.NopCloser(bytes.NewReader(nil)), nil
		}

		return a.openEntry(target, depth+1)
	case tar.TypeReg, tar.TypeGNUSparse, tar.TypeCont:
	default:
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	if entry.offset >= 0 {
		return io.NopCloser(io.NewSectionReader(a.h.src, entry.offset, entry.size)), nil
	}

	return a.rescan(entry.ordinal)
}

// resolveLink finds the member a link points to.
func (a *TarArchive) resolveLink(entry *tarEntry) (*tarEntry, bool) {
	target := entry.linkname
	if entry.typeflag == tar.TypeSymlink {
		target = path.Join(path.Dir(entry.name), target)
	}

	return a.index.lookupTarget(NormalizePath(target))
}

// rescan decompresses the stream from the start up to member ordinal.
func (a *TarArchive) rescan(ordinal int) (io.ReadCloser, error) {
	stream, err := a.index.openStream(a.h.section())
	if err != nil {
		return nil, err
	}

	tr := tar.NewReader(stream)
	for i := 0; i <= ordinal; i++ {
		if _, err := nextTarHeader(tr); err != nil {
			_ = stream.Close()
			return nil, fmt.Errorf("tar: seek member %d: %w", ordinal, err)
		}
	}

	return &tarMemberReader{Reader: tr, stream: stream}, nil
}

// walk streams all members in one pass over the tar stream.
func (a *TarArchive) walk(ctx context.Context, fn walkFunc) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.unlock()

	stream, err := a.index.openStream(a.h.section())
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	tr := tar.NewReader(stream)
	for ordinal := 0; ; ordinal++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := nextTarHeader(tr)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}

		entry, ok := a.index.lookup(entryName(hdr.Name, hdr.Typeflag == tar.TypeDir))
		if !ok || entry.ordinal != ordinal {
			continue
		}

		if err := a.walkEntry(entry, tr, fn); err != nil {
			return err
		}
	}
}

// walkEntry hands one member to fn, resolving links through separate reads.
func (a *TarArchive) walkEntry(entry *tarEntry, tr *tar.Reader, fn walkFunc) error {
	switch {
	case entry.isDir():
		return fn(entry.name, nil)
	case entry.typeflag == tar.TypeLink || entry.typeflag == tar.TypeSymlink:
		rc, err := a.openEntry(entry, 0)
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()

		return fn(entry.name, rc)
	case entry.typeflag == tar.TypeReg || entry.typeflag == tar.TypeGNUSparse || entry.typeflag == tar.TypeCont:
		return fn(entry.name, tr)
	default:
		return fn(entry.name, bytes.NewReader(nil))
	}
}
