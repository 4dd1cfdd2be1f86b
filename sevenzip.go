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
	"os"
	"strings"

	"github.com/bodgit/sevenzip"
)

// tarBlockSize is the tar header block size.
const tarBlockSize = 512

// errNestedTarAmbiguous means a 7z archive does not hold exactly one tar member.
var errNestedTarAmbiguous = errors.New("7z does not hold exactly one tar member")

// sevenZipIndex is an opened 7z header.
type sevenZipIndex struct {
	reader *sevenzip.Reader
	index  *entryIndex
}

// probeSevenZip reads the 7z header from sr.
func probeSevenZip(sr *io.SectionReader) (zi *sevenZipIndex, err error) {
	defer recoverMalformed(&err, "7z")

	zr, err := sevenzip.NewReader(sr, sr.Size())
	if err != nil {
		return nil, fmt.Errorf("7z: %w", err)
	}

	idx := newEntryIndex(len(zr.File))
	for i, f := range zr.File {
		isDir := strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
		idx.add(entryName(f.Name, isDir), i)
	}

	return &sevenZipIndex{reader: zr, index: idx}, nil
}

// spoolFile is a temporary file removed on Close.
type spoolFile struct {
	*os.File
}

// Close closes and removes the temporary file.
func (s *spoolFile) Close() error {
	closeErr := s.File.Close()
	removeErr := os.Remove(s.Name())
	if closeErr != nil {
		return closeErr
	}

	return removeErr
}

// tarIn7z is a tar member of a 7z archive spooled to a temporary file.
type tarIn7z struct {
	spool *spoolFile
	index *tarIndex
	size  int64
}

// probeTarIn7z accepts a 7z archive holding exactly one member that is a tar
// stream. Only spool file failures are fatal.
func probeTarIn7z(sr *io.SectionReader, tempDir string) (nested *tarIn7z, err error) {
	var spool *spoolFile
	defer func() {
		if err != nil && spool != nil {
			_ = spool.Close()
		}
	}()
	defer recoverMalformed(&err, "7z")

	zr, err := sevenzip.NewReader(sr, sr.Size())
	if err != nil {
		return nil, fmt.Errorf("7z: %w", err)
	}

	if len(zr.File) != 1 || zr.File[0].FileInfo().IsDir() {
		return nil, errNestedTarAmbiguous
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("7z: open member: %w", err)
	}
	defer func() { _ = rc.Close() }()

	head := make([]byte, tarBlockSize)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("7z: read member: %w", err)
	}

	head = head[:n]
	if !looksLikeTar(head) {
		return nil, errNestedTarAmbiguous
	}

	f, err := os.CreateTemp(tempDir, "arcwrap-*.tar")
	if err != nil {
		return nil, fatal(fmt.Errorf("create spool file: %w", err))
	}

	spool = &spoolFile{File: f}
	size, err := spoolMember(spool, head, rc)
	if err != nil {
		return nil, err
	}

	idx, err := probeTar(io.NewSectionReader(spool, 0, size))
	if err != nil {
		return nil, err
	}

	return &tarIn7z{spool: spool, index: idx, size: size}, nil
}

// spoolMember writes head followed by the rest of src to dst.
// Write failures are fatal.
func spoolMember(dst io.Writer, head []byte, src io.Reader) (int64, error) {
	if _, err := dst.Write(head); err != nil {
		return 0, fatal(fmt.Errorf("write spool file: %w", err))
	}

	total := int64(len(head))
	buf := make([]byte, extractCopyBufferSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return total, fatal(fmt.Errorf("write spool file: %w", err))
			}

			total += int64(n)
		}

		if readErr == io.EOF {
			return total, nil
		}

		if readErr != nil {
			return total, fmt.Errorf("7z: read member: %w", readErr)
		}
	}
}

// looksLikeTar reports whether head starts a compressed stream or a valid
// tar header block.
func looksLikeTar(head []byte) bool {
	if detectTarWrapper(head) != "" {
		return true
	}

	if len(head) < tarBlockSize {
		return false
	}

	// Extended headers need more than one block, which shows up as an
	// unexpected EOF after the first checksum already passed.
	_, err := nextTarHeader(tar.NewReader(bytes.NewReader(head)))
	return err == nil || errors.Is(err, io.ErrUnexpectedEOF)
}

// SevenZipArchive is a 7z archive.
type SevenZipArchive struct {
	archiveBase
	sevenZip *sevenZipIndex
}

// newSevenZipArchive wraps an opened 7z handle.
func newSevenZipArchive(h *handle) (*SevenZipArchive, error) {
	zi, err := nativeAs[*sevenZipIndex](h)
	if err != nil {
		return nil, err
	}

	return &SevenZipArchive{archiveBase: archiveBase{h: h}, sevenZip: zi}, nil
}

// List returns entry names in header order.
func (a *SevenZipArchive) List() []string {
	return a.sevenZip.index.list()
}

// OpenByName opens one entry by name.
func (a *SevenZipArchive) OpenByName(name string) (c Contents, err error) {
	if err := a.lock(); err != nil {
		return nil, err
	}
	defer a.unlock()

	defer recoverMalformed(&err, "7z: open "+name)

	pos, ok := a.sevenZip.index.lookup(name)
	if !ok {
		return nil, nil
	}

	if isDirName(name) {
		return Contents{name: nil}, nil
	}

	rc, err := a.sevenZip.reader.File[pos].Open()
	if err != nil {
		return nil, fmt.Errorf("7z: open %s: %w", name, err)
	}

	return Contents{name: &sevenZipMemberReader{ReadCloser: rc, name: name}}, nil
}

// sevenZipMemberReader reports decoder panics on corrupt member data as
// read errors.
type sevenZipMemberReader struct {
	io.ReadCloser
	name string
}

// Read reads decoded member data.
func (r *sevenZipMemberReader) Read(p []byte) (n int, err error) {
	defer recoverMalformed(&err, "7z: read "+r.name)

	return r.ReadCloser.Read(p)
}

// OpenAll opens every file entry.
func (a *SevenZipArchive) OpenAll() (Contents, error) {
	return openAll(a)
}

// ExtractTo extracts all entries into dstDir and returns the effective directory.
func (a *SevenZipArchive) ExtractTo(ctx context.Context, dstDir string, opts ExtractOptions) (string, error) {
	return extractArchive(ctx, a, dstDir, opts)
}
