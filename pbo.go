// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/woozymasta/lzss"
)

// PBO binary layout limits.
const (
	pboHeaderSize = 21  // fixed PBO header size in bytes
	pboMaxNameLen = 512 // max entry filename length
)

const (
	// readerScanChunkSize is a chunk size used by null-terminated string scanner.
	readerScanChunkSize = 256
	// readerEntryBufferSize is a sequential read buffer for entry table parsing.
	readerEntryBufferSize = 64 * 1024
)

// PBOMimeType is the 4-byte PBO entry type (stored little-endian).
type PBOMimeType uint32

// PBO entry mime constants.
const (
	// PBOMimeHeader marks the first header record ("Vers").
	PBOMimeHeader PBOMimeType = 0x56657273
	// PBOMimeCompress marks LZSS-compressed data ("Cprs").
	PBOMimeCompress PBOMimeType = 0x43707273
	// PBOMimeNil marks uncompressed or terminator entry.
	PBOMimeNil PBOMimeType = 0x00000000
)

var (
	// entryTableReaderPool reuses buffered readers for sequential table parsing.
	entryTableReaderPool = sync.Pool{
		New: func() any {
			return bufio.NewReaderSize(bytes.NewReader(nil), readerEntryBufferSize)
		},
	}
)

// PBOHeader is one key-value pair from the PBO header section.
type PBOHeader struct {
	// Key is a header key string.
	Key string `json:"key" yaml:"key"`
	// Value is header value paired with Key.
	Value string `json:"value" yaml:"value"`
}

// pboEntry is one parsed PBO index record.
type pboEntry struct {
	path         string
	offset       uint32
	dataSize     uint32
	originalSize uint32
	mimeType     PBOMimeType
}

// isCompressed reports whether entry payload is LZSS-compressed.
func (e *pboEntry) isCompressed() bool {
	return e.mimeType == PBOMimeCompress || (e.originalSize != 0 && e.dataSize < e.originalSize)
}

// pboIndex is a parsed PBO header and entry table.
type pboIndex struct {
	headers []PBOHeader
	entries []pboEntry
	index   *entryIndex
}

// probePBO parses the PBO header and entry table from sr.
func probePBO(sr *io.SectionReader) (*pboIndex, error) {
	size := sr.Size()
	if size < pboHeaderSize {
		return nil, fmt.Errorf("%w: short header", ErrInvalidHeader)
	}

	headers, tableOffset, err := parsePBOHeaderSection(sr)
	if err != nil {
		return nil, err
	}

	entries, dataStart, err := parsePBOEntries(sr, tableOffset, size)
	if err != nil {
		return nil, err
	}

	if err := assignSequentialOffsets(entries, dataStart); err != nil {
		return nil, err
	}

	if err := validateResolvedOffsets(entries, dataStart, size); err != nil {
		return nil, err
	}

	idx := newEntryIndex(len(entries))
	for i := range entries {
		idx.add(entryName(entries[i].path, false), i)
	}

	return &pboIndex{headers: headers, entries: entries, index: idx}, nil
}

// parsePBOHeaderSection parses fixed header and key-value header pairs and returns entry table offset.
func parsePBOHeaderSection(ra io.ReaderAt) ([]PBOHeader, int64, error) {
	header := make([]byte, pboHeaderSize)
	if _, err := ra.ReadAt(header, 0); err != nil {
		if err == io.EOF {
			return nil, 0, fmt.Errorf("%w: short header", ErrInvalidHeader)
		}

		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	// The first directory entry must be "Vers".
	if header[0] != 0 || PBOMimeType(binary.LittleEndian.Uint32(header[1:5])) != PBOMimeHeader {
		return nil, 0, ErrInvalidHeader
	}

	headers := make([]PBOHeader, 0, 4)
	off := int64(pboHeaderSize)
	for {
		key, n, err := readNullTerminated(ra, off)
		if err != nil {
			return nil, 0, fmt.Errorf("read header key: %w", err)
		}

		off += int64(n)
		if key == "" {
			break
		}

		value, n, err := readNullTerminated(ra, off)
		if err != nil {
			return nil, 0, fmt.Errorf("read header value: %w", err)
		}

		off += int64(n)
		headers = append(headers, PBOHeader{Key: key, Value: value})
	}

	return headers, off, nil
}

// parsePBOEntries parses entry records from index table and returns payload start offset.
func parsePBOEntries(ra io.ReaderAt, tableOffset int64, size int64) ([]pboEntry, int64, error) {
	if tableOffset >= size {
		return nil, 0, fmt.Errorf("read entry filename: %w", io.EOF)
	}

	sr := io.NewSectionReader(ra, tableOffset, size-tableOffset)
	br := entryTableReaderPool.Get().(*bufio.Reader) //nolint:forcetypeassert // pool contains only *bufio.Reader
	br.Reset(sr)
	defer entryTableReaderPool.Put(br)

	off := tableOffset
	var spill []byte
	entries := make([]pboEntry, 0, estimateEntryCapacity(size-tableOffset))

	for {
		filename, nameBytes, err := readNullTerminatedBuffered(br, &spill)
		if err != nil {
			return nil, 0, fmt.Errorf("read entry filename: %w", err)
		}

		off += int64(nameBytes)
		var fields [20]byte
		if _, err := io.ReadFull(br, fields[:]); err != nil {
			return nil, 0, fmt.Errorf("read entry fields: %w", err)
		}

		off += int64(len(fields))
		mimeType := PBOMimeType(binary.LittleEndian.Uint32(fields[0:4]))
		originalSize := binary.LittleEndian.Uint32(fields[4:8])
		offset := binary.LittleEndian.Uint32(fields[8:12])
		timestamp := binary.LittleEndian.Uint32(fields[12:16])
		dataSize := binary.LittleEndian.Uint32(fields[16:20])

		if filename == "" && mimeType == 0 && originalSize == 0 && offset == 0 && timestamp == 0 && dataSize == 0 {
			return entries, off, nil
		}

		if len(filename) > pboMaxNameLen {
			return nil, 0, ErrFileNameTooLong
		}

		entries = append(entries, pboEntry{
			path:         filename,
			offset:       offset,
			dataSize:     dataSize,
			originalSize: originalSize,
			mimeType:     mimeType,
		})
	}
}

// estimateEntryCapacity returns a conservative initial capacity for parsed entry metadata.
func estimateEntryCapacity(remainingBytes int64) int {
	if remainingBytes <= 0 {
		return 0
	}

	const (
		minCap = 16
		maxCap = 8192
		// remainingBytes includes payload region, so keep estimate intentionally conservative.
		avgEntryBytes = 512
	)

	return min(max(int(remainingBytes/avgEntryBytes), minCap), maxCap)
}

// assignSequentialOffsets derives payload offsets from dataStart and previous entry sizes.
func assignSequentialOffsets(entries []pboEntry, dataStart int64) error {
	if dataStart < 0 || uint64(dataStart) > uint64(math.MaxUint32) {
		return fmt.Errorf("%w: data start offset %d", ErrSizeOverflow, dataStart)
	}

	current := uint32(dataStart) //nolint:gosec // bounded by check above
	for i := range entries {
		entries[i].offset = current

		if uint64(entries[i].dataSize) > uint64(math.MaxUint32-current) {
			return fmt.Errorf("%w: entry %s size would exceed 4 GiB", ErrSizeOverflow, entries[i].path)
		}

		current += entries[i].dataSize
	}

	return nil
}

// validateResolvedOffsets checks every payload lies inside the file.
func validateResolvedOffsets(entries []pboEntry, dataStart int64, totalSize int64) error {
	for i := range entries {
		offset := int64(entries[i].offset)
		if offset < dataStart {
			return fmt.Errorf("%w: entry %s offset before data start", ErrInvalidEntryOffset, entries[i].path)
		}

		end := offset + int64(entries[i].dataSize)
		if end < offset || end > totalSize {
			return fmt.Errorf("%w: entry %s payload out of file bounds", ErrInvalidEntryOffset, entries[i].path)
		}
	}

	return nil
}

// readNullTerminatedBuffered reads a NUL-terminated string from buffered stream.
func readNullTerminatedBuffered(br *bufio.Reader, spill *[]byte) (string, int, error) {
	consumed := 0
	*spill = (*spill)[:0]

	for {
		chunk, err := br.ReadSlice(0)
		consumed += len(chunk)

		if err == bufio.ErrBufferFull {
			*spill = append(*spill, chunk...)
			continue
		}

		if err != nil {
			return "", 0, err
		}

		segment := chunk[:len(chunk)-1]
		if len(*spill) == 0 {
			return string(segment), consumed, nil
		}

		*spill = append(*spill, segment...)
		return string(*spill), consumed, nil
	}
}

// readNullTerminated reads a zero-terminated string from ReaderAt starting at offset.
func readNullTerminated(ra io.ReaderAt, offset int64) (string, int, error) {
	total := 0
	var out []byte

	var chunk [readerScanChunkSize]byte
	for {
		n, err := ra.ReadAt(chunk[:], offset+int64(total))
		if n > 0 {
			part := chunk[:n]
			if idx := bytes.IndexByte(part, 0); idx >= 0 {
				consumed := total + idx + 1
				if len(out) == 0 {
					return string(part[:idx]), consumed, nil
				}

				out = append(out, part[:idx]...)
				return string(out), consumed, nil
			}

			out = append(out, part...)
			total += n
			if len(out) > pboMaxNameLen {
				return "", 0, ErrFileNameTooLong
			}
		}

		if err != nil {
			return "", 0, err
		}

		if n == 0 {
			return "", 0, io.EOF
		}
	}
}

// streamDecompressEntry decodes one compressed entry stream into pipe writer.
func streamDecompressEntry(name string, dst *io.PipeWriter, src io.Reader, outLen int) {
	_, err := lzss.DecompressToWriter(dst, src, outLen, nil)
	if err != nil {
		_ = dst.CloseWithError(fmt.Errorf("decompress entry %s: %w", name, err))
		return
	}

	_ = dst.Close()
}

// checkedUint32ToInt converts uint32 to int with platform-safe overflow check.
func checkedUint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, ErrSizeOverflow
	}

	return int(v), nil
}

// PBOArchive is a PBO game data container.
type PBOArchive struct {
	archiveBase
	pbo *pboIndex
}

// newPBOArchive wraps an opened PBO handle.
func newPBOArchive(h *handle) (*PBOArchive, error) {
	pi, err := nativeAs[*pboIndex](h)
	if err != nil {
		return nil, err
	}

	return &PBOArchive{archiveBase: archiveBase{h: h}, pbo: pi}, nil
}

// Headers returns PBO header pairs in stored order.
func (a *PBOArchive) Headers() []PBOHeader {
	out := make([]PBOHeader, len(a.pbo.headers))
	copy(out, a.pbo.headers)
	return out
}

// List returns entry names in index order.
func (a *PBOArchive) List() []string {
	return a.pbo.index.list()
}

// OpenByName opens one entry by name. Compressed entries are decoded on the fly.
func (a *PBOArchive) OpenByName(name string) (Contents, error) {
	if err := a.lock(); err != nil {
		return nil, err
	}
	defer a.unlock()

	pos, ok := a.pbo.index.lookup(name)
	if !ok {
		return nil, nil
	}

	rc, err := a.openEntry(&a.pbo.entries[pos], name)
	if err != nil {
		return nil, err
	}

	return Contents{name: rc}, nil
}

// openEntry opens payload stream for resolved entry metadata.
func (a *PBOArchive) openEntry(entry *pboEntry, name string) (io.ReadCloser, error) {
	sr := io.NewSectionReader(a.h.src, int64(entry.offset), int64(entry.dataSize))
	if !entry.isCompressed() {
		return io.NopCloser(sr), nil
	}

	outLen, err := checkedUint32ToInt(entry.originalSize)
	if err != nil {
		return nil, fmt.Errorf("resolve output size for %s: %w", name, err)
	}

	pr, pw := io.Pipe()
	go streamDecompressEntry(name, pw, sr, outLen)

	return pr, nil
}

// OpenAll opens every entry.
func (a *PBOArchive) OpenAll() (Contents, error) {
	return openAll(a)
}

// ExtractTo extracts all entries into dstDir and returns the effective directory.
func (a *PBOArchive) ExtractTo(ctx context.Context, dstDir string, opts ExtractOptions) (string, error) {
	return extractArchive(ctx, a, dstDir, opts)
}
