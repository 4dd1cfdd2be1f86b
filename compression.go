// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"bytes"
	"compress/bzip2"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// Stream magic prefixes used to detect compressed tar wrappers.
var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicXz    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLz4   = []byte{0x04, 0x22, 0x4d, 0x18}
)

const (
	// streamProbeSize is how many decoded bytes a stream trial must produce
	// (or hit a clean end) before the stream is accepted.
	streamProbeSize = 32
	// lzmaAloneHeaderSize is the LZMA-alone header: props, dict size, unpacked size.
	lzmaAloneHeaderSize = 13
	// lzmaAloneMaxKnownSize bounds a declared unpacked size (256 GiB).
	lzmaAloneMaxKnownSize = 1 << 38
)

// errNotLZMAAlone means a source does not carry a plausible LZMA-alone header.
var errNotLZMAAlone = errors.New("not an LZMA-alone stream")

// streamCodec decodes one single-stream compression format.
type streamCodec struct {
	format Format
	// legacyLZMA selects LZMA-alone decoding for the xz format.
	legacyLZMA bool
}

// open returns a decoding reader over src.
func (c *streamCodec) open(src io.Reader) (io.ReadCloser, error) {
	switch c.format {
	case FormatGzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}

		return zr, nil
	case FormatBzip2:
		return io.NopCloser(bzip2.NewReader(src)), nil
	case FormatXz:
		if c.legacyLZMA {
			lr, err := lzma.NewReader(src)
			if err != nil {
				return nil, fmt.Errorf("lzma: %w", err)
			}

			return io.NopCloser(lr), nil
		}

		xr, err := xz.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("xz: %w", err)
		}

		return io.NopCloser(xr), nil
	case FormatZstd:
		dec, err := zstd.NewReader(src, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}

		return dec.IOReadCloser(), nil
	case FormatLz4:
		return io.NopCloser(lz4.NewReader(src)), nil
	default:
		return nil, fmt.Errorf("%w: %q is not a stream format", ErrUnknownFormat, c.format)
	}
}

// probeStreamCodec validates that src decodes as format and returns the codec.
// The xz format falls back to LZMA-alone when the xz container is absent.
func probeStreamCodec(format Format, sr *io.SectionReader) (*streamCodec, error) {
	// Some decoders treat empty input as an empty stream.
	if sr.Size() == 0 {
		return nil, fmt.Errorf("%s: empty input", format)
	}

	codec := &streamCodec{format: format}
	err := probeDecode(codec, io.NewSectionReader(sr, 0, sr.Size()))
	if err == nil {
		return codec, nil
	}

	if format != FormatXz || checkLZMAAloneHeader(sr) != nil {
		return nil, err
	}

	codec.legacyLZMA = true
	if err := probeDecode(codec, io.NewSectionReader(sr, 0, sr.Size())); err != nil {
		return nil, err
	}

	return codec, nil
}

// probeDecode decodes up to streamProbeSize bytes; a clean end of stream is accepted.
func probeDecode(codec *streamCodec, src io.Reader) error {
	rc, err := codec.open(src)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	var buf [streamProbeSize]byte
	got := 0
	for got < len(buf) {
		n, err := rc.Read(buf[got:])
		got += n
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%s: %w", codec.format, err)
		}
	}

	return nil
}

// checkLZMAAloneHeader applies the header plausibility rules liblzma uses
// for .lzma files, because the format has no magic bytes.
func checkLZMAAloneHeader(ra io.ReaderAt) error {
	var hdr [lzmaAloneHeaderSize]byte
	if _, err := ra.ReadAt(hdr[:], 0); err != nil {
		return errNotLZMAAlone
	}

	// lc/lp/pb packed as (pb*5+lp)*9+lc.
	if hdr[0] >= 9*5*5 {
		return errNotLZMAAlone
	}

	dict := binary.LittleEndian.Uint32(hdr[1:5])
	if dict != 0xFFFFFFFF {
		// Only 2^n and 2^n + 2^(n-1) are written by encoders.
		d := dict - 1
		d |= d >> 2
		d |= d >> 3
		d |= d >> 4
		d |= d >> 8
		d |= d >> 16
		d++
		if d != dict {
			return errNotLZMAAlone
		}
	}

	size := binary.LittleEndian.Uint64(hdr[5:13])
	if size != ^uint64(0) && size >= lzmaAloneMaxKnownSize {
		return errNotLZMAAlone
	}

	return nil
}

// detectTarWrapper returns the stream format wrapping a tar, or "" for plain tar.
func detectTarWrapper(prefix []byte) Format {
	switch {
	case bytes.HasPrefix(prefix, magicGzip):
		return FormatGzip
	case bytes.HasPrefix(prefix, magicBzip2):
		return FormatBzip2
	case bytes.HasPrefix(prefix, magicXz):
		return FormatXz
	case bytes.HasPrefix(prefix, magicZstd):
		return FormatZstd
	case bytes.HasPrefix(prefix, magicLz4):
		return FormatLz4
	default:
		return ""
	}
}

// readPrefix reads up to n bytes from offset zero of ra.
func readPrefix(ra io.ReaderAt, size int64, n int) ([]byte, error) {
	if size < int64(n) {
		n = int(size)
	}

	buf := make([]byte, n)
	got, err := ra.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return buf[:got], nil
}
