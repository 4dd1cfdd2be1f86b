// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"fmt"
	"strings"
)

// Format identifies one supported archive or compression format.
type Format string

// Supported formats. String values double as canonical file suffixes.
const (
	// FormatTarIn7z is a 7z container holding exactly one tar member.
	FormatTarIn7z Format = "tar.7z"
	// FormatTar is a tar container, optionally wrapped in a stream compressor.
	FormatTar Format = "tar"
	// FormatZip is a zip container.
	FormatZip Format = "zip"
	// Format7z is a 7z container.
	Format7z Format = "7z"
	// FormatGzip is a single gzip stream.
	FormatGzip Format = "gz"
	// FormatXz is a single xz stream or legacy LZMA-alone stream.
	FormatXz Format = "xz"
	// FormatBzip2 is a single bzip2 stream.
	FormatBzip2 Format = "bz2"
	// FormatRar is a rar container.
	FormatRar Format = "rar"
	// FormatZstd is a single zstd stream.
	FormatZstd Format = "zst"
	// FormatLz4 is a single lz4 frame stream.
	FormatLz4 Format = "lz4"
	// FormatPBO is a PBO (Packed Bank of files) container.
	FormatPBO Format = "pbo"
)

// trialOrder is the canonical sniffing order. tar.7z must stay first:
// a tar inside 7z is also a valid 7z and the more specific reading wins.
var trialOrder = []Format{
	FormatTarIn7z,
	FormatTar,
	FormatZip,
	Format7z,
	FormatGzip,
	FormatXz,
	FormatBzip2,
	FormatRar,
	FormatZstd,
	FormatLz4,
	FormatPBO,
}

// Formats returns all supported formats in canonical trial order.
func Formats() []Format {
	out := make([]Format, len(trialOrder))
	copy(out, trialOrder)
	return out
}

// ParseFormat resolves a format identifier, accepting a leading dot and any case.
func ParseFormat(raw string) (Format, error) {
	candidate := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), ".")))
	for _, f := range trialOrder {
		if f == candidate {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

// String returns the format identifier.
func (f Format) String() string {
	return string(f)
}

// IsStream reports whether the format is a bare compressed stream with one virtual entry.
func (f Format) IsStream() bool {
	switch f {
	case FormatGzip, FormatXz, FormatBzip2, FormatZstd, FormatLz4:
		return true
	default:
		return false
	}
}

// IsValid reports whether f is one of the supported formats.
func (f Format) IsValid() bool {
	for _, known := range trialOrder {
		if known == f {
			return true
		}
	}

	return false
}
