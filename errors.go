// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import "errors"

// Sentinel errors for archive operations. Use errors.Is in callers.
var (
	// ErrFormatUnrecognized means no supported format accepted the input.
	ErrFormatUnrecognized = errors.New("archive format not recognized")
	// ErrUnknownFormat means a format identifier is not one of the supported formats.
	ErrUnknownFormat = errors.New("unknown archive format")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrMalformedArchive means a format provider failed on corrupt input.
	ErrMalformedArchive = errors.New("malformed archive")
	// ErrClosed means the archive or resource is already closed.
	ErrClosed = errors.New("archive already closed")
	// ErrInvalidHeader means the PBO file is missing or has a bad header.
	ErrInvalidHeader = errors.New("invalid PBO file: missing or bad header")
	// ErrFileNameTooLong means the entry filename exceeds the maximum length.
	ErrFileNameTooLong = errors.New("entry filename exceeds maximum length")
	// ErrSizeOverflow means the size exceeds the uint32 or 4 GiB PBO limit.
	ErrSizeOverflow = errors.New("size exceeds uint32 or 4 GiB PBO limit")
	// ErrInvalidEntryOffset means one or more PBO entry payloads fall outside the file.
	ErrInvalidEntryOffset = errors.New("invalid entry offset")
	// ErrInvalidFilterRules means one or more extract filter rules are invalid.
	ErrInvalidFilterRules = errors.New("invalid filter rules")
	// ErrInvalidExtractPath means archive entry path is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrExtractPathOutsideRoot means resolved extraction path escapes destination root.
	ErrExtractPathOutsideRoot = errors.New("extract path escapes destination root")
)
