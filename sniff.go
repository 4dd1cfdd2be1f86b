// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
)

// fatalError marks a trial failure that must stop sniffing.
type fatalError struct {
	err error
}

// Error returns the wrapped error text.
func (e *fatalError) Error() string {
	return e.err.Error()
}

// Unwrap returns the wrapped error.
func (e *fatalError) Unwrap() error {
	return e.err
}

// fatal marks err as a resource failure rather than a declined trial.
func fatal(err error) error {
	return &fatalError{err: err}
}

// isFatal reports whether err was marked by fatal.
func isFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// guardedReaderAt remembers the first read failure of the source, so a
// trial that declines because the file itself is unreadable is not
// mistaken for a format mismatch.
type guardedReaderAt struct {
	ra  io.ReaderAt
	err error
	mu  sync.Mutex
}

// ReadAt reads from the source and records non-EOF failures.
func (g *guardedReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n, err := g.ra.ReadAt(p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		g.mu.Lock()
		if g.err == nil {
			g.err = err
		}
		g.mu.Unlock()
	}

	return n, err
}

// failure returns the first recorded read failure.
func (g *guardedReaderAt) failure() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.err
}

// trialFunc tries to open sr as one format. A returned handle needs only
// native set; src and size default to the sniffed source.
type trialFunc func(sr *io.SectionReader, opts *OpenOptions) (*handle, error)

// trials binds every format to its trial.
var trials = map[Format]trialFunc{
	FormatTarIn7z: trialTarIn7z,
	FormatTar:     trialNative(probeTar),
	FormatZip:     trialNative(probeZip),
	Format7z:      trialNative(probeSevenZip),
	FormatGzip:    trialStream(FormatGzip),
	FormatXz:      trialStream(FormatXz),
	FormatBzip2:   trialStream(FormatBzip2),
	FormatRar:     trialNative(probeRar),
	FormatZstd:    trialStream(FormatZstd),
	FormatLz4:     trialStream(FormatLz4),
	FormatPBO:     trialNative(probePBO),
}

// trialNative adapts a probe returning a provider object to trialFunc.
func trialNative[T any](probe func(sr *io.SectionReader) (T, error)) trialFunc {
	return func(sr *io.SectionReader, _ *OpenOptions) (*handle, error) {
		native, err := probe(sr)
		if err != nil {
			return nil, err
		}

		return &handle{native: native}, nil
	}
}

// trialStream builds a trial for one single-stream format.
func trialStream(format Format) trialFunc {
	return func(sr *io.SectionReader, _ *OpenOptions) (*handle, error) {
		codec, err := probeStreamCodec(format, sr)
		if err != nil {
			return nil, err
		}

		return &handle{native: codec}, nil
	}
}

// trialTarIn7z opens the nested tar from its spool file; the handle owns the spool.
func trialTarIn7z(sr *io.SectionReader, opts *OpenOptions) (*handle, error) {
	nested, err := probeTarIn7z(sr, opts.TempDir)
	if err != nil {
		return nil, err
	}

	h := &handle{native: nested.index, src: nested.spool, size: nested.size}
	h.own(nested.spool)
	return h, nil
}

// trialPlan returns formats to try in order. The hinted format moves to
// the front, behind tar.7z which always goes first.
func trialPlan(hint Format, allowed []Format) []Format {
	plan := make([]Format, 0, len(trialOrder))
	plan = append(plan, FormatTarIn7z)
	if hint != "" && hint != FormatTarIn7z && hint.IsValid() {
		plan = append(plan, hint)
	}

	for _, f := range trialOrder {
		if !slices.Contains(plan, f) {
			plan = append(plan, f)
		}
	}

	if len(allowed) == 0 {
		return plan
	}

	return slices.DeleteFunc(plan, func(f Format) bool {
		return !slices.Contains(allowed, f)
	})
}

// runTrial runs the trial bound to format. A provider panic counts as a decline.
func runTrial(format Format, sr *io.SectionReader, opts *OpenOptions) (h *handle, err error) {
	defer recoverMalformed(&err, string(format))

	return trials[format](sr, opts)
}

// recoverMalformed stores a recovered provider panic in err as
// ErrMalformedArchive. It must be deferred directly.
func recoverMalformed(err *error, scope string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: %w: %v", scope, ErrMalformedArchive, r)
	}
}

// sniff tries the trial plan against src and returns the first accepted handle.
func sniff(src io.ReaderAt, size int64, path string, hint Format, opts *OpenOptions) (*handle, error) {
	if src == nil {
		return nil, ErrNilReader
	}

	guard := &guardedReaderAt{ra: src}
	log := opts.Logger.With("path", path, "size", size)

	for _, format := range trialPlan(hint, opts.Formats) {
		h, err := runTrial(format, io.NewSectionReader(guard, 0, size), opts)
		if err == nil {
			h.format = format
			h.path = path
			if h.src == nil {
				h.src = src
				h.size = size
			}

			log.Debug("format accepted", "format", format, "hint", hint)
			return h, nil
		}

		if isFatal(err) {
			return nil, fmt.Errorf("%s: %w", format, err)
		}

		if ioErr := guard.failure(); ioErr != nil {
			return nil, fmt.Errorf("read source: %w", ioErr)
		}

		log.Debug("format declined", "format", format, "reason", err)
	}

	if path == "" {
		return nil, ErrFormatUnrecognized
	}

	return nil, fmt.Errorf("%w: %s", ErrFormatUnrecognized, path)
}

// Detect returns the format of the size bytes readable from ra. A non-empty
// hint is tried first, behind the nested tar-in-7z check.
func Detect(ra io.ReaderAt, size int64, hint Format) (Format, error) {
	return detectWithOptions(ra, size, "", hint, OpenOptions{})
}

// detectWithOptions sniffs ra and releases whatever the accepted trial opened.
func detectWithOptions(ra io.ReaderAt, size int64, path string, hint Format, opts OpenOptions) (Format, error) {
	opts.applyDefaults()

	h, err := sniff(ra, size, path, hint, &opts)
	if err != nil {
		return "", err
	}

	if err := h.release(); err != nil {
		return "", err
	}

	return h.format, nil
}
