// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// handle is one successfully opened format object plus the resources it owns.
type handle struct {
	// native is the provider object, one of *tarIndex, *zipIndex,
	// *sevenZipIndex, *rarIndex, *streamCodec or *pboIndex.
	native any
	// src is the random-access source the provider reads from.
	src io.ReaderAt
	// format is the accepted format.
	format Format
	// path is the originating path used for naming.
	path string
	// closers are released in reverse order on Close.
	closers []io.Closer
	// size is total source size in bytes.
	size int64
}

// own transfers one more resource to the handle.
func (h *handle) own(c io.Closer) {
	if c != nil {
		h.closers = append(h.closers, c)
	}
}

// release closes owned resources in reverse order.
func (h *handle) release() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	h.closers = nil
	return errors.Join(errs...)
}

// section returns a fresh reader over the whole source positioned at offset zero.
func (h *handle) section() *io.SectionReader {
	return io.NewSectionReader(h.src, 0, h.size)
}

// nativeAs asserts the provider object type held by a handle.
func nativeAs[T any](h *handle) (T, error) {
	v, ok := h.native.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unexpected provider %T", h.format, h.native)
	}

	return v, nil
}

// walkFunc receives one entry during a single pass. r is nil for directories.
type walkFunc func(name string, r io.Reader) error

// walker is implemented by archives that can stream all entries in one pass.
type walker interface {
	walk(ctx context.Context, fn walkFunc) error
}

// closeTracker is implemented by wrappers embedding archiveBase.
type closeTracker interface {
	isClosed() bool
}

// archiveBase carries state shared by all wrappers.
type archiveBase struct {
	h *handle
	// mu serializes operations on one archive and guards closed.
	mu     sync.Mutex
	closed bool
}

// Format returns the detected format.
func (b *archiveBase) Format() Format {
	return b.h.format
}

// Path returns the originating file path.
func (b *archiveBase) Path() string {
	return b.h.path
}

// Close releases the archive and the resources it owns. Repeated calls are no-ops.
func (b *archiveBase) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	return b.h.release()
}

// lock acquires the archive mutex and fails when the archive is closed.
func (b *archiveBase) lock() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	return nil
}

// isClosed reports whether Close was called.
func (b *archiveBase) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}

// unlock releases the archive mutex.
func (b *archiveBase) unlock() {
	b.mu.Unlock()
}

// openAll folds OpenByName over List and drops directories.
func openAll(a Archive) (Contents, error) {
	out := make(Contents)
	for _, name := range a.List() {
		if isDirName(name) {
			continue
		}

		c, err := a.OpenByName(name)
		if err != nil {
			_ = out.Close()
			return nil, err
		}

		for k, rc := range c {
			if rc == nil {
				continue
			}

			if prev, ok := out[k]; ok {
				_ = prev.Close()
			}

			out[k] = rc
		}
	}

	return out, nil
}

// walkByName streams entries by opening each listed name in turn.
func walkByName(ctx context.Context, names []string, open func(name string) (io.ReadCloser, error), fn walkFunc) error {
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		if isDirName(name) {
			if err := fn(name, nil); err != nil {
				return err
			}

			continue
		}

		rc, err := open(name)
		if err != nil {
			return err
		}

		err = fn(name, rc)
		closeErr := rc.Close()
		if err != nil {
			return err
		}

		if closeErr != nil {
			return fmt.Errorf("close %s: %w", name, closeErr)
		}
	}

	return nil
}
