// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"

	"github.com/woozymasta/pathrules"
)

// Archive is the uniform read-only view over every supported format.
//
// Entry names use "/" separators and directory entries end with "/".
// Implementations are *TarArchive, *ZipArchive, *SevenZipArchive,
// *RarArchive, *StreamArchive and *PBOArchive.
type Archive interface {
	// Format returns the detected format.
	Format() Format
	// Path returns the originating file path.
	Path() string
	// List returns entry names in native archive order.
	List() []string
	// OpenByName opens one entry. A nil Contents means the name is absent;
	// a directory maps to a nil reader.
	OpenByName(name string) (Contents, error)
	// OpenAll opens every file entry; directories are omitted.
	OpenAll() (Contents, error)
	// ExtractTo materializes all entries and returns the effective directory.
	ExtractTo(ctx context.Context, dstDir string, opts ExtractOptions) (string, error)
	// Close releases the archive and its underlying source.
	Close() error
}

// Contents maps entry names to readers. A nil reader marks a directory.
type Contents map[string]io.ReadCloser

// Names returns sorted entry names.
func (c Contents) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Close closes every non-nil reader and returns the joined close errors.
func (c Contents) Close() error {
	var errs []error
	for _, rc := range c {
		if rc == nil {
			continue
		}

		if err := rc.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// OpenOptions configures format detection and archive opening.
type OpenOptions struct {
	// Logger receives debug records about sniffing; nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// Formats restricts detection to listed formats; empty means all formats.
	Formats []Format `json:"formats,omitempty" yaml:"formats,omitempty"`
	// TempDir is used for spooling nested tar members of 7z archives.
	// Empty means os.TempDir.
	TempDir string `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty"`
	// IgnoreExtension disables the file name extension hint.
	IgnoreExtension bool `json:"ignore_extension,omitempty" yaml:"ignore_extension,omitempty"`
}

// ExtractOptions configures ExtractTo behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one file entry is fully written to disk.
	OnEntryDone func(name string, written int64, outputPath string) `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// Filter defines ordered include/exclude rules for entries; empty means all entries.
	Filter []pathrules.Rule `json:"filter,omitempty" yaml:"filter,omitempty"`
	// FilterMatcherOptions control filter rule matching. Zero value means
	// case-insensitive matching; unmatched entries are excluded when any
	// include rule exists and kept otherwise.
	FilterMatcherOptions pathrules.MatcherOptions `json:"filter_matcher_options,omitzero" yaml:"filter_matcher_options,omitzero"`
	// RawNames disables default path sanitization during extract.
	// When false (default), extract rewrites names to filesystem-safe output paths.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
	// Flatten writes entries directly into the destination directory even
	// when the archive has several root items.
	Flatten bool `json:"flatten,omitempty" yaml:"flatten,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto first tries create-only, then falls back to truncate for existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeOverwriteSmart rewrites files in place and truncates only when existing file is larger.
	ExtractFileModeOverwriteSmart ExtractFileMode = "overwrite_smart"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// applyDefaults fills zero-valued open options with defaults.
func (opts *OpenOptions) applyDefaults() {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeAuto
	}

	if opts.FilterMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.FilterMatcherOptions.CaseInsensitive = true
	}

	setDefaultFilterAction(&opts.FilterMatcherOptions, opts.Filter)
}
