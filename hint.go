// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"path/filepath"
	"strings"
)

// suffixRule maps one case-insensitive file name suffix to a format hint.
type suffixRule struct {
	suffix string
	format Format
}

// suffixRules are ordered so that compound suffixes are checked before
// their tails; the first match wins.
var suffixRules = []suffixRule{
	{suffix: ".tar.7z", format: FormatTarIn7z},
	{suffix: ".tar.xz", format: FormatTar},
	{suffix: ".tar.gz", format: FormatTar},
	{suffix: ".tar.bz2", format: FormatTar},
	{suffix: ".tar.zst", format: FormatTar},
	{suffix: ".tar.lz4", format: FormatTar},
	{suffix: ".tar", format: FormatTar},
	{suffix: ".tgz", format: FormatTar},
	{suffix: ".tbz2", format: FormatTar},
	{suffix: ".tbz", format: FormatTar},
	{suffix: ".txz", format: FormatTar},
	{suffix: ".zip", format: FormatZip},
	{suffix: ".gz", format: FormatGzip},
	{suffix: ".xz", format: FormatXz},
	{suffix: ".lzma", format: FormatXz},
	{suffix: ".bz2", format: FormatBzip2},
	{suffix: ".zst", format: FormatZstd},
	{suffix: ".lz4", format: FormatLz4},
	{suffix: ".7z", format: Format7z},
	{suffix: ".rar", format: FormatRar},
	{suffix: ".pbo", format: FormatPBO},
}

// HintFormat returns the format suggested by the file name extension.
// The hint only reorders sniffing; content always decides.
func HintFormat(path string) (Format, bool) {
	rule, ok := matchSuffixRule(filepath.Base(path))
	if !ok {
		return "", false
	}

	return rule.format, true
}

// BaseName returns the archive file name without its archive suffix,
// e.g. "archive.tar.gz" becomes "archive" and "dirs.bin" becomes "dirs".
func BaseName(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}

	if rule, ok := matchSuffixRule(base); ok {
		if trimmed := base[:len(base)-len(rule.suffix)]; trimmed != "" {
			return trimmed
		}

		return base
	}

	return trimExt(base)
}

// matchSuffixRule finds the first suffix rule matching file name.
func matchSuffixRule(name string) (suffixRule, bool) {
	lower := strings.ToLower(name)
	for _, rule := range suffixRules {
		if strings.HasSuffix(lower, rule.suffix) {
			return rule, true
		}
	}

	return suffixRule{}, false
}

// trimExt strips the last extension and keeps name when the result would be empty.
func trimExt(name string) string {
	trimmed := strings.TrimSuffix(name, filepath.Ext(name))
	if trimmed == "" {
		return name
	}

	return trimmed
}
