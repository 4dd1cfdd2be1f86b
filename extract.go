// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractCopyBufferSize defines buffer size for file copy during extraction.
const extractCopyBufferSize = 64 * 1024

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	name    string
	relPath string
	relDir  string
	isDir   bool
}

// extractor writes entries of one archive under a prepared root.
type extractor struct {
	onEntryDone func(name string, written int64, outputPath string)
	items       map[string]extractWorkItem
	root        string
	mode        ExtractFileMode
	buf         []byte
}

// extractArchive materializes selected entries of a into the effective
// extraction directory and returns it.
func extractArchive(ctx context.Context, a Archive, dstDir string, opts ExtractOptions) (string, error) {
	if c, ok := a.(closeTracker); ok && c.isClosed() {
		return "", ErrClosed
	}

	opts.applyDefaults()

	names := a.List()
	effectiveDir := dstDir
	if !opts.Flatten {
		effectiveDir = ResolveExtractDir(names, a.Path(), dstDir)
	}

	matcher, err := newEntryMatcher(opts.Filter, opts.FilterMatcherOptions)
	if err != nil {
		return "", err
	}

	selected := make([]string, 0, len(names))
	for _, name := range names {
		if matcher.Match(name) {
			selected = append(selected, name)
		}
	}

	workItems, err := prepareExtractWorkItems(selected, opts.RawNames)
	if err != nil {
		return "", err
	}

	dstRootAbs, err := filepath.Abs(effectiveDir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return "", err
	}

	x := &extractor{
		onEntryDone: opts.OnEntryDone,
		items:       make(map[string]extractWorkItem, len(workItems)),
		root:        dstRootAbs,
		mode:        opts.FileMode,
		buf:         make([]byte, extractCopyBufferSize),
	}
	for _, item := range workItems {
		x.items[item.name] = item
	}

	if w, ok := a.(walker); ok {
		err = w.walk(ctx, x.extractEntry)
	} else {
		err = walkByName(ctx, selected, openNamed(a), x.extractEntry)
	}

	if err != nil {
		return "", err
	}

	return effectiveDir, nil
}

// openNamed adapts OpenByName to a single-reader opener.
func openNamed(a Archive) func(name string) (io.ReadCloser, error) {
	return func(name string) (io.ReadCloser, error) {
		c, err := a.OpenByName(name)
		if err != nil {
			return nil, err
		}

		rc, ok := c[name]
		if !ok || rc == nil {
			_ = c.Close()
			return nil, fmt.Errorf("open %s: entry not readable", name)
		}

		return rc, nil
	}
}

// prepareExtractWorkItems validates selected entries and prepares relative fs paths.
func prepareExtractWorkItems(names []string, rawNames bool) ([]extractWorkItem, error) {
	outNames := names
	if !rawNames {
		sanitized, err := sanitizeEntryPaths(names)
		if err != nil {
			return nil, err
		}

		outNames = sanitized
	}

	workItems := make([]extractWorkItem, 0, len(names))
	for i, name := range names {
		target := strings.TrimSuffix(outNames[i], "/")
		if strings.TrimSpace(target) == "" {
			continue
		}

		normalizedPath, err := normalizeExtractEntryPath(target)
		if err != nil {
			return nil, fmt.Errorf("normalize entry path %s: %w", name, err)
		}

		relPath := filepath.FromSlash(normalizedPath)
		item := extractWorkItem{
			name:    name,
			relPath: relPath,
			isDir:   isDirName(name),
		}

		if item.isDir {
			item.relDir = relPath
		} else if relDir := filepath.Dir(relPath); relDir != "." {
			item.relDir = relDir
		}

		workItems = append(workItems, item)
	}

	return workItems, nil
}

// prepareExtractDirs creates all unique directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		if err := checkInsideRoot(dstRootAbs, dirPath); err != nil {
			return err
		}

		key := strings.ToLower(dirPath)
		if _, exists := seen[key]; exists {
			continue
		}

		seen[key] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// checkInsideRoot rejects outPath when it resolves outside root.
func checkInsideRoot(root, outPath string) error {
	rel, err := filepath.Rel(root, outPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrExtractPathOutsideRoot, outPath)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrExtractPathOutsideRoot, outPath)
	}

	return nil
}

// extractEntry writes one streamed entry when it was selected.
func (x *extractor) extractEntry(name string, r io.Reader) error {
	task, ok := x.items[name]
	if !ok || task.isDir {
		// Directories were created up front.
		return nil
	}

	if r == nil {
		return fmt.Errorf("open %s: entry not readable", name)
	}

	outPath := filepath.Join(x.root, task.relPath)
	if err := checkInsideRoot(x.root, outPath); err != nil {
		return err
	}

	file, existingSize, err := openExtractFile(outPath, x.mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	written, copyErr := copyExtractData(file, r, x.buf)
	if copyErr == nil && existingSize > written {
		if truncErr := file.Truncate(written); truncErr != nil {
			_ = file.Close()
			return fmt.Errorf("truncate %s: %w", name, truncErr)
		}
	}

	closeErr := file.Close()
	if copyErr != nil {
		return fmt.Errorf("write %s: %w", name, copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", name, closeErr)
	}

	if x.onEntryDone != nil {
		x.onEntryDone(name, written, outPath)
	}

	return nil
}

// openExtractFile opens output path according to selected extract file mode.
// It returns the size the file had before writing when that size must be
// trimmed after the copy, and zero otherwise.
func openExtractFile(path string, mode ExtractFileMode) (*os.File, int64, error) {
	switch mode {
	case ExtractFileModeAuto:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return file, 0, nil
		}

		if !os.IsExist(err) {
			return nil, 0, err
		}

		file, truncErr := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		return file, 0, truncErr
	case ExtractFileModeOverwriteSmart:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o600)
		if err != nil {
			return nil, 0, err
		}

		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return nil, 0, err
		}

		return file, info.Size(), nil
	case ExtractFileModeTruncate:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		return file, 0, err
	case ExtractFileModeCreateOnly:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		return file, 0, err
	default:
		return nil, 0, fmt.Errorf("unknown extract file mode %q", mode)
	}
}

// copyExtractData copies one entry stream to output file using fixed buffer.
func copyExtractData(dst *os.File, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		return 0, io.ErrShortBuffer
	}

	var total int64
	for {
		readN, readErr := src.Read(buf)
		if readN > 0 {
			writeN, writeErr := dst.Write(buf[:readN])
			total += int64(writeN)

			if writeErr != nil {
				return total, writeErr
			}

			if writeN != readN {
				return total, io.ErrShortWrite
			}
		}

		if readErr == nil {
			continue
		}

		if readErr == io.EOF {
			return total, nil
		}

		return total, readErr
	}
}

// normalizeExtractEntryPath normalizes entry path and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" {
		return "", ErrInvalidExtractPath
	}
	if strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}
	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive-root prefix like C:/.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 3 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':' && path[2] == '/'
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
