// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"fmt"
	"hash/fnv"
	"path"
	"strconv"
	"strings"
	"unicode"
)

const (
	// maxSegmentLen caps one sanitized path segment.
	maxSegmentLen = 240
	// maxCollisionSuffix bounds the "~N" suffix search for colliding names.
	maxCollisionSuffix = 1_000_000
	// windowsForbiddenRunes cannot appear in a Windows file name.
	windowsForbiddenRunes = `<>:"/\|?*`
)

// SanitizePath rewrites one path to deterministic filesystem-safe slash-separated form.
func SanitizePath(pathValue string) (string, error) {
	normalized := NormalizePath(pathValue)
	if normalized == "" {
		return "", nil
	}

	sanitized := mapSegments(normalized, safeSegment)
	if _, err := normalizeExtractEntryPath(sanitized); err != nil {
		return "", err
	}

	return sanitized, nil
}

// sanitizeEntryPaths rewrites listing names to unique filesystem-safe
// relative paths. Directory names keep their trailing "/".
func sanitizeEntryPaths(names []string) ([]string, error) {
	s := newPathSanitizer(len(names))
	out := make([]string, len(names))
	for i, name := range names {
		sanitized, err := s.sanitize(name)
		if err != nil {
			return nil, err
		}

		out[i] = sanitized
	}

	return out, nil
}

// pathSanitizer hands out safe paths that stay unique on case-insensitive
// filesystems.
type pathSanitizer struct {
	seen map[string]struct{}
	next map[string]int
}

func newPathSanitizer(n int) *pathSanitizer {
	return &pathSanitizer{
		seen: make(map[string]struct{}, n),
		next: make(map[string]int),
	}
}

// sanitize returns the safe path for one listing name.
func (s *pathSanitizer) sanitize(name string) (string, error) {
	isDir := isDirName(name)
	rel := strings.TrimSuffix(name, "/")
	if normalized, err := normalizeExtractEntryPath(rel); err == nil {
		rel = normalized
	} else {
		// Absolute, parent-relative or drive names are rebuilt segment by segment.
		rel = strings.ReplaceAll(rel, `\`, `/`)
	}

	safe, err := s.claim(mapSegments(rel, safeSegment))
	if err != nil {
		return "", fmt.Errorf("sanitize path %s: %w", name, err)
	}

	if _, err := normalizeExtractEntryPath(safe); err != nil {
		return "", fmt.Errorf("sanitize path %s: %w", name, err)
	}

	if isDir {
		safe += "/"
	}

	return safe, nil
}

// claim reserves p, or the first free "~N" variant of its last segment.
func (s *pathSanitizer) claim(p string) (string, error) {
	key := strings.ToLower(p)
	if _, taken := s.seen[key]; !taken {
		s.seen[key] = struct{}{}
		return p, nil
	}

	dir, base := path.Split(p)
	for n := max(s.next[key], 2); n < maxCollisionSuffix; n++ {
		candidate := dir + suffixName(base, n)
		candidateKey := strings.ToLower(candidate)
		if _, taken := s.seen[candidateKey]; taken {
			continue
		}

		s.seen[candidateKey] = struct{}{}
		s.next[key] = n + 1
		return candidate, nil
	}

	return "", ErrInvalidExtractPath
}

// SanitizeDisplayPath replaces control and format runes in an entry name
// so it can be printed safely. A directory name keeps its trailing "/".
func SanitizeDisplayPath(name string) string {
	sanitized := mapSegments(strings.ReplaceAll(name, `\`, `/`), displaySegment)
	if isDirName(name) {
		sanitized += "/"
	}

	return sanitized
}

// mapSegments applies fn to every non-empty segment of a slash path.
// A path without segments becomes "_".
func mapSegments(p string, fn func(string) string) string {
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}

		kept = append(kept, fn(part))
	}

	if len(kept) == 0 {
		return "_"
	}

	return strings.Join(kept, "/")
}

// safeSegment makes one path segment valid on Windows and POSIX filesystems.
func safeSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	reserved := isReservedDeviceName(segment)

	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		if isUnsafeRune(r) || strings.ContainsRune(windowsForbiddenRunes, r) {
			b.WriteByte('_')
			continue
		}

		b.WriteRune(r)
	}

	// Windows drops trailing dots and spaces, so ".." collapses to "_".
	out := strings.TrimRight(b.String(), ". ")
	if out == "" {
		out = "_"
	}

	if reserved || isReservedDeviceName(out) {
		out = "_" + out
	}

	return shortenSegment(out, maxSegmentLen)
}

// displaySegment replaces runes that would corrupt terminal output.
func displaySegment(segment string) string {
	if segment == ".." {
		return "_"
	}

	return strings.Map(func(r rune) rune {
		if isUnsafeRune(r) {
			return '_'
		}

		return r
	}, segment)
}

// isUnsafeRune reports control, format and replacement runes.
func isUnsafeRune(r rune) bool {
	return unicode.IsControl(r) || unicode.In(r, unicode.Cf) || r == unicode.ReplacementChar
}

// isReservedDeviceName reports whether name, with or without an extension,
// is a Windows device name such as CON, NUL, COM1 or LPT9.
func isReservedDeviceName(name string) bool {
	base := strings.ToLower(strings.TrimRight(strings.TrimSpace(name), ". :"))
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = strings.TrimRight(base[:dot], " :")
	}

	switch base {
	case "con", "prn", "aux", "nul", "conin$", "conout$", "clock$":
		return true
	}

	port, ok := strings.CutPrefix(base, "com")
	if !ok {
		port, ok = strings.CutPrefix(base, "lpt")
	}
	if !ok {
		return false
	}

	switch port {
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "¹", "²", "³":
		return true
	default:
		return false
	}
}

// suffixName inserts "~n" before the extension of name, keeping the result
// within maxSegmentLen.
func suffixName(name string, n int) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	suffix := "~" + strconv.Itoa(n)

	return shortenSegment(stem, max(maxSegmentLen-len(ext)-len(suffix), 1)) + suffix + ext
}

// shortenSegment truncates value to maxLen bytes, ending it with a hash of
// the full value so distinct long names stay distinct.
func shortenSegment(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	if maxLen <= 10 {
		return value[:maxLen]
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	tag := fmt.Sprintf("~%08x", h.Sum32())

	return value[:maxLen-len(tag)] + tag
}
