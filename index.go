// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

// entryIndex keeps listing names in first-appearance order and maps each
// name to the native position of its last occurrence.
type entryIndex struct {
	pos   map[string]int
	names []string
}

// newEntryIndex returns an empty index with capacity for n entries.
func newEntryIndex(n int) *entryIndex {
	return &entryIndex{
		pos:   make(map[string]int, n),
		names: make([]string, 0, n),
	}
}

// add records native position for listing name.
func (x *entryIndex) add(name string, native int) {
	if name == "" || name == "/" {
		return
	}

	if _, ok := x.pos[name]; !ok {
		x.names = append(x.names, name)
	}

	x.pos[name] = native
}

// lookup returns the native position of listing name. Names match exactly.
func (x *entryIndex) lookup(name string) (int, bool) {
	native, ok := x.pos[name]
	return native, ok
}

// list returns a copy of listing names.
func (x *entryIndex) list() []string {
	out := make([]string, len(x.names))
	copy(out, x.names)
	return out
}

// len returns the number of distinct entries.
func (x *entryIndex) len() int {
	return len(x.names)
}
