// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"archive/tar"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/woozymasta/lzss"
)

// dirsListing is the entry list of every testdata/dirs.* container.
var dirsListing = []string{
	"two/",
	"one.txt",
	"two/four/",
	"two/five/",
	"two/three.txt",
	"two/five/nine/",
	"two/four/seven/",
	"two/four/six.txt",
	"two/five/eight.txt",
	"two/four/seven/.keep",
	"two/five/nine/ten.txt",
}

// dirsContents maps file entries of testdata/dirs.* to their payloads.
var dirsContents = map[string]string{
	"one.txt":               "one\n",
	"two/three.txt":         "three\n",
	"two/four/six.txt":      "six\n",
	"two/five/eight.txt":    "eight\n",
	"two/four/seven/.keep":  "",
	"two/five/nine/ten.txt": "ten\n",
}

// fileText is the payload of testdata/file.* fixtures.
const fileText = "Test text\n"

// testdataPath returns the path of a checked-in fixture.
func testdataPath(name string) string {
	return filepath.Join("testdata", name)
}

// openFixture opens a checked-in fixture and closes it on cleanup.
func openFixture(t testing.TB, name string) Archive {
	t.Helper()

	a, err := Open(testdataPath(name))
	if err != nil {
		t.Fatalf("Open(%s): %v", name, err)
	}
	t.Cleanup(func() { _ = a.Close() })

	return a
}

// readEntry reads one entry fully and fails the test when it is absent.
func readEntry(t testing.TB, a Archive, name string) string {
	t.Helper()

	c, err := a.OpenByName(name)
	if err != nil {
		t.Fatalf("OpenByName(%q): %v", name, err)
	}
	if c == nil {
		t.Fatalf("OpenByName(%q) = nil, want entry", name)
	}
	defer func() { _ = c.Close() }()

	if len(c) != 1 {
		t.Fatalf("OpenByName(%q) returned %d keys, want 1", name, len(c))
	}

	for key, rc := range c {
		if rc == nil {
			t.Fatalf("OpenByName(%q)[%q] is a directory", name, key)
		}

		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %q: %v", key, err)
		}

		return string(data)
	}

	return ""
}

// writeTemp writes data into a fresh temp dir under name and returns the path.
func writeTemp(t testing.TB, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}

	return path
}

// tarMember describes one member written by buildTar.
type tarMember struct {
	name     string
	body     string
	linkname string
	typeflag byte
}

// buildTar writes members as a plain tar stream.
func buildTar(t testing.TB, members []tarMember) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, m := range members {
		hdr := &tar.Header{
			Name:     m.name,
			Linkname: m.linkname,
			Typeflag: m.typeflag,
			Mode:     0o644,
		}
		if m.typeflag == tar.TypeReg {
			hdr.Size = int64(len(m.body))
		}
		if m.typeflag == tar.TypeDir {
			hdr.Mode = 0o755
		}

		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", m.name, err)
		}
		if m.typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, m.body); err != nil {
				t.Fatalf("write tar body %s: %v", m.name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}

	return buf.Bytes()
}

// gzipBytes compresses data with gzip.
func gzipBytes(t testing.TB, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	return buf.Bytes()
}

// zstdBytes compresses data with zstd.
func zstdBytes(t testing.TB, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zstd write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}

	return buf.Bytes()
}

// lz4Bytes compresses data as one lz4 frame.
func lz4Bytes(t testing.TB, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("lz4 write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("lz4 close: %v", err)
	}

	return buf.Bytes()
}

// zipMember describes one member written by buildZip; a trailing "/" makes a directory.
type zipMember struct {
	name string
	body string
}

// buildZip writes members as a deflated zip archive.
func buildZip(t testing.TB, members []zipMember) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m.name)
		if err != nil {
			t.Fatalf("zip create %s: %v", m.name, err)
		}
		if _, err := io.WriteString(w, m.body); err != nil {
			t.Fatalf("zip write %s: %v", m.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	return buf.Bytes()
}

type manualEntry struct {
	data       []byte
	name       string
	compressed bool
}

// buildManualPBO writes a minimal PBO with a prefix header and entries in
// provided order. Compressed entries are stored LZSS-packed.
func buildManualPBO(t testing.TB, entries []manualEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	header := make([]byte, pboHeaderSize)
	binary.LittleEndian.PutUint32(header[1:5], uint32(PBOMimeHeader))
	buf.Write(header)
	buf.WriteString("prefix\x00test\\addon\x00")
	buf.WriteByte(0)

	payloads := make([][]byte, len(entries))
	for i, e := range entries {
		payloads[i] = e.data
		fields := make([]byte, 20)
		if e.compressed {
			packed, err := lzss.Compress(e.data, lzss.DefaultCompressOptions())
			if err != nil {
				t.Fatalf("lzss compress %s: %v", e.name, err)
			}

			payloads[i] = packed
			binary.LittleEndian.PutUint32(fields[0:4], uint32(PBOMimeCompress))
			binary.LittleEndian.PutUint32(fields[4:8], uint32(len(e.data)))
		}
		binary.LittleEndian.PutUint32(fields[16:20], uint32(len(payloads[i])))

		buf.WriteString(e.name)
		buf.WriteByte(0)
		buf.Write(fields)
	}

	buf.WriteByte(0)
	buf.Write(make([]byte, 20))
	for _, p := range payloads {
		buf.Write(p)
	}

	return buf.Bytes()
}

// listDir returns slash-separated relative paths under root, directories
// suffixed with "/", in lexical walk order.
func listDir(t testing.TB, root string) []string {
	t.Helper()

	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}

		out = append(out, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}

	return out
}
