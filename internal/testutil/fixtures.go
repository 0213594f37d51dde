// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// HEICHeader is the start of a real HEIC file: a 24-byte ftyp box with
// major brand "heic".
var HEICHeader = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'h', 'e', 'i', 'c', 0x00, 0x00, 0x00, 0x00,
	'm', 'i', 'f', '1', 'h', 'e', 'i', 'c',
}

// PNGHeader is a PNG signature followed by the start of an IHDR chunk.
var PNGHeader = []byte{
	0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
}

// WriteFile creates dir/name starting with header and extended to size
// bytes. The tail is sparse, so large sizes cost no disk space.
func WriteFile(t *testing.T, dir, name string, header []byte, size int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(header); err != nil {
		f.Close()
		t.Fatal(err)
	}
	if size > int64(len(header)) {
		if err := f.Truncate(size); err != nil {
			f.Close()
			t.Fatal(err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}
