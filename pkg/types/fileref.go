// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"os"
	"path/filepath"
)

// FileRef is a file submitted for conversion: either a path on disk or
// content held in memory. The only implementations are PathRef and BytesRef.
type FileRef interface {
	// DisplayName is the filename shown to the user.
	DisplayName() string
	// Size is the advisory size in bytes.
	Size() int64

	isFileRef()
}

// PathRef refers to a file the converter can read directly.
type PathRef struct {
	Path  string
	Bytes int64
}

func (r PathRef) DisplayName() string { return filepath.Base(r.Path) }
func (r PathRef) Size() int64         { return r.Bytes }
func (PathRef) isFileRef()            {}

// BytesRef carries file content that has no usable path and must be
// materialized before conversion.
type BytesRef struct {
	Content []byte
	Name    string
}

func (r BytesRef) DisplayName() string { return r.Name }
func (r BytesRef) Size() int64         { return int64(len(r.Content)) }
func (BytesRef) isFileRef()            {}

// StatPath builds a PathRef for path. A failing stat is not an error: the
// size is reported as 0 and validation decides later.
func StatPath(path string) PathRef {
	ref := PathRef{Path: path}
	if info, err := os.Stat(path); err == nil {
		ref.Bytes = info.Size()
	}
	return ref
}
