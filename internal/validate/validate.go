// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate inspects candidate inputs before conversion: size limit,
// extension, and the HEIF ftyp signature. It never modifies the file and
// reads at most a small prefix.
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/heicconv/internal/apperr"
	"github.com/pdiddy/heicconv/pkg/types"
)

const (
	// prefixSize bounds how much of a file is read for signature checks.
	prefixSize = 512
	// minHeaderSize covers the box size, the "ftyp" tag, and the major brand.
	minHeaderSize = 12

	mib = 1024 * 1024

	maxFileNameLen = 255
)

// SupportedExtensions lists accepted input extensions without the dot.
var SupportedExtensions = []string{"heic", "heif"}

var (
	ftypTag = []byte("ftyp")
	brands  = [][]byte{
		[]byte("heic"), []byte("heix"), []byte("hevc"), []byte("hevx"),
		[]byte("heim"), []byte("heis"), []byte("hevm"), []byte("hevs"),
		[]byte("mif1"), []byte("msf1"),
	}
)

// Validator checks files against the configured size limit and the
// HEIC/HEIF signature.
type Validator struct {
	maxBytes int64
	maxMB    int64
}

// New creates a Validator from the conversion settings.
func New(cfg types.ConversionConfig) *Validator {
	return &Validator{
		maxBytes: cfg.MaxFileSizeBytes(),
		maxMB:    cfg.MaxFileSizeMB,
	}
}

// Validate returns nil when ref looks like a convertible HEIC/HEIF file.
// Failures are *apperr.Error values of kind FileTooLarge, InvalidFormat,
// InvalidPath, or IoError.
func (v *Validator) Validate(ref types.FileRef) error {
	switch r := ref.(type) {
	case types.PathRef:
		return v.validatePath(r.Path)
	case types.BytesRef:
		if err := v.checkSize(r.Size()); err != nil {
			return err
		}
		if err := CheckExtension(r.Name); err != nil {
			return err
		}
		prefix := r.Content
		if len(prefix) > prefixSize {
			prefix = prefix[:prefixSize]
		}
		return CheckSignature(prefix)
	}
	return apperr.InvalidFormat(fmt.Sprintf("unsupported file reference %T", ref))
}

func (v *Validator) validatePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return apperr.IO("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return apperr.InvalidPath(path, "not a regular file")
	}
	if err := v.checkSize(info.Size()); err != nil {
		return err
	}
	if err := CheckExtension(path); err != nil {
		return err
	}

	prefix, err := readPrefix(path)
	if err != nil {
		return apperr.IO("read", path, err)
	}
	return CheckSignature(prefix)
}

func (v *Validator) checkSize(size int64) error {
	if size > v.maxBytes {
		return apperr.FileTooLarge(size/mib, v.maxMB)
	}
	return nil
}

func readPrefix(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, prefixSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// CheckExtension accepts .heic and .heif in any letter case.
func CheckExtension(name string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, s := range SupportedExtensions {
		if ext == s {
			return nil
		}
	}
	return apperr.InvalidFormat(fmt.Sprintf("unsupported extension %q, supported: %s",
		ext, strings.Join(SupportedExtensions, ", ")))
}

// CheckSignature verifies that prefix starts with an ftyp box whose major
// brand is a HEIC/HEIF brand.
func CheckSignature(prefix []byte) error {
	if len(prefix) < minHeaderSize {
		return apperr.InvalidFormat("file too small or unreadable")
	}
	if !bytes.Equal(prefix[4:8], ftypTag) {
		return apperr.InvalidFormat("missing ftyp signature (detected " + mimetype.Detect(prefix).String() + ")")
	}
	brand := prefix[8:12]
	for _, b := range brands {
		if bytes.Equal(brand, b) {
			return nil
		}
	}
	return apperr.InvalidFormat(fmt.Sprintf("unsupported brand %q (detected %s)", brand, mimetype.Detect(prefix).String()))
}

// ValidateFileName rejects names that cannot safely become part of a
// scratch file path.
func ValidateFileName(name string) error {
	if name == "" {
		return apperr.InvalidPath(name, "file name cannot be empty")
	}
	if strings.ContainsAny(name, `/\:*?"<>|`) || strings.ContainsRune(name, 0) {
		return apperr.InvalidPath(name, "file name contains invalid characters")
	}
	if len(name) > maxFileNameLen {
		return apperr.InvalidPath(name, fmt.Sprintf("file name too long (max %d characters)", maxFileNameLen))
	}
	if name == "." || name == ".." {
		return apperr.InvalidPath(name, "file name is reserved")
	}
	return nil
}
