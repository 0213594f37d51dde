// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover turns command-line arguments into file references.
package discover

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/heicconv/internal/validate"
	"github.com/pdiddy/heicconv/pkg/types"
)

// Expand resolves each argument to one or more files. A file argument is
// kept as given, whatever its extension, so validation can report on it. A
// directory contributes the HEIC/HEIF files directly inside it, or anywhere
// below it when recursive is set; hidden subdirectories are skipped.
// Arguments that cannot be stat'ed are kept and fail validation later.
// Duplicate paths are dropped, keeping the first occurrence.
func Expand(ctx context.Context, args []string, recursive bool) ([]types.PathRef, error) {
	var refs []types.PathRef
	seen := make(map[string]bool)
	add := func(path string) {
		key := filepath.Clean(path)
		if seen[key] {
			return
		}
		seen[key] = true
		refs = append(refs, types.StatPath(path))
	}

	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			add(arg)
			continue
		}
		paths, err := scanDir(ctx, arg, recursive)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", arg, err)
		}
		for _, p := range paths {
			add(p)
		}
	}
	return refs, nil
}

func scanDir(ctx context.Context, root string, recursive bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && HasImageExt(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// HasImageExt reports whether name carries a supported extension,
// ignoring case.
func HasImageExt(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, s := range validate.SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}
