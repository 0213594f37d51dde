// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/heicconv/internal/apperr"
)

// shellMeta are characters that have meaning to a shell or that could
// smuggle extra arguments into a tool invocation.
const shellMeta = ";&|$`<>*?!\"'\\\n\r\x00"

// SafePath rejects paths carrying shell metacharacters or ".." segments,
// then returns the absolute, symlink-free path of an existing regular
// file. The result always starts with a separator, so it cannot be
// mistaken for a command-line option.
func SafePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", apperr.InvalidPath(path, "path is empty")
	}
	if strings.ContainsAny(path, shellMeta) {
		return "", apperr.InvalidPath(path, "path contains shell metacharacters")
	}
	for _, seg := range strings.FieldsFunc(path, isSeparator) {
		if seg == ".." {
			return "", apperr.InvalidPath(path, "path traversal not allowed")
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", apperr.InvalidPath(path, "cannot resolve path")
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", apperr.InvalidPath(path, "cannot resolve path")
	}
	if strings.ContainsAny(resolved, shellMeta) {
		return "", apperr.InvalidPath(path, "resolved path contains shell metacharacters")
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return "", apperr.InvalidPath(path, "not a regular file")
	}
	return resolved, nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}
