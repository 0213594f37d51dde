// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package apperr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/heicconv/pkg/types"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("validating: %w", FileTooLarge(150, 100))

	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.NotErrorIs(t, err, ErrInvalidFormat)
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"too large", FileTooLarge(150, 100), "file size 150MB exceeds maximum 100MB"},
		{"format", InvalidFormat("bad magic"), "invalid HEIC/HEIF file: bad magic"},
		{"path", InvalidPath("../x", "path traversal not allowed"), `invalid file path "../x": path traversal not allowed`},
		{"conversion", ConversionFailed("sips exited 1", nil), "conversion failed: sips exited 1"},
		{"io", IO("open", "/tmp/a", fs.ErrNotExist), "open /tmp/a: file does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIOUnwraps(t *testing.T) {
	err := IO("stat", "/nope", fs.ErrNotExist)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, errors.Is(err, ErrIO))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, types.ErrInvalidPath, KindOf(fmt.Errorf("wrap: %w", InvalidPath("", "x"))))
	assert.Equal(t, types.ErrConversionFailed, KindOf(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "File is too large (150 MB, limit 100 MB)", UserMessage(FileTooLarge(150, 100)))
	assert.Equal(t, "Conversion failed: boom", UserMessage(errors.New("boom")))
}
