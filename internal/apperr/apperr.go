// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package apperr defines the failure kinds a conversion can end with.
// Every failure stored on a queue item is an *Error; errors.Is matches on
// kind against the exported sentinels.
package apperr

import (
	"errors"
	"fmt"

	"github.com/pdiddy/heicconv/pkg/types"
)

// Error is a classified conversion failure.
type Error struct {
	Kind types.ErrorKind

	// Actual and Max are sizes in MiB for FileTooLarge.
	Actual int64
	Max    int64

	// Reason describes InvalidFormat, InvalidPath, and ConversionFailed.
	Reason string

	// Op and Path describe the filesystem operation for IoError.
	Op   string
	Path string

	Err error
}

// Sentinels for errors.Is. They carry only a kind.
var (
	ErrInvalidFormat    = &Error{Kind: types.ErrInvalidFormat}
	ErrFileTooLarge     = &Error{Kind: types.ErrFileTooLarge}
	ErrInvalidPath      = &Error{Kind: types.ErrInvalidPath}
	ErrConversionFailed = &Error{Kind: types.ErrConversionFailed}
	ErrIO               = &Error{Kind: types.ErrIO}
)

func (e *Error) Error() string {
	switch e.Kind {
	case types.ErrFileTooLarge:
		return fmt.Sprintf("file size %dMB exceeds maximum %dMB", e.Actual, e.Max)
	case types.ErrInvalidFormat:
		return "invalid HEIC/HEIF file: " + e.Reason
	case types.ErrInvalidPath:
		if e.Path != "" {
			return fmt.Sprintf("invalid file path %q: %s", e.Path, e.Reason)
		}
		return "invalid file path: " + e.Reason
	case types.ErrConversionFailed:
		return "conversion failed: " + e.Reason
	case types.ErrIO:
		if e.Err != nil {
			return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
		}
		return fmt.Sprintf("%s %s failed", e.Op, e.Path)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// InvalidFormat reports content that is not a HEIC/HEIF image.
func InvalidFormat(reason string) *Error {
	return &Error{Kind: types.ErrInvalidFormat, Reason: reason}
}

// FileTooLarge reports an input above the configured limit, in MiB.
func FileTooLarge(actualMB, maxMB int64) *Error {
	return &Error{Kind: types.ErrFileTooLarge, Actual: actualMB, Max: maxMB}
}

// InvalidPath reports a path or file name that may not be handed to the image tool.
func InvalidPath(path, reason string) *Error {
	return &Error{Kind: types.ErrInvalidPath, Path: path, Reason: reason}
}

// ConversionFailed reports a tool failure or a missing result.
func ConversionFailed(reason string, err error) *Error {
	return &Error{Kind: types.ErrConversionFailed, Reason: reason, Err: err}
}

// IO reports a failed filesystem operation.
func IO(op, path string, err error) *Error {
	return &Error{Kind: types.ErrIO, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of err. Errors that were never classified count
// as conversion failures.
func KindOf(err error) types.ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return types.ErrConversionFailed
}

// UserMessage is the text shown next to a failed item.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Conversion failed: " + err.Error()
	}
	switch e.Kind {
	case types.ErrFileTooLarge:
		return fmt.Sprintf("File is too large (%d MB, limit %d MB)", e.Actual, e.Max)
	case types.ErrInvalidFormat:
		return "Not a valid HEIC/HEIF image: " + e.Reason
	case types.ErrInvalidPath:
		return "File path cannot be used: " + e.Reason
	case types.ErrConversionFailed:
		return "Conversion failed: " + e.Reason
	case types.ErrIO:
		return fmt.Sprintf("Could not %s %s", e.Op, e.Path)
	}
	return e.Error()
}
