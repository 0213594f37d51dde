// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Status is the lifecycle state of a queued file.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrorKind classifies why an item failed.
type ErrorKind string

const (
	ErrInvalidFormat    ErrorKind = "invalid_format"
	ErrFileTooLarge     ErrorKind = "file_too_large"
	ErrInvalidPath      ErrorKind = "invalid_path"
	ErrConversionFailed ErrorKind = "conversion_failed"
	ErrIO               ErrorKind = "io_error"
)

// QueueItem is one submitted file and its conversion state. Values handed
// out by the queue are copies; mutating them has no effect on the queue.
type QueueItem struct {
	// ID is a UUID assigned at submission.
	ID string `json:"id" yaml:"id"`

	// Name is the display filename.
	Name string `json:"name" yaml:"name"`

	// SizeBytes is the original file size (0 when it could not be read).
	SizeBytes int64 `json:"size_bytes" yaml:"size_bytes"`

	Status Status `json:"status" yaml:"status"`

	// Progress is an advisory 0-100 checkpoint, not a measured percentage.
	Progress int `json:"progress" yaml:"progress"`

	// OutputPath is set only when Status is completed.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	// ErrorKind and ErrorMessage are set only when Status is failed.
	ErrorKind    ErrorKind `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`
	StartedAt   time.Time `json:"started_at,omitzero" yaml:"started_at,omitempty"`
	FinishedAt  time.Time `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
}
