// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package imagetool wraps the operating-system commands that decode HEIC
// and encode JPEG: sips on macOS, heif-convert from libheif, and
// ImageMagick. Commands are executed directly with an argument vector,
// never through a shell.
package imagetool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pdiddy/heicconv/pkg/types"
)

// Tool converts one image file to JPEG.
type Tool interface {
	// Name returns the binary name ("sips", "heif-convert", "magick").
	Name() string

	// Available reports whether the binary is on PATH.
	Available() bool

	// Convert writes a JPEG of in to out at the given quality (0-100).
	Convert(ctx context.Context, in, out string, quality int) error
}

// RunError is returned when the tool exits unsuccessfully.
type RunError struct {
	Tool   string
	Output string
	Err    error
}

func (e *RunError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Output)
}

func (e *RunError) Unwrap() error { return e.Err }

// Executor runs external commands. Run returns the command's stderr.
// Tests substitute a scripted implementation.
type Executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production Executor backed by os/exec. Run returns
// the command's stderr.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// tool implements Tool for one binary. Backends differ only in the binary
// name and how the argument vector is laid out.
type tool struct {
	bin  string
	args func(in, out, quality string) []string
	exec Executor
}

func (t *tool) Name() string { return t.bin }

func (t *tool) Available() bool {
	_, err := t.exec.LookPath(t.bin)
	return err == nil
}

func (t *tool) Convert(ctx context.Context, in, out string, quality int) error {
	args := t.args(in, out, strconv.Itoa(quality))
	output, err := t.exec.Run(ctx, t.bin, args...)
	if err != nil {
		return &RunError{Tool: t.bin, Output: strings.TrimSpace(string(output)), Err: err}
	}
	return nil
}

func newSips(exec Executor) *tool {
	return &tool{
		bin:  string(types.ToolSips),
		exec: exec,
		args: func(in, out, q string) []string {
			return []string{"-s", "format", "jpeg", "-s", "formatOptions", q, in, "--out", out}
		},
	}
}

func newHeifConvert(exec Executor) *tool {
	return &tool{
		bin:  string(types.ToolHeifConvert),
		exec: exec,
		args: func(in, out, q string) []string {
			return []string{"-q", q, in, out}
		},
	}
}

func newMagick(exec Executor) *tool {
	return &tool{
		bin:  string(types.ToolMagick),
		exec: exec,
		args: func(in, out, q string) []string {
			return []string{in, "-quality", q, out}
		},
	}
}

var defaultExec = &osExecutor{}

// All returns every known backend in preference order.
func All() []Tool {
	return all(defaultExec)
}

func all(exec Executor) []Tool {
	return []Tool{newSips(exec), newHeifConvert(exec), newMagick(exec)}
}

// Select returns the backend named by name. ToolAuto picks the first
// available backend in preference order: sips, heif-convert, magick.
func Select(name types.ToolName) (Tool, error) {
	return SelectWith(defaultExec, name)
}

// SelectWith is Select with commands run through exec.
func SelectWith(exec Executor, name types.ToolName) (Tool, error) {
	tools := all(exec)
	if name == "" || name == types.ToolAuto {
		for _, t := range tools {
			if t.Available() {
				return t, nil
			}
		}
		return nil, fmt.Errorf("no image conversion tool available: install one of %s",
			strings.Join(names(tools), ", "))
	}

	for _, t := range tools {
		if t.Name() != string(name) {
			continue
		}
		if !t.Available() {
			return nil, fmt.Errorf("image tool %s not found on PATH", name)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown image tool %q", name)
}

func names(tools []Tool) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name()
	}
	return out
}
