// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns a validated HEIC/HEIF path into a JPEG file by
// invoking an external image tool. Its own work is argument checking,
// invocation, and verification of the result.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/pdiddy/heicconv/internal/apperr"
	"github.com/pdiddy/heicconv/internal/imagetool"
	"github.com/pdiddy/heicconv/pkg/types"
)

// outputSuffix is appended to the UUID of every produced file.
const outputSuffix = "_converted.jpg"

// Converter transforms an input file into a JPEG and returns the JPEG's path.
type Converter interface {
	Convert(ctx context.Context, inputPath string) (string, error)
}

// Invoker runs an imagetool.Tool against sanitized input paths and writes
// results into outDir.
type Invoker struct {
	tool    imagetool.Tool
	quality int
	outDir  string
	log     log.FieldLogger
}

// NewInvoker creates an Invoker writing JPEGs of the configured quality
// into outDir.
func NewInvoker(tool imagetool.Tool, cfg types.ConversionConfig, outDir string, logger log.FieldLogger) *Invoker {
	return &Invoker{
		tool:    tool,
		quality: cfg.JPEGQuality,
		outDir:  outDir,
		log:     logger.WithField("tool", tool.Name()),
	}
}

// Convert checks inputPath, runs the tool, and verifies that exactly one
// non-empty output file was written. Failures are InvalidPath or
// ConversionFailed errors; a partial output is removed.
func (i *Invoker) Convert(ctx context.Context, inputPath string) (string, error) {
	in, err := SafePath(inputPath)
	if err != nil {
		return "", err
	}

	out := filepath.Join(i.outDir, uuid.NewString()+outputSuffix)
	i.log.WithFields(log.Fields{"input": in, "output": out, "quality": i.quality}).Debug("running image tool")

	if err := i.tool.Convert(ctx, in, out, i.quality); err != nil {
		i.discard(out)
		var runErr *imagetool.RunError
		if errors.As(err, &runErr) {
			return "", apperr.ConversionFailed(runErr.Error(), err)
		}
		return "", apperr.ConversionFailed(fmt.Sprintf("%s: %v", i.tool.Name(), err), err)
	}

	info, err := os.Stat(out)
	if err != nil {
		return "", apperr.ConversionFailed(i.tool.Name()+" produced no output file", err)
	}
	if info.Size() == 0 {
		i.discard(out)
		return "", apperr.ConversionFailed(i.tool.Name()+" produced an empty output file", nil)
	}
	return out, nil
}

func (i *Invoker) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		i.log.WithError(err).WithField("path", path).Warn("removing partial output")
	}
}
