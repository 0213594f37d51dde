// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/heicconv/internal/convert"
	"github.com/pdiddy/heicconv/internal/imagetool"
	"github.com/pdiddy/heicconv/internal/logging"
	"github.com/pdiddy/heicconv/internal/tempfile"
	"github.com/pdiddy/heicconv/internal/testutil"
	"github.com/pdiddy/heicconv/internal/validate"
	"github.com/pdiddy/heicconv/pkg/types"
)

// scriptedExec stands in for the operating system: only heif-convert is
// installed, and each run is answered by run.
type scriptedExec struct {
	run func(args []string) ([]byte, error)

	mu    sync.Mutex
	calls [][]string
}

func (s *scriptedExec) LookPath(file string) (string, error) {
	if file == string(types.ToolHeifConvert) {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (s *scriptedExec) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string{name}, args...))
	s.mu.Unlock()
	return s.run(args)
}

func (s *scriptedExec) recorded() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.calls...)
}

// writeJPEG behaves like a successful heif-convert: "-q Q IN OUT".
func writeJPEG(args []string) ([]byte, error) {
	return nil, os.WriteFile(args[len(args)-1], []byte("\xff\xd8\xff\xe0 jpeg"), 0o644)
}

type pipeline struct {
	q     *Queue
	exec  *scriptedExec
	temps *tempfile.Manager
	inDir string
}

func newPipeline(t *testing.T, run func([]string) ([]byte, error)) *pipeline {
	t.Helper()
	cfg := types.ConversionConfig{JPEGQuality: 90, MaxFileSizeMB: 100, Tool: types.ToolAuto}

	temps, err := tempfile.NewManager(t.TempDir(), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { temps.Close() })

	exec := &scriptedExec{run: run}
	tool, err := imagetool.SelectWith(exec, cfg.Tool)
	require.NoError(t, err)
	require.Equal(t, "heif-convert", tool.Name())

	q := New(
		validate.New(cfg),
		convert.NewInvoker(tool, cfg, temps.Dir(), logging.Discard()),
		temps,
		Options{MaxConcurrent: 2, Log: logging.Discard()},
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q.Shutdown(ctx)
	})
	return &pipeline{q: q, exec: exec, temps: temps, inDir: t.TempDir()}
}

func (p *pipeline) run(t *testing.T, refs ...types.FileRef) []types.QueueItem {
	t.Helper()
	var ids []string
	for _, ref := range refs {
		item, err := p.q.Submit(ref)
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}
	p.q.StartAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.q.WaitAll(ctx))

	items := make([]types.QueueItem, 0, len(ids))
	for _, id := range ids {
		item, ok := p.q.Get(id)
		require.True(t, ok)
		items = append(items, item)
	}
	return items
}

func (p *pipeline) file(t *testing.T, name string, header []byte, size int64) types.PathRef {
	t.Helper()
	return types.StatPath(testutil.WriteFile(t, p.inDir, name, header, size))
}

func TestPipelineConvertsThroughImageTool(t *testing.T) {
	p := newPipeline(t, writeJPEG)
	ref := p.file(t, "IMG_0001.heic", testutil.HEICHeader, 5*mb)

	item := p.run(t, ref)[0]

	require.Equal(t, types.StatusCompleted, item.Status, item.ErrorMessage)
	assert.Equal(t, 100, item.Progress)
	assert.Equal(t, p.temps.Dir(), filepath.Dir(item.OutputPath))
	assert.True(t, strings.HasSuffix(item.OutputPath, "_converted.jpg"))
	info, err := os.Stat(item.OutputPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	in, err := filepath.EvalSymlinks(ref.Path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"heif-convert", "-q", "90", in, item.OutputPath}}, p.exec.recorded())
}

func TestPipelineConcurrentFiles(t *testing.T) {
	p := newPipeline(t, writeJPEG)

	items := p.run(t,
		p.file(t, "a.heic", testutil.HEICHeader, mb),
		p.file(t, "b.heic", testutil.HEICHeader, mb),
	)

	for _, it := range items {
		assert.Equal(t, types.StatusCompleted, it.Status)
		assert.FileExists(t, it.OutputPath)
	}
	assert.NotEqual(t, items[0].OutputPath, items[1].OutputPath)
	assert.Len(t, p.exec.recorded(), 2)
}

func TestPipelineValidationStopsBeforeTool(t *testing.T) {
	p := newPipeline(t, writeJPEG)

	items := p.run(t,
		p.file(t, "big.heic", testutil.HEICHeader, 150*mb),
		p.file(t, "photo.heic", testutil.PNGHeader, 4096),
	)

	assert.Equal(t, types.ErrFileTooLarge, items[0].ErrorKind)
	assert.Equal(t, types.ErrInvalidFormat, items[1].ErrorKind)
	assert.Empty(t, p.exec.recorded(), "the image tool must not run")
}

func TestPipelineRejectsUnsafePath(t *testing.T) {
	p := newPipeline(t, writeJPEG)

	item := p.run(t, p.file(t, "a;rm.heic", testutil.HEICHeader, 64))[0]

	assert.Equal(t, types.StatusFailed, item.Status)
	assert.Equal(t, types.ErrInvalidPath, item.ErrorKind)
	assert.Empty(t, p.exec.recorded())
}

func TestPipelineToolFailures(t *testing.T) {
	tests := []struct {
		name    string
		run     func([]string) ([]byte, error)
		wantMsg string
	}{
		{
			name: "non-zero exit",
			run: func(args []string) ([]byte, error) {
				// A partial file is left behind, as a crashing tool might.
				os.WriteFile(args[len(args)-1], []byte("partial"), 0o644)
				return []byte("Could not decode HEIF/AVIF file\n"), errors.New("exit status 1")
			},
			wantMsg: "heif-convert: exit status 1: Could not decode HEIF/AVIF file",
		},
		{
			name:    "no output written",
			run:     func([]string) ([]byte, error) { return nil, nil },
			wantMsg: "heif-convert produced no output file",
		},
		{
			name: "empty output written",
			run: func(args []string) ([]byte, error) {
				return nil, os.WriteFile(args[len(args)-1], nil, 0o644)
			},
			wantMsg: "heif-convert produced an empty output file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, tt.run)

			item := p.run(t, types.BytesRef{Content: append([]byte{}, testutil.HEICHeader...), Name: "upload.heic"})[0]

			assert.Equal(t, types.StatusFailed, item.Status)
			assert.Equal(t, types.ErrConversionFailed, item.ErrorKind)
			assert.Contains(t, item.ErrorMessage, tt.wantMsg)
			assert.Zero(t, item.Progress)
			assert.Empty(t, item.OutputPath)
			assert.Len(t, p.exec.recorded(), 1)
			assert.Empty(t, scratchFiles(t, p.temps.Dir()), "no temp input or partial output may remain")
		})
	}
}
