// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package queue

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/heicconv/internal/apperr"
	"github.com/pdiddy/heicconv/pkg/types"
)

// Save copies the converted output of a completed item to dest, creating
// missing parent directories. The copy goes through a temporary file in
// the destination directory and is renamed into place, so dest is either
// the previous file or the complete JPEG. An existing dest is replaced
// only when overwrite is set. Once Shutdown has begun, Save returns
// ErrClosed.
func (q *Queue) Save(id, dest string, overwrite bool) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	e, ok := q.items[id]
	if !ok || e.removing {
		q.mu.Unlock()
		return ErrNotFound
	}
	if e.item.Status != types.StatusCompleted {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotCompleted, e.item.Name, e.item.Status)
	}
	src := e.item.OutputPath
	e.saving++
	q.saves.Add(1)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		e.saving--
		q.mu.Unlock()
		q.saves.Done()
	}()

	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			return apperr.IO("save", dest, os.ErrExist)
		}
	}
	if err := copyFile(src, dest); err != nil {
		return err
	}
	q.log.WithField("item", id).WithField("dest", dest).Debug("saved")
	return nil
}

func copyFile(src, dest string) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.IO("create", dir, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return apperr.IO("open", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, ".heicconv-save-*.tmp")
	if err != nil {
		return apperr.IO("save", dest, err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, in)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return apperr.IO("save", dest, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return apperr.IO("save", dest, closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return apperr.IO("save", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return apperr.IO("save", dest, err)
	}
	return nil
}
