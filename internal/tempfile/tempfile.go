// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tempfile owns the per-run scratch directory: in-memory inputs are
// written there before conversion, and converted JPEGs live there until
// they are saved or released.
package tempfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/pdiddy/heicconv/internal/apperr"
	"github.com/pdiddy/heicconv/internal/validate"
)

// dirPrefix names every scratch directory so that stale ones can be found.
const dirPrefix = "heicconv-"

// Manager creates and removes scratch files inside one directory.
type Manager struct {
	dir string
	log log.FieldLogger

	mu    sync.Mutex
	owned map[string]struct{}
}

// NewManager creates a fresh scratch directory under baseDir, or under
// os.TempDir() when baseDir is empty.
func NewManager(baseDir string, logger log.FieldLogger) (*Manager, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, apperr.IO("create", baseDir, err)
	}
	dir, err := os.MkdirTemp(baseDir, dirPrefix+"*")
	if err != nil {
		return nil, apperr.IO("create", baseDir, err)
	}
	return &Manager{
		dir:   dir,
		log:   logger.WithField("scratch", dir),
		owned: make(map[string]struct{}),
	}, nil
}

// Dir returns the scratch directory.
func (m *Manager) Dir() string { return m.dir }

// Materialize writes content to a new, uniquely named file and returns its
// path. suggestedName must be a plain file name.
func (m *Manager) Materialize(content []byte, suggestedName string) (string, error) {
	if err := validate.ValidateFileName(suggestedName); err != nil {
		return "", err
	}
	path := filepath.Join(m.dir, uuid.NewString()+"_"+suggestedName)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", apperr.IO("create", path, err)
	}
	_, writeErr := f.Write(content)
	closeErr := f.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(path)
		return "", apperr.IO("write", path, writeErr)
	}

	m.mu.Lock()
	m.owned[path] = struct{}{}
	m.mu.Unlock()

	m.log.WithField("path", path).Debug("materialized input")
	return path, nil
}

// Cleanup removes path. A path that no longer exists is not an error, so
// calling Cleanup twice is safe.
func (m *Manager) Cleanup(path string) error {
	if path == "" {
		return nil
	}
	m.mu.Lock()
	delete(m.owned, path)
	m.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.IO("remove", path, err)
	}
	return nil
}

// Owned lists materialized files that have not been cleaned up.
func (m *Manager) Owned() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.owned))
	for p := range m.owned {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Close removes the scratch directory and anything still inside it.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.owned = make(map[string]struct{})
	m.mu.Unlock()

	if err := os.RemoveAll(m.dir); err != nil {
		return apperr.IO("remove", m.dir, err)
	}
	return nil
}

// Sweep removes scratch directories under baseDir that were last modified
// more than retention ago, skipping keep. Earlier runs that crashed leave
// such directories behind. It returns how many were removed.
func Sweep(baseDir string, retention time.Duration, keep string, logger log.FieldLogger) (int, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, apperr.IO("read", baseDir, err)
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}
		path := filepath.Join(baseDir, entry.Name())
		if path == keep {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			logger.WithError(err).WithField("path", path).Warn("removing stale scratch directory")
			continue
		}
		removed++
	}
	return removed, nil
}
