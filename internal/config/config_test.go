// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/heicconv/pkg/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heicconv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func load(t *testing.T, cfgFile string) (*types.AppConfig, error) {
	t.Helper()
	v := viper.New()
	Setup(v, cfgFile)
	return Load(v)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t, writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, Defaults(), *cfg)
	assert.Equal(t, int64(100*1024*1024), cfg.Conversion.MaxFileSizeBytes())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
conversion:
  jpeg_quality: 75
  max_file_size_mb: 20
  tool: magick
queue:
  max_concurrent_conversions: 2
history:
  enabled: true
`)
	cfg, err := load(t, path)
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Conversion.JPEGQuality)
	assert.Equal(t, int64(20), cfg.Conversion.MaxFileSizeMB)
	assert.Equal(t, types.ToolMagick, cfg.Conversion.Tool)
	assert.Equal(t, 2, cfg.Queue.MaxConcurrentConversions)
	assert.True(t, cfg.History.Enabled)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "conversion:\n  jpeg_quality: 75\n")

	t.Setenv("HEIC_JPEG_QUALITY", "60")
	t.Setenv("HEICCONV_CONVERSION_MAX_FILE_SIZE_MB", "8")
	t.Setenv("HEICCONV_QUEUE_MAX_CONCURRENT_CONVERSIONS", "3")

	cfg, err := load(t, path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Conversion.JPEGQuality)
	assert.Equal(t, int64(8), cfg.Conversion.MaxFileSizeMB)
	assert.Equal(t, 3, cfg.Queue.MaxConcurrentConversions)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "quality above range",
			body:    "conversion:\n  jpeg_quality: 101\n",
			wantErr: "conversion.jpeg_quality must be <= 100, got 101",
		},
		{
			name:    "negative quality from env",
			body:    "{}\n",
			env:     map[string]string{"HEIC_JPEG_QUALITY": "-1"},
			wantErr: "conversion.jpeg_quality must be >= 0, got -1",
		},
		{
			name:    "zero max size",
			body:    "conversion:\n  max_file_size_mb: 0\n",
			wantErr: "conversion.max_file_size_mb must be > 0",
		},
		{
			name:    "unknown tool",
			body:    "conversion:\n  tool: gimp\n",
			wantErr: "conversion.tool must be one of",
		},
		{
			name:    "unparseable number",
			body:    "{}\n",
			env:     map[string]string{"HEIC_MAX_FILE_SIZE_MB": "lots"},
			wantErr: "decoding configuration",
		},
		{
			name:    "zero concurrency",
			body:    "queue:\n  max_concurrent_conversions: 0\n",
			wantErr: "queue.max_concurrent_conversions must be >= 1",
		},
		{
			name:    "fractional quality",
			body:    "conversion:\n  jpeg_quality: 90.7\n",
			wantErr: "90.7 is not a whole number",
		},
		{
			name:    "max size beyond one tebibyte",
			body:    "conversion:\n  max_file_size_mb: 9000000000000\n",
			wantErr: "conversion.max_file_size_mb must be <= 1048576",
		},
		{
			name:    "misspelled key",
			body:    "conversion:\n  jpegQuality: 500\n",
			wantErr: "invalid keys: jpegquality",
		},
		{
			name:    "unknown section",
			body:    "ui:\n  window_width: 800\n",
			wantErr: "invalid keys",
		},
		{
			name:    "bad log format",
			body:    "log:\n  format: xml\n",
			wantErr: "log.format must be one of",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(t, writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadAcceptsWholeFloat(t *testing.T) {
	cfg, err := load(t, writeConfig(t, "conversion:\n  jpeg_quality: 80.0\n"))
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Conversion.JPEGQuality)
}

func TestLoadLargestMaxSize(t *testing.T) {
	cfg, err := load(t, writeConfig(t, "conversion:\n  max_file_size_mb: 1048576\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(1)<<40, cfg.Conversion.MaxFileSizeBytes())
}

func TestLoadSearchesHomeConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	dir := filepath.Join(home, ".config", "heicconv")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "heicconv.yaml"),
		[]byte("conversion:\n  jpeg_quality: 42\n"), 0o644))

	cfg, err := load(t, "")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Conversion.JPEGQuality)

	hist, err := DefaultHistoryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "history.db"), hist)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := load(t, writeConfig(t, "conversion: [unterminated\n"))
	require.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "heicconv.yaml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := load(t, path)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)

	err = WriteDefault(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, WriteDefault(path, true))
}
