// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ToolName identifies the external image tool used for conversion.
type ToolName string

const (
	ToolAuto        ToolName = "auto"
	ToolSips        ToolName = "sips"
	ToolHeifConvert ToolName = "heif-convert"
	ToolMagick      ToolName = "magick"
)

// ConversionConfig holds settings for the conversion stage.
type ConversionConfig struct {
	// JPEGQuality is the JPEG quality passed to the image tool (0-100, default 90).
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality" mapstructure:"jpeg_quality" validate:"gte=0,lte=100"`

	// MaxFileSizeMB is the largest accepted input in MiB (default 100, at most 1 TiB).
	MaxFileSizeMB int64 `json:"max_file_size_mb" yaml:"max_file_size_mb" mapstructure:"max_file_size_mb" validate:"gt=0,lte=1048576"`

	// Tool selects the image tool: auto, sips, heif-convert, or magick.
	Tool ToolName `json:"tool" yaml:"tool" mapstructure:"tool" validate:"oneof=auto sips heif-convert magick"`
}

// MaxFileSizeBytes returns the size limit in bytes.
func (c ConversionConfig) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// QueueConfig holds settings for the conversion queue.
type QueueConfig struct {
	// MaxConcurrentConversions bounds how many items are processing at once (default 5).
	MaxConcurrentConversions int `json:"max_concurrent_conversions" yaml:"max_concurrent_conversions" mapstructure:"max_concurrent_conversions" validate:"gte=1,lte=64"`
}

// StorageConfig holds settings for temporary artifacts.
type StorageConfig struct {
	// TempDir is the parent of the per-run scratch directory. Empty means os.TempDir().
	TempDir string `json:"temp_dir" yaml:"temp_dir" mapstructure:"temp_dir"`

	// CleanupTempFiles enables removal of scratch directories left by earlier runs.
	CleanupTempFiles bool `json:"cleanup_temp_files" yaml:"cleanup_temp_files" mapstructure:"cleanup_temp_files"`

	// TempFileRetentionHours is the age after which a stale scratch directory is removed.
	TempFileRetentionHours int `json:"temp_file_retention_hours" yaml:"temp_file_retention_hours" mapstructure:"temp_file_retention_hours" validate:"gte=1"`
}

// HistoryConfig holds settings for the optional conversion history database.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

// AppConfig groups all configuration sections.
type AppConfig struct {
	Conversion ConversionConfig `json:"conversion" yaml:"conversion" mapstructure:"conversion"`
	Queue      QueueConfig      `json:"queue" yaml:"queue" mapstructure:"queue"`
	Storage    StorageConfig    `json:"storage" yaml:"storage" mapstructure:"storage"`
	History    HistoryConfig    `json:"history" yaml:"history" mapstructure:"history"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}
