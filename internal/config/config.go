// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the application configuration from defaults, a YAML
// file, and environment variables, and rejects invalid values instead of
// clamping them.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/heicconv/pkg/types"
)

const (
	// FileName is the config file base name searched for in the config paths.
	FileName = "heicconv"
	// EnvPrefix prefixes every environment override (HEICCONV_CONVERSION_JPEG_QUALITY).
	EnvPrefix = "HEICCONV"

	DefaultJPEGQuality              = 90
	DefaultMaxFileSizeMB            = 100
	DefaultMaxConcurrentConversions = 5
	DefaultTempFileRetentionHours   = 24
)

// legacyEnv maps config keys to the short environment names older
// releases documented.
var legacyEnv = map[string]string{
	"conversion.jpeg_quality":     "HEIC_JPEG_QUALITY",
	"conversion.max_file_size_mb": "HEIC_MAX_FILE_SIZE_MB",
}

// Defaults returns the built-in configuration.
func Defaults() types.AppConfig {
	return types.AppConfig{
		Conversion: types.ConversionConfig{
			JPEGQuality:   DefaultJPEGQuality,
			MaxFileSizeMB: DefaultMaxFileSizeMB,
			Tool:          types.ToolAuto,
		},
		Queue: types.QueueConfig{
			MaxConcurrentConversions: DefaultMaxConcurrentConversions,
		},
		Storage: types.StorageConfig{
			CleanupTempFiles:       true,
			TempFileRetentionHours: DefaultTempFileRetentionHours,
		},
		Log: types.LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key with its default so that environment
// variables are seen by Unmarshal even when no config file sets the key.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("conversion.jpeg_quality", d.Conversion.JPEGQuality)
	v.SetDefault("conversion.max_file_size_mb", d.Conversion.MaxFileSizeMB)
	v.SetDefault("conversion.tool", string(d.Conversion.Tool))
	v.SetDefault("queue.max_concurrent_conversions", d.Queue.MaxConcurrentConversions)
	v.SetDefault("storage.temp_dir", d.Storage.TempDir)
	v.SetDefault("storage.cleanup_temp_files", d.Storage.CleanupTempFiles)
	v.SetDefault("storage.temp_file_retention_hours", d.Storage.TempFileRetentionHours)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Dir returns ~/.config/heicconv, the per-user configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".config", FileName), nil
}

// Setup prepares v to read cfgFile, or to search ./heicconv.yaml and
// ~/.config/heicconv/heicconv.yaml when cfgFile is empty, and to honour
// environment overrides.
func Setup(v *viper.Viper, cfgFile string) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, envKey, legacy)
	}
}

// Load reads the config file (a missing file is fine), decodes all
// sources into an AppConfig, and validates it. Unknown keys and fractional
// values for integer settings are rejected.
func Load(v *viper.Viper) (*types.AppConfig, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg types.AppConfig
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		rejectFractional,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.UnmarshalExact(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultHistoryPath is used when history.path is empty.
func DefaultHistoryPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// rejectFractional stops a float such as 90.7 from being truncated into an
// integer setting.
func rejectFractional(from, to reflect.Type, data any) (any, error) {
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
	default:
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("%v is not a whole number", data)
	}
	return data, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg types.AppConfig) ([]byte, error) {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}
	data, err := Marshal(Defaults())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
