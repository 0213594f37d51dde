// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the heicconv CLI, which converts
// HEIC/HEIF photos to JPEG using the image tools installed on the system.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/heicconv/internal/config"
	"github.com/pdiddy/heicconv/internal/logging"
	"github.com/pdiddy/heicconv/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

var (
	appCfg *types.AppConfig
	logger *log.Logger
)

// rootCmd is the base command for the heicconv CLI.
var rootCmd = &cobra.Command{
	Use:   "heicconv",
	Short: "Convert HEIC/HEIF photos to JPEG",
	Long: `heicconv converts HEIC and HEIF photos to JPEG. Each input is checked
(size limit, extension, file signature) and then handed to an installed
image tool: sips on macOS, heif-convert from libheif, or ImageMagick.

Files are converted concurrently up to queue.max_concurrent_conversions.
Intermediate files live in a private scratch directory that is removed on
exit.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfig] != "" {
			logger = logging.Discard()
			return nil
		}
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		l, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		if err != nil {
			return err
		}
		appCfg, logger = cfg, l
		if used := viper.ConfigFileUsed(); used != "" {
			logger.WithField("path", used).Debug("using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./heicconv.yaml or ~/.config/heicconv/heicconv.yaml)")
	rootCmd.PersistentFlags().String("log-level", config.Defaults().Log.Level, "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", config.Defaults().Log.Format, "log format: text or json")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	config.Setup(viper.GetViper(), cfgFile)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
