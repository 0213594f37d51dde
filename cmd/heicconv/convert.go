// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/heicconv/internal/apperr"
	"github.com/pdiddy/heicconv/internal/config"
	"github.com/pdiddy/heicconv/internal/convert"
	"github.com/pdiddy/heicconv/internal/discover"
	"github.com/pdiddy/heicconv/internal/history"
	"github.com/pdiddy/heicconv/internal/imagetool"
	"github.com/pdiddy/heicconv/internal/queue"
	"github.com/pdiddy/heicconv/internal/tempfile"
	"github.com/pdiddy/heicconv/internal/validate"
	"github.com/pdiddy/heicconv/pkg/types"
)

// shutdownTimeout bounds how long running conversions may take to finish
// after the batch is done or interrupted.
const shutdownTimeout = 10 * time.Second

var convertCmd = &cobra.Command{
	Use:   "convert [paths...|-]",
	Short: "Convert HEIC/HEIF files to JPEG",
	Long: `Convert validates each input and converts it to JPEG with the configured
image tool. Directories contribute the .heic and .heif files inside them
(--recursive descends into subdirectories). Use "-" to read one image from
standard input; --stdin-name gives it a file name.

Converted files are written to --out-dir as <name>.jpg. Existing files are
left alone unless --overwrite is set. A failed file does not stop the others;
the command exits non-zero if any file failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	convertCmd.Flags().StringP("out-dir", "o", ".", "directory for converted JPEG files")
	convertCmd.Flags().Bool("overwrite", false, "replace existing output files")
	convertCmd.Flags().String("stdin-name", "stdin.heic", "file name for input read from standard input")
	convertCmd.Flags().String("format", formatTable, "output format: table, json, or yaml")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	recursive, _ := cmd.Flags().GetBool("recursive")
	outDir, _ := cmd.Flags().GetString("out-dir")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	stdinName, _ := cmd.Flags().GetString("stdin-name")
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refs, err := collectInputs(ctx, cmd.InOrStdin(), args, recursive, stdinName)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return errors.New("no HEIC/HEIF files found")
	}

	tool, err := imagetool.Select(appCfg.Conversion.Tool)
	if err != nil {
		return err
	}
	logger.WithField("tool", tool.Name()).Debug("selected image tool")

	temps, err := tempfile.NewManager(appCfg.Storage.TempDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := temps.Close(); err != nil {
			logger.WithError(err).Warn("removing scratch directory failed")
		}
	}()
	if appCfg.Storage.CleanupTempFiles {
		retention := time.Duration(appCfg.Storage.TempFileRetentionHours) * time.Hour
		if _, err := tempfile.Sweep(filepath.Dir(temps.Dir()), retention, temps.Dir(), logger); err != nil {
			logger.WithError(err).Warn("sweeping stale scratch directories failed")
		}
	}

	opts := queue.Options{
		MaxConcurrent: appCfg.Queue.MaxConcurrentConversions,
		Log:           logger,
	}
	if isTerminal(os.Stderr) {
		opts.OnUpdate = printProgress(os.Stderr)
	}
	if store := openHistory(); store != nil {
		defer store.Close()
		opts.Recorder = store
	}

	q := queue.New(
		validate.New(appCfg.Conversion),
		convert.NewInvoker(tool, appCfg.Conversion, temps.Dir(), logger),
		temps,
		opts,
	)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		q.Shutdown(sctx)
	}()

	for _, ref := range refs {
		if _, err := q.Submit(ref); err != nil {
			return err
		}
	}
	q.StartAll()
	if err := q.WaitAll(ctx); err != nil {
		logger.Warn("interrupted, stopping conversions")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		q.Shutdown(sctx)
		cancel()
		return err
	}

	s := queue.Summarize(q.Snapshot())
	logger.WithFields(log.Fields{"completed": s.Completed, "failed": s.Failed}).Info("batch finished")

	results := saveAll(q, outDir, overwrite)
	if err := render(cmd.OutOrStdout(), format, results); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Status != types.StatusCompleted {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(results))
	}
	return nil
}

// collectInputs expands path arguments and reads "-" from stdin.
func collectInputs(ctx context.Context, stdin io.Reader, args []string, recursive bool, stdinName string) ([]types.FileRef, error) {
	var refs []types.FileRef
	var paths []string
	readStdin := false
	for _, arg := range args {
		if arg == "-" {
			readStdin = true
			continue
		}
		paths = append(paths, arg)
	}

	if readStdin {
		content, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading standard input: %w", err)
		}
		refs = append(refs, types.BytesRef{Content: content, Name: stdinName})
	}

	found, err := discover.Expand(ctx, paths, recursive)
	if err != nil {
		return nil, err
	}
	for _, ref := range found {
		refs = append(refs, ref)
	}
	return refs, nil
}

// saveAll copies every completed output into outDir and returns one result
// per item in submission order. A failed save is reported on the item.
func saveAll(q *queue.Queue, outDir string, overwrite bool) []result {
	taken := make(map[string]bool)
	var results []result
	for _, item := range q.Snapshot() {
		r := resultFrom(item)
		if item.Status == types.StatusCompleted {
			dest := outputPath(outDir, item.Name, taken)
			if err := q.Save(item.ID, dest, overwrite); err != nil {
				logger.WithError(err).WithField("item", item.ID).Warn("saving output failed")
				r.Status = types.StatusFailed
				r.ErrorKind = apperr.KindOf(err)
				r.Error = saveMessage(err, dest)
			} else {
				r.Output = dest
			}
		}
		results = append(results, r)
	}
	return results
}

func saveMessage(err error, dest string) string {
	if errors.Is(err, os.ErrExist) {
		return fmt.Sprintf("%s already exists (use --overwrite to replace it)", dest)
	}
	return apperr.UserMessage(err)
}

// printProgress reports each finished item on w as it happens.
func printProgress(w io.Writer) func(types.QueueItem) {
	return func(item types.QueueItem) {
		switch item.Status {
		case types.StatusCompleted:
			fmt.Fprintf(w, "  %s %s\n", color.GreenString("converted"), item.Name)
		case types.StatusFailed:
			fmt.Fprintf(w, "  %s %s: %s\n", color.RedString("failed"), item.Name, item.ErrorMessage)
		}
	}
}

// openHistory opens the history store when it is enabled. Failing to open
// it is logged and conversion proceeds without history.
func openHistory() *history.Store {
	if !appCfg.History.Enabled {
		return nil
	}
	path, err := historyPath()
	if err != nil {
		logger.WithError(err).Warn("history disabled")
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("history disabled")
		return nil
	}
	return store
}

func historyPath() (string, error) {
	if appCfg.History.Path != "" {
		return appCfg.History.Path, nil
	}
	return config.DefaultHistoryPath()
}
