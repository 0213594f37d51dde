// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pdiddy/heicconv/internal/history"
	"github.com/pdiddy/heicconv/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently finished conversions",
	Long: `History lists conversions recorded in the local history database, most
recent first. Recording is off unless history.enabled is set; only file
names, sizes, outcomes, and timestamps are stored.

Use --prune to delete records older than a duration (for example 720h).`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", history.DefaultLimit, "maximum number of records to show")
	historyCmd.Flags().Duration("prune", 0, "delete records older than this duration before listing")
	historyCmd.Flags().String("format", formatTable, "output format: table, json, or yaml")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	prune, _ := cmd.Flags().GetDuration("prune")
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	path, err := historyPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if !appCfg.History.Enabled {
			fmt.Fprintln(cmd.OutOrStdout(), "History is disabled. Set history.enabled: true to record conversions.")
			return nil
		}
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if prune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		logger.WithField("removed", n).Info("pruned history")
	}

	items, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if format != formatTable {
		results := make([]result, 0, len(items))
		for _, it := range items {
			results = append(results, resultFrom(it))
		}
		return render(cmd.OutOrStdout(), format, results)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	renderHistory(cmd.OutOrStdout(), items)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d completed, %d failed in total\n",
		counts[types.StatusCompleted], counts[types.StatusFailed])
	return nil
}

func renderHistory(w io.Writer, items []types.QueueItem) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Finished", "File", "Size", "Status", "Error"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, it := range items {
		table.Append([]string{
			it.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			it.Name,
			humanSize(it.SizeBytes),
			statusText(it.Status),
			it.ErrorMessage,
		})
	}
	table.Render()
}
