// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/heicconv/pkg/types"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// result is one line of command output.
type result struct {
	Name      string          `json:"name" yaml:"name"`
	SizeBytes int64           `json:"size_bytes" yaml:"size_bytes"`
	Status    types.Status    `json:"status" yaml:"status"`
	Output    string          `json:"output,omitempty" yaml:"output,omitempty"`
	ErrorKind types.ErrorKind `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
}

func resultFrom(item types.QueueItem) result {
	return result{
		Name:      item.Name,
		SizeBytes: item.SizeBytes,
		Status:    item.Status,
		ErrorKind: item.ErrorKind,
		Error:     item.ErrorMessage,
	}
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q: use table, json, or yaml", format)
}

// render writes results to w in the given format.
func render(w io.Writer, format string, results []result) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case formatYAML:
		data, err := yaml.Marshal(results)
		if err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	renderTable(w, results)
	return nil
}

func renderTable(w io.Writer, results []result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Size", "Status", "Output / Error"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, r := range results {
		detail := r.Output
		if r.Error != "" {
			detail = r.Error
		}
		table.Append([]string{r.Name, humanSize(r.SizeBytes), statusText(r.Status), detail})
	}
	table.Render()
}

func humanSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

func statusText(s types.Status) string {
	switch s {
	case types.StatusCompleted:
		return color.GreenString(string(s))
	case types.StatusFailed:
		return color.RedString(string(s))
	case types.StatusProcessing:
		return color.YellowString(string(s))
	}
	return string(s)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
