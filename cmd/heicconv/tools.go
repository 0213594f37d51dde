// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pdiddy/heicconv/internal/imagetool"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the image tools heicconv can use",
	Long: `Tools lists the supported conversion backends in preference order,
whether each is installed, and which one convert would use with the current
conversion.tool setting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		selected := ""
		if t, err := imagetool.Select(appCfg.Conversion.Tool); err == nil {
			selected = t.Name()
		} else {
			logger.WithError(err).Debug("no tool selected")
		}
		renderTools(cmd.OutOrStdout(), imagetool.All(), selected)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func renderTools(w io.Writer, tools []imagetool.Tool, selected string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Tool", "Installed", "Selected"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, t := range tools {
		installed, mark := "no", ""
		if t.Available() {
			installed = "yes"
		}
		if t.Name() == selected {
			mark = "*"
		}
		table.Append([]string{t.Name(), installed, mark})
	}
	table.Render()
}
