// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/heicconv/internal/apperr"
	"github.com/pdiddy/heicconv/internal/discover"
	"github.com/pdiddy/heicconv/internal/validate"
	"github.com/pdiddy/heicconv/pkg/types"
)

// Statuses reported by the validate command.
const (
	statusValid   types.Status = "valid"
	statusInvalid types.Status = "invalid"
)

var validateCmd = &cobra.Command{
	Use:   "validate [paths...]",
	Short: "Check files without converting them",
	Long: `Validate runs the same checks convert runs before invoking the image
tool: the size limit, the file extension, and the HEIC/HEIF signature. No
image tool is needed. The command exits non-zero if any file is invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	validateCmd.Flags().String("format", formatTable, "output format: table, json, or yaml")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	recursive, _ := cmd.Flags().GetBool("recursive")
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	refs, err := discover.Expand(cmd.Context(), args, recursive)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return errors.New("no HEIC/HEIF files found")
	}

	results, invalid := validateAll(validate.New(appCfg.Conversion), refs)
	if err := render(cmd.OutOrStdout(), format, results); err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d file(s) invalid", invalid, len(results))
	}
	return nil
}

func validateAll(v *validate.Validator, refs []types.PathRef) ([]result, int) {
	results := make([]result, 0, len(refs))
	invalid := 0
	for _, ref := range refs {
		r := result{Name: ref.Path, SizeBytes: ref.Bytes, Status: statusValid}
		if err := v.Validate(ref); err != nil {
			invalid++
			r.Status = statusInvalid
			r.ErrorKind = apperr.KindOf(err)
			r.Error = apperr.UserMessage(err)
			logger.WithError(err).WithField("path", ref.Path).Debug("invalid")
		}
		results = append(results, r)
	}
	return results, invalid
}
