// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rxverify/rxverify-mcp/internal/tool"
)

// ErrNeedsReview is returned by extract --fail-on-review when a finding is an error.
var ErrNeedsReview = errors.New("prescription needs review")

func newExtractCommand(a *app) *cobra.Command {
	var (
		format       string
		sourceID     string
		failOnReview bool
	)
	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Extract structured fields from an OCR payload",
		Long: "Reads OCR output (plain text, a Google Vision JSON response or tesseract TSV)\n" +
			"from a file, or from stdin when the argument is '-' or omitted, and prints the\n" +
			"extraction result as JSON.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				content []byte
				err     error
			)
			if len(args) == 0 || args[0] == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(args[0])
				if sourceID == "" {
					sourceID = filepath.Base(args[0])
				}
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			rt, err := a.buildRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			out, err := rt.service.Extract(cmd.Context(), tool.InputExtractPrescription{
				Content:  string(content),
				Format:   format,
				SourceID: sourceID,
			})
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if failOnReview && out.NeedsReview {
				return ErrNeedsReview
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format (text, vision, tesseract-tsv); detected when omitted")
	cmd.Flags().StringVar(&sourceID, "source-id", "", "identifier recorded in logs (defaults to the file name)")
	cmd.Flags().BoolVar(&failOnReview, "fail-on-review", false, "exit non-zero when the result needs review")
	return cmd
}

func newValidateMedicineCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-medicine NAME",
		Short: "Check a medicine name against the known-medicine list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.buildRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			out, err := rt.service.ValidateMedicine(cmd.Context(), tool.InputValidateMedicine{MedicineName: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
