package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/foodstand/internal/ledger"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the shared document as JSON",
		Long: `Write the shared document in its wire form, the same JSON every client
reads and writes. The output can be checked with validate.

Example:
  foodstand export --output backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				v, err := s.engine.View(ctx)
				if err != nil {
					return s.fail(err)
				}
				data, err := ledger.MarshalCanonical(v.Document)
				if err != nil {
					return s.fail(err)
				}

				if output == "" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return err
				}
				if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
					return WrapExitError(ExitFailure, "failed to write export", err)
				}
				s.out.VerboseLog("wrote %d bytes to %s", len(data)+1, output)
				return s.out.Success(ExportResult{Path: output, Bytes: len(data) + 1})
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// ExportResult reports a written export file.
type ExportResult struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

func (r ExportResult) renderText(st Styles) string {
	return st.Success.Render(fmt.Sprintf("✓ exported %d bytes to %s", r.Bytes, r.Path))
}
