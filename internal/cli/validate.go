package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/foodstand/internal/ledger"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	File   string `json:"file"`
	Orders int    `json:"orders,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r ValidationResult) renderText(st Styles) string {
	if !r.Valid {
		return st.Error.Render("✗ "+r.File+" is not a valid document") + "\n  " + r.Error
	}
	return st.Success.Render(fmt.Sprintf("✓ %s is a valid document (%d orders)", r.File, r.Orders))
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a document file against the schema",
		Long: `Check a JSON document, such as an export, against the document schema
without touching the remote ledger.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_ = formatter.Error(CodeNotFound, fmt.Sprintf("file not found: %s", path), nil)
			return WrapExitError(ExitCommandError, "file not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to read file", err)
	}

	formatter.VerboseLog("Read %d bytes from %s", len(data), path)

	snap, err := ledger.Decode(data)
	if err == nil && snap.Empty() {
		err = errors.New("document is empty")
	}
	if err != nil {
		result := ValidationResult{Valid: false, File: path, Error: err.Error()}
		if formatter.Format == "json" {
			_ = formatter.Error(CodeValidation, err.Error(), result)
		} else {
			_ = formatter.Success(result)
		}
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	return formatter.Success(ValidationResult{Valid: true, File: path, Orders: len(snap.Document.Orders)})
}
