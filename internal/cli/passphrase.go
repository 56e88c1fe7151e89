package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/foodstand/internal/config"
)

// NewHashPassphraseCommand creates the hash-passphrase command.
func NewHashPassphraseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-passphrase [passphrase]",
		Short: "Print a bcrypt hash for kitchen.passphrase",
		Long: `Hash a kitchen passphrase for the config file. Without an argument the
passphrase is read from the first line of stdin.

Example:
  echo 'open sesame' | foodstand hash-passphrase`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plain := ""
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return NewExitError(ExitCommandError, "no passphrase given")
				}
				plain = strings.TrimRight(line, "\r\n")
			}

			hash, err := config.HashPassphrase(plain)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to hash passphrase", err)
			}

			formatter := newFormatter(rootOpts, cmd)
			if formatter.Format == "json" {
				return formatter.Success(map[string]string{"hash": hash})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
