package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repairdesk/repair-service/internal/legacyimport"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	SkipPartSplit bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{}
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Load the legacy CSV export",
		Long: `Load inputDataUsers.csv, inputDataRequests.csv and inputDataComments.csv
from dir. Rows are written without validation; run diagnose afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			res, err := a.Importer.Run(cmd.Context(), legacyimport.Options{
				Dir:           args[0],
				SkipPartSplit: opts.SkipPartSplit,
				BcryptCost:    a.Config.Auth.BcryptCost,
			})
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "users: %d\nrequests: %d\ncomments: %d\npart links: %d\nskipped rows: %d\n",
				res.Users, res.Requests, res.Comments, res.PartLinks, res.SkippedRow)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.SkipPartSplit, "no-split-parts", false, "keep repair parts as legacy text only")
	return cmd
}
