package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command. Seeding also runs on every
// start; the command exists for databases managed without the API.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert default roles and statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			cat, err := a.Reference.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			summary := map[string]int{"roles": len(cat.Roles), "statuses": len(cat.Statuses)}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "roles: %d\nstatuses: %d\n", summary["roles"], summary["statuses"])
			return err
		},
	}
}
