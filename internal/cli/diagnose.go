package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ErrFindings is returned by diagnose --fail-on-findings when drift exists.
var ErrFindings = errors.New("integrity findings present")

// NewDiagnoseCommand creates the diagnose command.
func NewDiagnoseCommand(rootOpts *RootOptions) *cobra.Command {
	var failOnFindings bool
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Report integrity drift in committed data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			findings, err := a.Diagnostics.Run(cmd.Context())
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				err = writeJSON(cmd.OutOrStdout(), findings)
			} else {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CHECK\tENTITY\tKEY\tROWS")
				for _, f := range findings {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", f.Check, f.Entity, f.Key, f.RowIDs)
				}
				err = tw.Flush()
			}
			if err != nil {
				return err
			}
			if failOnFindings && len(findings) > 0 {
				return fmt.Errorf("%w: %d", ErrFindings, len(findings))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnFindings, "fail-on-findings", false, "exit non-zero when any finding is reported")
	return cmd
}
