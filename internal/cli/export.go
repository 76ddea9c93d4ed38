package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repairdesk/repair-service/internal/diagnostics"
	"github.com/repairdesk/repair-service/internal/export"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		output       string
		withFindings bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every report to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			var findings []diagnostics.Finding
			if withFindings {
				if findings, err = a.Diagnostics.Run(cmd.Context()); err != nil {
					return err
				}
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := export.Write(cmd.Context(), f, a.Reports, findings); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "reports.xlsx", "workbook path")
	cmd.Flags().BoolVar(&withFindings, "findings", true, "add a sheet of integrity findings")
	return cmd
}
