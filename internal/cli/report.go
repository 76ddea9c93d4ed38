package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/repairdesk/repair-service/internal/export"
	"github.com/repairdesk/repair-service/internal/reports"
)

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	names := make([]string, len(reports.Names))
	for i, n := range reports.Names {
		names[i] = string(n)
	}
	return &cobra.Command{
		Use:       "report <name>",
		Short:     "Print one report",
		Long:      "Print one report. Available: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := reports.Name(args[0])
			if !isReport(name) {
				return fmt.Errorf("unknown report %q: must be one of %v", args[0], names)
			}
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			result, err := a.Reports.Run(cmd.Context(), name)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			header, rows, err := export.Table(result)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, strings.ToUpper(strings.Join(header, "\t")))
			for _, row := range rows {
				cells := make([]string, len(row))
				for i, v := range row {
					cells[i] = fmt.Sprint(v)
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			return tw.Flush()
		},
	}
}

func isReport(name reports.Name) bool {
	for _, n := range reports.Names {
		if n == name {
			return true
		}
	}
	return false
}
