// Package cli implements repairctl, the operator command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repairdesk/repair-service/internal/app"
	"github.com/repairdesk/repair-service/internal/config"
	"github.com/repairdesk/repair-service/internal/legacyimport"
	"github.com/repairdesk/repair-service/internal/observability"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	ImportDir string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the repairctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "repairctl",
		Short: "Repair desk operator tool",
		Long:  "Serve the repair desk API, load legacy data, audit integrity and export reports.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at the configured level instead of warn")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ImportDir, "import-dir", "", "load legacy CSV files from this directory before running")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewDiagnoseCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openApp loads configuration and wires the service. With --import-dir the
// legacy files are loaded first, which is how the memory store gets data.
func openApp(ctx context.Context, opts *RootOptions) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logCfg := cfg.Logger
	if !opts.Verbose {
		logCfg.Level = "warn"
	}
	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if opts.ImportDir != "" {
		if _, err := a.Importer.Run(ctx, legacyimport.Options{Dir: opts.ImportDir, BcryptCost: cfg.Auth.BcryptCost}); err != nil {
			a.Close()
			return nil, fmt.Errorf("import %s: %w", opts.ImportDir, err)
		}
	}
	return a, nil
}

func closeApp(a *app.App) {
	a.Close()
	_ = a.Logger.Sync()
}
