package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rajasatyajit/EcoScan/config"
	"github.com/rajasatyajit/EcoScan/internal/app"
	"github.com/rajasatyajit/EcoScan/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	info    app.BuildInfo
	config  *config.Config
	appOpts []app.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the EcoScan CLI.
func NewRootCommand(info app.BuildInfo, appOpts ...app.Option) *cobra.Command {
	opts := &RootOptions{info: info, appOpts: appOpts}

	cmd := &cobra.Command{
		Use:           "ecoscan",
		Short:         "EcoScan - product sustainability scanner",
		Long:          "Resolve scanned product identifiers into sustainability profiles and track your scan history, points and streaks.",
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.config = cfg

			// Diagnostics go to stderr so JSON output stays parseable
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			logger.InitWithWriter(cmd.ErrOrStderr(), level, "text")
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))

	return cmd
}

// openApp wires the application from the loaded configuration
func (o *RootOptions) openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, o.config, o.appOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize", err)
	}
	return a, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
