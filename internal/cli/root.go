package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/regimport/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Config  string
	Yes     bool
}

// NewRootCommand creates the root command for the regimport CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "regimport",
		Short: "Import contest registrations into icpc.global",
		Long: `regimport reads a flat registration export (CSV), reconciles its teams,
contestants, affiliations and contest sites against the icpc.global
directory, and creates the missing remote records while preserving the
team relationships.`,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", config.DefaultPath, "path to the config file")
	cmd.PersistentFlags().BoolVarP(&opts.Yes, "yes", "y", false, "answer yes to every confirmation (non-interactive)")

	// Add subcommands
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))

	return cmd
}

// setupLogging configures the default slog logger. Operator-facing progress
// lines go to stdout; the log is diagnostics only and stays on stderr.
func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
