package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// ResolveOptions holds the flags for the resolve command.
type ResolveOptions struct {
	*RootOptions

	PageSize int
	Year     string
}

// NewResolveCommand creates the resolve command, a dry run that stops after
// the site and affiliation reports without creating anything remotely.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <export.csv>",
		Short: "Report how an export resolves, without importing",
		Long: `Resolve runs the lookup half of an import: it reads the export,
matches its contest sites and coaches against the selected contest and
looks up every affiliation, then prints the reports and exits. Nothing
is created on icpc.global.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "suggest lookup page size (overrides config)")
	cmd.Flags().StringVar(&opts.Year, "year", "", "season year (skips the prompt)")

	return cmd
}

func runResolve(cmd *cobra.Command, opts *ResolveOptions, csvPath string) error {
	setupLogging(opts.Verbose)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := newSession(ctx, cmd, sessionOptions{
		RootOptions: opts.RootOptions,
		PageSize:    opts.PageSize,
		Year:        opts.Year,
	}, csvPath)
	return err
}
