package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/regimport/internal/journal"
)

// RunsOptions holds the flags for the runs command.
type RunsOptions struct {
	*RootOptions

	Journal string
}

// NewRunsCommand creates the runs command, which lists journalled runs.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "runs",
		Short:         "List journalled import runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal file to read")
	_ = cmd.MarkFlagRequired("journal")

	return cmd
}

func runRuns(cmd *cobra.Command, opts *RunsOptions) error {
	setupLogging(opts.Verbose)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	jnl, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening journal", err)
	}
	defer jnl.Close()

	runs, err := jnl.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "listing runs", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %8s  %7s  %7s  %7s  %7s  %s\n",
		"RUN", "CONTEST", "TEAMS+", "TEAMS-", "MEMB+", "MEMB-", "STATE")
	for _, r := range runs {
		state := "done"
		if r.Cancelled {
			state = "cancelled"
		}
		fmt.Fprintf(out, "%-36s  %8d  %7d  %7d  %7d  %7d  %s\n",
			r.ID, r.ContestID, r.TeamsCreated, r.TeamsSkipped, r.MembersAdded, r.MembersSkipped, state)
	}
	return nil
}
