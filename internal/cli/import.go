package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/regimport/internal/importer"
	"github.com/roach88/regimport/internal/journal"
)

// ImportOptions holds the flags for the import command.
type ImportOptions struct {
	*RootOptions

	PageSize int
	Year     string
	Journal  string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <export.csv>",
		Short: "Create teams from a registration export",
		Long: `Import reads a registration export, resolves its contest sites and
affiliations against icpc.global, and creates the teams that are fully
resolved. Teams and contestants that fail are skipped individually; the
rest of the run continues.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "suggest lookup page size (overrides config)")
	cmd.Flags().StringVar(&opts.Year, "year", "", "season year (skips the prompt)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record run outcomes in this SQLite file")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, csvPath string) error {
	setupLogging(opts.Verbose)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession(ctx, cmd, sessionOptions{
		RootOptions: opts.RootOptions,
		PageSize:    opts.PageSize,
		Year:        opts.Year,
		Gates:       true,
	}, csvPath)
	if err != nil {
		return err
	}

	ok, err := s.prompt.Confirm("Continue with import?", true)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading confirmation", err)
	}
	if !ok {
		return NewExitError(ExitCommandError, "aborted")
	}

	var jnl *journal.Journal
	var runID string
	if opts.Journal != "" {
		jnl, err = journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening journal", err)
		}
		defer jnl.Close()

		runID = uuid.NewString()
		if err := jnl.BeginRun(ctx, runID, s.contest.ID, time.Now()); err != nil {
			return WrapExitError(ExitCommandError, "recording run", err)
		}
		slog.Debug("journalling run", "run_id", runID, "path", opts.Journal)
	}

	im := importer.New(s.client, s.prompt, s.out, importer.Options{
		PageSize:    s.cfg.PageSize,
		AutoConfirm: opts.Yes,
	})
	result, runErr := im.Run(ctx, s.grouped)

	if jnl != nil && result != nil {
		if err := jnl.FinishRun(ctx, runID, result, time.Now()); err != nil {
			slog.Warn("could not record run result", "run_id", runID, "error", err)
		}
	}
	if runErr != nil {
		return WrapExitError(ExitCommandError, "import failed", runErr)
	}

	fmt.Fprintf(s.out, "\n%d teams created, %d skipped; %d contestants added, %d skipped\n",
		result.TeamsCreated, result.TeamsSkipped, result.MembersAdded, result.MembersSkipped)

	if result.Cancelled {
		return NewExitError(ExitCommandError, "aborted")
	}
	if result.TeamsSkipped > 0 || result.MembersSkipped > 0 {
		return NewExitError(ExitFailure, "completed with skips")
	}
	return nil
}
