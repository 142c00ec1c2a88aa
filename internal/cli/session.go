package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/regimport/internal/config"
	"github.com/roach88/regimport/internal/export"
	"github.com/roach88/regimport/internal/icpc"
	"github.com/roach88/regimport/internal/resolve"
)

// session carries the state shared by the import and resolve commands:
// everything from reading the export up to the resolved entity graph.
type session struct {
	cfg     *config.Config
	prompt  *Prompt
	out     io.Writer
	grouped *export.Grouped
	client  *icpc.Client
	contest icpc.Contest
}

type sessionOptions struct {
	*RootOptions

	// PageSize overrides the configured suggest page size when > 0.
	PageSize int
	// Year skips the season prompt when set.
	Year string
	// Gates enables the interactive continue-confirmations between the
	// reporting stages. The read-only resolve command runs without them.
	Gates bool
}

// newSession runs the shared front half of the pipeline: configuration,
// credentials, export parsing, authentication, contest selection and
// site/affiliation resolution, printing the reports along the way.
func newSession(ctx context.Context, cmd *cobra.Command, opts sessionOptions, csvPath string) (*session, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading configuration", err)
	}
	if opts.PageSize > 0 {
		cfg.PageSize = opts.PageSize
	}

	out := cmd.OutOrStdout()
	prompt := NewPrompt(cmd.InOrStdin(), out)
	prompt.AssumeYes = opts.Yes

	username, password, err := gatherCredentials(cfg, prompt, opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "reading credentials", err)
	}

	grouped, err := readExport(csvPath)
	if err != nil {
		return nil, err
	}
	for _, warning := range grouped.Conflicts {
		slog.Warn("inconsistent export row", "detail", warning)
	}

	fmt.Fprint(out, "Accessing icpc.global...")
	auth := icpc.NewAuthenticator(cfg.AuthEndpoint, cfg.AuthClientID)
	token, err := auth.Authenticate(ctx, username, password)
	if err != nil {
		fmt.Fprintln(out)
		return nil, WrapExitError(ExitCommandError, "authentication failed", err)
	}
	fmt.Fprintln(out, " authenticated!")

	client := icpc.NewClient(cfg.BaseURL, token)

	contest, err := selectContest(ctx, client, prompt, opts.Year)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Using contest %s (%d)\n", contest.Label, contest.ID)

	sites, err := client.Sites(ctx, contest.ID)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "fetching contest sites", err)
	}

	resolver := resolve.New(client, cfg.PageSize)

	matches, missing, err := resolver.MatchSites(ctx, sites, grouped.Sites)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "resolving contest sites", err)
	}
	printSiteReport(out, matches, missing)

	if opts.Gates {
		ok, err := prompt.Confirm("Continue with affiliations?", true)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "reading confirmation", err)
		}
		if !ok {
			return nil, NewExitError(ExitCommandError, "aborted")
		}
	}

	affiliations, err := resolver.ResolveAffiliations(ctx, grouped.Affiliations)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "resolving affiliations", err)
	}
	printAffiliationReport(out, affiliations)

	return &session{
		cfg:     cfg,
		prompt:  prompt,
		out:     out,
		grouped: grouped,
		client:  client,
		contest: contest,
	}, nil
}

// gatherCredentials returns the icpc.global login, prompting for anything
// the config does not supply. Stored credentials are echoed back so the
// transcript shows which account the run used.
func gatherCredentials(cfg *config.Config, prompt *Prompt, configPath string) (string, string, error) {
	if cfg.Username != "" && cfg.Password != "" {
		prompt.Echo("Login Name?", cfg.Username)
		prompt.Echo("Login password?", strings.Repeat("*", len(cfg.Password)))
		return cfg.Username, cfg.Password, nil
	}

	username, err := prompt.Text("Login Name?", cfg.Username)
	if err != nil {
		return "", "", err
	}
	password, err := prompt.Text("Login password?", "")
	if err != nil {
		return "", "", err
	}

	store, err := prompt.Confirm(fmt.Sprintf("Store credentials in %s?", configPath), false)
	if err != nil {
		return "", "", err
	}
	if store {
		if err := config.StoreCredentials(configPath, username, password); err != nil {
			slog.Warn("could not store credentials", "path", configPath, "error", err)
		}
	}
	return username, password, nil
}

func readExport(csvPath string) (*export.Grouped, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening export", err)
	}
	defer f.Close()

	participants, err := export.ReadParticipants(f)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "reading export", err)
	}
	return export.Group(participants), nil
}

// selectContest picks the target contest for the guessed (or given) season
// year. A single hit is used directly; multiple hits go through a menu.
func selectContest(ctx context.Context, client *icpc.Client, prompt *Prompt, year string) (icpc.Contest, error) {
	if year == "" {
		var err error
		year, err = prompt.Text("Year?", seasonYear(time.Now()))
		if err != nil {
			return icpc.Contest{}, WrapExitError(ExitCommandError, "reading year", err)
		}
	}

	contests, err := client.Contests(ctx, year)
	if err != nil {
		return icpc.Contest{}, WrapExitError(ExitCommandError, "fetching contests", err)
	}

	switch len(contests) {
	case 0:
		return icpc.Contest{}, NewExitError(ExitCommandError, fmt.Sprintf("no contests found for %s", year))
	case 1:
		return contests[0], nil
	}

	labels := make([]string, len(contests))
	for i, c := range contests {
		labels[i] = c.Label
	}
	idx, err := prompt.Select("Which contest?", labels)
	if err != nil {
		return icpc.Contest{}, WrapExitError(ExitCommandError, "selecting contest", err)
	}
	return contests[idx], nil
}

// seasonYear guesses the season a registration export belongs to. Contests
// run in spring for a season labelled by the following year, so anything
// after roughly late March already counts towards the next season.
func seasonYear(now time.Time) string {
	return strconv.Itoa(now.AddDate(0, 0, 275).Year())
}

func printSiteReport(out io.Writer, matches []resolve.SiteMatch, missing []string) {
	fmt.Fprintln(out, "! Found following sites with teams:")
	for _, m := range matches {
		coachID := "???"
		if m.Local.CoachRemoteID != 0 {
			coachID = strconv.FormatInt(m.Local.CoachRemoteID, 10)
		}
		fmt.Fprintf(out, "  %6d: %-20s | %7s: %s\n", m.Remote.ID, m.Remote.Name, coachID, m.Local.CoachName)
	}
	for _, name := range missing {
		fmt.Fprintf(out, "Missing contestsite for %s\n", name)
	}
}

func printAffiliationReport(out io.Writer, results []resolve.AffiliationResult) {
	fmt.Fprintln(out, "! Found following affiliations with teams:")
	for _, r := range results {
		id := "???"
		if r.Affiliation.RemoteID != 0 {
			id = strconv.FormatInt(r.Affiliation.RemoteID, 10)
		}
		fmt.Fprintf(out, "  %6s: %-20s\n", id, r.Affiliation.Name)
	}
}
