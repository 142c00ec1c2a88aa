// Package importer is the reconciliation-and-import engine. It walks the
// grouped entity graph one team at a time: gate on resolved dependencies,
// create the team (with a single ASCII-name fallback on failure), then attach
// each contestant. Failures isolate to the current team or contestant; the
// batch always moves forward. The engine holds no durable state.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/regimport/internal/export"
	"github.com/roach88/regimport/internal/icpc"
	"github.com/roach88/regimport/internal/resolve"
)

// API is the remote surface the engine consumes. Only RegisterTeam,
// RegisterPerson and AddTeamMembers mutate remote state.
type API interface {
	SuggestPersons(ctx context.Context, name string, page, size int) ([]icpc.Person, error)
	RegisterTeam(ctx context.Context, reg icpc.TeamRegistration) (int64, error)
	RegisterPerson(ctx context.Context, reg icpc.PersonRegistration) (icpc.Person, error)
	AddTeamMembers(ctx context.Context, teamID int64, members []icpc.TeamMember) error
}

// Prompter asks the operator a yes/no question.
type Prompter interface {
	Confirm(message string, def bool) (bool, error)
}

// Options configures a run.
type Options struct {
	// PageSize is the person-suggest page size (see resolve.DefaultPageSize).
	PageSize int

	// AutoConfirm answers every confirmation with yes, so the ASCII
	// fallback retries without prompting.
	AutoConfirm bool
}

// TeamStatus is the terminal state of one team.
type TeamStatus string

const (
	// TeamCreated: the team exists remotely; contestants were attempted.
	TeamCreated TeamStatus = "created"
	// TeamSkippedIncomplete: a dependency id was unresolved; nothing attempted.
	TeamSkippedIncomplete TeamStatus = "skipped"
	// TeamCreateFailed: creation failed (after the fallback, if any).
	TeamCreateFailed TeamStatus = "failed"
)

// MemberStatus is the terminal state of one contestant.
type MemberStatus string

const (
	// MemberAdded: the contestant is attached to the team.
	MemberAdded MemberStatus = "added"
	// MemberRegisterFailed: the person did not exist and registration failed.
	MemberRegisterFailed MemberStatus = "failed A"
	// MemberAmbiguous: the person lookup returned more than one candidate.
	MemberAmbiguous MemberStatus = "failed B"
	// MemberAttachFailed: the member-add call failed.
	MemberAttachFailed MemberStatus = "failed C"
)

// MemberOutcome records one contestant attempt.
type MemberOutcome struct {
	First  string
	Last   string
	Email  string
	Status MemberStatus
}

// TeamOutcome records one team attempt.
type TeamOutcome struct {
	Name     string
	RemoteID int64
	Status   TeamStatus
	Retried  bool
	Members  []MemberOutcome
}

// Result is the terminal state of a run. A cancelled run still returns the
// outcomes accumulated so far; already-applied remote mutations stay applied.
type Result struct {
	TeamsCreated   int
	TeamsSkipped   int
	MembersAdded   int
	MembersSkipped int
	Cancelled      bool
	Teams          []TeamOutcome
}

// Importer drives one import run. It is single-threaded: one team, one
// contestant, one request at a time.
type Importer struct {
	api    API
	prompt Prompter
	out    io.Writer
	log    *slog.Logger
	opts   Options
}

// New creates an Importer writing operator progress lines to out.
func New(api API, prompt Prompter, out io.Writer, opts Options) *Importer {
	if opts.PageSize < 2 {
		opts.PageSize = resolve.DefaultPageSize
	}
	return &Importer{
		api:    api,
		prompt: prompt,
		out:    out,
		log:    slog.Default(),
		opts:   opts,
	}
}

// Run imports every team in the grouped graph, in team order. Non-200
// responses on the write calls downgrade to per-team or per-contestant skips;
// transport errors and prompt failures abort the run. Cancellation is
// observed between team and between contestant iterations and marks the
// returned Result instead of raising.
func (im *Importer) Run(ctx context.Context, g *export.Grouped) (*Result, error) {
	result := &Result{}

	for _, team := range g.Teams {
		if ctx.Err() != nil {
			result.Cancelled = true
			return result, nil
		}

		site := g.Sites[team.ContestSiteName]
		affiliation := g.Affiliations[team.AffiliationName]
		if site == nil || affiliation == nil ||
			site.RemoteID == 0 || site.CoachRemoteID == 0 || affiliation.RemoteID == 0 {
			fmt.Fprintf(im.out, "%s incomplete informations: SKIPPING\n", team.Name)
			result.TeamsSkipped++
			result.Teams = append(result.Teams, TeamOutcome{Name: team.Name, Status: TeamSkippedIncomplete})
			continue
		}

		outcome, err := im.importTeam(ctx, team, site, affiliation, result)
		result.Teams = append(result.Teams, outcome)
		if err != nil {
			return result, err
		}
		if result.Cancelled {
			return result, nil
		}
	}

	return result, nil
}

// importTeam creates one team and attaches its contestants. The returned
// outcome is always meaningful; a non-nil error aborts the whole run.
func (im *Importer) importTeam(ctx context.Context, team *export.Team, site *export.ContestSite, affiliation *export.Affiliation, result *Result) (TeamOutcome, error) {
	outcome := TeamOutcome{Name: team.Name}

	reg := icpc.TeamRegistration{
		InstitutionUnitID: affiliation.RemoteID,
		Name:              team.Name,
		SiteID:            site.RemoteID,
		StudentCoach:      false,
		TeamMembers: []icpc.CoachMember{
			{Role: icpc.RoleCoach, Person: icpc.PersonRef{ID: site.CoachRemoteID}},
		},
	}

	teamID, err := im.api.RegisterTeam(ctx, reg)
	if err != nil && icpc.IsAPIError(err) && team.ASCIIName != nil && *team.ASCIIName != team.Name {
		// The single deterministic fallback: one retry, one transformation.
		// Declining keeps the original failure and the team is skipped.
		retry := true
		if !im.opts.AutoConfirm {
			var confirmErr error
			retry, confirmErr = im.confirmRetry(team.Name, *team.ASCIIName)
			if confirmErr != nil {
				outcome.Status = TeamCreateFailed
				return outcome, confirmErr
			}
		}
		if retry {
			im.log.Debug("retrying team creation with ascii name", "team", team.Name, "ascii", *team.ASCIIName)
			outcome.Retried = true
			team.Name = *team.ASCIIName
			reg.Name = team.Name
			outcome.Name = team.Name
			teamID, err = im.api.RegisterTeam(ctx, reg)
		}
	}
	if err != nil {
		if !icpc.IsAPIError(err) {
			// Transport failures are not creation rejections; abort the run.
			outcome.Status = TeamCreateFailed
			return outcome, err
		}
		fmt.Fprintf(im.out, "%s failed (SKIPPING)\n", team.Name)
		outcome.Status = TeamCreateFailed
		result.TeamsSkipped++
		return outcome, nil
	}

	team.RemoteID = teamID
	outcome.RemoteID = teamID
	outcome.Status = TeamCreated
	result.TeamsCreated++
	fmt.Fprintf(im.out, "%s created (%d)\n", team.Name, teamID)

	for _, contestant := range team.Contestants {
		if ctx.Err() != nil {
			result.Cancelled = true
			return outcome, nil
		}
		member, err := im.attachContestant(ctx, team.RemoteID, contestant)
		outcome.Members = append(outcome.Members, member)
		if err != nil {
			return outcome, err
		}
		if member.Status == MemberAdded {
			result.MembersAdded++
		} else {
			result.MembersSkipped++
		}
	}

	return outcome, nil
}

// attachContestant resolves one contestant by e-mail, registering the person
// when the directory has no candidate, and attaches them to the team. Non-200
// responses on the write calls skip this contestant only; a failed lookup or
// a transport failure aborts the run.
func (im *Importer) attachContestant(ctx context.Context, teamID int64, contestant export.Participant) (MemberOutcome, error) {
	outcome := MemberOutcome{
		First: contestant.First,
		Last:  contestant.Last,
		Email: contestant.Email,
	}

	candidates, err := im.api.SuggestPersons(ctx, contestant.Email, 1, im.opts.PageSize)
	if err != nil {
		return outcome, err
	}

	var person icpc.Person
	switch resolve.Classify(len(candidates)) {
	case resolve.Unresolved:
		person, err = im.api.RegisterPerson(ctx, icpc.PersonRegistration{
			FirstName: contestant.First,
			LastName:  contestant.Last,
			Username:  contestant.Email,
		})
		if err != nil {
			if !icpc.IsAPIError(err) {
				return outcome, err
			}
			im.log.Debug("person registration rejected", "email", contestant.Email, "error", err)
			outcome.Status = MemberRegisterFailed
			fmt.Fprintf(im.out, "  %s %s failed A (SKIPPING)\n", contestant.First, contestant.Last)
			return outcome, nil
		}
	case resolve.Resolved:
		person = candidates[0]
	case resolve.Ambiguous:
		// Ambiguous identity is never auto-resolved.
		outcome.Status = MemberAmbiguous
		fmt.Fprintf(im.out, "  %s %s failed B (SKIPPING)\n", contestant.First, contestant.Last)
		return outcome, nil
	}

	members := []icpc.TeamMember{{
		Person: icpc.MemberPerson{
			FirstName: person.FirstName,
			ID:        person.ID,
			LastName:  person.LastName,
			Username:  person.Username,
		},
		Role: icpc.RoleContestant,
	}}
	if err := im.api.AddTeamMembers(ctx, teamID, members); err != nil {
		if !icpc.IsAPIError(err) {
			return outcome, err
		}
		outcome.Status = MemberAttachFailed
		fmt.Fprintf(im.out, "  %s %s failed C (SKIPPING)\n", contestant.First, contestant.Last)
		return outcome, nil
	}

	outcome.Status = MemberAdded
	fmt.Fprintf(im.out, "  %s %s added\n", contestant.First, contestant.Last)
	return outcome, nil
}

func (im *Importer) confirmRetry(name, ascii string) (bool, error) {
	return im.prompt.Confirm(fmt.Sprintf("%s failed, retry as %s?", name, ascii), true)
}
