// Package resolve reconciles local export entities against the remote
// directory. Suggest lookups are classified by candidate count; only an
// unambiguous single candidate fills a remote id. Resolution fields are
// written at most once and never reset.
package resolve

import (
	"context"
	"sort"

	"github.com/roach88/regimport/internal/export"
	"github.com/roach88/regimport/internal/icpc"
)

// State classifies a directory lookup by candidate count.
type State int

const (
	// Unresolved: the lookup returned no candidate.
	Unresolved State = iota
	// Resolved: exactly one candidate; its id is usable automatically.
	Resolved
	// Ambiguous: two or more candidates. The page size caps the result,
	// so "exactly two" and "more than two" are indistinguishable; both
	// are treated as ambiguous and left unresolved.
	Ambiguous
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unresolved"
	}
}

// Classify maps a candidate count to a resolution state. The mapping is
// total and disjoint: 0, 1, and >=2 each map to exactly one state.
func Classify(candidates int) State {
	switch {
	case candidates == 0:
		return Unresolved
	case candidates == 1:
		return Resolved
	default:
		return Ambiguous
	}
}

// DefaultPageSize is the suggest page size. Two is enough to tell "one
// candidate" from "more than one"; raise it to see more of an ambiguous set.
const DefaultPageSize = 2

// suggestPage is the page requested from the suggest endpoints.
const suggestPage = 1

// Directory is the read-only lookup surface the resolver consumes.
type Directory interface {
	SuggestPersons(ctx context.Context, name string, page, size int) ([]icpc.Person, error)
	SuggestInstitutions(ctx context.Context, name string, page, size int) ([]icpc.Institution, error)
}

// Resolver fills remote ids on the local entity graph. It performs the
// read-only lookups only; it never mutates remote state.
type Resolver struct {
	dir      Directory
	pageSize int
}

// New creates a Resolver. A pageSize below 2 falls back to DefaultPageSize
// (a page of one could not distinguish resolved from ambiguous).
func New(dir Directory, pageSize int) *Resolver {
	if pageSize < 2 {
		pageSize = DefaultPageSize
	}
	return &Resolver{dir: dir, pageSize: pageSize}
}

// SiteMatch pairs a remote site with the matching local site, if any.
// CoachState reports the coach lookup for matched sites.
type SiteMatch struct {
	Remote     icpc.Site
	Local      *export.ContestSite
	CoachState State
}

// MatchSites matches the fetched remote site list against the local sites by
// exact name and resolves each matched site's coach through the person
// suggest lookup. It returns the matches sorted by remote site name and the
// local site names with no remote counterpart (reported, not fatal).
func (r *Resolver) MatchSites(ctx context.Context, remote []icpc.Site, locals map[string]*export.ContestSite) ([]SiteMatch, []string, error) {
	sorted := make([]icpc.Site, len(remote))
	copy(sorted, remote)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var matches []SiteMatch
	for _, site := range sorted {
		local, ok := locals[site.Name]
		if !ok {
			continue
		}
		if local.RemoteID == 0 {
			local.RemoteID = site.ID
		}

		coaches, err := r.dir.SuggestPersons(ctx, local.CoachName, suggestPage, r.pageSize)
		if err != nil {
			return nil, nil, err
		}
		state := Classify(len(coaches))
		if state == Resolved && local.CoachRemoteID == 0 {
			local.CoachRemoteID = coaches[0].ID
		}
		matches = append(matches, SiteMatch{Remote: site, Local: local, CoachState: state})
	}

	var missing []string
	for name, local := range locals {
		if local.RemoteID == 0 {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	return matches, missing, nil
}

// AffiliationResult reports one affiliation lookup.
type AffiliationResult struct {
	Affiliation *export.Affiliation
	State       State
}

// ResolveAffiliations looks up every distinct affiliation name once, in
// name order, and fills the remote id for uniquely matched names.
func (r *Resolver) ResolveAffiliations(ctx context.Context, affiliations map[string]*export.Affiliation) ([]AffiliationResult, error) {
	names := make([]string, 0, len(affiliations))
	for name := range affiliations {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]AffiliationResult, 0, len(names))
	for _, name := range names {
		affiliation := affiliations[name]
		candidates, err := r.dir.SuggestInstitutions(ctx, name, suggestPage, r.pageSize)
		if err != nil {
			return nil, err
		}
		state := Classify(len(candidates))
		if state == Resolved && affiliation.RemoteID == 0 {
			affiliation.RemoteID = candidates[0].ID
		}
		results = append(results, AffiliationResult{Affiliation: affiliation, State: state})
	}

	return results, nil
}
