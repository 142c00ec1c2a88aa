package export

import "fmt"

// ContestSite is one distinct site name from the export. CoachName comes from
// the first row naming the site. RemoteID and CoachRemoteID are zero until the
// resolver fills them; they are written at most once and never reset.
type ContestSite struct {
	Name          string
	CoachName     string
	CoachRemoteID int64
	RemoteID      int64
}

// Affiliation is one distinct affiliation name from the export.
type Affiliation struct {
	Name     string
	RemoteID int64
}

// Team groups the contestants sharing a team name, in row order. ASCIIName,
// ContestSiteName and AffiliationName come from the team's first row; a later
// row that disagrees is kept as a contestant but flagged (see Grouped.Conflicts).
type Team struct {
	Name            string
	ASCIIName       *string
	ContestSiteName string
	AffiliationName string
	Contestants     []Participant
	RemoteID        int64
}

// Grouped is the deduplicated entity graph built from the export rows.
type Grouped struct {
	// Sites and Affiliations are keyed by their export name.
	Sites        map[string]*ContestSite
	Affiliations map[string]*Affiliation

	// Teams preserves first-appearance order from the export.
	Teams []*Team

	// Conflicts describes rows whose site or affiliation disagreed with the
	// first row of their team. The first-seen value wins; these are warnings,
	// not errors.
	Conflicts []string
}

// Group folds participants into the entity graph. It is a pure fold: no
// network access, deterministic for a given row order.
func Group(participants []Participant) *Grouped {
	g := &Grouped{
		Sites:        make(map[string]*ContestSite),
		Affiliations: make(map[string]*Affiliation),
	}
	byName := make(map[string]*Team)

	for _, p := range participants {
		if _, ok := g.Sites[p.ContestSiteName]; !ok {
			g.Sites[p.ContestSiteName] = &ContestSite{
				Name:      p.ContestSiteName,
				CoachName: p.CoachName,
			}
		}
		if _, ok := g.Affiliations[p.AffiliationName]; !ok {
			g.Affiliations[p.AffiliationName] = &Affiliation{Name: p.AffiliationName}
		}

		team, ok := byName[p.TeamName]
		if !ok {
			team = &Team{
				Name:            p.TeamName,
				ASCIIName:       p.ASCIITeamName,
				ContestSiteName: p.ContestSiteName,
				AffiliationName: p.AffiliationName,
			}
			byName[p.TeamName] = team
			g.Teams = append(g.Teams, team)
		} else {
			if p.ContestSiteName != team.ContestSiteName {
				g.Conflicts = append(g.Conflicts, fmt.Sprintf(
					"team %q: contestant %s lists site %q, keeping first-seen %q",
					team.Name, p.Email, p.ContestSiteName, team.ContestSiteName))
			}
			if p.AffiliationName != team.AffiliationName {
				g.Conflicts = append(g.Conflicts, fmt.Sprintf(
					"team %q: contestant %s lists affiliation %q, keeping first-seen %q",
					team.Name, p.Email, p.AffiliationName, team.AffiliationName))
			}
		}
		team.Contestants = append(team.Contestants, p)
	}

	return g
}
