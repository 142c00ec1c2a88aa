// Package export reads the flat registration export and folds its rows into
// the entity graph consumed by the resolver and the importer: contest sites,
// affiliations, and teams with their contestants.
package export

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/unicode/norm"
)

// Required columns in the export header. The optional "Team Name ASCII"
// column carries a transliterated team name used as the creation fallback.
const (
	ColFirstName   = "Participant First Name"
	ColLastName    = "Participant Name"
	ColEmail       = "Participant E-Mail"
	ColTeamName    = "Team Name"
	ColContestSite = "Contestsite"
	ColAffiliation = "Affiliation Name"
	ColCoach       = "Contestsiteorganizer"
	ColASCIIName   = "Team Name ASCII"
)

// RequiredColumns lists the columns every export must carry.
var RequiredColumns = []string{
	ColFirstName,
	ColLastName,
	ColEmail,
	ColTeamName,
	ColContestSite,
	ColAffiliation,
	ColCoach,
}

// Participant is one export row. All fields are required and non-empty;
// ASCIITeamName is nil when the export has no "Team Name ASCII" column
// or the cell is empty. Participants are immutable once parsed.
type Participant struct {
	First           string
	Last            string
	Email           string
	TeamName        string
	AffiliationName string
	ContestSiteName string
	CoachName       string
	ASCIITeamName   *string
}

// ReadParticipants parses the CSV export into Participant records.
//
// The header must contain every required column, otherwise a SchemaError is
// returned before any row is read. A row with an empty required field yields
// a DataError; both abort the whole run. All field values are normalized to
// NFC so that lookups and payloads use one canonical representation.
func ReadParticipants(r io.Reader) ([]Participant, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &SchemaError{Column: col}
		}
	}
	asciiCol, hasASCII := index[ColASCIIName]

	var participants []Participant
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row++

		field := func(col string) string {
			i := index[col]
			if i >= len(record) {
				return ""
			}
			return norm.NFC.String(record[i])
		}

		p := Participant{
			First:           field(ColFirstName),
			Last:            field(ColLastName),
			Email:           field(ColEmail),
			TeamName:        field(ColTeamName),
			AffiliationName: field(ColAffiliation),
			ContestSiteName: field(ColContestSite),
			CoachName:       field(ColCoach),
		}
		for _, required := range []struct {
			col, val string
		}{
			{ColFirstName, p.First},
			{ColLastName, p.Last},
			{ColEmail, p.Email},
			{ColTeamName, p.TeamName},
			{ColAffiliation, p.AffiliationName},
			{ColContestSite, p.ContestSiteName},
			{ColCoach, p.CoachName},
		} {
			if required.val == "" {
				return nil, &DataError{Row: row, Column: required.col}
			}
		}

		if hasASCII && asciiCol < len(record) {
			if v := norm.NFC.String(record[asciiCol]); v != "" {
				p.ASCIITeamName = &v
			}
		}

		participants = append(participants, p)
	}

	return participants, nil
}
