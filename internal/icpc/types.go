package icpc

// Contest is one entry of the contest tree listing for a season.
type Contest struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Site is one contest site of a contest.
type Site struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Person is a directory person as returned by the suggest lookup and by
// person registration. Only the fields needed for member payloads are kept.
type Person struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
}

// Institution is a directory institution unit (an affiliation).
type Institution struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TeamRegistration is the team creation payload for the customcoach endpoint.
// The coach is attached at creation time; contestants are added afterwards.
type TeamRegistration struct {
	InstitutionUnitID int64         `json:"institutionUnitId"`
	Name              string        `json:"name"`
	SiteID            int64         `json:"siteId"`
	StudentCoach      bool          `json:"studentCoach"`
	TeamMembers       []CoachMember `json:"teamMembers"`
}

// CoachMember names the coach inside a TeamRegistration by directory id.
type CoachMember struct {
	Role   string    `json:"role"`
	Person PersonRef `json:"person"`
}

// PersonRef references a directory person by id.
type PersonRef struct {
	ID int64 `json:"id"`
}

// PersonRegistration is the register-via-suggest payload for a person that
// does not exist in the directory yet. Sex and Title are sent as null.
type PersonRegistration struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Sex       *string `json:"sex"`
	Title     *string `json:"title"`
	Username  string  `json:"username"`
}

// TeamMember is one entry of the member-add payload.
type TeamMember struct {
	BadgeRole       *string      `json:"badgeRole"`
	CertificateRole *string      `json:"certificateRole"`
	Person          MemberPerson `json:"person"`
	Role            string       `json:"role"`
}

// MemberPerson is the person block of a member-add entry.
type MemberPerson struct {
	FirstName string `json:"firstName"`
	ID        int64  `json:"id"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
}

// RoleCoach and RoleContestant are the member roles used by the importer.
const (
	RoleCoach      = "COACH"
	RoleContestant = "CONTESTANT"
)
