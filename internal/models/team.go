package models

import "strings"

// Team represents a registered team for the season
type Team struct {
	ID           int    `db:"id"`
	Number       string `db:"number"` // League-assigned identity, e.g. "SJTU1"
	TeamName     string `db:"team_name"`
	Organization string `db:"organization"`
}

// TeamInput is the team object returned by the teams endpoint
type TeamInput struct {
	ID           int    `json:"id"`
	Number       string `json:"number"`
	TeamName     string `json:"team_name"`
	Organization string `json:"organization"`
}

// ToTeam converts TeamInput (from API) to Team model
func (ti *TeamInput) ToTeam() *Team {
	return &Team{
		ID:           ti.ID,
		Number:       strings.TrimSpace(ti.Number),
		TeamName:     ti.TeamName,
		Organization: ti.Organization,
	}
}

// TeamRef is the abbreviated team object embedded in matches and skills.
// Depending on the endpoint the team number is carried in "name" or "number".
type TeamRef struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Identity returns the team number, falling back to the name field
func (r TeamRef) Identity() string {
	if n := strings.TrimSpace(r.Number); n != "" {
		return n
	}
	return strings.TrimSpace(r.Name)
}
