package models

import "database/sql"

// TeamMetric is one row of the published dataset
type TeamMetric struct {
	Team               string        `db:"team_number" json:"team"`
	Elo                float64       `db:"elo" json:"elo"`
	StrengthOfSchedule float64       `db:"strength_of_schedule" json:"strength_of_schedule"`
	DriverSkills       sql.NullInt32 `db:"driver_skills" json:"-"`
	ProgrammingSkills  sql.NullInt32 `db:"programming_skills" json:"-"`

	// Matches is the number of rated matches the team played
	Matches int `db:"matches" json:"matches"`
}

// HasMatches returns true if the team was rated at least once
func (m *TeamMetric) HasMatches() bool {
	return m.Matches > 0
}
