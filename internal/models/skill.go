package models

import "strings"

// SkillType is a skills challenge category
type SkillType string

const (
	SkillDriver      SkillType = "driver"
	SkillProgramming SkillType = "programming"
)

// SkillAttempt is one team's skills record at an event
type SkillAttempt struct {
	TeamNumber string
	EventID    int
	Type       SkillType
	Score      int
	Attempts   int
}

// IsQualifying returns true if the record is a submitted run of a rated category
func (a *SkillAttempt) IsQualifying() bool {
	if a.TeamNumber == "" || a.Attempts <= 0 {
		return false
	}
	return a.Type == SkillDriver || a.Type == SkillProgramming
}

// SkillInput is the skills object returned by the event skills endpoint
type SkillInput struct {
	ID       int      `json:"id"`
	Team     *TeamRef `json:"team"`
	Type     string   `json:"type"`
	Rank     int      `json:"rank"`
	Score    *int     `json:"score"`
	Attempts int      `json:"attempts"`
}

// ToAttempt converts SkillInput (from API) to SkillAttempt model
func (si *SkillInput) ToAttempt(eventID int) *SkillAttempt {
	attempt := &SkillAttempt{
		EventID:  eventID,
		Type:     SkillType(strings.ToLower(strings.TrimSpace(si.Type))),
		Attempts: si.Attempts,
	}
	if si.Team != nil {
		attempt.TeamNumber = si.Team.Identity()
	}
	if si.Score != nil {
		attempt.Score = *si.Score
	}
	return attempt
}
