package models

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Alliance colors used by the API
const (
	ColorRed  = "red"
	ColorBlue = "blue"
)

// Data-shape problems that cause a single match to be skipped
var (
	ErrMissingAlliance = errors.New("match has fewer than two alliances")
	ErrEmptyAlliance   = errors.New("match alliance has no teams")
	ErrMissingStart    = errors.New("match has no start timestamp")
	ErrTeamOnBothSides = errors.New("team appears on both alliances")
)

// Outcome is the decided result of a match from the red alliance's perspective
type Outcome int

const (
	Undecided Outcome = iota
	RedWin
	BlueWin
	Draw
)

// String returns the outcome name used in logs
func (o Outcome) String() string {
	switch o {
	case RedWin:
		return "red_win"
	case BlueWin:
		return "blue_win"
	case Draw:
		return "draw"
	default:
		return "undecided"
	}
}

// Match represents a two-sided match with its result
type Match struct {
	ID         int
	EventID    int
	DivisionID int
	Name       string
	Started    time.Time
	Scored     bool

	Red  []string
	Blue []string

	RedScore  sql.NullInt32
	BlueScore sql.NullInt32

	// Seq is the ingestion order, used to break ties between equal start times
	Seq int
}

// Outcome derives the result from the alliance scores
func (m *Match) Outcome() Outcome {
	if !m.RedScore.Valid || !m.BlueScore.Valid {
		return Undecided
	}
	switch {
	case m.RedScore.Int32 > m.BlueScore.Int32:
		return RedWin
	case m.BlueScore.Int32 > m.RedScore.Int32:
		return BlueWin
	default:
		return Draw
	}
}

// IsCompleted returns true if the match was played and has a decidable result
func (m *Match) IsCompleted() bool {
	return m.Scored && m.Outcome() != Undecided
}

// AllianceInput is one side of a match as returned by the API
type AllianceInput struct {
	Color string `json:"color"`
	Score *int   `json:"score"`
	Teams []struct {
		Team    *TeamRef `json:"team"`
		Sitting bool     `json:"sitting"`
	} `json:"teams"`
}

// MatchInput is the match object returned by the division matches endpoint
type MatchInput struct {
	ID        int             `json:"id"`
	Event     *Event          `json:"event"`
	Division  *Division       `json:"division"`
	Name      string          `json:"name"`
	Scheduled *string         `json:"scheduled"`
	Started   *string         `json:"started"`
	Scored    bool            `json:"scored"`
	Alliances []AllianceInput `json:"alliances"`
}

// ToMatch converts MatchInput (from API) to Match model.
// eventID and divisionID are the coordinates the match was fetched from.
func (mi *MatchInput) ToMatch(eventID, divisionID, seq int) (*Match, error) {
	if len(mi.Alliances) < 2 {
		return nil, ErrMissingAlliance
	}

	red := findAlliance(mi.Alliances, ColorRed, 0)
	blue := findAlliance(mi.Alliances, ColorBlue, 1)

	match := &Match{
		ID:         mi.ID,
		EventID:    eventID,
		DivisionID: divisionID,
		Name:       mi.Name,
		Scored:     mi.Scored,
		Red:        red.teamNumbers(),
		Blue:       blue.teamNumbers(),
		Seq:        seq,
	}

	if len(match.Red) == 0 || len(match.Blue) == 0 {
		return nil, ErrEmptyAlliance
	}

	onRed := make(map[string]struct{}, len(match.Red))
	for _, t := range match.Red {
		onRed[t] = struct{}{}
	}
	for _, t := range match.Blue {
		if _, ok := onRed[t]; ok {
			return nil, ErrTeamOnBothSides
		}
	}

	if mi.Started == nil || strings.TrimSpace(*mi.Started) == "" {
		return nil, ErrMissingStart
	}
	started, err := time.Parse(time.RFC3339, *mi.Started)
	if err != nil {
		return nil, ErrMissingStart
	}
	match.Started = started

	if red.Score != nil {
		match.RedScore = sql.NullInt32{Int32: int32(*red.Score), Valid: true}
	}
	if blue.Score != nil {
		match.BlueScore = sql.NullInt32{Int32: int32(*blue.Score), Valid: true}
	}

	return match, nil
}

// findAlliance returns the alliance with the given color, or the one at
// the fallback position when colors are missing
func findAlliance(alliances []AllianceInput, color string, fallback int) *AllianceInput {
	for i := range alliances {
		if strings.EqualFold(alliances[i].Color, color) {
			return &alliances[i]
		}
	}
	return &alliances[fallback]
}

// teamNumbers returns the distinct teams that played for the alliance.
// Teams marked as sitting were on the alliance but not on the field.
func (a *AllianceInput) teamNumbers() []string {
	seen := make(map[string]struct{}, len(a.Teams))
	numbers := make([]string, 0, len(a.Teams))
	for _, t := range a.Teams {
		if t.Team == nil || t.Sitting {
			continue
		}
		id := t.Team.Identity()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		numbers = append(numbers, id)
	}
	return numbers
}
