package models

import (
	"strconv"
	"strings"
)

// Season represents a competition season of a program
type Season struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// MatchesYear reports whether the season name mentions the given year,
// e.g. "VEX U 2025-2026: Push Back" matches 2025 and 2026.
func (s *Season) MatchesYear(year int) bool {
	if year <= 0 {
		return false
	}
	return strings.Contains(s.Name, strconv.Itoa(year))
}

// Division is a division embedded in an event
type Division struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// Event represents a tournament belonging to a season
type Event struct {
	ID        int        `json:"id"`
	SKU       string     `json:"sku"`
	Name      string     `json:"name"`
	Start     string     `json:"start"`
	Divisions []Division `json:"divisions"`
}
