package rating

import (
	"math"

	"vurc_dashboard/ingestion/internal/models"
)

const (
	// DefaultKFactor is the rating sensitivity per match
	DefaultKFactor = 32.0

	// DefaultInitial is the rating of a team before its first match
	DefaultInitial = 1500.0
)

// Ratings maps team number to Elo. Teams never seen read as the initial value.
type Ratings struct {
	initial float64
	values  map[string]float64
}

// NewRatings creates an empty rating table
func NewRatings(initial float64) *Ratings {
	return &Ratings{initial: initial, values: make(map[string]float64)}
}

// Get returns the team's rating, or the initial rating if it never played
func (r *Ratings) Get(team string) float64 {
	if v, ok := r.values[team]; ok {
		return v
	}
	return r.initial
}

// Has reports whether the team has been rated
func (r *Ratings) Has(team string) bool {
	_, ok := r.values[team]
	return ok
}

// Len returns the number of rated teams
func (r *Ratings) Len() int {
	return len(r.values)
}

// Teams returns the rated team numbers in no particular order
func (r *Ratings) Teams() []string {
	teams := make([]string, 0, len(r.values))
	for t := range r.values {
		teams = append(teams, t)
	}
	return teams
}

// Ledger maps team number to the opponents it faced, one entry per pairing.
// Repeat meetings are kept.
type Ledger map[string][]string

// Result is the terminal state of a rating pass
type Result struct {
	Ratings *Ratings
	Ledger  Ledger

	// Played counts the rated matches of each team. A match counts once per
	// team however many opponents it paired the team with.
	Played map[string]int

	// Matches is the number of matches that produced rating updates
	Matches int
}

// Computer folds an ordered match sequence into final ratings
type Computer struct {
	K       float64
	Initial float64
}

// NewComputer creates a computer with the given K-factor and initial rating.
// Non-positive values fall back to the defaults.
func NewComputer(k, initial float64) *Computer {
	if k <= 0 {
		k = DefaultKFactor
	}
	if initial <= 0 {
		initial = DefaultInitial
	}
	return &Computer{K: k, Initial: initial}
}

// Expected returns the expected score of a team rated ra against one rated rb
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/400))
}

// Compute walks matches in the given order. Every red/blue team pair of a
// match is rated against the pre-match ratings and the summed deltas are
// applied once the match is done.
func (c *Computer) Compute(matches []models.Match) Result {
	res := Result{
		Ratings: NewRatings(c.Initial),
		Ledger:  make(Ledger),
		Played:  make(map[string]int),
	}

	deltas := make(map[string]float64)
	for i := range matches {
		m := &matches[i]

		var redScore float64
		switch m.Outcome() {
		case models.RedWin:
			redScore = 1
		case models.BlueWin:
			redScore = 0
		case models.Draw:
			redScore = 0.5
		default:
			continue
		}
		if len(m.Red) == 0 || len(m.Blue) == 0 {
			continue
		}

		clear(deltas)
		for _, a := range m.Red {
			ra := res.Ratings.Get(a)
			for _, b := range m.Blue {
				rb := res.Ratings.Get(b)
				ea := Expected(ra, rb)

				deltas[a] += c.K * (redScore - ea)
				deltas[b] += c.K * ((1 - redScore) - (1 - ea))

				res.Ledger[a] = append(res.Ledger[a], b)
				res.Ledger[b] = append(res.Ledger[b], a)
			}
		}

		for team, d := range deltas {
			res.Ratings.values[team] = res.Ratings.Get(team) + d
			res.Played[team]++
		}
		res.Matches++
	}

	return res
}
