package rating

const (
	// DefaultSoSMin is the normalized SoS of the weakest schedule
	DefaultSoSMin = 0.30

	// DefaultSoSMax is the normalized SoS of the strongest schedule
	DefaultSoSMax = 0.80
)

// Normalizer rescales raw strength of schedule into [Min, Max]
type Normalizer struct {
	Min float64
	Max float64
}

// NewNormalizer creates a normalizer for the target range. An empty or
// inverted range falls back to the defaults.
func NewNormalizer(lo, hi float64) *Normalizer {
	if lo >= hi {
		lo, hi = DefaultSoSMin, DefaultSoSMax
	}
	return &Normalizer{Min: lo, Max: hi}
}

// Width is the size of the target range
func (n *Normalizer) Width() float64 {
	return n.Max - n.Min
}

// Midpoint is assigned to teams without opponents and to every team when
// all raw values are equal
func (n *Normalizer) Midpoint() float64 {
	return n.Min + n.Width()/2
}

// RawSoS returns the mean final rating of every ledger entry. Teams with an
// empty ledger are absent from the result.
func RawSoS(ledger Ledger, ratings *Ratings) map[string]float64 {
	raw := make(map[string]float64, len(ledger))
	for team, opponents := range ledger {
		if len(opponents) == 0 {
			continue
		}
		sum := 0.0
		for _, opp := range opponents {
			sum += ratings.Get(opp)
		}
		raw[team] = sum / float64(len(opponents))
	}
	return raw
}

// Normalize min-max scales raw SoS into the target range. Only teams with at
// least one opponent set the bounds; Lookup supplies the fallback for the rest.
func (n *Normalizer) Normalize(ledger Ledger, ratings *Ratings) SoS {
	raw := RawSoS(ledger, ratings)
	out := SoS{fallback: n.Midpoint(), values: make(map[string]float64, len(raw))}
	if len(raw) == 0 {
		return out
	}

	first := true
	var lo, hi float64
	for _, v := range raw {
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		for team := range raw {
			out.values[team] = n.Midpoint()
		}
		return out
	}

	for team, v := range raw {
		scaled := n.Min + (v-lo)/(hi-lo)*n.Width()
		// guard against rounding just outside the range
		if scaled < n.Min {
			scaled = n.Min
		} else if scaled > n.Max {
			scaled = n.Max
		}
		out.values[team] = scaled
	}
	return out
}

// SoS holds normalized strength of schedule per team
type SoS struct {
	fallback float64
	values   map[string]float64
}

// Get returns the team's normalized SoS, or the fallback midpoint for a
// team that never played
func (s SoS) Get(team string) float64 {
	if v, ok := s.values[team]; ok {
		return v
	}
	return s.fallback
}

// Has reports whether the team's SoS was derived from its opponents
func (s SoS) Has(team string) bool {
	_, ok := s.values[team]
	return ok
}

// Len returns the number of teams with a derived SoS
func (s SoS) Len() int {
	return len(s.values)
}
