package skills

import (
	"database/sql"

	"vurc_dashboard/ingestion/internal/models"
)

// Best is a team's season-best skills scores. An invalid value means the
// team never submitted a run of that type, which is distinct from a zero.
type Best struct {
	Driver      sql.NullInt32
	Programming sql.NullInt32
}

// Aggregate reduces skills records to each team's best score per type.
// Records that are not qualifying runs are ignored.
func Aggregate(attempts []models.SkillAttempt) map[string]Best {
	best := make(map[string]Best)
	for i := range attempts {
		a := &attempts[i]
		if !a.IsQualifying() {
			continue
		}

		b := best[a.TeamNumber]
		switch a.Type {
		case models.SkillDriver:
			b.Driver = maxScore(b.Driver, a.Score)
		case models.SkillProgramming:
			b.Programming = maxScore(b.Programming, a.Score)
		}
		best[a.TeamNumber] = b
	}
	return best
}

func maxScore(cur sql.NullInt32, score int) sql.NullInt32 {
	if !cur.Valid || int32(score) > cur.Int32 {
		return sql.NullInt32{Int32: int32(score), Valid: true}
	}
	return cur
}
