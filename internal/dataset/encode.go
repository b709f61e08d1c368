package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Columns is the header of the published table. Consumers depend on these
// names; team_name carries the team number.
var Columns = []string{"team_name", "elo", "strength_of_schedule", "driver_skills", "programming_skills"}

// Row is the JSON form of one output row. Missing skills are null.
type Row struct {
	Team               string  `json:"team_name"`
	Elo                float64 `json:"elo"`
	StrengthOfSchedule float64 `json:"strength_of_schedule"`
	DriverSkills       *int32  `json:"driver_skills"`
	ProgrammingSkills  *int32  `json:"programming_skills"`
}

// WriteCSV writes the table with Elo at 2 decimals and SoS at 4. A missing
// skills score is an empty cell.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range d.Rows {
		record := []string{
			row.Team,
			strconv.FormatFloat(row.Elo, 'f', 2, 64),
			strconv.FormatFloat(row.StrengthOfSchedule, 'f', 4, 64),
			"",
			"",
		}
		if row.DriverSkills.Valid {
			record[3] = strconv.Itoa(int(row.DriverSkills.Int32))
		}
		if row.ProgrammingSkills.Valid {
			record[4] = strconv.Itoa(int(row.ProgrammingSkills.Int32))
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", row.Team, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSV returns the encoded table
func (d *Dataset) CSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSONRows returns the rows rounded the same way as the CSV
func (d *Dataset) JSONRows() []Row {
	rows := make([]Row, 0, len(d.Rows))
	for _, m := range d.Rows {
		row := Row{
			Team:               m.Team,
			Elo:                round(m.Elo, 2),
			StrengthOfSchedule: round(m.StrengthOfSchedule, 4),
		}
		if m.DriverSkills.Valid {
			v := m.DriverSkills.Int32
			row.DriverSkills = &v
		}
		if m.ProgrammingSkills.Valid {
			v := m.ProgrammingSkills.Int32
			row.ProgrammingSkills = &v
		}
		rows = append(rows, row)
	}
	return rows
}

// JSON returns the rows as a JSON array
func (d *Dataset) JSON() ([]byte, error) {
	data, err := json.Marshal(d.JSONRows())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rows: %w", err)
	}
	return data, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
