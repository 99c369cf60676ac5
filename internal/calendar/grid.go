// Package calendar builds month grids annotated with per-day status.
package calendar

import (
	"fmt"
	"time"

	"gentlecut/internal/model"
	"gentlecut/internal/schedule"
)

// Cell is one day in the month grid. Blank cells pad the first and last
// week so every row holds seven cells.
type Cell struct {
	Blank     bool          `json:"blank,omitempty"`
	Date      model.DateKey `json:"date,omitempty"`
	Day       int           `json:"day,omitempty"`
	IsWorking bool          `json:"is_working,omitempty"`
	IsPast    bool          `json:"is_past,omitempty"`
}

// Generator maps a (year, month, week-start) to a display grid driven by
// the schedule store's effective-day query. Selection and highlighting
// are caller concerns.
type Generator struct {
	store *schedule.Store
}

// NewGenerator creates a grid generator over the schedule store.
func NewGenerator(store *schedule.Store) *Generator {
	return &Generator{store: store}
}

// BuildMonthGrid returns the weeks of a month as rows of 7 cells.
// weekStartsOn is the weekday index the grid starts on (0=Sunday-first,
// 6=Saturday-first). today marks the boundary for IsPast, compared by
// calendar day only.
func (g *Generator) BuildMonthGrid(barberID int64, year, month, weekStartsOn int, today model.DateKey) ([][]Cell, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month %d out of range", month)
	}
	if weekStartsOn < 0 || weekStartsOn > 6 {
		return nil, fmt.Errorf("week start %d out of range", weekStartsOn)
	}

	firstDay := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	leading := (int(firstDay.Weekday()) - weekStartsOn + 7) % 7
	days := daysIn(time.Month(month), year)

	cells := make([]Cell, 0, leading+days)
	for i := 0; i < leading; i++ {
		cells = append(cells, Cell{Blank: true})
	}

	for day := 1; day <= days; day++ {
		date := model.NewDateKey(firstDay.AddDate(0, 0, day-1))
		effective, err := g.store.EffectiveDay(barberID, date)
		if err != nil {
			return nil, err
		}
		cells = append(cells, Cell{
			Date:      date,
			Day:       day,
			IsWorking: effective.IsWorking,
			IsPast:    date.Before(today),
		})
	}

	// Pad the final week to a full row.
	for len(cells)%7 != 0 {
		cells = append(cells, Cell{Blank: true})
	}

	rows := make([][]Cell, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		rows = append(rows, cells[i:i+7])
	}
	return rows, nil
}

func daysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
