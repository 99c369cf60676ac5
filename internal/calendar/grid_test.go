package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gentlecut/internal/model"
	"gentlecut/internal/schedule"
)

func newTestGenerator(t *testing.T) (*Generator, *schedule.Store) {
	t.Helper()
	store := schedule.NewStore()
	require.NoError(t, store.Register(1, model.WeeklyPattern{
		WorkingDays:  []int{6, 0, 1, 2, 3, 4}, // all but Friday
		DefaultSlots: []string{"09:00"},
	}))
	return NewGenerator(store), store
}

func countBlanksAtStart(row []Cell) int {
	n := 0
	for _, c := range row {
		if !c.Blank {
			break
		}
		n++
	}
	return n
}

func TestBuildMonthGrid_LeadingBlanks(t *testing.T) {
	g, _ := newTestGenerator(t)

	// March 2024 starts on a Friday (weekday 5); leading blanks are
	// (5 - weekStartsOn + 7) mod 7.
	tests := []struct {
		name         string
		weekStartsOn int
		wantLeading  int
	}{
		{"sunday first", 0, 5},
		{"monday first", 1, 4},
		{"saturday first", 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := g.BuildMonthGrid(1, 2024, 3, tt.weekStartsOn, "2024-03-01")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLeading, countBlanksAtStart(rows[0]))
		})
	}
}

func TestBuildMonthGrid_RowsOfSeven(t *testing.T) {
	g, _ := newTestGenerator(t)

	rows, err := g.BuildMonthGrid(1, 2024, 6, 0, "2024-06-01")
	require.NoError(t, err)

	days := 0
	for _, row := range rows {
		require.Len(t, row, 7)
		for _, cell := range row {
			if !cell.Blank {
				days++
			}
		}
	}
	assert.Equal(t, 30, days)
}

func TestBuildMonthGrid_LeapFebruary(t *testing.T) {
	g, _ := newTestGenerator(t)

	days := func(year int) int {
		rows, err := g.BuildMonthGrid(1, year, 2, 0, "2023-01-01")
		require.NoError(t, err)
		n := 0
		for _, row := range rows {
			for _, cell := range row {
				if !cell.Blank {
					n++
				}
			}
		}
		return n
	}

	assert.Equal(t, 29, days(2024))
	assert.Equal(t, 28, days(2023))
	assert.Equal(t, 28, days(1900)) // century, not leap
	assert.Equal(t, 29, days(2000)) // 400-year rule
}

func TestBuildMonthGrid_WorkingAndPastFlags(t *testing.T) {
	g, store := newTestGenerator(t)
	require.NoError(t, store.SetOverride(1, "2024-06-08", model.DayOverride{IsWorking: false}))

	rows, err := g.BuildMonthGrid(1, 2024, 6, 0, "2024-06-10")
	require.NoError(t, err)

	byDate := make(map[model.DateKey]Cell)
	for _, row := range rows {
		for _, cell := range row {
			if !cell.Blank {
				byDate[cell.Date] = cell
			}
		}
	}

	// Fridays are off by pattern, the 8th by override.
	assert.False(t, byDate["2024-06-07"].IsWorking)
	assert.False(t, byDate["2024-06-08"].IsWorking)
	assert.True(t, byDate["2024-06-09"].IsWorking)

	// Past is a strict date-only comparison against the caller's today.
	assert.True(t, byDate["2024-06-09"].IsPast)
	assert.False(t, byDate["2024-06-10"].IsPast)
	assert.False(t, byDate["2024-06-11"].IsPast)
}

func TestBuildMonthGrid_Validation(t *testing.T) {
	g, _ := newTestGenerator(t)

	_, err := g.BuildMonthGrid(1, 2024, 13, 0, "2024-06-01")
	assert.Error(t, err)

	_, err = g.BuildMonthGrid(1, 2024, 6, 7, "2024-06-01")
	assert.Error(t, err)

	_, err = g.BuildMonthGrid(99, 2024, 6, 0, "2024-06-01")
	assert.ErrorIs(t, err, schedule.ErrUnknownBarber)
}
