package api

import (
	"net/http"
	"strconv"

	"gentlecut/internal/metrics"
	"gentlecut/internal/model"
)

// AvailabilityResponse is the response for GET /api/availability.
type AvailabilityResponse struct {
	BarberID int64    `json:"barber_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

// CalendarResponse is the response for GET /api/calendar.
type CalendarResponse struct {
	BarberID int64            `json:"barber_id"`
	Year     int              `json:"year"`
	Month    int              `json:"month"`
	Weeks    [][]calendarCell `json:"weeks"`
}

type calendarCell struct {
	Blank     bool   `json:"blank"`
	Date      string `json:"date,omitempty"`
	Day       int    `json:"day,omitempty"`
	IsWorking bool   `json:"is_working"`
	IsPast    bool   `json:"is_past"`
}

// handleAvailability returns free slots for one barber on one date.
// GET /api/availability?barber_id=1&date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	barberID, err := queryInt64(r, "barber_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "barber_id is required")
		return
	}
	date, err := model.ParseDateKey(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	slots, err := s.slots.AvailableSlots(r.Context(), barberID, date)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if slots == nil {
		slots = []string{}
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{
		BarberID: barberID,
		Date:     string(date),
		Slots:    slots,
	})
}

// handleCalendar returns the month grid for one barber.
// GET /api/calendar?barber_id=1&year=2024&month=3&week_start=1
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	barberID, err := queryInt64(r, "barber_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "barber_id is required")
		return
	}
	year, err := queryInt(r, "year")
	if err != nil {
		writeError(w, http.StatusBadRequest, "year is required")
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		writeError(w, http.StatusBadRequest, "month is required")
		return
	}

	weekStart := 0
	if v := r.URL.Query().Get("week_start"); v != "" {
		weekStart, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid week_start")
			return
		}
	}

	today := model.NewDateKey(s.now().UTC())
	weeks, err := s.grid.BuildMonthGrid(barberID, year, month, weekStart, today)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	resp := CalendarResponse{BarberID: barberID, Year: year, Month: month}
	for _, row := range weeks {
		cells := make([]calendarCell, len(row))
		for i, c := range row {
			cells[i] = calendarCell{
				Blank:     c.Blank,
				Date:      string(c.Date),
				Day:       c.Day,
				IsWorking: c.IsWorking,
				IsPast:    c.IsPast,
			}
		}
		resp.Weeks = append(resp.Weeks, cells)
	}

	writeJSON(w, http.StatusOK, resp)
}

func queryInt64(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
}

func queryInt(r *http.Request, key string) (int, error) {
	return strconv.Atoi(r.URL.Query().Get(key))
}
