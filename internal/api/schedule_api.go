package api

import (
	"encoding/json"
	"net/http"

	"gentlecut/internal/metrics"
	"gentlecut/internal/model"
)

// OverrideRequest is the request body for PUT /api/schedule/override.
type OverrideRequest struct {
	BarberID  int64    `json:"barber_id"`
	Date      string   `json:"date"` // Format: YYYY-MM-DD
	IsWorking bool     `json:"is_working"`
	Slots     []string `json:"slots"`
}

// SlotRequest is the request body for POST and DELETE /api/schedule/slots.
type SlotRequest struct {
	BarberID int64  `json:"barber_id"`
	Date     string `json:"date"` // Format: YYYY-MM-DD
	Time     string `json:"time"` // Format: HH:MM
}

// PatternRequest is the request body for PUT /api/schedule/pattern.
type PatternRequest struct {
	BarberID     int64    `json:"barber_id"`
	WorkingDays  []int    `json:"working_days"` // 0=Sunday..6=Saturday
	DefaultSlots []string `json:"default_slots"`
}

// handleOverride sets or clears the day plan for one date.
// PUT / DELETE /api/schedule/override
func (s *HTTPServer) handleOverride(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_override")

	switch r.Method {
	case http.MethodPut:
		var req OverrideRequest
		if !decodeBody(w, r, &req) {
			return
		}
		date, err := model.ParseDateKey(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		err = s.schedules.SetOverride(r.Context(), req.BarberID, date, model.DayOverride{
			IsWorking: req.IsWorking,
			Slots:     req.Slots,
		})
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	case http.MethodDelete:
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
		if err := s.schedules.ClearOverride(r.Context(), barberID, date); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSlots adds or removes one slot on one date.
// POST / DELETE /api/schedule/slots
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_slots")

	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SlotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := model.ParseDateKey(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	if r.Method == http.MethodPost {
		err = s.schedules.AddSlot(r.Context(), req.BarberID, date, req.Time)
	} else {
		err = s.schedules.RemoveSlot(r.Context(), req.BarberID, date, req.Time)
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handlePattern replaces the weekly default pattern.
// PUT /api/schedule/pattern
func (s *HTTPServer) handlePattern(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_pattern")

	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PatternRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.schedules.SetWeeklyPattern(r.Context(), req.BarberID, model.WeeklyPattern{
		WorkingDays:  req.WorkingDays,
		DefaultSlots: req.DefaultSlots,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
