package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gentlecut/internal/export"
	"gentlecut/internal/ledger"
	"gentlecut/internal/metrics"
	"gentlecut/internal/model"
)

// CreateBookingRequest is the request body for POST /api/bookings.
type CreateBookingRequest struct {
	BarberID   int64   `json:"barber_id"`
	Date       string  `json:"date"` // Format: YYYY-MM-DD
	Time       string  `json:"time"` // Format: HH:MM
	ServiceIDs []int64 `json:"service_ids,omitempty"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Photo      string  `json:"photo,omitempty"`
}

// BookingResponse wraps a single booking.
type BookingResponse struct {
	Booking model.Booking `json:"booking"`
}

// handleBookings serves list, create and delete on /api/bookings.
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listBookings(w, r)
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodDelete:
		s.deleteBooking(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET /api/bookings?barber_id=1&date=YYYY-MM-DD
// Both filters are optional; without them the full ordered list is
// returned.
func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_list")

	var bookings []model.Booking
	if r.URL.Query().Get("barber_id") != "" && r.URL.Query().Get("date") != "" {
		barberID, err := queryInt64(r, "barber_id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid barber_id")
			return
		}
		date, err := model.ParseDateKey(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		bookings = s.bookings.ListFor(barberID, date)
	} else {
		bookings = s.bookings.List()
	}

	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// POST /api/bookings
func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_create")

	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Name == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "name and phone are required")
		return
	}
	date, err := model.ParseDateKey(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	if !model.ValidSlot(req.Time) {
		writeError(w, http.StatusBadRequest, "invalid time format; expected HH:MM")
		return
	}

	// The slot must be on the barber's plan and still free.
	slots, err := s.slots.AvailableSlots(r.Context(), req.BarberID, date)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if !containsSlot(slots, req.Time) {
		writeError(w, http.StatusConflict, "slot is not available")
		return
	}

	booking, err := s.bookings.Create(r.Context(), ledger.CreateParams{
		BarberID:   req.BarberID,
		Date:       date,
		Time:       req.Time,
		ServiceIDs: req.ServiceIDs,
		Customer: model.CustomerInfo{
			Name:  req.Name,
			Phone: req.Phone,
			Photo: req.Photo,
		},
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, BookingResponse{Booking: booking})
}

// DELETE /api/bookings?id=42 (admin)
func (s *HTTPServer) deleteBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_delete")

	if s.apiKey == "" || r.Header.Get("X-API-Key") != s.apiKey {
		writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}

	bookingID, err := queryInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.bookings.Delete(r.Context(), bookingID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GET /api/bookings/export (admin) streams an xlsx workbook.
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	barbers, err := s.catalog.ListBarbers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load barbers")
		return
	}

	filename := fmt.Sprintf("bookings_%s.xlsx", s.now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	exporter := export.NewExporter(barbers)
	if err := exporter.WriteBookings(w, s.bookings.List()); err != nil {
		s.log.Error().Err(err).Msg("failed to write bookings export")
	}
}

func containsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
