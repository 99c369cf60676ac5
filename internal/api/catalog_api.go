package api

import (
	"net/http"

	"gentlecut/internal/metrics"
	"gentlecut/internal/model"
)

// RegisterBarberRequest is the request body for POST /api/barbers.
type RegisterBarberRequest struct {
	Name         string   `json:"name"`
	ImageURL     string   `json:"image_url,omitempty"`
	WorkingDays  []int    `json:"working_days"` // 0=Sunday..6=Saturday
	DefaultSlots []string `json:"default_slots"`
}

// ServiceRequest is the request body for POST /api/services.
type ServiceRequest struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Duration int    `json:"duration"` // minutes
}

// handleBarbers lists barbers or registers a new one.
// GET /api/barbers, POST /api/barbers (admin)
func (s *HTTPServer) handleBarbers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("barbers")

	switch r.Method {
	case http.MethodGet:
		barbers, err := s.catalog.ListBarbers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load barbers")
			return
		}
		if barbers == nil {
			barbers = []model.Barber{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"barbers": barbers})

	case http.MethodPost:
		if s.apiKey == "" || r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}

		var req RegisterBarberRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		barberID, err := s.schedules.RegisterBarber(r.Context(),
			model.Barber{Name: req.Name, ImageURL: req.ImageURL, IsActive: true},
			model.WeeklyPattern{WorkingDays: req.WorkingDays, DefaultSlots: req.DefaultSlots},
		)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": barberID})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleServices lists services or upserts one.
// GET /api/services, POST /api/services (admin)
func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("services")

	switch r.Method {
	case http.MethodGet:
		services, err := s.catalog.ListServices(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load services")
			return
		}
		if services == nil {
			services = []model.Service{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": services})

	case http.MethodPost:
		if s.apiKey == "" || r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}

		var req ServiceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		serviceID, err := s.catalog.UpsertService(r.Context(), model.Service{
			ID:       req.ID,
			Name:     req.Name,
			Price:    req.Price,
			Duration: req.Duration,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save service")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": serviceID})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
