package api

import (
	"errors"
	"net/http"
	"strings"

	"gentlecut/internal/booking"
	"gentlecut/internal/ledger"
	"gentlecut/internal/metrics"
	"gentlecut/internal/model"
)

// FlowStepRequest carries the payload for every flow step; only the
// fields of the addressed step are read.
type FlowStepRequest struct {
	BarberID   int64   `json:"barber_id,omitempty"`
	ServiceIDs []int64 `json:"service_ids,omitempty"`
	Date       string  `json:"date,omitempty"` // Format: YYYY-MM-DD
	Time       string  `json:"time,omitempty"` // Format: HH:MM
	Name       string  `json:"name,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Photo      string  `json:"photo,omitempty"`
}

// FlowResponse describes the session after a step.
type FlowResponse struct {
	SessionID string         `json:"session_id"`
	State     string         `json:"state"`
	Slots     []string       `json:"slots,omitempty"` // refreshed list after a lost slot race
	Booking   *model.Booking `json:"booking,omitempty"`
}

// handleFlowStart opens a new booking flow session.
// POST /api/flow
func (s *HTTPServer) handleFlowStart(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("flow_start")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session := s.sessions.Create()
	writeJSON(w, http.StatusCreated, FlowResponse{
		SessionID: session.ID,
		State:     string(session.GetState()),
	})
}

// handleFlowStep advances one flow session.
// POST /api/flow/{session_id}/{step}
func (s *HTTPServer) handleFlowStep(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("flow_step")

	rest := strings.TrimPrefix(r.URL.Path, "/api/flow/")
	sessionID, step, ok := strings.Cut(rest, "/")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	session := s.sessions.Get(sessionID)
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found or expired")
		return
	}

	if r.Method == http.MethodGet && !ok {
		writeJSON(w, http.StatusOK, flowState(session, nil))
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req FlowStepRequest
	if step != "back" && step != "reset" && step != "confirm" {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	switch step {
	case "barber":
		if err := s.flow.ChooseBarber(session, req.BarberID); err != nil {
			writeFlowError(w, err)
			return
		}
	case "services":
		if err := s.flow.ChooseServices(session, req.ServiceIDs); err != nil {
			writeFlowError(w, err)
			return
		}
	case "slot":
		date, err := model.ParseDateKey(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		if err := s.flow.ChooseDateTime(session, date, req.Time); err != nil {
			writeFlowError(w, err)
			return
		}
	case "customer":
		err := s.flow.SetCustomer(session, model.CustomerInfo{
			Name:  req.Name,
			Phone: req.Phone,
			Photo: req.Photo,
		})
		if err != nil {
			writeFlowError(w, err)
			return
		}
	case "confirm":
		created, refreshed, err := s.flow.Confirm(r.Context(), session)
		if err != nil {
			if errors.Is(err, ledger.ErrSlotTaken) {
				// The session already stepped back to date selection.
				writeJSON(w, http.StatusConflict, flowState(session, refreshed))
				return
			}
			writeFlowError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, FlowResponse{
			SessionID: session.ID,
			State:     string(session.GetState()),
			Booking:   &created,
		})
		return
	case "back":
		if err := s.flow.Back(session); err != nil {
			writeFlowError(w, err)
			return
		}
	case "reset":
		s.flow.Reset(session)
	default:
		writeError(w, http.StatusNotFound, "unknown flow step")
		return
	}

	writeJSON(w, http.StatusOK, flowState(session, nil))
}

func flowState(session *booking.Session, slots []string) FlowResponse {
	snap := session.Snapshot()
	return FlowResponse{
		SessionID: snap.ID,
		State:     string(snap.State),
		Slots:     slots,
		Booking:   snap.Booking,
	}
}

func writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrBadTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
	}
}
