package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gentlecut/internal/availability"
	"gentlecut/internal/booking"
	"gentlecut/internal/calendar"
	"gentlecut/internal/database"
	"gentlecut/internal/events"
	"gentlecut/internal/ledger"
	"gentlecut/internal/model"
	"gentlecut/internal/schedule"
	"gentlecut/internal/service"
)

const testAPIKey = "valid-key"

type testEnv struct {
	server   *httptest.Server
	store    *schedule.Store
	ledger   *ledger.Ledger
	db       *database.DB
	barberID int64
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := schedule.NewStore()
	led := ledger.New()
	bus := events.NewBus()
	resolver := availability.NewResolver(store, led)

	bookings := service.NewBookingService(led, db, bus, &logger, 0, 365*24*time.Hour)
	schedules := service.NewScheduleService(store, db, bus, &logger)

	sessions := booking.NewSessionStore(time.Minute)
	flow := booking.NewFlow(store, resolver, bookings, &logger)

	srv := NewHTTPServer(Config{
		Port:           0,
		APIKey:         testAPIKey,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}, bookings, schedules, DirectProvider{Resolver: resolver}, calendar.NewGenerator(store), db, flow, sessions, &logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	env := &testEnv{server: ts, store: store, ledger: led, db: db}

	// One barber working every day keeps date choice in tests simple.
	body := mustJSON(t, RegisterBarberRequest{
		Name:         "Amir",
		WorkingDays:  []int{0, 1, 2, 3, 4, 5, 6},
		DefaultSlots: []string{"09:00", "10:00", "11:00"},
	})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/barbers", body)
	req.Header.Set("X-API-Key", testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	env.barberID = created.ID
	return env
}

func mustJSON(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func (e *testEnv) do(t *testing.T, method, path string, body *bytes.Buffer, admin bool) *http.Response {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if admin {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleAvailability(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/availability?barber_id=%d&date=%s", env.barberID, futureDate(7)), nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got AvailabilityResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, got.Slots)
}

func TestHandleAvailability_Validation(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/api/availability?barber_id=abc&date=2024-06-08", nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/availability?barber_id=%d&date=08-06-2024", env.barberID), nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/availability?barber_id=999&date=2024-06-08", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateBooking_Lifecycle(t *testing.T) {
	env := setupTestServer(t)
	date := futureDate(7)

	create := CreateBookingRequest{
		BarberID: env.barberID,
		Date:     date,
		Time:     "10:00",
		Name:     "Navid",
		Phone:    "+989120000000",
	}

	resp := env.do(t, http.MethodPost, "/api/bookings", mustJSON(t, create), false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got BookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotZero(t, got.Booking.ID)
	assert.NotEmpty(t, got.Booking.Code)

	// The booked slot is gone from availability.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/availability?barber_id=%d&date=%s", env.barberID, date), nil, false)
	var avail AvailabilityResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&avail))
	assert.Equal(t, []string{"09:00", "11:00"}, avail.Slots)

	// Second booking of the same slot conflicts.
	resp = env.do(t, http.MethodPost, "/api/bookings", mustJSON(t, create), false)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Delete frees the slot again.
	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/bookings?id=%d", got.Booking.ID), nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/availability?barber_id=%d&date=%s", env.barberID, date), nil, false)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&avail))
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, avail.Slots)
}

func TestCreateBooking_Validation(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name       string
		req        CreateBookingRequest
		wantStatus int
	}{
		{
			name:       "missing name",
			req:        CreateBookingRequest{BarberID: env.barberID, Date: futureDate(7), Time: "09:00", Phone: "+98912"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad date",
			req:        CreateBookingRequest{BarberID: env.barberID, Date: "07/06/2024", Time: "09:00", Name: "a", Phone: "b"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad time",
			req:        CreateBookingRequest{BarberID: env.barberID, Date: futureDate(7), Time: "9:00", Name: "a", Phone: "b"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "slot not on plan",
			req:        CreateBookingRequest{BarberID: env.barberID, Date: futureDate(7), Time: "23:00", Name: "a", Phone: "b"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unknown barber",
			req:        CreateBookingRequest{BarberID: 999, Date: futureDate(7), Time: "09:00", Name: "a", Phone: "b"},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/bookings", mustJSON(t, tt.req), false)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestDeleteBooking_RequiresAPIKey(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodDelete, "/api/bookings?id=1", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestScheduleEndpoints(t *testing.T) {
	env := setupTestServer(t)
	date := futureDate(10)

	// Close the date outright.
	body := mustJSON(t, OverrideRequest{BarberID: env.barberID, Date: date, IsWorking: false, Slots: []string{}})
	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/schedule/override", body)
	req.Header.Set("X-API-Key", testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	availResp := env.do(t, http.MethodGet, fmt.Sprintf("/api/availability?barber_id=%d&date=%s", env.barberID, date), nil, false)
	var avail AvailabilityResponse
	require.NoError(t, json.NewDecoder(availResp.Body).Decode(&avail))
	assert.Empty(t, avail.Slots)

	// Reopen via DELETE override.
	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/schedule/override?barber_id=%d&date=%s", env.barberID, date), nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Add and remove slots.
	resp = env.do(t, http.MethodPost, "/api/schedule/slots", mustJSON(t, SlotRequest{BarberID: env.barberID, Date: date, Time: "08:00"}), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/schedule/slots", mustJSON(t, SlotRequest{BarberID: env.barberID, Date: date, Time: "08:00"}), true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/schedule/slots", mustJSON(t, SlotRequest{BarberID: env.barberID, Date: date, Time: "11:00"}), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	availResp = env.do(t, http.MethodGet, fmt.Sprintf("/api/availability?barber_id=%d&date=%s", env.barberID, date), nil, false)
	require.NoError(t, json.NewDecoder(availResp.Body).Decode(&avail))
	assert.Equal(t, []string{"08:00", "09:00", "10:00"}, avail.Slots)

	// Bad slot format maps to 400.
	resp = env.do(t, http.MethodPost, "/api/schedule/slots", mustJSON(t, SlotRequest{BarberID: env.barberID, Date: date, Time: "8am"}), true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Admin endpoints refuse without a key.
	resp = env.do(t, http.MethodPost, "/api/schedule/slots", mustJSON(t, SlotRequest{BarberID: env.barberID, Date: date, Time: "12:00"}), false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlePattern(t *testing.T) {
	env := setupTestServer(t)

	body := mustJSON(t, PatternRequest{
		BarberID:     env.barberID,
		WorkingDays:  []int{1, 2, 3},
		DefaultSlots: []string{"14:00", "15:00"},
	})
	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/schedule/pattern", body)
	req.Header.Set("X-API-Key", testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	day, err := env.store.EffectiveDay(env.barberID, "2024-06-03") // a Monday
	require.NoError(t, err)
	assert.Equal(t, []string{"14:00", "15:00"}, day.Slots)
}

func TestHandleCalendar(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/calendar?barber_id=%d&year=2024&month=3&week_start=1", env.barberID), nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got CalendarResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.NotEmpty(t, got.Weeks)
	assert.Len(t, got.Weeks[0], 7)

	// March 2024 starts on a Friday: four leading blanks with Monday start.
	blanks := 0
	for _, c := range got.Weeks[0] {
		if c.Blank {
			blanks++
		}
	}
	assert.Equal(t, 4, blanks)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/calendar?barber_id=%d&year=2024&month=13", env.barberID), nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleServices(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/services", mustJSON(t, ServiceRequest{Name: "Haircut", Price: 250000, Duration: 30}), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/services", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Services []model.Service `json:"services"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Services, 1)
	assert.Equal(t, "Haircut", got.Services[0].Name)
}

func TestExportBookings(t *testing.T) {
	env := setupTestServer(t)

	create := CreateBookingRequest{
		BarberID: env.barberID,
		Date:     futureDate(7),
		Time:     "09:00",
		Name:     "Navid",
		Phone:    "+989120000000",
	}
	resp := env.do(t, http.MethodPost, "/api/bookings", mustJSON(t, create), false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/bookings/export", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Amir")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Navid", rows[1][6])
}
