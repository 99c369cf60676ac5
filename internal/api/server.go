// Package api exposes the booking engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"gentlecut/internal/availability"
	"gentlecut/internal/booking"
	"gentlecut/internal/calendar"
	"gentlecut/internal/ledger"
	"gentlecut/internal/model"
	"gentlecut/internal/schedule"
	"gentlecut/internal/service"
)

// SlotProvider resolves bookable slots. Satisfied by the redis-backed
// availability cache; DirectProvider adapts the plain resolver.
type SlotProvider interface {
	AvailableSlots(ctx context.Context, barberID int64, date model.DateKey) ([]string, error)
}

// DirectProvider serves availability straight from the resolver,
// for deployments without redis.
type DirectProvider struct {
	Resolver *availability.Resolver
}

func (p DirectProvider) AvailableSlots(_ context.Context, barberID int64, date model.DateKey) ([]string, error) {
	return p.Resolver.AvailableSlots(barberID, date)
}

// CatalogStore lists and updates the barber and service catalog.
// Implemented by database.DB.
type CatalogStore interface {
	ListBarbers(ctx context.Context) ([]model.Barber, error)
	ListServices(ctx context.Context) ([]model.Service, error)
	UpsertService(ctx context.Context, s model.Service) (int64, error)
}

// Config carries the HTTP server settings.
type Config struct {
	Port           int
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
}

// HTTPServer serves the public availability endpoints and the admin
// schedule endpoints.
type HTTPServer struct {
	server    *http.Server
	bookings  *service.BookingService
	schedules *service.ScheduleService
	slots     SlotProvider
	grid      *calendar.Generator
	catalog   CatalogStore
	flow      *booking.Flow
	sessions  *booking.SessionStore
	limiter   *ipLimiter
	apiKey    string
	log       *zerolog.Logger

	now func() time.Time
}

func NewHTTPServer(cfg Config, bookings *service.BookingService, schedules *service.ScheduleService, slots SlotProvider, grid *calendar.Generator, catalog CatalogStore, flow *booking.Flow, sessions *booking.SessionStore, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		bookings:  bookings,
		schedules: schedules,
		slots:     slots,
		grid:      grid,
		catalog:   catalog,
		flow:      flow,
		sessions:  sessions,
		limiter:   newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		apiKey:    cfg.APIKey,
		log:       logger,
		now:       time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/availability", s.rateLimited(s.handleAvailability))
	mux.HandleFunc("/api/calendar", s.rateLimited(s.handleCalendar))
	mux.HandleFunc("/api/bookings", s.rateLimited(s.handleBookings))
	mux.HandleFunc("/api/bookings/export", s.rateLimited(s.requireAPIKey(s.handleExportBookings)))
	mux.HandleFunc("/api/schedule/override", s.rateLimited(s.requireAPIKey(s.handleOverride)))
	mux.HandleFunc("/api/schedule/slots", s.rateLimited(s.requireAPIKey(s.handleSlots)))
	mux.HandleFunc("/api/schedule/pattern", s.rateLimited(s.requireAPIKey(s.handlePattern)))
	mux.HandleFunc("/api/barbers", s.rateLimited(s.handleBarbers))
	mux.HandleFunc("/api/services", s.rateLimited(s.handleServices))
	mux.HandleFunc("/api/flow", s.rateLimited(s.handleFlowStart))
	mux.HandleFunc("/api/flow/", s.rateLimited(s.handleFlowStep))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("API server started")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

func (s *HTTPServer) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !s.limiter.get(ip).Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

type ipClient struct {
	lim  *rate.Limiter
	seen time.Time
}

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*ipClient
	r       rate.Limit
	burst   int
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}
	return &ipLimiter{
		clients: make(map[string]*ipClient),
		r:       rate.Limit(rps),
		burst:   burst,
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.clients[ip]; ok {
		c.seen = time.Now()
		return c.lim
	}

	// Drop buckets idle for a few minutes so the map stays bounded.
	for addr, c := range l.clients {
		if time.Since(c.seen) > 3*time.Minute {
			delete(l.clients, addr)
		}
	}

	lim := rate.NewLimiter(l.r, l.burst)
	l.clients[ip] = &ipClient{lim: lim, seen: time.Now()}
	return lim
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps engine errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, schedule.ErrUnknownBarber), errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, schedule.ErrDuplicateSlot), errors.Is(err, ledger.ErrSlotTaken):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrInvalidSlotFormat),
		errors.Is(err, service.ErrDateTooSoon),
		errors.Is(err, service.ErrDateTooFar):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
