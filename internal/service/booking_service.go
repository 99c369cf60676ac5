// Package service couples the in-memory engine with persistence,
// events and booking policy.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gentlecut/internal/events"
	"gentlecut/internal/ledger"
	"gentlecut/internal/metrics"
	"gentlecut/internal/model"
)

var (
	// ErrDateTooSoon is returned when the slot starts before the minimum
	// advance window.
	ErrDateTooSoon = errors.New("booking date is in the past or too soon")
	// ErrDateTooFar is returned when the slot starts beyond the maximum
	// advance window.
	ErrDateTooFar = errors.New("booking date is too far in the future")
)

// BookingStore persists bookings. Implemented by database.DB.
type BookingStore interface {
	InsertBooking(ctx context.Context, b model.Booking) error
	DeleteBooking(ctx context.Context, bookingID int64) error
}

// BookingService creates and deletes bookings: ledger first for the
// conflict guarantee, then sqlite, then the event bus.
type BookingService struct {
	ledger     *ledger.Ledger
	store      BookingStore
	bus        *events.Bus
	logger     *zerolog.Logger
	minAdvance time.Duration
	maxAdvance time.Duration

	now func() time.Time
}

func NewBookingService(l *ledger.Ledger, store BookingStore, bus *events.Bus, logger *zerolog.Logger, minAdvance, maxAdvance time.Duration) *BookingService {
	return &BookingService{
		ledger:     l,
		store:      store,
		bus:        bus,
		logger:     logger,
		minAdvance: minAdvance,
		maxAdvance: maxAdvance,
		now:        time.Now,
	}
}

type bookingEvent struct {
	BookingID int64         `json:"booking_id"`
	BarberID  int64         `json:"barber_id"`
	Date      model.DateKey `json:"date"`
	Time      string        `json:"time"`
}

// ValidateBookingDate checks the slot start against the advance window.
func (s *BookingService) ValidateBookingDate(date model.DateKey, slot string) error {
	start, err := time.Parse("2006-01-02 15:04", string(date)+" "+slot)
	if err != nil {
		return fmt.Errorf("invalid slot start: %w", err)
	}

	now := s.now().UTC()
	if start.Before(now.Add(s.minAdvance)) {
		return ErrDateTooSoon
	}
	if s.maxAdvance > 0 && start.After(now.Add(s.maxAdvance)) {
		return ErrDateTooFar
	}
	return nil
}

// Create validates the advance window, claims the slot in the ledger
// and persists the result. A confirmation code is generated when the
// caller supplies none.
func (s *BookingService) Create(ctx context.Context, params ledger.CreateParams) (model.Booking, error) {
	if err := s.ValidateBookingDate(params.Date, params.Time); err != nil {
		return model.Booking{}, err
	}

	if params.Code == "" {
		params.Code = uuid.NewString()
	}

	booking, err := s.ledger.TryCreate(params)
	if err != nil {
		if errors.Is(err, ledger.ErrSlotTaken) {
			metrics.IncBookingConflict()
		}
		return model.Booking{}, err
	}

	if err := s.store.InsertBooking(ctx, booking); err != nil {
		// Roll the ledger back so the slot is not held by a booking
		// that was never persisted.
		if delErr := s.ledger.Delete(booking.ID); delErr != nil {
			s.logger.Error().Err(delErr).Int64("booking_id", booking.ID).Msg("Failed to roll back ledger entry")
		}
		return model.Booking{}, fmt.Errorf("persist booking: %w", err)
	}

	s.publish(events.BookingCreated, booking)
	metrics.IncBookingCreated()

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("barber_id", booking.BarberID).
		Str("date", string(booking.Date)).
		Str("time", booking.Time).
		Msg("Booking created")

	return booking, nil
}

// Delete removes a booking and frees its slot. The row is deleted
// before the ledger entry: if sqlite fails the slot stays held, so the
// ledger never drifts ahead of what Restore will load on startup.
func (s *BookingService) Delete(ctx context.Context, bookingID int64) error {
	booking, err := s.ledger.Get(bookingID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteBooking(ctx, bookingID); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if err := s.ledger.Delete(bookingID); err != nil {
		return err
	}

	s.publish(events.BookingDeleted, booking)
	metrics.IncBookingDeleted()

	s.logger.Info().Int64("booking_id", bookingID).Msg("Booking deleted")
	return nil
}

// Get returns one booking by id.
func (s *BookingService) Get(bookingID int64) (model.Booking, error) {
	return s.ledger.Get(bookingID)
}

// List returns all bookings ordered by date and time.
func (s *BookingService) List() []model.Booking {
	return s.ledger.ListAll()
}

// ListFor returns the bookings of one barber on one date.
func (s *BookingService) ListFor(barberID int64, date model.DateKey) []model.Booking {
	return s.ledger.ListFor(barberID, date)
}

func (s *BookingService) publish(eventType string, b model.Booking) {
	err := s.bus.PublishJSON(eventType, bookingEvent{
		BookingID: b.ID,
		BarberID:  b.BarberID,
		Date:      b.Date,
		Time:      b.Time,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish booking event")
	}
}
