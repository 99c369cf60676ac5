package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"gentlecut/internal/events"
	"gentlecut/internal/metrics"
	"gentlecut/internal/model"
	"gentlecut/internal/schedule"
)

// SchedulePersister persists barbers and their schedules. Implemented
// by database.DB.
type SchedulePersister interface {
	SaveSchedule(ctx context.Context, barberID int64, sched model.Schedule) error
	UpsertBarber(ctx context.Context, b model.Barber) (int64, error)
}

// ScheduleService applies admin schedule changes: mutate the in-memory
// store, persist the new snapshot, then announce the change on the bus.
type ScheduleService struct {
	store     *schedule.Store
	persister SchedulePersister
	bus       *events.Bus
	logger    *zerolog.Logger
}

func NewScheduleService(store *schedule.Store, persister SchedulePersister, bus *events.Bus, logger *zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		store:     store,
		persister: persister,
		bus:       bus,
		logger:    logger,
	}
}

type scheduleEvent struct {
	BarberID int64         `json:"barber_id"`
	Date     model.DateKey `json:"date,omitempty"`
}

// RegisterBarber stores a new barber with its weekly pattern.
func (s *ScheduleService) RegisterBarber(ctx context.Context, barber model.Barber, pattern model.WeeklyPattern) (int64, error) {
	barberID, err := s.persister.UpsertBarber(ctx, barber)
	if err != nil {
		return 0, fmt.Errorf("persist barber: %w", err)
	}
	if err := s.store.Register(barberID, pattern); err != nil {
		return 0, err
	}
	if err := s.persist(ctx, barberID); err != nil {
		return 0, err
	}

	s.announce(barberID, "", "register_barber")
	s.logger.Info().Int64("barber_id", barberID).Str("name", barber.Name).Msg("Barber registered")
	return barberID, nil
}

// SetOverride replaces the day plan for one date.
func (s *ScheduleService) SetOverride(ctx context.Context, barberID int64, date model.DateKey, ov model.DayOverride) error {
	if err := s.apply(ctx, barberID, func() error {
		return s.store.SetOverride(barberID, date, ov)
	}); err != nil {
		return err
	}
	s.announce(barberID, date, "set_override")
	return nil
}

// ClearOverride reverts one date to the weekly pattern.
func (s *ScheduleService) ClearOverride(ctx context.Context, barberID int64, date model.DateKey) error {
	if err := s.apply(ctx, barberID, func() error {
		return s.store.ClearOverride(barberID, date)
	}); err != nil {
		return err
	}
	s.announce(barberID, date, "clear_override")
	return nil
}

// AddSlot adds one slot to the plan of one date.
func (s *ScheduleService) AddSlot(ctx context.Context, barberID int64, date model.DateKey, slot string) error {
	if err := s.apply(ctx, barberID, func() error {
		return s.store.AddSlot(barberID, date, slot)
	}); err != nil {
		return err
	}
	s.announce(barberID, date, "add_slot")
	return nil
}

// RemoveSlot removes one slot from the plan of one date.
func (s *ScheduleService) RemoveSlot(ctx context.Context, barberID int64, date model.DateKey, slot string) error {
	if err := s.apply(ctx, barberID, func() error {
		return s.store.RemoveSlot(barberID, date, slot)
	}); err != nil {
		return err
	}
	s.announce(barberID, date, "remove_slot")
	return nil
}

// SetWeeklyPattern replaces the default weekly pattern. Overrides are
// untouched, so the event carries no date and invalidates the whole
// barber.
func (s *ScheduleService) SetWeeklyPattern(ctx context.Context, barberID int64, pattern model.WeeklyPattern) error {
	if err := s.apply(ctx, barberID, func() error {
		return s.store.SetWeeklyPattern(barberID, pattern)
	}); err != nil {
		return err
	}
	s.announce(barberID, "", "set_weekly_pattern")
	return nil
}

// apply runs one store mutation and persists the result. When sqlite
// rejects the new snapshot the prior one is restored, so the in-memory
// store never serves a schedule that was not persisted.
func (s *ScheduleService) apply(ctx context.Context, barberID int64, mutate func() error) error {
	prior, err := s.store.Snapshot(barberID)
	if err != nil {
		return err
	}
	if err := mutate(); err != nil {
		return err
	}
	if err := s.persist(ctx, barberID); err != nil {
		if restoreErr := s.store.Restore(barberID, prior); restoreErr != nil {
			s.logger.Error().Err(restoreErr).Int64("barber_id", barberID).Msg("Failed to roll back schedule")
		}
		return err
	}
	return nil
}

func (s *ScheduleService) persist(ctx context.Context, barberID int64) error {
	snapshot, err := s.store.Snapshot(barberID)
	if err != nil {
		return err
	}
	if err := s.persister.SaveSchedule(ctx, barberID, snapshot); err != nil {
		return fmt.Errorf("persist schedule: %w", err)
	}
	return nil
}

func (s *ScheduleService) announce(barberID int64, date model.DateKey, op string) {
	metrics.IncScheduleUpdate(op)
	err := s.bus.PublishJSON(events.ScheduleUpdated, scheduleEvent{BarberID: barberID, Date: date})
	if err != nil {
		s.logger.Warn().Err(err).Str("op", op).Msg("Failed to publish schedule event")
	}
}
