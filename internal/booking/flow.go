package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"gentlecut/internal/availability"
	"gentlecut/internal/ledger"
	"gentlecut/internal/model"
	"gentlecut/internal/schedule"
)

var (
	// ErrBadTransition is returned when an operation is invoked in the
	// wrong flow state.
	ErrBadTransition = errors.New("operation not allowed in current state")
	// ErrSlotUnavailable is returned when the chosen slot is not in the
	// current availability list.
	ErrSlotUnavailable = errors.New("slot not available")
)

// Creator confirms a booking. Implemented by the booking service, which
// couples the ledger insert with persistence and events.
type Creator interface {
	Create(ctx context.Context, params ledger.CreateParams) (model.Booking, error)
}

// Flow drives a customer through the booking steps. Each step guards
// its state, so callers cannot skip ahead with a stale or tampered
// session.
type Flow struct {
	fsm      *FSM
	store    *schedule.Store
	resolver *availability.Resolver
	creator  Creator
	logger   *zerolog.Logger
}

// NewFlow creates a booking flow.
func NewFlow(store *schedule.Store, resolver *availability.Resolver, creator Creator, logger *zerolog.Logger) *Flow {
	return &Flow{
		fsm:      NewFSM(),
		store:    store,
		resolver: resolver,
		creator:  creator,
		logger:   logger,
	}
}

// ChooseBarber records the barber and advances to service selection.
func (f *Flow) ChooseBarber(session *Session, barberID int64) error {
	if session.GetState() != StateSelectBarber {
		return fmt.Errorf("choose barber: %w", ErrBadTransition)
	}
	if !f.store.Has(barberID) {
		return fmt.Errorf("barber %d: %w", barberID, schedule.ErrUnknownBarber)
	}
	session.setBarber(barberID)
	f.fsm.Transition(session, StateSelectServices)
	return nil
}

// ChooseServices records the selected services and advances to date and
// time selection.
func (f *Flow) ChooseServices(session *Session, serviceIDs []int64) error {
	if session.GetState() != StateSelectServices {
		return fmt.Errorf("choose services: %w", ErrBadTransition)
	}
	session.setServices(serviceIDs)
	f.fsm.Transition(session, StateSelectDateTime)
	return nil
}

// ChooseDateTime records the chosen slot. The slot must be present in
// the current availability list for the barber and date.
func (f *Flow) ChooseDateTime(session *Session, date model.DateKey, slot string) error {
	if session.GetState() != StateSelectDateTime {
		return fmt.Errorf("choose date/time: %w", ErrBadTransition)
	}

	slots, err := f.resolver.AvailableSlots(session.Snapshot().BarberID, date)
	if err != nil {
		return err
	}
	found := false
	for _, s := range slots {
		if s == slot {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s %s: %w", date, slot, ErrSlotUnavailable)
	}

	session.setSlot(date, slot)
	f.fsm.Transition(session, StateEnterInfo)
	return nil
}

// SetCustomer records the customer details and advances to review.
func (f *Flow) SetCustomer(session *Session, info model.CustomerInfo) error {
	if session.GetState() != StateEnterInfo {
		return fmt.Errorf("enter info: %w", ErrBadTransition)
	}
	if info.Name == "" || info.Phone == "" {
		return errors.New("customer name and phone are required")
	}
	session.setCustomer(info)
	f.fsm.Transition(session, StateReview)
	return nil
}

// Confirm re-invokes the booking creation from the review step. On a
// lost race for the slot the flow returns to date selection and hands
// back the refreshed availability list instead of proceeding.
func (f *Flow) Confirm(ctx context.Context, session *Session) (model.Booking, []string, error) {
	if session.GetState() != StateReview {
		return model.Booking{}, nil, fmt.Errorf("confirm: %w", ErrBadTransition)
	}

	snap := session.Snapshot()
	created, err := f.creator.Create(ctx, ledger.CreateParams{
		BarberID:   snap.BarberID,
		Date:       snap.Date,
		Time:       snap.Time,
		ServiceIDs: snap.ServiceIDs,
		Customer:   snap.Customer,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrSlotTaken) {
			f.logger.Info().
				Int64("barber_id", snap.BarberID).
				Str("date", string(snap.Date)).
				Str("time", snap.Time).
				Msg("confirmation lost slot race, returning to date selection")

			f.fsm.Transition(session, StateSelectDateTime)
			session.clearTime()
			refreshed, rerr := f.resolver.AvailableSlots(snap.BarberID, snap.Date)
			if rerr != nil {
				return model.Booking{}, nil, rerr
			}
			return model.Booking{}, refreshed, err
		}
		return model.Booking{}, nil, err
	}

	session.setBooking(created)
	f.fsm.Transition(session, StateConfirmed)
	return created, nil, nil
}

// Back steps the flow one state backwards. Confirmed is terminal and
// cannot step back; restart with Reset instead.
func (f *Flow) Back(session *Session) error {
	prev, ok := prevState[session.GetState()]
	if !ok {
		return fmt.Errorf("back: %w", ErrBadTransition)
	}
	if !f.fsm.Transition(session, prev) {
		return fmt.Errorf("back: %w", ErrBadTransition)
	}
	return nil
}

// Reset clears the session data and restarts at barber selection.
func (f *Flow) Reset(session *Session) {
	session.mu.Lock()
	session.BarberID = 0
	session.ServiceIDs = nil
	session.Date = ""
	session.Time = ""
	session.Customer = model.CustomerInfo{}
	session.Booking = nil
	session.mu.Unlock()
	session.SetState(StateSelectBarber)
}
