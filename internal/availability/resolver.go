// Package availability computes the bookable slot list for a barber/date.
package availability

import (
	"gentlecut/internal/ledger"
	"gentlecut/internal/model"
	"gentlecut/internal/schedule"
)

// Resolver composes the schedule store with the booking ledger. It holds
// no state of its own: repeated calls with unchanged store and ledger
// state return identical results.
type Resolver struct {
	store  *schedule.Store
	ledger *ledger.Ledger
}

// NewResolver creates a resolver over the given store and ledger.
func NewResolver(store *schedule.Store, ledger *ledger.Ledger) *Resolver {
	return &Resolver{store: store, ledger: ledger}
}

// AvailableSlots returns the effective slots for the date minus the ones
// already booked, ascending. A day off yields an empty list; an
// unregistered barber yields schedule.ErrUnknownBarber so callers can
// tell "no schedule" from "fully booked". Past dates are not rejected
// here; that policy belongs to the caller.
func (r *Resolver) AvailableSlots(barberID int64, date model.DateKey) ([]string, error) {
	day, err := r.store.EffectiveDay(barberID, date)
	if err != nil {
		return nil, err
	}
	if !day.IsWorking {
		return nil, nil
	}

	booked := make(map[string]struct{})
	for _, b := range r.ledger.ListFor(barberID, date) {
		booked[b.Time] = struct{}{}
	}

	// day.Slots is already unique and ascending; filtering preserves both.
	var free []string
	for _, slot := range day.Slots {
		if _, taken := booked[slot]; !taken {
			free = append(free, slot)
		}
	}
	return free, nil
}
