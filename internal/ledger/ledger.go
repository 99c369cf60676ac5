// Package ledger is the authoritative store of confirmed bookings.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gentlecut/internal/model"
)

var (
	// ErrSlotTaken is returned when a non-deleted booking already occupies
	// the (barber, date, time) triple.
	ErrSlotTaken = errors.New("slot already booked")
	// ErrNotFound is returned when a booking id does not exist.
	ErrNotFound = errors.New("booking not found")
)

type slotKey struct {
	barberID int64
	date     model.DateKey
	time     string
}

// incomplete records sort after every dated entry.
const maxSortKey = "\xff\xff"

func sortKeyOf(b *model.Booking) string {
	if !b.HasSlot() {
		return maxSortKey
	}
	return string(b.Date) + " " + b.Time
}

// CreateParams carries the payload for a new booking.
type CreateParams struct {
	BarberID   int64
	Date       model.DateKey
	Time       string
	Code       string
	ServiceIDs []int64
	Customer   model.CustomerInfo
}

// Ledger keeps all non-deleted bookings ordered by (date, time) and
// guarantees that at most one booking occupies any slot. The existence
// check and the insert of TryCreate run inside one critical section, so
// two concurrent calls for the same slot leave exactly one booking.
type Ledger struct {
	mu      sync.RWMutex
	nextID  int64
	entries []*model.Booking // ascending by sortKeyOf, stable
	byID    map[int64]*model.Booking
	bySlot  map[slotKey]int64

	now func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		nextID: 1,
		byID:   make(map[int64]*model.Booking),
		bySlot: make(map[slotKey]int64),
		now:    time.Now,
	}
}

// TryCreate checks the slot and inserts the booking as a single atomic
// step. It fails with ErrSlotTaken if the slot is already occupied and
// otherwise returns the stored booking with a fresh monotonic id.
func (l *Ledger) TryCreate(p CreateParams) (model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := slotKey{barberID: p.BarberID, date: p.Date, time: p.Time}
	if _, taken := l.bySlot[key]; taken {
		return model.Booking{}, fmt.Errorf("barber %d %s %s: %w", p.BarberID, p.Date, p.Time, ErrSlotTaken)
	}

	b := &model.Booking{
		ID:         l.nextID,
		Code:       p.Code,
		BarberID:   p.BarberID,
		Date:       p.Date,
		Time:       p.Time,
		ServiceIDs: append([]int64(nil), p.ServiceIDs...),
		Customer:   p.Customer,
		CreatedAt:  l.now(),
	}
	l.nextID++
	l.insert(b)
	return *b, nil
}

// insert places b at its ordered position. The index is maintained
// incrementally; confirmations never re-sort the whole collection.
func (l *Ledger) insert(b *model.Booking) {
	key := sortKeyOf(b)
	// First position whose key is strictly greater: equal keys keep
	// insertion order, which keeps incomplete records stable at the tail.
	i := sort.Search(len(l.entries), func(i int) bool {
		return sortKeyOf(l.entries[i]) > key
	})
	l.entries = append(l.entries, nil)
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = b

	l.byID[b.ID] = b
	if b.HasSlot() {
		l.bySlot[slotKey{barberID: b.BarberID, date: b.Date, time: b.Time}] = b.ID
	}
}

// Delete removes a booking. The freed slot is immediately visible to
// subsequent availability queries.
func (l *Ledger) Delete(bookingID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byID[bookingID]
	if !ok {
		return fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
	}

	delete(l.byID, bookingID)
	if b.HasSlot() {
		delete(l.bySlot, slotKey{barberID: b.BarberID, date: b.Date, time: b.Time})
	}
	for i, entry := range l.entries {
		if entry.ID == bookingID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns one booking by id.
func (l *Ledger) Get(bookingID int64) (model.Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.byID[bookingID]
	if !ok {
		return model.Booking{}, fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
	}
	return cloneBooking(b), nil
}

// ListFor returns all bookings for one barber/date, ascending by time.
func (l *Ledger) ListFor(barberID int64, date model.DateKey) []model.Booking {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.Booking
	for _, b := range l.entries {
		if b.BarberID == barberID && b.Date == date {
			out = append(out, cloneBooking(b))
		}
	}
	return out
}

// ListAll returns every booking ascending by (date, time). Records with
// a missing date or time sort after all dated entries but keep their
// relative insertion order.
func (l *Ledger) ListAll() []model.Booking {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.Booking, len(l.entries))
	for i, b := range l.entries {
		out[i] = cloneBooking(b)
	}
	return out
}

// Restore reloads persisted bookings, keeping their ids. Records with a
// missing date or time are kept but never occupy a slot. A duplicate
// occupied slot fails with ErrSlotTaken.
func (l *Ledger) Restore(bookings []model.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range bookings {
		b := bookings[i]
		if b.HasSlot() {
			key := slotKey{barberID: b.BarberID, date: b.Date, time: b.Time}
			if _, taken := l.bySlot[key]; taken {
				return fmt.Errorf("booking %d at %s %s: %w", b.ID, b.Date, b.Time, ErrSlotTaken)
			}
		}
		stored := cloneBooking(&b)
		l.insert(&stored)
		if b.ID >= l.nextID {
			l.nextID = b.ID + 1
		}
	}
	return nil
}

func cloneBooking(b *model.Booking) model.Booking {
	out := *b
	out.ServiceIDs = append([]int64(nil), b.ServiceIDs...)
	return out
}
