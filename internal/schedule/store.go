// Package schedule owns per-barber weekly patterns and date overrides.
package schedule

import (
	"errors"
	"fmt"
	"sync"

	"gentlecut/internal/model"
)

var (
	// ErrUnknownBarber is returned when no schedule is registered for a barber.
	ErrUnknownBarber = errors.New("unknown barber")
	// ErrInvalidSlotFormat is returned when a slot string is not zero-padded HH:MM.
	ErrInvalidSlotFormat = errors.New("invalid slot format")
	// ErrDuplicateSlot is returned when a slot already exists in the target list.
	ErrDuplicateSlot = errors.New("duplicate slot")
)

// barberSchedule is the store-internal state for one barber. Override
// entries are replaced wholesale and never mutated in place, so values
// handed out earlier stay valid.
type barberSchedule struct {
	pattern   model.WeeklyPattern
	overrides map[model.DateKey]model.DayOverride
}

// Store keeps the recurring weekly pattern and the date-keyed overrides
// for every registered barber. Reads run concurrently; writes are
// serialized by the store mutex.
type Store struct {
	mu      sync.RWMutex
	barbers map[int64]*barberSchedule
}

// NewStore creates an empty schedule store.
func NewStore() *Store {
	return &Store{barbers: make(map[int64]*barberSchedule)}
}

// Register creates the schedule for a newly onboarded barber with the
// given default weekly pattern. Registering an existing barber replaces
// the pattern but keeps the overrides.
func (s *Store) Register(barberID int64, pattern model.WeeklyPattern) error {
	normalized, err := normalizePattern(pattern)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.barbers[barberID]; ok {
		existing.pattern = normalized
		return nil
	}
	s.barbers[barberID] = &barberSchedule{
		pattern:   normalized,
		overrides: make(map[model.DateKey]model.DayOverride),
	}
	return nil
}

// EffectiveDay returns the merged availability for one barber/date: the
// override verbatim if one exists, otherwise the weekly pattern applied
// to that weekday. Both the resolver and the calendar grid go through
// this single merge rule.
func (s *Store) EffectiveDay(barberID int64, date model.DateKey) (model.EffectiveDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, ok := s.barbers[barberID]
	if !ok {
		return model.EffectiveDay{}, fmt.Errorf("barber %d: %w", barberID, ErrUnknownBarber)
	}
	return sched.effectiveDay(date), nil
}

func (b *barberSchedule) effectiveDay(date model.DateKey) model.EffectiveDay {
	if ov, ok := b.overrides[date]; ok {
		return model.EffectiveDay{IsWorking: ov.IsWorking, Slots: copySlots(ov.Slots)}
	}
	return model.EffectiveDay{
		IsWorking: b.pattern.WorksOn(date.Weekday()),
		Slots:     copySlots(b.pattern.DefaultSlots),
	}
}

// SetOverride validates the override slots and replaces the entire
// override entry for that date. The previous entry is discarded, never
// mutated.
func (s *Store) SetOverride(barberID int64, date model.DateKey, ov model.DayOverride) error {
	slots, err := normalizeSlots(ov.Slots)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.barbers[barberID]
	if !ok {
		return fmt.Errorf("barber %d: %w", barberID, ErrUnknownBarber)
	}
	sched.overrides[date] = model.DayOverride{IsWorking: ov.IsWorking, Slots: slots}
	return nil
}

// ClearOverride removes the override for a date, reverting the day to
// the weekly default. Clearing an absent override is a no-op.
func (s *Store) ClearOverride(barberID int64, date model.DateKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.barbers[barberID]
	if !ok {
		return fmt.Errorf("barber %d: %w", barberID, ErrUnknownBarber)
	}
	delete(sched.overrides, date)
	return nil
}

// AddSlot materializes an override from the current effective day if
// none exists yet, then adds the slot to it. Adding an existing slot
// fails with ErrDuplicateSlot.
func (s *Store) AddSlot(barberID int64, date model.DateKey, slot string) error {
	if !model.ValidSlot(slot) {
		return fmt.Errorf("slot %q: %w", slot, ErrInvalidSlotFormat)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.barbers[barberID]
	if !ok {
		return fmt.Errorf("barber %d: %w", barberID, ErrUnknownBarber)
	}

	day := sched.effectiveDay(date)
	for _, existing := range day.Slots {
		if existing == slot {
			return fmt.Errorf("slot %q: %w", slot, ErrDuplicateSlot)
		}
	}
	slots := model.SortSlots(append(day.Slots, slot))
	sched.overrides[date] = model.DayOverride{IsWorking: day.IsWorking, Slots: slots}
	return nil
}

// RemoveSlot materializes an override from the current effective day if
// none exists yet, then removes the slot. Removing the last slot leaves
// an empty but working day, which is distinct from a day off.
func (s *Store) RemoveSlot(barberID int64, date model.DateKey, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.barbers[barberID]
	if !ok {
		return fmt.Errorf("barber %d: %w", barberID, ErrUnknownBarber)
	}

	day := sched.effectiveDay(date)
	slots := make([]string, 0, len(day.Slots))
	for _, existing := range day.Slots {
		if existing != slot {
			slots = append(slots, existing)
		}
	}
	sched.overrides[date] = model.DayOverride{IsWorking: day.IsWorking, Slots: slots}
	return nil
}

// SetWeeklyPattern replaces the default working days and slots. Existing
// overrides are not touched.
func (s *Store) SetWeeklyPattern(barberID int64, pattern model.WeeklyPattern) error {
	normalized, err := normalizePattern(pattern)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.barbers[barberID]
	if !ok {
		return fmt.Errorf("barber %d: %w", barberID, ErrUnknownBarber)
	}
	sched.pattern = normalized
	return nil
}

// Snapshot returns the full persisted representation of one barber's
// schedule: weekly pattern plus all overrides.
func (s *Store) Snapshot(barberID int64) (model.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, ok := s.barbers[barberID]
	if !ok {
		return model.Schedule{}, fmt.Errorf("barber %d: %w", barberID, ErrUnknownBarber)
	}

	snap := model.Schedule{
		WeeklyPattern: model.WeeklyPattern{
			WorkingDays:  append([]int(nil), sched.pattern.WorkingDays...),
			DefaultSlots: copySlots(sched.pattern.DefaultSlots),
		},
		Overrides: make(map[model.DateKey]model.DayOverride, len(sched.overrides)),
	}
	for date, ov := range sched.overrides {
		snap.Overrides[date] = model.DayOverride{IsWorking: ov.IsWorking, Slots: copySlots(ov.Slots)}
	}
	return snap, nil
}

// Restore loads a persisted schedule, replacing the barber's entire
// state: pattern and overrides alike. Overrides absent from the
// snapshot are dropped.
func (s *Store) Restore(barberID int64, sched model.Schedule) error {
	normalized, err := normalizePattern(sched.WeeklyPattern)
	if err != nil {
		return err
	}
	overrides := make(map[model.DateKey]model.DayOverride, len(sched.Overrides))
	for date, ov := range sched.Overrides {
		slots, err := normalizeSlots(ov.Slots)
		if err != nil {
			return fmt.Errorf("override %s: %w", date, err)
		}
		overrides[date] = model.DayOverride{IsWorking: ov.IsWorking, Slots: slots}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.barbers[barberID] = &barberSchedule{pattern: normalized, overrides: overrides}
	return nil
}

// Has reports whether a schedule is registered for the barber.
func (s *Store) Has(barberID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.barbers[barberID]
	return ok
}

// BarberIDs returns the ids of all registered barbers.
func (s *Store) BarberIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.barbers))
	for id := range s.barbers {
		ids = append(ids, id)
	}
	return ids
}

// normalizeSlots validates format and uniqueness and returns a fresh
// ascending copy.
func normalizeSlots(slots []string) ([]string, error) {
	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if !model.ValidSlot(slot) {
			return nil, fmt.Errorf("slot %q: %w", slot, ErrInvalidSlotFormat)
		}
		if _, dup := seen[slot]; dup {
			return nil, fmt.Errorf("slot %q: %w", slot, ErrDuplicateSlot)
		}
		seen[slot] = struct{}{}
	}
	return model.SortSlots(slots), nil
}

func normalizePattern(pattern model.WeeklyPattern) (model.WeeklyPattern, error) {
	for _, day := range pattern.WorkingDays {
		if day < 0 || day > 6 {
			return model.WeeklyPattern{}, fmt.Errorf("weekday index %d out of range", day)
		}
	}
	slots, err := normalizeSlots(pattern.DefaultSlots)
	if err != nil {
		return model.WeeklyPattern{}, err
	}
	return model.WeeklyPattern{
		WorkingDays:  append([]int(nil), pattern.WorkingDays...),
		DefaultSlots: slots,
	}, nil
}

func copySlots(slots []string) []string {
	out := make([]string, len(slots))
	copy(out, slots)
	return out
}
