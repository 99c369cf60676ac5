package model

import "time"

// Barber represents a provider offering bookable appointments.
type Barber struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
	IsActive bool   `json:"is_active"`
}

// Service represents a bookable service from the shop catalog.
type Service struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Duration int    `json:"duration"` // minutes
}

// CustomerInfo holds the customer details attached to a booking.
type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Photo string `json:"photo,omitempty"` // base64-encoded image
}

// WeeklyPattern is the default recurring availability of a barber:
// the weekdays worked by default (0=Sunday..6=Saturday) and the slot
// list that applies on any default working day.
type WeeklyPattern struct {
	WorkingDays  []int    `json:"working_days"`
	DefaultSlots []string `json:"default_slots"`
}

// WorksOn reports whether weekday is a default working day.
func (p WeeklyPattern) WorksOn(weekday int) bool {
	for _, d := range p.WorkingDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// DayOverride fully replaces the weekly default for one date. Slots are
// not merged with the default list.
type DayOverride struct {
	IsWorking bool     `json:"is_working"`
	Slots     []string `json:"slots"`
}

// EffectiveDay is the merge result for one barber/date: the override if
// one exists, otherwise the weekly pattern applied to that weekday.
type EffectiveDay struct {
	IsWorking bool     `json:"is_working"`
	Slots     []string `json:"slots"`
}

// Schedule is the persisted representation of one barber's availability.
type Schedule struct {
	WeeklyPattern WeeklyPattern           `json:"weekly_pattern"`
	Overrides     map[DateKey]DayOverride `json:"overrides"`
}

// Booking represents a confirmed appointment. Immutable after creation
// except for deletion.
type Booking struct {
	ID         int64        `json:"id"`
	Code       string       `json:"code,omitempty"` // confirmation code shown to the customer
	BarberID   int64        `json:"barber_id"`
	Date       DateKey      `json:"date"`
	Time       string       `json:"time"` // HH:MM
	ServiceIDs []int64      `json:"service_ids,omitempty"`
	Customer   CustomerInfo `json:"customer"`
	CreatedAt  time.Time    `json:"created_at"`
}

// HasSlot reports whether the booking carries both a date and a time.
// Records restored from older data may miss either; they are kept but
// never occupy a slot.
func (b *Booking) HasSlot() bool {
	return b.Date != "" && b.Time != ""
}
