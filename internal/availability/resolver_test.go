package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gentlecut/internal/ledger"
	"gentlecut/internal/model"
	"gentlecut/internal/schedule"
)

func newTestResolver(t *testing.T) (*Resolver, *schedule.Store, *ledger.Ledger) {
	t.Helper()
	store := schedule.NewStore()
	require.NoError(t, store.Register(1, model.WeeklyPattern{
		WorkingDays:  []int{6, 0, 1, 2, 3, 4}, // all but Friday
		DefaultSlots: []string{"09:00", "10:00", "11:00"},
	}))
	led := ledger.New()
	return NewResolver(store, led), store, led
}

func TestAvailableSlots_DefaultDayMinusBooked(t *testing.T) {
	r, _, led := newTestResolver(t)

	// 2024-06-08 is a Saturday, a working day.
	_, err := led.TryCreate(ledger.CreateParams{BarberID: 1, Date: "2024-06-08", Time: "09:00"})
	require.NoError(t, err)

	slots, err := r.AvailableSlots(1, "2024-06-08")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00"}, slots)
}

func TestAvailableSlots_DayOffIgnoresBookings(t *testing.T) {
	r, _, led := newTestResolver(t)

	// A booking on a Friday is irrelevant since Friday is off by pattern.
	_, err := led.TryCreate(ledger.CreateParams{BarberID: 1, Date: "2024-06-07", Time: "09:00"})
	require.NoError(t, err)

	slots, err := r.AvailableSlots(1, "2024-06-07")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableSlots_ClosedOverrideBeatsEverything(t *testing.T) {
	r, store, led := newTestResolver(t)

	require.NoError(t, store.SetOverride(1, "2024-06-08", model.DayOverride{IsWorking: false}))
	_, err := led.TryCreate(ledger.CreateParams{BarberID: 1, Date: "2024-06-08", Time: "09:00"})
	require.NoError(t, err)

	slots, err := r.AvailableSlots(1, "2024-06-08")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableSlots_OverrideSlotsReplaceDefaults(t *testing.T) {
	r, store, _ := newTestResolver(t)

	require.NoError(t, store.SetOverride(1, "2024-06-08", model.DayOverride{
		IsWorking: true,
		Slots:     []string{"14:00", "15:00"},
	}))

	slots, err := r.AvailableSlots(1, "2024-06-08")
	require.NoError(t, err)
	assert.Equal(t, []string{"14:00", "15:00"}, slots)
}

func TestAvailableSlots_UnknownBarber(t *testing.T) {
	r, _, _ := newTestResolver(t)

	_, err := r.AvailableSlots(99, "2024-06-08")
	assert.ErrorIs(t, err, schedule.ErrUnknownBarber)
}

func TestAvailableSlots_Idempotent(t *testing.T) {
	r, _, led := newTestResolver(t)
	_, err := led.TryCreate(ledger.CreateParams{BarberID: 1, Date: "2024-06-08", Time: "10:00"})
	require.NoError(t, err)

	first, err := r.AvailableSlots(1, "2024-06-08")
	require.NoError(t, err)
	second, err := r.AvailableSlots(1, "2024-06-08")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAvailableSlots_DeletedBookingFreesSlot(t *testing.T) {
	r, _, led := newTestResolver(t)

	b, err := led.TryCreate(ledger.CreateParams{BarberID: 1, Date: "2024-06-08", Time: "09:00"})
	require.NoError(t, err)

	slots, err := r.AvailableSlots(1, "2024-06-08")
	require.NoError(t, err)
	assert.NotContains(t, slots, "09:00")

	require.NoError(t, led.Delete(b.ID))

	slots, err = r.AvailableSlots(1, "2024-06-08")
	require.NoError(t, err)
	assert.Contains(t, slots, "09:00")
}

func TestAvailableSlots_EndToEnd(t *testing.T) {
	r, _, led := newTestResolver(t)

	// Friday 2024-06-07 is off; a booking there changes nothing.
	_, err := led.TryCreate(ledger.CreateParams{BarberID: 1, Date: "2024-06-07", Time: "10:00"})
	require.NoError(t, err)
	friday, err := r.AvailableSlots(1, "2024-06-07")
	require.NoError(t, err)
	assert.Empty(t, friday)

	// The following Saturday with one booking at 09:00.
	_, err = led.TryCreate(ledger.CreateParams{BarberID: 1, Date: "2024-06-08", Time: "09:00"})
	require.NoError(t, err)
	saturday, err := r.AvailableSlots(1, "2024-06-08")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00"}, saturday)
}
