package booking

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gentlecut/internal/availability"
	"gentlecut/internal/ledger"
	"gentlecut/internal/model"
	"gentlecut/internal/schedule"
)

// ledgerCreator confirms directly against the ledger, standing in for
// the full booking service.
type ledgerCreator struct {
	ledger *ledger.Ledger
}

func (c *ledgerCreator) Create(_ context.Context, params ledger.CreateParams) (model.Booking, error) {
	return c.ledger.TryCreate(params)
}

func newTestFlow(t *testing.T) (*Flow, *ledger.Ledger) {
	t.Helper()
	store := schedule.NewStore()
	require.NoError(t, store.Register(1, model.WeeklyPattern{
		WorkingDays:  []int{6, 0, 1, 2, 3, 4},
		DefaultSlots: []string{"09:00", "10:00", "11:00"},
	}))
	led := ledger.New()
	resolver := availability.NewResolver(store, led)
	logger := zerolog.Nop()
	return NewFlow(store, resolver, &ledgerCreator{ledger: led}, &logger), led
}

func walkToReview(t *testing.T, f *Flow) *Session {
	t.Helper()
	session := NewSession()
	require.NoError(t, f.ChooseBarber(session, 1))
	require.NoError(t, f.ChooseServices(session, []int64{2}))
	require.NoError(t, f.ChooseDateTime(session, "2024-06-08", "09:00"))
	require.NoError(t, f.SetCustomer(session, model.CustomerInfo{Name: "Amir", Phone: "+989121234567"}))
	return session
}

func TestFlow_HappyPath(t *testing.T) {
	f, _ := newTestFlow(t)
	session := walkToReview(t, f)
	require.Equal(t, StateReview, session.GetState())

	booked, refreshed, err := f.Confirm(context.Background(), session)
	require.NoError(t, err)
	assert.Nil(t, refreshed)
	assert.Equal(t, StateConfirmed, session.GetState())
	assert.Equal(t, model.DateKey("2024-06-08"), booked.Date)
	assert.Equal(t, "09:00", booked.Time)
	snap := session.Snapshot()
	require.NotNil(t, snap.Booking)
	assert.Equal(t, booked.ID, snap.Booking.ID)
}

func TestFlow_ChooseBarberUnknown(t *testing.T) {
	f, _ := newTestFlow(t)
	session := NewSession()

	err := f.ChooseBarber(session, 42)
	assert.ErrorIs(t, err, schedule.ErrUnknownBarber)
	assert.Equal(t, StateSelectBarber, session.GetState())
}

func TestFlow_ChooseDateTimeRejectsUnavailableSlot(t *testing.T) {
	f, led := newTestFlow(t)
	session := NewSession()
	require.NoError(t, f.ChooseBarber(session, 1))
	require.NoError(t, f.ChooseServices(session, nil))

	// Slot taken by someone else.
	_, err := led.TryCreate(ledger.CreateParams{BarberID: 1, Date: "2024-06-08", Time: "09:00"})
	require.NoError(t, err)

	err = f.ChooseDateTime(session, "2024-06-08", "09:00")
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// Day off by pattern.
	err = f.ChooseDateTime(session, "2024-06-07", "09:00")
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// An open slot still works.
	assert.NoError(t, f.ChooseDateTime(session, "2024-06-08", "10:00"))
}

func TestFlow_StateGuards(t *testing.T) {
	f, _ := newTestFlow(t)
	session := NewSession()

	assert.ErrorIs(t, f.ChooseServices(session, nil), ErrBadTransition)
	assert.ErrorIs(t, f.ChooseDateTime(session, "2024-06-08", "09:00"), ErrBadTransition)
	assert.ErrorIs(t, f.SetCustomer(session, model.CustomerInfo{Name: "a", Phone: "b"}), ErrBadTransition)
	_, _, err := f.Confirm(context.Background(), session)
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestFlow_ConfirmLostRaceReturnsToDateSelection(t *testing.T) {
	f, led := newTestFlow(t)
	session := walkToReview(t, f)

	// Another customer confirms the same slot between review and confirm.
	_, err := led.TryCreate(ledger.CreateParams{BarberID: 1, Date: "2024-06-08", Time: "09:00"})
	require.NoError(t, err)

	_, refreshed, err := f.Confirm(context.Background(), session)
	assert.ErrorIs(t, err, ledger.ErrSlotTaken)
	assert.Equal(t, StateSelectDateTime, session.GetState())
	assert.Empty(t, session.Snapshot().Time)
	// The refreshed list no longer offers the contested slot.
	assert.Equal(t, []string{"10:00", "11:00"}, refreshed)

	// Exactly one booking exists for the slot.
	assert.Len(t, led.ListFor(1, "2024-06-08"), 1)

	// The flow can continue with a fresh slot.
	require.NoError(t, f.ChooseDateTime(session, "2024-06-08", "10:00"))
	require.NoError(t, f.SetCustomer(session, model.CustomerInfo{Name: "Amir", Phone: "+989121234567"}))
	_, _, err = f.Confirm(context.Background(), session)
	assert.NoError(t, err)
}

func TestFlow_BackNavigation(t *testing.T) {
	f, _ := newTestFlow(t)
	session := walkToReview(t, f)

	require.NoError(t, f.Back(session))
	assert.Equal(t, StateEnterInfo, session.GetState())
	require.NoError(t, f.Back(session))
	assert.Equal(t, StateSelectDateTime, session.GetState())
	require.NoError(t, f.Back(session))
	assert.Equal(t, StateSelectServices, session.GetState())
	require.NoError(t, f.Back(session))
	assert.Equal(t, StateSelectBarber, session.GetState())

	// No further back from the first step.
	assert.ErrorIs(t, f.Back(session), ErrBadTransition)
}

func TestFlow_ConfirmedIsTerminalUntilReset(t *testing.T) {
	f, _ := newTestFlow(t)
	session := walkToReview(t, f)
	_, _, err := f.Confirm(context.Background(), session)
	require.NoError(t, err)

	assert.ErrorIs(t, f.Back(session), ErrBadTransition)
	_, _, err = f.Confirm(context.Background(), session)
	assert.ErrorIs(t, err, ErrBadTransition)

	f.Reset(session)
	assert.Equal(t, StateSelectBarber, session.GetState())
	snap := session.Snapshot()
	assert.Nil(t, snap.Booking)
	assert.Zero(t, snap.BarberID)
}

func TestFlow_ConcurrentConfirmAndSnapshot(t *testing.T) {
	f, _ := newTestFlow(t)
	session := walkToReview(t, f)

	var wg sync.WaitGroup
	start := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_, _, _ = f.Confirm(context.Background(), session)
	}()
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				snap := session.Snapshot()
				_ = snap.Time
				_ = snap.Booking
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, StateConfirmed, session.GetState())
	require.NotNil(t, session.Snapshot().Booking)
}
