// Package booking provides the FSM-based booking flow.
package booking

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"gentlecut/internal/model"
)

// State represents the current step of the booking flow.
type State string

const (
	StateSelectBarber   State = "select_barber"
	StateSelectServices State = "select_services"
	StateSelectDateTime State = "select_date_time"
	StateEnterInfo      State = "enter_info"
	StateReview         State = "review"
	StateConfirmed      State = "confirmed"
)

// Session holds the data collected while a customer walks the flow.
type Session struct {
	ID        string
	State     State
	StartedAt time.Time
	UpdatedAt time.Time

	BarberID   int64
	ServiceIDs []int64
	Date       model.DateKey
	Time       string
	Customer   model.CustomerInfo
	Booking    *model.Booking // set once confirmed

	mu sync.Mutex
}

// NewSession creates a session at the first step.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		State:     StateSelectBarber,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// SetState updates the session state.
func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
	s.UpdatedAt = time.Now()
}

// GetState returns the current state.
func (s *Session) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

// IsExpired checks if the session has been idle longer than timeout.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.UpdatedAt) > timeout
}

// Snapshot is a consistent copy of the data a session has collected.
type Snapshot struct {
	ID         string
	State      State
	BarberID   int64
	ServiceIDs []int64
	Date       model.DateKey
	Time       string
	Customer   model.CustomerInfo
	Booking    *model.Booking
}

// Snapshot copies the session data under the lock, so concurrent
// requests on the same session id never observe a half-written step.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:       s.ID,
		State:    s.State,
		BarberID: s.BarberID,
		Date:     s.Date,
		Time:     s.Time,
		Customer: s.Customer,
	}
	snap.ServiceIDs = append([]int64(nil), s.ServiceIDs...)
	if s.Booking != nil {
		b := *s.Booking
		snap.Booking = &b
	}
	return snap
}

func (s *Session) setBarber(barberID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BarberID = barberID
	s.UpdatedAt = time.Now()
}

func (s *Session) setServices(serviceIDs []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ServiceIDs = append([]int64(nil), serviceIDs...)
	s.UpdatedAt = time.Now()
}

func (s *Session) setSlot(date model.DateKey, slot string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Date = date
	s.Time = slot
	s.UpdatedAt = time.Now()
}

func (s *Session) clearTime() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Time = ""
	s.UpdatedAt = time.Now()
}

func (s *Session) setCustomer(info model.CustomerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Customer = info
	s.UpdatedAt = time.Now()
}

func (s *Session) setBooking(b model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Booking = &b
	s.UpdatedAt = time.Now()
}

// FSM manages state transitions for the booking flow. Forward moves are
// strictly linear; every state except Confirmed can step back, and
// Review can fall back to date selection when a confirmation loses the
// race for its slot.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the flow FSM with its predefined transitions.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateSelectBarber:   {StateSelectServices},
			StateSelectServices: {StateSelectDateTime, StateSelectBarber},
			StateSelectDateTime: {StateEnterInfo, StateSelectServices},
			StateEnterInfo:      {StateReview, StateSelectDateTime},
			StateReview:         {StateConfirmed, StateEnterInfo, StateSelectDateTime},
			StateConfirmed:      {}, // terminal; only Reset leaves it
		},
	}
}

// CanTransition checks if a transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition updates the session state if the transition is allowed.
func (f *FSM) Transition(session *Session, to State) bool {
	if f.CanTransition(session.GetState(), to) {
		session.SetState(to)
		return true
	}
	return false
}

// prevState is the single backward step from each state.
var prevState = map[State]State{
	StateSelectServices: StateSelectBarber,
	StateSelectDateTime: StateSelectServices,
	StateEnterInfo:      StateSelectDateTime,
	StateReview:         StateEnterInfo,
}

// SessionStore manages booking flow sessions keyed by session id.
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

// NewSessionStore creates a session store with the given idle timeout.
func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

// Create starts a new session and returns it.
func (ss *SessionStore) Create() *Session {
	session := NewSession()
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[session.ID] = session
	return session
}

// Get returns a live session or nil if unknown or expired.
func (ss *SessionStore) Get(id string) *Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	session, ok := ss.sessions[id]
	if !ok || session.IsExpired(ss.timeout) {
		return nil
	}
	return session
}

// Delete removes a session.
func (ss *SessionStore) Delete(id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, id)
}

// Cleanup removes expired sessions and reports how many were dropped.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for id, session := range ss.sessions {
		if session.IsExpired(ss.timeout) {
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed
}
