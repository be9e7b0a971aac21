package identity

import (
	"sync"
	"time"
)

// EventType is the kind of session change.
type EventType string

// Session event types
const (
	EventLoggedIn  EventType = "logged_in"
	EventLoggedOut EventType = "logged_out"
)

// Event describes a change of the session's user.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	User      *User     `json:"user,omitempty"`
	At        time.Time `json:"at"`
}

// Listener receives session events. Listeners are called synchronously and
// must not block.
type Listener func(Event)

// Session holds the user of one login session and notifies subscribers when
// it changes. It is safe for concurrent use.
type Session struct {
	id string

	mu        sync.RWMutex
	user      *User
	listeners map[int]Listener
	nextID    int
}

// NewSession creates an anonymous session.
func NewSession(id string) *Session {
	return &Session{id: id, listeners: make(map[int]Listener)}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the current user, if any.
func (s *Session) Snapshot() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// LoggedIn reports whether a user is attached to the session.
func (s *Session) LoggedIn() bool {
	_, ok := s.Snapshot()
	return ok
}

// SetUser attaches user to the session and notifies subscribers.
func (s *Session) SetUser(user User) {
	s.mu.Lock()
	u := user
	s.user = &u
	s.mu.Unlock()

	s.notify(Event{Type: EventLoggedIn, SessionID: s.id, User: &user, At: time.Now()})
}

// Clear detaches the user and notifies subscribers. Clearing an anonymous
// session does nothing.
func (s *Session) Clear() {
	s.mu.Lock()
	had := s.user != nil
	s.user = nil
	s.mu.Unlock()

	if had {
		s.notify(Event{Type: EventLoggedOut, SessionID: s.id, At: time.Now()})
	}
}

// Subscribe registers l for session events and returns a function that
// removes it.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) notify(evt Event) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(evt)
	}
}
