package pipeline

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
)

// Session is the per-user interaction state: which state is selected and
// whether the credential gate was passed. It is passed explicitly to Run.
type Session struct {
	ID            string    `json:"id"`
	Selection     string    `json:"selection"`
	Authenticated bool      `json:"authenticated"`
	CreatedAt     time.Time `json:"created_at"`
	LastSeen      time.Time `json:"last_seen"`
}

// NewSession returns a session with a fresh id and the given selection.
func NewSession(selection string) Session {
	now := time.Now()
	s := Session{ID: uuid.NewString(), CreatedAt: now, LastSeen: now}
	s.Select(selection)
	return s
}

// Select normalizes and stores a selection; empty means TOTAL.
func (s *Session) Select(selection string) {
	if analysis.IsTotal(selection) {
		s.Selection = analysis.SelectionTotal
		return
	}
	s.Selection = strings.ToUpper(strings.TrimSpace(selection))
}

// SessionStore keeps sessions in memory, keyed by id.
type SessionStore struct {
	mu               sync.RWMutex
	sessions         map[string]Session
	defaultSelection string
	idle             time.Duration
}

// NewSessionStore creates a store. Sessions idle for longer than idle are
// dropped on access and swept whenever a session is registered; zero keeps
// them forever.
func NewSessionStore(defaultSelection string, idle time.Duration) *SessionStore {
	return &SessionStore{sessions: map[string]Session{}, defaultSelection: defaultSelection, idle: idle}
}

// Draft returns a session with the default selection without registering
// it. Anonymous requests are served from drafts.
func (st *SessionStore) Draft() Session {
	return NewSession(st.defaultSelection)
}

// Create registers a new session.
func (st *SessionStore) Create() Session {
	s := NewSession(st.defaultSelection)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked(time.Now())
	st.sessions[s.ID] = s
	return s
}

// Rotate drops old (if registered) and registers a session with a fresh id
// that keeps old's selection, then applies fn to it.
func (st *SessionStore) Rotate(old Session, fn func(*Session)) Session {
	s := NewSession(old.Selection)
	if fn != nil {
		fn(&s)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, old.ID)
	st.sweepLocked(time.Now())
	st.sessions[s.ID] = s
	return s
}

// Sweep drops every idle session.
func (st *SessionStore) Sweep() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked(time.Now())
}

func (st *SessionStore) sweepLocked(now time.Time) {
	if st.idle <= 0 {
		return
	}
	for id, s := range st.sessions {
		if now.Sub(s.LastSeen) > st.idle {
			delete(st.sessions, id)
		}
	}
}

// Get returns a copy of the session and refreshes its idle timer.
func (st *SessionStore) Get(id string) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, false
	}
	now := time.Now()
	if st.idle > 0 && now.Sub(s.LastSeen) > st.idle {
		delete(st.sessions, id)
		return Session{}, false
	}
	s.LastSeen = now
	st.sessions[id] = s
	return s, true
}

// Update applies fn to a stored session.
func (st *SessionStore) Update(id string, fn func(*Session)) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, false
	}
	fn(&s)
	s.LastSeen = time.Now()
	st.sessions[id] = s
	return s, true
}

// Delete removes a session.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
