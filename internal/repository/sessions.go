package repository

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session owns exactly one Conversation for its lifetime.
type Session struct {
	*Conversation

	ID        string
	CreatedAt time.Time

	pending atomic.Bool
}

// NewSession builds a session with an empty conversation.
func NewSession(id string, createdAt time.Time) *Session {
	return &Session{
		Conversation: NewConversation(),
		ID:           id,
		CreatedAt:    createdAt,
	}
}

// Begin marks a reply as pending. It returns false when one already is.
func (s *Session) Begin() bool {
	return s.pending.CompareAndSwap(false, true)
}

// End clears the pending mark set by Begin.
func (s *Session) End() {
	s.pending.Store(false)
}

// Pending reports whether a reply is being generated for this session.
func (s *Session) Pending() bool {
	return s.pending.Load()
}

// Sessions is the in-process registry used by surfaces that host more than
// one session. Sessions are discarded on Delete or process exit.
type Sessions struct {
	mu   sync.RWMutex
	byID map[string]*Session
	now  func() time.Time
}

// NewSessions returns an empty registry.
func NewSessions() *Sessions {
	return &Sessions{
		byID: make(map[string]*Session),
		now:  time.Now,
	}
}

// Create registers a new empty session under a fresh ID.
func (r *Sessions) Create() *Session {
	sess := NewSession(newUUID(), r.now().UTC())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[sess.ID] = sess
	return sess
}

// Get returns the session registered under id.
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byID[id]
	return sess, ok
}

// Delete ends a session. It reports whether the session existed.
func (r *Sessions) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	return true
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

var newUUID = func() string {
	return uuid.NewString()
}
