package chat

import (
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// MaxHistory is the number of entries kept per session (5 exchanges).
	MaxHistory = 10

	sweepInterval = time.Minute
)

type (
	Entry struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	session struct {
		entries   []Entry
		expiresAt time.Time // zero: never
	}

	// History keeps the rolling conversation of every session until the session expires.
	History struct {
		mutex     sync.RWMutex
		sessions  map[string]*session
		lastSweep time.Time
		now       func() time.Time
	}
)

func NewHistory() *History {
	return &History{sessions: make(map[string]*session), now: time.Now}
}

// SetExpiry makes the session's conversation expire at the given time.
func (h *History) SetExpiry(sessionID string, at time.Time) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.get(sessionID).expiresAt = at
}

// Append adds entries to the session and keeps only the most recent MaxHistory.
func (h *History) Append(sessionID string, entries ...Entry) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	now := h.now()
	h.sweep(now)

	s := h.get(sessionID)
	if s.expired(now) {
		*s = session{}
	}
	hist := append(s.entries, entries...)
	if len(hist) > MaxHistory {
		hist = append([]Entry(nil), hist[len(hist)-MaxHistory:]...)
	}
	s.entries = hist
}

// Recent returns a copy of the last n entries of the session.
func (h *History) Recent(sessionID string, n int) []Entry {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	s, ok := h.sessions[sessionID]
	if !ok || s.expired(h.now()) {
		return nil
	}
	hist := s.entries
	if n >= 0 && len(hist) > n {
		hist = hist[len(hist)-n:]
	}
	return append([]Entry(nil), hist...)
}

func (h *History) Clear(sessionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.sessions, sessionID)
}

// Len returns the number of sessions held.
func (h *History) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions)
}

// get must be called with the write lock held.
func (h *History) get(sessionID string) *session {
	s, ok := h.sessions[sessionID]
	if !ok {
		s = new(session)
		h.sessions[sessionID] = s
	}
	return s
}

// sweep drops expired sessions, at most once per sweepInterval. Must be called with the write lock held.
func (h *History) sweep(now time.Time) {
	if now.Sub(h.lastSweep) < sweepInterval {
		return
	}
	h.lastSweep = now
	for id, s := range h.sessions {
		if s.expired(now) {
			delete(h.sessions, id)
		}
	}
}

func (s *session) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}
