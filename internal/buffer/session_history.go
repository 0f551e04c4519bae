package buffer

import "sync"

// SessionHistory retains recent broadcast envelopes per session, plus a
// global stream for unfiltered events. It is wired into the broadcaster's
// record hook; an empty session id addresses the global stream.
type SessionHistory struct {
	mu       sync.Mutex
	capacity int
	global   *EventRing
	sessions map[string]*EventRing
}

// NewSessionHistory creates a SessionHistory whose rings hold capacity
// envelopes each.
func NewSessionHistory(capacity int) *SessionHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &SessionHistory{
		capacity: capacity,
		global:   NewEventRing(capacity),
		sessions: make(map[string]*EventRing),
	}
}

// Record retains one envelope. An empty sessionID records into the global
// stream.
func (h *SessionHistory) Record(sessionID string, data []byte) {
	h.ring(sessionID).Append(data)
}

// Recent returns the retained envelopes for a session, oldest first. An
// empty sessionID addresses the global stream.
func (h *SessionHistory) Recent(sessionID string) [][]byte {
	h.mu.Lock()
	ring := h.global
	if sessionID != "" {
		var ok bool
		if ring, ok = h.sessions[sessionID]; !ok {
			h.mu.Unlock()
			return nil
		}
	}
	h.mu.Unlock()

	return ring.Recent()
}

// Drop discards the retained envelopes for a session.
func (h *SessionHistory) Drop(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

func (h *SessionHistory) ring(sessionID string) *EventRing {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionID == "" {
		return h.global
	}

	ring, ok := h.sessions[sessionID]
	if !ok {
		ring = NewEventRing(h.capacity)
		h.sessions[sessionID] = ring
	}
	return ring
}
