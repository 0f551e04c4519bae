package model

import "time"

// SessionState represents the desktop-side state of a session.
type SessionState string

const (
	SessionStateIdle SessionState = "idle"
	SessionStateBusy SessionState = "busy"
)

// Session represents a desktop session that web clients can remote-control.
type Session struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	State       SessionState `json:"state"`
	Mode        string       `json:"mode,omitempty"`
	ActiveTabID string       `json:"activeTabId,omitempty"`
	Tabs        []Tab        `json:"tabs,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Tab represents a tab inside a session.
type Tab struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// FindTab returns the tab with the given ID, or nil if the session has no
// such tab.
func (s *Session) FindTab(tabID string) *Tab {
	for i := range s.Tabs {
		if s.Tabs[i].ID == tabID {
			return &s.Tabs[i]
		}
	}
	return nil
}

// Duration returns how long the session has existed.
func (s *Session) Duration() time.Duration {
	return time.Since(s.CreatedAt)
}

// LiveSessionInfo describes an agent session currently attached to a
// desktop session.
type LiveSessionInfo struct {
	AgentSessionID string    `json:"agentSessionId"`
	StartedAt      time.Time `json:"startedAt"`
}

// SessionSummary is a session decorated with live-session information for
// delivery to web clients.
type SessionSummary struct {
	Session
	IsLive         bool   `json:"isLive"`
	AgentSessionID string `json:"agentSessionId,omitempty"`
}

// CustomCommand is a user-defined shortcut command pushed to web clients.
type CustomCommand struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// CreateSessionRequest represents a request to create a new session.
type CreateSessionRequest struct {
	Name string `json:"name" binding:"required"`
	Mode string `json:"mode"`
}

// Validate validates the create session request.
func (r *CreateSessionRequest) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	return nil
}
