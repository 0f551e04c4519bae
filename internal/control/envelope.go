package control

import "github.com/remote-session-control/backend/internal/model"

// EventType identifies a broadcast envelope.
type EventType string

const (
	EventTheme                EventType = "theme"
	EventSessionStateChange   EventType = "session_state_change"
	EventSessionAdded         EventType = "session_added"
	EventSessionRemoved       EventType = "session_removed"
	EventSessionsList         EventType = "sessions_list"
	EventActiveSessionChanged EventType = "active_session_changed"
	EventTabsChanged          EventType = "tabs_changed"
	EventAutoRunState         EventType = "autorun_state"
	EventUserInput            EventType = "user_input"
	EventCustomCommands       EventType = "custom_commands"
	EventSessionLive          EventType = "session_live"
	EventSessionOffline       EventType = "session_offline"
)

// Every envelope carries Timestamp, the wall-clock time in milliseconds at
// send time, computed once per broadcast call and shared by all recipients.

// ThemeEvent announces a theme change to every client.
type ThemeEvent struct {
	Type      EventType `json:"type"`
	Theme     any       `json:"theme"`
	Timestamp int64     `json:"timestamp"`
}

// SessionStateChangeEvent announces a session state transition. Delivery is
// session-scoped.
type SessionStateChangeEvent struct {
	Type      EventType          `json:"type"`
	SessionID string             `json:"sessionId"`
	State     model.SessionState `json:"state"`
	Timestamp int64              `json:"timestamp"`
}

// SessionAddedEvent announces a newly created session to every client.
type SessionAddedEvent struct {
	Type      EventType            `json:"type"`
	Session   model.SessionSummary `json:"session"`
	Timestamp int64                `json:"timestamp"`
}

// SessionRemovedEvent announces a deleted session to every client.
type SessionRemovedEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp int64     `json:"timestamp"`
}

// SessionsListEvent pushes a full session list to every client.
type SessionsListEvent struct {
	Type      EventType              `json:"type"`
	Sessions  []model.SessionSummary `json:"sessions"`
	Timestamp int64                  `json:"timestamp"`
}

// ActiveSessionChangedEvent announces which session (and optionally tab) the
// desktop is now focused on.
type ActiveSessionChangedEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	TabID     string    `json:"tabId,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// TabsChangedEvent announces a session's updated tab set to every client.
type TabsChangedEvent struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"sessionId"`
	Tabs      []model.Tab `json:"tabs"`
	Timestamp int64       `json:"timestamp"`
}

// AutoRunStateEvent announces the desktop's auto-run toggle to every client.
type AutoRunStateEvent struct {
	Type      EventType `json:"type"`
	Enabled   bool      `json:"enabled"`
	Timestamp int64     `json:"timestamp"`
}

// UserInputEvent announces input applied to a session. Delivery is
// session-scoped.
type UserInputEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Input     string    `json:"input"`
	Timestamp int64     `json:"timestamp"`
}

// CustomCommandsEvent pushes the user's shortcut commands to every client.
type CustomCommandsEvent struct {
	Type      EventType             `json:"type"`
	Commands  []model.CustomCommand `json:"commands"`
	Timestamp int64                 `json:"timestamp"`
}

// SessionLiveEvent announces that an agent session attached to a session.
type SessionLiveEvent struct {
	Type           EventType `json:"type"`
	SessionID      string    `json:"sessionId"`
	AgentSessionID string    `json:"agentSessionId,omitempty"`
	Timestamp      int64     `json:"timestamp"`
}

// SessionOfflineEvent announces that a session's agent session detached.
type SessionOfflineEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp int64     `json:"timestamp"`
}
