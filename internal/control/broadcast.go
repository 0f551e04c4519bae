package control

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/remote-session-control/backend/internal/model"
)

// Broadcaster fans desktop-side events out to connected web clients. The
// client registry is pulled on demand through an injected snapshot provider;
// while no provider is set, every broadcast is a silent no-op. The
// broadcaster never mutates client state.
//
// Two delivery modes exist. Unfiltered events reach every client whose
// transport is open. Session-scoped events additionally require the client
// to be subscribed to the target session, or to have no subscription at all
// (a dashboard client).
type Broadcaster struct {
	mu         sync.RWMutex
	getClients func() map[string]Client
	record     func(sessionID string, event EventType, data []byte)
}

// NewBroadcaster creates a Broadcaster with no registry provider.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// SetClientsProvider injects the registry snapshot provider. The transport
// layer remains the sole owner of connection lifecycle; the broadcaster only
// reads the snapshots it is handed.
func (b *Broadcaster) SetClientsProvider(fn func() map[string]Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getClients = fn
}

// SetRecordFunc installs an observer invoked once per broadcast call with
// the marshaled envelope. sessionID is empty for unfiltered events. Used for
// the broadcast audit log and the recent-event history.
func (b *Broadcaster) SetRecordFunc(fn func(sessionID string, event EventType, data []byte)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record = fn
}

// BroadcastThemeChange pushes a theme change to every client.
func (b *Broadcaster) BroadcastThemeChange(theme any) {
	b.deliver(EventTheme, "", false, ThemeEvent{
		Type:      EventTheme,
		Theme:     theme,
		Timestamp: nowMillis(),
	})
}

// BroadcastSessionStateChange pushes a state transition to clients watching
// the session.
func (b *Broadcaster) BroadcastSessionStateChange(sessionID string, state model.SessionState) {
	b.deliver(EventSessionStateChange, sessionID, true, SessionStateChangeEvent{
		Type:      EventSessionStateChange,
		SessionID: sessionID,
		State:     state,
		Timestamp: nowMillis(),
	})
}

// BroadcastSessionAdded pushes a newly created session to every client.
func (b *Broadcaster) BroadcastSessionAdded(session model.SessionSummary) {
	b.deliver(EventSessionAdded, "", false, SessionAddedEvent{
		Type:      EventSessionAdded,
		Session:   session,
		Timestamp: nowMillis(),
	})
}

// BroadcastSessionRemoved pushes a session deletion to every client.
func (b *Broadcaster) BroadcastSessionRemoved(sessionID string) {
	b.deliver(EventSessionRemoved, "", false, SessionRemovedEvent{
		Type:      EventSessionRemoved,
		SessionID: sessionID,
		Timestamp: nowMillis(),
	})
}

// BroadcastSessionsList pushes a full session list to every client.
func (b *Broadcaster) BroadcastSessionsList(sessions []model.SessionSummary) {
	b.deliver(EventSessionsList, "", false, SessionsListEvent{
		Type:      EventSessionsList,
		Sessions:  sessions,
		Timestamp: nowMillis(),
	})
}

// BroadcastActiveSessionChange pushes the desktop's focus change to every
// client.
func (b *Broadcaster) BroadcastActiveSessionChange(sessionID, tabID string) {
	b.deliver(EventActiveSessionChanged, "", false, ActiveSessionChangedEvent{
		Type:      EventActiveSessionChanged,
		SessionID: sessionID,
		TabID:     tabID,
		Timestamp: nowMillis(),
	})
}

// BroadcastTabsChange pushes a session's updated tab set to every client.
func (b *Broadcaster) BroadcastTabsChange(sessionID string, tabs []model.Tab) {
	b.deliver(EventTabsChanged, "", false, TabsChangedEvent{
		Type:      EventTabsChanged,
		SessionID: sessionID,
		Tabs:      tabs,
		Timestamp: nowMillis(),
	})
}

// BroadcastAutoRunState pushes the auto-run toggle to every client.
func (b *Broadcaster) BroadcastAutoRunState(enabled bool) {
	b.deliver(EventAutoRunState, "", false, AutoRunStateEvent{
		Type:      EventAutoRunState,
		Enabled:   enabled,
		Timestamp: nowMillis(),
	})
}

// BroadcastUserInput pushes input applied to a session to clients watching
// it.
func (b *Broadcaster) BroadcastUserInput(sessionID, input string) {
	b.deliver(EventUserInput, sessionID, true, UserInputEvent{
		Type:      EventUserInput,
		SessionID: sessionID,
		Input:     input,
		Timestamp: nowMillis(),
	})
}

// BroadcastCustomCommands pushes the user's shortcut commands to every
// client.
func (b *Broadcaster) BroadcastCustomCommands(commands []model.CustomCommand) {
	b.deliver(EventCustomCommands, "", false, CustomCommandsEvent{
		Type:      EventCustomCommands,
		Commands:  commands,
		Timestamp: nowMillis(),
	})
}

// BroadcastSessionLive announces an attached agent session to every client.
func (b *Broadcaster) BroadcastSessionLive(sessionID, agentSessionID string) {
	b.deliver(EventSessionLive, "", false, SessionLiveEvent{
		Type:           EventSessionLive,
		SessionID:      sessionID,
		AgentSessionID: agentSessionID,
		Timestamp:      nowMillis(),
	})
}

// BroadcastSessionOffline announces a detached agent session to every
// client.
func (b *Broadcaster) BroadcastSessionOffline(sessionID string) {
	b.deliver(EventSessionOffline, "", false, SessionOfflineEvent{
		Type:      EventSessionOffline,
		SessionID: sessionID,
		Timestamp: nowMillis(),
	})
}

// ToSession delivers an arbitrary session-scoped envelope to clients
// watching the session. fields must not contain the reserved keys type,
// sessionId or timestamp; they are overwritten.
func (b *Broadcaster) ToSession(sessionID string, event EventType, fields map[string]any) {
	envelope := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		envelope[k] = v
	}
	envelope["type"] = string(event)
	envelope["sessionId"] = sessionID
	envelope["timestamp"] = nowMillis()
	b.deliver(event, sessionID, true, envelope)
}

// deliver marshals the envelope once and sends the identical bytes to every
// eligible client in the current registry snapshot. A client whose transport
// is not open is skipped; a failed send is logged and skipped so one bad
// connection cannot abort fan-out to the rest.
func (b *Broadcaster) deliver(event EventType, sessionID string, scoped bool, v any) {
	b.mu.RLock()
	getClients := b.getClients
	record := b.record
	b.mu.RUnlock()

	if getClients == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal %s broadcast: %v", event, err)
		return
	}

	if record != nil {
		if scoped {
			record(sessionID, event, data)
		} else {
			record("", event, data)
		}
	}

	for id, client := range getClients() {
		if !client.Open() {
			continue
		}
		if scoped {
			if subscribed, ok := client.SubscribedSession(); ok && subscribed != sessionID {
				continue
			}
		}
		if err := client.Send(data); err != nil {
			log.Printf("Failed to send %s broadcast to client %s: %v", event, id, err)
		}
	}
}
