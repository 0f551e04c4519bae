// Package session implements the desktop-side session logic behind the
// remote-control callback set.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/remote-session-control/backend/internal/control"
	"github.com/remote-session-control/backend/internal/model"
	"github.com/remote-session-control/backend/internal/repository"
)

// maxTabsPerSession caps how many tabs a session can hold. NewTab declines
// (returns a nil tab) once the cap is reached.
const maxTabsPerSession = 16

// CommandRunner executes a command inside a desktop session. The real
// executor is injected by the embedding application; the default runner
// accepts every command without side effects.
type CommandRunner func(ctx context.Context, session *model.Session, command, inputMode string) error

// Manager manages desktop sessions and implements the remote-control
// callback set against the repository and the broadcaster.
type Manager struct {
	repo        *repository.SessionRepository
	broadcaster *control.Broadcaster
	runner      CommandRunner

	mu             sync.RWMutex
	live           map[string]model.LiveSessionInfo
	activeID       string
	activeTabID    string
	autoRun        bool
	customCommands []model.CustomCommand
}

// NewManager creates a new session manager. A nil runner falls back to a
// no-op executor.
func NewManager(repo *repository.SessionRepository, broadcaster *control.Broadcaster, runner CommandRunner) *Manager {
	if runner == nil {
		runner = func(ctx context.Context, session *model.Session, command, inputMode string) error {
			return nil
		}
	}

	return &Manager{
		repo:        repo,
		broadcaster: broadcaster,
		runner:      runner,
		live:        make(map[string]model.LiveSessionInfo),
	}
}

// Callbacks returns the callback set wiring this manager into the router.
func (m *Manager) Callbacks() control.Callbacks {
	return control.Callbacks{
		ExecuteCommand:     m.ExecuteCommand,
		SwitchMode:         m.SwitchMode,
		SelectSession:      m.SelectSession,
		SelectTab:          m.SelectTab,
		NewTab:             m.NewTab,
		CloseTab:           m.CloseTab,
		RenameTab:          m.RenameTab,
		GetSessions:        m.GetSessions,
		GetSessionDetail:   m.GetSessionDetail,
		GetLiveSessionInfo: m.GetLiveSessionInfo,
		IsSessionLive:      m.IsSessionLive,
	}
}

// Create creates a new session with a single default tab.
func (m *Manager) Create(ctx context.Context, req *model.CreateSessionRequest) (*model.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	tab := model.Tab{
		ID:        uuid.New().String(),
		Name:      "main",
		Position:  0,
		CreatedAt: now,
	}
	session := &model.Session{
		ID:          uuid.New().String(),
		Name:        req.Name,
		State:       model.SessionStateIdle,
		Mode:        req.Mode,
		ActiveTabID: tab.ID,
		Tabs:        []model.Tab{tab},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	m.broadcaster.BroadcastSessionAdded(m.summarize(session))

	return session, nil
}

// Get retrieves a session by ID.
func (m *Manager) Get(ctx context.Context, id string) (*model.Session, error) {
	return m.repo.GetByID(ctx, id)
}

// List retrieves all sessions.
func (m *Manager) List(ctx context.Context) ([]*model.Session, error) {
	return m.repo.List(ctx)
}

// ListSummaries retrieves all sessions decorated with live-session
// information.
func (m *Manager) ListSummaries(ctx context.Context) ([]model.SessionSummary, error) {
	sessions, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, m.summarize(session))
	}
	return summaries, nil
}

// Delete removes a session and notifies all clients.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	_, wasLive := m.live[id]
	delete(m.live, id)
	if m.activeID == id {
		m.activeID = ""
		m.activeTabID = ""
	}
	m.mu.Unlock()

	if wasLive {
		m.broadcaster.BroadcastSessionOffline(id)
	}
	m.broadcaster.BroadcastSessionRemoved(id)

	return nil
}

// ExecuteCommand runs a command inside a session. The session is marked busy
// for the duration of the run; both transitions are persisted and broadcast.
func (m *Manager) ExecuteCommand(ctx context.Context, sessionID, command, inputMode string) (bool, error) {
	session, err := m.repo.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if session.State == model.SessionStateBusy {
		return false, model.ErrSessionBusy
	}

	m.setState(ctx, sessionID, model.SessionStateBusy)
	m.broadcaster.BroadcastUserInput(sessionID, command)

	runErr := m.runner(ctx, session, command, inputMode)

	m.setState(ctx, sessionID, model.SessionStateIdle)

	if runErr != nil {
		return false, runErr
	}
	return true, nil
}

// SwitchMode switches a session's input mode.
func (m *Manager) SwitchMode(ctx context.Context, sessionID, mode string) (bool, error) {
	if err := m.repo.UpdateMode(ctx, sessionID, mode); err != nil {
		return false, err
	}

	m.broadcaster.ToSession(sessionID, "mode_changed", map[string]any{
		"mode": mode,
	})

	return true, nil
}

// SelectSession focuses a session (and optionally one of its tabs) on the
// desktop.
func (m *Manager) SelectSession(ctx context.Context, sessionID, tabID string) (bool, error) {
	session, err := m.repo.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}

	if tabID == "" {
		tabID = session.ActiveTabID
	} else if session.FindTab(tabID) == nil {
		return false, model.ErrTabNotFound
	}

	m.mu.Lock()
	m.activeID = sessionID
	m.activeTabID = tabID
	m.mu.Unlock()

	m.broadcaster.BroadcastActiveSessionChange(sessionID, tabID)

	return true, nil
}

// SelectTab focuses a tab within a session.
func (m *Manager) SelectTab(ctx context.Context, sessionID, tabID string) (bool, error) {
	session, err := m.repo.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if session.FindTab(tabID) == nil {
		return false, model.ErrTabNotFound
	}

	if err := m.repo.UpdateActiveTab(ctx, sessionID, tabID); err != nil {
		return false, err
	}

	m.mu.Lock()
	if m.activeID == sessionID {
		m.activeTabID = tabID
	}
	m.mu.Unlock()

	m.broadcaster.BroadcastActiveSessionChange(sessionID, tabID)

	return true, nil
}

// NewTab adds a tab to a session. Returns a nil tab without an error when
// the session already holds the maximum number of tabs.
func (m *Manager) NewTab(ctx context.Context, sessionID string) (*model.Tab, error) {
	session, err := m.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(session.Tabs) >= maxTabsPerSession {
		return nil, nil
	}

	tab := &model.Tab{
		ID:        uuid.New().String(),
		Name:      fmt.Sprintf("Tab %d", len(session.Tabs)+1),
		Position:  len(session.Tabs),
		CreatedAt: time.Now(),
	}

	if err := m.repo.InsertTab(ctx, sessionID, tab); err != nil {
		return nil, err
	}

	m.broadcastTabs(ctx, sessionID)

	return tab, nil
}

// CloseTab removes a tab from a session. The last remaining tab cannot be
// closed; that is reported as failure, not an error.
func (m *Manager) CloseTab(ctx context.Context, sessionID, tabID string) (bool, error) {
	session, err := m.repo.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if session.FindTab(tabID) == nil {
		return false, model.ErrTabNotFound
	}
	if len(session.Tabs) <= 1 {
		return false, nil
	}

	if err := m.repo.DeleteTab(ctx, sessionID, tabID); err != nil {
		return false, err
	}

	if session.ActiveTabID == tabID {
		for _, tab := range session.Tabs {
			if tab.ID != tabID {
				if err := m.repo.UpdateActiveTab(ctx, sessionID, tab.ID); err != nil {
					log.Printf("Failed to move active tab for session %s: %v", sessionID, err)
				}
				break
			}
		}
	}

	m.broadcastTabs(ctx, sessionID)

	return true, nil
}

// RenameTab renames a tab. An empty new name is valid.
func (m *Manager) RenameTab(ctx context.Context, sessionID, tabID, newName string) (bool, error) {
	if err := m.repo.RenameTab(ctx, sessionID, tabID, newName); err != nil {
		return false, err
	}

	m.broadcastTabs(ctx, sessionID)

	return true, nil
}

// GetSessions returns all sessions, or nil if the lookup fails.
func (m *Manager) GetSessions() []*model.Session {
	sessions, err := m.repo.List(context.Background())
	if err != nil {
		log.Printf("Failed to list sessions: %v", err)
		return nil
	}
	return sessions
}

// GetSessionDetail returns a session by ID, or nil if it does not exist.
func (m *Manager) GetSessionDetail(sessionID string) *model.Session {
	session, err := m.repo.GetByID(context.Background(), sessionID)
	if err != nil {
		return nil
	}
	return session
}

// GetLiveSessionInfo returns the live agent session attached to a session,
// or nil if there is none.
func (m *Manager) GetLiveSessionInfo(sessionID string) *model.LiveSessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.live[sessionID]
	if !ok {
		return nil
	}
	return &info
}

// IsSessionLive reports whether an agent session is attached to the session.
func (m *Manager) IsSessionLive(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.live[sessionID]
	return ok
}

// MarkSessionLive records an attached agent session and notifies all
// clients.
func (m *Manager) MarkSessionLive(sessionID, agentSessionID string) {
	m.mu.Lock()
	m.live[sessionID] = model.LiveSessionInfo{
		AgentSessionID: agentSessionID,
		StartedAt:      time.Now(),
	}
	m.mu.Unlock()

	m.broadcaster.BroadcastSessionLive(sessionID, agentSessionID)
}

// MarkSessionOffline removes a session's live agent session and notifies
// all clients.
func (m *Manager) MarkSessionOffline(sessionID string) {
	m.mu.Lock()
	_, ok := m.live[sessionID]
	delete(m.live, sessionID)
	m.mu.Unlock()

	if ok {
		m.broadcaster.BroadcastSessionOffline(sessionID)
	}
}

// ActiveSession returns the desktop's focused session and tab.
func (m *Manager) ActiveSession() (sessionID, tabID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID, m.activeTabID
}

// SetTheme pushes a theme change to all clients.
func (m *Manager) SetTheme(theme any) {
	m.broadcaster.BroadcastThemeChange(theme)
}

// SetAutoRun toggles auto-run and notifies all clients.
func (m *Manager) SetAutoRun(enabled bool) {
	m.mu.Lock()
	m.autoRun = enabled
	m.mu.Unlock()

	m.broadcaster.BroadcastAutoRunState(enabled)
}

// AutoRun returns the auto-run toggle.
func (m *Manager) AutoRun() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.autoRun
}

// SetCustomCommands replaces the user's shortcut commands and pushes them to
// all clients.
func (m *Manager) SetCustomCommands(commands []model.CustomCommand) {
	m.mu.Lock()
	m.customCommands = append([]model.CustomCommand(nil), commands...)
	m.mu.Unlock()

	m.broadcaster.BroadcastCustomCommands(commands)
}

// CustomCommands returns the user's shortcut commands.
func (m *Manager) CustomCommands() []model.CustomCommand {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.CustomCommand(nil), m.customCommands...)
}

// PublishSessionsList pushes a full session list to all clients.
func (m *Manager) PublishSessionsList(ctx context.Context) error {
	summaries, err := m.ListSummaries(ctx)
	if err != nil {
		return err
	}
	m.broadcaster.BroadcastSessionsList(summaries)
	return nil
}

// setState persists and broadcasts a session state transition.
func (m *Manager) setState(ctx context.Context, sessionID string, state model.SessionState) {
	if err := m.repo.UpdateState(ctx, sessionID, state); err != nil {
		log.Printf("Failed to update state for session %s: %v", sessionID, err)
		return
	}
	m.broadcaster.BroadcastSessionStateChange(sessionID, state)
}

// broadcastTabs pushes a session's current tab set to all clients.
func (m *Manager) broadcastTabs(ctx context.Context, sessionID string) {
	tabs, err := m.repo.ListTabs(ctx, sessionID)
	if err != nil {
		log.Printf("Failed to list tabs for session %s: %v", sessionID, err)
		return
	}
	m.broadcaster.BroadcastTabsChange(sessionID, tabs)
}

func (m *Manager) summarize(session *model.Session) model.SessionSummary {
	summary := model.SessionSummary{Session: *session}

	m.mu.RLock()
	if info, ok := m.live[session.ID]; ok {
		summary.IsLive = true
		summary.AgentSessionID = info.AgentSessionID
	}
	m.mu.RUnlock()

	return summary
}
