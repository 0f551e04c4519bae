package control

import (
	"context"

	"github.com/remote-session-control/backend/internal/model"
)

// Callbacks bridges the protocol layer to the desktop-side session logic.
// Every field is independently optional: a nil field means the operation is
// not configured, and the router answers with a synchronous error instead of
// invoking it.
//
// The command-style callbacks block until the desktop operation settles; the
// router always invokes them on their own goroutine. The query-style
// callbacks (GetSessions, GetSessionDetail, GetLiveSessionInfo,
// IsSessionLive) are expected to return quickly and are invoked inline.
type Callbacks struct {
	ExecuteCommand func(ctx context.Context, sessionID, command, inputMode string) (bool, error)
	SwitchMode     func(ctx context.Context, sessionID, mode string) (bool, error)
	SelectSession  func(ctx context.Context, sessionID, tabID string) (bool, error)
	SelectTab      func(ctx context.Context, sessionID, tabID string) (bool, error)

	// NewTab returns the created tab, or nil when the desktop declined to
	// create one. A nil tab is not an error.
	NewTab    func(ctx context.Context, sessionID string) (*model.Tab, error)
	CloseTab  func(ctx context.Context, sessionID, tabID string) (bool, error)
	RenameTab func(ctx context.Context, sessionID, tabID, newName string) (bool, error)

	GetSessions        func() []*model.Session
	GetSessionDetail   func(sessionID string) *model.Session
	GetLiveSessionInfo func(sessionID string) *model.LiveSessionInfo
	IsSessionLive      func(sessionID string) bool
}
