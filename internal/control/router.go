package control

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/remote-session-control/backend/internal/model"
)

// Router is the single entry point for inbound client frames. It validates
// messages, dispatches them to the configured callback set, and replies to
// the originating client only; it never broadcasts.
type Router struct {
	mu        sync.RWMutex
	callbacks Callbacks
}

// NewRouter creates a Router with no callbacks configured. Until
// SetCallbacks is called, every action-type message is answered with a
// "not configured" error.
func NewRouter() *Router {
	return &Router{}
}

// SetCallbacks swaps the callback set used for subsequent messages.
func (r *Router) SetCallbacks(cb Callbacks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = cb
}

func (r *Router) snapshot() Callbacks {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbacks
}

// HandleMessage processes one inbound frame from client. Exactly one
// response is sent back: synchronous validation and configuration errors
// short-circuit immediately, while callback-backed operations reply from
// their own goroutine once the callback settles. HandleMessage itself never
// blocks on a callback, so one slow desktop operation cannot stall other
// inbound messages.
func (r *Router) HandleMessage(client Client, data []byte) {
	msg, err := DecodeMessage(data)
	if err != nil {
		r.sendError(client, "Invalid message")
		return
	}

	cb := r.snapshot()

	switch msg.Type {
	case MessageTypePing:
		r.send(client, PongResponse{Type: ResponseTypePong, Timestamp: nowMillis()})

	case MessageTypeSubscribe:
		client.SetSubscribedSession(msg.SessionID)
		r.send(client, SubscribedResponse{Type: ResponseTypeSubscribed, SessionID: msg.SessionID})

	case MessageTypeSendCommand:
		r.handleSendCommand(client, cb, msg)

	case MessageTypeSwitchMode:
		r.handleSwitchMode(client, cb, msg)

	case MessageTypeSelectSession:
		r.handleSelectSession(client, cb, msg)

	case MessageTypeSelectTab:
		r.handleSelectTab(client, cb, msg)

	case MessageTypeNewTab:
		r.handleNewTab(client, cb, msg)

	case MessageTypeCloseTab:
		r.handleCloseTab(client, cb, msg)

	case MessageTypeRenameTab:
		r.handleRenameTab(client, cb, msg)

	case MessageTypeGetSessions:
		r.handleGetSessions(client, cb)

	default:
		r.handleEcho(client, msg)
	}
}

// handleSendCommand validates a send_command request and dispatches it. The
// busy and not-found checks consult GetSessionDetail synchronously so that a
// busy session never sees ExecuteCommand at all.
func (r *Router) handleSendCommand(client Client, cb Callbacks, msg *Message) {
	if msg.SessionID == "" || msg.Command == "" {
		r.sendError(client, "Missing sessionId or command")
		return
	}
	if cb.ExecuteCommand == nil {
		r.sendError(client, "Command execution not configured")
		return
	}

	var detail *model.Session
	if cb.GetSessionDetail != nil {
		detail = cb.GetSessionDetail(msg.SessionID)
	}
	if detail == nil {
		r.sendError(client, "Session "+msg.SessionID+" not found")
		return
	}
	if detail.State == model.SessionStateBusy {
		r.sendError(client, "Session "+msg.SessionID+" is busy")
		return
	}

	sessionID, command, inputMode := msg.SessionID, msg.Command, msg.InputMode
	r.dispatch(client, func(ctx context.Context) (any, error) {
		ok, err := cb.ExecuteCommand(ctx, sessionID, command, inputMode)
		if err != nil {
			return nil, err
		}
		return CommandResult{Type: ResponseTypeCommandResult, Success: ok}, nil
	})
}

func (r *Router) handleSwitchMode(client Client, cb Callbacks, msg *Message) {
	if msg.SessionID == "" || msg.Mode == "" {
		r.sendError(client, "Missing sessionId or mode")
		return
	}
	if cb.SwitchMode == nil {
		r.sendError(client, "Mode switching not configured")
		return
	}

	sessionID, mode := msg.SessionID, msg.Mode
	r.dispatch(client, func(ctx context.Context) (any, error) {
		ok, err := cb.SwitchMode(ctx, sessionID, mode)
		if err != nil {
			return nil, err
		}
		return ModeSwitchResult{Type: ResponseTypeModeSwitchResult, Success: ok, Mode: mode}, nil
	})
}

func (r *Router) handleSelectSession(client Client, cb Callbacks, msg *Message) {
	if msg.SessionID == "" {
		r.sendError(client, "Missing sessionId")
		return
	}
	if cb.SelectSession == nil {
		r.sendError(client, "Session selection not configured")
		return
	}

	sessionID, tabID := msg.SessionID, msg.TabID
	r.dispatch(client, func(ctx context.Context) (any, error) {
		ok, err := cb.SelectSession(ctx, sessionID, tabID)
		if err != nil {
			return nil, err
		}
		return SelectSessionResult{Type: ResponseTypeSelectSessionResult, Success: ok}, nil
	})
}

func (r *Router) handleSelectTab(client Client, cb Callbacks, msg *Message) {
	if msg.SessionID == "" || msg.TabID == "" {
		r.sendError(client, "Missing sessionId or tabId")
		return
	}
	if cb.SelectTab == nil {
		r.sendError(client, "Tab selection not configured")
		return
	}

	sessionID, tabID := msg.SessionID, msg.TabID
	r.dispatch(client, func(ctx context.Context) (any, error) {
		ok, err := cb.SelectTab(ctx, sessionID, tabID)
		if err != nil {
			return nil, err
		}
		return SelectTabResult{Type: ResponseTypeSelectTabResult, Success: ok, TabID: tabID}, nil
	})
}

func (r *Router) handleNewTab(client Client, cb Callbacks, msg *Message) {
	if msg.SessionID == "" {
		r.sendError(client, "Missing sessionId")
		return
	}
	if cb.NewTab == nil {
		r.sendError(client, "Tab creation not configured")
		return
	}

	sessionID := msg.SessionID
	r.dispatch(client, func(ctx context.Context) (any, error) {
		tab, err := cb.NewTab(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if tab == nil {
			// The desktop declined without an error; report failure, not an
			// error response.
			return NewTabResult{Type: ResponseTypeNewTabResult, Success: false}, nil
		}
		return NewTabResult{Type: ResponseTypeNewTabResult, Success: true, TabID: tab.ID}, nil
	})
}

func (r *Router) handleCloseTab(client Client, cb Callbacks, msg *Message) {
	if msg.SessionID == "" || msg.TabID == "" {
		r.sendError(client, "Missing sessionId or tabId")
		return
	}
	if cb.CloseTab == nil {
		r.sendError(client, "Tab closing not configured")
		return
	}

	sessionID, tabID := msg.SessionID, msg.TabID
	r.dispatch(client, func(ctx context.Context) (any, error) {
		ok, err := cb.CloseTab(ctx, sessionID, tabID)
		if err != nil {
			return nil, err
		}
		return CloseTabResult{Type: ResponseTypeCloseTabResult, Success: ok}, nil
	})
}

// handleRenameTab requires sessionId and tabId only; an empty newName is a
// valid rename target.
func (r *Router) handleRenameTab(client Client, cb Callbacks, msg *Message) {
	if msg.SessionID == "" || msg.TabID == "" {
		r.sendError(client, "Missing sessionId or tabId")
		return
	}
	if cb.RenameTab == nil {
		r.sendError(client, "Tab renaming not configured")
		return
	}

	sessionID, tabID, newName := msg.SessionID, msg.TabID, msg.NewName
	r.dispatch(client, func(ctx context.Context) (any, error) {
		ok, err := cb.RenameTab(ctx, sessionID, tabID, newName)
		if err != nil {
			return nil, err
		}
		return RenameTabResult{Type: ResponseTypeRenameTabResult, Success: ok, NewName: newName}, nil
	})
}

// handleGetSessions answers synchronously: the session list is a local
// lookup, not a desktop operation.
func (r *Router) handleGetSessions(client Client, cb Callbacks) {
	if cb.GetSessions == nil {
		r.sendError(client, "Session listing not configured")
		return
	}

	sessions := cb.GetSessions()
	summaries := make([]model.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		if s == nil {
			continue
		}
		summary := model.SessionSummary{Session: *s}
		if cb.IsSessionLive != nil {
			summary.IsLive = cb.IsSessionLive(s.ID)
		}
		if cb.GetLiveSessionInfo != nil {
			if info := cb.GetLiveSessionInfo(s.ID); info != nil {
				summary.AgentSessionID = info.AgentSessionID
			}
		}
		summaries = append(summaries, summary)
	}
	r.send(client, SessionsListResponse{Type: ResponseTypeSessionsList, Sessions: summaries})
}

// handleEcho passes an unrecognized message back to the sender with its type
// preserved in originalType. Unknown types are deliberately not errors so
// that newer clients keep working against an older desktop.
func (r *Router) handleEcho(client Client, msg *Message) {
	fields := make(map[string]any)
	if err := json.Unmarshal(msg.raw, &fields); err != nil {
		fields = make(map[string]any)
	}
	fields["originalType"] = string(msg.Type)
	fields["type"] = string(ResponseTypeEcho)
	r.send(client, fields)
}

// dispatch runs a callback-backed operation on its own goroutine and
// delivers the single follow-up response when it settles.
func (r *Router) dispatch(client Client, run func(ctx context.Context) (any, error)) {
	go func() {
		resp, err := run(context.Background())
		if err != nil {
			r.sendError(client, err.Error())
			return
		}
		r.send(client, resp)
	}()
}

func (r *Router) send(client Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal response for client %s: %v", client.ID(), err)
		return
	}
	if !client.Open() {
		return
	}
	if err := client.Send(data); err != nil {
		log.Printf("Failed to send response to client %s: %v", client.ID(), err)
	}
}

func (r *Router) sendError(client Client, message string) {
	r.send(client, ErrorResponse{Type: ResponseTypeError, Message: message})
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
