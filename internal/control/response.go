package control

import "github.com/remote-session-control/backend/internal/model"

// ResponseType identifies an outbound unicast response.
type ResponseType string

const (
	ResponseTypePong                ResponseType = "pong"
	ResponseTypeSubscribed          ResponseType = "subscribed"
	ResponseTypeCommandResult       ResponseType = "command_result"
	ResponseTypeModeSwitchResult    ResponseType = "mode_switch_result"
	ResponseTypeSelectSessionResult ResponseType = "select_session_result"
	ResponseTypeSelectTabResult     ResponseType = "select_tab_result"
	ResponseTypeNewTabResult        ResponseType = "new_tab_result"
	ResponseTypeCloseTabResult      ResponseType = "close_tab_result"
	ResponseTypeRenameTabResult     ResponseType = "rename_tab_result"
	ResponseTypeSessionsList        ResponseType = "sessions_list"
	ResponseTypeError               ResponseType = "error"
	ResponseTypeEcho                ResponseType = "echo"
)

// PongResponse answers a ping.
type PongResponse struct {
	Type      ResponseType `json:"type"`
	Timestamp int64        `json:"timestamp"`
}

// SubscribedResponse confirms a subscription change. SessionID is empty for
// clients that subscribed to the dashboard view.
type SubscribedResponse struct {
	Type      ResponseType `json:"type"`
	SessionID string       `json:"sessionId,omitempty"`
}

// CommandResult reports the outcome of a send_command request.
type CommandResult struct {
	Type    ResponseType `json:"type"`
	Success bool         `json:"success"`
}

// ModeSwitchResult reports the outcome of a switch_mode request.
type ModeSwitchResult struct {
	Type    ResponseType `json:"type"`
	Success bool         `json:"success"`
	Mode    string       `json:"mode"`
}

// SelectSessionResult reports the outcome of a select_session request.
type SelectSessionResult struct {
	Type    ResponseType `json:"type"`
	Success bool         `json:"success"`
}

// SelectTabResult reports the outcome of a select_tab request.
type SelectTabResult struct {
	Type    ResponseType `json:"type"`
	Success bool         `json:"success"`
	TabID   string       `json:"tabId"`
}

// NewTabResult reports the outcome of a new_tab request. TabID is empty when
// the desktop declined to create a tab, in which case Success is false.
type NewTabResult struct {
	Type    ResponseType `json:"type"`
	Success bool         `json:"success"`
	TabID   string       `json:"tabId,omitempty"`
}

// CloseTabResult reports the outcome of a close_tab request.
type CloseTabResult struct {
	Type    ResponseType `json:"type"`
	Success bool         `json:"success"`
}

// RenameTabResult reports the outcome of a rename_tab request. NewName may
// legitimately be empty.
type RenameTabResult struct {
	Type    ResponseType `json:"type"`
	Success bool         `json:"success"`
	NewName string       `json:"newName"`
}

// SessionsListResponse carries the current sessions, each decorated with
// live-session information.
type SessionsListResponse struct {
	Type     ResponseType           `json:"type"`
	Sessions []model.SessionSummary `json:"sessions"`
}

// ErrorResponse reports a failed request back to the originating client.
type ErrorResponse struct {
	Type    ResponseType `json:"type"`
	Message string       `json:"message"`
}
