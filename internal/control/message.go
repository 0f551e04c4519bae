package control

import "encoding/json"

// MessageType identifies an inbound client message.
type MessageType string

const (
	MessageTypePing          MessageType = "ping"
	MessageTypeSubscribe     MessageType = "subscribe"
	MessageTypeSendCommand   MessageType = "send_command"
	MessageTypeSwitchMode    MessageType = "switch_mode"
	MessageTypeSelectSession MessageType = "select_session"
	MessageTypeSelectTab     MessageType = "select_tab"
	MessageTypeNewTab        MessageType = "new_tab"
	MessageTypeCloseTab      MessageType = "close_tab"
	MessageTypeRenameTab     MessageType = "rename_tab"
	MessageTypeGetSessions   MessageType = "get_sessions"
)

// Message is an inbound frame from a web client. Fields beyond Type are
// populated per message type. The raw bytes are retained so that messages
// with an unrecognized type can be echoed back unchanged.
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Command   string      `json:"command,omitempty"`
	InputMode string      `json:"inputMode,omitempty"`
	Mode      string      `json:"mode,omitempty"`
	TabID     string      `json:"tabId,omitempty"`
	NewName   string      `json:"newName"`

	raw json.RawMessage
}

// DecodeMessage parses an inbound frame and retains its raw bytes.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	msg.raw = append(json.RawMessage(nil), data...)
	return &msg, nil
}
