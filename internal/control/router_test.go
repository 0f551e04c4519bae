package control

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/remote-session-control/backend/internal/model"
)

// fakeClient implements Client for tests without a real connection.
type fakeClient struct {
	id string

	mu            sync.Mutex
	subscribed    string
	hasSubscribed bool
	open          bool
	sendErr       error

	sent chan []byte
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{
		id:   id,
		open: true,
		sent: make(chan []byte, 64),
	}
}

func (c *fakeClient) ID() string { return c.id }

func (c *fakeClient) SubscribedSession() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed, c.hasSubscribed
}

func (c *fakeClient) SetSubscribedSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = sessionID
	c.hasSubscribed = sessionID != ""
}

func (c *fakeClient) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) setOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = open
}

func (c *fakeClient) Send(data []byte) error {
	c.mu.Lock()
	sendErr := c.sendErr
	c.mu.Unlock()

	if sendErr != nil {
		return sendErr
	}
	c.sent <- data
	return nil
}

// receiveJSON waits for one frame and decodes it into a generic map.
func receiveJSON(t *testing.T, c *fakeClient, timeout time.Duration) map[string]any {
	t.Helper()
	select {
	case data := <-c.sent:
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("received invalid JSON: %v", err)
		}
		return decoded
	case <-time.After(timeout):
		t.Fatal("timeout waiting for frame")
		return nil
	}
}

// expectNoFrame asserts that no frame arrives within the window.
func expectNoFrame(t *testing.T, c *fakeClient, window time.Duration) {
	t.Helper()
	select {
	case data := <-c.sent:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(window):
	}
}

func TestPingProducesExactlyOnePong(t *testing.T) {
	router := NewRouter()
	client := newFakeClient("c1")

	router.HandleMessage(client, []byte(`{"type":"ping"}`))

	resp := receiveJSON(t, client, 100*time.Millisecond)
	if resp["type"] != "pong" {
		t.Errorf("expected pong, got %v", resp["type"])
	}
	if _, ok := resp["timestamp"].(float64); !ok {
		t.Errorf("pong missing timestamp: %v", resp)
	}
	expectNoFrame(t, client, 50*time.Millisecond)
}

func TestSubscribeSetsSubscription(t *testing.T) {
	router := NewRouter()
	client := newFakeClient("c1")

	router.HandleMessage(client, []byte(`{"type":"subscribe","sessionId":"s1"}`))

	resp := receiveJSON(t, client, 100*time.Millisecond)
	if resp["type"] != "subscribed" || resp["sessionId"] != "s1" {
		t.Errorf("unexpected response: %v", resp)
	}

	sessionID, ok := client.SubscribedSession()
	if !ok || sessionID != "s1" {
		t.Errorf("subscription not set: %q %v", sessionID, ok)
	}

	// Subscribing without a session id clears the subscription.
	router.HandleMessage(client, []byte(`{"type":"subscribe"}`))
	receiveJSON(t, client, 100*time.Millisecond)

	if _, ok := client.SubscribedSession(); ok {
		t.Error("expected dashboard client after bare subscribe")
	}
}

func TestUnconfiguredCallbacksAnswerNotConfigured(t *testing.T) {
	messages := []string{
		`{"type":"send_command","sessionId":"s1","command":"ls"}`,
		`{"type":"switch_mode","sessionId":"s1","mode":"chat"}`,
		`{"type":"select_session","sessionId":"s1"}`,
		`{"type":"select_tab","sessionId":"s1","tabId":"t1"}`,
		`{"type":"new_tab","sessionId":"s1"}`,
		`{"type":"close_tab","sessionId":"s1","tabId":"t1"}`,
		`{"type":"rename_tab","sessionId":"s1","tabId":"t1","newName":"x"}`,
		`{"type":"get_sessions"}`,
	}

	router := NewRouter()
	for _, raw := range messages {
		client := newFakeClient("c1")
		router.HandleMessage(client, []byte(raw))

		resp := receiveJSON(t, client, 100*time.Millisecond)
		if resp["type"] != "error" {
			t.Errorf("%s: expected error response, got %v", raw, resp["type"])
			continue
		}
		msg, _ := resp["message"].(string)
		if !strings.Contains(msg, "not configured") {
			t.Errorf("%s: expected 'not configured' in %q", raw, msg)
		}
		expectNoFrame(t, client, 20*time.Millisecond)
	}
}

func TestMissingFieldsShortCircuit(t *testing.T) {
	var invoked bool
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		ExecuteCommand: func(ctx context.Context, sessionID, command, inputMode string) (bool, error) {
			invoked = true
			return true, nil
		},
		SwitchMode: func(ctx context.Context, sessionID, mode string) (bool, error) {
			invoked = true
			return true, nil
		},
		SelectSession: func(ctx context.Context, sessionID, tabID string) (bool, error) {
			invoked = true
			return true, nil
		},
		SelectTab: func(ctx context.Context, sessionID, tabID string) (bool, error) {
			invoked = true
			return true, nil
		},
		NewTab: func(ctx context.Context, sessionID string) (*model.Tab, error) {
			invoked = true
			return nil, nil
		},
		CloseTab: func(ctx context.Context, sessionID, tabID string) (bool, error) {
			invoked = true
			return true, nil
		},
		RenameTab: func(ctx context.Context, sessionID, tabID, newName string) (bool, error) {
			invoked = true
			return true, nil
		},
	})

	messages := []string{
		`{"type":"send_command","sessionId":"s1"}`,
		`{"type":"send_command","command":"ls"}`,
		`{"type":"switch_mode","sessionId":"s1"}`,
		`{"type":"select_session"}`,
		`{"type":"select_tab","sessionId":"s1"}`,
		`{"type":"new_tab"}`,
		`{"type":"close_tab","tabId":"t1"}`,
		`{"type":"rename_tab","sessionId":"s1","newName":"x"}`,
	}

	for _, raw := range messages {
		client := newFakeClient("c1")
		router.HandleMessage(client, []byte(raw))

		resp := receiveJSON(t, client, 100*time.Millisecond)
		if resp["type"] != "error" {
			t.Errorf("%s: expected error response, got %v", raw, resp)
			continue
		}
		msg, _ := resp["message"].(string)
		if !strings.HasPrefix(msg, "Missing") {
			t.Errorf("%s: expected 'Missing…' error, got %q", raw, msg)
		}
	}

	if invoked {
		t.Error("a callback was invoked despite a missing required field")
	}
}

func TestBusySessionNeverInvokesExecuteCommand(t *testing.T) {
	var executed bool
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		ExecuteCommand: func(ctx context.Context, sessionID, command, inputMode string) (bool, error) {
			executed = true
			return true, nil
		},
		GetSessionDetail: func(sessionID string) *model.Session {
			return &model.Session{ID: sessionID, State: model.SessionStateBusy}
		},
	})

	client := newFakeClient("c1")
	router.HandleMessage(client, []byte(`{"type":"send_command","sessionId":"s1","command":"ls"}`))

	resp := receiveJSON(t, client, 100*time.Millisecond)
	msg, _ := resp["message"].(string)
	if resp["type"] != "error" || !strings.Contains(msg, "busy") {
		t.Errorf("expected busy error, got %v", resp)
	}
	expectNoFrame(t, client, 50*time.Millisecond)

	if executed {
		t.Error("executeCommand was invoked for a busy session")
	}
}

func TestSendCommandUnknownSession(t *testing.T) {
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		ExecuteCommand: func(ctx context.Context, sessionID, command, inputMode string) (bool, error) {
			return true, nil
		},
		GetSessionDetail: func(sessionID string) *model.Session {
			return nil
		},
	})

	client := newFakeClient("c1")
	router.HandleMessage(client, []byte(`{"type":"send_command","sessionId":"ghost","command":"ls"}`))

	resp := receiveJSON(t, client, 100*time.Millisecond)
	msg, _ := resp["message"].(string)
	if resp["type"] != "error" || !strings.Contains(msg, "not found") {
		t.Errorf("expected not-found error, got %v", resp)
	}
}

func TestSendCommandSuccess(t *testing.T) {
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		ExecuteCommand: func(ctx context.Context, sessionID, command, inputMode string) (bool, error) {
			if sessionID != "s1" || command != "ls -la" || inputMode != "terminal" {
				t.Errorf("unexpected arguments: %s %s %s", sessionID, command, inputMode)
			}
			return true, nil
		},
		GetSessionDetail: func(sessionID string) *model.Session {
			return &model.Session{ID: sessionID, State: model.SessionStateIdle}
		},
	})

	client := newFakeClient("c1")
	router.HandleMessage(client, []byte(`{"type":"send_command","sessionId":"s1","command":"ls -la","inputMode":"terminal"}`))

	resp := receiveJSON(t, client, time.Second)
	if resp["type"] != "command_result" || resp["success"] != true {
		t.Errorf("expected successful command_result, got %v", resp)
	}
	expectNoFrame(t, client, 50*time.Millisecond)
}

func TestCallbackErrorBecomesErrorResponse(t *testing.T) {
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		ExecuteCommand: func(ctx context.Context, sessionID, command, inputMode string) (bool, error) {
			return false, errors.New("desktop exploded")
		},
		GetSessionDetail: func(sessionID string) *model.Session {
			return &model.Session{ID: sessionID, State: model.SessionStateIdle}
		},
	})

	client := newFakeClient("c1")
	router.HandleMessage(client, []byte(`{"type":"send_command","sessionId":"s1","command":"ls"}`))

	resp := receiveJSON(t, client, time.Second)
	if resp["type"] != "error" || resp["message"] != "desktop exploded" {
		t.Errorf("expected callback error to surface, got %v", resp)
	}
}

func TestHandleMessageDoesNotBlockOnSlowCallback(t *testing.T) {
	release := make(chan struct{})
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		SwitchMode: func(ctx context.Context, sessionID, mode string) (bool, error) {
			<-release
			return true, nil
		},
	})

	client := newFakeClient("c1")

	done := make(chan struct{})
	go func() {
		router.HandleMessage(client, []byte(`{"type":"switch_mode","sessionId":"s1","mode":"chat"}`))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("HandleMessage blocked on a pending callback")
	}

	// A second message is routed while the first is still in flight.
	router.HandleMessage(client, []byte(`{"type":"ping"}`))
	resp := receiveJSON(t, client, time.Second)
	if resp["type"] != "pong" {
		t.Errorf("expected pong while switch_mode pending, got %v", resp)
	}

	close(release)
	resp = receiveJSON(t, client, time.Second)
	if resp["type"] != "mode_switch_result" || resp["mode"] != "chat" {
		t.Errorf("expected mode_switch_result, got %v", resp)
	}
}

func TestNewTabNilResultIsFailureNotError(t *testing.T) {
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		NewTab: func(ctx context.Context, sessionID string) (*model.Tab, error) {
			return nil, nil
		},
	})

	client := newFakeClient("c1")
	router.HandleMessage(client, []byte(`{"type":"new_tab","sessionId":"s1"}`))

	resp := receiveJSON(t, client, time.Second)
	if resp["type"] != "new_tab_result" || resp["success"] != false {
		t.Errorf("expected failed new_tab_result, got %v", resp)
	}
	if _, hasTab := resp["tabId"]; hasTab {
		t.Errorf("declined new_tab_result should omit tabId: %v", resp)
	}
}

func TestNewTabSuccessCarriesTabID(t *testing.T) {
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		NewTab: func(ctx context.Context, sessionID string) (*model.Tab, error) {
			return &model.Tab{ID: "t42", Name: "Tab 2"}, nil
		},
	})

	client := newFakeClient("c1")
	router.HandleMessage(client, []byte(`{"type":"new_tab","sessionId":"s1"}`))

	resp := receiveJSON(t, client, time.Second)
	if resp["type"] != "new_tab_result" || resp["success"] != true || resp["tabId"] != "t42" {
		t.Errorf("unexpected new_tab_result: %v", resp)
	}
}

func TestRenameTabEmptyNameIsValid(t *testing.T) {
	var gotName string
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		RenameTab: func(ctx context.Context, sessionID, tabID, newName string) (bool, error) {
			gotName = newName
			return true, nil
		},
	})

	client := newFakeClient("c1")
	router.HandleMessage(client, []byte(`{"type":"rename_tab","sessionId":"s1","tabId":"t1","newName":""}`))

	resp := receiveJSON(t, client, time.Second)
	if resp["type"] != "rename_tab_result" || resp["success"] != true {
		t.Errorf("expected successful rename with empty name, got %v", resp)
	}
	if newName, ok := resp["newName"].(string); !ok || newName != "" {
		t.Errorf("expected empty newName in response, got %v", resp["newName"])
	}
	if gotName != "" {
		t.Errorf("callback received %q, want empty name", gotName)
	}

	// Missing tabId is a different case and must error.
	client2 := newFakeClient("c2")
	router.HandleMessage(client2, []byte(`{"type":"rename_tab","sessionId":"s1","newName":""}`))

	resp = receiveJSON(t, client2, time.Second)
	msg, _ := resp["message"].(string)
	if resp["type"] != "error" || !strings.Contains(msg, "sessionId or tabId") {
		t.Errorf("expected missing tabId error, got %v", resp)
	}
}

func TestSelectAndCloseTabResults(t *testing.T) {
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		SelectTab: func(ctx context.Context, sessionID, tabID string) (bool, error) {
			return true, nil
		},
		CloseTab: func(ctx context.Context, sessionID, tabID string) (bool, error) {
			return false, nil
		},
		SelectSession: func(ctx context.Context, sessionID, tabID string) (bool, error) {
			return true, nil
		},
	})

	client := newFakeClient("c1")

	router.HandleMessage(client, []byte(`{"type":"select_tab","sessionId":"s1","tabId":"t1"}`))
	resp := receiveJSON(t, client, time.Second)
	if resp["type"] != "select_tab_result" || resp["success"] != true || resp["tabId"] != "t1" {
		t.Errorf("unexpected select_tab_result: %v", resp)
	}

	router.HandleMessage(client, []byte(`{"type":"close_tab","sessionId":"s1","tabId":"t1"}`))
	resp = receiveJSON(t, client, time.Second)
	if resp["type"] != "close_tab_result" || resp["success"] != false {
		t.Errorf("unexpected close_tab_result: %v", resp)
	}

	router.HandleMessage(client, []byte(`{"type":"select_session","sessionId":"s1"}`))
	resp = receiveJSON(t, client, time.Second)
	if resp["type"] != "select_session_result" || resp["success"] != true {
		t.Errorf("unexpected select_session_result: %v", resp)
	}
}

func TestGetSessionsDecoratesWithLiveInfo(t *testing.T) {
	router := NewRouter()
	router.SetCallbacks(Callbacks{
		GetSessions: func() []*model.Session {
			return []*model.Session{
				{ID: "s1", Name: "one", State: model.SessionStateIdle},
				{ID: "s2", Name: "two", State: model.SessionStateBusy},
			}
		},
		IsSessionLive: func(sessionID string) bool {
			return sessionID == "s1"
		},
		GetLiveSessionInfo: func(sessionID string) *model.LiveSessionInfo {
			if sessionID == "s1" {
				return &model.LiveSessionInfo{AgentSessionID: "agent-7"}
			}
			return nil
		},
	})

	client := newFakeClient("c1")
	router.HandleMessage(client, []byte(`{"type":"get_sessions"}`))

	resp := receiveJSON(t, client, time.Second)
	if resp["type"] != "sessions_list" {
		t.Fatalf("expected sessions_list, got %v", resp)
	}

	sessions, ok := resp["sessions"].([]any)
	if !ok || len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %v", resp["sessions"])
	}

	first, _ := sessions[0].(map[string]any)
	if first["isLive"] != true || first["agentSessionId"] != "agent-7" {
		t.Errorf("expected s1 decorated as live, got %v", first)
	}

	second, _ := sessions[1].(map[string]any)
	if second["isLive"] != false {
		t.Errorf("expected s2 not live, got %v", second)
	}
	if _, has := second["agentSessionId"]; has {
		t.Errorf("expected no agentSessionId on s2, got %v", second)
	}
}

func TestUnknownTypeIsEchoedBack(t *testing.T) {
	router := NewRouter()
	client := newFakeClient("c1")

	router.HandleMessage(client, []byte(`{"type":"fancy_feature","payload":"hello"}`))

	resp := receiveJSON(t, client, 100*time.Millisecond)
	if resp["type"] != "echo" {
		t.Errorf("expected echo, got %v", resp["type"])
	}
	if resp["originalType"] != "fancy_feature" {
		t.Errorf("expected originalType preserved, got %v", resp["originalType"])
	}
	if resp["payload"] != "hello" {
		t.Errorf("expected original fields preserved, got %v", resp)
	}
	expectNoFrame(t, client, 50*time.Millisecond)
}

func TestInvalidJSONProducesError(t *testing.T) {
	router := NewRouter()
	client := newFakeClient("c1")

	router.HandleMessage(client, []byte(`{nope`))

	resp := receiveJSON(t, client, 100*time.Millisecond)
	if resp["type"] != "error" || resp["message"] != "Invalid message" {
		t.Errorf("expected invalid-message error, got %v", resp)
	}
}
