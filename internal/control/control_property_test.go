package control

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestBroadcastFanOutProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Every open client receives exactly the same bytes from one broadcast.
	properties.Property("unfiltered broadcast reaches all open clients with identical bytes", prop.ForAll(
		func(numClients int, theme string) bool {
			clients := make([]*fakeClient, numClients)
			for i := range clients {
				clients[i] = newFakeClient(fmt.Sprintf("c%d", i))
			}

			b := NewBroadcaster()
			b.SetClientsProvider(staticProvider(clients...))
			b.BroadcastThemeChange(theme)

			var first []byte
			for _, c := range clients {
				select {
				case data := <-c.sent:
					if first == nil {
						first = data
					} else if string(data) != string(first) {
						return false
					}
				case <-time.After(100 * time.Millisecond):
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.AnyString(),
	))

	// A session-scoped broadcast reaches subscribers of that session and
	// dashboard clients, never subscribers of another session.
	properties.Property("session-scoped broadcast respects subscriptions", prop.ForAll(
		func(input string) bool {
			watcher := newFakeClient("watcher")
			watcher.SetSubscribedSession("target")
			other := newFakeClient("other")
			other.SetSubscribedSession("elsewhere")
			dashboard := newFakeClient("dashboard")

			b := NewBroadcaster()
			b.SetClientsProvider(staticProvider(watcher, other, dashboard))
			b.BroadcastUserInput("target", input)

			for _, c := range []*fakeClient{watcher, dashboard} {
				select {
				case data := <-c.sent:
					var decoded UserInputEvent
					if err := json.Unmarshal(data, &decoded); err != nil {
						return false
					}
					if decoded.SessionID != "target" || decoded.Input != input {
						return false
					}
				case <-time.After(100 * time.Millisecond):
					return false
				}
			}

			select {
			case <-other.sent:
				return false
			default:
				return true
			}
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestRouterEchoProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// An unrecognized message comes back with its payload intact, its type
	// rewritten to echo, and its original type preserved.
	properties.Property("unknown message types echo their payload back", prop.ForAll(
		func(suffix, payload string) bool {
			// Prefix keeps the generated type out of the recognized set.
			msgType := "x_" + suffix

			raw, err := json.Marshal(map[string]any{
				"type":    msgType,
				"payload": payload,
			})
			if err != nil {
				return false
			}

			router := NewRouter()
			client := newFakeClient("c1")
			router.HandleMessage(client, raw)

			select {
			case data := <-client.sent:
				var decoded map[string]any
				if err := json.Unmarshal(data, &decoded); err != nil {
					return false
				}
				return decoded["type"] == "echo" &&
					decoded["originalType"] == msgType &&
					decoded["payload"] == payload
			case <-time.After(100 * time.Millisecond):
				return false
			}
		},
		gen.Identifier(),
		gen.AnyString(),
	))

	// Every ping yields exactly one pong.
	properties.Property("ping yields exactly one pong", prop.ForAll(
		func(n int) bool {
			router := NewRouter()
			client := newFakeClient("c1")

			for i := 0; i < n; i++ {
				router.HandleMessage(client, []byte(`{"type":"ping"}`))
			}

			for i := 0; i < n; i++ {
				select {
				case data := <-client.sent:
					var decoded PongResponse
					if err := json.Unmarshal(data, &decoded); err != nil {
						return false
					}
					if decoded.Type != ResponseTypePong || decoded.Timestamp <= 0 {
						return false
					}
				case <-time.After(100 * time.Millisecond):
					return false
				}
			}

			select {
			case <-client.sent:
				return false
			default:
				return true
			}
		},
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}
