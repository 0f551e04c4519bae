package control

// Client is the protocol layer's view of a connected web client. The
// transport layer owns the connection lifecycle; this package only reads the
// open state, reads and writes the session subscription, and sends frames.
type Client interface {
	// ID returns the connection identifier.
	ID() string

	// SubscribedSession returns the session the client is subscribed to.
	// ok is false for dashboard clients, which have no subscription and
	// receive every session-scoped broadcast.
	SubscribedSession() (sessionID string, ok bool)

	// SetSubscribedSession sets the client's session subscription. An empty
	// sessionID clears it, turning the client into a dashboard client.
	SetSubscribedSession(sessionID string)

	// Open reports whether the underlying transport can accept a send.
	Open() bool

	// Send queues one frame for delivery to the client.
	Send(data []byte) error
}
