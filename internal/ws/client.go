package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrClientClosed is returned when sending to a closed client.
	ErrClientClosed = errors.New("client closed")

	// ErrSendBufferFull is returned when a client cannot keep up with its
	// send queue. The client is closed as a side effect.
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client represents a connected web client.
type Client struct {
	id          string
	connectedAt time.Time
	conn        *websocket.Conn
	send        chan []byte

	mu            sync.Mutex
	subscribed    string
	hasSubscribed bool
	closed        bool
}

// NewClient creates a client for an upgraded connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		id:          uuid.New().String(),
		connectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, 256),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// ConnectedAt returns when the client connected.
func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// SubscribedSession returns the client's session subscription. ok is false
// for dashboard clients.
func (c *Client) SubscribedSession() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed, c.hasSubscribed
}

// SetSubscribedSession sets the session subscription. An empty sessionID
// clears it, turning the client into a dashboard client.
func (c *Client) SetSubscribedSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = sessionID
	c.hasSubscribed = sessionID != ""
}

// Open reports whether the client can accept a send.
func (c *Client) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Send queues one frame for delivery to the client. A client that cannot
// keep up is closed rather than allowed to block the sender.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.closeLocked()
		return ErrSendBufferFull
	}
}

// Close closes the client's send channel. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send channel drained by the write pump.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}
