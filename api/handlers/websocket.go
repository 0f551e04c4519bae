package handlers

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/remote-session-control/backend/internal/ws"
)

// WebSocketHandler exposes the remote-control WebSocket endpoint.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{
		wsHandler: wsHandler,
	}
}

// Attach handles GET /api/ws - attaches a web client to the control
// channel. Clients pick a session by sending a subscribe message after
// connecting.
func (h *WebSocketHandler) Attach(c *gin.Context) {
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
	}
}

// RegisterRoutes registers the WebSocket handler routes on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", h.Attach)
}
