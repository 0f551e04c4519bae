// Package handlers provides HTTP API request handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/remote-session-control/backend/internal/buffer"
	"github.com/remote-session-control/backend/internal/model"
	"github.com/remote-session-control/backend/internal/session"
)

// SessionHandler handles HTTP requests for session management.
type SessionHandler struct {
	manager *session.Manager
	history *buffer.SessionHistory
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *session.Manager, history *buffer.SessionHistory) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		history: history,
	}
}

// CreateSessionRequest represents the request body for creating a session.
type CreateSessionRequest struct {
	Name string `json:"name" binding:"required"`
	Mode string `json:"mode"`
}

// SessionResponse represents a session in API responses.
type SessionResponse struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	State          string      `json:"state"`
	Mode           string      `json:"mode,omitempty"`
	ActiveTabID    string      `json:"activeTabId,omitempty"`
	Tabs           []model.Tab `json:"tabs,omitempty"`
	IsLive         bool        `json:"isLive"`
	AgentSessionID string      `json:"agentSessionId,omitempty"`
	CreatedAt      string      `json:"createdAt"`
	UpdatedAt      string      `json:"updatedAt"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toSessionResponse converts a model.SessionSummary to SessionResponse.
func toSessionResponse(s model.SessionSummary) *SessionResponse {
	return &SessionResponse{
		ID:             s.ID,
		Name:           s.Name,
		State:          string(s.State),
		Mode:           s.Mode,
		ActiveTabID:    s.ActiveTabID,
		Tabs:           s.Tabs,
		IsLive:         s.IsLive,
		AgentSessionID: s.AgentSessionID,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      s.UpdatedAt.Format(time.RFC3339),
	}
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// Create handles POST /api/sessions - creates a new session.
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	sess, err := h.manager.Create(c.Request.Context(), &model.CreateSessionRequest{
		Name: req.Name,
		Mode: req.Mode,
	})
	if err != nil {
		if errors.Is(err, model.ErrNameRequired) {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(model.SessionSummary{Session: *sess}))
}

// List handles GET /api/sessions - lists all sessions.
func (h *SessionHandler) List(c *gin.Context) {
	summaries, err := h.manager.ListSummaries(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list sessions: "+err.Error())
		return
	}

	response := make([]*SessionResponse, len(summaries))
	for i, summary := range summaries {
		response[i] = toSessionResponse(summary)
	}

	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/sessions/:id - gets a specific session.
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return
	}

	sess, err := h.manager.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session "+sessionID+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get session: "+err.Error())
		return
	}

	summary := model.SessionSummary{Session: *sess}
	if info := h.manager.GetLiveSessionInfo(sessionID); info != nil {
		summary.IsLive = true
		summary.AgentSessionID = info.AgentSessionID
	}

	c.JSON(http.StatusOK, toSessionResponse(summary))
}

// Delete handles DELETE /api/sessions/:id - deletes a session.
func (h *SessionHandler) Delete(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return
	}

	if err := h.manager.Delete(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session "+sessionID+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete session: "+err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

// Events handles GET /api/sessions/:id/events - returns the recent broadcast
// envelopes for a session.
func (h *SessionHandler) Events(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return
	}

	if _, err := h.manager.Get(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session "+sessionID+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get session: "+err.Error())
		return
	}

	envelopes := h.history.Recent(sessionID)
	events := make([]json.RawMessage, len(envelopes))
	for i, envelope := range envelopes {
		events[i] = json.RawMessage(envelope)
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// RegisterRoutes registers the session handler routes on a Gin router group.
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/sessions")
	{
		sessions.POST("", h.Create)
		sessions.GET("", h.List)
		sessions.GET("/:id", h.Get)
		sessions.DELETE("/:id", h.Delete)
		sessions.GET("/:id/events", h.Events)
	}
}
