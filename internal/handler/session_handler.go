package handler

import (
	"time"

	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SessionHandler struct {
	sessions *service.SessionManager
	cookies  Cookies
}

func NewSessionHandler(sessions *service.SessionManager, cookies Cookies) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		cookies:  cookies,
	}
}

// SessionResponse represents a session without sensitive data
type SessionResponse struct {
	ID             string            `json:"id"`
	DeviceType     domain.DeviceType `json:"device_type"`
	UserAgent      string            `json:"user_agent,omitempty"`
	IPAddress      string            `json:"ip_address,omitempty"`
	CreatedAt      string            `json:"created_at"`
	LastActivityAt string            `json:"last_activity_at"`
	ExpiresAt      string            `json:"expires_at"`
	IsCurrent      bool              `json:"is_current"`
}

// Extend pushes the current session's expiry forward
// POST /api/v1/session/extend
func (h *SessionHandler) Extend(c *fiber.Ctx) error {
	token := sessionTokenFromRequest(c, h.cookies.Session)

	session, err := h.sessions.ExtendSession(c.Context(), token)
	if err != nil {
		return writeError(c, err)
	}

	setCookie(c, h.cookies.Session, token, session.ExpiresAt, h.cookies.Secure)

	return c.JSON(fiber.Map{
		"expires_at": session.ExpiresAt.Format(time.RFC3339),
	})
}

// GetMySessions lists all active sessions for the current user
// GET /api/v1/users/me/sessions
func (h *SessionHandler) GetMySessions(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(int64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var currentID uuid.UUID
	if current, ok := c.Locals("session").(*domain.Session); ok {
		currentID = current.ID
	}

	sessions, err := h.sessions.ListActiveSessions(c.Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	response := make([]SessionResponse, len(sessions))
	for i, session := range sessions {
		response[i] = SessionResponse{
			ID:             session.ID.String(),
			DeviceType:     session.DeviceType,
			UserAgent:      session.UserAgent,
			IPAddress:      session.IPAddress,
			CreatedAt:      session.CreatedAt.Format(time.RFC3339),
			LastActivityAt: session.LastActivityAt.Format(time.RFC3339),
			ExpiresAt:      session.ExpiresAt.Format(time.RFC3339),
			IsCurrent:      session.ID == currentID,
		}
	}

	return c.JSON(fiber.Map{
		"sessions": response,
		"count":    len(response),
	})
}
