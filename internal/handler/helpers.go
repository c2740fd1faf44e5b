package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "http")

// Cookies carries cookie names and lifetimes shared by handlers and the
// session middleware.
type Cookies struct {
	Session    string
	SessionTTL time.Duration
	Remember   string
	Visitor    string
	VisitorTTL time.Duration
	Secure     bool
}

// clientMeta extracts the request origin recorded on new sessions.
func clientMeta(c *fiber.Ctx) domain.ClientMeta {
	return domain.ClientMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

// sessionTokenFromRequest prefers the Bearer header and falls back to the
// session cookie.
func sessionTokenFromRequest(c *fiber.Ctx, cookie string) string {
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Cookies(cookie)
}

func setCookie(c *fiber.Ctx, name, value string, expires time.Time, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearCookie(c *fiber.Ctx, name string, secure bool) {
	setCookie(c, name, "", time.Unix(0, 0), secure)
}

// visitorID returns the cart key for this browser, minting one on first use.
func visitorID(c *fiber.Ctx, cookies Cookies) string {
	if id := c.Cookies(cookies.Visitor); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	id := uuid.New().String()
	setCookie(c, cookies.Visitor, id, time.Now().Add(cookies.VisitorTTL), cookies.Secure)
	return id
}

// writeError maps service errors to HTTP responses.
func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, message = fiber.StatusBadRequest, "invalid input"
	case errors.Is(err, service.ErrValidation):
		status, message = fiber.StatusBadRequest, strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
	case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrCodeInvalidOrExpired):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrSessionNotFound):
		status, message = fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrEmailNotConfirmed):
		status, message = fiber.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrItemNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrCartFull):
		status, message = fiber.StatusConflict, err.Error()
	case errors.Is(err, service.ErrStoreUnavailable):
		status, message = fiber.StatusServiceUnavailable, "service temporarily unavailable"
	}

	if status >= fiber.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{"method": c.Method(), "path": c.Path()}).Error("request failed")
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}
