package middleware

import (
	"strings"

	"github.com/ege-manyasli/manyasligida/internal/service"
	"github.com/gofiber/fiber/v2"
)

// SessionCookies names the cookies read by SessionMiddleware.
type SessionCookies struct {
	Session  string
	Remember string
	Secure   bool
}

// SessionMiddleware authenticates the request with the session token. Only a
// request carrying no session token falls back to the remember-me assertion;
// a dead token is rejected outright. A session recreated from the assertion
// is handed back as a new cookie.
func SessionMiddleware(sessions *service.SessionManager, cookies SessionCookies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			token = c.Cookies(cookies.Session)
		}

		var (
			result *service.SessionValidation
			ok     bool
		)
		if token != "" {
			result, ok = sessions.ValidateSession(c.Context(), service.SessionTokenCredential(token))
		} else if assertion := c.Cookies(cookies.Remember); assertion != "" {
			cred := service.AssertionCredential(assertion, clientMeta(c))
			result, ok = sessions.ValidateSession(c.Context(), cred)
		}

		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not authenticated",
			})
		}

		if result.IssuedToken != "" {
			token = result.IssuedToken
			c.Cookie(&fiber.Cookie{
				Name:     cookies.Session,
				Value:    token,
				Path:     "/",
				Expires:  result.Session.ExpiresAt,
				HTTPOnly: true,
				Secure:   cookies.Secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		// Store identity in fiber.Locals for downstream handlers
		c.Locals("user_id", result.Session.UserID)
		c.Locals("session", result.Session)
		c.Locals("session_token", token)

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
