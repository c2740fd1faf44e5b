package handler

import (
	"strings"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/service"
	"github.com/ege-manyasli/manyasligida/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *service.AuthService
	validator   *validator.Validator
	cookies     Cookies
}

func NewAuthHandler(authService *service.AuthService, validator *validator.Validator, cookies Cookies) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator,
		cookies:     cookies,
	}
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Addresses are trimmed before validation; the service lowercases them.
func (r *VerifyEmailRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *ResendCodeRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// Register handles account creation
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.authService.Register(c.Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful. Check your email for the verification code.",
		"user":    user,
	})
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Client = clientMeta(c)

	res, err := h.authService.Login(c.Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	setCookie(c, h.cookies.Session, res.SessionToken, res.Session.ExpiresAt, h.cookies.Secure)
	if res.RememberToken != "" {
		setCookie(c, h.cookies.Remember, res.RememberToken, res.RememberExpiresAt, h.cookies.Secure)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user":          res.User,
		"session_token": res.SessionToken,
		"expires_at":    res.Session.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout ends the current session and forgets the remember-me assertion
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := sessionTokenFromRequest(c, h.cookies.Session)

	if err := h.authService.Logout(c.Context(), token); err != nil {
		return writeError(c, err)
	}

	clearCookie(c, h.cookies.Session, h.cookies.Secure)
	clearCookie(c, h.cookies.Remember, h.cookies.Secure)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// VerifyEmail confirms an address with the mailed code
// POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.normalize()

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.authService.VerifyEmail(c.Context(), req.Email, req.Code); err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Email verified successfully",
	})
}

// ResendCode mails a fresh verification code
// POST /api/v1/auth/resend-code
func (h *AuthHandler) ResendCode(c *fiber.Ctx) error {
	var req ResendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.normalize()

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.authService.ResendVerificationCode(c.Context(), req.Email); err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Verification code sent",
	})
}
