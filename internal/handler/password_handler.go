package handler

import (
	"github.com/ege-manyasli/manyasligida/internal/service"
	"github.com/ege-manyasli/manyasligida/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type PasswordHandler struct {
	authService *service.AuthService
	validator   *validator.Validator
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func NewPasswordHandler(authService *service.AuthService, validator *validator.Validator) *PasswordHandler {
	return &PasswordHandler{
		authService: authService,
		validator:   validator,
	}
}

// ChangePassword handles password change requests
// POST /api/v1/users/me/password
func (h *PasswordHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(int64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	if req.OldPassword == req.NewPassword {
		return badRequest(c, "new password must be different from old password")
	}

	if err := h.authService.ChangePassword(c.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "password changed successfully",
	})
}
