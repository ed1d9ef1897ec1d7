package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/pkg/util"
)

// AuthHandler exposes helper login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/staff/login and sets the session cookie.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.HelperLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewMissingInput("provide the username and the password")
	}

	staff, token, exp, err := h.auth.LoginHelper(c.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Expires:  exp,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(dto.HelperLoginResponse{
		ID:        staff.ID,
		Username:  staff.Username,
		Token:     token,
		ExpiresAt: exp,
	})
}
