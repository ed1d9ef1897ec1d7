package auth

import (
	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the cookie carrying the helper session token.
const SessionCookie = "token"

const helperIDKey = "auth_helper_id"

// HelperMiddleware guards staff routes behind the session cookie.
type HelperMiddleware struct {
	verifier *CookieVerifier
}

// NewHelperMiddleware constructs middleware.
func NewHelperMiddleware(verifier *CookieVerifier) *HelperMiddleware {
	return &HelperMiddleware{verifier: verifier}
}

// RequireHelper rejects requests without a valid helper session.
func (m *HelperMiddleware) RequireHelper(c *fiber.Ctx) error {
	staffID, err := m.verifier.Verify(c.Context(), c.Cookies(SessionCookie))
	if err != nil {
		return err
	}
	c.Locals(helperIDKey, staffID)
	return c.Next()
}

// HelperIDFromContext retrieves the authenticated helper id.
func HelperIDFromContext(c *fiber.Ctx) (string, bool) {
	val := c.Locals(helperIDKey)
	if val == nil {
		return "", false
	}
	id, ok := val.(string)
	return id, ok
}
