package auth

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
)

// CookieVerifier resolves an opaque session token into the acting helper's
// id. Invalid, expired, or orphaned tokens fail closed.
type CookieVerifier struct {
	tokens *TokenManager
	staff  repository.StaffRepository
}

// NewCookieVerifier constructs the verifier.
func NewCookieVerifier(tokens *TokenManager, staff repository.StaffRepository) *CookieVerifier {
	return &CookieVerifier{tokens: tokens, staff: staff}
}

// Verify parses the token and confirms the helper still exists and is active.
func (v *CookieVerifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", util.NewInvalidCredential("missing session token")
	}
	claims, err := v.tokens.ParseToken(token)
	if err != nil {
		return "", util.NewInvalidCredential("invalid session token")
	}
	staff, err := v.staff.GetByID(ctx, claims.StaffID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", util.NewInvalidCredential("unknown helper")
		}
		return "", util.NewInternalError(err)
	}
	if !staff.Active {
		return "", util.NewInvalidCredential("helper account inactive")
	}
	return staff.ID, nil
}
