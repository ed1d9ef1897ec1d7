package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
)

// AuthService handles helper login and bootstrap seeding.
type AuthService struct {
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, staffRepo repository.StaffRepository, logger *zap.Logger) *AuthService {
	return &AuthService{
		staff:      staffRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// TokenManager exposes the token manager for middleware construction.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// LoginHelper authenticates a helper and issues a session token.
func (s *AuthService) LoginHelper(ctx context.Context, username, password string) (*domain.StaffMember, string, time.Time, error) {
	if username == "" || password == "" {
		return nil, "", time.Time{}, util.NewMissingInput("provide the username and the password")
	}
	staff, err := s.staff.GetByUsername(ctx, username)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, util.NewInvalidCredential("invalid credentials")
		}
		return nil, "", time.Time{}, util.NewInternalError(err)
	}
	if !staff.Active {
		return nil, "", time.Time{}, util.NewInvalidCredential("helper account inactive")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, util.NewInvalidCredential("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID)
	if err != nil {
		return nil, "", time.Time{}, util.NewInternalError(err)
	}
	return staff, token, exp, nil
}

// SeedHelper creates the bootstrap helper account when none exists under
// that username. Used at startup so a fresh deployment has a login.
func (s *AuthService) SeedHelper(ctx context.Context, username, email, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.staff.GetByUsername(ctx, username); err == nil {
		return nil
	} else if err != pgx.ErrNoRows {
		return err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	staff := &domain.StaffMember{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return err
	}
	s.logger.Info("seeded helper account", zap.String("username", username))
	return nil
}
