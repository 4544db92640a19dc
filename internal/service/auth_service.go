package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-chat-service/internal/auth"
	"github.com/spec-kit/support-chat-service/internal/config"
	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/repository"
	apperrors "github.com/spec-kit/support-chat-service/pkg/util/errorutil"
)

// AuthService issues tokens for the two actor classes. Full account
// management is out of scope; staff accounts are provisioned via
// migrations and customers are token-only guests.
type AuthService struct {
	staff  repository.StaffRepository
	tokens *auth.TokenManager
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, staffRepo repository.StaffRepository) *AuthService {
	return &AuthService{
		staff:  staffRepo,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.StaffTokenTTLMinutes, cfg.CustomerTokenTTLMinutes),
	}
}

// TokenManager exposes the underlying manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// StaffSession is a successful staff login result.
type StaffSession struct {
	Token     string
	ExpiresAt time.Time
	Staff     *domain.StaffMember
}

// StaffLogin authenticates a staff member and returns a session token.
func (s *AuthService) StaffLogin(ctx context.Context, email, password string) (*StaffSession, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !staff.Active {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateStaffToken(staff)
	if err != nil {
		return nil, err
	}
	return &StaffSession{Token: token, ExpiresAt: expiresAt, Staff: staff}, nil
}

// CustomerToken mints a case-scoped guest token for the customer who just
// opened a case.
func (s *AuthService) CustomerToken(c *domain.SupportCase) (string, time.Time, error) {
	return s.tokens.GenerateCustomerToken(c)
}
