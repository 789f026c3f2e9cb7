package service

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/streamhub/internal/auth"
	"github.com/spec-kit/streamhub/internal/config"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/repository"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

// AuthService handles administrator identities and sessions.
type AuthService struct {
	admins     repository.AdminRepository
	tokenMgr   *auth.TokenManager
	limiter    auth.LoginLimiter
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	AdminRepo repository.AdminRepository
	Tokens    *auth.TokenManager
	Limiter   auth.LoginLimiter
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = auth.NoopLimiter{}
	}
	return &AuthService{
		admins:     deps.AdminRepo,
		tokenMgr:   tokens,
		limiter:    limiter,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// CreateAdmin stores a new administrator.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password string) (*domain.Admin, error) {
	email = strings.TrimSpace(email)
	err := validation.Errors{
		"email":    validation.Validate(email, validation.Required, is.Email),
		"password": validation.Validate(password, validation.Required, validation.Length(8, 72)),
	}.Filter()
	if err != nil {
		return nil, validationFailed(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	admin := &domain.Admin{Email: email, PasswordHash: hash}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, storeError("admin", err)
	}
	return admin, nil
}

// EnsureAdmin creates the administrator unless one with that email exists.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.admins.GetByEmail(ctx, strings.TrimSpace(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, storeError("admin", err)
	}
	if _, err := s.CreateAdmin(ctx, email, password); err != nil {
		return false, err
	}
	return true, nil
}

// LoginAdmin authenticates an administrator.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.Admin, string, time.Time, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email and password are required", nil)
	}
	if !s.limiter.Allow(ctx, "admin:"+email) {
		return nil, "", time.Time{}, apperrors.NewRateLimited("too many login attempts")
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, "", time.Time{}, storeError("admin", err)
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
	}
	s.limiter.Reset(ctx, "admin:"+email)

	token, exp, err := s.tokenMgr.GenerateToken(admin.ID, domain.SubjectTypeAdmin, admin.Email)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return admin, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
