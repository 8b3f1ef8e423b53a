package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/core/port"
	"github.com/arklim/anon-inbox/internal/infra/security"
	"github.com/arklim/anon-inbox/internal/repository"
)

// TokenManager issues and verifies access tokens.
type TokenManager interface {
	Issue(userID, username string) (string, time.Time, error)
	Parse(raw string) (*security.AccessTokenClaims, error)
}

// SignInResult carries the issued access token.
type SignInResult struct {
	User        domain.User
	AccessToken string
	ExpiresAt   time.Time
}

// AuthService orchestrates sign-in and access token verification.
type AuthService struct {
	users  port.UserRepository
	hasher port.PasswordHasher
	tokens TokenManager
	logger *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(users port.UserRepository, hasher port.PasswordHasher, tokens TokenManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

// SignIn authenticates by username or email and returns an access token.
func (s *AuthService) SignIn(ctx context.Context, identifier, password string) (SignInResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return SignInResult{}, invalidInput("identifier", "is required")
	}
	if password == "" {
		return SignInResult{}, invalidInput("password", "is required")
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SignInResult{}, ErrInvalidCredentials
		}
		return SignInResult{}, storeError("lookup user", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("password hash verification failed", zap.String("user_id", user.ID), zap.Error(err))
		return SignInResult{}, ErrInvalidCredentials
	}
	if !ok {
		return SignInResult{}, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return SignInResult{}, ErrAccountNotVerified
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return SignInResult{}, fmt.Errorf("issue access token: %w", err)
	}

	return SignInResult{User: user.Sanitized(), AccessToken: token, ExpiresAt: expiresAt}, nil
}

// ParseAccessToken resolves the caller behind a bearer token.
func (s *AuthService) ParseAccessToken(raw string) (domain.Caller, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return domain.Caller{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return domain.Caller{UserID: claims.UserID, Username: claims.Username}, nil
}
