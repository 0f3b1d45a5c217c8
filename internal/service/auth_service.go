package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

const invalidCredentials = "Incorrect email or password"

// AuthService coordinates signup and login flows.
type AuthService struct {
	users     repository.UserRepository
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenManager
	dummyHash string
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Hasher   *auth.PasswordHasher
	Tokens   *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) (*AuthService, error) {
	// Verified against when the email is unknown so both login failures cost the same.
	dummy, err := deps.Hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:     deps.UserRepo,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		dummyHash: dummy,
	}, nil
}

// Signup creates a new account. The email is stored exactly as given.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}
	if tooLong(email) {
		return nil, apperrors.NewValidationError("email too long", nil)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperrors.NewValidationError("password too long", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	user, err := s.users.CreateUser(ctx, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict("Email already registered", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// Login verifies credentials and issues an access token whose subject is the email.
// Unknown emails and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.hasher.Verify(password, s.dummyHash)
		return "", time.Time{}, apperrors.NewUnauthorized(invalidCredentials)
	case err != nil:
		return "", time.Time{}, apperrors.NewInternalError(err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", time.Time{}, apperrors.NewUnauthorized(invalidCredentials)
	}

	token, exp, err := s.tokens.GenerateToken(user.Email)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}
