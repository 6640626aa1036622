package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/pkg/validation"
)

type AuthService struct {
	db             core.UserStorage
	passwordHasher core.PasswordHandler
	tokens         *TokenService
	validator      *validation.Validator
	logger         *zap.Logger
}

// Ensure AuthService implements AuthProvider
var _ core.AuthProvider = (*AuthService)(nil)

func NewAuthService(db core.UserStorage, passwordHasher core.PasswordHandler, tokens *TokenService, v *validation.Validator, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		db:             db,
		passwordHasher: passwordHasher,
		tokens:         tokens,
		validator:      v,
		logger:         logger,
	}
}

// Register creates a credential record. New users hold no roles.
func (s *AuthService) Register(ctx context.Context, input core.RegisterInput) (*core.User, error) {
	// Step 1: Validate before touching the store
	if err := s.validator.Struct(&input); err != nil {
		return nil, err
	}

	// Step 2: Check if user already exists
	existing, err := s.db.GetUserByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, core.StorageError("find user by email", err)
	}
	if existing != nil {
		return nil, core.ErrUserExists
	}

	// Step 3: Hash the password
	hashedPassword, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Step 4: Create the user
	user := &core.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Country:      input.Country,
		Age:          input.Age,
	}

	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, core.ErrUserExists) {
			return nil, core.ErrUserExists
		}
		return nil, core.StorageError("create user", err)
	}

	return user, nil
}

// Login verifies credentials and issues an access and refresh token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input core.LoginInput) (*core.LoginResult, error) {
	if err := s.validator.Struct(&input); err != nil {
		return nil, err
	}

	// Step 1: Find the user by email
	user, err := s.db.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, core.StorageError("find user by email", err)
	}

	// Step 2: Verify the password
	valid, err := s.passwordHasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash rejected", zap.String("userId", user.ID), zap.Error(err))
		return nil, core.ErrInvalidCredentials
	}
	if !valid {
		return nil, core.ErrInvalidCredentials
	}

	// Step 3: Issue tokens
	claims := core.ClaimsFor(user)
	access, err := s.tokens.IssueAccessToken(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(ctx, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return &core.LoginResult{
		User:      user,
		TokenPair: core.TokenPair{AccessToken: access, RefreshToken: refresh},
	}, nil
}

// Refresh exchanges an allow-listed refresh token for a new access token
// minted from the user's current record.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", core.ErrInvalidToken
	}

	claims, err := s.tokens.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.db.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			if rerr := s.tokens.Revoke(ctx, refreshToken); rerr != nil {
				s.logger.Warn("failed to revoke orphaned refresh token", zap.Error(rerr))
			}
			return "", core.ErrInvalidToken
		}
		return "", core.StorageError("find user by id", err)
	}

	access, err := s.tokens.IssueAccessToken(core.ClaimsFor(user))
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return access, nil
}

// Authenticate verifies a bearer access token.
func (s *AuthService) Authenticate(token string) (*core.Claims, error) {
	if token == "" {
		return nil, core.ErrMissingAuthHeader
	}
	return s.tokens.VerifyAccessToken(token)
}
