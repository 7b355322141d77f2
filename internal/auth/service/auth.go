// Package service implements staff registration and login.
package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/medistock/medistock-backend/internal/auth/jwt"
	"github.com/medistock/medistock-backend/internal/auth/repository"
	"github.com/medistock/medistock-backend/pkg/errors"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// AuthService handles staff authentication
type AuthService struct {
	users  *repository.UserRepository
	tokens *jwt.Manager
	logger *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, tokens *jwt.Manager, log *logger.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: log.WithComponent("auth-service"),
	}
}

// RegisterInput is the payload for creating a staff account
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=owner staff"`
}

// LoginInput is the payload for logging in
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the signed token and the authenticated user
type LoginResult struct {
	Token *jwt.Token       `json:"token"`
	User  *repository.User `json:"user"`
}

// Register creates a staff account with a bcrypt password hash
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*repository.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	role := input.Role
	if role == "" {
		role = "staff"
	}

	user := &repository.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("staff account created")
	return user, nil
}

// Login verifies credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, errors.Unauthorized("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	token, err := s.tokens.Generate(&jwt.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		return nil, errors.Internal("failed to sign token")
	}

	s.logger.Info().Str("user_id", user.ID).Msg("staff login")
	return &LoginResult{Token: token, User: user}, nil
}

// GetProfile returns the account for the given user ID
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*repository.User, error) {
	return s.users.GetByID(ctx, userID)
}
