package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/chatroom-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidName is returned when the display name is empty.
	ErrInvalidName = errors.New("invalid name")
)

// Registration carries the fields accepted at sign-up.
type Registration struct {
	Name     string
	Username string
	Password string
	Bio      string
}

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a new user with hashed password and returns it with a session token.
func (s *Service) Register(ctx context.Context, reg Registration) (*store.User, string, error) {
	username := strings.TrimSpace(reg.Username)
	if len(username) < 3 || len(username) > 32 {
		return nil, "", ErrInvalidUsername
	}
	if len(reg.Password) < 6 {
		return nil, "", ErrInvalidPassword
	}
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		return nil, "", ErrInvalidName
	}

	if existing, err := s.store.GetUserByUsername(ctx, username); err == nil && existing != nil {
		return nil, "", ErrUserExists
	}

	hashedPassword, err := HashPassword(reg.Password)
	if err != nil {
		return nil, "", err
	}

	user, err := s.store.CreateUser(ctx, &store.User{
		Name:         name,
		Username:     username,
		Bio:          strings.TrimSpace(reg.Bio),
		PasswordHash: hashedPassword,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}

// Login validates credentials and returns the user with a session token.
func (s *Service) Login(ctx context.Context, username, password string) (*store.User, string, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}

// ValidateToken validates a session token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// UserByID loads the account behind a validated token.
func (s *Service) UserByID(ctx context.Context, id string) (*store.User, error) {
	return s.store.GetUserByID(ctx, id)
}
