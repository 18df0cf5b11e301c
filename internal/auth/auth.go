// Package auth handles accounts and bearer tokens. A user's ID is the owner
// ID every network operation is scoped by.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"neurosim/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials hides whether the username or the password was wrong
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Service registers users and logs them in
type Service struct {
	users  UserStore
	tokens *TokenIssuer
	logger *zap.Logger
	cost   int
}

// NewService creates an auth service using bcrypt's default cost
func NewService(users UserStore, tokens *TokenIssuer, logger *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// Tokens returns the issuer used to sign and check tokens
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates an account. It returns domain.ErrUsernameTaken when the
// username exists.
func (s *Service) Register(ctx context.Context, username, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", username))
	return user, nil
}

// Login checks credentials and returns a signed token
func (s *Service) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("login rejected", zap.String("username", username))
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
