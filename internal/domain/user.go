package domain

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned when a username or ID has no account
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when registering an existing username
	ErrUsernameTaken = errors.New("username already exists")
)

// User is an account. Its ID is the opaque owner ID networks are scoped by.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
