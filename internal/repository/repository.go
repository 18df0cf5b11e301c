package repository

import (
	"context"

	"neurosim/internal/domain"
)

// Repository defines the interface for neuron network data access
type Repository interface {
	// Network persistence consumed by domain.Network
	domain.Store

	// Firing history
	LoadFiringEvents(ctx context.Context, owner string) ([]domain.FiringEvent, error)

	// Accounts
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// Close releases resources
	Close() error
}
