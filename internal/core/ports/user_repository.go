package ports

import (
	"context"

	"github.com/originals/task-api/internal/core/domain"
)

// UserRepository defines the identity store.
// Lookups return (nil, nil) when no user matches; callers decide whether
// absence is an error.
type UserRepository interface {
	// Create persists a new user. Returns domain.ErrUserExists when the
	// username or email is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Delete removes the user, every task the user is responsible for, and
	// the user's assignee links on other tasks. Reports false when absent.
	Delete(ctx context.Context, id int64) (bool, error)
}
