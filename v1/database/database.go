package database

import (
	"context"
	"errors"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/models"
)

var (
	// ErrUserNotFound is returned when no user has the requested user ID
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when the user ID is already registered
	ErrUserExists = errors.New("user already exists")
)

// UserRepository defines the database-agnostic interface for user storage
type UserRepository interface {
	// CreateUser inserts a user; a duplicate user ID yields ErrUserExists
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByUserID returns the user or ErrUserNotFound
	GetUserByUserID(ctx context.Context, userID string) (*models.User, error)

	// UserExists reports whether the user ID is registered
	UserExists(ctx context.Context, userID string) (bool, error)
}
