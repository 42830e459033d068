package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/models"
	"gorm.io/gorm"
)

// GormRepository implements UserRepository using GORM (SQLite or PostgreSQL)
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates the repository and migrates the users table
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate users table: %w", err)
	}
	return &GormRepository{db: db}, nil
}

// NewGormRepositoryWithoutMigration wraps a database whose schema is managed elsewhere
func NewGormRepositoryWithoutMigration(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// CreateUser inserts a new user
func (r *GormRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByUserID retrieves a user by its external user ID
func (r *GormRepository) GetUserByUserID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &user, nil
}

// UserExists reports whether a user ID is registered
func (r *GormRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return count > 0, nil
}

// isUniqueViolation recognizes duplicate-key errors from SQLite and PostgreSQL
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
