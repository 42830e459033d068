package testutil

import (
	"context"
	"sync"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/database"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/models"
)

// MockRepository is an in-memory database.UserRepository for tests
type MockRepository struct {
	mu     sync.Mutex
	users  map[string]*models.User
	nextID uint

	// Err, when set, is returned by every method
	Err error
}

// NewMockRepository creates an empty MockRepository
func NewMockRepository() *MockRepository {
	return &MockRepository{users: make(map[string]*models.User)}
}

// CreateUser stores a copy of the user
func (m *MockRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if _, ok := m.users[user.UserID]; ok {
		return nil, database.ErrUserExists
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.users[user.UserID] = &stored
	return user, nil
}

// GetUserByUserID returns a copy of the stored user
func (m *MockRepository) GetUserByUserID(ctx context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	user, ok := m.users[userID]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	found := *user
	return &found, nil
}

// UserExists reports whether the user is stored
func (m *MockRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.users[userID]
	return ok, nil
}

// Put stores a user directly, bypassing CreateUser
func (m *MockRepository) Put(user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *user
	m.users[user.UserID] = &stored
}

// Count returns the number of stored users
func (m *MockRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}
