package fs

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/panyam/rxauth/stores"
)

// FSUserStore stores users as JSON files.
type FSUserStore struct {
	StoragePath string
	mu          sync.RWMutex
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) userPath(userID string) string {
	return filepath.Join(s.StoragePath, "users", fileName(userID))
}

func (s *FSUserStore) CreateUser(userID string, isActive bool, profile map[string]any) (*stores.User, error) {
	now := time.Now()
	user := &stores.User{
		ID:        userID,
		IsActive:  isActive,
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return user, s.SaveUser(user)
}

func (s *FSUserStore) GetUserById(userID string) (*stores.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var user stores.User
	if err := readJSON(s.userPath(userID), &user, fmt.Errorf("user %s: %w", userID, stores.ErrNotFound)); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *FSUserStore) SaveUser(user *stores.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.UpdatedAt = time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = user.UpdatedAt
	}
	return writeJSON(s.userPath(user.ID), user)
}

func (s *FSUserStore) DeleteUser(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.userPath(userID))
}
