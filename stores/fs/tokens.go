package fs

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/panyam/rxauth/stores"
)

// FSTokenStore stores out-of-band codes as JSON files.
type FSTokenStore struct {
	StoragePath string
	mu          sync.RWMutex
}

func NewFSTokenStore(storagePath string) *FSTokenStore {
	return &FSTokenStore{StoragePath: storagePath}
}

func (s *FSTokenStore) dir() string {
	return filepath.Join(s.StoragePath, "tokens")
}

func (s *FSTokenStore) tokenPath(token string) string {
	return filepath.Join(s.dir(), fileName(token))
}

func (s *FSTokenStore) CreateToken(userID, email string, tokenType stores.TokenType, expiry time.Duration) (*stores.AuthToken, error) {
	token, err := stores.NewAuthToken(userID, email, tokenType, expiry)
	if err != nil {
		return nil, err
	}
	return token, s.SaveToken(token)
}

func (s *FSTokenStore) SaveToken(token *stores.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.tokenPath(token.Token), token)
}

// GetToken returns the token, deleting it and reporting ErrTokenExpired when
// it has expired.
func (s *FSTokenStore) GetToken(token string) (*stores.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var authToken stores.AuthToken
	if err := readJSON(s.tokenPath(token), &authToken, stores.ErrTokenNotFound); err != nil {
		return nil, err
	}
	if authToken.IsExpired() {
		removeFile(s.tokenPath(token))
		return nil, stores.ErrTokenExpired
	}
	return &authToken, nil
}

func (s *FSTokenStore) DeleteToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.tokenPath(token))
}

func (s *FSTokenStore) DeleteUserTokens(userID string, tokenType stores.TokenType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return eachJSON(s.dir(), func(t *stores.AuthToken) error {
		if t.UserID == userID && t.Type == tokenType {
			return removeFile(s.tokenPath(t.Token))
		}
		return nil
	})
}
