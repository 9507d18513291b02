package fs

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/panyam/rxauth/stores"
)

// FSRefreshTokenStore stores refresh tokens as JSON files named by the hash
// of the token.
type FSRefreshTokenStore struct {
	StoragePath string
	mu          sync.RWMutex
}

func NewFSRefreshTokenStore(storagePath string) *FSRefreshTokenStore {
	return &FSRefreshTokenStore{StoragePath: storagePath}
}

func (s *FSRefreshTokenStore) dir() string {
	return filepath.Join(s.StoragePath, "refresh_tokens")
}

func (s *FSRefreshTokenStore) tokenPath(token string) string {
	return filepath.Join(s.dir(), stores.HashToken(token)+".json")
}

func (s *FSRefreshTokenStore) save(token *stores.RefreshToken) error {
	return writeJSON(s.tokenPath(token.Token), token)
}

func (s *FSRefreshTokenStore) load(token string) (*stores.RefreshToken, error) {
	var rt stores.RefreshToken
	if err := readJSON(s.tokenPath(token), &rt, stores.ErrTokenNotFound); err != nil {
		return nil, err
	}
	return &rt, nil
}

func (s *FSRefreshTokenStore) CreateRefreshToken(userID, clientID string, deviceInfo map[string]any, scopes []string) (*stores.RefreshToken, error) {
	rt, err := stores.NewRefreshToken(userID, clientID, deviceInfo, scopes)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return rt, s.save(rt)
}

func (s *FSRefreshTokenStore) GetRefreshToken(token string) (*stores.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(token)
}

func (s *FSRefreshTokenStore) RotateRefreshToken(oldToken string) (*stores.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.load(oldToken)
	if err != nil {
		return nil, err
	}
	if old.Revoked {
		return nil, stores.ErrTokenReused
	}
	if old.IsExpired() {
		return nil, stores.ErrTokenExpired
	}

	now := time.Now()
	old.Revoked = true
	old.RevokedAt = &now
	if err := s.save(old); err != nil {
		return nil, err
	}

	next, err := stores.NextRefreshToken(old)
	if err != nil {
		return nil, err
	}
	return next, s.save(next)
}

func (s *FSRefreshTokenStore) RevokeRefreshToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, err := s.load(token)
	if err == stores.ErrTokenNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if rt.Revoked {
		return nil
	}
	now := time.Now()
	rt.Revoked = true
	rt.RevokedAt = &now
	return s.save(rt)
}

// revokeWhere revokes every live token matching match.
func (s *FSRefreshTokenStore) revokeWhere(match func(*stores.RefreshToken) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	return eachJSON(s.dir(), func(rt *stores.RefreshToken) error {
		if rt.Revoked || !match(rt) {
			return nil
		}
		rt.Revoked = true
		rt.RevokedAt = &now
		return s.save(rt)
	})
}

func (s *FSRefreshTokenStore) RevokeUserTokens(userID string) error {
	return s.revokeWhere(func(rt *stores.RefreshToken) bool { return rt.UserID == userID })
}

func (s *FSRefreshTokenStore) RevokeTokenFamily(family string) error {
	return s.revokeWhere(func(rt *stores.RefreshToken) bool { return rt.Family == family })
}

func (s *FSRefreshTokenStore) GetUserTokens(userID string) ([]*stores.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tokens := []*stores.RefreshToken{}
	err := eachJSON(s.dir(), func(rt *stores.RefreshToken) error {
		if rt.UserID == userID && rt.IsValid() {
			tokens = append(tokens, rt)
		}
		return nil
	})
	return tokens, err
}

// CleanupExpiredTokens deletes expired tokens. Revoked but unexpired tokens
// are kept so reuse can still be detected.
func (s *FSRefreshTokenStore) CleanupExpiredTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return eachJSON(s.dir(), func(rt *stores.RefreshToken) error {
		if rt.IsExpired() {
			return removeFile(s.tokenPath(rt.Token))
		}
		return nil
	})
}
