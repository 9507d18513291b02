// Package session persists the signed-in state of a local identity SDK so a
// restarted process comes back signed in as the same user.
package session

import (
	"time"
)

// Session is the persisted sign-in state for one app.
type Session struct {
	UserID         string    `json:"user_id"`
	IDToken        string    `json:"id_token,omitempty"`
	RefreshToken   string    `json:"refresh_token,omitempty"`
	SignInProvider string    `json:"sign_in_provider,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
	AuthTime       time.Time `json:"auth_time"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsExpired reports whether the ID token has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsExpiringSoon reports whether the ID token expires within the given
// duration.
func (s *Session) IsExpiringSoon(within time.Duration) bool {
	return time.Now().Add(within).After(s.ExpiresAt)
}

func (s *Session) HasRefreshToken() bool {
	return s.RefreshToken != ""
}

// Store persists sessions keyed by app name.
type Store interface {
	// Load returns nil, nil when no session is stored for app.
	Load(app string) (*Session, error)
	Save(app string, s *Session) error
	Clear(app string) error
}
