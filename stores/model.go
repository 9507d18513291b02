package stores

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")

	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenRevoked  = errors.New("token revoked")
	// ErrTokenReused is returned when a rotated refresh token is presented
	// again. The token family should be revoked.
	ErrTokenReused = errors.New("refresh token reused")
)

// Identity types.
const (
	IdentityEmail   = "email"
	IdentityPhone   = "phone"
	IdentitySubject = "subject"
)

// Profile keys used on User.Profile.
const (
	ProfileDisplayName = "display_name"
	ProfilePhotoURL    = "photo_url"
	ProfileAnonymous   = "anonymous"
)

// User is an account.
type User struct {
	ID           string         `json:"user_id"`
	IsActive     bool           `json:"is_active"`
	Profile      map[string]any `json:"profile"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastSignInAt time.Time      `json:"last_sign_in_at"`
}

// ProfileString returns Profile[key] as a string, or "".
func (u *User) ProfileString(key string) string {
	s, _ := u.Profile[key].(string)
	return s
}

// SetProfile sets Profile[key], allocating the map when needed.
func (u *User) SetProfile(key string, value any) {
	if u.Profile == nil {
		u.Profile = map[string]any{}
	}
	u.Profile[key] = value
}

func (u *User) IsAnonymous() bool {
	b, _ := u.Profile[ProfileAnonymous].(bool)
	return b
}

// Identity is a contact handle (email, phone) or provider subject owned by a
// user.
type Identity struct {
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	UserID    string    `json:"user_id"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Key returns the identity key channels refer to.
func (i *Identity) Key() string {
	return IdentityKey(i.Type, i.Value)
}

// Channel is one sign-in method for an identity.
type Channel struct {
	Provider    string         `json:"provider"`
	IdentityKey string         `json:"identity_key"`
	Credentials map[string]any `json:"credentials"`
	Profile     map[string]any `json:"profile"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Version     int            `json:"version"`
}

// IsExpired reports whether the channel has an expiry and it has passed.
func (c *Channel) IsExpired() bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.ExpiresAt)
}

// IdentityKey creates a consistent identity key from type and value.
func IdentityKey(identityType, identityValue string) string {
	return identityType + ":" + identityValue
}

// TokenType classifies an AuthToken.
type TokenType string

const (
	TokenTypeEmailVerification TokenType = "email_verification"
	TokenTypePasswordReset     TokenType = "password_reset"
	TokenTypePhoneVerification TokenType = "phone_verification"
)

// Default expiries.
const (
	TokenExpiryEmailVerification = 24 * time.Hour
	TokenExpiryPasswordReset     = 1 * time.Hour
	TokenExpiryPhoneVerification = 10 * time.Minute
	TokenExpiryRefreshToken      = 30 * 24 * time.Hour
)

// AuthToken is an out-of-band code. For phone verification Token is the
// verification ID handed back to the client and Code the digits sent by SMS.
type AuthToken struct {
	Token     string    `json:"token"`
	Type      TokenType `json:"type"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (t *AuthToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid checks the type and expiry.
func (t *AuthToken) IsValid(expectedType TokenType) bool {
	return t.Type == expectedType && !t.IsExpired()
}

// RefreshToken is a long-lived token exchanged for fresh ID tokens. Each
// rotation creates a new generation in the same family.
type RefreshToken struct {
	Token      string         `json:"token"`
	TokenHash  string         `json:"token_hash"`
	UserID     string         `json:"user_id"`
	ClientID   string         `json:"client_id"`
	DeviceInfo map[string]any `json:"device_info,omitempty"`
	Family     string         `json:"family"`
	Generation int            `json:"generation"`
	Scopes     []string       `json:"scopes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
	LastUsedAt time.Time      `json:"last_used_at"`
	Revoked    bool           `json:"revoked"`
	RevokedAt  *time.Time     `json:"revoked_at,omitempty"`
}

func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid reports whether the token can still be used.
func (t *RefreshToken) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}
