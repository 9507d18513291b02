package stores

import "time"

// UserStore manages accounts.
type UserStore interface {
	CreateUser(userID string, isActive bool, profile map[string]any) (*User, error)

	// GetUserById returns an error wrapping ErrNotFound for unknown IDs.
	GetUserById(userID string) (*User, error)

	// SaveUser creates or updates a user (upsert).
	SaveUser(user *User) error

	DeleteUser(userID string) error
}

// IdentityStore manages contact identities and provider subjects.
type IdentityStore interface {
	// GetIdentity gets or optionally creates an identity. Without
	// createIfMissing an unknown identity is an error wrapping ErrNotFound.
	GetIdentity(identityType, identityValue string, createIfMissing bool) (identity *Identity, newCreated bool, err error)

	SaveIdentity(identity *Identity) error
	SetUserForIdentity(identityType, identityValue string, newUserID string) error
	MarkIdentityVerified(identityType, identityValue string) error
	GetUserIdentities(userID string) ([]*Identity, error)
	DeleteIdentity(identityType, identityValue string) error
}

// ChannelStore manages sign-in channels.
type ChannelStore interface {
	GetChannel(provider string, identityKey string, createIfMissing bool) (channel *Channel, newCreated bool, err error)
	SaveChannel(channel *Channel) error
	GetChannelsByIdentity(identityKey string) ([]*Channel, error)
	DeleteChannel(provider string, identityKey string) error
}

// TokenStore manages out-of-band codes.
type TokenStore interface {
	CreateToken(userID, email string, tokenType TokenType, expiry time.Duration) (*AuthToken, error)

	// SaveToken stores a token built by the caller, such as a phone
	// verification carrying its SMS code.
	SaveToken(token *AuthToken) error

	// GetToken returns ErrTokenNotFound for unknown tokens.
	GetToken(token string) (*AuthToken, error)
	DeleteToken(token string) error
	DeleteUserTokens(userID string, tokenType TokenType) error
}

// RefreshTokenStore manages refresh tokens.
type RefreshTokenStore interface {
	CreateRefreshToken(userID, clientID string, deviceInfo map[string]any, scopes []string) (*RefreshToken, error)
	GetRefreshToken(token string) (*RefreshToken, error)

	// RotateRefreshToken revokes oldToken and issues its successor in the same
	// family. It returns ErrTokenReused when oldToken was already revoked.
	RotateRefreshToken(oldToken string) (*RefreshToken, error)

	RevokeRefreshToken(token string) error
	RevokeUserTokens(userID string) error
	RevokeTokenFamily(family string) error

	// GetUserTokens lists the user's valid tokens.
	GetUserTokens(userID string) ([]*RefreshToken, error)
	CleanupExpiredTokens() error
}

// Stores bundles the backends the local SDK needs.
type Stores struct {
	Users         UserStore
	Identities    IdentityStore
	Channels      ChannelStore
	Tokens        TokenStore
	RefreshTokens RefreshTokenStore
}
