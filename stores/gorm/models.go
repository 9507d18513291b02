package gorm

import (
	"time"

	"github.com/panyam/rxauth/stores"
)

// Map and slice columns are stored as JSON through gorm's json serializer.

type userRow struct {
	ID           string         `gorm:"primaryKey;size:64"`
	IsActive     bool           `gorm:"default:true"`
	Profile      map[string]any `gorm:"serializer:json"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	LastSignInAt time.Time
}

func (userRow) TableName() string { return "users" }

func newUserRow(u *stores.User) *userRow {
	return &userRow{u.ID, u.IsActive, u.Profile, u.CreatedAt, u.UpdatedAt, u.LastSignInAt}
}

func (r *userRow) user() *stores.User {
	return &stores.User{
		ID:           r.ID,
		IsActive:     r.IsActive,
		Profile:      orEmpty(r.Profile),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastSignInAt: r.LastSignInAt,
	}
}

type identityRow struct {
	Type      string `gorm:"primaryKey;size:32"`
	Value     string `gorm:"primaryKey;size:255"`
	UserID    string `gorm:"size:64;index"`
	Verified  bool
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	Version   int       `gorm:"default:1"`
}

func (identityRow) TableName() string { return "identities" }

func newIdentityRow(i *stores.Identity) *identityRow {
	return &identityRow{i.Type, i.Value, i.UserID, i.Verified, i.CreatedAt, i.UpdatedAt, i.Version}
}

func (r *identityRow) identity() *stores.Identity {
	id := stores.Identity(*r)
	return &id
}

// channelRow is keyed by provider and "type:value" identity key.
type channelRow struct {
	Provider    string         `gorm:"primaryKey;size:32"`
	IdentityKey string         `gorm:"primaryKey;size:320"`
	Credentials map[string]any `gorm:"serializer:json"`
	Profile     map[string]any `gorm:"serializer:json"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	ExpiresAt   time.Time
	Version     int `gorm:"default:1"`
}

func (channelRow) TableName() string { return "channels" }

func newChannelRow(c *stores.Channel) *channelRow {
	return &channelRow{c.Provider, c.IdentityKey, c.Credentials, c.Profile, c.CreatedAt, c.UpdatedAt, c.ExpiresAt, c.Version}
}

func (r *channelRow) channel() *stores.Channel {
	return &stores.Channel{
		Provider:    r.Provider,
		IdentityKey: r.IdentityKey,
		Credentials: orEmpty(r.Credentials),
		Profile:     orEmpty(r.Profile),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		ExpiresAt:   r.ExpiresAt,
		Version:     r.Version,
	}
}

type tokenRow struct {
	Token     string           `gorm:"primaryKey;size:128"`
	Type      stores.TokenType `gorm:"size:32;index"`
	UserID    string           `gorm:"size:64;index"`
	Email     string           `gorm:"size:255"`
	Phone     string           `gorm:"size:32"`
	Code      string           `gorm:"size:16"`
	CreatedAt time.Time        `gorm:"autoCreateTime"`
	ExpiresAt time.Time        `gorm:"index"`
}

func (tokenRow) TableName() string { return "auth_tokens" }

func newTokenRow(t *stores.AuthToken) *tokenRow {
	return &tokenRow{t.Token, t.Type, t.UserID, t.Email, t.Phone, t.Code, t.CreatedAt, t.ExpiresAt}
}

func (r *tokenRow) authToken() *stores.AuthToken {
	return &stores.AuthToken{
		Token:     r.Token,
		Type:      r.Type,
		UserID:    r.UserID,
		Email:     r.Email,
		Phone:     r.Phone,
		Code:      r.Code,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

// refreshRow is keyed by the token hash; the token itself is never stored.
type refreshRow struct {
	TokenHash  string         `gorm:"primaryKey;size:64"`
	Token      string         `gorm:"-"`
	UserID     string         `gorm:"size:64;index"`
	ClientID   string         `gorm:"size:64"`
	DeviceInfo map[string]any `gorm:"serializer:json"`
	Family     string         `gorm:"size:36;index"`
	Generation int            `gorm:"default:1"`
	Scopes     []string       `gorm:"serializer:json"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	ExpiresAt  time.Time      `gorm:"index"`
	LastUsedAt time.Time
	RevokedAt  *time.Time
	Revoked    bool `gorm:"index"`
}

func (refreshRow) TableName() string { return "refresh_tokens" }

func newRefreshRow(t *stores.RefreshToken) *refreshRow {
	return &refreshRow{
		TokenHash:  t.TokenHash,
		UserID:     t.UserID,
		ClientID:   t.ClientID,
		DeviceInfo: t.DeviceInfo,
		Family:     t.Family,
		Generation: t.Generation,
		Scopes:     t.Scopes,
		CreatedAt:  t.CreatedAt,
		ExpiresAt:  t.ExpiresAt,
		LastUsedAt: t.LastUsedAt,
		RevokedAt:  t.RevokedAt,
		Revoked:    t.Revoked,
	}
}

func (r *refreshRow) refreshToken() *stores.RefreshToken {
	return &stores.RefreshToken{
		Token:      r.Token,
		TokenHash:  r.TokenHash,
		UserID:     r.UserID,
		ClientID:   r.ClientID,
		DeviceInfo: r.DeviceInfo,
		Family:     r.Family,
		Generation: r.Generation,
		Scopes:     r.Scopes,
		CreatedAt:  r.CreatedAt,
		ExpiresAt:  r.ExpiresAt,
		LastUsedAt: r.LastUsedAt,
		RevokedAt:  r.RevokedAt,
		Revoked:    r.Revoked,
	}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
