package gae

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/datastore"

	"github.com/panyam/rxauth/stores"
)

// Kind constants for Datastore entities.
const (
	KindUser         = "User"
	KindIdentity     = "Identity"
	KindChannel      = "Channel"
	KindAuthToken    = "AuthToken"
	KindRefreshToken = "RefreshToken"
)

func marshalMap(m map[string]any) []byte {
	if m == nil {
		return nil
	}
	b, _ := json.Marshal(m)
	return b
}

func unmarshalMap(b []byte) map[string]any {
	m := map[string]any{}
	if len(b) > 0 {
		json.Unmarshal(b, &m)
	}
	return m
}

type userEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	IsActive     bool           `datastore:"is_active"`
	Profile      []byte         `datastore:"profile,noindex"`
	CreatedAt    time.Time      `datastore:"created_at"`
	UpdatedAt    time.Time      `datastore:"updated_at"`
	LastSignInAt time.Time      `datastore:"last_sign_in_at,noindex"`
}

func (e *userEntity) user() *stores.User {
	return &stores.User{
		ID:           e.Key.Name,
		IsActive:     e.IsActive,
		Profile:      unmarshalMap(e.Profile),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		LastSignInAt: e.LastSignInAt,
	}
}

type identityEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Type      string         `datastore:"type"`
	Value     string         `datastore:"value"`
	UserID    string         `datastore:"user_id"`
	Verified  bool           `datastore:"verified"`
	CreatedAt time.Time      `datastore:"created_at"`
	UpdatedAt time.Time      `datastore:"updated_at"`
	Version   int            `datastore:"version"`
}

func (e *identityEntity) identity() *stores.Identity {
	return &stores.Identity{
		Type:      e.Type,
		Value:     e.Value,
		UserID:    e.UserID,
		Verified:  e.Verified,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
		Version:   e.Version,
	}
}

func newIdentityEntity(i *stores.Identity, key *datastore.Key) *identityEntity {
	return &identityEntity{
		Key:       key,
		Type:      i.Type,
		Value:     i.Value,
		UserID:    i.UserID,
		Verified:  i.Verified,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
		Version:   i.Version,
	}
}

type channelEntity struct {
	Key         *datastore.Key `datastore:"__key__"`
	Provider    string         `datastore:"provider"`
	IdentityKey string         `datastore:"identity_key"`
	Credentials []byte         `datastore:"credentials,noindex"`
	Profile     []byte         `datastore:"profile,noindex"`
	CreatedAt   time.Time      `datastore:"created_at"`
	UpdatedAt   time.Time      `datastore:"updated_at"`
	ExpiresAt   time.Time      `datastore:"expires_at"`
	Version     int            `datastore:"version"`
}

func (e *channelEntity) channel() *stores.Channel {
	return &stores.Channel{
		Provider:    e.Provider,
		IdentityKey: e.IdentityKey,
		Credentials: unmarshalMap(e.Credentials),
		Profile:     unmarshalMap(e.Profile),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		ExpiresAt:   e.ExpiresAt,
		Version:     e.Version,
	}
}

func newChannelEntity(c *stores.Channel, key *datastore.Key) *channelEntity {
	return &channelEntity{
		Key:         key,
		Provider:    c.Provider,
		IdentityKey: c.IdentityKey,
		Credentials: marshalMap(c.Credentials),
		Profile:     marshalMap(c.Profile),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		ExpiresAt:   c.ExpiresAt,
		Version:     c.Version,
	}
}

type tokenEntity struct {
	Key       *datastore.Key   `datastore:"__key__"`
	Type      stores.TokenType `datastore:"type"`
	UserID    string           `datastore:"user_id"`
	Email     string           `datastore:"email"`
	Phone     string           `datastore:"phone,noindex"`
	Code      string           `datastore:"code,noindex"`
	CreatedAt time.Time        `datastore:"created_at"`
	ExpiresAt time.Time        `datastore:"expires_at"`
}

func (e *tokenEntity) authToken() *stores.AuthToken {
	return &stores.AuthToken{
		Token:     e.Key.Name,
		Type:      e.Type,
		UserID:    e.UserID,
		Email:     e.Email,
		Phone:     e.Phone,
		Code:      e.Code,
		CreatedAt: e.CreatedAt,
		ExpiresAt: e.ExpiresAt,
	}
}

// refreshEntity is keyed by the token hash.
type refreshEntity struct {
	Key        *datastore.Key `datastore:"__key__"`
	UserID     string         `datastore:"user_id"`
	ClientID   string         `datastore:"client_id"`
	DeviceInfo []byte         `datastore:"device_info,noindex"`
	Family     string         `datastore:"family"`
	Generation int            `datastore:"generation"`
	Scopes     []string       `datastore:"scopes,noindex"`
	CreatedAt  time.Time      `datastore:"created_at"`
	ExpiresAt  time.Time      `datastore:"expires_at"`
	LastUsedAt time.Time      `datastore:"last_used_at,noindex"`
	Revoked    bool           `datastore:"revoked"`
	RevokedAt  time.Time      `datastore:"revoked_at,noindex"`
}

func (e *refreshEntity) refreshToken() *stores.RefreshToken {
	rt := &stores.RefreshToken{
		TokenHash:  e.Key.Name,
		UserID:     e.UserID,
		ClientID:   e.ClientID,
		DeviceInfo: unmarshalMap(e.DeviceInfo),
		Family:     e.Family,
		Generation: e.Generation,
		Scopes:     e.Scopes,
		CreatedAt:  e.CreatedAt,
		ExpiresAt:  e.ExpiresAt,
		LastUsedAt: e.LastUsedAt,
		Revoked:    e.Revoked,
	}
	if !e.RevokedAt.IsZero() {
		at := e.RevokedAt
		rt.RevokedAt = &at
	}
	return rt
}

func newRefreshEntity(t *stores.RefreshToken, key *datastore.Key) *refreshEntity {
	e := &refreshEntity{
		Key:        key,
		UserID:     t.UserID,
		ClientID:   t.ClientID,
		DeviceInfo: marshalMap(t.DeviceInfo),
		Family:     t.Family,
		Generation: t.Generation,
		Scopes:     t.Scopes,
		CreatedAt:  t.CreatedAt,
		ExpiresAt:  t.ExpiresAt,
		LastUsedAt: t.LastUsedAt,
		Revoked:    t.Revoked,
	}
	if t.RevokedAt != nil {
		e.RevokedAt = *t.RevokedAt
	}
	return e
}
