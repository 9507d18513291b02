// Package storetest is a behavioural test suite shared by the store
// backends. Each backend's tests build fresh stores and call the Run*
// functions.
package storetest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/rxauth/stores"
)

// RunUserStore checks create, load, update and delete.
func RunUserStore(t *testing.T, s stores.UserStore) {
	t.Helper()

	_, err := s.GetUserById("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, stores.ErrNotFound), "unknown user should wrap ErrNotFound: %v", err)

	created, err := s.CreateUser("user-1", true, map[string]any{stores.ProfileDisplayName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", created.ID)

	loaded, err := s.GetUserById("user-1")
	require.NoError(t, err)
	assert.True(t, loaded.IsActive)
	assert.Equal(t, "Ada", loaded.ProfileString(stores.ProfileDisplayName))

	loaded.SetProfile(stores.ProfilePhotoURL, "https://example.com/ada.png")
	loaded.LastSignInAt = time.Now()
	require.NoError(t, s.SaveUser(loaded))

	reloaded, err := s.GetUserById("user-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/ada.png", reloaded.ProfileString(stores.ProfilePhotoURL))
	assert.False(t, reloaded.LastSignInAt.IsZero())

	require.NoError(t, s.DeleteUser("user-1"))
	_, err = s.GetUserById("user-1")
	assert.ErrorIs(t, err, stores.ErrNotFound)
}

// RunIdentityStore checks lazy creation, ownership, verification and
// deletion.
func RunIdentityStore(t *testing.T, s stores.IdentityStore) {
	t.Helper()

	_, _, err := s.GetIdentity(stores.IdentityEmail, "a@example.com", false)
	assert.ErrorIs(t, err, stores.ErrNotFound)

	identity, created, err := s.GetIdentity(stores.IdentityEmail, "a@example.com", true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, identity.UserID)

	_, created, err = s.GetIdentity(stores.IdentityEmail, "a@example.com", true)
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, s.SetUserForIdentity(stores.IdentityEmail, "a@example.com", "user-1"))
	require.NoError(t, s.MarkIdentityVerified(stores.IdentityEmail, "a@example.com"))

	_, _, err = s.GetIdentity(stores.IdentityPhone, "+15550100", true)
	require.NoError(t, err)
	require.NoError(t, s.SetUserForIdentity(stores.IdentityPhone, "+15550100", "user-1"))

	identities, err := s.GetUserIdentities("user-1")
	require.NoError(t, err)
	require.Len(t, identities, 2)
	for _, i := range identities {
		if i.Type == stores.IdentityEmail {
			assert.True(t, i.Verified)
		}
	}

	require.NoError(t, s.DeleteIdentity(stores.IdentityPhone, "+15550100"))
	identities, err = s.GetUserIdentities("user-1")
	require.NoError(t, err)
	assert.Len(t, identities, 1)

	none, err := s.GetUserIdentities("nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// RunChannelStore checks channels per identity across providers.
func RunChannelStore(t *testing.T, s stores.ChannelStore) {
	t.Helper()
	key := stores.IdentityKey(stores.IdentityEmail, "a@example.com")

	_, _, err := s.GetChannel("password", key, false)
	assert.ErrorIs(t, err, stores.ErrNotFound)

	ch, created, err := s.GetChannel("password", key, true)
	require.NoError(t, err)
	assert.True(t, created)
	ch.Credentials["password_hash"] = "hash"
	require.NoError(t, s.SaveChannel(ch))

	gh, _, err := s.GetChannel("github", key, true)
	require.NoError(t, err)
	gh.Profile["login"] = "ada"
	require.NoError(t, s.SaveChannel(gh))

	loaded, created, err := s.GetChannel("password", key, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "hash", loaded.Credentials["password_hash"])

	channels, err := s.GetChannelsByIdentity(key)
	require.NoError(t, err)
	assert.Len(t, channels, 2)

	require.NoError(t, s.DeleteChannel("github", key))
	channels, err = s.GetChannelsByIdentity(key)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "password", channels[0].Provider)
}

// RunTokenStore checks the out-of-band code lifecycle.
func RunTokenStore(t *testing.T, s stores.TokenStore) {
	t.Helper()

	_, err := s.GetToken("missing")
	assert.ErrorIs(t, err, stores.ErrTokenNotFound)

	tok, err := s.CreateToken("user-1", "a@example.com", stores.TokenTypePasswordReset, time.Hour)
	require.NoError(t, err)

	loaded, err := s.GetToken(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", loaded.UserID)
	assert.Equal(t, "a@example.com", loaded.Email)
	assert.True(t, loaded.IsValid(stores.TokenTypePasswordReset))

	phone := &stores.AuthToken{
		Token:     "verification-id",
		Type:      stores.TokenTypePhoneVerification,
		Phone:     "+15550100",
		Code:      "123456",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, s.SaveToken(phone))
	loaded, err = s.GetToken("verification-id")
	require.NoError(t, err)
	assert.Equal(t, "123456", loaded.Code)
	assert.Equal(t, "+15550100", loaded.Phone)

	expired := &stores.AuthToken{
		Token:     "expired",
		Type:      stores.TokenTypeEmailVerification,
		UserID:    "user-1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, s.SaveToken(expired))
	_, err = s.GetToken("expired")
	assert.Error(t, err)

	require.NoError(t, s.DeleteToken("verification-id"))
	_, err = s.GetToken("verification-id")
	assert.ErrorIs(t, err, stores.ErrTokenNotFound)

	second, err := s.CreateToken("user-1", "a@example.com", stores.TokenTypePasswordReset, time.Hour)
	require.NoError(t, err)
	keep, err := s.CreateToken("user-1", "a@example.com", stores.TokenTypeEmailVerification, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.DeleteUserTokens("user-1", stores.TokenTypePasswordReset))

	_, err = s.GetToken(tok.Token)
	assert.ErrorIs(t, err, stores.ErrTokenNotFound)
	_, err = s.GetToken(second.Token)
	assert.ErrorIs(t, err, stores.ErrTokenNotFound)
	_, err = s.GetToken(keep.Token)
	assert.NoError(t, err)
}

// RunRefreshTokenStore checks rotation, reuse detection and revocation.
func RunRefreshTokenStore(t *testing.T, s stores.RefreshTokenStore) {
	t.Helper()

	_, err := s.GetRefreshToken("missing")
	assert.ErrorIs(t, err, stores.ErrTokenNotFound)

	first, err := s.CreateRefreshToken("user-1", "rxauth", nil, nil)
	require.NoError(t, err)

	second, err := s.RotateRefreshToken(first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.Family, second.Family)
	assert.Equal(t, first.Generation+1, second.Generation)

	_, err = s.RotateRefreshToken(first.Token)
	assert.ErrorIs(t, err, stores.ErrTokenReused)

	require.NoError(t, s.RevokeTokenFamily(first.Family))
	loaded, err := s.GetRefreshToken(second.Token)
	require.NoError(t, err)
	assert.True(t, loaded.Revoked)

	a, err := s.CreateRefreshToken("user-2", "rxauth", nil, nil)
	require.NoError(t, err)
	b, err := s.CreateRefreshToken("user-2", "rxauth", nil, nil)
	require.NoError(t, err)

	live, err := s.GetUserTokens("user-2")
	require.NoError(t, err)
	assert.Len(t, live, 2)

	require.NoError(t, s.RevokeRefreshToken(a.Token))
	require.NoError(t, s.RevokeRefreshToken(a.Token))
	require.NoError(t, s.RevokeRefreshToken("missing"))
	live, err = s.GetUserTokens("user-2")
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, b.TokenHash, live[0].TokenHash)

	require.NoError(t, s.RevokeUserTokens("user-2"))
	live, err = s.GetUserTokens("user-2")
	require.NoError(t, err)
	assert.Empty(t, live)

	require.NoError(t, s.CleanupExpiredTokens())
}

// RunAll runs every suite against a full set of stores.
func RunAll(t *testing.T, s stores.Stores) {
	t.Run("Users", func(t *testing.T) { RunUserStore(t, s.Users) })
	t.Run("Identities", func(t *testing.T) { RunIdentityStore(t, s.Identities) })
	t.Run("Channels", func(t *testing.T) { RunChannelStore(t, s.Channels) })
	t.Run("Tokens", func(t *testing.T) { RunTokenStore(t, s.Tokens) })
	t.Run("RefreshTokens", func(t *testing.T) { RunRefreshTokenStore(t, s.RefreshTokens) })
}
