package stores

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "email:a@b.c", IdentityKey(IdentityEmail, "a@b.c"))
	id := &Identity{Type: IdentityPhone, Value: "+15550100"}
	assert.Equal(t, "phone:+15550100", id.Key())
}

func TestGenerateNumericCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateNumericCode(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', code)
		}
	}
}

func TestRefreshTokenGenerations(t *testing.T) {
	first, err := NewRefreshToken("u1", "rxauth", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Generation)
	assert.Equal(t, HashToken(first.Token), first.TokenHash)
	assert.True(t, first.IsValid())

	next, err := NextRefreshToken(first)
	require.NoError(t, err)
	assert.Equal(t, first.Family, next.Family)
	assert.Equal(t, 2, next.Generation)
	assert.NotEqual(t, first.Token, next.Token)

	next.ExpiresAt = time.Now().Add(-time.Second)
	assert.False(t, next.IsValid())
}

func TestAuthTokenValidity(t *testing.T) {
	tok, err := NewAuthToken("u1", "a@b.c", TokenTypePasswordReset, time.Hour)
	require.NoError(t, err)
	assert.True(t, tok.IsValid(TokenTypePasswordReset))
	assert.False(t, tok.IsValid(TokenTypeEmailVerification))

	tok.ExpiresAt = time.Now().Add(-time.Minute)
	assert.False(t, tok.IsValid(TokenTypePasswordReset))
}

func TestUserProfileHelpers(t *testing.T) {
	u := &User{ID: "u1"}
	assert.Equal(t, "", u.ProfileString(ProfileDisplayName))
	u.SetProfile(ProfileDisplayName, "Ada")
	u.SetProfile(ProfileAnonymous, true)
	assert.Equal(t, "Ada", u.ProfileString(ProfileDisplayName))
	assert.True(t, u.IsAnonymous())
}
