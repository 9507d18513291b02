package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/rxauth/stores"
	"github.com/panyam/rxauth/stores/storetest"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisTokenStore(t *testing.T) {
	_, rdb := newTestRedis(t)
	storetest.RunTokenStore(t, NewTokenStore(rdb, "test"))
}

func TestRedisRefreshTokenStore(t *testing.T) {
	_, rdb := newTestRedis(t)
	storetest.RunRefreshTokenStore(t, NewRefreshTokenStore(rdb, "test"))
}

func TestRedisTokensExpireWithTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewTokenStore(rdb, "")

	tok, err := s.CreateToken("user-1", "a@example.com", stores.TokenTypeEmailVerification, time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("rxauth:tok:"+tok.Token))

	mr.FastForward(2 * time.Minute)
	_, err = s.GetToken(tok.Token)
	assert.ErrorIs(t, err, stores.ErrTokenNotFound)
}

func TestRedisRefreshTokenNotStoredInClear(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRefreshTokenStore(rdb, "test")

	rt, err := s.CreateRefreshToken("user-1", "rxauth", nil, nil)
	require.NoError(t, err)

	raw, err := mr.Get("test:rt:" + rt.TokenHash)
	require.NoError(t, err)
	assert.NotContains(t, raw, rt.Token)

	loaded, err := s.GetRefreshToken(rt.Token)
	require.NoError(t, err)
	assert.Equal(t, rt.Token, loaded.Token)
}
