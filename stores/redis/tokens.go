package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/panyam/rxauth/stores"
)

const defaultPrefix = "rxauth"

type base struct {
	rdb    redis.UniversalClient
	prefix string
	ctx    context.Context
}

func newBase(rdb redis.UniversalClient, prefix string) base {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return base{rdb: rdb, prefix: prefix, ctx: context.Background()}
}

func (b base) key(parts ...string) string {
	k := b.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// TokenStore implements stores.TokenStore. Each token expires with its
// ExpiresAt.
type TokenStore struct{ base }

func NewTokenStore(rdb redis.UniversalClient, prefix string) *TokenStore {
	return &TokenStore{newBase(rdb, prefix)}
}

// WithContext returns a copy of the store using ctx for every call.
func (s *TokenStore) WithContext(ctx context.Context) *TokenStore {
	c := *s
	c.ctx = ctx
	return &c
}

func (s *TokenStore) tokenKey(token string) string {
	return s.key("tok", token)
}

func (s *TokenStore) userKey(userID string, tokenType stores.TokenType) string {
	return s.key("utok", userID, string(tokenType))
}

func (s *TokenStore) CreateToken(userID, email string, tokenType stores.TokenType, expiry time.Duration) (*stores.AuthToken, error) {
	token, err := stores.NewAuthToken(userID, email, tokenType, expiry)
	if err != nil {
		return nil, err
	}
	return token, s.SaveToken(token)
}

func (s *TokenStore) SaveToken(token *stores.AuthToken) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return s.rdb.Del(s.ctx, s.tokenKey(token.Token)).Err()
	}
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(s.ctx, s.tokenKey(token.Token), data, ttl)
		if token.UserID != "" {
			pipe.SAdd(s.ctx, s.userKey(token.UserID, token.Type), token.Token)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

func (s *TokenStore) GetToken(token string) (*stores.AuthToken, error) {
	data, err := s.rdb.Get(s.ctx, s.tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, stores.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	var t stores.AuthToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if t.IsExpired() {
		s.rdb.Del(s.ctx, s.tokenKey(token))
		return nil, stores.ErrTokenExpired
	}
	return &t, nil
}

func (s *TokenStore) DeleteToken(token string) error {
	return s.rdb.Del(s.ctx, s.tokenKey(token)).Err()
}

func (s *TokenStore) DeleteUserTokens(userID string, tokenType stores.TokenType) error {
	uk := s.userKey(userID, tokenType)
	tokens, err := s.rdb.SMembers(s.ctx, uk).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, s.tokenKey(t))
	}
	keys = append(keys, uk)
	return s.rdb.Del(s.ctx, keys...).Err()
}
