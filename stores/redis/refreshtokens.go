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

const maxRotateRetries = 4

// RefreshTokenStore implements stores.RefreshTokenStore. Records are keyed by
// token hash and the token itself is never written. Per-user and per-family
// sets index the hashes.
type RefreshTokenStore struct{ base }

func NewRefreshTokenStore(rdb redis.UniversalClient, prefix string) *RefreshTokenStore {
	return &RefreshTokenStore{newBase(rdb, prefix)}
}

func (s *RefreshTokenStore) WithContext(ctx context.Context) *RefreshTokenStore {
	c := *s
	c.ctx = ctx
	return &c
}

func (s *RefreshTokenStore) recordKey(hash string) string { return s.key("rt", hash) }
func (s *RefreshTokenStore) userKey(userID string) string { return s.key("urt", userID) }
func (s *RefreshTokenStore) familyKey(family string) string {
	return s.key("fam", family)
}

func encodeRefreshToken(rt *stores.RefreshToken) ([]byte, error) {
	c := *rt
	c.Token = ""
	return json.Marshal(&c)
}

func (s *RefreshTokenStore) write(pipe redis.Pipeliner, rt *stores.RefreshToken) error {
	data, err := encodeRefreshToken(rt)
	if err != nil {
		return err
	}
	ttl := time.Until(rt.ExpiresAt)
	pipe.Set(s.ctx, s.recordKey(rt.TokenHash), data, ttl)
	pipe.SAdd(s.ctx, s.userKey(rt.UserID), rt.TokenHash)
	pipe.SAdd(s.ctx, s.familyKey(rt.Family), rt.TokenHash)
	return nil
}

func (s *RefreshTokenStore) read(ctx context.Context, c redis.Cmdable, hash string) (*stores.RefreshToken, error) {
	data, err := c.Get(ctx, s.recordKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, stores.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	var rt stores.RefreshToken
	if err := json.Unmarshal(data, &rt); err != nil {
		return nil, err
	}
	return &rt, nil
}

func (s *RefreshTokenStore) CreateRefreshToken(userID, clientID string, deviceInfo map[string]any, scopes []string) (*stores.RefreshToken, error) {
	rt, err := stores.NewRefreshToken(userID, clientID, deviceInfo, scopes)
	if err != nil {
		return nil, err
	}
	_, err = s.rdb.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
		return s.write(pipe, rt)
	})
	if err != nil {
		return nil, fmt.Errorf("saving refresh token: %w", err)
	}
	return rt, nil
}

func (s *RefreshTokenStore) GetRefreshToken(token string) (*stores.RefreshToken, error) {
	rt, err := s.read(s.ctx, s.rdb, stores.HashToken(token))
	if err != nil {
		return nil, err
	}
	rt.Token = token
	return rt, nil
}

// RotateRefreshToken uses WATCH on the old record so two concurrent
// rotations of the same token cannot both succeed.
func (s *RefreshTokenStore) RotateRefreshToken(oldToken string) (*stores.RefreshToken, error) {
	hash := stores.HashToken(oldToken)
	key := s.recordKey(hash)

	for i := 0; i < maxRotateRetries; i++ {
		var next *stores.RefreshToken
		err := s.rdb.Watch(s.ctx, func(tx *redis.Tx) error {
			old, err := s.read(s.ctx, tx, hash)
			if err != nil {
				return err
			}
			if old.Revoked {
				return stores.ErrTokenReused
			}
			if old.IsExpired() {
				return stores.ErrTokenExpired
			}

			now := time.Now()
			old.Revoked = true
			old.RevokedAt = &now
			next, err = stores.NextRefreshToken(old)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
				if err := s.write(pipe, old); err != nil {
					return err
				}
				return s.write(pipe, next)
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return next, nil
	}
	return nil, fmt.Errorf("rotating refresh token: too much contention")
}

func (s *RefreshTokenStore) revoke(hashes []string) error {
	now := time.Now()
	for _, hash := range hashes {
		rt, err := s.read(s.ctx, s.rdb, hash)
		if errors.Is(err, stores.ErrTokenNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if rt.Revoked {
			continue
		}
		rt.Revoked = true
		rt.RevokedAt = &now
		data, err := encodeRefreshToken(rt)
		if err != nil {
			return err
		}
		if err := s.rdb.Set(s.ctx, s.recordKey(hash), data, redis.KeepTTL).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *RefreshTokenStore) RevokeRefreshToken(token string) error {
	return s.revoke([]string{stores.HashToken(token)})
}

func (s *RefreshTokenStore) RevokeUserTokens(userID string) error {
	hashes, err := s.rdb.SMembers(s.ctx, s.userKey(userID)).Result()
	if err != nil {
		return err
	}
	return s.revoke(hashes)
}

func (s *RefreshTokenStore) RevokeTokenFamily(family string) error {
	hashes, err := s.rdb.SMembers(s.ctx, s.familyKey(family)).Result()
	if err != nil {
		return err
	}
	return s.revoke(hashes)
}

func (s *RefreshTokenStore) GetUserTokens(userID string) ([]*stores.RefreshToken, error) {
	hashes, err := s.rdb.SMembers(s.ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	tokens := []*stores.RefreshToken{}
	for _, hash := range hashes {
		rt, err := s.read(s.ctx, s.rdb, hash)
		if errors.Is(err, stores.ErrTokenNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rt.IsValid() {
			tokens = append(tokens, rt)
		}
	}
	return tokens, nil
}

// CleanupExpiredTokens prunes index entries whose records Redis has already
// expired.
func (s *RefreshTokenStore) CleanupExpiredTokens() error {
	for _, pattern := range []string{s.key("urt", "*"), s.key("fam", "*")} {
		iter := s.rdb.Scan(s.ctx, 0, pattern, 100).Iterator()
		for iter.Next(s.ctx) {
			set := iter.Val()
			hashes, err := s.rdb.SMembers(s.ctx, set).Result()
			if err != nil {
				return err
			}
			for _, hash := range hashes {
				n, err := s.rdb.Exists(s.ctx, s.recordKey(hash)).Result()
				if err != nil {
					return err
				}
				if n == 0 {
					s.rdb.SRem(s.ctx, set, hash)
				}
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}
