package gae

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	"github.com/panyam/rxauth/stores"
)

// New returns every store backed by client in namespace.
func New(client *datastore.Client, namespace string) stores.Stores {
	b := base{client: client, namespace: namespace, ctx: context.Background()}
	return stores.Stores{
		Users:         &UserStore{b},
		Identities:    &IdentityStore{b},
		Channels:      &ChannelStore{b},
		Tokens:        &TokenStore{b},
		RefreshTokens: &RefreshTokenStore{b},
	}
}

type base struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
}

func (b base) key(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = b.namespace
	return key
}

func (b base) query(kind string) *datastore.Query {
	return datastore.NewQuery(kind).Namespace(b.namespace)
}

// each runs q and passes every entity to fn.
func each[T any](b base, q *datastore.Query, fn func(*T) error) error {
	it := b.client.Run(b.ctx, q)
	for {
		var e T
		_, err := it.Next(&e)
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(&e); err != nil {
			return err
		}
	}
}

// UserStore implements stores.UserStore.
type UserStore struct{ base }

func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{base{client: client, namespace: namespace, ctx: context.Background()}}
}

// WithContext returns a copy of the store using ctx for every call.
func (s *UserStore) WithContext(ctx context.Context) *UserStore {
	c := *s
	c.ctx = ctx
	return &c
}

func (s *UserStore) CreateUser(userID string, isActive bool, profile map[string]any) (*stores.User, error) {
	now := time.Now()
	user := &stores.User{ID: userID, IsActive: isActive, Profile: profile, CreatedAt: now, UpdatedAt: now}
	return user, s.put(user)
}

func (s *UserStore) put(user *stores.User) error {
	key := s.key(KindUser, user.ID)
	_, err := s.client.Put(s.ctx, key, &userEntity{
		Key:          key,
		IsActive:     user.IsActive,
		Profile:      marshalMap(user.Profile),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
		LastSignInAt: user.LastSignInAt,
	})
	return err
}

func (s *UserStore) GetUserById(userID string) (*stores.User, error) {
	var e userEntity
	if err := s.client.Get(s.ctx, s.key(KindUser, userID), &e); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, fmt.Errorf("user %s: %w", userID, stores.ErrNotFound)
		}
		return nil, err
	}
	return e.user(), nil
}

func (s *UserStore) SaveUser(user *stores.User) error {
	user.UpdatedAt = time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = user.UpdatedAt
	}
	return s.put(user)
}

func (s *UserStore) DeleteUser(userID string) error {
	return s.client.Delete(s.ctx, s.key(KindUser, userID))
}

// IdentityStore implements stores.IdentityStore. Keys are identity keys.
type IdentityStore struct{ base }

func NewIdentityStore(client *datastore.Client, namespace string) *IdentityStore {
	return &IdentityStore{base{client: client, namespace: namespace, ctx: context.Background()}}
}

func (s *IdentityStore) identityKey(identityType, identityValue string) *datastore.Key {
	return s.key(KindIdentity, stores.IdentityKey(identityType, identityValue))
}

func (s *IdentityStore) GetIdentity(identityType, identityValue string, createIfMissing bool) (*stores.Identity, bool, error) {
	key := s.identityKey(identityType, identityValue)
	var identity *stores.Identity
	created := false
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var e identityEntity
		err := tx.Get(key, &e)
		if err == nil {
			identity = e.identity()
			return nil
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		if !createIfMissing {
			return fmt.Errorf("identity %s: %w", key.Name, stores.ErrNotFound)
		}
		now := time.Now()
		identity = &stores.Identity{Type: identityType, Value: identityValue, CreatedAt: now, UpdatedAt: now, Version: 1}
		created = true
		_, err = tx.Put(key, newIdentityEntity(identity, key))
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return identity, created, nil
}

func (s *IdentityStore) SaveIdentity(identity *stores.Identity) error {
	key := s.identityKey(identity.Type, identity.Value)
	_, err := s.client.Put(s.ctx, key, newIdentityEntity(identity, key))
	return err
}

func (s *IdentityStore) update(identityType, identityValue string, fn func(*identityEntity)) error {
	key := s.identityKey(identityType, identityValue)
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var e identityEntity
		if err := tx.Get(key, &e); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return fmt.Errorf("identity %s: %w", key.Name, stores.ErrNotFound)
			}
			return err
		}
		fn(&e)
		e.UpdatedAt = time.Now()
		e.Version++
		_, err := tx.Put(key, &e)
		return err
	})
	return err
}

func (s *IdentityStore) SetUserForIdentity(identityType, identityValue string, newUserID string) error {
	return s.update(identityType, identityValue, func(e *identityEntity) { e.UserID = newUserID })
}

func (s *IdentityStore) MarkIdentityVerified(identityType, identityValue string) error {
	return s.update(identityType, identityValue, func(e *identityEntity) { e.Verified = true })
}

func (s *IdentityStore) GetUserIdentities(userID string) ([]*stores.Identity, error) {
	identities := []*stores.Identity{}
	err := each(s.base, s.query(KindIdentity).FilterField("user_id", "=", userID), func(e *identityEntity) error {
		identities = append(identities, e.identity())
		return nil
	})
	return identities, err
}

func (s *IdentityStore) DeleteIdentity(identityType, identityValue string) error {
	return s.client.Delete(s.ctx, s.identityKey(identityType, identityValue))
}

// ChannelStore implements stores.ChannelStore. Keys are provider + ":" +
// identity key.
type ChannelStore struct{ base }

func NewChannelStore(client *datastore.Client, namespace string) *ChannelStore {
	return &ChannelStore{base{client: client, namespace: namespace, ctx: context.Background()}}
}

func (s *ChannelStore) channelKey(provider, identityKey string) *datastore.Key {
	return s.key(KindChannel, provider+":"+identityKey)
}

func (s *ChannelStore) GetChannel(provider string, identityKey string, createIfMissing bool) (*stores.Channel, bool, error) {
	key := s.channelKey(provider, identityKey)
	var e channelEntity
	err := s.client.Get(s.ctx, key, &e)
	if err == nil {
		return e.channel(), false, nil
	}
	if !errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, false, err
	}
	if !createIfMissing {
		return nil, false, fmt.Errorf("channel %s: %w", key.Name, stores.ErrNotFound)
	}
	now := time.Now()
	channel := &stores.Channel{
		Provider:    provider,
		IdentityKey: identityKey,
		Credentials: map[string]any{},
		Profile:     map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if _, err := s.client.Put(s.ctx, key, newChannelEntity(channel, key)); err != nil {
		return nil, false, err
	}
	return channel, true, nil
}

func (s *ChannelStore) SaveChannel(channel *stores.Channel) error {
	channel.UpdatedAt = time.Now()
	key := s.channelKey(channel.Provider, channel.IdentityKey)
	_, err := s.client.Put(s.ctx, key, newChannelEntity(channel, key))
	return err
}

func (s *ChannelStore) GetChannelsByIdentity(identityKey string) ([]*stores.Channel, error) {
	channels := []*stores.Channel{}
	err := each(s.base, s.query(KindChannel).FilterField("identity_key", "=", identityKey), func(e *channelEntity) error {
		channels = append(channels, e.channel())
		return nil
	})
	return channels, err
}

func (s *ChannelStore) DeleteChannel(provider string, identityKey string) error {
	return s.client.Delete(s.ctx, s.channelKey(provider, identityKey))
}

// TokenStore implements stores.TokenStore. Keys are the tokens.
type TokenStore struct{ base }

func NewTokenStore(client *datastore.Client, namespace string) *TokenStore {
	return &TokenStore{base{client: client, namespace: namespace, ctx: context.Background()}}
}

func (s *TokenStore) CreateToken(userID, email string, tokenType stores.TokenType, expiry time.Duration) (*stores.AuthToken, error) {
	token, err := stores.NewAuthToken(userID, email, tokenType, expiry)
	if err != nil {
		return nil, err
	}
	return token, s.SaveToken(token)
}

func (s *TokenStore) SaveToken(token *stores.AuthToken) error {
	key := s.key(KindAuthToken, token.Token)
	_, err := s.client.Put(s.ctx, key, &tokenEntity{
		Key:       key,
		Type:      token.Type,
		UserID:    token.UserID,
		Email:     token.Email,
		Phone:     token.Phone,
		Code:      token.Code,
		CreatedAt: token.CreatedAt,
		ExpiresAt: token.ExpiresAt,
	})
	return err
}

func (s *TokenStore) GetToken(token string) (*stores.AuthToken, error) {
	key := s.key(KindAuthToken, token)
	var e tokenEntity
	if err := s.client.Get(s.ctx, key, &e); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, stores.ErrTokenNotFound
		}
		return nil, err
	}
	if time.Now().After(e.ExpiresAt) {
		s.client.Delete(s.ctx, key)
		return nil, stores.ErrTokenExpired
	}
	return e.authToken(), nil
}

func (s *TokenStore) DeleteToken(token string) error {
	return s.client.Delete(s.ctx, s.key(KindAuthToken, token))
}

func (s *TokenStore) DeleteUserTokens(userID string, tokenType stores.TokenType) error {
	q := s.query(KindAuthToken).
		FilterField("user_id", "=", userID).
		FilterField("type", "=", string(tokenType)).
		KeysOnly()
	keys, err := s.client.GetAll(s.ctx, q, nil)
	if err != nil {
		return err
	}
	return s.client.DeleteMulti(s.ctx, keys)
}

// RefreshTokenStore implements stores.RefreshTokenStore. Keys are token
// hashes.
type RefreshTokenStore struct{ base }

func NewRefreshTokenStore(client *datastore.Client, namespace string) *RefreshTokenStore {
	return &RefreshTokenStore{base{client: client, namespace: namespace, ctx: context.Background()}}
}

func (s *RefreshTokenStore) tokenKey(token string) *datastore.Key {
	return s.key(KindRefreshToken, stores.HashToken(token))
}

func (s *RefreshTokenStore) CreateRefreshToken(userID, clientID string, deviceInfo map[string]any, scopes []string) (*stores.RefreshToken, error) {
	rt, err := stores.NewRefreshToken(userID, clientID, deviceInfo, scopes)
	if err != nil {
		return nil, err
	}
	key := s.tokenKey(rt.Token)
	if _, err := s.client.Put(s.ctx, key, newRefreshEntity(rt, key)); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *RefreshTokenStore) GetRefreshToken(token string) (*stores.RefreshToken, error) {
	var e refreshEntity
	if err := s.client.Get(s.ctx, s.tokenKey(token), &e); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, stores.ErrTokenNotFound
		}
		return nil, err
	}
	rt := e.refreshToken()
	rt.Token = token
	return rt, nil
}

func (s *RefreshTokenStore) RotateRefreshToken(oldToken string) (*stores.RefreshToken, error) {
	var next *stores.RefreshToken
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		key := s.tokenKey(oldToken)
		var e refreshEntity
		if err := tx.Get(key, &e); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return stores.ErrTokenNotFound
			}
			return err
		}
		if e.Revoked {
			return stores.ErrTokenReused
		}
		if time.Now().After(e.ExpiresAt) {
			return stores.ErrTokenExpired
		}
		e.Revoked = true
		e.RevokedAt = time.Now()
		if _, err := tx.Put(key, &e); err != nil {
			return err
		}

		var err error
		next, err = stores.NextRefreshToken(e.refreshToken())
		if err != nil {
			return err
		}
		nextKey := s.tokenKey(next.Token)
		_, err = tx.Put(nextKey, newRefreshEntity(next, nextKey))
		return err
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *RefreshTokenStore) revokeAll(q *datastore.Query) error {
	var keys []*datastore.Key
	var entities []*refreshEntity
	now := time.Now()
	err := each(s.base, q.FilterField("revoked", "=", false), func(e *refreshEntity) error {
		e.Revoked = true
		e.RevokedAt = now
		keys = append(keys, e.Key)
		entities = append(entities, e)
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}
	_, err = s.client.PutMulti(s.ctx, keys, entities)
	return err
}

func (s *RefreshTokenStore) RevokeRefreshToken(token string) error {
	key := s.tokenKey(token)
	var e refreshEntity
	if err := s.client.Get(s.ctx, key, &e); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil
		}
		return err
	}
	if e.Revoked {
		return nil
	}
	e.Revoked = true
	e.RevokedAt = time.Now()
	_, err := s.client.Put(s.ctx, key, &e)
	return err
}

func (s *RefreshTokenStore) RevokeUserTokens(userID string) error {
	return s.revokeAll(s.query(KindRefreshToken).FilterField("user_id", "=", userID))
}

func (s *RefreshTokenStore) RevokeTokenFamily(family string) error {
	return s.revokeAll(s.query(KindRefreshToken).FilterField("family", "=", family))
}

func (s *RefreshTokenStore) GetUserTokens(userID string) ([]*stores.RefreshToken, error) {
	tokens := []*stores.RefreshToken{}
	q := s.query(KindRefreshToken).FilterField("user_id", "=", userID)
	err := each(s.base, q, func(e *refreshEntity) error {
		if rt := e.refreshToken(); rt.IsValid() {
			tokens = append(tokens, rt)
		}
		return nil
	})
	return tokens, err
}

func (s *RefreshTokenStore) CleanupExpiredTokens() error {
	q := s.query(KindRefreshToken).FilterField("expires_at", "<", time.Now()).KeysOnly()
	keys, err := s.client.GetAll(s.ctx, q, nil)
	if err != nil {
		return err
	}
	return s.client.DeleteMulti(s.ctx, keys)
}
