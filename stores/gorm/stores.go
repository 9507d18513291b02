package gorm

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/panyam/rxauth/stores"
)

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userRow{},
		&identityRow{},
		&channelRow{},
		&tokenRow{},
		&refreshRow{},
	)
}

// New returns every store backed by db. Call AutoMigrate first.
func New(db *gorm.DB) stores.Stores {
	return stores.Stores{
		Users:         NewUserStore(db),
		Identities:    NewIdentityStore(db),
		Channels:      NewChannelStore(db),
		Tokens:        NewTokenStore(db),
		RefreshTokens: NewRefreshTokenStore(db),
	}
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, stores.ErrNotFound)...)
	}
	return err
}

// UserStore implements stores.UserStore.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(userID string, isActive bool, profile map[string]any) (*stores.User, error) {
	row := &userRow{ID: userID, IsActive: isActive, Profile: profile}
	if err := s.db.Create(row).Error; err != nil {
		return nil, err
	}
	return row.user(), nil
}

func (s *UserStore) GetUserById(userID string) (*stores.User, error) {
	var row userRow
	if err := s.db.First(&row, "id = ?", userID).Error; err != nil {
		return nil, notFound(err, "user %s", userID)
	}
	return row.user(), nil
}

func (s *UserStore) SaveUser(user *stores.User) error {
	row := newUserRow(user)
	if err := s.db.Save(row).Error; err != nil {
		return err
	}
	user.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *UserStore) DeleteUser(userID string) error {
	return s.db.Delete(&userRow{}, "id = ?", userID).Error
}

// IdentityStore implements stores.IdentityStore.
type IdentityStore struct {
	db *gorm.DB
}

func NewIdentityStore(db *gorm.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

func (s *IdentityStore) GetIdentity(identityType, identityValue string, createIfMissing bool) (*stores.Identity, bool, error) {
	var row identityRow
	err := s.db.First(&row, "type = ? AND value = ?", identityType, identityValue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && createIfMissing {
		row = identityRow{Type: identityType, Value: identityValue, Version: 1}
		if err := s.db.Create(&row).Error; err != nil {
			return nil, false, err
		}
		return row.identity(), true, nil
	}
	if err != nil {
		return nil, false, notFound(err, "identity %s", stores.IdentityKey(identityType, identityValue))
	}
	return row.identity(), false, nil
}

func (s *IdentityStore) SaveIdentity(identity *stores.Identity) error {
	return s.db.Save(newIdentityRow(identity)).Error
}

func (s *IdentityStore) update(identityType, identityValue string, column string, value any) error {
	res := s.db.Model(&identityRow{}).
		Where("type = ? AND value = ?", identityType, identityValue).
		Updates(map[string]any{column: value, "version": gorm.Expr("version + 1")})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("identity %s: %w", stores.IdentityKey(identityType, identityValue), stores.ErrNotFound)
	}
	return nil
}

func (s *IdentityStore) SetUserForIdentity(identityType, identityValue string, newUserID string) error {
	return s.update(identityType, identityValue, "user_id", newUserID)
}

func (s *IdentityStore) MarkIdentityVerified(identityType, identityValue string) error {
	return s.update(identityType, identityValue, "verified", true)
}

func (s *IdentityStore) GetUserIdentities(userID string) ([]*stores.Identity, error) {
	var rows []identityRow
	if err := s.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	identities := make([]*stores.Identity, len(rows))
	for i := range rows {
		identities[i] = rows[i].identity()
	}
	return identities, nil
}

func (s *IdentityStore) DeleteIdentity(identityType, identityValue string) error {
	return s.db.Delete(&identityRow{}, "type = ? AND value = ?", identityType, identityValue).Error
}

// ChannelStore implements stores.ChannelStore.
type ChannelStore struct {
	db *gorm.DB
}

func NewChannelStore(db *gorm.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

func (s *ChannelStore) GetChannel(provider string, identityKey string, createIfMissing bool) (*stores.Channel, bool, error) {
	var row channelRow
	err := s.db.First(&row, "provider = ? AND identity_key = ?", provider, identityKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && createIfMissing {
		row = channelRow{
			Provider:    provider,
			IdentityKey: identityKey,
			Credentials: map[string]any{},
			Profile:     map[string]any{},
			Version:     1,
		}
		if err := s.db.Create(&row).Error; err != nil {
			return nil, false, err
		}
		return row.channel(), true, nil
	}
	if err != nil {
		return nil, false, notFound(err, "channel %s/%s", provider, identityKey)
	}
	return row.channel(), false, nil
}

func (s *ChannelStore) SaveChannel(channel *stores.Channel) error {
	return s.db.Save(newChannelRow(channel)).Error
}

func (s *ChannelStore) GetChannelsByIdentity(identityKey string) ([]*stores.Channel, error) {
	var rows []channelRow
	if err := s.db.Where("identity_key = ?", identityKey).Find(&rows).Error; err != nil {
		return nil, err
	}
	channels := make([]*stores.Channel, len(rows))
	for i := range rows {
		channels[i] = rows[i].channel()
	}
	return channels, nil
}

func (s *ChannelStore) DeleteChannel(provider string, identityKey string) error {
	return s.db.Delete(&channelRow{}, "provider = ? AND identity_key = ?", provider, identityKey).Error
}

// TokenStore implements stores.TokenStore.
type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) CreateToken(userID, email string, tokenType stores.TokenType, expiry time.Duration) (*stores.AuthToken, error) {
	token, err := stores.NewAuthToken(userID, email, tokenType, expiry)
	if err != nil {
		return nil, err
	}
	return token, s.SaveToken(token)
}

func (s *TokenStore) SaveToken(token *stores.AuthToken) error {
	return s.db.Save(newTokenRow(token)).Error
}

func (s *TokenStore) GetToken(token string) (*stores.AuthToken, error) {
	var row tokenRow
	if err := s.db.First(&row, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stores.ErrTokenNotFound
		}
		return nil, err
	}
	if time.Now().After(row.ExpiresAt) {
		s.db.Delete(&row)
		return nil, stores.ErrTokenExpired
	}
	return row.authToken(), nil
}

func (s *TokenStore) DeleteToken(token string) error {
	return s.db.Delete(&tokenRow{}, "token = ?", token).Error
}

func (s *TokenStore) DeleteUserTokens(userID string, tokenType stores.TokenType) error {
	return s.db.Delete(&tokenRow{}, "user_id = ? AND type = ?", userID, tokenType).Error
}

// RefreshTokenStore implements stores.RefreshTokenStore.
type RefreshTokenStore struct {
	db *gorm.DB
}

func NewRefreshTokenStore(db *gorm.DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

func (s *RefreshTokenStore) CreateRefreshToken(userID, clientID string, deviceInfo map[string]any, scopes []string) (*stores.RefreshToken, error) {
	rt, err := stores.NewRefreshToken(userID, clientID, deviceInfo, scopes)
	if err != nil {
		return nil, err
	}
	if err := s.db.Create(newRefreshRow(rt)).Error; err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *RefreshTokenStore) GetRefreshToken(token string) (*stores.RefreshToken, error) {
	var row refreshRow
	if err := s.db.First(&row, "token_hash = ?", stores.HashToken(token)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stores.ErrTokenNotFound
		}
		return nil, err
	}
	row.Token = token
	return row.refreshToken(), nil
}

func (s *RefreshTokenStore) RotateRefreshToken(oldToken string) (*stores.RefreshToken, error) {
	var next *stores.RefreshToken
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var old refreshRow
		if err := tx.First(&old, "token_hash = ?", stores.HashToken(oldToken)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return stores.ErrTokenNotFound
			}
			return err
		}
		if old.Revoked {
			return stores.ErrTokenReused
		}
		if time.Now().After(old.ExpiresAt) {
			return stores.ErrTokenExpired
		}

		now := time.Now()
		if err := tx.Model(&old).Updates(map[string]any{"revoked": true, "revoked_at": now}).Error; err != nil {
			return err
		}

		var err error
		next, err = stores.NextRefreshToken(old.refreshToken())
		if err != nil {
			return err
		}
		return tx.Create(newRefreshRow(next)).Error
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *RefreshTokenStore) revokeWhere(query string, args ...any) error {
	return s.db.Model(&refreshRow{}).
		Where(query, args...).
		Where("revoked = ?", false).
		Updates(map[string]any{"revoked": true, "revoked_at": time.Now()}).Error
}

func (s *RefreshTokenStore) RevokeRefreshToken(token string) error {
	return s.revokeWhere("token_hash = ?", stores.HashToken(token))
}

func (s *RefreshTokenStore) RevokeUserTokens(userID string) error {
	return s.revokeWhere("user_id = ?", userID)
}

func (s *RefreshTokenStore) RevokeTokenFamily(family string) error {
	return s.revokeWhere("family = ?", family)
}

func (s *RefreshTokenStore) GetUserTokens(userID string) ([]*stores.RefreshToken, error) {
	var rows []refreshRow
	err := s.db.Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, time.Now()).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	tokens := make([]*stores.RefreshToken, len(rows))
	for i := range rows {
		tokens[i] = rows[i].refreshToken()
	}
	return tokens, nil
}

func (s *RefreshTokenStore) CleanupExpiredTokens() error {
	return s.db.Where("expires_at < ?", time.Now()).Delete(&refreshRow{}).Error
}
