package local

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/panyam/rxauth/sdk"
	"github.com/panyam/rxauth/stores"
)

const (
	credPasswordHash = "password_hash"
	profileEmail     = "email"
	profileClaims    = "claims"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

// account is a user record with its identities and the channels linked to
// them.
type account struct {
	user       *stores.User
	identities []*stores.Identity
	channels   []*stores.Channel
}

func (acc *account) identity(identityType string) *stores.Identity {
	for _, i := range acc.identities {
		if i.Type == identityType {
			return i
		}
	}
	return nil
}

func (acc *account) channel(provider string) *stores.Channel {
	for _, c := range acc.channels {
		if c.Provider == provider {
			return c
		}
	}
	return nil
}

// email prefers the email identity and falls back to the first provider
// profile that reported one.
func (acc *account) email() (string, bool) {
	if id := acc.identity(stores.IdentityEmail); id != nil {
		return id.Value, id.Verified
	}
	for _, c := range acc.channels {
		if e, _ := c.Profile[profileEmail].(string); e != "" {
			return e, false
		}
	}
	return "", false
}

func (acc *account) phone() string {
	if id := acc.identity(stores.IdentityPhone); id != nil {
		return id.Value
	}
	return ""
}

func (acc *account) providerData() []sdk.UserInfo {
	out := make([]sdk.UserInfo, 0, len(acc.channels))
	for _, c := range acc.channels {
		info := sdk.UserInfo{ProviderID: c.Provider}
		_, value, _ := strings.Cut(c.IdentityKey, ":")
		switch c.Provider {
		case sdk.ProviderPassword:
			info.UID = value
			info.Email = value
		case sdk.ProviderPhone:
			info.UID = value
			info.PhoneNumber = value
		default:
			_, subject, _ := strings.Cut(value, "|")
			info.UID = subject
			info.Email, _ = c.Profile[profileEmail].(string)
		}
		info.DisplayName, _ = c.Profile[stores.ProfileDisplayName].(string)
		info.PhotoURL, _ = c.Profile[stores.ProfilePhotoURL].(string)
		out = append(out, info)
	}
	return out
}

func (acc *account) customClaims() map[string]any {
	m, _ := acc.user.Profile[profileClaims].(map[string]any)
	return m
}

func subjectValue(provider, subject string) string {
	return provider + "|" + subject
}

func newUserID() string {
	return ulid.Make().String()
}

func isNotFound(err error) bool {
	return errors.Is(err, stores.ErrNotFound)
}

func (a *Auth) loadAccount(uid string) (*account, error) {
	user, err := a.cfg.Stores.Users.GetUserById(uid)
	if isNotFound(err) {
		return nil, sdk.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	identities, err := a.cfg.Stores.Identities.GetUserIdentities(uid)
	if err != nil {
		return nil, fmt.Errorf("failed to load identities: %w", err)
	}
	acc := &account{user: user, identities: identities}
	for _, id := range identities {
		channels, err := a.cfg.Stores.Channels.GetChannelsByIdentity(id.Key())
		if err != nil {
			return nil, fmt.Errorf("failed to load channels: %w", err)
		}
		acc.channels = append(acc.channels, channels...)
	}
	return acc, nil
}

// ownerOf returns the user holding an identity, or "" when nobody does.
func (a *Auth) ownerOf(identityType, value string) (string, error) {
	identity, _, err := a.cfg.Stores.Identities.GetIdentity(identityType, value, false)
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}

func (a *Auth) createUser(profile map[string]any) (*stores.User, error) {
	if profile == nil {
		profile = map[string]any{}
	}
	user, err := a.cfg.Stores.Users.CreateUser(newUserID(), true, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// attach gives uid an identity and, unless provider is empty, a channel for
// provider on it. An existing identity owned by uid is reused.
func (a *Auth) attach(uid, identityType, value string, verified bool, provider string, creds, profile map[string]any) error {
	now := time.Now()
	identity, _, err := a.cfg.Stores.Identities.GetIdentity(identityType, value, false)
	switch {
	case isNotFound(err):
		identity = &stores.Identity{
			Type:      identityType,
			Value:     value,
			UserID:    uid,
			Verified:  verified,
			CreatedAt: now,
			UpdatedAt: now,
			Version:   1,
		}
		if err := a.cfg.Stores.Identities.SaveIdentity(identity); err != nil {
			return fmt.Errorf("failed to create identity: %w", err)
		}
	case err != nil:
		return err
	case identity.UserID != uid:
		return sdk.ErrCredentialAlreadyInUse
	case verified && !identity.Verified:
		if err := a.cfg.Stores.Identities.MarkIdentityVerified(identityType, value); err != nil {
			return err
		}
	}

	if provider == "" {
		return nil
	}
	if creds == nil {
		creds = map[string]any{}
	}
	if profile == nil {
		profile = map[string]any{}
	}
	channel := &stores.Channel{
		Provider:    provider,
		IdentityKey: identity.Key(),
		Credentials: creds,
		Profile:     profile,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := a.cfg.Stores.Channels.SaveChannel(channel); err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

// detach removes a channel and, when nothing else uses it, the provider
// subject identity behind it.
func (a *Auth) detach(acc *account, channel *stores.Channel) error {
	if err := a.cfg.Stores.Channels.DeleteChannel(channel.Provider, channel.IdentityKey); err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	identityType, value, _ := strings.Cut(channel.IdentityKey, ":")
	if identityType != stores.IdentitySubject {
		return nil
	}
	for _, c := range acc.channels {
		if c != channel && c.IdentityKey == channel.IdentityKey {
			return nil
		}
	}
	return a.cfg.Stores.Identities.DeleteIdentity(identityType, value)
}

func (a *Auth) validateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return sdk.ErrInvalidEmail.WithField("email")
	}
	return nil
}

func (a *Auth) validatePassword(password string) error {
	if len(password) < a.cfg.MinPasswordLength {
		return sdk.NewAuthError(sdk.CodeWeakPassword, "password must be at least %d characters", a.cfg.MinPasswordLength).WithField("password")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// checkPassword resolves an email and password to the owning user.
func (a *Auth) checkPassword(email, password string) (string, error) {
	if err := a.validateEmail(email); err != nil {
		return "", err
	}
	key := stores.IdentityKey(stores.IdentityEmail, email)
	if !a.limiter.allow(key) {
		return "", sdk.ErrTooManyRequests
	}
	channel, _, err := a.cfg.Stores.Channels.GetChannel(sdk.ProviderPassword, key, false)
	if isNotFound(err) {
		return "", sdk.ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	hash, _ := channel.Credentials[credPasswordHash].(string)
	if hash == "" {
		return "", sdk.ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", sdk.ErrWrongPassword
	}
	uid, err := a.ownerOf(stores.IdentityEmail, email)
	if err != nil {
		return "", err
	}
	if uid == "" {
		return "", sdk.ErrUserNotFound
	}
	return uid, nil
}

// setPassword creates or updates the password channel on an email identity.
func (a *Auth) setPassword(email, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	key := stores.IdentityKey(stores.IdentityEmail, email)
	channel, _, err := a.cfg.Stores.Channels.GetChannel(sdk.ProviderPassword, key, true)
	if err != nil {
		return fmt.Errorf("failed to load password channel: %w", err)
	}
	if channel.Credentials == nil {
		channel.Credentials = map[string]any{}
	}
	channel.Credentials[credPasswordHash] = hash
	channel.UpdatedAt = time.Now()
	if err := a.cfg.Stores.Channels.SaveChannel(channel); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// deleteAccount removes every record of uid.
func (a *Auth) deleteAccount(acc *account) error {
	uid := acc.user.ID
	for _, c := range acc.channels {
		if err := a.cfg.Stores.Channels.DeleteChannel(c.Provider, c.IdentityKey); err != nil {
			return fmt.Errorf("failed to delete channel: %w", err)
		}
	}
	for _, id := range acc.identities {
		if err := a.cfg.Stores.Identities.DeleteIdentity(id.Type, id.Value); err != nil {
			return fmt.Errorf("failed to delete identity: %w", err)
		}
	}
	for _, tt := range []stores.TokenType{stores.TokenTypeEmailVerification, stores.TokenTypePasswordReset} {
		if err := a.cfg.Stores.Tokens.DeleteUserTokens(uid, tt); err != nil {
			a.logger.Warn("failed to delete action codes", "uid", uid, "err", err)
		}
	}
	if err := a.cfg.Stores.RefreshTokens.RevokeUserTokens(uid); err != nil {
		a.logger.Warn("failed to revoke refresh tokens", "uid", uid, "err", err)
	}
	if err := a.cfg.Stores.Users.DeleteUser(uid); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
