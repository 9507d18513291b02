package local

import (
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/panyam/rxauth/sdk"
	"github.com/panyam/rxauth/session"
	"github.com/panyam/rxauth/stores"
)

// User is a signed-in account of a local Auth. Accessors read a snapshot
// refreshed by Reload and by the operations that change the account.
type User struct {
	auth *Auth
	uid  string

	// refreshMu serialises ID token refreshes.
	refreshMu sync.Mutex

	mu             sync.RWMutex
	email          string
	emailVerified  bool
	displayName    string
	photoURL       string
	phone          string
	anonymous      bool
	providers      []sdk.UserInfo
	meta           sdk.UserMetadata
	custom         map[string]any
	token          *sdk.TokenResult
	refresh        string
	signInProvider string
	authTime       time.Time
}

var _ sdk.User = (*User)(nil)

func newUser(a *Auth, acc *account) *User {
	u := &User{auth: a, uid: acc.user.ID}
	u.apply(acc)
	return u
}

// apply copies account state into the snapshot.
func (u *User) apply(acc *account) {
	email, verified := acc.email()
	u.mu.Lock()
	defer u.mu.Unlock()
	u.email = email
	u.emailVerified = verified
	u.displayName = acc.user.ProfileString(stores.ProfileDisplayName)
	u.photoURL = acc.user.ProfileString(stores.ProfilePhotoURL)
	u.phone = acc.phone()
	u.anonymous = acc.user.IsAnonymous()
	u.providers = acc.providerData()
	u.meta = sdk.UserMetadata{CreationTime: acc.user.CreatedAt, LastSignInTime: acc.user.LastSignInAt}
	u.custom = maps.Clone(acc.customClaims())
}

func (u *User) UID() string { return u.uid }

func (u *User) Email() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.email
}

func (u *User) DisplayName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.displayName
}

func (u *User) PhotoURL() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.photoURL
}

func (u *User) PhoneNumber() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.phone
}

func (u *User) IsAnonymous() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.anonymous
}

func (u *User) IsEmailVerified() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.emailVerified
}

func (u *User) ProviderData() []sdk.UserInfo {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]sdk.UserInfo, len(u.providers))
	copy(out, u.providers)
	return out
}

func (u *User) Metadata() sdk.UserMetadata {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.meta
}

func (u *User) refreshToken() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.refresh
}

func (u *User) markEmailVerified(email string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.email == email {
		u.emailVerified = true
	}
}

func (u *User) session() *session.Session {
	u.mu.RLock()
	defer u.mu.RUnlock()
	s := &session.Session{
		UserID:         u.uid,
		RefreshToken:   u.refresh,
		SignInProvider: u.signInProvider,
		AuthTime:       u.authTime,
		CreatedAt:      time.Now(),
	}
	if u.token != nil {
		s.IDToken = u.token.Token
		s.ExpiresAt = u.token.ExpirationTime
	}
	return s
}

// mint signs a new ID token from the snapshot.
func (u *User) mint() (*sdk.TokenResult, error) {
	u.mu.RLock()
	in := idTokenInput{
		uid:            u.uid,
		email:          u.email,
		emailVerified:  u.emailVerified,
		phone:          u.phone,
		name:           u.displayName,
		picture:        u.photoURL,
		signInProvider: u.signInProvider,
		authTime:       u.authTime,
		custom:         u.custom,
	}
	u.mu.RUnlock()

	tok, err := u.auth.mintIDToken(in)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	u.token = tok
	u.mu.Unlock()
	return tok, nil
}

// idToken returns the cached ID token unless it is close to expiry or a
// refresh is forced.
func (u *User) idToken(force bool) (*sdk.TokenResult, error) {
	u.refreshMu.Lock()
	defer u.refreshMu.Unlock()
	u.mu.RLock()
	tok := u.token
	u.mu.RUnlock()
	if !force && tok != nil && time.Until(tok.ExpirationTime) > u.auth.cfg.RefreshWindow {
		return tok, nil
	}
	return u.refreshLocked()
}

// refreshLocked rotates the refresh token, reloads the account and mints a
// new ID token. A refresh token that no longer rotates signs the user out.
// Caller holds refreshMu.
func (u *User) refreshLocked() (*sdk.TokenResult, error) {
	a := u.auth
	old := u.refreshToken()
	next, err := a.cfg.Stores.RefreshTokens.RotateRefreshToken(old)
	if err != nil {
		if errors.Is(err, stores.ErrTokenReused) {
			if rt, gerr := a.cfg.Stores.RefreshTokens.GetRefreshToken(old); gerr == nil {
				a.cfg.Stores.RefreshTokens.RevokeTokenFamily(rt.Family)
			}
			a.logger.Warn("refresh token reuse detected", "uid", u.uid)
		}
		if isTokenGone(err) {
			a.signOut(u)
			return nil, sdk.ErrRequiresRecentLogin
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	u.mu.Lock()
	u.refresh = next.Token
	u.mu.Unlock()

	acc, err := a.loadAccount(u.uid)
	if err != nil {
		if errors.Is(err, sdk.ErrUserNotFound) {
			a.signOut(u)
		}
		return nil, err
	}
	if !acc.user.IsActive {
		a.signOut(u)
		return nil, sdk.ErrUserDisabled
	}
	u.apply(acc)

	tok, err := u.mint()
	if err != nil {
		return nil, err
	}
	a.persist(u)
	a.notifyTokenChanged(u)
	return tok, nil
}

func isTokenGone(err error) bool {
	return errors.Is(err, stores.ErrTokenReused) ||
		errors.Is(err, stores.ErrTokenRevoked) ||
		errors.Is(err, stores.ErrTokenExpired) ||
		errors.Is(err, stores.ErrTokenNotFound)
}

// reissue refreshes the ID token after the account changed. The change
// itself already succeeded, so failures are only logged.
func (u *User) reissue() {
	if _, err := u.idToken(true); err != nil {
		u.auth.logger.Warn("failed to reissue id token", "uid", u.uid, "err", err)
	}
}

func (u *User) requireRecentLogin() error {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if time.Since(u.authTime) > u.auth.cfg.RecentLogin {
		return sdk.ErrRequiresRecentLogin
	}
	return nil
}

// Reload refreshes the snapshot from the stores. A deleted account signs
// the user out.
func (u *User) Reload(cb sdk.ErrorCallback) {
	a := u.auth
	a.runErr("reload", func() error {
		acc, err := a.loadAccount(u.uid)
		if errors.Is(err, sdk.ErrUserNotFound) {
			a.signOut(u)
		}
		if err != nil {
			return err
		}
		if !acc.user.IsActive {
			return sdk.ErrUserDisabled
		}
		u.apply(acc)
		return nil
	}, cb)
}

// Reauthenticate proves again that the holder of cred is this user and
// restarts the recent-login window.
func (u *User) Reauthenticate(cred sdk.Credential, cb sdk.Callback[*sdk.AuthDataResult]) {
	a := u.auth
	run(a, "reauthenticate", func() (*sdk.AuthDataResult, error) {
		r, err := a.resolve(cred, false)
		if err != nil {
			return nil, err
		}
		if r.uid != u.uid {
			return nil, sdk.NewAuthError(sdk.CodeUserNotFound, "the credential does not belong to the signed-in user")
		}
		u.refreshMu.Lock()
		u.mu.Lock()
		u.authTime = time.Now()
		u.signInProvider = r.provider
		u.mu.Unlock()
		_, err = u.refreshLocked()
		u.refreshMu.Unlock()
		if err != nil {
			return nil, err
		}
		r.info.ProviderID = r.provider
		return &sdk.AuthDataResult{User: u, AdditionalUserInfo: r.info, Credential: cred}, nil
	}, cb)
}

// Link adds cred as another way to sign in to this account. Linking a
// credential to an anonymous account makes it permanent.
func (u *User) Link(cred sdk.Credential, cb sdk.Callback[*sdk.AuthDataResult]) {
	a := u.auth
	run(a, "link", func() (*sdk.AuthDataResult, error) {
		if cred == nil {
			return nil, sdk.ErrInvalidCredential
		}
		acc, err := a.loadAccount(u.uid)
		if err != nil {
			return nil, err
		}
		if acc.channel(cred.ProviderID()) != nil {
			return nil, sdk.ErrProviderAlreadyLinked
		}
		r, err := a.resolve(cred, true)
		if err != nil {
			return nil, err
		}
		if r.uid != "" && r.uid != u.uid {
			return nil, sdk.ErrCredentialAlreadyInUse
		}
		if err := a.attach(u.uid, r.identityType, r.value, r.verified, r.provider, r.creds, r.profile); err != nil {
			return nil, err
		}
		if acc.user.IsAnonymous() {
			delete(acc.user.Profile, stores.ProfileAnonymous)
			if err := a.cfg.Stores.Users.SaveUser(acc.user); err != nil {
				return nil, err
			}
		}
		if acc, err = a.loadAccount(u.uid); err != nil {
			return nil, err
		}
		u.apply(acc)
		u.reissue()
		a.logger.Info("linked provider", "uid", u.uid, "provider", r.provider)
		r.info.ProviderID = r.provider
		return &sdk.AuthDataResult{User: u, AdditionalUserInfo: r.info, Credential: cred}, nil
	}, cb)
}

func (u *User) Unlink(providerID string, cb sdk.Callback[sdk.User]) {
	a := u.auth
	run(a, "unlink", func() (sdk.User, error) {
		acc, err := a.loadAccount(u.uid)
		if err != nil {
			return nil, err
		}
		channel := acc.channel(providerID)
		if channel == nil {
			return nil, sdk.ErrNoSuchProvider
		}
		if err := a.detach(acc, channel); err != nil {
			return nil, err
		}
		if acc, err = a.loadAccount(u.uid); err != nil {
			return nil, err
		}
		u.apply(acc)
		u.reissue()
		a.logger.Info("unlinked provider", "uid", u.uid, "provider", providerID)
		return u, nil
	}, cb)
}

// UpdateEmail moves the account, and its password if it has one, to a new
// unverified email.
func (u *User) UpdateEmail(email string, cb sdk.ErrorCallback) {
	a := u.auth
	a.runErr("updateEmail", func() error {
		if err := u.requireRecentLogin(); err != nil {
			return err
		}
		if err := a.validateEmail(email); err != nil {
			return err
		}
		owner, err := a.ownerOf(stores.IdentityEmail, email)
		if err != nil {
			return err
		}
		if owner == u.uid {
			return nil
		}
		if owner != "" {
			return sdk.ErrEmailAlreadyInUse
		}
		acc, err := a.loadAccount(u.uid)
		if err != nil {
			return err
		}

		old := acc.identity(stores.IdentityEmail)
		var pw *stores.Channel
		if old != nil {
			for _, c := range acc.channels {
				if c.Provider == sdk.ProviderPassword && c.IdentityKey == old.Key() {
					pw = c
				}
			}
		}
		if pw != nil {
			err = a.attach(u.uid, stores.IdentityEmail, email, false, sdk.ProviderPassword, pw.Credentials, pw.Profile)
		} else {
			err = a.attach(u.uid, stores.IdentityEmail, email, false, "", nil, nil)
		}
		if err != nil {
			return err
		}
		if pw != nil {
			if err := a.cfg.Stores.Channels.DeleteChannel(pw.Provider, pw.IdentityKey); err != nil {
				return err
			}
		}
		if old != nil {
			if err := a.cfg.Stores.Identities.DeleteIdentity(old.Type, old.Value); err != nil {
				return err
			}
		}

		if acc, err = a.loadAccount(u.uid); err != nil {
			return err
		}
		u.apply(acc)
		u.reissue()
		return nil
	}, cb)
}

func (u *User) UpdatePassword(password string, cb sdk.ErrorCallback) {
	a := u.auth
	a.runErr("updatePassword", func() error {
		if err := u.requireRecentLogin(); err != nil {
			return err
		}
		if err := a.validatePassword(password); err != nil {
			return err
		}
		acc, err := a.loadAccount(u.uid)
		if err != nil {
			return err
		}
		id := acc.identity(stores.IdentityEmail)
		if id == nil {
			return sdk.NewAuthError(sdk.CodeOperationNotAllowed, "a password needs an email address")
		}
		if err := a.setPassword(id.Value, password); err != nil {
			return err
		}
		if acc, err = a.loadAccount(u.uid); err != nil {
			return err
		}
		u.apply(acc)
		return nil
	}, cb)
}

func (u *User) UpdateProfile(change sdk.ProfileChange, cb sdk.ErrorCallback) {
	a := u.auth
	a.runErr("updateProfile", func() error {
		user, err := a.cfg.Stores.Users.GetUserById(u.uid)
		if isNotFound(err) {
			return sdk.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if change.DisplayName != nil {
			user.SetProfile(stores.ProfileDisplayName, *change.DisplayName)
		}
		if change.PhotoURL != nil {
			user.SetProfile(stores.ProfilePhotoURL, *change.PhotoURL)
		}
		if err := a.cfg.Stores.Users.SaveUser(user); err != nil {
			return err
		}
		u.mu.Lock()
		u.displayName = user.ProfileString(stores.ProfileDisplayName)
		u.photoURL = user.ProfileString(stores.ProfilePhotoURL)
		u.mu.Unlock()
		return nil
	}, cb)
}

func (u *User) SendEmailVerification(settings *sdk.ActionCodeSettings, cb sdk.ErrorCallback) {
	a := u.auth
	a.runErr("sendEmailVerification", func() error {
		email := u.Email()
		if email == "" {
			return sdk.NewAuthError(sdk.CodeInvalidEmail, "the user has no email address")
		}
		tok, err := a.cfg.Stores.Tokens.CreateToken(u.uid, email, stores.TokenTypeEmailVerification, stores.TokenExpiryEmailVerification)
		if err != nil {
			return fmt.Errorf("failed to create verification code: %w", err)
		}
		link, err := a.actionLink(settings, sdk.ActionModeVerifyEmail, tok.Token)
		if err != nil {
			return err
		}
		return a.cfg.Mailer.SendVerificationEmail(email, link)
	}, cb)
}

func (u *User) GetIDToken(forceRefresh bool, cb sdk.Callback[string]) {
	run(u.auth, "getIDToken", func() (string, error) {
		tok, err := u.idToken(forceRefresh)
		if err != nil {
			return "", err
		}
		return tok.Token, nil
	}, cb)
}

func (u *User) GetIDTokenResult(forceRefresh bool, cb sdk.Callback[*sdk.TokenResult]) {
	run(u.auth, "getIDTokenResult", func() (*sdk.TokenResult, error) {
		return u.idToken(forceRefresh)
	}, cb)
}

// Delete removes the account and signs it out.
func (u *User) Delete(cb sdk.ErrorCallback) {
	a := u.auth
	a.runErr("delete", func() error {
		if err := u.requireRecentLogin(); err != nil {
			return err
		}
		acc, err := a.loadAccount(u.uid)
		if err != nil {
			return err
		}
		if err := a.deleteAccount(acc); err != nil {
			return err
		}
		a.logger.Info("deleted user", "uid", u.uid)
		return a.signOut(u)
	}, cb)
}
