package local

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/panyam/rxauth/sdk"
	"github.com/panyam/rxauth/stores"
)

// Auth is an in-process identity SDK backed by stores. It implements
// sdk.Auth; every asynchronous result and listener notification is
// delivered, in order, on one callback goroutine.
type Auth struct {
	cfg      Config
	logger   *slog.Logger
	verifier *TokenVerifier
	limiter  *limiter
	queue    *queue

	mu             sync.Mutex
	current        *User
	stateListeners []listenerEntry
	tokenListeners []listenerEntry
}

var _ sdk.Auth = (*Auth)(nil)

type listenerEntry struct {
	handle sdk.ListenerHandle
	fn     sdk.StateListener
}

// New creates an Auth. When cfg.Sessions holds a session for cfg.AppName
// the Auth starts signed in as that user.
func New(cfg Config) (*Auth, error) {
	cfg.EnsureDefaults()
	s := cfg.Stores
	if s.Users == nil || s.Identities == nil || s.Channels == nil || s.Tokens == nil || s.RefreshTokens == nil {
		return nil, errors.New("local: every store must be configured")
	}
	a := &Auth{
		cfg:      cfg,
		logger:   cfg.Logger,
		verifier: NewTokenVerifier(cfg.JWTSecretKey, cfg.Issuer, cfg.AppName),
		limiter:  newLimiter(cfg.SignInRate, cfg.SignInBurst),
		queue:    newQueue(),
	}
	a.restore()
	return a, nil
}

// ErrClosed is delivered to callbacks of operations that finish, or start,
// after Close.
var ErrClosed = sdk.NewAuthError(sdk.CodeInternalError, "auth is closed")

// Close delivers pending callbacks and stops the callback goroutine.
// Operations still running, and any started later, call back with ErrClosed
// on their own goroutine.
func (a *Auth) Close() {
	a.queue.close()
}

// Verifier validates ID tokens issued by this Auth.
func (a *Auth) Verifier() *TokenVerifier {
	return a.verifier
}

// MintCustomToken signs a custom token with the configured custom token key.
func (a *Auth) MintCustomToken(uid string, claims map[string]any) (string, error) {
	return MintCustomToken(a.cfg.CustomTokenKey, uid, claims, DefaultCustomTokenExpiry)
}

func (a *Auth) restore() {
	if a.cfg.Sessions == nil {
		return
	}
	sess, err := a.cfg.Sessions.Load(a.cfg.AppName)
	if err != nil {
		a.logger.Warn("failed to load session", "app", a.cfg.AppName, "err", err)
		return
	}
	if sess == nil {
		return
	}
	acc, err := a.loadAccount(sess.UserID)
	if err != nil || !acc.user.IsActive {
		a.logger.Info("discarding stale session", "uid", sess.UserID, "err", err)
		if err := a.cfg.Sessions.Clear(a.cfg.AppName); err != nil {
			a.logger.Warn("failed to clear session", "err", err)
		}
		return
	}
	u := newUser(a, acc)
	u.refresh = sess.RefreshToken
	u.signInProvider = sess.SignInProvider
	u.authTime = sess.AuthTime
	if tok, err := a.verifier.Verify(sess.IDToken); err == nil {
		u.token = tok
	}
	a.current = u
	a.logger.Info("restored session", "uid", u.uid)
}

// run performs work off the caller's goroutine and queues cb with the result.
func run[T any](a *Auth, op string, work func() (T, error), cb sdk.Callback[T]) {
	closed := func() {
		a.logger.Debug("operation after close", "op", op)
		if cb != nil {
			var zero T
			cb(zero, ErrClosed)
		}
	}
	go func() {
		if a.queue.isClosed() {
			closed()
			return
		}
		v, err := work()
		err = a.authError(op, err)
		queued := a.queue.push(func() {
			if cb != nil {
				cb(v, err)
			}
		})
		if !queued {
			closed()
		}
	}()
}

func (a *Auth) runErr(op string, work func() error, cb sdk.ErrorCallback) {
	run(a, op, func() (struct{}, error) {
		return struct{}{}, work()
	}, func(_ struct{}, err error) {
		if cb != nil {
			cb(err)
		}
	})
}

// authError makes sure callers only ever see *sdk.AuthError.
func (a *Auth) authError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *sdk.AuthError
	if errors.As(err, &ae) {
		a.logger.Debug("operation failed", "op", op, "code", ae.Code)
		return err
	}
	a.logger.Error("operation failed", "op", op, "err", err)
	return sdk.WrapAuthError(err, "%s failed", op)
}

func sdkUser(u *User) sdk.User {
	if u == nil {
		return nil
	}
	return u
}

func (a *Auth) CurrentUser() sdk.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return sdkUser(a.current)
}

func (a *Auth) currentUser() *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *Auth) AddStateDidChangeListener(listener sdk.StateListener) sdk.ListenerHandle {
	return a.addListener(&a.stateListeners, listener)
}

func (a *Auth) RemoveStateDidChangeListener(handle sdk.ListenerHandle) {
	a.removeListener(&a.stateListeners, handle)
}

func (a *Auth) AddIDTokenDidChangeListener(listener sdk.StateListener) sdk.ListenerHandle {
	return a.addListener(&a.tokenListeners, listener)
}

func (a *Auth) RemoveIDTokenDidChangeListener(handle sdk.ListenerHandle) {
	a.removeListener(&a.tokenListeners, handle)
}

// addListener registers fn and queues its first notification with the
// current user.
func (a *Auth) addListener(list *[]listenerEntry, fn sdk.StateListener) sdk.ListenerHandle {
	entry := listenerEntry{handle: sdk.NewListenerHandle(), fn: fn}
	a.mu.Lock()
	defer a.mu.Unlock()
	*list = append(*list, entry)
	a.notifyLocked(list, []listenerEntry{entry}, a.current)
	return entry.handle
}

func (a *Auth) removeListener(list *[]listenerEntry, handle sdk.ListenerHandle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, e := range *list {
		if e.handle == handle {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return
		}
	}
}

func (a *Auth) registered(list *[]listenerEntry, handle sdk.ListenerHandle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range *list {
		if e.handle == handle {
			return true
		}
	}
	return false
}

// notifyLocked queues a notification of user to each entry. A listener
// removed before its turn comes is skipped.
func (a *Auth) notifyLocked(list *[]listenerEntry, entries []listenerEntry, user *User) {
	for _, e := range entries {
		a.queue.push(func() {
			if a.registered(list, e.handle) {
				e.fn(a, sdkUser(user))
			}
		})
	}
}

// setCurrent replaces the current user. State listeners hear about it when
// the signed-in account changes; ID token listeners always do.
func (a *Auth) setCurrent(u *User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev := a.current
	a.current = u
	if prev == nil || u == nil || prev.uid != u.uid {
		a.notifyLocked(&a.stateListeners, a.stateListeners, u)
	}
	a.notifyLocked(&a.tokenListeners, a.tokenListeners, u)
}

// notifyTokenChanged tells ID token listeners that u has a new token, if u
// is still the current user.
func (a *Auth) notifyTokenChanged(u *User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != u {
		return
	}
	a.notifyLocked(&a.tokenListeners, a.tokenListeners, u)
}

// clearCurrent signs u out if it is the current user.
func (a *Auth) clearCurrent(u *User) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != u || u == nil {
		return false
	}
	a.current = nil
	a.notifyLocked(&a.stateListeners, a.stateListeners, nil)
	a.notifyLocked(&a.tokenListeners, a.tokenListeners, nil)
	return true
}

func (a *Auth) persist(u *User) {
	if a.cfg.Sessions == nil || a.currentUser() != u {
		return
	}
	if err := a.cfg.Sessions.Save(a.cfg.AppName, u.session()); err != nil {
		a.logger.Warn("failed to save session", "uid", u.uid, "err", err)
	}
}

// SignOut revokes the current user's refresh token and forgets the session.
func (a *Auth) SignOut() error {
	u := a.currentUser()
	if u == nil {
		return nil
	}
	return a.signOut(u)
}

func (a *Auth) signOut(u *User) error {
	if rt := u.refreshToken(); rt != "" {
		if err := a.cfg.Stores.RefreshTokens.RevokeRefreshToken(rt); err != nil {
			a.logger.Warn("failed to revoke refresh token", "uid", u.uid, "err", err)
		}
	}
	if !a.clearCurrent(u) {
		return nil
	}
	a.logger.Info("signed out", "uid", u.uid)
	if a.cfg.Sessions != nil {
		if err := a.cfg.Sessions.Clear(a.cfg.AppName); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	return nil
}

// signIn makes acc the current user with a fresh refresh token and ID token.
func (a *Auth) signIn(acc *account, provider string, isNew bool, cred sdk.Credential, info *sdk.AdditionalUserInfo) (*sdk.AuthDataResult, error) {
	if !acc.user.IsActive {
		return nil, sdk.ErrUserDisabled
	}
	now := time.Now()
	acc.user.LastSignInAt = now
	if err := a.cfg.Stores.Users.SaveUser(acc.user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	rt, err := a.cfg.Stores.RefreshTokens.CreateRefreshToken(acc.user.ID, a.cfg.AppName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	u := newUser(a, acc)
	u.refresh = rt.Token
	u.signInProvider = provider
	u.authTime = now
	if _, err := u.mint(); err != nil {
		return nil, err
	}

	if prev := a.currentUser(); prev != nil {
		if old := prev.refreshToken(); old != "" {
			if err := a.cfg.Stores.RefreshTokens.RevokeRefreshToken(old); err != nil {
				a.logger.Warn("failed to revoke refresh token", "uid", prev.uid, "err", err)
			}
		}
	}
	a.setCurrent(u)
	a.persist(u)
	a.logger.Info("signed in", "uid", u.uid, "provider", provider, "new_user", isNew)

	if info == nil {
		info = &sdk.AdditionalUserInfo{}
	}
	info.ProviderID = provider
	info.IsNewUser = isNew
	return &sdk.AuthDataResult{User: u, AdditionalUserInfo: info, Credential: cred}, nil
}

func (a *Auth) CreateUser(email, password string, cb sdk.Callback[*sdk.AuthDataResult]) {
	run(a, "createUser", func() (*sdk.AuthDataResult, error) {
		if err := a.validateEmail(email); err != nil {
			return nil, err
		}
		if err := a.validatePassword(password); err != nil {
			return nil, err
		}
		owner, err := a.ownerOf(stores.IdentityEmail, email)
		if err != nil {
			return nil, err
		}
		if owner != "" {
			return nil, sdk.ErrEmailAlreadyInUse
		}
		hash, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		user, err := a.createUser(nil)
		if err != nil {
			return nil, err
		}
		if err := a.attach(user.ID, stores.IdentityEmail, email, false, sdk.ProviderPassword, map[string]any{credPasswordHash: hash}, nil); err != nil {
			a.cfg.Stores.Users.DeleteUser(user.ID)
			return nil, err
		}
		acc, err := a.loadAccount(user.ID)
		if err != nil {
			return nil, err
		}
		return a.signIn(acc, sdk.ProviderPassword, true, nil, nil)
	}, cb)
}

func (a *Auth) SignInAnonymously(cb sdk.Callback[*sdk.AuthDataResult]) {
	run(a, "signInAnonymously", func() (*sdk.AuthDataResult, error) {
		user, err := a.createUser(map[string]any{stores.ProfileAnonymous: true})
		if err != nil {
			return nil, err
		}
		return a.signIn(&account{user: user}, sdk.ProviderAnonymous, true, nil, nil)
	}, cb)
}

func (a *Auth) SignInWithEmail(email, password string, cb sdk.Callback[*sdk.AuthDataResult]) {
	run(a, "signInWithEmail", func() (*sdk.AuthDataResult, error) {
		uid, err := a.checkPassword(email, password)
		if err != nil {
			return nil, err
		}
		acc, err := a.loadAccount(uid)
		if err != nil {
			return nil, err
		}
		return a.signIn(acc, sdk.ProviderPassword, false, nil, nil)
	}, cb)
}

// SignInWithCustomToken signs in as the token's uid, creating the account
// on first use. Claims carried by the token are added to the user's ID
// tokens.
func (a *Auth) SignInWithCustomToken(token string, cb sdk.Callback[*sdk.AuthDataResult]) {
	run(a, "signInWithCustomToken", func() (*sdk.AuthDataResult, error) {
		uid, claims, err := parseCustomToken(a.cfg.CustomTokenKey, token)
		if err != nil {
			return nil, err
		}
		isNew := false
		user, err := a.cfg.Stores.Users.GetUserById(uid)
		if isNotFound(err) {
			isNew = true
			user, err = a.cfg.Stores.Users.CreateUser(uid, true, map[string]any{})
		}
		if err != nil {
			return nil, err
		}
		if len(claims) > 0 {
			user.SetProfile(profileClaims, claims)
			if err := a.cfg.Stores.Users.SaveUser(user); err != nil {
				return nil, err
			}
		}
		acc, err := a.loadAccount(uid)
		if err != nil {
			return nil, err
		}
		return a.signIn(acc, sdk.ProviderCustom, isNew, nil, nil)
	}, cb)
}

// SignInWithCredential signs in with any supported credential. OAuth and
// phone credentials create an account when none holds them yet.
func (a *Auth) SignInWithCredential(cred sdk.Credential, cb sdk.Callback[*sdk.AuthDataResult]) {
	run(a, "signInWithCredential", func() (*sdk.AuthDataResult, error) {
		r, err := a.resolve(cred, false)
		if err != nil {
			return nil, err
		}
		isNew := false
		if r.uid == "" {
			profile := map[string]any{}
			for _, k := range []string{stores.ProfileDisplayName, stores.ProfilePhotoURL} {
				if v, ok := r.profile[k]; ok {
					profile[k] = v
				}
			}
			user, err := a.createUser(profile)
			if err != nil {
				return nil, err
			}
			if err := a.attach(user.ID, r.identityType, r.value, r.verified, r.provider, r.creds, r.profile); err != nil {
				a.cfg.Stores.Users.DeleteUser(user.ID)
				return nil, err
			}
			r.uid = user.ID
			isNew = true
		}
		acc, err := a.loadAccount(r.uid)
		if err != nil {
			return nil, err
		}
		return a.signIn(acc, r.provider, isNew, cred, r.info)
	}, cb)
}

// VerifyPhoneNumber texts a six digit code to phone and calls back with the
// verification ID to pair with it.
func (a *Auth) VerifyPhoneNumber(phone string, cb sdk.Callback[string]) {
	run(a, "verifyPhoneNumber", func() (string, error) {
		if !phoneRegex.MatchString(phone) {
			return "", sdk.NewAuthError(sdk.CodeInvalidCredential, "phone number must be in E.164 format").WithField("phone")
		}
		if !a.limiter.allow(stores.IdentityKey(stores.IdentityPhone, phone)) {
			return "", sdk.ErrTooManyRequests
		}
		code, err := stores.GenerateNumericCode(6)
		if err != nil {
			return "", err
		}
		tok, err := stores.NewAuthToken("", "", stores.TokenTypePhoneVerification, stores.TokenExpiryPhoneVerification)
		if err != nil {
			return "", err
		}
		tok.Phone = phone
		tok.Code = code
		if err := a.cfg.Stores.Tokens.SaveToken(tok); err != nil {
			return "", fmt.Errorf("failed to save verification: %w", err)
		}
		if err := a.cfg.SMS.SendCode(phone, code); err != nil {
			a.cfg.Stores.Tokens.DeleteToken(tok.Token)
			return "", fmt.Errorf("failed to send code: %w", err)
		}
		return tok.Token, nil
	}, cb)
}

// actionLink builds the link mailed with an action code.
func (a *Auth) actionLink(settings *sdk.ActionCodeSettings, mode, code string) (string, error) {
	base := a.cfg.ActionURL
	if settings != nil && settings.URL != "" {
		base = settings.URL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", sdk.NewAuthError(sdk.CodeInternalError, "invalid action url %q", base)
	}
	q := u.Query()
	q.Set("mode", mode)
	q.Set("oobCode", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *Auth) SendPasswordReset(email string, settings *sdk.ActionCodeSettings, cb sdk.ErrorCallback) {
	a.runErr("sendPasswordReset", func() error {
		if err := a.validateEmail(email); err != nil {
			return err
		}
		uid, err := a.ownerOf(stores.IdentityEmail, email)
		if err != nil {
			return err
		}
		if uid == "" {
			return sdk.ErrUserNotFound
		}
		tok, err := a.cfg.Stores.Tokens.CreateToken(uid, email, stores.TokenTypePasswordReset, stores.TokenExpiryPasswordReset)
		if err != nil {
			return fmt.Errorf("failed to create reset code: %w", err)
		}
		link, err := a.actionLink(settings, sdk.ActionModeResetPassword, tok.Token)
		if err != nil {
			return err
		}
		return a.cfg.Mailer.SendPasswordResetEmail(email, link)
	}, cb)
}

func (a *Auth) VerifyPasswordResetCode(code string, cb sdk.Callback[string]) {
	run(a, "verifyPasswordResetCode", func() (string, error) {
		tok, err := a.actionCode(code, stores.TokenTypePasswordReset)
		if err != nil {
			return "", err
		}
		return tok.Email, nil
	}, cb)
}

// ConfirmPasswordReset sets a new password and revokes the account's
// refresh tokens.
func (a *Auth) ConfirmPasswordReset(code, newPassword string, cb sdk.ErrorCallback) {
	a.runErr("confirmPasswordReset", func() error {
		if err := a.validatePassword(newPassword); err != nil {
			return err
		}
		tok, err := a.actionCode(code, stores.TokenTypePasswordReset)
		if err != nil {
			return err
		}
		if err := a.setPassword(tok.Email, newPassword); err != nil {
			return err
		}
		if err := a.cfg.Stores.Tokens.DeleteToken(code); err != nil {
			a.logger.Warn("failed to delete reset code", "err", err)
		}
		if err := a.cfg.Stores.RefreshTokens.RevokeUserTokens(tok.UserID); err != nil {
			a.logger.Warn("failed to revoke refresh tokens", "uid", tok.UserID, "err", err)
		}
		a.logger.Info("password reset", "uid", tok.UserID)
		return nil
	}, cb)
}

// ApplyActionCode applies an email verification code.
func (a *Auth) ApplyActionCode(code string, cb sdk.ErrorCallback) {
	a.runErr("applyActionCode", func() error {
		tok, err := a.actionCode(code, "")
		if err != nil {
			return err
		}
		if tok.Type != stores.TokenTypeEmailVerification {
			return sdk.ErrInvalidActionCode
		}
		if err := a.cfg.Stores.Identities.MarkIdentityVerified(stores.IdentityEmail, tok.Email); err != nil {
			if isNotFound(err) {
				return sdk.ErrUserNotFound
			}
			return err
		}
		if err := a.cfg.Stores.Tokens.DeleteToken(code); err != nil {
			a.logger.Warn("failed to delete verification code", "err", err)
		}
		if u := a.currentUser(); u != nil && u.uid == tok.UserID {
			u.markEmailVerified(tok.Email)
		}
		return nil
	}, cb)
}
