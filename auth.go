package rxauth

import (
	"log/slog"

	"github.com/panyam/rxauth/rx"
	"github.com/panyam/rxauth/sdk"
)

// StateChange is one notification from a state or ID token listener. User is
// nil when signed out.
type StateChange struct {
	Auth sdk.Auth
	User sdk.User
}

// Auth exposes an sdk.Auth as reactive primitives.
type Auth struct {
	ref    Ref[sdk.Auth]
	logger *slog.Logger
}

// Option configures an Auth.
type Option func(*Auth)

// WithLogger sets the logger used for listener lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Auth) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New wraps auth, keeping it alive for as long as the wrapper is.
func New(auth sdk.Auth, opts ...Option) *Auth {
	return NewWithRef(Strong(auth), opts...)
}

// NewWeak wraps auth through a weak reference. Once auth is collected every
// operation fails with ErrCurrentUserNotFound and listener streams register
// nothing.
func NewWeak[P any, A interface {
	*P
	sdk.Auth
}](auth A, opts ...Option) *Auth {
	return NewWithRef(WeakRef[sdk.Auth]((*P)(auth)), opts...)
}

// NewWithRef wraps whatever ref resolves to at subscription time.
func NewWithRef(ref Ref[sdk.Auth], opts ...Option) *Auth {
	a := &Auth{ref: ref, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// currentUser resolves the signed-in user of the wrapped auth object.
func (a *Auth) currentUser() Ref[sdk.User] {
	ref := a.ref
	return funcRef[sdk.User](func() (sdk.User, bool) {
		auth, ok := ref.Get()
		if !ok {
			return nil, false
		}
		user := auth.CurrentUser()
		return user, !isAbsent(user)
	})
}

// CurrentUser returns the signed-in user wrapped for reactive use, or nil.
func (a *Auth) CurrentUser() *User {
	user, ok := a.currentUser().Get()
	if !ok {
		return nil
	}
	return NewUser(user)
}

// StateChanges emits on every sign-in and sign-out. The stream never ends on
// its own; dispose it to remove the listener.
func (a *Auth) StateChanges() rx.Observable[StateChange] {
	return a.listen("state",
		func(auth sdk.Auth, l sdk.StateListener) sdk.ListenerHandle { return auth.AddStateDidChangeListener(l) },
		func(auth sdk.Auth, h sdk.ListenerHandle) { auth.RemoveStateDidChangeListener(h) },
	)
}

// IDTokenChanges emits on sign-in, sign-out and ID token refresh.
func (a *Auth) IDTokenChanges() rx.Observable[StateChange] {
	return a.listen("id_token",
		func(auth sdk.Auth, l sdk.StateListener) sdk.ListenerHandle { return auth.AddIDTokenDidChangeListener(l) },
		func(auth sdk.Auth, h sdk.ListenerHandle) { auth.RemoveIDTokenDidChangeListener(h) },
	)
}

func (a *Auth) CreateUser(email, password string) rx.Single[*sdk.AuthDataResult] {
	return singleCall(a.ref, func(auth sdk.Auth, cb sdk.Callback[*sdk.AuthDataResult]) {
		auth.CreateUser(email, password, cb)
	})
}

func (a *Auth) SignInAnonymously() rx.Single[*sdk.AuthDataResult] {
	return singleCall(a.ref, func(auth sdk.Auth, cb sdk.Callback[*sdk.AuthDataResult]) {
		auth.SignInAnonymously(cb)
	})
}

func (a *Auth) SignInWithEmail(email, password string) rx.Single[*sdk.AuthDataResult] {
	return singleCall(a.ref, func(auth sdk.Auth, cb sdk.Callback[*sdk.AuthDataResult]) {
		auth.SignInWithEmail(email, password, cb)
	})
}

func (a *Auth) SignInWithCustomToken(token string) rx.Single[*sdk.AuthDataResult] {
	return singleCall(a.ref, func(auth sdk.Auth, cb sdk.Callback[*sdk.AuthDataResult]) {
		auth.SignInWithCustomToken(token, cb)
	})
}

// SignIn signs in with any provider credential.
func (a *Auth) SignIn(cred sdk.Credential) rx.Single[*sdk.AuthDataResult] {
	return singleCall(a.ref, func(auth sdk.Auth, cb sdk.Callback[*sdk.AuthDataResult]) {
		auth.SignInWithCredential(cred, cb)
	})
}

func (a *Auth) SignInWithFacebook(accessToken string) rx.Single[*sdk.AuthDataResult] {
	return credentialCall(facebookCredential(accessToken), a.SignIn)
}

func (a *Auth) SignInWithTwitter(token, secret string) rx.Single[*sdk.AuthDataResult] {
	return credentialCall(twitterCredential(token, secret), a.SignIn)
}

func (a *Auth) SignInWithGitHub(token string) rx.Single[*sdk.AuthDataResult] {
	return credentialCall(githubCredential(token), a.SignIn)
}

func (a *Auth) SignInWithGoogle(idToken, accessToken string) rx.Single[*sdk.AuthDataResult] {
	return credentialCall(googleCredential(idToken, accessToken), a.SignIn)
}

// SignInWithPhone completes a phone sign-in started by VerifyPhoneNumber.
func (a *Auth) SignInWithPhone(verificationID, code string) rx.Single[*sdk.AuthDataResult] {
	return credentialCall(phoneCredential(verificationID, code), a.SignIn)
}

// Link attaches cred to the signed-in user.
func (a *Auth) Link(cred sdk.Credential) rx.Single[*sdk.AuthDataResult] {
	return singleCall(a.currentUser(), func(user sdk.User, cb sdk.Callback[*sdk.AuthDataResult]) {
		user.Link(cred, cb)
	})
}

func (a *Auth) LinkWithFacebook(accessToken string) rx.Single[*sdk.AuthDataResult] {
	return credentialCall(facebookCredential(accessToken), a.Link)
}

func (a *Auth) LinkWithTwitter(token, secret string) rx.Single[*sdk.AuthDataResult] {
	return credentialCall(twitterCredential(token, secret), a.Link)
}

func (a *Auth) LinkWithGitHub(token string) rx.Single[*sdk.AuthDataResult] {
	return credentialCall(githubCredential(token), a.Link)
}

func (a *Auth) LinkWithGoogle(idToken, accessToken string) rx.Single[*sdk.AuthDataResult] {
	return credentialCall(googleCredential(idToken, accessToken), a.Link)
}

func (a *Auth) LinkWithPhone(verificationID, code string) rx.Single[*sdk.AuthDataResult] {
	return credentialCall(phoneCredential(verificationID, code), a.Link)
}

// Unlink detaches providerID from the signed-in user and emits the updated
// user.
func (a *Auth) Unlink(providerID string) rx.Single[sdk.User] {
	return singleCall(a.currentUser(), func(user sdk.User, cb sdk.Callback[sdk.User]) {
		user.Unlink(providerID, cb)
	})
}

// VerifyPhoneNumber sends a code to phone and emits the verification ID.
func (a *Auth) VerifyPhoneNumber(phone string) rx.Single[string] {
	return singleCall(a.ref, func(auth sdk.Auth, cb sdk.Callback[string]) {
		auth.VerifyPhoneNumber(phone, cb)
	})
}

func (a *Auth) SendPasswordReset(email string, settings *sdk.ActionCodeSettings) rx.Completable {
	return completableCall(a.ref, func(auth sdk.Auth, cb sdk.ErrorCallback) {
		auth.SendPasswordReset(email, settings, cb)
	})
}

// VerifyPasswordResetCode emits the email address the code was issued for.
func (a *Auth) VerifyPasswordResetCode(code string) rx.Single[string] {
	return singleCall(a.ref, func(auth sdk.Auth, cb sdk.Callback[string]) {
		auth.VerifyPasswordResetCode(code, cb)
	})
}

func (a *Auth) ConfirmPasswordReset(code, newPassword string) rx.Completable {
	return completableCall(a.ref, func(auth sdk.Auth, cb sdk.ErrorCallback) {
		auth.ConfirmPasswordReset(code, newPassword, cb)
	})
}

func (a *Auth) ApplyActionCode(code string) rx.Completable {
	return completableCall(a.ref, func(auth sdk.Auth, cb sdk.ErrorCallback) {
		auth.ApplyActionCode(code, cb)
	})
}

// SignOut signs out on subscription. The SDK call is synchronous; its error
// is delivered like any other terminal error.
func (a *Auth) SignOut() rx.Completable {
	return syncCompletable(a.ref, sdk.Auth.SignOut)
}
