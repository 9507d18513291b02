package sdk

import (
	"github.com/google/uuid"
)

// Callback receives the result of an asynchronous SDK call. Implementations
// call it exactly once.
type Callback[T any] func(T, error)

// ErrorCallback receives the result of an SDK call that produces no value.
// A nil error means success.
type ErrorCallback func(error)

// StateListener is notified with the auth object and its current user, which
// is nil when signed out.
type StateListener func(auth Auth, user User)

// ListenerHandle identifies a registered listener. The zero handle is never
// returned by a successful registration.
type ListenerHandle struct {
	id uuid.UUID
}

// NewListenerHandle returns a fresh handle.
func NewListenerHandle() ListenerHandle {
	return ListenerHandle{id: uuid.New()}
}

// IsZero reports whether h is the zero handle.
func (h ListenerHandle) IsZero() bool {
	return h.id == uuid.Nil
}

func (h ListenerHandle) String() string {
	return h.id.String()
}

// Auth is the entry point of the identity SDK.
type Auth interface {
	// CurrentUser returns the signed-in user, or nil.
	CurrentUser() User

	AddStateDidChangeListener(listener StateListener) ListenerHandle
	RemoveStateDidChangeListener(handle ListenerHandle)
	AddIDTokenDidChangeListener(listener StateListener) ListenerHandle
	RemoveIDTokenDidChangeListener(handle ListenerHandle)

	CreateUser(email, password string, cb Callback[*AuthDataResult])
	SignInAnonymously(cb Callback[*AuthDataResult])
	SignInWithEmail(email, password string, cb Callback[*AuthDataResult])
	SignInWithCustomToken(token string, cb Callback[*AuthDataResult])
	SignInWithCredential(cred Credential, cb Callback[*AuthDataResult])

	// VerifyPhoneNumber sends a code to phone and calls back with the
	// verification ID to pair with it in NewPhoneCredential.
	VerifyPhoneNumber(phone string, cb Callback[string])

	SendPasswordReset(email string, settings *ActionCodeSettings, cb ErrorCallback)
	// VerifyPasswordResetCode calls back with the email the code was issued for.
	VerifyPasswordResetCode(code string, cb Callback[string])
	ConfirmPasswordReset(code, newPassword string, cb ErrorCallback)
	ApplyActionCode(code string, cb ErrorCallback)

	// SignOut is synchronous.
	SignOut() error
}

// User is a signed-in account. Methods other than the accessors are
// asynchronous and report through their callback.
type User interface {
	UID() string
	Email() string
	DisplayName() string
	PhotoURL() string
	PhoneNumber() string
	IsAnonymous() bool
	IsEmailVerified() bool
	ProviderData() []UserInfo
	Metadata() UserMetadata

	Reload(cb ErrorCallback)
	Reauthenticate(cred Credential, cb Callback[*AuthDataResult])
	Link(cred Credential, cb Callback[*AuthDataResult])
	Unlink(providerID string, cb Callback[User])
	UpdateEmail(email string, cb ErrorCallback)
	UpdatePassword(password string, cb ErrorCallback)
	UpdateProfile(change ProfileChange, cb ErrorCallback)
	SendEmailVerification(settings *ActionCodeSettings, cb ErrorCallback)
	GetIDToken(forceRefresh bool, cb Callback[string])
	GetIDTokenResult(forceRefresh bool, cb Callback[*TokenResult])
	Delete(cb ErrorCallback)
}
