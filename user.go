package rxauth

import (
	"github.com/panyam/rxauth/rx"
	"github.com/panyam/rxauth/sdk"
)

// User exposes an sdk.User as reactive primitives.
type User struct {
	ref Ref[sdk.User]
}

// NewUser wraps user, keeping it alive for as long as the wrapper is.
func NewUser(user sdk.User) *User {
	return NewUserWithRef(Strong(user))
}

// NewWeakUser wraps user through a weak reference. Once user is collected
// every operation fails with ErrCurrentUserNotFound.
func NewWeakUser[P any, U interface {
	*P
	sdk.User
}](user U) *User {
	return NewUserWithRef(WeakRef[sdk.User]((*P)(user)))
}

func NewUserWithRef(ref Ref[sdk.User]) *User {
	return &User{ref: ref}
}

// SDK returns the wrapped user, or nil when it is no longer available.
func (u *User) SDK() sdk.User {
	user, ok := u.ref.Get()
	if !ok {
		return nil
	}
	return user
}

// Reload refreshes the user's profile from the identity backend.
func (u *User) Reload() rx.Completable {
	return completableCall(u.ref, sdk.User.Reload)
}

// Reauthenticate proves the user's identity again, as required before
// sensitive changes.
func (u *User) Reauthenticate(cred sdk.Credential) rx.Single[*sdk.AuthDataResult] {
	return singleCall(u.ref, func(user sdk.User, cb sdk.Callback[*sdk.AuthDataResult]) {
		user.Reauthenticate(cred, cb)
	})
}

func (u *User) Link(cred sdk.Credential) rx.Single[*sdk.AuthDataResult] {
	return singleCall(u.ref, func(user sdk.User, cb sdk.Callback[*sdk.AuthDataResult]) {
		user.Link(cred, cb)
	})
}

func (u *User) Unlink(providerID string) rx.Single[sdk.User] {
	return singleCall(u.ref, func(user sdk.User, cb sdk.Callback[sdk.User]) {
		user.Unlink(providerID, cb)
	})
}

func (u *User) UpdateEmail(email string) rx.Completable {
	return completableCall(u.ref, func(user sdk.User, cb sdk.ErrorCallback) {
		user.UpdateEmail(email, cb)
	})
}

func (u *User) UpdatePassword(password string) rx.Completable {
	return completableCall(u.ref, func(user sdk.User, cb sdk.ErrorCallback) {
		user.UpdatePassword(password, cb)
	})
}

func (u *User) UpdateProfile(change sdk.ProfileChange) rx.Completable {
	return completableCall(u.ref, func(user sdk.User, cb sdk.ErrorCallback) {
		user.UpdateProfile(change, cb)
	})
}

func (u *User) SendEmailVerification(settings *sdk.ActionCodeSettings) rx.Completable {
	return completableCall(u.ref, func(user sdk.User, cb sdk.ErrorCallback) {
		user.SendEmailVerification(settings, cb)
	})
}

// IDToken emits the user's ID token, refreshing it first when forceRefresh is
// set or the cached token is close to expiry.
func (u *User) IDToken(forceRefresh bool) rx.Single[string] {
	return singleCall(u.ref, func(user sdk.User, cb sdk.Callback[string]) {
		user.GetIDToken(forceRefresh, cb)
	})
}

func (u *User) IDTokenResult(forceRefresh bool) rx.Single[*sdk.TokenResult] {
	return singleCall(u.ref, func(user sdk.User, cb sdk.Callback[*sdk.TokenResult]) {
		user.GetIDTokenResult(forceRefresh, cb)
	})
}

func (u *User) Delete() rx.Completable {
	return completableCall(u.ref, sdk.User.Delete)
}
