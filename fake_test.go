package rxauth

import (
	"sync"

	"github.com/panyam/rxauth/sdk"
)

// fakeAuth records every call and parks the callbacks so tests decide when
// and how they fire.
type fakeAuth struct {
	mu sync.Mutex

	user  sdk.User
	calls map[string]int

	resultCB sdk.Callback[*sdk.AuthDataResult]
	stringCB sdk.Callback[string]
	errCB    sdk.ErrorCallback
	lastCred sdk.Credential

	stateListeners map[sdk.ListenerHandle]sdk.StateListener
	tokenListeners map[sdk.ListenerHandle]sdk.StateListener
	removed        []sdk.ListenerHandle

	signOutErr error
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		calls:          map[string]int{},
		stateListeners: map[sdk.ListenerHandle]sdk.StateListener{},
		tokenListeners: map[sdk.ListenerHandle]sdk.StateListener{},
	}
}

func (f *fakeAuth) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAuth) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAuth) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAuth) CurrentUser() sdk.User { return f.user }

func (f *fakeAuth) AddStateDidChangeListener(l sdk.StateListener) sdk.ListenerHandle {
	f.record("AddStateDidChangeListener")
	h := sdk.NewListenerHandle()
	f.mu.Lock()
	f.stateListeners[h] = l
	f.mu.Unlock()
	return h
}

func (f *fakeAuth) RemoveStateDidChangeListener(h sdk.ListenerHandle) {
	f.record("RemoveStateDidChangeListener")
	f.mu.Lock()
	delete(f.stateListeners, h)
	f.removed = append(f.removed, h)
	f.mu.Unlock()
}

func (f *fakeAuth) AddIDTokenDidChangeListener(l sdk.StateListener) sdk.ListenerHandle {
	f.record("AddIDTokenDidChangeListener")
	h := sdk.NewListenerHandle()
	f.mu.Lock()
	f.tokenListeners[h] = l
	f.mu.Unlock()
	return h
}

func (f *fakeAuth) RemoveIDTokenDidChangeListener(h sdk.ListenerHandle) {
	f.record("RemoveIDTokenDidChangeListener")
	f.mu.Lock()
	delete(f.tokenListeners, h)
	f.removed = append(f.removed, h)
	f.mu.Unlock()
}

// fireState invokes every registered state listener, as the SDK would.
func (f *fakeAuth) fireState(user sdk.User) {
	f.mu.Lock()
	ls := make([]sdk.StateListener, 0, len(f.stateListeners))
	for _, l := range f.stateListeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l(f, user)
	}
}

func (f *fakeAuth) CreateUser(email, password string, cb sdk.Callback[*sdk.AuthDataResult]) {
	f.record("CreateUser")
	f.resultCB = cb
}

func (f *fakeAuth) SignInAnonymously(cb sdk.Callback[*sdk.AuthDataResult]) {
	f.record("SignInAnonymously")
	f.resultCB = cb
}

func (f *fakeAuth) SignInWithEmail(email, password string, cb sdk.Callback[*sdk.AuthDataResult]) {
	f.record("SignInWithEmail")
	f.resultCB = cb
}

func (f *fakeAuth) SignInWithCustomToken(token string, cb sdk.Callback[*sdk.AuthDataResult]) {
	f.record("SignInWithCustomToken")
	f.resultCB = cb
}

func (f *fakeAuth) SignInWithCredential(cred sdk.Credential, cb sdk.Callback[*sdk.AuthDataResult]) {
	f.record("SignInWithCredential")
	f.lastCred = cred
	f.resultCB = cb
}

func (f *fakeAuth) VerifyPhoneNumber(phone string, cb sdk.Callback[string]) {
	f.record("VerifyPhoneNumber")
	f.stringCB = cb
}

func (f *fakeAuth) SendPasswordReset(email string, settings *sdk.ActionCodeSettings, cb sdk.ErrorCallback) {
	f.record("SendPasswordReset")
	f.errCB = cb
}

func (f *fakeAuth) VerifyPasswordResetCode(code string, cb sdk.Callback[string]) {
	f.record("VerifyPasswordResetCode")
	f.stringCB = cb
}

func (f *fakeAuth) ConfirmPasswordReset(code, newPassword string, cb sdk.ErrorCallback) {
	f.record("ConfirmPasswordReset")
	f.errCB = cb
}

func (f *fakeAuth) ApplyActionCode(code string, cb sdk.ErrorCallback) {
	f.record("ApplyActionCode")
	f.errCB = cb
}

func (f *fakeAuth) SignOut() error {
	f.record("SignOut")
	return f.signOutErr
}

// fakeUser parks callbacks like fakeAuth.
type fakeUser struct {
	mu    sync.Mutex
	uid   string
	calls map[string]int

	resultCB sdk.Callback[*sdk.AuthDataResult]
	userCB   sdk.Callback[sdk.User]
	stringCB sdk.Callback[string]
	tokenCB  sdk.Callback[*sdk.TokenResult]
	errCB    sdk.ErrorCallback

	lastCred  sdk.Credential
	lastForce bool
}

func newFakeUser(uid string) *fakeUser {
	return &fakeUser{uid: uid, calls: map[string]int{}}
}

func (u *fakeUser) record(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls[name]++
}

func (u *fakeUser) count(name string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[name]
}

func (u *fakeUser) UID() string                  { return u.uid }
func (u *fakeUser) Email() string                { return u.uid + "@example.com" }
func (u *fakeUser) DisplayName() string          { return "" }
func (u *fakeUser) PhotoURL() string             { return "" }
func (u *fakeUser) PhoneNumber() string          { return "" }
func (u *fakeUser) IsAnonymous() bool            { return false }
func (u *fakeUser) IsEmailVerified() bool        { return false }
func (u *fakeUser) ProviderData() []sdk.UserInfo { return nil }
func (u *fakeUser) Metadata() sdk.UserMetadata   { return sdk.UserMetadata{} }

func (u *fakeUser) Reload(cb sdk.ErrorCallback) {
	u.record("Reload")
	u.errCB = cb
}

func (u *fakeUser) Reauthenticate(cred sdk.Credential, cb sdk.Callback[*sdk.AuthDataResult]) {
	u.record("Reauthenticate")
	u.lastCred = cred
	u.resultCB = cb
}

func (u *fakeUser) Link(cred sdk.Credential, cb sdk.Callback[*sdk.AuthDataResult]) {
	u.record("Link")
	u.lastCred = cred
	u.resultCB = cb
}

func (u *fakeUser) Unlink(providerID string, cb sdk.Callback[sdk.User]) {
	u.record("Unlink")
	u.userCB = cb
}

func (u *fakeUser) UpdateEmail(email string, cb sdk.ErrorCallback) {
	u.record("UpdateEmail")
	u.errCB = cb
}

func (u *fakeUser) UpdatePassword(password string, cb sdk.ErrorCallback) {
	u.record("UpdatePassword")
	u.errCB = cb
}

func (u *fakeUser) UpdateProfile(change sdk.ProfileChange, cb sdk.ErrorCallback) {
	u.record("UpdateProfile")
	u.errCB = cb
}

func (u *fakeUser) SendEmailVerification(settings *sdk.ActionCodeSettings, cb sdk.ErrorCallback) {
	u.record("SendEmailVerification")
	u.errCB = cb
}

func (u *fakeUser) GetIDToken(force bool, cb sdk.Callback[string]) {
	u.record("GetIDToken")
	u.lastForce = force
	u.stringCB = cb
}

func (u *fakeUser) GetIDTokenResult(force bool, cb sdk.Callback[*sdk.TokenResult]) {
	u.record("GetIDTokenResult")
	u.lastForce = force
	u.tokenCB = cb
}

func (u *fakeUser) Delete(cb sdk.ErrorCallback) {
	u.record("Delete")
	u.errCB = cb
}
