package rxauth

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/rxauth/rx"
	"github.com/panyam/rxauth/sdk"
)

// recorder captures every event a Single delivers.
type recorder[T any] struct {
	values []T
	errs   []error
}

func (r *recorder[T]) onSuccess(v T)     { r.values = append(r.values, v) }
func (r *recorder[T]) onError(err error) { r.errs = append(r.errs, err) }
func (r *recorder[T]) events() int       { return len(r.values) + len(r.errs) }

func TestCredentialSignInEmitsResultOnce(t *testing.T) {
	fa := newFakeAuth()
	auth := New(fa)

	rec := &recorder[*sdk.AuthDataResult]{}
	auth.SignIn(sdk.NewEmailCredential("a@b.c", "pw")).Subscribe(rec.onSuccess, rec.onError)
	assert.Equal(t, 1, fa.count("SignInWithCredential"))

	result := &sdk.AuthDataResult{User: newFakeUser("u1")}
	fa.resultCB(result, nil)
	fa.resultCB(result, nil)
	fa.resultCB(nil, errors.New("late"))

	require.Len(t, rec.values, 1)
	assert.Same(t, result, rec.values[0])
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, fa.count("SignInWithCredential"))
}

func TestSingleIssuesOneCallPerSubscription(t *testing.T) {
	fa := newFakeAuth()
	single := New(fa).SignInAnonymously()
	assert.Equal(t, 0, fa.count("SignInAnonymously"))

	single.Subscribe(nil, nil)
	single.Subscribe(nil, nil)
	assert.Equal(t, 2, fa.count("SignInAnonymously"))
}

func TestSuccessAfterDisposeIsDropped(t *testing.T) {
	fa := newFakeAuth()
	rec := &recorder[*sdk.AuthDataResult]{}
	d := New(fa).SignInWithEmail("a@b.c", "pw").Subscribe(rec.onSuccess, rec.onError)
	d.Dispose()

	fa.resultCB(&sdk.AuthDataResult{}, nil)
	assert.Equal(t, 0, rec.events())
}

func TestIllegalCallbackCombinations(t *testing.T) {
	fa := newFakeAuth()
	auth := New(fa)

	rec := &recorder[string]{}
	auth.VerifyPhoneNumber("+15550100").Subscribe(rec.onSuccess, rec.onError)
	fa.stringCB("", nil)
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], ErrIllegalCombination)

	rec = &recorder[string]{}
	boom := errors.New("boom")
	auth.VerifyPasswordResetCode("code").Subscribe(rec.onSuccess, rec.onError)
	fa.stringCB("a@b.c", boom)
	require.Len(t, rec.errs, 1)
	var ic *IllegalCombinationError
	require.ErrorAs(t, rec.errs[0], &ic)
	assert.Equal(t, "a@b.c", ic.Value)
	assert.Same(t, boom, ic.Err)
}

func TestCompletableAdapters(t *testing.T) {
	fa := newFakeAuth()
	auth := New(fa)

	completed, failed := 0, []error{}
	auth.ApplyActionCode("code").Subscribe(func() { completed++ }, func(err error) { failed = append(failed, err) })
	fa.errCB(nil)
	assert.Equal(t, 1, completed)
	assert.Empty(t, failed)

	resetErr := sdk.NewAuthError(sdk.CodeUserNotFound, "no such email")
	auth.SendPasswordReset("nobody@example.com", nil).Subscribe(func() { completed++ }, func(err error) { failed = append(failed, err) })
	fa.errCB(resetErr)
	assert.Equal(t, 1, completed)
	require.Len(t, failed, 1)
	assert.Same(t, resetErr, failed[0])
}

func TestSignOutSynchronousError(t *testing.T) {
	fa := newFakeAuth()
	auth := New(fa)
	ctx := context.Background()

	require.NoError(t, auth.SignOut().Await(ctx))

	fa.signOutErr = errors.New("keychain locked")
	assert.Same(t, fa.signOutErr, auth.SignOut().Await(ctx))
	assert.Equal(t, 2, fa.count("SignOut"))
}

func TestStateChangesStream(t *testing.T) {
	fa := newFakeAuth()
	auth := New(fa)

	var got []StateChange
	d := auth.StateChanges().Subscribe(func(c StateChange) { got = append(got, c) }, func(error) {
		t.Fatal("listener stream errored")
	}, func() {
		t.Fatal("listener stream completed")
	})
	require.Equal(t, 1, fa.count("AddStateDidChangeListener"))
	var handle sdk.ListenerHandle
	for h := range fa.stateListeners {
		handle = h
	}

	user := newFakeUser("u1")
	fa.fireState(nil)
	fa.fireState(user)
	d.Dispose()
	fa.fireState(nil)
	d.Dispose()

	require.Len(t, got, 2)
	assert.Nil(t, got[0].User)
	assert.Same(t, user, got[1].User)
	assert.Same(t, fa, got[1].Auth)
	assert.Equal(t, 1, fa.count("RemoveStateDidChangeListener"))
	assert.Equal(t, []sdk.ListenerHandle{handle}, fa.removed)
	assert.Empty(t, fa.stateListeners)
}

func TestIDTokenChangesRemovesOnDispose(t *testing.T) {
	fa := newFakeAuth()
	d := New(fa).IDTokenChanges().Subscribe(nil, nil, nil)
	assert.Len(t, fa.tokenListeners, 1)
	d.Dispose()
	assert.Empty(t, fa.tokenListeners)
	assert.Equal(t, 1, fa.count("RemoveIDTokenDidChangeListener"))
}

func TestLinkRequiresCurrentUser(t *testing.T) {
	fa := newFakeAuth()
	auth := New(fa)
	ctx := context.Background()

	_, err := auth.Link(sdk.NewGitHubCredential("tok")).Await(ctx)
	assert.ErrorIs(t, err, ErrCurrentUserNotFound)
	_, err = auth.LinkWithGoogle("idt", "").Await(ctx)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = auth.Unlink(sdk.ProviderGitHub).Await(ctx)
	assert.ErrorIs(t, err, ErrCurrentUserNotFound)

	assert.Equal(t, 0, fa.totalCalls())
	assert.Nil(t, auth.CurrentUser())
}

func TestLinkUsesCurrentUser(t *testing.T) {
	fa := newFakeAuth()
	user := newFakeUser("u1")
	fa.user = user
	auth := New(fa)

	rec := &recorder[*sdk.AuthDataResult]{}
	auth.LinkWithGitHub("gh-token").Subscribe(rec.onSuccess, rec.onError)
	require.Equal(t, 1, user.count("Link"))
	cred, ok := user.lastCred.(*sdk.OAuthCredential)
	require.True(t, ok)
	assert.Equal(t, sdk.ProviderGitHub, cred.ProviderID())
	assert.Equal(t, "gh-token", cred.AccessToken())

	user.resultCB(&sdk.AuthDataResult{User: user}, nil)
	require.Len(t, rec.values, 1)

	urec := &recorder[sdk.User]{}
	auth.Unlink(sdk.ProviderGitHub).Subscribe(urec.onSuccess, urec.onError)
	user.userCB(user, nil)
	require.Len(t, urec.values, 1)
	assert.Same(t, user, urec.values[0])

	require.NotNil(t, auth.CurrentUser())
	assert.Equal(t, "u1", auth.CurrentUser().SDK().UID())
}

func TestProviderSignInBuildsCredential(t *testing.T) {
	fa := newFakeAuth()
	auth := New(fa)

	auth.SignInWithTwitter("tok", "secret").Subscribe(nil, nil)
	cred, ok := fa.lastCred.(*sdk.OAuthCredential)
	require.True(t, ok)
	assert.Equal(t, sdk.ProviderTwitter, cred.Provider)
	assert.Equal(t, "secret", cred.Secret)

	auth.SignInWithPhone("vid", "123456").Subscribe(nil, nil)
	phone, ok := fa.lastCred.(*sdk.PhoneCredential)
	require.True(t, ok)
	assert.Equal(t, "vid", phone.VerificationID)
	assert.Equal(t, 2, fa.count("SignInWithCredential"))
}

func TestProviderSignInRejectsEmptyTokens(t *testing.T) {
	fa := newFakeAuth()
	auth := New(fa)
	ctx := context.Background()

	_, err := auth.SignInWithFacebook("").Await(ctx)
	assert.ErrorIs(t, err, sdk.ErrInvalidCredential)
	_, err = auth.SignInWithGoogle("", "").Await(ctx)
	assert.ErrorIs(t, err, sdk.ErrInvalidCredential)
	_, err = auth.SignInWithPhone("vid", "").Await(ctx)
	assert.ErrorIs(t, err, sdk.ErrInvalidVerificationCode)

	assert.Equal(t, 0, fa.totalCalls())
}

func TestUserOperationsPassThrough(t *testing.T) {
	fu := newFakeUser("u1")
	user := NewUser(fu)

	trec := &recorder[string]{}
	user.IDToken(true).Subscribe(trec.onSuccess, trec.onError)
	assert.True(t, fu.lastForce)
	fu.stringCB("token-1", nil)
	assert.Equal(t, []string{"token-1"}, trec.values)

	rrec := &recorder[*sdk.TokenResult]{}
	user.IDTokenResult(false).Subscribe(rrec.onSuccess, rrec.onError)
	assert.False(t, fu.lastForce)
	tr := &sdk.TokenResult{Token: "token-1"}
	fu.tokenCB(tr, nil)
	assert.Equal(t, []*sdk.TokenResult{tr}, rrec.values)

	boom := errors.New("requires recent login")
	var failed error
	user.UpdatePassword("newpass").Subscribe(nil, func(err error) { failed = err })
	fu.errCB(boom)
	assert.Same(t, boom, failed)

	name := "x"
	change := sdk.ProfileChange{DisplayName: &name}
	completables := map[string]func() error{
		"Reload":                func() error { return run(user.Reload(), fu) },
		"UpdateEmail":           func() error { return run(user.UpdateEmail("new@example.com"), fu) },
		"UpdateProfile":         func() error { return run(user.UpdateProfile(change), fu) },
		"SendEmailVerification": func() error { return run(user.SendEmailVerification(nil), fu) },
		"Delete":                func() error { return run(user.Delete(), fu) },
	}
	for op, fn := range completables {
		require.NoError(t, fn(), op)
		assert.Equal(t, 1, fu.count(op), op)
	}
}

func TestReauthenticatePassesCredential(t *testing.T) {
	fu := newFakeUser("u1")
	cred := sdk.NewEmailCredential("u1@example.com", "pw")
	rec := &recorder[*sdk.AuthDataResult]{}
	NewUser(fu).Reauthenticate(cred).Subscribe(rec.onSuccess, rec.onError)
	assert.Same(t, cred, fu.lastCred)
	fu.resultCB(nil, sdk.ErrWrongPassword)
	require.Len(t, rec.errs, 1)
	assert.Same(t, sdk.ErrWrongPassword, rec.errs[0])
}

func TestNilUserIsNotFound(t *testing.T) {
	_, err := NewUser(nil).IDToken(false).Await(context.Background())
	assert.ErrorIs(t, err, ErrCurrentUserNotFound)
	assert.Nil(t, NewUser(nil).SDK())
}

func TestWeakAuthDoesNotKeepSDKAlive(t *testing.T) {
	auth := NewWeak(newFakeAuth())

	require.Eventually(t, func() bool {
		runtime.GC()
		_, ok := auth.ref.Get()
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	_, err := auth.SignInAnonymously().Await(context.Background())
	assert.ErrorIs(t, err, ErrCurrentUserNotFound)

	var elements int
	d := auth.StateChanges().Subscribe(func(StateChange) { elements++ }, nil, nil)
	d.Dispose()
	assert.Equal(t, 0, elements)
}

func TestWeakUserResolvesWhileAlive(t *testing.T) {
	fu := newFakeUser("u1")
	user := NewWeakUser(fu)
	user.Reload().Subscribe(nil, nil)
	assert.Equal(t, 1, fu.count("Reload"))
	runtime.KeepAlive(fu)
}

// run subscribes to c, completes the callback fu parked, and reports the
// terminal event.
func run(c rx.Completable, fu *fakeUser) error {
	errPending := errors.New("no terminal event")
	result := errPending
	c.Subscribe(func() { result = nil }, func(err error) { result = err })
	fu.errCB(nil)
	return result
}
