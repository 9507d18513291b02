package local_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/rxauth"
	"github.com/panyam/rxauth/local"
	"github.com/panyam/rxauth/providers"
	"github.com/panyam/rxauth/sdk"
	"github.com/panyam/rxauth/session"
	"github.com/panyam/rxauth/stores"
	"github.com/panyam/rxauth/stores/fs"
)

// recorder captures what the SDK would have mailed or texted.
type recorder struct {
	mu    sync.Mutex
	links []string
	codes []string
}

func (r *recorder) SendVerificationEmail(to, link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = append(r.links, link)
	return nil
}

func (r *recorder) SendPasswordResetEmail(to, link string) error {
	return r.SendVerificationEmail(to, link)
}

func (r *recorder) SendCode(phone, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
	return nil
}

func (r *recorder) lastCode(t *testing.T) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.codes)
	return r.codes[len(r.codes)-1]
}

// lastOOBCode returns the action code of the last mailed link.
func (r *recorder) lastOOBCode(t *testing.T) (mode, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.links)
	u, err := url.Parse(r.links[len(r.links)-1])
	require.NoError(t, err)
	return u.Query().Get("mode"), u.Query().Get("oobCode")
}

type harness struct {
	auth     *local.Auth
	rx       *rxauth.Auth
	rec      *recorder
	stores   stores.Stores
	sessions session.Store
	cfg      local.Config
}

func githubVerifier() providers.Verifier {
	return providers.VerifierFunc(func(ctx context.Context, cred *sdk.OAuthCredential) (*providers.Profile, error) {
		if cred.AccessToken() == "bad" {
			return nil, sdk.ErrInvalidCredential
		}
		return &providers.Profile{
			Subject:     "gh-" + cred.AccessToken(),
			Email:       cred.AccessToken() + "@users.github.example",
			DisplayName: "GitHub " + cred.AccessToken(),
			Username:    cred.AccessToken(),
		}, nil
	})
}

func newHarness(t *testing.T, mutate ...func(*local.Config)) *harness {
	t.Helper()
	dir := t.TempDir()
	sessions, err := session.NewFSStore(filepath.Join(dir, "session.json"), "")
	require.NoError(t, err)
	rec := &recorder{}
	cfg := local.Config{
		AppName:      "test-app",
		JWTSecretKey: "test-secret",
		ActionURL:    "https://app.example/auth/action",
		Stores:       fs.New(filepath.Join(dir, "store")),
		Sessions:     sessions,
		Providers:    providers.NewRegistry().Register(sdk.ProviderGitHub, githubVerifier()),
		Mailer:       rec,
		SMS:          rec,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return openHarness(t, cfg, rec)
}

func openHarness(t *testing.T, cfg local.Config, rec *recorder) *harness {
	t.Helper()
	auth, err := local.New(cfg)
	require.NoError(t, err)
	t.Cleanup(auth.Close)
	return &harness{auth: auth, rx: rxauth.New(auth), rec: rec, stores: cfg.Stores, sessions: cfg.Sessions, cfg: cfg}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

func uidOf(u sdk.User) string {
	if u == nil {
		return ""
	}
	return u.UID()
}

func TestCreateSignOutSignIn(t *testing.T) {
	h := newHarness(t)

	created, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	assert.True(t, created.AdditionalUserInfo.IsNewUser)
	assert.Equal(t, sdk.ProviderPassword, created.AdditionalUserInfo.ProviderID)
	assert.Equal(t, "ada@example.com", created.User.Email())
	assert.False(t, created.User.IsEmailVerified())
	require.NotNil(t, h.auth.CurrentUser())
	assert.Equal(t, created.User.UID(), h.auth.CurrentUser().UID())

	require.NoError(t, h.rx.SignOut().Await(ctx(t)))
	assert.Nil(t, h.auth.CurrentUser())

	again, err := h.rx.SignInWithEmail("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	assert.False(t, again.AdditionalUserInfo.IsNewUser)
	assert.Equal(t, created.User.UID(), again.User.UID())
}

func TestCreateUserErrors(t *testing.T) {
	h := newHarness(t)
	_, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"duplicate", "ada@example.com", "another1", sdk.ErrEmailAlreadyInUse},
		{"bad email", "not-an-email", "s3cret!", sdk.ErrInvalidEmail},
		{"weak password", "bob@example.com", "123", sdk.ErrWeakPassword},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.rx.CreateUser(tc.email, tc.password).Await(ctx(t))
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestSignInErrors(t *testing.T) {
	h := newHarness(t)
	_, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)

	_, err = h.rx.SignInWithEmail("ada@example.com", "wrong!!").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrWrongPassword))

	_, err = h.rx.SignInWithEmail("nobody@example.com", "s3cret!").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrUserNotFound))
}

func TestSignInRateLimited(t *testing.T) {
	h := newHarness(t, func(c *local.Config) {
		c.SignInBurst = 2
		c.SignInRate = 0.0001
	})
	_, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)

	for range 2 {
		_, err = h.rx.SignInWithEmail("ada@example.com", "wrong!!").Await(ctx(t))
		require.True(t, errors.Is(err, sdk.ErrWrongPassword))
	}
	_, err = h.rx.SignInWithEmail("ada@example.com", "s3cret!").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrTooManyRequests))
}

func TestStateListenerSequence(t *testing.T) {
	h := newHarness(t)

	events := make(chan string, 10)
	d := h.rx.StateChanges().Subscribe(func(c rxauth.StateChange) {
		events <- uidOf(c.User)
	}, nil, nil)
	defer d.Dispose()

	next := func() string {
		select {
		case uid := <-events:
			return uid
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for state change")
			return ""
		}
	}

	assert.Equal(t, "", next())

	created, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, created.User.UID(), next())

	require.NoError(t, h.rx.SignOut().Await(ctx(t)))
	assert.Equal(t, "", next())

	d.Dispose()
	_, err = h.rx.SignInAnonymously().Await(ctx(t))
	require.NoError(t, err)
	select {
	case uid := <-events:
		t.Fatalf("listener called after dispose with %q", uid)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLinkAndUnlinkGitHub(t *testing.T) {
	h := newHarness(t)
	created, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	uid := created.User.UID()

	linked, err := h.rx.LinkWithGitHub("octo").Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, uid, linked.User.UID())
	assert.Equal(t, sdk.ProviderGitHub, linked.AdditionalUserInfo.ProviderID)
	assert.Equal(t, "octo", linked.AdditionalUserInfo.Username)
	assert.ElementsMatch(t, []string{sdk.ProviderPassword, sdk.ProviderGitHub}, providerIDs(linked.User))

	_, err = h.rx.LinkWithGitHub("octo").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrProviderAlreadyLinked))

	// Signing in with the linked account lands on the same user.
	require.NoError(t, h.rx.SignOut().Await(ctx(t)))
	viaGitHub, err := h.rx.SignInWithGitHub("octo").Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, uid, viaGitHub.User.UID())
	assert.False(t, viaGitHub.AdditionalUserInfo.IsNewUser)

	user, err := h.rx.Unlink(sdk.ProviderGitHub).Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, []string{sdk.ProviderPassword}, providerIDs(user))

	_, err = h.rx.Unlink(sdk.ProviderGitHub).Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrNoSuchProvider))
}

func TestLinkCredentialInUse(t *testing.T) {
	h := newHarness(t)
	_, err := h.rx.SignInWithGitHub("octo").Await(ctx(t))
	require.NoError(t, err)
	require.NoError(t, h.rx.SignOut().Await(ctx(t)))

	_, err = h.rx.SignInAnonymously().Await(ctx(t))
	require.NoError(t, err)
	_, err = h.rx.LinkWithGitHub("octo").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrCredentialAlreadyInUse))
}

func TestOAuthSignInCreatesUser(t *testing.T) {
	h := newHarness(t)
	res, err := h.rx.SignInWithGitHub("octo").Await(ctx(t))
	require.NoError(t, err)
	assert.True(t, res.AdditionalUserInfo.IsNewUser)
	assert.Equal(t, "GitHub octo", res.User.DisplayName())
	assert.Equal(t, "octo@users.github.example", res.User.Email())

	_, err = h.rx.SignInWithGitHub("bad").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrInvalidCredential))

	_, err = h.rx.SignInWithTwitter("tok", "secret").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrOperationNotAllowed))
}

func TestAnonymousUpgrade(t *testing.T) {
	h := newHarness(t)
	anon, err := h.rx.SignInAnonymously().Await(ctx(t))
	require.NoError(t, err)
	assert.True(t, anon.User.IsAnonymous())
	assert.Equal(t, sdk.ProviderAnonymous, anon.AdditionalUserInfo.ProviderID)

	linked, err := h.rx.Link(sdk.NewEmailCredential("anon@example.com", "s3cret!")).Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, anon.User.UID(), linked.User.UID())
	assert.False(t, linked.User.IsAnonymous())
	assert.Equal(t, "anon@example.com", linked.User.Email())

	require.NoError(t, h.rx.SignOut().Await(ctx(t)))
	back, err := h.rx.SignInWithEmail("anon@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, anon.User.UID(), back.User.UID())
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	_, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	require.NoError(t, h.rx.SignOut().Await(ctx(t)))

	err = h.rx.SendPasswordReset("nobody@example.com", nil).Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrUserNotFound))

	require.NoError(t, h.rx.SendPasswordReset("ada@example.com", nil).Await(ctx(t)))
	mode, code := h.rec.lastOOBCode(t)
	assert.Equal(t, sdk.ActionModeResetPassword, mode)

	email, err := h.rx.VerifyPasswordResetCode(code).Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", email)

	require.NoError(t, h.rx.ConfirmPasswordReset(code, "n3w-secret").Await(ctx(t)))

	err = h.rx.ConfirmPasswordReset(code, "n3w-secret").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrInvalidActionCode))

	_, err = h.rx.SignInWithEmail("ada@example.com", "s3cret!").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrWrongPassword))
	_, err = h.rx.SignInWithEmail("ada@example.com", "n3w-secret").Await(ctx(t))
	assert.NoError(t, err)
}

func TestPasswordResetCustomURL(t *testing.T) {
	h := newHarness(t)
	_, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)

	settings := &sdk.ActionCodeSettings{URL: "https://other.example/reset?lang=en"}
	require.NoError(t, h.rx.SendPasswordReset("ada@example.com", settings).Await(ctx(t)))

	h.rec.mu.Lock()
	link := h.rec.links[len(h.rec.links)-1]
	h.rec.mu.Unlock()
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "other.example", u.Host)
	assert.Equal(t, "en", u.Query().Get("lang"))
}

func TestEmailVerification(t *testing.T) {
	h := newHarness(t)
	_, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)

	user := h.rx.CurrentUser()
	require.NotNil(t, user)
	require.NoError(t, user.SendEmailVerification(nil).Await(ctx(t)))
	mode, code := h.rec.lastOOBCode(t)
	assert.Equal(t, sdk.ActionModeVerifyEmail, mode)

	require.NoError(t, h.rx.ApplyActionCode(code).Await(ctx(t)))
	assert.True(t, user.SDK().IsEmailVerified())

	identity, _, err := h.stores.Identities.GetIdentity(stores.IdentityEmail, "ada@example.com", false)
	require.NoError(t, err)
	assert.True(t, identity.Verified)

	result, err := user.IDTokenResult(true).Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, true, result.Claims[local.ClaimEmailVerified])

	err = h.rx.ApplyActionCode(code).Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrInvalidActionCode))
}

func TestForcedRefreshFiresIDTokenListeners(t *testing.T) {
	h := newHarness(t)
	_, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	user := h.rx.CurrentUser()

	events := make(chan string, 10)
	d := h.rx.IDTokenChanges().Subscribe(func(c rxauth.StateChange) {
		events <- uidOf(c.User)
	}, nil, nil)
	defer d.Dispose()
	<-events // registration

	first, err := user.IDToken(false).Await(ctx(t))
	require.NoError(t, err)
	cached, err := user.IDToken(false).Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	forced, err := user.IDToken(true).Await(ctx(t))
	require.NoError(t, err)
	assert.NotEqual(t, first, forced)

	select {
	case uid := <-events:
		assert.Equal(t, user.SDK().UID(), uid)
	case <-time.After(5 * time.Second):
		t.Fatal("no id token change after forced refresh")
	}

	res, err := h.auth.Verifier().Verify(forced)
	require.NoError(t, err)
	assert.Equal(t, user.SDK().UID(), res.Claims["sub"])
	assert.Equal(t, sdk.ProviderPassword, res.SignInProvider)
	assert.Equal(t, "ada@example.com", res.Claims[local.ClaimEmail])

	_, err = local.NewTokenVerifier("other-secret", "", "").Verify(forced)
	assert.Error(t, err)
}

func TestPhoneSignIn(t *testing.T) {
	h := newHarness(t)

	_, err := h.rx.VerifyPhoneNumber("555-1234").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrInvalidCredential))

	vid, err := h.rx.VerifyPhoneNumber("+15551234567").Await(ctx(t))
	require.NoError(t, err)
	code := h.rec.lastCode(t)
	assert.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = h.rx.SignInWithPhone(vid, wrong).Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrInvalidVerificationCode))

	res, err := h.rx.SignInWithPhone(vid, code).Await(ctx(t))
	require.NoError(t, err)
	assert.True(t, res.AdditionalUserInfo.IsNewUser)
	assert.Equal(t, "+15551234567", res.User.PhoneNumber())

	_, err = h.rx.SignInWithPhone(vid, code).Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrInvalidVerificationCode))
}

func TestCustomTokenSignIn(t *testing.T) {
	h := newHarness(t)
	token, err := h.auth.MintCustomToken("svc-1", map[string]any{"role": "admin"})
	require.NoError(t, err)

	res, err := h.rx.SignInWithCustomToken(token).Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, "svc-1", res.User.UID())
	assert.True(t, res.AdditionalUserInfo.IsNewUser)

	result, err := h.rx.CurrentUser().IDTokenResult(false).Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, "admin", result.Claims["role"])
	assert.Equal(t, sdk.ProviderCustom, result.SignInProvider)

	again, err := h.rx.SignInWithCustomToken(token).Await(ctx(t))
	require.NoError(t, err)
	assert.False(t, again.AdditionalUserInfo.IsNewUser)

	forged, err := local.MintCustomToken("wrong-key", "svc-1", nil, time.Minute)
	require.NoError(t, err)
	_, err = h.rx.SignInWithCustomToken(forged).Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrInvalidCustomToken))

	_, err = local.MintCustomToken("k", "svc-1", map[string]any{"sub": "x"}, time.Minute)
	assert.Error(t, err)
}

func TestSessionRestore(t *testing.T) {
	h := newHarness(t)
	created, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	h.auth.Close()

	restored := openHarness(t, h.cfg, h.rec)
	current := restored.auth.CurrentUser()
	require.NotNil(t, current)
	assert.Equal(t, created.User.UID(), current.UID())
	assert.Equal(t, "ada@example.com", current.Email())

	token, err := restored.rx.CurrentUser().IDToken(true).Await(ctx(t))
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	require.NoError(t, restored.rx.SignOut().Await(ctx(t)))
	sess, err := h.sessions.Load(h.cfg.AppName)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestUpdateProfileAndEmail(t *testing.T) {
	h := newHarness(t)
	_, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	user := h.rx.CurrentUser()

	name := "Ada Lovelace"
	require.NoError(t, user.UpdateProfile(sdk.ProfileChange{DisplayName: &name}).Await(ctx(t)))
	assert.Equal(t, name, user.SDK().DisplayName())

	require.NoError(t, user.UpdateEmail("countess@example.com").Await(ctx(t)))
	assert.Equal(t, "countess@example.com", user.SDK().Email())
	require.NoError(t, user.UpdatePassword("analytical").Await(ctx(t)))

	require.NoError(t, h.rx.SignOut().Await(ctx(t)))
	_, err = h.rx.SignInWithEmail("ada@example.com", "s3cret!").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrUserNotFound))
	res, err := h.rx.SignInWithEmail("countess@example.com", "analytical").Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, name, res.User.DisplayName())
}

func TestRecentLoginRequired(t *testing.T) {
	h := newHarness(t, func(c *local.Config) { c.RecentLogin = time.Nanosecond })
	_, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	user := h.rx.CurrentUser()
	err = user.UpdatePassword("another1").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrRequiresRecentLogin))
}

func TestReauthenticate(t *testing.T) {
	h := newHarness(t)
	_, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	_, err = h.rx.CreateUser("bob@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	user := h.rx.CurrentUser()

	res, err := user.Reauthenticate(sdk.NewEmailCredential("bob@example.com", "s3cret!")).Await(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, user.SDK().UID(), res.User.UID())

	_, err = user.Reauthenticate(sdk.NewEmailCredential("ada@example.com", "s3cret!")).Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrUserNotFound))
}

func TestDeleteUser(t *testing.T) {
	h := newHarness(t)
	created, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	_, err = h.rx.LinkWithGitHub("octo").Await(ctx(t))
	require.NoError(t, err)

	require.NoError(t, h.rx.CurrentUser().Delete().Await(ctx(t)))
	assert.Nil(t, h.auth.CurrentUser())

	_, err = h.stores.Users.GetUserById(created.User.UID())
	assert.True(t, errors.Is(err, stores.ErrNotFound))
	tokens, err := h.stores.RefreshTokens.GetUserTokens(created.User.UID())
	require.NoError(t, err)
	assert.Empty(t, tokens)

	_, err = h.rx.SignInWithEmail("ada@example.com", "s3cret!").Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrUserNotFound))
}

func TestRefreshAfterRevocationSignsOut(t *testing.T) {
	h := newHarness(t)
	created, err := h.rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)
	user := h.rx.CurrentUser()

	require.NoError(t, h.stores.RefreshTokens.RevokeUserTokens(created.User.UID()))
	_, err = user.IDToken(true).Await(ctx(t))
	assert.True(t, errors.Is(err, sdk.ErrRequiresRecentLogin))
	assert.Nil(t, h.auth.CurrentUser())
}

func TestDeadAuthOperations(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.rx.SignOut().Await(ctx(t)))

	_, err := h.rx.LinkWithGitHub("octo").Await(ctx(t))
	assert.True(t, errors.Is(err, rxauth.ErrCurrentUserNotFound))
	_, err = h.rx.Unlink(sdk.ProviderGitHub).Await(ctx(t))
	assert.True(t, errors.Is(err, rxauth.ErrCurrentUserNotFound))
}

func TestCallbacksAfterClose(t *testing.T) {
	h := newHarness(t)
	created, err := h.rx.SignInAnonymously().Await(ctx(t))
	require.NoError(t, err)
	h.auth.Close()

	done := make(chan error, 1)
	h.auth.SignInAnonymously(func(res *sdk.AuthDataResult, err error) {
		assert.Nil(t, res)
		done <- err
	})
	select {
	case err := <-done:
		assert.Same(t, local.ErrClosed, err)
	case <-time.After(5 * time.Second):
		t.Fatal("callback never delivered after Close")
	}

	_, err = rxauth.NewUser(created.User).IDToken(false).Await(ctx(t))
	assert.True(t, errors.Is(err, local.ErrClosed))
}

func providerIDs(u sdk.User) []string {
	out := []string{}
	for _, info := range u.ProviderData() {
		out = append(out, info.ProviderID)
	}
	slices.Sort(out)
	return out
}

func ExampleMintCustomToken() {
	token, err := local.MintCustomToken("custom-token-key", "service-account-1", map[string]any{"role": "admin"}, time.Hour)
	fmt.Println(token != "", err)
	// Output: true <nil>
}
