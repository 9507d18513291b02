package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/rxauth"
	"github.com/panyam/rxauth/local"
	"github.com/panyam/rxauth/sdk"
	"github.com/panyam/rxauth/session"
	"github.com/panyam/rxauth/stores/fs"
	"github.com/panyam/rxauth/transport"
)

func newAuth(t *testing.T) (*local.Auth, *rxauth.Auth) {
	t.Helper()
	dir := t.TempDir()
	sessions, err := session.NewFSStore(filepath.Join(dir, "session.json"), "")
	require.NoError(t, err)
	auth, err := local.New(local.Config{
		AppName:      "transport-test",
		JWTSecretKey: "test-secret",
		Stores:       fs.New(filepath.Join(dir, "store")),
		Sessions:     sessions,
	})
	require.NoError(t, err)
	t.Cleanup(auth.Close)
	return auth, rxauth.New(auth)
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

func whoami(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, transport.UserIDFromContext(r.Context()))
}

func TestClientAndMiddleware(t *testing.T) {
	auth, rx := newAuth(t)
	mw := &transport.Middleware{Verifier: auth.Verifier()}
	server := httptest.NewServer(mw.EnsureUser(http.HandlerFunc(whoami)))
	defer server.Close()
	client := transport.NewClient(rx)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	created, err := rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)

	resp, err = client.Get(server.URL)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.User.UID(), string(body))
}

func TestRetryWithFreshToken(t *testing.T) {
	_, rx := newAuth(t)
	_, err := rx.CreateUser("ada@example.com", "s3cret!").Await(ctx(t))
	require.NoError(t, err)

	var mu sync.Mutex
	var tokens, bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		tokens = append(tokens, r.Header.Get("Authorization"))
		bodies = append(bodies, string(body))
		if len(tokens) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader("payload"))
	require.NoError(t, err)
	resp, err := transport.NewClient(rx).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, tokens, 2)
	assert.NotEqual(t, tokens[0], tokens[1])
	assert.True(t, strings.HasPrefix(tokens[1], "Bearer "))
	assert.Equal(t, []string{"payload", "payload"}, bodies)
}

type trackedBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTokenFailureClosesBody(t *testing.T) {
	auth, rx := newAuth(t)
	_, err := rx.SignInAnonymously().Await(ctx(t))
	require.NoError(t, err)
	// Once closed the SDK fails every token request.
	auth.Close()

	tr := &transport.Transport{
		Auth: rx,
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			t.Error("request sent without a token")
			return nil, errors.New("unreachable")
		}),
	}
	body := &trackedBody{Reader: strings.NewReader("payload")}
	req, err := http.NewRequestWithContext(ctx(t), http.MethodPost, "http://example.invalid/", body)
	require.NoError(t, err)

	resp, err := tr.RoundTrip(req)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, local.ErrClosed))
	assert.True(t, body.closed.Load())
}

func TestNoRetryWhenDisabled(t *testing.T) {
	_, rx := newAuth(t)
	_, err := rx.SignInAnonymously().Await(ctx(t))
	require.NoError(t, err)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := &http.Client{Transport: &transport.Transport{Auth: rx}}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

type stubVerifier map[string]string

func (v stubVerifier) Verify(token string) (*sdk.TokenResult, error) {
	uid, ok := v[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &sdk.TokenResult{Token: token, Claims: map[string]any{"sub": uid}}, nil
}

func TestMiddlewareSources(t *testing.T) {
	mw := &transport.Middleware{
		Verifier:            stubVerifier{"good": "u1", "cookie": "u2"},
		AuthTokenCookieName: "id_token",
		GetRedirURL: func(r *http.Request) string {
			if strings.HasPrefix(r.URL.Path, "/app") {
				return "/login"
			}
			return ""
		},
	}
	ensured := mw.EnsureUser(http.HandlerFunc(whoami))
	extracted := mw.ExtractUser(http.HandlerFunc(whoami))

	tests := []struct {
		name    string
		handler http.Handler
		path    string
		header  string
		cookie  string
		status  int
		body    string
	}{
		{"bearer header", ensured, "/api", "Bearer good", "", http.StatusOK, "u1"},
		{"lowercase scheme", ensured, "/api", "bearer good", "", http.StatusOK, "u1"},
		{"cookie", ensured, "/api", "", "cookie", http.StatusOK, "u2"},
		{"bad header falls back to cookie", ensured, "/api", "Bearer bad", "cookie", http.StatusOK, "u2"},
		{"basic scheme ignored", ensured, "/api", "Basic good", "", http.StatusUnauthorized, ""},
		{"redirect to login", ensured, "/app/notes", "", "", http.StatusFound, ""},
		{"extract without token", extracted, "/api", "", "", http.StatusOK, ""},
		{"extract with token", extracted, "/api", "Bearer good", "", http.StatusOK, "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "id_token", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			if tt.status == http.StatusFound {
				assert.Equal(t, "/login?callbackURL=%2Fapp%2Fnotes", rec.Header().Get("Location"))
			}
		})
	}
}
