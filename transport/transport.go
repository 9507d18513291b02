// Package transport carries ID tokens across HTTP. Clients attach the
// signed-in user's token with Transport; servers check it with Middleware
// and read the verified claims back from the request context.
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/panyam/rxauth"
)

// Transport wraps an http.RoundTripper to add an Authorization header with
// the current user's ID token. Requests made while signed out go out without
// one.
type Transport struct {
	Base http.RoundTripper
	Auth *rxauth.Auth

	// RetryUnauthorized resends a request once with a force-refreshed token
	// when the server answers 401. Requests whose body cannot be replayed
	// are not retried.
	RetryUnauthorized bool
}

// NewTransport creates a Transport over http.DefaultTransport.
func NewTransport(auth *rxauth.Auth) *Transport {
	return &Transport{Base: http.DefaultTransport, Auth: auth, RetryUnauthorized: true}
}

// NewClient returns an http.Client that authenticates as auth's current user.
func NewClient(auth *rxauth.Auth) *http.Client {
	return &http.Client{Transport: NewTransport(auth)}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	token, err := t.token(req.Context(), false)
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	if token == "" {
		return base.RoundTrip(req)
	}

	resp, err := base.RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || !t.RetryUnauthorized {
		return resp, err
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	fresh, err := t.token(req.Context(), true)
	if err != nil || fresh == "" {
		return resp, nil
	}
	retry := withBearer(req, fresh)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}
	resp.Body.Close()
	return base.RoundTrip(retry)
}

func (t *Transport) token(ctx context.Context, force bool) (string, error) {
	if t.Auth == nil {
		return "", nil
	}
	user := t.Auth.CurrentUser()
	if user == nil {
		return "", nil
	}
	token, err := user.IDToken(force).Await(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get id token: %w", err)
	}
	return token, nil
}

// withBearer clones req to avoid mutating the caller's request.
func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}
