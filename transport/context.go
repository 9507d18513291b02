package transport

import (
	"context"

	"github.com/panyam/rxauth/sdk"
)

// Verifier checks an ID token and returns its decoded form.
// local.TokenVerifier implements it.
type Verifier interface {
	Verify(token string) (*sdk.TokenResult, error)
}

type tokenKey struct{}

// WithToken returns a context carrying a verified token.
func WithToken(ctx context.Context, token *sdk.TokenResult) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the verified token stored by the middleware, or
// nil.
func TokenFromContext(ctx context.Context) *sdk.TokenResult {
	token, _ := ctx.Value(tokenKey{}).(*sdk.TokenResult)
	return token
}

// UserIDFromContext returns the subject of the verified token, or "".
func UserIDFromContext(ctx context.Context) string {
	token := TokenFromContext(ctx)
	if token == nil {
		return ""
	}
	sub, _ := token.Claims["sub"].(string)
	return sub
}
