// Package grpc carries ID tokens over gRPC metadata. Clients attach the
// signed-in user's token with Credentials; servers verify it with the
// unary and stream interceptors and read the claims back with
// UserIDFromContext.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/panyam/rxauth/sdk"
	"github.com/panyam/rxauth/transport"
)

// Default metadata keys.
const (
	// DefaultMetadataKeyAuthorization carries "Bearer <id token>".
	DefaultMetadataKeyAuthorization = "authorization"

	// DefaultMetadataKeySwitchUser overrides the token's subject (testing only)
	DefaultMetadataKeySwitchUser = "x-switch-user"
)

// Config holds the metadata key configuration.
type Config struct {
	MetadataKeyAuthorization string
	MetadataKeySwitchUser    string

	// EnableSwitchAuth lets an authenticated caller act as the user named in
	// the switch-user key. Only for development and tests.
	EnableSwitchAuth bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyAuthorization: DefaultMetadataKeyAuthorization,
		MetadataKeySwitchUser:    DefaultMetadataKeySwitchUser,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
	if c.MetadataKeySwitchUser == "" {
		c.MetadataKeySwitchUser = DefaultMetadataKeySwitchUser
	}
}

// TokenFromContext returns the token verified by the interceptor, or nil.
func TokenFromContext(ctx context.Context) *sdk.TokenResult {
	return transport.TokenFromContext(ctx)
}

// UserIDFromContext returns the authenticated user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	return transport.UserIDFromContext(ctx)
}

// IsAuthenticated returns true if there is an authenticated user in the context.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

// TokenToOutgoingContext adds an ID token to outgoing gRPC metadata, for
// calls made without Credentials.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthorization, "Bearer "+token)
}

// SwitchUserToOutgoingContext asks the server to treat the call as made by
// switchToUserID. Only honored when EnableSwitchAuth is set on the server.
func SwitchUserToOutgoingContext(ctx context.Context, switchToUserID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeySwitchUser, switchToUserID)
}

// bearerTokens returns the tokens in the authorization metadata.
func bearerTokens(md metadata.MD, key string) []string {
	var out []string
	for _, v := range md.Get(key) {
		scheme, token, ok := strings.Cut(strings.TrimSpace(v), " ")
		if ok && strings.EqualFold(scheme, "Bearer") && token != "" {
			out = append(out, strings.TrimSpace(token))
		}
	}
	return out
}
