package grpc

import (
	"context"
	"log/slog"
	"maps"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/panyam/rxauth/sdk"
	"github.com/panyam/rxauth/transport"
)

// InterceptorConfig configures the auth interceptors.
type InterceptorConfig struct {
	*Config

	// Verifier checks incoming ID tokens. local.TokenVerifier implements it.
	Verifier transport.Verifier

	// RequireAuth when true rejects calls without a valid token.
	// When false, calls proceed but UserIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods don't require auth. Keys are full method names like
	// "/package.Service/Method".
	PublicMethods map[string]bool

	Logger *slog.Logger
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig(verifier transport.Verifier) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Verifier:      verifier,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(verifier transport.Verifier, publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig(verifier)
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated calls.
func OptionalAuthConfig(verifier transport.Verifier) *InterceptorConfig {
	config := DefaultInterceptorConfig(verifier)
	config.RequireAuth = false
	return config
}

func (c *InterceptorConfig) ensureDefaults() *InterceptorConfig {
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// UnaryAuthInterceptor returns a unary interceptor that verifies the
// caller's token and stores it in the handler's context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config.ensureDefaults()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := config.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor is UnaryAuthInterceptor for streams.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config.ensureDefaults()
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := config.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &authStream{ServerStream: ss, ctx: ctx})
	}
}

type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authStream) Context() context.Context {
	return s.ctx
}

func (c *InterceptorConfig) authenticate(ctx context.Context, method string) (context.Context, error) {
	token := c.verify(ctx)
	if token != nil {
		ctx = transport.WithToken(ctx, token)
	}
	if token == nil && c.RequireAuth && !c.PublicMethods[method] {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	return ctx, nil
}

func (c *InterceptorConfig) verify(ctx context.Context) *sdk.TokenResult {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok || c.Verifier == nil {
		return nil
	}
	for _, raw := range bearerTokens(md, c.Config.MetadataKeyAuthorization) {
		token, err := c.Verifier.Verify(raw)
		if err != nil {
			c.Logger.Debug("rejected token", "err", err)
			continue
		}
		if c.Config.EnableSwitchAuth {
			if values := md.Get(c.Config.MetadataKeySwitchUser); len(values) > 0 && values[0] != "" {
				switched := *token
				switched.Claims = maps.Clone(token.Claims)
				switched.Claims["switched_from"] = switched.Claims["sub"]
				switched.Claims["sub"] = values[0]
				return &switched
			}
		}
		return token
	}
	return nil
}
