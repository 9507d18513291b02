package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc/credentials"

	"github.com/panyam/rxauth"
)

// Credentials sends the current user's ID token with every RPC. Calls made
// while signed out carry no token.
type Credentials struct {
	Auth *rxauth.Auth

	// AllowInsecure permits sending tokens over connections without
	// transport security, e.g. in-process test servers.
	AllowInsecure bool
}

var _ credentials.PerRPCCredentials = (*Credentials)(nil)

// NewCredentials returns credentials for auth's current user.
func NewCredentials(auth *rxauth.Auth) *Credentials {
	return &Credentials{Auth: auth}
}

func (c *Credentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	user := c.Auth.CurrentUser()
	if user == nil {
		return nil, nil
	}
	token, err := user.IDToken(false).Await(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get id token: %w", err)
	}
	return map[string]string{DefaultMetadataKeyAuthorization: "Bearer " + token}, nil
}

func (c *Credentials) RequireTransportSecurity() bool {
	return !c.AllowInsecure
}
