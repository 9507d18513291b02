// Package providers verifies OAuth credentials against the identity
// provider that issued them and turns them into a provider Profile.
//
// A Verifier is registered per provider ID in a Registry. The local SDK asks
// the registry to verify every OAuth credential it is handed; a provider
// with no verifier is rejected with operation-not-allowed.
package providers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/panyam/rxauth/sdk"
)

// Profile is what a provider tells us about the account behind a credential.
type Profile struct {
	// Subject is the provider's stable account ID.
	Subject       string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string
	Username      string

	// Raw is the decoded userinfo response.
	Raw map[string]any
}

// Verifier checks a credential with its provider.
type Verifier interface {
	Verify(ctx context.Context, cred *sdk.OAuthCredential) (*Profile, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, cred *sdk.OAuthCredential) (*Profile, error)

func (f VerifierFunc) Verify(ctx context.Context, cred *sdk.OAuthCredential) (*Profile, error) {
	return f(ctx, cred)
}

// Registry maps provider IDs to verifiers. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]Verifier
}

func NewRegistry() *Registry {
	return &Registry{verifiers: map[string]Verifier{}}
}

// Register installs v for providerID, replacing any earlier verifier.
func (r *Registry) Register(providerID string, v Verifier) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[providerID] = v
	return r
}

func (r *Registry) Lookup(providerID string) (Verifier, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verifiers[providerID]
	return v, ok
}

// Verify routes cred to its provider's verifier.
func (r *Registry) Verify(ctx context.Context, cred *sdk.OAuthCredential) (*Profile, error) {
	v, ok := r.Lookup(cred.ProviderID())
	if !ok {
		return nil, sdk.NewAuthError(sdk.CodeOperationNotAllowed, "sign-in with %s is not enabled", cred.ProviderID())
	}
	profile, err := v.Verify(ctx, cred)
	if err != nil {
		return nil, err
	}
	if profile.Subject == "" {
		return nil, sdk.ErrInvalidCredential.WithField("subject")
	}
	return profile, nil
}

// NewState returns a random value for the OAuth state parameter.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
