package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/panyam/rxauth/sdk"
)

// OAuthVerifier verifies an access token by calling the provider's userinfo
// endpoint with it.
type OAuthVerifier struct {
	Provider string
	Config   oauth2.Config

	// UserInfoURL is the endpoint queried with the access token. Can be
	// overridden for testing.
	UserInfoURL string

	// HTTPClient is used for provider calls when set.
	HTTPClient *http.Client

	// ParseProfile maps the userinfo response to a Profile.
	ParseProfile func(info map[string]any) *Profile

	// TokenInfoURL, when set, verifies credentials that carry only an OpenID
	// Connect ID token.
	TokenInfoURL string
}

func newOAuthVerifier(provider, envPrefix, clientID, clientSecret string, endpoint oauth2.Endpoint, scopes ...string) *OAuthVerifier {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv(envPrefix + "_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv(envPrefix + "_CLIENT_SECRET"))
	}
	return &OAuthVerifier{
		Provider: provider,
		Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  strings.TrimSpace(os.Getenv(envPrefix + "_CALLBACK_URL")),
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
	}
}

// NewGitHub verifies GitHub access tokens. Empty client settings fall back
// to OAUTH2_GITHUB_CLIENT_ID and OAUTH2_GITHUB_CLIENT_SECRET.
func NewGitHub(clientID, clientSecret string) *OAuthVerifier {
	v := newOAuthVerifier(sdk.ProviderGitHub, "OAUTH2_GITHUB", clientID, clientSecret, github.Endpoint, "read:user", "user:email")
	v.UserInfoURL = "https://api.github.com/user"
	v.ParseProfile = func(info map[string]any) *Profile {
		return &Profile{
			Subject:     idString(info["id"]),
			Email:       str(info, "email"),
			DisplayName: str(info, "name"),
			PhotoURL:    str(info, "avatar_url"),
			Username:    str(info, "login"),
			Raw:         info,
		}
	}
	return v
}

// NewGoogle verifies Google access tokens.
func NewGoogle(clientID, clientSecret string) *OAuthVerifier {
	v := newOAuthVerifier(sdk.ProviderGoogle, "OAUTH2_GOOGLE", clientID, clientSecret, google.Endpoint,
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	)
	v.UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	v.TokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	v.ParseProfile = func(info map[string]any) *Profile {
		verified, _ := info["verified_email"].(bool)
		return &Profile{
			Subject:       idString(info["id"]),
			Email:         str(info, "email"),
			EmailVerified: verified,
			DisplayName:   str(info, "name"),
			PhotoURL:      str(info, "picture"),
			Raw:           info,
		}
	}
	return v
}

// NewFacebook verifies Facebook access tokens with the Graph API.
func NewFacebook(clientID, clientSecret string) *OAuthVerifier {
	v := newOAuthVerifier(sdk.ProviderFacebook, "OAUTH2_FACEBOOK", clientID, clientSecret, facebook.Endpoint, "email", "public_profile")
	v.UserInfoURL = "https://graph.facebook.com/me?fields=id,name,email,picture"
	v.ParseProfile = func(info map[string]any) *Profile {
		p := &Profile{
			Subject:     idString(info["id"]),
			Email:       str(info, "email"),
			DisplayName: str(info, "name"),
			Raw:         info,
		}
		if pic, ok := info["picture"].(map[string]any); ok {
			if data, ok := pic["data"].(map[string]any); ok {
				p.PhotoURL = str(data, "url")
			}
		}
		return p
	}
	return v
}

func (v *OAuthVerifier) context(ctx context.Context) context.Context {
	if v.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, v.HTTPClient)
	}
	return ctx
}

// AuthCodeURL returns the consent page URL for the authorization code flow.
func (v *OAuthVerifier) AuthCodeURL(state string) string {
	return v.Config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a credential that can be passed
// to SignInWithCredential.
func (v *OAuthVerifier) Exchange(ctx context.Context, code string) (sdk.Credential, error) {
	token, err := v.Config.Exchange(v.context(ctx), code)
	if err != nil {
		slog.Info("Invalid code exchange", "provider", v.Provider, "err", err)
		return nil, sdk.ErrInvalidCredential.WithField("code")
	}
	cred := &sdk.OAuthCredential{Provider: v.Provider, Token: token}
	if idToken, ok := token.Extra("id_token").(string); ok {
		cred.IDToken = idToken
	}
	return cred, nil
}

func (v *OAuthVerifier) Verify(ctx context.Context, cred *sdk.OAuthCredential) (*Profile, error) {
	if cred.AccessToken() == "" {
		if cred.IDToken != "" && v.TokenInfoURL != "" {
			return v.verifyIDToken(ctx, cred.IDToken)
		}
		return nil, sdk.ErrInvalidCredential.WithField("access_token")
	}
	info, err := v.userInfo(ctx, cred.Token)
	if err != nil {
		slog.Info("error validating provider token", "provider", v.Provider, "err", err)
		return nil, err
	}
	return v.ParseProfile(info), nil
}

func (v *OAuthVerifier) userInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	ctx = v.context(ctx)
	client := v.Config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return fetchJSON(client, req)
}

// verifyIDToken asks the provider's tokeninfo endpoint to validate an ID
// token and checks it was issued to our client.
func (v *OAuthVerifier) verifyIDToken(ctx context.Context, idToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.TokenInfoURL+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := v.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	info, err := fetchJSON(client, req)
	if err != nil {
		return nil, err
	}
	if v.Config.ClientID != "" && str(info, "aud") != v.Config.ClientID {
		return nil, sdk.ErrInvalidCredential.WithField("aud")
	}
	return &Profile{
		Subject:       str(info, "sub"),
		Email:         str(info, "email"),
		EmailVerified: str(info, "email_verified") == "true",
		DisplayName:   str(info, "name"),
		PhotoURL:      str(info, "picture"),
		Raw:           info,
	}, nil
}

func fetchJSON(client *http.Client, req *http.Request) (map[string]any, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, sdk.WrapAuthError(err, "failed getting user info")
	}
	defer resp.Body.Close()

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sdk.WrapAuthError(err, "failed read response")
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden {
		return nil, sdk.ErrInvalidCredential
	}
	if resp.StatusCode >= 300 {
		return nil, sdk.NewAuthError(sdk.CodeInternalError, "provider returned status %d", resp.StatusCode)
	}

	var info map[string]any
	if err := json.Unmarshal(contents, &info); err != nil {
		return nil, sdk.WrapAuthError(err, "failed to parse user info")
	}
	return info, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// idString renders a provider ID that may arrive as a JSON number.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	}
	return ""
}
