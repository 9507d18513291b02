package sdk

import (
	"golang.org/x/oauth2"
)

// Credential is proof of identity for one provider.
type Credential interface {
	ProviderID() string
}

// EmailCredential signs in with an email and password.
type EmailCredential struct {
	Email    string
	Password string
}

func (c *EmailCredential) ProviderID() string { return ProviderPassword }

// NewEmailCredential returns a password credential.
func NewEmailCredential(email, password string) Credential {
	return &EmailCredential{Email: email, Password: password}
}

// OAuthCredential carries the tokens issued by an OAuth provider.
type OAuthCredential struct {
	Provider string
	Token    *oauth2.Token

	// IDToken is set for providers that issue OpenID Connect tokens.
	IDToken string

	// Secret is the OAuth 1.0a token secret (Twitter).
	Secret string
}

func (c *OAuthCredential) ProviderID() string { return c.Provider }

// AccessToken returns the OAuth access token, or "".
func (c *OAuthCredential) AccessToken() string {
	if c.Token == nil {
		return ""
	}
	return c.Token.AccessToken
}

func NewFacebookCredential(accessToken string) Credential {
	return &OAuthCredential{
		Provider: ProviderFacebook,
		Token:    &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"},
	}
}

func NewTwitterCredential(token, secret string) Credential {
	return &OAuthCredential{
		Provider: ProviderTwitter,
		Token:    &oauth2.Token{AccessToken: token},
		Secret:   secret,
	}
}

func NewGitHubCredential(token string) Credential {
	return &OAuthCredential{
		Provider: ProviderGitHub,
		Token:    &oauth2.Token{AccessToken: token, TokenType: "Bearer"},
	}
}

// NewGoogleCredential takes the ID token and access token returned by Google
// sign-in. Either may be empty but not both.
func NewGoogleCredential(idToken, accessToken string) Credential {
	c := &OAuthCredential{Provider: ProviderGoogle, IDToken: idToken}
	if accessToken != "" {
		c.Token = &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	}
	return c
}

// PhoneCredential pairs a verification ID from VerifyPhoneNumber with the
// code the user received.
type PhoneCredential struct {
	VerificationID   string
	VerificationCode string
}

func (c *PhoneCredential) ProviderID() string { return ProviderPhone }

func NewPhoneCredential(verificationID, code string) Credential {
	return &PhoneCredential{VerificationID: verificationID, VerificationCode: code}
}
