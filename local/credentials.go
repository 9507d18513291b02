package local

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/panyam/rxauth/sdk"
	"github.com/panyam/rxauth/stores"
)

// resolved is what a credential proves: an identity, and the user holding
// it if there is one.
type resolved struct {
	uid          string
	provider     string
	identityType string
	value        string
	verified     bool

	// creds and profile seed the channel created when the credential is
	// attached to an account.
	creds   map[string]any
	profile map[string]any
	info    *sdk.AdditionalUserInfo
}

// resolve checks cred. With linking set, a password credential is only
// validated for shape since its email may not have an account yet.
func (a *Auth) resolve(cred sdk.Credential, linking bool) (*resolved, error) {
	switch c := cred.(type) {
	case *sdk.EmailCredential:
		return a.resolveEmail(c, linking)
	case *sdk.OAuthCredential:
		return a.resolveOAuth(c)
	case *sdk.PhoneCredential:
		return a.resolvePhone(c)
	case nil:
		return nil, sdk.ErrInvalidCredential
	}
	return nil, sdk.NewAuthError(sdk.CodeInvalidCredential, "unsupported credential for %s", cred.ProviderID())
}

func (a *Auth) resolveEmail(c *sdk.EmailCredential, linking bool) (*resolved, error) {
	r := &resolved{
		provider:     sdk.ProviderPassword,
		identityType: stores.IdentityEmail,
		value:        c.Email,
		info:         &sdk.AdditionalUserInfo{ProviderID: sdk.ProviderPassword},
	}
	if !linking {
		uid, err := a.checkPassword(c.Email, c.Password)
		if err != nil {
			return nil, err
		}
		r.uid = uid
		return r, nil
	}

	if err := a.validateEmail(c.Email); err != nil {
		return nil, err
	}
	if err := a.validatePassword(c.Password); err != nil {
		return nil, err
	}
	uid, err := a.ownerOf(stores.IdentityEmail, c.Email)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(c.Password)
	if err != nil {
		return nil, err
	}
	r.uid = uid
	r.creds = map[string]any{credPasswordHash: hash}
	return r, nil
}

func (a *Auth) resolveOAuth(c *sdk.OAuthCredential) (*resolved, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ProviderTimeout)
	defer cancel()
	profile, err := a.cfg.Providers.Verify(ctx, c)
	if err != nil {
		return nil, err
	}

	value := subjectValue(c.Provider, profile.Subject)
	uid, err := a.ownerOf(stores.IdentitySubject, value)
	if err != nil {
		return nil, err
	}
	channelProfile := map[string]any{}
	if profile.Email != "" {
		channelProfile[profileEmail] = profile.Email
	}
	if profile.DisplayName != "" {
		channelProfile[stores.ProfileDisplayName] = profile.DisplayName
	}
	if profile.PhotoURL != "" {
		channelProfile[stores.ProfilePhotoURL] = profile.PhotoURL
	}
	return &resolved{
		uid:          uid,
		provider:     c.Provider,
		identityType: stores.IdentitySubject,
		value:        value,
		verified:     true,
		profile:      channelProfile,
		info: &sdk.AdditionalUserInfo{
			ProviderID: c.Provider,
			Username:   profile.Username,
			Profile:    profile.Raw,
		},
	}, nil
}

func (a *Auth) resolvePhone(c *sdk.PhoneCredential) (*resolved, error) {
	phone, err := a.consumePhoneCode(c)
	if err != nil {
		return nil, err
	}
	uid, err := a.ownerOf(stores.IdentityPhone, phone)
	if err != nil {
		return nil, err
	}
	return &resolved{
		uid:          uid,
		provider:     sdk.ProviderPhone,
		identityType: stores.IdentityPhone,
		value:        phone,
		verified:     true,
		info:         &sdk.AdditionalUserInfo{ProviderID: sdk.ProviderPhone},
	}, nil
}

// consumePhoneCode checks a verification ID and code pair and burns it.
func (a *Auth) consumePhoneCode(c *sdk.PhoneCredential) (string, error) {
	if c.VerificationID == "" || c.VerificationCode == "" {
		return "", sdk.ErrInvalidVerificationCode
	}
	tok, err := a.cfg.Stores.Tokens.GetToken(c.VerificationID)
	switch {
	case errors.Is(err, stores.ErrTokenNotFound):
		return "", sdk.ErrInvalidVerificationCode.WithField("verification_id")
	case errors.Is(err, stores.ErrTokenExpired):
		return "", sdk.NewAuthError(sdk.CodeInvalidVerificationCode, "the verification code has expired")
	case err != nil:
		return "", err
	}
	if !tok.IsValid(stores.TokenTypePhoneVerification) {
		return "", sdk.ErrInvalidVerificationCode
	}
	if subtle.ConstantTimeCompare([]byte(tok.Code), []byte(c.VerificationCode)) != 1 {
		return "", sdk.ErrInvalidVerificationCode
	}
	if err := a.cfg.Stores.Tokens.DeleteToken(tok.Token); err != nil {
		a.logger.Warn("failed to delete phone verification", "err", err)
	}
	return tok.Phone, nil
}

// actionCode loads an email action code of the wanted type.
func (a *Auth) actionCode(code string, want stores.TokenType) (*stores.AuthToken, error) {
	tok, err := a.cfg.Stores.Tokens.GetToken(code)
	switch {
	case errors.Is(err, stores.ErrTokenNotFound):
		return nil, sdk.ErrInvalidActionCode
	case errors.Is(err, stores.ErrTokenExpired):
		return nil, sdk.ErrExpiredActionCode
	case err != nil:
		return nil, err
	}
	if want != "" && tok.Type != want {
		return nil, sdk.ErrInvalidActionCode
	}
	if tok.IsExpired() {
		return nil, sdk.ErrExpiredActionCode
	}
	return tok, nil
}
