package rxauth

import (
	"github.com/panyam/rxauth/sdk"
)

type credentialBuilder = func() (sdk.Credential, error)

func requireFields(fields map[string]string) error {
	for name, v := range fields {
		if v == "" {
			return sdk.ErrInvalidCredential.WithField(name)
		}
	}
	return nil
}

func facebookCredential(accessToken string) credentialBuilder {
	return func() (sdk.Credential, error) {
		if err := requireFields(map[string]string{"access_token": accessToken}); err != nil {
			return nil, err
		}
		return sdk.NewFacebookCredential(accessToken), nil
	}
}

func twitterCredential(token, secret string) credentialBuilder {
	return func() (sdk.Credential, error) {
		if err := requireFields(map[string]string{"token": token, "secret": secret}); err != nil {
			return nil, err
		}
		return sdk.NewTwitterCredential(token, secret), nil
	}
}

func githubCredential(token string) credentialBuilder {
	return func() (sdk.Credential, error) {
		if err := requireFields(map[string]string{"token": token}); err != nil {
			return nil, err
		}
		return sdk.NewGitHubCredential(token), nil
	}
}

// googleCredential needs at least one of the two tokens.
func googleCredential(idToken, accessToken string) credentialBuilder {
	return func() (sdk.Credential, error) {
		if idToken == "" && accessToken == "" {
			return nil, sdk.ErrInvalidCredential.WithField("id_token")
		}
		return sdk.NewGoogleCredential(idToken, accessToken), nil
	}
}

func phoneCredential(verificationID, code string) credentialBuilder {
	return func() (sdk.Credential, error) {
		if verificationID == "" {
			return nil, sdk.ErrInvalidCredential.WithField("verification_id")
		}
		if code == "" {
			return nil, sdk.ErrInvalidVerificationCode.WithField("code")
		}
		return sdk.NewPhoneCredential(verificationID, code), nil
	}
}
