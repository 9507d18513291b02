package sdk

import "time"

// Provider IDs.
const (
	ProviderPassword  = "password"
	ProviderPhone     = "phone"
	ProviderGoogle    = "google"
	ProviderGitHub    = "github"
	ProviderFacebook  = "facebook"
	ProviderTwitter   = "twitter"
	ProviderCustom    = "custom"
	ProviderAnonymous = "anonymous"
)

// AuthDataResult is returned by sign-in, account creation, linking and
// reauthentication.
type AuthDataResult struct {
	User               User
	AdditionalUserInfo *AdditionalUserInfo
	Credential         Credential
}

type AdditionalUserInfo struct {
	ProviderID string
	IsNewUser  bool
	Username   string
	Profile    map[string]any
}

// TokenResult is a decoded ID token.
type TokenResult struct {
	Token          string
	Claims         map[string]any
	IssuedAt       time.Time
	ExpirationTime time.Time
	AuthTime       time.Time
	SignInProvider string
}

// UserInfo describes one provider linked to a user.
type UserInfo struct {
	ProviderID  string
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	PhoneNumber string
}

type UserMetadata struct {
	CreationTime   time.Time
	LastSignInTime time.Time
}

// ProfileChange updates display name and photo URL. Nil fields are left
// unchanged.
type ProfileChange struct {
	DisplayName *string
	PhotoURL    *string
}

// ActionCodeSettings controls the link sent with email action codes.
type ActionCodeSettings struct {
	// URL is the continue URL the action link points at. When empty the SDK's
	// configured action URL is used.
	URL string

	HandleCodeInApp bool
}

// Modes carried in the "mode" query parameter of an action link. The code
// itself is in "oobCode".
const (
	ActionModeResetPassword = "resetPassword"
	ActionModeVerifyEmail   = "verifyEmail"
)
