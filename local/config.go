package local

import (
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/panyam/rxauth/providers"
	"github.com/panyam/rxauth/session"
	"github.com/panyam/rxauth/stores"
)

const (
	DefaultIDTokenExpiry     = time.Hour
	DefaultRefreshWindow     = 5 * time.Minute
	DefaultRecentLogin       = 5 * time.Minute
	DefaultMinPasswordLength = 6
	DefaultCustomTokenExpiry = time.Hour
	DefaultProviderTimeout   = 10 * time.Second
)

// Config configures a local Auth. Zero fields are filled by EnsureDefaults.
type Config struct {
	// AppName keys the persisted session and is the ID token audience.
	AppName string

	// Issuer is the "iss" claim of ID tokens.
	Issuer string

	// JWTSecretKey signs ID tokens. Falls back to RXAUTH_JWT_SECRET_KEY.
	JWTSecretKey string

	// CustomTokenKey verifies tokens passed to SignInWithCustomToken. Falls
	// back to RXAUTH_CUSTOM_TOKEN_KEY.
	CustomTokenKey string

	// ActionURL is the page email action links point at when the caller
	// gives no ActionCodeSettings.URL. Falls back to RXAUTH_ACTION_URL.
	ActionURL string

	IDTokenExpiry time.Duration

	// RefreshWindow is how close to expiry a cached ID token may get before
	// GetIDToken mints a new one.
	RefreshWindow time.Duration

	// RecentLogin bounds how old a sign-in may be for sensitive updates
	// (email, password, delete).
	RecentLogin time.Duration

	MinPasswordLength int

	// SignInRate and SignInBurst limit password attempts per identity.
	SignInRate  rate.Limit
	SignInBurst int

	ProviderTimeout time.Duration

	Stores    stores.Stores
	Sessions  session.Store
	Providers *providers.Registry
	Mailer    Mailer
	SMS       SMSSender
	Logger    *slog.Logger
}

// EnsureDefaults fills unset fields from the environment, then from
// development defaults.
func (c *Config) EnsureDefaults() {
	if c.AppName == "" {
		c.AppName = "rxauth"
	}
	if c.Issuer == "" {
		c.Issuer = "rxauth/" + c.AppName
	}
	if c.JWTSecretKey == "" {
		c.JWTSecretKey = os.Getenv("RXAUTH_JWT_SECRET_KEY")
	}
	if c.JWTSecretKey == "" {
		c.JWTSecretKey = "rxauth-dev-secret"
	}
	if c.CustomTokenKey == "" {
		c.CustomTokenKey = os.Getenv("RXAUTH_CUSTOM_TOKEN_KEY")
	}
	if c.CustomTokenKey == "" {
		c.CustomTokenKey = c.JWTSecretKey
	}
	if c.ActionURL == "" {
		c.ActionURL = os.Getenv("RXAUTH_ACTION_URL")
	}
	if c.ActionURL == "" {
		c.ActionURL = "http://localhost:8080/auth/action"
	}
	if c.IDTokenExpiry == 0 {
		c.IDTokenExpiry = DefaultIDTokenExpiry
	}
	if c.RefreshWindow == 0 {
		c.RefreshWindow = DefaultRefreshWindow
	}
	if c.RecentLogin == 0 {
		c.RecentLogin = DefaultRecentLogin
	}
	if c.MinPasswordLength == 0 {
		c.MinPasswordLength = DefaultMinPasswordLength
	}
	if c.SignInRate == 0 {
		c.SignInRate = rate.Every(12 * time.Second)
	}
	if c.SignInBurst == 0 {
		c.SignInBurst = 5
	}
	if c.ProviderTimeout == 0 {
		c.ProviderTimeout = DefaultProviderTimeout
	}
	if c.Providers == nil {
		c.Providers = providers.NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Mailer == nil {
		c.Mailer = &ConsoleMailer{Logger: c.Logger}
	}
	if c.SMS == nil {
		c.SMS = &ConsoleSMS{Logger: c.Logger}
	}
}
