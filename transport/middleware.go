package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Middleware verifies ID tokens on incoming requests.
type Middleware struct {
	Verifier Verifier

	AuthTokenHeaderName string
	// AuthTokenCookieName, when set, is also checked for a token so browser
	// requests can authenticate without a header.
	AuthTokenCookieName string

	// GetRedirURL returns the login page EnsureUser sends anonymous requests
	// to. Without it they get a 401.
	GetRedirURL      func(r *http.Request) string
	CallbackURLParam string

	Logger *slog.Logger
}

// EnsureReasonableDefaults fills in unset fields.
func (m *Middleware) EnsureReasonableDefaults() {
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
	if m.CallbackURLParam == "" {
		m.CallbackURLParam = "callbackURL"
	}
	if m.Logger == nil {
		m.Logger = slog.Default()
	}
}

// ExtractUser verifies the request's token, if any, and stores it in the
// request context. Requests without a valid token pass through unchanged.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, m.withToken(r))
	})
}

// EnsureUser is ExtractUser that also turns away requests without a valid
// token.
func (m *Middleware) EnsureUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = m.withToken(r)
		if UserIDFromContext(r.Context()) != "" {
			next.ServeHTTP(w, r)
			return
		}
		redirURL := ""
		if m.GetRedirURL != nil {
			redirURL = m.GetRedirURL(r)
		}
		if redirURL == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="rxauth"`)
			http.Error(w, "Login Required", http.StatusUnauthorized)
			return
		}
		encoded := strings.ReplaceAll(url.QueryEscape(r.URL.Path), "+", "%20")
		http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", redirURL, m.CallbackURLParam, encoded), http.StatusFound)
	})
}

func (m *Middleware) withToken(r *http.Request) *http.Request {
	if TokenFromContext(r.Context()) != nil {
		return r
	}
	if m.Verifier == nil {
		m.Logger.Warn("no token verifier configured")
		return r
	}
	for _, raw := range m.candidates(r) {
		token, err := m.Verifier.Verify(raw)
		if err != nil {
			m.Logger.Debug("rejected token", "err", err)
			continue
		}
		return r.WithContext(WithToken(r.Context(), token))
	}
	return r
}

// candidates returns the bearer tokens from the header followed by the cookie.
func (m *Middleware) candidates(r *http.Request) []string {
	var out []string
	for _, v := range r.Header.Values(m.AuthTokenHeaderName) {
		scheme, token, ok := strings.Cut(strings.TrimSpace(v), " ")
		if ok && strings.EqualFold(scheme, "Bearer") && token != "" {
			out = append(out, strings.TrimSpace(token))
		}
	}
	if m.AuthTokenCookieName != "" {
		for _, c := range r.CookiesNamed(m.AuthTokenCookieName) {
			if c.Value != "" {
				out = append(out, c.Value)
			}
		}
	}
	return out
}
