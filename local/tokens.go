package local

import (
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/panyam/rxauth/sdk"
)

// ID token claim names.
const (
	ClaimEmail          = "email"
	ClaimEmailVerified  = "email_verified"
	ClaimPhoneNumber    = "phone_number"
	ClaimName           = "name"
	ClaimPicture        = "picture"
	ClaimSignInProvider = "sign_in_provider"
	ClaimAuthTime       = "auth_time"
)

var reservedClaims = map[string]bool{
	"iss": true, "sub": true, "aud": true, "exp": true, "iat": true, "nbf": true, "jti": true,
	ClaimEmail: true, ClaimEmailVerified: true, ClaimPhoneNumber: true, ClaimName: true,
	ClaimPicture: true, ClaimSignInProvider: true, ClaimAuthTime: true, "uid": true,
}

// TokenVerifier validates ID tokens minted by a local Auth. Servers that
// receive ID tokens from clients use it to authenticate requests.
type TokenVerifier struct {
	key      []byte
	issuer   string
	audience string
}

// NewTokenVerifier builds a verifier for HS256 tokens signed with secret.
// Empty issuer or audience are not checked.
func NewTokenVerifier(secret, issuer, audience string) *TokenVerifier {
	return &TokenVerifier{key: []byte(secret), issuer: issuer, audience: audience}
}

// Verify checks the signature, expiry, issuer and audience of token and
// returns its decoded form.
func (v *TokenVerifier) Verify(token string) (*sdk.TokenResult, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid id token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid id token")
	}
	if sub, _ := claims.GetSubject(); sub == "" {
		return nil, fmt.Errorf("missing subject")
	}
	return tokenResult(token, claims), nil
}

func tokenResult(token string, claims jwt.MapClaims) *sdk.TokenResult {
	out := &sdk.TokenResult{Token: token, Claims: map[string]any(maps.Clone(claims))}
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		out.ExpirationTime = exp.Time
	}
	if at, ok := claims[ClaimAuthTime].(float64); ok {
		out.AuthTime = time.Unix(int64(at), 0)
	}
	out.SignInProvider, _ = claims[ClaimSignInProvider].(string)
	return out
}

// idTokenInput is what goes into a freshly minted ID token.
type idTokenInput struct {
	uid            string
	email          string
	emailVerified  bool
	phone          string
	name           string
	picture        string
	signInProvider string
	authTime       time.Time
	custom         map[string]any
}

func (a *Auth) mintIDToken(in idTokenInput) (*sdk.TokenResult, error) {
	now := time.Now()
	claims := jwt.MapClaims{}
	for k, v := range in.custom {
		if !reservedClaims[k] {
			claims[k] = v
		}
	}
	claims["iss"] = a.cfg.Issuer
	claims["aud"] = a.cfg.AppName
	claims["sub"] = in.uid
	claims["jti"] = uuid.NewString()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(a.cfg.IDTokenExpiry).Unix()
	claims[ClaimAuthTime] = in.authTime.Unix()
	claims[ClaimSignInProvider] = in.signInProvider
	if in.email != "" {
		claims[ClaimEmail] = in.email
		claims[ClaimEmailVerified] = in.emailVerified
	}
	if in.phone != "" {
		claims[ClaimPhoneNumber] = in.phone
	}
	if in.name != "" {
		claims[ClaimName] = in.name
	}
	if in.picture != "" {
		claims[ClaimPicture] = in.picture
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	// Round-trip through the verifier so claims carry JSON types.
	return a.verifier.Verify(signed)
}

// MintCustomToken signs a token for SignInWithCustomToken. claims become
// extra ID token claims of the signed-in user; reserved names are rejected.
func MintCustomToken(key, uid string, claims map[string]any, ttl time.Duration) (string, error) {
	if uid == "" || len(uid) > 128 {
		return "", fmt.Errorf("uid must be 1 to 128 characters")
	}
	for k := range claims {
		if reservedClaims[k] {
			return "", fmt.Errorf("claim %q is reserved", k)
		}
	}
	if ttl == 0 {
		ttl = DefaultCustomTokenExpiry
	}
	now := time.Now()
	mc := jwt.MapClaims{
		"uid": uid,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if len(claims) > 0 {
		mc["claims"] = claims
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString([]byte(key))
}

func parseCustomToken(key, token string) (string, map[string]any, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(key), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", nil, sdk.NewAuthError(sdk.CodeInvalidCustomToken, "%v", err)
	}
	uid, _ := claims["uid"].(string)
	if uid == "" || len(uid) > 128 {
		return "", nil, sdk.ErrInvalidCustomToken.WithField("uid")
	}
	custom, _ := claims["claims"].(map[string]any)
	return uid, custom, nil
}
