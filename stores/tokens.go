package stores

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// GenerateSecureToken returns 32 random bytes, hex encoded.
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateNumericCode returns a random code of n decimal digits.
func GenerateNumericCode(n int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v), nil
}

// HashToken returns the SHA-256 of token, hex encoded. Backends index
// refresh tokens by this hash.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewRefreshToken builds generation one of a new token family.
func NewRefreshToken(userID, clientID string, deviceInfo map[string]any, scopes []string) (*RefreshToken, error) {
	token, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &RefreshToken{
		Token:      token,
		TokenHash:  HashToken(token),
		UserID:     userID,
		ClientID:   clientID,
		DeviceInfo: deviceInfo,
		Family:     uuid.NewString(),
		Generation: 1,
		Scopes:     scopes,
		CreatedAt:  now,
		ExpiresAt:  now.Add(TokenExpiryRefreshToken),
		LastUsedAt: now,
	}, nil
}

// NextRefreshToken builds the successor of old in the same family.
func NextRefreshToken(old *RefreshToken) (*RefreshToken, error) {
	token, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &RefreshToken{
		Token:      token,
		TokenHash:  HashToken(token),
		UserID:     old.UserID,
		ClientID:   old.ClientID,
		DeviceInfo: old.DeviceInfo,
		Family:     old.Family,
		Generation: old.Generation + 1,
		Scopes:     old.Scopes,
		CreatedAt:  now,
		ExpiresAt:  now.Add(TokenExpiryRefreshToken),
		LastUsedAt: now,
	}, nil
}

// NewAuthToken builds an out-of-band code with a fresh secure token.
func NewAuthToken(userID, email string, tokenType TokenType, expiry time.Duration) (*AuthToken, error) {
	token, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &AuthToken{
		Token:     token,
		Type:      tokenType,
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(expiry),
	}, nil
}
