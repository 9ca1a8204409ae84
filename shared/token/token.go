// Package token signs and verifies the platform's JWT access and refresh
// tokens. Claims carry the user id in "sub", matching the upstream API
// contract.
package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskhive/task-platform/shared/errors"
)

// Issuer identifies tokens minted by the auth service.
const Issuer = "task-platform-auth"

// Signer mints HS256 tokens with a fixed secret and lifetime.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner creates a signer. ttl bounds every minted token.
func NewSigner(secret []byte, ttl time.Duration) *Signer {
	return &Signer{secret: secret, ttl: ttl}
}

// Sign mints a token for userID.
func (s *Signer) Sign(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
		"iss": Issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// TTL returns the configured token lifetime.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Verifier validates tokens and extracts the subject user id.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for tokens minted with secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify parses and validates tokenString, returning the user id carried
// in "sub". All failures map to Unauthorized.
func (v *Verifier) Verify(tokenString string) (int64, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return 0, errors.Unauthorized("invalid token").WithCause(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return 0, errors.Unauthorized("invalid token")
	}

	if iss, _ := claims["iss"].(string); iss != Issuer {
		return 0, errors.Unauthorized("invalid token issuer")
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errors.Unauthorized("invalid subject claim")
	}

	return userID, nil
}
