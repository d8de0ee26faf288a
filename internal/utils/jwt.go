package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	jwtSecret   []byte
	jwtIssuer   = "taskforge"
	jwtAudience = "taskforge-client"

	// timeNow is swapped out in tests to freeze the clock.
	timeNow = time.Now
)

// ErrInvalidToken indicates the token failed signature or claims validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims carried by an access token.
type Claims struct {
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// SetJWTSecret sets the secret used for signing and verifying tokens.
func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

// SetJWTIssuer sets the issuer and audience claims stamped into tokens and
// required during validation.
func SetJWTIssuer(issuer, audience string) {
	if issuer != "" {
		jwtIssuer = issuer
	}
	if audience != "" {
		jwtAudience = audience
	}
}

// SetTimeFunc overrides the clock used for token issuance and validation.
// Only intended for test use.
func SetTimeFunc(fn func() time.Time) {
	if fn == nil {
		timeNow = time.Now
		return
	}
	timeNow = fn
}

// GenerateToken signs an access token for the user. Each token carries a
// random jti so individual credentials can be traced in logs.
func GenerateToken(userID, email, name string, roles []string, ttl time.Duration) (string, time.Time, error) {
	if len(jwtSecret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}
	if userID == "" {
		return "", time.Time{}, errors.New("userID is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("ttl must be greater than zero")
	}

	now := timeNow().UTC()
	expiresAt := now.Add(ttl)

	claims := Claims{
		Email: email,
		Name:  name,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			Audience:  jwt.ClaimStrings{jwtAudience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken verifies the token signature, expiry, issuer and audience, and
// returns the decoded claims.
func ParseToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyFunc,
		jwt.WithTimeFunc(func() time.Time { return timeNow() }),
		jwt.WithIssuer(jwtIssuer),
		jwt.WithAudience(jwtAudience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseExpiredToken verifies the token signature, issuer and audience while
// ignoring its expiry. Used during refresh to recover the user identity from
// an access token that has already timed out.
func ParseExpiredToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyFunc,
		jwt.WithoutClaimsValidation(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != jwtIssuer || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if !containsAudience(claims.Audience, jwtAudience) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func keyFunc(t *jwt.Token) (interface{}, error) {
	if len(jwtSecret) == 0 {
		return nil, errors.New("jwt secret is not configured")
	}
	return jwtSecret, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

// GenerateRefreshToken returns an opaque random credential. 64 bytes of
// entropy keeps the token unguessable over its full lifetime.
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
