package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTTL is the lifetime of an issued session token.
const SessionTTL = time.Hour

var (
	// ErrUnauthorized is returned for absent, malformed, forged or expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingIdentity is returned when Issue is called without an email claim.
	ErrMissingIdentity = errors.New("email claim is required")
)

// Claims is the verified content of a session token.
type Claims struct {
	Email     string
	ID        string
	ExpiresAt time.Time
	Raw       jwt.MapClaims
}

// TokenVerifier issues and verifies HS256 session tokens.
type TokenVerifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenVerifier creates a verifier signing with the given secret.
func NewTokenVerifier(secret string) (*TokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret must not be empty")
	}
	return &TokenVerifier{
		secret: []byte(secret),
		ttl:    SessionTTL,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the verifier that reads time from now.
func (v *TokenVerifier) WithClock(now func() time.Time) *TokenVerifier {
	clone := *v
	clone.now = now
	return &clone
}

// Issue signs the caller supplied claims. exp, iat and jti are always set by
// the verifier and override anything the caller passed.
func (v *TokenVerifier) Issue(identity map[string]any) (string, error) {
	email, _ := identity["email"].(string)
	if strings.TrimSpace(email) == "" {
		return "", ErrMissingIdentity
	}

	now := v.now()
	claims := jwt.MapClaims{}
	for k, val := range identity {
		claims[k] = val
	}
	claims["exp"] = now.Add(v.ttl).Unix()
	claims["iat"] = now.Unix()
	claims["jti"] = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the token claims.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("%w: token carries no email", ErrUnauthorized)
	}

	out := &Claims{Email: email, Raw: claims}
	out.ID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// IdentityMatches is the single authorization predicate of the service: the
// verified session identity must equal the identity named by the request.
// The comparison is exact and case-sensitive.
func IdentityMatches(sessionIdentity, claimedIdentity string) bool {
	return sessionIdentity != "" && sessionIdentity == claimedIdentity
}
