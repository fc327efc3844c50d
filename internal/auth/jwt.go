// Package auth provides sessions for the book-review site: bcrypt password
// hashing, JWT session tokens, the cookie middleware that guards
// authenticated pages, and the optional GitHub OAuth sign-in.
//
// SESSION FLOW:
//  1. User submits /login (or completes the GitHub OAuth dance)
//  2. Server verifies the credentials and issues a signed JWT
//  3. The JWT lives in an HttpOnly "session" cookie
//  4. On each request, middleware validates the cookie and puts the userID
//     in the request context; handlers read it with UserIDFromContext
//
// WHY JWT INSTEAD OF SERVER-SIDE SESSIONS?
// The token is stateless — no sessions table, no session lookup per request.
// Everything needed (userID, expiry) is inside the signed token, and the
// HMAC signature makes it tamper-proof without a database round-trip.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionDuration is how long a login lasts. A day suits a browsing site —
// short enough that a stolen cookie ages out, long enough that readers aren't
// re-entering passwords mid-review.
const SessionDuration = 24 * time.Hour

const issuer = "book-reviews"

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens. The same secret
// must serve both operations — keep it out of the repo and rotate it
// periodically in production.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production:
//
//	JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds jwt.RegisteredClaims; the "sub" (Subject) claim carries the
// internal user ID — the standard claim for "who does this token belong to".
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a session token for the given userID,
// valid for SessionDuration.
//
// HS256 (HMAC-SHA256) is symmetric — same key signs and verifies — which is
// exactly right for a single server that does both.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, SessionDuration)
}

// GenerateWithDuration creates a token with a custom expiry. Tests use it to
// mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the userID it encodes.
//
// The jwt library checks the signature, the expiry, and the issuer. Passing
// jwt.WithValidMethods pins the algorithm to HS256 — without it, an attacker
// could attempt an algorithm-confusion attack with an unsigned token.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
