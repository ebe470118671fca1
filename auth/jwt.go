// Package auth issues and verifies the signed session tokens the HTTP
// boundary stores in a cookie. Tokens carry only the principal's id.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie name the HTTP boundary uses for the token.
const SessionCookie = "filedrive_session"

// ErrInvalidToken is returned when a token fails signature or claim checks.
var ErrInvalidToken = errors.New("invalid session token")

// Claims carries the registered claims plus the authenticated user's id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Sessions mints and verifies session tokens with one HS256 secret.
type Sessions struct {
	secret   []byte
	validity time.Duration
}

func NewSessions(secret []byte, validity time.Duration) *Sessions {
	if validity <= 0 {
		validity = 24 * time.Hour
	}
	return &Sessions{secret: secret, validity: validity}
}

// Validity reports how long issued tokens stay valid; the boundary layer
// uses it for the cookie max-age.
func (s *Sessions) Validity() time.Duration {
	return s.validity
}

// Issue mints a signed token for the given user id.
func (s *Sessions) Issue(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.validity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}

	return signed, nil
}

// Verify checks the token's signature and expiry and returns the user id it
// was issued for.
func (s *Sessions) Verify(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("verify session token: %w", ErrInvalidToken)
	}

	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
