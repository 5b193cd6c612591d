// Package auth issues and validates operator tokens for the HTTP API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
)

// Issuer is stamped into every token.
const Issuer = "boiler-monitor"

var (
	// ErrEmptyToken is returned when no bearer token is presented.
	ErrEmptyToken = errors.New("auth: empty token")
	// ErrEmptySecret is returned when the signing secret is not configured.
	ErrEmptySecret = errors.New("auth: empty secret")
	// ErrInvalidToken is returned for tokens failing signature or claim checks.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrMissingSubject is returned for tokens without an operator name.
	ErrMissingSubject = errors.New("auth: missing subject")
)

// Claims identify the operator: Subject is the username.
type Claims struct {
	Hostname string `json:"host,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into an audit actor.
func (c *Claims) Actor() *domain.Actor {
	return &domain.Actor{
		Hostname: c.Hostname,
		Username: c.Subject,
	}
}

// Issue signs a token for actor valid for ttl from now.
func Issue(secret []byte, actor *domain.Actor, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}

	if actor == nil || actor.Username == "" {
		return "", ErrMissingSubject
	}

	claims := Claims{
		Hostname: actor.Hostname,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   actor.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Parse validates a token and returns its claims.
func Parse(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}

	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}
