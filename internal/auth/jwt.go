package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the token fields the feed cares about.
type Claims struct {
	Subject   string    // User identity (the feed uses the account email)
	ExpiresAt time.Time // Zero when the token carries no exp claim
}

// Inspect reads the claims of a JWT without verifying its signature.
// Clients use it for diagnostics only; they never hold the signing key.
func Inspect(token string) (Claims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	return claimsFrom(parsed)
}

// Sign issues an HS256 token for subject, valid for ttl.
func Sign(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("signing secret is required")
	}
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks an HS256 token against secret and returns its claims.
// Tokens without a subject are rejected.
func Verify(secret []byte, token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, err := claimsFrom(parsed)
	if err != nil {
		return Claims{}, err
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func claimsFrom(t *jwt.Token) (Claims, error) {
	var c Claims

	sub, err := t.Claims.GetSubject()
	if err != nil {
		return Claims{}, fmt.Errorf("read subject: %w", err)
	}
	c.Subject = sub

	exp, err := t.Claims.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("read expiry: %w", err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
