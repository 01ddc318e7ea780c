package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Credentials is the bearer credential material of one user agent. Empty strings mean "not set".
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Empty is true when neither token is present.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// AccessTokenExpiry reads the exp claim of the access token when it is a JWT. The signature is not
// verified, the value is informational only (the backend is the one deciding if a token is valid).
func (c Credentials) AccessTokenExpiry() (time.Time, bool) {
	if c.AccessToken == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// String implements the Stringer interface for printing credentials in logs
func (c Credentials) String() string {
	return fmt.Sprintf(
		"Credentials<AccessToken: %s, RefreshToken: %s>",
		redactedPresence(c.AccessToken),
		redactedPresence(c.RefreshToken),
	)
}

func redactedPresence(value string) string {
	if value == "" {
		return "none"
	}
	return "redacted"
}

// TokenPair is what a credential endpoint issues. RefreshToken is empty when the
// endpoint did not rotate the refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (t TokenPair) String() string {
	return fmt.Sprintf(
		"TokenPair<AccessToken: %s, RefreshToken: %s>",
		redactedPresence(t.AccessToken),
		redactedPresence(t.RefreshToken),
	)
}
