package models

import (
	"fmt"
	"time"
)

// Session represents a persistent session between a browser and the gateway.
// The credentials of the session are stored separately, see CredentialsRepository.
type Session struct {
	ID string
	// UTC timestamp for when the session was created
	CreatedAt time.Time
	// UTC timestamp for when the session will expire
	ExpiresAt      time.Time
	IdleTTLSeconds SerializableInt
	MaxTTLSeconds  SerializableInt
	// The url to redirect to when the login flow is complete
	LoginRedirectURL string
}

func (s *Session) Expired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}

// Touch updates a session's ExpiresAt field according to IdleTTLSeconds and MaxTTLSeconds
func (s *Session) Touch() {
	expiresAt := time.Now().UTC().Add(s.IdleTTL())
	if s.MaxTTLSeconds > 0 {
		maxExpiresAt := s.CreatedAt.Add(s.MaxTTL())
		if expiresAt.After(maxExpiresAt) {
			expiresAt = maxExpiresAt
		}
	}
	s.ExpiresAt = expiresAt
}

func (s *Session) IdleTTL() time.Duration {
	return time.Duration(s.IdleTTLSeconds) * time.Second
}

func (s *Session) MaxTTL() time.Duration {
	return time.Duration(s.MaxTTLSeconds) * time.Second
}

func (s Session) String() string {
	return fmt.Sprintf(
		"Session<ID: redacted, CreatedAt: %s, ExpiresAt: %s, IdleTTLSeconds: %d, MaxTTLSeconds: %d>",
		s.CreatedAt,
		s.ExpiresAt,
		s.IdleTTLSeconds,
		s.MaxTTLSeconds,
	)
}
