package config

import "fmt"

type SessionConfig struct {
	IdleSessionTTLSeconds int
	MaxSessionTTLSeconds  int
	// Per-session backend clients idle for longer than this are dropped from memory
	ClientIdleTTLSeconds  int
	CookieHashKey         RedactedString
	CookieEncodingKey     RedactedString
	CredentialsEncryption CredentialsEncryptionConfig
	// NOTE: UnsafeNoCookieHandler should only be used for testing, in production the session
	// cookie has to be signed
	UnsafeNoCookieHandler bool
}

type CredentialsEncryptionConfig struct {
	Enabled   bool
	SecretKey RedactedString
}

func (c *SessionConfig) Validate(e RunningEnvironment) error {
	if c.IdleSessionTTLSeconds <= 0 {
		return fmt.Errorf("idle session TTL seconds (%d) needs to be greater than 0", c.IdleSessionTTLSeconds)
	}
	if c.MaxSessionTTLSeconds > 0 && c.IdleSessionTTLSeconds > c.MaxSessionTTLSeconds {
		return fmt.Errorf("max session TTL seconds (%d) cannot be less than idle session TTL seconds (%d)", c.MaxSessionTTLSeconds, c.IdleSessionTTLSeconds)
	}
	if c.ClientIdleTTLSeconds < 0 {
		return fmt.Errorf("client idle TTL seconds (%d) cannot be negative", c.ClientIdleTTLSeconds)
	}
	if c.CredentialsEncryption.Enabled && len(c.CredentialsEncryption.SecretKey) != 32 {
		return fmt.Errorf(
			"credentials encryption key has to be 32 bytes long, the provided one is %d long",
			len(c.CredentialsEncryption.SecretKey),
		)
	}
	if c.UnsafeNoCookieHandler {
		if e != Development {
			return fmt.Errorf("the session cookie cannot be used without a cookie handler in production")
		}
		return nil
	}
	if l := len(c.CookieHashKey); l != 32 && l != 64 {
		return fmt.Errorf("the cookie hash key has to be 32 or 64 bytes long, the provided one is %d long", l)
	}
	if l := len(c.CookieEncodingKey); l != 16 && l != 24 && l != 32 {
		return fmt.Errorf("the cookie encoding key has to be 16, 24 or 32 bytes long, the provided one is %d long", l)
	}
	return nil
}
