package config

import (
	"fmt"
	"net/http"
	"time"
)

const (
	ExchangeTypeJSON   string = "json"
	ExchangeTypeOAuth2 string = "oauth2"
)

const (
	RotationAuto   string = "auto"
	RotationNever  string = "never"
	RotationAlways string = "always"
)

// ClientConfig configures the authenticated client used to call the backend.
type ClientConfig struct {
	// Timeout of every single call made to the backend (original request or replay)
	RequestTimeout time.Duration
	// Timeout of a refresh token exchange, a timed out exchange counts as a failed one
	RefreshTimeout time.Duration
	// Status code used by the backend for expired or invalid access tokens
	UnauthorizedStatus int
	// One of auto, never, always
	RefreshTokenRotation string
	Exchange             ExchangeConfig
}

type ExchangeConfig struct {
	// One of json, oauth2
	Type         string
	LoginPath    string
	RegisterPath string
	RefreshPath  string
	OAuth2       OAuth2ExchangeConfig
}

type OAuth2ExchangeConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret RedactedString
	Scopes       []string
}

func (c ClientConfig) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("the request timeout has to be positive, got %s", c.RequestTimeout)
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("the refresh timeout has to be positive, got %s", c.RefreshTimeout)
	}
	if c.UnauthorizedStatus < http.StatusBadRequest || c.UnauthorizedStatus > 499 {
		return fmt.Errorf("the unauthorized status has to be a 4xx code, got %d", c.UnauthorizedStatus)
	}
	switch c.RefreshTokenRotation {
	case RotationAuto, RotationNever, RotationAlways:
	default:
		return fmt.Errorf("unknown refresh token rotation %q (must be one of auto, never, always)", c.RefreshTokenRotation)
	}
	return c.Exchange.Validate()
}

func (c ExchangeConfig) Validate() error {
	if c.LoginPath == "" || c.RefreshPath == "" {
		return fmt.Errorf("the login and refresh paths of the credential endpoints are required")
	}
	switch c.Type {
	case ExchangeTypeJSON:
		return nil
	case ExchangeTypeOAuth2:
		if c.OAuth2.TokenURL == "" || c.OAuth2.ClientID == "" {
			return fmt.Errorf("the oauth2 exchange requires a token url and a client id")
		}
		return nil
	default:
		return fmt.Errorf("unknown exchange type %q (must be one of json, oauth2)", c.Type)
	}
}

// CredentialPaths lists the paths of all the endpoints that issue credentials
func (c ExchangeConfig) CredentialPaths() []string {
	paths := []string{c.LoginPath, c.RefreshPath}
	if c.RegisterPath != "" {
		paths = append(paths, c.RegisterPath)
	}
	return paths
}
