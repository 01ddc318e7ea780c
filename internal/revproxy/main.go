// Package revproxy proxies the /api routes of the gateway to the plant-care backend through the
// authenticated client of the caller's session.
package revproxy

import (
	"fmt"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/sessions"
	"github.com/labstack/echo/v4"
)

const defaultLoginPath string = "/login"

type Revproxy struct {
	config    *config.BackendConfig
	sessions  *sessions.SessionStore
	clients   *sessions.ClientPool
	loginPath string
}

func (r *Revproxy) RegisterHandlers(e *echo.Echo, commonMiddlewares ...echo.MiddlewareFunc) {
	prefix := r.config.APIPathPrefix
	e.Group(
		prefix,
		append(
			commonMiddlewares,
			r.sessionClient(),
			noCookies,
			stripPrefix(prefix),
			setHost(r.config.URL.Host),
			r.proxy(),
		)...,
	)
}

type RevproxyOption func(*Revproxy)

func WithConfig(backendConfig config.BackendConfig) RevproxyOption {
	return func(r *Revproxy) {
		r.config = &backendConfig
	}
}

func WithSessionStore(sessions *sessions.SessionStore) RevproxyOption {
	return func(r *Revproxy) {
		r.sessions = sessions
	}
}

func WithClientPool(clients *sessions.ClientPool) RevproxyOption {
	return func(r *Revproxy) {
		r.clients = clients
	}
}

// WithLoginPath sets where user agents are sent when their session was ended
func WithLoginPath(loginPath string) RevproxyOption {
	return func(r *Revproxy) {
		r.loginPath = loginPath
	}
}

func NewServer(options ...RevproxyOption) (*Revproxy, error) {
	server := Revproxy{loginPath: defaultLoginPath}
	for _, opt := range options {
		opt(&server)
	}
	if server.config == nil || server.config.URL == nil {
		return &Revproxy{}, fmt.Errorf("revproxy config not provided")
	}
	if server.sessions == nil {
		return &Revproxy{}, fmt.Errorf("session handler not initialized")
	}
	if server.clients == nil {
		return &Revproxy{}, fmt.Errorf("client pool not initialized")
	}
	return &server, nil
}
