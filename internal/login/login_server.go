// Package login serves the login surface of the gateway: the login page, login, registration,
// logout and the authentication status of the current session.
package login

import (
	"fmt"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/sessions"
	"github.com/labstack/echo/v4"
)

const (
	LoginPath             string = "/login"
	defaultAppRedirectURL string = "/"
)

type LoginServer struct {
	sessions              *sessions.SessionStore
	clients               *sessions.ClientPool
	defaultAppRedirectURL string
}

func (l *LoginServer) RegisterHandlers(server *echo.Echo, commonMiddlewares ...echo.MiddlewareFunc) {
	mws := append(commonMiddlewares, NoCaching)
	server.GET(LoginPath, l.GetLogin, mws...)
	server.POST(LoginPath, l.PostLogin, mws...)
	server.POST("/register", l.PostRegister, mws...)
	server.GET("/logout", l.Logout, mws...)
	server.POST("/logout", l.Logout, mws...)
	server.GET("/auth/status", l.GetStatus, mws...)
}

type LoginServerOption func(*LoginServer) error

func WithSessionStore(sessions *sessions.SessionStore) LoginServerOption {
	return func(l *LoginServer) error {
		l.sessions = sessions
		return nil
	}
}

func WithClientPool(clients *sessions.ClientPool) LoginServerOption {
	return func(l *LoginServer) error {
		l.clients = clients
		return nil
	}
}

// WithDefaultAppRedirectURL sets where the user agent goes after login or logout when the
// request does not say
func WithDefaultAppRedirectURL(redirectURL string) LoginServerOption {
	return func(l *LoginServer) error {
		if !isLocalRedirect(redirectURL) {
			return fmt.Errorf("the default redirect %q has to be a path on the gateway", redirectURL)
		}
		l.defaultAppRedirectURL = redirectURL
		return nil
	}
}

// NewLoginServer creates a new LoginServer that exchanges user credentials for backend tokens
// and keeps them in the user's session.
func NewLoginServer(options ...LoginServerOption) (*LoginServer, error) {
	server := LoginServer{defaultAppRedirectURL: defaultAppRedirectURL}
	for _, opt := range options {
		err := opt(&server)
		if err != nil {
			return &LoginServer{}, err
		}
	}
	if server.sessions == nil {
		return &LoginServer{}, fmt.Errorf("session store not initialized")
	}
	if server.clients == nil {
		return &LoginServer{}, fmt.Errorf("client pool not initialized")
	}
	return &server, nil
}
