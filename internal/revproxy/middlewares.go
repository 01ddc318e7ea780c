package revproxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/authclient"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type proxyStateKeyType string

const proxyStateKey proxyStateKeyType = "plantcare_proxy_state"

// proxyState travels with the proxied request so that the transport and the response hook know
// which authenticated client serves it.
type proxyState struct {
	client     *authclient.Client
	terminated bool
}

func stateFromContext(ctx context.Context) *proxyState {
	state, ok := ctx.Value(proxyStateKey).(*proxyState)
	if !ok {
		return nil
	}
	return state
}

// sessionClient middleware attaches the authenticated client of the session to the request.
// Requests without a session, or whose session holds no credentials, are proxied as they are.
func (r *Revproxy) sessionClient() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			state := &proxyState{}
			session, err := r.sessions.Get(c)
			switch {
			case err == nil:
				client, err := r.clients.Get(session.ID)
				if err != nil {
					return err
				}
				authenticated, err := client.Authenticated(c.Request().Context())
				if err != nil {
					return err
				}
				if authenticated {
					state.client = client
				}
			case errors.Is(err, gwerrors.ErrSessionNotFound), errors.Is(err, gwerrors.ErrSessionExpired):
			default:
				return err
			}
			ctx := context.WithValue(c.Request().Context(), proxyStateKey, state)
			c.SetRequest(c.Request().WithContext(ctx))
			err = next(c)
			if state.terminated {
				slog.Info(
					"REVPROXY",
					"message",
					"session ended after a failed refresh, sending the user agent to the login page",
					"requestID",
					utils.GetRequestID(c),
					"traceID",
					utils.GetTraceID(c),
				)
				if deleteErr := r.sessions.Delete(c); deleteErr != nil {
					slog.Error("REVPROXY", "message", "could not delete the ended session", "error", deleteErr, "requestID", utils.GetRequestID(c))
				}
			}
			return err
		}
	}
}

// noCookies middleware removes the gateway cookies and any credentials the user agent sent
func noCookies(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Request().Header.Del(echo.HeaderCookie)
		c.Request().Header.Del(echo.HeaderAuthorization)
		return next(c)
	}
}

// stripPrefix middleware removes a prefix from a request's path
func stripPrefix(prefix string) echo.MiddlewareFunc {
	return middleware.RewriteWithConfig(middleware.RewriteConfig{
		RegexRules: map[*regexp.Regexp]string{
			regexp.MustCompile(fmt.Sprintf("^%s/(.+)", prefix)): "/$1",
			regexp.MustCompile(fmt.Sprintf("^%s$", prefix)):     "/",
		},
	})
}

// setHost middleware sets the host field and header of a request, backends behind a
// virtual host reject requests carrying the gateway's host.
func setHost(host string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Request().Host = host
			return next(c)
		}
	}
}
