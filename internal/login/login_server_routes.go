package login

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/authclient"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/utils"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/views"
	"github.com/labstack/echo/v4"
)

const wrongCredentialsMessage string = "Wrong username or password"

type loginRequest struct {
	Username    string `json:"username" form:"username"`
	Password    string `json:"password" form:"password"`
	RedirectURL string `json:"redirect_url" form:"redirect_url"`
}

type registerRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type statusResponse struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetLogin shows the login form, or sends the user agent on if the session is already logged in
func (l *LoginServer) GetLogin(c echo.Context) error {
	redirectURL := l.redirectURL(c.QueryParam("redirect_url"))
	if session, err := l.sessions.Get(c); err == nil {
		client, err := l.clients.Get(session.ID)
		if err != nil {
			return err
		}
		authenticated, err := client.Authenticated(c.Request().Context())
		if err != nil {
			return err
		}
		if authenticated {
			return c.Redirect(http.StatusFound, redirectURL)
		}
	}
	return c.Render(http.StatusOK, views.LoginTemplate, views.LoginPage{LoginPath: LoginPath, RedirectURL: redirectURL})
}

// PostLogin exchanges the username and password for backend credentials. A new session is
// started on every successful login, a rejected login leaves the current session as it is.
func (l *LoginServer) PostLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	redirectURL := l.redirectURL(req.RedirectURL)
	if req.Username == "" || req.Password == "" {
		return l.loginFailed(c, http.StatusBadRequest, "Username and password are required", req.Username, redirectURL)
	}
	session, err := l.sessions.New()
	if err != nil {
		return err
	}
	client, err := l.clients.Get(session.ID)
	if err != nil {
		return err
	}
	err = client.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		l.clients.Remove(session.ID)
		var httpErr *authclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			slog.Info("LOGIN", "message", "the backend rejected the login", "status", httpErr.StatusCode, "requestID", utils.GetRequestID(c))
			return l.loginFailed(c, http.StatusUnauthorized, wrongCredentialsMessage, req.Username, redirectURL)
		}
		return err
	}
	err = l.endSession(c)
	if err == nil {
		err = l.sessions.Start(c, session)
	}
	if err != nil {
		l.clients.Remove(session.ID)
		if logoutErr := client.Logout(c.Request().Context()); logoutErr != nil {
			slog.Error("LOGIN", "message", "could not remove the credentials of the new session", "error", logoutErr, "requestID", utils.GetRequestID(c))
		}
		return err
	}
	slog.Info("LOGIN", "message", "user logged in", "requestID", utils.GetRequestID(c))
	if wantsJSON(c) {
		return l.writeStatus(c, client)
	}
	return c.Redirect(http.StatusFound, redirectURL)
}

func (l *LoginServer) loginFailed(c echo.Context, status int, message, username, redirectURL string) error {
	if wantsJSON(c) {
		return c.JSON(status, errorResponse{Error: message})
	}
	return c.Render(status, views.LoginTemplate, views.LoginPage{
		LoginPath:   LoginPath,
		RedirectURL: redirectURL,
		Username:    username,
		Error:       message,
	})
}

// PostRegister creates an account on the backend. The backend's answer to a rejected
// registration is passed on as is.
func (l *LoginServer) PostRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Username and password are required"})
	}
	session, err := l.sessions.Get(c)
	if err != nil {
		session, err = l.sessions.Create(c)
		if err != nil {
			return err
		}
	}
	client, err := l.clients.Get(session.ID)
	if err != nil {
		return err
	}
	err = client.Register(c.Request().Context(), authclient.RegistrationRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	var httpErr *authclient.HTTPError
	if errors.As(err, &httpErr) {
		slog.Info("REGISTER", "message", "the backend rejected the registration", "status", httpErr.StatusCode, "requestID", utils.GetRequestID(c))
		if json.Valid(httpErr.Body) {
			return c.JSONBlob(httpErr.StatusCode, httpErr.Body)
		}
		return c.JSON(httpErr.StatusCode, errorResponse{Error: strings.TrimSpace(string(httpErr.Body))})
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

// Logout removes the credentials and the session of the user agent
func (l *LoginServer) Logout(c echo.Context) error {
	redirectURL := c.QueryParam("redirect_url")
	if redirectURL == "" {
		redirectURL = c.FormValue("redirect_url")
	}
	redirectURL = l.redirectURL(redirectURL)
	if err := l.endSession(c); err != nil {
		return err
	}
	switch {
	case wantsJSON(c):
		return c.NoContent(http.StatusNoContent)
	case c.Request().Method == http.MethodGet:
		return c.Render(http.StatusOK, views.LogoutTemplate, views.LogoutPage{RedirectURL: redirectURL})
	default:
		return c.Redirect(http.StatusFound, redirectURL)
	}
}

// GetStatus tells the user agent whether its session is logged in and until when the
// current access token is valid
func (l *LoginServer) GetStatus(c echo.Context) error {
	session, err := l.sessions.Get(c)
	if err != nil {
		if errors.Is(err, gwerrors.ErrSessionNotFound) || errors.Is(err, gwerrors.ErrSessionExpired) {
			return c.JSON(http.StatusOK, statusResponse{})
		}
		return err
	}
	client, err := l.clients.Get(session.ID)
	if err != nil {
		return err
	}
	return l.writeStatus(c, client)
}

func (l *LoginServer) writeStatus(c echo.Context, client *authclient.Client) error {
	creds, err := client.Credentials(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newStatusResponse(creds))
}

func newStatusResponse(creds models.Credentials) statusResponse {
	res := statusResponse{Authenticated: creds.AccessToken != ""}
	if expiresAt, ok := creds.AccessTokenExpiry(); ok {
		res.ExpiresAt = &expiresAt
	}
	return res
}

// endSession deletes the current session, if any, together with its pooled client
func (l *LoginServer) endSession(c echo.Context) error {
	session, err := l.sessions.Get(c)
	if err == nil {
		l.clients.Remove(session.ID)
		return l.sessions.Delete(c)
	}
	if errors.Is(err, gwerrors.ErrSessionNotFound) || errors.Is(err, gwerrors.ErrSessionExpired) {
		return nil
	}
	return err
}

func (l *LoginServer) redirectURL(requested string) string {
	if isLocalRedirect(requested) {
		return requested
	}
	return l.defaultAppRedirectURL
}

// isLocalRedirect only accepts paths on the gateway itself, to avoid open redirects
func isLocalRedirect(target string) bool {
	if !strings.HasPrefix(target, "/") {
		return false
	}
	return !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
}

// wantsJSON is true for script clients
func wantsJSON(c echo.Context) bool {
	req := c.Request()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return true
	}
	accept := req.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) && !strings.Contains(accept, echo.MIMETextHTML)
}
