// Package sessions ties a browser to the credentials the gateway holds for it, through a signed
// session cookie and the session repository.
package sessions

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/credentials"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/utils"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
)

type SessionStore struct {
	cookieHandler   models.CookieHandler
	cookieTemplate  func() http.Cookie
	sessionMaker    SessionMaker
	sessionRepo     models.SessionRepository
	credentialsRepo models.CredentialsRepository
}

// Middleware loads the session of the request, if there is one, and saves it back after the
// handler ran so that its expiry is extended.
func (sessions *SessionStore) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, loadErr := sessions.Get(c)
			if loadErr != nil && !errors.Is(loadErr, gwerrors.ErrSessionNotFound) && !errors.Is(loadErr, gwerrors.ErrSessionExpired) {
				slog.Info(
					"SESSION MIDDLEWARE",
					"message",
					"could not load session",
					"error",
					loadErr,
					"requestID",
					utils.GetRequestID(c),
				)
			}
			if loadErr == nil {
				c.Set(SessionCtxKey, session)
			}
			err := next(c)
			saveErr := sessions.Save(c)
			if saveErr != nil && !errors.Is(saveErr, gwerrors.ErrSessionNotFound) && !errors.Is(saveErr, gwerrors.ErrSessionExpired) {
				slog.Info(
					"SESSION MIDDLEWARE",
					"message",
					"could not save session",
					"error",
					saveErr,
					"requestID",
					utils.GetRequestID(c),
				)
			}
			return err
		}
	}
}

// getFromContext retrieves a session from the current context
func (sessions *SessionStore) getFromContext(c echo.Context) (*models.Session, error) {
	sessionRaw := c.Get(SessionCtxKey)
	if sessionRaw == nil {
		return &models.Session{}, gwerrors.ErrSessionNotFound
	}
	session, ok := sessionRaw.(*models.Session)
	if !ok {
		return &models.Session{}, gwerrors.ErrSessionParse
	}
	if session == nil || session.ID == "" {
		return &models.Session{}, gwerrors.ErrSessionNotFound
	}
	if session.Expired() {
		return &models.Session{}, gwerrors.ErrSessionExpired
	}
	return session, nil
}

// Get returns the session of the request, from the context or from the repository
func (sessions *SessionStore) Get(c echo.Context) (*models.Session, error) {
	session, err := sessions.getFromContext(c)
	if err == nil {
		return session, nil
	}
	if errors.Is(err, gwerrors.ErrSessionParse) {
		return &models.Session{}, err
	}
	sessionID, err := sessions.getSessionIDFromCookie(c)
	if err != nil {
		return &models.Session{}, err
	}
	if sessionID == "" {
		return &models.Session{}, gwerrors.ErrSessionNotFound
	}
	sessionFromStore, err := sessions.sessionRepo.GetSession(c.Request().Context(), sessionID)
	if err != nil {
		return &models.Session{}, err
	}
	session = &sessionFromStore
	if session.Expired() {
		return &models.Session{}, gwerrors.ErrSessionExpired
	}
	session.Touch()
	return session, nil
}

// Create starts a new session and sets its cookie on the response
func (sessions *SessionStore) Create(c echo.Context) (*models.Session, error) {
	session, err := sessions.New()
	if err != nil {
		return &models.Session{}, err
	}
	err = sessions.Start(c, session)
	if err != nil {
		return &models.Session{}, err
	}
	return session, nil
}

// New makes a session that is neither saved nor sent to the user agent until Start is called
func (sessions *SessionStore) New() (*models.Session, error) {
	session, err := sessions.sessionMaker.NewSession()
	if err != nil {
		return &models.Session{}, err
	}
	return &session, nil
}

// Start makes session the session of the request and sets its cookie on the response
func (sessions *SessionStore) Start(c echo.Context, session *models.Session) error {
	cookie, err := sessions.cookie(*session)
	if err != nil {
		return err
	}
	c.Set(SessionCtxKey, session)
	c.SetCookie(&cookie)
	return nil
}

func (sessions *SessionStore) Save(c echo.Context) error {
	session, err := sessions.getFromContext(c)
	if err != nil {
		return err
	}
	return sessions.sessionRepo.SetSession(c.Request().Context(), *session)
}

// Delete removes the session of the request together with its credentials and expires the cookie
func (sessions *SessionStore) Delete(c echo.Context) error {
	sessionID, err := sessions.getSessionIDFromCookie(c)
	if err != nil {
		return err
	}
	if session, err := sessions.getFromContext(c); err == nil {
		sessionID = session.ID
	}
	newCookie := sessions.ExpiredCookie()
	c.SetCookie(&newCookie)
	c.Set(SessionCtxKey, nil)
	if sessionID == "" {
		return nil
	}
	ctx := c.Request().Context()
	err = sessions.credentialsRepo.RemoveCredentials(ctx, sessionID)
	if err != nil {
		return err
	}
	return sessions.sessionRepo.RemoveSession(ctx, sessionID)
}

// ExpiredCookie returns a session cookie that makes the user agent drop the current one
func (sessions *SessionStore) ExpiredCookie() http.Cookie {
	cookie := sessions.cookieTemplate()
	cookie.MaxAge = -1
	return cookie
}

// Credentials returns the credential store of one session
func (sessions *SessionStore) Credentials(sessionID string) credentials.Store {
	return credentials.NewSessionStore(sessionID, sessions.credentialsRepo)
}

func (sessions *SessionStore) cookie(session models.Session) (http.Cookie, error) {
	cookie := sessions.cookieTemplate()
	if sessions.cookieHandler == nil {
		cookie.Value = session.ID
		return cookie, nil
	}
	value, err := sessions.cookieHandler.Encode(cookie.Name, session.ID)
	if err != nil {
		return http.Cookie{}, err
	}
	cookie.Value = value
	return cookie, nil
}

// getSessionIDFromCookie returns an empty ID when there is no cookie or when its signature is invalid
func (sessions *SessionStore) getSessionIDFromCookie(c echo.Context) (string, error) {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		return "", err
	}
	if sessions.cookieHandler == nil {
		return cookie.Value, nil
	}
	var sessionID string
	err = sessions.cookieHandler.Decode(SessionCookieName, cookie.Value, &sessionID)
	if err != nil {
		slog.Info(
			"SESSION STORE",
			"message",
			"discarding session cookie with an invalid signature",
			"error",
			err,
			"requestID",
			utils.GetRequestID(c),
		)
		return "", nil
	}
	return sessionID, nil
}

type SessionStoreOption func(*SessionStore) error

func WithSessionRepository(repo models.SessionRepository) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.sessionRepo = repo
		return nil
	}
}

func WithCredentialsRepository(repo models.CredentialsRepository) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.credentialsRepo = repo
		return nil
	}
}

func WithCookieHandler(handler models.CookieHandler) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.cookieHandler = handler
		return nil
	}
}

func WithCookieTemplate(template func() http.Cookie) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.cookieTemplate = template
		return nil
	}
}

func WithConfig(c config.SessionConfig) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.sessionMaker = NewSessionMaker(
			WithIdleSessionTTLSeconds(c.IdleSessionTTLSeconds),
			WithMaxSessionTTLSeconds(c.MaxSessionTTLSeconds),
		)
		if c.UnsafeNoCookieHandler {
			return nil
		}
		sessions.cookieHandler = securecookie.New([]byte(c.CookieHashKey), []byte(c.CookieEncodingKey))
		return nil
	}
}

func NewSessionStore(options ...SessionStoreOption) (*SessionStore, error) {
	sessions := SessionStore{
		cookieTemplate: func() http.Cookie {
			return http.Cookie{
				Name:     SessionCookieName,
				Path:     "/",
				Secure:   true,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode}
		},
	}
	for _, opt := range options {
		err := opt(&sessions)
		if err != nil {
			return &SessionStore{}, err
		}
	}
	if sessions.cookieTemplate == nil {
		return &SessionStore{}, fmt.Errorf("cookie template is not initialized")
	}
	if sessions.sessionMaker == nil {
		return &SessionStore{}, fmt.Errorf("session maker is not initialized")
	}
	if sessions.sessionRepo == nil {
		return &SessionStore{}, fmt.Errorf("session repository is not initialized")
	}
	if sessions.credentialsRepo == nil {
		return &SessionStore{}, fmt.Errorf("credentials repository is not initialized")
	}
	return &sessions, nil
}
