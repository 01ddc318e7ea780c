package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
	"golang.org/x/oauth2"
)

// OAuth2Exchanger uses the resource owner password grant to log in and the refresh token grant
// to refresh. Registration is posted as JSON to the backend when a register path is configured.
type OAuth2Exchanger struct {
	config      *oauth2.Config
	client      *http.Client
	registerURL *url.URL
}

func NewOAuth2Exchanger(baseURL *url.URL, exchange config.ExchangeConfig, rt http.RoundTripper) (*OAuth2Exchanger, error) {
	if exchange.OAuth2.TokenURL == "" || exchange.OAuth2.ClientID == "" {
		return nil, fmt.Errorf("the oauth2 exchange requires a token url and a client id")
	}
	if rt == nil {
		rt = http.DefaultTransport
	}
	e := &OAuth2Exchanger{
		config: &oauth2.Config{
			ClientID:     exchange.OAuth2.ClientID,
			ClientSecret: string(exchange.OAuth2.ClientSecret),
			Scopes:       exchange.OAuth2.Scopes,
			Endpoint:     oauth2.Endpoint{TokenURL: exchange.OAuth2.TokenURL},
		},
		client: &http.Client{Transport: rt},
	}
	if exchange.RegisterPath != "" && baseURL != nil {
		e.registerURL = baseURL.JoinPath(exchange.RegisterPath)
	}
	return e, nil
}

// TokenPath is the path of the token endpoint, requests to it never trigger a refresh
func (e *OAuth2Exchanger) TokenPath() string {
	tokenURL, err := url.Parse(e.config.Endpoint.TokenURL)
	if err != nil {
		return ""
	}
	return tokenURL.Path
}

func (e *OAuth2Exchanger) Login(ctx context.Context, username, password string) (models.TokenPair, error) {
	token, err := e.config.PasswordCredentialsToken(e.context(ctx), username, password)
	if err != nil {
		return models.TokenPair{}, convertOAuth2Error(err)
	}
	return models.TokenPair{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}, nil
}

func (e *OAuth2Exchanger) Register(ctx context.Context, registration RegistrationRequest) error {
	if e.registerURL == nil {
		return fmt.Errorf("registration is not supported by the backend")
	}
	return postJSON(ctx, e.client, e.registerURL, registration, nil)
}

func (e *OAuth2Exchanger) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	// an expired token without access token forces the token source to use the refresh grant
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Minute)}
	token, err := e.config.TokenSource(e.context(ctx), expired).Token()
	if err != nil {
		return models.TokenPair{}, convertOAuth2Error(err)
	}
	pair := models.TokenPair{AccessToken: token.AccessToken}
	if token.RefreshToken != refreshToken {
		pair.RefreshToken = token.RefreshToken
	}
	return pair, nil
}

func (e *OAuth2Exchanger) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, e.client)
}

func convertOAuth2Error(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &HTTPError{StatusCode: retrieveErr.Response.StatusCode, Body: retrieveErr.Body}
	}
	return err
}
