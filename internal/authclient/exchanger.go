package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
)

// Exchanger talks to the backend endpoints that issue credentials.
// Calls made by an exchanger never go through the refresh logic.
type Exchanger interface {
	Login(ctx context.Context, username, password string) (models.TokenPair, error)
	Register(ctx context.Context, registration RegistrationRequest) error
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

type RegistrationRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse accepts both snake case and camel case token fields
type tokenResponse struct {
	AccessToken       string `json:"access_token"`
	AccessTokenCamel  string `json:"accessToken"`
	RefreshToken      string `json:"refresh_token"`
	RefreshTokenCamel string `json:"refreshToken"`
}

func (t tokenResponse) pair() models.TokenPair {
	pair := models.TokenPair{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	if pair.AccessToken == "" {
		pair.AccessToken = t.AccessTokenCamel
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = t.RefreshTokenCamel
	}
	return pair
}

// HTTPError is returned when a credential endpoint answers with a non 2xx status code.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, string(e.Body))
}

// JSONExchanger posts JSON documents to the login, register and refresh endpoints of the backend.
type JSONExchanger struct {
	client      *http.Client
	loginURL    *url.URL
	registerURL *url.URL
	refreshURL  *url.URL
}

// NewJSONExchanger resolves the credential endpoint paths against baseURL. The requests are sent
// with rt, nil means http.DefaultTransport.
func NewJSONExchanger(baseURL *url.URL, exchange config.ExchangeConfig, rt http.RoundTripper) (*JSONExchanger, error) {
	if baseURL == nil {
		return nil, fmt.Errorf("the backend url is required for the credential endpoints")
	}
	if exchange.LoginPath == "" || exchange.RefreshPath == "" {
		return nil, fmt.Errorf("the login and refresh paths are required")
	}
	if rt == nil {
		rt = http.DefaultTransport
	}
	e := &JSONExchanger{
		client:     &http.Client{Transport: rt},
		loginURL:   baseURL.JoinPath(exchange.LoginPath),
		refreshURL: baseURL.JoinPath(exchange.RefreshPath),
	}
	if exchange.RegisterPath != "" {
		e.registerURL = baseURL.JoinPath(exchange.RegisterPath)
	}
	return e, nil
}

func (e *JSONExchanger) Login(ctx context.Context, username, password string) (models.TokenPair, error) {
	var res tokenResponse
	err := postJSON(ctx, e.client, e.loginURL, loginRequest{Username: username, Password: password}, &res)
	if err != nil {
		return models.TokenPair{}, err
	}
	pair := res.pair()
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return models.TokenPair{}, gwerrors.ErrInvalidCredentialsResponse
	}
	return pair, nil
}

func (e *JSONExchanger) Register(ctx context.Context, registration RegistrationRequest) error {
	if e.registerURL == nil {
		return fmt.Errorf("registration is not supported by the backend")
	}
	return postJSON(ctx, e.client, e.registerURL, registration, nil)
}

func (e *JSONExchanger) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	var res tokenResponse
	err := postJSON(ctx, e.client, e.refreshURL, refreshRequest{RefreshToken: refreshToken}, &res)
	if err != nil {
		return models.TokenPair{}, err
	}
	pair := res.pair()
	if pair.AccessToken == "" {
		return models.TokenPair{}, gwerrors.ErrInvalidCredentialsResponse
	}
	return pair, nil
}

// postJSON sends payload to target and decodes the response into output when it is not nil
func postJSON(ctx context.Context, client *http.Client, target *url.URL, payload any, output any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	resBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: resBody}
	}
	if output == nil || len(resBody) == 0 {
		return nil
	}
	err = json.Unmarshal(resBody, output)
	if err != nil {
		return fmt.Errorf("%w: %w", gwerrors.ErrInvalidCredentialsResponse, err)
	}
	return nil
}
