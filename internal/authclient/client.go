// Package authclient is the authenticated HTTP client used to call the plant-care backend.
// It attaches bearer credentials to every request and transparently refreshes them when the
// backend reports that they expired. Concurrent requests share a single refresh exchange.
package authclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/credentials"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
)

const (
	defaultRequestTimeout time.Duration = 30 * time.Second
	defaultRefreshTimeout time.Duration = 10 * time.Second
)

type Client struct {
	store      credentials.Store
	exchanger  Exchanger
	terminator Terminator
	transport  *Transport
	httpClient *http.Client

	baseURL            *url.URL
	next               http.RoundTripper
	requestTimeout     time.Duration
	refreshTimeout     time.Duration
	unauthorizedStatus int
	rotation           RotationPolicy
	credentialPaths    []string
	idGenerator        models.IDGenerator
}

type ClientOption func(*Client) error

func WithStore(store credentials.Store) ClientOption {
	return func(c *Client) error {
		c.store = store
		return nil
	}
}

func WithExchanger(exchanger Exchanger) ClientOption {
	return func(c *Client) error {
		c.exchanger = exchanger
		return nil
	}
}

func WithTerminator(terminator Terminator) ClientOption {
	return func(c *Client) error {
		c.terminator = terminator
		return nil
	}
}

// WithNextTransport sets the round tripper used to reach the network, http.DefaultTransport by default
func WithNextTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) error {
		c.next = rt
		return nil
	}
}

func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		if timeout <= 0 {
			return fmt.Errorf("the request timeout has to be positive")
		}
		c.requestTimeout = timeout
		return nil
	}
}

func WithRefreshTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		if timeout <= 0 {
			return fmt.Errorf("the refresh timeout has to be positive")
		}
		c.refreshTimeout = timeout
		return nil
	}
}

func WithUnauthorizedStatus(status int) ClientOption {
	return func(c *Client) error {
		c.unauthorizedStatus = status
		return nil
	}
}

func WithRotationPolicy(policy string) ClientOption {
	return func(c *Client) error {
		rotation, err := ParseRotationPolicy(policy)
		if err != nil {
			return err
		}
		c.rotation = rotation
		return nil
	}
}

// WithCredentialPaths adds the URL paths of endpoints that issue credentials,
// a rejected request to one of them is returned as is
func WithCredentialPaths(paths ...string) ClientOption {
	return func(c *Client) error {
		c.credentialPaths = append(c.credentialPaths, paths...)
		return nil
	}
}

func WithIDGenerator(generator models.IDGenerator) ClientOption {
	return func(c *Client) error {
		c.idGenerator = generator
		return nil
	}
}

// WithConfig sets up the client for the backend at baseURL, including the exchanger.
// It has to come after WithNextTransport for the exchanger to use that transport.
func WithConfig(baseURL *url.URL, clientConfig config.ClientConfig) ClientOption {
	return func(c *Client) error {
		if baseURL == nil {
			return fmt.Errorf("the backend url is required")
		}
		c.baseURL = baseURL
		if clientConfig.RequestTimeout > 0 {
			c.requestTimeout = clientConfig.RequestTimeout
		}
		if clientConfig.RefreshTimeout > 0 {
			c.refreshTimeout = clientConfig.RefreshTimeout
		}
		if clientConfig.UnauthorizedStatus != 0 {
			c.unauthorizedStatus = clientConfig.UnauthorizedStatus
		}
		rotation, err := ParseRotationPolicy(clientConfig.RefreshTokenRotation)
		if err != nil {
			return err
		}
		c.rotation = rotation
		for _, credentialPath := range clientConfig.Exchange.CredentialPaths() {
			c.credentialPaths = append(c.credentialPaths, path.Join("/", baseURL.Path, credentialPath))
		}
		switch clientConfig.Exchange.Type {
		case config.ExchangeTypeJSON:
			exchanger, err := NewJSONExchanger(baseURL, clientConfig.Exchange, c.next)
			if err != nil {
				return err
			}
			c.exchanger = exchanger
		case config.ExchangeTypeOAuth2:
			exchanger, err := NewOAuth2Exchanger(baseURL, clientConfig.Exchange, c.next)
			if err != nil {
				return err
			}
			c.exchanger = exchanger
			c.credentialPaths = append(c.credentialPaths, exchanger.TokenPath())
		default:
			return fmt.Errorf("unknown exchange type %q", clientConfig.Exchange.Type)
		}
		return nil
	}
}

func NewClient(options ...ClientOption) (*Client, error) {
	c := Client{
		next:               http.DefaultTransport,
		requestTimeout:     defaultRequestTimeout,
		refreshTimeout:     defaultRefreshTimeout,
		unauthorizedStatus: http.StatusUnauthorized,
		rotation:           RotationAuto,
		idGenerator:        models.ULIDGenerator{},
	}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Client{}, err
		}
	}
	if c.store == nil {
		return &Client{}, fmt.Errorf("credential store not initialized")
	}
	if c.exchanger == nil {
		return &Client{}, fmt.Errorf("credential exchanger not initialized")
	}
	if c.next == nil {
		return &Client{}, fmt.Errorf("the next transport cannot be nil")
	}
	if c.terminator == nil {
		c.terminator = NewSessionTerminator(c.store, nil)
	}
	d := &dispatcher{store: c.store, next: c.next, requestTimeout: c.requestTimeout}
	c.transport = &Transport{
		dispatcher: d,
		classifier: classifier{unauthorizedStatus: c.unauthorizedStatus, credentialPaths: c.credentialPaths},
		coordinator: &coordinator{
			store:          c.store,
			exchanger:      c.exchanger,
			terminator:     c.terminator,
			rotation:       c.rotation,
			refreshTimeout: c.refreshTimeout,
			idGenerator:    c.idGenerator,
		},
		replayer: replayer{dispatcher: d},
	}
	c.httpClient = &http.Client{Transport: c.transport}
	return &c, nil
}

// HTTPClient returns an http.Client that sends every request through the authenticated transport
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) Transport() *Transport {
	return c.transport
}

// Busy is true while requests sent with the client are running or its credentials are being
// refreshed. A busy client must not be replaced by another one for the same credentials.
func (c *Client) Busy() bool {
	return c.transport != nil && c.transport.Busy()
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// URL resolves a backend path against the configured backend url
func (c *Client) URL(backendPath string) (*url.URL, error) {
	if c.baseURL == nil {
		return nil, fmt.Errorf("the client has no backend url")
	}
	relative, err := url.Parse(backendPath)
	if err != nil {
		return nil, err
	}
	target := c.baseURL.JoinPath(relative.Path)
	if !strings.HasPrefix(target.Path, "/") {
		target.Path = "/" + target.Path
		target.RawPath = ""
	}
	target.RawQuery = relative.RawQuery
	return target, nil
}

// Login exchanges the user's password for credentials and stores them
func (c *Client) Login(ctx context.Context, username, password string) error {
	pair, err := c.exchanger.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, models.Credentials{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (c *Client) Register(ctx context.Context, registration RegistrationRequest) error {
	return c.exchanger.Register(ctx, registration)
}

// Logout clears the stored credentials
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Authenticated is true when an access token is stored
func (c *Client) Authenticated(ctx context.Context) (bool, error) {
	creds, err := c.store.Get(ctx)
	if err != nil {
		return false, err
	}
	return creds.AccessToken != "", nil
}

func (c *Client) Credentials(ctx context.Context) (models.Credentials, error) {
	return c.store.Get(ctx)
}
