package authclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/credentials"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
	_, err = NewClient(WithStore(credentials.NewMemoryStore()))
	assert.Error(t, err)
	_, err = NewClient(WithStore(credentials.NewMemoryStore()), WithExchanger(&stubExchanger{}), WithNextTransport(nil))
	assert.Error(t, err)
	_, err = NewClient(WithStore(credentials.NewMemoryStore()), WithExchanger(&stubExchanger{}), WithRotationPolicy("sometimes"))
	assert.Error(t, err)
	_, err = NewClient(WithStore(credentials.NewMemoryStore()), WithExchanger(&stubExchanger{}), WithRefreshTimeout(0))
	assert.Error(t, err)
	client, err := NewClient(
		WithStore(credentials.NewMemoryStore()),
		WithExchanger(&stubExchanger{}),
		WithRequestTimeout(defaultRequestTimeout),
		WithUnauthorizedStatus(http.StatusUnauthorized),
		WithCredentialPaths("/auth/login"),
		WithIDGenerator(models.ULIDGenerator{}),
	)
	require.NoError(t, err)
	assert.NotNil(t, client.HTTPClient())
	assert.Equal(t, client.Transport(), client.HTTPClient().Transport)
	_, err = client.URL("/plants")
	assert.Error(t, err)
}

func TestWithConfig(t *testing.T) {
	baseURL, err := url.Parse("https://plants.example.org/v1")
	require.NoError(t, err)
	client, err := NewClient(WithStore(credentials.NewMemoryStore()), WithConfig(baseURL, testClientConfig()))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/v1/auth/login", "/v1/auth/register", "/v1/auth/refresh"}, client.transport.classifier.credentialPaths)
	target, err := client.URL("/plants/3?include=care")
	require.NoError(t, err)
	assert.Equal(t, "https://plants.example.org/v1/plants/3?include=care", target.String())

	clientConfig := testClientConfig()
	clientConfig.Exchange.Type = config.ExchangeTypeOAuth2
	clientConfig.Exchange.OAuth2 = config.OAuth2ExchangeConfig{TokenURL: "https://sso.example.org/oauth/token", ClientID: "plantcare"}
	client, err = NewClient(WithStore(credentials.NewMemoryStore()), WithConfig(baseURL, clientConfig))
	require.NoError(t, err)
	assert.Contains(t, client.transport.classifier.credentialPaths, "/oauth/token")

	clientConfig.Exchange.Type = "xml"
	_, err = NewClient(WithStore(credentials.NewMemoryStore()), WithConfig(baseURL, clientConfig))
	assert.Error(t, err)
	_, err = NewClient(WithStore(credentials.NewMemoryStore()), WithConfig(nil, testClientConfig()))
	assert.Error(t, err)
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, models.Credentials{})

	authenticated, err := client.Authenticated(ctx)
	require.NoError(t, err)
	assert.False(t, authenticated)

	err = client.Login(ctx, "fern", "wrong")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.True(t, client.stored(t).Empty())

	require.NoError(t, client.Login(ctx, "fern", "secret"))
	authenticated, err = client.Authenticated(ctx)
	require.NoError(t, err)
	assert.True(t, authenticated)
	creds, err := client.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, loggedIn, creds)

	resp, _, err := client.get(t, ctx, "/api/plants")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, client.Logout(ctx))
	authenticated, err = client.Authenticated(ctx)
	require.NoError(t, err)
	assert.False(t, authenticated)
}

func TestRegister(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, models.Credentials{})
	require.NoError(t, client.Register(context.Background(), RegistrationRequest{Username: "fern", Password: "secret"}))
	assert.Error(t, client.Register(context.Background(), RegistrationRequest{}))
	assert.True(t, client.stored(t).Empty())
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	// a second registration is tolerated
	require.NoError(t, RegisterMetrics(reg))

	backend := newFakeBackend(t)
	backend.expire()
	client := newTestClient(t, backend, loggedIn)
	_, _, err := client.get(t, context.Background(), "/api/plants")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := []string{}
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "plantcare_authclient_refresh_total")
	assert.Contains(t, names, "plantcare_authclient_replays_total")
}

func TestURLWithoutBasePath(t *testing.T) {
	baseURL, err := url.Parse("http://127.0.0.1:8000")
	require.NoError(t, err)
	client, err := NewClient(WithStore(credentials.NewMemoryStore()), WithConfig(baseURL, testClientConfig()))
	require.NoError(t, err)
	target, err := client.URL("/plants")
	require.NoError(t, err)
	assert.Equal(t, "/plants", target.Path)
	assert.Equal(t, "/plants", target.RequestURI())
	assert.False(t, client.Busy())
}
