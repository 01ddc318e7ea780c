package main

import (
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBackend(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-0","refresh_token":"refresh-0"}`))
	})
	mux.HandleFunc("/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/v1/plants", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-0" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"fern"}]`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func getTestConfig(t *testing.T, backendURL string) config.Config {
	parsed, err := url.Parse(backendURL + "/v1")
	require.NoError(t, err)
	return config.Config{
		RunningEnvironment: config.Development,
		Server:             config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		Backend:            config.BackendConfig{URL: parsed, APIPathPrefix: "/api"},
		Client: config.ClientConfig{
			RequestTimeout:       5 * time.Second,
			RefreshTimeout:       5 * time.Second,
			UnauthorizedStatus:   http.StatusUnauthorized,
			RefreshTokenRotation: config.RotationAuto,
			Exchange: config.ExchangeConfig{
				Type:        config.ExchangeTypeJSON,
				LoginPath:   "/auth/login",
				RefreshPath: "/auth/refresh",
			},
		},
		Sessions: config.SessionConfig{
			IdleSessionTTLSeconds: 3600,
			MaxSessionTTLSeconds:  7200,
			ClientIdleTTLSeconds:  600,
			UnsafeNoCookieHandler: true,
		},
		Redis: config.RedisConfig{Type: config.DBTypeRedisMock},
	}
}

func TestGatewayHealth(t *testing.T) {
	backend := setupBackend(t)
	gwConfig := getTestConfig(t, backend.URL)
	require.NoError(t, gwConfig.Validate())
	gw, err := newGateway(gwConfig)
	require.NoError(t, err)
	assert.Nil(t, gw.metrics)

	rec := httptest.NewRecorder()
	gw.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGatewayLoginAndProxy(t *testing.T) {
	backend := setupBackend(t)
	gwConfig := getTestConfig(t, backend.URL)
	require.NoError(t, gwConfig.Validate())
	gw, err := newGateway(gwConfig)
	require.NoError(t, err)
	// the session cookie is only sent over https
	server := httptest.NewTLSServer(gw.echo)
	defer server.Close()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := server.Client()
	client.Jar = jar
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	res, err := client.Post(
		server.URL+"/login",
		"application/x-www-form-urlencoded",
		strings.NewReader(url.Values{"username": {"fern"}, "password": {"secret"}, "redirect_url": {"/api/plants"}}.Encode()),
	)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/api/plants", res.Header.Get("Location"))

	res, err = client.Get(server.URL + "/api/plants")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, gw.clients.Len())
}
