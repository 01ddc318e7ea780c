package authclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/credentials"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
	"github.com/stretchr/testify/require"
)

const expiredBody string = `{"detail":"token expired"}`

// fakeBackend accepts a single valid access token on its protected endpoints and
// issues the next one from its refresh endpoint.
type fakeBackend struct {
	lock           sync.Mutex
	validToken     string
	issuedToken    string
	issuedRefresh  string
	refreshStatus  int
	refreshDelay   time.Duration
	rejectAll      bool
	refreshGate    chan struct{}
	receivedTokens []string
	receivedBodies []string

	refreshCalls atomic.Int32
	apiCalls     atomic.Int32
	server       *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{
		validToken:    "access-0",
		issuedToken:   "access-1",
		refreshStatus: http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", b.login)
	mux.HandleFunc("/auth/register", b.register)
	mux.HandleFunc("/auth/refresh", b.refresh)
	mux.HandleFunc("/api/", b.protected)
	mux.HandleFunc("/public", b.public)
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) url(t *testing.T) *url.URL {
	u, err := url.Parse(b.server.URL)
	require.NoError(t, err)
	return u
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid credentials"}`))
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"accessToken":"` + b.validToken + `","refreshToken":"refresh-0"}`))
}

func (b *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var req RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (b *fakeBackend) refresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	b.lock.Lock()
	gate, delay := b.refreshGate, b.refreshDelay
	b.lock.Unlock()
	if gate != nil {
		<-gate
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.refreshStatus != http.StatusOK {
		w.WriteHeader(b.refreshStatus)
		_, _ = w.Write([]byte(`{"detail":"refresh token expired"}`))
		return
	}
	b.validToken = b.issuedToken
	res := map[string]string{"access_token": b.issuedToken}
	if b.issuedRefresh != "" {
		res["refresh_token"] = b.issuedRefresh
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (b *fakeBackend) protected(w http.ResponseWriter, r *http.Request) {
	b.apiCalls.Add(1)
	body, _ := io.ReadAll(r.Body)
	b.lock.Lock()
	b.receivedTokens = append(b.receivedTokens, r.Header.Get("Authorization"))
	b.receivedBodies = append(b.receivedBodies, string(body))
	valid := !b.rejectAll && r.Header.Get("Authorization") == "Bearer "+b.validToken
	b.lock.Unlock()
	if !valid {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(expiredBody))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"plants":[]}`))
}

func (b *fakeBackend) public(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	b.receivedTokens = append(b.receivedTokens, r.Header.Get("Authorization"))
	b.lock.Unlock()
	_, _ = w.Write([]byte(`ok`))
}

// expire makes the current access token invalid, the next refresh issues access-1
func (b *fakeBackend) expire() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.validToken = "not-issued-yet"
}

func (b *fakeBackend) gate() chan struct{} {
	gate := make(chan struct{})
	b.lock.Lock()
	b.refreshGate = gate
	b.lock.Unlock()
	return gate
}

func (b *fakeBackend) tokens() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string{}, b.receivedTokens...)
}

type terminatorSpy struct {
	calls  atomic.Int32
	lock   sync.Mutex
	causes []error
}

func (s *terminatorSpy) redirect(_ context.Context, cause error) {
	s.calls.Add(1)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.causes = append(s.causes, cause)
}

func testClientConfig() config.ClientConfig {
	return config.ClientConfig{
		RequestTimeout:       5 * time.Second,
		RefreshTimeout:       5 * time.Second,
		UnauthorizedStatus:   http.StatusUnauthorized,
		RefreshTokenRotation: config.RotationAuto,
		Exchange: config.ExchangeConfig{
			Type:         config.ExchangeTypeJSON,
			LoginPath:    "/auth/login",
			RegisterPath: "/auth/register",
			RefreshPath:  "/auth/refresh",
		},
	}
}

type testClient struct {
	*Client
	store *credentials.MemoryStore
	spy   *terminatorSpy
}

func newTestClient(t *testing.T, backend *fakeBackend, creds models.Credentials, options ...ClientOption) testClient {
	return newTestClientWithConfig(t, backend, testClientConfig(), creds, options...)
}

func newTestClientWithConfig(t *testing.T, backend *fakeBackend, clientConfig config.ClientConfig, creds models.Credentials, options ...ClientOption) testClient {
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), creds))
	spy := &terminatorSpy{}
	options = append(
		[]ClientOption{
			WithStore(store),
			WithConfig(backend.url(t), clientConfig),
			WithTerminator(NewSessionTerminator(store, spy.redirect)),
		},
		options...,
	)
	client, err := NewClient(options...)
	require.NoError(t, err)
	return testClient{Client: client, store: store, spy: spy}
}

func (c testClient) get(t *testing.T, ctx context.Context, path string) (*http.Response, string, error) {
	target, err := c.URL(path)
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body), nil
}

func (c testClient) stored(t *testing.T) models.Credentials {
	creds, err := c.store.Get(context.Background())
	require.NoError(t, err)
	return creds
}

func (c testClient) waiters() int {
	co := c.transport.coordinator
	co.lock.Lock()
	defer co.lock.Unlock()
	return len(co.waiters)
}

func (c testClient) refreshing() bool {
	co := c.transport.coordinator
	co.lock.Lock()
	defer co.lock.Unlock()
	return co.refreshing
}
