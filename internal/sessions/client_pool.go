package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/authclient"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/credentials"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
	"github.com/go-co-op/gocron"
)

// ClientFactory creates the authenticated backend client of one session
type ClientFactory func(sessionID string) (*authclient.Client, error)

type pooledClient struct {
	client   *authclient.Client
	lastUsed time.Time
}

// ClientPool keeps one authenticated client per session so that all the concurrent requests of a
// session share the same refresh coordination. Clients that were not used for a while are dropped,
// their state is rebuilt from the credential store when the session comes back.
type ClientPool struct {
	factory   ClientFactory
	idleTTL   time.Duration
	lock      sync.Mutex
	clients   map[string]*pooledClient
	scheduler *gocron.Scheduler
}

// Get returns the client of the session, creating it if needed
func (p *ClientPool) Get(sessionID string) (*authclient.Client, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("cannot create a backend client without a session")
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	pooled, found := p.clients[sessionID]
	if found {
		pooled.lastUsed = time.Now()
		return pooled.client, nil
	}
	client, err := p.factory(sessionID)
	if err != nil {
		return nil, err
	}
	p.clients[sessionID] = &pooledClient{client: client, lastUsed: time.Now()}
	return client, nil
}

func (p *ClientPool) Remove(sessionID string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.clients, sessionID)
}

// removeClient drops the session's client only if it is still client
func (p *ClientPool) removeClient(sessionID string, client *authclient.Client) {
	p.lock.Lock()
	defer p.lock.Unlock()
	pooled, found := p.clients[sessionID]
	if found && pooled.client == client {
		delete(p.clients, sessionID)
	}
}

func (p *ClientPool) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.clients)
}

// evictIdle drops the clients not used since the idle TTL. Busy clients are kept, a second client
// for the same session would run its own refresh next to theirs.
func (p *ClientPool) evictIdle() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	evicted := 0
	cutoff := time.Now().Add(-p.idleTTL)
	for sessionID, pooled := range p.clients {
		if pooled.lastUsed.Before(cutoff) && !pooled.client.Busy() {
			delete(p.clients, sessionID)
			evicted++
		}
	}
	return evicted
}

// Start runs the eviction job in the background until Stop is called
func (p *ClientPool) Start() error {
	if p.idleTTL <= 0 {
		return nil
	}
	interval := p.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	p.scheduler = gocron.NewScheduler(time.UTC)
	_, err := p.scheduler.Every(interval).Do(func() {
		evicted := p.evictIdle()
		if evicted > 0 {
			slog.Debug("CLIENT POOL", "message", "evicted idle backend clients", "count", evicted)
		}
	})
	if err != nil {
		return err
	}
	p.scheduler.StartAsync()
	return nil
}

func (p *ClientPool) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}

type ClientPoolOption func(*ClientPool) error

func WithClientFactory(factory ClientFactory) ClientPoolOption {
	return func(p *ClientPool) error {
		p.factory = factory
		return nil
	}
}

func WithClientIdleTTL(ttl time.Duration) ClientPoolOption {
	return func(p *ClientPool) error {
		p.idleTTL = ttl
		return nil
	}
}

func NewClientPool(options ...ClientPoolOption) (*ClientPool, error) {
	p := ClientPool{clients: map[string]*pooledClient{}}
	for _, opt := range options {
		err := opt(&p)
		if err != nil {
			return &ClientPool{}, err
		}
	}
	if p.factory == nil {
		return &ClientPool{}, fmt.Errorf("client factory is not initialized")
	}
	return &p, nil
}

// NewSessionClientFactory builds clients whose credentials live in the session's credential store.
// When a refresh fails the session is removed from the repository and its client from the pool.
func NewSessionClientFactory(
	backendURL *url.URL,
	clientConfig config.ClientConfig,
	credentialsRepo models.CredentialsRepository,
	sessionRemover models.SessionRemover,
	pool func() *ClientPool,
	next http.RoundTripper,
) ClientFactory {
	return func(sessionID string) (*authclient.Client, error) {
		var client *authclient.Client
		store := credentials.NewSessionStore(sessionID, credentialsRepo)
		redirect := func(ctx context.Context, cause error) {
			slog.Info("SESSION TERMINATOR", "message", "ending session after failed refresh", "cause", cause)
			err := sessionRemover.RemoveSession(ctx, sessionID)
			if err != nil {
				slog.Error("SESSION TERMINATOR", "message", "could not remove the session", "error", err)
			}
			if p := pool(); p != nil {
				p.removeClient(sessionID, client)
			}
		}
		options := []authclient.ClientOption{authclient.WithStore(store)}
		if next != nil {
			options = append(options, authclient.WithNextTransport(next))
		}
		options = append(
			options,
			authclient.WithConfig(backendURL, clientConfig),
			authclient.WithTerminator(authclient.NewSessionTerminator(store, redirect)),
		)
		var err error
		client, err = authclient.NewClient(options...)
		return client, err
	}
}
