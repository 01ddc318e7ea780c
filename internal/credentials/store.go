// Package credentials holds the bearer credentials of one user agent. Only login, a successful refresh
// and session teardown are expected to write to a store.
package credentials

import (
	"context"
	"sync"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
)

// Store is the persistent holder of the access and refresh token. A missing record is
// not an error, Get returns empty credentials instead.
type Store interface {
	Get(ctx context.Context) (models.Credentials, error)
	// Set replaces both tokens at once
	Set(ctx context.Context, credentials models.Credentials) error
	// Clear removes both tokens at once, clearing an empty store is not an error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the credentials in memory, they are lost on restart.
type MemoryStore struct {
	lock        sync.RWMutex
	credentials models.Credentials
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(context.Context) (models.Credentials, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.credentials, nil
}

func (m *MemoryStore) Set(_ context.Context, credentials models.Credentials) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.credentials = credentials
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.credentials = models.Credentials{}
	return nil
}
