package credentials

import (
	"context"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
)

// SessionStore exposes the credentials of a single gateway session as a Store.
type SessionStore struct {
	sessionID  string
	repository models.CredentialsRepository
}

func NewSessionStore(sessionID string, repository models.CredentialsRepository) *SessionStore {
	return &SessionStore{sessionID: sessionID, repository: repository}
}

func (s *SessionStore) Get(ctx context.Context) (models.Credentials, error) {
	return s.repository.GetCredentials(ctx, s.sessionID)
}

func (s *SessionStore) Set(ctx context.Context, credentials models.Credentials) error {
	return s.repository.SetCredentials(ctx, s.sessionID, credentials)
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.repository.RemoveCredentials(ctx, s.sessionID)
}
