package sessions

import (
	"log/slog"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
)

type SessionMaker interface {
	NewSession() (models.Session, error)
}

type SessionMakerImpl struct {
	idleSessionTTLSeconds int
	maxSessionTTLSeconds  int
	idGenerator           models.IDGenerator
}

func (sm *SessionMakerImpl) NewSession() (models.Session, error) {
	id, err := sm.idGenerator.ID()
	if err != nil {
		return models.Session{}, err
	}
	session := models.Session{
		ID:             id,
		CreatedAt:      time.Now().UTC(),
		IdleTTLSeconds: models.SerializableInt(sm.idleSessionTTLSeconds),
		MaxTTLSeconds:  models.SerializableInt(sm.maxSessionTTLSeconds),
	}
	session.ExpiresAt = session.CreatedAt.Add(session.IdleTTL())
	slog.Debug("NEW SESSION", "session", session)
	return session, nil
}

type SessionMakerOption func(*SessionMakerImpl) error

func WithIdleSessionTTLSeconds(s int) SessionMakerOption {
	return func(sm *SessionMakerImpl) error {
		sm.idleSessionTTLSeconds = s
		return nil
	}
}

func WithMaxSessionTTLSeconds(s int) SessionMakerOption {
	return func(sm *SessionMakerImpl) error {
		sm.maxSessionTTLSeconds = s
		return nil
	}
}

func WithSessionIDGenerator(g models.IDGenerator) SessionMakerOption {
	return func(sm *SessionMakerImpl) error {
		sm.idGenerator = g
		return nil
	}
}

func NewSessionMaker(options ...SessionMakerOption) SessionMaker {
	sm := SessionMakerImpl{idGenerator: models.NewRandomGenerator(24)}
	for _, opt := range options {
		opt(&sm)
	}
	return &sm
}
