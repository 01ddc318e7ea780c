package db

import (
	"context"
	"errors"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
)

const sessionPrefix string = "session"

// GetSession loads a session hash. Unknown ids, including the empty one, and hashes that
// expired in redis are reported as ErrSessionNotFound.
func (r RedisAdapter) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	if sessionID == "" {
		return models.Session{}, gwerrors.ErrSessionNotFound
	}
	raw, err := r.rdb.HGetAll(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return models.Session{}, err
	}
	var session models.Session
	err = r.deserializeToStruct(raw, &session)
	if errors.Is(err, gwerrors.ErrMissingDBResource) {
		return models.Session{}, gwerrors.ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	if session.ID != sessionID {
		return models.Session{}, gwerrors.ErrSessionNotFound
	}
	return session, nil
}

// SetSession writes the session hash, redis drops it a little after the session expires
func (r RedisAdapter) SetSession(ctx context.Context, session models.Session) error {
	if session.ID == "" {
		return gwerrors.ErrSessionNotFound
	}
	key := r.sessionKey(session.ID)
	if err := r.rdb.HSet(ctx, key, r.serializeStruct(session)...).Err(); err != nil {
		return err
	}
	return r.rdb.ExpireAt(ctx, key, session.ExpiresAt.Add(expiresAtLeeway)).Err()
}

// RemoveSession deletes the session together with the backend credentials stored for it
func (r RedisAdapter) RemoveSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return r.rdb.Del(ctx, r.sessionKey(sessionID), r.credentialsKey(sessionID)).Err()
}

func (RedisAdapter) sessionKey(sessionID string) string {
	return sessionPrefix + ":" + sessionID
}
