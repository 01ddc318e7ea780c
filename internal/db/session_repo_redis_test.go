package db

import (
	"context"
	"testing"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ models.SessionRepository = RedisAdapter{}
var _ models.CredentialsRepository = RedisAdapter{}

func TestSetGetSession(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Second)
	mySession := models.Session{
		ID:               "12345",
		CreatedAt:        now,
		ExpiresAt:        now.Add(time.Hour),
		IdleTTLSeconds:   3600,
		MaxTTLSeconds:    7200,
		LoginRedirectURL: "/plants",
	}
	err = adapter.SetSession(ctx, mySession)
	require.NoError(t, err)
	session, err := adapter.GetSession(ctx, mySession.ID)
	require.NoError(t, err)
	assert.Equal(t, mySession.ID, session.ID)
	assert.True(t, mySession.CreatedAt.Equal(session.CreatedAt))
	assert.True(t, mySession.ExpiresAt.Equal(session.ExpiresAt))
	assert.Equal(t, mySession.IdleTTLSeconds, session.IdleTTLSeconds)
	assert.Equal(t, mySession.MaxTTLSeconds, session.MaxTTLSeconds)
	assert.Equal(t, mySession.LoginRedirectURL, session.LoginRedirectURL)

	err = adapter.RemoveSession(ctx, mySession.ID)
	require.NoError(t, err)
	_, err = adapter.GetSession(ctx, mySession.ID)
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
}

func TestExpiredSessionIsGone(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)
	mySession := models.Session{
		ID:        "12345",
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, adapter.SetSession(ctx, mySession))
	_, err = adapter.GetSession(ctx, mySession.ID)
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
}

func TestRemoveSessionRemovesCredentials(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)
	mySession := models.Session{ID: "12345", CreatedAt: time.Now().UTC(), ExpiresAt: time.Now().UTC().Add(time.Hour)}
	require.NoError(t, adapter.SetSession(ctx, mySession))
	require.NoError(t, adapter.SetCredentials(ctx, mySession.ID, models.Credentials{AccessToken: "access", RefreshToken: "refresh"}))
	require.NoError(t, adapter.SetCredentials(ctx, "other", models.Credentials{AccessToken: "access", RefreshToken: "refresh"}))

	require.NoError(t, adapter.RemoveSession(ctx, mySession.ID))
	_, err = adapter.GetSession(ctx, mySession.ID)
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
	creds, err := adapter.GetCredentials(ctx, mySession.ID)
	require.NoError(t, err)
	assert.True(t, creds.Empty())
	creds, err = adapter.GetCredentials(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "access", creds.AccessToken)
}

func TestSessionWithoutID(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)
	_, err = adapter.GetSession(ctx, "")
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
	err = adapter.SetSession(ctx, models.Session{ExpiresAt: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
	assert.NoError(t, adapter.RemoveSession(ctx, ""))
}

func TestNewRedisAdapterRequiresClient(t *testing.T) {
	_, err := NewRedisAdapter()
	assert.Error(t, err)
	_, err = NewRedisAdapter(WithRedisConfig(config.RedisConfig{Type: "postgres"}))
	assert.Error(t, err)
	adapter, err := NewRedisAdapter(WithRedisConfig(config.RedisConfig{Type: config.DBTypeRedisMock}))
	require.NoError(t, err)
	assert.NotNil(t, adapter)
}
