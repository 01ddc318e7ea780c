package authclient

import (
	"context"
	"errors"
	"testing"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/credentials"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Terminator = &SessionTerminator{}
var _ Terminator = TerminatorFunc(nil)

func TestSessionTerminatorClearsThenRedirects(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(ctx, loggedIn))
	cause := errors.New("refresh token revoked")

	var seenCredentials models.Credentials
	var seenCause error
	terminator := NewSessionTerminator(store, func(ctx context.Context, err error) {
		seenCredentials, _ = store.Get(ctx)
		seenCause = err
	})
	terminator.Terminate(ctx, cause)

	assert.True(t, seenCredentials.Empty())
	assert.Equal(t, cause, seenCause)
	creds, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}

func TestSessionTerminatorWithoutRedirect(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(ctx, loggedIn))
	NewSessionTerminator(store, nil).Terminate(ctx, errors.New("expired"))
	creds, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}

func TestTerminatorFunc(t *testing.T) {
	called := false
	TerminatorFunc(func(context.Context, error) { called = true }).Terminate(context.Background(), nil)
	assert.True(t, called)
}
