package authclient

import (
	"context"
	"testing"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRotationPolicy(t *testing.T) {
	policy, err := ParseRotationPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RotationAuto, policy)
	policy, err = ParseRotationPolicy("always")
	require.NoError(t, err)
	assert.Equal(t, RotationAlways, policy)
	_, err = ParseRotationPolicy("sometimes")
	assert.Error(t, err)
}

func TestRotationPolicies(t *testing.T) {
	current := models.Credentials{AccessToken: "access-0", RefreshToken: "refresh-0"}
	tests := []struct {
		name     string
		policy   RotationPolicy
		pair     models.TokenPair
		expected models.Credentials
		err      error
	}{
		{"auto with rotation", RotationAuto, models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, models.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}, nil},
		{"auto without rotation", RotationAuto, models.TokenPair{AccessToken: "access-1"}, models.Credentials{AccessToken: "access-1", RefreshToken: "refresh-0"}, nil},
		{"never with rotation", RotationNever, models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, models.Credentials{AccessToken: "access-1", RefreshToken: "refresh-0"}, nil},
		{"always with rotation", RotationAlways, models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, models.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}, nil},
		{"always without rotation", RotationAlways, models.TokenPair{AccessToken: "access-1"}, models.Credentials{}, gwerrors.ErrRefreshTokenNotRotated},
		{"always with the same refresh token", RotationAlways, models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-0"}, models.Credentials{}, gwerrors.ErrRefreshTokenNotRotated},
		{"missing access token", RotationAuto, models.TokenPair{RefreshToken: "refresh-1"}, models.Credentials{}, gwerrors.ErrInvalidCredentialsResponse},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			next, err := test.policy.apply(current, test.pair)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, next)
		})
	}
}

func TestAlwaysRotateFailureTearsDown(t *testing.T) {
	backend := newFakeBackend(t)
	backend.expire()
	clientConfig := testClientConfig()
	clientConfig.RefreshTokenRotation = "always"
	client := newTestClientWithConfig(t, backend, clientConfig, loggedIn)

	resp, _, err := client.get(t, context.Background(), "/api/plants")
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
	assert.Equal(t, int32(1), client.spy.calls.Load())
	assert.True(t, client.stored(t).Empty())
}

func TestRotatedRefreshTokenIsStored(t *testing.T) {
	backend := newFakeBackend(t)
	backend.expire()
	backend.issuedRefresh = "refresh-1"
	client := newTestClient(t, backend, loggedIn)

	resp, _, err := client.get(t, context.Background(), "/api/plants")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, models.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}, client.stored(t))
}
