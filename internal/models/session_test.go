package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionTouchRespectsMaxTTL(t *testing.T) {
	session := Session{
		CreatedAt:      time.Now().UTC().Add(-50 * time.Minute),
		IdleTTLSeconds: 3600,
		MaxTTLSeconds:  3600,
	}

	session.Touch()

	assert.WithinDuration(t, session.CreatedAt.Add(time.Hour), session.ExpiresAt, time.Second)
	assert.False(t, session.Expired())
}

func TestSessionTouchWithoutMaxTTL(t *testing.T) {
	session := Session{CreatedAt: time.Now().UTC().Add(-50 * time.Hour), IdleTTLSeconds: 60}

	session.Touch()

	assert.WithinDuration(t, time.Now().UTC().Add(time.Minute), session.ExpiresAt, time.Second)
}

func TestSessionExpired(t *testing.T) {
	session := Session{ExpiresAt: time.Now().UTC().Add(-time.Second)}
	assert.True(t, session.Expired())
}
