package authclient

import (
	"context"
	"log/slog"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/credentials"
)

// Terminator ends a session whose credentials can no longer be refreshed.
// It is called once per failed refresh and never retried.
type Terminator interface {
	Terminate(ctx context.Context, cause error)
}

// TerminatorFunc adapts a function to the Terminator interface
type TerminatorFunc func(ctx context.Context, cause error)

func (f TerminatorFunc) Terminate(ctx context.Context, cause error) {
	f(ctx, cause)
}

// SessionTerminator clears the credential store and then sends the user agent to the login surface
// through the redirect callback.
type SessionTerminator struct {
	store    credentials.Store
	redirect func(ctx context.Context, cause error)
}

func NewSessionTerminator(store credentials.Store, redirect func(ctx context.Context, cause error)) *SessionTerminator {
	return &SessionTerminator{store: store, redirect: redirect}
}

func (s *SessionTerminator) Terminate(ctx context.Context, cause error) {
	err := s.store.Clear(ctx)
	if err != nil {
		slog.Error("SESSION TERMINATOR", "message", "could not clear the credentials", "error", err)
	}
	if s.redirect != nil {
		s.redirect(ctx, cause)
	}
}
