package authclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/credentials"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
)

type refreshOutcome struct {
	token string
	err   error
}

// coordinator makes sure that at most one refresh exchange runs at a time for one credential store.
// Requests that need a fresh token while an exchange is running wait for its outcome.
type coordinator struct {
	store          credentials.Store
	exchanger      Exchanger
	terminator     Terminator
	rotation       RotationPolicy
	refreshTimeout time.Duration
	idGenerator    models.IDGenerator

	lock       sync.Mutex
	refreshing bool
	refreshID  string
	// released in arrival order
	waiters []chan refreshOutcome
}

// obtainFreshToken returns an access token that can be used to replay a request that was rejected
// while carrying staleToken.
func (c *coordinator) obtainFreshToken(ctx context.Context, staleToken string) (string, error) {
	c.lock.Lock()
	if c.refreshing {
		outcome := make(chan refreshOutcome, 1)
		c.waiters = append(c.waiters, outcome)
		refreshID := c.refreshID
		position := len(c.waiters)
		c.lock.Unlock()
		refreshWaitersTotal.Inc()
		slog.Debug(
			"REFRESH COORDINATOR",
			"message", "waiting for the running refresh",
			"refreshID", refreshID,
			"position", position,
		)
		return c.wait(ctx, outcome)
	}
	creds, err := c.store.Get(ctx)
	if err != nil {
		c.lock.Unlock()
		return "", err
	}
	if creds.AccessToken != "" && creds.AccessToken != staleToken {
		// the expiry of staleToken was already handled by a refresh that has completed
		c.lock.Unlock()
		staleTokenHitsTotal.Inc()
		return creds.AccessToken, nil
	}
	refreshID, err := c.idGenerator.ID()
	if err != nil {
		refreshID = "unknown"
	}
	c.refreshing = true
	c.refreshID = refreshID
	c.lock.Unlock()

	slog.Info("REFRESH COORDINATOR", "message", "starting refresh", "refreshID", refreshID)
	token, err := c.refresh(ctx, creds)
	if err != nil {
		err = fmt.Errorf("%w: %w", gwerrors.ErrRefreshFailed, err)
		refreshTotal.WithLabelValues(outcomeFailure).Inc()
		slog.Error("REFRESH COORDINATOR", "message", "refresh failed, terminating the session", "refreshID", refreshID, "error", err)
		// the store is cleared before anyone is released so that no request can pick up the
		// refresh token that was just rejected
		c.terminator.Terminate(context.WithoutCancel(ctx), err)
		c.release(refreshOutcome{err: err})
		return "", err
	}
	refreshTotal.WithLabelValues(outcomeSuccess).Inc()
	released := c.release(refreshOutcome{token: token})
	slog.Info("REFRESH COORDINATOR", "message", "refresh succeeded", "refreshID", refreshID, "releasedWaiters", released)
	return token, nil
}

func (c *coordinator) isRefreshing() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.refreshing
}

func (c *coordinator) wait(ctx context.Context, outcome <-chan refreshOutcome) (string, error) {
	select {
	case res := <-outcome:
		return res.token, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// release ends the running refresh and hands its outcome to every waiter, in arrival order
func (c *coordinator) release(outcome refreshOutcome) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.refreshID = ""
	for _, waiter := range waiters {
		waiter <- outcome
	}
	return len(waiters)
}

// refresh exchanges the refresh token and persists the result. The caller going away does not
// cancel the exchange, only the refresh timeout does.
func (c *coordinator) refresh(ctx context.Context, creds models.Credentials) (string, error) {
	if creds.RefreshToken == "" {
		return "", gwerrors.ErrMissingCredentials
	}
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()
	pair, err := c.exchanger.Refresh(refreshCtx, creds.RefreshToken)
	if err != nil {
		return "", err
	}
	next, err := c.rotation.apply(creds, pair)
	if err != nil {
		return "", err
	}
	err = c.store.Set(refreshCtx, next)
	if err != nil {
		return "", err
	}
	return next.AccessToken, nil
}
