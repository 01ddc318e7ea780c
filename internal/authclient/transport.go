package authclient

import (
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/gwerrors"
)

// Transport is an http.RoundTripper that attaches the stored access token to every request and,
// when the backend rejects it, refreshes the credentials once and replays the request once.
type Transport struct {
	dispatcher  *dispatcher
	classifier  classifier
	coordinator *coordinator
	replayer    replayer

	inFlight atomic.Int64
}

// Busy is true while a request is going through the transport or a refresh exchange is running
func (t *Transport) Busy() bool {
	return t.inFlight.Load() > 0 || t.coordinator.isRefreshing()
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.inFlight.Add(1)
	defer t.inFlight.Add(-1)
	pending, err := newPendingRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := t.dispatcher.dispatch(pending, "")
	for t.classifier.classify(pending, resp, err) == refreshAndRetry {
		// kept so that it can be returned if the credentials cannot be refreshed
		original, bufErr := bufferResponse(resp)
		if bufErr != nil {
			return nil, bufErr
		}
		token, refreshErr := t.coordinator.obtainFreshToken(req.Context(), pending.sentToken)
		if refreshErr != nil {
			if !errors.Is(refreshErr, gwerrors.ErrRefreshFailed) {
				// the caller went away or the store could not be read
				return nil, refreshErr
			}
			slog.Debug(
				"AUTH TRANSPORT",
				"message", "credentials could not be refreshed, returning the original response",
				"path", req.URL.Path,
				"error", refreshErr,
			)
			return original, nil
		}
		resp, err = t.replayer.replay(pending, token)
	}
	return resp, err
}
