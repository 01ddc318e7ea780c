package authclient

import (
	"log/slog"
	"net/http"
)

// replayer sends a pending request a second and last time after its credentials were refreshed
type replayer struct {
	dispatcher *dispatcher
}

func (r replayer) replay(p *pendingRequest, token string) (*http.Response, error) {
	p.alreadyRetried = true
	replaysTotal.Inc()
	slog.Debug(
		"RETRY REPLAYER",
		"message", "replaying request with refreshed credentials",
		"method", p.original.Method,
		"path", p.original.URL.Path,
	)
	return r.dispatcher.dispatch(p, token)
}
