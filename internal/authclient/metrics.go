package authclient

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess string = "success"
	outcomeFailure string = "failure"
)

var (
	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantcare",
			Subsystem: "authclient",
			Name:      "refresh_total",
			Help:      "Number of refresh token exchanges by outcome.",
		},
		[]string{"outcome"},
	)
	refreshWaitersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "plantcare",
			Subsystem: "authclient",
			Name:      "refresh_waiters_total",
			Help:      "Number of requests that waited for a running refresh.",
		},
	)
	replaysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "plantcare",
			Subsystem: "authclient",
			Name:      "replays_total",
			Help:      "Number of requests sent again after their credentials were refreshed.",
		},
	)
	staleTokenHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "plantcare",
			Subsystem: "authclient",
			Name:      "stale_token_hits_total",
			Help:      "Number of rejected requests replayed with a token refreshed by an earlier exchange.",
		},
	)
)

// RegisterMetrics adds the client metrics to reg. Registering them more than once is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{refreshTotal, refreshWaitersTotal, replaysTotal, staleTokenHitsTotal} {
		err := reg.Register(collector)
		if err != nil {
			var alreadyRegistered prometheus.AlreadyRegisteredError
			if errors.As(err, &alreadyRegistered) {
				continue
			}
			return err
		}
	}
	return nil
}
