package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Counters are usable as soon as the package loads; Register wires them into
// a registry at startup. Unregistered counters still count, they are just
// not scraped, which keeps tests free of registry setup.
var (
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Total number of access/refresh token pairs issued.",
	})
	TokensRefreshedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_refreshed_total",
		Help: "Total number of refresh-token rotations.",
	})
	SessionsEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_evicted_total",
		Help: "Total number of sessions evicted by admission control.",
	})
	SessionsRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_revoked_total",
		Help: "Total number of sessions explicitly revoked.",
	})
	JTIBlacklistedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_jti_blacklisted_total",
		Help: "Total number of access-token JTIs pushed to the revocation registry.",
	})
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_logins_failure_total",
		Help: "Total number of failed logins.",
	})
)

// Register registers the identity metrics with the given registry.
// It should be called once at application startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}

	for _, c := range []prometheus.Collector{
		TokensIssuedTotal, TokensRefreshedTotal, SessionsEvictedTotal,
		SessionsRevokedTotal, JTIBlacklistedTotal, LoginSuccessTotal,
		LoginFailureTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register metric")
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}
