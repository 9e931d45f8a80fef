package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex_auth", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex_auth", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex_auth", Name: "tokens_issued_total", Help: "Number of signed tokens by type (access, refresh)."},
		[]string{"type"},
	)
	GateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex_auth", Name: "gate_decisions_total", Help: "Authorization gate outcomes (authorized, unauthorized, forbidden)."},
		[]string{"outcome"},
	)
	Signins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex_auth", Name: "signins_total", Help: "Signin attempts by method (password, google, yandex) and outcome."},
		[]string{"method", "outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(TokensIssued)
	reg.MustRegister(GateDecisions)
	reg.MustRegister(Signins)
}
