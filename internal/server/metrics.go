// metrics.go - Prometheus counters exposed on /metrics.
package server

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docshare_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "code"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docshare_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	tokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docshare_tokens_issued_total",
		Help: "Capability tokens minted, by purpose.",
	}, []string{"purpose"})

	tokenRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docshare_token_rejections_total",
		Help: "Capability tokens rejected, by reason.",
	}, []string{"reason"})

	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docshare_uploads_total",
		Help: "Successfully stored uploads.",
	})

	downloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docshare_downloads_total",
		Help: "Authorized download redemptions.",
	})
)

// recordTokenRejection maps a codec error to a rejection reason label.
// The label is internal only; the HTTP response stays collapsed.
func recordTokenRejection(err error) {
	switch {
	case errors.Is(err, errTokenExpired):
		tokenRejections.WithLabelValues("expired").Inc()
	case errors.Is(err, errBadSignature):
		tokenRejections.WithLabelValues("bad_signature").Inc()
	default:
		tokenRejections.WithLabelValues("malformed").Inc()
	}
}
