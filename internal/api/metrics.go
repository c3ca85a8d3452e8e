package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatched = "unmatched"

// Auth rejection reasons.
const (
	authMissing = "missing"
	authInvalid = "invalid"
)

// Challenge outcomes.
const (
	outcomeDecoded   = "decoded"
	outcomeUndecoded = "undecoded"
	outcomeFailed    = "failed"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytcipher_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytcipher_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by route.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	authRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytcipher_http_auth_rejections_total",
			Help: "Requests rejected by bearer authentication, by reason.",
		},
		[]string{"reason"},
	)

	challengesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytcipher_challenges_total",
			Help: "Challenges received on /decrypt_signature by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(authRejections)
	prometheus.MustRegister(challengesTotal)
}

// metricsMiddleware records request count and duration labelled by the chi
// route pattern, so /v1/jobs/{id} is one series regardless of the id.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routePattern returns the matched chi route pattern, or "unmatched".
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

// observeChallenge counts one requested challenge. Empty challenges were not
// requested and are skipped.
func observeChallenge(kind, challenge string, decoded bool, err error) {
	if challenge == "" {
		return
	}
	outcome := outcomeUndecoded
	switch {
	case err != nil:
		outcome = outcomeFailed
	case decoded:
		outcome = outcomeDecoded
	}
	challengesTotal.WithLabelValues(kind, outcome).Inc()
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
