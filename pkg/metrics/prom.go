package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// ActiveSessions tracks connected dashboard sessions.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reviews_dashboard_active_sessions",
			Help: "Number of connected dashboard sessions",
		},
	)

	// FeedbackFetches counts engine fetches against the feedbacks API.
	FeedbackFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_dashboard_feedback_fetches_total",
			Help: "Total number of feedback page fetches",
		},
		[]string{"kind"}, // kind: refresh, load_more
	)

	// GeneratedReplies counts reply generations by outcome.
	GeneratedReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_dashboard_generated_replies_total",
			Help: "Total number of AI reply generations",
		},
		[]string{"status"}, // status: ok, failed
	)

	// SentReplies counts reply submissions by outcome.
	SentReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_dashboard_sent_replies_total",
			Help: "Total number of replies submitted to the marketplace",
		},
		[]string{"status"}, // status: ok, failed
	)

	// APIErrors tracks upstream provider errors.
	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_dashboard_api_errors_total",
			Help: "Total number of upstream API errors",
		},
		[]string{"api", "operation"}, // api: wb, openai, orders
	)
)

func init() {
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(FeedbackFetches)
	prometheus.MustRegister(GeneratedReplies)
	prometheus.MustRegister(SentReplies)
	prometheus.MustRegister(APIErrors)
}

// MustServe exposes Prometheus metrics on the given address (e.g., ":9090").
// It launches http.Server in a separate goroutine and fatal-logs on startup
// failure. Returns the server so the caller can gracefully shutdown.
func MustServe(addr string, log *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Infow("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("metrics server failed", "err", err)
		}
	}()

	return srv
}

// IncrementAPIError increments the upstream error counter.
func IncrementAPIError(api, operation string) {
	APIErrors.WithLabelValues(api, operation).Inc()
}
