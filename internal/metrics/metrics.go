package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "huddle_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Realtime metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_active_sessions",
			Help: "Currently connected authenticated sessions",
		},
	)

	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_ws_connections_total",
			Help: "Total WebSocket connections accepted",
		},
	)

	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_ws_auth_failures_total",
			Help: "Total WebSocket handshakes rejected for auth reasons",
		},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_users_registered_total",
			Help: "Total users registered",
		},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_messages_sent_total",
			Help: "Total messages persisted and broadcast",
		},
		[]string{"kind"}, // "text" or "image"
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_messages_rejected_total",
			Help: "Total messages rejected before broadcast",
		},
		[]string{"reason"}, // "moderation", "validation", "persistence"
	)

	GroupUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_group_updates_total",
			Help: "Total group metadata updates broadcast",
		},
	)

	ImagesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_images_uploaded_total",
			Help: "Total images uploaded",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
