package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_http_requests_total",
			Help: "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// ReservationAttempts counts createReservation outcomes: created, conflict, invalid, error.
	ReservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reservation_attempts_total",
			Help: "Reservation create attempts by outcome.",
		},
		[]string{"outcome"},
	)

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reservation_transitions_total",
			Help: "Applied reservation state transitions.",
		},
		[]string{"from", "to"},
	)

	SlotsComputed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_slots_returned",
			Help:    "Number of slots returned per availability query.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	BlocksChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_blocks_changed_total",
			Help: "Administrative block changes.",
		},
		[]string{"op"},
	)

	OutboxPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_outbox_published_total",
			Help: "Outbox events relayed to Kafka.",
		},
	)

	OutboxPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_outbox_publish_errors_total",
			Help: "Failed outbox relay batches.",
		},
	)
)

// ObserveRequest matches httpx.RequestObserver.
func ObserveRequest(r *http.Request, status int, elapsed time.Duration) {
	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
