package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration The total time spent processing messages (summary with quantiles 0.5, 0.9, and 0.99)
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)

	// SeatReservations counts reservation attempts by outcome
	// (reserved, already_booked, not_found, toilet, error).
	SeatReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "seat_reservations_total",
			Help:      "The total number of seat reservation attempts",
		},
		[]string{"outcome"},
	)

	SeatsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "seats_released_total",
			Help:      "The total number of seats returned to the pool",
		},
	)

	// DepartureLockWait Time spent waiting for a departure lock (histogram)
	DepartureLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "inventory",
			Name:      "departure_lock_wait_seconds",
			Help:      "Time spent waiting for the per-departure reservation lock",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookings",
			Name:      "created_total",
			Help:      "The total number of bookings created",
		},
		[]string{"payment_method", "status"},
	)

	BookingsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookings",
			Name:      "cancelled_total",
			Help:      "The total number of bookings cancelled",
		},
	)

	// SoftFailures counts best-effort collaborator calls that failed and were
	// absorbed (points_redemption, event_publish).
	SoftFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookings",
			Name:      "soft_failures_total",
			Help:      "The total number of absorbed collaborator failures",
		},
		[]string{"kind"},
	)
)
