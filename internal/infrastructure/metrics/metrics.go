package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ContractsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawn_contracts_created_total",
			Help: "Total number of pawn contracts created",
		},
		[]string{"store_code"},
	)

	ContractsConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pawn_contracts_confirmed_total",
			Help: "Total number of pawn contracts confirmed by customer PIN",
		},
	)

	PaymentsRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawn_payments_requested_total",
			Help: "Total number of pending payment records created",
		},
		[]string{"payment_type"},
	)

	ContractsSweptOverdue = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pawn_contracts_swept_overdue_total",
			Help: "Total number of contracts moved to overdue by the sweep",
		},
	)

	AuctionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawn_auction_batch_transitions_total",
			Help: "Auction batch status transitions by target status",
		},
		[]string{"status"},
	)

	NumberCollisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawn_document_number_collisions_total",
			Help: "Probed document number candidates that were already taken",
		},
		[]string{"kind"},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawn_outbox_messages_total",
			Help: "Outbox relay attempts by result",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawn_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pawn_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
