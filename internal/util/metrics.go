package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "board_transitions_total",
		Help: "Total number of appointment group status transitions",
	}, []string{"to_status"})

	TransitionRollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "board_transition_rollbacks_total",
		Help: "Total number of optimistic transitions rolled back on persistence failure",
	}, []string{"reason"})

	WalkInsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "board_walk_ins_created_total",
		Help: "Total number of walk-in appointment groups created",
	})

	CheckoutSessionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_opened_total",
		Help: "Total number of checkout sessions opened or re-merged",
	})

	CheckoutRefetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_refetch_latency_seconds",
		Help:    "Latency of full checkout session refetches",
		Buckets: prometheus.DefBuckets,
	})

	StaleResponsesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stale_responses_discarded_total",
		Help: "Total number of superseded checkout fetch responses discarded",
	})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of payment attempts",
	})

	PaymentSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_success_total",
		Help: "Total number of successful payments",
	})

	PaymentFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_failed_total",
		Help: "Total number of failed payments",
	}, []string{"reason"})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of payment processing",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
