package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Total number of product reconciliation runs",
	}, []string{"result"})

	SyncRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_run_duration_seconds",
		Help:    "Duration of one product reconciliation run",
		Buckets: prometheus.DefBuckets,
	})

	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_products_created_total",
		Help: "Total number of local products created from Printful snapshots",
	})

	ProductsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_products_updated_total",
		Help: "Total number of local products updated from Printful snapshots",
	})

	VariantsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_variants_created_total",
		Help: "Total number of local variants created",
	})

	VariantsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_variants_updated_total",
		Help: "Total number of local variants updated",
	})

	VariantsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_variants_deleted_total",
		Help: "Total number of stale local variants deleted",
	})

	VariantsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_variants_skipped_total",
		Help: "Total number of variants excluded from a plan",
	}, []string{"reason"})

	OperationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_operation_failures_total",
		Help: "Total number of plan operations that failed and were skipped",
	}, []string{"kind"})

	ProductCreateRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_product_create_retries_total",
		Help: "Total number of retried product-create attempts",
	})

	PrintfulRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "printful_request_duration_seconds",
		Help:    "Latency of Printful API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	OrdersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Total number of orders submitted to Printful as drafts",
	})

	OrdersConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Total number of draft orders confirmed for fulfillment",
	})

	OrdersCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of remote order cancellation attempts",
	}, []string{"accepted"})

	FulfillmentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fulfillments_created_total",
		Help: "Total number of local fulfillments created from remote tracking data",
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
