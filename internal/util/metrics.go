package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_created_total",
		Help: "Total number of products created",
	})

	ProductsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_updated_total",
		Help: "Total number of product updates",
	})

	ProductsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_deleted_total",
		Help: "Total number of products deleted",
	})

	CategorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_categorizations_total",
		Help: "Total number of categorization runs by resulting use case",
	}, []string{"use_case"})

	ImageVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_image_verifications_total",
		Help: "Total number of image verification runs",
	}, []string{"result"})

	CatalogEventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_events_published_total",
		Help: "Total number of catalog events published",
	}, []string{"event_type", "status"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed orders",
	}, []string{"reason"})

	SeedItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_seed_items_total",
		Help: "Total number of items processed by batch jobs",
	}, []string{"job", "result"})

	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_store_operation_latency_seconds",
		Help:    "Latency of document store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

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
