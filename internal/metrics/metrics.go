// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Infra config service metrics
var (
	// ConfigOperationsTotal counts service operations by name and outcome.
	ConfigOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_config_operations_total",
			Help: "Total infra config operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// ConfigOperationDuration tracks service operation latency in seconds.
	ConfigOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "infra_config_operation_duration_seconds",
			Help:    "Infra config operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// ConfigValuesWritten counts individual config rows written.
	ConfigValuesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "infra_config_values_written_total",
			Help: "Total infra config rows inserted or updated",
		},
	)
)

// Notification and restart metrics
var (
	// NotificationsTotal counts config update publications by status.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_config_notifications_total",
			Help: "Total config update notifications by status",
		},
		[]string{"status"},
	)

	// RestartsRequested counts restart requests, including collapsed duplicates.
	RestartsRequested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "infra_config_restarts_requested_total",
			Help: "Total restart requests received",
		},
	)

	// RestartsScheduled counts restarts that were actually scheduled.
	RestartsScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "infra_config_restarts_scheduled_total",
			Help: "Total restarts scheduled",
		},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts API requests by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_config_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
