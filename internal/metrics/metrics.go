package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sendback_upstream_request_duration_seconds",
		Help:    "Latency of calls to the order service.",
		Buckets: prometheus.DefBuckets,
	},
		[]string{"operation", "status"},
	)

	DegradedFieldsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendback_order_view_degraded_fields_total",
		Help: "Order view fields replaced by their default after an upstream failure.",
	},
		[]string{"field"},
	)

	OrderViewNotFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sendback_order_view_not_found_total",
		Help: "Order view aggregations that failed because the order was unavailable.",
	})

	ReturnSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendback_return_submissions_total",
		Help: "Initiate-return submissions by outcome.",
	},
		[]string{"outcome"},
	)

	ActiveFlowSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sendback_active_flow_sessions",
		Help: "Current number of open return flow sessions.",
	})
)
