package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_gateway_requests_total",
		Help: "Backend requests by endpoint and response status.",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialfeed_gateway_request_duration_seconds",
		Help:    "Backend request latency by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	malformedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_gateway_malformed_responses_total",
		Help: "Successful responses whose body could not be decoded and was coerced to empty.",
	}, []string{"endpoint"})
)
