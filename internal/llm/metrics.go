package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts model calls.
	// Labels: role (text, vision), model, result (ok, timeout, model_invocation)
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briefd",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total number of model runtime calls",
		},
		[]string{"role", "model", "result"},
	)

	// RequestDuration tracks model latency, including rate limiter waits.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "briefd",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Duration of model runtime calls in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"role", "model"},
	)

	// InFlight is the number of calls currently waiting on the runtime.
	InFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "briefd",
			Subsystem: "llm",
			Name:      "requests_in_flight",
			Help:      "Model runtime calls currently in progress",
		},
		[]string{"role"},
	)
)
