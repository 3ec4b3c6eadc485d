package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000,
	}

	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "shieldgate_requests_total",
			Help: "Total number of decision requests processed",
		},
		[]string{"method", "status"},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shieldgate_latency_ms",
			Help:    "Request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"type"}, // "total" or "oracle"
	)

	DecisionTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "shieldgate_decisions_total",
			Help: "Decisions by conclusion and reason",
		},
		[]string{"conclusion", "reason", "source"}, // source is "oracle", "cache" or "fail_open"
	)

	ForcedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "shieldgate_forced_total",
			Help: "Forced outcomes served without contacting the oracle",
		},
		[]string{"outcome"},
	)

	OracleErrors = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "shieldgate_oracle_errors_total",
			Help: "Failed oracle calls",
		},
	)

	BreakerState = promauto.With(registerer).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shieldgate_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

type MetricsConfig struct {
	EnableLatency bool
}

var Config MetricsConfig

var initOnce sync.Once

func Initialize(cfg MetricsConfig) {
	Config = cfg
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
		prometheus.DefaultRegisterer = registry
		prometheus.DefaultGatherer = registry
	})
}

func Registry() *prometheus.Registry {
	return registry
}

// ObserveBreakerState is a state change callback for httpx circuit breakers.
func ObserveBreakerState(name, _, to string) {
	value := 0.0
	switch to {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	BreakerState.WithLabelValues(name).Set(value)
}
