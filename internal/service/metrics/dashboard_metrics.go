package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradedash",
			Subsystem: "dashboard",
			Name:      "latency_seconds",
			Help:      "Latency of dashboard use cases by endpoint",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradedash",
			Subsystem: "dashboard",
			Name:      "errors_total",
			Help:      "Errors by dashboard endpoint",
		},
		[]string{"endpoint"},
	)

	PipelineDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradedash",
			Subsystem: "pipeline",
			Name:      "dropped_total",
			Help:      "Signal events dropped by the event pipeline",
		},
		[]string{"reason"},
	)

	PipelineBufferDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tradedash",
			Subsystem: "pipeline",
			Name:      "buffer_depth",
			Help:      "Signal events waiting in the event pipeline buffer",
		},
	)

	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tradedash",
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected websocket clients",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors, PipelineDropped, PipelineBufferDepth, WSClients)
	})
}
