package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	providerFetches *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	signalsEmitted  *prometheus.CounterVec
	messagesSent    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastClose       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg. A nil reg means the
// default registry, which is what /metrics serves.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		providerFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedash_provider_fetches_total",
				Help: "Price provider fetch attempts by provider and result",
			},
			[]string{"provider", "result"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedash_cache_lookups_total",
				Help: "Price cache lookups by layer and result",
			},
			[]string{"layer", "result"},
		),
		signalsEmitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedash_signals_total",
				Help: "Signals active on the latest bar, by signal column",
			},
			[]string{"signal"},
		),
		messagesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedash_messages_sent_total",
				Help: "Signal events delivered to a backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedash_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastClose: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradedash_last_close",
				Help: "Last analysed close for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradedash_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordProviderFetch(provider, result string) {
	r.providerFetches.WithLabelValues(provider, result).Inc()
}

func (r *Recorder) RecordCacheLookup(layer, result string) {
	r.cacheLookups.WithLabelValues(layer, result).Inc()
}

func (r *Recorder) RecordSignal(signal string) {
	r.signalsEmitted.WithLabelValues(signal).Inc()
}

// RecordMessageSent records an event delivered to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastClose.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
