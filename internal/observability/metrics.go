package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	PromptsTotal          *prometheus.CounterVec
	TurnsTotal            *prometheus.CounterVec
	PhrasesChunked        prometheus.Counter
	SynthesisFailures     prometheus.Counter
	TranscriptionFailures prometheus.Counter
	FirstChunkLatency     prometheus.Histogram
	DeliveryQueueDepth    prometheus.Gauge
	ContextLoadTokens     prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PromptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompts_total",
			Help:      "Submitted prompts by outcome (accepted, rejected).",
		}, []string{"outcome"}),
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed response turns by outcome (completed, interrupted, failed).",
		}, []string{"outcome"}),
		PhrasesChunked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phrases_chunked_total",
			Help:      "Phrases emitted by the token chunker.",
		}),
		SynthesisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_failures_total",
			Help:      "Phrases whose audio synthesis failed and were delivered text-only.",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_failures_total",
			Help:      "Audio transcriptions that produced no usable text.",
		}),
		FirstChunkLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_chunk_latency_ms",
			Help:      "Latency from prompt acceptance to first delivered chunk in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000, 4000},
		}),
		DeliveryQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delivery_queue_depth",
			Help:      "Chunks buffered in the delivery channel awaiting pickup.",
		}),
		ContextLoadTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "context_load_tokens",
			Help:      "Model context occupancy after the most recent turn.",
		}),
	}
}

func (m *Metrics) ObserveFirstChunkLatency(d time.Duration) {
	m.FirstChunkLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
