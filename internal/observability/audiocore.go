package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
)

// AudioCoreMetrics contains Prometheus metrics for the processing graph.
// It implements audiocore.MetricsCollector so the graph can record into
// it without depending on this package.
type AudioCoreMetrics struct {
	registry *prometheus.Registry

	buffersProcessed   *prometheus.CounterVec
	buffersDropped     *prometheus.CounterVec
	samplesProcessed   *prometheus.CounterVec
	overruns           *prometheus.CounterVec
	backpressureEvents *prometheus.CounterVec
	queueUsage         *prometheus.GaugeVec
	poolHitRate        prometheus.Gauge
	processLatency     prometheus.Histogram

	collectors []prometheus.Collector
}

// NewAudioCoreMetrics creates and registers new audiocore metrics.
func NewAudioCoreMetrics(registry *prometheus.Registry) (*AudioCoreMetrics, error) {
	m := &AudioCoreMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AudioCoreMetrics) initMetrics() {
	m.buffersProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiocore_buffers_processed_total",
			Help: "Total number of audio buffers processed per node",
		},
		[]string{"node"},
	)

	m.buffersDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiocore_buffers_dropped_total",
			Help: "Total number of audio buffers dropped per node",
		},
		[]string{"node"},
	)

	m.samplesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiocore_samples_processed_total",
			Help: "Total number of audio samples processed per node",
		},
		[]string{"node"},
	)

	m.overruns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiocore_source_overruns_total",
			Help: "Total number of capture queue overruns per source",
		},
		[]string{"source"},
	)

	m.backpressureEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiocore_backpressure_events_total",
			Help: "Total number of backpressure events per node",
		},
		[]string{"node", "kind"},
	)

	m.queueUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audiocore_queue_usage_ratio",
			Help: "Current queue occupancy per node as a 0-1 ratio",
		},
		[]string{"node"},
	)

	m.poolHitRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "audiocore_pool_hit_rate",
			Help: "Buffer pool hit rate as a 0-1 ratio",
		},
	)

	m.processLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audiocore_process_latency_seconds",
			Help:    "Latency of one graph processing step",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100us to ~1.6s
		},
	)

	m.collectors = []prometheus.Collector{
		m.buffersProcessed,
		m.buffersDropped,
		m.samplesProcessed,
		m.overruns,
		m.backpressureEvents,
		m.queueUsage,
		m.poolHitRate,
		m.processLatency,
	}
}

// Describe implements prometheus.Collector.
func (m *AudioCoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *AudioCoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordBufferProcessed counts a processed buffer and its samples.
func (m *AudioCoreMetrics) RecordBufferProcessed(node string, samples int) {
	m.buffersProcessed.WithLabelValues(node).Inc()
	m.samplesProcessed.WithLabelValues(node).Add(float64(samples))
}

// RecordBufferDropped counts a dropped buffer.
func (m *AudioCoreMetrics) RecordBufferDropped(node string) {
	m.buffersDropped.WithLabelValues(node).Inc()
}

// RecordOverrun counts a capture queue overrun.
func (m *AudioCoreMetrics) RecordOverrun(source string) {
	m.overruns.WithLabelValues(source).Inc()
}

// RecordBackpressure counts a backpressure transition.
func (m *AudioCoreMetrics) RecordBackpressure(node string, kind audiocore.BackpressureEventKind) {
	m.backpressureEvents.WithLabelValues(node, kind.String()).Inc()
}

// RecordQueueUsage sets the queue occupancy gauge for a node.
func (m *AudioCoreMetrics) RecordQueueUsage(node string, usage float64) {
	m.queueUsage.WithLabelValues(node).Set(usage)
}

// RecordPoolHitRate sets the pool hit rate gauge.
func (m *AudioCoreMetrics) RecordPoolHitRate(rate float64) {
	m.poolHitRate.Set(rate)
}

// RecordProcessLatency observes one processing step duration.
func (m *AudioCoreMetrics) RecordProcessLatency(d time.Duration) {
	m.processLatency.Observe(d.Seconds())
}

var _ audiocore.MetricsCollector = (*AudioCoreMetrics)(nil)
var _ prometheus.Collector = (*AudioCoreMetrics)(nil)
