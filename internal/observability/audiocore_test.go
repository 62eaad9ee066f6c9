package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
)

func TestMetricsRecordAndGather(t *testing.T) {
	t.Parallel()

	metrics, err := NewMetrics()
	require.NoError(t, err)

	ac := metrics.AudioCore
	ac.RecordBufferProcessed("Mixer", 480)
	ac.RecordBufferProcessed("Mixer", 480)
	ac.RecordBufferDropped("MicrophoneSource")
	ac.RecordOverrun("MicrophoneSource")
	ac.RecordBackpressure("MicrophoneSource", audiocore.BackpressureTriggered)
	ac.RecordBackpressure("MicrophoneSource", audiocore.BackpressureCleared)
	ac.RecordQueueUsage("Mixer", 0.25)
	ac.RecordPoolHitRate(0.9)
	ac.RecordProcessLatency(2 * time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(ac.buffersProcessed.WithLabelValues("Mixer")), 1e-9)
	assert.InDelta(t, 960, testutil.ToFloat64(ac.samplesProcessed.WithLabelValues("Mixer")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(ac.buffersDropped.WithLabelValues("MicrophoneSource")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(ac.overruns.WithLabelValues("MicrophoneSource")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(ac.backpressureEvents.WithLabelValues("MicrophoneSource", "triggered")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(ac.backpressureEvents.WithLabelValues("MicrophoneSource", "cleared")), 1e-9)
	assert.InDelta(t, 0.25, testutil.ToFloat64(ac.queueUsage.WithLabelValues("Mixer")), 1e-9)
	assert.InDelta(t, 0.9, testutil.ToFloat64(ac.poolHitRate), 1e-9)

	// Everything surfaces through the registry.
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"audiocore_buffers_processed_total",
		"audiocore_buffers_dropped_total",
		"audiocore_samples_processed_total",
		"audiocore_source_overruns_total",
		"audiocore_backpressure_events_total",
		"audiocore_queue_usage_ratio",
		"audiocore_pool_hit_rate",
		"audiocore_process_latency_seconds",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}

func TestNoopCollectorIsSafe(t *testing.T) {
	t.Parallel()

	noop := audiocore.NoopMetrics()
	noop.RecordBufferProcessed("x", 1)
	noop.RecordBufferDropped("x")
	noop.RecordOverrun("x")
	noop.RecordBackpressure("x", audiocore.BackpressureTriggered)
	noop.RecordQueueUsage("x", 0.5)
	noop.RecordPoolHitRate(1)
	noop.RecordProcessLatency(time.Millisecond)
}
