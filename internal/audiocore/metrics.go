package audiocore

import "time"

// MetricsCollector receives engine events for export. The graph and the
// sources call it on the hot path, so implementations must be cheap and
// callers use NoopMetrics when collection is disabled.
type MetricsCollector interface {
	RecordBufferProcessed(node string, samples int)
	RecordBufferDropped(node string)
	RecordOverrun(source string)
	RecordBackpressure(node string, kind BackpressureEventKind)
	RecordQueueUsage(node string, usage float64)
	RecordPoolHitRate(rate float64)
	RecordProcessLatency(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordBufferProcessed(string, int)                 {}
func (noopMetrics) RecordBufferDropped(string)                        {}
func (noopMetrics) RecordOverrun(string)                              {}
func (noopMetrics) RecordBackpressure(string, BackpressureEventKind)  {}
func (noopMetrics) RecordQueueUsage(string, float64)                  {}
func (noopMetrics) RecordPoolHitRate(float64)                         {}
func (noopMetrics) RecordProcessLatency(time.Duration)                {}

// NoopMetrics returns a collector that discards everything.
func NoopMetrics() MetricsCollector {
	return noopMetrics{}
}
