package sinks

import (
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
)

// NullSink discards all audio while tracking throughput counters. It is
// used for benchmarking graph topologies without storage overhead.
type NullSink struct {
	mu    sync.Mutex
	stats audiocore.SinkStats
}

// NewNullSink creates a null sink.
func NewNullSink() *NullSink {
	return &NullSink{}
}

// Write counts the buffer and drops it.
func (s *NullSink) Write(buffer *audiocore.AudioBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.BuffersWritten++
	s.stats.SamplesWritten += uint64(len(buffer.Samples))
	s.stats.BytesWritten = s.stats.SamplesWritten * 4
	return nil
}

// Flush is a no-op.
func (s *NullSink) Flush() error {
	return nil
}

// Close is a no-op.
func (s *NullSink) Close() error {
	return nil
}

// Stats returns consumption counters.
func (s *NullSink) Stats() audiocore.SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Name identifies the sink.
func (s *NullSink) Name() string {
	return "NullSink"
}

var _ audiocore.Sink = (*NullSink)(nil)
