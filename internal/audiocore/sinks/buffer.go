package sinks

import (
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// DefaultBufferSinkCapacity bounds the default in-memory sink well above
// any realistic session so tests never hit the ceiling accidentally.
const DefaultBufferSinkCapacity = 20000

// BufferSink accumulates buffers in memory up to a fixed count. It serves
// tests, previews, and staging before encoding. The format is locked on
// first write; later writes with a different format are rejected.
type BufferSink struct {
	mu         sync.Mutex
	buffers    []*audiocore.AudioBuffer
	maxBuffers int
	format     *audiocore.AudioFormat
	stats      audiocore.SinkStats
}

// NewBufferSink creates a sink storing at most maxBuffers buffers.
func NewBufferSink(maxBuffers int) *BufferSink {
	initial := maxBuffers
	if initial > 1000 {
		initial = 1000
	}
	return &BufferSink{
		buffers:    make([]*audiocore.AudioBuffer, 0, initial),
		maxBuffers: maxBuffers,
	}
}

// Write stores the buffer, rejecting at capacity with a buffer error.
func (s *BufferSink) Write(buffer *audiocore.AudioBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buffers) >= s.maxBuffers {
		return errors.Newf("buffer sink is full: capacity %d reached", s.maxBuffers).
			Component("audiocore.sinks").
			Category(errors.CategoryBuffer).
			Build()
	}

	if !buffer.IsEmpty() {
		if s.format == nil {
			f := buffer.Format
			s.format = &f
		} else if buffer.Format != *s.format {
			return errors.Newf("buffer format %s does not match sink format %s", buffer.Format, *s.format).
				Component("audiocore.sinks").
				Category(errors.CategoryFormat).
				Build()
		}
	}

	s.buffers = append(s.buffers, buffer)
	s.stats.BuffersWritten++
	s.stats.SamplesWritten += uint64(len(buffer.Samples))
	s.stats.BytesWritten = s.stats.SamplesWritten * 4 // float32 payload
	return nil
}

// Buffers returns the accumulated buffers. The slice is copied; the buffer
// payloads are shared and immutable.
func (s *BufferSink) Buffers() []*audiocore.AudioBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*audiocore.AudioBuffer, len(s.buffers))
	copy(out, s.buffers)
	return out
}

// BufferCount returns the number of stored buffers.
func (s *BufferSink) BufferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffers)
}

// Clear drops all stored buffers.
func (s *BufferSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers = s.buffers[:0]
}

// Format returns the locked format, or nil before the first non-empty write.
func (s *BufferSink) Format() *audiocore.AudioFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.format == nil {
		return nil
	}
	f := *s.format
	return &f
}

// IsFull reports whether the sink is at capacity.
func (s *BufferSink) IsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffers) >= s.maxBuffers
}

// Capacity returns the maximum buffer count.
func (s *BufferSink) Capacity() int {
	return s.maxBuffers
}

// Flush is a no-op; the sink holds everything in memory.
func (s *BufferSink) Flush() error {
	return nil
}

// Close is a no-op success; stored buffers remain readable.
func (s *BufferSink) Close() error {
	return nil
}

// Stats returns consumption counters.
func (s *BufferSink) Stats() audiocore.SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Name identifies the sink.
func (s *BufferSink) Name() string {
	return "BufferSink"
}

var _ audiocore.Sink = (*BufferSink)(nil)
