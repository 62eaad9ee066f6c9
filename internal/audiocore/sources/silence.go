package sources

import (
	"sync"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// SilenceSource generates zero buffers at a configured cadence. It serves
// tests and idle channels that must keep a graph edge timed.
type SilenceSource struct {
	format         audiocore.AudioFormat
	bufferDuration time.Duration

	mu             sync.Mutex
	active         bool
	lastBufferTime time.Time
	sequence       uint64
	stats          audiocore.SourceStats
}

// NewSilenceSource creates a source emitting one silent buffer of
// bufferDuration every bufferDuration.
func NewSilenceSource(format audiocore.AudioFormat, bufferDuration time.Duration) *SilenceSource {
	return &SilenceSource{
		format:         format,
		bufferDuration: bufferDuration,
	}
}

func (s *SilenceSource) sampleCount() int {
	frames := int(float64(s.format.SampleRate) * s.bufferDuration.Seconds())
	return frames * int(s.format.Channels)
}

// Format returns the configured format.
func (s *SilenceSource) Format() audiocore.AudioFormat {
	return s.format
}

// Start activates the source.
func (s *SilenceSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return errors.Newf("source is already active").
			Component("audiocore.sources").
			Category(errors.CategoryState).
			Build()
	}

	s.active = true
	s.lastBufferTime = time.Time{} // allow an immediate first buffer
	return nil
}

// Stop deactivates the source. Idempotent.
func (s *SilenceSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}
	s.active = false
	s.lastBufferTime = time.Time{}
	return nil
}

// Read emits a silent buffer when the cadence interval has elapsed,
// otherwise nil.
func (s *SilenceSource) Read() (*audiocore.AudioBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, errors.Newf("source is not active").
			Component("audiocore.sources").
			Category(errors.CategoryState).
			Build()
	}

	now := time.Now()
	if !s.lastBufferTime.IsZero() && now.Sub(s.lastBufferTime) < s.bufferDuration {
		return nil, nil
	}

	samples := make([]float32, s.sampleCount())
	buf := &audiocore.AudioBuffer{
		Format:    s.format,
		Samples:   samples,
		Timestamp: now,
		Sequence:  s.sequence,
	}
	s.sequence++
	s.lastBufferTime = now
	s.stats.BuffersProduced++
	s.stats.SamplesProduced += uint64(len(samples))
	s.stats.LastActivity = now

	return buf, nil
}

// IsActive reports whether the source is between Start and Stop.
func (s *SilenceSource) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stats returns production counters.
func (s *SilenceSource) Stats() audiocore.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Name identifies the source.
func (s *SilenceSource) Name() string {
	return "SilenceSource"
}

var _ audiocore.Source = (*SilenceSource)(nil)
