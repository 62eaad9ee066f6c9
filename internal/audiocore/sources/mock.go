package sources

import (
	"sync"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// MockSource plays back a pre-loaded sample vector in fixed-size chunks for
// deterministic tests. Read returns one chunk per call with no pacing;
// after the vector is exhausted Read returns nil unless Loop is set.
type MockSource struct {
	format    audiocore.AudioFormat
	samples   []float32
	chunkSize int

	// Loop restarts playback from the beginning after exhaustion.
	Loop bool

	mu       sync.Mutex
	active   bool
	position int
	sequence uint64
	stats    audiocore.SourceStats
}

// NewMockSource creates a source playing the given samples in chunks of
// chunkSize samples. chunkSize is rounded down to a whole frame.
func NewMockSource(format audiocore.AudioFormat, samples []float32, chunkSize int) *MockSource {
	if ch := int(format.Channels); ch > 0 && chunkSize%ch != 0 {
		chunkSize -= chunkSize % ch
	}
	if chunkSize <= 0 {
		chunkSize = int(format.Channels)
	}
	return &MockSource{
		format:    format,
		samples:   samples,
		chunkSize: chunkSize,
	}
}

// Format returns the configured format.
func (s *MockSource) Format() audiocore.AudioFormat {
	return s.format
}

// Start activates playback from the beginning.
func (s *MockSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return errors.Newf("source is already active").
			Component("audiocore.sources").
			Category(errors.CategoryState).
			Build()
	}
	s.active = true
	s.position = 0
	return nil
}

// Stop deactivates playback. Idempotent.
func (s *MockSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	return nil
}

// Read returns the next chunk, or nil after exhaustion.
func (s *MockSource) Read() (*audiocore.AudioBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, errors.Newf("source is not active").
			Component("audiocore.sources").
			Category(errors.CategoryState).
			Build()
	}

	if s.position >= len(s.samples) {
		if !s.Loop || len(s.samples) == 0 {
			return nil, nil
		}
		s.position = 0
	}

	end := s.position + s.chunkSize
	if end > len(s.samples) {
		end = len(s.samples)
	}
	chunk := make([]float32, end-s.position)
	copy(chunk, s.samples[s.position:end])
	s.position = end

	now := time.Now()
	buf := &audiocore.AudioBuffer{
		Format:    s.format,
		Samples:   chunk,
		Timestamp: now,
		Sequence:  s.sequence,
	}
	s.sequence++
	s.stats.BuffersProduced++
	s.stats.SamplesProduced += uint64(len(chunk))
	s.stats.LastActivity = now

	return buf, nil
}

// IsActive reports whether the source is between Start and Stop.
func (s *MockSource) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stats returns production counters.
func (s *MockSource) Stats() audiocore.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Name identifies the source.
func (s *MockSource) Name() string {
	return "MockSource"
}

var _ audiocore.Source = (*MockSource)(nil)
