package sources

import (
	"log/slog"
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/logging"
)

// loopbackRingCapacity buffers roughly two seconds of 10 ms chunks between
// the loopback callback and the graph.
const loopbackRingCapacity = 200

// LoopbackSource captures system playback audio through the platform
// loopback framework. Capture runs at 16 kHz mono float32. The callback
// pushes whole buffers into an SPSC ring; on overflow the newest buffer is
// dropped and counted, never blocking the callback.
type LoopbackSource struct {
	device audiocore.Device
	format audiocore.AudioFormat
	ring   *audiocore.Ring

	mu       sync.Mutex
	active   bool
	sequence uint64
	stats    audiocore.SourceStats

	logger *slog.Logger
}

// NewLoopbackSource creates a loopback source. It fails with a device
// error on platforms without loopback support; that is surfaced at Start.
func NewLoopbackSource() (*LoopbackSource, error) {
	ring, err := audiocore.NewRing(loopbackRingCapacity)
	if err != nil {
		return nil, err
	}

	s := &LoopbackSource{
		device: NewLoopbackDevice(),
		format: audiocore.SpeechFormat(),
		ring:   ring,
		logger: logging.ForService("audiocore.sources"),
	}
	if md, ok := s.device.(*MalgoDevice); ok {
		md.SetSampleHandler(s.onSamples)
	}
	return s, nil
}

// Format returns 16 kHz mono float32, the fixed loopback capture format.
func (s *LoopbackSource) Format() audiocore.AudioFormat {
	return s.format
}

// Start opens the loopback device.
func (s *LoopbackSource) Start() error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return errors.Newf("source is already active").
			Component("audiocore.sources").
			Category(errors.CategoryState).
			Build()
	}
	s.mu.Unlock()

	err := s.device.Start(audiocore.AudioConfig{
		SampleRate: s.format.SampleRate,
		Channels:   s.format.Channels,
		Format:     audiocore.SampleFormatF32,
		BufferSize: 160, // 10 ms at 16 kHz
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
	return nil
}

// Stop closes the loopback device. Idempotent.
func (s *LoopbackSource) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	s.mu.Unlock()

	// Drain anything still queued so a restart begins clean.
	for s.ring.Pop() != nil {
	}

	return s.device.Stop()
}

// onSamples runs on the loopback callback thread.
func (s *LoopbackSource) onSamples(samples audiocore.AudioSamples) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	seq := s.sequence
	s.sequence++
	s.stats.BuffersProduced++
	s.stats.SamplesProduced += uint64(len(samples.Data))
	s.stats.LastActivity = samples.Timestamp
	s.mu.Unlock()

	buf := &audiocore.AudioBuffer{
		Format:    s.format,
		Samples:   samples.Data,
		Timestamp: samples.Timestamp,
		Sequence:  seq,
	}
	if rejected := s.ring.Push(buf); rejected != nil {
		s.mu.Lock()
		s.stats.Overruns++
		overruns := s.stats.Overruns
		s.mu.Unlock()
		if overruns%100 == 0 {
			s.logger.Warn("loopback ring overrun", "overruns", overruns)
		}
	}
}

// Read pops the next captured buffer, or returns nil if none is ready.
func (s *LoopbackSource) Read() (*audiocore.AudioBuffer, error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	if !active {
		return nil, errors.Newf("source is not active").
			Component("audiocore.sources").
			Category(errors.CategoryState).
			Build()
	}

	return s.ring.Pop(), nil
}

// IsActive reports whether the source is between Start and Stop.
func (s *LoopbackSource) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stats returns production counters.
func (s *LoopbackSource) Stats() audiocore.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// RingStats exposes the capture ring counters for health monitoring.
func (s *LoopbackSource) RingStats() audiocore.RingStats {
	return s.ring.Stats()
}

// Name identifies the source.
func (s *LoopbackSource) Name() string {
	return "LoopbackSource"
}

var _ audiocore.Source = (*LoopbackSource)(nil)
