package sources

import (
	"log/slog"
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/logging"
)

// DefaultMaxQueuedBuffers gives the microphone queue enough headroom that
// drops indicate a persistently stalled consumer, not scheduling jitter.
const DefaultMaxQueuedBuffers = 20000

// MicrophoneSource captures from a platform input device. The driver
// callback assembles one buffer per delivered chunk and appends it to a
// bounded queue; when the queue is full the oldest buffer is evicted so the
// freshest audio survives. The graph thread pops via Read.
type MicrophoneSource struct {
	device audiocore.Device
	format audiocore.AudioFormat
	config audiocore.AudioConfig

	mu       sync.Mutex
	queue    []*audiocore.AudioBuffer
	maxQueue int
	active   bool
	sequence uint64
	stats    audiocore.SourceStats

	// pool recycles sample vectors between the device callback and the
	// queue. Buffers handed out through Read leave the pool for good.
	pool    *audiocore.BufferPool
	metrics audiocore.MetricsCollector

	logger *slog.Logger
}

// NewMicrophoneSource wraps a device. An empty deviceName selects the
// platform default. The source forces float32 capture so the rest of the
// pipeline sees normalized samples.
func NewMicrophoneSource(deviceName string, config audiocore.AudioConfig) *MicrophoneSource {
	if config.SampleRate == 0 {
		config.SampleRate = 48000
	}
	if config.Channels == 0 {
		config.Channels = 1
	}
	if config.BufferSize == 0 {
		config.BufferSize = 512
	}
	config.Format = audiocore.SampleFormatF32

	return newMicrophoneSource(NewMalgoDevice(deviceName), config)
}

// NewMicrophoneSourceWithDevice wraps a caller-provided device, used by
// tests to substitute a fake platform layer.
func NewMicrophoneSourceWithDevice(device audiocore.Device, config audiocore.AudioConfig) *MicrophoneSource {
	config.Format = audiocore.SampleFormatF32
	return newMicrophoneSource(device, config)
}

func newMicrophoneSource(device audiocore.Device, config audiocore.AudioConfig) *MicrophoneSource {
	s := &MicrophoneSource{
		device:   device,
		config:   config,
		format:   audiocore.NewAudioFormat(config.SampleRate, config.Channels, audiocore.SampleFormatF32),
		maxQueue: DefaultMaxQueuedBuffers,
		metrics:  audiocore.NoopMetrics(),
		logger:   logging.ForService("audiocore.sources"),
	}
	if config.BufferSize > 0 {
		s.pool = audiocore.NewBufferPool(
			int(config.BufferSize)*int(config.Channels), 64, 8)
	}
	if md, ok := device.(*MalgoDevice); ok {
		md.SetSampleHandler(s.onSamples)
		md.SetBufferPool(s.pool)
	}
	return s
}

// SetMetrics routes capture counters to a collector. nil restores the
// discarding default.
func (s *MicrophoneSource) SetMetrics(mc audiocore.MetricsCollector) {
	if mc == nil {
		mc = audiocore.NoopMetrics()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = mc
}

// PoolStats reports the capture buffer pool's performance counters.
func (s *MicrophoneSource) PoolStats() audiocore.PoolStats {
	if s.pool == nil {
		return audiocore.PoolStats{}
	}
	return s.pool.Stats()
}

// SetMaxQueueSize overrides the queued-buffer bound. Only effective before
// Start.
func (s *MicrophoneSource) SetMaxQueueSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.maxQueue = n
	}
}

// Format returns the source's emission format.
func (s *MicrophoneSource) Format() audiocore.AudioFormat {
	return s.format
}

// Start opens the underlying device.
func (s *MicrophoneSource) Start() error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return errors.Newf("source is already active").
			Component("audiocore.sources").
			Category(errors.CategoryState).
			Build()
	}
	s.mu.Unlock()

	if err := s.device.Start(s.config); err != nil {
		return err
	}

	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
	return nil
}

// Stop closes the device. Idempotent.
func (s *MicrophoneSource) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	if s.pool != nil {
		// Unread buffers never reached a consumer; recycle their vectors.
		for _, b := range s.queue {
			s.pool.Release(b.Samples)
		}
	}
	s.queue = nil
	s.mu.Unlock()

	return s.device.Stop()
}

// onSamples runs on the driver callback thread.
func (s *MicrophoneSource) onSamples(samples audiocore.AudioSamples) {
	buf := &audiocore.AudioBuffer{
		Format:    s.format,
		Samples:   samples.Data,
		Timestamp: samples.Timestamp,
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}

	buf.Sequence = s.sequence
	s.sequence++

	if len(s.queue) >= s.maxQueue {
		// Evict the oldest buffer so fresh audio keeps flowing. The
		// evicted buffer never left this source, so its vector can go
		// back to the pool.
		evicted := s.queue[0]
		copy(s.queue, s.queue[1:])
		s.queue = s.queue[:len(s.queue)-1]
		if s.pool != nil {
			s.pool.Release(evicted.Samples)
		}
		s.stats.Overruns++
		s.metrics.RecordOverrun(s.Name())
		if s.stats.Overruns%100 == 0 {
			overruns := s.stats.Overruns
			s.mu.Unlock()
			s.logger.Warn("microphone queue overrun",
				"overruns", overruns,
				"max_queue", s.maxQueue)
			s.mu.Lock()
		}
	}

	s.queue = append(s.queue, buf)
	s.stats.BuffersProduced++
	s.stats.SamplesProduced += uint64(len(buf.Samples))
	s.stats.LastActivity = samples.Timestamp
	if s.pool != nil && s.stats.BuffersProduced%100 == 0 {
		s.metrics.RecordPoolHitRate(s.pool.Stats().HitRate)
	}
	s.mu.Unlock()
}

// Read pops the oldest captured buffer, or returns nil if none is ready.
func (s *MicrophoneSource) Read() (*audiocore.AudioBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, errors.Newf("source is not active").
			Component("audiocore.sources").
			Category(errors.CategoryState).
			Build()
	}

	if len(s.queue) == 0 {
		return nil, nil
	}

	buf := s.queue[0]
	copy(s.queue, s.queue[1:])
	s.queue = s.queue[:len(s.queue)-1]
	return buf, nil
}

// IsActive reports whether the source is between Start and Stop.
func (s *MicrophoneSource) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stats returns production counters.
func (s *MicrophoneSource) Stats() audiocore.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// DeviceHealth exposes the wrapped device's health.
func (s *MicrophoneSource) DeviceHealth() audiocore.DeviceHealth {
	return s.device.Health()
}

// Name identifies the source.
func (s *MicrophoneSource) Name() string {
	return "MicrophoneSource"
}

// queueLen is test support.
func (s *MicrophoneSource) queueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

var _ audiocore.Source = (*MicrophoneSource)(nil)
