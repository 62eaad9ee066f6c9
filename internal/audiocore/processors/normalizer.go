package processors

import (
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// Normalizer is a look-ahead peak limiter. Samples queue for lookAhead
// frames before they are emitted; the peak over the look-ahead window
// decides the gain applied to the samples leaving the queue, so a loud
// transient pulls the level down before it plays.
//
// Gain never exceeds 1: amplifying quiet passages would introduce the
// clipping the limiter exists to prevent.
type Normalizer struct {
	mu           sync.Mutex
	targetLinear float32
	lookAhead    int
	queue        []float32
	stats        audiocore.ProcessorStats
}

// NewNormalizer creates a normalizer targeting targetDB with a look-ahead
// window of lookAheadMs at sampleRate.
func NewNormalizer(targetDB float64, lookAheadMs int, sampleRate uint32) (*Normalizer, error) {
	if targetDB > 0 {
		return nil, errors.Newf("target must be at or below 0 dBFS, got %v", targetDB).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if lookAheadMs <= 0 {
		return nil, errors.Newf("look-ahead must be positive, got %dms", lookAheadMs).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if sampleRate == 0 {
		return nil, errors.Newf("sample rate must be positive").
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return &Normalizer{
		targetLinear: DBToLinear(targetDB),
		lookAhead:    int(sampleRate) * lookAheadMs / 1000,
	}, nil
}

// LookAheadSamples returns the look-ahead window size in frames.
func (n *Normalizer) LookAheadSamples() int {
	return n.lookAhead
}

// QueuedSamples returns how many samples are waiting in the FIFO.
func (n *Normalizer) QueuedSamples() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

// Process enqueues the input and emits whatever the look-ahead allows.
func (n *Normalizer) Process(input *audiocore.AudioBuffer) (*audiocore.AudioBuffer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.queue = append(n.queue, input.Samples...)

	n.stats.BuffersProcessed++
	n.stats.SamplesProcessed += uint64(len(input.Samples))

	// The window is lookAhead frames, so interleaved streams hold the
	// same duration regardless of channel count.
	window := n.lookAhead * int(input.Format.Channels)
	if len(n.queue) < window {
		return audiocore.MustBuffer(input.Format, nil, input.Timestamp), nil
	}

	var peak float32
	for _, s := range n.queue[:window] {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}

	gain := float32(1.0)
	if peak > 0 && n.targetLinear/peak < 1 {
		gain = n.targetLinear / peak
	}

	drain := len(n.queue) - window
	if len(input.Samples) < drain {
		drain = len(input.Samples)
	}
	// Emit whole frames only.
	drain -= drain % int(input.Format.Channels)

	out := make([]float32, drain)
	for i := 0; i < drain; i++ {
		out[i] = n.queue[i] * gain
	}
	n.queue = n.queue[drain:]

	return audiocore.MustBuffer(input.Format, out, input.Timestamp), nil
}

// OutputFormat preserves the input format.
func (n *Normalizer) OutputFormat(input audiocore.AudioFormat) audiocore.AudioFormat {
	return input
}

// Reset discards queued samples.
func (n *Normalizer) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queue = nil
	n.stats = audiocore.ProcessorStats{}
}

// Stats returns processing counters.
func (n *Normalizer) Stats() audiocore.ProcessorStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

// Name identifies the processor.
func (n *Normalizer) Name() string {
	return "Normalizer"
}

var _ audiocore.Processor = (*Normalizer)(nil)
