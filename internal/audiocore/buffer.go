package audiocore

import (
	"math"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// AudioBuffer is a block of interleaved float32 samples with a format and a
// capture timestamp. Buffers are shared by pointer between graph nodes and
// must not be mutated after publication; clones share the sample payload.
//
// The Timestamp is the wall-clock instant at which the first frame was
// captured (sources) or derived (processors with their own timing rule).
// Sequence increases monotonically per source.
type AudioBuffer struct {
	Format    AudioFormat
	Samples   []float32
	Timestamp time.Time
	Sequence  uint64
}

// NewBuffer constructs a buffer and validates the frame invariant: the
// sample count must be a whole number of frames.
func NewBuffer(format AudioFormat, samples []float32, timestamp time.Time) (*AudioBuffer, error) {
	if format.Channels == 0 {
		return nil, errors.Newf("audio format has zero channels").
			Component("audiocore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if len(samples)%int(format.Channels) != 0 {
		return nil, errors.Newf("sample count %d is not a multiple of channel count %d", len(samples), format.Channels).
			Component("audiocore").
			Category(errors.CategoryConfiguration).
			FormatContext(format.SampleRate, format.Channels).
			Build()
	}
	return &AudioBuffer{Format: format, Samples: samples, Timestamp: timestamp}, nil
}

// MustBuffer is NewBuffer for callers that construct from trusted inputs,
// such as tests and internal synthesis paths.
func MustBuffer(format AudioFormat, samples []float32, timestamp time.Time) *AudioBuffer {
	b, err := NewBuffer(format, samples, timestamp)
	if err != nil {
		panic(err)
	}
	return b
}

// SilentBuffer produces floor(rate*duration) frames of zero samples.
func SilentBuffer(format AudioFormat, duration time.Duration) *AudioBuffer {
	frames := int(float64(format.SampleRate) * duration.Seconds())
	samples := make([]float32, frames*int(format.Channels))
	return &AudioBuffer{Format: format, Samples: samples, Timestamp: time.Now()}
}

// WithSequence returns a shallow clone carrying the given sequence number.
// The sample payload is shared, not copied.
func (b *AudioBuffer) WithSequence(seq uint64) *AudioBuffer {
	clone := *b
	clone.Sequence = seq
	return &clone
}

// NumFrames returns the number of frames (samples per channel).
func (b *AudioBuffer) NumFrames() int {
	if b.Format.Channels == 0 {
		return 0
	}
	return len(b.Samples) / int(b.Format.Channels)
}

// Duration returns the play time of the buffer.
func (b *AudioBuffer) Duration() time.Duration {
	if b.Format.SampleRate == 0 || b.Format.Channels == 0 {
		return 0
	}
	secs := float64(len(b.Samples)) / (float64(b.Format.SampleRate) * float64(b.Format.Channels))
	return time.Duration(secs * float64(time.Second))
}

// RMS returns the root-mean-square amplitude over all samples.
func (b *AudioBuffer) RMS() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range b.Samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(b.Samples)))
}

// Peak returns the maximum absolute sample value.
func (b *AudioBuffer) Peak() float64 {
	var peak float64
	for _, s := range b.Samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

// IsSilent reports whether the buffer's RMS is below the given threshold.
func (b *AudioBuffer) IsSilent(threshold float64) bool {
	return b.RMS() < threshold
}

// IsEmpty reports whether the buffer carries no samples. Empty buffers are
// legal inside the graph; they preserve timing through accumulating
// processors and sinks treat them as no-ops.
func (b *AudioBuffer) IsEmpty() bool {
	return len(b.Samples) == 0
}
