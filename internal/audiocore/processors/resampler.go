package processors

import (
	"sync"
	"time"

	resampler "github.com/tphakala/go-audio-resampler"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

const (
	maxSampleRate  = 192000
	maxChannels    = 32
	maxChunkFrames = 16384
)

// Resampler converts between sample rates in fixed input chunks. Incoming
// frames accumulate in per-channel queues; once a full chunk is available
// it is drained through a polyphase engine per channel and the results are
// re-interleaved.
//
// While accumulating, Process returns an empty buffer carrying the input's
// timestamp so downstream nodes keep their timing. Sinks accept empty
// buffers as no-ops.
type Resampler struct {
	mu        sync.Mutex
	inRate    uint32
	outRate   uint32
	channels  uint16
	chunkSize int

	pending       [][]float32
	engines       []float32Engine
	startTime     time.Time
	chunksDrained uint64
	stats         audiocore.ProcessorStats
}

// NewResampler creates a resampler from inRate to outRate for the given
// channel count, consuming chunkSize frames per drain.
func NewResampler(inRate, outRate uint32, channels uint16, chunkSize int) (*Resampler, error) {
	if inRate == 0 || inRate > maxSampleRate || outRate == 0 || outRate > maxSampleRate {
		return nil, errors.Newf("sample rates must be in (0, %d], got %d -> %d",
			maxSampleRate, inRate, outRate).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if channels < 1 || channels > maxChannels {
		return nil, errors.Newf("channels must be in [1, %d], got %d", maxChannels, channels).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if chunkSize < 1 || chunkSize > maxChunkFrames {
		return nil, errors.Newf("chunk size must be in [1, %d], got %d", maxChunkFrames, chunkSize).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}

	r := &Resampler{
		inRate:    inRate,
		outRate:   outRate,
		channels:  channels,
		chunkSize: chunkSize,
		pending:   make([][]float32, channels),
	}
	if err := r.buildEngines(); err != nil {
		return nil, err
	}
	return r, nil
}

// float32Engine is the streaming surface of the per-channel conversion
// engine.
type float32Engine interface {
	Process(input []float32) ([]float32, error)
	Flush() ([]float32, error)
}

func (r *Resampler) buildEngines() error {
	engines := make([]float32Engine, r.channels)
	for ch := range engines {
		eng, err := resampler.NewEngineFloat32(float64(r.inRate), float64(r.outRate), resampler.QualityHigh)
		if err != nil {
			return errors.New(err).
				Component("audiocore.processors").
				Category(errors.CategoryProcessing).
				Context("in_rate", r.inRate).
				Context("out_rate", r.outRate).
				Build()
		}
		engines[ch] = eng
	}
	r.engines = engines
	return nil
}

// InputRate returns the configured input sample rate.
func (r *Resampler) InputRate() uint32 { return r.inRate }

// OutputRate returns the configured output sample rate.
func (r *Resampler) OutputRate() uint32 { return r.outRate }

// Channels returns the configured channel count.
func (r *Resampler) Channels() uint16 { return r.channels }

// ChunkSize returns the input frames consumed per drain.
func (r *Resampler) ChunkSize() int { return r.chunkSize }

// PendingFrames returns how many input frames are accumulated per channel.
func (r *Resampler) PendingFrames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return 0
	}
	return len(r.pending[0])
}

// Process accumulates the input and drains full chunks through the engine.
func (r *Resampler) Process(input *audiocore.AudioBuffer) (*audiocore.AudioBuffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if input.Format.SampleRate != r.inRate || input.Format.Channels != r.channels {
		r.stats.Errors++
		return nil, errors.Newf("resampler expects %dHz/%dch, got %s",
			r.inRate, r.channels, input.Format).
			Component("audiocore.processors").
			Category(errors.CategoryFormat).
			Build()
	}

	if len(r.pending[0]) == 0 && len(input.Samples) > 0 {
		r.startTime = input.Timestamp
		r.chunksDrained = 0
	}

	ch := int(r.channels)
	for i, s := range input.Samples {
		r.pending[i%ch] = append(r.pending[i%ch], s)
	}

	r.stats.BuffersProcessed++
	r.stats.SamplesProcessed += uint64(len(input.Samples))

	outFormat := r.OutputFormat(input.Format)
	if len(r.pending[0]) < r.chunkSize {
		return audiocore.MustBuffer(outFormat, nil, input.Timestamp), nil
	}

	// The chunk's first frame was captured chunksDrained chunks after
	// the oldest buffered frame.
	offset := time.Duration(r.chunksDrained) * time.Duration(r.chunkSize) *
		time.Second / time.Duration(r.inRate)
	ts := r.startTime.Add(offset)

	perChannel := make([][]float32, ch)
	for c := 0; c < ch; c++ {
		chunk := r.pending[c][:r.chunkSize]
		resampled, err := r.engines[c].Process(chunk)
		if err != nil {
			r.stats.Errors++
			return nil, errors.New(err).
				Component("audiocore.processors").
				Category(errors.CategoryProcessing).
				Context("channel", c).
				Build()
		}
		perChannel[c] = resampled
		r.pending[c] = r.pending[c][r.chunkSize:]
	}
	r.chunksDrained++

	// Engines prime their filters on the first chunks and may emit
	// nothing yet; that is just another empty buffer downstream.
	outFrames := len(perChannel[0])
	out := make([]float32, 0, outFrames*ch)
	for f := 0; f < outFrames; f++ {
		for c := 0; c < ch; c++ {
			out = append(out, perChannel[c][f])
		}
	}

	return audiocore.MustBuffer(outFormat, out, ts), nil
}

// OutputFormat maps the input format to the output rate, preserving the
// channel count and forcing float samples.
func (r *Resampler) OutputFormat(input audiocore.AudioFormat) audiocore.AudioFormat {
	return audiocore.NewAudioFormat(r.outRate, input.Channels, audiocore.SampleFormatF32)
}

// Reset drops accumulated frames and rebuilds the engines so no filter
// history leaks across sessions.
func (r *Resampler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.pending {
		r.pending[c] = nil
	}
	r.chunksDrained = 0
	r.startTime = time.Time{}
	r.stats = audiocore.ProcessorStats{}
	// Engine construction cannot fail with parameters that already
	// passed construction once.
	_ = r.buildEngines()
}

// Stats returns processing counters.
func (r *Resampler) Stats() audiocore.ProcessorStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Name identifies the processor.
func (r *Resampler) Name() string {
	return "Resampler"
}

var _ audiocore.Processor = (*Resampler)(nil)
