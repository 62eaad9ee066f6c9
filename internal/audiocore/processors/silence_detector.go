package processors

import (
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// SilenceDetector classifies buffers as silent or active by RMS level in
// decibels and gates the verdict on a minimum silence duration, so brief
// pauses between words do not register. Buffers pass through unchanged.
type SilenceDetector struct {
	mu            sync.Mutex
	thresholdDB   float64
	minSamples    uint64
	silentSamples uint64
	silentBuffers uint64
	activeBuffers uint64
	stats         audiocore.ProcessorStats
}

// NewSilenceDetector creates a detector that reports silence once RMS has
// stayed below thresholdDB for at least minSilenceMs at sampleRate.
func NewSilenceDetector(thresholdDB float64, minSilenceMs int, sampleRate uint32) (*SilenceDetector, error) {
	if thresholdDB > 0 {
		return nil, errors.Newf("threshold must be at or below 0 dBFS, got %v", thresholdDB).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if minSilenceMs < 0 {
		return nil, errors.Newf("minimum silence duration must be non-negative, got %dms", minSilenceMs).
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

	return &SilenceDetector{
		thresholdDB: thresholdDB,
		minSamples:  uint64(minSilenceMs) * uint64(sampleRate) / 1000,
	}, nil
}

// Process classifies the buffer and passes it through unchanged.
func (d *SilenceDetector) Process(input *audiocore.AudioBuffer) (*audiocore.AudioBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !input.IsEmpty() {
		rmsDB := LinearToDB(input.RMS())
		if rmsDB < d.thresholdDB {
			d.silentSamples += uint64(len(input.Samples))
			d.silentBuffers++
		} else {
			d.silentSamples = 0
			d.activeBuffers++
		}
	}

	d.stats.BuffersProcessed++
	d.stats.SamplesProcessed += uint64(len(input.Samples))
	return input, nil
}

// IsSilent reports whether silence has persisted for the configured
// minimum duration.
func (d *SilenceDetector) IsSilent() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.silentSamples >= d.minSamples
}

// SilentBuffers returns how many buffers were classified silent.
func (d *SilenceDetector) SilentBuffers() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.silentBuffers
}

// ActiveBuffers returns how many buffers were classified active.
func (d *SilenceDetector) ActiveBuffers() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeBuffers
}

// OutputFormat preserves the input format.
func (d *SilenceDetector) OutputFormat(input audiocore.AudioFormat) audiocore.AudioFormat {
	return input
}

// Reset clears the silence run and counters.
func (d *SilenceDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silentSamples = 0
	d.silentBuffers = 0
	d.activeBuffers = 0
	d.stats = audiocore.ProcessorStats{}
}

// Stats returns processing counters.
func (d *SilenceDetector) Stats() audiocore.ProcessorStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Name identifies the processor.
func (d *SilenceDetector) Name() string {
	return "SilenceDetector"
}

var _ audiocore.Processor = (*SilenceDetector)(nil)
