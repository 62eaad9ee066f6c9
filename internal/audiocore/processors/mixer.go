package processors

import (
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// MixMode determines how the mixer combines its inputs.
type MixMode uint8

const (
	// MixModeSum adds all inputs together. May clip without the limiter.
	MixModeSum MixMode = iota
	// MixModeAverage divides the sum by the input count. Never clips.
	MixModeAverage
	// MixModeWeighted applies per-input balance gains to the sum.
	MixModeWeighted
)

func (m MixMode) String() string {
	switch m {
	case MixModeSum:
		return "sum"
	case MixModeAverage:
		return "average"
	case MixModeWeighted:
		return "weighted"
	default:
		return "unknown"
	}
}

// Mixer combines 2 to 8 simultaneous input streams into one. Each input
// has a balance gain in [0,1] defaulting to 1/N, a master gain applies to
// the mixed result, and the peak limiter clamps output to [-1,1].
//
// Inputs must share sample rate and channel count. Output length is the
// minimum of the input lengths; longer inputs are truncated for the step.
type Mixer struct {
	mu        sync.Mutex
	numInputs int
	balances  []float32
	mode      MixMode
	master    float32
	limiter   bool
	stats     audiocore.ProcessorStats
}

// NewMixer creates a mixer for numInputs streams.
func NewMixer(numInputs int, mode MixMode) (*Mixer, error) {
	if numInputs < 2 || numInputs > 8 {
		return nil, errors.Newf("mixer requires 2-8 inputs, got %d", numInputs).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}

	balances := make([]float32, numInputs)
	equal := 1.0 / float32(numInputs)
	for i := range balances {
		balances[i] = equal
	}

	return &Mixer{
		numInputs: numInputs,
		balances:  balances,
		mode:      mode,
		master:    1.0,
		limiter:   true,
	}, nil
}

// NumInputs returns the configured input count.
func (m *Mixer) NumInputs() int {
	return m.numInputs
}

// Mode returns the current mix mode.
func (m *Mixer) Mode() MixMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetMode changes the mix mode.
func (m *Mixer) SetMode(mode MixMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// SetInputGain sets the balance gain for one input.
func (m *Mixer) SetInputGain(index int, gain float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= m.numInputs {
		return errors.Newf("input index %d out of range (max %d)", index, m.numInputs-1).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if gain < 0 || gain > 1 {
		return errors.Newf("input gain must be in [0, 1], got %v", gain).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	m.balances[index] = gain
	return nil
}

// InputGain returns the balance gain for one input, or 0 if out of range.
func (m *Mixer) InputGain(index int) float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= m.numInputs {
		return 0
	}
	return m.balances[index]
}

// SetBalance is a convenience for the two-input case: balance 0 routes
// everything to input 0, balance 1 to input 1, so the gains become
// (1-balance, balance).
func (m *Mixer) SetBalance(balance float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.numInputs != 2 {
		return errors.Newf("SetBalance only works with 2 inputs, got %d", m.numInputs).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if balance < 0 || balance > 1 {
		return errors.Newf("balance must be in [0, 1], got %v", balance).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	m.balances[0] = 1 - balance
	m.balances[1] = balance
	return nil
}

// SetMasterGain sets the gain applied after mixing.
func (m *Mixer) SetMasterGain(gain float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gain < 0 || gain > 1 {
		return errors.Newf("master gain must be in [0, 1], got %v", gain).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	m.master = gain
	return nil
}

// EnablePeakLimiter toggles output clamping to [-1, 1].
func (m *Mixer) EnablePeakLimiter(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiter = enabled
}

// ProcessMulti mixes one buffer per input into a single output buffer.
func (m *Mixer) ProcessMulti(inputs []*audiocore.AudioBuffer) (*audiocore.AudioBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(inputs) != m.numInputs {
		m.stats.Errors++
		return nil, errors.Newf("expected %d inputs, got %d", m.numInputs, len(inputs)).
			Component("audiocore.processors").
			Category(errors.CategoryProcessing).
			Build()
	}

	format := inputs[0].Format
	minLen := len(inputs[0].Samples)
	for i, in := range inputs[1:] {
		if !in.Format.Compatible(format) {
			m.stats.Errors++
			return nil, errors.Newf("input %d format mismatch: expected %s, got %s",
				i+1, format, in.Format).
				Component("audiocore.processors").
				Category(errors.CategoryFormat).
				Build()
		}
		if len(in.Samples) < minLen {
			minLen = len(in.Samples)
		}
	}

	out := make([]float32, minLen)
	switch m.mode {
	case MixModeSum:
		for _, in := range inputs {
			for i := 0; i < minLen; i++ {
				out[i] += in.Samples[i]
			}
		}
	case MixModeAverage:
		for _, in := range inputs {
			for i := 0; i < minLen; i++ {
				out[i] += in.Samples[i]
			}
		}
		scale := 1.0 / float32(len(inputs))
		for i := range out {
			out[i] *= scale
		}
	case MixModeWeighted:
		for k, in := range inputs {
			gain := m.balances[k]
			for i := 0; i < minLen; i++ {
				out[i] += in.Samples[i] * gain
			}
		}
	}

	for i := range out {
		out[i] *= m.master
		if m.limiter {
			out[i] = clamp(out[i])
		}
	}

	m.stats.BuffersProcessed++
	m.stats.SamplesProcessed += uint64(len(out))

	// Earliest input timestamp carries over so downstream timing rules
	// see when the mixed audio was captured.
	ts := inputs[0].Timestamp
	for _, in := range inputs[1:] {
		if in.Timestamp.Before(ts) {
			ts = in.Timestamp
		}
	}
	return audiocore.MustBuffer(format, out, ts), nil
}

// Process applies master gain and the limiter to a single input. The
// mixing path is ProcessMulti; the graph dispatches there when the node
// has multiple upstream edges.
func (m *Mixer) Process(input *audiocore.AudioBuffer) (*audiocore.AudioBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]float32, len(input.Samples))
	for i, s := range input.Samples {
		s *= m.master
		if m.limiter {
			s = clamp(s)
		}
		out[i] = s
	}

	m.stats.BuffersProcessed++
	m.stats.SamplesProcessed += uint64(len(out))
	return audiocore.MustBuffer(input.Format, out, input.Timestamp), nil
}

// OutputFormat preserves the input format.
func (m *Mixer) OutputFormat(input audiocore.AudioFormat) audiocore.AudioFormat {
	return input
}

// Reset clears statistics. The mixer holds no accumulation state.
func (m *Mixer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = audiocore.ProcessorStats{}
}

// Stats returns processing counters.
func (m *Mixer) Stats() audiocore.ProcessorStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Name identifies the processor.
func (m *Mixer) Name() string {
	return "Mixer"
}

func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

var _ audiocore.MultiInputProcessor = (*Mixer)(nil)
